package sqlitepath_test

import (
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cartableai/cartable/cmd/cartable/sqlitepath"
)

func TestSqlitePath(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SqlitePath Suite")
}

var _ = Describe("Resolve", func() {
	It("keeps an explicitly configured path", func() {
		path, err := sqlitepath.Resolve("/var/data/index.db", GinkgoT().TempDir())

		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/var/data/index.db"))
	})

	It("defaults to cartable.db in the resolved dot directory", func() {
		dir := GinkgoT().TempDir()

		path, err := sqlitepath.Resolve("", dir)

		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(dir, "cartable.db")))
		Expect(dir).To(BeADirectory())
	})
})
