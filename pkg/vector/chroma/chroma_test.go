package chroma_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cartableai/cartable/pkg/logger"
	"github.com/cartableai/cartable/pkg/vector"
	"github.com/cartableai/cartable/pkg/vector/chroma"
)

func TestChroma(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Chroma Suite")
}

// fakeChroma serves just enough of the Chroma v2 REST API for the driver.
type fakeChroma struct {
	collectionID string

	upserts []map[string]any
	deletes []map[string]any

	queryResponse map[string]any
	failQueries   bool
}

func (f *fakeChroma) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/collections/cartable"):
			json.NewEncoder(w).Encode(map[string]string{"id": f.collectionID, "name": "cartable"})

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/upsert"):
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			f.upserts = append(f.upserts, body)
			w.WriteHeader(http.StatusOK)

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/query"):
			if f.failQueries {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(f.queryResponse)

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/delete"):
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			f.deletes = append(f.deletes, body)
			w.WriteHeader(http.StatusOK)

		default:
			http.NotFound(w, r)
		}
	})
}

var _ = Describe("Driver", func() {
	var (
		fake   *fakeChroma
		server *httptest.Server
		driver *chroma.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		fake = &fakeChroma{collectionID: "col-1"}
		server = httptest.NewServer(fake.handler())
		ctx = context.Background()

		var err error
		driver, err = chroma.NewDriver(chroma.Config{URL: server.URL}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("NewDriver", func() {
		It("requires a URL", func() {
			_, err := chroma.NewDriver(chroma.Config{}, logger.Nop())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("chroma URL is required"))
		})

		It("resolves the collection ID on startup", func() {
			Expect(driver).NotTo(BeNil())
		})

		It("wraps connection failures in ErrConnection", func() {
			server.Close()

			_, err := chroma.NewDriver(chroma.Config{URL: server.URL}, logger.Nop())
			Expect(err).To(MatchError(vector.ErrConnection))
		})
	})

	Describe("Upsert", func() {
		It("sends ids, embeddings, text, and source metadata", func() {
			docs := []vector.Document{
				{
					ID:        "chunk-1",
					Source:    "cours.pdf",
					Text:      "La dérivée mesure la variation.",
					Embedding: []float32{0.1, 0.2},
				},
			}
			Expect(driver.Upsert(ctx, docs)).To(Succeed())

			Expect(fake.upserts).To(HaveLen(1))
			body := fake.upserts[0]
			Expect(body["ids"]).To(Equal([]any{"chunk-1"}))
			Expect(body["documents"]).To(Equal([]any{"La dérivée mesure la variation."}))

			metadatas, ok := body["metadatas"].([]any)
			Expect(ok).To(BeTrue())
			Expect(metadatas[0]).To(HaveKeyWithValue("source", "cours.pdf"))
		})

		It("does nothing for an empty batch", func() {
			Expect(driver.Upsert(ctx, nil)).To(Succeed())
			Expect(fake.upserts).To(BeEmpty())
		})
	})

	Describe("Query", func() {
		It("maps the grouped response into scored matches", func() {
			fake.queryResponse = map[string]any{
				"ids":       [][]string{{"c1", "c2"}},
				"distances": [][]float32{{0.4, 0.9}},
				"metadatas": [][]map[string]any{{
					{"source": "cours.pdf"},
					{"source": "slides.pptx"},
				}},
				"documents": [][]string{{"premier texte", "second texte"}},
			}

			matches, err := driver.Query(ctx, []float32{0.1, 0.2}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))

			Expect(matches[0].ID).To(Equal("c1"))
			Expect(matches[0].Source).To(Equal("cours.pdf"))
			Expect(matches[0].Text).To(Equal("premier texte"))
			Expect(matches[0].Distance).To(Equal(float32(0.4)))
			Expect(matches[1].ID).To(Equal("c2"))
			Expect(matches[1].Distance).To(Equal(float32(0.9)))
		})

		It("returns no matches for an empty response", func() {
			fake.queryResponse = map[string]any{
				"ids":       [][]string{{}},
				"distances": [][]float32{{}},
			}

			matches, err := driver.Query(ctx, []float32{0.1, 0.2}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(BeEmpty())
		})

		It("surfaces server errors", func() {
			fake.failQueries = true

			_, err := driver.Query(ctx, []float32{0.1, 0.2}, 2)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("status 500"))
		})
	})

	Describe("Delete", func() {
		It("sends the chunk IDs to remove", func() {
			Expect(driver.Delete(ctx, []string{"c1", "c2"})).To(Succeed())

			Expect(fake.deletes).To(HaveLen(1))
			Expect(fake.deletes[0]["ids"]).To(Equal([]any{"c1", "c2"}))
		})
	})
})
