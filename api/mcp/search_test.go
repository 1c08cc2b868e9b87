package mcp

import (
	"context"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cartableai/cartable/pkg/logger"
	testutils "github.com/cartableai/cartable/pkg/utils/test"
	"github.com/cartableai/cartable/pkg/vector"
)

// textOf extracts the first text content block of a tool result.
func textOf(result *mcpsdk.CallToolResult) string {
	Expect(result.Content).NotTo(BeEmpty())
	text, ok := result.Content[0].(*mcpsdk.TextContent)
	Expect(ok).To(BeTrue())
	return text.Text
}

var _ = Describe("Search tool", func() {
	var (
		server       *Server
		vectorDriver *testutils.MockVectorDriver
		embedder     *testutils.MockEmbedder
		ctx          context.Context
	)

	BeforeEach(func() {
		vectorDriver = testutils.NewMockVectorDriver()
		embedder = testutils.NewMockEmbedder()
		ctx = context.Background()

		var err error
		server, err = NewServer(Config{
			VectorDriver: vectorDriver,
			Embedder:     embedder,
			Logger:       logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("returns matching chunks with their source and distance", func() {
		vectorDriver.Results = []vector.ScoredMatch{
			{
				Document: vector.Document{ID: "c1", Source: "cours.pdf", Text: "La dérivée mesure la variation."},
				Distance: 0.4,
			},
			{
				Document: vector.Document{ID: "c2", Source: "slides.pptx", Text: "Exemple de calcul."},
				Distance: 0.8,
			},
		}

		result, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "dérivée"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeFalse())

		Expect(output.Query).To(Equal("dérivée"))
		Expect(output.Count).To(Equal(2))
		Expect(output.Results[0].ID).To(Equal("c1"))
		Expect(output.Results[0].Source).To(Equal("cours.pdf"))
		Expect(output.Results[0].Distance).To(Equal(float32(0.4)))
		Expect(output.Results[1].Source).To(Equal("slides.pptx"))
	})

	It("mirrors the structured output as JSON text content", func() {
		vectorDriver.Results = []vector.ScoredMatch{
			{Document: vector.Document{ID: "c1", Source: "cours.pdf", Text: "texte"}, Distance: 0.4},
		}

		result, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "dérivée"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Content).To(HaveLen(1))

		// The text block carries the serialized SearchOutput.
		text := textOf(result)
		Expect(text).To(ContainSubstring(`"query":"dérivée"`))
		Expect(text).To(ContainSubstring(`"source":"cours.pdf"`))
	})

	It("truncates long chunk text to a preview", func() {
		long := strings.Repeat("a", previewLimit+100)
		vectorDriver.Results = []vector.ScoredMatch{
			{Document: vector.Document{ID: "c1", Source: "cours.pdf", Text: long}, Distance: 0.4},
		}

		result, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "dérivée"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeFalse())

		Expect(output.Results[0].Text).To(HaveLen(previewLimit + len("...")))
		Expect(output.Results[0].Text).To(HaveSuffix("..."))
	})

	It("returns short chunk text untouched", func() {
		vectorDriver.Results = []vector.ScoredMatch{
			{Document: vector.Document{ID: "c1", Source: "cours.pdf", Text: "court"}, Distance: 0.4},
		}

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "dérivée"})
		Expect(err).NotTo(HaveOccurred())
		Expect(output.Results[0].Text).To(Equal("court"))
	})

	It("defaults top_k to five", func() {
		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "dérivée"})
		Expect(err).NotTo(HaveOccurred())
		Expect(vectorDriver.QueryCalls).To(Equal(1))
	})

	It("reports an embedding failure as a tool error", func() {
		embedder.FailOn = "impossible"

		result, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "impossible"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeTrue())
		Expect(textOf(result)).To(ContainSubstring("Failed to embed query"))
	})

	It("reports a vector store failure as a tool error", func() {
		vectorDriver.FailQuery = true

		result, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "dérivée"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeTrue())
		Expect(textOf(result)).To(ContainSubstring("Failed to query vector store"))
	})
})
