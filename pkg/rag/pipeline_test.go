package rag_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cartableai/cartable/pkg/logger"
	"github.com/cartableai/cartable/pkg/rag"
	testutils "github.com/cartableai/cartable/pkg/utils/test"
	"github.com/cartableai/cartable/pkg/vector"
)

var _ = Describe("Pipeline", func() {
	var (
		client   *testutils.MockStreamClient
		embedder *testutils.MockEmbedder
		store    *testutils.MockVectorDriver
		pipeline *rag.Pipeline
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = testutils.NewMockStreamClient("Bonjour", " !")
		embedder = testutils.NewMockEmbedder()
		store = testutils.NewMockVectorDriver()
		pipeline = rag.NewPipeline(client, embedder, store, rag.Options{}, logger.Nop())
	})

	relevantMatches := func() []vector.ScoredMatch {
		return []vector.ScoredMatch{
			{Document: vector.Document{ID: "1", Source: "cours.pdf", Text: "La dérivée mesure la variation."}, Distance: 0.4},
			{Document: vector.Document{ID: "2", Source: "slides.pptx", Text: "Exemple de calcul."}, Distance: 0.8},
		}
	}

	Describe("missing credentials", func() {
		It("answers with a single static fragment and no retrieval", func() {
			client.Unconfigured = true

			stream := pipeline.Answer(ctx, "c'est quoi une dérivée ?", nil)
			text, err := stream.Collect()

			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal(rag.MissingAPIKeyMessage))
			Expect(store.QueryCalls).To(BeZero())
			Expect(embedder.Calls).To(BeEmpty())
		})
	})

	Describe("smalltalk", func() {
		It("answers without touching the vector store", func() {
			stream := pipeline.Answer(ctx, "Bonjour", nil)
			text, err := stream.Collect()

			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("Bonjour !"))
			Expect(store.QueryCalls).To(BeZero())
			Expect(embedder.Calls).To(BeEmpty())
		})

		It("uses the relaxed sampling temperature", func() {
			stream := pipeline.Answer(ctx, "merci", nil)
			_, _ = stream.Collect()

			Expect(client.Requests).To(HaveLen(1))
			Expect(client.Requests[0].Temperature).To(Equal(0.4))
		})
	})

	Describe("format instructions", func() {
		It("confirms the requested line count without generating", func() {
			stream := pipeline.Answer(ctx, "réponds en 3 lignes", nil)
			text, err := stream.Collect()

			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(ContainSubstring("**3 lignes**"))
			Expect(client.Requests).To(BeEmpty())
			Expect(store.QueryCalls).To(BeZero())
		})

		It("defaults to two lines when no count is parseable", func() {
			stream := pipeline.Answer(ctx, "résume en 0 lignes", nil)
			text, _ := stream.Collect()

			Expect(text).To(ContainSubstring("**2 lignes**"))
		})
	})

	Describe("retrieval", func() {
		It("grounds the answer in retrieved context at low temperature", func() {
			store.Results = relevantMatches()

			stream := pipeline.Answer(ctx, "c'est quoi une dérivée ?", nil)
			_, err := stream.Collect()

			Expect(err).NotTo(HaveOccurred())
			Expect(store.QueryCalls).To(Equal(1))
			Expect(client.Requests).To(HaveLen(1))

			req := client.Requests[0]
			Expect(req.Temperature).To(Equal(0.2))
			Expect(req.UserPrompt).To(ContainSubstring("[CONTEXTE DOCUMENTAIRE]"))
			Expect(req.UserPrompt).To(ContainSubstring("--- SOURCE: cours.pdf ---"))
			Expect(req.UserPrompt).To(ContainSubstring("--- SOURCE: slides.pptx ---"))
			Expect(req.UserPrompt).To(ContainSubstring("[QUESTION]\nc'est quoi une dérivée ?"))
		})

		It("switches to the attributed mode when sources are requested", func() {
			store.Results = relevantMatches()

			stream := pipeline.Answer(ctx, "quelle est la source de cette définition ?", nil)
			_, _ = stream.Collect()

			Expect(client.Requests).To(HaveLen(1))
			Expect(client.Requests[0].SystemPrompt).To(ContainSubstring("Sources :"))
		})

		It("does not cite sources in the natural mode", func() {
			store.Results = relevantMatches()

			stream := pipeline.Answer(ctx, "c'est quoi une dérivée ?", nil)
			_, _ = stream.Collect()

			Expect(client.Requests[0].SystemPrompt).NotTo(ContainSubstring("Sources :"))
			Expect(client.Requests[0].SystemPrompt).To(ContainSubstring("naturelle"))
		})

		It("falls back when every match is beyond the threshold", func() {
			store.Results = []vector.ScoredMatch{
				{Document: vector.Document{ID: "1", Text: "hors sujet"}, Distance: 1.4},
			}

			stream := pipeline.Answer(ctx, "c'est quoi une dérivée ?", nil)
			_, err := stream.Collect()

			Expect(err).NotTo(HaveOccurred())
			Expect(client.Requests).To(HaveLen(1))
			Expect(client.Requests[0].Temperature).To(Equal(0.4))
			Expect(client.Requests[0].UserPrompt).NotTo(ContainSubstring("CONTEXTE DOCUMENTAIRE"))
		})

		It("honors an explicit zero threshold instead of the default", func() {
			zero := float32(0)
			strict := rag.NewPipeline(client, embedder, store, rag.Options{Threshold: &zero}, logger.Nop())
			store.Results = relevantMatches()

			stream := strict.Answer(ctx, "c'est quoi une dérivée ?", nil)
			_, err := stream.Collect()

			Expect(err).NotTo(HaveOccurred())
			Expect(store.QueryCalls).To(Equal(1))
			Expect(client.Requests).To(HaveLen(1))
			Expect(client.Requests[0].Temperature).To(Equal(0.4))
			Expect(client.Requests[0].UserPrompt).NotTo(ContainSubstring("CONTEXTE DOCUMENTAIRE"))
		})

		It("falls back when the store query fails", func() {
			store.FailQuery = true

			stream := pipeline.Answer(ctx, "c'est quoi une dérivée ?", nil)
			_, err := stream.Collect()

			Expect(err).NotTo(HaveOccurred())
			Expect(client.Requests).To(HaveLen(1))
			Expect(client.Requests[0].Temperature).To(Equal(0.4))
		})

		It("falls back when the question cannot be embedded", func() {
			embedder.FailOn = "question impossible"

			stream := pipeline.Answer(ctx, "question impossible", nil)
			_, err := stream.Collect()

			Expect(err).NotTo(HaveOccurred())
			Expect(store.QueryCalls).To(BeZero())
			Expect(client.Requests).To(HaveLen(1))
		})
	})

	Describe("history rendering", func() {
		It("keeps only the six most recent messages, oldest first", func() {
			store.Results = relevantMatches()

			history := make([]string, 0, 50)
			for i := 1; i <= 50; i++ {
				history = append(history, fmt.Sprintf("message %d", i))
			}

			stream := pipeline.Answer(ctx, "c'est quoi une dérivée ?", history)
			_, _ = stream.Collect()

			req := client.Requests[0]
			Expect(req.UserPrompt).NotTo(ContainSubstring("message 44"))
			for i := 45; i <= 50; i++ {
				Expect(req.UserPrompt).To(ContainSubstring(fmt.Sprintf("- message %d", i)))
			}

			idx45 := strings.Index(req.UserPrompt, "- message 45")
			idx50 := strings.Index(req.UserPrompt, "- message 50")
			Expect(idx45).To(BeNumerically("<", idx50))
		})
	})

	Describe("generation failures", func() {
		It("surfaces a mid-stream error after delivering partial fragments", func() {
			store.Results = relevantMatches()
			client.Fragments = []string{"début de réponse"}
			client.StreamErr = errors.New("boom")

			stream := pipeline.Answer(ctx, "c'est quoi une dérivée ?", nil)
			text, err := stream.Collect()

			Expect(text).To(Equal("début de réponse"))
			Expect(err).To(MatchError("boom"))
		})

		It("returns a finished failed stream when generation cannot start", func() {
			client.Unconfigured = true

			stream := pipeline.Answer(ctx, "bonjour", nil)
			text, err := stream.Collect()

			// Unconfigured is caught before any provider call.
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal(rag.MissingAPIKeyMessage))
		})
	})
})
