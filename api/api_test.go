package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cartableai/cartable/pkg/eventstream"
	"github.com/cartableai/cartable/pkg/ingest"
	"github.com/cartableai/cartable/pkg/logger"
	"github.com/cartableai/cartable/pkg/rag"
	testutils "github.com/cartableai/cartable/pkg/utils/test"
	"github.com/cartableai/cartable/pkg/vector"
)

func TestAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "API Suite")
}

var _ = Describe("Server", func() {
	var (
		server    *Server
		client    *testutils.MockStreamClient
		embedder  *testutils.MockEmbedder
		store     *testutils.MockVectorDriver
		publisher *testutils.MockPublisher
	)

	BeforeEach(func() {
		client = testutils.NewMockStreamClient("Bonjour", " !")
		embedder = testutils.NewMockEmbedder()
		store = testutils.NewMockVectorDriver()
		publisher = testutils.NewMockPublisher()

		log := logger.Nop()
		server = NewServer(Config{
			ListenAddr:   ":0",
			Answerer:     rag.NewPipeline(client, embedder, store, rag.Options{}, log),
			Ingester:     ingest.NewPipeline(embedder, store, publisher, ingest.NewChunker(1000, 200), log),
			Embedder:     embedder,
			VectorDriver: store,
			Publisher:    publisher,
		}, nil, log)
	})

	Describe("GET /ping", func() {
		It("responds with pong", func() {
			req, err := http.NewRequest(http.MethodGet, "/ping", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("pong"))
		})
	})

	Describe("GET /v1/search", func() {
		It("returns 503 when search is not configured", func() {
			bare := NewServer(Config{ListenAddr: ":0"}, nil, logger.Nop())

			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := bare.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
		})

		It("returns 400 when the query parameter is missing", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("query parameter is required"))
		})

		It("returns 400 for a non-positive top_k", func() {
			for _, topK := range []string{"abc", "0", "-1"} {
				req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test&top_k="+topK, nil)
				Expect(err).NotTo(HaveOccurred())

				resp, err := server.app.Test(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest), "top_k=%s", topK)
			}
		})

		It("returns matches with their source and distance", func() {
			store.Results = []vector.ScoredMatch{
				{
					Document: vector.Document{ID: "c1", Source: "cours.pdf", Text: "La dérivée mesure la variation."},
					Distance: 0.4,
				},
			}

			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=dérivée&top_k=3", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var out SearchResponse
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &out)).To(Succeed())

			Expect(out.Query).To(Equal("dérivée"))
			Expect(out.Count).To(Equal(1))
			Expect(out.Results[0].ID).To(Equal("c1"))
			Expect(out.Results[0].Source).To(Equal("cours.pdf"))
			Expect(out.Results[0].Distance).To(Equal(float32(0.4)))
		})

		It("returns 500 when the vector query fails", func() {
			store.FailQuery = true

			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusInternalServerError))
		})
	})

	Describe("POST /v1/chat", func() {
		postChat := func(body string) *http.Response {
			req, err := http.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		It("returns 503 when chat is not configured", func() {
			bare := NewServer(Config{ListenAddr: ":0"}, nil, logger.Nop())

			req, err := http.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"question":"bonjour"}`))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := bare.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
		})

		It("returns 400 for an unparseable body", func() {
			resp := postChat("not json")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("returns 400 for an empty question", func() {
			resp := postChat(`{"question":""}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("streams the answer as SSE deltas ending with a done sentinel", func() {
			resp := postChat(`{"question":"bonjour"}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())

			Expect(string(body)).To(ContainSubstring(`"delta":"Bonjour"`))
			Expect(string(body)).To(ContainSubstring(`"delta":" !"`))
			Expect(string(body)).To(ContainSubstring("data: [DONE]"))
		})

		It("publishes a turn event once the stream completes", func() {
			resp := postChat(`{"question":"bonjour"}`)
			_, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())

			Expect(publisher.Events).To(HaveLen(1))
			event := publisher.Events[0]
			Expect(event.Type).To(Equal(eventstream.TypeTurnAnswered))

			payload, ok := event.Payload.(eventstream.TurnAnswered)
			Expect(ok).To(BeTrue())
			Expect(payload.Intent).To(Equal("smalltalk"))
			Expect(payload.Failed).To(BeFalse())
		})

		It("reports a failed turn in both the stream and the event", func() {
			store.Results = []vector.ScoredMatch{
				{Document: vector.Document{ID: "c1", Source: "cours.pdf", Text: "contexte"}, Distance: 0.4},
			}
			client.Fragments = []string{"début"}
			client.StreamErr = io.ErrUnexpectedEOF

			resp := postChat(`{"question":"c'est quoi une dérivée ?"}`)
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())

			Expect(string(body)).To(ContainSubstring(`"delta":"début"`))
			Expect(string(body)).To(ContainSubstring(`"error"`))
			Expect(string(body)).NotTo(ContainSubstring("data: [DONE]"))

			payload, ok := publisher.Events[0].Payload.(eventstream.TurnAnswered)
			Expect(ok).To(BeTrue())
			Expect(payload.Failed).To(BeTrue())
		})
	})

	Describe("POST /v1/ingest", func() {
		uploadFile := func(filename string, content []byte) *http.Response {
			var buf bytes.Buffer
			writer := multipart.NewWriter(&buf)

			part, err := writer.CreateFormFile("file", filename)
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write(content)
			Expect(err).NotTo(HaveOccurred())
			Expect(writer.Close()).To(Succeed())

			req, err := http.NewRequest(http.MethodPost, "/v1/ingest", &buf)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", writer.FormDataContentType())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		It("returns 503 when ingestion is not configured", func() {
			bare := NewServer(Config{ListenAddr: ":0"}, nil, logger.Nop())

			req, err := http.NewRequest(http.MethodPost, "/v1/ingest", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := bare.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
		})

		It("returns 400 when no file is attached", func() {
			req, err := http.NewRequest(http.MethodPost, "/v1/ingest", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("returns 415 for an unsupported extension", func() {
			resp := uploadFile("archive.xyz", []byte("whatever"))
			Expect(resp.StatusCode).To(Equal(fiber.StatusUnsupportedMediaType))
		})

		It("ingests an uploaded document and reports the inserted count", func() {
			resp := uploadFile("cours.docx", docxFixture("premier paragraphe", "second paragraphe"))
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var out IngestResponse
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &out)).To(Succeed())

			Expect(out.Source).To(Equal("cours.docx"))
			Expect(out.ChunksInserted).To(Equal(2))
			Expect(store.Documents).To(HaveLen(2))
		})
	})
})

// docxFixture builds a minimal .docx archive in memory.
func docxFixture(paragraphs ...string) []byte {
	var doc strings.Builder
	doc.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	doc.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		doc.WriteString(`<w:p><w:r><w:t>`)
		doc.WriteString(p)
		doc.WriteString(`</w:t></w:r></w:p>`)
	}
	doc.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	Expect(err).NotTo(HaveOccurred())
	_, err = w.Write([]byte(doc.String()))
	Expect(err).NotTo(HaveOccurred())
	Expect(zw.Close()).To(Succeed())

	return buf.Bytes()
}
