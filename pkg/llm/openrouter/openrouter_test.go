package openrouter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cartableai/cartable/pkg/llm"
	"github.com/cartableai/cartable/pkg/llm/openrouter"
	"github.com/cartableai/cartable/pkg/logger"
)

func TestOpenRouter(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "OpenRouter Suite")
}

// writeChunk emits a single SSE data event carrying one content delta.
func writeChunk(w http.ResponseWriter, content string) {
	fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", content)
}

var _ = Describe("Client", func() {
	var (
		ctx context.Context
		req llm.CompletionRequest
	)

	BeforeEach(func() {
		ctx = context.Background()
		req = llm.CompletionRequest{
			SystemPrompt: "Tu es un assistant.",
			UserPrompt:   "[QUESTION]\nc'est quoi une dérivée ?",
			Temperature:  0.2,
		}
	})

	newClient := func(baseURL string) *openrouter.Client {
		return openrouter.NewClient(openrouter.Config{
			BaseURL:  baseURL,
			APIKey:   "test-key",
			Model:    "test/model",
			SiteURL:  "https://example.org",
			SiteName: "Cartable",
		}, logger.Nop())
	}

	It("refuses to stream without an API key", func() {
		client := openrouter.NewClient(openrouter.Config{}, logger.Nop())

		Expect(client.Configured()).To(BeFalse())

		_, err := client.StreamCompletion(ctx, req)
		Expect(err).To(MatchError(llm.ErrMissingAPIKey))
	})

	It("streams content deltas until the done sentinel", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, ": OPENROUTER PROCESSING\n\n")
			writeChunk(w, "La dérivée ")
			writeChunk(w, "mesure la variation.")
			fmt.Fprint(w, "data: [DONE]\n\n")
		}))
		defer server.Close()

		stream, err := newClient(server.URL).StreamCompletion(ctx, req)
		Expect(err).NotTo(HaveOccurred())

		text, err := stream.Collect()
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("La dérivée mesure la variation."))
	})

	It("sends the expected request shape and headers", func() {
		var (
			gotAuth    string
			gotAccept  string
			gotReferer string
			gotTitle   string
			gotBody    map[string]any
		)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotAccept = r.Header.Get("Accept")
			gotReferer = r.Header.Get("HTTP-Referer")
			gotTitle = r.Header.Get("X-Title")
			Expect(json.NewDecoder(r.Body).Decode(&gotBody)).To(Succeed())

			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: [DONE]\n\n")
		}))
		defer server.Close()

		stream, err := newClient(server.URL).StreamCompletion(ctx, req)
		Expect(err).NotTo(HaveOccurred())
		_, _ = stream.Collect()

		Expect(gotAuth).To(Equal("Bearer test-key"))
		Expect(gotAccept).To(Equal("text/event-stream"))
		Expect(gotReferer).To(Equal("https://example.org"))
		Expect(gotTitle).To(Equal("Cartable"))

		Expect(gotBody["model"]).To(Equal("test/model"))
		Expect(gotBody["stream"]).To(Equal(true))
		Expect(gotBody["temperature"]).To(BeNumerically("==", 0.2))

		messages, ok := gotBody["messages"].([]any)
		Expect(ok).To(BeTrue())
		Expect(messages).To(HaveLen(2))

		system := messages[0].(map[string]any)
		Expect(system["role"]).To(Equal("system"))
		Expect(system["content"]).To(Equal("Tu es un assistant."))

		user := messages[1].(map[string]any)
		Expect(user["role"]).To(Equal("user"))
		Expect(user["content"]).To(ContainSubstring("[QUESTION]"))
	})

	It("surfaces a mid-stream provider error after partial content", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			writeChunk(w, "début")
			fmt.Fprint(w, "data: {\"error\":{\"code\":429,\"message\":\"rate limited\"}}\n\n")
		}))
		defer server.Close()

		stream, err := newClient(server.URL).StreamCompletion(ctx, req)
		Expect(err).NotTo(HaveOccurred())

		text, err := stream.Collect()
		Expect(text).To(Equal("début"))
		Expect(err).To(MatchError(llm.ErrStream))
		Expect(err.Error()).To(ContainSubstring("rate limited"))
	})

	It("treats an upstream close without the sentinel as completion", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			writeChunk(w, "réponse entière")
		}))
		defer server.Close()

		stream, err := newClient(server.URL).StreamCompletion(ctx, req)
		Expect(err).NotTo(HaveOccurred())

		text, err := stream.Collect()
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("réponse entière"))
	})

	It("skips undecodable chunks", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: not-json\n\n")
			writeChunk(w, "intact")
			fmt.Fprint(w, "data: [DONE]\n\n")
		}))
		defer server.Close()

		stream, err := newClient(server.URL).StreamCompletion(ctx, req)
		Expect(err).NotTo(HaveOccurred())

		text, err := stream.Collect()
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("intact"))
	})

	It("fails fast on a non-200 response", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"invalid key"}}`, http.StatusUnauthorized)
		}))
		defer server.Close()

		_, err := newClient(server.URL).StreamCompletion(ctx, req)
		Expect(err).To(MatchError(llm.ErrStream))
		Expect(err.Error()).To(ContainSubstring("401"))
		Expect(err.Error()).To(ContainSubstring("invalid key"))
	})
})
