// Package servecmder provides the serve command for running the API server.
package servecmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cartableai/cartable/api"
	"github.com/cartableai/cartable/api/mcp"
	"github.com/cartableai/cartable/cmd/cartable/sqlitepath"
	"github.com/cartableai/cartable/pkg/config"
	embeddingutils "github.com/cartableai/cartable/pkg/embeddings/utils"
	eventstreamutils "github.com/cartableai/cartable/pkg/eventstream/utils"
	"github.com/cartableai/cartable/pkg/ingest"
	"github.com/cartableai/cartable/pkg/llm/openrouter"
	"github.com/cartableai/cartable/pkg/logger"
	"github.com/cartableai/cartable/pkg/rag"
	vectorutils "github.com/cartableai/cartable/pkg/vector/utils"
)

type ServeCommander struct {
	listen    string
	apiKey    string
	model     string
	debug     bool
	configDir string

	v      *viper.Viper
	logger *zap.Logger
}

var serveFlags = config.FlagSet{
	config.FlagAPIListen: {
		Name: "listen", Shorthand: "l", ViperKey: "api.listen",
		Description: "Address for the API server to listen on",
	},
	config.FlagChatAPIKey: {
		Name: "api-key", ViperKey: "chat.api_key",
		Description: "OpenRouter API key for answer generation",
	},
	config.FlagChatModel: {
		Name: "model", Shorthand: "m", ViperKey: "chat.model",
		Description: "Generation model identifier",
	},
}

const serveLongDesc string = `Run the Cartable API server.

The server exposes:
  POST /v1/ingest    Upload and index a document
  POST /v1/chat      Ask a question, answered as a server-sent event stream
  GET  /v1/search    Raw semantic search over indexed chunks
  /mcp               MCP endpoint with the search_documents tool`

const serveShortDesc string = "Run the Cartable API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, serveFlags, []string{
				config.FlagAPIListen,
				config.FlagChatAPIKey,
				config.FlagChatModel,
			})

			cmder.v = v
			cmder.configDir = configDir
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagChatAPIKey, &cmder.apiKey)
	config.AddStringFlag(cmd, serveFlags, config.FlagChatModel, &cmder.model)

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	v := c.v

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: v.GetString("embedding.provider"),
		TargetURL:    v.GetString("embedding.target"),
		Model:        v.GetString("embedding.model"),
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	dbPath, err := sqlitepath.Resolve(v.GetString("vector_store.path"), c.configDir)
	if err != nil {
		return fmt.Errorf("resolving vector index path: %w", err)
	}

	driver, err := vectorutils.NewVectorDriver(&vectorutils.NewVectorDriverOpts{
		ProviderType: v.GetString("vector_store.provider"),
		TargetURL:    v.GetString("vector_store.target"),
		Collection:   v.GetString("vector_store.collection"),
		Path:         dbPath,
		Dimensions:   v.GetUint("embedding.dimensions"),
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector driver: %w", err)
	}
	defer driver.Close()

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: v.GetString("events.provider"),
		Brokers:      v.GetStringSlice("events.brokers"),
		Topic:        v.GetString("events.topic"),
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	defer publisher.Close()

	llmClient := openrouter.NewClient(openrouter.Config{
		BaseURL:  v.GetString("chat.base_url"),
		APIKey:   v.GetString("chat.api_key"),
		Model:    v.GetString("chat.model"),
		SiteURL:  v.GetString("chat.site_url"),
		SiteName: v.GetString("chat.site_name"),
	}, c.logger)

	threshold := float32(v.GetFloat64("retrieval.threshold"))
	answerer := rag.NewPipeline(llmClient, embedder, driver, rag.Options{
		Threshold: &threshold,
		TopK:      v.GetInt("retrieval.top_k"),
	}, c.logger)

	chunker := ingest.NewChunker(v.GetInt("chunking.size"), v.GetInt("chunking.overlap"))
	ingester := ingest.NewPipeline(embedder, driver, publisher, chunker, c.logger)

	mcpServer, err := mcp.NewServer(mcp.Config{
		VectorDriver: driver,
		Embedder:     embedder,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	apiServer := api.NewServer(api.Config{
		ListenAddr:   v.GetString("api.listen"),
		Answerer:     answerer,
		Ingester:     ingester,
		Embedder:     embedder,
		VectorDriver: driver,
		Publisher:    publisher,
	}, mcpServer, c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return apiServer.Shutdown()
	}
}
