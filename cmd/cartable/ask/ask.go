// Package askcmder provides the ask command for one-shot questions from the
// terminal.
package askcmder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cartableai/cartable/cmd/cartable/sqlitepath"
	"github.com/cartableai/cartable/pkg/cliui"
	"github.com/cartableai/cartable/pkg/config"
	embeddingutils "github.com/cartableai/cartable/pkg/embeddings/utils"
	"github.com/cartableai/cartable/pkg/llm/openrouter"
	"github.com/cartableai/cartable/pkg/logger"
	"github.com/cartableai/cartable/pkg/rag"
	vectorutils "github.com/cartableai/cartable/pkg/vector/utils"
)

type askCommander struct {
	question  string
	apiKey    string
	model     string
	plain     bool
	debug     bool
	configDir string

	v      *viper.Viper
	logger *zap.Logger
}

var askFlags = config.FlagSet{
	config.FlagChatAPIKey: {
		Name: "api-key", ViperKey: "chat.api_key",
		Description: "OpenRouter API key for answer generation",
	},
	config.FlagChatModel: {
		Name: "model", Shorthand: "m", ViperKey: "chat.model",
		Description: "Generation model identifier",
	},
}

const askLongDesc string = `Ask a one-shot question answered from the ingested documents.

The answer streams to the terminal as it is generated, then is re-rendered
as markdown. Use --plain to skip the markdown rendering.

Examples:
  cartable ask "Quelle est la définition d'une dérivée ?"
  cartable ask "Quelle est la source de cette formule ?"`

const askShortDesc string = "Ask a question from the terminal"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, askFlags, []string{
				config.FlagChatAPIKey,
				config.FlagChatModel,
			})

			cmder.v = v
			cmder.configDir = configDir
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.question = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, askFlags, config.FlagChatAPIKey, &cmder.apiKey)
	config.AddStringFlag(cmd, askFlags, config.FlagChatModel, &cmder.model)
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print the raw answer without markdown rendering")

	return cmd
}

func (c *askCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	cliLog := logger.NewCLILogger(c.debug)

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

	llmClient := openrouter.NewClient(openrouter.Config{
		BaseURL:  v.GetString("chat.base_url"),
		APIKey:   v.GetString("chat.api_key"),
		Model:    v.GetString("chat.model"),
		SiteURL:  v.GetString("chat.site_url"),
		SiteName: v.GetString("chat.site_name"),
	}, c.logger)

	threshold := float32(v.GetFloat64("retrieval.threshold"))
	pipeline := rag.NewPipeline(llmClient, embedder, driver, rag.Options{
		Threshold: &threshold,
		TopK:      v.GetInt("retrieval.top_k"),
	}, c.logger)

	stream := pipeline.Answer(context.Background(), c.question, nil)
	defer stream.Close()

	var sb strings.Builder
	fmt.Println()
	for fragment := range stream.Fragments() {
		sb.WriteString(fragment)
		fmt.Print(fragment)
	}
	fmt.Println()

	if err := stream.Err(); err != nil {
		return fmt.Errorf("answer stream failed: %w", err)
	}

	if c.plain {
		return nil
	}

	// Re-render the full answer as markdown now that it is complete.
	rendered, err := cliui.RenderMarkdown(sb.String())
	if err != nil {
		cliLog.Debug("markdown rendering failed, keeping raw output", "err", err)
		return nil
	}

	fmt.Fprint(os.Stdout, rendered)
	return nil
}
