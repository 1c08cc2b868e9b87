// Package ingestcmder provides the ingest command for indexing documents.
package ingestcmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cartableai/cartable/cmd/cartable/sqlitepath"
	"github.com/cartableai/cartable/pkg/cliui"
	"github.com/cartableai/cartable/pkg/config"
	embeddingutils "github.com/cartableai/cartable/pkg/embeddings/utils"
	eventstreamutils "github.com/cartableai/cartable/pkg/eventstream/utils"
	"github.com/cartableai/cartable/pkg/ingest"
	"github.com/cartableai/cartable/pkg/logger"
	vectorutils "github.com/cartableai/cartable/pkg/vector/utils"
)

type ingestCommander struct {
	paths     []string
	watch     string
	debug     bool
	configDir string

	v      *viper.Viper
	logger *zap.Logger
}

const ingestLongDesc string = `Index documents into the vector store.

Each file is loaded, split into overlapping chunks, embedded, and stored.
Supported formats: .pdf, .doc, .docx, .ppt, .pptx.

With --watch, the command runs until interrupted and ingests every supported
file created in the watched directory.

Examples:
  cartable ingest cours_maths.pdf slides_physique.pptx
  cartable ingest --watch ./depot`

const ingestShortDesc string = "Index documents into the vector store"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args: cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			cmder.v = v
			cmder.configDir = configDir
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.paths = args

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			if len(cmder.paths) == 0 && cmder.watch == "" {
				return errors.New("provide files to ingest or a --watch directory")
			}

			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.watch, "watch", "w", "", "Directory to watch for new documents")

	return cmd
}

func (c *ingestCommander) run() error {
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

	chunker := ingest.NewChunker(v.GetInt("chunking.size"), v.GetInt("chunking.overlap"))
	pipeline := ingest.NewPipeline(embedder, driver, publisher, chunker, c.logger)

	ctx := context.Background()

	for _, path := range c.paths {
		if err := c.ingestFile(ctx, pipeline, path); err != nil {
			return err
		}
	}

	if c.watch != "" {
		return c.watchDirectory(ctx, pipeline)
	}

	return nil
}

func (c *ingestCommander) ingestFile(ctx context.Context, pipeline *ingest.Pipeline, path string) error {
	sourceName := filepath.Base(path)

	var inserted int
	err := cliui.Step(os.Stdout, fmt.Sprintf("Ingesting %s", sourceName), func() error {
		var err error
		inserted, err = pipeline.Ingest(ctx, path, sourceName)
		return err
	})
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", sourceName, err)
	}

	fmt.Printf("  %s chunks indexed from %s\n",
		cliui.ValueStyle.Render(fmt.Sprintf("%d", inserted)),
		cliui.KeyStyle.Render(sourceName),
	)
	return nil
}

// watchDirectory ingests every supported document created in the watched
// directory until the process is interrupted.
func (c *ingestCommander) watchDirectory(ctx context.Context, pipeline *ingest.Pipeline) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.watch); err != nil {
		return fmt.Errorf("watching %s: %w", c.watch, err)
	}

	c.logger.Info("watching directory for documents",
		zap.String("dir", c.watch),
	)
	fmt.Printf("  Watching %s (Ctrl-C to stop)\n", cliui.KeyStyle.Render(c.watch))

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// Editors and browsers write then rename; index on both.
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			if _, err := ingest.DetectFormat(event.Name); err != nil {
				continue
			}

			if err := c.ingestFile(ctx, pipeline, event.Name); err != nil {
				c.logger.Warn("failed to ingest watched file",
					zap.String("path", event.Name),
					zap.Error(err),
				)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("watcher error", zap.Error(err))
		}
	}
}
