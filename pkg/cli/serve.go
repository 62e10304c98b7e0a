package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/cygnet/pkg/controller/server"
	"github.com/m-mizutani/cygnet/pkg/service/history"
	chatuc "github.com/m-mizutani/cygnet/pkg/usecase/chat"
	documentuc "github.com/m-mizutani/cygnet/pkg/usecase/document"
	"github.com/m-mizutani/cygnet/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg        config
		configPath string

		addr          string
		ttlHours      int64
		llmTimeout    time.Duration
		sweepInterval time.Duration
		chunkSize     int64
		chunkOverlap  int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Aliases:     []string{"a"},
			Usage:       "Listen address",
			Value:       "127.0.0.1:8080",
			Sources:     cli.EnvVars("CYGNET_ADDR"),
			Destination: &addr,
		},
		&cli.Int64Flag{
			Name:        "conversation-ttl",
			Usage:       "Conversation retention in hours",
			Value:       24,
			Sources:     cli.EnvVars("CYGNET_CONVERSATION_TTL"),
			Destination: &ttlHours,
		},
		&cli.DurationFlag{
			Name:        "llm-timeout",
			Usage:       "Timeout for a single LLM call",
			Value:       60 * time.Second,
			Sources:     cli.EnvVars("CYGNET_LLM_TIMEOUT"),
			Destination: &llmTimeout,
		},
		&cli.DurationFlag{
			Name:        "sweep-interval",
			Usage:       "Interval between expired conversation sweeps",
			Value:       10 * time.Minute,
			Sources:     cli.EnvVars("CYGNET_SWEEP_INTERVAL"),
			Destination: &sweepInterval,
		},
		&cli.Int64Flag{
			Name:        "chunk-size",
			Usage:       "Document chunk size in characters",
			Value:       1000,
			Sources:     cli.EnvVars("CYGNET_CHUNK_SIZE"),
			Destination: &chunkSize,
		},
		&cli.Int64Flag{
			Name:        "chunk-overlap",
			Usage:       "Overlap between adjacent chunks in characters",
			Value:       200,
			Sources:     cli.EnvVars("CYGNET_CHUNK_OVERLAP"),
			Destination: &chunkOverlap,
		},
		configFlag(&configPath),
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.loadFile(c, configPath); err != nil {
				return err
			}

			logger := logging.New(cfg.logLevel, os.Stderr)
			slog.SetDefault(logger)
			ctx = logging.With(ctx, logger)

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			storage, err := cfg.newStorage(ctx)
			if err != nil {
				return err
			}

			hist := history.New(
				history.WithTTL(time.Duration(ttlHours) * time.Hour),
			)

			chat := chatuc.New(gemini, repo, hist,
				chatuc.WithTimeout(llmTimeout),
			)
			documents := documentuc.New(gemini, repo, storage,
				documentuc.WithChunking(int(chunkSize), int(chunkOverlap)),
				documentuc.WithTimeout(llmTimeout),
			)

			llmName, embeddingName := cfg.modelNames()
			srv := server.New(server.Config{
				Chat:           chat,
				Documents:      documents,
				LLMName:        llmName,
				EmbeddingName:  embeddingName,
				VectorStoreTag: cfg.vectorStoreTag(),
			})

			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			go sweepExpired(ctx, chat.History(), sweepInterval)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting server",
					"addr", addr,
					"model", llmName,
					"vector_store", cfg.vectorStoreTag(),
				)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return goerr.Wrap(err, "server failed")
				}
			case <-ctx.Done():
				logger.Info("shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := httpSrv.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shut down server")
				}
			}

			return nil
		},
	}
}

// sweepExpired periodically drops conversations past their retention window.
// Expiry is also enforced on access, so the sweeper only reclaims memory
// held by conversations nobody touches again.
func sweepExpired(ctx context.Context, hist *history.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := hist.Sweep(); n > 0 {
				logging.From(ctx).Debug("swept expired conversations", "count", n)
			}
		}
	}
}
