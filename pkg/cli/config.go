package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/cygnet/pkg/adapter"
	"github.com/m-mizutani/cygnet/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// config holds configuration values
type config struct {
	// Repository
	project  string
	database string

	// Adapters
	geminiProject   string
	geminiLocation  string
	generativeModel string
	embeddingModel  string
	bucket          string

	// Logging
	logLevel string

	// Mock mode replaces the LLM, vector store and blob storage with
	// in-memory implementations
	mock bool
}

// fileConfig is the YAML representation of config for --config files.
// Flags and environment variables take precedence over file values.
type fileConfig struct {
	Project  string `yaml:"project"`
	Database string `yaml:"database"`

	GeminiProject   string `yaml:"gemini_project"`
	GeminiLocation  string `yaml:"gemini_location"`
	GenerativeModel string `yaml:"generative_model"`
	EmbeddingModel  string `yaml:"embedding_model"`
	Bucket          string `yaml:"bucket"`

	LogLevel string `yaml:"log_level"`
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Aliases:     []string{"b"},
			Usage:       "Cloud Storage bucket for uploaded documents",
			Sources:     cli.EnvVars("CYGNET_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("CYGNET_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.BoolFlag{
			Name:        "mock",
			Usage:       "Run with in-memory LLM, vector store and blob storage",
			Sources:     cli.EnvVars("CYGNET_MOCK"),
			Destination: &cfg.mock,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "model",
			Usage:       "Generative model name",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("CYGNET_MODEL"),
			Destination: &cfg.generativeModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Embedding model name",
			Value:       "gemini-embedding-001",
			Sources:     cli.EnvVars("CYGNET_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
	}
}

// configFlag returns the --config flag shared by commands that accept a
// YAML configuration file.
func configFlag(path *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to YAML configuration file",
		Sources:     cli.EnvVars("CYGNET_CONFIG"),
		Destination: path,
	}
}

// loadFile merges values from a YAML configuration file into cfg. A value
// explicitly set via flag or environment variable wins over the file; the
// file only fills fields left at their zero value or built-in default.
func (cfg *config) loadFile(c *cli.Command, path string) error {
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return goerr.Wrap(err, "failed to parse config file", goerr.V("path", path))
	}

	merge := func(flag string, dst *string, v string) {
		if v != "" && !c.IsSet(flag) {
			*dst = v
		}
	}
	merge("project", &cfg.project, fc.Project)
	merge("database", &cfg.database, fc.Database)
	merge("gemini-project", &cfg.geminiProject, fc.GeminiProject)
	merge("gemini-location", &cfg.geminiLocation, fc.GeminiLocation)
	merge("model", &cfg.generativeModel, fc.GenerativeModel)
	merge("embedding-model", &cfg.embeddingModel, fc.EmbeddingModel)
	merge("bucket", &cfg.bucket, fc.Bucket)
	merge("log-level", &cfg.logLevel, fc.LogLevel)

	return nil
}

// newRepository creates a new repository instance
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	if cfg.mock {
		return repository.NewMemory(), nil
	}

	if cfg.project == "" {
		return nil, goerr.New("project is required")
	}
	if cfg.database == "" {
		return nil, goerr.New("database is required")
	}

	repo, err := repository.New(ctx, cfg.project, cfg.database)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.mock {
		return adapter.NewMockGemini(), nil
	}

	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}

	gemini, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation,
		adapter.WithGenerativeModel(cfg.generativeModel),
		adapter.WithEmbeddingModel(cfg.embeddingModel),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini adapter")
	}
	return gemini, nil
}

// newStorage creates a new Storage adapter instance
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	if cfg.mock {
		return adapter.NewMemoryStorage(), nil
	}

	if cfg.bucket == "" {
		return nil, goerr.New("bucket is required")
	}

	storage, err := adapter.NewStorage(ctx, cfg.bucket)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}

// vectorStoreTag names the vector store backend for the health endpoint.
func (cfg *config) vectorStoreTag() string {
	if cfg.mock {
		return "memory"
	}
	return "firestore"
}

// modelNames returns the generative and embedding model names for display.
func (cfg *config) modelNames() (string, string) {
	if cfg.mock {
		return "mock", "mock"
	}
	return cfg.generativeModel, cfg.embeddingModel
}
