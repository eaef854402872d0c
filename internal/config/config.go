package config

import (
	"time"

	"yashubustudio/newscat/dataset"
	"yashubustudio/newscat/inference"
	"yashubustudio/newscat/internal/logger"
	"yashubustudio/newscat/textnorm"
)

// Config is the full application configuration.
type Config struct {
	Normalizer textnorm.Config       `json:"normalizer" koanf:"normalizer"`
	Resources  ResourcesConfig       `json:"resources" koanf:"resources"`
	Dataset    DatasetConfig         `json:"dataset" koanf:"dataset"`
	Model      inference.ModelConfig `json:"model" koanf:"model"`
	Server     ServerConfig          `json:"server" koanf:"server"`
	Log        LogConfig             `json:"log" koanf:"log"`
}

// ResourcesConfig points at custom word lists. Empty paths use the embedded
// English lists.
type ResourcesConfig struct {
	StopwordsPath string `json:"stopwords_path" koanf:"stopwords_path"`
	LemmasPath    string `json:"lemmas_path" koanf:"lemmas_path"`
}

type DatasetConfig struct {
	Format          string   `json:"format" koanf:"format" validate:"omitempty,oneof=ndjson csv tsv"`
	TextField       string   `json:"text_field" koanf:"text_field"`
	LabelField      string   `json:"label_field" koanf:"label_field"`
	TextCandidates  []string `json:"text_candidates" koanf:"text_candidates"`
	LabelCandidates []string `json:"label_candidates" koanf:"label_candidates"`
	OutputDir       string   `json:"output_dir" koanf:"output_dir"`
	TestFraction    float64  `json:"test_fraction" koanf:"test_fraction" validate:"gt=0,lt=1"`
	// Seed fixes the split. Zero draws a random one.
	Seed       uint64 `json:"seed" koanf:"seed"`
	LabelOrder string `json:"label_order" koanf:"label_order" validate:"oneof=sorted first_seen"`
	RawLabels  bool   `json:"raw_labels" koanf:"raw_labels"`
}

// ReadOptions converts the dataset section into reader options.
func (d DatasetConfig) ReadOptions() dataset.ReadOptions {
	return dataset.ReadOptions{
		Format:          dataset.Format(d.Format),
		TextField:       d.TextField,
		LabelField:      d.LabelField,
		TextCandidates:  d.TextCandidates,
		LabelCandidates: d.LabelCandidates,
	}
}

type ServerConfig struct {
	Addr            string        `json:"addr" koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `json:"read_timeout" koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `json:"write_timeout" koanf:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" koanf:"shutdown_timeout" validate:"gte=0"`
	// MaxBodyBytes caps /invocations payloads.
	MaxBodyBytes int64 `json:"max_body_bytes" koanf:"max_body_bytes" validate:"gt=0"`
	// MaxDocuments caps the number of documents per request. Zero is unlimited.
	MaxDocuments int `json:"max_documents" koanf:"max_documents" validate:"gte=0"`
}

type LogConfig struct {
	Level     string `json:"level" koanf:"level" validate:"oneof=debug info warn error disabled"`
	JSON      bool   `json:"json" koanf:"json"`
	AddSource bool   `json:"add_source" koanf:"add_source"`
}

// LoggerConfig converts the log section for logger.NewLogger.
func (l LogConfig) LoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = logger.ParseLevel(l.Level)
	cfg.JSON = l.JSON
	cfg.AddSource = l.AddSource
	return cfg
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() *Config {
	return &Config{
		Normalizer: textnorm.DefaultConfig(),
		Dataset: DatasetConfig{
			OutputDir:       "data",
			TestFraction:    dataset.DefaultTestFraction,
			LabelOrder:      string(dataset.LabelOrderSorted),
			TextCandidates:  dataset.DefaultTextCandidates(),
			LabelCandidates: dataset.DefaultLabelCandidates(),
		},
		Model: inference.DefaultModelConfig(),
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    6 << 20,
		},
		Log: LogConfig{Level: string(logger.InfoLevel)},
	}
}
