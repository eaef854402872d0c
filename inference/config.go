package inference

import (
	"path/filepath"
	"strings"
)

// Default file names inside a model directory.
const (
	DefaultONNXFile      = "model.onnx"
	DefaultTokenizerFile = "tokenizer.json"
	DefaultLabelsFile    = "labels.csv"
)

// ModelConfig locates the exported classifier and tunes inference.
type ModelConfig struct {
	// ID namespaces cache keys. Defaults to the base name of Dir.
	ID  string `json:"id" koanf:"id"`
	Dir string `json:"dir" koanf:"dir"`
	// Explicit paths override the files inside Dir.
	ONNXPath          string `json:"onnx_path" koanf:"onnx_path"`
	TokenizerPath     string `json:"tokenizer_path" koanf:"tokenizer_path"`
	LabelsPath        string `json:"labels_path" koanf:"labels_path"`
	SharedLibraryPath string `json:"shared_library_path" koanf:"shared_library_path"`

	InputNames []string `json:"input_names" koanf:"input_names"`
	OutputName string   `json:"output_name" koanf:"output_name"`

	MaxSeqLen int `json:"max_seq_len" koanf:"max_seq_len" validate:"gte=0"`
	BatchSize int `json:"batch_size" koanf:"batch_size" validate:"gte=0"`
	TopK      int `json:"top_k" koanf:"top_k" validate:"gte=0"`
	// CacheSize bounds the in-memory score cache. Zero disables it.
	CacheSize int `json:"cache_size" koanf:"cache_size" validate:"gte=0"`
	// CacheDir persists score vectors across restarts when set.
	CacheDir string `json:"cache_dir" koanf:"cache_dir"`
	// Normalize runs the text normalizer on every input before tokenizing.
	Normalize bool `json:"normalize" koanf:"normalize"`
}

// DefaultModelConfig returns the settings used when nothing is configured.
func DefaultModelConfig() ModelConfig {
	cfg := ModelConfig{
		Dir:       "model",
		CacheSize: 4096,
		Normalize: true,
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults populates zero values with sensible defaults.
func (c *ModelConfig) ApplyDefaults() {
	if len(c.InputNames) == 0 {
		c.InputNames = []string{"input_ids", "attention_mask"}
	}
	if c.OutputName == "" {
		c.OutputName = "logits"
	}
	if c.MaxSeqLen <= 0 {
		c.MaxSeqLen = 64
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	if c.TopK <= 0 {
		c.TopK = 3
	}
	if c.ID == "" {
		switch {
		case c.Dir != "":
			c.ID = filepath.Base(filepath.Clean(c.Dir))
		case c.ONNXPath != "":
			c.ID = strings.TrimSuffix(filepath.Base(c.ONNXPath), filepath.Ext(c.ONNXPath))
		}
	}
}

// ResolveONNXPath returns ONNXPath or the default file in Dir.
func (c ModelConfig) ResolveONNXPath() string {
	return c.resolve(c.ONNXPath, DefaultONNXFile)
}

// ResolveTokenizerPath returns TokenizerPath or the default file in Dir.
func (c ModelConfig) ResolveTokenizerPath() string {
	return c.resolve(c.TokenizerPath, DefaultTokenizerFile)
}

// ResolveLabelsPath returns LabelsPath or the default file in Dir.
func (c ModelConfig) ResolveLabelsPath() string {
	return c.resolve(c.LabelsPath, DefaultLabelsFile)
}

func (c ModelConfig) resolve(explicit, name string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	return filepath.Join(c.Dir, name)
}
