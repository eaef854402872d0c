package inference

import (
	"errors"
	"fmt"
	"sync/atomic"

	"yashubustudio/newscat/dataset"
	"yashubustudio/newscat/internal/logger"
	"yashubustudio/newscat/textnorm"
)

// Model is a loaded classifier: label map, tokenizer, runner and the
// normalizer that was used when the training data was prepared.
type Model struct {
	cfg        ModelConfig
	labels     *dataset.LabelMap
	tokenizer  Tokenizer
	runner     Runner
	normalizer *textnorm.Normalizer
	cache      *scoreCache
	log        logger.Logger
	closed     atomic.Bool
}

// Option customizes LoadModel.
type Option func(*loadOptions)

type loadOptions struct {
	tokenizer  Tokenizer
	runner     Runner
	labels     *dataset.LabelMap
	normalizer *textnorm.Normalizer
	log        logger.Logger
}

// WithTokenizer skips loading tokenizer.json.
func WithTokenizer(t Tokenizer) Option {
	return func(o *loadOptions) { o.tokenizer = t }
}

// WithRunner skips opening the ONNX session.
func WithRunner(r Runner) Option {
	return func(o *loadOptions) { o.runner = r }
}

// WithLabels skips reading the label map file.
func WithLabels(m *dataset.LabelMap) Option {
	return func(o *loadOptions) { o.labels = m }
}

// WithNormalizer sets the normalizer applied when ModelConfig.Normalize is on.
// Without it the default configuration and resources are used.
func WithNormalizer(n *textnorm.Normalizer) Option {
	return func(o *loadOptions) { o.normalizer = n }
}

func WithLogger(l logger.Logger) Option {
	return func(o *loadOptions) { o.log = l }
}

// LoadModel prepares a model for prediction.
func LoadModel(cfg ModelConfig, opts ...Option) (*Model, error) {
	cfg.ApplyDefaults()
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	log := logger.OrNop(o.log).With("component", "inference", "model", cfg.ID)

	labels := o.labels
	if labels == nil {
		var err error
		labels, err = dataset.ReadLabelMap(cfg.ResolveLabelsPath())
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
	}

	tok := o.tokenizer
	if tok == nil {
		hf, err := LoadTokenizer(cfg.ResolveTokenizerPath(), cfg.MaxSeqLen)
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
		tok = hf
	}

	runner := o.runner
	if runner == nil {
		r, err := NewORTRunner(cfg.ResolveONNXPath(), cfg.SharedLibraryPath, cfg.InputNames, cfg.OutputName, labels.Len())
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
		runner = r
	}

	cache, err := newScoreCache(cfg.ID, cfg.CacheSize, cfg.CacheDir)
	if err != nil {
		_ = runner.Close()
		return nil, fmt.Errorf("load model: %w", err)
	}

	var normalizer *textnorm.Normalizer
	if cfg.Normalize {
		normalizer = o.normalizer
		if normalizer == nil {
			normalizer = textnorm.New(textnorm.DefaultConfig(), nil)
		}
	}
	log.Info("model loaded", "labels", labels.Len(), "max_seq_len", cfg.MaxSeqLen, "normalize", cfg.Normalize)
	return &Model{
		cfg:        cfg,
		labels:     labels,
		tokenizer:  tok,
		runner:     runner,
		normalizer: normalizer,
		cache:      cache,
		log:        log,
	}, nil
}

// ID returns the identifier used for cache keys.
func (m *Model) ID() string { return m.cfg.ID }

func (m *Model) Labels() *dataset.LabelMap { return m.labels }

// Ready reports whether the model can serve predictions.
func (m *Model) Ready() bool { return m != nil && !m.closed.Load() }

// CacheStats returns score cache hit and miss counts.
func (m *Model) CacheStats() CacheStats { return m.cache.stats() }

// ErrModelClosed is returned by Predict after Close.
var ErrModelClosed = errors.New("model is closed")

// Close releases the runner. It is safe to call more than once.
func (m *Model) Close() error {
	if m == nil || !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := m.runner.Close(); err != nil {
		return fmt.Errorf("close model: %w", err)
	}
	return nil
}
