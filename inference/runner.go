package inference

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Runner executes the classifier on a padded batch and returns one logit row
// per document.
type Runner interface {
	Run(ctx context.Context, batch Batch) ([][]float32, error)
	Close() error
}

var ortEnvMu sync.Mutex

// initORT loads the shared library once per process.
func initORT(libPath string) error {
	ortEnvMu.Lock()
	defer ortEnvMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// ORTRunner runs an ONNX sequence-classification export through onnxruntime.
// Calls to Run are serialized; the session is reused across batches.
type ORTRunner struct {
	mu         sync.Mutex
	session    *ort.DynamicAdvancedSession
	inputNames []string
	numLabels  int
}

// NewORTRunner opens the model at path. The model must take int64 ids and
// attention mask inputs shaped [batch, seq] and emit float32 logits shaped
// [batch, numLabels].
func NewORTRunner(path, libPath string, inputNames []string, outputName string, numLabels int) (*ORTRunner, error) {
	if numLabels <= 0 {
		return nil, errors.New("open onnx session: label count must be positive")
	}
	if len(inputNames) == 0 || len(inputNames) > 3 {
		return nil, fmt.Errorf("open onnx session: expected 1 to 3 inputs, got %d", len(inputNames))
	}
	if err := initORT(libPath); err != nil {
		return nil, err
	}
	session, err := ort.NewDynamicAdvancedSession(path, inputNames, []string{outputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("open onnx session: %w", err)
	}
	return &ORTRunner{session: session, inputNames: inputNames, numLabels: numLabels}, nil
}

func (r *ORTRunner) Run(ctx context.Context, batch Batch) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if batch.Size == 0 {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil, errors.New("run model: session closed")
	}

	shape := ort.NewShape(int64(batch.Size), int64(batch.SeqLen))
	inputs := make([]ort.Value, 0, len(r.inputNames))
	defer func() {
		for _, v := range inputs {
			_ = v.Destroy()
		}
	}()
	// Inputs beyond ids and mask are token type ids, all zero for single sentences.
	feeds := [][]int64{batch.IDs, batch.Mask, make([]int64, len(batch.IDs))}
	for i := range r.inputNames {
		t, err := ort.NewTensor(shape, feeds[i])
		if err != nil {
			return nil, fmt.Errorf("create input tensor: %w", err)
		}
		inputs = append(inputs, t)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(batch.Size), int64(r.numLabels)))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer output.Destroy()

	if err := r.session.Run(inputs, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("run model: %w", err)
	}
	data := output.GetData()
	rows := make([][]float32, batch.Size)
	for i := range rows {
		row := make([]float32, r.numLabels)
		copy(row, data[i*r.numLabels:(i+1)*r.numLabels])
		rows[i] = row
	}
	return rows, nil
}

// Close releases the session. The process-wide environment stays loaded.
func (r *ORTRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil
	}
	err := r.session.Destroy()
	r.session = nil
	return err
}
