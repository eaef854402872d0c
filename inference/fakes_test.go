package inference

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// wordTokenizer maps each whitespace token to its length.
type wordTokenizer struct {
	fail string
}

func (w wordTokenizer) Encode(text string) (Encoding, error) {
	if w.fail != "" && strings.Contains(text, w.fail) {
		return Encoding{}, errors.New("tokenizer failure")
	}
	ids := []int64{101}
	for _, f := range strings.Fields(text) {
		ids = append(ids, int64(len(f)))
	}
	ids = append(ids, 102)
	mask := make([]int64, len(ids))
	for i := range mask {
		mask[i] = 1
	}
	return Encoding{IDs: ids, Mask: mask}, nil
}

func (wordTokenizer) PadID() int64 { return 0 }

// rowRunner returns logits favouring class (number of real tokens) % classes.
type rowRunner struct {
	mu       sync.Mutex
	classes  int
	calls    int
	batches  []int
	closed   bool
	override func(Batch) ([][]float32, error)
}

func (r *rowRunner) Run(_ context.Context, b Batch) ([][]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.batches = append(r.batches, b.Size)
	if r.override != nil {
		return r.override(b)
	}
	out := make([][]float32, b.Size)
	for row := 0; row < b.Size; row++ {
		tokens := 0
		for i := 0; i < b.SeqLen; i++ {
			tokens += int(b.Mask[row*b.SeqLen+i])
		}
		logits := make([]float32, r.classes)
		logits[(tokens-2)%r.classes] = 5
		out[row] = logits
	}
	return out, nil
}

func (r *rowRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
