package inference

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Suggestion is one ranked class.
type Suggestion struct {
	Label string  `json:"label"`
	Score float32 `json:"score"`
}

// Prediction is the classifier output for one document.
type Prediction struct {
	// Text is the input after normalization, as seen by the tokenizer.
	Text   string       `json:"text"`
	Index  int          `json:"index"`
	Label  string       `json:"label"`
	Score  float32      `json:"score"`
	Scores []float32    `json:"scores"`
	Top    []Suggestion `json:"top,omitempty"`
}

// Predict classifies docs. Output order matches input order.
func (m *Model) Predict(ctx context.Context, docs []string) ([]Prediction, error) {
	if !m.Ready() {
		return nil, ErrModelClosed
	}
	if len(docs) == 0 {
		return []Prediction{}, nil
	}
	texts := docs
	if m.normalizer != nil {
		var err error
		texts, err = m.normalizer.NormalizeAll(ctx, docs)
		if err != nil {
			return nil, fmt.Errorf("predict: %w", err)
		}
	}

	scores := make([][]float32, len(texts))
	var pending []int
	for i, text := range texts {
		if vec, ok := m.cache.get(text); ok && len(vec) == m.labels.Len() {
			scores[i] = vec
			continue
		}
		pending = append(pending, i)
	}
	for start := 0; start < len(pending); start += m.cfg.BatchSize {
		end := min(start+m.cfg.BatchSize, len(pending))
		if err := m.runBatch(ctx, texts, pending[start:end], scores); err != nil {
			return nil, fmt.Errorf("predict: %w", err)
		}
	}
	if len(pending) > 0 {
		m.log.Debug("ran model", "documents", len(texts), "uncached", len(pending))
	}

	out := make([]Prediction, len(texts))
	for i, vec := range scores {
		out[i] = m.decode(texts[i], vec)
	}
	return out, nil
}

func (m *Model) runBatch(ctx context.Context, texts []string, idx []int, scores [][]float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encodings := make([]Encoding, len(idx))
	for j, i := range idx {
		en, err := m.tokenizer.Encode(texts[i])
		if err != nil {
			return fmt.Errorf("tokenize document %d: %w", i, err)
		}
		encodings[j] = en
	}
	logits, err := m.runner.Run(ctx, NewBatch(encodings, m.tokenizer.PadID()))
	if err != nil {
		return err
	}
	if len(logits) != len(idx) {
		return fmt.Errorf("model returned %d rows for %d documents", len(logits), len(idx))
	}
	for j, i := range idx {
		if len(logits[j]) != m.labels.Len() {
			return fmt.Errorf("model returned %d scores, label map has %d", len(logits[j]), m.labels.Len())
		}
		probs := Softmax(logits[j])
		m.cache.put(texts[i], probs)
		scores[i] = probs
	}
	return nil
}

func (m *Model) decode(text string, probs []float32) Prediction {
	best := ArgMax(probs)
	label, _ := m.labels.Decode(best)
	p := Prediction{
		Text:   text,
		Index:  best,
		Label:  label,
		Scores: probs,
	}
	if best >= 0 {
		p.Score = probs[best]
	}
	for _, idx := range TopK(probs, m.cfg.TopK) {
		name, _ := m.labels.Decode(idx)
		p.Top = append(p.Top, Suggestion{Label: name, Score: probs[idx]})
	}
	return p
}

// Softmax converts logits to probabilities.
func Softmax(logits []float32) []float32 {
	out := make([]float32, len(logits))
	if len(logits) == 0 {
		return out
	}
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		maxLogit = max(maxLogit, v)
	}
	var sum float64
	exps := make([]float64, len(logits))
	for i, v := range logits {
		exps[i] = math.Exp(float64(v - maxLogit))
		sum += exps[i]
	}
	for i, e := range exps {
		out[i] = float32(e / sum)
	}
	return out
}

// ArgMax returns the index of the largest score, the first one on ties, or
// -1 for an empty slice.
func ArgMax(scores []float32) int {
	best := -1
	for i, v := range scores {
		if best < 0 || v > scores[best] {
			best = i
		}
	}
	return best
}

// TopK returns the indices of the k largest scores in descending order.
func TopK(scores []float32, k int) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	if k < len(idx) {
		idx = idx[:max(k, 0)]
	}
	return idx
}
