package inference

import (
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Encoding is the token view of one document.
type Encoding struct {
	IDs  []int64
	Mask []int64
}

// Tokenizer turns text into model input ids.
type Tokenizer interface {
	Encode(text string) (Encoding, error)
	// PadID is the id used to right-pad a batch.
	PadID() int64
}

// HFTokenizer wraps a HuggingFace tokenizer.json loaded with sugarme/tokenizer.
type HFTokenizer struct {
	tk     *tokenizer.Tokenizer
	maxLen int
	padID  int64
}

var padTokens = []string{"[PAD]", "<pad>"}

// LoadTokenizer reads a tokenizer.json. Encodings longer than maxLen are cut,
// keeping the final special token.
func LoadTokenizer(path string, maxLen int) (*HFTokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	h := &HFTokenizer{tk: tk, maxLen: maxLen}
	for _, tok := range padTokens {
		if id, ok := tk.TokenToId(tok); ok {
			h.padID = int64(id)
			break
		}
	}
	return h, nil
}

func (h *HFTokenizer) Encode(text string) (Encoding, error) {
	en, err := h.tk.EncodeSingle(text, true)
	if err != nil {
		return Encoding{}, fmt.Errorf("encode: %w", err)
	}
	ids := toInt64(en.Ids)
	mask := toInt64(en.AttentionMask)
	if len(mask) != len(ids) {
		mask = make([]int64, len(ids))
		for i := range mask {
			mask[i] = 1
		}
	}
	return truncateEncoding(Encoding{IDs: ids, Mask: mask}, h.maxLen), nil
}

func (h *HFTokenizer) PadID() int64 { return h.padID }

func truncateEncoding(en Encoding, maxLen int) Encoding {
	if maxLen <= 0 || len(en.IDs) <= maxLen {
		return en
	}
	if maxLen == 1 {
		return Encoding{IDs: en.IDs[:1], Mask: en.Mask[:1]}
	}
	last := len(en.IDs) - 1
	ids := append(en.IDs[:maxLen-1:maxLen-1], en.IDs[last])
	mask := append(en.Mask[:maxLen-1:maxLen-1], en.Mask[last])
	return Encoding{IDs: ids, Mask: mask}
}

func toInt64(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

// Batch is a right-padded, row-major block of encodings.
type Batch struct {
	Size   int
	SeqLen int
	IDs    []int64
	Mask   []int64
}

// NewBatch pads encodings to the longest one.
func NewBatch(encodings []Encoding, padID int64) Batch {
	seqLen := 0
	for _, en := range encodings {
		seqLen = max(seqLen, len(en.IDs))
	}
	b := Batch{
		Size:   len(encodings),
		SeqLen: seqLen,
		IDs:    make([]int64, len(encodings)*seqLen),
		Mask:   make([]int64, len(encodings)*seqLen),
	}
	for row, en := range encodings {
		off := row * seqLen
		for i := 0; i < seqLen; i++ {
			if i < len(en.IDs) {
				b.IDs[off+i] = en.IDs[i]
				b.Mask[off+i] = en.Mask[i]
				continue
			}
			b.IDs[off+i] = padID
		}
	}
	return b
}
