package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
)

// LabelOrder selects how label indices are assigned.
type LabelOrder string

const (
	// LabelOrderSorted assigns indices in lexicographic label order.
	LabelOrderSorted LabelOrder = "sorted"
	// LabelOrderFirstSeen assigns indices in order of first appearance.
	LabelOrderFirstSeen LabelOrder = "first_seen"
)

const (
	labelMapIndexColumn = "label_enc"
	labelMapLabelColumn = "label"
)

// ErrNoLabels is returned when a label map would be empty.
var ErrNoLabels = errors.New("no labels")

// LabelMap is a bijection between class labels and dense indices 0..Len()-1.
// It is read-only after construction.
type LabelMap struct {
	labels []string
	index  map[string]int
}

// FitLabels builds a LabelMap over the distinct values of labels.
func FitLabels(labels []string, order LabelOrder) (*LabelMap, error) {
	seen := make(map[string]struct{}, len(labels))
	distinct := make([]string, 0)
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		distinct = append(distinct, l)
	}
	switch order {
	case LabelOrderSorted, "":
		slices.Sort(distinct)
	case LabelOrderFirstSeen:
	default:
		return nil, fmt.Errorf("unknown label order %q", order)
	}
	return NewLabelMap(distinct)
}

// NewLabelMap assigns index i to labels[i]. Labels must be distinct and
// non-empty.
func NewLabelMap(labels []string) (*LabelMap, error) {
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}
	m := &LabelMap{
		labels: slices.Clone(labels),
		index:  make(map[string]int, len(labels)),
	}
	for i, l := range labels {
		if l == "" {
			return nil, fmt.Errorf("empty label at index %d", i)
		}
		if prev, dup := m.index[l]; dup {
			return nil, fmt.Errorf("duplicate label %q at indices %d and %d", l, prev, i)
		}
		m.index[l] = i
	}
	return m, nil
}

// Encode returns the index of label.
func (m *LabelMap) Encode(label string) (int, bool) {
	idx, ok := m.index[label]
	return idx, ok
}

// Decode returns the label at idx.
func (m *LabelMap) Decode(idx int) (string, bool) {
	if idx < 0 || idx >= len(m.labels) {
		return "", false
	}
	return m.labels[idx], true
}

func (m *LabelMap) Len() int { return len(m.labels) }

// Labels returns the labels ordered by index.
func (m *LabelMap) Labels() []string { return slices.Clone(m.labels) }

// WriteLabelMap persists m as a label_enc,label CSV sorted by index.
func WriteLabelMap(path string, m *LabelMap) error {
	if m == nil {
		return errors.New("write label map: nil map")
	}
	err := writeFileAtomic(path, func(w io.Writer) error {
		return EncodeLabelMap(w, m)
	})
	if err != nil {
		return fmt.Errorf("write label map: %w", err)
	}
	return nil
}

// EncodeLabelMap writes m in the label map CSV layout.
func EncodeLabelMap(w io.Writer, m *LabelMap) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{labelMapIndexColumn, labelMapLabelColumn}); err != nil {
		return err
	}
	for i, l := range m.labels {
		if err := cw.Write([]string{strconv.Itoa(i), l}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadLabelMap loads a label map written by WriteLabelMap.
func ReadLabelMap(path string) (*LabelMap, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read label map: %w", err)
	}
	defer f.Close()
	m, err := DecodeLabelMap(f)
	if err != nil {
		return nil, fmt.Errorf("read label map: %w", err)
	}
	return m, nil
}

// DecodeLabelMap parses the label map CSV layout. Rows may appear in any
// order but indices must cover 0..n-1 exactly once.
func DecodeLabelMap(r io.Reader) (*LabelMap, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoLabels
	}
	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = cleanCell(cell)
	}
	idxCol := findColumn(header, []string{labelMapIndexColumn})
	labelCol := findColumn(header, []string{labelMapLabelColumn})
	if idxCol < 0 || labelCol < 0 {
		return nil, fmt.Errorf("missing %s,%s header", labelMapIndexColumn, labelMapLabelColumn)
	}

	body := rows[1:]
	labels := make([]string, len(body))
	filled := make([]bool, len(body))
	for line, row := range body {
		raw := cellAt(row, idxCol)
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid index %q", line+2, raw)
		}
		if idx < 0 || idx >= len(body) {
			return nil, fmt.Errorf("row %d: index %d out of range", line+2, idx)
		}
		if filled[idx] {
			return nil, fmt.Errorf("row %d: duplicate index %d", line+2, idx)
		}
		filled[idx] = true
		labels[idx] = cellAt(row, labelCol)
	}
	return NewLabelMap(labels)
}
