package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Record is one row of the fixed (sentence, label) schema.
type Record struct {
	Sentence string
	Label    string
}

// Format selects the input decoder.
type Format string

const (
	FormatAuto   Format = ""
	FormatNDJSON Format = "ndjson"
	FormatCSV    Format = "csv"
	FormatTSV    Format = "tsv"
)

// ReadOptions controls where text and label values are taken from.
//
// For NDJSON input TextField and LabelField are gjson paths. For CSV/TSV
// input they are header names or 1-based "#n" column references. Empty
// fields are detected from the candidate lists.
type ReadOptions struct {
	Format          Format
	TextField       string
	LabelField      string
	TextCandidates  []string
	LabelCandidates []string
}

// ReadStats counts the input rows seen and the rows rejected.
type ReadStats struct {
	Total   int
	Skipped int
}

const maxLineSize = 4 << 20

var (
	// ErrNoTextColumn is returned when a delimited file has no usable text column.
	ErrNoTextColumn = errors.New("no text column found")
	// ErrNoLabelColumn is returned when a delimited file has no usable label column.
	ErrNoLabelColumn = errors.New("no label column found")
)

// DefaultTextCandidates lists the field names probed for document text.
func DefaultTextCandidates() []string {
	return []string{"headline", "sentence", "text", "title", "content", "body"}
}

// DefaultLabelCandidates lists the field names probed for the class label.
func DefaultLabelCandidates() []string {
	return []string{"category", "label", "class", "topic"}
}

func (o ReadOptions) withDefaults() ReadOptions {
	if len(o.TextCandidates) == 0 {
		o.TextCandidates = DefaultTextCandidates()
	}
	if len(o.LabelCandidates) == 0 {
		o.LabelCandidates = DefaultLabelCandidates()
	}
	o.TextField = strings.TrimSpace(o.TextField)
	o.LabelField = strings.TrimSpace(o.LabelField)
	return o
}

// DetectFormat maps a file extension to an input format. Unknown extensions
// are treated as NDJSON.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".tsv":
		return FormatTSV
	default:
		return FormatNDJSON
	}
}

// ReadRecords reads labelled documents from path. Malformed rows and rows
// missing text or label are skipped and counted.
func ReadRecords(path string, opts ReadOptions) ([]Record, ReadStats, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, ReadStats{}, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	if opts.Format == FormatAuto {
		opts.Format = DetectFormat(path)
	}
	records, stats, err := DecodeRecords(f, opts)
	if err != nil {
		return nil, stats, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return records, stats, nil
}

// DecodeRecords reads labelled documents from r. FormatAuto is treated as
// NDJSON.
func DecodeRecords(r io.Reader, opts ReadOptions) ([]Record, ReadStats, error) {
	opts = opts.withDefaults()
	switch opts.Format {
	case FormatCSV:
		return decodeDelimited(r, ',', opts)
	case FormatTSV:
		return decodeDelimited(r, '\t', opts)
	case FormatAuto, FormatNDJSON:
		return decodeJSON(r, opts)
	default:
		return nil, ReadStats{}, fmt.Errorf("unsupported input format %q", opts.Format)
	}
}

func decodeJSON(r io.Reader, opts ReadOptions) ([]Record, ReadStats, error) {
	br := bufio.NewReader(r)
	head, err := peekNonSpace(br)
	if err != nil {
		return nil, ReadStats{}, err
	}
	if head == '[' {
		return decodeJSONArray(br, opts)
	}

	var (
		records []Record
		stats   ReadStats
	)
	for {
		line, tooLong, err := readRecordLine(br, maxLineSize)
		if tooLong {
			stats.Total++
			stats.Skipped++
		} else if line = bytes.TrimSpace(line); len(line) > 0 {
			stats.Total++
			rec, ok := recordFromJSONLine(line, opts)
			if ok {
				records = append(records, rec)
			} else {
				stats.Skipped++
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read records: %w", err)
		}
	}
	return records, stats, nil
}

func recordFromJSONLine(line []byte, opts ReadOptions) (Record, bool) {
	if !gjson.ValidBytes(line) {
		return Record{}, false
	}
	return recordFromJSON(gjson.ParseBytes(line), opts)
}

// readRecordLine returns the next line including its terminator. A line longer
// than limit is consumed in full and reported as tooLong with no data.
func readRecordLine(br *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, rerr := br.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(rerr, bufio.ErrBufferFull) {
			continue
		}
		return line, tooLong, rerr
	}
}

func decodeJSONArray(r io.Reader, opts ReadOptions) ([]Record, ReadStats, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ReadStats{}, fmt.Errorf("read records: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, ReadStats{}, errors.New("invalid JSON array")
	}
	var (
		records []Record
		stats   ReadStats
	)
	gjson.ParseBytes(data).ForEach(func(_, value gjson.Result) bool {
		stats.Total++
		rec, ok := recordFromJSON(value, opts)
		if !ok {
			stats.Skipped++
			return true
		}
		records = append(records, rec)
		return true
	})
	return records, stats, nil
}

func recordFromJSON(obj gjson.Result, opts ReadOptions) (Record, bool) {
	if !obj.IsObject() {
		return Record{}, false
	}
	text, ok := scalarField(obj, opts.TextField, opts.TextCandidates)
	if !ok {
		return Record{}, false
	}
	label, ok := scalarField(obj, opts.LabelField, opts.LabelCandidates)
	if !ok {
		return Record{}, false
	}
	return Record{Sentence: text, Label: label}, true
}

// scalarField resolves path, or the first candidate present in obj, to a
// non-empty scalar value.
func scalarField(obj gjson.Result, path string, candidates []string) (string, bool) {
	if path != "" {
		return scalarValue(obj.Get(path))
	}
	for _, cand := range candidates {
		res := obj.Get(cand)
		if !res.Exists() {
			continue
		}
		return scalarValue(res)
	}
	return "", false
}

func scalarValue(res gjson.Result) (string, bool) {
	if !res.Exists() || res.IsObject() || res.IsArray() || res.Type == gjson.Null {
		return "", false
	}
	v := cleanCell(res.String())
	return v, v != ""
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, nil
			}
			return 0, fmt.Errorf("read records: %w", err)
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			_, _ = br.Discard(1)
			continue
		case 0xEF:
			bom, err := br.Peek(3)
			if err == nil && string(bom) == "\ufeff" {
				_, _ = br.Discard(3)
				continue
			}
		}
		return b[0], nil
	}
}

func decodeDelimited(r io.Reader, comma rune, opts ReadOptions) ([]Record, ReadStats, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	row, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ReadStats{}, nil
		}
		return nil, ReadStats{}, fmt.Errorf("read header: %w", err)
	}
	header := make([]string, len(row))
	for i, cell := range row {
		header[i] = cleanCell(cell)
	}
	cols, hasHeader, err := resolveColumns(header, opts)
	if err != nil {
		return nil, ReadStats{}, err
	}

	var (
		records []Record
		stats   ReadStats
	)
	consume := func(row []string) {
		stats.Total++
		text := cellAt(row, cols.text)
		label := cellAt(row, cols.label)
		if text == "" || label == "" {
			stats.Skipped++
			return
		}
		records = append(records, Record{Sentence: text, Label: label})
	}
	if !hasHeader {
		consume(row)
	}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				stats.Total++
				stats.Skipped++
				continue
			}
			return nil, stats, fmt.Errorf("read row: %w", err)
		}
		consume(row)
	}
	return records, stats, nil
}

type columns struct {
	text  int
	label int
}

// resolveColumns picks the text and label columns. When neither is found in
// the header the first row is data, with text in #1 and label in #2.
func resolveColumns(header []string, opts ReadOptions) (columns, bool, error) {
	text, textFromHeader, err := pickColumn(header, opts.TextField, opts.TextCandidates)
	if err != nil {
		return columns{}, false, err
	}
	label, labelFromHeader, err := pickColumn(header, opts.LabelField, opts.LabelCandidates)
	if err != nil {
		return columns{}, false, err
	}
	hasHeader := textFromHeader || labelFromHeader
	if !hasHeader && len(header) >= 2 {
		if text < 0 {
			text = 0
		}
		if label < 0 {
			label = 1
		}
	}
	if text < 0 {
		return columns{}, false, ErrNoTextColumn
	}
	if label < 0 {
		return columns{}, false, ErrNoLabelColumn
	}
	return columns{text: text, label: label}, hasHeader, nil
}

func pickColumn(header []string, explicit string, candidates []string) (int, bool, error) {
	if explicit != "" {
		return matchExplicitColumn(header, explicit)
	}
	if idx := findColumn(header, candidates); idx >= 0 {
		return idx, true, nil
	}
	return -1, false, nil
}

func matchExplicitColumn(header []string, explicit string) (int, bool, error) {
	for i, col := range header {
		if strings.EqualFold(col, explicit) {
			return i, true, nil
		}
	}
	if !strings.HasPrefix(explicit, "#") {
		return -1, false, fmt.Errorf("column %q not found", explicit)
	}
	idx, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(explicit, "#")))
	if err != nil {
		return -1, false, fmt.Errorf("invalid column index %q", explicit)
	}
	if idx <= 0 {
		return -1, false, fmt.Errorf("column indices are 1-based: %q", explicit)
	}
	if idx > len(header) {
		return -1, false, fmt.Errorf("column index %s is out of range", explicit)
	}
	return idx - 1, false, nil
}

func findColumn(header []string, candidates []string) int {
	for _, cand := range candidates {
		for i, col := range header {
			if strings.EqualFold(col, cand) {
				return i
			}
		}
	}
	return -1
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return cleanCell(row[idx])
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")
	return v
}
