package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// RecordHeader is the header row of every written dataset partition.
var RecordHeader = []string{"sentence", "label"}

// WriteRecords writes records as a sentence,label CSV. With a non-nil label
// map the label column holds the encoded index.
func WriteRecords(path string, records []Record, labels *LabelMap) error {
	err := writeFileAtomic(path, func(w io.Writer) error {
		return EncodeRecords(w, records, labels)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// EncodeRecords writes the CSV form of records to w.
func EncodeRecords(w io.Writer, records []Record, labels *LabelMap) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RecordHeader); err != nil {
		return err
	}
	row := make([]string, 2)
	for _, rec := range records {
		row[0] = rec.Sentence
		row[1] = rec.Label
		if labels != nil {
			idx, ok := labels.Encode(rec.Label)
			if !ok {
				return fmt.Errorf("unknown label %q", rec.Label)
			}
			row[1] = strconv.Itoa(idx)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeFileAtomic writes to a sibling temp file and renames it over path.
func writeFileAtomic(path string, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := fill(bw); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("flush temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
