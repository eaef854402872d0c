package inference

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Content types understood by DecodeRequest and EncodeResponse.
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
	ContentTypeCSV  = "text/csv"
)

var (
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrUnsupportedAccept      = errors.New("unsupported accept type")
	ErrEmptyRequest           = errors.New("request contains no documents")
	ErrInvalidRequest         = errors.New("invalid request body")
)

// DecodeRequest extracts documents from a request body.
//
// JSON bodies may be a string, an array of strings, or an object whose
// "inputs" field is either. Plain text and CSV bodies carry one document per
// non-empty line; for CSV the first column is used. An empty content type is
// treated as JSON.
func DecodeRequest(body []byte, contentType string) ([]string, error) {
	mediaType, err := parseMediaType(contentType, ContentTypeJSON)
	if err != nil {
		return nil, err
	}
	var docs []string
	switch mediaType {
	case ContentTypeJSON:
		docs, err = decodeJSONRequest(body)
	case ContentTypeText:
		docs, err = decodeLines(body)
	case ContentTypeCSV:
		docs, err = decodeCSVRequest(body)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContentType, mediaType)
	}
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrEmptyRequest
	}
	return docs, nil
}

func parseMediaType(value, fallback string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContentType, value)
	}
	return mediaType, nil
}

func decodeJSONRequest(body []byte) ([]string, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrEmptyRequest
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidRequest)
	}
	root := gjson.ParseBytes(body)
	if root.IsObject() {
		root = root.Get("inputs")
		if !root.Exists() {
			return nil, fmt.Errorf("%w: missing \"inputs\"", ErrInvalidRequest)
		}
	}
	switch {
	case root.Type == gjson.String:
		return []string{root.String()}, nil
	case root.IsArray():
		items := root.Array()
		docs := make([]string, 0, len(items))
		for i, item := range items {
			if item.Type != gjson.String {
				return nil, fmt.Errorf("%w: element %d is not a string", ErrInvalidRequest, i)
			}
			docs = append(docs, item.String())
		}
		return docs, nil
	default:
		return nil, fmt.Errorf("%w: expected a string or a list of strings", ErrInvalidRequest)
	}
}

func decodeLines(body []byte) ([]string, error) {
	var docs []string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 64*1024), 4<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		docs = append(docs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return docs, nil
}

func decodeCSVRequest(body []byte) ([]string, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	var docs []string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		if len(row) == 0 {
			continue
		}
		if doc := strings.TrimSpace(row[0]); doc != "" {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

type jsonResponse struct {
	Predictions []Prediction `json:"predictions"`
}

// EncodeResponse serializes predictions for the accept type and returns the
// content type written. JSON is used for an empty or wildcard accept.
func EncodeResponse(preds []Prediction, accept string) ([]byte, string, error) {
	mediaType := negotiate(accept)
	switch mediaType {
	case ContentTypeJSON:
		if preds == nil {
			preds = []Prediction{}
		}
		data, err := json.Marshal(jsonResponse{Predictions: preds})
		if err != nil {
			return nil, "", fmt.Errorf("encode response: %w", err)
		}
		return data, ContentTypeJSON, nil
	case ContentTypeCSV:
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		_ = w.Write([]string{"label", "index", "score"})
		for _, p := range preds {
			_ = w.Write([]string{p.Label, strconv.Itoa(p.Index), strconv.FormatFloat(float64(p.Score), 'f', 6, 32)})
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, "", fmt.Errorf("encode response: %w", err)
		}
		return buf.Bytes(), ContentTypeCSV, nil
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedAccept, accept)
	}
}

// negotiate picks the first supported media type from an Accept header.
func negotiate(accept string) string {
	accept = strings.TrimSpace(accept)
	if accept == "" {
		return ContentTypeJSON
	}
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mediaType {
		case "*/*", "application/*", ContentTypeJSON:
			return ContentTypeJSON
		case ContentTypeCSV, "text/*":
			return ContentTypeCSV
		}
	}
	return accept
}
