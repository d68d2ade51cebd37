// Package codec converts an embedded collection between its column
// representation (a JSON array of objects) and an ordered list of records.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sheikh-saqib/records-ledger/internal/apperr"
	"github.com/sheikh-saqib/records-ledger/internal/models"
)

// Encode serializes records as a JSON array. A nil list encodes as "[]".
func Encode(records []models.Record) (string, error) {
	if records == nil {
		records = []models.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return "", fmt.Errorf("encode collection: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Decode parses a collection column. nil, blank text and JSON null decode to
// an empty list; anything that is not a JSON array of objects is
// apperr.ErrCorruptData. Numbers are kept as json.Number.
func Decode(raw any) ([]models.Record, error) {
	switch v := raw.(type) {
	case nil:
		return []models.Record{}, nil
	case string:
		return decodeText([]byte(v))
	case []byte:
		return decodeText(v)
	case []any:
		return fromArray(v)
	case []models.Record:
		out := make([]models.Record, len(v))
		for i, r := range v {
			out[i] = r.Clone()
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unexpected column type %T", apperr.ErrCorruptData, raw)
	}
}

// Unmarshal decodes one JSON document keeping numbers as json.Number. It
// rejects trailing data after the document.
func Unmarshal(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON document")
	}
	return nil
}

func decodeText(data []byte) ([]models.Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []models.Record{}, nil
	}
	var v any
	if err := Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrCorruptData, err)
	}
	switch t := v.(type) {
	case nil:
		return []models.Record{}, nil
	case []any:
		return fromArray(t)
	default:
		return nil, fmt.Errorf("%w: collection is a JSON %T, not an array", apperr.ErrCorruptData, v)
	}
}

func fromArray(items []any) ([]models.Record, error) {
	out := make([]models.Record, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %T, not an object", apperr.ErrCorruptData, i, item)
		}
		out = append(out, models.Record(obj).Clone())
	}
	return out, nil
}
