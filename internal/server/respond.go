package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/records-ledger/internal/apperr"
	"github.com/sheikh-saqib/records-ledger/internal/codec"
	"github.com/sheikh-saqib/records-ledger/internal/models"
)

type errorBody struct {
	Error errorDetails `json:"error"`
}

type errorDetails struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps err to its status. Server-side failures are logged and
// their details kept out of the response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: errorDetails{Code: apperr.Code(err), Message: msg}})
}

// readField decodes a JSON object body and returns the object stored under
// key, keeping numbers as json.Number.
func readField(r *http.Request, key string) (models.Record, error) {
	var body map[string]json.RawMessage
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: body: %w", apperr.ErrInvalidInput, err)
	}
	raw, ok := body[key]
	if !ok {
		return nil, fmt.Errorf("%w: body: missing %q", apperr.ErrInvalidInput, key)
	}
	var rec models.Record
	if err := codec.Unmarshal(raw, &rec); err != nil || rec == nil {
		return nil, fmt.Errorf("%w: body: %q must be an object", apperr.ErrInvalidInput, key)
	}
	return rec, nil
}

// rowView flattens a row for the response, with the collection column
// rendered as a JSON array rather than text. Decimal columns are rendered as
// JSON numbers whichever store the row came from.
func rowView(row models.Row, table models.Table) map[string]any {
	out := make(map[string]any, len(row.Columns)+2)
	for k, v := range row.Columns {
		out[k] = number(v)
	}
	if records, err := codec.Decode(row.Column(table.CollectionColumn)); err == nil {
		out[table.CollectionColumn] = records
	}
	out["id"] = row.ID
	out[models.VersionColumn] = row.Version
	return out
}

// number turns a decimal into a json.Number so it encodes unquoted, the same
// as a NUMERIC read back through to_jsonb.
func number(v any) any {
	switch d := v.(type) {
	case decimal.Decimal:
		return json.Number(d.String())
	case *decimal.Decimal:
		if d == nil {
			return nil
		}
		return json.Number(d.String())
	default:
		return v
	}
}
