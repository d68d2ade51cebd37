package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/records-ledger/internal/collection"
	"github.com/sheikh-saqib/records-ledger/internal/ledger"
	"github.com/sheikh-saqib/records-ledger/internal/models"
	"github.com/sheikh-saqib/records-ledger/internal/storage/memory"
)

type fixture struct {
	srv        *httptest.Server
	reportID   int64
	supplierID int64
	corruptID  int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	reportStore := memory.NewMemoryRowStore(models.Reports)
	report := reportStore.Insert(map[string]any{"fabrica": "Norte", "contratos": "[]"})
	corrupt := reportStore.Insert(map[string]any{"contratos": "[{broken"})

	supplierStore := memory.NewMemoryRowStore(models.Suppliers)
	supplier := supplierStore.Insert(map[string]any{"proveedor": "ACME", "saldo": json.Number("1000.00"), "comprobantes": "[]"})

	reconciler, err := ledger.NewReconciler(collection.NewManager(supplierStore))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(collection.NewManager(reportStore), reconciler, logger)
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)

	return fixture{srv: srv, reportID: report.ID, supplierID: supplier.ID, corruptID: corrupt.ID}
}

func (f fixture) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(data) > 0 && data[0] == '{' {
		require.NoError(t, json.Unmarshal(data, &out))
	} else {
		out = map[string]any{"raw": string(data)}
	}
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	status, body := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestContracts_Lifecycle(t *testing.T) {
	f := newFixture(t)
	base := fmt.Sprintf("/api/informes/%d/contratos", f.reportID)

	status, body := f.do(t, http.MethodPost, base, `{"nuevoDato": {"numero": 17, "cliente": {"nombre": "ACME"}}}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Norte", body["fabrica"])
	contratos := body["contratos"].([]any)
	require.Len(t, contratos, 1)
	added := contratos[0].(map[string]any)
	subID := added["id"].(string)
	assert.NotEmpty(t, subID)
	assert.NotEmpty(t, added["createdAt"])

	status, body = f.do(t, http.MethodPut, base+"/"+subID, `{"datosActualizados": {"estado": "cerrado"}}`)
	require.Equal(t, http.StatusOK, status, body)

	status, body = f.do(t, http.MethodGet, base+"/"+subID, "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "cerrado", body["estado"])
	assert.EqualValues(t, 17, body["numero"])
	assert.Equal(t, subID, body["id"])

	status, body = f.do(t, http.MethodDelete, base+"/"+subID, "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Empty(t, body["contratos"])

	status, body = f.do(t, http.MethodGet, base+"/"+subID, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])
}

func TestContracts_Errors(t *testing.T) {
	f := newFixture(t)

	status, _ := f.do(t, http.MethodGet, "/api/informes/abc/contratos", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.do(t, http.MethodPost, "/api/informes/999/contratos", `{"nuevoDato": {}}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodPost, fmt.Sprintf("/api/informes/%d/contratos", f.reportID), `{"otro": {}}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.do(t, http.MethodPost, fmt.Sprintf("/api/informes/%d/contratos", f.reportID), `{"nuevoDato": [1]}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.do(t, http.MethodPut, fmt.Sprintf("/api/informes/%d/contratos/missing", f.reportID), `{"datosActualizados": {"a": 1}}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, body := f.do(t, http.MethodGet, fmt.Sprintf("/api/informes/%d/contratos/x", f.corruptID), "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "CORRUPT_DATA", body["error"].(map[string]any)["code"])
}

func TestVouchers_Scenario(t *testing.T) {
	f := newFixture(t)
	base := fmt.Sprintf("/api/proveedores/%d/comprobantes", f.supplierID)

	status, body := f.do(t, http.MethodPost, base, `{"comprobante": {"total": 150.50, "numero": "A-1"}}`)
	require.Equal(t, http.StatusCreated, status, body)
	supplier := body["proveedorActualizado"].(map[string]any)
	assert.Equal(t, 849.5, supplier["saldo"])
	first := supplier["comprobantes"].([]any)[0].(map[string]any)["id"].(string)

	status, body = f.do(t, http.MethodPost, base, `{"comprobante": {"total": "49.50"}}`)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, 800.0, body["proveedorActualizado"].(map[string]any)["saldo"])

	status, body = f.do(t, http.MethodDelete, base+"/"+first, "")
	require.Equal(t, http.StatusOK, status, body)
	supplier = body["proveedorActualizado"].(map[string]any)
	assert.Equal(t, 950.5, supplier["saldo"])
	assert.Len(t, supplier["comprobantes"], 1)

	status, _ = f.do(t, http.MethodPost, base, `{"comprobante": {"total": "mucho"}}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.do(t, http.MethodDelete, base+"/"+first, "")
	assert.Equal(t, http.StatusNotFound, status)
}
