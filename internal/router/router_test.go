package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"mintgate-api/internal/asset"
	"mintgate-api/internal/handler"
	"mintgate-api/internal/middleware"
	"mintgate-api/internal/payment"
	"mintgate-api/internal/repository"
	"mintgate-api/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-operator-key"

// newTestServer wires the full stack - real SQLite stores, real service,
// chi router - behind an httptest server, with an injectable clock.
func newTestServer(t *testing.T) (*httptest.Server, *uint64) {
	t.Helper()
	dir := t.TempDir()

	store, err := repository.NewSQLiteDropStore(filepath.Join(dir, "drop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	assets, err := asset.NewStore(filepath.Join(dir, "assets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assets.Close() })

	now := uint64(1000)
	engine, err := service.BuildEngine(context.Background(), store, func() uint64 { return now })
	require.NoError(t, err)

	sale := service.NewSaleService(engine, store, assets, payment.NewRecorder(), nil)
	require.NotNil(t, sale)

	mux := New(Config{
		Handler:        handler.New("test", store),
		CatalogHandler: handler.NewCatalogHandler(sale),
		WindowHandler:  handler.NewWindowHandler(sale),
		MintHandler:    handler.NewMintHandler(sale),
		OperatorAuth:   middleware.NewOperatorAuth(middleware.AuthConfig{APIKeys: []string{testAPIKey}}),
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &now
}

func doJSON(t *testing.T, method, url string, body interface{}, apiKey string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// decode unwraps the standard {"success": true, "data": ...} envelope.
func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func TestStatusAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/status", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/ready", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var ready handler.ReadyResponse
	decode(t, resp, &ready)
	assert.True(t, ready.Ready)
}

func TestOperatorSurfaceRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	body := map[string]interface{}{"quantities": []uint64{10}, "prices": []uint64{5}}

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/catalog/types", body, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/catalog/types", body, "wrong-key")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/catalog/types", body, testAPIKey)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestBearerTokenAcceptedAsAPIKey(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]interface{}{
		"quantities": []uint64{10}, "prices": []uint64{5},
	}))
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/catalog/types", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestDropLifecycleOverHTTP(t *testing.T) {
	srv, now := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/catalog/types",
		map[string]interface{}{"quantities": []uint64{10, 5}, "prices": []uint64{5, 20}}, testAPIKey)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/windows", map[string]interface{}{
		"id": 1, "public": true, "start_time": 2000, "per_type_limits": []uint64{5, 3},
	}, testAPIKey)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// duplicate id conflicts
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/windows", map[string]interface{}{
		"id": 1, "public": true, "start_time": 3000, "per_type_limits": []uint64{5, 3},
	}, testAPIKey)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// a past start is unprocessable
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/windows", map[string]interface{}{
		"id": 2, "public": true, "start_time": 500, "per_type_limits": []uint64{5, 3},
	}, testAPIKey)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// reads are public
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/windows", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var windows []map[string]interface{}
	decode(t, resp, &windows)
	require.Len(t, windows, 1)
	assert.Equal(t, "not_started", windows[0]["state"])

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/windows/99", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// no window open yet
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/sale/active", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var active map[string]interface{}
	decode(t, resp, &active)
	assert.Equal(t, false, active["open"])

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/mint", map[string]interface{}{
		"recipient": "alice", "quantity": 1, "type_index": 0, "payment": 5,
	}, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// open the window and mint
	*now = 2500
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/mint", map[string]interface{}{
		"recipient": "alice", "quantity": 3, "type_index": 0, "payment": 20,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var receipt map[string]interface{}
	decode(t, resp, &receipt)
	assert.Equal(t, float64(1), receipt["first_id"])
	assert.Equal(t, float64(3), receipt["last_id"])
	assert.Equal(t, float64(15), receipt["paid"])
	assert.Equal(t, float64(5), receipt["refunded"])

	// underpayment maps to 402
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/mint", map[string]interface{}{
		"recipient": "alice", "quantity": 2, "type_index": 0, "payment": 9,
	}, "")
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	// the public quota read reflects the mint
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/windows/1/minted/alice", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var minted map[string]interface{}
	decode(t, resp, &minted)
	assert.Equal(t, []interface{}{float64(3), float64(0)}, minted["minted"])
}

func TestWindowMutationOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/catalog/types",
		map[string]interface{}{"quantities": []uint64{10}, "prices": []uint64{5}}, testAPIKey)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/windows", map[string]interface{}{
		"id": 1, "public": true, "start_time": 2000, "per_type_limits": []uint64{5},
	}, testAPIKey)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/v1/windows/1", map[string]interface{}{
		"public": true, "start_time": 3000, "per_type_limits": []uint64{4},
	}, testAPIKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rec map[string]interface{}
	decode(t, resp, &rec)
	assert.Equal(t, float64(3000), rec["start_time"])

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/windows/1", nil, testAPIKey)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/windows/1", nil, testAPIKey)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestIDPropagated(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/status", nil, "")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestInvalidWindowIDParam(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, raw := range []string{"abc", "0", "-3"} {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/windows/"+raw, nil, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, fmt.Sprintf("id %q", raw))
	}
}
