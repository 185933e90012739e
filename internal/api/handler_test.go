package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saydalia/m/domain"
	"saydalia/m/internal/activity"
	"saydalia/m/internal/catalog"
	"saydalia/m/internal/config"
	"saydalia/m/internal/invoicing"
	"saydalia/m/internal/kvstore"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type testServer struct {
	*httptest.Server
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := kvstore.NewTestStore(t)
	logger := activity.NewLogger(store)
	cfg := config.Config{
		Secret:        "test_secret",
		AdminUser:     "admin",
		AdminPassword: "admin",
	}
	handler := New(catalog.New(store, logger), invoicing.New(store, logger), logger, cfg)

	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)

	ts := &testServer{Server: server}
	resp := ts.do(t, http.MethodPost, "/auth/login", map[string]string{
		"username": "admin",
		"password": "admin",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var creds struct {
		Token string `json:"token"`
	}
	decodeData(t, resp, &creds)
	require.NotEmpty(t, creds.Token)
	ts.token = creds.Token
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func decodeData(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	env := decodeEnvelope(t, resp)
	require.True(t, env.Success, "expected success envelope, got error: %s", env.Error)
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func (ts *testServer) createMedicine(t *testing.T, name string, quantity int, unit, category string) domain.Medicine {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/medicines", map[string]any{
		"name":     name,
		"quantity": quantity,
		"unit":     unit,
		"category": category,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var medicine domain.Medicine
	decodeData(t, resp, &medicine)
	return medicine
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""

	resp := ts.do(t, http.MethodGet, "/medicines", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ts.token = "garbage"
	resp = ts.do(t, http.MethodGet, "/medicines", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""

	resp := ts.do(t, http.MethodPost, "/auth/login", map[string]string{
		"username": "admin",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthIsPublic(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""

	resp := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateMedicineMissingFields(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/medicines", map[string]any{"name": "X"})
	env := decodeEnvelope(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)
}

func TestUpdateMedicineNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPut, "/medicines/medicine:nope", map[string]any{"quantity": 3})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteMedicine(t *testing.T) {
	ts := newTestServer(t)

	medicine := ts.createMedicine(t, "X", 5, "علبة", "")

	resp := ts.do(t, http.MethodDelete, "/medicines/"+medicine.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var medicines []domain.Medicine
	resp = ts.do(t, http.MethodGet, "/medicines", nil)
	decodeData(t, resp, &medicines)
	assert.Empty(t, medicines)

	resp = ts.do(t, http.MethodDelete, "/medicines/"+medicine.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSaleInvoiceInsufficientStock(t *testing.T) {
	ts := newTestServer(t)

	medicine := ts.createMedicine(t, "X", 2, "علبة", "")

	resp := ts.do(t, http.MethodPost, "/sale-invoice", map[string]any{
		"items": []map[string]any{{
			"medicineId":   medicine.ID,
			"medicineName": medicine.Name,
			"quantity":     5,
			"unit":         medicine.Unit,
			"unitPrice":    10,
		}},
		"total":        50,
		"customerName": "عميل",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPurchaseInvoiceEmptyItems(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/purchase-invoice", map[string]any{
		"items":        []map[string]any{},
		"total":        0,
		"supplierName": "مورد",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInitDataIdempotent(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 2; i++ {
		resp := ts.do(t, http.MethodGet, "/init-data", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	var medicines []domain.Medicine
	resp := ts.do(t, http.MethodGet, "/medicines", nil)
	decodeData(t, resp, &medicines)
	assert.Len(t, medicines, 9)

	var activities []domain.Activity
	resp = ts.do(t, http.MethodGet, "/activities", nil)
	decodeData(t, resp, &activities)

	initCount := 0
	for _, a := range activities {
		if a.Type == domain.ActivitySystemInit {
			initCount++
		}
	}
	assert.Equal(t, 1, initCount)
}

// Full flow: create at quantity 5, restock to 12, sell 3.
func TestInventoryFlow(t *testing.T) {
	ts := newTestServer(t)

	medicine := ts.createMedicine(t, "X", 5, "box", domain.CategoryMedicine)
	assert.True(t, medicine.LowStock)

	var updated domain.Medicine
	resp := ts.do(t, http.MethodPut, "/medicines/"+medicine.ID, map[string]any{"quantity": 12})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, resp, &updated)
	assert.Equal(t, 12, updated.Quantity)
	assert.False(t, updated.LowStock)

	var invoice domain.Invoice
	resp = ts.do(t, http.MethodPost, "/sale-invoice", map[string]any{
		"items": []map[string]any{{
			"medicineId":   medicine.ID,
			"medicineName": medicine.Name,
			"quantity":     3,
			"unit":         medicine.Unit,
			"unitPrice":    10,
		}},
		"total":        30,
		"customerName": "عميل",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, resp, &invoice)
	assert.True(t, invoice.Total.Equal(decimal.NewFromInt(30)), "total stored as submitted")

	var medicines []domain.Medicine
	resp = ts.do(t, http.MethodGet, "/medicines", nil)
	decodeData(t, resp, &medicines)
	require.Len(t, medicines, 1)
	assert.Equal(t, 9, medicines[0].Quantity)
	assert.True(t, medicines[0].LowStock)

	var invoices invoicing.List
	resp = ts.do(t, http.MethodGet, "/invoices", nil)
	decodeData(t, resp, &invoices)
	assert.Len(t, invoices.Sales, 1)
	assert.Len(t, invoices.All, 1)

	var activities []domain.Activity
	resp = ts.do(t, http.MethodGet, "/activities", nil)
	decodeData(t, resp, &activities)

	counts := map[string]int{}
	for _, a := range activities {
		counts[a.Type]++
		assert.Equal(t, "admin", a.UserID, "activities attributed to the authenticated user")
	}
	assert.Equal(t, 1, counts[domain.ActivityMedicineAdded])
	assert.Equal(t, 1, counts[domain.ActivityQuantityUpdated])
	assert.Equal(t, 1, counts[domain.ActivitySaleInvoice])

	for _, a := range activities {
		if a.Type == domain.ActivityQuantityUpdated {
			assert.Equal(t, float64(7), a.Details["difference"])
		}
	}
}
