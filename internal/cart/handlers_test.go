package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/common"
)

func newTestServer(t *testing.T) (*httptest.Server, *Service, string) {
	t.Helper()
	svc, productID := newTestService(t)
	r := chi.NewRouter()
	r.Route("/api/v1", func(v chi.Router) {
		NewHandler(svc).Routes(v)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, svc, productID.String()
}

func doJSON(t *testing.T, method, url string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var body *bytes.Buffer = bytes.NewBuffer(nil)
	if payload != nil {
		require.NoError(t, json.NewEncoder(body).Encode(payload))
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func createCart(t *testing.T, srv *httptest.Server) string {
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/carts", map[string]any{"email": "buyer@example.com"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]any)
	return data["cartId"].(string)
}

func TestHandlerCartLifecycle(t *testing.T) {
	srv, _, productID := newTestServer(t)
	cartID := createCart(t, srv)
	base := fmt.Sprintf("%s/api/v1/carts/%s", srv.URL, cartID)

	resp, body := doJSON(t, http.MethodPost, base+"/items", map[string]any{
		"productId": productID,
		"qty":       2,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	key := int(body["data"].(map[string]any)["key"].(float64))

	resp, body = doJSON(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	items := data["items"].([]any)
	require.Len(t, items, 1)
	summary := data["summary"].(map[string]any)
	require.EqualValues(t, 5000, summary["subtotal"])

	resp, _ = doJSON(t, http.MethodPut, fmt.Sprintf("%s/items/%d", base, key), map[string]any{"qty": 3})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/items/%d", base, key), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestHandlerDiscounts(t *testing.T) {
	srv, _, productID := newTestServer(t)
	cartID := createCart(t, srv)
	base := fmt.Sprintf("%s/api/v1/carts/%s", srv.URL, cartID)

	resp, _ := doJSON(t, http.MethodPost, base+"/items", map[string]any{"productId": productID, "qty": 1})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, base+"/discounts", map[string]any{"code": "SAVE20"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	codes := body["data"].(map[string]any)["codes"].([]any)
	require.Equal(t, []any{"SAVE20"}, codes)

	resp, _ = doJSON(t, http.MethodPost, base+"/discounts", map[string]any{"code": "BOGUS"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, base+"/discounts/SAVE20", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestHandlerFeesAndTaxRate(t *testing.T) {
	srv, svc, _ := newTestServer(t)
	cartID := createCart(t, srv)
	base := fmt.Sprintf("%s/api/v1/carts/%s", srv.URL, cartID)

	resp, _ := doJSON(t, http.MethodPost, base+"/fees", map[string]any{"name": "shipping", "amount": "4.99"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPut, base+"/tax-rate", map[string]any{"rate": "0.15"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	loaded, err := svc.Load(t.Context(), cartID)
	require.NoError(t, err)
	require.Len(t, loaded.Fees(), 1)
	require.EqualValues(t, 499, loaded.Fees()[0].Amount)
	require.NotNil(t, loaded.TaxOverride())
	require.EqualValues(t, 1500, *loaded.TaxOverride())

	// Null clears the override.
	resp, _ = doJSON(t, http.MethodPut, base+"/tax-rate", map[string]any{"rate": nil})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	loaded, err = svc.Load(t.Context(), cartID)
	require.NoError(t, err)
	require.Nil(t, loaded.TaxOverride())
}

func TestHandlerStats(t *testing.T) {
	srv, _, productID := newTestServer(t)
	cartID := createCart(t, srv)
	base := fmt.Sprintf("%s/api/v1/carts/%s", srv.URL, cartID)

	resp, body := doJSON(t, http.MethodGet, base+"/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := body["data"].(map[string]any)
	require.Equal(t, false, stats["cached"])

	resp, _ = doJSON(t, http.MethodPost, base+"/items", map[string]any{"productId": productID, "qty": 1})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// GET computes and memoises within a single request, but each
	// request restores a cold cart, so stats stay unpopulated.
	resp, body = doJSON(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	inline := body["data"].(map[string]any)["stats"].(map[string]any)
	require.Equal(t, true, inline["cached"])

	resp, body = doJSON(t, http.MethodGet, base+"/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats = body["data"].(map[string]any)
	require.Equal(t, false, stats["cached"])
}

func TestHandlerValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)
	cartID := createCart(t, srv)
	base := fmt.Sprintf("%s/api/v1/carts/%s", srv.URL, cartID)

	resp, _ := doJSON(t, http.MethodPost, base+"/items", map[string]any{"productId": "not-a-uuid", "qty": 1})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, base+"/discounts", map[string]any{"code": ""})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/carts/nope", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, base+"/fees", map[string]any{"name": "x", "amount": "abc"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWriteErrorHonorsAppError(t *testing.T) {
	h := &Handler{}
	rr := httptest.NewRecorder()

	err := common.NewAppError("CONFLICT", "cart is locked", http.StatusConflict, nil)
	require.True(t, common.IsAppError(err))
	h.writeError(rr, err)

	require.Equal(t, http.StatusConflict, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "CONFLICT", body["error"].(map[string]any)["code"])
}
