package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensegate/database"
	"licensegate/models"
	"licensegate/services"
)

func newTestHandlers(t *testing.T) (*LicenseHandler, *ProductHandler, services.LicenseService) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "handlers_test.db")
	require.NoError(t, database.Initialize("sqlite", dbPath))
	t.Cleanup(func() { database.Close() })

	exec := services.NewSQLExecutor(database.DB)
	products := services.NewProductService(exec)
	licenses := services.NewLicenseService(exec, products, services.NewSeededKeyGenerator(31, 37), false)

	return NewLicenseHandler(licenses), NewProductHandler(products), licenses
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestValidateEndpointReturnsFlatBody(t *testing.T) {
	h, _, svc := newTestHandlers(t)

	issued, err := svc.Issue(httptest.NewRequest("GET", "/", nil).Context(),
		services.IssueParams{UserID: "h-user-1", ProductID: "prod-001"})
	require.NoError(t, err)

	body := fmt.Sprintf(`{"key":%q,"product_id":"prod-001"}`, issued.License.LicenseKey)
	rec := doJSON(t, h.Validate, http.MethodPost, "/api/license/validate", body)

	require.Equal(t, http.StatusOK, rec.Code)

	// 데스크톱 클라이언트 호환: APIResponse 래핑 없이 평면 JSON
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["valid"])
	assert.NotContains(t, resp, "status_")
	assert.NotContains(t, resp, "data")
	assert.Equal(t, "License is valid", resp["message"])
	assert.Equal(t, float64(365), resp["days_left"])
}

func TestValidateEndpointBadRequest(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	// 깨진 JSON
	rec := doJSON(t, h.Validate, http.MethodPost, "/api/license/validate", `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp models.ValidateLicenseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
	assert.Equal(t, "Invalid request", resp.Message)

	// 키 없음
	rec = doJSON(t, h.Validate, http.MethodPost, "/api/license/validate", `{"product_id":"prod-001"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 제품 해석 불가
	rec = doJSON(t, h.Validate, http.MethodPost, "/api/license/validate",
		`{"key":"AAAA-BBBB-CCCC-DDDD-EEEE","sku":"NOPE-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateEndpointUnknownKeyIsStill200(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	rec := doJSON(t, h.Validate, http.MethodPost, "/api/license/validate",
		`{"key":"AAAA-BBBB-CCCC-DDDD-EEEE","product_id":"prod-001"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ValidateLicenseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
}

func TestActivateEndpointSeatLimit(t *testing.T) {
	h, _, svc := newTestHandlers(t)

	issued, err := svc.Issue(httptest.NewRequest("GET", "/", nil).Context(),
		services.IssueParams{UserID: "h-user-2", ProductID: "prod-001", MaxActivations: 1})
	require.NoError(t, err)
	key := issued.License.LicenseKey

	rec := doJSON(t, h.Activate, http.MethodPost, "/api/license/activate",
		fmt.Sprintf(`{"key":%q,"device_id":"dev-1","machine_name":"ws-1"}`, key))
	assert.Equal(t, http.StatusCreated, rec.Code)

	// 같은 디바이스 재활성화: 200, 좌석 소비 없음
	rec = doJSON(t, h.Activate, http.MethodPost, "/api/license/activate",
		fmt.Sprintf(`{"key":%q,"device_id":"dev-1"}`, key))
	assert.Equal(t, http.StatusOK, rec.Code)

	// 좌석 초과
	rec = doJSON(t, h.Activate, http.MethodPost, "/api/license/activate",
		fmt.Sprintf(`{"key":%q,"device_id":"dev-2"}`, key))
	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp models.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "Maximum seat limit reached", resp.Message)
}

func TestActivateEndpointMissingLicense(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	rec := doJSON(t, h.Activate, http.MethodPost, "/api/license/activate",
		`{"key":"AAAA-BBBB-CCCC-DDDD-EEEE","device_id":"dev-1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIssueEndpointIdempotent(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	body := `{"user_id":"h-user-3","sku":"MA-001"}`

	rec := doJSON(t, h.Issue, http.MethodPost, "/api/admin/licenses", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h.Issue, http.MethodPost, "/api/admin/licenses", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "License already issued", resp.Message)
}

func TestIssueEndpointUnknownProduct(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	rec := doJSON(t, h.Issue, http.MethodPost, "/api/admin/licenses",
		`{"user_id":"h-user-4","sku":"NOPE-1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateEndpointPartialAndRegenerate(t *testing.T) {
	h, _, svc := newTestHandlers(t)
	ctx := httptest.NewRequest("GET", "/", nil).Context()

	issued, err := svc.Issue(ctx, services.IssueParams{UserID: "h-user-5", ProductID: "prod-001"})
	require.NoError(t, err)

	target := "/api/admin/licenses/?id=" + issued.License.ID
	rec := doJSON(t, h.Update, http.MethodPut, target, `{"max_activations":7,"regenerate_key":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := svc.Get(ctx, issued.License.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.MaxActivations)
	assert.NotEqual(t, issued.License.LicenseKey, updated.LicenseKey)

	// ID 누락
	rec = doJSON(t, h.Update, http.MethodPut, "/api/admin/licenses/", `{"max_activations":7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 존재하지 않는 라이선스
	rec = doJSON(t, h.Update, http.MethodPut, "/api/admin/licenses/?id=lic-missing", `{"max_activations":7}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRevokeAndRenewEndpoints(t *testing.T) {
	h, _, svc := newTestHandlers(t)
	ctx := httptest.NewRequest("GET", "/", nil).Context()

	issued, err := svc.Issue(ctx, services.IssueParams{UserID: "h-user-6", ProductID: "prod-001"})
	require.NoError(t, err)

	rec := doJSON(t, h.Renew, http.MethodPost,
		"/api/admin/licenses/renew?id="+issued.License.ID, `{"expiry_date":"2032-01-01"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	renewed, err := svc.Get(ctx, issued.License.ID)
	require.NoError(t, err)
	require.NotNil(t, renewed.ExpiryDate)
	assert.Equal(t, "2032-01-01", *renewed.ExpiryDate)

	rec = doJSON(t, h.Revoke, http.MethodPost,
		"/api/admin/licenses/revoke?id="+issued.License.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	revoked, err := svc.Get(ctx, issued.License.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LicenseStatusRevoked, revoked.Status)
}

func TestListEndpointPagination(t *testing.T) {
	h, _, svc := newTestHandlers(t)
	ctx := httptest.NewRequest("GET", "/", nil).Context()

	for i := 0; i < 3; i++ {
		_, err := svc.Issue(ctx, services.IssueParams{
			UserID: fmt.Sprintf("h-list-%d", i), ProductID: "prod-001",
		})
		require.NoError(t, err)
	}

	rec := doJSON(t, h.List, http.MethodGet, "/api/admin/licenses?page=1&page_size=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Meta.TotalCount)
	assert.Equal(t, 2, resp.Meta.TotalPages)
	assert.Equal(t, 2, resp.Meta.PageSize)
}

func TestProductEndpoints(t *testing.T) {
	_, ph, svc := newTestHandlers(t)
	ctx := httptest.NewRequest("GET", "/", nil).Context()

	rec := doJSON(t, ph.Create, http.MethodPost, "/api/admin/products",
		`{"name":"Sculptor","sku":"SC-001"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// SKU 중복
	rec = doJSON(t, ph.Create, http.MethodPost, "/api/admin/products",
		`{"name":"Sculptor Clone","sku":"SC-001"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// 이름/SKU 누락
	rec = doJSON(t, ph.Create, http.MethodPost, "/api/admin/products", `{"name":"No SKU"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 라이선스가 연결된 제품 삭제 거부
	_, err := svc.Issue(ctx, services.IssueParams{UserID: "h-prod", ProductID: "prod-001"})
	require.NoError(t, err)

	rec = doJSON(t, ph.Delete, http.MethodDelete, "/api/admin/products/?id=prod-001", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}
