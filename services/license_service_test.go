package services

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensegate/database"
	"licensegate/models"
	"licensegate/utils"
)

// newTestService 파일 기반 SQLite로 서비스 계층을 초기화한다.
// database.Initialize가 스키마와 샘플 제품(prod-001 "MA-001" 등)을 함께 만든다.
func newTestService(t *testing.T) (LicenseService, ProductService, SQLExecutor) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "licensegate_test.db")
	require.NoError(t, database.Initialize("sqlite", dbPath))
	t.Cleanup(func() { database.Close() })

	exec := NewSQLExecutor(database.DB)
	products := NewProductService(exec)
	keys := NewSeededKeyGenerator(11, 13)

	return NewLicenseService(exec, products, keys, false), products, exec
}

func mustUnmarshalUpdate(t *testing.T, body string) models.UpdateLicenseRequest {
	t.Helper()
	var req models.UpdateLicenseRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return req
}

func forceExpiryDate(t *testing.T, exec SQLExecutor, licenseID, date string) {
	t.Helper()
	_, err := exec.ExecContext(context.Background(),
		"UPDATE licenses SET expiry_date = ? WHERE id = ?", date, licenseID)
	require.NoError(t, err)
}

func TestIssueAppliesDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.Issue(ctx, IssueParams{UserID: "user-1", ProductID: "prod-001"})
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.Regexp(t, `^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`, result.License.LicenseKey)
	assert.Equal(t, models.LicenseStatusActive, result.License.Status)
	assert.Equal(t, models.LicenseTypeSubscription, result.License.Type)
	assert.Equal(t, 3, result.License.MaxActivations)
	assert.Equal(t, 0, result.License.ActivationsCount)
	assert.Equal(t, "MA-001", result.Product.SKU)

	require.NotNil(t, result.License.ExpiryDate)
	expected := utils.FormatDateOnly(utils.NowUTC().Add(365 * 24 * time.Hour))
	assert.Equal(t, expected, *result.License.ExpiryDate)
}

func TestIssueIsIdempotentPerUserAndProduct(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Issue(ctx, IssueParams{UserID: "user-2", ProductID: "prod-001"})
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := svc.Issue(ctx, IssueParams{UserID: "user-2", ProductID: "prod-001"})
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.License.ID, second.License.ID)
	assert.Equal(t, first.License.LicenseKey, second.License.LicenseKey)
}

func TestIssueResolvesProductBySlugAndSKU(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	bySlug, err := svc.Issue(ctx, IssueParams{UserID: "user-3", ProductSlug: "modeler-standard"})
	require.NoError(t, err)
	assert.Equal(t, "prod-002", bySlug.License.ProductID)

	bySKU, err := svc.Issue(ctx, IssueParams{UserID: "user-3", SKU: "RF-001"})
	require.NoError(t, err)
	assert.Equal(t, "prod-003", bySKU.License.ProductID)
}

func TestIssueUnknownProduct(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Issue(context.Background(), IssueParams{UserID: "user-4", SKU: "NOPE-999"})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestIssueReplacesStaleExpiredLicense(t *testing.T) {
	svc, _, exec := newTestService(t)
	ctx := context.Background()

	first, err := svc.Issue(ctx, IssueParams{UserID: "user-5", ProductID: "prod-001"})
	require.NoError(t, err)

	// 스케줄러가 아직 처리하지 않은, 만료일이 지난 활성 라이선스를 흉내낸다.
	yesterday := utils.FormatDateOnly(utils.NowUTC().Add(-24 * time.Hour))
	forceExpiryDate(t, exec, first.License.ID, yesterday)

	second, err := svc.Issue(ctx, IssueParams{UserID: "user-5", ProductID: "prod-001"})
	require.NoError(t, err)

	assert.True(t, second.Created)
	assert.NotEqual(t, first.License.ID, second.License.ID)

	old, err := svc.Get(ctx, first.License.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LicenseStatusExpired, old.Status)
}

func TestValidateHappyPath(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, IssueParams{UserID: "val-1", ProductID: "prod-001"})
	require.NoError(t, err)

	resp, err := svc.Validate(ctx, models.ValidateLicenseRequest{
		Key:       issued.License.LicenseKey,
		ProductID: "prod-001",
	})
	require.NoError(t, err)

	assert.True(t, resp.Valid)
	assert.Equal(t, "License is valid", resp.Message)
	assert.Equal(t, "prod-001", resp.ProductID)
	require.NotNil(t, resp.DaysLeft)
	assert.Equal(t, 365, *resp.DaysLeft)
	assert.NotEmpty(t, resp.ExpiresAt)
}

func TestValidateUnknownKey(t *testing.T) {
	svc, _, _ := newTestService(t)

	resp, err := svc.Validate(context.Background(), models.ValidateLicenseRequest{
		Key:       "AAAA-BBBB-CCCC-DDDD-EEEE",
		ProductID: "prod-001",
	})
	require.NoError(t, err)

	assert.False(t, resp.Valid)
	assert.Equal(t, "Invalid or expired license", resp.Message)
}

func TestValidateWrongProduct(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, IssueParams{UserID: "val-2", ProductID: "prod-001"})
	require.NoError(t, err)

	resp, err := svc.Validate(ctx, models.ValidateLicenseRequest{
		Key:       issued.License.LicenseKey,
		ProductID: "prod-002",
	})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
}

func TestValidateProductResolutionPrecedence(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, IssueParams{UserID: "val-3", ProductID: "prod-001"})
	require.NoError(t, err)

	// product_id가 슬러그/SKU보다 우선한다.
	resp, err := svc.Validate(ctx, models.ValidateLicenseRequest{
		Key:       issued.License.LicenseKey,
		ProductID: "prod-001",
		Product:   "modeler-standard",
		SKU:       "RF-001",
	})
	require.NoError(t, err)
	assert.True(t, resp.Valid)

	// product_id가 없으면 슬러그가 SKU보다 우선한다.
	resp, err = svc.Validate(ctx, models.ValidateLicenseRequest{
		Key:     issued.License.LicenseKey,
		Product: "modeler-advanced",
		SKU:     "RF-001",
	})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
}

func TestValidateExpiredKey(t *testing.T) {
	svc, _, exec := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, IssueParams{UserID: "val-4", ProductID: "prod-001"})
	require.NoError(t, err)

	yesterday := utils.FormatDateOnly(utils.NowUTC().Add(-24 * time.Hour))
	forceExpiryDate(t, exec, issued.License.ID, yesterday)

	resp, err := svc.Validate(ctx, models.ValidateLicenseRequest{
		Key:       issued.License.LicenseKey,
		ProductID: "prod-001",
	})
	require.NoError(t, err)

	assert.False(t, resp.Valid)
	assert.Equal(t, "License has expired", resp.Message)
	require.NotNil(t, resp.DaysLeft)
	assert.Negative(t, *resp.DaysLeft)
}

func TestValidateRejectsIncompleteRequest(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Validate(ctx, models.ValidateLicenseRequest{ProductID: "prod-001"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Validate(ctx, models.ValidateLicenseRequest{Key: "AAAA-BBBB-CCCC-DDDD-EEEE"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Validate(ctx, models.ValidateLicenseRequest{
		Key: "AAAA-BBBB-CCCC-DDDD-EEEE", SKU: "NOPE-999",
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestValidateNoExpiryPolicy(t *testing.T) {
	svc, products, exec := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, IssueParams{UserID: "val-5", ProductID: "prod-001"})
	require.NoError(t, err)

	_, err = exec.ExecContext(ctx, "UPDATE licenses SET expiry_date = NULL WHERE id = ?", issued.License.ID)
	require.NoError(t, err)

	// 기본 정책: 만료일이 없는 키는 거절된다.
	resp, err := svc.Validate(ctx, models.ValidateLicenseRequest{
		Key:       issued.License.LicenseKey,
		ProductID: "prod-001",
	})
	require.NoError(t, err)
	assert.False(t, resp.Valid)

	// 완화 정책: 만료일이 없는 키도 통과한다.
	lenient := NewLicenseService(exec, products, NewSeededKeyGenerator(21, 22), true)
	resp, err = lenient.Validate(ctx, models.ValidateLicenseRequest{
		Key:       issued.License.LicenseKey,
		ProductID: "prod-001",
	})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Nil(t, resp.DaysLeft)
}

func TestActivateSeatEnforcesCapacity(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, IssueParams{UserID: "seat-1", ProductID: "prod-001"})
	require.NoError(t, err)
	key := issued.License.LicenseKey

	for i, device := range []string{"dev-a", "dev-b", "dev-c"} {
		lic, admitted, err := svc.ActivateSeat(ctx, models.ActivateSeatRequest{
			Key: key, DeviceID: device, MachineName: "workstation",
		})
		require.NoError(t, err)
		assert.True(t, admitted)
		assert.Equal(t, i+1, lic.ActivationsCount)
	}

	_, _, err = svc.ActivateSeat(ctx, models.ActivateSeatRequest{Key: key, DeviceID: "dev-d"})
	assert.ErrorIs(t, err, ErrSeatLimitExceeded)

	lic, err := svc.Get(ctx, issued.License.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, lic.ActivationsCount)
}

func TestActivateSeatIsIdempotentPerDevice(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, IssueParams{UserID: "seat-2", ProductID: "prod-001"})
	require.NoError(t, err)
	key := issued.License.LicenseKey

	_, admitted, err := svc.ActivateSeat(ctx, models.ActivateSeatRequest{Key: key, DeviceID: "dev-x"})
	require.NoError(t, err)
	assert.True(t, admitted)

	lic, admitted, err := svc.ActivateSeat(ctx, models.ActivateSeatRequest{Key: key, DeviceID: "dev-x"})
	require.NoError(t, err)
	assert.False(t, admitted)
	assert.Equal(t, 1, lic.ActivationsCount)
}

func TestActivateSeatRejectsBadStates(t *testing.T) {
	svc, _, exec := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.ActivateSeat(ctx, models.ActivateSeatRequest{Key: "", DeviceID: "dev"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, _, err = svc.ActivateSeat(ctx, models.ActivateSeatRequest{Key: "AAAA-BBBB-CCCC-DDDD-EEEE", DeviceID: "dev"})
	assert.ErrorIs(t, err, ErrLicenseNotFound)

	revoked, err := svc.Issue(ctx, IssueParams{UserID: "seat-3", ProductID: "prod-001"})
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, revoked.License.ID))

	_, _, err = svc.ActivateSeat(ctx, models.ActivateSeatRequest{Key: revoked.License.LicenseKey, DeviceID: "dev"})
	assert.ErrorIs(t, err, ErrLicenseNotActive)

	expired, err := svc.Issue(ctx, IssueParams{UserID: "seat-4", ProductID: "prod-001"})
	require.NoError(t, err)
	forceExpiryDate(t, exec, expired.License.ID, utils.FormatDateOnly(utils.NowUTC().Add(-48*time.Hour)))

	_, _, err = svc.ActivateSeat(ctx, models.ActivateSeatRequest{Key: expired.License.LicenseKey, DeviceID: "dev"})
	assert.ErrorIs(t, err, ErrLicenseExpired)
}

func TestUpdateOnlyTouchesProvidedFields(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, IssueParams{UserID: "upd-1", ProductID: "prod-001"})
	require.NoError(t, err)
	originalExpiry := *issued.License.ExpiryDate

	lic, err := svc.Update(ctx, issued.License.ID, mustUnmarshalUpdate(t, `{"max_activations":10}`))
	require.NoError(t, err)

	assert.Equal(t, 10, lic.MaxActivations)
	assert.Equal(t, models.LicenseStatusActive, lic.Status)
	assert.Equal(t, models.LicenseTypeSubscription, lic.Type)
	require.NotNil(t, lic.ExpiryDate)
	assert.Equal(t, originalExpiry, *lic.ExpiryDate)
	assert.Equal(t, issued.License.LicenseKey, lic.LicenseKey)
}

func TestUpdateNullClearsExpiry(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, IssueParams{UserID: "upd-2", ProductID: "prod-001"})
	require.NoError(t, err)

	lic, err := svc.Update(ctx, issued.License.ID, mustUnmarshalUpdate(t, `{"expiry_date":null}`))
	require.NoError(t, err)
	assert.Nil(t, lic.ExpiryDate)

	lic, err = svc.Update(ctx, issued.License.ID, mustUnmarshalUpdate(t, `{"expiry_date":"2031-05-01","type":"permanent"}`))
	require.NoError(t, err)
	require.NotNil(t, lic.ExpiryDate)
	assert.Equal(t, "2031-05-01", *lic.ExpiryDate)
	assert.Equal(t, models.LicenseTypePermanent, lic.Type)
}

func TestUpdateRejectsNullStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, IssueParams{UserID: "upd-3", ProductID: "prod-001"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, issued.License.ID, mustUnmarshalUpdate(t, `{"status":null}`))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Update(ctx, issued.License.ID, mustUnmarshalUpdate(t, `{"status":"bogus"}`))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestUpdateRegenerateKeyPreservesActivations(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, IssueParams{UserID: "upd-4", ProductID: "prod-001"})
	require.NoError(t, err)
	oldKey := issued.License.LicenseKey

	for _, device := range []string{"dev-1", "dev-2"} {
		_, _, err := svc.ActivateSeat(ctx, models.ActivateSeatRequest{Key: oldKey, DeviceID: device})
		require.NoError(t, err)
	}

	lic, err := svc.Update(ctx, issued.License.ID, mustUnmarshalUpdate(t, `{"regenerate_key":true}`))
	require.NoError(t, err)

	assert.NotEqual(t, oldKey, lic.LicenseKey)
	assert.Regexp(t, `^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`, lic.LicenseKey)
	assert.Equal(t, 2, lic.ActivationsCount)

	// 이전 키는 더 이상 검증을 통과하지 못한다.
	resp, err := svc.Validate(ctx, models.ValidateLicenseRequest{Key: oldKey, ProductID: "prod-001"})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
}

func TestUpdateRefusesShrinkBelowUsage(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, IssueParams{UserID: "upd-5", ProductID: "prod-001"})
	require.NoError(t, err)

	for _, device := range []string{"dev-1", "dev-2"} {
		_, _, err := svc.ActivateSeat(ctx, models.ActivateSeatRequest{Key: issued.License.LicenseKey, DeviceID: device})
		require.NoError(t, err)
	}

	_, err = svc.Update(ctx, issued.License.ID, mustUnmarshalUpdate(t, `{"max_activations":1}`))
	assert.ErrorIs(t, err, ErrSeatShrinkBelowUsage)
}

func TestUpdateActiveStatusConflict(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Issue(ctx, IssueParams{UserID: "upd-6", ProductID: "prod-001"})
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, first.License.ID))

	second, err := svc.Issue(ctx, IssueParams{UserID: "upd-6", ProductID: "prod-001"})
	require.NoError(t, err)
	require.True(t, second.Created)

	// 같은 사용자+제품에 이미 활성 라이선스가 있으므로 재활성화는 거절된다.
	_, err = svc.Update(ctx, first.License.ID, mustUnmarshalUpdate(t, `{"status":"active"}`))
	assert.ErrorIs(t, err, ErrActiveLicenseConflict)
}

func TestRenewExtendsExpiry(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, IssueParams{UserID: "ren-1", ProductID: "prod-001"})
	require.NoError(t, err)
	assert.Nil(t, issued.License.RenewedAt)

	target := utils.FormatDateOnly(utils.NowUTC().Add(2 * 365 * 24 * time.Hour))
	lic, err := svc.Renew(ctx, issued.License.ID, target)
	require.NoError(t, err)

	require.NotNil(t, lic.ExpiryDate)
	assert.Equal(t, target, *lic.ExpiryDate)
	assert.NotNil(t, lic.RenewedAt)
	assert.Equal(t, models.LicenseStatusActive, lic.Status)
}

func TestRenewReactivatesExpiredLicense(t *testing.T) {
	svc, _, exec := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, IssueParams{UserID: "ren-2", ProductID: "prod-001"})
	require.NoError(t, err)

	// 스케줄러가 만료 처리한 상태를 재현한다.
	_, err = exec.ExecContext(ctx,
		"UPDATE licenses SET status = ?, activation_slot = NULL, expiry_date = ? WHERE id = ?",
		models.LicenseStatusExpired, "2024-01-01", issued.License.ID)
	require.NoError(t, err)

	target := utils.FormatDateOnly(utils.NowUTC().Add(30 * 24 * time.Hour))
	lic, err := svc.Renew(ctx, issued.License.ID, target)
	require.NoError(t, err)

	assert.Equal(t, models.LicenseStatusActive, lic.Status)
	assert.Equal(t, target, *lic.ExpiryDate)

	resp, err := svc.Validate(ctx, models.ValidateLicenseRequest{
		Key: lic.LicenseKey, ProductID: "prod-001",
	})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
}

func TestRevokeBlocksValidationAndActivation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, IssueParams{UserID: "rev-1", ProductID: "prod-001"})
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, issued.License.ID))

	lic, err := svc.Get(ctx, issued.License.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LicenseStatusRevoked, lic.Status)

	resp, err := svc.Validate(ctx, models.ValidateLicenseRequest{
		Key: issued.License.LicenseKey, ProductID: "prod-001",
	})
	require.NoError(t, err)
	assert.False(t, resp.Valid)

	assert.ErrorIs(t, svc.Revoke(ctx, "lic-missing"), ErrLicenseNotFound)
}

func TestDeleteRemovesLicense(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, IssueParams{UserID: "del-1", ProductID: "prod-001"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, issued.License.ID))

	_, err = svc.Get(ctx, issued.License.ID)
	assert.ErrorIs(t, err, ErrLicenseNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, issued.License.ID), ErrLicenseNotFound)
}

func TestListFiltersAndPagination(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	users := []string{"list-1", "list-2", "list-3"}
	for _, user := range users {
		_, err := svc.Issue(ctx, IssueParams{UserID: user, ProductID: "prod-001"})
		require.NoError(t, err)
	}
	other, err := svc.Issue(ctx, IssueParams{UserID: "list-1", ProductID: "prod-002"})
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, other.License.ID))

	all, total, err := svc.List(ctx, LicenseFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, all, 4)

	active, total, err := svc.List(ctx, LicenseFilter{Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, active, 3)

	byUser, total, err := svc.List(ctx, LicenseFilter{UserID: "list-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, byUser, 2)

	byProduct, total, err := svc.List(ctx, LicenseFilter{ProductID: "prod-002"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, byProduct, 1)
	assert.Equal(t, "Modeler Standard", byProduct[0].ProductName)

	paged, total, err := svc.List(ctx, LicenseFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, paged, 2)

	search := all[0].LicenseKey[:9]
	found, _, err := svc.List(ctx, LicenseFilter{Search: search})
	require.NoError(t, err)
	assert.NotEmpty(t, found)
}
