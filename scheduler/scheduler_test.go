package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensegate/database"
	"licensegate/models"
	"licensegate/services"
	"licensegate/utils"
)

func TestUpdateExpiredLicenses(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scheduler_test.db")
	require.NoError(t, database.Initialize("sqlite", dbPath))
	t.Cleanup(func() { database.Close() })

	exec := services.NewSQLExecutor(database.DB)
	products := services.NewProductService(exec)
	svc := services.NewLicenseService(exec, products, services.NewSeededKeyGenerator(41, 43), false)
	ctx := context.Background()

	stale, err := svc.Issue(ctx, services.IssueParams{UserID: "sched-1", ProductID: "prod-001"})
	require.NoError(t, err)

	fresh, err := svc.Issue(ctx, services.IssueParams{UserID: "sched-2", ProductID: "prod-001"})
	require.NoError(t, err)

	yesterday := utils.FormatDateOnly(utils.NowUTC().Add(-24 * time.Hour))
	_, err = database.DB.Exec("UPDATE licenses SET expiry_date = ? WHERE id = ?", yesterday, stale.License.ID)
	require.NoError(t, err)

	UpdateExpiredLicenses(ctx)

	expired, err := svc.Get(ctx, stale.License.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LicenseStatusExpired, expired.Status)

	kept, err := svc.Get(ctx, fresh.License.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LicenseStatusActive, kept.Status)

	// slot이 비워져 같은 사용자에게 새 발급이 가능하다
	reissued, err := svc.Issue(ctx, services.IssueParams{UserID: "sched-1", ProductID: "prod-001"})
	require.NoError(t, err)
	assert.True(t, reissued.Created)
	assert.NotEqual(t, stale.License.ID, reissued.License.ID)
}
