package scheduler

import (
	"context"
	"fmt"
	"time"

	"licensegate/database"
	"licensegate/logger"
	"licensegate/models"
	"licensegate/utils"
)

// Start 스케줄러 시작. ctx가 취소되면 루프가 종료된다.
func Start(ctx context.Context) {
	logger.Info("Scheduler started")

	// 1시간마다 실행
	ticker := time.NewTicker(1 * time.Hour)

	// 서버 시작 시 즉시 한 번 실행
	UpdateExpiredLicenses(ctx)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info("Scheduler stopped")
				return
			case <-ticker.C:
				logger.Info("Scheduler tick: Running UpdateExpiredLicenses")
				UpdateExpiredLicenses(ctx)
			}
		}
	}()
}

// UpdateExpiredLicenses 만료일이 지난 활성 라이선스를 expired로 전환한다.
// activation_slot을 함께 비워 동일 사용자+제품에 새 라이선스를 발급할 수 있게 한다.
func UpdateExpiredLicenses(ctx context.Context) {
	logger.Info("Running scheduled task: UpdateExpiredLicenses")

	now := utils.NowUTC()
	today := utils.FormatDateOnly(now)
	nowStr := utils.FormatDateTimeForDB(now)

	// 만료일 당일은 하루가 끝날 때까지 유효하므로 expiry_date < 오늘 조건을 쓴다.
	query := `
		UPDATE licenses
		SET status = ?, activation_slot = NULL, updated_at = ?
		WHERE status = ?
		AND expiry_date IS NOT NULL
		AND expiry_date < ?
	`

	result, err := database.DB.ExecContext(ctx, query,
		models.LicenseStatusExpired,
		nowStr,
		models.LicenseStatusActive,
		today,
	)

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Error("Failed to update expired licenses")
		return
	}

	rowsAffected, _ := result.RowsAffected()

	logger.WithFields(map[string]interface{}{
		"count": rowsAffected,
		"date":  today,
	}).Info("Expired licenses updated")

	if rowsAffected > 0 {
		details := fmt.Sprintf("expired %d licenses past %s", rowsAffected, today)
		if _, err := database.DB.ExecContext(ctx,
			"INSERT INTO activation_logs (license_id, action, details, created_at) VALUES (?, ?, ?, ?)",
			"system", models.ActionLicenseExpired, details, nowStr,
		); err != nil {
			logger.Warn("Failed to log scheduled expiry: %v", err)
		}
	}
}
