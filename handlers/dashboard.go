package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"licensegate/database"
	"licensegate/logger"
	"licensegate/models"
	"licensegate/utils"
)

// DashboardStats 대시보드 통계
type DashboardStats struct {
	TotalLicenses    int `json:"total_licenses"`
	ActiveLicenses   int `json:"active_licenses"`
	ExpiredLicenses  int `json:"expired_licenses"`
	RevokedLicenses  int `json:"revoked_licenses"`
	TotalProducts    int `json:"total_products"`
	SeatsInUse       int `json:"seats_in_use"`
	ActivationsToday int `json:"activations_today"`
}

// ActivityEntry 최근 활동 항목
type ActivityEntry struct {
	ID         int64  `json:"id"`
	LicenseID  string `json:"license_id"`
	LicenseKey string `json:"license_key,omitempty"`
	Action     string `json:"action"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

// GetDashboardStats 대시보드 통계 조회
// @Summary 대시보드 통계
// @Description 라이선스/제품/좌석 현황 통계를 조회합니다
// @Tags 대시보드
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=handlers.DashboardStats} "조회 성공"
// @Failure 401 {object} models.APIResponse "인증 필요"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/admin/dashboard [get]
func GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	var stats DashboardStats

	counts := []struct {
		query string
		dest  *int
		args  []any
	}{
		{"SELECT COUNT(*) FROM licenses", &stats.TotalLicenses, nil},
		{"SELECT COUNT(*) FROM licenses WHERE status = ?", &stats.ActiveLicenses, []any{models.LicenseStatusActive}},
		{"SELECT COUNT(*) FROM licenses WHERE status = ?", &stats.ExpiredLicenses, []any{models.LicenseStatusExpired}},
		{"SELECT COUNT(*) FROM licenses WHERE status = ?", &stats.RevokedLicenses, []any{models.LicenseStatusRevoked}},
		{"SELECT COUNT(*) FROM products", &stats.TotalProducts, nil},
		{"SELECT COALESCE(SUM(activations_count), 0) FROM licenses WHERE status = ?", &stats.SeatsInUse, []any{models.LicenseStatusActive}},
	}

	for _, c := range counts {
		if err := database.DB.QueryRowContext(r.Context(), c.query, c.args...).Scan(c.dest); err != nil {
			logger.Error("Failed to load dashboard stats: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(models.ErrorResponse("Failed to load dashboard stats", err))
			return
		}
	}

	today := utils.FormatDateOnly(utils.NowUTC())
	err := database.DB.QueryRowContext(r.Context(),
		"SELECT COUNT(*) FROM activation_logs WHERE action = ? AND created_at >= ?",
		models.ActionSeatActivated, today+" 00:00:00",
	).Scan(&stats.ActivationsToday)
	if err != nil && err != sql.ErrNoRows {
		logger.Error("Failed to count today's activations: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to load dashboard stats", err))
		return
	}

	json.NewEncoder(w).Encode(models.SuccessResponse("Dashboard stats retrieved", stats))
}

// GetRecentActivity 최근 활동 로그 조회
// @Summary 최근 활동 조회
// @Description 라이선스 활동 로그를 최신순으로 조회합니다
// @Tags 대시보드
// @Produce json
// @Security BearerAuth
// @Param limit query int false "조회 개수 (기본 20, 최대 100)"
// @Param license_id query string false "라이선스 필터"
// @Success 200 {object} models.APIResponse{data=[]handlers.ActivityEntry} "조회 성공"
// @Failure 401 {object} models.APIResponse "인증 필요"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/admin/activity [get]
func GetRecentActivity(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := `SELECT al.id, al.license_id, COALESCE(l.license_key, ''), al.action, al.details, al.created_at
		FROM activation_logs al
		LEFT JOIN licenses l ON al.license_id = l.id`
	args := []any{}

	if licenseID := r.URL.Query().Get("license_id"); licenseID != "" {
		query += " WHERE al.license_id = ?"
		args = append(args, licenseID)
	}

	query += " ORDER BY al.id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := database.DB.QueryContext(r.Context(), query, args...)
	if err != nil {
		logger.Error("Failed to query activity logs: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to query activity logs", err))
		return
	}
	defer rows.Close()

	entries := []ActivityEntry{}
	for rows.Next() {
		var e ActivityEntry
		if err := rows.Scan(&e.ID, &e.LicenseID, &e.LicenseKey, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			logger.Warn("Failed to scan activity log row: %v", err)
			continue
		}
		entries = append(entries, e)
	}

	json.NewEncoder(w).Encode(models.SuccessResponse("Activity retrieved", entries))
}
