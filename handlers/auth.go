package handlers

import (
	"encoding/json"
	"net/http"

	"licensegate/database"
	"licensegate/logger"
	"licensegate/models"
	"licensegate/utils"
)

// Login 관리자 로그인
// @Summary 관리자 로그인
// @Description 관리자 계정으로 로그인하여 JWT 토큰을 발급받습니다
// @Tags 인증
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "로그인 정보"
// @Success 200 {object} models.APIResponse{data=models.LoginResponse} "로그인 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 401 {object} models.APIResponse "인증 실패"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/admin/login [post]
func Login(w http.ResponseWriter, r *http.Request) {
	requestID := r.Context().Value("request_id")

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WithFields(map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Invalid login request body")

		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("Invalid request body", err))
		return
	}

	logger.WithFields(map[string]interface{}{
		"request_id": requestID,
		"username":   req.Username,
	}).Info("Login attempt")

	var admin models.Admin
	query := "SELECT id, username, password, email, created_at, updated_at FROM admins WHERE username = ?"
	err := database.DB.QueryRowContext(r.Context(), query, req.Username).Scan(
		&admin.ID, &admin.Username, &admin.Password, &admin.Email,
		&admin.CreatedAt, &admin.UpdatedAt,
	)

	if err != nil || !utils.CheckPassword(admin.Password, req.Password) {
		logger.WithFields(map[string]interface{}{
			"request_id": requestID,
			"username":   req.Username,
		}).Warn("Login failed - invalid credentials")

		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(models.ErrorResponse("Invalid credentials", nil))
		return
	}

	token, expiresAt, err := utils.GenerateToken(admin.ID, admin.Username)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"request_id": requestID,
			"admin_id":   admin.ID,
			"error":      err.Error(),
		}).Error("Failed to generate JWT token")

		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to generate token", err))
		return
	}

	logger.WithFields(map[string]interface{}{
		"request_id": requestID,
		"admin_id":   admin.ID,
		"username":   admin.Username,
	}).Info("Login successful")

	json.NewEncoder(w).Encode(models.SuccessResponse("Login successful", models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Admin:     admin,
	}))
}

// GetMe 현재 로그인된 관리자 정보
// @Summary 현재 사용자 정보 조회
// @Description 로그인된 관리자의 정보를 조회합니다
// @Tags 인증
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=models.Admin} "조회 성공"
// @Failure 401 {object} models.APIResponse "인증 필요"
// @Failure 404 {object} models.APIResponse "사용자 없음"
// @Router /api/admin/me [get]
func GetMe(w http.ResponseWriter, r *http.Request) {
	adminID, _ := r.Context().Value("admin_id").(string)

	var admin models.Admin
	query := "SELECT id, username, email, created_at, updated_at FROM admins WHERE id = ?"
	err := database.DB.QueryRowContext(r.Context(), query, adminID).Scan(
		&admin.ID, &admin.Username, &admin.Email,
		&admin.CreatedAt, &admin.UpdatedAt,
	)

	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(models.ErrorResponse("Admin not found", err))
		return
	}

	json.NewEncoder(w).Encode(models.SuccessResponse("Admin retrieved", admin))
}

// ChangePassword 관리자 비밀번호 변경
// @Summary 비밀번호 변경
// @Description 현재 비밀번호를 확인하고 새로운 비밀번호로 변경합니다
// @Tags 인증
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ChangePasswordRequest true "비밀번호 변경 요청"
// @Success 200 {object} models.APIResponse "변경 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 401 {object} models.APIResponse "인증 필요/현재 비밀번호 불일치"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/admin/change-password [post]
func ChangePassword(w http.ResponseWriter, r *http.Request) {
	requestID := r.Context().Value("request_id")
	adminID, _ := r.Context().Value("admin_id").(string)

	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("Invalid request body", err))
		return
	}

	if len(req.NewPassword) < 8 {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("New password must be at least 8 characters", nil))
		return
	}

	var hashed string
	err := database.DB.QueryRowContext(r.Context(), "SELECT password FROM admins WHERE id = ?", adminID).Scan(&hashed)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(models.ErrorResponse("Admin not found", err))
		return
	}

	if !utils.CheckPassword(hashed, req.CurrentPassword) {
		logger.WithFields(map[string]interface{}{
			"request_id": requestID,
			"admin_id":   adminID,
		}).Warn("Password change failed - wrong current password")

		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(models.ErrorResponse("Current password is incorrect", nil))
		return
	}

	newHash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"request_id": requestID,
			"admin_id":   adminID,
			"error":      err.Error(),
		}).Error("Failed to hash password")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to hash password", err))
		return
	}

	updateTime := utils.FormatDateTimeForDB(utils.NowUTC())
	result, err := database.DB.ExecContext(r.Context(),
		"UPDATE admins SET password = ?, updated_at = ? WHERE id = ?", newHash, updateTime, adminID)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"request_id": requestID,
			"admin_id":   adminID,
			"error":      err.Error(),
		}).Error("Failed to update password")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to update password", err))
		return
	}

	if rows, err := result.RowsAffected(); err != nil || rows == 0 {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to update password", nil))
		return
	}

	logger.WithFields(map[string]interface{}{
		"request_id": requestID,
		"admin_id":   adminID,
	}).Info("Admin password changed successfully")

	json.NewEncoder(w).Encode(models.SuccessResponse("Password changed successfully", nil))
}
