package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"licensegate/logger"
	"licensegate/models"
	"licensegate/services"
	"licensegate/utils"
)

// LicenseHandler는 라이선스 관련 HTTP 요청을 처리한다.
type LicenseHandler struct {
	service services.LicenseService
}

// NewLicenseHandler는 라이선스 핸들러를 생성한다.
func NewLicenseHandler(service services.LicenseService) *LicenseHandler {
	return &LicenseHandler{service: service}
}

// Validate 라이선스 검증
// @Summary 라이선스 검증
// @Description 라이선스 키와 제품 식별자(product_id, product 슬러그, sku 중 하나)로 유효성을 검증합니다. 상태를 변경하지 않습니다.
// @Tags 클라이언트 - 라이선스
// @Accept json
// @Produce json
// @Param request body models.ValidateLicenseRequest true "검증 정보"
// @Success 200 {object} models.ValidateLicenseResponse "검증 결과 (valid 필드 확인)"
// @Failure 400 {object} models.ValidateLicenseResponse "불완전한 요청"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/license/validate [post]
func (h *LicenseHandler) Validate(w http.ResponseWriter, r *http.Request) {
	requestID := r.Context().Value("request_id")

	var req models.ValidateLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ValidateLicenseResponse{Valid: false, Message: "Invalid request"})
		return
	}

	logger.WithFields(map[string]interface{}{
		"request_id":  requestID,
		"license_key": req.Key,
		"product_id":  req.ProductID,
		"product":     req.Product,
		"sku":         req.SKU,
	}).Debug("License validation request")

	resp, err := h.service.Validate(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRequest) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ValidateLicenseResponse{Valid: false, Message: "Invalid request"})
			return
		}
		logger.WithFields(map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to validate license")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to validate license", err))
		return
	}

	logger.WithFields(map[string]interface{}{
		"request_id":  requestID,
		"license_key": req.Key,
		"valid":       resp.Valid,
	}).Info("License validation completed")

	json.NewEncoder(w).Encode(resp)
}

// Activate 좌석 할당 (디바이스 활성화)
// @Summary 디바이스 활성화
// @Description 라이선스 키에 디바이스 좌석을 할당합니다. 같은 디바이스의 재활성화는 좌석을 소비하지 않습니다.
// @Tags 클라이언트 - 라이선스
// @Accept json
// @Produce json
// @Param request body models.ActivateSeatRequest true "활성화 정보"
// @Success 201 {object} models.APIResponse "활성화 성공"
// @Success 200 {object} models.APIResponse "이미 활성화됨"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 403 {object} models.APIResponse "비활성/만료/좌석 초과"
// @Failure 404 {object} models.APIResponse "라이선스 없음"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/license/activate [post]
func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	requestID := r.Context().Value("request_id")

	var req models.ActivateSeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("Invalid request body", err))
		return
	}

	logger.WithFields(map[string]interface{}{
		"request_id":   requestID,
		"license_key":  req.Key,
		"device_id":    req.DeviceID,
		"machine_name": req.MachineName,
	}).Info("Seat activation attempt")

	lic, created, err := h.service.ActivateSeat(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRequest):
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ErrorResponse("License key and device ID are required", nil))
		case errors.Is(err, services.ErrLicenseNotFound):
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse("License not found", nil))
		case errors.Is(err, services.ErrLicenseNotActive):
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(models.ErrorResponse("License is not active", nil))
		case errors.Is(err, services.ErrLicenseExpired):
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(models.ErrorResponse("License has expired", nil))
		case errors.Is(err, services.ErrSeatLimitExceeded):
			logger.WithFields(map[string]interface{}{
				"request_id":  requestID,
				"license_key": req.Key,
				"device_id":   req.DeviceID,
			}).Warn("Seat limit exceeded")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(models.ErrorResponse("Maximum seat limit reached", nil))
		default:
			logger.WithFields(map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("Failed to activate seat")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(models.ErrorResponse("Failed to activate seat", err))
		}
		return
	}

	data := map[string]interface{}{
		"license_key":       lic.LicenseKey,
		"product_id":        lic.ProductID,
		"expiry_date":       lic.ExpiryDate,
		"activations_count": lic.ActivationsCount,
		"max_activations":   lic.MaxActivations,
	}

	if !created {
		json.NewEncoder(w).Encode(models.SuccessResponse("Device already activated", data))
		return
	}

	logger.WithFields(map[string]interface{}{
		"request_id":  requestID,
		"license_key": req.Key,
		"device_id":   req.DeviceID,
		"seats":       lic.ActivationsCount,
	}).Info("Seat activated successfully")

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.SuccessResponse("Seat activated successfully", data))
}

// Issue 라이선스 발급
// @Summary 라이선스 발급
// @Description 사용자+제품에 대해 라이선스를 발급합니다. 이미 활성 라이선스가 있으면 그대로 반환합니다.
// @Tags 라이선스
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.IssueLicenseRequest true "발급 정보"
// @Success 201 {object} models.APIResponse "발급 성공"
// @Success 200 {object} models.APIResponse "기존 라이선스 반환"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 404 {object} models.APIResponse "제품 없음"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/admin/licenses [post]
func (h *LicenseHandler) Issue(w http.ResponseWriter, r *http.Request) {
	requestID := r.Context().Value("request_id")

	var req models.IssueLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("Invalid request body", err))
		return
	}

	params := services.IssueParams{
		UserID:         req.UserID,
		ProductID:      req.ProductID,
		ProductSlug:    req.Product,
		SKU:            req.SKU,
		MaxActivations: req.MaxActivations,
	}

	if req.Type != "" {
		licType, err := models.ParseLicenseType(req.Type)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ErrorResponse("Invalid license type", err))
			return
		}
		params.Type = licType
	}

	if req.ExpiryDate != "" {
		ts, err := utils.ParseUserDate(req.ExpiryDate)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ErrorResponse("Invalid expiry date", err))
			return
		}
		date := utils.FormatDateOnly(ts)
		params.ExpiryDate = &date
	}

	result, err := h.service.Issue(r.Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProductNotFound):
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse("Product not found", nil))
		case errors.Is(err, services.ErrInvalidRequest):
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ErrorResponse("Invalid issue request", err))
		default:
			logger.WithFields(map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("Failed to issue license")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(models.ErrorResponse("Failed to issue license", err))
		}
		return
	}

	data := map[string]interface{}{
		"license": result.License,
		"product": result.Product,
	}

	if !result.Created {
		logger.WithFields(map[string]interface{}{
			"request_id": requestID,
			"license_id": result.License.ID,
		}).Info("Existing active license returned")
		json.NewEncoder(w).Encode(models.SuccessResponse("License already issued", data))
		return
	}

	logger.WithFields(map[string]interface{}{
		"request_id":  requestID,
		"license_id":  result.License.ID,
		"license_key": result.License.LicenseKey,
		"product_id":  result.License.ProductID,
	}).Info("License issued successfully")

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.SuccessResponse("License issued successfully", data))
}

// List 라이선스 목록 조회
// @Summary 라이선스 목록 조회
// @Description 라이선스 목록을 페이징으로 조회합니다
// @Tags 라이선스
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param status query string false "상태 필터 (active, expired, revoked, trial)"
// @Param product_id query string false "제품 필터"
// @Param user_id query string false "사용자 필터"
// @Param search query string false "라이선스 키 검색"
// @Param page query int false "페이지 번호 (기본 1)"
// @Param page_size query int false "페이지 크기 (기본 20, 최대 100)"
// @Success 200 {object} models.PaginatedResponse "조회 성공"
// @Failure 401 {object} models.APIResponse "인증 필요"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/admin/licenses [get]
func (h *LicenseHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	filter := services.LicenseFilter{
		Status:    q.Get("status"),
		ProductID: q.Get("product_id"),
		UserID:    q.Get("user_id"),
		Search:    q.Get("search"),
		Page:      page,
		PageSize:  pageSize,
	}

	licenses, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		logger.Error("Failed to query licenses: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to query licenses", err))
		return
	}

	logger.Info("Retrieved %d licenses (total %d)", len(licenses), total)
	json.NewEncoder(w).Encode(models.NewPaginatedResponse("Licenses retrieved", licenses, filter.Page, filter.PageSize, total))
}

// Get 라이선스 상세 조회
// @Summary 라이선스 상세 조회
// @Description 특정 라이선스의 상세 정보를 조회합니다
// @Tags 라이선스
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id query string true "라이선스 ID"
// @Success 200 {object} models.APIResponse{data=models.License} "조회 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 404 {object} models.APIResponse "라이선스 없음"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/admin/licenses/ [get]
func (h *LicenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if strings.TrimSpace(id) == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("License ID is required", nil))
		return
	}

	lic, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrLicenseNotFound) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse("License not found", nil))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to retrieve license", err))
		return
	}

	json.NewEncoder(w).Encode(models.SuccessResponse("License retrieved", lic))
}

// Update 라이선스 수정
// @Summary 라이선스 수정
// @Description 요청 바디에 포함된 필드만 수정합니다. regenerate_key=true이면 키를 재발급합니다(활성화 카운트 유지).
// @Tags 라이선스
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id query string true "라이선스 ID"
// @Param request body models.UpdateLicenseRequest true "수정할 정보"
// @Success 200 {object} models.APIResponse{data=models.License} "수정 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 404 {object} models.APIResponse "라이선스 없음"
// @Failure 409 {object} models.APIResponse "활성 라이선스 충돌"
// @Failure 422 {object} models.APIResponse "좌석 수를 사용량 아래로 축소 불가"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/admin/licenses/ [put]
func (h *LicenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if strings.TrimSpace(id) == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("License ID is required", nil))
		return
	}

	var req models.UpdateLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("Invalid request body", err))
		return
	}

	lic, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLicenseNotFound):
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse("License not found", nil))
		case errors.Is(err, services.ErrProductNotFound):
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse("Product not found", nil))
		case errors.Is(err, services.ErrSeatShrinkBelowUsage):
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(models.ErrorResponse("Cannot reduce max activations below current usage", nil))
		case errors.Is(err, services.ErrActiveLicenseConflict):
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(models.ErrorResponse("User already holds an active license for this product", nil))
		case errors.Is(err, services.ErrInvalidRequest):
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ErrorResponse(err.Error(), nil))
		default:
			logger.WithFields(map[string]interface{}{
				"license_id": id,
				"error":      err.Error(),
			}).Error("Failed to update license")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(models.ErrorResponse("Failed to update license", err))
		}
		return
	}

	logger.WithFields(map[string]interface{}{"license_id": id}).Info("License updated")
	json.NewEncoder(w).Encode(models.SuccessResponse("License updated successfully", lic))
}

// Renew 라이선스 갱신
// @Summary 라이선스 갱신
// @Description 만료일을 연장합니다. 만료된 라이선스는 새 만료일이 미래이면 재활성화됩니다.
// @Tags 라이선스
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id query string true "라이선스 ID"
// @Param request body models.RenewLicenseRequest true "갱신 정보"
// @Success 200 {object} models.APIResponse{data=models.License} "갱신 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 404 {object} models.APIResponse "라이선스 없음"
// @Failure 409 {object} models.APIResponse "활성 라이선스 충돌"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/admin/licenses/renew [post]
func (h *LicenseHandler) Renew(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if strings.TrimSpace(id) == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("License ID is required", nil))
		return
	}

	var req models.RenewLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.ExpiryDate) == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("New expiry date is required", err))
		return
	}

	lic, err := h.service.Renew(r.Context(), id, req.ExpiryDate)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLicenseNotFound):
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse("License not found", nil))
		case errors.Is(err, services.ErrActiveLicenseConflict):
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(models.ErrorResponse("User already holds an active license for this product", nil))
		case errors.Is(err, services.ErrInvalidRequest):
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ErrorResponse("Invalid expiry date", err))
		default:
			logger.WithFields(map[string]interface{}{
				"license_id": id,
				"error":      err.Error(),
			}).Error("Failed to renew license")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(models.ErrorResponse("Failed to renew license", err))
		}
		return
	}

	logger.WithFields(map[string]interface{}{
		"license_id":  id,
		"expiry_date": req.ExpiryDate,
	}).Info("License renewed")
	json.NewEncoder(w).Encode(models.SuccessResponse("License renewed successfully", lic))
}

// Revoke 라이선스 폐기
// @Summary 라이선스 폐기
// @Description 라이선스를 폐기 상태로 전환합니다. 폐기된 키는 검증과 활성화를 통과하지 못합니다.
// @Tags 라이선스
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id query string true "라이선스 ID"
// @Success 200 {object} models.APIResponse "폐기 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 404 {object} models.APIResponse "라이선스 없음"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/admin/licenses/revoke [post]
func (h *LicenseHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if strings.TrimSpace(id) == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("License ID is required", nil))
		return
	}

	if err := h.service.Revoke(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrLicenseNotFound) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse("License not found", nil))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to revoke license", err))
		return
	}

	logger.WithFields(map[string]interface{}{"license_id": id}).Info("License revoked")
	json.NewEncoder(w).Encode(models.SuccessResponse("License revoked successfully", nil))
}

// Delete 라이선스 삭제
// @Summary 라이선스 삭제
// @Description 라이선스를 완전히 삭제합니다. 좌석 할당도 함께 제거됩니다.
// @Tags 라이선스
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id query string true "라이선스 ID"
// @Success 200 {object} models.APIResponse "삭제 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 404 {object} models.APIResponse "라이선스 없음"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/admin/licenses/ [delete]
func (h *LicenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if strings.TrimSpace(id) == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("License ID is required", nil))
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrLicenseNotFound) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse("License not found", nil))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to delete license", err))
		return
	}

	logger.WithFields(map[string]interface{}{"license_id": id}).Info("License deleted")
	json.NewEncoder(w).Encode(models.SuccessResponse("License deleted successfully", nil))
}
