package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"licensegate/logger"
	"licensegate/models"
	"licensegate/utils"
)

var (
	// ErrInvalidRequest는 검증 입력이 불완전할 때 반환됩니다 (빈 키, 제품 미해석).
	ErrInvalidRequest = errors.New("invalid request")
	// ErrLicenseNotFound는 라이선스가 존재하지 않을 때 반환됩니다.
	ErrLicenseNotFound = errors.New("license not found")
	// ErrLicenseNotActive는 활성 상태가 아닌 라이선스에 대한 좌석 요청에 반환됩니다.
	ErrLicenseNotActive = errors.New("license is not active")
	// ErrLicenseExpired는 만료된(또는 만료일 없는 정책 위반) 라이선스에 반환됩니다.
	ErrLicenseExpired = errors.New("license has expired")
	// ErrSeatLimitExceeded는 좌석이 모두 사용 중일 때 반환됩니다.
	ErrSeatLimitExceeded = errors.New("seat limit exceeded")
	// ErrSeatShrinkBelowUsage는 max_activations를 현재 사용량 아래로 줄이려 할 때 반환됩니다.
	ErrSeatShrinkBelowUsage = errors.New("cannot reduce max activations below current usage")
	// ErrActiveLicenseConflict는 사용자+제품의 활성 라이선스 유일 제약과 충돌할 때 반환됩니다.
	ErrActiveLicenseConflict = errors.New("user already holds an active license for this product")
	// ErrKeyExhausted는 유일한 키 생성 재시도가 모두 실패했을 때 반환됩니다.
	ErrKeyExhausted = errors.New("could not generate a unique license key")
)

// errSeatAlreadyHeld는 동일 디바이스의 동시 요청과 경쟁에서 졌을 때
// 트랜잭션을 롤백시키기 위한 내부 신호다. 호출자에게는 멱등 성공으로 처리된다.
var errSeatAlreadyHeld = errors.New("seat already held by this device")

const (
	defaultMaxActivations = 3
	defaultValidityDays   = 365
	keyInsertRetries      = 5

	// status가 active인 동안 activation_slot에 유지되는 값.
	// UNIQUE(user_id, product_id, activation_slot)와 결합해
	// 사용자당 제품별 활성 라이선스를 1개로 제한한다.
	slotOccupied = "on"
)

// IssueParams 라이선스 발급 파라미터.
// 비어 있는 필드는 체크아웃 기본 정책으로 채워진다.
type IssueParams struct {
	UserID         string
	ProductID      string
	ProductSlug    string
	SKU            string
	Type           models.LicenseType // 기본값 subscription
	ExpiryDate     *string            // nil이면 발급일 + 1년
	MaxActivations int                // 0 이하이면 3
}

// LicenseFilter 라이선스 목록 조회 필터
type LicenseFilter struct {
	Status    string
	ProductID string
	UserID    string
	Search    string
	Page      int
	PageSize  int
}

// IssueResult 발급 결과. Created가 false이면 기존 활성 라이선스를 반환한 것이다.
type IssueResult struct {
	License models.License
	Product models.ProductSummary
	Created bool
}

// LicenseService는 라이선스 수명주기 전체(발급, 검증, 좌석 할당, 수정)를 소유한다.
type LicenseService interface {
	Validate(ctx context.Context, req models.ValidateLicenseRequest) (models.ValidateLicenseResponse, error)
	Issue(ctx context.Context, params IssueParams) (IssueResult, error)
	ActivateSeat(ctx context.Context, req models.ActivateSeatRequest) (models.License, bool, error)
	Get(ctx context.Context, id string) (models.License, error)
	List(ctx context.Context, filter LicenseFilter) ([]models.License, int, error)
	Update(ctx context.Context, id string, req models.UpdateLicenseRequest) (models.License, error)
	Renew(ctx context.Context, id string, expiryDate string) (models.License, error)
	Revoke(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type licenseService struct {
	db       SQLExecutor
	products ProductService
	keys     *KeyGenerator

	// allowNoExpiry가 false(기본)이면 만료일이 없는 라이선스는 검증을 통과하지
	// 못한다. 원본 정책을 그대로 따르되 명시적인 설정으로 노출한 것이다.
	allowNoExpiry bool
}

// NewLicenseService는 LicenseService 구현체를 생성합니다.
func NewLicenseService(db SQLExecutor, products ProductService, keys *KeyGenerator, allowNoExpiry bool) LicenseService {
	return &licenseService{
		db:            db,
		products:      products,
		keys:          keys,
		allowNoExpiry: allowNoExpiry,
	}
}

const licenseColumns = `l.id, l.license_key, l.product_id, l.user_id, l.status, l.license_type,
	l.expiry_date, l.max_activations, l.activations_count, l.renewed_at,
	l.last_device_id, l.last_machine_name, l.last_mac_address, l.last_activated_at,
	l.created_at, l.updated_at`

// Validate 라이선스 키 검증. 순수 조회 연산으로 어떤 상태도 변경하지 않는다.
// 매칭 실패/만료는 valid=false 응답이지 에러가 아니다. 입력 불완전만 에러다.
func (s *licenseService) Validate(ctx context.Context, req models.ValidateLicenseRequest) (models.ValidateLicenseResponse, error) {
	key := strings.TrimSpace(req.Key)
	if key == "" {
		return models.ValidateLicenseResponse{}, ErrInvalidRequest
	}

	product, err := s.products.Resolve(ctx, req.ProductID, req.Product, req.SKU)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return models.ValidateLicenseResponse{}, ErrInvalidRequest
		}
		return models.ValidateLicenseResponse{}, err
	}

	resp := models.ValidateLicenseResponse{
		LicenseKey: key,
		ProductID:  product.ID,
	}

	// 키 + 제품 + 활성 상태의 복합 필터로 조회한다.
	lic, err := s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT `+licenseColumns+` FROM licenses l
		WHERE l.license_key = ? AND l.product_id = ? AND l.status = ?`,
		key, product.ID, models.LicenseStatusActive,
	))
	if err == sql.ErrNoRows {
		resp.Message = "Invalid or expired license"
		return resp, nil
	}
	if err != nil {
		return models.ValidateLicenseResponse{}, err
	}

	resp.Status = string(lic.Status)

	if !lic.HasExpiry() {
		if s.allowNoExpiry {
			resp.Valid = true
			resp.Message = "License is valid"
			return resp, nil
		}
		// 만료일 없는 키는 통과하지 못한다 (기본 정책, config.AllowNoExpiry 참고).
		resp.Message = "Invalid or expired license"
		return resp, nil
	}

	endOfDay, err := utils.EndOfDay(*lic.ExpiryDate)
	if err != nil {
		return models.ValidateLicenseResponse{}, fmt.Errorf("bad expiry date on license %s: %w", lic.ID, err)
	}

	now := utils.NowUTC()
	days, _ := utils.DaysUntil(*lic.ExpiryDate, now)
	resp.ExpiresAt = endOfDay.Format(time.RFC3339)
	resp.DaysLeft = &days

	if endOfDay.After(now) {
		resp.Valid = true
		resp.Message = "License is valid"
	} else {
		resp.Message = "License has expired"
	}

	return resp, nil
}

// Issue 라이선스 발급 (체크아웃 최초 활성화 / 관리자 발급 공용).
// 사용자가 해당 제품의 활성 라이선스를 이미 보유하면 그대로 반환한다(멱등).
func (s *licenseService) Issue(ctx context.Context, params IssueParams) (IssueResult, error) {
	product, err := s.products.Resolve(ctx, params.ProductID, params.ProductSlug, params.SKU)
	if err != nil {
		return IssueResult{}, err
	}

	userID := strings.TrimSpace(params.UserID)
	now := utils.NowUTC()

	if userID != "" {
		existing, err := s.findActiveForUser(ctx, userID, product.ID)
		if err != nil && err != sql.ErrNoRows {
			return IssueResult{}, err
		}
		if err == nil {
			if !existing.IsExpired() {
				return IssueResult{License: existing, Product: product.Summary(), Created: false}, nil
			}
			// 활성 상태로 남아 있지만 만료일이 지난 라이선스는 자리(slot)를
			// 비워줘야 새 발급이 가능하다. 스케줄러보다 먼저 도달한 경우다.
			if err := s.markExpired(ctx, existing.ID); err != nil {
				return IssueResult{}, err
			}
		}
	}

	licType := params.Type
	if licType == "" {
		licType = models.LicenseTypeSubscription
	}

	maxActivations := params.MaxActivations
	if maxActivations <= 0 {
		maxActivations = defaultMaxActivations
	}

	var expiryDate *string
	if params.ExpiryDate != nil {
		expiryDate = params.ExpiryDate
	} else {
		d := utils.FormatDateOnly(now.Add(defaultValidityDays * 24 * time.Hour))
		expiryDate = &d
	}

	nowStr := utils.FormatDateTimeForDB(now)

	var dbUserID any
	if userID != "" {
		dbUserID = userID
	}

	for attempt := 0; attempt < keyInsertRetries; attempt++ {
		key := s.keys.Generate()
		id, err := utils.GenerateID("lic")
		if err != nil {
			return IssueResult{}, err
		}

		_, err = s.db.ExecContext(ctx, `
			INSERT INTO licenses (id, license_key, product_id, user_id, status, license_type,
				expiry_date, max_activations, activations_count, activation_slot, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
			id, key, product.ID, dbUserID, models.LicenseStatusActive, licType,
			expiryDate, maxActivations, slotOccupied, nowStr, nowStr,
		)
		if err == nil {
			s.logActivity(ctx, id, models.ActionLicenseIssued,
				fmt.Sprintf("product=%s user=%s type=%s", product.SKU, userID, licType))

			lic, err := s.Get(ctx, id)
			if err != nil {
				return IssueResult{}, err
			}
			return IssueResult{License: lic, Product: product.Summary(), Created: true}, nil
		}

		if !isDuplicateKeyError(err) {
			return IssueResult{}, err
		}

		// 중복 제약 위반: 동시 발급 경쟁에서 진 경우(활성 라이선스 유일 제약)라면
		// 승자를 "이미 발급됨"으로 돌려준다. 아니면 키 충돌이므로 새 키로 재시도.
		if userID != "" {
			if winner, werr := s.findActiveForUser(ctx, userID, product.ID); werr == nil {
				return IssueResult{License: winner, Product: product.Summary(), Created: false}, nil
			}
		}
	}

	return IssueResult{}, ErrKeyExhausted
}

// ActivateSeat 좌석 할당. 카운터 증가는 단일 조건부 UPDATE로만 수행하며
// (activations_count < max_activations 검사가 저장소에서 원자적으로 평가됨)
// 같은 디바이스의 재활성화는 좌석을 추가로 소비하지 않는다.
func (s *licenseService) ActivateSeat(ctx context.Context, req models.ActivateSeatRequest) (models.License, bool, error) {
	key := strings.TrimSpace(req.Key)
	deviceID := strings.TrimSpace(req.DeviceID)
	if key == "" || deviceID == "" {
		return models.License{}, false, ErrInvalidRequest
	}

	lic, err := s.getByKey(ctx, key)
	if err != nil {
		return models.License{}, false, err
	}

	if lic.Status != models.LicenseStatusActive {
		return lic, false, ErrLicenseNotActive
	}
	if lic.IsExpired() || (!lic.HasExpiry() && !s.allowNoExpiry) {
		return lic, false, ErrLicenseExpired
	}

	nowStr := utils.FormatDateTimeForDB(utils.NowUTC())
	admitted := false

	err = inTx(ctx, s.db, func(tx *sql.Tx) error {
		var existingSeat string
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM seat_activations WHERE license_id = ? AND device_id = ?",
			lic.ID, deviceID,
		).Scan(&existingSeat)
		if err == nil {
			// 이미 좌석을 보유한 디바이스: 멱등 처리, 카운터 불변.
			return nil
		}
		if err != sql.ErrNoRows {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE licenses
			SET activations_count = activations_count + 1,
				last_device_id = ?, last_machine_name = ?, last_mac_address = ?,
				last_activated_at = ?, updated_at = ?
			WHERE id = ? AND activations_count < max_activations`,
			deviceID, req.MachineName, req.MACAddress, nowStr, nowStr, lic.ID,
		)
		if err != nil {
			return err
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrSeatLimitExceeded
		}

		seatID, err := utils.GenerateID("seat")
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO seat_activations (id, license_id, device_id, machine_name, mac_address, activated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			seatID, lic.ID, deviceID, req.MachineName, req.MACAddress, nowStr,
		); err != nil {
			// 동일 디바이스의 동시 요청과 경쟁: 상대가 좌석을 이미 넣었다.
			// 에러로 반환해 트랜잭션을 롤백시키고 카운터 증가도 함께 취소한다.
			if isDuplicateKeyError(err) {
				return errSeatAlreadyHeld
			}
			return err
		}

		admitted = true
		return nil
	})
	if errors.Is(err, errSeatAlreadyHeld) {
		err = nil
	}
	if err != nil {
		if errors.Is(err, ErrSeatLimitExceeded) {
			s.logActivity(ctx, lic.ID, models.ActionSeatRejected,
				fmt.Sprintf("device=%s seats=%d/%d", deviceID, lic.ActivationsCount, lic.MaxActivations))
		}
		return lic, false, err
	}

	if admitted {
		s.logActivity(ctx, lic.ID, models.ActionSeatActivated,
			fmt.Sprintf("device=%s machine=%s", deviceID, req.MachineName))
	}

	fresh, err := s.Get(ctx, lic.ID)
	if err != nil {
		return lic, admitted, nil
	}
	return fresh, admitted, nil
}

// Get 라이선스 단건 조회 (제품명 포함)
func (s *licenseService) Get(ctx context.Context, id string) (models.License, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+licenseColumns+`, COALESCE(p.name, '')
		FROM licenses l LEFT JOIN products p ON l.product_id = p.id
		WHERE l.id = ?`, id)

	lic, err := s.scanOneWithProduct(row)
	if err == sql.ErrNoRows {
		return models.License{}, ErrLicenseNotFound
	}
	return lic, err
}

// List 라이선스 목록 조회 (페이징)
func (s *licenseService) List(ctx context.Context, filter LicenseFilter) ([]models.License, int, error) {
	where := " WHERE 1=1"
	args := make([]any, 0)

	if filter.Status != "" {
		where += " AND l.status = ?"
		args = append(args, filter.Status)
	}
	if filter.ProductID != "" {
		where += " AND l.product_id = ?"
		args = append(args, filter.ProductID)
	}
	if filter.UserID != "" {
		where += " AND l.user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.Search != "" {
		where += " AND l.license_key LIKE ?"
		args = append(args, "%"+filter.Search+"%")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM licenses l"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := `SELECT ` + licenseColumns + `, COALESCE(p.name, '')
		FROM licenses l LEFT JOIN products p ON l.product_id = p.id` + where +
		" ORDER BY l.created_at DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	licenses := make([]models.License, 0)
	for rows.Next() {
		lic, err := s.scanRowsWithProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		licenses = append(licenses, lic)
	}

	return licenses, total, rows.Err()
}

// Update 라이선스 부분 수정. 요청에 존재하는 필드만 반영하며 키 재발급은
// 다른 필드 변경과 독립적으로 수행된다. 키 재발급은 activations_count를
// 초기화하지 않는다.
func (s *licenseService) Update(ctx context.Context, id string, req models.UpdateLicenseRequest) (models.License, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return models.License{}, err
	}

	set := make([]string, 0, 8)
	args := make([]any, 0, 8)

	if req.Status.Set {
		if !req.Status.Valid {
			return models.License{}, fmt.Errorf("%w: status cannot be null", ErrInvalidRequest)
		}
		status, err := models.ParseLicenseStatus(req.Status.Value)
		if err != nil {
			return models.License{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		set = append(set, "status = ?")
		args = append(args, status)

		// 활성 라이선스 유일 제약을 위한 slot 동기화
		if status == models.LicenseStatusActive {
			set = append(set, "activation_slot = ?")
			args = append(args, slotOccupied)
		} else {
			set = append(set, "activation_slot = NULL")
		}
	}

	if req.Type.Set {
		if !req.Type.Valid {
			return models.License{}, fmt.Errorf("%w: type cannot be null", ErrInvalidRequest)
		}
		licType, err := models.ParseLicenseType(req.Type.Value)
		if err != nil {
			return models.License{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		set = append(set, "license_type = ?")
		args = append(args, licType)
	}

	if req.ExpiryDate.Set {
		if req.ExpiryDate.Valid {
			ts, err := utils.ParseUserDate(req.ExpiryDate.Value)
			if err != nil {
				return models.License{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
			}
			set = append(set, "expiry_date = ?")
			args = append(args, utils.FormatDateOnly(ts))
		} else {
			// null: 만료일 제거 (영구 라이선스화)
			set = append(set, "expiry_date = NULL")
		}
	}

	if req.MaxActivations.Set {
		if !req.MaxActivations.Valid || req.MaxActivations.Value < 1 {
			return models.License{}, fmt.Errorf("%w: max_activations must be >= 1", ErrInvalidRequest)
		}
		if req.MaxActivations.Value < current.ActivationsCount {
			return models.License{}, ErrSeatShrinkBelowUsage
		}
		set = append(set, "max_activations = ?")
		args = append(args, req.MaxActivations.Value)
	}

	if req.UserID.Set {
		if req.UserID.Valid {
			set = append(set, "user_id = ?")
			args = append(args, req.UserID.Value)
		} else {
			set = append(set, "user_id = NULL")
		}
	}

	if req.ProductID.Set {
		if !req.ProductID.Valid {
			return models.License{}, fmt.Errorf("%w: product_id cannot be null", ErrInvalidRequest)
		}
		if _, err := s.products.Get(ctx, req.ProductID.Value); err != nil {
			return models.License{}, err
		}
		set = append(set, "product_id = ?")
		args = append(args, req.ProductID.Value)
	}

	regenerate := req.RegenerateKey
	if len(set) == 0 && !regenerate {
		return current, nil
	}

	for attempt := 0; attempt < keyInsertRetries; attempt++ {
		stmt := set
		stmtArgs := args

		if regenerate {
			stmt = append(append([]string{}, set...), "license_key = ?")
			stmtArgs = append(append([]any{}, args...), s.keys.Generate())
		}

		stmt = append(stmt, "updated_at = ?")
		stmtArgs = append(stmtArgs, utils.FormatDateTimeForDB(utils.NowUTC()), id)

		query := "UPDATE licenses SET " + strings.Join(stmt, ", ") + " WHERE id = ?"
		_, err := s.db.ExecContext(ctx, query, stmtArgs...)
		if err == nil {
			if regenerate {
				s.logActivity(ctx, id, models.ActionKeyRegenerated, "key regenerated by admin")
			}
			s.logActivity(ctx, id, models.ActionLicenseUpdated, "license updated by admin")
			return s.Get(ctx, id)
		}

		if !isDuplicateKeyError(err) {
			return models.License{}, err
		}

		// 키 재발급 중 충돌이면 새 키로 재시도. 그 외의 중복은
		// 활성 라이선스 유일 제약 위반이다.
		if !regenerate {
			return models.License{}, ErrActiveLicenseConflict
		}
	}

	return models.License{}, ErrKeyExhausted
}

// Renew 만료일 연장. renewed_at을 기록하고, 만료 상태였다면 재활성화를 시도한다.
func (s *licenseService) Renew(ctx context.Context, id string, expiryDate string) (models.License, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return models.License{}, err
	}

	ts, err := utils.ParseUserDate(expiryDate)
	if err != nil {
		return models.License{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	newDate := utils.FormatDateOnly(ts)
	nowStr := utils.FormatDateTimeForDB(utils.NowUTC())

	reactivate := current.Status == models.LicenseStatusExpired &&
		newDate >= utils.FormatDateOnly(utils.NowUTC())

	if reactivate {
		_, err = s.db.ExecContext(ctx, `
			UPDATE licenses
			SET expiry_date = ?, renewed_at = ?, status = ?, activation_slot = ?, updated_at = ?
			WHERE id = ?`,
			newDate, nowStr, models.LicenseStatusActive, slotOccupied, nowStr, id,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				// 그 사이 같은 사용자에게 새 활성 라이선스가 발급된 경우
				return models.License{}, ErrActiveLicenseConflict
			}
			return models.License{}, err
		}
		s.logActivity(ctx, id, models.ActionLicenseReactivated, "reactivated by renewal to "+newDate)
	} else {
		_, err = s.db.ExecContext(ctx, `
			UPDATE licenses SET expiry_date = ?, renewed_at = ?, updated_at = ? WHERE id = ?`,
			newDate, nowStr, nowStr, id,
		)
		if err != nil {
			return models.License{}, err
		}
	}

	s.logActivity(ctx, id, models.ActionLicenseRenewed, "renewed to "+newDate)
	return s.Get(ctx, id)
}

// Revoke 라이선스 폐기
func (s *licenseService) Revoke(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE licenses SET status = ?, activation_slot = NULL, updated_at = ? WHERE id = ?`,
		models.LicenseStatusRevoked, utils.FormatDateTimeForDB(utils.NowUTC()), id,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrLicenseNotFound
	}
	if err != nil {
		return err
	}

	s.logActivity(ctx, id, models.ActionLicenseRevoked, "revoked by admin")
	return nil
}

// Delete 라이선스 삭제. 좌석 할당은 FK로 함께 삭제되고 활동 로그도 정리한다.
func (s *licenseService) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM licenses WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrLicenseNotFound
	}
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM activation_logs WHERE license_id = ?", id); err != nil {
		logger.Warn("Failed to prune activation logs for %s: %v", id, err)
	}
	return nil
}

func (s *licenseService) findActiveForUser(ctx context.Context, userID, productID string) (models.License, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT `+licenseColumns+` FROM licenses l
		WHERE l.user_id = ? AND l.product_id = ? AND l.status = ?`,
		userID, productID, models.LicenseStatusActive,
	))
}

func (s *licenseService) getByKey(ctx context.Context, key string) (models.License, error) {
	lic, err := s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT `+licenseColumns+` FROM licenses l WHERE l.license_key = ?`, key))
	if err == sql.ErrNoRows {
		return models.License{}, ErrLicenseNotFound
	}
	return lic, err
}

// markExpired 만료일이 지난 라이선스를 expired로 전환하고 slot을 비운다.
func (s *licenseService) markExpired(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE licenses SET status = ?, activation_slot = NULL, updated_at = ? WHERE id = ?`,
		models.LicenseStatusExpired, utils.FormatDateTimeForDB(utils.NowUTC()), id,
	)
	if err == nil {
		s.logActivity(ctx, id, models.ActionLicenseExpired, "expired before reissue")
	}
	return err
}

func (s *licenseService) logActivity(ctx context.Context, licenseID, action, details string) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activation_logs (license_id, action, details, created_at) VALUES (?, ?, ?, ?)`,
		licenseID, action, details, utils.FormatDateTimeForDB(utils.NowUTC()),
	)
	if err != nil {
		logger.Error("Failed to log license activity: %v", err)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLicense(row rowScanner, withProduct bool) (models.License, error) {
	var (
		lic         models.License
		userID      sql.NullString
		expiryDate  sql.NullString
		renewedAt   sql.NullString
		deviceID    sql.NullString
		machineName sql.NullString
		macAddress  sql.NullString
		activatedAt sql.NullString
	)

	dest := []any{
		&lic.ID, &lic.LicenseKey, &lic.ProductID, &userID, &lic.Status, &lic.Type,
		&expiryDate, &lic.MaxActivations, &lic.ActivationsCount, &renewedAt,
		&deviceID, &machineName, &macAddress, &activatedAt,
		&lic.CreatedAt, &lic.UpdatedAt,
	}
	if withProduct {
		dest = append(dest, &lic.ProductName)
	}

	if err := row.Scan(dest...); err != nil {
		return models.License{}, err
	}

	if userID.Valid {
		lic.UserID = &userID.String
	}
	if expiryDate.Valid && expiryDate.String != "" {
		lic.ExpiryDate = &expiryDate.String
	}
	if renewedAt.Valid {
		lic.RenewedAt = &renewedAt.String
	}
	if deviceID.Valid {
		lic.LastDeviceID = &deviceID.String
	}
	if machineName.Valid {
		lic.LastMachineName = &machineName.String
	}
	if macAddress.Valid {
		lic.LastMACAddress = &macAddress.String
	}
	if activatedAt.Valid {
		lic.LastActivatedAt = &activatedAt.String
	}

	return lic, nil
}

func (s *licenseService) scanOne(row *sql.Row) (models.License, error) {
	return scanLicense(row, false)
}

func (s *licenseService) scanOneWithProduct(row *sql.Row) (models.License, error) {
	return scanLicense(row, true)
}

func (s *licenseService) scanRowsWithProduct(rows *sql.Rows) (models.License, error) {
	return scanLicense(rows, true)
}
