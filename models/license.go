package models

import (
	"fmt"
	"time"
)

// LicenseStatus 라이선스 상태. 입력 경계에서 ParseLicenseStatus로만 생성한다.
type LicenseStatus string

const (
	LicenseStatusActive  LicenseStatus = "active"
	LicenseStatusExpired LicenseStatus = "expired"
	LicenseStatusRevoked LicenseStatus = "revoked"
	LicenseStatusTrial   LicenseStatus = "trial"
)

// ParseLicenseStatus 외부 입력 문자열을 상태 값으로 변환한다.
func ParseLicenseStatus(s string) (LicenseStatus, error) {
	switch LicenseStatus(s) {
	case LicenseStatusActive, LicenseStatusExpired, LicenseStatusRevoked, LicenseStatusTrial:
		return LicenseStatus(s), nil
	default:
		return "", fmt.Errorf("invalid license status: %q", s)
	}
}

// LicenseType 라이선스 종류
type LicenseType string

const (
	LicenseTypePermanent    LicenseType = "permanent"
	LicenseTypeSubscription LicenseType = "subscription"
	LicenseTypeSeatBased    LicenseType = "seat-based"
)

// ParseLicenseType 외부 입력 문자열을 종류 값으로 변환한다.
func ParseLicenseType(s string) (LicenseType, error) {
	switch LicenseType(s) {
	case LicenseTypePermanent, LicenseTypeSubscription, LicenseTypeSeatBased:
		return LicenseType(s), nil
	default:
		return "", fmt.Errorf("invalid license type: %q", s)
	}
}

// License 라이선스 정보
type License struct {
	ID               string        `json:"id" db:"id"`
	LicenseKey       string        `json:"license_key" db:"license_key"`
	ProductID        string        `json:"product_id" db:"product_id"`
	ProductName      string        `json:"product_name,omitempty" db:"product_name"`
	UserID           *string       `json:"user_id" db:"user_id"`
	Status           LicenseStatus `json:"status" db:"status"`
	Type             LicenseType   `json:"type" db:"license_type"`
	ExpiryDate       *string       `json:"expiry_date" db:"expiry_date"` // YYYY-MM-DD, nil이면 만료일 없음
	MaxActivations   int           `json:"max_activations" db:"max_activations"`
	ActivationsCount int           `json:"activations_count" db:"activations_count"`
	RenewedAt        *string       `json:"renewed_at,omitempty" db:"renewed_at"`
	LastDeviceID     *string       `json:"last_device_id,omitempty" db:"last_device_id"`
	LastMachineName  *string       `json:"last_machine_name,omitempty" db:"last_machine_name"`
	LastMACAddress   *string       `json:"last_mac_address,omitempty" db:"last_mac_address"`
	LastActivatedAt  *string       `json:"last_activated_at,omitempty" db:"last_activated_at"`
	CreatedAt        string        `json:"created_at" db:"created_at"`
	UpdatedAt        string        `json:"updated_at" db:"updated_at"`
}

// HasExpiry 만료일 보유 여부
func (l *License) HasExpiry() bool {
	return l.ExpiryDate != nil && *l.ExpiryDate != ""
}

// IsExpired 만료 여부 확인. 만료일 당일은 하루가 끝날 때까지 유효하다.
// 만료일이 없는 라이선스는 이 기준으로는 만료되지 않는다.
func (l *License) IsExpired() bool {
	if !l.HasExpiry() {
		return false
	}
	return *l.ExpiryDate < time.Now().UTC().Format("2006-01-02")
}

// IsActive 활성 여부 확인
func (l *License) IsActive() bool {
	return l.Status == LicenseStatusActive && !l.IsExpired()
}

// SeatActivation 좌석(디바이스) 할당 정보
type SeatActivation struct {
	ID          string `json:"id" db:"id"`
	LicenseID   string `json:"license_id" db:"license_id"`
	DeviceID    string `json:"device_id" db:"device_id"`
	MachineName string `json:"machine_name" db:"machine_name"`
	MACAddress  string `json:"mac_address" db:"mac_address"`
	ActivatedAt string `json:"activated_at" db:"activated_at"`
}

// ValidateLicenseRequest 라이선스 검증 요청.
// 제품은 product_id → product(슬러그) → sku 순서로 해석한다.
type ValidateLicenseRequest struct {
	Key       string `json:"key"`
	ProductID string `json:"product_id"`
	Product   string `json:"product"`
	SKU       string `json:"sku"`
	DeviceID  string `json:"device_id"` // 수집만 하고 검증에는 사용하지 않음
}

// ValidateLicenseResponse 라이선스 검증 응답.
// 데스크톱 클라이언트 호환을 위해 APIResponse 래핑 없이 평면 구조로 내려간다.
type ValidateLicenseResponse struct {
	Valid      bool   `json:"valid"`
	LicenseKey string `json:"license_key,omitempty"`
	ProductID  string `json:"product_id,omitempty"`
	Status     string `json:"status,omitempty"`
	ExpiresAt  string `json:"expires_at,omitempty"`
	DaysLeft   *int   `json:"days_left,omitempty"`
	Message    string `json:"message"`
}

// ActivateSeatRequest 좌석 할당(디바이스 활성화) 요청
type ActivateSeatRequest struct {
	Key         string `json:"key"`
	DeviceID    string `json:"device_id"`
	MachineName string `json:"machine_name"`
	MACAddress  string `json:"mac_address"`
}

// IssueLicenseRequest 라이선스 발급 요청 (체크아웃/관리자 공용)
type IssueLicenseRequest struct {
	UserID         string `json:"user_id"`
	ProductID      string `json:"product_id"`
	Product        string `json:"product"`
	SKU            string `json:"sku"`
	Type           string `json:"type"`
	ExpiryDate     string `json:"expiry_date"`
	MaxActivations int    `json:"max_activations"`
}

// UpdateLicenseRequest 라이선스 부분 수정 요청.
// 요청 바디에 없는 필드는 건드리지 않으며, null로 보낸 필드는 값을 비운다.
type UpdateLicenseRequest struct {
	Status         OptionalString `json:"status"`
	Type           OptionalString `json:"type"`
	ExpiryDate     OptionalString `json:"expiry_date"`
	MaxActivations OptionalInt    `json:"max_activations"`
	UserID         OptionalString `json:"user_id"`
	ProductID      OptionalString `json:"product_id"`
	RegenerateKey  bool           `json:"regenerate_key"`
}

// RenewLicenseRequest 라이선스 갱신 요청
type RenewLicenseRequest struct {
	ExpiryDate string `json:"expiry_date"`
}

// 활동 로그 액션 상수
const (
	ActionLicenseIssued      = "license_issued"
	ActionLicenseRenewed     = "license_renewed"
	ActionLicenseRevoked     = "license_revoked"
	ActionLicenseUpdated     = "license_updated"
	ActionLicenseExpired     = "license_expired"
	ActionKeyRegenerated     = "key_regenerated"
	ActionSeatActivated      = "seat_activated"
	ActionSeatRejected       = "seat_rejected"
	ActionLicenseReactivated = "license_reactivated"
)
