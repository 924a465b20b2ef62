package models

// Product 제품 정보
type Product struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Slug        string `json:"slug" db:"slug"`
	SKU         string `json:"sku" db:"sku"`
	Description string `json:"description" db:"description"`
	Status      string `json:"status" db:"status"` // active, inactive
	CreatedAt   string `json:"created_at" db:"created_at"`
	UpdatedAt   string `json:"updated_at" db:"updated_at"`
}

// ProductStatus 상태 상수
const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

// ProductSummary 라이선스 응답에 포함되는 제품 최소 표시 필드
type ProductSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	SKU  string `json:"sku"`
}

// Summary 제품의 최소 표시 필드를 반환한다.
func (p Product) Summary() ProductSummary {
	return ProductSummary{ID: p.ID, Name: p.Name, Slug: p.Slug, SKU: p.SKU}
}

// CreateProductRequest 제품 생성 요청
type CreateProductRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	SKU         string `json:"sku"`
	Description string `json:"description"`
}

// UpdateProductRequest 제품 수정 요청
type UpdateProductRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	SKU         string `json:"sku"`
	Description string `json:"description"`
	Status      string `json:"status"`
}
