package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"licensegate/models"
	"licensegate/utils"
)

var (
	// ErrProductConflict는 슬러그 또는 SKU가 겹치는 제품이 이미 존재할 때 반환됩니다.
	ErrProductConflict = errors.New("product slug or sku already exists")
	// ErrProductNotFound는 제품이 존재하지 않을 때 반환됩니다.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductLinkedLicenses는 연결된 라이선스로 인해 삭제가 제한될 때 반환됩니다.
	ErrProductLinkedLicenses = errors.New("product has linked licenses")
)

// ProductService는 제품 도메인에 대한 비즈니스 로직을 정의합니다.
type ProductService interface {
	Create(ctx context.Context, req models.CreateProductRequest) (models.Product, error)
	List(ctx context.Context, status string) ([]models.Product, error)
	Get(ctx context.Context, id string) (models.Product, error)
	// Resolve는 id → slug → sku 우선순위로 제품을 찾는다.
	Resolve(ctx context.Context, id, slug, sku string) (models.Product, error)
	Update(ctx context.Context, id string, req models.UpdateProductRequest) error
	Delete(ctx context.Context, id string) error
}

type productService struct {
	db SQLExecutor
}

// NewProductService는 ProductService 구현체를 생성합니다.
func NewProductService(db SQLExecutor) ProductService {
	return &productService{db: db}
}

const productColumns = `id, name, slug, sku, description, status, created_at, updated_at`

func (s *productService) Create(ctx context.Context, req models.CreateProductRequest) (models.Product, error) {
	id, err := utils.GenerateID("prod")
	if err != nil {
		return models.Product{}, err
	}

	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = slugify(req.Name)
	}

	now := time.Now().UTC().Format("2006-01-02 15:04:05")
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, slug, sku, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, req.Name, slug, strings.TrimSpace(req.SKU), req.Description,
		models.ProductStatusActive, now, now,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return models.Product{}, ErrProductConflict
		}
		return models.Product{}, err
	}

	return models.Product{
		ID:          id,
		Name:        req.Name,
		Slug:        slug,
		SKU:         strings.TrimSpace(req.SKU),
		Description: req.Description,
		Status:      models.ProductStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *productService) List(ctx context.Context, status string) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := make([]any, 0)

	if strings.TrimSpace(status) != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		var product models.Product
		if err := rows.Scan(&product.ID, &product.Name, &product.Slug, &product.SKU,
			&product.Description, &product.Status, &product.CreatedAt, &product.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	return products, rows.Err()
}

func (s *productService) Get(ctx context.Context, id string) (models.Product, error) {
	return s.getBy(ctx, "id", id)
}

func (s *productService) Resolve(ctx context.Context, id, slug, sku string) (models.Product, error) {
	switch {
	case strings.TrimSpace(id) != "":
		return s.getBy(ctx, "id", strings.TrimSpace(id))
	case strings.TrimSpace(slug) != "":
		return s.getBy(ctx, "slug", strings.TrimSpace(slug))
	case strings.TrimSpace(sku) != "":
		return s.getBy(ctx, "sku", strings.TrimSpace(sku))
	default:
		return models.Product{}, ErrProductNotFound
	}
}

func (s *productService) getBy(ctx context.Context, column, value string) (models.Product, error) {
	var product models.Product

	err := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE `+column+` = ?`, value,
	).Scan(&product.ID, &product.Name, &product.Slug, &product.SKU,
		&product.Description, &product.Status, &product.CreatedAt, &product.UpdatedAt)

	if err == sql.ErrNoRows {
		return models.Product{}, ErrProductNotFound
	}
	if err != nil {
		return models.Product{}, err
	}
	return product, nil
}

func (s *productService) Update(ctx context.Context, id string, req models.UpdateProductRequest) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = ?, slug = ?, sku = ?, description = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		req.Name, req.Slug, req.SKU, req.Description, req.Status,
		time.Now().UTC().Format("2006-01-02 15:04:05"), id,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrProductConflict
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrProductNotFound
	}
	return err
}

func (s *productService) Delete(ctx context.Context, id string) error {
	var linked int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM licenses WHERE product_id = ?", id).Scan(&linked); err != nil {
		return err
	}
	if linked > 0 {
		return ErrProductLinkedLicenses
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrProductNotFound
	}
	return err
}

// slugify 제품명에서 URL 슬러그 생성 ("Modeler Advanced" → "modeler-advanced")
func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "1062")
}
