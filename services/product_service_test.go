package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensegate/models"
)

func TestProductCreateGeneratesSlug(t *testing.T) {
	_, products, _ := newTestService(t)
	ctx := context.Background()

	created, err := products.Create(ctx, models.CreateProductRequest{
		Name: "Texture Painter Pro",
		SKU:  "TP-001",
	})
	require.NoError(t, err)

	assert.Equal(t, "texture-painter-pro", created.Slug)
	assert.Equal(t, models.ProductStatusActive, created.Status)

	found, err := products.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Slug, found.Slug)
}

func TestProductCreateConflicts(t *testing.T) {
	_, products, _ := newTestService(t)
	ctx := context.Background()

	// 샘플 제품 prod-001의 SKU와 충돌
	_, err := products.Create(ctx, models.CreateProductRequest{
		Name: "Another Modeler",
		SKU:  "MA-001",
	})
	assert.ErrorIs(t, err, ErrProductConflict)

	// 슬러그 충돌
	_, err = products.Create(ctx, models.CreateProductRequest{
		Name: "Whatever",
		Slug: "modeler-advanced",
		SKU:  "XX-001",
	})
	assert.ErrorIs(t, err, ErrProductConflict)
}

func TestProductResolvePrecedence(t *testing.T) {
	_, products, _ := newTestService(t)
	ctx := context.Background()

	// id가 나머지보다 우선
	p, err := products.Resolve(ctx, "prod-001", "modeler-standard", "RF-001")
	require.NoError(t, err)
	assert.Equal(t, "prod-001", p.ID)

	// id가 없으면 슬러그 우선
	p, err = products.Resolve(ctx, "", "modeler-standard", "RF-001")
	require.NoError(t, err)
	assert.Equal(t, "prod-002", p.ID)

	// 슬러그도 없으면 SKU
	p, err = products.Resolve(ctx, "", "", "RF-001")
	require.NoError(t, err)
	assert.Equal(t, "prod-003", p.ID)

	_, err = products.Resolve(ctx, "", "", "")
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = products.Resolve(ctx, "prod-missing", "modeler-standard", "")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductListByStatus(t *testing.T) {
	_, products, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, products.Update(ctx, "prod-003", models.UpdateProductRequest{
		Name:   "Render Farm Node",
		Slug:   "render-farm-node",
		SKU:    "RF-001",
		Status: models.ProductStatusInactive,
	}))

	active, err := products.List(ctx, models.ProductStatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	all, err := products.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestProductDeleteRestrictedByLicenses(t *testing.T) {
	licenses, products, _ := newTestService(t)
	ctx := context.Background()

	_, err := licenses.Issue(ctx, IssueParams{UserID: "prod-del", ProductID: "prod-001"})
	require.NoError(t, err)

	assert.ErrorIs(t, products.Delete(ctx, "prod-001"), ErrProductLinkedLicenses)

	// 라이선스가 없는 제품은 삭제 가능
	require.NoError(t, products.Delete(ctx, "prod-003"))
	_, err = products.Get(ctx, "prod-003")
	assert.ErrorIs(t, err, ErrProductNotFound)

	assert.ErrorIs(t, products.Delete(ctx, "prod-003"), ErrProductNotFound)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Modeler Advanced":    "modeler-advanced",
		"  Spaced  Name  ":    "spaced-name",
		"UPPER_case & Stuff!": "upper-case-stuff",
		"v2.0 Beta":           "v2-0-beta",
	}

	for input, want := range cases {
		assert.Equal(t, want, slugify(input), "slugify(%q)", input)
	}
}
