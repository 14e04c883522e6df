package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcatalog "github.com/distrib/backend/internal/application/catalog"
	"github.com/distrib/backend/internal/domain/identity"
	"github.com/distrib/backend/internal/interfaces/http/dto"
)

func TestProductHandler_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.account(t, "admin", identity.RoleAdmin)
	_, distributor := env.account(t, "dist.one", identity.RoleDistributor)

	id := env.createProduct(t, admin, "Widget", "12.50", 10)
	env.createProduct(t, admin, "Apple", "1", 0)

	rec := env.do(t, http.MethodGet, "/products?page=1&page_size=1", distributor, nil)
	requireStatus(t, rec, http.StatusOK)
	var page []appcatalog.ProductResponse
	resp := decode(t, rec, &page)
	require.Len(t, page, 1)
	assert.Equal(t, "Apple", page[0].Name, "products are listed by name")
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(2), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)

	rec = env.do(t, http.MethodPut, "/products/"+id.String(), admin, map[string]any{"unit_price": "15"})
	requireStatus(t, rec, http.StatusOK)
	var updated appcatalog.ProductResponse
	decode(t, rec, &updated)
	assert.Equal(t, "15", updated.UnitPrice.String())
	assert.Equal(t, "Widget", updated.Name)

	rec = env.do(t, http.MethodPost, "/products/"+id.String()+"/restock", admin, appcatalog.RestockRequest{Quantity: 5})
	requireStatus(t, rec, http.StatusOK)
	decode(t, rec, &updated)
	assert.Equal(t, int64(15), updated.Stock)

	requireStatus(t, env.do(t, http.MethodDelete, "/products/"+id.String(), admin, nil), http.StatusNoContent)
	rec = env.do(t, http.MethodGet, "/products/"+id.String(), distributor, nil)
	requireStatus(t, rec, http.StatusNotFound)
	assert.Equal(t, dto.ErrCodeNotFound, decode(t, rec, nil).Error.Code)
}

func TestProductHandler_Rejections(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.account(t, "admin", identity.RoleAdmin)
	_, distributor := env.account(t, "dist.one", identity.RoleDistributor)
	env.createProduct(t, admin, "Widget", "1", 1)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"distributor cannot create", http.MethodPost, "/products", distributor, map[string]any{"name": "X", "unit_price": "1"}, http.StatusForbidden, dto.ErrCodeForbidden},
		{"duplicate name", http.MethodPost, "/products", admin, map[string]any{"name": "Widget", "unit_price": "1"}, http.StatusConflict, dto.ErrCodeAlreadyExists},
		{"negative price", http.MethodPost, "/products", admin, map[string]any{"name": "Y", "unit_price": "-1"}, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"bad id", http.MethodGet, "/products/not-a-uuid", distributor, nil, http.StatusBadRequest, dto.ErrCodeValidation},
		{"restock zero", http.MethodPost, "/products/00000000-0000-0000-0000-000000000001/restock", admin, map[string]any{"quantity": 0}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"no token", http.MethodGet, "/products", "", nil, http.StatusUnauthorized, dto.ErrCodeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.token, tt.body)
			requireStatus(t, rec, tt.status)
			assert.Equal(t, tt.code, decode(t, rec, nil).Error.Code)
		})
	}
}
