package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/distrib/backend/internal/domain/catalog"
	"github.com/distrib/backend/internal/domain/shared"
	"github.com/distrib/backend/internal/domain/shared/valueobject"
)

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return m.FindByID(ctx, id)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type recordingPublisher struct {
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	for _, e := range events {
		p.types = append(p.types, e.EventType())
	}
	return nil
}

func money(t *testing.T, s string) valueobject.Money {
	t.Helper()
	m, err := valueobject.NewMoneyFromString(s)
	require.NoError(t, err)
	return m
}

func newProduct(t *testing.T, name string, stock int64) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(name, "", money(t, "10"), stock)
	require.NoError(t, err)
	p.ClearDomainEvents()
	return p
}

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("saves and publishes", func(t *testing.T) {
		repo := new(MockProductRepository)
		pub := &recordingPublisher{}
		svc := NewProductService(repo)
		svc.SetEventPublisher(pub)

		repo.On("ExistsByName", ctx, "Widget").Return(false, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)

		resp, err := svc.Create(ctx, CreateProductRequest{Name: "Widget", UnitPrice: money(t, "12.50"), Stock: 40})
		require.NoError(t, err)
		assert.Equal(t, "Widget", resp.Name)
		assert.True(t, resp.UnitPrice.Equal(decimal.RequireFromString("12.5")))
		assert.Equal(t, int64(40), resp.Stock)
		assert.Equal(t, []string{catalog.EventTypeProductCreated}, pub.types)
		repo.AssertExpectations(t)
	})

	t.Run("duplicate name", func(t *testing.T) {
		repo := new(MockProductRepository)
		repo.On("ExistsByName", ctx, "Widget").Return(true, nil)

		_, err := NewProductService(repo).Create(ctx, CreateProductRequest{Name: "Widget", UnitPrice: money(t, "1")})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("negative stock", func(t *testing.T) {
		repo := new(MockProductRepository)
		repo.On("ExistsByName", ctx, "Widget").Return(false, nil)

		_, err := NewProductService(repo).Create(ctx, CreateProductRequest{Name: "Widget", UnitPrice: money(t, "1"), Stock: -1})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_QUANTITY", domainErr.Code)
	})
}

func TestProductService_Update(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProductRepository)
	pub := &recordingPublisher{}
	svc := NewProductService(repo)
	svc.SetEventPublisher(pub)

	product := newProduct(t, "Widget", 5)
	repo.On("FindByID", ctx, product.ID).Return(product, nil)
	repo.On("Save", ctx, product).Return(nil)

	name := "Widget XL"
	price := money(t, "14")
	resp, err := svc.Update(ctx, product.ID, UpdateProductRequest{Name: &name, UnitPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, "Widget XL", resp.Name)
	assert.True(t, resp.UnitPrice.Equal(decimal.NewFromInt(14)))
	assert.Equal(t, int64(5), resp.Stock)
	assert.Equal(t, []string{catalog.EventTypeProductPriceChanged}, pub.types)
}

func TestProductService_Restock(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProductRepository)
	svc := NewProductService(repo)

	product := newProduct(t, "Widget", 5)
	repo.On("FindByID", ctx, product.ID).Return(product, nil)
	repo.On("Save", ctx, product).Return(nil)

	resp, err := svc.Restock(ctx, product.ID, RestockRequest{Quantity: 15})
	require.NoError(t, err)
	assert.Equal(t, int64(20), resp.Stock)

	_, err = svc.Restock(ctx, product.ID, RestockRequest{Quantity: 0})
	assert.Error(t, err)
	repo.AssertNumberOfCalls(t, "Save", 1)
}

func TestProductService_List(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProductRepository)

	expected := shared.Filter{Page: 1, PageSize: 20, OrderBy: "name", OrderDir: "asc", Search: "wid"}
	repo.On("FindAll", ctx, expected).Return([]catalog.Product{*newProduct(t, "Widget", 1)}, nil)
	repo.On("Count", ctx, expected).Return(int64(1), nil)

	items, total, err := NewProductService(repo).List(ctx, ProductListFilter{Search: "wid"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "Widget", items[0].Name)
}

func TestProductService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("existing", func(t *testing.T) {
		repo := new(MockProductRepository)
		product := newProduct(t, "Widget", 1)
		repo.On("FindByID", ctx, product.ID).Return(product, nil)
		repo.On("Delete", ctx, product.ID).Return(nil)

		require.NoError(t, NewProductService(repo).Delete(ctx, product.ID))
		repo.AssertExpectations(t)
	})

	t.Run("missing", func(t *testing.T) {
		repo := new(MockProductRepository)
		id := uuid.New()
		repo.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		err := NewProductService(repo).Delete(ctx, id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := new(MockProductRepository)
		product := newProduct(t, "Widget", 1)
		repo.On("FindByID", ctx, product.ID).Return(product, nil)
		repo.On("Delete", ctx, product.ID).Return(errors.New("connection reset"))

		assert.EqualError(t, NewProductService(repo).Delete(ctx, product.ID), "connection reset")
	})
}
