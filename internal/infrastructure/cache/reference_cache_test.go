package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/tradedesk/internal/domain/catalog"
	"github.com/erp/tradedesk/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
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

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

type MockFormulaRepository struct {
	mock.Mock
}

func (m *MockFormulaRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.DeductionFormula, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.DeductionFormula), args.Error(1)
}

func (m *MockFormulaRepository) FindActive(ctx context.Context) ([]catalog.DeductionFormula, error) {
	args := m.Called(ctx)
	return args.Get(0).([]catalog.DeductionFormula), args.Error(1)
}

func mackerel(t *testing.T) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct("Mackerel", "kg")
	require.NoError(t, err)
	spec, err := catalog.NewPackagingSpec(p.ID, "Box", "box", decimal.NewFromInt(15), "kg")
	require.NoError(t, err)
	spec.IsDefault = true
	require.NoError(t, p.AddSpec(*spec))
	return p
}

func TestCachedProductRepository_FindByID(t *testing.T) {
	store, _ := newRedisStore(t)
	next := new(MockProductRepository)
	repo := NewCachedProductRepository(next, store, "test:", time.Minute, nil)
	ctx := context.Background()

	p := mackerel(t)
	next.On("FindByID", mock.Anything, p.ID).Return(p, nil).Once()

	first, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Name, second.Name)
	require.Len(t, second.Specs, 1)
	assert.True(t, second.Specs[0].BaseUnitQuantity.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, "box(15kg)", second.Specs[0].DisplayName())
	assert.Equal(t, Stats{Hits: 1, Misses: 1}, repo.Stats())
	next.AssertExpectations(t)
}

func TestCachedProductRepository_NotFoundIsNotCached(t *testing.T) {
	store := NewInMemoryStore(nil)
	defer store.Stop()
	next := new(MockProductRepository)
	repo := NewCachedProductRepository(next, store, "test:", time.Minute, nil)
	id := uuid.New()
	next.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound).Twice()

	_, err := repo.FindByID(context.Background(), id)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = repo.FindByID(context.Background(), id)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	next.AssertExpectations(t)
}

func TestCachedProductRepository_FindByIDsLoadsOnlyMisses(t *testing.T) {
	store, _ := newRedisStore(t)
	next := new(MockProductRepository)
	repo := NewCachedProductRepository(next, store, "test:", time.Minute, nil)
	ctx := context.Background()

	a, b := mackerel(t), mackerel(t)
	next.On("FindByID", mock.Anything, a.ID).Return(a, nil).Once()
	_, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)

	next.On("FindByIDs", mock.Anything, []uuid.UUID{b.ID}).Return([]catalog.Product{*b}, nil).Once()
	got, err := repo.FindByIDs(ctx, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = repo.FindByIDs(ctx, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	next.AssertExpectations(t)
}

func TestCachedProductRepository_CacheDownFallsThrough(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()
	next := new(MockProductRepository)
	repo := NewCachedProductRepository(next, store, "test:", time.Minute, nil)

	p := mackerel(t)
	next.On("FindByID", mock.Anything, p.ID).Return(p, nil)

	got, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestCachedFormulaRepository(t *testing.T) {
	store, mr := newRedisStore(t)
	next := new(MockFormulaRepository)
	repo := NewCachedFormulaRepository(next, store, "test:", time.Minute, nil)
	ctx := context.Background()

	f, err := catalog.NewDeductionFormula("Ice 1%", catalog.FormulaTypePercentage, decimal.RequireFromString("0.99"))
	require.NoError(t, err)
	next.On("FindByID", mock.Anything, f.ID).Return(f, nil).Once()
	next.On("FindActive", mock.Anything).Return([]catalog.DeductionFormula{*f}, nil).Once()

	for i := 0; i < 2; i++ {
		got, err := repo.FindByID(ctx, f.ID)
		require.NoError(t, err)
		assert.True(t, got.Value.Equal(decimal.RequireFromString("0.99")))

		active, err := repo.FindActive(ctx)
		require.NoError(t, err)
		assert.Len(t, active, 1)
	}
	next.AssertExpectations(t)

	t.Run("corrupt entries are dropped and reloaded", func(t *testing.T) {
		key := "test:formula:" + f.ID.String()
		require.NoError(t, mr.Set(key, "{not json"))
		next.On("FindByID", mock.Anything, f.ID).Return(f, nil).Once()

		got, err := repo.FindByID(ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, f.Name, got.Name)
		next.AssertExpectations(t)
	})
}
