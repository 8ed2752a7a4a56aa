package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nicolasbarcena/KazaroPedidos/internal/core/domain"
	"github.com/nicolasbarcena/KazaroPedidos/internal/core/service"
)

type MockCatalogLoader struct{ mock.Mock }

func (m *MockCatalogLoader) Load(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	ps, _ := args.Get(0).([]domain.Product)
	return ps, args.Error(1)
}

type MockPolicyLoader struct{ mock.Mock }

func (m *MockPolicyLoader) Load(ctx context.Context) (domain.PolicyDocument, error) {
	args := m.Called(ctx)
	doc, _ := args.Get(0).(domain.PolicyDocument)
	return doc, args.Error(1)
}

type MockStockSyncer struct{ mock.Mock }

func (m *MockStockSyncer) SyncStock(
	ctx context.Context, items []domain.CartItem,
) ([]domain.StockUpdate, error) {
	args := m.Called(ctx, items)
	us, _ := args.Get(0).([]domain.StockUpdate)
	return us, args.Error(1)
}

type MockRemitoMailer struct{ mock.Mock }

func (m *MockRemitoMailer) SendRemito(ctx context.Context, r domain.Remito) error {
	return m.Called(ctx, r).Error(0)
}

type MockRemitoStorage struct{ mock.Mock }

func (m *MockRemitoStorage) StoreRemito(ctx context.Context, r domain.Remito) error {
	return m.Called(ctx, r).Error(0)
}

type MockOrderEventsProducer struct{ mock.Mock }

func (m *MockOrderEventsProducer) ProduceRemito(ctx context.Context, r domain.Remito) error {
	return m.Called(ctx, r).Error(0)
}

type fixture struct {
	catalog  *MockCatalogLoader
	policies *MockPolicyLoader
	stock    *MockStockSyncer
	mailer   *MockRemitoMailer
	storage  *MockRemitoStorage
	events   *MockOrderEventsProducer
	svc      *service.Service
}

func newFixture() *fixture {
	f := &fixture{
		catalog:  new(MockCatalogLoader),
		policies: new(MockPolicyLoader),
		stock:    new(MockStockSyncer),
		mailer:   new(MockRemitoMailer),
		storage:  new(MockRemitoStorage),
		events:   new(MockOrderEventsProducer),
	}
	f.svc = service.New(
		f.catalog, f.policies, f.stock, f.mailer, f.storage, f.events, 15,
	)
	return f
}

func testProducts() []domain.Product {
	return []domain.Product{
		{Code: "A", Description: "gasa", Category: "insumos",
			Price: decimal.NewFromInt(10), Stock: 5},
		{Code: "B", Description: "guante", Category: "insumos",
			Price: decimal.NewFromInt(5), Stock: 3},
	}
}

func denyADocument() domain.PolicyDocument {
	return domain.PolicyDocument{
		Supervisors: []domain.Supervisor{{
			Name: "Ana",
			Services: []domain.ServiceSpec{{
				ID:      "MS-TEST",
				Name:    "Servicio Test",
				Mode:    "deny",
				Insumos: domain.InsumosSpec{ByCodes: []string{"A"}},
			}},
		}},
	}
}

func TestOpenSession(t *testing.T) {
	t.Run("AppliesPolicy", func(t *testing.T) {
		f := newFixture()
		f.catalog.On("Load", mock.Anything).Return(testProducts(), nil)
		f.policies.On("Load", mock.Anything).Return(denyADocument(), nil)

		view, err := f.svc.OpenSession(t.Context(), "MS-TEST", "")
		require.NoError(t, err)

		assert.NotEmpty(t, view.SessionID)
		assert.Equal(t, "Servicio Test", view.Service)
		assert.Equal(t, domain.ModeDeny, view.Mode)
		assert.Equal(t, 1, view.VisibleProducts)
		assert.Empty(t, view.Warnings)

		page, err := f.svc.BrowseCatalog(view.SessionID, "insumos", 1)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "B", page.Items[0].Code)
	})

	t.Run("PolicySourceDownShowsFullCatalog", func(t *testing.T) {
		f := newFixture()
		f.catalog.On("Load", mock.Anything).Return(testProducts(), nil)
		f.policies.On("Load", mock.Anything).
			Return(domain.PolicyDocument{}, domain.ErrSourceUnavailable)

		view, err := f.svc.OpenSession(t.Context(), "MS-TEST", "")
		require.NoError(t, err)
		assert.Equal(t, 2, view.VisibleProducts)
		assert.NotEmpty(t, view.Warnings)
	})

	t.Run("CatalogSourceDownShowsEmptyCatalog", func(t *testing.T) {
		f := newFixture()
		f.catalog.On("Load", mock.Anything).
			Return(nil, domain.ErrSourceUnavailable)
		f.policies.On("Load", mock.Anything).Return(denyADocument(), nil)

		view, err := f.svc.OpenSession(t.Context(), "MS-TEST", "")
		require.NoError(t, err)
		assert.Equal(t, 0, view.VisibleProducts)
		assert.NotEmpty(t, view.Warnings)

		page, err := f.svc.BrowseCatalog(view.SessionID, "insumos", 1)
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})

	t.Run("UnknownServiceWarns", func(t *testing.T) {
		f := newFixture()
		f.catalog.On("Load", mock.Anything).Return(testProducts(), nil)
		f.policies.On("Load", mock.Anything).Return(denyADocument(), nil)

		view, err := f.svc.OpenSession(t.Context(), "MS-OTRO", "")
		require.NoError(t, err)
		assert.Equal(t, 2, view.VisibleProducts)
		require.Len(t, view.Warnings, 1)
		assert.Contains(t, view.Warnings[0], "MS-OTRO")
	})

	t.Run("DanglingCodesWarn", func(t *testing.T) {
		f := newFixture()
		doc := denyADocument()
		doc.Supervisors[0].Services[0].Insumos.ByCodes = []string{"A", "NOEXISTE"}
		f.catalog.On("Load", mock.Anything).Return(testProducts(), nil)
		f.policies.On("Load", mock.Anything).Return(doc, nil)

		view, err := f.svc.OpenSession(t.Context(), "MS-TEST", "")
		require.NoError(t, err)
		require.Len(t, view.Warnings, 1)
		assert.Contains(t, view.Warnings[0], "NOEXISTE")
	})
}

func TestCartOperations(t *testing.T) {
	open := func(t *testing.T, f *fixture) string {
		t.Helper()
		f.catalog.On("Load", mock.Anything).Return(testProducts(), nil)
		f.policies.On("Load", mock.Anything).Return(domain.PolicyDocument{}, nil)
		view, err := f.svc.OpenSession(t.Context(), "", "")
		require.NoError(t, err)
		return view.SessionID
	}

	t.Run("AddAndReadCart", func(t *testing.T) {
		f := newFixture()
		id := open(t, f)

		view, err := f.svc.AddItem(id, "A")
		require.NoError(t, err)
		require.Len(t, view.Items, 1)
		assert.Equal(t, 1, view.Items[0].Quantity)
		assert.True(t, view.Total.Equal(decimal.NewFromInt(10)))

		view, err = f.svc.Cart(id)
		require.NoError(t, err)
		assert.Len(t, view.Items, 1)
	})

	t.Run("ChangeQuantityReportsClamp", func(t *testing.T) {
		f := newFixture()
		id := open(t, f)

		_, err := f.svc.AddItem(id, "A")
		require.NoError(t, err)

		view, err := f.svc.ChangeQuantity(id, "A", 50)
		require.NoError(t, err)
		assert.Contains(t, view.Warning, "clamped to 5")
		assert.Equal(t, 5, view.Items[0].Quantity)

		view, err = f.svc.ChangeQuantity(id, "A", 2)
		require.NoError(t, err)
		assert.Empty(t, view.Warning)
	})

	t.Run("RemoveItem", func(t *testing.T) {
		f := newFixture()
		id := open(t, f)

		_, err := f.svc.AddItem(id, "A")
		require.NoError(t, err)

		view, err := f.svc.RemoveItem(id, "A")
		require.NoError(t, err)
		assert.Empty(t, view.Items)
		assert.True(t, view.Total.IsZero())
	})

	t.Run("SessionNotFound", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.AddItem("nope", "A")
		assert.ErrorIs(t, err, service.ErrSessionNotFound)
	})
}

func TestFinalizeOrder(t *testing.T) {
	open := func(t *testing.T, f *fixture) string {
		t.Helper()
		f.catalog.On("Load", mock.Anything).Return(testProducts(), nil)
		f.policies.On("Load", mock.Anything).Return(domain.PolicyDocument{}, nil)
		view, err := f.svc.OpenSession(t.Context(), "", "")
		require.NoError(t, err)
		_, err = f.svc.AddItem(view.SessionID, "A")
		require.NoError(t, err)
		return view.SessionID
	}

	t.Run("StoresPublishesAndReconciles", func(t *testing.T) {
		f := newFixture()
		id := open(t, f)

		f.storage.On("StoreRemito", mock.Anything, mock.Anything).Return(nil)
		f.events.On("ProduceRemito", mock.Anything, mock.Anything).Return(nil)
		f.stock.On("SyncStock", mock.Anything, mock.Anything).
			Return([]domain.StockUpdate{{Code: "A", Stock: 2}}, nil)

		r, err := f.svc.FinalizeOrder(t.Context(), id, "Ana")
		require.NoError(t, err)
		assert.True(t, r.Total.Equal(decimal.NewFromInt(10)))

		f.svc.AwaitReconcile()

		// the remote figure replaced the locally decremented one
		page, err := f.svc.BrowseCatalog(id, "insumos", 1)
		require.NoError(t, err)
		assert.Equal(t, 2, page.Items[0].Stock)

		f.storage.AssertCalled(t, "StoreRemito", mock.Anything, mock.Anything)
		f.events.AssertCalled(t, "ProduceRemito", mock.Anything, mock.Anything)
	})

	t.Run("RemoteSyncFailureKeepsLocalStock", func(t *testing.T) {
		f := newFixture()
		id := open(t, f)

		f.storage.On("StoreRemito", mock.Anything, mock.Anything).Return(nil)
		f.events.On("ProduceRemito", mock.Anything, mock.Anything).Return(nil)
		f.stock.On("SyncStock", mock.Anything, mock.Anything).
			Return(nil, errors.New("endpoint down"))

		_, err := f.svc.FinalizeOrder(t.Context(), id, "Ana")
		require.NoError(t, err)

		f.svc.AwaitReconcile()

		page, err := f.svc.BrowseCatalog(id, "insumos", 1)
		require.NoError(t, err)
		assert.Equal(t, 4, page.Items[0].Stock)
	})

	t.Run("GuardsAgainstDoubleFinalize", func(t *testing.T) {
		f := newFixture()
		id := open(t, f)

		release := make(chan struct{})
		f.storage.On("StoreRemito", mock.Anything, mock.Anything).Return(nil)
		f.events.On("ProduceRemito", mock.Anything, mock.Anything).Return(nil)
		f.stock.On("SyncStock", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { <-release }).
			Return(nil, nil)

		_, err := f.svc.FinalizeOrder(t.Context(), id, "Ana")
		require.NoError(t, err)

		_, err = f.svc.FinalizeOrder(t.Context(), id, "Ana")
		assert.ErrorIs(t, err, domain.ErrFinalizeInFlight)

		close(release)
		f.svc.AwaitReconcile()

		_, err = f.svc.FinalizeOrder(t.Context(), id, "Ana")
		require.NoError(t, err)
		f.svc.AwaitReconcile()
	})

	t.Run("StorageFailureIsNotFatal", func(t *testing.T) {
		f := newFixture()
		id := open(t, f)

		f.storage.On("StoreRemito", mock.Anything, mock.Anything).
			Return(errors.New("db down"))
		f.events.On("ProduceRemito", mock.Anything, mock.Anything).
			Return(errors.New("broker down"))
		f.stock.On("SyncStock", mock.Anything, mock.Anything).Return(nil, nil)

		r, err := f.svc.FinalizeOrder(t.Context(), id, "Ana")
		require.NoError(t, err)
		assert.NotEmpty(t, r.Number)
		f.svc.AwaitReconcile()
	})

	t.Run("EmptyCart", func(t *testing.T) {
		f := newFixture()
		f.catalog.On("Load", mock.Anything).Return(testProducts(), nil)
		f.policies.On("Load", mock.Anything).Return(domain.PolicyDocument{}, nil)
		view, err := f.svc.OpenSession(t.Context(), "", "")
		require.NoError(t, err)

		_, err = f.svc.FinalizeOrder(t.Context(), view.SessionID, "Ana")
		assert.ErrorIs(t, err, domain.ErrEmptyCart)
	})
}

func TestEmailRemito(t *testing.T) {
	open := func(t *testing.T, f *fixture) string {
		t.Helper()
		f.catalog.On("Load", mock.Anything).Return(testProducts(), nil)
		f.policies.On("Load", mock.Anything).Return(domain.PolicyDocument{}, nil)
		view, err := f.svc.OpenSession(t.Context(), "", "")
		require.NoError(t, err)
		return view.SessionID
	}

	t.Run("NoRemitoYet", func(t *testing.T) {
		f := newFixture()
		id := open(t, f)

		err := f.svc.EmailRemito(t.Context(), id)
		assert.ErrorIs(t, err, domain.ErrNoRemito)
	})

	t.Run("SendsLastRemito", func(t *testing.T) {
		f := newFixture()
		id := open(t, f)

		_, err := f.svc.AddItem(id, "A")
		require.NoError(t, err)

		f.storage.On("StoreRemito", mock.Anything, mock.Anything).Return(nil)
		f.events.On("ProduceRemito", mock.Anything, mock.Anything).Return(nil)
		f.stock.On("SyncStock", mock.Anything, mock.Anything).Return(nil, nil)

		r, err := f.svc.FinalizeOrder(t.Context(), id, "Ana")
		require.NoError(t, err)
		f.svc.AwaitReconcile()

		f.mailer.On("SendRemito", mock.Anything,
			mock.MatchedBy(func(got domain.Remito) bool {
				return got.Number == r.Number
			})).Return(nil)

		require.NoError(t, f.svc.EmailRemito(t.Context(), id))
		f.mailer.AssertExpectations(t)
	})

	t.Run("DeliveryFailureIsReported", func(t *testing.T) {
		f := newFixture()
		id := open(t, f)

		_, err := f.svc.AddItem(id, "A")
		require.NoError(t, err)

		f.storage.On("StoreRemito", mock.Anything, mock.Anything).Return(nil)
		f.events.On("ProduceRemito", mock.Anything, mock.Anything).Return(nil)
		f.stock.On("SyncStock", mock.Anything, mock.Anything).Return(nil, nil)
		f.mailer.On("SendRemito", mock.Anything, mock.Anything).
			Return(errors.New("smtp gateway rejected"))

		_, err = f.svc.FinalizeOrder(t.Context(), id, "Ana")
		require.NoError(t, err)
		f.svc.AwaitReconcile()

		err = f.svc.EmailRemito(t.Context(), id)
		require.Error(t, err)

		// one shot, no retry
		f.mailer.AssertNumberOfCalls(t, "SendRemito", 1)
	})
}

func TestSupervisors(t *testing.T) {
	t.Run("ListsServices", func(t *testing.T) {
		f := newFixture()
		f.policies.On("Load", mock.Anything).Return(denyADocument(), nil)

		vs, err := f.svc.Supervisors(t.Context())
		require.NoError(t, err)
		require.Len(t, vs, 1)
		assert.Equal(t, "Ana", vs[0].Name)
		require.Len(t, vs[0].Services, 1)
		assert.Equal(t, "MS-TEST", vs[0].Services[0].ID)
	})

	t.Run("SourceFailurePropagates", func(t *testing.T) {
		f := newFixture()
		f.policies.On("Load", mock.Anything).
			Return(domain.PolicyDocument{}, domain.ErrSourceUnavailable)

		_, err := f.svc.Supervisors(t.Context())
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	})
}
