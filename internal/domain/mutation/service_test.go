package mutation

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/catalogbulk/internal/catalog"
	"github.com/rpggio/catalogbulk/internal/domain/backup"
	"github.com/rpggio/catalogbulk/internal/domain/record"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Post(ctx context.Context, path string, body []byte) (*catalog.Response, error) {
	args := m.Called(ctx, path, string(body))
	if resp, ok := args.Get(0).(*catalog.Response); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCatalog) Put(ctx context.Context, path string, body []byte) error {
	return m.Called(ctx, path, string(body)).Error(0)
}

func (m *mockCatalog) Delete(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func item(t *testing.T, data map[string]any) record.Record {
	t.Helper()
	rec, err := record.New(record.KindItem, data)
	require.NoError(t, err)
	return rec
}

func TestCreate_IDFromBody(t *testing.T) {
	ctx := context.Background()
	cat := &mockCatalog{}
	cat.On("Post", ctx, "/users", `{"username":"ada"}`).
		Return(&catalog.Response{StatusCode: http.StatusCreated, Header: http.Header{}, Body: []byte(`{"id":"u-1","username":"ada"}`)}, nil)

	draft, err := record.NewDraft(record.KindUser, map[string]any{"username": "ada"})
	require.NoError(t, err)

	id, err := NewService(cat, nil).Create(ctx, draft)
	require.NoError(t, err)
	require.Equal(t, "u-1", id)
	cat.AssertExpectations(t)
}

func TestCreate_IDFromLocation(t *testing.T) {
	ctx := context.Background()
	cat := &mockCatalog{}
	header := http.Header{}
	header.Set("Location", "/circulation/loans/l-9")
	cat.On("Post", ctx, "/circulation/loans", mock.Anything).
		Return(&catalog.Response{StatusCode: http.StatusCreated, Header: header}, nil)

	draft, err := record.NewDraft(record.KindLoan, map[string]any{"itemId": "i1"})
	require.NoError(t, err)

	id, err := NewService(cat, nil).Create(ctx, draft)
	require.NoError(t, err)
	require.Equal(t, "l-9", id)
}

func TestUpdateAndDelete_UseKindEndpoints(t *testing.T) {
	ctx := context.Background()
	cat := &mockCatalog{}
	cat.On("Put", ctx, "/item-storage/items/i1", `{"barcode":"350470000001","id":"i1"}`).Return(nil)
	cat.On("Delete", ctx, "/item-storage/items/i1").Return(nil)

	svc := NewService(cat, nil)
	rec := item(t, map[string]any{"id": "i1", "barcode": "350470000001"})
	require.NoError(t, svc.Update(ctx, rec))
	require.NoError(t, svc.Delete(ctx, rec))
	cat.AssertExpectations(t)
}

func TestMutations_PropagateTaxonomyErrors(t *testing.T) {
	ctx := context.Background()
	cat := &mockCatalog{}
	cat.On("Put", ctx, "/item-storage/items/i1", mock.Anything).
		Return(&catalog.ClientError{Status: http.StatusUnprocessableEntity, Message: "validation failed", Details: []string{"barcode taken"}})

	err := NewService(cat, nil).Update(ctx, item(t, map[string]any{"id": "i1"}))
	var ce *catalog.ClientError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, []string{"barcode taken"}, ce.Details)
}

func TestMutations_TypeKindUnsupported(t *testing.T) {
	svc := NewService(&mockCatalog{}, nil)
	rec, err := record.New(record.KindType, map[string]any{"id": "t1", "name": "Main"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), rec)
	require.ErrorIs(t, err, ErrUnsupportedKind)
	require.ErrorIs(t, svc.Update(context.Background(), rec), ErrUnsupportedKind)
	require.ErrorIs(t, svc.Delete(context.Background(), rec), ErrUnsupportedKind)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	cat := &mockCatalog{}
	cat.On("Post", ctx, "/holdings-storage/holdings", `{"hrid":"ho1","id":"h1"}`).
		Return(&catalog.Response{StatusCode: http.StatusCreated, Header: http.Header{}}, nil)
	cat.On("Put", ctx, "/holdings-storage/holdings/h1", `{"hrid":"ho1","id":"h1"}`).Return(nil)

	svc := NewService(cat, nil)
	data := map[string]any{"id": "h1", "hrid": "ho1"}

	require.NoError(t, svc.Restore(ctx, &backup.Backup{ID: "b1", Kind: record.KindHoldings, Operation: backup.OperationDelete, Data: data}))
	require.NoError(t, svc.Restore(ctx, &backup.Backup{ID: "b2", Kind: record.KindHoldings, Operation: backup.OperationUpdate, Data: data}))
	cat.AssertExpectations(t)

	err := svc.Restore(ctx, &backup.Backup{ID: "b3", Kind: record.KindHoldings, Operation: "merge", Data: data})
	require.ErrorIs(t, err, ErrUnsupportedKind)
}
