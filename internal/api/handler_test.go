package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/catalogbulk/internal/catalog"
	"github.com/rpggio/catalogbulk/internal/domain/activity"
	"github.com/rpggio/catalogbulk/internal/domain/backup"
	"github.com/rpggio/catalogbulk/internal/domain/bulk"
	"github.com/rpggio/catalogbulk/internal/domain/record"
	"github.com/rpggio/catalogbulk/internal/domain/resolve"
	"github.com/rpggio/catalogbulk/internal/repository"
)

type classifierStub map[string]record.IdentifierKind

func (c classifierStub) Classify(_ context.Context, raw string) (record.IdentifierKind, error) {
	if k, ok := c[raw]; ok {
		return k, nil
	}
	return record.IDUnknown, nil
}

type classifierFunc func(ctx context.Context, raw string) (record.IdentifierKind, error)

func (f classifierFunc) Classify(ctx context.Context, raw string) (record.IdentifierKind, error) {
	return f(ctx, raw)
}

type resolverStub struct {
	resolveFn func(context.Context, string, record.IdentifierKind, record.RecordKind, resolve.Options) ([]record.Record, error)
}

func (r resolverStub) Resolve(ctx context.Context, id string, idKind record.IdentifierKind, target record.RecordKind, opts resolve.Options) ([]record.Record, error) {
	return r.resolveFn(ctx, id, idKind, target, opts)
}

func (r resolverStub) Targets(record.IdentifierKind) []record.RecordKind {
	return []record.RecordKind{record.KindItem, record.KindHoldings}
}

type typesStub struct{}

func (typesStub) Kinds() []record.TypeKind { return []record.TypeKind{record.TypeLocations} }

func (typesStub) List(_ context.Context, kind record.TypeKind) ([]record.Record, error) {
	return []record.Record{{ID: "loc1", Kind: record.KindType, Data: map[string]any{"id": "loc1", "name": "Main"}}}, nil
}

type mutationStub struct {
	calls    []string
	restored *backup.Backup
	err      error
}

func (m *mutationStub) Create(_ context.Context, rec record.Record) (string, error) {
	m.calls = append(m.calls, "create")
	return "new-id", m.err
}

func (m *mutationStub) Update(_ context.Context, rec record.Record) error {
	m.calls = append(m.calls, "update:"+rec.ID)
	return m.err
}

func (m *mutationStub) Delete(_ context.Context, rec record.Record) error {
	m.calls = append(m.calls, "delete:"+rec.ID)
	return m.err
}

func (m *mutationStub) Restore(_ context.Context, b *backup.Backup) error {
	m.restored = b
	return m.err
}

type backupStub struct {
	taken  []*backup.Backup
	stored map[string]*backup.Backup
	calls  *[]string
}

func (b *backupStub) Take(_ context.Context, jobID string, rec record.Record, op backup.Operation) (*backup.Backup, error) {
	bk := &backup.Backup{ID: "bk1", JobID: jobID, RecordID: rec.ID, Kind: rec.Kind, Operation: op, Data: rec.Clone()}
	b.taken = append(b.taken, bk)
	if b.calls != nil {
		*b.calls = append(*b.calls, "backup:"+rec.ID)
	}
	return bk, nil
}

func (b *backupStub) Get(_ context.Context, id string) (*backup.Backup, error) {
	if bk, ok := b.stored[id]; ok {
		return bk, nil
	}
	return nil, repository.ErrNotFound
}

func (b *backupStub) List(context.Context, backup.ListOptions) ([]backup.Backup, error) {
	return []backup.Backup{}, nil
}

type activityStub struct {
	types []activity.ActivityType
}

func (a *activityStub) GetRecentActivity(context.Context, activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	return []activity.ActivityEntry{}, nil
}

func (a *activityStub) Record(_ context.Context, typ activity.ActivityType, _, _, _ string, _ any) {
	a.types = append(a.types, typ)
}

type cacheStub struct{ cleared bool }

func (c *cacheStub) Clear() { c.cleared = true }

func item(id string) record.Record {
	return record.Record{ID: id, Kind: record.KindItem, Data: map[string]any{"id": id, "barcode": "35047" + id}}
}

func newTestHandler(resolver resolverStub, mutations *mutationStub, backups *backupStub, acts *activityStub) *Handler {
	classifier := classifierStub{"350470000001": record.IDItemBarcode}
	return NewHandler(Services{
		Classifier: classifier,
		Resolver:   resolver,
		Types:      typesStub{},
		Mutations:  mutations,
		Jobs:       bulk.NewService(classifier, resolver, mutations, backups, acts, nil),
		Backups:    backups,
		Activity:   acts,
	}, nil)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T: %v", err, err)
	require.Equal(t, code, apiErr.Code)
}

func TestHandler_ParseAndClassify(t *testing.T) {
	ctx := context.Background()
	h := newTestHandler(resolverStub{}, &mutationStub{}, &backupStub{}, &activityStub{})

	out, err := h.Handle(ctx, "parse_identifiers", mustJSON(t, ParseIdentifiersParams{Text: "350470000001, abc\n350470000001;x12"}))
	require.NoError(t, err)
	require.Equal(t, []string{"350470000001", "x12"}, out.(ParseIdentifiersResponse).Identifiers)

	out, err = h.Handle(ctx, "classify", mustJSON(t, ClassifyParams{Identifiers: []string{"350470000001", "zz9"}}))
	require.NoError(t, err)
	got := out.([]Classification)
	require.Len(t, got, 2)
	require.Equal(t, "350470000001", got[0].Identifier)
	require.Equal(t, record.IDItemBarcode, got[0].Kind)
	require.NotEmpty(t, got[0].Targets)
	require.Equal(t, record.IDUnknown, got[1].Kind)
	require.Empty(t, got[1].Targets)
}

func TestHandler_ClassifyReportsErrorsPerIdentifier(t *testing.T) {
	classifier := classifierFunc(func(_ context.Context, raw string) (record.IdentifierKind, error) {
		if raw == "it500" {
			return "", &catalog.ServerError{Status: http.StatusInternalServerError, Body: "boom"}
		}
		return record.IDItemHrid, nil
	})
	h := NewHandler(Services{Classifier: classifier, Resolver: resolverStub{}}, nil)

	out, err := h.Handle(context.Background(), "classify", mustJSON(t, ClassifyParams{Identifiers: []string{"it1", "it500", "it2"}}))
	require.NoError(t, err)
	got := out.([]Classification)
	require.Len(t, got, 3)
	require.Equal(t, record.IDItemHrid, got[0].Kind)
	require.Empty(t, got[0].Error)
	require.Empty(t, got[1].Kind)
	require.Equal(t, "server_error", got[1].Category)
	require.Contains(t, got[1].Error, "500")
	require.Equal(t, record.IDItemHrid, got[2].Kind)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Classify(ctx, []string{"it1"})
	require.ErrorIs(t, err, catalog.ErrCancelled)
}

func TestHandler_Resolve(t *testing.T) {
	ctx := context.Background()
	var gotKind record.IdentifierKind
	h := newTestHandler(resolverStub{resolveFn: func(_ context.Context, id string, idKind record.IdentifierKind, _ record.RecordKind, _ resolve.Options) ([]record.Record, error) {
		gotKind = idKind
		return nil, nil
	}}, &mutationStub{}, &backupStub{}, &activityStub{})

	out, err := h.Handle(ctx, "resolve", mustJSON(t, ResolveParams{Identifier: "350470000001", Target: record.KindItem}))
	require.NoError(t, err)
	resp := out.(ResolveResponse)
	require.Equal(t, record.IDItemBarcode, resp.IDKind)
	require.Equal(t, record.IDItemBarcode, gotKind)
	require.NotNil(t, resp.Records)
	require.Empty(t, resp.Records)

	_, err = h.Handle(ctx, "resolve", mustJSON(t, ResolveParams{Identifier: "it42", IDKind: record.IDItemHrid, Target: record.KindItem}))
	require.NoError(t, err)
	require.Equal(t, record.IDItemHrid, gotKind)

	_, err = h.Handle(ctx, "resolve", mustJSON(t, ResolveParams{Identifier: "mystery9", Target: record.KindItem}))
	requireCode(t, err, CodeUnknownIdentifier)

	_, err = h.Handle(ctx, "resolve", mustJSON(t, ResolveParams{Identifier: "x1", IDKind: "isbn", Target: record.KindItem}))
	requireCode(t, err, CodeInvalidInput)

	_, err = h.Handle(ctx, "resolve", mustJSON(t, ResolveParams{Identifier: "x1", IDKind: record.IDItemHrid, Target: "book"}))
	requireCode(t, err, CodeInvalidInput)
}

func TestHandler_ErrorMapping(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		err  error
		code string
	}{
		{&resolve.ResolutionError{IDKind: record.IDTypeID, Target: record.KindLoan}, CodeUnsupported},
		{&catalog.ClientError{Status: http.StatusNotFound, Message: "Not Found"}, CodeNotFound},
		{&catalog.ClientError{Status: http.StatusForbidden, Message: "Forbidden"}, CodeNotAuthorized},
		{&catalog.ClientError{Status: http.StatusUnprocessableEntity, Message: "bad", Details: []string{"barcode taken"}}, CodeClientError},
		{&catalog.ServerError{Status: http.StatusConflict, Body: "optimistic locking"}, CodeServerError},
		{&catalog.UnexpectedStatusError{Status: 302}, CodeUnexpectedStatus},
		{catalog.ErrTransportDown, CodeUnreachable},
		{catalog.ErrRateLimitExceeded, CodeRateLimited},
		{catalog.ErrInconsistent, CodeInconsistent},
		{catalog.ErrCancelled, CodeCancelled},
	}
	for _, tc := range cases {
		h := newTestHandler(resolverStub{resolveFn: func(context.Context, string, record.IdentifierKind, record.RecordKind, resolve.Options) ([]record.Record, error) {
			return nil, tc.err
		}}, &mutationStub{}, &backupStub{}, &activityStub{})
		_, err := h.Handle(ctx, "resolve", mustJSON(t, ResolveParams{Identifier: "it1", IDKind: record.IDItemHrid, Target: record.KindItem}))
		requireCode(t, err, tc.code)
	}
}

func TestHandler_UpdateBacksUpFirst(t *testing.T) {
	ctx := context.Background()
	mutations := &mutationStub{}
	backups := &backupStub{calls: &mutations.calls}
	acts := &activityStub{}
	h := newTestHandler(resolverStub{resolveFn: func(_ context.Context, id string, idKind record.IdentifierKind, target record.RecordKind, _ resolve.Options) ([]record.Record, error) {
		require.Equal(t, record.IDItemID, idKind)
		require.Equal(t, record.KindItem, target)
		return []record.Record{item(id)}, nil
	}}, mutations, backups, acts)

	out, err := h.Handle(ctx, "update_record", mustJSON(t, UpdateRecordParams{
		Kind: record.KindItem,
		Data: map[string]any{"id": "i1", "barcode": "new"},
	}))
	require.NoError(t, err)
	require.Equal(t, "bk1", out.(MutationResponse).BackupID)
	require.Equal(t, []string{"backup:i1", "update:i1"}, mutations.calls)
	require.Equal(t, backup.OperationUpdate, backups.taken[0].Operation)
	require.Equal(t, "35047i1", backups.taken[0].Data["barcode"])
	require.Equal(t, []activity.ActivityType{activity.TypeRecordUpdated}, acts.types)

	_, err = h.Handle(ctx, "update_record", mustJSON(t, UpdateRecordParams{Kind: record.KindType, Data: map[string]any{"id": "t1"}}))
	requireCode(t, err, CodeInvalidInput)
}

func TestHandler_DeleteMissingRecord(t *testing.T) {
	ctx := context.Background()
	mutations := &mutationStub{}
	h := newTestHandler(resolverStub{resolveFn: func(context.Context, string, record.IdentifierKind, record.RecordKind, resolve.Options) ([]record.Record, error) {
		return nil, nil
	}}, mutations, &backupStub{}, &activityStub{})

	_, err := h.Handle(ctx, "delete_record", mustJSON(t, DeleteRecordParams{Kind: record.KindItem, ID: "gone"}))
	requireCode(t, err, CodeNotFound)
	require.Empty(t, mutations.calls)

	_, err = h.Handle(ctx, "delete_record", mustJSON(t, DeleteRecordParams{Kind: record.KindItem}))
	requireCode(t, err, CodeInvalidInput)
}

func TestHandler_CreateAndRestore(t *testing.T) {
	ctx := context.Background()
	mutations := &mutationStub{}
	stored := &backup.Backup{ID: "bk9", RecordID: "i1", Kind: record.KindItem, Operation: backup.OperationDelete, Data: map[string]any{"id": "i1"}}
	acts := &activityStub{}
	h := newTestHandler(resolverStub{}, mutations, &backupStub{stored: map[string]*backup.Backup{"bk9": stored}}, acts)

	out, err := h.Handle(ctx, "create_record", mustJSON(t, CreateRecordParams{Kind: record.KindUser, Data: map[string]any{"username": "pat"}}))
	require.NoError(t, err)
	require.Equal(t, "new-id", out.(CreateRecordResponse).ID)

	_, err = h.Handle(ctx, "restore_backup", mustJSON(t, RestoreBackupParams{ID: "bk9"}))
	require.NoError(t, err)
	require.Same(t, stored, mutations.restored)
	require.Equal(t, []activity.ActivityType{activity.TypeRecordCreated, activity.TypeRecordRestored}, acts.types)

	_, err = h.Handle(ctx, "restore_backup", mustJSON(t, RestoreBackupParams{ID: "nope"}))
	requireCode(t, err, CodeBackupNotFound)
}

func TestHandler_BulkJobs(t *testing.T) {
	ctx := context.Background()
	h := newTestHandler(resolverStub{resolveFn: func(_ context.Context, id string, _ record.IdentifierKind, _ record.RecordKind, _ resolve.Options) ([]record.Record, error) {
		return []record.Record{item("i1")}, nil
	}}, &mutationStub{}, &backupStub{}, &activityStub{})

	out, err := h.Handle(ctx, "start_bulk", mustJSON(t, StartBulkParams{Kind: bulk.KindLookup, Text: "350470000001", Target: record.KindItem}))
	require.NoError(t, err)
	snap := out.(bulk.Snapshot)
	require.Equal(t, 1, snap.Total)

	require.Eventually(t, func() bool {
		out, err := h.Handle(ctx, "get_job", mustJSON(t, JobParams{ID: snap.ID}))
		return err == nil && out.(bulk.Snapshot).Status == bulk.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	out, err = h.Handle(ctx, "list_jobs", nil)
	require.NoError(t, err)
	require.Len(t, out.([]bulk.Snapshot), 1)

	_, err = h.Handle(ctx, "cancel_job", mustJSON(t, JobParams{ID: "missing"}))
	requireCode(t, err, CodeJobNotFound)

	_, err = h.Handle(ctx, "start_bulk", mustJSON(t, StartBulkParams{Kind: bulk.KindLookup, Target: record.KindItem}))
	requireCode(t, err, CodeInvalidInput)
}

func TestHandler_TypesCachesAndDispatchErrors(t *testing.T) {
	ctx := context.Background()
	acts := &activityStub{}
	h := newTestHandler(resolverStub{}, &mutationStub{}, &backupStub{}, acts)
	classifications, types := &cacheStub{}, &cacheStub{}
	h.svc.Caches = map[string]Cache{"types": types, "classifications": classifications}

	out, err := h.Handle(ctx, "list_types", nil)
	require.NoError(t, err)
	require.Equal(t, []record.TypeKind{record.TypeLocations}, out.(TypeKindsResponse).Kinds)

	out, err = h.Handle(ctx, "list_types", mustJSON(t, ListTypesParams{Kind: record.TypeLocations}))
	require.NoError(t, err)
	require.Len(t, out.(TypeListResponse).Records, 1)

	out, err = h.Handle(ctx, "clear_caches", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"classifications", "types"}, out.(ClearCachesResponse).Cleared)
	require.True(t, classifications.cleared)
	require.True(t, types.cleared)
	require.Equal(t, []activity.ActivityType{activity.TypeCachesCleared}, acts.types)

	_, err = h.Handle(ctx, "explode", nil)
	requireCode(t, err, CodeMethodNotFound)

	_, err = h.Handle(ctx, "resolve", json.RawMessage(`{"identifier": 5}`))
	requireCode(t, err, CodeInvalidParams)
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
