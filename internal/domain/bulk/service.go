// Package bulk runs lookups, edits and deletions over identifier lists.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rpggio/catalogbulk/internal/catalog"
	"github.com/rpggio/catalogbulk/internal/domain/activity"
	"github.com/rpggio/catalogbulk/internal/domain/backup"
	"github.com/rpggio/catalogbulk/internal/domain/identifier"
	"github.com/rpggio/catalogbulk/internal/domain/record"
	"github.com/rpggio/catalogbulk/internal/domain/resolve"
)

var (
	// ErrInvalidRequest indicates a job that cannot be started.
	ErrInvalidRequest = errors.New("invalid bulk request")
	// ErrJobNotFound indicates an unknown or expired job id.
	ErrJobNotFound = errors.New("job not found")
)

// Classifier determines identifier kinds.
type Classifier interface {
	Classify(ctx context.Context, raw string) (record.IdentifierKind, error)
}

// Resolver finds records of a target kind.
type Resolver interface {
	Resolve(ctx context.Context, id string, idKind record.IdentifierKind, target record.RecordKind, opts resolve.Options) ([]record.Record, error)
}

// Mutator applies single-record changes.
type Mutator interface {
	Update(ctx context.Context, rec record.Record) error
	Delete(ctx context.Context, rec record.Record) error
}

// BackupSink stores pre-images before destructive changes.
type BackupSink interface {
	Take(ctx context.Context, jobID string, rec record.Record, op backup.Operation) (*backup.Backup, error)
}

// ActivityLog records operator-visible events.
type ActivityLog interface {
	Record(ctx context.Context, typ activity.ActivityType, jobID, recordID, summary string, details any)
}

// Service runs bulk jobs and keeps a registry of recent ones.
type Service struct {
	classifier Classifier
	resolver   Resolver
	mutator    Mutator
	backups    BackupSink
	activity   ActivityLog
	jobs       *registry
	logger     *slog.Logger
}

// NewService creates a bulk service. activity may be nil.
func NewService(classifier Classifier, resolver Resolver, mutator Mutator, backups BackupSink, activityLog ActivityLog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		classifier: classifier,
		resolver:   resolver,
		mutator:    mutator,
		backups:    backups,
		activity:   activityLog,
		jobs:       newRegistry(retainedJobs),
		logger:     logger.With("component", "bulk"),
	}
}

// Lookup classifies and resolves every identifier and waits for the result.
func (s *Service) Lookup(ctx context.Context, req Request) (Snapshot, error) {
	req.Kind = KindLookup
	return s.run(ctx, req)
}

// Edit resolves every identifier, backs up each record and applies
// req.Changes to it.
func (s *Service) Edit(ctx context.Context, req Request) (Snapshot, error) {
	req.Kind = KindEdit
	return s.run(ctx, req)
}

// Delete resolves every identifier, backs up each record and deletes it.
func (s *Service) Delete(ctx context.Context, req Request) (Snapshot, error) {
	req.Kind = KindDelete
	return s.run(ctx, req)
}

// Start launches a job in the background and returns it immediately. The
// job outlives ctx; stop it with Cancel.
func (s *Service) Start(ctx context.Context, req Request) (*Job, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	req = storageView(req)
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job := newJob(req, cancel)
	s.jobs.add(job)
	go s.execute(jobCtx, job)
	return job, nil
}

// Get returns a registered job.
func (s *Service) Get(id string) (*Job, error) {
	job, ok := s.jobs.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job, nil
}

// Jobs lists the registered jobs.
func (s *Service) Jobs() []Snapshot {
	jobs := s.jobs.list()
	out := make([]Snapshot, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Snapshot())
	}
	return out
}

// Cancel stops a running job at its next checkpoint.
func (s *Service) Cancel(id string) error {
	job, err := s.Get(id)
	if err != nil {
		return err
	}
	job.Cancel()
	return nil
}

func (s *Service) run(ctx context.Context, req Request) (Snapshot, error) {
	if err := s.validate(req); err != nil {
		return Snapshot{}, err
	}
	req = storageView(req)
	jobCtx, cancel := context.WithCancel(ctx)
	job := newJob(req, cancel)
	s.jobs.add(job)
	s.execute(jobCtx, job)
	return job.Snapshot(), nil
}

func (s *Service) validate(req Request) error {
	if len(req.Identifiers) == 0 {
		return fmt.Errorf("%w: no identifiers", ErrInvalidRequest)
	}
	if _, err := record.ParseRecordKind(string(req.Target)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	switch req.Kind {
	case KindLookup:
	case KindEdit:
		if len(req.Changes) == 0 {
			return fmt.Errorf("%w: edit without changes", ErrInvalidRequest)
		}
		if _, ok := req.Target.UpdatePath("x"); !ok {
			return fmt.Errorf("%w: %s records cannot be updated", ErrInvalidRequest, req.Target)
		}
		if _, ok := req.Changes["id"]; ok {
			return fmt.Errorf("%w: the id field cannot be edited", ErrInvalidRequest)
		}
	case KindDelete:
		if _, ok := req.Target.DeletePath("x"); !ok {
			return fmt.Errorf("%w: %s records cannot be deleted", ErrInvalidRequest, req.Target)
		}
	default:
		return fmt.Errorf("%w: job kind %q", ErrInvalidRequest, req.Kind)
	}
	return nil
}

// storageView makes edit and delete jobs read storage documents. Computed
// view records carry derived fields and cannot be written back as a full
// replacement.
func storageView(req Request) Request {
	if req.Kind != KindLookup {
		req.Options.ComputedView = false
	}
	return req
}

// execute walks the identifier list. Cancellation ends the job exactly once
// at this level; every other error stays with its identifier.
func (s *Service) execute(ctx context.Context, job *Job) {
	req := job.req
	logger := s.logger.With("job_id", job.ID, "kind", string(req.Kind))
	s.record(ctx, activity.TypeJobStarted, job.ID, "", fmt.Sprintf("%s of %d identifiers for %s records", req.Kind, len(req.Identifiers), req.Target), req)
	logger.InfoContext(ctx, "bulk job started", slog.Int("identifiers", len(req.Identifiers)))

	defer func() {
		if p := recover(); p != nil {
			logger.ErrorContext(ctx, "bulk job crashed", slog.Any("panic", p))
			job.finish(StatusFailed, fmt.Sprintf("internal error: %v", p))
			s.record(ctx, activity.TypeJobFailed, job.ID, "", "job stopped after an internal error", nil)
		}
	}()

	for _, raw := range req.Identifiers {
		if err := catalog.Checkpoint(ctx); err != nil {
			s.stopCancelled(ctx, job, logger)
			return
		}
		result, err := s.processOne(ctx, job, raw)
		if errors.Is(err, catalog.ErrCancelled) {
			s.stopCancelled(ctx, job, logger)
			return
		}
		job.add(result)
	}

	snap := job.Snapshot()
	job.finish(StatusCompleted, "")
	logger.InfoContext(ctx, "bulk job finished", slog.Int("completed", snap.Completed))
	s.record(ctx, activity.TypeJobFinished, job.ID, "", fmt.Sprintf("%s finished: %d identifiers", req.Kind, snap.Completed), summarize(snap.Results))
}

func (s *Service) stopCancelled(ctx context.Context, job *Job, logger *slog.Logger) {
	completed := job.Snapshot().Completed
	job.finish(StatusCancelled, "")
	logger.InfoContext(ctx, "bulk job cancelled", slog.Int("completed", completed))
	s.record(ctx, activity.TypeJobCancelled, job.ID, "", fmt.Sprintf("cancelled after %d identifiers", completed), nil)
}

// processOne handles one identifier. Only ErrCancelled is returned; every
// other failure is folded into the result.
func (s *Service) processOne(ctx context.Context, job *Job, raw string) (Result, error) {
	req := job.req
	id := identifier.Clean(raw)
	res := Result{Identifier: raw}

	kind, err := s.classifier.Classify(ctx, raw)
	if err != nil {
		return s.fail(ctx, res, err)
	}
	res.IDKind = kind
	if kind == record.IDUnknown {
		res.Outcome = OutcomeSkipped
		res.Reason = "identifier not recognised"
		return res, nil
	}

	recs, err := s.resolver.Resolve(ctx, id, kind, req.Target, req.Options)
	if err != nil {
		return s.fail(ctx, res, err)
	}
	if len(recs) == 0 {
		res.Outcome = OutcomeSkipped
		res.Reason = fmt.Sprintf("no %s records found", req.Target)
		return res, nil
	}

	switch req.Kind {
	case KindEdit:
		recs, err = s.applyEach(ctx, job, &res, recs, s.edit)
	case KindDelete:
		recs, err = s.applyEach(ctx, job, &res, recs, s.delete)
	}
	res.Records = recs
	if err != nil {
		return s.fail(ctx, res, err)
	}
	res.Outcome = OutcomeOK
	return res, nil
}

type mutateFunc func(ctx context.Context, job *Job, rec record.Record) (record.Record, *backup.Backup, error)

// applyEach mutates every record, stopping at the first failure. It
// returns the records that were changed.
func (s *Service) applyEach(ctx context.Context, job *Job, res *Result, recs []record.Record, fn mutateFunc) ([]record.Record, error) {
	out := make([]record.Record, 0, len(recs))
	for _, rec := range recs {
		if err := catalog.Checkpoint(ctx); err != nil {
			return out, err
		}
		changed, b, err := fn(ctx, job, rec)
		if b != nil {
			res.BackupIDs = append(res.BackupIDs, b.ID)
		}
		if err != nil {
			return out, err
		}
		out = append(out, changed)
	}
	return out, nil
}

func (s *Service) edit(ctx context.Context, job *Job, rec record.Record) (record.Record, *backup.Backup, error) {
	data := rec.Clone()
	for path, value := range job.req.Changes {
		if err := record.Set(data, path, value); err != nil {
			return rec, nil, err
		}
	}
	updated, err := rec.WithData(data)
	if err != nil {
		return rec, nil, err
	}

	b, err := s.backups.Take(ctx, job.ID, rec, backup.OperationUpdate)
	if err != nil {
		return rec, nil, err
	}
	if err := s.mutator.Update(ctx, updated); err != nil {
		return rec, b, err
	}
	s.record(ctx, activity.TypeRecordUpdated, job.ID, rec.ID, fmt.Sprintf("updated %s %s", rec.Kind, rec.Name()), job.req.Changes)
	return updated, b, nil
}

func (s *Service) delete(ctx context.Context, job *Job, rec record.Record) (record.Record, *backup.Backup, error) {
	b, err := s.backups.Take(ctx, job.ID, rec, backup.OperationDelete)
	if err != nil {
		return rec, nil, err
	}
	if err := s.mutator.Delete(ctx, rec); err != nil {
		return rec, b, err
	}
	s.record(ctx, activity.TypeRecordDeleted, job.ID, rec.ID, fmt.Sprintf("deleted %s %s", rec.Kind, rec.Name()), map[string]string{"backup_id": b.ID})
	return rec, b, nil
}

func (s *Service) fail(ctx context.Context, res Result, err error) (Result, error) {
	if errors.Is(err, catalog.ErrCancelled) {
		return res, err
	}
	res.Outcome = OutcomeFailed
	res.Category = Category(err)
	res.Reason = err.Error()
	s.logger.WarnContext(ctx, "identifier failed",
		slog.String("identifier", res.Identifier),
		slog.String("category", res.Category),
		slog.String("error", res.Reason),
	)
	return res, nil
}

func (s *Service) record(ctx context.Context, typ activity.ActivityType, jobID, recordID, summary string, details any) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, typ, jobID, recordID, summary, details)
}

// Category names the error taxonomy member of err.
func Category(err error) string {
	var (
		ce *catalog.ClientError
		se *catalog.ServerError
		ue *catalog.UnexpectedStatusError
		re *resolve.ResolutionError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, catalog.ErrCancelled):
		return "cancelled"
	case errors.Is(err, catalog.ErrTransportDown):
		return "transport_down"
	case errors.Is(err, catalog.ErrRateLimitExceeded):
		return "rate_limit_exceeded"
	case errors.Is(err, catalog.ErrInconsistent):
		return "inconsistent"
	case errors.As(err, &re):
		return "resolution"
	case errors.As(err, &ce):
		return "client_error"
	case errors.As(err, &se):
		return "server_error"
	case errors.As(err, &ue):
		return "unexpected"
	default:
		return "error"
	}
}

func summarize(results []Result) map[Outcome]int {
	counts := map[Outcome]int{}
	for _, r := range results {
		counts[r.Outcome]++
	}
	return counts
}
