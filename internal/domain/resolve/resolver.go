// Package resolve turns an identifier of a known kind into records of a
// target kind by walking the item/holdings/instance/loan/user graph.
package resolve

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/rpggio/catalogbulk/internal/catalog"
	"github.com/rpggio/catalogbulk/internal/domain/identifier"
	"github.com/rpggio/catalogbulk/internal/domain/record"
)

const (
	defaultPageSize   = 1000
	defaultMaxRecords = 10000
)

// Catalog is the read access the resolver needs.
type Catalog interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}

// Options select the view and loan filtering for one resolution.
type Options struct {
	// ComputedView reads items and instances from the inventory module
	// instead of raw storage.
	ComputedView bool `json:"computed_view"`
	// OpenLoansOnly drops loans whose status is not Open at every hop.
	OpenLoansOnly bool `json:"open_loans_only"`
}

// Config bounds list paging.
type Config struct {
	PageSize   int
	MaxRecords int
}

// Resolver walks the routing table.
type Resolver struct {
	catalog  Catalog
	types    *TypeService
	registry map[route]strategy
	pageSize int
	max      int
	logger   *slog.Logger
}

// NewResolver creates a resolver. types may be nil when type ids are never
// resolved.
func NewResolver(cat Catalog, types *TypeService, cfg Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = defaultMaxRecords
	}
	return &Resolver{
		catalog:  cat,
		types:    types,
		registry: defaultRegistry(),
		pageSize: cfg.PageSize,
		max:      cfg.MaxRecords,
		logger:   logger.With("component", "resolver"),
	}
}

// Supports reports whether idKind can be resolved to target.
func (r *Resolver) Supports(idKind record.IdentifierKind, target record.RecordKind) bool {
	_, ok := r.registry[route{target: target, idKind: idKind}]
	return ok
}

// Targets lists the record kinds reachable from idKind.
func (r *Resolver) Targets(idKind record.IdentifierKind) []record.RecordKind {
	var out []record.RecordKind
	for _, k := range record.RecordKinds {
		if r.Supports(idKind, k) {
			out = append(out, k)
		}
	}
	return out
}

// Resolve returns the target records for id. A missing record anywhere on
// the path yields an empty result rather than an error.
func (r *Resolver) Resolve(ctx context.Context, id string, idKind record.IdentifierKind, target record.RecordKind, opts Options) ([]record.Record, error) {
	s, ok := r.registry[route{target: target, idKind: idKind}]
	if !ok {
		return nil, &ResolutionError{IDKind: idKind, Target: target}
	}
	if err := catalog.Checkpoint(ctx); err != nil {
		return nil, err
	}

	var (
		recs []record.Record
		err  error
	)
	switch s := s.(type) {
	case direct:
		recs, err = r.direct(ctx, s, id, target, opts)
	case chain:
		recs, err = r.chain(ctx, s, id, idKind, target, opts)
	case rekey:
		var next string
		next, err = s.transform(id)
		if err != nil {
			return nil, fmt.Errorf("rekeying %s %s: %w", idKind, id, err)
		}
		recs, err = r.Resolve(ctx, next, s.to, target, opts)
	case typeScan:
		recs, err = r.typeScan(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	if target == record.KindLoan && opts.OpenLoansOnly {
		recs = openLoans(recs)
	}
	return dedupe(recs), nil
}

func (r *Resolver) direct(ctx context.Context, d direct, id string, target record.RecordKind, opts Options) ([]record.Record, error) {
	path := expandPrefix(d.path, opts)
	if d.field == "" {
		return r.fetchOne(ctx, record.Expand(path, id), target, d.notFoundIsEmpty)
	}

	recs, err := r.fetchList(ctx, path, catalog.CQLEquals(d.field, id), target)
	if err != nil || len(recs) > 0 || !d.padUserBarcode {
		return recs, err
	}
	padded, ok := identifier.PadUserBarcode(id)
	if !ok {
		return recs, nil
	}
	r.logger.DebugContext(ctx, "retrying user barcode zero-padded", slog.String("id", id), slog.String("padded", padded))
	return r.fetchList(ctx, path, catalog.CQLEquals(d.field, padded), target)
}

func (r *Resolver) chain(ctx context.Context, c chain, id string, idKind record.IdentifierKind, target record.RecordKind, opts Options) ([]record.Record, error) {
	hops, err := r.Resolve(ctx, id, idKind, c.via, opts)
	if err != nil {
		if catalog.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(hops) == 0 {
		return nil, nil
	}

	r.logger.DebugContext(ctx, "resolving hop",
		slog.String("id", id),
		slog.String("via", c.via.String()),
		slog.String("target", target.String()),
		slog.Int("count", len(hops)),
	)

	seen := make(map[string]struct{}, len(hops))
	var out []record.Record
	for _, hop := range hops {
		if err := catalog.Checkpoint(ctx); err != nil {
			return nil, err
		}
		next := hop.ID
		if c.field != "id" {
			next = hop.String(c.field)
		}
		if next == "" {
			continue
		}
		if _, dup := seen[next]; dup {
			continue
		}
		seen[next] = struct{}{}

		recs, err := r.Resolve(ctx, next, c.next, target, opts)
		if err != nil {
			if catalog.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func (r *Resolver) typeScan(ctx context.Context, id string) ([]record.Record, error) {
	if r.types == nil {
		return nil, &ResolutionError{IDKind: record.IDTypeID, Target: record.KindType}
	}
	rec, _, found, err := r.types.Find(ctx, id)
	if err != nil || !found {
		return nil, err
	}
	return []record.Record{rec}, nil
}

func (r *Resolver) fetchOne(ctx context.Context, path string, kind record.RecordKind, notFoundIsEmpty bool) ([]record.Record, error) {
	if err := catalog.Checkpoint(ctx); err != nil {
		return nil, err
	}
	body, err := r.catalog.Get(ctx, path, nil)
	if err != nil {
		if notFoundIsEmpty && catalog.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	rec, err := record.ParseSingle(kind, body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return []record.Record{rec}, nil
}

// fetchList pages through a list endpoint until the result is exhausted or
// the record cap is hit.
func (r *Resolver) fetchList(ctx context.Context, path, cql string, kind record.RecordKind) ([]record.Record, error) {
	return collect(ctx, r.catalog, listRequest{
		path:     path,
		cql:      cql,
		kind:     kind,
		key:      kind.PluralKey(),
		pageSize: r.pageSize,
		max:      r.max,
	}, r.logger)
}

type listRequest struct {
	path     string
	cql      string
	kind     record.RecordKind
	key      string
	pageSize int
	max      int
}

// collect reads pages of req until a short page, the reported total or the
// record cap.
func collect(ctx context.Context, cat Catalog, req listRequest, logger *slog.Logger) ([]record.Record, error) {
	var out []record.Record
	for offset := 0; len(out) < req.max; {
		if err := catalog.Checkpoint(ctx); err != nil {
			return nil, err
		}
		limit := min(req.pageSize, req.max-len(out))
		body, err := cat.Get(ctx, req.path, catalog.ListQuery(req.cql, limit, offset))
		if err != nil {
			return nil, fmt.Errorf("querying %s (%s): %w", req.path, req.cql, err)
		}
		env, err := record.ParseEnvelope(req.kind, req.key, body)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", req.path, err)
		}
		out = append(out, env.Records...)
		offset += len(env.Records)
		if len(env.Records) < limit || offset >= env.TotalRecords {
			break
		}
	}
	if len(out) >= req.max {
		logger.WarnContext(ctx, "record cap reached", slog.String("path", req.path), slog.Int("max_records", req.max))
	}
	return out, nil
}

func expandPrefix(path string, opts Options) string {
	if opts.ComputedView {
		path = strings.Replace(path, itemsPrefix, "/inventory/items", 1)
		return strings.Replace(path, instancesPrefix, "/inventory/instances", 1)
	}
	path = strings.Replace(path, itemsPrefix, "/item-storage/items", 1)
	return strings.Replace(path, instancesPrefix, "/instance-storage/instances", 1)
}

func openLoans(recs []record.Record) []record.Record {
	out := recs[:0:0]
	for _, rec := range recs {
		if rec.String("status.name") == "Open" {
			out = append(out, rec)
		}
	}
	return out
}

func dedupe(recs []record.Record) []record.Record {
	if len(recs) < 2 {
		return recs
	}
	seen := make(map[string]struct{}, len(recs))
	out := make([]record.Record, 0, len(recs))
	for _, rec := range recs {
		if rec.ID != "" {
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
		}
		out = append(out, rec)
	}
	return out
}
