package resolve

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/rpggio/catalogbulk/internal/cache"
	"github.com/rpggio/catalogbulk/internal/catalog"
	"github.com/rpggio/catalogbulk/internal/domain/record"
)

// TypeService serves controlled-vocabulary lists through the type cache.
type TypeService struct {
	catalog Catalog
	cache   *cache.Types
	cfg     Config
	logger  *slog.Logger
}

// NewTypeService creates a type service. Lists are read cfg.PageSize entries
// at a time up to cfg.MaxRecords.
func NewTypeService(cat Catalog, types *cache.Types, cfg Config, logger *slog.Logger) *TypeService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if types == nil {
		types = cache.NewTypes(cache.Policy{})
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = defaultMaxRecords
	}
	return &TypeService{catalog: cat, cache: types, cfg: cfg, logger: logger.With("component", "types")}
}

// Kinds enumerates the supported type categories.
func (s *TypeService) Kinds() []record.TypeKind {
	return append([]record.TypeKind(nil), record.TypeKinds...)
}

// List returns the type list for kind sorted by its name field.
func (s *TypeService) List(ctx context.Context, kind record.TypeKind) ([]record.Record, error) {
	if kind.Path() == "" {
		return nil, fmt.Errorf("%w: type kind %q", record.ErrUnknownKind, kind)
	}
	return s.cache.Get(ctx, kind, s.load)
}

// Find looks id up across every type list.
func (s *TypeService) Find(ctx context.Context, id string) (record.Record, record.TypeKind, bool, error) {
	for _, kind := range record.TypeKinds {
		recs, err := s.List(ctx, kind)
		if err != nil {
			if catalog.IsNotFound(err) {
				s.logger.DebugContext(ctx, "type list unavailable", slog.String("kind", string(kind)))
				continue
			}
			return record.Record{}, "", false, err
		}
		for _, rec := range recs {
			if rec.ID == id {
				return rec, kind, true, nil
			}
		}
	}
	return record.Record{}, "", false, nil
}

func (s *TypeService) load(ctx context.Context, kind record.TypeKind) ([]record.Record, error) {
	recs, err := collect(ctx, s.catalog, listRequest{
		path:     kind.Path(),
		cql:      "cql.allRecords=1",
		kind:     record.KindType,
		pageSize: s.cfg.PageSize,
		max:      s.cfg.MaxRecords,
	}, s.logger)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", kind, err)
	}

	field := kind.NameField()
	sort.SliceStable(recs, func(i, j int) bool {
		return strings.ToLower(recs[i].String(field)) < strings.ToLower(recs[j].String(field))
	})
	s.logger.DebugContext(ctx, "loaded type list", slog.String("kind", string(kind)), slog.Int("count", len(recs)))
	return recs, nil
}
