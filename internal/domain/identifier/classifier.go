// Package identifier classifies free-form identifiers into identifier kinds.
package identifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/rpggio/catalogbulk/internal/cache"
	"github.com/rpggio/catalogbulk/internal/catalog"
	"github.com/rpggio/catalogbulk/internal/domain/record"
)

// Catalog is the read access the classifier needs.
type Catalog interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}

// DefaultBarcodePatterns are the item barcode shapes matched without probing.
var DefaultBarcodePatterns = []string{
	`^35047\d{7}$`,
	`^nobarcode\d+$`,
	`^temp-`,
	`^tmp-`,
	`^sfl-`,
}

// DefaultAccessionPrefix is the site accession-number prefix.
const DefaultAccessionPrefix = "cit.oai."

// Config tunes the offline classification rules.
type Config struct {
	BarcodePatterns []string
	AccessionPrefix string
}

var (
	itemHridPattern     = regexp.MustCompile(`(?i)^it\d`)
	holdingsHridPattern = regexp.MustCompile(`(?i)^ho\d`)
)

type probe struct {
	path string
	kind record.IdentifierKind
}

var idProbes = []probe{
	{"/inventory/items/{id}", record.IDItemID},
	{"/inventory/instances/{id}", record.IDInstanceID},
	{"/holdings-storage/holdings/{id}", record.IDHoldingsID},
	{"/circulation/loans/{id}", record.IDLoanID},
	{"/users/{id}", record.IDUserID},
}

// Classifier determines the IdentifierKind of raw identifiers, reading
// through the classification cache.
type Classifier struct {
	catalog         Catalog
	cache           *cache.Classifications
	barcodes        []*regexp.Regexp
	accessionPrefix string
	logger          *slog.Logger
}

// NewClassifier builds a classifier. Empty config fields take defaults.
func NewClassifier(cat Catalog, classifications *cache.Classifications, cfg Config, logger *slog.Logger) (*Classifier, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if classifications == nil {
		classifications = cache.NewClassifications(cache.Policy{})
	}
	patterns := cfg.BarcodePatterns
	if len(patterns) == 0 {
		patterns = DefaultBarcodePatterns
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, p, err)
		}
		compiled = append(compiled, re)
	}
	prefix := cfg.AccessionPrefix
	if prefix == "" {
		prefix = DefaultAccessionPrefix
	}
	return &Classifier{
		catalog:         cat,
		cache:           classifications,
		barcodes:        compiled,
		accessionPrefix: strings.ToLower(prefix),
		logger:          logger.With("component", "classifier"),
	}, nil
}

// Classify returns the kind of raw. Known kinds are cached; Unknown is
// returned without error when every probe misses.
func (c *Classifier) Classify(ctx context.Context, raw string) (record.IdentifierKind, error) {
	id := Clean(raw)
	if id == "" {
		return record.IDUnknown, ErrEmptyIdentifier
	}
	if kind, ok := c.cache.Get(id); ok {
		return kind, nil
	}

	kind, err := c.classify(ctx, id)
	if err != nil {
		return record.IDUnknown, err
	}
	c.cache.Put(id, kind)
	c.logger.DebugContext(ctx, "classified identifier", slog.String("id", id), slog.String("kind", kind.String()))
	return kind, nil
}

// Offline applies only the pattern rules. It reports false when the
// identifier needs probing.
func (c *Classifier) Offline(id string) (record.IdentifierKind, bool) {
	for _, re := range c.barcodes {
		if re.MatchString(id) {
			return record.IDItemBarcode, true
		}
	}
	switch {
	case itemHridPattern.MatchString(id):
		return record.IDItemHrid, true
	case holdingsHridPattern.MatchString(id):
		return record.IDHoldingsHrid, true
	case strings.HasPrefix(strings.ToLower(id), c.accessionPrefix):
		return record.IDAccession, true
	}
	return record.IDUnknown, false
}

func (c *Classifier) classify(ctx context.Context, id string) (record.IdentifierKind, error) {
	if kind, ok := c.Offline(id); ok {
		return kind, nil
	}
	if strings.Count(id, "-") > 2 {
		return c.probeByID(ctx, id)
	}
	return c.probeByQuery(ctx, id)
}

func (c *Classifier) probeByID(ctx context.Context, id string) (record.IdentifierKind, error) {
	for _, p := range idProbes {
		if err := catalog.Checkpoint(ctx); err != nil {
			return record.IDUnknown, err
		}
		_, err := c.catalog.Get(ctx, record.Expand(p.path, id), nil)
		switch {
		case err == nil:
			return p.kind, nil
		case catalog.IsServerError(err) || catalog.IsServerFault(err):
			return record.IDUnknown, fmt.Errorf("probing %s for %s: %w", p.kind, id, err)
		case isMiss(err):
			continue
		default:
			return record.IDUnknown, fmt.Errorf("probing %s for %s: %w", p.kind, id, err)
		}
	}
	return record.IDUnknown, nil
}

func (c *Classifier) probeByQuery(ctx context.Context, id string) (record.IdentifierKind, error) {
	type queryProbe struct {
		path  string
		field string
		value string
		kind  record.IdentifierKind
	}
	probes := []queryProbe{{"/users", "barcode", id, record.IDUserBarcode}}
	if padded, ok := PadUserBarcode(id); ok {
		probes = append(probes, queryProbe{"/users", "barcode", padded, record.IDUserBarcode})
	}
	probes = append(probes,
		queryProbe{"/instance-storage/instances", "hrid", id, record.IDInstanceHrid},
		queryProbe{"/item-storage/items", "hrid", id, record.IDItemHrid},
		queryProbe{"/holdings-storage/holdings", "hrid", id, record.IDHoldingsHrid},
	)

	for _, p := range probes {
		if err := catalog.Checkpoint(ctx); err != nil {
			return record.IDUnknown, err
		}
		body, err := c.catalog.Get(ctx, p.path, catalog.ListQuery(catalog.CQLEquals(p.field, p.value), 0, 0))
		if err != nil {
			if isMiss(err) {
				continue
			}
			return record.IDUnknown, fmt.Errorf("probing %s for %s: %w", p.kind, id, err)
		}
		env, err := record.ParseEnvelope(p.kind.RecordKind(), p.kind.RecordKind().PluralKey(), body)
		if err != nil {
			return record.IDUnknown, fmt.Errorf("probing %s for %s: %w", p.kind, id, err)
		}
		if env.TotalRecords > 0 {
			return p.kind, nil
		}
	}
	return record.IDUnknown, nil
}

// isMiss reports errors that mean "not this kind": not found, or a
// request the endpoint rejects as malformed for this identifier.
func isMiss(err error) bool {
	var ce *catalog.ClientError
	if !errors.As(err, &ce) {
		return false
	}
	switch ce.Status {
	case http.StatusNotFound, http.StatusBadRequest, http.StatusUnprocessableEntity:
		return true
	}
	return false
}
