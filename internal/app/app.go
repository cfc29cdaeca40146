// Package app wires the catalog client, caches, domain services and outer
// surfaces from a Config.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/catalogbulk/internal/api"
	"github.com/rpggio/catalogbulk/internal/cache"
	"github.com/rpggio/catalogbulk/internal/catalog"
	"github.com/rpggio/catalogbulk/internal/config"
	"github.com/rpggio/catalogbulk/internal/domain/activity"
	"github.com/rpggio/catalogbulk/internal/domain/backup"
	"github.com/rpggio/catalogbulk/internal/domain/bulk"
	"github.com/rpggio/catalogbulk/internal/domain/identifier"
	"github.com/rpggio/catalogbulk/internal/domain/mutation"
	"github.com/rpggio/catalogbulk/internal/domain/resolve"
	"github.com/rpggio/catalogbulk/internal/mcp"
	"github.com/rpggio/catalogbulk/internal/sqlite"
	"github.com/rpggio/catalogbulk/internal/transport"
)

// App holds every long-lived component of a running process.
type App struct {
	Config config.Config
	Logger *slog.Logger

	DB              *sqlite.DB
	Catalog         *catalog.Client
	Classifications *cache.Classifications
	TypeCache       *cache.Types

	Classifier *identifier.Classifier
	Types      *resolve.TypeService
	Resolver   *resolve.Resolver
	Mutations  *mutation.Service
	Backups    *backup.Service
	Activity   *activity.Service
	Jobs       *bulk.Service
	Handler    *api.Handler
}

// New opens the database and builds the service graph. Callers own the
// returned App and must Close it.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("preparing database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	httpTransport := catalog.NewHTTPTransport(cfg.Catalog.URL, catalog.Credentials{
		Tenant: cfg.Catalog.Tenant,
		Token:  cfg.Catalog.Token,
	}, cfg.Catalog.Timeout, logger)
	client := catalog.NewClient(httpTransport,
		catalog.WithRetryPolicy(catalog.RetryPolicy{
			MaxRetries: cfg.Catalog.RetryAttempts,
			BaseDelay:  cfg.Catalog.RetryBaseDelay,
		}),
		catalog.WithLogger(logger),
	)

	classifications := cache.NewClassifications(cache.Policy{
		Size: cfg.Cache.ClassificationSize,
		TTL:  cfg.Cache.ClassificationTTL,
	})
	typeCache := cache.NewTypes(cache.Policy{TTL: cfg.Cache.TypeTTL})

	classifier, err := identifier.NewClassifier(client, classifications, identifier.Config{
		BarcodePatterns: cfg.Classifier.BarcodePatterns,
		AccessionPrefix: cfg.Classifier.AccessionPrefix,
	}, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	resolveCfg := resolve.Config{
		PageSize:   cfg.Resolver.PageSize,
		MaxRecords: cfg.Resolver.MaxRecords,
	}
	types := resolve.NewTypeService(client, typeCache, resolveCfg, logger)
	resolver := resolve.NewResolver(client, types, resolveCfg, logger)
	mutations := mutation.NewService(client, logger)
	backups := backup.NewService(sqlite.NewBackupRepository(db), logger)
	activities := activity.NewService(sqlite.NewActivityRepository(db), logger)
	jobs := bulk.NewService(classifier, resolver, mutations, backups, activities, logger)

	handler := api.NewHandler(api.Services{
		Classifier: classifier,
		Resolver:   resolver,
		Types:      types,
		Mutations:  mutations,
		Jobs:       jobs,
		Backups:    backups,
		Activity:   activities,
		Caches: map[string]api.Cache{
			"classifications": classifications,
			"types":           typeCache,
		},
	}, logger)

	return &App{
		Config:          cfg,
		Logger:          logger,
		DB:              db,
		Catalog:         client,
		Classifications: classifications,
		TypeCache:       typeCache,
		Classifier:      classifier,
		Types:           types,
		Resolver:        resolver,
		Mutations:       mutations,
		Backups:         backups,
		Activity:        activities,
		Jobs:            jobs,
		Handler:         handler,
	}, nil
}

// MCPServer builds an MCP server over the handler for the configured
// transport mode.
func (a *App) MCPServer(version string) *sdkmcp.Server {
	return mcp.NewServer(mcp.Config{
		Handler:       a.Handler,
		Token:         a.Config.Server.Token,
		TransportMode: a.Config.Transport.Mode,
		Version:       version,
		Logger:        a.Logger,
	})
}

// Router serves /health, /rpc and /mcp.
func (a *App) Router(version string) http.Handler {
	return transport.NewServer(a.Handler, transport.Options{
		Token:  a.Config.Server.Token,
		MCP:    mcp.NewHTTPHandler(a.MCPServer(version)),
		Logger: a.Logger,
	})
}

// Close cancels running jobs and closes the database.
func (a *App) Close() error {
	for _, snap := range a.Jobs.Jobs() {
		if snap.Status == bulk.StatusRunning {
			_ = a.Jobs.Cancel(snap.ID)
		}
	}
	return a.DB.Close()
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
