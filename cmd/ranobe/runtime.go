package main

import (
	"fmt"
	"path/filepath"

	"github.com/pders01/ranobe/internal/api"
	"github.com/pders01/ranobe/internal/config"
	"github.com/pders01/ranobe/internal/content"
	"github.com/pders01/ranobe/internal/debuglog"
	"github.com/pders01/ranobe/internal/feed"
	"github.com/pders01/ranobe/internal/library"
	"github.com/pders01/ranobe/internal/media"
	"github.com/pders01/ranobe/internal/plugins"
	"github.com/pders01/ranobe/internal/reader"
	"github.com/pders01/ranobe/internal/search"
	"github.com/pders01/ranobe/internal/storage"
	"github.com/pders01/ranobe/internal/tui"
	"github.com/pders01/ranobe/internal/validation"
)

// runtime holds everything a command needs, opened from the resolved
// configuration.
type runtime struct {
	cfg       *config.Config
	store     *storage.Store
	client    *api.Client
	library   *library.Library
	searcher  search.Searcher
	resolvers *plugins.Registry
	feed      *feed.Manager
	settings  *reader.SettingsStore
	positions *reader.PositionMemory
}

// loadConfig reads and validates the configuration and applies the
// persistent flags on top of it.
func loadConfig() (*config.Config, error) {
	paths := validation.NewSecurePathHandler()
	file := configPath
	if file != "" {
		p, err := validation.NewPermissivePathHandler().ConfigPath(file)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		file = p
	}

	cfg, err := config.Load(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		p, err := validation.NewPermissivePathHandler().DBPath(dbPath)
		if err != nil {
			return nil, fmt.Errorf("invalid database path: %w", err)
		}
		cfg.Database.Path = p
	} else {
		p, err := paths.DBPath(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("invalid database path: %w", err)
		}
		cfg.Database.Path = p
	}
	if cfg.Database.SearchIndex != "" {
		p, err := paths.IndexPath(cfg.Database.SearchIndex)
		if err != nil {
			return nil, fmt.Errorf("invalid search index path: %w", err)
		}
		cfg.Database.SearchIndex = p
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if debuglog.ParseLogLevel(cfg.Log.Level) != debuglog.LevelOff {
		p, err := paths.LogPath(cfg.Log.File)
		if err != nil {
			return nil, fmt.Errorf("invalid log path: %w", err)
		}
		cfg.Log.File = p
	}
	return cfg, nil
}

func setup() (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.File); err != nil {
		return nil, err
	}
	debuglog.WithFields(map[string]any{"db": cfg.Database.Path, "api": cfg.API.BaseURL}).Infof("starting ranobe %s", Version)

	paths := validation.NewPermissivePathHandler()
	if _, err := paths.EnsureDirectory(filepath.Dir(cfg.Database.Path)); err != nil {
		return nil, fmt.Errorf("preparing database directory: %w", err)
	}
	store, err := storage.NewStoreWithTimeout(cfg.Database.Path, cfg.Database.Timeout)
	if err != nil {
		return nil, err
	}

	client, err := api.NewClient(api.Options{
		BaseURL:           cfg.API.BaseURL,
		Token:             cfg.API.Token,
		UserAgent:         cfg.API.UserAgent,
		Timeout:           cfg.API.HTTPTimeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	lib := library.New(client, store)
	searcher := search.Open(store, cfg.Database.SearchIndex)
	if ix, ok := searcher.(search.Indexer); ok {
		lib.SetIndexer(ix)
	}

	resolvers := newResolvers(cfg)
	tui.ApplyColors(cfg.UI.Colors)

	return &runtime{
		cfg:       cfg,
		store:     store,
		client:    client,
		library:   lib,
		searcher:  searcher,
		resolvers: resolvers,
		feed:      feed.NewManager(store, cfg, resolvers),
		settings:  reader.NewSettingsStoreWithDefaults(store, cfg.ReadingDefaults()),
		positions: reader.NewPositionMemory(store),
	}, nil
}

// newResolvers registers the link resolvers for the configured hosts.
func newResolvers(cfg *config.Config) *plugins.Registry {
	r := plugins.NewRegistry()
	r.Register(plugins.NewCatalogResolver(cfg.API.WebURL, cfg.API.BaseURL))
	return r
}

func (rt *runtime) deps() tui.Deps {
	return tui.Deps{
		Library:   rt.library,
		Searcher:  rt.searcher,
		Feed:      rt.feed,
		Settings:  rt.settings,
		Positions: rt.positions,
		Renderer:  content.NewRenderer(),
		Launcher:  media.NewLauncher(rt.cfg),
		History:   rt.client,
	}
}

func (rt *runtime) Close() {
	if c, ok := rt.searcher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			debuglog.Warnf("closing search index: %v", err)
		}
	}
	if err := rt.store.Close(); err != nil {
		debuglog.Warnf("closing database: %v", err)
	}
	debuglog.Close()
}
