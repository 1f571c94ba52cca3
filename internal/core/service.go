package core

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"dlcinst/internal/component"
	"dlcinst/internal/domain"
	"dlcinst/internal/linker"
	"dlcinst/internal/payload"
	"dlcinst/internal/probe"
	"dlcinst/internal/storage/cache"
	"dlcinst/internal/storage/config"
	"dlcinst/internal/storage/db"
)

// ServiceConfig holds configuration for the core service
type ServiceConfig struct {
	ConfigDir      string       // Directory for config.yaml and selections.yaml
	DataDir        string       // Directory for the history database and payload cache
	SelectionsPath string       // Optional: overrides ConfigDir/selections.yaml
	Logger         *slog.Logger // Optional
	NoHooks        bool         // Skip the hooks configured in config.yaml
}

// Service wires configuration, payloads, storage and the orchestrator together
type Service struct {
	config       *config.Config
	db           *db.DB // nil when history is disabled
	cache        *cache.Cache
	payloads     *payload.Set
	prober       *probe.Prober
	orchestrator *Orchestrator
	registry     *Registry
	logger       *slog.Logger

	dirs           config.Dirs
	selectionsPath string
	noHooks        bool
}

// NewService creates a new core service instance
func NewService(cfg ServiceConfig) (*Service, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	dirs := config.Dirs{Config: cfg.ConfigDir, Data: cfg.DataDir}

	appConfig, err := config.Load(dirs.Config)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var payloads *payload.Set
	if appConfig.PayloadDir != "" {
		payloads, err = payload.FromDir(appConfig.PayloadDir)
	} else {
		payloads, err = payload.Embedded()
	}
	if err != nil {
		return nil, fmt.Errorf("loading payloads: %w", err)
	}

	selectionsPath := cfg.SelectionsPath
	if selectionsPath == "" {
		selectionsPath = dirs.SelectionsPath()
	}
	sels, err := config.LoadSelections(selectionsPath)
	if err != nil {
		return nil, fmt.Errorf("loading selections: %w", err)
	}
	registry, err := NewRegistry(sels...)
	if err != nil {
		return nil, fmt.Errorf("loading selections: %w", err)
	}

	if err := os.MkdirAll(dirs.Data, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	var database *db.DB
	if appConfig.History {
		database, err = db.New(dirs.DatabasePath())
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
	}

	payloadCache := cache.New(dirs.CacheDir())
	prober := probe.New(payloads)
	installer := component.NewInstaller(payloads, payloadCache, linker.New(appConfig.LinkMethod), logger)

	logger.Debug("service ready",
		"config", dirs.Config,
		"data", dirs.Data,
		"selections", selectionsPath,
		"link_method", appConfig.LinkMethod.String(),
		"history", appConfig.History)

	return &Service{
		config:         appConfig,
		db:             database,
		cache:          payloadCache,
		payloads:       payloads,
		prober:         prober,
		orchestrator:   NewOrchestrator(prober, installer, appConfig.DefaultProxy, logger),
		registry:       registry,
		logger:         logger,
		dirs:           dirs,
		selectionsPath: selectionsPath,
		noHooks:        cfg.NoHooks,
	}, nil
}

// Close releases resources held by the service
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Config returns the loaded application config
func (s *Service) Config() *config.Config {
	return s.config
}

// Registry returns the selections loaded from the selections file
func (s *Service) Registry() *Registry {
	return s.registry
}

// Prober returns the directory prober
func (s *Service) Prober() *probe.Prober {
	return s.prober
}

// Orchestrator returns the reconciliation orchestrator
func (s *Service) Orchestrator() *Orchestrator {
	return s.orchestrator
}

// Cache returns the payload cache
func (s *Service) Cache() *cache.Cache {
	return s.cache
}

// DB returns the history database, or nil when history is disabled
func (s *Service) DB() *db.DB {
	return s.db
}

// SelectionsPath returns the selections file in use
func (s *Service) SelectionsPath() string {
	return s.selectionsPath
}

// SaveSelections writes the registry back to the selections file
func (s *Service) SaveSelections() error {
	return config.SaveSelections(s.selectionsPath, s.registry.All())
}

// NewRunner creates a runner over the service's registry. History is
// recorded and configured hooks run unless disabled.
func (s *Service) NewRunner(opts RunnerOptions) *Runner {
	if opts.HookRunner == nil && !s.noHooks && !s.config.Hooks.IsEmpty() {
		opts.Hooks = s.config.Hooks
		opts.HookRunner = NewHookRunner(s.config.HookTimeoutDuration())
	}
	if opts.Recorder == nil && s.db != nil {
		opts.Recorder = s.db
	}
	if opts.Logger == nil {
		opts.Logger = s.logger
	}
	return NewRunner(s.registry, s.orchestrator, opts)
}

// Restrict enables only the selections named by ids (matched against the
// selection id, or "platform/id"), disabling every other one. An unknown id
// is an error.
func (s *Service) Restrict(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	wanted := map[*domain.ProgramSelection]bool{}
	for _, id := range ids {
		found := s.registry.Find(id)
		if len(found) == 0 {
			for _, sel := range s.registry.All() {
				if sel.Key().String() == id {
					found = append(found, sel)
				}
			}
		}
		if len(found) == 0 {
			return fmt.Errorf("%w: %s", domain.ErrSelectionNotFound, id)
		}
		for _, sel := range found {
			wanted[sel] = true
		}
	}
	for _, sel := range s.registry.All() {
		sel.Enabled = wanted[sel]
	}
	return nil
}
