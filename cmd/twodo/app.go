package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hochfrequenz/twodo/internal/config"
	"github.com/hochfrequenz/twodo/internal/github"
	"github.com/hochfrequenz/twodo/internal/interrupt"
	"github.com/hochfrequenz/twodo/internal/logging"
	"github.com/hochfrequenz/twodo/internal/notify"
	"github.com/hochfrequenz/twodo/internal/prompts"
	"github.com/hochfrequenz/twodo/internal/provider"
	"github.com/hochfrequenz/twodo/internal/router"
	"github.com/hochfrequenz/twodo/internal/schedule"
	"github.com/hochfrequenz/twodo/internal/scheduler"
	"github.com/hochfrequenz/twodo/internal/shell"
	"github.com/hochfrequenz/twodo/internal/todostore"
	"github.com/rs/zerolog"
)

// app bundles the collaborators a command needs
type app struct {
	cfg      *config.Config
	cfgPath  string
	logger   zerolog.Logger
	closeLog func()
	store    *todostore.Store
}

func resolveConfigPath() string {
	if configPath != "" {
		return config.ExpandPath(configPath)
	}
	return config.DefaultConfigPath()
}

func loadConfig() (*config.Config, string, error) {
	path := resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// openApp loads config, builds the logger and opens the todo store
func openApp() (*app, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, closeLog, err := logging.New(level, cfg.Logging.File, interrupt.Writer(os.Stderr))
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}

	store, err := todostore.New(cfg.General.DatabasePath)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("opening todo store: %w", err)
	}

	return &app{cfg: cfg, cfgPath: path, logger: logger, closeLog: closeLog, store: store}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("closing todo store")
	}
	a.closeLog()
}

// router wires the provider adapters for every configured key into a
// Router over the matching catalog
func (a *app) router(ctx context.Context) (*router.Router, error) {
	d, err := provider.FromKeys(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	catalog := router.NewCatalog(d.Providers(), a.cfg.Preferences.LoadOnlyFreeModels)
	return router.New(catalog, d, a.logger,
		router.WithDeveloperContext(a.cfg.Preferences.DeveloperContext),
		router.WithPreferredModel(a.cfg.Preferences.DefaultModel),
	), nil
}

// promptLoader picks up template overrides from the project and the user dir
func (a *app) promptLoader() *prompts.Loader {
	return prompts.DefaultLoader(config.FindProjectRoot())
}

func (a *app) github() *github.Client {
	return github.New(shell.ExecRunner{}, a.cfg.GitHub.Repo, a.cfg.GitHub.WorkDir)
}

func (a *app) notifier() notify.Notifier {
	return notify.New(a.cfg.Notifications.Desktop, a.cfg.Notifications.SlackWebhook)
}

// scheduler builds the schedule registry with an executor wired to every
// collaborator
func (a *app) scheduler(ctx context.Context, opts ...scheduler.Option) (*scheduler.Scheduler, error) {
	r, err := a.router(ctx)
	if err != nil {
		return nil, err
	}
	fs, err := schedule.NewFileStore(a.cfg.General.SchedulesDir)
	if err != nil {
		return nil, err
	}

	exec := scheduler.NewExecutor(r, a.store, a.logger,
		scheduler.WithGitHub(a.github()),
		scheduler.WithWorkDir(a.cfg.GitHub.WorkDir),
		scheduler.WithCommandTimeout(a.cfg.CommandTimeout()),
		scheduler.WithPrompts(a.promptLoader()),
	)
	opts = append([]scheduler.Option{
		scheduler.WithRunRecorder(a.store),
		scheduler.WithNotifier(a.notifier()),
	}, opts...)
	return scheduler.New(fs, exec, a.logger, opts...)
}
