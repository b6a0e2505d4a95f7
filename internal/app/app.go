package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/five82/pidash/internal/auth"
	"github.com/five82/pidash/internal/config"
	"github.com/five82/pidash/internal/endpoint"
	"github.com/five82/pidash/internal/logging"
	"github.com/five82/pidash/internal/prefs"
	"github.com/five82/pidash/internal/session"
	"github.com/five82/pidash/internal/state"
	"github.com/five82/pidash/internal/ui"
)

// Options configure the pidash application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/pidash/prefs.toml
	BaseURL    string // overrides base_url from the config file
	Debug      bool
}

// Run boots the pidash TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if url := strings.TrimSpace(opts.BaseURL); url != "" {
		cfg.BaseURL = url
	}

	logger, logFile, err := logging.Init(logging.Config{Level: cfg.LogLevel, Debug: opts.Debug, Path: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	client, err := endpoint.NewClient(cfg.BaseURL,
		endpoint.WithTimeout(cfg.RequestTimeout),
		endpoint.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("init device client: %w", err)
	}

	tokens := auth.NewCookieTokenStore(client.Jar(), client.BaseURL(), cfg.SessionFile, logger)
	tokens.Restore()

	sess := session.New(session.Deps{
		API:        client,
		Subscriber: endpoint.NewSSESubscriber(client),
		Tokens:     tokens,
		Log:        logger,
	})
	defer sess.Close()

	logger.Info().Str("device", client.BaseURL().String()).Msg("pidash starting")

	// The auth check blocks on the network; the UI shows it as pending.
	go sess.Start(ctx)

	store := &state.Store{}
	StartPump(ctx, store, sess, cfg.Refresh, logger)

	return ui.Run(ui.Options{
		Context:   ctx,
		Session:   sess,
		Store:     store,
		Device:    client.BaseURL().String(),
		Tick:      cfg.Refresh,
		ThemeName: userPrefs.Theme,
		StartTab:  userPrefs.StartTab,
		PrefsPath: opts.PrefsPath,
		Log:       logger,
	})
}
