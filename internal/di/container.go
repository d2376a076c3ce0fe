package di

import (
	"context"
	"fmt"

	"chat-bridge/internal/application/port/output"
	"chat-bridge/internal/infrastructure/attachment"
	"chat-bridge/internal/infrastructure/browser/rod"
	"chat-bridge/internal/infrastructure/diagnostics"
	"chat-bridge/internal/infrastructure/httpapi"
	"chat-bridge/internal/infrastructure/logger"
	"chat-bridge/internal/infrastructure/metrics"
	"chat-bridge/internal/usecase/exchange"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

type Container struct {
	Session  output.ChatSessionPort
	Logger   output.LoggerPort
	Exchange *exchange.UseCase
	Server   *httpapi.Server
	Registry *prometheus.Registry

	fatal chan error
}

// NewContainer launches the browser, opens the chat site and wires the HTTP
// surface. Any failure here is fatal: the bridge is useless without its
// session.
func NewContainer(ctx context.Context, cfg Config) (*Container, error) {
	log, err := logger.NewLoggerAdapter(logger.Config{
		Level: cfg.LogLevel,
		Dir:   cfg.LogDir,
		Name:  "chat-bridge",
		JSON:  cfg.LogJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	selectors, err := rod.LoadSelectors(cfg.SelectorsFile)
	if err != nil {
		log.Close()
		return nil, err
	}

	browserCfg := rod.DefaultConfig()
	browserCfg.Headless = cfg.BrowserHeadless
	browserCfg.Bin = cfg.BrowserBin
	browserCfg.UserDataDir = cfg.UserDataDir
	browserCfg.Stealth = cfg.BrowserStealth
	browserCfg.NoSandbox = cfg.BrowserNoSandbox
	browserCfg.Trace = cfg.BrowserTrace
	browserCfg.Timeout = cfg.ElementTimeout
	browserCfg.Selectors = selectors

	log.Info("Launching browser", "headless", cfg.BrowserHeadless, "profile", cfg.UserDataDir)
	session, err := rod.NewSessionAdapter(ctx, browserCfg)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create browser: %w", err)
	}
	if err := session.Open(ctx, cfg.Site); err != nil {
		session.Close()
		log.Close()
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Site, err)
	}
	log.Info("Chat site ready", "url", session.CurrentURL())

	c, err := assemble(cfg, log, session)
	if err != nil {
		session.Close()
		log.Close()
		return nil, err
	}
	return c, nil
}

// assemble wires everything that sits on top of an open session.
func assemble(cfg Config, log output.LoggerPort, session output.ChatSessionPort) (*Container, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.New(reg)

	stager, err := attachment.NewStager(attachment.Config{
		Dir:          cfg.UploadDir,
		AllowPaths:   cfg.AttachmentAllowPaths,
		MaxDimension: cfg.AttachmentMaxDimension,
		MaxPixels:    cfg.AttachmentMaxPixels,
	})
	if err != nil {
		return nil, err
	}

	c := &Container{
		Session:  session,
		Logger:   log,
		Registry: reg,
		fatal:    make(chan error, 1),
	}

	opts := []exchange.Option{exchange.WithFatalHandler(c.reportFatal)}
	if cfg.DiagnosticsDir != "" {
		writer, err := diagnostics.NewWriter(cfg.DiagnosticsDir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, exchange.WithDiagnostics(writer))
	}

	c.Exchange = exchange.New(
		session,
		exchange.NewSerializer(cfg.QueuePolicy, cfg.QueueMaxWait, collector),
		stager,
		log,
		collector,
		exchange.Config{
			CompletionTimeout: cfg.CompletionTimeout,
			UploadTimeout:     cfg.UploadTimeout,
			Poll:              cfg.poller(),
		},
		opts...,
	)

	c.Server = httpapi.NewServer(httpapi.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		AccessLog:   cfg.AccessLog,
		JSONLog:     cfg.LogJSON,
		CORSOrigins: cfg.CORSOrigins,
	}, c.Exchange, metrics.Handler(reg), log)

	return c, nil
}

func (c *Container) reportFatal(err error) {
	select {
	case c.fatal <- err:
	default:
	}
}

// Run serves HTTP until ctx ends or the browser session dies. A dead session
// is returned as an error so the process exits and can be restarted.
func (c *Container) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Server.Run(gctx)
	})
	g.Go(func() error {
		select {
		case err := <-c.fatal:
			c.Logger.Error("Browser session lost, shutting down", "error", err)
			return err
		case <-gctx.Done():
			return nil
		}
	})

	return g.Wait()
}

func (c *Container) Close() {
	if c.Session != nil {
		c.Session.Close()
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}
