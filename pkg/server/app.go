package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ChartDeck/internal/surface"
	"ChartDeck/internal/usecase"
	"ChartDeck/pkg/config"
	xhttp "ChartDeck/pkg/http"
	pkgkafka "ChartDeck/pkg/kafka"
	applogger "ChartDeck/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	httpServer *xhttp.Server
	sessions   *usecase.ChartSessions
	sweeper    *usecase.Sweeper
	hub        *surface.Hub
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
}

// New creates a new App instance with all dependencies. consumer may be nil
// when payload ingestion is disabled.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	sessions *usecase.ChartSessions,
	sweeper *usecase.Sweeper,
	hub *surface.Hub,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		logger:     l,
		httpServer: httpServer,
		sessions:   sessions,
		sweeper:    sweeper,
		hub:        hub,
		consumer:   consumer,
		kh:         kh,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	l := a.logger

	if err := a.sweeper.Start(); err != nil {
		return err
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			l.Error("kafka consumer error", applogger.Error(err))
			return err
		}
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	} else {
		l.Info("kafka ingestion disabled; payloads accepted over HTTP only")
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	l.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	l := a.logger
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop accepting requests before tearing down sessions
	if err := a.httpServer.Stop(ctx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if err := a.sweeper.Stop(ctx); err != nil {
		l.Warn("sweeper stop error", applogger.Error(err))
	}

	a.hub.CloseAll()
	open := a.sessions.Len()
	a.sessions.CloseAll()

	l.Info("shutdown complete", applogger.Int("sessions_closed", open))
	return nil
}
