// Package server wires the bot together: it loads the encrypted bundle,
// connects to PostgreSQL, and runs the Telegram dispatcher, the log
// checkpoint pipeline and the operational servers until a signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/serialgate/internal/cryptox"
	"github.com/dmitrijs2005/serialgate/internal/logging"
	"github.com/dmitrijs2005/serialgate/internal/server/archive"
	"github.com/dmitrijs2005/serialgate/internal/server/auditlog"
	"github.com/dmitrijs2005/serialgate/internal/server/bundle"
	"github.com/dmitrijs2005/serialgate/internal/server/cache"
	"github.com/dmitrijs2005/serialgate/internal/server/config"
	"github.com/dmitrijs2005/serialgate/internal/server/dataset"
	"github.com/dmitrijs2005/serialgate/internal/server/httpapi"
	"github.com/dmitrijs2005/serialgate/internal/server/metrics"
	"github.com/dmitrijs2005/serialgate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/serialgate/internal/server/services"
	"github.com/dmitrijs2005/serialgate/internal/server/telegram"
	"github.com/dmitrijs2005/serialgate/internal/server/youtube"

	gs "github.com/dmitrijs2005/serialgate/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger

	db      *sql.DB
	redis   *redis.Client
	logFile io.Closer

	bot        *telegram.Bot
	dispatcher *telegram.Dispatcher
	pipeline   *auditlog.Pipeline
	httpServer *httpapi.Server
	grpcServer *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	app := &App{config: c}
	ready := false
	defer func() {
		if !ready {
			app.close()
		}
	}()

	logFile, err := logging.OpenFile(c.LogFile)
	if err != nil {
		return nil, err
	}
	app.logFile = logFile

	// the process log is written to the same file the pipeline ships
	logger, err := logging.NewJSONLogger(c.LogLevel, os.Stdout, logFile)
	if err != nil {
		return nil, err
	}
	app.logger = logger

	pass := []byte(c.Passphrase)
	b, err := bundle.Load(c.LinksBundlePath, c.TokenBundlePath, pass)
	cryptox.Wipe(pass)
	if err != nil {
		return nil, fmt.Errorf("bundle load error: %w", err)
	}
	c.ApplyCredentials(b.Credentials)

	index := dataset.New(b.Records)
	logger.Info(ctx, "dataset loaded", "records", index.Len())

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migrations error: %w", err)
	}

	m := metrics.New()

	var vopts []youtube.Option
	rc, err := cache.Connect(ctx, c.RedisURL)
	switch {
	case err != nil:
		logger.Warn(ctx, "handle cache disabled", "error", err)
	case rc != nil:
		app.redis = rc
		vopts = append(vopts, youtube.WithCache(cache.NewHandleCache(rc, c.HandleCacheTTL)))
	}

	validator := youtube.New(youtube.Config{
		BaseURL:        c.YouTubeBaseURL,
		APIBaseURL:     c.YouTubeAPIBaseURL,
		APIKey:         c.YouTubeAPIKey,
		HandleTimeout:  c.HandleLookupTimeout,
		APITimeout:     c.ChannelLookupTimeout,
		BlockedHandles: c.BlockedHandles,
		BlockedIDs:     c.BlockedChannelIDs,
	}, logger, m, vopts...)

	svc := services.NewOnboardingService(db, rm, index, validator, logger, m, c)

	sinks := auditlog.MultiSink{auditlog.NewStoreSink(rm.AuditLogs(db))}
	s3sink, err := archive.NewS3Sink(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("archive init error: %w", err)
	}
	if s3sink != nil {
		sinks = append(sinks, s3sink)
	}
	app.pipeline = auditlog.NewPipeline(c, sinks, logger, m, auditlog.WithWriterLock(logFile))

	bot, err := telegram.Connect(c.BotToken)
	if err != nil {
		return nil, err
	}
	app.bot = bot
	app.dispatcher = telegram.NewDispatcher(svc, bot.Sender(), logger)
	logger.Info(ctx, "telegram bot authorized", "bot", bot.UserName())

	app.httpServer = httpapi.NewServer(c.MetricsAddr, httpapi.NewRouter(db, m.Handler()), logger)
	app.grpcServer = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, db)

	ready = true
	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.pipeline.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.grpcServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		go func() {
			<-ctx.Done()
			app.bot.Stop()
		}()
		app.dispatcher.Run(ctx, app.bot.Updates())
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
	app.close()
}

func (app *App) close() {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	if app.logFile != nil {
		errs = append(errs, app.logFile.Close())
	}
	if err := errors.Join(errs...); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
}
