package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/smartschoolbus/tracker/internal/app"
	"github.com/smartschoolbus/tracker/internal/config"
	"github.com/smartschoolbus/tracker/internal/db"
	"github.com/smartschoolbus/tracker/internal/jobs"
	"github.com/smartschoolbus/tracker/internal/logging"
	"github.com/smartschoolbus/tracker/internal/observability"
	"github.com/smartschoolbus/tracker/internal/publisher"
	"github.com/smartschoolbus/tracker/internal/socket"
)

const release = "bus-tracker@dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer lg.Closer()

	closeSentry, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, release)
	if err != nil {
		lg.Sugar.Warnw("sentry init failed", "err", err)
	}
	defer closeSentry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Sugar.Fatalw("db connect failed", "err", err)
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(database); err != nil {
		lg.Sugar.Fatalw("migration failed", "err", err)
	}

	store := &db.Store{DB: database}
	hub := socket.NewHub(lg.Base)
	auth := socket.NewAuthenticator(store, store, []byte(cfg.AccessTokenSecret), lg.Base)
	authz := socket.NewTripAuthorizer(store)
	gw := socket.NewGateway(hub, auth, authz, store, store, lg.Base)

	if cfg.NATSURL != "" {
		bridge, err := publisher.NewNATSBridge(cfg.NATSURL, lg.Base)
		if err != nil {
			lg.Sugar.Fatalw("nats connect failed", "err", err)
		}
		defer bridge.Close()
		gw.SetBridge(bridge)
	}

	app.StartHTTP(ctx, cfg.HTTPAddr, database, gw.Handler(), lg.Base)

	runner := jobs.New(ctx, lg.Base)
	reconcile := jobs.ReconcileJob(database, lg.Base, cfg.Location)
	runner.RunNow("reconcile", reconcile)
	runner.Every(cfg.ReconcileInterval, "reconcile", reconcile)

	lg.Sugar.Infow("bus tracker started",
		"addr", cfg.HTTPAddr,
		"reconcile_interval", cfg.ReconcileInterval.String(),
		"nats", cfg.NATSURL != "")

	<-ctx.Done()
	lg.Sugar.Infow("shutting down")
}
