package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"medleave/internal/audit"
	"medleave/internal/audit/relay"
	"medleave/internal/decision"
	decisionhandler "medleave/internal/decision/handler"
	decisionmetrics "medleave/internal/decision/metrics"
	"medleave/internal/enrollment"
	"medleave/internal/evidence"
	"medleave/internal/leave"
	leavehandler "medleave/internal/leave/handler"
	leavemetrics "medleave/internal/leave/metrics"
	"medleave/internal/leave/service"
	"medleave/internal/notify"
	"medleave/internal/platform/config"
	"medleave/internal/platform/httpserver"
	"medleave/internal/platform/logger"
	"medleave/internal/platform/postgres"
	platformredis "medleave/internal/platform/redis"
	"medleave/internal/platform/token"
	transport "medleave/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		db       *sql.DB
		tx       service.StoreTx
		auditor  audit.Store
		relaying *relay.Relay
	)

	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres unavailable", "error", err)
			return err
		}
		defer db.Close()
		tx = newSQLStoreTx(db, leave.NewPostgres(db), log)
		auditor = audit.NewPostgres(db)
	} else {
		// No database configured: run fully in memory for local development.
		log.Warn("no database configured, using in-memory stores")
		tx = service.NewShardedTx(leave.NewInMemoryStore())
		auditor = audit.NewInMemoryStore()
	}

	if db != nil && len(cfg.KafkaBrokers) > 0 {
		kafkaClient, err := relay.NewClient(cfg.KafkaBrokers)
		if err != nil {
			log.Error("kafka unavailable", "error", err)
			return err
		}
		defer kafkaClient.Close()
		relaying = relay.New(db, kafkaClient, cfg.AuditTopic, log)
	}

	var courses enrollment.Provider = enrollment.NewStaticProvider()
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		courses = enrollment.NewCachedProvider(courses, redisClient.Client, cfg.EnrollmentCacheTTL, log)
	}

	dispatcher := notify.NewDispatcher(notify.NewLogSink(log), cfg.NotifyBuffer, log)
	defer dispatcher.Close()

	// TODO: swap for the object-storage adapter once the evidence bucket
	// is provisioned.
	blobs := evidence.NewInMemoryBlobStore()

	leaveSvc := service.New(tx, blobs, auditor, dispatcher, log, leavemetrics.New())
	decisionSvc := decision.New(tx, courses, auditor, dispatcher, log, decisionmetrics.New())

	router := transport.NewRouter(transport.Deps{
		Leave:    leavehandler.New(leaveSvc, log),
		Decision: decisionhandler.New(decisionSvc, log),
		Verifier: token.NewVerifier(cfg.JWTSigningKey),
		Health: func(w http.ResponseWriter, r *http.Request) {
			if db != nil {
				if err := db.PingContext(r.Context()); err != nil {
					http.Error(w, "database unreachable", http.StatusServiceUnavailable)
					return
				}
			}
			w.WriteHeader(http.StatusOK)
		},
		Logger: log,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if relaying != nil {
		g.Go(func() error {
			log.Info("outbox relay started", "topic", cfg.AuditTopic)
			if err := relaying.Run(gCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}
