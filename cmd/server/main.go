package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/dispensary/internal/config"
	"github.com/suPer8Hu/dispensary/internal/db"
	"github.com/suPer8Hu/dispensary/internal/httpapi"
	"github.com/suPer8Hu/dispensary/internal/httpapi/handlers"
	"github.com/suPer8Hu/dispensary/internal/notify"
	"github.com/suPer8Hu/dispensary/internal/search"
	"github.com/suPer8Hu/dispensary/internal/store/rabbitmq"
	"github.com/suPer8Hu/dispensary/internal/store/redisstore"
)

func main() {
	cfg := config.MustLoad()
	log, err := config.NewLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	if log.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN, log)
	if err != nil {
		log.WithError(err).Fatal("database connect failed")
	}
	if err := db.Migrate(gdb, log); err != nil {
		log.WithError(err).Fatal("database migration failed")
	}

	var rds *redisstore.Store
	if cfg.RedisAddr != "" {
		rds, err = redisstore.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, rate limiting in memory")
			rds = nil
		} else {
			defer rds.Close()
		}
	}

	notifier, closeNotifier := buildNotifier(cfg, log)
	defer closeNotifier()

	var searcher search.Searcher
	if cfg.Search.APIKey != "" && cfg.Search.EngineID != "" {
		gs, err := search.NewGoogleSearcher(ctx, cfg.Search.APIKey, cfg.Search.EngineID)
		if err != nil {
			log.WithError(err).Warn("google search disabled")
		} else {
			searcher = gs
		}
	}

	h, err := handlers.NewHandler(handlers.Deps{
		DB:       gdb,
		Cfg:      cfg,
		Logger:   log,
		Searcher: searcher,
		Notifier: notifier,
	})
	if err != nil {
		log.WithError(err).Fatal("handler setup failed")
	}
	r, err := httpapi.NewRouter(h, rds)
	if err != nil {
		log.WithError(err).Fatal("router setup failed")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "ai_provider": cfg.AI.Provider}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen failed")
		}
	}()

	<-ctx.Done()
	log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

// buildNotifier prefers the queue, then inline SMTP, then a logging no-op.
func buildNotifier(cfg config.Config, log *logrus.Logger) (notify.Notifier, func()) {
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err == nil {
			log.WithField("queue", cfg.RabbitQueue).Info("notifications via rabbitmq")
			return notify.NewQueue(pub, log), func() { _ = pub.Close() }
		}
		log.WithError(err).Warn("rabbitmq unavailable, falling back to inline email")
	}
	if cfg.SMTP.Host != "" {
		mailer, err := notify.NewSMTPMailer(cfg.SMTP)
		if err == nil {
			return notify.NewInline(mailer, log), func() {}
		}
		log.WithError(err).Warn("smtp misconfigured")
	}
	return notify.Discard{Logger: log}, func() {}
}
