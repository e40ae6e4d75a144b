package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"restomap.org/internal/auth"
	"restomap.org/internal/config"
	"restomap.org/internal/httpapi"
	"restomap.org/internal/mail"
	"restomap.org/internal/obs"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.PGDSN == "" {
		log.Fatal("missing DSN: set RESTOMAP_PG_DSN")
	}
	db, err := sql.Open("pgx", cfg.PGDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := auth.NewPGStore(db)

	tokens, err := auth.NewTokenIssuer(cfg.AuthSecret, cfg.TokenIssuer,
		auth.WithTokenTTL(cfg.TokenTTL))
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}

	authSvc, err := auth.NewService(store, tokens,
		auth.WithMinPasswordLen(cfg.MinPasswordLen))
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	var mailer auth.ResetMailer
	if cfg.MailConfigured() {
		mailer, err = mail.NewSMTPSender(cfg)
		if err != nil {
			log.Fatalf("smtp sender: %v", err)
		}
	} else {
		log.Println("SMTP not configured, reset links will be logged")
		mailer = mail.LogSender{}
	}

	resetSvc, err := auth.NewResetService(store, mailer, cfg.BaseURL,
		auth.WithResetWindow(cfg.ResetTokenTTL),
		auth.WithResetMinPasswordLen(cfg.MinPasswordLen))
	if err != nil {
		log.Fatalf("reset service: %v", err)
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go resetSvc.RunSweeper(sweepCtx, cfg.SweepInterval)

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, authSvc, resetSvc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting restomap-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
