package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinidesk.app/internal/auth"
	"clinidesk.app/internal/httpapi"
	"clinidesk.app/internal/obs"
	"clinidesk.app/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	env := os.Getenv("CLINIDESK_ENV")
	if env == "" {
		env = "development"
	}

	var (
		store   auth.Store
		pgStore *pg.Store
	)
	if dsn := os.Getenv("CLINIDESK_PG_DSN"); dsn != "" {
		var err error
		pgStore, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		store = pgStore
	} else {
		if env == "production" {
			log.Fatal("CLINIDESK_PG_DSN is required in production")
		}
		log.Print("CLINIDESK_PG_DSN not set, using in-memory store")
		store = auth.NewMemStore()
	}

	opts := []auth.ServiceOption{
		auth.WithSSOSecret(os.Getenv("CLINIDESK_SSO_SECRET"), os.Getenv("CLINIDESK_SSO_ISSUER")),
	}
	if code := os.Getenv("CLINIDESK_TEST_2FA_CODE"); code != "" {
		// The universal bypass code never reaches production.
		if env == "production" {
			log.Fatal("CLINIDESK_TEST_2FA_CODE must not be set in production")
		}
		opts = append(opts, auth.WithTestCode(code))
	}
	svc, err := auth.NewService(store, opts...)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	probe := httpapi.ReadyProbe{}
	if pgStore != nil {
		probe.DB = pgStore.DB()
	}
	api := httpapi.New(probe, version, env, svc)

	addr := os.Getenv("CLINIDESK_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting clinidesk-api %s (%s) on %s", version, env, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}
