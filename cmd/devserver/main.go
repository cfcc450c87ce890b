// Command devserver runs the in-memory development backend the sync client
// talks to. State lives in process memory; restart to reset.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gymsync/internal/config"
	"gymsync/internal/devserver"
	"gymsync/internal/storage"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	secret := flag.String("jwt-secret", "dev-secret-do-not-use-in-prod", "JWT signing secret")
	baseURL := flag.String("base-url", "", "external base URL for local storage links (default http://localhost<addr>)")
	configPath := flag.String("config", ".", "directory containing config.yaml (for the s3 section)")
	flag.Parse()

	log.SetPrefix("[devserver] ")
	log.Println("Starting development backend...")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	store := devserver.NewStore()

	// Real S3 (or MinIO) when configured, the in-process object store
	// otherwise.
	var files storage.FileStorage
	var local *devserver.LocalStorage
	if cfg.S3.BucketName != "" {
		files, err = storage.NewS3Storage(cfg.S3)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
		}
	} else {
		local = devserver.NewLocalStorage(store)
		files = local
		log.Println("No S3 bucket configured, using in-process object storage.")
	}

	srv := devserver.New(store, files, *secret, log.Default())
	server := &http.Server{
		Addr:         *addr,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if local != nil {
		external := *baseURL
		if external == "" {
			external = fmt.Sprintf("http://localhost%s", *addr)
		}
		local.SetBaseURL(external)
	}

	log.Printf("Server starting on %s", *addr)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting.")
}
