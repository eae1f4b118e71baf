package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"podclip-backend/internal/config"
	"podclip-backend/internal/database"
	"podclip-backend/internal/handlers"
	"podclip-backend/internal/metrics"
	"podclip-backend/internal/middleware"
	"podclip-backend/internal/queue"
	"podclip-backend/internal/repository"
	"podclip-backend/internal/router"
	"podclip-backend/internal/services"
	"podclip-backend/internal/storage"
	"podclip-backend/internal/websocket"
	"podclip-backend/internal/worker"
	"podclip-backend/internal/workflow"
)

func main() {
	log.Println("🚀 Starting Podclip Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Step 5: Initialize Object Storage ────
	store, err := storage.NewS3Store(context.Background(), storage.S3Config{
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		Bucket:          cfg.S3BucketName,
		Endpoint:        cfg.S3Endpoint,
	})
	if err != nil {
		log.Fatalf("✗ S3 client initialization failed: %v", err)
	}
	log.Printf("✓ S3 client initialized (bucket: %s)", cfg.S3BucketName)

	// ──── Initialize Metrics ────
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	uploadRepo := repository.NewUploadRepo(pool)
	clipRepo := repository.NewClipRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	jobQueue := queue.NewRedisQueue(redisClients.Queue)
	compute := services.NewComputeClient(cfg.ProcessVideoEndpoint, cfg.ProcessVideoEndpointAuth, cfg.ProcessVideoTimeout)
	submissions := services.NewSubmissionService(uploadRepo, jobRepo, clipRepo, userRepo, jobQueue, store)

	wf := workflow.New(userRepo, uploadRepo, jobRepo, store, compute, jobQueue, m, cfg.MaxYouTubeClips)

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(jobQueue, jobRepo, wf, m, worker.Options{
		Workers:     cfg.WorkerCount,
		UserLockTTL: cfg.UserLockTTL,
	})
	recovered, err := workerPool.Recover(context.Background(), 0)
	if err != nil {
		log.Fatalf("✗ Job recovery failed: %v", err)
	}
	log.Printf("✓ Re-enqueued %d unfinished job(s)", recovered)

	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, cfg.FrontendURL)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		router.Handlers{
			Upload:  handlers.NewUploadHandler(submissions),
			YouTube: handlers.NewYouTubeHandler(submissions),
			Clip:    handlers.NewClipHandler(submissions),
			Job:     handlers.NewJobHandler(submissions),
			User:    handlers.NewUserHandler(submissions),
		},
		wsHub,
		registry,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
		wsHub.Close()

		// In-flight jobs finish their attempt; anything cut short is
		// recovered on the next boot.
		workerPool.Stop()
	}()

	log.Printf("✓ Podclip Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	<-done
	log.Println("✓ Shutdown complete")
}
