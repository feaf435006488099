package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dparedesr/docshare/internal/api"
	"github.com/dparedesr/docshare/internal/blob"
	"github.com/dparedesr/docshare/internal/comments"
	"github.com/dparedesr/docshare/internal/config"
	"github.com/dparedesr/docshare/internal/database"
	"github.com/dparedesr/docshare/internal/queue"
	"github.com/dparedesr/docshare/internal/render"
	"github.com/dparedesr/docshare/internal/repository"
	"github.com/dparedesr/docshare/internal/signing"
	"github.com/dparedesr/docshare/internal/upload"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}
	files := repository.NewFileRepository(pool)
	commentRows := repository.NewCommentRepository(pool)

	store, err := blob.New(cfg)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		log.Fatalf("ensure bucket: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer asynqClient.Close()

	uploader := upload.New(store, files, queue.NewClient(asynqClient), cfg.MaxFileSize)
	commentsSvc := comments.NewService(commentRows)
	pipeline := render.NewPipeline(files, store, render.NewPDFRenderer(), cfg.RenderScale, cfg.SignedURLTTL)
	signer := signing.NewSigner(cfg.SigningSecret)

	srv := api.New(cfg, uploader, commentsSvc, pipeline, files, store, signer)
	if err := srv.Run(ctx); err != nil {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
}
