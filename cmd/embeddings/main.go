package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"

	"github.com/wolfman30/hospital-voicebot/cmd/mainconfig"
	"github.com/wolfman30/hospital-voicebot/internal/app/bootstrap"
	appconfig "github.com/wolfman30/hospital-voicebot/internal/config"
	"github.com/wolfman30/hospital-voicebot/internal/embedding"
	"github.com/wolfman30/hospital-voicebot/internal/knowledge"
	"github.com/wolfman30/hospital-voicebot/internal/vectorindex"
	"github.com/wolfman30/hospital-voicebot/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}
	cfg := appconfig.Load()

	docPath := flag.String("document", cfg.RAGDocumentPath, "knowledge document to embed")
	outPath := flag.String("out", cfg.EmbeddingsPath, "where to write the embeddings artifact")
	flag.Parse()

	logger := logging.New(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := generate(ctx, cfg, *docPath, *outPath, logger); err != nil {
		logger.Error("embedding generation failed", "error", err)
		os.Exit(1)
	}
}

func generate(ctx context.Context, cfg *appconfig.Config, docPath, outPath string, logger *logging.Logger) error {
	kb, err := knowledge.Load(docPath)
	if err != nil {
		return err
	}
	loadAWS := func(ctx context.Context) (aws.Config, error) { return mainconfig.LoadAWSConfig(ctx, cfg) }
	e, err := bootstrap.BuildEmbedder(ctx, cfg, loadAWS, nil, nil, logger)
	if err != nil {
		return err
	}
	return writeArtifact(ctx, kb, e, embedding.BatchOptions{
		Size:  cfg.EmbeddingBatchSize,
		Delay: cfg.EmbeddingBatchDelay,
		Progress: func(done, total int) {
			logger.Info("embedded batch", "done", done, "total", total)
		},
	}, outPath, logger)
}

func writeArtifact(ctx context.Context, kb *knowledge.Base, e embedding.Embedder, opts embedding.BatchOptions, outPath string, logger *logging.Logger) error {
	artifact, err := vectorindex.Generate(ctx, kb, e, opts)
	if err != nil {
		return err
	}
	if err := vectorindex.WriteArtifact(outPath, artifact); err != nil {
		return err
	}
	logger.Info("embeddings written",
		"path", outPath,
		"model", artifact.Model,
		"chunks", artifact.TotalChunks,
		"dimension", artifact.EmbeddingDimension,
	)
	return nil
}
