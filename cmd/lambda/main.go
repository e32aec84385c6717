package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/ticket-translator/internal/app"
	"github.com/ticket-translator/internal/config"
	"github.com/ticket-translator/internal/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg, false)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logging.Flush(2 * time.Second)

	svc, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialise service", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer svc.Close()

	logger.Info("lambda handler ready", slog.String("provider", cfg.Translator.Provider))
	lambda.Start(svc.Handler.HandleLambda)
}
