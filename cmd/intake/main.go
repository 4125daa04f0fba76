package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/theory-cloud/quotetheory/internal/config"
	"github.com/theory-cloud/quotetheory/internal/intake"
	"github.com/theory-cloud/quotetheory/internal/observability"
	"github.com/theory-cloud/quotetheory/internal/queue"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadIntake()
	if err != nil {
		fatal(err)
	}

	log, err := observability.NewZapLogger(cfg.Logging)
	if err != nil {
		fatal(err)
	}
	observability.SetLogger(log)

	q, err := queue.NewSQSQueue(ctx, cfg.QueueURL)
	if err != nil {
		fatal(err)
	}

	handler := intake.NewHandler(q, log, intake.HandlerConfig{
		AllowedOrigins: cfg.AllowedOrigins,
	})

	lambda.Start(func(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handler.HandleAPIGatewayV2(ctx, event), nil
	})
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "intake:", err)
	os.Exit(1)
}
