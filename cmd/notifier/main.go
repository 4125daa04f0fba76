package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/theory-cloud/quotetheory/internal/config"
	"github.com/theory-cloud/quotetheory/internal/mail"
	"github.com/theory-cloud/quotetheory/internal/notify"
	"github.com/theory-cloud/quotetheory/internal/observability"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadNotifier()
	if err != nil {
		fatal(err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		fatal(err)
	}

	var logOpts []observability.ZapOption
	if cfg.AlertTopicARN != "" {
		notifier := observability.NewSNSNotifier(sns.NewFromConfig(awsCfg), cfg.AlertTopicARN, observability.SNSNotifierOptions{
			Subject: "quotetheory notifier error",
		})
		logOpts = append(logOpts, observability.WithErrorNotifier(notifier))
	}

	log, err := observability.NewZapLogger(cfg.Logging, logOpts...)
	if err != nil {
		fatal(err)
	}
	observability.SetLogger(log)

	sender, err := mail.NewSESSender(ctx, mail.WithAWSConfig(awsCfg))
	if err != nil {
		fatal(err)
	}

	dispatcher := notify.NewDispatcher(sender, log, notify.DispatcherConfig{
		SenderEmail:   cfg.SenderEmail,
		SalesRepEmail: cfg.SalesRepEmail,
	})

	lambda.Start(func(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
		return dispatcher.HandleSQS(ctx, event), nil
	})
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "notifier:", err)
	os.Exit(1)
}
