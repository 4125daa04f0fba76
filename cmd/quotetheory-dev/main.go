// Command quotetheory-dev runs one quote request through the whole pipeline
// in-process: intake validation, an in-memory queue, and a log-only email
// sender. It reads the request JSON from the file given as the first argument,
// or from stdin.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/theory-cloud/quotetheory/internal/intake"
	"github.com/theory-cloud/quotetheory/internal/mail"
	"github.com/theory-cloud/quotetheory/internal/notify"
	"github.com/theory-cloud/quotetheory/internal/observability"
	"github.com/theory-cloud/quotetheory/internal/queue"
	"github.com/theory-cloud/quotetheory/internal/testkit"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "quotetheory-dev:", err)
		os.Exit(1)
	}
}

func run() error {
	body, err := readRequest()
	if err != nil {
		return err
	}

	log, err := observability.NewZapLogger(observability.LoggerConfig{Format: "console"})
	if err != nil {
		return err
	}
	observability.SetLogger(log)

	q := queue.NewMemoryQueue(queue.MemoryQueueConfig{})
	handler := intake.NewHandler(q, log, intake.HandlerConfig{
		AllowedOrigins: []string{"*"},
	})

	ctx := context.Background()
	res := handler.HandleAPIGatewayV2(ctx, testkit.APIGatewayV2Request("POST", "/quote", testkit.HTTPEventOptions{
		Body: body,
	}))
	fmt.Printf("intake: HTTP %d %s\n", res.StatusCode, res.Body)
	if res.StatusCode != 200 {
		return nil
	}

	dispatcher := notify.NewDispatcher(mail.NewLogSender(log), log, notify.DispatcherConfig{
		SenderEmail:   "no-reply@localhost",
		SalesRepEmail: "sales@localhost",
	})
	processed, err := dispatcher.PollOnce(ctx, q, 1)
	if err != nil {
		return err
	}
	fmt.Printf("notifier: processed %d delivery(s), queue depth %d\n", processed, q.Depth())
	return log.Flush(ctx)
}

func readRequest() ([]byte, error) {
	if len(os.Args) > 1 {
		return os.ReadFile(os.Args[1])
	}
	return io.ReadAll(os.Stdin)
}
