package mail

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

type sesAPI interface {
	SendEmail(
		ctx context.Context,
		params *sesv2.SendEmailInput,
		optFns ...func(*sesv2.Options),
	) (*sesv2.SendEmailOutput, error)
}

// SESSender sends email through SES v2.
type SESSender struct {
	api sesAPI
}

var _ Sender = (*SESSender)(nil)

type sesOptions struct {
	api    sesAPI
	awsCfg *aws.Config
}

// SESOption customizes SESSender construction.
type SESOption func(*sesOptions)

// WithSESAPI injects an SES API implementation (used by tests).
func WithSESAPI(api sesAPI) SESOption {
	return func(opts *sesOptions) {
		opts.api = api
	}
}

// WithAWSConfig supplies a pre-loaded AWS config.
func WithAWSConfig(cfg aws.Config) SESOption {
	return func(opts *sesOptions) {
		cfgCopy := cfg
		opts.awsCfg = &cfgCopy
	}
}

// NewSESSender creates an SES-backed Sender.
func NewSESSender(ctx context.Context, options ...SESOption) (*SESSender, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	opts := &sesOptions{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(opts)
	}

	if opts.api != nil {
		return &SESSender{api: opts.api}, nil
	}

	var cfg aws.Config
	if opts.awsCfg != nil {
		cfg = *opts.awsCfg
	} else {
		loaded, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	return &SESSender{api: sesv2.NewFromConfig(cfg)}, nil
}

func (s *SESSender) Send(ctx context.Context, msg Message) error {
	if s == nil || s.api == nil {
		return errors.New("mail: sender is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(msg.From) == "" {
		return errors.New("mail: from address is empty")
	}
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("mail: to address is empty")
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTMLBody)},
					Text: &types.Content{Data: aws.String(msg.TextBody)},
				},
			},
		},
	}
	if replyTo := strings.TrimSpace(msg.ReplyTo); replyTo != "" {
		input.ReplyToAddresses = []string{replyTo}
	}

	_, err := s.api.SendEmail(ctx, input)
	return err
}
