package infra

import (
	"path/filepath"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapigatewayv2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapigatewayv2integrations"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambdaeventsources"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/theory-cloud/quotetheory/internal/config"
	"github.com/theory-cloud/quotetheory/internal/intake"
	"github.com/theory-cloud/quotetheory/internal/notify"
)

const appName = "quotetheory"

// Lease duration must exceed the dispatcher's hard processing timeout by a
// safety factor so a slow attempt never races its own redelivery.
const visibilityTimeoutFactor = 6

// QuoteStackProps configures the pipeline stack for one stage.
type QuoteStackProps struct {
	awscdk.StackProps
	Stage    string
	Settings StageSettings
	// AssetDir holds the built bootstrap binaries, one subdirectory per
	// function. Defaults to "dist".
	AssetDir string
}

// QuoteStack exposes the provisioned resources for assertions and outputs.
type QuoteStack struct {
	awscdk.Stack
	Queue            awssqs.Queue
	DeadLetterQueue  awssqs.Queue
	AlertTopic       awssns.Topic
	IntakeFunction   awslambda.Function
	NotifierFunction awslambda.Function
	API              awsapigatewayv2.HttpApi
}

// NewQuoteStack provisions the quote-request pipeline.
//
// The dependency order is explicit: the queue exists before either function,
// the intake function receives the queue URL through its environment, and
// the notifier is subscribed to the queue as an event source.
func NewQuoteStack(scope constructs.Construct, id string, props QuoteStackProps) *QuoteStack {
	stack := awscdk.NewStack(scope, jsii.String(id), &props.StackProps)
	stage := NormalizeStage(props.Stage)
	settings := props.Settings
	assetDir := props.AssetDir
	if assetDir == "" {
		assetDir = "dist"
	}

	dlq := awssqs.NewQueue(stack, jsii.String("QuoteRequestDLQ"), &awssqs.QueueProps{
		QueueName: jsii.String(ResourceName(appName, "quote-requests-dlq", stage)),
		// DLQ retention is deliberately longer than the main queue's so
		// dead-lettered requests survive until someone inspects them.
		RetentionPeriod: awscdk.Duration_Days(jsii.Number(14)),
	})

	queue := awssqs.NewQueue(stack, jsii.String("QuoteRequestQueue"), &awssqs.QueueProps{
		QueueName:         jsii.String(ResourceName(appName, "quote-requests", stage)),
		VisibilityTimeout: awscdk.Duration_Seconds(jsii.Number(visibilityTimeoutFactor * notify.DefaultTimeout.Seconds())),
		RetentionPeriod:   awscdk.Duration_Days(jsii.Number(4)),
		DeadLetterQueue: &awssqs.DeadLetterQueue{
			MaxReceiveCount: jsii.Number(3),
			Queue:           dlq,
		},
	})

	alertTopic := awssns.NewTopic(stack, jsii.String("AlertTopic"), &awssns.TopicProps{
		TopicName: jsii.String(ResourceName(appName, "alerts", stage)),
	})

	intakeFn := awslambda.NewFunction(stack, jsii.String("IntakeFunction"), &awslambda.FunctionProps{
		FunctionName: jsii.String(ResourceName(appName, "intake", stage)),
		Runtime:      awslambda.Runtime_PROVIDED_AL2023(),
		Architecture: awslambda.Architecture_ARM_64(),
		Handler:      jsii.String("bootstrap"),
		Code:         awslambda.Code_FromAsset(jsii.String(filepath.Join(assetDir, "intake")), nil),
		MemorySize:   jsii.Number(128),
		Timeout:      awscdk.Duration_Seconds(jsii.Number(intake.DefaultTimeout.Seconds())),
		Environment: &map[string]*string{
			config.EnvQueueURL:       queue.QueueUrl(),
			config.EnvAllowedOrigins: jsii.String(strings.Join(settings.AllowedOrigins, ",")),
		},
	})
	queue.GrantSendMessages(intakeFn)

	notifierFn := awslambda.NewFunction(stack, jsii.String("NotifierFunction"), &awslambda.FunctionProps{
		FunctionName: jsii.String(ResourceName(appName, "notifier", stage)),
		Runtime:      awslambda.Runtime_PROVIDED_AL2023(),
		Architecture: awslambda.Architecture_ARM_64(),
		Handler:      jsii.String("bootstrap"),
		Code:         awslambda.Code_FromAsset(jsii.String(filepath.Join(assetDir, "notifier")), nil),
		MemorySize:   jsii.Number(128),
		Timeout:      awscdk.Duration_Seconds(jsii.Number(notify.DefaultTimeout.Seconds())),
		Environment: &map[string]*string{
			config.EnvSalesRepEmail: jsii.String(settings.SalesRepEmail),
			config.EnvSenderEmail:   jsii.String(settings.SenderEmail),
			config.EnvAlertTopicARN: alertTopic.TopicArn(),
		},
	})
	queue.GrantConsumeMessages(notifierFn)
	alertTopic.GrantPublish(notifierFn)
	notifierFn.AddToRolePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions:   jsii.Strings("ses:SendEmail"),
		Resources: jsii.Strings("*"),
	}))

	// One domain request per invocation: batch size 1 with partial batch
	// failure reporting keeps the retry unit a single message.
	notifierFn.AddEventSource(awslambdaeventsources.NewSqsEventSource(queue, &awslambdaeventsources.SqsEventSourceProps{
		BatchSize:               jsii.Number(1),
		ReportBatchItemFailures: jsii.Bool(true),
	}))

	api := awsapigatewayv2.NewHttpApi(stack, jsii.String("QuoteApi"), &awsapigatewayv2.HttpApiProps{
		ApiName: jsii.String(ResourceName(appName, "api", stage)),
		CorsPreflight: &awsapigatewayv2.CorsPreflightOptions{
			AllowOrigins: jsii.Strings(settings.AllowedOrigins...),
			AllowMethods: &[]awsapigatewayv2.CorsHttpMethod{awsapigatewayv2.CorsHttpMethod_POST},
			AllowHeaders: jsii.Strings("Content-Type"),
		},
	})
	integration := awsapigatewayv2integrations.NewHttpLambdaIntegration(jsii.String("IntakeIntegration"), intakeFn, nil)
	api.AddRoutes(&awsapigatewayv2.AddRoutesOptions{
		Path:        jsii.String("/quote"),
		Methods:     &[]awsapigatewayv2.HttpMethod{awsapigatewayv2.HttpMethod_POST},
		Integration: integration,
	})
	api.AddRoutes(&awsapigatewayv2.AddRoutesOptions{
		Path:        jsii.String("/health"),
		Methods:     &[]awsapigatewayv2.HttpMethod{awsapigatewayv2.HttpMethod_GET},
		Integration: integration,
	})

	awscdk.NewCfnOutput(stack, jsii.String("QuoteApiUrl"), &awscdk.CfnOutputProps{Value: api.Url()})
	awscdk.NewCfnOutput(stack, jsii.String("QuoteQueueUrl"), &awscdk.CfnOutputProps{Value: queue.QueueUrl()})
	awscdk.NewCfnOutput(stack, jsii.String("AlertTopicArn"), &awscdk.CfnOutputProps{Value: alertTopic.TopicArn()})

	return &QuoteStack{
		Stack:            stack,
		Queue:            queue,
		DeadLetterQueue:  dlq,
		AlertTopic:       alertTopic,
		IntakeFunction:   intakeFn,
		NotifierFunction: notifierFn,
		API:              api,
	}
}
