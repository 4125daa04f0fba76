package main

import (
	"fmt"
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"

	"github.com/theory-cloud/quotetheory/internal/infra"
)

func main() {
	defer jsii.Close()

	stage := os.Getenv("STAGE")
	if stage == "" {
		stage = "dev"
	}
	stage = infra.NormalizeStage(stage)

	settingsPath := os.Getenv("STAGE_SETTINGS_FILE")
	if settingsPath == "" {
		settingsPath = "stages.yaml"
	}

	settings, err := infra.LoadStageSettings(settingsPath, stage)
	if err != nil {
		fmt.Fprintln(os.Stderr, "quotetheory-cdk:", err)
		os.Exit(1)
	}

	app := awscdk.NewApp(nil)
	infra.NewQuoteStack(app, "quotetheory-"+stage, infra.QuoteStackProps{
		Stage:    stage,
		Settings: settings,
	})
	app.Synth(nil)
}
