// Package infra defines the CDK stack that provisions the pipeline's
// managed primitives: the quote queue with its dead-letter queue, the intake
// and notifier functions, the HTTP API, and the alert topic. Everything here
// is configuration of off-the-shelf services, not systems code.
package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// StageSettings are the per-stage deployment inputs.
type StageSettings struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
	SalesRepEmail  string   `yaml:"salesRepEmail"`
	SenderEmail    string   `yaml:"senderEmail"`
}

type settingsFile struct {
	Stages map[string]StageSettings `yaml:"stages"`
}

// LoadStageSettings reads the settings for one stage from a YAML file.
func LoadStageSettings(path, stage string) (StageSettings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return StageSettings{}, fmt.Errorf("infra: read stage settings: %w", err)
	}

	var file settingsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return StageSettings{}, fmt.Errorf("infra: parse stage settings: %w", err)
	}

	stage = NormalizeStage(stage)
	settings, ok := file.Stages[stage]
	if !ok {
		return StageSettings{}, fmt.Errorf("infra: no settings for stage %q", stage)
	}
	if err := settings.validate(); err != nil {
		return StageSettings{}, err
	}
	return settings, nil
}

func (s StageSettings) validate() error {
	var missing []string
	if len(s.AllowedOrigins) == 0 {
		missing = append(missing, "allowedOrigins")
	}
	if strings.TrimSpace(s.SalesRepEmail) == "" {
		missing = append(missing, "salesRepEmail")
	}
	if strings.TrimSpace(s.SenderEmail) == "" {
		missing = append(missing, "senderEmail")
	}
	if len(missing) > 0 {
		return fmt.Errorf("infra: stage settings missing: %s", strings.Join(missing, ", "))
	}
	return nil
}
