package infra

import (
	"regexp"
	"strings"
)

var (
	nonAlnum  = regexp.MustCompile(`[^a-z0-9-]+`)
	multiDash = regexp.MustCompile(`-+`)
)

func sanitizePart(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	value = strings.ReplaceAll(value, "_", "-")
	value = strings.ReplaceAll(value, " ", "-")
	value = nonAlnum.ReplaceAllString(value, "-")
	value = multiDash.ReplaceAllString(value, "-")
	value = strings.Trim(value, "-")
	return value
}

// NormalizeStage maps stage aliases to canonical values.
func NormalizeStage(stage string) string {
	stage = strings.ToLower(strings.TrimSpace(stage))
	switch stage {
	case "prod", "production", "live":
		return "live"
	case "dev", "development":
		return "dev"
	case "stg", "stage", "staging":
		return "stage"
	case "test", "testing":
		return "test"
	default:
		return sanitizePart(stage)
	}
}

// ResourceName returns a deterministic <app>-<resource>-<stage> name.
func ResourceName(appName, resource, stage string) string {
	parts := []string{sanitizePart(appName)}
	if r := sanitizePart(resource); r != "" {
		parts = append(parts, r)
	}
	if s := NormalizeStage(stage); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "-")
}
