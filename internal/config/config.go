// Package config
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Window     time.Duration `validate:"gt=0"`
	TickSource string        `validate:"oneof=auto procfs psutil"`
	Output     string        `validate:"oneof=text json"`
	ResultsDB  string
	LogLevel   string `validate:"oneof=trace debug info warn error"`
	LogFormat  string `validate:"oneof=text json"`
}

const (
	TickSourceAuto   = "auto"
	TickSourceProcfs = "procfs"
	TickSourcePsutil = "psutil"

	OutputText = "text"
	OutputJSON = "json"

	DefaultWindow = 5 * time.Second
)

var validate = validator.New()

func Load() *Config {
	godotenv.Load()

	window := DefaultWindow
	if raw := os.Getenv("COREMETER_WINDOW"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			window = parsed
		}
	}

	return &Config{
		Window:     window,
		TickSource: envOr("COREMETER_TICK_SOURCE", TickSourceAuto),
		Output:     envOr("COREMETER_OUTPUT", OutputText),
		ResultsDB:  os.Getenv("COREMETER_RESULTS_DB"),
		LogLevel:   envOr("LOG_LEVEL", "warn"),
		LogFormat:  envOr("LOG_FORMAT", "text"),
	}
}

func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("invalid config: %w", err)
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		switch fe.Tag() {
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}

	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return strings.ToLower(v)
	}
	return fallback
}
