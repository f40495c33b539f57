package config

import (
	"errors"
	"fmt"
)

// Validate checks the settings shared by every command.
func (c *Config) Validate() error {
	var errs []error
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q is not one of console, json", c.Logging.Format))
	}
	if (c.Slack.BotToken == "") != (c.Slack.ChannelID == "") {
		errs = append(errs, fmt.Errorf("SLACK_BOT_TOKEN and SLACK_CHANNEL_ID must be set together"))
	}
	return errors.Join(errs...)
}

// ValidateSweep checks everything a sweep needs before any file is touched.
// The input directory is not required when the sweep reads the twitter queue.
func (c *Config) ValidateSweep(fromQueue bool) error {
	errs := []error{c.Validate()}
	required := []struct{ key, value string }{
		{"CONSUMER_KEY", c.Twitter.ConsumerKey},
		{"CONSUMER_SECRET", c.Twitter.ConsumerSecret},
		{"ACCESS_TOKEN", c.Twitter.AccessToken},
		{"ACCESS_TOKEN_SECRET", c.Twitter.AccessTokenSecret},
		{"BEARER_TOKEN", c.Twitter.BearerToken},
	}
	if fromQueue {
		required = append(required, struct{ key, value string }{"QUEUE_BASE_DIR", c.Paths.QueueBaseDir})
	} else {
		required = append(required, struct{ key, value string }{"INPUT_DIR", c.Paths.InputDir})
	}
	required = append(required,
		struct{ key, value string }{"PROCESSED_DIR", c.Paths.ProcessedDir},
		struct{ key, value string }{"ERROR_DIR", c.Paths.ErrorDir},
	)
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.key))
		}
	}
	return errors.Join(errs...)
}

// ValidateQueue checks what the queue front-ends need.
func (c *Config) ValidateQueue() error {
	errs := []error{c.Validate()}
	if c.Paths.QueueBaseDir == "" {
		errs = append(errs, fmt.Errorf("QUEUE_BASE_DIR is required"))
	}
	return errors.Join(errs...)
}
