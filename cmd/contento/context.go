package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/AndreasDit/Contento/config"
	"github.com/AndreasDit/Contento/internal/logging"
	"github.com/AndreasDit/Contento/internal/queue"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logger   *slog.Logger
	closeLog func() error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if format := flagValue(c.logFormatFlag); format != "" {
			cfg.Logging.Format = strings.ToLower(format)
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// loggerFor builds the process logger on first use. Records go to the
// command's stderr and to the configured log file.
func (c *commandContext) loggerFor(cmd *cobra.Command) (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, closer, err := logging.New(logging.Options{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		Writer:   cmd.ErrOrStderr(),
		FilePath: cfg.Logging.File,
	})
	if err != nil {
		return nil, err
	}
	c.logger = logger
	c.closeLog = closer
	return logger, nil
}

func (c *commandContext) openStore(cmd *cobra.Command) (*queue.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateQueue(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	logger, err := c.loggerFor(cmd)
	if err != nil {
		return nil, err
	}
	return queue.Open(cfg.Paths.QueueBaseDir, queue.WithLogger(logger))
}

func (c *commandContext) close() error {
	if c.closeLog == nil {
		return nil
	}
	err := c.closeLog()
	c.closeLog = nil
	return err
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func writeLine(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}
