package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"

	"github.com/AndreasDit/Contento/internal/dispatch"
	"github.com/AndreasDit/Contento/internal/logging"
)

// Notifier posts sweep summaries to one Slack channel.
type Notifier struct {
	api       *slack.Client
	channelID string
	botID     string
	logger    *slog.Logger
	quiet     bool
}

// Option customizes a Notifier.
type Option func(*config)

type config struct {
	apiURL string
	logger *slog.Logger
	always bool
}

// WithAPIURL points the client at a different Slack API endpoint.
func WithAPIURL(url string) Option {
	return func(c *config) {
		if url != "" && !strings.HasSuffix(url, "/") {
			url += "/"
		}
		c.apiURL = url
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithAlwaysNotify posts a summary even when a sweep neither published nor
// failed anything.
func WithAlwaysNotify() Option {
	return func(c *config) { c.always = true }
}

// NewNotifier authenticates the bot token and returns a Notifier for channelID.
func NewNotifier(ctx context.Context, token, channelID string, opts ...Option) (*Notifier, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("slack bot token is required")
	}
	if strings.TrimSpace(channelID) == "" {
		return nil, errors.New("slack channel id is required")
	}

	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "slack")

	var clientOpts []slack.Option
	if cfg.apiURL != "" {
		clientOpts = append(clientOpts, slack.OptionAPIURL(cfg.apiURL))
	}
	api := slack.New(token, clientOpts...)

	authTest, err := api.AuthTestContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate with Slack: %w", err)
	}
	logger.Info("slack authenticated", logging.String("bot_user", authTest.UserID))

	return &Notifier{
		api:       api,
		channelID: channelID,
		botID:     authTest.UserID,
		logger:    logger,
		quiet:     !cfg.always,
	}, nil
}

// BotID returns the authenticated bot user id.
func (n *Notifier) BotID() string {
	return n.botID
}

// NotifySweep posts a summary of report.
func (n *Notifier) NotifySweep(ctx context.Context, report dispatch.Report) error {
	if n.quiet && report.Count(dispatch.OutcomePublished) == 0 && len(report.Failures()) == 0 {
		n.logger.Debug("nothing to report", logging.String("run_id", report.RunID))
		return nil
	}
	return n.SendMessage(ctx, FormatReport(report))
}

// SendMessage posts plain text to the configured channel.
func (n *Notifier) SendMessage(ctx context.Context, message string) error {
	_, _, err := n.api.PostMessageContext(ctx, n.channelID, slack.MsgOptionText(message, false))
	if err != nil {
		return fmt.Errorf("failed to post slack message: %w", err)
	}
	return nil
}

// FormatReport renders the summary text posted for a sweep.
func FormatReport(report dispatch.Report) string {
	var b strings.Builder
	if report.DryRun {
		b.WriteString("[dry run] ")
	}
	fmt.Fprintf(&b, "Sweep %s at %s: %d published, %d failed, %d invalid, %d not due",
		shortRunID(report.RunID),
		report.Now,
		report.Count(dispatch.OutcomePublished)+report.Count(dispatch.OutcomeWouldPublish),
		report.Count(dispatch.OutcomeFailed),
		report.Count(dispatch.OutcomeInvalid),
		report.Count(dispatch.OutcomeSkipped),
	)
	for _, res := range report.Failures() {
		reason := "unknown error"
		if res.Err != nil {
			reason = res.Err.Error()
		}
		fmt.Fprintf(&b, "\n• %s (%s): %s", res.File, res.Outcome, reason)
	}
	return b.String()
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
