package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AndreasDit/Contento/config"
	"github.com/AndreasDit/Contento/internal/database"
	"github.com/AndreasDit/Contento/internal/dispatch"
	"github.com/AndreasDit/Contento/internal/logging"
	"github.com/AndreasDit/Contento/internal/models"
	"github.com/AndreasDit/Contento/internal/queue"
	"github.com/AndreasDit/Contento/internal/slack"
	"github.com/AndreasDit/Contento/internal/twitter"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var fromQueue bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Publish every due post once and move it to the processed or error directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateSweep(fromQueue); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			logger, err := ctx.loggerFor(cmd)
			if err != nil {
				return err
			}

			// Authenticate before any directory is created so bad credentials
			// leave the tree untouched.
			var publisher dispatch.Publisher
			if !dryRun {
				client, err := newTwitterClient(cmd, cfg, logger)
				if err != nil {
					return err
				}
				publisher = client
			}

			dirs := dispatch.Dirs{
				Input:     cfg.Paths.InputDir,
				Processed: cfg.Paths.ProcessedDir,
				Error:     cfg.Paths.ErrorDir,
			}
			if fromQueue {
				dirs.Input = queue.Dir(cfg.Paths.QueueBaseDir, models.PlatformTwitter)
			}

			opts := []dispatch.Option{dispatch.WithLogger(logger), dispatch.WithDryRun(dryRun)}

			if cfg.HistoryEnabled() {
				repo, err := database.OpenHistory(cmd.Context(), cfg.History.DSN, logger)
				if err != nil {
					return fmt.Errorf("open publish history: %w", err)
				}
				defer repo.Close()
				opts = append(opts, dispatch.WithRecorder(database.NewSweepRecorder(repo)))
			}

			if cfg.SlackEnabled() {
				notifier, err := slack.NewNotifier(cmd.Context(), cfg.Slack.BotToken, cfg.Slack.ChannelID, slack.WithLogger(logger))
				if err != nil {
					logger.Warn("slack notifications disabled", logging.Error(err))
				} else {
					opts = append(opts, dispatch.WithNotifier(notifier))
				}
			}

			report, err := dispatch.New(publisher, dirs, opts...).Sweep(cmd.Context())
			printReport(cmd, report)
			if errors.Is(err, dispatch.ErrSweepLocked) {
				return fmt.Errorf("%w: %s", err, dirs.Input)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report due posts without publishing or moving them")
	cmd.Flags().BoolVar(&fromQueue, "from-queue", false, "Read due posts from the twitter queue instead of INPUT_DIR")
	return cmd
}

func newTwitterClient(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*twitter.Client, error) {
	creds := twitter.Credentials{
		ConsumerKey:       cfg.Twitter.ConsumerKey,
		ConsumerSecret:    cfg.Twitter.ConsumerSecret,
		AccessToken:       cfg.Twitter.AccessToken,
		AccessTokenSecret: cfg.Twitter.AccessTokenSecret,
		BearerToken:       cfg.Twitter.BearerToken,
	}
	return twitter.New(cmd.Context(), creds,
		twitter.WithLogger(logger),
		twitter.WithBaseURL(cfg.Twitter.BaseURL),
	)
}

func printReport(cmd *cobra.Command, report dispatch.Report) {
	out := cmd.OutOrStdout()
	if len(report.Results) == 0 {
		writeLine(out, "No records in input directory")
		return
	}

	rows := make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		detail := res.Destination
		if res.Err != nil {
			detail = res.Err.Error()
		}
		rows = append(rows, []string{res.File, res.PostID, string(res.Outcome), detail})
	}
	writeLine(out, "%s", renderTable([]string{"File", "ID", "Outcome", "Detail"}, rows, nil))

	prefix := ""
	if report.DryRun {
		prefix = "[dry run] "
	}
	writeLine(out, "%sswept at %s: %d published, %d would publish, %d failed, %d invalid, %d not due",
		prefix,
		report.Now,
		report.Count(dispatch.OutcomePublished),
		report.Count(dispatch.OutcomeWouldPublish),
		report.Count(dispatch.OutcomeFailed),
		report.Count(dispatch.OutcomeInvalid),
		report.Count(dispatch.OutcomeSkipped),
	)
}
