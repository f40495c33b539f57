package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AndreasDit/Contento/internal/models"
	"github.com/AndreasDit/Contento/internal/queue"
	"github.com/AndreasDit/Contento/internal/schedule"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and edit the per-platform post queues",
	}
	cmd.AddCommand(newQueueListCommand(ctx))
	cmd.AddCommand(newQueueShowCommand(ctx))
	cmd.AddCommand(newQueueAddCommand(ctx))
	cmd.AddCommand(newQueueDeleteCommand(ctx))
	cmd.AddCommand(newQueueNewIDCommand(ctx))
	cmd.AddCommand(newQueueScheduleCommand(ctx))
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var filter queue.Filter
	var sortFlag string
	var descending bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := queue.ParseSortField(sortFlag)
			if err != nil {
				return err
			}
			if filter.Platform != "" {
				platform, err := models.ParsePlatform(filter.Platform)
				if err != nil {
					return err
				}
				filter.Platform = string(platform)
			}

			store, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			records, err := store.Records()
			if err != nil {
				return err
			}
			records = filter.Apply(records)
			queue.SortRecords(records, field, descending)

			out := cmd.OutOrStdout()
			if jsonOutput {
				type row struct {
					Path  string `json:"path"`
					Error string `json:"error,omitempty"`
					models.Post
				}
				rows := make([]row, len(records))
				for i, rec := range records {
					rows[i] = row{Path: rec.RelPath, Post: rec.Post}
					if rec.Broken() {
						rows[i].Error = rec.Err.Err.Error()
					}
				}
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(rows)
			}

			if len(records) == 0 {
				writeLine(out, "No queued posts")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				content := rec.Post.Content
				if rec.Broken() {
					content = "malformed record: " + rec.Err.Err.Error()
				}
				rows = append(rows, []string{
					rec.Post.ID,
					rec.Post.Platform,
					rec.Post.DatetimeForPost,
					rec.Post.Hashtags,
					content,
					rec.RelPath,
				})
			}
			writeLine(out, "%s", renderTable([]string{"ID", "Platform", "Post At", "Hashtags", "Content", "Path"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Content, "content", "", "Only posts whose content contains this text (case-insensitive)")
	cmd.Flags().StringVar(&filter.Hashtags, "hashtags", "", "Only posts whose hashtags contain this text (case-insensitive)")
	cmd.Flags().StringVar(&filter.Platform, "platform", "", "Only posts for this platform")
	cmd.Flags().StringVar(&sortFlag, "sort", string(queue.SortByDatetime), "Sort by datetime_for_post, platform or id")
	cmd.Flags().BoolVar(&descending, "desc", false, "Sort descending")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of a table")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <platform>/posts_queue/<id>.json",
		Short: "Print one queued post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			post, err := store.Read(args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(post, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal record: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "%s", data)
			return nil
		},
	}
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var post models.Post
	var at string
	var unscheduled bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Queue a new post, or overwrite one when --id names an existing record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			post.DatetimeForPost = strings.TrimSpace(at)
			if unscheduled && post.DatetimeForPost != "" {
				return errors.New("--at and --unscheduled are mutually exclusive")
			}
			if post.DatetimeForPost == "" && !unscheduled {
				post.DatetimeForPost = models.FormatTimestamp(time.Now())
			}
			if err := post.Validate(); err != nil {
				return err
			}
			store, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			if _, err := store.Save(&post); err != nil {
				return err
			}
			writeLine(cmd.OutOrStdout(), "Saved %s", queue.RelPath(post.Platform, post.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&post.Platform, "platform", string(models.PlatformTwitter), "Target platform "+models.PlatformList())
	cmd.Flags().StringVar(&post.Content, "content", "", "Post text")
	cmd.Flags().StringVar(&post.Hashtags, "hashtags", "", "Hashtags appended to the text")
	cmd.Flags().StringVar(&at, "at", "", "Publish time as "+models.TimestampLayout+" (default now)")
	cmd.Flags().StringVar(&post.ID, "id", "", "Record id (8 digits, generated when empty)")
	cmd.Flags().BoolVar(&unscheduled, "unscheduled", false, "Leave datetime_for_post empty for queue schedule to fill")
	return cmd
}

func newQueueDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <platform>/posts_queue/<id>.json",
		Short: "Delete one queued post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			writeLine(cmd.OutOrStdout(), "Deleted %s", args[0])
			return nil
		},
	}
}

func newQueueNewIDCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "new-id",
		Short: "Print an id that no queued record uses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			id, err := store.GenerateUniqueID()
			if err != nil {
				return err
			}
			writeLine(cmd.OutOrStdout(), "%s", id)
			return nil
		},
	}
}

func newQueueScheduleCommand(ctx *commandContext) *cobra.Command {
	var cfg schedule.Config
	var start string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Assign publish slots to queued posts without a datetime_for_post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if s := strings.TrimSpace(start); s != "" {
				date, err := time.ParseInLocation("2006-01-02", s, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --start %q: want YYYY-MM-DD", start)
				}
				cfg.StartDate = date
			}
			store, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			logger, err := ctx.loggerFor(cmd)
			if err != nil {
				return err
			}
			planner := schedule.NewPlanner(store, schedule.WithLogger(logger))

			var assignments []schedule.Assignment
			if dryRun {
				assignments, err = planner.Plan(cfg)
			} else {
				assignments, err = planner.Apply(cmd.Context(), cfg)
			}
			out := cmd.OutOrStdout()
			if len(assignments) > 0 {
				rows := make([][]string, 0, len(assignments))
				for _, a := range assignments {
					rows = append(rows, []string{a.PostID, a.Platform, a.DatetimeForPost, a.RelPath})
				}
				writeLine(out, "%s", renderTable([]string{"ID", "Platform", "Post At", "Path"}, rows, nil))
			}
			if err != nil {
				return err
			}
			if len(assignments) == 0 {
				writeLine(out, "No unscheduled posts")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&cfg.PostsPerDay, "per-day", 3, "Slots per day when --times is not given")
	cmd.Flags().StringSliceVar(&cfg.PreferredTimes, "times", nil, "Comma-separated HH:MM slots")
	cmd.Flags().StringVar(&start, "start", "", "First day to fill as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&cfg.Timezone, "timezone", "", "IANA zone the slot times are in (default local)")
	cmd.Flags().StringVar(&cfg.Platform, "platform", "", "Only schedule posts for this platform")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the plan without saving it")
	return cmd
}
