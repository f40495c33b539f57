package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/AndreasDit/Contento/internal/logging"
	"github.com/AndreasDit/Contento/internal/models"
)

const lockFileName = ".sweep.lock"

// ErrSweepLocked is returned when another sweep holds the input directory.
var ErrSweepLocked = errors.New("another sweep is already running")

// Publisher submits one composed post. A nil error means the post was accepted.
type Publisher interface {
	Publish(ctx context.Context, content, hashtags string) error
}

// Recorder receives every published, failed or invalid record.
type Recorder interface {
	Record(ctx context.Context, runID string, result Result) error
}

// Notifier receives the final report of a sweep.
type Notifier interface {
	NotifySweep(ctx context.Context, report Report) error
}

// Dirs are the flat working directories of a sweep.
type Dirs struct {
	Input     string
	Processed string
	Error     string
}

// Validate checks that every directory is configured.
func (d Dirs) Validate() error {
	for _, dir := range []struct{ name, value string }{
		{"input", d.Input},
		{"processed", d.Processed},
		{"error", d.Error},
	} {
		if strings.TrimSpace(dir.value) == "" {
			return fmt.Errorf("%s directory is required", dir.name)
		}
	}
	return nil
}

// Ensure creates all three directories.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Input, d.Processed, d.Error} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Dispatcher runs one-shot sweeps over the input directory.
type Dispatcher struct {
	publisher Publisher
	dirs      Dirs
	logger    *slog.Logger
	clock     func() time.Time
	newRunID  func() string
	recorder  Recorder
	notifier  Notifier
	dryRun    bool
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock replaces time.Now for the sweep's "now" snapshot.
func WithClock(clock func() time.Time) Option {
	return func(d *Dispatcher) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// WithRecorder stores publish attempts.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithNotifier reports each finished sweep.
func WithNotifier(n Notifier) Option {
	return func(d *Dispatcher) { d.notifier = n }
}

// WithDryRun logs due records without publishing or moving them.
func WithDryRun(enabled bool) Option {
	return func(d *Dispatcher) { d.dryRun = enabled }
}

// New creates a Dispatcher.
func New(publisher Publisher, dirs Dirs, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		publisher: publisher,
		dirs:      dirs,
		logger:    logging.NewNop(),
		clock:     time.Now,
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "dispatch")
	return d
}

// Sweep publishes every due record in the input directory once and moves it
// to the processed or error directory. Records that are not yet due stay in
// place. Per-record failures never abort the sweep; cancellation of ctx stops
// it between records and returns the partial report with ctx.Err().
func (d *Dispatcher) Sweep(ctx context.Context) (Report, error) {
	report := Report{RunID: d.newRunID(), DryRun: d.dryRun}
	if err := d.dirs.Validate(); err != nil {
		return report, err
	}

	d.logger.Info("start processing", logging.String("run_id", report.RunID))
	if err := d.dirs.Ensure(); err != nil {
		return report, err
	}

	lock := flock.New(filepath.Join(d.dirs.Input, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return report, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !locked {
		return report, ErrSweepLocked
	}
	defer func() {
		_ = lock.Unlock()
	}()

	started := d.clock()
	report.StartedAt = started
	report.Now = models.FormatTimestamp(started)
	d.logger.Info("captured current time", logging.String("now", report.Now))

	entries, err := os.ReadDir(d.dirs.Input)
	if err != nil {
		return report, fmt.Errorf("list input directory: %w", err)
	}

	var sweepErr error
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			sweepErr = err
			d.logger.Warn("sweep cancelled", logging.Error(err))
			break
		}
		result := d.processFile(ctx, name, report.Now)
		report.Results = append(report.Results, result)
		d.record(ctx, report.RunID, result)
	}

	report.Duration = time.Since(started)
	d.logger.Info("sweep finished",
		logging.String("run_id", report.RunID),
		logging.Int("scanned", len(report.Results)),
		logging.Int("published", report.Count(OutcomePublished)),
		logging.Int("failed", report.Count(OutcomeFailed)+report.Count(OutcomeInvalid)),
		logging.Int("skipped", report.Count(OutcomeSkipped)),
	)

	if d.notifier != nil {
		if err := d.notifier.NotifySweep(ctx, report); err != nil {
			d.logger.Warn("sweep notification failed", logging.Error(err))
		}
	}
	return report, sweepErr
}

func (d *Dispatcher) processFile(ctx context.Context, name, now string) Result {
	path := filepath.Join(d.dirs.Input, name)
	result := Result{File: name}
	logger := d.logger.With(logging.String("file", name))
	logger.Info("processing file")

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("file vanished before processing")
			result.Outcome = OutcomeSkipped
			return result
		}
		return d.reject(logger, result, path, fmt.Errorf("read record: %w", err))
	}

	post, err := models.DecodePost(data)
	if err != nil {
		return d.reject(logger, result, path, fmt.Errorf("parse record: %w", err))
	}
	result.PostID = post.ID
	result.Platform = post.Platform
	logger.Info("extracted post details",
		logging.String("content", post.Content),
		logging.String("hashtags", post.Hashtags),
		logging.String("datetime_for_post", post.DatetimeForPost),
	)

	if !post.IsDueAt(now) {
		logger.Info("not due yet", logging.String("datetime_for_post", post.DatetimeForPost))
		result.Outcome = OutcomeSkipped
		return result
	}

	if d.dryRun {
		logger.Info("dry run: would publish", logging.String("message", post.Message()))
		result.Outcome = OutcomeWouldPublish
		return result
	}

	if err := d.publisher.Publish(ctx, post.Content, post.Hashtags); err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		logger.Warn("publish failed", logging.Error(err))
		dest, moveErr := d.move(path, d.dirs.Error)
		result.Destination = dest
		if moveErr != nil {
			logger.Error("move to error directory failed", logging.Error(moveErr))
			result.Err = errors.Join(err, moveErr)
			return result
		}
		logger.Warn("moved to error directory", logging.String("destination", dest))
		return result
	}

	result.Outcome = OutcomePublished
	dest, moveErr := d.move(path, d.dirs.Processed)
	result.Destination = dest
	if moveErr != nil {
		logger.Error("move to processed directory failed", logging.Error(moveErr))
		result.Err = moveErr
		return result
	}
	logger.Info("moved to processed directory", logging.String("destination", dest))
	return result
}

func (d *Dispatcher) reject(logger *slog.Logger, result Result, path string, cause error) Result {
	result.Outcome = OutcomeInvalid
	result.Err = cause
	logger.Warn("invalid record", logging.Error(cause))
	dest, moveErr := d.move(path, d.dirs.Error)
	result.Destination = dest
	if moveErr != nil {
		logger.Error("move to error directory failed", logging.Error(moveErr))
		result.Err = errors.Join(cause, moveErr)
		return result
	}
	logger.Warn("moved to error directory", logging.String("destination", dest))
	return result
}

// move relocates path into dir. A source that vanished is benign: another
// sweep already moved it.
func (d *Dispatcher) move(path, dir string) (string, error) {
	dest := filepath.Join(dir, filepath.Base(path))
	err := moveFile(path, dest)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		d.logger.Info("source already moved", logging.String("file", filepath.Base(path)))
		return dest, nil
	}
	return dest, err
}

func (d *Dispatcher) record(ctx context.Context, runID string, result Result) {
	if d.recorder == nil {
		return
	}
	switch result.Outcome {
	case OutcomePublished, OutcomeFailed, OutcomeInvalid:
	default:
		return
	}
	if err := d.recorder.Record(ctx, runID, result); err != nil {
		d.logger.Warn("record publish history failed",
			logging.String("file", result.File),
			logging.Error(err),
		)
	}
}
