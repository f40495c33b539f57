package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"github.com/AndreasDit/Contento/internal/logging"
	"github.com/AndreasDit/Contento/internal/models"
)

// QueueDirName is the per-platform directory holding pending records.
const QueueDirName = "posts_queue"

const lockFileName = ".queue.lock"

// Store manages post records under {base}/{platform}/posts_queue/{id}.json.
type Store struct {
	baseDir string
	newID   func() string
	logger  *slog.Logger

	mu   sync.Mutex
	lock *flock.Flock
}

// Option customizes a Store.
type Option func(*Store)

// WithIDSource replaces the random 8-digit generator. Tests use it to force
// collisions.
func WithIDSource(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLogger attaches a logger; the default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Dir returns the queue directory of p under baseDir without creating it.
func Dir(baseDir string, p models.Platform) string {
	return filepath.Join(strings.TrimSpace(baseDir), string(p), QueueDirName)
}

// Open prepares the base directory and every platform queue directory.
func Open(baseDir string, opts ...Option) (*Store, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return nil, errors.New("queue base directory is required")
	}
	for _, p := range models.Platforms {
		dir := Dir(baseDir, p)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create queue directory %q: %w", dir, err)
		}
	}

	s := &Store{
		baseDir: baseDir,
		newID:   randomID,
		logger:  logging.NewNop(),
		lock:    flock.New(filepath.Join(baseDir, lockFileName)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "queue")
	return s, nil
}

// BaseDir returns the store root.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// QueueDir returns the pending directory for a platform.
func (s *Store) QueueDir(p models.Platform) string {
	return Dir(s.baseDir, p)
}

// RelPath returns the store-relative path of a record.
func RelPath(platform, id string) string {
	return filepath.Join(platform, QueueDirName, id+".json")
}

// GenerateUniqueID returns 8 random digits that no file in any platform queue
// starts with. It loops until it finds one.
func (s *Store) GenerateUniqueID() (string, error) {
	for {
		id := s.newID()
		exists, err := s.idExists(id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
		s.logger.Debug("generated id already in use", logging.String("id", id))
	}
}

func (s *Store) idExists(id string) (bool, error) {
	for _, p := range models.Platforms {
		entries, err := os.ReadDir(s.QueueDir(p))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return false, fmt.Errorf("scan %s queue: %w", p, err)
		}
		for _, entry := range entries {
			if strings.HasPrefix(entry.Name(), id) {
				return true, nil
			}
		}
	}
	return false, nil
}

// List enumerates every .json record across platform queues. Order is not
// defined; use SortRecords for display.
func (s *Store) List() ([]Entry, error) {
	var out []Entry
	for _, p := range models.Platforms {
		entries, err := os.ReadDir(s.QueueDir(p))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("list %s queue: %w", p, err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, ".json") {
				continue
			}
			out = append(out, Entry{
				Platform: p,
				Filename: name,
				RelPath:  filepath.Join(string(p), QueueDirName, name),
			})
		}
	}
	return out, nil
}

// Read parses the record at a store-relative path.
func (s *Store) Read(relPath string) (*models.Post, error) {
	path, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, relPath)
		}
		return nil, fmt.Errorf("read %s: %w", relPath, err)
	}
	post, err := models.DecodePost(data)
	if err != nil {
		return nil, &ParseError{Path: relPath, Err: err}
	}
	return post, nil
}

// Save writes the record to its platform queue, allocating an id when empty.
// An existing record with the same platform and id is overwritten. The post is
// updated in place with the normalized platform and the id. Save returns the
// record filename.
func (s *Store) Save(post *models.Post) (string, error) {
	if post == nil {
		return "", errors.New("post is nil")
	}
	platform, err := models.ParsePlatform(post.Platform)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPlatform, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return "", fmt.Errorf("lock queue: %w", err)
	}
	defer func() {
		_ = s.lock.Unlock()
	}()

	id := strings.TrimSpace(post.ID)
	if id == "" {
		id, err = s.GenerateUniqueID()
		if err != nil {
			return "", err
		}
	} else if !models.ValidID(id) {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidID, id)
	}

	post.Platform = string(platform)
	post.ID = id

	data, err := json.MarshalIndent(post, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	filename := post.Filename()
	target := filepath.Join(s.QueueDir(platform), filename)
	if err := writeFileAtomic(target, data); err != nil {
		return "", fmt.Errorf("write %s: %w", filename, err)
	}

	s.logger.Info("record saved",
		logging.String("id", id),
		logging.String("platform", string(platform)),
	)
	return filename, nil
}

// Delete removes the record at a store-relative path.
func (s *Store) Delete(relPath string) error {
	path, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, relPath)
		}
		return fmt.Errorf("delete %s: %w", relPath, err)
	}
	s.logger.Info("record deleted", logging.String("path", relPath))
	return nil
}

func (s *Store) resolve(relPath string) (string, error) {
	cleaned := filepath.Clean(strings.TrimSpace(relPath))
	if cleaned == "." || !filepath.IsLocal(cleaned) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, relPath)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

func randomID() string {
	var b [8]byte
	for i := range b {
		b[i] = byte('0' + rand.IntN(10))
	}
	return string(b[:])
}
