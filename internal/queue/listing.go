package queue

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/AndreasDit/Contento/internal/logging"
	"github.com/AndreasDit/Contento/internal/models"
)

// Entry identifies one record file in the store.
type Entry struct {
	Platform models.Platform
	Filename string
	RelPath  string
}

// Record pairs a parsed post with its store-relative path. Err is set when the
// file could not be parsed; Post then only carries the platform and id taken
// from the path.
type Record struct {
	RelPath string
	Post    models.Post
	Err     *ParseError
}

// Broken reports whether the record file failed to parse.
func (r Record) Broken() bool {
	return r.Err != nil
}

// Records reads every listed file. Malformed files come back inline with Err
// set so they can still be shown and deleted; other read failures fail the
// call.
func (s *Store) Records() ([]Record, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(entries))
	for _, entry := range entries {
		post, err := s.Read(entry.RelPath)
		var parseErr *ParseError
		switch {
		case errors.As(err, &parseErr):
			s.logger.Warn("malformed record", logging.String("path", entry.RelPath), logging.Error(parseErr.Err))
			out = append(out, Record{
				RelPath: entry.RelPath,
				Post: models.Post{
					Platform: string(entry.Platform),
					ID:       strings.TrimSuffix(entry.Filename, ".json"),
				},
				Err: parseErr,
			})
		case err != nil:
			return nil, err
		default:
			out = append(out, Record{RelPath: entry.RelPath, Post: *post})
		}
	}
	return out, nil
}

// Valid returns the records that parsed.
func Valid(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if !rec.Broken() {
			out = append(out, rec)
		}
	}
	return out
}

// Filter narrows a record listing. Empty fields match everything.
type Filter struct {
	Content  string
	Hashtags string
	Platform string
}

// Active reports whether any field is set.
func (f Filter) Active() bool {
	return f.Content != "" || f.Hashtags != "" || f.Platform != ""
}

// Match applies case-insensitive substring checks on content and hashtags and
// an exact platform check.
func (f Filter) Match(post models.Post) bool {
	if f.Content != "" && !containsFold(post.Content, f.Content) {
		return false
	}
	if f.Hashtags != "" && !containsFold(post.Hashtags, f.Hashtags) {
		return false
	}
	if f.Platform != "" && !strings.EqualFold(post.Platform, f.Platform) {
		return false
	}
	return true
}

// Apply returns the records matching the filter, preserving order.
func (f Filter) Apply(records []Record) []Record {
	if !f.Active() {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if f.Match(rec.Post) {
			out = append(out, rec)
		}
	}
	return out
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// SortField names a sortable record column.
type SortField string

const (
	SortByDatetime SortField = "datetime_for_post"
	SortByPlatform SortField = "platform"
	SortByID       SortField = "id"
)

// SortFields lists the sortable columns in UI cycle order.
var SortFields = []SortField{SortByDatetime, SortByPlatform, SortByID}

// ParseSortField validates a sort column name. An empty value selects
// datetime_for_post.
func ParseSortField(value string) (SortField, error) {
	v := SortField(strings.ToLower(strings.TrimSpace(value)))
	if v == "" {
		return SortByDatetime, nil
	}
	for _, f := range SortFields {
		if v == f {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown sort field %q", value)
}

// SortRecords orders records in place by field. Ties fall back to RelPath so
// output is deterministic regardless of directory listing order.
func SortRecords(records []Record, field SortField, descending bool) {
	key := func(r Record) string {
		switch field {
		case SortByPlatform:
			return r.Post.Platform
		case SortByID:
			return r.Post.ID
		default:
			return r.Post.DatetimeForPost
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		a, b := key(records[i]), key(records[j])
		if a == b {
			return records[i].RelPath < records[j].RelPath
		}
		if descending {
			return a > b
		}
		return a < b
	})
}
