package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the fixed-width layout of datetime_for_post. Zero padding
// keeps lexicographic order equal to chronological order.
const TimestampLayout = "2006-01-02 15:04:05"

// Platform names a social network a post is queued for.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
)

// Platforms lists every supported platform in display order.
var Platforms = []Platform{PlatformTwitter, PlatformFacebook, PlatformInstagram, PlatformLinkedIn}

var (
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrInvalidID       = errors.New("id must be 8 digits")
	ErrInvalidSchedule = errors.New("datetime_for_post must use YYYY-MM-DD HH:MM:SS")
	ErrNotObject       = errors.New("record is not a JSON object")
)

// ParsePlatform normalizes a platform name and checks it against the fixed set.
func ParsePlatform(value string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Platforms {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w %q: must be one of %s", ErrUnknownPlatform, value, PlatformList())
}

// PlatformList renders the platform set for error messages.
func PlatformList() string {
	names := make([]string, len(Platforms))
	for i, p := range Platforms {
		names[i] = string(p)
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// Post is one queued record, stored as {id}.json.
type Post struct {
	Platform        string `json:"platform"`
	ID              string `json:"id"`
	Content         string `json:"content"`
	Hashtags        string `json:"hashtags"`
	DatetimeForPost string `json:"datetime_for_post"`
}

// DecodePost parses one record file. Anything other than a JSON object, such
// as null or an array, is rejected. Missing fields stay empty.
func DecodePost(data []byte) (*Post, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}
	var post Post
	if err := json.Unmarshal(trimmed, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// NewPost creates an unsaved post scheduled for now.
func NewPost(platform Platform, content, hashtags string) *Post {
	return &Post{
		Platform:        string(platform),
		Content:         content,
		Hashtags:        hashtags,
		DatetimeForPost: FormatTimestamp(time.Now()),
	}
}

// Filename is the on-disk name derived from the id.
func (p *Post) Filename() string {
	return p.ID + ".json"
}

// IsDueAt reports whether the post is scheduled strictly before now, where now
// is formatted with TimestampLayout.
func (p *Post) IsDueAt(now string) bool {
	return p.DatetimeForPost < now
}

// Message joins content and hashtags the way they are published.
func (p *Post) Message() string {
	return ComposeMessage(p.Content, p.Hashtags)
}

// Validate checks the platform, the id shape when set, and the schedule when set.
func (p *Post) Validate() error {
	if _, err := ParsePlatform(p.Platform); err != nil {
		return err
	}
	if p.ID != "" && !ValidID(p.ID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, p.ID)
	}
	if p.DatetimeForPost != "" {
		if _, err := ParseTimestamp(p.DatetimeForPost); err != nil {
			return err
		}
	}
	return nil
}

// ValidID reports whether id is exactly eight ASCII digits.
func ValidID(id string) bool {
	if len(id) != 8 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// ComposeMessage appends hashtags to content separated by a space.
func ComposeMessage(content, hashtags string) string {
	return strings.TrimSpace(content + " " + hashtags)
}

// FormatTimestamp renders t in local time using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses a datetime_for_post value in local time.
func ParseTimestamp(value string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(value), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSchedule, value)
	}
	return t, nil
}
