package twitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dghubble/oauth1"
	gotwitter "github.com/g8rswimmer/go-twitter/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/AndreasDit/Contento/internal/logging"
	"github.com/AndreasDit/Contento/internal/models"
)

// MaxTweetLength is the hard character limit applied before publishing.
const MaxTweetLength = 280

const defaultBaseURL = "https://api.twitter.com"

var (
	ErrAuthentication = errors.New("twitter authentication failed")
	ErrPublish        = errors.New("twitter publish failed")
)

// AuthError reports a credential problem found while constructing the client.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Twitter API Authentication Failed: %s: %v", e.Reason, e.Err)
	}
	return "Twitter API Authentication Failed: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrAuthentication }

// PublishError carries the API response of a rejected tweet.
type PublishError struct {
	Status int
	Body   string
	Err    error
}

func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("create tweet: %v", e.Err)
	}
	return fmt.Sprintf("create tweet: status %d: %s", e.Status, e.Body)
}

func (e *PublishError) Unwrap() error { return e.Err }

func (e *PublishError) Is(target error) bool { return target == ErrPublish }

// Credentials are the OAuth 1.0a user-context keys plus the app bearer token.
type Credentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
	BearerToken       string
}

func (c Credentials) missing() []string {
	var out []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			out = append(out, name)
		}
	}
	check("consumer key", c.ConsumerKey)
	check("consumer secret", c.ConsumerSecret)
	check("access token", c.AccessToken)
	check("access token secret", c.AccessTokenSecret)
	check("bearer token", c.BearerToken)
	return out
}

// Tweet is the subset of the v2 tweet object the client reads back.
type Tweet struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// User is the authenticated account.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Client publishes tweets through the v2 API.
type Client struct {
	api        *gotwitter.Client
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	verify     bool
	user       User
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient sets the transport used underneath request signing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithoutVerify skips the credential check against /2/users/me.
func WithoutVerify() Option {
	return func(c *Client) {
		c.verify = false
	}
}

// New builds a signed client and checks the credentials against the API.
// Any failure is an *AuthError.
func New(ctx context.Context, creds Credentials, opts ...Option) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		logger:     logging.NewNop(),
		verify:     true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "twitter")

	if missing := creds.missing(); len(missing) > 0 {
		err := &AuthError{Reason: "missing " + strings.Join(missing, ", ")}
		c.logger.Error("authentication failed", logging.Error(err))
		return nil, err
	}

	base := c.httpClient
	signingCtx := context.WithValue(context.Background(), oauth1.HTTPClient, base)
	signed := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret).
		Client(signingCtx, oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret))
	signed.Timeout = base.Timeout
	c.httpClient = signed
	c.api = &gotwitter.Client{
		Authorizer: signedRequests{},
		Client:     signed,
		Host:       c.baseURL,
	}

	if c.verify {
		user, err := c.Me(ctx)
		if err != nil {
			authErr := &AuthError{Reason: "verify credentials", Err: err}
			c.logger.Error("authentication failed", logging.Error(authErr))
			return nil, authErr
		}
		c.user = *user
		c.logger.Info("authenticated", logging.String("username", user.Username))
	}
	return c, nil
}

// User returns the account verified at construction, if any.
func (c *Client) User() User {
	return c.user
}

// Me fetches the authenticated account.
func (c *Client) Me(ctx context.Context) (*User, error) {
	resp, err := c.api.AuthUserLookup(ctx, gotwitter.UserLookupOpts{})
	if err != nil {
		return nil, fmt.Errorf("users/me: %w", err)
	}
	if resp.Raw == nil || len(resp.Raw.Users) == 0 || resp.Raw.Users[0] == nil {
		return nil, errors.New("users/me: empty response")
	}
	u := resp.Raw.Users[0]
	return &User{ID: u.ID, Name: u.Name, Username: u.UserName}, nil
}

// Publish composes content and hashtags, truncates the result to
// MaxTweetLength and posts it.
func (c *Client) Publish(ctx context.Context, content, hashtags string) error {
	text := models.ComposeMessage(content, hashtags)
	if n := runeLen(text); n > MaxTweetLength {
		c.logger.Warn("tweet too long, truncating",
			logging.Int("length", n),
			logging.Int("limit", MaxTweetLength),
		)
	}
	text = Truncate(text, MaxTweetLength)

	tweet, err := c.CreateTweet(ctx, text)
	if err != nil {
		return err
	}
	c.logger.Info("successfully posted tweet",
		logging.String("tweet_id", tweet.ID),
		logging.String("text", text),
	)
	return nil
}

// CreateTweet posts text as-is.
func (c *Client) CreateTweet(ctx context.Context, text string) (*Tweet, error) {
	resp, err := c.api.CreateTweet(ctx, gotwitter.CreateTweetRequest{Text: text})
	if err != nil {
		return nil, publishError(err)
	}
	if resp.Tweet == nil {
		return nil, &PublishError{Err: errors.New("empty response")}
	}
	return &Tweet{ID: resp.Tweet.ID, Text: resp.Tweet.Text}, nil
}

func publishError(err error) *PublishError {
	var apiErr *gotwitter.ErrorResponse
	if errors.As(err, &apiErr) {
		var parts []string
		for _, part := range []string{apiErr.Title, apiErr.Detail} {
			if part = strings.TrimSpace(part); part != "" {
				parts = append(parts, part)
			}
		}
		return &PublishError{Status: apiErr.StatusCode, Body: strings.Join(parts, ": ")}
	}
	var httpErr *gotwitter.HTTPError
	if errors.As(err, &httpErr) {
		return &PublishError{Status: httpErr.StatusCode, Body: httpErr.Status}
	}
	return &PublishError{Err: err}
}

// signedRequests satisfies the library's Authorizer. Requests are signed by
// the oauth1 transport underneath, so nothing is added here.
type signedRequests struct{}

func (signedRequests) Add(*http.Request) {}

// Truncate cuts text to at most limit characters, counted after NFC
// normalization. Text within the limit is returned byte for byte; only a text
// that needs cutting comes back in NFC form. The cut is not word-aware.
func Truncate(text string, limit int) string {
	if limit < 0 {
		limit = 0
	}
	if runeLen(text) <= limit {
		return text
	}
	composed := norm.NFC.String(text)
	count := 0
	for i := range composed {
		if count == limit {
			return composed[:i]
		}
		count++
	}
	return composed
}

func runeLen(s string) int {
	return utf8.RuneCountInString(norm.NFC.String(s))
}
