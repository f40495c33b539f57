package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

var testCreds = Credentials{
	ConsumerKey:       "ck",
	ConsumerSecret:    "cs",
	AccessToken:       "at",
	AccessTokenSecret: "ats",
	BearerToken:       "bt",
}

type fakeAPI struct {
	mu         sync.Mutex
	meStatus   int
	postStatus int
	posted     []string
	authHeader string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/2/users/me", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.authHeader = r.Header.Get("Authorization")
		status := f.meStatus
		f.mu.Unlock()
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"data":{"id":"42","name":"Contento","username":"contento"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"title":"Unauthorized"}`))
	})
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.posted = append(f.posted, payload.Text)
		status := f.postStatus
		f.mu.Unlock()
		if status == 0 {
			status = http.StatusCreated
		}
		w.WriteHeader(status)
		if status == http.StatusCreated {
			_, _ = w.Write([]byte(`{"data":{"id":"1001","text":"ok"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"detail":"duplicate content"}`))
	})
	return mux
}

func (f *fakeAPI) postedTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.posted...)
}

func (f *fakeAPI) lastAuthHeader() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authHeader
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	client, err := New(context.Background(), testCreds, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewVerifiesCredentialsWithSignedRequest(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api)

	if got := client.User().Username; got != "contento" {
		t.Fatalf("unexpected username %q", got)
	}
	header := api.lastAuthHeader()
	if !strings.HasPrefix(header, "OAuth ") || !strings.Contains(header, `oauth_consumer_key="ck"`) {
		t.Fatalf("expected OAuth1 header, got %q", header)
	}
}

func TestNewFailsOnRejectedCredentials(t *testing.T) {
	api := &fakeAPI{meStatus: http.StatusUnauthorized}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	_, err := New(context.Background(), testCreds, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %T", err)
	}
}

func TestNewFailsOnMissingCredentials(t *testing.T) {
	creds := testCreds
	creds.AccessTokenSecret = " "
	_, err := New(context.Background(), creds, WithoutVerify())
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if !strings.Contains(err.Error(), "access token secret") {
		t.Fatalf("expected missing field in message, got %q", err.Error())
	}
}

func TestPublishComposesMessage(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api)

	if err := client.Publish(context.Background(), "Hello", "#world"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if posted := api.postedTexts(); len(posted) != 1 || posted[0] != "Hello #world" {
		t.Fatalf("unexpected posted text: %v", posted)
	}
}

func TestPublishTruncatesTo280Characters(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api)

	content := strings.Repeat("é", 270)
	hashtags := strings.Repeat("#x", 10)
	if err := client.Publish(context.Background(), content, hashtags); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	got := api.postedTexts()[0]
	if n := utf8.RuneCountInString(got); n != MaxTweetLength {
		t.Fatalf("expected %d characters, got %d", MaxTweetLength, n)
	}
	if !strings.HasPrefix(got, content+" #x") {
		t.Fatalf("expected hard cut of the combined message, got %q", got)
	}
}

func TestPublishReportsRejection(t *testing.T) {
	api := &fakeAPI{postStatus: http.StatusForbidden}
	client := newTestClient(t, api)

	err := client.Publish(context.Background(), "dup", "")
	if !errors.Is(err, ErrPublish) {
		t.Fatalf("expected ErrPublish, got %v", err)
	}
	var pubErr *PublishError
	if !errors.As(err, &pubErr) || pubErr.Status != http.StatusForbidden {
		t.Fatalf("expected 403 PublishError, got %v", err)
	}
	if !strings.Contains(pubErr.Body, "duplicate content") {
		t.Fatalf("expected response body in error, got %q", pubErr.Body)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 280); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Truncate("abcdef", 3); got != "abc" {
		t.Fatalf("unexpected %q", got)
	}
	exact := strings.Repeat("a", 280)
	if got := Truncate(exact, 280); got != exact {
		t.Fatal("text at the limit must be unchanged")
	}
	// e + combining acute normalizes to a single character.
	if got := Truncate("e\u0301x", 1); got != "\u00e9" {
		t.Fatalf("expected NFC composed character, got %q", got)
	}
	if got := Truncate("e\u0301", 1); got != "e\u0301" {
		t.Fatalf("text within the limit must keep its bytes, got %q", got)
	}
}

func TestPublishKeepsDecomposedTextWithinLimit(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api)

	content := "Cafe\u0301 au lait"
	if err := client.Publish(context.Background(), content, ""); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if posted := api.postedTexts(); len(posted) != 1 || posted[0] != content {
		t.Fatalf("expected text posted unchanged, got %q", posted)
	}
}

func TestPublishReportsUndecodableRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/2/users/me" {
			_, _ = w.Write([]byte(`{"data":{"id":"42","name":"Contento","username":"contento"}}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	client, err := New(context.Background(), testCreds, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = client.Publish(context.Background(), "hi", "")
	var pubErr *PublishError
	if !errors.As(err, &pubErr) || pubErr.Status != http.StatusBadGateway {
		t.Fatalf("expected 502 PublishError, got %v", err)
	}
}
