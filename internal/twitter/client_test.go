package twitter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const lookupBody = `{
  "data": {
    "id": "42",
    "text": "hello world",
    "created_at": "2023-05-01T12:00:00.000Z",
    "author_id": "7",
    "public_metrics": {"retweet_count": 1, "reply_count": 2, "like_count": 3, "quote_count": 4}
  },
  "includes": {"users": [{"id": "7", "name": "Ann", "username": "ann"}]}
}`

func TestClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if r.URL.Path != "/2/tweets/42" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("expansions") != "author_id" {
			t.Errorf("missing author expansion")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(lookupBody))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", time.Second)
	tweet, err := client.Fetch(context.Background(), "42")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if tweet.Text != "hello world" || tweet.Author.Username != "ann" || tweet.PublicMetrics.QuoteCount != 4 {
		t.Fatalf("unexpected tweet: %+v", tweet)
	}
	if !tweet.CreatedAt.Equal(time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected created_at: %v", tweet.CreatedAt)
	}
}

func TestClientFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"title":"Not Found Error","detail":"Could not find tweet with id: [1]."}]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "secret", time.Second).Fetch(context.Background(), "1")
	if !errors.Is(err, ErrTweetNotFound) {
		t.Fatalf("expected ErrTweetNotFound, got %v", err)
	}
}

func TestClientFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "secret", time.Second).Fetch(context.Background(), "1")
	if err == nil || errors.Is(err, ErrTweetNotFound) {
		t.Fatalf("expected a generic error, got %v", err)
	}
}
