// Package twitter fetches live tweet content for bookmarked posts.
package twitter

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"tagmark/internal/domain"
)

// ErrTweetNotFound is returned when the API has no tweet for the id.
var ErrTweetNotFound = errors.New("tweet not found")

// Fetcher retrieves a tweet by id.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (*domain.Tweet, error)
}

var tweetHosts = map[string]struct{}{
	"twitter.com":        {},
	"www.twitter.com":    {},
	"mobile.twitter.com": {},
	"x.com":              {},
	"www.x.com":          {},
	"mobile.x.com":       {},
}

// ParseTweetID extracts the status id from a tweet URL such as
// https://x.com/someone/status/1234567890.
func ParseTweetID(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if _, ok := tweetHosts[strings.ToLower(u.Hostname())]; !ok {
		return "", false
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 3 || parts[0] == "" {
		return "", false
	}
	if parts[1] != "status" && parts[1] != "statuses" {
		return "", false
	}
	id := parts[2]
	if !isDigits(id) {
		return "", false
	}
	return id, true
}

func isDigits(s string) bool {
	if s == "" || len(s) > 20 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
