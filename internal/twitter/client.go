package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tagmark/internal/domain"
)

const DefaultBaseURL = "https://api.twitter.com"

// Client calls the Twitter API v2 tweet lookup endpoint.
type Client struct {
	baseURL     string
	bearerToken string
	http        *http.Client
}

func NewClient(baseURL, bearerToken string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		bearerToken: bearerToken,
		http:        &http.Client{Timeout: timeout},
	}
}

type lookupResponse struct {
	Data *struct {
		ID            string              `json:"id"`
		Text          string              `json:"text"`
		CreatedAt     time.Time           `json:"created_at"`
		AuthorID      string              `json:"author_id"`
		PublicMetrics domain.TweetMetrics `json:"public_metrics"`
	} `json:"data"`
	Includes struct {
		Users []domain.TweetAuthor `json:"users"`
	} `json:"includes"`
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (c *Client) Fetch(ctx context.Context, id string) (*domain.Tweet, error) {
	q := url.Values{}
	q.Set("expansions", "author_id")
	q.Set("tweet.fields", "created_at,public_metrics")
	q.Set("user.fields", "name,username,profile_image_url")
	endpoint := fmt.Sprintf("%s/2/tweets/%s?%s", c.baseURL, url.PathEscape(id), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build tweet request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tweet request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrTweetNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("tweet request: unexpected status %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode tweet: %w", err)
	}
	if body.Data == nil {
		if len(body.Errors) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrTweetNotFound, body.Errors[0].Detail)
		}
		return nil, ErrTweetNotFound
	}

	tweet := &domain.Tweet{
		ID:            body.Data.ID,
		Text:          body.Data.Text,
		CreatedAt:     body.Data.CreatedAt,
		PublicMetrics: body.Data.PublicMetrics,
		Author:        domain.TweetAuthor{ID: body.Data.AuthorID},
	}
	for _, user := range body.Includes.Users {
		if user.ID == body.Data.AuthorID {
			tweet.Author = user
			break
		}
	}
	return tweet, nil
}

var _ Fetcher = (*Client)(nil)
