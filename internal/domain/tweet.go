package domain

import "time"

// Tweet holds the live fields fetched for a bookmarked twitter post.
type Tweet struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	CreatedAt     time.Time    `json:"created_at"`
	Author        TweetAuthor  `json:"author"`
	PublicMetrics TweetMetrics `json:"public_metrics"`
}

type TweetAuthor struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

type TweetMetrics struct {
	RetweetCount int `json:"retweet_count"`
	ReplyCount   int `json:"reply_count"`
	LikeCount    int `json:"like_count"`
	QuoteCount   int `json:"quote_count"`
}

// EnrichedPost merges a stored post with its fetched tweet.
// Stale is set when the tweet came from an archived snapshot instead of a live fetch.
type EnrichedPost struct {
	Post  Post
	Tweet Tweet
	Stale bool
}
