package domain

import "time"

// PostTypeTwitter is the only external source currently bookmarked.
const PostTypeTwitter = "twitter"

// Post is a user's bookmark of an external post.
type Post struct {
	ID         int64
	UserID     int64
	ExternalID string
	Type       string
	CreatedAt  time.Time
	Tags       []Tag
}

// Tag is a globally shared label, identified by its exact name.
type Tag struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// TagIDs returns the ids of tags in their given order.
func TagIDs(tags []Tag) []int64 {
	ids := make([]int64, len(tags))
	for i := range tags {
		ids[i] = tags[i].ID
	}
	return ids
}
