// Package models defines the persisted entities and API error types.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxPostsPerUser is the quota of posts a single anonymous user token may own.
const MaxPostsPerUser = 2

// Post is a single submission: an embedded image plus a social link.
// Slot is the quota slot the post occupies; (user_id, slot) is unique, which
// caps a user at MaxPostsPerUser rows at the storage level.
type Post struct {
	ID         string    `gorm:"primaryKey;size:36" json:"_id" bson:"_id"`
	ImageURL   string    `gorm:"type:text;not null" json:"imageUrl" bson:"imageUrl"`
	TwitterURL string    `gorm:"not null" json:"twitterUrl" bson:"twitterUrl"`
	UserID     string    `gorm:"not null;size:128;uniqueIndex:idx_posts_user_slot,priority:1" json:"userId" bson:"userId"`
	Slot       int       `gorm:"not null;uniqueIndex:idx_posts_user_slot,priority:2" json:"-" bson:"slot"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt" bson:"createdAt"`
}

// BeforeCreate assigns an opaque identifier when the SQL store inserts a post.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// FeedStats holds the aggregate counters shown above the feed.
type FeedStats struct {
	TotalPosts int64 `json:"totalPosts"`
	TotalUsers int64 `json:"totalUsers"`
}

// Feed is the read model returned by the listing endpoint.
type Feed struct {
	Posts      []*Post `json:"posts"`
	TotalPosts int64   `json:"totalPosts"`
	TotalUsers int64   `json:"totalUsers"`
}

// Quota describes how many posts a user has left.
type Quota struct {
	UserID    string `json:"userId"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
	Max       int64  `json:"max"`
}
