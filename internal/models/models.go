package models

import (
	"time"
)

// Post kinds. Fixed at creation, never changed afterwards.
const (
	KindText  = "text"
	KindMedia = "media"
	KindLink  = "link"
)

// Vote values. A missing row means "no vote"; zero is never stored.
const (
	VoteUp   = 1
	VoteDown = -1
)

// MaxTitleLength caps confession titles.
const MaxTitleLength = 300

// Post represents a single anonymous confession.
//
// Upvotes and Downvotes are denormalized from the votes table and are only
// written by the score aggregator; treat them as a cache of the ledger, never
// as the source of truth.
type Post struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"not null" json:"title"`
	Content      string    `json:"content,omitempty"`
	Kind         string    `gorm:"not null;default:text" json:"kind"`
	MediaURL     string    `json:"mediaUrl,omitempty"`
	LinkURL      string    `json:"linkUrl,omitempty"`
	AuthorLabel  string    `gorm:"not null" json:"author"`
	Upvotes      int       `gorm:"not null;default:0" json:"upvotes"`
	Downvotes    int       `gorm:"not null;default:0" json:"downvotes"`
	CommentCount int       `gorm:"not null;default:0" json:"commentCount"`
	Hidden       bool      `gorm:"not null;default:false" json:"-"` // Hidden from API responses
	CreatedAt    time.Time `json:"createdAt"`
	Votes        []Vote    `gorm:"foreignKey:PostID" json:"-"`
	Comments     []Comment `gorm:"foreignKey:PostID" json:"-"`
}

// Score is the net score used for popularity ranking.
func (p Post) Score() int {
	return p.Upvotes - p.Downvotes
}

// Vote is one voter's +1 or -1 on a post. At most one row may exist per
// (post, voter) pair; the composite primary key is the ON CONFLICT target
// that keeps racing first votes from duplicating.
type Vote struct {
	PostID    string    `gorm:"primaryKey" json:"postId"`
	VoterID   string    `gorm:"primaryKey" json:"voterId"`
	Value     int       `gorm:"not null" json:"value"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comment on a post. AuthorLabel is resolved once at creation and frozen,
// same rule as Post.
type Comment struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	PostID      string    `gorm:"not null;index" json:"postId"`
	AuthorLabel string    `gorm:"not null" json:"author"`
	Text        string    `gorm:"not null" json:"text"`
	CreatedAt   time.Time `json:"createdAt"`
}

// User is an optional registered account. Anonymous use never touches this
// table; a user only upgrades the display label on new posts and comments.
type User struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"not null;uniqueIndex" json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
