package models

import "time"

// Post statuses. Drafts are only visible to their author.
const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
)

// Post is a blog entry with rich-text content produced by the editor.
// Content is sanitized before persisting.
type Post struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"index;not null" json:"user_id"`
	CategoryID  *uint      `gorm:"index" json:"category_id,omitempty"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	Excerpt     string     `gorm:"size:300" json:"excerpt"`
	Status      string     `gorm:"size:10;default:'draft';index" json:"status"`
	Views       uint       `gorm:"default:0" json:"views"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	User        User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Category    *Category  `json:"category,omitempty"`
	Comments    []Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`
	LikeCount   int64      `gorm:"-" json:"like_count"`
}
