package models

import "time"

// PostLike records one user's like on one post. The composite unique
// index makes the like toggle race-safe: a duplicate insert fails at the
// database instead of double counting.
type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"uniqueIndex:idx_post_likes_post_user;not null" json:"post_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_post_likes_post_user;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
