package models

import "time"

// Post публикация, принадлежащая аккаунту UserID.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PostChanges изменяемые поля публикации. Владелец не меняется.
type PostChanges struct {
	Title     *string
	Content   *string
	Published *bool
}
