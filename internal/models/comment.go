package models

import "time"

// Comment представляет комментарий к проекту.
type Comment struct {
	ID             int64     `db:"id"`
	ProjectID      int64     `db:"project_id"`
	AuthorID       int64     `db:"author_id"`
	AuthorUsername string    `db:"author_username"` // Заполняется JOIN-ом с users
	Content        string    `db:"content"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// CreateCommentRequest представляет тело запроса на создание комментария.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// CommentResponse — представление комментария в API.
type CommentResponse struct {
	ID        int64      `json:"id"`
	Project   int64      `json:"project"`
	Author    PublicUser `json:"author"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewCommentResponse собирает представление комментария для API.
func NewCommentResponse(c *Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		Project:   c.ProjectID,
		Author:    PublicUser{ID: c.AuthorID, Username: c.AuthorUsername},
		Content:   c.Content,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}
