package models

import (
	"time"

	"github.com/google/uuid"
)

// Project представляет проект пользователя.
// Приватный проект видят владелец и пользователи, которым он расшарен,
// публичный — все аутентифицированные пользователи.
type Project struct {
	ID            int64     `db:"id"`
	Title         string    `db:"title"`
	Description   string    `db:"description"`
	OwnerID       int64     `db:"owner_id"`
	OwnerUsername string    `db:"owner_username"` // Заполняется JOIN-ом с users
	IsPublic      bool      `db:"is_public"`
	ShareLink     uuid.UUID `db:"share_link"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// CreateProjectRequest представляет тело запроса на создание проекта.
type CreateProjectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	IsPublic    *bool  `json:"is_public"`
}

// ShareProjectRequest представляет тело запроса на предоставление доступа к проекту.
type ShareProjectRequest struct {
	Username string `json:"username"`
}

// ProjectResponse — представление проекта в API.
type ProjectResponse struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Owner       PublicUser   `json:"owner"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	IsPublic    bool         `json:"is_public"`
	SharedWith  []PublicUser `json:"shared_with"`
	ShareLink   string       `json:"share_link"`
}

// NewProjectResponse собирает представление проекта для API.
// Временные метки приводятся к UTC (в JSON уходит ISO-8601).
func NewProjectResponse(p *Project, sharedWith []PublicUser) ProjectResponse {
	if sharedWith == nil {
		sharedWith = []PublicUser{}
	}
	return ProjectResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Owner:       PublicUser{ID: p.OwnerID, Username: p.OwnerUsername},
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
		IsPublic:    p.IsPublic,
		SharedWith:  sharedWith,
		ShareLink:   p.ShareLink.String(),
	}
}
