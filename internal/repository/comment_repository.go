package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/opencodehub/opencodehub/internal/models"
)

// CommentRepository определяет методы для работы с комментариями проектов.
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	ListComments(ctx context.Context, projectID int64) ([]models.Comment, error)
}

// postgresCommentRepository реализует CommentRepository для PostgreSQL.
type postgresCommentRepository struct {
	db *sqlx.DB
}

// NewPostgresCommentRepository создает новый экземпляр репозитория комментариев.
func NewPostgresCommentRepository(db *sqlx.DB) CommentRepository {
	return &postgresCommentRepository{db: db}
}

// CreateComment создает комментарий к проекту.
func (r *postgresCommentRepository) CreateComment(
	ctx context.Context,
	comment *models.Comment,
) (*models.Comment, error) {
	query := `INSERT INTO comments (project_id, author_id, content)
	          VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query, comment.ProjectID, comment.AuthorID, comment.Content).
		Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		log.Printf("[CommentRepo] Ошибка при создании комментария к проекту %d: %v", comment.ProjectID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на создание комментария: %w", err)
	}

	log.Printf("[CommentRepo] Комментарий (ID: %d) добавлен к проекту %d", comment.ID, comment.ProjectID)
	return comment, nil
}

// ListComments возвращает комментарии проекта в порядке создания (старые первыми).
func (r *postgresCommentRepository) ListComments(
	ctx context.Context,
	projectID int64,
) ([]models.Comment, error) {
	query := `SELECT c.id, c.project_id, c.author_id, u.username AS author_username,
	                 c.content, c.created_at, c.updated_at
	          FROM comments c JOIN users u ON u.id = c.author_id
	          WHERE c.project_id=$1
	          ORDER BY c.created_at ASC, c.id ASC`

	comments := make([]models.Comment, 0)
	if err := r.db.SelectContext(ctx, &comments, query, projectID); err != nil {
		log.Printf("[CommentRepo] Ошибка при получении комментариев проекта %d: %v", projectID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение комментариев: %w", err)
	}

	return comments, nil
}
