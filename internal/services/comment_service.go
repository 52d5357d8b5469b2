package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/opencodehub/opencodehub/internal/models"
	"github.com/opencodehub/opencodehub/internal/repository"
)

// CommentService определяет операции над комментариями проектов.
type CommentService interface {
	Create(ctx context.Context, projectID, actorID int64, content string) (*models.Comment, error)
	List(ctx context.Context, projectID, actorID int64) ([]models.Comment, error)
}

// Убедимся, что commentService удовлетворяет интерфейсу CommentService.
var _ CommentService = (*commentService)(nil)

type commentService struct {
	commentRepo repository.CommentRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
}

// NewCommentService создает новый экземпляр сервиса комментариев.
func NewCommentService(
	commentRepo repository.CommentRepository,
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
) CommentService {
	return &commentService{commentRepo: commentRepo, projectRepo: projectRepo, userRepo: userRepo}
}

// Create добавляет комментарий к проекту. Комментировать может любой,
// кто видит проект.
func (s *commentService) Create(
	ctx context.Context,
	projectID, actorID int64,
	content string,
) (*models.Comment, error) {
	_, level, err := resolveProjectAccess(ctx, s.projectRepo, projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !level.CanView() {
		return nil, ErrPermissionDenied
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, newFieldError("content", "content is required")
	}

	comment := &models.Comment{
		ProjectID: projectID,
		AuthorID:  actorID,
		Content:   content,
	}
	created, err := s.commentRepo.CreateComment(ctx, comment)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания комментария: %w", err)
	}

	// Имя автора известно по актору
	if author, userErr := s.userRepo.GetUserByID(ctx, actorID); userErr == nil {
		created.AuthorUsername = author.Username
	}

	log.Printf("[CommentService] Комментарий %d добавлен к проекту %d пользователем %d",
		created.ID, projectID, actorID)
	return created, nil
}

// List возвращает комментарии проекта в порядке создания.
func (s *commentService) List(ctx context.Context, projectID, actorID int64) ([]models.Comment, error) {
	_, level, err := resolveProjectAccess(ctx, s.projectRepo, projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !level.CanView() {
		return nil, ErrPermissionDenied
	}

	return s.commentRepo.ListComments(ctx, projectID)
}
