package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/opencodehub/opencodehub/internal/models"
	"github.com/opencodehub/opencodehub/internal/repository"
)

// ProjectService определяет операции над проектами.
type ProjectService interface {
	Create(ctx context.Context, actorID int64, req models.CreateProjectRequest) (*models.Project, error)
	List(ctx context.Context, actorID int64, limit, offset int) ([]models.Project, int64, error)
	Get(ctx context.Context, projectID, actorID int64) (*models.Project, []models.PublicUser, error)
	Share(ctx context.Context, projectID, actorID int64, username string) error
	Unshare(ctx context.Context, projectID, actorID, userID int64) error
}

// Убедимся, что projectService удовлетворяет интерфейсу ProjectService.
var _ ProjectService = (*projectService)(nil)

type projectService struct {
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
}

// NewProjectService создает новый экземпляр сервиса проектов.
func NewProjectService(
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
) ProjectService {
	return &projectService{projectRepo: projectRepo, userRepo: userRepo}
}

// Create создает новый проект. Владельцем становится вызывающий пользователь.
// Если is_public не передан, проект публичный.
func (s *projectService) Create(
	ctx context.Context,
	actorID int64,
	req models.CreateProjectRequest,
) (*models.Project, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, newFieldError("title", "title is required")
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	project := &models.Project{
		Title:       title,
		Description: req.Description,
		OwnerID:     actorID,
		IsPublic:    isPublic,
	}

	created, err := s.projectRepo.CreateProject(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания проекта: %w", err)
	}

	// Имя владельца известно по актору — дочитывать проект не нужно
	if created.OwnerUsername == "" {
		if owner, userErr := s.userRepo.GetUserByID(ctx, actorID); userErr == nil {
			created.OwnerUsername = owner.Username
		}
	}

	log.Printf("[ProjectService] Проект '%s' (ID: %d) создан пользователем %d", created.Title, created.ID, actorID)
	return created, nil
}

// List возвращает страницу видимых пользователю проектов.
func (s *projectService) List(
	ctx context.Context,
	actorID int64,
	limit, offset int,
) ([]models.Project, int64, error) {
	return s.projectRepo.ListVisibleProjects(ctx, actorID, limit, offset)
}

// Get возвращает проект и список пользователей, которым он расшарен.
func (s *projectService) Get(
	ctx context.Context,
	projectID, actorID int64,
) (*models.Project, []models.PublicUser, error) {
	project, level, err := resolveProjectAccess(ctx, s.projectRepo, projectID, actorID)
	if err != nil {
		return nil, nil, err
	}
	if !level.CanView() {
		return nil, nil, ErrPermissionDenied
	}

	sharedWith, err := s.projectRepo.ListSharedUsers(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка получения соавторов проекта: %w", err)
	}

	return project, sharedWith, nil
}

// Share открывает пользователю username доступ к проекту. Только владелец.
func (s *projectService) Share(ctx context.Context, projectID, actorID int64, username string) error {
	project, level, err := resolveProjectAccess(ctx, s.projectRepo, projectID, actorID)
	if err != nil {
		return err
	}
	if !level.IsOwner() {
		return ErrPermissionDenied
	}

	user, err := s.userRepo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return newFieldError("username", fmt.Sprintf("user %s not found", username))
		}
		return fmt.Errorf("ошибка поиска пользователя: %w", err)
	}
	if user.ID == project.OwnerID {
		return newFieldError("username", "cannot share a project with its owner")
	}

	if err = s.projectRepo.ShareProject(ctx, projectID, user.ID); err != nil {
		return fmt.Errorf("ошибка шаринга проекта: %w", err)
	}

	log.Printf("[ProjectService] Проект %d расшарен пользователю '%s' владельцем %d",
		projectID, user.Username, actorID)
	return nil
}

// Unshare отзывает у пользователя доступ к проекту. Только владелец.
func (s *projectService) Unshare(ctx context.Context, projectID, actorID, userID int64) error {
	_, level, err := resolveProjectAccess(ctx, s.projectRepo, projectID, actorID)
	if err != nil {
		return err
	}
	if !level.IsOwner() {
		return ErrPermissionDenied
	}

	if err = s.projectRepo.UnshareProject(ctx, projectID, userID); err != nil {
		if errors.Is(err, repository.ErrShareNotFound) {
			return ErrShareNotFound
		}
		return fmt.Errorf("ошибка отзыва доступа: %w", err)
	}

	log.Printf("[ProjectService] Доступ пользователя %d к проекту %d отозван владельцем %d",
		userID, projectID, actorID)
	return nil
}

// ErrShareNotFound — доступ, который пытаются отозвать, не был предоставлен.
var ErrShareNotFound = errors.New("доступ к проекту не был предоставлен")
