package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/opencodehub/opencodehub/internal/access"
	"github.com/opencodehub/opencodehub/internal/models"
	"github.com/opencodehub/opencodehub/internal/repository"
)

// resolveProjectAccess загружает проект и вычисляет уровень доступа пользователя.
// Единая точка входа для всех операций над проектом и его содержимым.
func resolveProjectAccess(
	ctx context.Context,
	projects repository.ProjectRepository,
	projectID, userID int64,
) (*models.Project, access.Level, error) {
	project, err := projects.GetProjectByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, access.Denied, ErrProjectNotFound
		}
		return nil, access.Denied, fmt.Errorf("ошибка получения проекта: %w", err)
	}

	shared := false
	if project.OwnerID != userID {
		shared, err = projects.IsSharedWith(ctx, projectID, userID)
		if err != nil {
			return nil, access.Denied, fmt.Errorf("ошибка проверки доступа к проекту: %w", err)
		}
	}

	return project, access.Resolve(userID, project, shared), nil
}
