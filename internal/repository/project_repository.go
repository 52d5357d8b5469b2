package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/opencodehub/opencodehub/internal/models"
)

// ProjectRepository определяет методы для работы с проектами.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project *models.Project) (*models.Project, error)
	GetProjectByID(ctx context.Context, projectID int64) (*models.Project, error)
	ListVisibleProjects(ctx context.Context, userID int64, limit, offset int) ([]models.Project, int64, error)
	ListSharedUsers(ctx context.Context, projectID int64) ([]models.PublicUser, error)
	IsSharedWith(ctx context.Context, projectID, userID int64) (bool, error)
	ShareProject(ctx context.Context, projectID, userID int64) error
	UnshareProject(ctx context.Context, projectID, userID int64) error
}

// postgresProjectRepository реализует ProjectRepository для PostgreSQL.
type postgresProjectRepository struct {
	db *sqlx.DB
}

// NewPostgresProjectRepository создает новый экземпляр репозитория проектов.
func NewPostgresProjectRepository(db *sqlx.DB) ProjectRepository {
	return &postgresProjectRepository{db: db}
}

const selectProjectColumns = `p.id, p.title, p.description, p.owner_id, u.username AS owner_username,
	       p.is_public, p.share_link, p.created_at, p.updated_at`

// CreateProject создает новый проект. Ссылка для шаринга (share_link)
// генерируется при создании и далее не меняется.
func (r *postgresProjectRepository) CreateProject(
	ctx context.Context,
	project *models.Project,
) (*models.Project, error) {
	query := `INSERT INTO projects (title, description, owner_id, is_public, share_link)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`

	shareLink := uuid.New()
	err := r.db.QueryRowxContext(ctx, query,
		project.Title, project.Description, project.OwnerID, project.IsPublic, shareLink,
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		log.Printf("[ProjectRepo] Ошибка при создании проекта '%s': %v", project.Title, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на создание проекта: %w", err)
	}
	project.ShareLink = shareLink

	log.Printf("[ProjectRepo] Проект '%s' успешно создан с ID %d", project.Title, project.ID)
	return project, nil
}

// GetProjectByID находит проект по его ID.
func (r *postgresProjectRepository) GetProjectByID(ctx context.Context, projectID int64) (*models.Project, error) {
	query := `SELECT ` + selectProjectColumns + `
	          FROM projects p JOIN users u ON u.id = p.owner_id
	          WHERE p.id=$1`
	var project models.Project

	err := r.db.GetContext(ctx, &project, query, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[ProjectRepo] Проект с ID %d не найден", projectID)
			return nil, ErrProjectNotFound
		}
		log.Printf("[ProjectRepo] Ошибка при поиске проекта ID %d: %v", projectID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение проекта: %w", err)
	}

	return &project, nil
}

// ListVisibleProjects возвращает страницу проектов, видимых пользователю:
// собственные, расшаренные ему и публичные. Вторым значением — общее количество.
func (r *postgresProjectRepository) ListVisibleProjects(
	ctx context.Context,
	userID int64,
	limit, offset int,
) ([]models.Project, int64, error) {
	visibleWhere := `(p.owner_id = $1
	                  OR p.is_public
	                  OR EXISTS (SELECT 1 FROM project_shares s WHERE s.project_id = p.id AND s.user_id = $1))`

	var total int64
	countQuery := `SELECT COUNT(*) FROM projects p WHERE ` + visibleWhere
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		log.Printf("[ProjectRepo] Ошибка при подсчете видимых проектов для пользователя %d: %v", userID, err)
		return nil, 0, fmt.Errorf("ошибка выполнения запроса на подсчет проектов: %w", err)
	}

	query := `SELECT ` + selectProjectColumns + `
	          FROM projects p JOIN users u ON u.id = p.owner_id
	          WHERE ` + visibleWhere + `
	          ORDER BY p.created_at DESC
	          LIMIT $2 OFFSET $3`

	projects := make([]models.Project, 0, limit)
	if err := r.db.SelectContext(ctx, &projects, query, userID, limit, offset); err != nil {
		log.Printf("[ProjectRepo] Ошибка при получении списка проектов для пользователя %d: %v", userID, err)
		return nil, 0, fmt.Errorf("ошибка выполнения запроса на получение списка проектов: %w", err)
	}

	return projects, total, nil
}

// ListSharedUsers возвращает пользователей, которым расшарен проект.
func (r *postgresProjectRepository) ListSharedUsers(
	ctx context.Context,
	projectID int64,
) ([]models.PublicUser, error) {
	query := `SELECT u.id, u.username
	          FROM project_shares s JOIN users u ON u.id = s.user_id
	          WHERE s.project_id=$1
	          ORDER BY u.username`

	users := make([]models.PublicUser, 0)
	if err := r.db.SelectContext(ctx, &users, query, projectID); err != nil {
		log.Printf("[ProjectRepo] Ошибка при получении списка соавторов проекта %d: %v", projectID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение соавторов: %w", err)
	}

	return users, nil
}

// IsSharedWith проверяет, расшарен ли проект пользователю явно.
func (r *postgresProjectRepository) IsSharedWith(ctx context.Context, projectID, userID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM project_shares WHERE project_id=$1 AND user_id=$2)`
	var shared bool

	if err := r.db.GetContext(ctx, &shared, query, projectID, userID); err != nil {
		log.Printf("[ProjectRepo] Ошибка при проверке доступа пользователя %d к проекту %d: %v",
			userID, projectID, err)
		return false, fmt.Errorf("ошибка выполнения запроса на проверку доступа: %w", err)
	}

	return shared, nil
}

// ShareProject открывает пользователю доступ к проекту. Повторный вызов — no-op.
func (r *postgresProjectRepository) ShareProject(ctx context.Context, projectID, userID int64) error {
	query := `INSERT INTO project_shares (project_id, user_id) VALUES ($1, $2)
	          ON CONFLICT (project_id, user_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, projectID, userID); err != nil {
		log.Printf("[ProjectRepo] Ошибка при шаринге проекта %d пользователю %d: %v", projectID, userID, err)
		return fmt.Errorf("ошибка выполнения запроса на шаринг проекта: %w", err)
	}

	log.Printf("[ProjectRepo] Проект %d расшарен пользователю %d", projectID, userID)
	return nil
}

// UnshareProject закрывает пользователю доступ к проекту.
func (r *postgresProjectRepository) UnshareProject(ctx context.Context, projectID, userID int64) error {
	query := `DELETE FROM project_shares WHERE project_id=$1 AND user_id=$2`

	res, err := r.db.ExecContext(ctx, query, projectID, userID)
	if err != nil {
		log.Printf("[ProjectRepo] Ошибка при отзыве доступа пользователя %d к проекту %d: %v",
			userID, projectID, err)
		return fmt.Errorf("ошибка выполнения запроса на отзыв доступа: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrShareNotFound
	}

	log.Printf("[ProjectRepo] Доступ пользователя %d к проекту %d отозван", userID, projectID)
	return nil
}

// Кастомные ошибки репозитория проектов.
var (
	ErrProjectNotFound = errors.New("проект не найден")
	ErrShareNotFound   = errors.New("доступ к проекту не был предоставлен")
)
