package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/opencodehub/opencodehub/internal/models"
)

// Имена ограничений, по которым различаем нарушения уникальности (код 23505).
const (
	versionNumberConstraint = "project_versions_project_id_version_number_key"
	latestIndexConstraint   = "project_versions_latest_idx"
)

// Допустимые ключи сортировки списка версий и соответствующие им ORDER BY.
var versionSortColumns = map[string]string{
	"created_at":      "v.created_at ASC, v.id ASC",
	"-created_at":     "v.created_at DESC, v.id DESC",
	"version_number":  "v.version_number ASC",
	"-version_number": "v.version_number DESC",
}

// ListVersionsParams — параметры страницы списка версий.
// Sort должен быть одним из ключей versionSortColumns.
type ListVersionsParams struct {
	Limit  int
	Offset int
	Sort   string
}

// VersionRepository определяет методы для работы с версиями проектов.
//
// Инварианты, которые обязан обеспечивать репозиторий:
//   - version_number уникален в рамках проекта (ограничение БД, не предпроверка);
//   - в проекте не более одной версии с is_latest=true. Каждая операция
//     clear+set выполняется в одной транзакции, которая сперва блокирует
//     строку проекта (FOR UPDATE), поэтому конкурирующие писатели одного
//     проекта сериализуются. Частичный уникальный индекс по
//     (project_id) WHERE is_latest страхует инвариант на уровне БД.
type VersionRepository interface {
	CreateVersion(
		ctx context.Context,
		version *models.ProjectVersion,
		latestRequested *bool,
	) (*models.ProjectVersion, error)
	ListVersions(
		ctx context.Context,
		projectID int64,
		params ListVersionsParams,
	) ([]models.ProjectVersion, int64, error)
	GetVersion(ctx context.Context, projectID, versionID int64) (*models.ProjectVersion, error)
	GetLatestVersion(ctx context.Context, projectID int64) (*models.ProjectVersion, error)
	UpdateVersion(
		ctx context.Context,
		projectID, versionID int64,
		upd models.VersionUpdate,
	) (*models.ProjectVersion, error)
	DeleteVersion(ctx context.Context, projectID, versionID int64) (*models.ProjectVersion, error)
	SetLatestVersion(ctx context.Context, projectID, versionID int64) (*models.ProjectVersion, error)
	ClearLatest(ctx context.Context, projectID int64) error
	VersionNumberExists(ctx context.Context, projectID int64, versionNumber string) (bool, error)
}

// postgresVersionRepository реализует VersionRepository для PostgreSQL.
type postgresVersionRepository struct {
	db *sqlx.DB
}

// NewPostgresVersionRepository создает новый экземпляр репозитория версий.
func NewPostgresVersionRepository(db *sqlx.DB) VersionRepository {
	return &postgresVersionRepository{db: db}
}

const selectVersionQuery = `SELECT v.id, v.project_id, v.version_number, v.description, v.created_at,
	       v.created_by, u.username AS created_by_username,
	       v.object_key, v.file_size, v.file_type, v.is_latest
	FROM project_versions v JOIN users u ON u.id = v.created_by`

// resolveLatestFlag вычисляет значение is_latest для новой версии.
// Вызывается внутри транзакции создания, когда строка проекта уже заблокирована,
// поэтому прочитанные existing/hasLatest не могут устареть до вставки.
func resolveLatestFlag(existing int64, hasLatest bool, requested *bool) bool {
	switch {
	case requested != nil && *requested:
		return true
	case existing == 0:
		// Первая версия проекта всегда становится последней
		return true
	case requested == nil && !hasLatest:
		// Защитное восстановление: в проекте нет текущей последней версии
		return true
	default:
		return false
	}
}

// lockProject блокирует строку проекта до конца транзакции.
func lockProject(ctx context.Context, tx *sqlx.Tx, projectID int64) error {
	var id int64
	err := tx.GetContext(ctx, &id, `SELECT id FROM projects WHERE id=$1 FOR UPDATE`, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("ошибка блокировки строки проекта: %w", err)
	}
	return nil
}

// clearLatestSweep сбрасывает is_latest у всех версий проекта. Единственная
// точка записи сброса: транзакционные пути clear+set и ClearLatest проходят
// через нее.
func clearLatestSweep(ctx context.Context, ex sqlx.ExtContext, projectID int64) error {
	_, err := ex.ExecContext(ctx,
		`UPDATE project_versions SET is_latest=false WHERE project_id=$1 AND is_latest`, projectID)
	if err != nil {
		return fmt.Errorf("ошибка сброса флага последней версии: %w", err)
	}
	return nil
}

// mapUniqueViolation переводит ошибку 23505 в типизированную ошибку репозитория.
func mapUniqueViolation(err error) error {
	var pgErr *pq.Error
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolationCode {
		return nil
	}
	switch pgErr.Constraint {
	case latestIndexConstraint:
		return ErrLatestConflict
	default:
		// Единственное другое уникальное ограничение таблицы —
		// (project_id, version_number)
		return ErrVersionNumberTaken
	}
}

// CreateVersion создает новую версию проекта и атомарно выставляет флаг is_latest
// по правилам: явный запрос → true (с предварительным сбросом остальных),
// первая версия → true, нет текущей последней и флаг не задан → true, иначе false.
// Заодно обновляет updated_at проекта.
func (r *postgresVersionRepository) CreateVersion(
	ctx context.Context,
	version *models.ProjectVersion,
	latestRequested *bool,
) (*models.ProjectVersion, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err = lockProject(ctx, tx, version.ProjectID); err != nil {
		log.Printf("[VersionRepo] Ошибка блокировки проекта %d: %v", version.ProjectID, err)
		return nil, err
	}

	var existing int64
	err = tx.GetContext(ctx, &existing,
		`SELECT COUNT(*) FROM project_versions WHERE project_id=$1`, version.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета версий проекта: %w", err)
	}

	var hasLatest bool
	err = tx.GetContext(ctx, &hasLatest,
		`SELECT EXISTS (SELECT 1 FROM project_versions WHERE project_id=$1 AND is_latest)`, version.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки текущей последней версии: %w", err)
	}

	markLatest := resolveLatestFlag(existing, hasLatest, latestRequested)
	if markLatest && hasLatest {
		if err = clearLatestSweep(ctx, tx, version.ProjectID); err != nil {
			return nil, err
		}
	}

	var versionID int64
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO project_versions
		   (project_id, version_number, description, created_by, object_key, file_size, file_type, is_latest)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		version.ProjectID, version.VersionNumber, version.Description, version.CreatedByID,
		version.ObjectKey, version.FileSize, version.FileType, markLatest,
	).Scan(&versionID)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			log.Printf("[VersionRepo] Конфликт при создании версии '%s' проекта %d: %v",
				version.VersionNumber, version.ProjectID, mapped)
			return nil, mapped
		}
		log.Printf("[VersionRepo] Непредвиденная ошибка при создании версии '%s' проекта %d: %v",
			version.VersionNumber, version.ProjectID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на создание версии: %w", err)
	}

	// Загрузка версии происходит от имени проекта — отмечаем активность проекта
	_, err = tx.ExecContext(ctx, `UPDATE projects SET updated_at = now() WHERE id=$1`, version.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления проекта: %w", err)
	}

	created, err := getVersionTx(ctx, tx, version.ProjectID, versionID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	log.Printf("[VersionRepo] Версия '%s' (ID: %d) успешно создана для проекта %d (is_latest=%t)",
		created.VersionNumber, created.ID, created.ProjectID, created.IsLatest)
	return created, nil
}

// ListVersions возвращает страницу версий проекта и общее их количество.
func (r *postgresVersionRepository) ListVersions(
	ctx context.Context,
	projectID int64,
	params ListVersionsParams,
) ([]models.ProjectVersion, int64, error) {
	orderBy, ok := versionSortColumns[params.Sort]
	if !ok {
		orderBy = versionSortColumns["-created_at"]
	}

	var total int64
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM project_versions WHERE project_id=$1`, projectID)
	if err != nil {
		log.Printf("[VersionRepo] Ошибка при подсчете версий проекта %d: %v", projectID, err)
		return nil, 0, fmt.Errorf("ошибка выполнения запроса на подсчет версий: %w", err)
	}

	query := selectVersionQuery + `
	WHERE v.project_id=$1
	ORDER BY ` + orderBy + `
	LIMIT $2 OFFSET $3`

	versions := make([]models.ProjectVersion, 0, params.Limit)
	err = r.db.SelectContext(ctx, &versions, query, projectID, params.Limit, params.Offset)
	if err != nil {
		log.Printf("[VersionRepo] Ошибка при получении списка версий проекта %d: %v", projectID, err)
		return nil, 0, fmt.Errorf("ошибка выполнения запроса на получение списка версий: %w", err)
	}

	log.Printf("[VersionRepo] Получено %d из %d версий проекта %d (limit=%d, offset=%d)",
		len(versions), total, projectID, params.Limit, params.Offset)
	return versions, total, nil
}

// GetVersion находит версию по ID в рамках проекта.
func (r *postgresVersionRepository) GetVersion(
	ctx context.Context,
	projectID, versionID int64,
) (*models.ProjectVersion, error) {
	query := selectVersionQuery + ` WHERE v.project_id=$1 AND v.id=$2`
	var version models.ProjectVersion

	err := r.db.GetContext(ctx, &version, query, projectID, versionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[VersionRepo] Версия %d проекта %d не найдена", versionID, projectID)
			return nil, ErrVersionNotFound
		}
		log.Printf("[VersionRepo] Ошибка при поиске версии %d проекта %d: %v", versionID, projectID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение версии: %w", err)
	}

	return &version, nil
}

// GetLatestVersion возвращает версию проекта с is_latest=true.
// Если такой нет (например, последняя версия была удалена) — ErrVersionNotFound:
// автоматического продвижения другой версии не происходит.
func (r *postgresVersionRepository) GetLatestVersion(
	ctx context.Context,
	projectID int64,
) (*models.ProjectVersion, error) {
	query := selectVersionQuery + ` WHERE v.project_id=$1 AND v.is_latest`
	var version models.ProjectVersion

	err := r.db.GetContext(ctx, &version, query, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[VersionRepo] У проекта %d нет текущей последней версии", projectID)
			return nil, ErrVersionNotFound
		}
		log.Printf("[VersionRepo] Ошибка при поиске последней версии проекта %d: %v", projectID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение последней версии: %w", err)
	}

	return &version, nil
}

// UpdateVersion изменяет описание и/или флаг is_latest версии.
// Выставление is_latest=true работает как set-latest: сперва сбрасываются
// остальные флаги проекта, всё в одной транзакции.
func (r *postgresVersionRepository) UpdateVersion(
	ctx context.Context,
	projectID, versionID int64,
	upd models.VersionUpdate,
) (*models.ProjectVersion, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err = lockProject(ctx, tx, projectID); err != nil {
		log.Printf("[VersionRepo] Ошибка блокировки проекта %d: %v", projectID, err)
		return nil, err
	}

	if upd.IsLatest != nil && *upd.IsLatest {
		if err = clearLatestSweep(ctx, tx, projectID); err != nil {
			return nil, err
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE project_versions
		 SET description = COALESCE($3, description),
		     is_latest   = COALESCE($4, is_latest)
		 WHERE project_id=$1 AND id=$2`,
		projectID, versionID, upd.Description, upd.IsLatest)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return nil, mapped
		}
		log.Printf("[VersionRepo] Ошибка при обновлении версии %d проекта %d: %v", versionID, projectID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на обновление версии: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrVersionNotFound
	}

	updated, err := getVersionTx(ctx, tx, projectID, versionID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	log.Printf("[VersionRepo] Версия %d проекта %d обновлена", versionID, projectID)
	return updated, nil
}

// DeleteVersion удаляет версию и возвращает удаленную запись
// (object_key нужен вызывающему для очистки блоба).
// Другая версия на место последней автоматически не продвигается.
func (r *postgresVersionRepository) DeleteVersion(
	ctx context.Context,
	projectID, versionID int64,
) (*models.ProjectVersion, error) {
	query := `DELETE FROM project_versions
	          WHERE project_id=$1 AND id=$2
	          RETURNING id, project_id, version_number, description, created_at, created_by,
	                    object_key, file_size, file_type, is_latest`
	var version models.ProjectVersion

	err := r.db.QueryRowxContext(ctx, query, projectID, versionID).StructScan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[VersionRepo] Версия %d проекта %d не найдена для удаления", versionID, projectID)
			return nil, ErrVersionNotFound
		}
		log.Printf("[VersionRepo] Ошибка при удалении версии %d проекта %d: %v", versionID, projectID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на удаление версии: %w", err)
	}

	log.Printf("[VersionRepo] Версия %d проекта %d удалена (was_latest=%t)", versionID, projectID, version.IsLatest)
	return &version, nil
}

// SetLatestVersion атомарно делает указанную версию последней:
// сброс всех флагов проекта и установка нового — одна транзакция
// под блокировкой строки проекта.
func (r *postgresVersionRepository) SetLatestVersion(
	ctx context.Context,
	projectID, versionID int64,
) (*models.ProjectVersion, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err = lockProject(ctx, tx, projectID); err != nil {
		log.Printf("[VersionRepo] Ошибка блокировки проекта %d: %v", projectID, err)
		return nil, err
	}

	if err = clearLatestSweep(ctx, tx, projectID); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE project_versions SET is_latest=true WHERE project_id=$1 AND id=$2`, projectID, versionID)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return nil, mapped
		}
		log.Printf("[VersionRepo] Ошибка при установке последней версии %d проекта %d: %v",
			versionID, projectID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на установку последней версии: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrVersionNotFound
	}

	updated, err := getVersionTx(ctx, tx, projectID, versionID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	log.Printf("[VersionRepo] Версия %d назначена последней для проекта %d", versionID, projectID)
	return updated, nil
}

// ClearLatest сбрасывает is_latest у всех версий проекта вне транзакции.
func (r *postgresVersionRepository) ClearLatest(ctx context.Context, projectID int64) error {
	if err := clearLatestSweep(ctx, r.db, projectID); err != nil {
		log.Printf("[VersionRepo] Ошибка при сбросе флага последней версии проекта %d: %v", projectID, err)
		return err
	}
	return nil
}

// VersionNumberExists проверяет, занят ли номер версии в проекте.
// Это предпроверка для быстрого отказа до записи в хранилище; гонку
// проверка-вставка закрывает уникальное ограничение БД.
func (r *postgresVersionRepository) VersionNumberExists(
	ctx context.Context,
	projectID int64,
	versionNumber string,
) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM project_versions WHERE project_id=$1 AND version_number=$2)`
	var exists bool

	if err := r.db.GetContext(ctx, &exists, query, projectID, versionNumber); err != nil {
		log.Printf("[VersionRepo] Ошибка при проверке номера версии '%s' проекта %d: %v",
			versionNumber, projectID, err)
		return false, fmt.Errorf("ошибка выполнения запроса на проверку номера версии: %w", err)
	}

	return exists, nil
}

// getVersionTx читает версию с именем автора внутри открытой транзакции.
func getVersionTx(ctx context.Context, tx *sqlx.Tx, projectID, versionID int64) (*models.ProjectVersion, error) {
	query := selectVersionQuery + ` WHERE v.project_id=$1 AND v.id=$2`
	var version models.ProjectVersion

	if err := tx.GetContext(ctx, &version, query, projectID, versionID); err != nil {
		return nil, fmt.Errorf("ошибка чтения версии после записи: %w", err)
	}
	return &version, nil
}

// Кастомные ошибки репозитория версий.
var (
	ErrVersionNotFound    = errors.New("версия проекта не найдена")
	ErrVersionNumberTaken = errors.New("номер версии уже существует в проекте")
	ErrLatestConflict     = errors.New("конфликт обновления последней версии")
)
