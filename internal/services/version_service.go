package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opencodehub/opencodehub/internal/models"
	"github.com/opencodehub/opencodehub/internal/repository"
	"github.com/opencodehub/opencodehub/internal/storage"
)

// DefaultMaxFileSize — максимальный размер загружаемого файла по умолчанию (50MB).
const DefaultMaxFileSize = 50 * 1024 * 1024

// presignExpiry — время жизни временной ссылки на файл версии.
const presignExpiry = 15 * time.Minute

// blockedExtensions — расширения, запрещенные к загрузке из соображений безопасности.
var blockedExtensions = map[string]struct{}{
	".exe": {}, ".bat": {}, ".sh": {}, ".cmd": {}, ".com": {}, ".app": {},
	".dmg": {}, ".deb": {}, ".rpm": {}, ".msi": {}, ".scr": {}, ".vbs": {},
}

// UploadInput — входные данные загрузки новой версии.
// IsLatest == nil означает, что флаг в запросе не передан.
type UploadInput struct {
	VersionNumber string
	Description   string
	FileName      string
	File          io.Reader
	Size          int64
	IsLatest      *bool
}

// DownloadResult — поток файла версии с метаданными для отдачи клиенту.
type DownloadResult struct {
	Reader      io.ReadCloser
	FileName    string
	ContentType string
	Size        int64
}

// VersionService определяет операции над версиями проекта.
type VersionService interface {
	Upload(ctx context.Context, projectID, actorID int64, input UploadInput) (*models.ProjectVersion, error)
	List(
		ctx context.Context,
		projectID, actorID int64,
		params repository.ListVersionsParams,
	) ([]models.ProjectVersion, int64, error)
	Get(ctx context.Context, projectID, actorID, versionID int64) (*models.ProjectVersion, error)
	GetLatest(ctx context.Context, projectID, actorID int64) (*models.ProjectVersion, error)
	SetLatest(ctx context.Context, projectID, actorID, versionID int64) (*models.ProjectVersion, error)
	Download(ctx context.Context, projectID, actorID, versionID int64) (*DownloadResult, error)
	Update(
		ctx context.Context,
		projectID, actorID, versionID int64,
		upd models.VersionUpdate,
	) (*models.ProjectVersion, error)
	Delete(ctx context.Context, projectID, actorID, versionID int64) error
	FileURL(ctx context.Context, objectKey string) string
}

// Убедимся, что versionService удовлетворяет интерфейсу VersionService.
var _ VersionService = (*versionService)(nil)

type versionService struct {
	versionRepo repository.VersionRepository
	projectRepo repository.ProjectRepository
	fileStorage storage.FileStorage
	maxFileSize int64
}

// NewVersionService создает новый экземпляр сервиса версий.
// maxFileSize <= 0 означает значение по умолчанию (50MB).
func NewVersionService(
	versionRepo repository.VersionRepository,
	projectRepo repository.ProjectRepository,
	fileStorage storage.FileStorage,
	maxFileSize int64,
) VersionService {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &versionService{
		versionRepo: versionRepo,
		projectRepo: projectRepo,
		fileStorage: fileStorage,
		maxFileSize: maxFileSize,
	}
}

// Upload загружает новую версию проекта.
// Порядок строгий: сначала вся валидация (без побочных эффектов),
// затем запись файла в хранилище, затем запись в БД. Если вставка в БД
// не удалась, загруженный файл зачищается (best-effort).
func (s *versionService) Upload(
	ctx context.Context,
	projectID, actorID int64,
	input UploadInput,
) (*models.ProjectVersion, error) {
	_, level, err := resolveProjectAccess(ctx, s.projectRepo, projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !level.CanUpload() {
		log.Printf("[VersionService] Пользователю %d запрещена загрузка версий в проект %d", actorID, projectID)
		return nil, ErrPermissionDenied
	}

	versionNumber := strings.TrimSpace(input.VersionNumber)
	if versionNumber == "" {
		return nil, newFieldError("version_number", "version number is required")
	}
	if input.Size > s.maxFileSize {
		return nil, newFieldError("version_file", fmt.Sprintf(
			"file too large: %d bytes exceeds maximum allowed size of %d bytes", input.Size, s.maxFileSize))
	}
	ext := strings.ToLower(filepath.Ext(input.FileName))
	if _, blocked := blockedExtensions[ext]; blocked {
		return nil, newFieldError("version_file", fmt.Sprintf(
			"blocked file type: %s is not allowed for security reasons", ext))
	}

	// Быстрый отказ на дубликат до записи в хранилище;
	// гонку окончательно закрывает уникальное ограничение БД при вставке
	exists, err := s.versionRepo.VersionNumberExists(ctx, projectID, versionNumber)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки номера версии: %w", err)
	}
	if exists {
		return nil, newFieldError("version_number", fmt.Sprintf(
			"version %s already exists for this project", versionNumber))
	}

	objectKey := fmt.Sprintf("projects/%d/versions/%s%s", projectID, uuid.New().String(), ext)
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err = s.fileStorage.UploadFile(ctx, objectKey, input.File, input.Size, contentType); err != nil {
		return nil, fmt.Errorf("ошибка записи файла версии в хранилище: %w", err)
	}

	version := &models.ProjectVersion{
		ProjectID:     projectID,
		VersionNumber: versionNumber,
		Description:   input.Description,
		CreatedByID:   actorID,
		ObjectKey:     objectKey,
		FileSize:      input.Size,
		FileType:      fileTypeFromExt(ext),
	}

	created, err := s.createWithRetry(ctx, version, input.IsLatest)
	if err != nil {
		// Файл уже в хранилище, а записи не будет — зачищаем осиротевший блоб
		if cleanupErr := s.fileStorage.DeleteFile(ctx, objectKey); cleanupErr != nil {
			log.Printf("[VersionService] Не удалось зачистить осиротевший файл '%s': %v", objectKey, cleanupErr)
		}
		if errors.Is(err, repository.ErrVersionNumberTaken) {
			return nil, newFieldError("version_number", fmt.Sprintf(
				"version %s already exists for this project", versionNumber))
		}
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		if errors.Is(err, repository.ErrLatestConflict) {
			return nil, ErrLatestConflict
		}
		return nil, fmt.Errorf("ошибка создания записи о версии: %w", err)
	}

	log.Printf("[VersionService] Версия '%s' (ID: %d) проекта %d загружена пользователем %d",
		created.VersionNumber, created.ID, projectID, actorID)
	return created, nil
}

// createWithRetry повторяет создание один раз, если транзакция проиграла
// гонку за флаг последней версии.
func (s *versionService) createWithRetry(
	ctx context.Context,
	version *models.ProjectVersion,
	latestRequested *bool,
) (*models.ProjectVersion, error) {
	created, err := s.versionRepo.CreateVersion(ctx, version, latestRequested)
	if errors.Is(err, repository.ErrLatestConflict) {
		log.Printf("[VersionService] Конфликт флага последней версии в проекте %d, повторная попытка",
			version.ProjectID)
		created, err = s.versionRepo.CreateVersion(ctx, version, latestRequested)
	}
	return created, err
}

// List возвращает страницу версий проекта и общее их количество.
func (s *versionService) List(
	ctx context.Context,
	projectID, actorID int64,
	params repository.ListVersionsParams,
) ([]models.ProjectVersion, int64, error) {
	_, level, err := resolveProjectAccess(ctx, s.projectRepo, projectID, actorID)
	if err != nil {
		return nil, 0, err
	}
	if !level.CanView() {
		return nil, 0, ErrPermissionDenied
	}

	return s.versionRepo.ListVersions(ctx, projectID, params)
}

// Get возвращает версию проекта по ID.
func (s *versionService) Get(
	ctx context.Context,
	projectID, actorID, versionID int64,
) (*models.ProjectVersion, error) {
	_, level, err := resolveProjectAccess(ctx, s.projectRepo, projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !level.CanView() {
		return nil, ErrPermissionDenied
	}

	version, err := s.versionRepo.GetVersion(ctx, projectID, versionID)
	if err != nil {
		if errors.Is(err, repository.ErrVersionNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("ошибка получения версии: %w", err)
	}
	return version, nil
}

// GetLatest возвращает текущую последнюю версию проекта.
// Если ни одна версия не помечена последней — ErrVersionNotFound.
func (s *versionService) GetLatest(
	ctx context.Context,
	projectID, actorID int64,
) (*models.ProjectVersion, error) {
	_, level, err := resolveProjectAccess(ctx, s.projectRepo, projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !level.CanView() {
		return nil, ErrPermissionDenied
	}

	version, err := s.versionRepo.GetLatestVersion(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrVersionNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("ошибка получения последней версии: %w", err)
	}
	return version, nil
}

// SetLatest делает указанную версию последней. Доступно только владельцу проекта.
func (s *versionService) SetLatest(
	ctx context.Context,
	projectID, actorID, versionID int64,
) (*models.ProjectVersion, error) {
	_, level, err := resolveProjectAccess(ctx, s.projectRepo, projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !level.IsOwner() {
		log.Printf("[VersionService] Пользователь %d не владелец проекта %d, set-latest запрещен",
			actorID, projectID)
		return nil, ErrPermissionDenied
	}

	version, err := s.versionRepo.SetLatestVersion(ctx, projectID, versionID)
	if errors.Is(err, repository.ErrLatestConflict) {
		version, err = s.versionRepo.SetLatestVersion(ctx, projectID, versionID)
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrVersionNotFound):
			return nil, ErrVersionNotFound
		case errors.Is(err, repository.ErrProjectNotFound):
			return nil, ErrProjectNotFound
		case errors.Is(err, repository.ErrLatestConflict):
			return nil, ErrLatestConflict
		default:
			return nil, fmt.Errorf("ошибка установки последней версии: %w", err)
		}
	}

	log.Printf("[VersionService] Версия %d назначена последней в проекте %d пользователем %d",
		versionID, projectID, actorID)
	return version, nil
}

// Download отдает поток файла версии.
// Доступ: владелец, соавтор или любой пользователь для публичного проекта.
func (s *versionService) Download(
	ctx context.Context,
	projectID, actorID, versionID int64,
) (*DownloadResult, error) {
	project, level, err := resolveProjectAccess(ctx, s.projectRepo, projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !level.CanView() {
		log.Printf("[VersionService] Пользователю %d запрещено скачивание из проекта %d", actorID, projectID)
		return nil, ErrPermissionDenied
	}

	version, err := s.versionRepo.GetVersion(ctx, projectID, versionID)
	if err != nil {
		if errors.Is(err, repository.ErrVersionNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("ошибка получения версии: %w", err)
	}

	reader, err := s.fileStorage.DownloadFile(ctx, version.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			// Запись есть, файла в хранилище нет — для клиента версия не найдена
			log.Printf("[VersionService] Файл версии %d проекта %d отсутствует в хранилище ('%s')",
				versionID, projectID, version.ObjectKey)
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("ошибка чтения файла версии из хранилища: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(version.ObjectKey))
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &DownloadResult{
		Reader:      reader,
		FileName:    fmt.Sprintf("%s_v%s%s", project.Title, version.VersionNumber, ext),
		ContentType: contentType,
		Size:        version.FileSize,
	}, nil
}

// Update изменяет описание и/или флаг is_latest версии. Только владелец.
func (s *versionService) Update(
	ctx context.Context,
	projectID, actorID, versionID int64,
	upd models.VersionUpdate,
) (*models.ProjectVersion, error) {
	_, level, err := resolveProjectAccess(ctx, s.projectRepo, projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !level.IsOwner() {
		return nil, ErrPermissionDenied
	}

	if upd.Description == nil && upd.IsLatest == nil {
		// Пустой PATCH: возвращаем текущее состояние без записи
		version, getErr := s.versionRepo.GetVersion(ctx, projectID, versionID)
		if getErr != nil {
			if errors.Is(getErr, repository.ErrVersionNotFound) {
				return nil, ErrVersionNotFound
			}
			return nil, fmt.Errorf("ошибка получения версии: %w", getErr)
		}
		return version, nil
	}

	version, err := s.versionRepo.UpdateVersion(ctx, projectID, versionID, upd)
	if errors.Is(err, repository.ErrLatestConflict) {
		version, err = s.versionRepo.UpdateVersion(ctx, projectID, versionID, upd)
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrVersionNotFound):
			return nil, ErrVersionNotFound
		case errors.Is(err, repository.ErrProjectNotFound):
			return nil, ErrProjectNotFound
		case errors.Is(err, repository.ErrLatestConflict):
			return nil, ErrLatestConflict
		default:
			return nil, fmt.Errorf("ошибка обновления версии: %w", err)
		}
	}

	log.Printf("[VersionService] Версия %d проекта %d обновлена пользователем %d", versionID, projectID, actorID)
	return version, nil
}

// Delete удаляет версию и ее файл. Только владелец.
// Политика: запись в БД первична — ошибка удаления блоба логируется,
// но не отменяет удаление записи. Другая версия на место последней
// не продвигается.
func (s *versionService) Delete(ctx context.Context, projectID, actorID, versionID int64) error {
	_, level, err := resolveProjectAccess(ctx, s.projectRepo, projectID, actorID)
	if err != nil {
		return err
	}
	if !level.IsOwner() {
		return ErrPermissionDenied
	}

	version, err := s.versionRepo.DeleteVersion(ctx, projectID, versionID)
	if err != nil {
		if errors.Is(err, repository.ErrVersionNotFound) {
			return ErrVersionNotFound
		}
		return fmt.Errorf("ошибка удаления версии: %w", err)
	}

	if err = s.fileStorage.DeleteFile(ctx, version.ObjectKey); err != nil {
		log.Printf("[VersionService] Не удалось удалить файл '%s' удаленной версии %d: %v",
			version.ObjectKey, versionID, err)
	}

	log.Printf("[VersionService] Версия %d проекта %d удалена пользователем %d", versionID, projectID, actorID)
	return nil
}

// FileURL возвращает временную ссылку на файл версии.
// При ошибке генерации возвращает пустую строку (в ответе будет null).
func (s *versionService) FileURL(ctx context.Context, objectKey string) string {
	url, err := s.fileStorage.PresignedURL(ctx, objectKey, presignExpiry)
	if err != nil {
		return ""
	}
	return url
}

// fileTypeFromExt выводит file_type из расширения имени файла.
func fileTypeFromExt(ext string) string {
	if ext == "" {
		return "unknown"
	}
	return strings.TrimPrefix(ext, ".")
}
