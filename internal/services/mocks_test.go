package services_test

import (
	"context"
	"io"
	"time"

	"github.com/opencodehub/opencodehub/internal/models"
	"github.com/opencodehub/opencodehub/internal/repository"
	"github.com/stretchr/testify/mock"
)

// --- Моки слоев, от которых зависят сервисы ---

// MockUserRepository — мок для UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	args := m.Called(ctx, user)
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.User), args.Error(1)
}

// MockProjectRepository — мок для ProjectRepository.
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) CreateProject(
	ctx context.Context,
	project *models.Project,
) (*models.Project, error) {
	args := m.Called(ctx, project)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.Project), args.Error(1)
}

func (m *MockProjectRepository) GetProjectByID(ctx context.Context, projectID int64) (*models.Project, error) {
	args := m.Called(ctx, projectID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.Project), args.Error(1)
}

func (m *MockProjectRepository) ListVisibleProjects(
	ctx context.Context,
	userID int64,
	limit, offset int,
) ([]models.Project, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	ret := args.Get(0)
	if ret == nil {
		//nolint:errcheck // Ошибки кастования в моках приемлемы
		return nil, args.Get(1).(int64), args.Error(2)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.Project), args.Get(1).(int64), args.Error(2)
}

func (m *MockProjectRepository) ListSharedUsers(
	ctx context.Context,
	projectID int64,
) ([]models.PublicUser, error) {
	args := m.Called(ctx, projectID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.PublicUser), args.Error(1)
}

func (m *MockProjectRepository) IsSharedWith(ctx context.Context, projectID, userID int64) (bool, error) {
	args := m.Called(ctx, projectID, userID)
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return args.Get(0).(bool), args.Error(1)
}

func (m *MockProjectRepository) ShareProject(ctx context.Context, projectID, userID int64) error {
	args := m.Called(ctx, projectID, userID)
	return args.Error(0)
}

func (m *MockProjectRepository) UnshareProject(ctx context.Context, projectID, userID int64) error {
	args := m.Called(ctx, projectID, userID)
	return args.Error(0)
}

// MockVersionRepository — мок для VersionRepository.
type MockVersionRepository struct {
	mock.Mock
}

func (m *MockVersionRepository) CreateVersion(
	ctx context.Context,
	version *models.ProjectVersion,
	latestRequested *bool,
) (*models.ProjectVersion, error) {
	args := m.Called(ctx, version, latestRequested)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.ProjectVersion), args.Error(1)
}

func (m *MockVersionRepository) ListVersions(
	ctx context.Context,
	projectID int64,
	params repository.ListVersionsParams,
) ([]models.ProjectVersion, int64, error) {
	args := m.Called(ctx, projectID, params)
	ret := args.Get(0)
	if ret == nil {
		//nolint:errcheck // Ошибки кастования в моках приемлемы
		return nil, args.Get(1).(int64), args.Error(2)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.ProjectVersion), args.Get(1).(int64), args.Error(2)
}

func (m *MockVersionRepository) GetVersion(
	ctx context.Context,
	projectID, versionID int64,
) (*models.ProjectVersion, error) {
	args := m.Called(ctx, projectID, versionID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.ProjectVersion), args.Error(1)
}

func (m *MockVersionRepository) GetLatestVersion(
	ctx context.Context,
	projectID int64,
) (*models.ProjectVersion, error) {
	args := m.Called(ctx, projectID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.ProjectVersion), args.Error(1)
}

func (m *MockVersionRepository) UpdateVersion(
	ctx context.Context,
	projectID, versionID int64,
	upd models.VersionUpdate,
) (*models.ProjectVersion, error) {
	args := m.Called(ctx, projectID, versionID, upd)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.ProjectVersion), args.Error(1)
}

func (m *MockVersionRepository) DeleteVersion(
	ctx context.Context,
	projectID, versionID int64,
) (*models.ProjectVersion, error) {
	args := m.Called(ctx, projectID, versionID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.ProjectVersion), args.Error(1)
}

func (m *MockVersionRepository) SetLatestVersion(
	ctx context.Context,
	projectID, versionID int64,
) (*models.ProjectVersion, error) {
	args := m.Called(ctx, projectID, versionID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.ProjectVersion), args.Error(1)
}

func (m *MockVersionRepository) ClearLatest(ctx context.Context, projectID int64) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

func (m *MockVersionRepository) VersionNumberExists(
	ctx context.Context,
	projectID int64,
	versionNumber string,
) (bool, error) {
	args := m.Called(ctx, projectID, versionNumber)
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return args.Get(0).(bool), args.Error(1)
}

// MockCommentRepository — мок для CommentRepository.
type MockCommentRepository struct {
	mock.Mock
}

func (m *MockCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	args := m.Called(ctx, comment)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.Comment), args.Error(1)
}

func (m *MockCommentRepository) ListComments(ctx context.Context, projectID int64) ([]models.Comment, error) {
	args := m.Called(ctx, projectID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.Comment), args.Error(1)
}

// MockFileStorage — мок для FileStorage.
type MockFileStorage struct {
	mock.Mock
}

func (m *MockFileStorage) UploadFile(
	ctx context.Context,
	objectKey string,
	reader io.Reader,
	size int64,
	contentType string,
) error {
	args := m.Called(ctx, objectKey, reader, size, contentType)
	return args.Error(0)
}

func (m *MockFileStorage) DownloadFile(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	args := m.Called(ctx, objectKey)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(io.ReadCloser), args.Error(1)
}

func (m *MockFileStorage) DeleteFile(ctx context.Context, objectKey string) error {
	args := m.Called(ctx, objectKey)
	return args.Error(0)
}

func (m *MockFileStorage) PresignedURL(
	ctx context.Context,
	objectKey string,
	expiry time.Duration,
) (string, error) {
	args := m.Called(ctx, objectKey, expiry)
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return args.Get(0).(string), args.Error(1)
}
