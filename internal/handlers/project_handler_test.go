package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opencodehub/opencodehub/internal/handlers"
	"github.com/opencodehub/opencodehub/internal/middleware"
	"github.com/opencodehub/opencodehub/internal/models"
	"github.com/opencodehub/opencodehub/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProjectService — мок для services.ProjectService.
type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) Create(
	ctx context.Context,
	actorID int64,
	req models.CreateProjectRequest,
) (*models.Project, error) {
	args := m.Called(ctx, actorID, req)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.Project), args.Error(1)
}

func (m *MockProjectService) List(
	ctx context.Context,
	actorID int64,
	limit, offset int,
) ([]models.Project, int64, error) {
	args := m.Called(ctx, actorID, limit, offset)
	ret := args.Get(0)
	if ret == nil {
		//nolint:errcheck // Ошибки кастования в моках приемлемы
		return nil, args.Get(1).(int64), args.Error(2)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.Project), args.Get(1).(int64), args.Error(2)
}

func (m *MockProjectService) Get(
	ctx context.Context,
	projectID, actorID int64,
) (*models.Project, []models.PublicUser, error) {
	args := m.Called(ctx, projectID, actorID)
	retProject := args.Get(0)
	retShared := args.Get(1)

	var project *models.Project
	if retProject != nil {
		//nolint:errcheck // Ошибки кастования в моках приемлемы
		project = retProject.(*models.Project)
	}
	var shared []models.PublicUser
	if retShared != nil {
		//nolint:errcheck // Ошибки кастования в моках приемлемы
		shared = retShared.([]models.PublicUser)
	}
	return project, shared, args.Error(2)
}

func (m *MockProjectService) Share(ctx context.Context, projectID, actorID int64, username string) error {
	args := m.Called(ctx, projectID, actorID, username)
	return args.Error(0)
}

func (m *MockProjectService) Unshare(ctx context.Context, projectID, actorID, userID int64) error {
	args := m.Called(ctx, projectID, actorID, userID)
	return args.Error(0)
}

// newProjectRouter собирает роутер проектов с подстановкой ID пользователя в контекст.
func newProjectRouter(svc services.ProjectService, actorID int64) *chi.Mux {
	h := handlers.NewProjectHandler(svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), middleware.UserIDKey, actorID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/api/projects", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{projectID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Post("/share", h.Share)
			r.Delete("/share/{userID}", h.Unshare)
		})
	})
	return r
}

func testProject(id int64) *models.Project {
	return &models.Project{
		ID:            id,
		Title:         "Demo",
		OwnerID:       1,
		OwnerUsername: "alice",
		IsPublic:      true,
		ShareLink:     uuid.New(),
	}
}

func TestCreateProjectHandler(t *testing.T) {
	t.Run("Успешное создание", func(t *testing.T) {
		svc := new(MockProjectService)
		router := newProjectRouter(svc, 1)

		svc.On("Create", mock.Anything, int64(1),
			models.CreateProjectRequest{Title: "Demo"}).Return(testProject(3), nil)

		req := httptest.NewRequest(http.MethodPost, "/api/projects/",
			strings.NewReader(`{"title": "Demo"}`))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp models.ProjectResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(3), resp.ID)
		assert.Equal(t, "alice", resp.Owner.Username)
		// Список соавторов нового проекта пуст, не null
		assert.NotNil(t, resp.SharedWith)
		assert.Empty(t, resp.SharedWith)
	})

	t.Run("Пустой заголовок", func(t *testing.T) {
		svc := new(MockProjectService)
		router := newProjectRouter(svc, 1)

		svc.On("Create", mock.Anything, int64(1), mock.Anything).
			Return(nil, &services.ValidationError{FieldErrors: map[string][]string{
				"title": {"title is required"},
			}})

		req := httptest.NewRequest(http.MethodPost, "/api/projects/",
			strings.NewReader(`{"title": ""}`))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "title is required")
	})
}

func TestListProjectsHandler(t *testing.T) {
	svc := new(MockProjectService)
	router := newProjectRouter(svc, 1)

	svc.On("List", mock.Anything, int64(1), 10, 0).
		Return([]models.Project{*testProject(2), *testProject(1)}, int64(2), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/projects/", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count   int64                    `json:"count"`
		Next    *string                  `json:"next"`
		Results []models.ProjectResponse `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Count)
	assert.Nil(t, resp.Next)
	require.Len(t, resp.Results, 2)
}

func TestGetProjectHandler(t *testing.T) {
	t.Run("Проект с соавторами", func(t *testing.T) {
		svc := new(MockProjectService)
		router := newProjectRouter(svc, 1)

		svc.On("Get", mock.Anything, int64(3), int64(1)).
			Return(testProject(3), []models.PublicUser{{ID: 2, Username: "bob"}}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/projects/3", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp models.ProjectResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.SharedWith, 1)
		assert.Equal(t, "bob", resp.SharedWith[0].Username)
	})

	t.Run("Нет доступа", func(t *testing.T) {
		svc := new(MockProjectService)
		router := newProjectRouter(svc, 3)

		svc.On("Get", mock.Anything, int64(3), int64(3)).
			Return(nil, nil, services.ErrPermissionDenied)

		req := httptest.NewRequest(http.MethodGet, "/api/projects/3", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "You don't have permission to access this project")
	})

	t.Run("Проект не найден", func(t *testing.T) {
		svc := new(MockProjectService)
		router := newProjectRouter(svc, 1)

		svc.On("Get", mock.Anything, int64(99), int64(1)).
			Return(nil, nil, services.ErrProjectNotFound)

		req := httptest.NewRequest(http.MethodGet, "/api/projects/99", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"detail": "Not found."}`, rec.Body.String())
	})
}

func TestShareHandler(t *testing.T) {
	t.Run("Успешный шаринг", func(t *testing.T) {
		svc := new(MockProjectService)
		router := newProjectRouter(svc, 1)

		svc.On("Share", mock.Anything, int64(3), int64(1), "bob").Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/api/projects/3/share",
			strings.NewReader(`{"username": "bob"}`))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("Не владелец", func(t *testing.T) {
		svc := new(MockProjectService)
		router := newProjectRouter(svc, 2)

		svc.On("Share", mock.Anything, int64(3), int64(2), "bob").
			Return(services.ErrPermissionDenied)

		req := httptest.NewRequest(http.MethodPost, "/api/projects/3/share",
			strings.NewReader(`{"username": "bob"}`))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "Only the project owner can manage sharing")
	})
}

func TestUnshareHandler(t *testing.T) {
	t.Run("Доступ отозван", func(t *testing.T) {
		svc := new(MockProjectService)
		router := newProjectRouter(svc, 1)

		svc.On("Unshare", mock.Anything, int64(3), int64(1), int64(2)).Return(nil)

		req := httptest.NewRequest(http.MethodDelete, "/api/projects/3/share/2", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("Доступ не был предоставлен", func(t *testing.T) {
		svc := new(MockProjectService)
		router := newProjectRouter(svc, 1)

		svc.On("Unshare", mock.Anything, int64(3), int64(1), int64(9)).
			Return(services.ErrShareNotFound)

		req := httptest.NewRequest(http.MethodDelete, "/api/projects/3/share/9", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
