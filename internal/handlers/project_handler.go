package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/opencodehub/opencodehub/internal/models"
	"github.com/opencodehub/opencodehub/internal/services"
)

// Тексты 403 для эндпоинтов проектов.
const (
	projectViewForbiddenMessage  = "You don't have permission to access this project"
	projectShareForbiddenMessage = "Only the project owner can manage sharing"
)

// ProjectHandler обрабатывает HTTP-запросы к проектам.
type ProjectHandler struct {
	service services.ProjectService
}

// NewProjectHandler создает новый экземпляр ProjectHandler.
func NewProjectHandler(s services.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: s}
}

// Create обрабатывает POST запрос на создание проекта.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(w, r)
	if !ok {
		return
	}

	var req models.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ProjectHandler:Create] Ошибка декодирования запроса: %v", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	project, err := h.service.Create(r.Context(), actorID, req)
	if err != nil {
		writeServiceError(w, err, projectViewForbiddenMessage)
		return
	}

	writeJSON(w, http.StatusCreated, models.NewProjectResponse(project, nil))
}

// List обрабатывает GET запрос на список видимых пользователю проектов.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(w, r)
	if !ok {
		return
	}

	page, pageSize := parsePageQuery(r)
	projects, total, err := h.service.List(r.Context(), actorID, pageSize, (page-1)*pageSize)
	if err != nil {
		writeServiceError(w, err, projectViewForbiddenMessage)
		return
	}

	results := make([]models.ProjectResponse, 0, len(projects))
	for i := range projects {
		results = append(results, models.NewProjectResponse(&projects[i], nil))
	}

	writeJSON(w, http.StatusOK, newPaginatedResponse(r, page, pageSize, total, results))
}

// Get обрабатывает GET запрос на детали проекта, включая список соавторов.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	projectID, ok := urlParamID(w, r, "projectID")
	if !ok {
		return
	}

	project, sharedWith, err := h.service.Get(r.Context(), projectID, actorID)
	if err != nil {
		writeServiceError(w, err, projectViewForbiddenMessage)
		return
	}

	writeJSON(w, http.StatusOK, models.NewProjectResponse(project, sharedWith))
}

// Share обрабатывает POST запрос на предоставление доступа к проекту.
func (h *ProjectHandler) Share(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	projectID, ok := urlParamID(w, r, "projectID")
	if !ok {
		return
	}

	var req models.ShareProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ProjectHandler:Share] Ошибка декодирования запроса: %v", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		writeValidationError(w, map[string][]string{
			"username": {"username is required"},
		})
		return
	}

	if err := h.service.Share(r.Context(), projectID, actorID, req.Username); err != nil {
		writeServiceError(w, err, projectShareForbiddenMessage)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unshare обрабатывает DELETE запрос на отзыв доступа к проекту.
func (h *ProjectHandler) Unshare(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	projectID, ok := urlParamID(w, r, "projectID")
	if !ok {
		return
	}
	userID, ok := urlParamID(w, r, "userID")
	if !ok {
		return
	}

	if err := h.service.Unshare(r.Context(), projectID, actorID, userID); err != nil {
		writeServiceError(w, err, projectShareForbiddenMessage)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
