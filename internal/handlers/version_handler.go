package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/opencodehub/opencodehub/internal/middleware"
	"github.com/opencodehub/opencodehub/internal/models"
	"github.com/opencodehub/opencodehub/internal/repository"
	"github.com/opencodehub/opencodehub/internal/services"
)

// Лимит памяти при разборе multipart-форм; остальное уходит во временные файлы.
const multipartMemoryLimit = 32 << 20

// Тексты 403 для эндпоинтов версий.
const (
	uploadForbiddenMessage    = "You don't have permission to upload versions to this project"
	setLatestForbiddenMessage = "Only the project owner can set the latest version"
	downloadForbiddenMessage  = "You don't have permission to download this version"
	viewForbiddenMessage      = "You don't have permission to view this project's versions"
	modifyForbiddenMessage    = "Only the project owner can modify versions"
)

// Допустимые значения параметра sort.
var validVersionSorts = map[string]struct{}{
	"created_at": {}, "-created_at": {}, "version_number": {}, "-version_number": {},
}

// VersionHandler обрабатывает HTTP-запросы к версиям проектов.
type VersionHandler struct {
	service services.VersionService
}

// NewVersionHandler создает новый экземпляр VersionHandler.
func NewVersionHandler(s services.VersionService) *VersionHandler {
	return &VersionHandler{service: s}
}

// actorFromContext извлекает ID аутентифицированного пользователя.
// Отсутствие ID в контексте — ошибка конфигурации маршрутов.
func actorFromContext(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[Handlers] Не удалось получить userID из контекста для %s %s", r.Method, r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
	return userID, ok
}

// urlParamID разбирает числовой URL-параметр; нечисловой ID — 404.
func urlParamID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeNotFound(w)
		return 0, false
	}
	return id, true
}

// versionResponse собирает представление версии со ссылкой на файл.
func (h *VersionHandler) versionResponse(r *http.Request, v *models.ProjectVersion) models.VersionResponse {
	return models.NewVersionResponse(v, h.service.FileURL(r.Context(), v.ObjectKey))
}

// Upload обрабатывает POST запрос на загрузку новой версии (multipart-форма:
// version_number, description?, version_file, is_latest?).
func (h *VersionHandler) Upload(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	projectID, ok := urlParamID(w, r, "projectID")
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		log.Printf("[VersionHandler:Upload] Ошибка разбора multipart-формы: %v", err)
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("version_file")
	if err != nil {
		writeValidationError(w, map[string][]string{
			"version_file": {"version file is required"},
		})
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Printf("[VersionHandler:Upload] Ошибка закрытия файла формы: %v", closeErr)
		}
	}()

	var isLatest *bool
	if raw := r.FormValue("is_latest"); raw != "" {
		parsed, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			writeValidationError(w, map[string][]string{
				"is_latest": {"is_latest must be a boolean"},
			})
			return
		}
		isLatest = &parsed
	}

	log.Printf("[VersionHandler:Upload] Пользователь %d загружает версию '%s' в проект %d (размер %d)",
		actorID, r.FormValue("version_number"), projectID, header.Size)

	version, err := h.service.Upload(r.Context(), projectID, actorID, services.UploadInput{
		VersionNumber: r.FormValue("version_number"),
		Description:   r.FormValue("description"),
		FileName:      header.Filename,
		File:          file,
		Size:          header.Size,
		IsLatest:      isLatest,
	})
	if err != nil {
		writeServiceError(w, err, uploadForbiddenMessage)
		return
	}

	writeJSON(w, http.StatusCreated, h.versionResponse(r, version))
}

// List обрабатывает GET запрос на список версий проекта.
// Query-параметры: page, page_size (≤100), sort.
func (h *VersionHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	projectID, ok := urlParamID(w, r, "projectID")
	if !ok {
		return
	}

	page, pageSize := parsePageQuery(r)
	sort := r.URL.Query().Get("sort")
	if _, valid := validVersionSorts[sort]; !valid {
		sort = "-created_at"
	}

	versions, total, err := h.service.List(r.Context(), projectID, actorID, repository.ListVersionsParams{
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
		Sort:   sort,
	})
	if err != nil {
		writeServiceError(w, err, viewForbiddenMessage)
		return
	}

	results := make([]models.VersionResponse, 0, len(versions))
	for i := range versions {
		results = append(results, h.versionResponse(r, &versions[i]))
	}

	writeJSON(w, http.StatusOK, newPaginatedResponse(r, page, pageSize, total, results))
}

// GetLatest обрабатывает GET запрос на текущую последнюю версию проекта.
func (h *VersionHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	projectID, ok := urlParamID(w, r, "projectID")
	if !ok {
		return
	}

	version, err := h.service.GetLatest(r.Context(), projectID, actorID)
	if err != nil {
		writeServiceError(w, err, viewForbiddenMessage)
		return
	}

	writeJSON(w, http.StatusOK, h.versionResponse(r, version))
}

// Get обрабатывает GET запрос на детали версии.
func (h *VersionHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	projectID, ok := urlParamID(w, r, "projectID")
	if !ok {
		return
	}
	versionID, ok := urlParamID(w, r, "versionID")
	if !ok {
		return
	}

	version, err := h.service.Get(r.Context(), projectID, actorID, versionID)
	if err != nil {
		writeServiceError(w, err, viewForbiddenMessage)
		return
	}

	writeJSON(w, http.StatusOK, h.versionResponse(r, version))
}

// SetLatest обрабатывает POST запрос на назначение версии последней. Только владелец.
func (h *VersionHandler) SetLatest(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	projectID, ok := urlParamID(w, r, "projectID")
	if !ok {
		return
	}
	versionID, ok := urlParamID(w, r, "versionID")
	if !ok {
		return
	}

	version, err := h.service.SetLatest(r.Context(), projectID, actorID, versionID)
	if err != nil {
		writeServiceError(w, err, setLatestForbiddenMessage)
		return
	}

	writeJSON(w, http.StatusOK, h.versionResponse(r, version))
}

// Download обрабатывает GET запрос на скачивание файла версии.
func (h *VersionHandler) Download(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	projectID, ok := urlParamID(w, r, "projectID")
	if !ok {
		return
	}
	versionID, ok := urlParamID(w, r, "versionID")
	if !ok {
		return
	}

	result, err := h.service.Download(r.Context(), projectID, actorID, versionID)
	if err != nil {
		writeServiceError(w, err, downloadForbiddenMessage)
		return
	}
	defer func() {
		if closeErr := result.Reader.Close(); closeErr != nil {
			log.Printf("[VersionHandler:Download] Ошибка закрытия потока файла: %v", closeErr)
		}
	}()

	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.FileName))
	w.Header().Set("Content-Type", result.ContentType)
	if result.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(result.Size, 10))
	}

	if _, err = io.Copy(w, result.Reader); err != nil {
		log.Printf("[VersionHandler:Download] Ошибка копирования файла версии %d в ответ: %v", versionID, err)
		return
	}

	log.Printf("[VersionHandler:Download] Файл версии %d проекта %d отправлен пользователю %d",
		versionID, projectID, actorID)
}

// Update обрабатывает PATCH запрос на изменение версии.
// Изменяемы только description и is_latest; попытка передать другие поля — 400.
func (h *VersionHandler) Update(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	projectID, ok := urlParamID(w, r, "projectID")
	if !ok {
		return
	}
	versionID, ok := urlParamID(w, r, "versionID")
	if !ok {
		return
	}

	var upd models.VersionUpdate
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&upd); err != nil {
		log.Printf("[VersionHandler:Update] Ошибка декодирования PATCH-запроса: %v", err)
		writeError(w, http.StatusBadRequest, "request contains unknown or immutable fields")
		return
	}

	version, err := h.service.Update(r.Context(), projectID, actorID, versionID, upd)
	if err != nil {
		writeServiceError(w, err, modifyForbiddenMessage)
		return
	}

	writeJSON(w, http.StatusOK, h.versionResponse(r, version))
}

// Delete обрабатывает DELETE запрос на удаление версии. Только владелец.
func (h *VersionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	projectID, ok := urlParamID(w, r, "projectID")
	if !ok {
		return
	}
	versionID, ok := urlParamID(w, r, "versionID")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), projectID, actorID, versionID); err != nil {
		writeServiceError(w, err, modifyForbiddenMessage)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
