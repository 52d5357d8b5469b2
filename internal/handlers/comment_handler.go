package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/opencodehub/opencodehub/internal/models"
	"github.com/opencodehub/opencodehub/internal/services"
)

const commentForbiddenMessage = "You don't have permission to comment on this project"

// CommentHandler обрабатывает HTTP-запросы к комментариям проектов.
type CommentHandler struct {
	service services.CommentService
}

// NewCommentHandler создает новый экземпляр CommentHandler.
func NewCommentHandler(s services.CommentService) *CommentHandler {
	return &CommentHandler{service: s}
}

// List обрабатывает GET запрос на комментарии проекта.
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	projectID, ok := urlParamID(w, r, "projectID")
	if !ok {
		return
	}

	comments, err := h.service.List(r.Context(), projectID, actorID)
	if err != nil {
		writeServiceError(w, err, commentForbiddenMessage)
		return
	}

	results := make([]models.CommentResponse, 0, len(comments))
	for i := range comments {
		results = append(results, models.NewCommentResponse(&comments[i]))
	}

	writeJSON(w, http.StatusOK, results)
}

// Create обрабатывает POST запрос на добавление комментария.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	projectID, ok := urlParamID(w, r, "projectID")
	if !ok {
		return
	}

	var req models.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[CommentHandler:Create] Ошибка декодирования запроса: %v", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	comment, err := h.service.Create(r.Context(), projectID, actorID, req.Content)
	if err != nil {
		writeServiceError(w, err, commentForbiddenMessage)
		return
	}

	writeJSON(w, http.StatusCreated, models.NewCommentResponse(comment))
}
