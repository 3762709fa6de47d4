package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"chatbox/internal/chat"
	"chatbox/internal/domain"

	"go.uber.org/zap"
)

type Handler struct {
	svc    *chat.Service
	logger *zap.Logger
}

func NewHandler(svc *chat.Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register wires the JSON API onto the mux. Static files are mounted
// separately by the caller.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/models", h.listModels)
	mux.HandleFunc("POST /api/models", h.addModel)
	mux.HandleFunc("PUT /api/models/{id}", h.renameModel)
	mux.HandleFunc("DELETE /api/models/{id}", h.deleteModel)

	mux.HandleFunc("GET /api/chats", h.listChats)
	mux.HandleFunc("GET /api/chats/archived/list", h.listArchivedChats)
	mux.HandleFunc("POST /api/chats", h.createChat)
	mux.HandleFunc("GET /api/chats/{id}", h.getChat)
	mux.HandleFunc("PUT /api/chats/{id}/title", h.renameChat)
	mux.HandleFunc("PUT /api/chats/{id}/archive", h.archiveChat)
	mux.HandleFunc("PUT /api/chats/{id}/restore", h.restoreChat)
	mux.HandleFunc("DELETE /api/chats/{id}", h.deleteChat)
	mux.HandleFunc("POST /api/chats/{id}/messages", h.sendMessage)
}

type nameRequest struct {
	Name string `json:"name"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type sendRequest struct {
	Content   string `json:"content"`
	ModelName string `json:"model_name"`
}

func (h *Handler) listModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.svc.ListModels(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"models": models})
}

func (h *Handler) addModel(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !h.decode(w, r, &req) {
		return
	}
	model, err := h.svc.AddModel(r.Context(), req.Name)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusCreated, map[string]any{"model": model})
}

func (h *Handler) renameModel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req nameRequest
	if !h.decode(w, r, &req) {
		return
	}
	model, err := h.svc.RenameModel(r.Context(), id, req.Name)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"model": model})
}

func (h *Handler) deleteModel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteModel(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) listChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.svc.ListChats(r.Context(), false)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"chats": chats})
}

func (h *Handler) listArchivedChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.svc.ListChats(r.Context(), true)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"chats": chats})
}

func (h *Handler) createChat(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.CreateChat(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusCreated, map[string]any{"chat": c})
}

func (h *Handler) getChat(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	c, messages, err := h.svc.GetChat(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"chat": c, "messages": messages})
}

func (h *Handler) renameChat(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req titleRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.svc.RenameChat(r.Context(), id, req.Title)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"chat": c})
}

func (h *Handler) archiveChat(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.ArchiveChat(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"chat": c, "archived": true})
}

func (h *Handler) restoreChat(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.RestoreChat(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"chat": c, "archived": false})
}

func (h *Handler) deleteChat(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteChat(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req sendRequest
	if !h.decode(w, r, &req) {
		return
	}
	_, modelMsg, updated, err := h.svc.SendMessage(r.Context(), id, req.Content, req.ModelName)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"message": modelMsg, "chat": updated})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.respond(w, http.StatusBadRequest, map[string]any{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respond(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// respondError maps the error taxonomy to HTTP statuses. The message is
// surfaced verbatim to the UI.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *domain.ValidationError
		providerErr   *domain.ProviderError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrChatBusy):
		status = http.StatusConflict
	case errors.As(err, &providerErr):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}

	h.respond(w, status, map[string]any{"error": err.Error()})
}
