package adoption

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/pawhaven/pet-adoption-api/internal/middleware"
	"github.com/pawhaven/pet-adoption-api/internal/models"
)

const defaultPageSize = 8

// Handler holds the adoption workflow HTTP handlers.
type Handler struct {
	svc *Service
	log zerolog.Logger
}

func NewHandler(svc *Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type pageResponse struct {
	Data  interface{} `json:"data"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
	Total int64       `json:"total"`
	Pages int64       `json:"pages"`
}

// Apply submits an adoption application for the pet in the URL.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	app, err := h.svc.Apply(r.Context(), chi.URLParam(r, "petId"), userID)
	switch {
	case errors.Is(err, ErrPetNotFound):
		writeError(w, http.StatusNotFound, "Pet not found")
		return
	case errors.Is(err, ErrPetUnavailable):
		writeError(w, http.StatusBadRequest, "Pet not available")
		return
	case errors.Is(err, ErrAlreadyApplied):
		writeError(w, http.StatusConflict, "Already applied")
		return
	case err != nil:
		h.log.Error().Err(err).Msg("apply failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Adoption application submitted successfully",
		"data":    app,
	})
}

// ListMine returns the caller's applications, paginated.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	q := r.URL.Query()
	page := models.ParsePage(q.Get("page"), q.Get("limit"), defaultPageSize)
	apps, total, err := h.svc.ListMine(r.Context(), userID,
		models.ApplicationStatus(q.Get("status")), q.Get("search"), page)
	if err != nil {
		h.log.Error().Err(err).Msg("list my applications failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, pageResponse{
		Data:  apps,
		Page:  page.Page,
		Limit: page.Limit,
		Total: total,
		Pages: models.Pages(total, page.Limit),
	})
}

// ListAll returns every application for the admin review queue, paginated.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := models.ParsePage(q.Get("page"), q.Get("limit"), defaultPageSize)
	apps, total, err := h.svc.ListAll(r.Context(),
		models.ApplicationStatus(q.Get("status")), q.Get("search"), page)
	if err != nil {
		h.log.Error().Err(err).Msg("list all applications failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, pageResponse{
		Data:  apps,
		Page:  page.Page,
		Limit: page.Limit,
		Total: total,
		Pages: models.Pages(total, page.Limit),
	})
}

// UpdateStatus records the admin's decision on an application.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.ApplicationStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	app, err := h.svc.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	switch {
	case errors.Is(err, ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "status must be pending, approved, or rejected")
		return
	case errors.Is(err, ErrApplicationNotFound):
		writeError(w, http.StatusNotFound, "Application not found")
		return
	case err != nil:
		h.log.Error().Err(err).Msg("update application status failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Adoption status updated successfully",
		"data":    app,
	})
}
