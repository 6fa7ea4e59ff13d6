package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pawhaven/pet-adoption-api/internal/models"
	"github.com/pawhaven/pet-adoption-api/internal/store"
)

const (
	maxImageBytes   = 5 << 20 // 5MB upload cap
	uploadPrefix    = "/uploads/"
	defaultPageSize = 6
)

var allowedImageExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// PetStore defines the interface for pet persistence.
type PetStore interface {
	Insert(ctx context.Context, pet *models.Pet) error
	List(ctx context.Context, filter models.PetFilter, page models.PageRequest) ([]models.Pet, int64, error)
	GetByID(ctx context.Context, id string) (*models.Pet, error)
	Update(ctx context.Context, id string, upd models.PetUpdate) (*models.Pet, error)
	Delete(ctx context.Context, id string) (*models.Pet, error)
}

// ImageStore defines the interface for image object storage.
type ImageStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

// Handler holds the pet catalog HTTP handlers.
type Handler struct {
	pets   PetStore
	images ImageStore
	log    zerolog.Logger
}

func NewHandler(pets PetStore, images ImageStore, log zerolog.Logger) *Handler {
	return &Handler{pets: pets, images: images, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type petResponse struct {
	Message string      `json:"message"`
	Data    *models.Pet `json:"data,omitempty"`
}

type listResponse struct {
	Data  []models.Pet `json:"data"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
	Total int64        `json:"total"`
	Pages int64        `json:"pages"`
}

// petPayload mirrors the pet fields a client may send; nil means absent.
type petPayload struct {
	Name        *string           `json:"name"`
	Species     *string           `json:"species"`
	Breed       *string           `json:"breed"`
	Age         *int              `json:"age"`
	Color       *string           `json:"color"`
	Description *string           `json:"description"`
	Status      *models.PetStatus `json:"status"`
}

func (p petPayload) toUpdate() models.PetUpdate {
	return models.PetUpdate{
		Name:        p.Name,
		Species:     p.Species,
		Breed:       p.Breed,
		Age:         p.Age,
		Color:       p.Color,
		Description: p.Description,
		Status:      p.Status,
	}
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// parsePayload reads pet fields from either a multipart form (image uploads)
// or a JSON body. The multipart body is capped at the image limit plus slack
// for the text fields, so an oversized upload is cut off at the transport
// instead of being spooled to disk first.
func parsePayload(w http.ResponseWriter, r *http.Request) (petPayload, error) {
	var p petPayload
	if !isMultipart(r) {
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			return p, fmt.Errorf("invalid request body")
		}
		return p, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+32<<10)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return p, fmt.Errorf("upload exceeds the 5MB limit")
		}
		return p, fmt.Errorf("invalid multipart form")
	}
	form := r.MultipartForm.Value
	str := func(field string) *string {
		if vals, ok := form[field]; ok && len(vals) > 0 {
			return &vals[0]
		}
		return nil
	}
	p.Name = str("name")
	p.Species = str("species")
	p.Breed = str("breed")
	p.Color = str("color")
	p.Description = str("description")
	if v := str("age"); v != nil {
		age, err := strconv.Atoi(*v)
		if err != nil {
			return p, fmt.Errorf("age must be a number")
		}
		p.Age = &age
	}
	if v := str("status"); v != nil {
		status := models.PetStatus(*v)
		p.Status = &status
	}
	return p, nil
}

// saveImage stores an uploaded image object and returns its /uploads/ path,
// or nil when no image part was sent.
func (h *Handler) saveImage(r *http.Request) (*string, error) {
	if !isMultipart(r) {
		return nil, nil
	}
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid image upload")
	}
	defer file.Close()

	if header.Size > maxImageBytes {
		return nil, fmt.Errorf("image exceeds the 5MB limit")
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExt[ext] {
		return nil, fmt.Errorf("image must be jpg, jpeg, png, or gif")
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("reading image upload failed")
	}

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := uuid.New().String() + ext
	if err := h.images.Upload(r.Context(), key, data, contentType); err != nil {
		return nil, fmt.Errorf("storing image failed")
	}
	path := uploadPrefix + key
	return &path, nil
}

// removeImage deletes a stored image object, best effort.
func (h *Handler) removeImage(ctx context.Context, imagePath string) {
	key := strings.TrimPrefix(imagePath, uploadPrefix)
	if key == "" {
		return
	}
	if err := h.images.Remove(ctx, key); err != nil {
		h.log.Warn().Err(err).Str("key", key).Msg("image cleanup failed")
	}
}

// Create persists a new pet. Admin only; accepts JSON or a multipart form
// with an optional image part.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	payload, err := parsePayload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Name == nil || *payload.Name == "" || payload.Species == nil || *payload.Species == "" {
		writeError(w, http.StatusBadRequest, "name and species are required")
		return
	}
	if payload.Status != nil && !payload.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	imagePath, err := h.saveImage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pet := models.Pet{
		Name:    *payload.Name,
		Species: *payload.Species,
	}
	if payload.Breed != nil {
		pet.Breed = *payload.Breed
	}
	if payload.Age != nil {
		pet.Age = *payload.Age
	}
	if payload.Color != nil {
		pet.Color = *payload.Color
	}
	if payload.Description != nil {
		pet.Description = *payload.Description
	}
	if payload.Status != nil {
		pet.Status = *payload.Status
	}
	if imagePath != nil {
		pet.Image = *imagePath
	}

	if err := h.pets.Insert(r.Context(), &pet); err != nil {
		h.log.Error().Err(err).Msg("pet insert failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, petResponse{Message: "Pet added successfully", Data: &pet})
}

// List returns a filtered, paginated page of the catalog. The status filter
// defaults to "available"; pass status=all for the unfiltered catalog.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.PetFilter{
		Species: q.Get("species"),
		Breed:   q.Get("breed"),
		Search:  q.Get("search"),
		Status:  q.Get("status"),
	}
	if v := q.Get("age"); v != "" {
		if age, err := strconv.Atoi(v); err == nil {
			filter.Age = &age
		}
	}
	page := models.ParsePage(q.Get("page"), q.Get("limit"), defaultPageSize)

	pets, total, err := h.pets.List(r.Context(), filter, page)
	if err != nil {
		h.log.Error().Err(err).Msg("pet list failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if pets == nil {
		pets = []models.Pet{}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Data:  pets,
		Page:  page.Page,
		Limit: page.Limit,
		Total: total,
		Pages: models.Pages(total, page.Limit),
	})
}

// Get returns a single pet.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	pet, err := h.pets.GetByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Pet not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("pet get failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, petResponse{Message: "Pet fetched successfully", Data: pet})
}

// Update applies a partial update. A new image upload replaces the stored
// reference; the old object is removed best-effort.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	payload, err := parsePayload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Status != nil && !payload.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	upd := payload.toUpdate()

	imagePath, err := h.saveImage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var oldImage string
	if imagePath != nil {
		old, err := h.pets.GetByID(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			h.removeImage(r.Context(), *imagePath)
			writeError(w, http.StatusNotFound, "Pet not found")
			return
		}
		if err != nil {
			h.log.Error().Err(err).Msg("pet get failed")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		oldImage = old.Image
		upd.Image = imagePath
	}

	pet, err := h.pets.Update(r.Context(), id, upd)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Pet not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("pet update failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if imagePath != nil && oldImage != "" && oldImage != *imagePath {
		h.removeImage(r.Context(), oldImage)
	}
	writeJSON(w, http.StatusOK, petResponse{Message: "Pet updated successfully", Data: pet})
}

// Delete removes a pet and its stored image.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	pet, err := h.pets.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Pet not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("pet delete failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if pet.Image != "" {
		h.removeImage(r.Context(), pet.Image)
	}
	writeJSON(w, http.StatusOK, petResponse{Message: "Pet deleted successfully"})
}

// ServeImage streams a stored pet image from object storage.
func (h *Handler) ServeImage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	data, contentType, err := h.images.Download(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}
