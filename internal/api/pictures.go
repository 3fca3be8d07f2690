package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/erazemk/reclaim/internal/imaging"
	"github.com/erazemk/reclaim/internal/metrics"
	"github.com/erazemk/reclaim/internal/store"
)

// PicturesHandler handles material picture endpoints.
type PicturesHandler struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
}

// Add handles POST /api/materials/{id}/pictures (multipart, "pictures").
func (h *PicturesHandler) Add(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid multipart form or upload too large")
		return
	}
	defer r.MultipartForm.RemoveAll()

	if len(r.MultipartForm.File["pictures"]) == 0 {
		jsonError(w, http.StatusBadRequest, "no pictures uploaded")
		return
	}
	pictures, err := processUploads(r.MultipartForm)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	all, err := store.AddPictures(r.Context(), h.DB, id, pictures, actor(r))
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "material not found")
		return
	}
	if err != nil {
		serverError(w, r, "failed to add pictures", err)
		return
	}

	h.Metrics.RecordMaterialOperation("add_pictures")
	jsonResponse(w, http.StatusCreated, all)
}

// Remove handles DELETE /api/materials/{id}/pictures/{pictureID}.
func (h *PicturesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, pictureID, ok := pictureIDs(w, r)
	if !ok {
		return
	}

	err := store.RemovePicture(r.Context(), h.DB, id, pictureID, actor(r))
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "picture not found")
		return
	}
	if err != nil {
		serverError(w, r, "failed to remove picture", err)
		return
	}

	h.Metrics.RecordMaterialOperation("remove_picture")
	jsonResponse(w, http.StatusOK, map[string]string{"message": "picture removed"})
}

// SetPrimary handles PUT /api/materials/{id}/pictures/{pictureID}/primary.
func (h *PicturesHandler) SetPrimary(w http.ResponseWriter, r *http.Request) {
	id, pictureID, ok := pictureIDs(w, r)
	if !ok {
		return
	}

	err := store.SetPrimaryPicture(r.Context(), h.DB, id, pictureID, actor(r))
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "picture not found")
		return
	}
	if err != nil {
		serverError(w, r, "failed to set primary picture", err)
		return
	}

	h.Metrics.RecordMaterialOperation("set_primary_picture")
	jsonResponse(w, http.StatusOK, map[string]string{"message": "primary picture set"})
}

func pictureIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid material id")
		return 0, 0, false
	}
	pictureID, err := pathID(r, "pictureID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid picture id")
		return 0, 0, false
	}
	return id, pictureID, true
}

// Get handles GET /api/materials/pictures/{pictureID} and serves the bytes.
func (h *PicturesHandler) Get(w http.ResponseWriter, r *http.Request) {
	pictureID, err := pathID(r, "pictureID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid picture id")
		return
	}

	data, mime, err := store.GetPictureData(r.Context(), h.DB, pictureID)
	if err != nil {
		serverError(w, r, "failed to get picture", err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "picture not found")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
