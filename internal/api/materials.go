package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/reclaim/internal/filter"
	"github.com/erazemk/reclaim/internal/imaging"
	"github.com/erazemk/reclaim/internal/logger"
	"github.com/erazemk/reclaim/internal/metrics"
	"github.com/erazemk/reclaim/internal/model"
	"github.com/erazemk/reclaim/internal/store"
	"github.com/erazemk/reclaim/internal/taxonomy"
	"github.com/erazemk/reclaim/internal/validate"
)

// MaterialsHandler handles material CRUD endpoints.
type MaterialsHandler struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// List handles GET /api/materials. Query parameters query, category, type and
// condition filter the set; page and size paginate it. Without size every
// match is returned as one page.
func (h *MaterialsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	number, err := queryInt(q.Get("page"))
	if err != nil || number < 0 {
		jsonError(w, http.StatusBadRequest, "invalid page")
		return
	}
	size, err := queryInt(q.Get("size"))
	if err != nil || size < 0 {
		jsonError(w, http.StatusBadRequest, "invalid size")
		return
	}

	all, err := store.ListMaterials(r.Context(), h.DB)
	if err != nil {
		serverError(w, r, "failed to list materials", err)
		return
	}

	matched := filter.Run(all, filter.FromQuery(q))
	jsonResponse(w, http.StatusOK, model.NewPage(matched, number, size))
}

func queryInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// Create handles POST /api/materials. The body is either a JSON draft or a
// multipart form with a "material" JSON part and any number of "pictures".
func (h *MaterialsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var (
		d        model.Draft
		pictures []store.NewPicture
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes)
		if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid multipart form or upload too large")
			return
		}
		defer r.MultipartForm.RemoveAll()

		if err := materialPart(r.MultipartForm, &d); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		var err error
		pictures, err = processUploads(r.MultipartForm)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else if err := decodeJSON(r, &d); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if errs := validate.ValidateAll(d); len(errs) > 0 {
		validationFailed(w, errs)
		return
	}
	rec, err := d.Record()
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := store.CreateMaterial(r.Context(), h.DB, rec, pictures, actor(r))
	if err != nil {
		serverError(w, r, "failed to create material", err)
		return
	}

	h.Metrics.RecordMaterialOperation("create")
	logger.FromContext(r.Context()).Info("material created",
		zap.Int64("material_id", created.ID), zap.Int("pictures", len(pictures)))
	jsonResponse(w, http.StatusCreated, created)
}

// materialPart decodes the "material" part of a multipart create, sent either
// as a file part or as a plain form value.
func materialPart(form *multipart.Form, d *model.Draft) error {
	if files := form.File["material"]; len(files) > 0 {
		f, err := files[0].Open()
		if err != nil {
			return fmt.Errorf("reading material part: %w", err)
		}
		defer f.Close()
		return decodeDraft(f, d)
	}
	if values := form.Value["material"]; len(values) > 0 {
		return decodeDraft(strings.NewReader(values[0]), d)
	}
	return errors.New("missing material part")
}

func decodeDraft(r io.Reader, d *model.Draft) error {
	if err := json.NewDecoder(r).Decode(d); err != nil {
		return errors.New("invalid material JSON")
	}
	return nil
}

// processUploads normalizes every file in the "pictures" part. The i-th
// "descriptions" value, when present, describes the i-th file. Any unreadable
// or unsupported file rejects the whole request.
func processUploads(form *multipart.Form) ([]store.NewPicture, error) {
	files := form.File["pictures"]
	descriptions := form.Value["descriptions"]
	out := make([]store.NewPicture, 0, len(files))
	for i, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", fh.Filename, err)
		}
		pic, err := imaging.Process(f, imaging.DefaultOptions)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fh.Filename, err)
		}
		np := store.NewPicture{Data: pic.Data, MIME: pic.MIME, FileName: filepath.Base(fh.Filename)}
		if i < len(descriptions) {
			np.Description = strings.TrimSpace(descriptions[i])
		}
		out = append(out, np)
	}
	return out, nil
}

// Get handles GET /api/materials/{id}.
func (h *MaterialsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	m, err := store.GetMaterial(r.Context(), h.DB, id)
	if err != nil {
		serverError(w, r, "failed to get material", err)
		return
	}
	if m == nil {
		jsonError(w, http.StatusNotFound, "material not found")
		return
	}

	jsonResponse(w, http.StatusOK, m)
}

// Update handles PUT /api/materials/{id}. The body is a partial draft laid
// over the stored one; the material type cannot change.
func (h *MaterialsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	var patch model.Draft
	if err := decodeJSON(r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	existing, err := store.GetMaterial(r.Context(), h.DB, id)
	if err != nil {
		serverError(w, r, "failed to get material", err)
		return
	}
	if existing == nil {
		jsonError(w, http.StatusNotFound, "material not found")
		return
	}

	if patch.MaterialType != "" && patch.MaterialType != string(existing.MaterialType()) {
		jsonError(w, http.StatusBadRequest, "material type cannot be changed")
		return
	}

	before := existing.Draft()
	merged := before.Overlay(patch)
	if errs := validate.ValidateAll(merged); len(errs) > 0 {
		validationFailed(w, errs)
		return
	}
	rec, err := merged.Record()
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	details := store.ChangeDetails(fieldNames(before.Changed(merged)))
	updated, err := store.UpdateMaterial(r.Context(), h.DB, id, rec, actor(r), details)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "material not found")
		return
	}
	if err != nil {
		serverError(w, r, "failed to update material", err)
		return
	}

	h.Metrics.RecordMaterialOperation("update")
	jsonResponse(w, http.StatusOK, updated)
}

func fieldNames(fields []taxonomy.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}

// Delete handles DELETE /api/materials/{id}.
func (h *MaterialsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	err = store.DeleteMaterial(r.Context(), h.DB, id, actor(r))
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "material not found")
		return
	}
	if err != nil {
		serverError(w, r, "failed to delete material", err)
		return
	}

	h.Metrics.RecordMaterialOperation("delete")
	logger.FromContext(r.Context()).Info("material deleted", zap.Int64("material_id", id))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "material deleted"})
}

// Stats handles GET /api/materials/stats.
func (h *MaterialsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := store.Stats(r.Context(), h.DB, h.Now())
	if err != nil {
		serverError(w, r, "failed to compute stats", err)
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}
