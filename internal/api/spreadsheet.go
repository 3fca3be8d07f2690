package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erazemk/reclaim/internal/imaging"
	"github.com/erazemk/reclaim/internal/logger"
	"github.com/erazemk/reclaim/internal/metrics"
	"github.com/erazemk/reclaim/internal/model"
	"github.com/erazemk/reclaim/internal/spreadsheet"
	"github.com/erazemk/reclaim/internal/store"
	"github.com/erazemk/reclaim/internal/validate"
)

// SpreadsheetHandler handles bulk import and export.
type SpreadsheetHandler struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
}

// Import handles POST /api/materials/import-excel (multipart, "file"). Valid
// rows are stored together; invalid rows are reported by line with a message
// per field.
func (h *SpreadsheetHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid multipart form or upload too large")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	rows, err := spreadsheet.Parse(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary := model.ImportSummary{BatchID: uuid.NewString(), Errors: []model.RowError{}}
	var records []model.MaterialRecord
	for _, row := range rows {
		fields := validate.ValidateAll(row.Draft)
		for f, msg := range row.Errors {
			fields[f] = msg
		}
		if len(fields) > 0 {
			summary.Errors = append(summary.Errors, rowError(row.Line, fields))
			continue
		}
		rec, err := row.Draft.Record()
		if err != nil {
			summary.Errors = append(summary.Errors, model.RowError{
				Row:    row.Line,
				Fields: map[string]string{"row": err.Error()},
			})
			continue
		}
		records = append(records, rec)
	}

	details := "imported from spreadsheet, batch " + summary.BatchID
	created, err := store.ImportMaterials(r.Context(), h.DB, records, actor(r), details)
	if err != nil {
		serverError(w, r, "failed to import materials", err)
		return
	}
	summary.Created = created
	summary.Failed = len(summary.Errors)

	h.Metrics.RecordImport(summary.Created, summary.Failed)
	logger.FromContext(r.Context()).Info("spreadsheet imported",
		zap.String("batch_id", summary.BatchID),
		zap.Int("created", summary.Created),
		zap.Int("failed", summary.Failed))
	jsonResponse(w, http.StatusOK, summary)
}

func rowError(line int, errs validate.Errors) model.RowError {
	fields := make(map[string]string, len(errs))
	for f, msg := range errs {
		fields[string(f)] = msg
	}
	return model.RowError{Row: line, Fields: fields}
}

// Export handles GET /api/materials/export-excel.
func (h *SpreadsheetHandler) Export(w http.ResponseWriter, r *http.Request) {
	records, err := store.ListMaterials(r.Context(), h.DB)
	if err != nil {
		serverError(w, r, "failed to list materials", err)
		return
	}

	data, err := spreadsheet.Export(records)
	if err != nil {
		serverError(w, r, "failed to build spreadsheet", err)
		return
	}
	sendWorkbook(w, fmt.Sprintf("materials-%s.xlsx", time.Now().Format("2006-01-02")), data)
}

// Template handles GET /api/materials/excel-template.
func (h *SpreadsheetHandler) Template(w http.ResponseWriter, r *http.Request) {
	data, err := spreadsheet.Template()
	if err != nil {
		serverError(w, r, "failed to build template", err)
		return
	}
	sendWorkbook(w, "materials-template.xlsx", data)
}

func sendWorkbook(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", spreadsheet.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
