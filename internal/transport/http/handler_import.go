package httptransport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"union-ledger/internal/importer"
	"union-ledger/internal/sheet"

	"github.com/rs/zerolog/log"
)

type Importer interface {
	ImportPeriod(ctx context.Context, doc []byte, opts importer.Options) (importer.Result, error)
}

type ImportHandlers struct {
	svc      Importer
	maxBytes int64
}

func NewImportHandlers(svc Importer, maxUploadMB int) *ImportHandlers {
	if maxUploadMB < 1 {
		maxUploadMB = 32
	}
	return &ImportHandlers{svc: svc, maxBytes: int64(maxUploadMB) << 20}
}

// Upload accepts a multipart report in field "file". Optional form fields:
// period (YYYY-MM-DD) and allow_date_fallback.
func (h *ImportHandlers) Upload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
		if err := r.ParseMultipartForm(h.maxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				WriteHTTPError(w, http.StatusRequestEntityTooLarge, "file_too_large")
				return
			}
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "missing_file")
			return
		}
		defer file.Close()
		doc, err := io.ReadAll(file)
		if err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}

		opts := importer.Options{SourceLabel: header.Filename}
		if v := r.FormValue("period"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				WriteHTTPError(w, http.StatusBadRequest, "invalid_period")
				return
			}
			opts.PeriodOverride = &t
		}
		if v := r.FormValue("allow_date_fallback"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
				return
			}
			opts.AllowDateFallback = b
		}

		res, err := h.svc.ImportPeriod(r.Context(), doc, opts)
		if err != nil {
			status, code := importErrorStatus(err)
			if status >= http.StatusInternalServerError {
				log.Error().Err(err).Str("file", header.Filename).Msg("import request failed")
			}
			WriteHTTPError(w, status, code)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func importErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, sheet.ErrUnreadable), errors.Is(err, sheet.ErrEmptyWorkbook):
		return http.StatusBadRequest, "invalid_document"
	case errors.Is(err, importer.ErrMissingSheet):
		return http.StatusUnprocessableEntity, "missing_sheet"
	case errors.Is(err, importer.ErrPeriodDate):
		return http.StatusUnprocessableEntity, "invalid_period_date"
	case errors.Is(err, importer.ErrImportTimeout):
		return http.StatusGatewayTimeout, "import_timeout"
	case errors.Is(err, importer.ErrBulkOperation):
		return http.StatusInternalServerError, "bulk_operation_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
