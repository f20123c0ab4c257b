package web

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/JonMunkholm/wardrobe/internal/core"
	"github.com/JonMunkholm/wardrobe/internal/logging"
)

// handleImportCSV parses an uploaded CSV and prepends its rows to the
// inventory. Nothing is stored unless the whole file parses.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	if err := s.imports.Acquire(r.Context()); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer s.imports.Release()

	file, header, err := formFile(w, r, "file", s.cfg.Import.MaxFileSize)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer file.Close()
	defer r.MultipartForm.RemoveAll()

	logger := logging.WithFields(r.Context(), "filename", header.Filename, "size", header.Size)

	items, summary, err := s.importer.ParseCSV(file)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if summary.Imported == 0 {
		logger.Warn("csv import produced no items",
			"rows", summary.TotalRows,
			"unmapped", summary.Unmapped,
		)
		respondError(w, r, core.ErrNoValidRows, http.StatusBadRequest)
		return
	}

	s.store.ImportBatch(r.Context(), items)
	logger.Info("csv import completed",
		"imported", summary.Imported,
		"skipped", summary.Skipped,
		"unmapped", len(summary.Unmapped),
	)

	writeJSON(w, r, http.StatusOK, summary)
}

// handleImportJSON replaces the inventory with a JSON export.
func (s *Server) handleImportJSON(w http.ResponseWriter, r *http.Request) {
	if err := s.imports.Acquire(r.Context()); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer s.imports.Release()

	file, header, err := formFile(w, r, "file", s.cfg.Import.MaxFileSize)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer file.Close()
	defer r.MultipartForm.RemoveAll()

	items, err := core.DecodeJSONImport(file)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	s.store.Replace(r.Context(), items)
	logging.WithFields(r.Context(), "filename", header.Filename).
		Info("json import completed", "items", len(items))

	writeJSON(w, r, http.StatusOK, map[string]int{"imported": len(items)})
}

// handleExportJSON downloads the inventory as a JSON array.
func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := core.ExportJSON(&buf, s.store.Items()); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeAttachment(w, "application/json", core.ExportFilename, buf.Bytes())
}

// handleExportCSV downloads the inventory as CSV with canonical headers.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := core.ExportCSV(&buf, s.store.Items()); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeAttachment(w, "text/csv; charset=utf-8", core.ExportCSVFilename, buf.Bytes())
}

// handleUploadImage downscales an item photo and returns it as a data URI.
// With an id form value the photo is also stored on that item.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	file, _, err := formFile(w, r, "image", s.cfg.Images.MaxFileSize)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer file.Close()
	defer r.MultipartForm.RemoveAll()

	img, err := s.images.Process(file)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	uri := img.DataURI()

	resp := map[string]any{
		"image":  uri,
		"width":  img.Width,
		"height": img.Height,
	}

	if id := strings.TrimSpace(r.FormValue("id")); id != "" {
		item, err := s.store.SetField(r.Context(), id, "image", uri)
		if err != nil {
			respondError(w, r, err, statusFor(err))
			return
		}
		resp["item"] = newItemView(item)
	}

	writeJSON(w, r, http.StatusOK, resp)
}

// formFile parses a size-limited multipart form and opens one file field.
// On success the caller owns the file and r.MultipartForm.
func formFile(w http.ResponseWriter, r *http.Request, field string, maxSize int64) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, nil, fmt.Errorf("%w: %v", core.ErrFileTooLarge, err)
		}
		return nil, nil, fmt.Errorf("%w: %v", core.ErrNoFile, err)
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		r.MultipartForm.RemoveAll()
		return nil, nil, fmt.Errorf("%w: %v", core.ErrNoFile, err)
	}
	return file, header, nil
}

// writeAttachment sends data as a file download.
func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
