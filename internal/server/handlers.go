package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/zombor/fuel-tracker/internal/fuellog"
	"github.com/zombor/fuel-tracker/internal/insights"
	"github.com/zombor/fuel-tracker/internal/openai"
	"github.com/zombor/fuel-tracker/internal/pipeline"
)

const (
	// DefaultListLimit matches what the dashboard loads at once
	DefaultListLimit = 500
	maxListLimit     = 5000

	maxEventSize  = 1 << 20  // 1MB
	maxUploadSize = 50 << 20 // 50MB, phone photos can be large

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes {"error": message}
func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUploadEvent runs a storage upload-completed event through the
// pipeline. Every outcome is a 200, the result body tells them apart.
func (s *Server) handleUploadEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventSize))
	if err != nil {
		slog.Error("Error reading event body", "error", err)
		writeError(w, "Event body is too large or unreadable", http.StatusBadRequest)
		return
	}

	result := s.deps.Pipeline.Process(r.Context(), json.RawMessage(body))
	writeJSON(w, http.StatusOK, result)
}

type uploadResponse struct {
	BucketID string          `json:"bucketId"`
	FileID   string          `json:"fileId"`
	Result   pipeline.Result `json:"result"`
}

// handleUploadReceipt stores a posted receipt file and processes it as if the
// storage service had announced the upload
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		writeError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		writeError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		writeError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	bucketID := r.FormValue("bucketId")
	if bucketID == "" {
		bucketID = s.deps.UploadBucket
	}
	fileID := uuid.NewString()

	if err := s.deps.Storage.Save(r.Context(), bucketID, fileID, data); err != nil {
		slog.Error("Error saving receipt file", "bucket_id", bucketID, "filename", header.Filename, "error", err)
		writeError(w, "Error saving file", http.StatusInternalServerError)
		return
	}

	result := s.deps.Pipeline.Process(r.Context(), pipeline.UploadEvent{
		BucketID:       bucketID,
		FileID:         fileID,
		MimeType:       contentType(header.Header.Get("Content-Type"), header.Filename),
		ChunksUploaded: 1,
		ChunksTotal:    1,
	})

	code := http.StatusOK
	switch result.Outcome() {
	case pipeline.OutcomeCreated:
		code = http.StatusCreated
	case pipeline.OutcomeFailed:
		code = http.StatusBadGateway
	}
	writeJSON(w, code, uploadResponse{BucketID: bucketID, FileID: fileID, Result: result})
}

// contentType falls back to the file extension when the part has no type
func contentType(declared, filename string) string {
	if declared != "" {
		return strings.ToLower(strings.TrimSpace(declared))
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// selection reads the carId and year query parameters. A missing year or
// "all" selects every year.
func selection(r *http.Request) ([]fuellog.Filter, error) {
	var filters []fuellog.Filter
	if carID := r.URL.Query().Get("carId"); carID != "" {
		filters = append(filters, fuellog.Equal("carId", carID))
	}
	if year := r.URL.Query().Get("year"); year != "" && year != "all" {
		y, err := strconv.Atoi(year)
		if err != nil {
			return nil, errors.New("year must be a number or all")
		}
		filters = append(filters, fuellog.InYear(y)...)
	}
	return filters, nil
}

// handleListFuelLogs returns the newest records of the selection
func (s *Server) handleListFuelLogs(w http.ResponseWriter, r *http.Request) {
	filters, err := selection(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit := DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit <= 0 {
			writeError(w, "limit must be a positive number", http.StatusBadRequest)
			return
		}
		limit = min(limit, maxListLimit)
	}

	result, err := s.deps.DB.List(r.Context(), fuellog.ListOptions{Filters: filters, Limit: limit, OrderDesc: true})
	if err != nil {
		slog.Error("Error listing fuel logs", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetFuelLog(w http.ResponseWriter, r *http.Request) {
	record, err := s.deps.DB.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, fuellog.ErrNotFound) {
		writeError(w, "Fuel log not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Error getting fuel log", "id", r.PathValue("id"), "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

type statsResponse struct {
	Count            int     `json:"count"`
	TotalSpent       float64 `json:"totalSpent"`
	AvgLiters        float64 `json:"avgLiters"`
	AvgPricePerLiter float64 `json:"avgPricePerLiter"`
	Granularity      string  `json:"granularity"`
	Series           any     `json:"series"`
	// Years lists every year the car has records for, regardless of the year filter
	Years []int `json:"years"`
}

// handleStats aggregates the selection for the dashboard cards and chart
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	filters, err := selection(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	granularity := r.URL.Query().Get("granularity")
	switch granularity {
	case "":
		granularity = "month"
	case "month", "year":
	default:
		writeError(w, "granularity must be month or year", http.StatusBadRequest)
		return
	}

	selected, err := s.deps.DB.List(r.Context(), fuellog.ListOptions{Filters: filters})
	if err != nil {
		slog.Error("Error listing fuel logs for stats", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var carFilters []fuellog.Filter
	if carID := r.URL.Query().Get("carId"); carID != "" {
		carFilters = append(carFilters, fuellog.Equal("carId", carID))
	}
	all, err := s.deps.DB.List(r.Context(), fuellog.ListOptions{Filters: carFilters})
	if err != nil {
		slog.Error("Error listing fuel logs for years", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	records := selected.Documents
	resp := statsResponse{
		Count:            len(records),
		TotalSpent:       fuellog.TotalSpent(records),
		AvgLiters:        fuellog.AvgLiters(records),
		AvgPricePerLiter: fuellog.AvgPricePerLiter(records),
		Granularity:      granularity,
		Years:            fuellog.YearsPresent(all.Documents),
	}
	if granularity == "year" {
		resp.Series = fuellog.GroupByYear(records)
	} else {
		resp.Series = fuellog.GroupByMonth(records)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleExport returns the selection as a spreadsheet, oldest first
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := selection(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.deps.DB.List(r.Context(), fuellog.ListOptions{Filters: filters})
	if err != nil {
		slog.Error("Error listing fuel logs for export", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := fuellog.WriteXLSX(&buf, result.Documents); err != nil {
		slog.Error("Error writing spreadsheet", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="fuel-logs.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Error writing spreadsheet response", "error", err)
	}
}

// handleInsights asks the model to summarize a sample the dashboard sends
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventSize)).Decode(&body); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	rawFilters, hasFilters := body["filters"]
	rawSample, hasSample := body["sample"]
	if !hasFilters || !hasSample {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var (
		filters insights.Filters
		sample  []*fuellog.Record
	)
	if err := json.Unmarshal(rawFilters, &filters); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := json.Unmarshal(rawSample, &sample); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	text, err := s.deps.Insights.Summarize(r.Context(), filters, sample)
	if err != nil {
		var statusErr *openai.StatusError
		if errors.As(err, &statusErr) {
			slog.Error("Insights request rejected", "status", statusErr.StatusCode)
			writeError(w, statusErr.Body, statusErr.StatusCode)
			return
		}
		slog.Error("Error summarizing fuel logs", "error", err)
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}
