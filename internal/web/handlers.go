package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/worklog/importer/internal/importer"
	"github.com/worklog/importer/internal/store"
)

// handleValidate runs the dry-run half of the pipeline: parse, map,
// validate, and cross-check for duplicates without writing anything.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	kind, ok := importer.ParseEntityKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown entity kind")
		return
	}

	fileName, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	report, err := s.service.Validate(r.Context(), kind, fileName, data)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

// handleExecute commits a file. The multipart form carries the file, an
// optional decisions form value (a JSON object mapping row numbers to
// "skip" or "replace"), and an optional actor identifier for the audit
// trail.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	kind, ok := importer.ParseEntityKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown entity kind")
		return
	}

	fileName, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	decisions, err := parseDecisions(r.FormValue("decisions"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	actor := strings.TrimSpace(r.FormValue("actor"))
	if actor == "" {
		actor = "anonymous"
	}

	result, err := s.service.Execute(r.Context(), kind, fileName, data, decisions, actor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// readUpload enforces the size limit and pulls the uploaded file out of the
// multipart form.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, r, http.StatusBadRequest, "file too large or invalid form")
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "no file provided")
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to read file")
		return "", nil, false
	}
	return header.Filename, data, true
}

// parseDecisions decodes the decisions form value into per-row decisions.
func parseDecisions(raw string) (map[int]importer.Decision, error) {
	if raw == "" {
		return nil, nil
	}

	var byRow map[string]string
	if err := json.Unmarshal([]byte(raw), &byRow); err != nil {
		return nil, errors.New("invalid decisions format")
	}

	decisions := make(map[int]importer.Decision, len(byRow))
	for rowStr, d := range byRow {
		row, err := strconv.Atoi(rowStr)
		if err != nil || row < 1 {
			return nil, fmt.Errorf("invalid decision row number: %q", rowStr)
		}
		switch importer.Decision(d) {
		case importer.DecisionSkip, importer.DecisionReplace:
			decisions[row] = importer.Decision(d)
		default:
			return nil, fmt.Errorf("invalid decision for row %d: %q", row, d)
		}
	}
	return decisions, nil
}

// runResponse is the JSON shape of one audit trail entry.
type runResponse struct {
	ID          uuid.UUID          `json:"id"`
	EntityKind  string             `json:"entityKind"`
	ActorID     string             `json:"actorId"`
	FileName    string             `json:"fileName"`
	TotalRows   int                `json:"totalRows"`
	SuccessRows int                `json:"successRows"`
	ErrorRows   int                `json:"errorRows"`
	Status      string             `json:"status"`
	StartedAt   time.Time          `json:"startedAt"`
	EndedAt     *time.Time         `json:"endedAt,omitempty"`
	RowErrors   []rowErrorResponse `json:"rowErrors"`
}

type rowErrorResponse struct {
	RowNumber int    `json:"rowNumber"`
	Message   string `json:"message"`
}

func toRunResponse(run store.ImportRun) runResponse {
	resp := runResponse{
		ID:          run.ID,
		EntityKind:  run.EntityKind,
		ActorID:     run.ActorID,
		FileName:    run.FileName,
		TotalRows:   run.TotalRows,
		SuccessRows: run.SuccessRows,
		ErrorRows:   run.ErrorRows,
		Status:      run.Status,
		StartedAt:   run.StartedAt,
		EndedAt:     run.EndedAt,
		RowErrors:   []rowErrorResponse{},
	}
	for _, re := range run.RowErrors {
		resp.RowErrors = append(resp.RowErrors, rowErrorResponse{RowNumber: re.RowNumber, Message: re.Message})
	}
	return resp
}

// handleListRuns returns the audit trail newest-first, paginated.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 20)
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}
	offset := parseIntParam(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	runs, total, err := s.service.Runs(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"runs":   out,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// handleGetRun returns one audit trail entry with its row errors.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid run ID")
		return
	}

	run, err := s.service.Run(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toRunResponse(*run))
}

// handleTemplate serves a downloadable sample CSV for one entity kind.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	kind, ok := importer.ParseEntityKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown entity kind")
		return
	}

	data, err := s.service.TemplateCSV(kind)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s_template.csv", strings.ToLower(string(kind)))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Write(data)
}

// parseIntParam reads an integer query parameter with a default.
func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
