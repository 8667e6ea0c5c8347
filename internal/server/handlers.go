package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/leapstack-labs/dbpilot/internal/history"
	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/leapstack-labs/dbpilot/pkg/schema"
)

// operationJSON is one entry of GET /v1/operations.
type operationJSON struct {
	Operation string `json:"operation"`
	Backend   string `json:"backend"`
	Category  string `json:"category"`
	Summary   string `json:"summary"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOperations(w http.ResponseWriter, _ *http.Request) {
	ops := core.Operations()
	out := make([]operationJSON, len(ops))
	for i, info := range ops {
		out[i] = operationJSON{
			Operation: string(info.Operation),
			Backend:   info.Backend.String(),
			Category:  info.Category.String(),
			Summary:   info.Summary,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleIntent dispatches one intent posted as JSON.
func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxIntent))
	if err != nil {
		writeResult(w, http.StatusRequestEntityTooLarge, core.Failure(fmt.Errorf("failed to read request body: %w", err)))
		return
	}
	in, err := core.ParseIntent(body)
	if err != nil {
		writeResult(w, http.StatusBadRequest, core.Failure(err))
		return
	}
	res := s.dispatcher(r).Dispatch(r.Context(), in)
	writeResult(w, resultStatus(res), res)
}

// handleImport loads CSV sent either as a multipart "file" field or as the
// raw request body. Query parameters: backend, target, delimiter.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	backend := core.BackendRelational
	if b := q.Get("backend"); b != "" {
		var err error
		if backend, err = core.ParseBackend(b); err != nil {
			writeResult(w, http.StatusBadRequest, core.Failure(err))
			return
		}
	}

	var opts schema.CSVOptions
	if d := q.Get("delimiter"); d != "" {
		rn, size := utf8.DecodeRuneInString(d)
		if size != len(d) {
			writeResult(w, http.StatusBadRequest, core.Failure(&core.ParamError{Param: "delimiter", Reason: "must be a single character"}))
			return
		}
		opts.Delimiter = rn
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	var src io.Reader = r.Body
	if isMultipart(r) {
		f, _, err := r.FormFile("file")
		if err != nil {
			writeResult(w, http.StatusBadRequest, core.Failure(fmt.Errorf("failed to read upload: %w", err)))
			return
		}
		defer func() { _ = f.Close() }()
		src = f
	}

	res := s.dispatcher(r).Import(r.Context(), backend, q.Get("target"), src, opts)
	writeResult(w, resultStatus(res), res)
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mt, "multipart/")
}

// handleHistory lists recorded dispatches. Query parameters: limit,
// operation, failed.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeResult(w, http.StatusNotFound, core.Failure(errors.New("history is disabled")))
		return
	}

	q := r.URL.Query()
	opts := history.ListOptions{Operation: core.Operation(q.Get("operation"))}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeResult(w, http.StatusBadRequest, core.Failure(&core.ParamError{Param: "limit", Reason: "must be a non-negative integer"}))
			return
		}
		opts.Limit = n
	}
	if f := q.Get("failed"); f != "" {
		failed, err := strconv.ParseBool(f)
		if err != nil {
			writeResult(w, http.StatusBadRequest, core.Failure(&core.ParamError{Param: "failed", Reason: "must be a boolean"}))
			return
		}
		opts.Failed = failed
	}

	entries, err := s.history.List(r.Context(), opts)
	if err != nil {
		writeResult(w, http.StatusInternalServerError, core.Failure(err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleTable describes one relational table.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	a, err := s.pool.Get(r.Header.Get(SessionHeader)).Relational(r.Context())
	if err != nil {
		writeResult(w, http.StatusServiceUnavailable, core.Failure(err))
		return
	}
	meta, err := a.Describe(r.Context(), name)
	if errors.Is(err, core.ErrTableNotFound) {
		writeResult(w, http.StatusNotFound, core.Failure(err))
		return
	}
	if err != nil {
		writeResult(w, http.StatusInternalServerError, core.Failure(err))
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleNewSession(w http.ResponseWriter, _ *http.Request) {
	id := uuid.New().String()
	s.pool.Get(id)
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (s *Server) handleReleaseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.pool.Release(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeResult(w, http.StatusInternalServerError, core.Failure(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resultStatus maps a dispatch result to an HTTP status. An unreachable
// backend is 503; any other failed intent is a well-formed request the
// backend rejected.
func resultStatus(res core.Result) int {
	if res.OK {
		return http.StatusOK
	}
	var connErr *core.ConnectionError
	if errors.As(res.Err, &connErr) {
		return http.StatusServiceUnavailable
	}
	return http.StatusUnprocessableEntity
}

func writeResult(w http.ResponseWriter, status int, res core.Result) {
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
