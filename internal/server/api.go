package server

import (
	"errors"
	"net/http"
	"regexp"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/shellyln/go-sql-like-expr/likeexpr"
	"go.uber.org/zap"

	"github.com/vegasq/prequel/internal/astfile"
	"github.com/vegasq/prequel/query"
)

// maxBodyBytes caps the size of a query request.
const maxBodyBytes = 32 << 20

// APIResponse wraps all API responses with success/error info.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError describes a failed request. Clause and Token are set for query
// errors.
type APIError struct {
	Message string `json:"message"`
	Clause  string `json:"clause,omitempty"`
	Token   string `json:"token,omitempty"`
}

// QueryRequest is the body of POST /v1/query. Query is a query document in
// the astfile layout; Data binds names to row lists or scalar values.
type QueryRequest struct {
	Query interface{}            `json:"query"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// QueryResponse contains query results.
type QueryResponse struct {
	Columns  []string    `json:"columns"`
	Rows     []query.Row `json:"rows"`
	RowCount int         `json:"row_count"`
}

// SourceInfo describes a preloaded dataset.
type SourceInfo struct {
	Name string `json:"name"`
	Rows int    `json:"rows,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, apiErr *APIError) {
	writeJSON(w, status, APIResponse{Success: false, Error: apiErr})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]string{"status": "ok"})
}

// handleSources lists the preloaded datasets. An optional name parameter
// filters them with a LIKE pattern that must match the whole name.
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	var filter *regexp.Regexp
	if pattern := r.URL.Query().Get("name"); pattern != "" {
		re, err := regexp.Compile("(?i)" + likeexpr.ToRegexp(pattern, '\\', false))
		if err != nil {
			writeError(w, http.StatusBadRequest, &APIError{Message: "invalid name pattern: " + err.Error()})
			return
		}
		filter = re
	}

	sources := make([]SourceInfo, 0, len(s.datasets))
	for name, b := range s.datasets {
		if filter != nil && !filter.MatchString(name) {
			continue
		}
		info := SourceInfo{Name: name}
		if rows, ok := b.(query.RowsValue); ok {
			info.Rows = len(rows.Rows)
		}
		sources = append(sources, info)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	writeSuccess(w, sources)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		s.metrics.queries.WithLabelValues(outcomeBadRequest).Inc()
		writeError(w, http.StatusBadRequest, &APIError{Message: "invalid request body: " + err.Error()})
		return
	}
	if req.Query == nil {
		s.metrics.queries.WithLabelValues(outcomeBadRequest).Inc()
		writeError(w, http.StatusBadRequest, &APIError{Message: "query is required"})
		return
	}

	q, err := astfile.FromValue(req.Query)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := astfile.DecodeBindings(req.Data)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	start := time.Now()
	rows, err := s.executor.Execute(r.Context(), q, s.datasets.Merge(data))
	s.metrics.duration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rows == nil {
		rows = []query.Row{}
	}

	s.metrics.queries.WithLabelValues(outcomeOK).Inc()
	s.metrics.rows.Observe(float64(len(rows)))
	writeSuccess(w, QueryResponse{
		Columns:  query.Columns(q),
		Rows:     rows,
		RowCount: len(rows),
	})
}

// fail writes err as 400 for query errors and 500 otherwise.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var qerr *query.Error
	if errors.As(err, &qerr) {
		s.metrics.queries.WithLabelValues(outcomeBadRequest).Inc()
		writeError(w, http.StatusBadRequest, &APIError{
			Message: err.Error(),
			Clause:  qerr.Clause,
			Token:   qerr.Token,
		})
		return
	}

	s.metrics.queries.WithLabelValues(outcomeError).Inc()
	s.logger.Error("query failed",
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, &APIError{Message: err.Error()})
}
