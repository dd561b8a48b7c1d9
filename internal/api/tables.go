package api

import (
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/neosqlite/internal/sqlitedb"
)

// Query parameters with a fixed meaning; every other parameter on a rows
// endpoint is an equality filter on the column of that name.
const (
	paramLimit = "limit"
	paramAll   = "all"
)

// rowsResponse is the body of GET /tables/{table}/rows.
type rowsResponse struct {
	Table   string         `json:"table"`
	Columns []string       `json:"columns"`
	Rows    []sqlitedb.Row `json:"rows"`
	Count   int            `json:"count"`
}

// insertRequest is the body of POST /tables/{table}/rows. Exactly one of
// Values (one row) or Rows (several) is set. Each row lists a value for
// every column in declaration order.
type insertRequest struct {
	Values []any   `json:"values,omitempty"`
	Rows   [][]any `json:"rows,omitempty"`
}

// updateRequest is the body of PATCH /tables/{table}/rows.
type updateRequest struct {
	Set map[string]any `json:"set"`
}

// handleListTables returns the table names of the database.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	s.dbMu.Lock()
	names, err := s.handle.TableNames(r.Context())
	s.dbMu.Unlock()
	if err != nil {
		writeDBError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"database": s.handle.Name(),
		"tables":   names,
		"count":    len(names),
	})
}

// handleListColumns returns the column names of one table.
func (s *Server) handleListColumns(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	s.dbMu.Lock()
	cols, err := s.handle.Columns(r.Context(), table)
	s.dbMu.Unlock()
	if err != nil {
		writeDBError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"table":   table,
		"columns": cols,
	})
}

// handleGetRows returns the rows of a table, optionally filtered by
// column equality and truncated to ?limit=.
func (s *Server) handleGetRows(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	query := r.URL.Query()

	limit := 0
	if v := query.Get(paramLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeValidationError(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	s.dbMu.Lock()
	defer s.dbMu.Unlock()

	cols, err := s.handle.Columns(r.Context(), table)
	if err != nil {
		writeDBError(w, err)
		return
	}
	filter, args, err := equalityFilter(cols, query)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	rows, err := s.handle.GetSpecificRows(r.Context(), table, filter, args...)
	if err != nil {
		writeDBError(w, err)
		return
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	writeJSON(w, http.StatusOK, rowsResponse{
		Table:   table,
		Columns: cols,
		Rows:    rows,
		Count:   len(rows),
	})
}

// handleInsertRows inserts one or more rows.
func (s *Server) handleInsertRows(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	var req insertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	rows := req.Rows
	if req.Values != nil {
		if rows != nil {
			writeValidationError(w, "set either values or rows, not both")
			return
		}
		rows = [][]any{req.Values}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		writeValidationError(w, "at least one non-empty row is required")
		return
	}
	width := len(rows[0])
	for _, row := range rows {
		if len(row) != width {
			writeValidationError(w, "all rows must have the same number of values")
			return
		}
		normaliseNumbers(row)
	}
	template := rowTemplate(width)

	s.dbMu.Lock()
	var res sqlitedb.Result
	var err error
	if len(rows) == 1 {
		res, err = s.handle.InsertRow(r.Context(), table, template, rows[0]...)
	} else {
		res, err = s.handle.InsertRows(r.Context(), table, template, rows)
	}
	s.dbMu.Unlock()
	if err != nil {
		writeDBError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// handleUpdateRows applies {"set": {...}} to the rows matching the query
// filters. Updating every row requires ?all=true.
func (s *Server) handleUpdateRows(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Set) == 0 {
		writeValidationError(w, "set must name at least one column")
		return
	}

	s.dbMu.Lock()
	defer s.dbMu.Unlock()

	cols, err := s.handle.Columns(r.Context(), table)
	if err != nil {
		writeDBError(w, err)
		return
	}
	filter, args, ok := s.mutationFilter(w, cols, r.URL.Query())
	if !ok {
		return
	}

	names := make([]string, 0, len(req.Set))
	for name := range req.Set {
		col, found := lookupColumn(cols, name)
		if !found {
			writeValidationError(w, "unknown column: "+name)
			return
		}
		names = append(names, col)
	}
	sort.Strings(names)

	assignments := make([]string, len(names))
	values := make([]any, len(names))
	for i, col := range names {
		assignments[i] = sqlitedb.QuoteIdent(col) + " = ?"
		values[i] = valueFor(req.Set, col)
	}
	normaliseNumbers(values)

	res, err := s.handle.UpdateRows(r.Context(), table, strings.Join(assignments, ", "), values, filter, args...)
	if err != nil {
		writeDBError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleDeleteRows deletes the rows matching the query filters. Deleting
// every row requires ?all=true.
func (s *Server) handleDeleteRows(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	s.dbMu.Lock()
	defer s.dbMu.Unlock()

	cols, err := s.handle.Columns(r.Context(), table)
	if err != nil {
		writeDBError(w, err)
		return
	}
	filter, args, ok := s.mutationFilter(w, cols, r.URL.Query())
	if !ok {
		return
	}

	res, err := s.handle.DeleteRows(r.Context(), table, filter, args...)
	if err != nil {
		writeDBError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// mutationFilter builds the WHERE clause for update and delete. A request
// without filters must opt in to touching every row with ?all=true.
func (s *Server) mutationFilter(w http.ResponseWriter, cols []string, query url.Values) (string, []any, bool) {
	filter, args, err := equalityFilter(cols, query)
	if err != nil {
		writeValidationError(w, err.Error())
		return "", nil, false
	}
	if filter == "" {
		all, _ := strconv.ParseBool(query.Get(paramAll)) //nolint:errcheck // Anything unparsable means false
		if !all {
			writeValidationError(w, "a column filter or all=true is required")
			return "", nil, false
		}
	}
	return filter, args, true
}

// columnError reports a query parameter that names no column.
type columnError string

func (e columnError) Error() string { return "unknown column: " + string(e) }

// equalityFilter turns query parameters into "col = ? AND ..." with bound
// values. Column names are checked against cols and quoted; reserved
// parameters are skipped.
func equalityFilter(cols []string, query url.Values) (string, []any, error) {
	keys := make([]string, 0, len(query))
	for key := range query {
		if key == paramLimit || key == paramAll {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var clauses []string
	var args []any
	for _, key := range keys {
		col, ok := lookupColumn(cols, key)
		if !ok {
			return "", nil, columnError(key)
		}
		for _, v := range query[key] {
			clauses = append(clauses, sqlitedb.QuoteIdent(col)+" = ?")
			args = append(args, v)
		}
	}
	return strings.Join(clauses, " AND "), args, nil
}

// lookupColumn matches name against cols case-insensitively, as SQLite does.
func lookupColumn(cols []string, name string) (string, bool) {
	for _, c := range cols {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// valueFor returns the value set for col, whatever case the client used.
func valueFor(set map[string]any, col string) any {
	if v, ok := set[col]; ok {
		return v
	}
	for k, v := range set {
		if strings.EqualFold(k, col) {
			return v
		}
	}
	return nil
}

// rowTemplate returns "(?, ?, ...)" with n placeholders.
func rowTemplate(n int) string {
	return "(" + strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + ")"
}

// normaliseNumbers turns integral JSON numbers into int64 so they bind as
// INTEGER rather than REAL.
func normaliseNumbers(values []any) {
	for i, v := range values {
		f, ok := v.(float64)
		if ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			values[i] = int64(f)
		}
	}
}
