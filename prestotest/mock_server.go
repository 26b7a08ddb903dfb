// Package prestotest provides an in-process coordinator that serves canned
// result sets over the statement protocol, for tests of code built on the
// presto package.
package prestotest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ilge/presto-go"
	"github.com/rs/zerolog/log"
)

// QueryState is a statement lifecycle state as reported in stats.
type QueryState string

const (
	QueryStateQueued    QueryState = "QUEUED"
	QueryStateRunning   QueryState = "RUNNING"
	QueryStateCancelled QueryState = "CANCELLED"
	QueryStateFinished  QueryState = "FINISHED"
	QueryStateFailed    QueryState = "FAILED"
)

func (qs QueryState) String() string {
	return string(qs)
}

// MockQueryTemplate is the canned response for one SQL text.
//
// Rows are split over DataBatches responses of ceil(rows/DataBatches) rows
// each, after QueueBatches responses that carry no data. AddQuery caps
// DataBatches at the row count so no data batch is empty.
type MockQueryTemplate struct {
	SQL          string
	DataBatches  int
	QueueBatches int
	Columns      []presto.Column

	// Data rows are JSON encoded with encoding/json. RawRows, when set,
	// replace Data and are sent verbatim, which keeps object member order
	// and allows values encoding/json would never produce.
	Data    [][]any
	RawRows []string

	Error   *presto.QueryError
	Latency time.Duration

	// UpdateType and UpdateCount describe a DML result.
	UpdateType  string
	UpdateCount int64
}

func (t *MockQueryTemplate) rowCount() int {
	if t.RawRows != nil {
		return len(t.RawRows)
	}
	return len(t.Data)
}

func (t *MockQueryTemplate) encodedRows(start, end int) []json.RawMessage {
	out := make([]json.RawMessage, 0, end-start)
	for i := start; i < end; i++ {
		if t.RawRows != nil {
			out = append(out, json.RawMessage(t.RawRows[i]))
			continue
		}
		b, err := json.Marshal(t.Data[i])
		if err != nil {
			log.Error().Err(err).Int("row", i).Str("sql", t.SQL).Msg("cannot encode mock row")
			continue
		}
		out = append(out, b)
	}
	return out
}

// MockActiveQuery is one running execution of a template.
type MockActiveQuery struct {
	ID        string
	Template  *MockQueryTemplate
	State     QueryState
	QueuedFor int
}

// MockPrestoServer is an httptest server speaking the statement protocol.
type MockPrestoServer struct {
	server *httptest.Server

	templates     map[string]*MockQueryTemplate
	activeQueries map[string]*MockActiveQuery
	statements    []string
	queriesMutex  sync.RWMutex

	// defaultLatency applies to templates without their own Latency.
	defaultLatency time.Duration

	queryIDCounter atomic.Int64
	today          string
}

// NewMockPrestoServer starts a mock coordinator. Close it when done.
func NewMockPrestoServer() *MockPrestoServer {
	mock := &MockPrestoServer{
		templates:     make(map[string]*MockQueryTemplate),
		activeQueries: make(map[string]*MockActiveQuery),
		today:         time.Now().Format("20060102"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/statement", mock.handleNewQuery)
	mux.HandleFunc("PUT /v1/statement/{queryId}", mock.handleQueryWithPreMintedID)
	mux.HandleFunc("GET /v1/statement/{status}/{queryId}/{batchId}", mock.handleFetchNextBatch)
	mux.HandleFunc("DELETE /v1/statement/{status}/{queryId}/{batchId}", mock.handleCancelQuery)
	mux.HandleFunc("GET /v1/query/{queryId}", mock.handleQueryInfo)
	mock.server = httptest.NewServer(mux)

	return mock
}

// AddQuery registers tmpl under its SQL text.
func (m *MockPrestoServer) AddQuery(tmpl *MockQueryTemplate) {
	m.queriesMutex.Lock()
	defer m.queriesMutex.Unlock()

	if rows := tmpl.rowCount(); rows < tmpl.DataBatches {
		tmpl.DataBatches = rows
	}
	if tmpl.QueueBatches < 1 {
		tmpl.QueueBatches = 1
	}
	m.templates[tmpl.SQL] = tmpl
}

// SetDefaultLatency sets the total latency of templates without their own.
func (m *MockPrestoServer) SetDefaultLatency(latency time.Duration) {
	m.defaultLatency = latency
}

// Statements returns every SQL text received, in arrival order.
func (m *MockPrestoServer) Statements() []string {
	m.queriesMutex.RLock()
	defer m.queriesMutex.RUnlock()
	return append([]string(nil), m.statements...)
}

// URL returns the base URL of the mock server.
func (m *MockPrestoServer) URL() string { return m.server.URL }

// Close shuts down the mock server.
func (m *MockPrestoServer) Close() { m.server.Close() }

func (m *MockPrestoServer) handleNewQuery(w http.ResponseWriter, r *http.Request) {
	m.startQuery(w, r, m.newQueryID())
}

func (m *MockPrestoServer) handleQueryWithPreMintedID(w http.ResponseWriter, r *http.Request) {
	m.startQuery(w, r, r.PathValue("queryId"))
}

// startQuery matches the body against the templates. Unknown SQL succeeds
// with a single varchar row.
func (m *MockPrestoServer) startQuery(w http.ResponseWriter, r *http.Request, queryID string) {
	body, _ := io.ReadAll(r.Body)
	sql := string(body)

	m.queriesMutex.Lock()
	m.statements = append(m.statements, sql)
	template, exists := m.templates[sql]
	if !exists {
		template = &MockQueryTemplate{
			SQL:          sql,
			DataBatches:  1,
			QueueBatches: 1,
			Columns:      []presto.Column{{Name: "result", Type: "varchar"}},
			Data:         [][]any{{"Query template not found; default success"}},
		}
	}
	m.activeQueries[queryID] = &MockActiveQuery{
		ID:       queryID,
		Template: template,
		State:    QueryStateQueued,
	}
	m.queriesMutex.Unlock()

	m.sendQueryResponse(w, queryID, 0)
}

func (m *MockPrestoServer) handleFetchNextBatch(w http.ResponseWriter, r *http.Request) {
	batchID, _ := strconv.Atoi(r.PathValue("batchId"))
	m.sendQueryResponse(w, r.PathValue("queryId"), batchID)
}

func (m *MockPrestoServer) handleCancelQuery(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("queryId")
	m.queriesMutex.Lock()
	if q, ok := m.activeQueries[id]; ok {
		q.State = QueryStateCancelled
	}
	m.queriesMutex.Unlock()
	m.sendQueryResponse(w, id, 0)
}

// handleQueryInfo serves the infoUri with a minimal body.
func (m *MockPrestoServer) handleQueryInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"queryId": r.PathValue("queryId")})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// sendQueryResponse writes the response for one poll of queryID. The
// template latency is spread evenly across all polls of the query.
func (m *MockPrestoServer) sendQueryResponse(w http.ResponseWriter, queryID string, batchID int) {
	m.queriesMutex.RLock()
	query, exists := m.activeQueries[queryID]
	if !exists {
		m.queriesMutex.RUnlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Query not found"})
		return
	}
	latency := m.defaultLatency
	if query.Template.Latency > 0 {
		latency = query.Template.Latency
	}
	dataBatches := query.Template.DataBatches
	queueBatches := query.Template.QueueBatches
	m.queriesMutex.RUnlock()

	if pause := latency / time.Duration(dataBatches+queueBatches); pause > 0 {
		time.Sleep(pause)
	}

	m.queriesMutex.Lock()
	defer m.queriesMutex.Unlock()
	query, exists = m.activeQueries[queryID]
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Query removed during processing"})
		return
	}

	if batchID == 0 {
		query.QueuedFor++
	}
	if query.QueuedFor >= queueBatches && query.State == QueryStateQueued {
		query.State = QueryStateRunning
	}
	hasMore := query.QueuedFor < queueBatches || batchID < dataBatches
	if !hasMore && query.State == QueryStateRunning {
		query.State = QueryStateFinished
		if query.Template.Error != nil {
			query.State = QueryStateFailed
		}
	}

	resp, err := presto.NewQueryResults(queryID, fmt.Sprintf("%s/v1/query/%s", m.server.URL, queryID), &presto.StatementStats{
		State:           query.State.String(),
		Queued:          query.State == QueryStateQueued,
		Scheduled:       query.State != QueryStateQueued,
		TotalSplits:     dataBatches,
		CompletedSplits: batchID,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	resp.Columns = query.Template.Columns
	resp.Error = query.Template.Error

	if hasMore {
		nextBatch := batchID + 1
		if query.QueuedFor < queueBatches {
			nextBatch = 0
		}
		nextUri := fmt.Sprintf("%s/v1/statement/%s/%s/%d?slug=%s",
			m.server.URL, query.State, queryID, nextBatch, generateMockSlug())
		resp.NextUri = &nextUri
	}

	if total := query.Template.rowCount(); batchID > 0 && dataBatches > 0 && total > 0 {
		perBatch := (total + dataBatches - 1) / dataBatches
		if start := (batchID - 1) * perBatch; start < total {
			resp.Data = query.Template.encodedRows(start, min(start+perBatch, total))
		}
	}

	if !hasMore && query.Template.UpdateType != "" {
		updateType, updateCount := query.Template.UpdateType, query.Template.UpdateCount
		resp.UpdateType = &updateType
		resp.UpdateCount = &updateCount
	}

	switch query.State {
	case QueryStateFinished, QueryStateCancelled, QueryStateFailed:
		delete(m.activeQueries, queryID)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (m *MockPrestoServer) newQueryID() string {
	return fmt.Sprintf("%s_%d", m.today, m.queryIDCounter.Add(1))
}

// generateMockSlug imitates the random slug of real nextUri links.
func generateMockSlug() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
