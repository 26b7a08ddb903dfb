package presto

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
)

// requestQueryResults sends req and decodes the statement response. A 204
// reply, which coordinators use to acknowledge a cancel, yields nil results
// and no error.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - req: The prepared statement request
//
// Returns:
//   - *QueryResults: The validated results, linked to this session
//   - *http.Response: The raw HTTP response
//   - error: A transport error, a validation error, or the *QueryError the
//     server reported (returned together with the results)
func (s *Session) requestQueryResults(ctx context.Context, req *http.Request) (*QueryResults, *http.Response, error) {
	qr := new(QueryResults)
	resp, err := s.Do(ctx, req, qr)
	if err != nil {
		return nil, resp, err
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, resp, nil
	}
	if err := qr.Validate(); err != nil {
		return nil, resp, err
	}
	qr.session = s

	for _, w := range qr.Warnings {
		log.Warn().Str("query_id", qr.Id).Str("warning", w.WarningCode.Name).Msg(w.Message)
	}
	if qr.Error != nil {
		return qr, resp, qr.Error
	}
	return qr, resp, nil
}

// Query submits a statement. The returned results hold the column metadata
// once the server has it and possibly the first batch of rows; use
// FetchNextBatch or Drain for the rest.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - query: The SQL text
//   - opts: Optional request modifiers
//
// Returns:
//   - *QueryResults: The first response of the query
//   - *http.Response: The raw HTTP response
//   - error: Any error that occurred, including a *QueryError
//
//	results, _, err := session.Query(ctx, "SELECT * FROM orders LIMIT 100")
//	if err != nil {
//	    return err
//	}
//	for results.HasMoreBatch() {
//	    if err := results.FetchNextBatch(ctx); err != nil {
//	        return err
//	    }
//	    rows, err := results.Rows()
//	    // ...
//	}
func (s *Session) Query(ctx context.Context, query string, opts ...RequestOption) (*QueryResults, *http.Response, error) {
	req, err := s.NewRequest(http.MethodPost, "v1/statement", query, opts...)
	if err != nil {
		return nil, nil, err
	}
	return s.requestQueryResults(ctx, req)
}

// QueryWithPreMintedID submits a statement under a caller-chosen query ID so
// it can be tracked or cancelled before the first response arrives. An empty
// queryId falls back to Query.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - query: The SQL text
//   - queryId: The pre-assigned query ID
//   - slug: The slug the coordinator issued along with the ID
//   - opts: Optional request modifiers
//
// Returns:
//   - *QueryResults: The first response of the query
//   - *http.Response: The raw HTTP response
//   - error: Any error that occurred
func (s *Session) QueryWithPreMintedID(ctx context.Context, query, queryId, slug string, opts ...RequestOption) (*QueryResults, *http.Response, error) {
	if queryId == "" {
		return s.Query(ctx, query, opts...)
	}
	path := fmt.Sprintf("v1/statement/%s?slug=%s", url.PathEscape(queryId), url.QueryEscape(slug))
	req, err := s.NewRequest(http.MethodPut, path, query, opts...)
	if err != nil {
		return nil, nil, err
	}
	return s.requestQueryResults(ctx, req)
}

// FetchNextBatch polls nextUri, as returned in QueryResults.NextUri.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - nextUri: The link from the previous response
//   - opts: Optional request modifiers
//
// Returns:
//   - *QueryResults: The next response, possibly with another batch of rows
//   - *http.Response: The raw HTTP response
//   - error: Any error that occurred
func (s *Session) FetchNextBatch(ctx context.Context, nextUri string, opts ...RequestOption) (*QueryResults, *http.Response, error) {
	req, err := s.NewRequest(http.MethodGet, nextUri, nil, opts...)
	if err != nil {
		return nil, nil, err
	}
	return s.requestQueryResults(ctx, req)
}

// CancelQuery cancels the statement behind nextUri.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - nextUri: The link from the latest response
//   - opts: Optional request modifiers
//
// Returns:
//   - *QueryResults: The final state, or nil when the server acknowledges
//     with 204 No Content
//   - *http.Response: The raw HTTP response
//   - error: Any error that occurred
func (s *Session) CancelQuery(ctx context.Context, nextUri string, opts ...RequestOption) (*QueryResults, *http.Response, error) {
	req, err := s.NewRequest(http.MethodDelete, nextUri, nil, opts...)
	if err != nil {
		return nil, nil, err
	}
	return s.requestQueryResults(ctx, req)
}
