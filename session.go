package presto

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Session carries the per-connection state sent with every request:
// identity, catalog and schema, session properties and the open transaction.
// Sessions are safe for concurrent use.
type Session struct {
	client        *Client
	userInfo      *url.Userinfo
	basicAuth     string
	source        string
	catalog       string
	schema        string
	timezone      string
	clientInfo    string
	transactionId string
	sessionParams map[string]any
	clientTags    []string

	// requestOptions run on every request before per-call options
	requestOptions []RequestOption

	mu sync.RWMutex
}

// Clone returns a copy of the session bound to the same client. Later
// changes to either session do not affect the other.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	params := make(map[string]any, len(s.sessionParams))
	maps.Copy(params, s.sessionParams)

	return &Session{
		client:         s.client,
		userInfo:       s.userInfo,
		basicAuth:      s.basicAuth,
		source:         s.source,
		catalog:        s.catalog,
		schema:         s.schema,
		timezone:       s.timezone,
		clientInfo:     s.clientInfo,
		transactionId:  s.transactionId,
		sessionParams:  params,
		clientTags:     append([]string(nil), s.clientTags...),
		requestOptions: append([]RequestOption(nil), s.requestOptions...),
	}
}

func (s *Session) set(fn func()) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	return s
}

func (s *Session) Catalog(catalog string) *Session {
	return s.set(func() { s.catalog = catalog })
}

func (s *Session) Schema(schema string) *Session {
	return s.set(func() { s.schema = schema })
}

func (s *Session) User(user string) *Session {
	return s.set(func() { s.userInfo = url.User(user) })
}

func (s *Session) UserPassword(user, password string) *Session {
	return s.set(func() { s.userInfo = url.UserPassword(user, password) })
}

func (s *Session) TimeZone(tz string) *Session {
	return s.set(func() { s.timezone = tz })
}

func (s *Session) ClientInfo(info string) *Session {
	return s.set(func() { s.clientInfo = info })
}

// Source names the application in the X-Presto-Source header.
func (s *Session) Source(source string) *Session {
	return s.set(func() { s.source = source })
}

// SessionParam sets a session property; a nil value removes it.
func (s *Session) SessionParam(key string, value any) *Session {
	return s.set(func() {
		if value == nil {
			delete(s.sessionParams, key)
		} else {
			s.sessionParams[key] = value
		}
	})
}

func (s *Session) ClearSessionParams() *Session {
	return s.set(func() { s.sessionParams = make(map[string]any) })
}

func (s *Session) ClientTags(tags ...string) *Session {
	return s.set(func() { s.clientTags = tags })
}

func (s *Session) AppendClientTag(tag string) *Session {
	return s.set(func() { s.clientTags = append(s.clientTags, tag) })
}

// RequestOptions appends options applied to every request of this session,
// such as authentication headers.
func (s *Session) RequestOptions(opts ...RequestOption) *Session {
	return s.set(func() { s.requestOptions = append(s.requestOptions, opts...) })
}

// NewRequest builds a request against the client's server carrying the
// session headers. Session request options run first, then options.
//
// Parameters:
//   - method: The HTTP method
//   - urlStr: A path relative to the server URL, or an absolute URL
//   - body: SQL text as a string, anything else is sent as JSON; nil for none
//   - options: Request modifiers applied after the session's own
//
// Returns:
//   - *http.Request: The prepared request
//   - error: If the URL cannot be resolved or the body cannot be encoded
func (s *Session) NewRequest(method, urlStr string, body any, options ...RequestOption) (*http.Request, error) {
	u, err := s.client.prepareURL(urlStr)
	if err != nil {
		return nil, err
	}
	bodyReader, contentType, err := s.client.prepareRequestBody(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(method, u.String(), bodyReader)
	if err != nil {
		return nil, err
	}

	s.applyHeaders(req)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept-Encoding", ContentEncodingGzip)

	s.mu.RLock()
	persistent := s.requestOptions
	s.mu.RUnlock()
	for _, opt := range persistent {
		opt(req)
	}
	for _, opt := range options {
		opt(req)
	}
	return req, nil
}

func (s *Session) applyHeaders(req *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	header := func(name, value string) {
		if value != "" {
			req.Header.Set(s.client.CanonicalHeader(name), value)
		}
	}

	if s.userInfo != nil {
		header(UserHeader, s.userInfo.Username())
		if s.basicAuth != "" {
			req.Header.Set("Authorization", "Basic "+s.basicAuth)
		} else if pass, ok := s.userInfo.Password(); ok {
			req.SetBasicAuth(s.userInfo.Username(), pass)
		}
	}
	header(SourceHeader, s.source)
	header(CatalogHeader, s.catalog)
	header(SchemaHeader, s.schema)
	header(TimeZoneHeader, s.timezone)
	header(ClientInfoHeader, s.clientInfo)
	header(TransactionHeader, s.transactionId)
	if len(s.sessionParams) > 0 {
		header(SessionHeader, s.client.generateSessionHeader(s.sessionParams))
	}
	header(ClientTagHeader, strings.Join(s.clientTags, ","))
}

// Do sends req, retrying 503 responses and transient network errors with
// capped exponential backoff. A 200 response is decoded into v, a 204 is
// returned with no error, and any other status becomes an *ErrorResponse.
// Transaction headers on every response update the session.
//
// Parameters:
//   - ctx: Context for cancellation; it also bounds the retry waits
//   - req: The request to send; its body is replayed on retry
//   - v: The decode target, an io.Writer for raw bytes, or nil
//
// Returns:
//   - *http.Response: The last HTTP response, with its body consumed
//   - error: A transport error or an *ErrorResponse
func (s *Session) Do(ctx context.Context, req *http.Request, v any) (*http.Response, error) {
	req = req.WithContext(ctx)

	// Retries replay the body, so it must be re-readable.
	if req.Body != nil && req.GetBody == nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(bodyBytes)), nil
		}
	}

	backoff := newBackoff()
	for attempt := 1; attempt <= MaxRetryAttempts; attempt++ {
		resp, err := s.client.httpClient.Do(req)
		if err != nil {
			if !isRetryableNetError(err) {
				return nil, err
			}
			log.Debug().Err(err).Int("attempt", attempt).Msg("retrying on connection error")
		} else {
			s.updateTransactionState(resp)

			switch resp.StatusCode {
			case http.StatusOK:
				return resp, s.client.decodeResponseBody(resp, v)
			case http.StatusNoContent:
				resp.Body.Close()
				return resp, nil
			case http.StatusServiceUnavailable:
				if closeErr := resp.Body.Close(); closeErr != nil {
					log.Debug().Err(closeErr).Msg("failed to close response body")
				}
				log.Debug().Int("attempt", attempt).Msg("retrying on service unavailable")
			default:
				return resp, fmt.Errorf("presto server error: %w", NewErrorResponse(resp))
			}
		}

		if req.GetBody != nil {
			req.Body, _ = req.GetBody()
		}
		if err := backoff.wait(ctx); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("max retries exceeded")
}

// backoff doubles the wait after each retry up to MaxRetryDelay.
type backoff struct {
	delay time.Duration
}

func newBackoff() *backoff {
	return &backoff{delay: time.Second}
}

func (b *backoff) wait(ctx context.Context) error {
	timer := time.NewTimer(b.delay)
	defer timer.Stop()

	b.delay = min(b.delay*2, MaxRetryDelay)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isRetryableNetError reports whether err is a transient network failure.
// Cancellation and deadline errors are never retried.
func isRetryableNetError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func (s *Session) updateTransactionState(resp *http.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id := resp.Header.Get(s.client.CanonicalHeader(StartedTransactionHeader)); id != "" {
		s.transactionId = id
	} else if resp.Header.Get(s.client.CanonicalHeader(ClearTransactionHeader)) == "true" {
		s.transactionId = ""
	}
}
