package presto

import (
	"bytes"
	"compress/gzip"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ilge/presto-go/prestotype"
	"github.com/rs/zerolog/log"
)

// Presto/Trino protocol headers
const (
	UserHeader               = "X-Presto-User"
	SourceHeader             = "X-Presto-Source"
	CatalogHeader            = "X-Presto-Catalog"
	SchemaHeader             = "X-Presto-Schema"
	SessionHeader            = "X-Presto-Session"
	TransactionHeader        = "X-Presto-Transaction-Id"
	StartedTransactionHeader = "X-Presto-Started-Transaction-Id"
	ClearTransactionHeader   = "X-Presto-Clear-Transaction-Id"
	ClientInfoHeader         = "X-Presto-Client-Info"
	ClientTagHeader          = "X-Presto-Client-Tags"
	TimeZoneHeader           = "X-Presto-Time-Zone"

	DefaultUser         = "presto-go-client"
	ContentEncodingGzip = "gzip"
	MaxRetryAttempts    = 10
	MaxRetryDelay       = 30 * time.Second
)

// RequestOption modifies a single outgoing request.
type RequestOption func(*http.Request)

// defaultNormalizer serves results that are not linked to a client.
var defaultNormalizer = prestotype.NewNormalizer()

// Client owns the transport to one coordinator. Its embedded Session is the
// default session; NewSession derives independent ones.
type Client struct {
	Session
	httpClient *http.Client
	serverUrl  *url.URL
	isTrino    bool
	forceHTTPS bool

	// normalizer reshapes result rows for every session of this client
	normalizer *prestotype.Normalizer
}

// NewClient creates a client for the coordinator at serverUrl.
//
// Parameters:
//   - serverUrl: The coordinator base URL, e.g. "http://localhost:8080"
//   - basicAuth: An optional value sent verbatim as the Basic credentials
//
// Returns:
//   - *Client: The client, with the default normalizer
//   - error: If serverUrl cannot be parsed
func NewClient(serverUrl string, basicAuth ...string) (*Client, error) {
	parsedUrl, err := url.Parse(serverUrl)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	c := &Client{
		httpClient: &http.Client{},
		serverUrl:  parsedUrl,
		normalizer: prestotype.NewNormalizer(),
		Session: Session{
			userInfo:      url.User(DefaultUser),
			sessionParams: make(map[string]any),
		},
	}
	c.Session.client = c
	if len(basicAuth) > 0 {
		c.basicAuth = basicAuth[0]
	}
	return c, nil
}

// NewSession returns an independent copy of the default session.
func (c *Client) NewSession() *Session {
	return c.Session.Clone()
}

// IsTrino switches protocol headers to their X-Trino- form.
func (c *Client) IsTrino(isTrino bool) *Client {
	c.isTrino = isTrino
	return c
}

// ForceHTTPS upgrades http URLs, including the nextUri links the server
// returns, to https.
func (c *Client) ForceHTTPS(force bool) *Client {
	c.forceHTTPS = force
	return c
}

// HTTPClient replaces the underlying HTTP client.
func (c *Client) HTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// TLSConfig installs a transport using cfg for TLS connections.
func (c *Client) TLSConfig(cfg *tls.Config) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = cfg
	c.httpClient.Transport = transport
	return c
}

// Normalizer replaces the normalizer used to reshape result rows, for
// example to share a signature cache or lower the nesting limit. A nil
// normalizer restores the default.
func (c *Client) Normalizer(n *prestotype.Normalizer) *Client {
	if n == nil {
		n = prestotype.NewNormalizer()
	}
	c.normalizer = n
	return c
}

// TypeNormalizer returns the normalizer used to reshape result rows.
func (c *Client) TypeNormalizer() *prestotype.Normalizer {
	return c.normalizer
}

// CanonicalHeader maps an X-Presto- header name to X-Trino- in Trino mode.
func (c *Client) CanonicalHeader(name string) string {
	if c.isTrino {
		return strings.Replace(name, "X-Presto", "X-Trino", 1)
	}
	return name
}

func (c *Client) prepareURL(urlStr string) (*url.URL, error) {
	u, err := c.serverUrl.Parse(urlStr)
	if err != nil {
		return nil, err
	}
	if c.forceHTTPS && u.Scheme == "http" {
		u.Scheme = "https"
	}
	return u, nil
}

// prepareRequestBody sends strings as SQL text and anything else as JSON.
func (c *Client) prepareRequestBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return strings.NewReader(b), "text/plain", nil
	}
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		return nil, "", err
	}
	return buf, "application/json", nil
}

// generateSessionHeader renders session properties as k=v pairs in key order.
func (c *Client) generateSessionHeader(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + url.QueryEscape(fmt.Sprint(params[k]))
	}
	return strings.Join(pairs, ",")
}

// decodeResponseBody reads resp into v and closes the body. An io.Writer
// receives the raw bytes; anything else is decoded as JSON. An empty body
// leaves v untouched.
func (c *Client) decodeResponseBody(resp *http.Response, v any) (err error) {
	defer func() {
		if closeErr := resp.Body.Close(); err == nil {
			err = closeErr
		}
	}()

	if v == nil {
		return nil
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == ContentEncodingGzip {
		gz, gzErr := gzip.NewReader(resp.Body)
		if gzErr != nil {
			return fmt.Errorf("failed to create gzip reader: %w", gzErr)
		}
		defer func() {
			if cErr := gz.Close(); cErr != nil {
				log.Debug().Err(cErr).Msg("failed to close gzip reader")
			}
		}()
		reader = gz
	}

	if w, ok := v.(io.Writer); ok {
		_, err = io.Copy(w, reader)
		return err
	}

	if err = json.NewDecoder(reader).Decode(v); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil
}
