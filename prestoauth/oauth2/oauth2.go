// Package oauth2 authenticates presto clients with bearer tokens, either a
// fixed token or one obtained and refreshed through the OAuth2 client
// credentials flow.
package oauth2

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	presto "github.com/ilge/presto-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// NewStaticTokenOption sends token as the bearer credentials of every
// request.
func NewStaticTokenOption(token string) presto.RequestOption {
	return TokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
}

// Config is the client credentials grant to run against TokenURL.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

func (c *Config) validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "ClientID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "ClientSecret")
	}
	if c.TokenURL == "" {
		missing = append(missing, "TokenURL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("oauth2: %s is required", strings.Join(missing, ", "))
	}
	return nil
}

// NewRequestOption returns an option that authenticates with tokens from
// the client credentials flow. Tokens are cached until they expire.
func NewRequestOption(cfg Config) (presto.RequestOption, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	return TokenSource(cc.TokenSource(context.Background())), nil
}

// TokenSource authenticates every request with a token from ts. A request
// for which no token can be obtained goes out without credentials and the
// coordinator rejects it.
func TokenSource(ts oauth2.TokenSource) presto.RequestOption {
	return func(req *http.Request) {
		token, err := ts.Token()
		if err != nil {
			log.Warn().Err(err).Str("url", req.URL.Redacted()).Msg("cannot obtain oauth2 token")
			return
		}
		token.SetAuthHeader(req)
	}
}

// DSN parameters read by NewConnector.
const (
	ParamAccessToken  = "access_token"
	ParamClientID     = "oauth2_client_id"
	ParamClientSecret = "oauth2_client_secret"
	ParamTokenURL     = "oauth2_token_url"
	ParamScopes       = "oauth2_scopes"
)

// OptionFromParams builds the request option the parameters describe: a
// static token when access_token is set, else the client credentials flow
// when oauth2_client_id is set. It returns nil when neither is present.
func OptionFromParams(q url.Values) (presto.RequestOption, error) {
	if token := q.Get(ParamAccessToken); token != "" {
		return NewStaticTokenOption(token), nil
	}
	if q.Get(ParamClientID) == "" {
		if q.Get(ParamClientSecret) != "" || q.Get(ParamTokenURL) != "" {
			return nil, errors.New("oauth2: ClientID is required")
		}
		return nil, nil
	}
	cfg := Config{
		ClientID:     q.Get(ParamClientID),
		ClientSecret: q.Get(ParamClientSecret),
		TokenURL:     q.Get(ParamTokenURL),
	}
	for _, scope := range strings.Split(q.Get(ParamScopes), ",") {
		if scope = strings.TrimSpace(scope); scope != "" {
			cfg.Scopes = append(cfg.Scopes, scope)
		}
	}
	return NewRequestOption(cfg)
}

// splitDSN removes the oauth2 parameters from dsn and returns them
// separately.
func splitDSN(dsn string) (url.Values, string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, "", fmt.Errorf("oauth2: invalid DSN: %w", err)
	}
	q := u.Query()
	params := url.Values{}
	for _, key := range []string{ParamAccessToken, ParamClientID, ParamClientSecret, ParamTokenURL, ParamScopes} {
		if v, ok := q[key]; ok {
			params[key] = v
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	return params, u.String(), nil
}

// NewConnector is presto.NewConnector with bearer authentication configured
// from the oauth2 DSN parameters, which are removed before the DSN is
// parsed as usual.
func NewConnector(dsn string, opts ...presto.ConnectorOption) (driver.Connector, error) {
	params, cleanDSN, err := splitDSN(dsn)
	if err != nil {
		return nil, err
	}
	authOpt, err := OptionFromParams(params)
	if err != nil {
		return nil, err
	}
	if authOpt != nil {
		opts = append([]presto.ConnectorOption{presto.WithSessionSetup(func(s *presto.Session) {
			s.RequestOptions(authOpt)
		})}, opts...)
	}
	return presto.NewConnector(cleanDSN, opts...)
}
