// Package kerberos authenticates presto clients with Kerberos/SPNEGO. It
// lives apart from the root package so only its importers pull in gokrb5.
package kerberos

import (
	"database/sql/driver"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	presto "github.com/ilge/presto-go"
	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/spnego"
	"github.com/rs/zerolog/log"
)

// Config holds Kerberos authentication parameters.
type Config struct {
	KeytabPath string // path to the .keytab file
	Principal  string // "user" or "user@EXAMPLE.COM"
	Realm      string // used when Principal carries no realm
	ConfigPath string // path to krb5.conf
	ServiceSPN string // defaults to "HTTP/<coordinator host>"
}

func (c *Config) validate() error {
	var missing []string
	if c.KeytabPath == "" {
		missing = append(missing, "KeytabPath")
	}
	if c.Principal == "" {
		missing = append(missing, "Principal")
	}
	if c.Realm == "" {
		missing = append(missing, "Realm")
	}
	if c.ConfigPath == "" {
		missing = append(missing, "ConfigPath")
	}
	if len(missing) > 0 {
		return fmt.Errorf("kerberos: %s is required", strings.Join(missing, ", "))
	}
	return nil
}

// principal splits Principal into user name and realm. The configured
// Realm applies when Principal has no "@".
func (c *Config) principal() (string, string) {
	if idx := strings.LastIndex(c.Principal, "@"); idx >= 0 {
		return c.Principal[:idx], c.Principal[idx+1:]
	}
	return c.Principal, c.Realm
}

// spn returns the service principal for requests to host.
func (c *Config) spn(host string) string {
	if c.ServiceSPN != "" {
		return c.ServiceSPN
	}
	return "HTTP/" + host
}

type krbCloser struct {
	cl *client.Client
}

func (k *krbCloser) Close() error {
	k.cl.Destroy()
	return nil
}

// NewRequestOption logs in with the keytab and returns an option that sets
// the SPNEGO Negotiate header on every request.
//
// Parameters:
//   - cfg: keytab, principal and krb5.conf locations
//
// Returns:
//   - presto.RequestOption: the option to install with Session.RequestOptions
//   - io.Closer: destroys the Kerberos client; call it when done
//   - error: on invalid configuration or failed login
func NewRequestOption(cfg Config) (presto.RequestOption, io.Closer, error) {
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}

	kt, err := keytab.Load(cfg.KeytabPath)
	if err != nil {
		return nil, nil, fmt.Errorf("kerberos: failed to load keytab %q: %w", cfg.KeytabPath, err)
	}
	krb5Conf, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("kerberos: failed to load config %q: %w", cfg.ConfigPath, err)
	}

	username, realm := cfg.principal()
	cl := client.NewWithKeytab(username, realm, kt, krb5Conf)
	if err := cl.Login(); err != nil {
		return nil, nil, fmt.Errorf("kerberos: login failed: %w", err)
	}

	opt := func(req *http.Request) {
		// A request without the header is rejected with 401 by the coordinator.
		if err := spnego.SetSPNEGOHeader(cl, req, cfg.spn(req.URL.Hostname())); err != nil {
			log.Warn().Err(err).Str("url", req.URL.Redacted()).Msg("cannot set SPNEGO header")
		}
	}
	return opt, &krbCloser{cl: cl}, nil
}

// DSN parameters read by NewConnector.
const (
	ParamKeytab     = "kerberos_keytab"
	ParamPrincipal  = "kerberos_principal"
	ParamRealm      = "kerberos_realm"
	ParamConfig     = "kerberos_config"
	ParamServiceSPN = "kerberos_service_spn"
)

var dsnParams = []string{ParamKeytab, ParamPrincipal, ParamRealm, ParamConfig, ParamServiceSPN}

// splitDSN extracts the Kerberos parameters from dsn and returns the
// config and the DSN without them.
func splitDSN(dsn string) (*Config, string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, "", fmt.Errorf("kerberos: invalid DSN: %w", err)
	}
	q := u.Query()
	cfg := &Config{
		KeytabPath: q.Get(ParamKeytab),
		Principal:  q.Get(ParamPrincipal),
		Realm:      q.Get(ParamRealm),
		ConfigPath: q.Get(ParamConfig),
		ServiceSPN: q.Get(ParamServiceSPN),
	}
	for _, key := range dsnParams {
		q.Del(key)
	}
	u.RawQuery = q.Encode()
	return cfg, u.String(), nil
}

// NewConnector is presto.NewConnector with SPNEGO authentication configured
// from the kerberos_* DSN parameters. The returned io.Closer destroys the
// Kerberos client; the connector is unusable after it is called.
func NewConnector(dsn string, opts ...presto.ConnectorOption) (driver.Connector, io.Closer, error) {
	cfg, cleanDSN, err := splitDSN(dsn)
	if err != nil {
		return nil, nil, err
	}
	opt, closer, err := NewRequestOption(*cfg)
	if err != nil {
		return nil, nil, err
	}

	opts = append([]presto.ConnectorOption{presto.WithSessionSetup(func(s *presto.Session) {
		s.RequestOptions(opt)
	})}, opts...)
	connector, err := presto.NewConnector(cleanDSN, opts...)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return connector, closer, nil
}
