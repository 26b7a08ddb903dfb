package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ilge/presto-go"
	"github.com/ilge/presto-go/prestoauth/kerberos"
	"github.com/ilge/presto-go/prestoauth/oauth2"
	"gopkg.in/yaml.v3"
)

// Config holds connection defaults for the query command. Flags override
// the values read from the file.
type Config struct {
	Server   string            `yaml:"server"`
	Trino    bool              `yaml:"trino"`
	User     string            `yaml:"user"`
	Source   string            `yaml:"source"`
	Catalog  string            `yaml:"catalog"`
	Schema   string            `yaml:"schema"`
	Session  map[string]string `yaml:"session"`
	Token    string            `yaml:"token"`
	OAuth2   OAuth2Config      `yaml:"oauth2"`
	Kerberos KerberosConfig    `yaml:"kerberos"`
}

// OAuth2Config is the client credentials grant used when no token is set.
type OAuth2Config struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	TokenURL     string   `yaml:"token_url"`
	Scopes       []string `yaml:"scopes"`
}

// KerberosConfig enables SPNEGO authentication when a keytab is set.
type KerberosConfig struct {
	Keytab     string `yaml:"keytab"`
	Principal  string `yaml:"principal"`
	Realm      string `yaml:"realm"`
	Config     string `yaml:"config"`
	ServiceSPN string `yaml:"service_spn"`
}

// NewConfig returns the defaults used without a config file.
func NewConfig() *Config {
	return &Config{
		Server: "http://localhost:8080",
		User:   presto.DefaultUser,
		Source: "prestotype",
	}
}

// LoadConfig reads path over the defaults. An empty path yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// authOption returns the request option for the configured credentials,
// or nil when none are configured. A bearer token wins over the client
// credentials flow, which wins over Kerberos. The closer is non-nil only
// for Kerberos.
func (c *Config) authOption() (presto.RequestOption, io.Closer, error) {
	switch {
	case c.Token != "":
		return oauth2.NewStaticTokenOption(c.Token), nil, nil
	case c.OAuth2.ClientID != "":
		opt, err := oauth2.NewRequestOption(oauth2.Config{
			ClientID:     c.OAuth2.ClientID,
			ClientSecret: c.OAuth2.ClientSecret,
			TokenURL:     c.OAuth2.TokenURL,
			Scopes:       c.OAuth2.Scopes,
		})
		return opt, nil, err
	case c.Kerberos.Keytab != "":
		return kerberos.NewRequestOption(kerberos.Config{
			KeytabPath: c.Kerberos.Keytab,
			Principal:  c.Kerberos.Principal,
			Realm:      c.Kerberos.Realm,
			ConfigPath: c.Kerberos.Config,
			ServiceSPN: c.Kerberos.ServiceSPN,
		})
	}
	return nil, nil, nil
}

func override(dst *string, flag string) {
	if flag != "" {
		*dst = flag
	}
}
