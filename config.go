package vaultik

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-rootcerts"
	"github.com/hashicorp/go-secure-stdlib/parseutil"
	"github.com/sirupsen/logrus"

	"github.com/vaultik/vaultik/internal/env"
)

// DefaultAddress is used when no address is configured.
const DefaultAddress = "https://127.0.0.1:8200"

// Environment variables read by ReadEnvironment. Each also resolves through
// a _FILE-suffixed variant naming a file to read the value from.
const (
	EnvVaultAddress       = "VAULT_ADDR"
	EnvVaultToken         = "VAULT_TOKEN"
	EnvVaultNamespace     = "VAULT_NAMESPACE"
	EnvVaultCACert        = "VAULT_CACERT"
	EnvVaultCAPath        = "VAULT_CAPATH"
	EnvVaultClientCert    = "VAULT_CLIENT_CERT"
	EnvVaultClientKey     = "VAULT_CLIENT_KEY"
	EnvVaultTLSServerName = "VAULT_TLS_SERVER_NAME"
	EnvVaultSkipVerify    = "VAULT_SKIP_VERIFY"
	EnvVaultClientTimeout = "VAULT_CLIENT_TIMEOUT"
	EnvVaultProxyAddr     = "VAULT_PROXY_ADDR"
)

// Config carries everything needed to construct an adapter. Each adapter
// owns the state built from its Config; reusing a Config to build more
// adapters is fine, but the adapters never share that state.
type Config struct {
	// HTTPClient overrides the built transport entirely. When set, the TLS,
	// proxy, timeout, and redirect settings here are ignored.
	HTTPClient *http.Client

	// Logger, when set, receives one debug line per round trip.
	Logger logrus.FieldLogger

	// TLS adjusts server verification and mutual TLS.
	TLS *TLSConfig

	// Address is the base URL of the service.
	Address string

	// Namespace scopes every request to a tenancy namespace.
	Namespace string

	// Token is the initial authentication token. Login replaces it.
	Token string

	// ProxyURL routes requests through a proxy. Empty means the
	// environment's proxy settings apply.
	ProxyURL string

	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration

	// DisableRedirects stops the transport from following redirects.
	DisableRedirects bool

	// StrictHTTP sends LIST requests as GET plus a list=true parameter, for
	// intermediaries that reject non-standard verbs.
	StrictHTTP bool

	// DisableRequestHeader drops the X-Vault-Request marker header.
	DisableRequestHeader bool

	// IgnoreErrors returns failing responses as-is instead of classifying
	// them into errors. IgnoreErrorStatus does the same for one request.
	IgnoreErrors bool
}

// TLSConfig adjusts how the adapter verifies the server it talks to.
type TLSConfig struct {
	// CACert, CAPath, and CACertBytes supply CA material used to verify the
	// server certificate: a PEM file, a directory of PEM files, or literal
	// PEM bytes.
	CACert      string
	CAPath      string
	CACertBytes []byte

	// ClientCert and ClientKey enable mutual TLS. Both must be set together.
	ClientCert string
	ClientKey  string

	// ServerName overrides the name used for SNI and verification.
	ServerName string

	// Insecure disables certificate verification.
	Insecure bool
}

// DefaultConfig returns a Config pointing at the default address with a
// 60-second timeout. Call ReadEnvironment to layer VAULT_* variables on top.
func DefaultConfig() *Config {
	return &Config{
		Address: DefaultAddress,
		Timeout: time.Minute,
	}
}

// ReadEnvironment overrides c's fields from the VAULT_* environment
// variables that are set, leaving the rest untouched.
func (c *Config) ReadEnvironment() error {
	return c.readEnvironment(os.DirFS("/"))
}

func (c *Config) readEnvironment(fsys fs.FS) error {
	if addr := env.GetenvFS(fsys, EnvVaultAddress); addr != "" {
		c.Address = addr
	}

	if token := env.GetenvFS(fsys, EnvVaultToken); token != "" {
		c.Token = token
	}

	if ns := env.GetenvFS(fsys, EnvVaultNamespace); ns != "" {
		c.Namespace = ns
	}

	if proxy := env.GetenvFS(fsys, EnvVaultProxyAddr); proxy != "" {
		c.ProxyURL = proxy
	}

	if timeout := env.GetenvFS(fsys, EnvVaultClientTimeout); timeout != "" {
		d, err := parseutil.ParseDurationSecond(timeout)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvVaultClientTimeout, err)
		}

		c.Timeout = d
	}

	return c.readTLSEnvironment(fsys)
}

func (c *Config) readTLSEnvironment(fsys fs.FS) error {
	caCert := env.GetenvFS(fsys, EnvVaultCACert)
	caPath := env.GetenvFS(fsys, EnvVaultCAPath)
	clientCert := env.GetenvFS(fsys, EnvVaultClientCert)
	clientKey := env.GetenvFS(fsys, EnvVaultClientKey)
	serverName := env.GetenvFS(fsys, EnvVaultTLSServerName)
	skipVerify := env.GetenvFS(fsys, EnvVaultSkipVerify)

	if caCert == "" && caPath == "" && clientCert == "" && clientKey == "" &&
		serverName == "" && skipVerify == "" {
		return nil
	}

	if c.TLS == nil {
		c.TLS = &TLSConfig{}
	}

	if caCert != "" {
		c.TLS.CACert = caCert
	}

	if caPath != "" {
		c.TLS.CAPath = caPath
	}

	if clientCert != "" {
		c.TLS.ClientCert = clientCert
	}

	if clientKey != "" {
		c.TLS.ClientKey = clientKey
	}

	if serverName != "" {
		c.TLS.ServerName = serverName
	}

	if skipVerify != "" {
		insecure, err := parseutil.ParseBool(skipVerify)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvVaultSkipVerify, err)
		}

		c.TLS.Insecure = insecure
	}

	return nil
}

// httpClient builds the adapter's HTTP client: a pooled transport with the
// configured TLS, proxy, redirect, and timeout behavior.
func (c *Config) httpClient() (*http.Client, error) {
	if c.HTTPClient != nil {
		return c.HTTPClient, nil
	}

	transport := cleanhttp.DefaultPooledTransport()

	if c.TLS != nil {
		tlsCfg, err := c.TLS.tlsConfig()
		if err != nil {
			return nil, err
		}

		transport.TLSClientConfig = tlsCfg
	}

	if c.ProxyURL != "" {
		proxy, err := url.Parse(c.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy URL: %w", err)
		}

		transport.Proxy = http.ProxyURL(proxy)
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   c.Timeout,
	}

	if c.DisableRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return client, nil
}

func (t *TLSConfig) tlsConfig() (*tls.Config, error) {
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         t.ServerName,
		InsecureSkipVerify: t.Insecure, //nolint:gosec
	}

	switch {
	case t.ClientCert != "" && t.ClientKey != "":
		cert, err := tls.LoadX509KeyPair(t.ClientCert, t.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}

		tlsCfg.Certificates = []tls.Certificate{cert}
	case t.ClientCert != "" || t.ClientKey != "":
		return nil, errors.New("both client certificate and key must be set")
	}

	err := rootcerts.ConfigureTLS(tlsCfg, &rootcerts.Config{
		CAFile:        t.CACert,
		CAPath:        t.CAPath,
		CACertificate: t.CACertBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("configure CA certificates: %w", err)
	}

	return tlsCfg, nil
}
