package vaultik

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tfs "gotest.tools/v3/fs"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://127.0.0.1:8200", cfg.Address)
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.False(t, cfg.StrictHTTP)
}

// clearVaultEnv blanks every variable ReadEnvironment looks at, so ambient
// VAULT_* settings on the machine running the tests cannot leak in.
func clearVaultEnv(t *testing.T) {
	t.Helper()

	keys := []string{
		EnvVaultAddress, EnvVaultToken, EnvVaultNamespace, EnvVaultCACert,
		EnvVaultCAPath, EnvVaultClientCert, EnvVaultClientKey,
		EnvVaultTLSServerName, EnvVaultSkipVerify, EnvVaultClientTimeout,
		EnvVaultProxyAddr, EnvVaultToken + "_FILE", EnvVaultNamespace + "_FILE",
	}

	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestReadEnvironment(t *testing.T) {
	clearVaultEnv(t)

	t.Setenv(EnvVaultAddress, "https://vault.internal:8200")
	t.Setenv(EnvVaultToken, "env-token")
	t.Setenv(EnvVaultNamespace, "team/a")
	t.Setenv(EnvVaultClientTimeout, "90")
	t.Setenv(EnvVaultSkipVerify, "true")
	t.Setenv(EnvVaultProxyAddr, "http://proxy.internal:3128")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ReadEnvironment())

	assert.Equal(t, "https://vault.internal:8200", cfg.Address)
	assert.Equal(t, "env-token", cfg.Token)
	assert.Equal(t, "team/a", cfg.Namespace)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, "http://proxy.internal:3128", cfg.ProxyURL)

	require.NotNil(t, cfg.TLS)
	assert.True(t, cfg.TLS.Insecure)
}

func TestReadEnvironmentDurationString(t *testing.T) {
	clearVaultEnv(t)

	t.Setenv(EnvVaultClientTimeout, "2m30s")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ReadEnvironment())
	assert.Equal(t, 150*time.Second, cfg.Timeout)

	t.Setenv(EnvVaultClientTimeout, "junk")
	assert.Error(t, cfg.ReadEnvironment())
}

func TestReadEnvironmentLeavesUnsetAlone(t *testing.T) {
	clearVaultEnv(t)

	cfg := &Config{Address: "https://configured:8200", Token: "configured"}
	require.NoError(t, cfg.ReadEnvironment())

	assert.Equal(t, "https://configured:8200", cfg.Address)
	assert.Equal(t, "configured", cfg.Token)
	assert.Nil(t, cfg.TLS)
}

func TestReadEnvironmentTokenFile(t *testing.T) {
	clearVaultEnv(t)

	fsys := fstest.MapFS{
		"run/secrets/vault-token": &fstest.MapFile{Data: []byte("file-token\n")},
	}

	t.Setenv(EnvVaultToken+"_FILE", "/run/secrets/vault-token")

	cfg := DefaultConfig()
	require.NoError(t, cfg.readEnvironment(fsys))
	assert.Equal(t, "file-token", cfg.Token)
}

// writeTestCA generates a throwaway self-signed CA and writes it as a PEM
// file, returning the file path.
func writeTestCA(t *testing.T) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "vaultik test CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	dir := tfs.NewDir(t, "vaultik-ca", tfs.WithFile("ca.pem", string(pemBytes)))
	t.Cleanup(dir.Remove)

	return dir.Join("ca.pem")
}

func TestHTTPClientCACert(t *testing.T) {
	cfg := &Config{
		Address: "https://vault.example.com",
		TLS:     &TLSConfig{CACert: writeTestCA(t)},
	}

	client, err := cfg.httpClient()
	require.NoError(t, err)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)

	require.NotNil(t, transport.TLSClientConfig)
	assert.NotNil(t, transport.TLSClientConfig.RootCAs)
	assert.False(t, transport.TLSClientConfig.InsecureSkipVerify)
}

func TestHTTPClientCACertMissingFile(t *testing.T) {
	cfg := &Config{
		Address: "https://vault.example.com",
		TLS:     &TLSConfig{CACert: "/nonexistent/ca.pem"},
	}

	_, err := cfg.httpClient()
	require.Error(t, err)
	assert.ErrorContains(t, err, "configure CA certificates")
}

func TestHTTPClientClientCertNeedsBothHalves(t *testing.T) {
	cfg := &Config{
		Address: "https://vault.example.com",
		TLS:     &TLSConfig{ClientCert: "/some/cert.pem"},
	}

	_, err := cfg.httpClient()
	require.Error(t, err)
	assert.ErrorContains(t, err, "both client certificate and key")
}

func TestHTTPClientProxyAndRedirects(t *testing.T) {
	cfg := &Config{
		Address:          "https://vault.example.com",
		ProxyURL:         "http://proxy.internal:3128",
		DisableRedirects: true,
		Timeout:          30 * time.Second,
	}

	client, err := cfg.httpClient()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, client.Timeout)
	assert.NotNil(t, client.CheckRedirect)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.NotNil(t, transport.Proxy)

	cfg.ProxyURL = "://not-a-url"
	_, err = cfg.httpClient()
	assert.Error(t, err)
}

func TestHTTPClientOverride(t *testing.T) {
	override := &http.Client{}
	cfg := &Config{Address: "https://vault.example.com", HTTPClient: override}

	client, err := cfg.httpClient()
	require.NoError(t, err)
	assert.Same(t, override, client)
}
