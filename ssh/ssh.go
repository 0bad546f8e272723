// Package ssh manages the SSH secrets engine: named keys, roles, one-time
// and dynamic credentials, and the certificate authority used for key
// signing. All calls go through a vaultik.Client; the mount path is
// configurable and defaults to DefaultMount.
package ssh

import (
	"context"
	"path"
	"strings"

	"github.com/hashicorp/go-secure-stdlib/strutil"

	"github.com/vaultik/vaultik"
)

// DefaultMount is the path the engine is mounted at unless WithMount says
// otherwise.
const DefaultMount = "ssh"

// Client calls the SSH engine endpoints of one mount.
type Client struct {
	vault *vaultik.Client
	mount string
}

// Option adjusts a Client built by New.
type Option interface {
	apply(*Client)
}

type optionFunc func(*Client)

func (f optionFunc) apply(c *Client) { f(c) }

// WithMount sets the path the engine is mounted at.
func WithMount(mount string) Option {
	return optionFunc(func(c *Client) {
		if mount != "" {
			c.mount = mount
		}
	})
}

// New returns a Client for the SSH engine reached through vault.
func New(vault *vaultik.Client, opts ...Option) *Client {
	c := &Client{vault: vault, mount: DefaultMount}

	for _, o := range opts {
		o.apply(c)
	}

	return c
}

// Role holds the configurable fields of a role. Zero values are omitted from
// the request, leaving the server's defaults in place: port 22, 1024 key
// bits, and so on.
type Role struct {
	// Key names a registered key for dynamic roles.
	Key string `json:"key,omitempty"`

	// KeyType selects the credential type: "otp", "dynamic", or "ca".
	KeyType string `json:"key_type,omitempty"`

	AdminUser       string `json:"admin_user,omitempty"`
	DefaultUser     string `json:"default_user,omitempty"`
	CIDRList        string `json:"cidr_list,omitempty"`
	ExcludeCIDRList string `json:"exclude_cidr_list,omitempty"`
	Port            int    `json:"port,omitempty"`
	KeyBits         int    `json:"key_bits,omitempty"`
	InstallScript   string `json:"install_script,omitempty"`
	KeyOptionSpecs  string `json:"key_option_specs,omitempty"`
	TTL             string `json:"ttl,omitempty"`
	MaxTTL          string `json:"max_ttl,omitempty"`

	AllowedUsers         string `json:"allowed_users,omitempty"`
	AllowedUsersTemplate bool   `json:"allowed_users_template,omitempty"`
	AllowedDomains       string `json:"allowed_domains,omitempty"`

	AllowedCriticalOptions string            `json:"allowed_critical_options,omitempty"`
	AllowedExtensions      string            `json:"allowed_extensions,omitempty"`
	DefaultCriticalOptions map[string]string `json:"default_critical_options,omitempty"`
	DefaultExtensions      map[string]string `json:"default_extensions,omitempty"`

	AllowUserCertificates bool           `json:"allow_user_certificates,omitempty"`
	AllowHostCertificates bool           `json:"allow_host_certificates,omitempty"`
	AllowBareDomains      bool           `json:"allow_bare_domains,omitempty"`
	AllowSubdomains       bool           `json:"allow_subdomains,omitempty"`
	AllowUserKeyIDs       bool           `json:"allow_user_key_ids,omitempty"`
	KeyIDFormat           string         `json:"key_id_format,omitempty"`
	AllowedUserKeyLengths map[string]int `json:"allowed_user_key_lengths,omitempty"`
	AlgorithmSigner       string         `json:"algorithm_signer,omitempty"`
}

// SignRequest asks the CA to sign a public key under a role.
type SignRequest struct {
	// PublicKey is the SSH public key to sign.
	PublicKey string `json:"public_key"`

	// CertType is "user" or "host". The server defaults to "user".
	CertType string `json:"cert_type,omitempty"`

	TTL             string            `json:"ttl,omitempty"`
	ValidPrincipals string            `json:"valid_principals,omitempty"`
	KeyID           string            `json:"key_id,omitempty"`
	CriticalOptions map[string]string `json:"critical_options,omitempty"`
	Extensions      map[string]string `json:"extensions,omitempty"`
}

// CA configures the engine's signing key pair. Leave both keys empty and set
// GenerateSigningKey to have the server create the pair.
type CA struct {
	PrivateKey         string `json:"private_key,omitempty"`
	PublicKey          string `json:"public_key,omitempty"`
	GenerateSigningKey bool   `json:"generate_signing_key"`
	KeyType            string `json:"key_type,omitempty"`
	KeyBits            int    `json:"key_bits,omitempty"`
}

// CreateKey registers a named private key used by dynamic roles to install
// credentials on hosts.
func (c *Client) CreateKey(ctx context.Context, name, key string) error {
	body := map[string]string{"key": key}

	_, err := c.vault.Post(ctx, c.path("keys", name), vaultik.WithJSONBody(body))

	return err
}

// DeleteKey removes a named private key.
func (c *Client) DeleteKey(ctx context.Context, name string) error {
	_, err := c.vault.Delete(ctx, c.path("keys", name))

	return err
}

// CreateRole creates name or updates its settings.
func (c *Client) CreateRole(ctx context.Context, name string, role Role) error {
	_, err := c.vault.Post(ctx, c.path("roles", name), vaultik.WithJSONBody(role))

	return err
}

// ReadRole returns the settings of name.
func (c *Client) ReadRole(ctx context.Context, name string) (*vaultik.Secret, error) {
	resp, err := c.vault.Get(ctx, c.path("roles", name))
	if err != nil {
		return nil, err
	}

	return resp.Secret()
}

// ListRoles returns the names of all configured roles.
func (c *Client) ListRoles(ctx context.Context) ([]string, error) {
	resp, err := c.vault.List(ctx, c.path("roles"))
	if err != nil {
		return nil, err
	}

	secret, err := resp.Secret()
	if err != nil {
		return nil, err
	}

	return secret.ListKeys()
}

// DeleteRole removes name.
func (c *Client) DeleteRole(ctx context.Context, name string) error {
	_, err := c.vault.Delete(ctx, c.path("roles", name))

	return err
}

// ZeroAddressRoles returns the roles allowed to generate credentials for any
// IP. The role names are under the "roles" key of the secret data.
func (c *Client) ZeroAddressRoles(ctx context.Context) (*vaultik.Secret, error) {
	resp, err := c.vault.Get(ctx, c.path("config", "zeroaddress"))
	if err != nil {
		return nil, err
	}

	return resp.Secret()
}

// ConfigureZeroAddress allows roles to generate credentials for any IP. The
// list is trimmed and deduplicated before sending.
func (c *Client) ConfigureZeroAddress(ctx context.Context, roles []string) error {
	roles = strutil.RemoveDuplicates(roles, false)
	body := map[string]string{"roles": strings.Join(roles, ",")}

	_, err := c.vault.Post(ctx, c.path("config", "zeroaddress"), vaultik.WithJSONBody(body))

	return err
}

// DeleteZeroAddress removes the zero-address configuration.
func (c *Client) DeleteZeroAddress(ctx context.Context) error {
	_, err := c.vault.Delete(ctx, c.path("config", "zeroaddress"))

	return err
}

// GenerateCredentials creates credentials for username on the host at ip
// under the named role. For OTP roles the secret data carries the one-time
// password, for dynamic roles the private key.
func (c *Client) GenerateCredentials(ctx context.Context, name, username, ip string) (*vaultik.Secret, error) {
	body := map[string]string{"username": username, "ip": ip}

	resp, err := c.vault.Post(ctx, c.path("creds", name), vaultik.WithJSONBody(body))
	if err != nil {
		return nil, err
	}

	return resp.Secret()
}

// ListRolesByIP returns the roles, under the "roles" key of the secret data,
// that can generate credentials for ip.
func (c *Client) ListRolesByIP(ctx context.Context, ip string) (*vaultik.Secret, error) {
	body := map[string]string{"ip": ip}

	resp, err := c.vault.Post(ctx, c.path("lookup"), vaultik.WithJSONBody(body))
	if err != nil {
		return nil, err
	}

	return resp.Secret()
}

// VerifyOTP checks a one-time password and returns the username and IP it
// was issued for. A used or unknown OTP fails with a 400 classified as
// KindInvalidRequest.
func (c *Client) VerifyOTP(ctx context.Context, otp string) (*vaultik.Secret, error) {
	body := map[string]string{"otp": otp}

	resp, err := c.vault.Post(ctx, c.path("verify"), vaultik.WithJSONBody(body))
	if err != nil {
		return nil, err
	}

	return resp.Secret()
}

// ConfigureCA submits or generates the CA key pair used for signing.
func (c *Client) ConfigureCA(ctx context.Context, ca CA) (*vaultik.Secret, error) {
	resp, err := c.vault.Post(ctx, c.path("config", "ca"), vaultik.WithJSONBody(ca))
	if err != nil {
		return nil, err
	}

	return resp.Secret()
}

// DeleteCA removes the CA key pair.
func (c *Client) DeleteCA(ctx context.Context) error {
	_, err := c.vault.Delete(ctx, c.path("config", "ca"))

	return err
}

// ReadCA returns the CA's public key in the secret data.
func (c *Client) ReadCA(ctx context.Context) (*vaultik.Secret, error) {
	resp, err := c.vault.Get(ctx, c.path("config", "ca"))
	if err != nil {
		return nil, err
	}

	return resp.Secret()
}

// ReadPublicKey returns the CA's public key as plain text. The endpoint is
// unauthenticated and the response is not wrapped in the usual envelope.
func (c *Client) ReadPublicKey(ctx context.Context) (string, error) {
	resp, err := c.vault.Get(ctx, c.path("public_key"))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(resp.Body)), nil
}

// SignKey signs req.PublicKey under the named role. The secret data carries
// the signed key and its serial number.
func (c *Client) SignKey(ctx context.Context, name string, req SignRequest) (*vaultik.Secret, error) {
	resp, err := c.vault.Post(ctx, c.path("sign", name), vaultik.WithJSONBody(req))
	if err != nil {
		return nil, err
	}

	return resp.Secret()
}

func (c *Client) path(parts ...string) string {
	return path.Join(append([]string{"/v1", c.mount}, parts...)...)
}
