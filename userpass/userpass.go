// Package userpass manages the userpass auth method: creating and listing
// users, rotating their passwords, and logging in. All calls go through a
// vaultik.Client; the mount path is configurable and defaults to
// DefaultMount.
package userpass

import (
	"context"
	"path"

	"github.com/hashicorp/go-secure-stdlib/strutil"

	"github.com/vaultik/vaultik"
)

// DefaultMount is the path the auth method is enabled at unless WithMount
// says otherwise.
const DefaultMount = "userpass"

// Client calls the userpass endpoints of one mount.
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

// WithMount sets the path the auth method is enabled at.
func WithMount(mount string) Option {
	return optionFunc(func(c *Client) {
		if mount != "" {
			c.mount = mount
		}
	})
}

// New returns a Client for the userpass auth method reached through vault.
func New(vault *vaultik.Client, opts ...Option) *Client {
	c := &Client{vault: vault, mount: DefaultMount}

	for _, o := range opts {
		o.apply(c)
	}

	return c
}

// User holds the configurable fields of a user. Zero values are omitted from
// the request, leaving the server's defaults in place.
type User struct {
	Password        string   `json:"password,omitempty"`
	Policies        []string `json:"policies,omitempty"`
	TokenPolicies   []string `json:"token_policies,omitempty"`
	TokenBoundCIDRs []string `json:"token_bound_cidrs,omitempty"`
	TokenTTL        string   `json:"token_ttl,omitempty"`
	TokenMaxTTL     string   `json:"token_max_ttl,omitempty"`
	TokenPeriod     string   `json:"token_period,omitempty"`
	TokenType       string   `json:"token_type,omitempty"`
	TokenNumUses    int      `json:"token_num_uses,omitempty"`
}

// CreateOrUpdateUser creates username or updates its settings. Policy lists
// are normalized the way the server stores them: trimmed, lowercased,
// deduplicated, and sorted.
func (c *Client) CreateOrUpdateUser(ctx context.Context, username string, user User) error {
	user.Policies = strutil.RemoveDuplicates(user.Policies, true)
	user.TokenPolicies = strutil.RemoveDuplicates(user.TokenPolicies, true)

	_, err := c.vault.Post(ctx, c.path("users", username), vaultik.WithJSONBody(user))

	return err
}

// ReadUser returns the settings of username.
func (c *Client) ReadUser(ctx context.Context, username string) (*vaultik.Secret, error) {
	resp, err := c.vault.Get(ctx, c.path("users", username))
	if err != nil {
		return nil, err
	}

	return resp.Secret()
}

// ListUsers returns the names of all configured users.
func (c *Client) ListUsers(ctx context.Context) ([]string, error) {
	resp, err := c.vault.List(ctx, c.path("users"))
	if err != nil {
		return nil, err
	}

	secret, err := resp.Secret()
	if err != nil {
		return nil, err
	}

	return secret.ListKeys()
}

// DeleteUser removes username.
func (c *Client) DeleteUser(ctx context.Context, username string) error {
	_, err := c.vault.Delete(ctx, c.path("users", username))

	return err
}

// UpdatePassword sets a new password for username.
func (c *Client) UpdatePassword(ctx context.Context, username, password string) error {
	body := map[string]string{"password": password}

	_, err := c.vault.Post(ctx, c.path("users", username, "password"), vaultik.WithJSONBody(body))

	return err
}

// Login authenticates as username and installs the returned token on the
// underlying client.
func (c *Client) Login(ctx context.Context, username, password string) (*vaultik.Secret, error) {
	body := map[string]string{"password": password}

	resp, err := c.vault.Login(ctx, c.path("login", username), true, vaultik.WithJSONBody(body))
	if err != nil {
		return nil, err
	}

	return resp.Secret()
}

func (c *Client) path(parts ...string) string {
	return path.Join(append([]string{"/v1/auth", c.mount}, parts...)...)
}
