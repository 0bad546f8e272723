// Package auth provides login methods for acquiring a client token: static
// tokens, userpass, approle, github, and an environment-driven composite
// that picks whichever method has credentials configured.
package auth

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/vaultik/vaultik"
	"github.com/vaultik/vaultik/internal/env"
)

// Method acquires a token through a Client and installs it on that Client.
type Method interface {
	// Login acquires a token using client and configures client with it.
	Login(ctx context.Context, client *vaultik.Client) error

	// Logout revokes the token attached to client, where the method's
	// backend supports revocation, and clears it from client.
	Logout(ctx context.Context, client *vaultik.Client) error
}

var (
	_ Method = (*envMethod)(nil)
	_ Method = (*tokenMethod)(nil)
	_ Method = (*appRoleMethod)(nil)
	_ Method = (*gitHubMethod)(nil)
	_ Method = (*userPassMethod)(nil)
)

// EnvMethod chooses the first method to have the correct environment
// variables set, in this order of precedence:
//
//	AppRoleMethod
//	GitHubMethod
//	UserPassMethod
//	TokenMethod
func EnvMethod() Method {
	return &envMethod{
		// sorted in order of precedence
		methods: []Method{
			AppRoleMethod("", "", ""),
			GitHubMethod("", ""),
			UserPassMethod("", "", ""),
			TokenMethod(""),
		},
	}
}

type envMethod struct {
	chosen  Method
	methods []Method
}

func (m *envMethod) Login(ctx context.Context, client *vaultik.Client) (err error) {
	if m.chosen == nil {
		for _, method := range m.methods {
			err = method.Login(ctx, client)
			if err == nil {
				m.chosen = method

				break
			}
		}
	}

	if m.chosen == nil {
		return fmt.Errorf("unable to authenticate by any configured method. Last error was: %w", err)
	}

	return nil
}

func (m *envMethod) Logout(ctx context.Context, client *vaultik.Client) error {
	// reset so we can login again
	defer func() { m.chosen = nil }()

	if m.chosen == nil {
		return nil
	}

	return m.chosen.Logout(ctx, client)
}

// TokenMethod authenticates with the given token, or if none is provided,
// the $VAULT_TOKEN environment variable, or the $HOME/.vault-token file
// written by the CLI's token helper. No server round trip is made.
//
// See also https://www.vaultproject.io/docs/auth/token
func TokenMethod(token string) Method {
	return &tokenMethod{token: token, fsys: os.DirFS("/")}
}

type tokenMethod struct {
	fsys  fs.FS
	token string
}

func (m *tokenMethod) Login(_ context.Context, client *vaultik.Client) error {
	token := findValue(m.token, "VAULT_TOKEN", "", m.fsys)
	if token != "" {
		client.SetToken(token)

		return nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	p := strings.TrimPrefix(path.Join(homeDir, ".vault-token"), "/")

	b, err := fs.ReadFile(m.fsys, p)
	if err != nil {
		return fmt.Errorf("read token helper file from %q: %w", homeDir, err)
	}

	client.SetToken(strings.TrimSpace(string(b)))

	return nil
}

func (m *tokenMethod) Logout(_ context.Context, client *vaultik.Client) error {
	// the token came from outside, so it is not ours to revoke
	client.ClearToken()

	return nil
}

// AppRoleMethod authenticates with the approle auth method. If either
// roleID or secretID are omitted, the values are read from the
// $VAULT_ROLE_ID and/or $VAULT_SECRET_ID environment variables.
//
// If mount is not set, it defaults to the value of $VAULT_AUTH_APPROLE_MOUNT
// or "approle".
//
// See also https://www.vaultproject.io/docs/auth/approle
func AppRoleMethod(roleID, secretID, mount string) Method {
	return &appRoleMethod{
		fsys:     os.DirFS("/"),
		roleID:   roleID,
		secretID: secretID,
		mount:    mount,
	}
}

type appRoleMethod struct {
	fsys             fs.FS
	roleID, secretID string
	mount            string
}

func (m *appRoleMethod) Login(ctx context.Context, client *vaultik.Client) error {
	roleID := findValue(m.roleID, "VAULT_ROLE_ID", "", m.fsys)
	if roleID == "" {
		return fmt.Errorf("approle auth failure: no role_id provided")
	}

	secretID := findValue(m.secretID, "VAULT_SECRET_ID", "", m.fsys)
	if secretID == "" {
		return fmt.Errorf("approle auth failure: no secret_id provided")
	}

	mount := findValue(m.mount, "VAULT_AUTH_APPROLE_MOUNT", "approle", m.fsys)

	err := remoteLogin(ctx, client, mount, "",
		map[string]string{"role_id": roleID, "secret_id": secretID})
	if err != nil {
		return fmt.Errorf("approle login failed: %w", err)
	}

	return nil
}

func (m *appRoleMethod) Logout(ctx context.Context, client *vaultik.Client) error {
	return revokeToken(ctx, client)
}

// GitHubMethod authenticates with the github auth method. If ghtoken is
// omitted, its value is read from the $VAULT_AUTH_GITHUB_TOKEN environment
// variable.
//
// If mount is not set, it defaults to the value of $VAULT_AUTH_GITHUB_MOUNT
// or "github".
//
// See also https://www.vaultproject.io/docs/auth/github
func GitHubMethod(ghtoken, mount string) Method {
	return &gitHubMethod{
		fsys:    os.DirFS("/"),
		ghtoken: ghtoken,
		mount:   mount,
	}
}

type gitHubMethod struct {
	fsys    fs.FS
	ghtoken string
	mount   string
}

func (m *gitHubMethod) Login(ctx context.Context, client *vaultik.Client) error {
	ghtoken := findValue(m.ghtoken, "VAULT_AUTH_GITHUB_TOKEN", "", m.fsys)
	if ghtoken == "" {
		return fmt.Errorf("github auth failure: no token provided")
	}

	mount := findValue(m.mount, "VAULT_AUTH_GITHUB_MOUNT", "github", m.fsys)

	err := remoteLogin(ctx, client, mount, "", map[string]string{"token": ghtoken})
	if err != nil {
		return fmt.Errorf("github login failed: %w", err)
	}

	return nil
}

func (m *gitHubMethod) Logout(ctx context.Context, client *vaultik.Client) error {
	return revokeToken(ctx, client)
}

// UserPassMethod authenticates with the userpass auth method. If either
// username or password are omitted, the values are read from the
// $VAULT_AUTH_USERNAME and/or $VAULT_AUTH_PASSWORD environment variables.
//
// If mount is not set, it defaults to the value of $VAULT_AUTH_USERPASS_MOUNT
// or "userpass".
//
// See also https://www.vaultproject.io/docs/auth/userpass
func UserPassMethod(username, password, mount string) Method {
	return &userPassMethod{
		fsys:     os.DirFS("/"),
		username: username,
		password: password,
		mount:    mount,
	}
}

type userPassMethod struct {
	fsys               fs.FS
	username, password string
	mount              string
}

func (m *userPassMethod) Login(ctx context.Context, client *vaultik.Client) error {
	username := findValue(m.username, "VAULT_AUTH_USERNAME", "", m.fsys)
	if username == "" {
		return fmt.Errorf("userpass auth failure: no username provided")
	}

	password := findValue(m.password, "VAULT_AUTH_PASSWORD", "", m.fsys)
	if password == "" {
		return fmt.Errorf("userpass auth failure: no password provided")
	}

	mount := findValue(m.mount, "VAULT_AUTH_USERPASS_MOUNT", "userpass", m.fsys)

	err := remoteLogin(ctx, client, mount, username,
		map[string]string{"password": password})
	if err != nil {
		return fmt.Errorf("userpass login failed: %w", err)
	}

	return nil
}

func (m *userPassMethod) Logout(ctx context.Context, client *vaultik.Client) error {
	return revokeToken(ctx, client)
}

func findValue(s, envvar, def string, fsys fs.FS) string {
	if s == "" {
		s = env.GetenvFS(fsys, envvar)
	}

	if s == "" {
		s = def
	}

	return s
}

// remoteLogin posts creds to the mount's login path. The extra path element
// carries the username for methods that put it in the URL.
func remoteLogin(ctx context.Context, client *vaultik.Client, mount, extra string, creds map[string]string) error {
	p := path.Join("/v1/auth", mount, "login", extra)

	_, err := client.Login(ctx, p, true, vaultik.WithJSONBody(creds))
	if err != nil {
		return fmt.Errorf("login to %s: %w", p, err)
	}

	return nil
}

// revokeToken revokes the client's own token. The token is cleared from the
// client even when revocation fails.
func revokeToken(ctx context.Context, client *vaultik.Client) error {
	_, err := client.Post(ctx, "/v1/auth/token/revoke-self")

	client.ClearToken()

	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	return nil
}
