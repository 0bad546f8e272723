// Package fakevault is an in-process fake of the secrets service for tests:
// enough of the wire protocol to exercise reads, lists, logins, and error
// paths without a real server.
package fakevault

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vaultik/vaultik"
)

// Secret is a canned response body served by the fake. Value answers reads,
// Keys answers lists.
type Secret struct {
	Value string   `json:"value,omitempty"`
	Keys  []string `json:"keys,omitempty"`
}

// Server starts a fake with a small tree of secrets and a userpass login
// mount answering with the token "fake-token", and returns a Client pointed
// at it.
func Server(t *testing.T) *vaultik.Client {
	t.Helper()

	secrets := map[string]Secret{
		"/v1/secret/":             {Keys: []string{"app", "db", "nested/"}},
		"/v1/secret/app":          {Value: "app-value"},
		"/v1/secret/db":           {Value: "db-value"},
		"/v1/secret/nested/":      {Keys: []string{"inner"}},
		"/v1/secret/nested/inner": {Value: "inner-value"},
	}

	mux := http.NewServeMux()
	mux.Handle("/v1/auth/userpass/login/", LoginHandler("fake-token"))
	mux.Handle("/", SecretHandler(t, secrets))

	return Client(t, mux)
}

// Client starts an httptest server around handler and returns a Client
// talking to it. Both are torn down when the test ends.
func Client(t *testing.T, handler http.Handler) *vaultik.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := vaultik.New(&vaultik.Config{Address: srv.URL})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

// SecretHandler serves canned secrets. The LIST verb is honored both
// natively and in its strict-HTTP form (GET plus list=true), mirroring the
// real server's behavior.
func SecretHandler(t *testing.T, secrets map[string]Secret) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path := r.Method, r.URL.Path

		if method == http.MethodGet && r.URL.Query().Get("list") == "true" {
			method = "LIST"
		}

		if method == "LIST" && !strings.HasSuffix(path, "/") {
			path += "/"
		}

		secret, ok := secrets[path]
		if !ok {
			WriteErrors(w, http.StatusNotFound)

			return
		}

		if method == "LIST" {
			secret = Secret{Keys: secret.Keys}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": secret})
	})
}

// LoginHandler answers every request with a login payload carrying token.
func LoginHandler(token string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"auth": map[string]any{"client_token": token},
		})
	}
}

// ErrorHandler answers every request with status and the given error
// strings in the server's structured form.
func ErrorHandler(status int, errs ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteErrors(w, status, errs...)
	}
}

// WriteErrors writes a structured error response the way the real server
// does, including the empty errors array it sends on 404s.
func WriteErrors(w http.ResponseWriter, status int, errs ...string) {
	if errs == nil {
		errs = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"errors": errs})
}
