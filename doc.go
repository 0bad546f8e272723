// Package vaultik is a low-level client for HashiCorp Vault and services
// that speak the same HTTP API. It owns the request plumbing that every API
// family shares: URL construction, header injection, verb shimming, response
// interpretation, error classification, and the authentication token
// lifecycle. Higher-level API families (userpass, ssh, sys, ...) are thin
// packages built on top of a Client.
//
// # Usage
//
// Build a Client from a Config. DefaultConfig points at
// https://127.0.0.1:8200; ReadEnvironment layers the usual VAULT_*
// environment variables on top:
//
//	cfg := vaultik.DefaultConfig()
//	if err := cfg.ReadEnvironment(); err != nil {
//		return err
//	}
//
//	client, err := vaultik.New(cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	resp, err := client.Get(ctx, "/v1/secret/data/app")
//
// Paths are joined to the configured address with doubled separators
// collapsed, so "/v1/secret//data/app" and "v1/secret/data/app" request the
// same URL.
//
// # Adapters
//
// A Client fronts an Adapter, the strategy that sends requests and
// interprets responses. New uses the JSONAdapter, which decodes a JSON body
// on a 200 response into Response.Data (and falls back to the raw bytes when
// the body is not JSON). NewRawAdapter with NewWithAdapter gives the
// uninterpreted variant where Response.Body is all there is. Instrumented
// wrappers such as the traceadapter package also slot in through
// NewWithAdapter.
//
// # Requests
//
// Every request carries the X-Vault-Request marker header (unless disabled),
// the current token as X-Vault-Token, and the configured namespace as
// X-Vault-Namespace. Per-request options add a JSON body, extra headers,
// query parameters, or a response-wrapping TTL:
//
//	resp, err := client.Post(ctx, "/v1/sys/wrapping/unwrap",
//		vaultik.WithWrapTTL("5m"))
//
// The service's non-standard LIST verb is available through Client.List.
// When Config.StrictHTTP is set, LIST is sent as GET with a list=true query
// parameter, for proxies and intermediaries that reject unknown verbs.
//
// # Errors
//
// A response with status 400 or above is classified into a *ResponseError
// carrying a Kind from a fixed taxonomy, the method and URL, the status, and
// the server's error strings when the body held a structured "errors" array.
// Failures below the HTTP layer are *TransportError and are never classified
// by status. Helpers like IsNotFound and IsSealed inspect wrapped errors.
// Setting Config.IgnoreErrors, or passing IgnoreErrorStatus on one request,
// hands failing responses back as-is instead.
//
// # Authentication
//
// Client.Login posts credentials to a login path and installs the token from
// the response's auth.client_token field. A login response without that
// field fails with *MissingTokenError. The auth package layers the usual
// login methods (token, userpass, approle, github, and an
// environment-driven composite) over this primitive; tokens can also be
// managed directly with SetToken and ClearToken.
package vaultik
