package vaultik

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// MethodList is the non-standard verb the service uses for listing. With
// strict HTTP enabled it is rewritten to GET plus a list=true parameter.
const MethodList = "LIST"

// headers recognized by the upstream API
const (
	requestHeader   = "X-Vault-Request"
	tokenHeader     = "X-Vault-Token"
	namespaceHeader = "X-Vault-Namespace"
	wrapTTLHeader   = "X-Vault-Wrap-TTL"
)

// Adapter sends requests and interprets their responses. Two implementations
// exist: RawAdapter hands responses back exactly as the transport produced
// them, JSONAdapter decodes JSON bodies on success. The variant is chosen at
// construction and fixed for the adapter's lifetime.
type Adapter interface {
	// Request sends method + path with opts applied and interprets the
	// result. Failing statuses come back as a *ResponseError alongside the
	// response, unless error checking is suppressed.
	Request(ctx context.Context, method, path string, opts ...Option) (*Response, error)

	// LoginToken extracts the client token from a login response.
	LoginToken(resp *Response) (string, error)

	Token() string
	SetToken(token string)
	ClearToken()
	Namespace() string
	SetNamespace(namespace string)

	// Close releases the adapter's idle connections. Only the first call
	// does anything.
	Close()
}

var (
	_ Adapter = (*RawAdapter)(nil)
	_ Adapter = (*JSONAdapter)(nil)
)

// RawAdapter is the Adapter that performs no body interpretation: callers
// get the status, headers, and raw bytes the server sent.
type RawAdapter struct {
	client *http.Client
	logger logrus.FieldLogger

	address   string
	namespace string
	token     string

	strictHTTP   bool
	noMarker     bool
	ignoreErrors bool

	mu        sync.RWMutex
	closeOnce sync.Once
}

// NewRawAdapter builds a RawAdapter from cfg. A nil cfg means
// DefaultConfig().
func NewRawAdapter(cfg *Config) (*RawAdapter, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	address := cfg.Address
	if address == "" {
		address = DefaultAddress
	}

	client, err := cfg.httpClient()
	if err != nil {
		return nil, err
	}

	return &RawAdapter{
		client:       client,
		logger:       cfg.Logger,
		address:      address,
		namespace:    cfg.Namespace,
		token:        cfg.Token,
		strictHTTP:   cfg.StrictHTTP,
		noMarker:     cfg.DisableRequestHeader,
		ignoreErrors: cfg.IgnoreErrors,
	}, nil
}

func (a *RawAdapter) Request(ctx context.Context, method, path string, opts ...Option) (*Response, error) {
	ro, err := buildRequestOptions(opts...)
	if err != nil {
		return nil, err
	}

	req, err := a.newRequest(ctx, method, path, ro)
	if err != nil {
		return nil, err
	}

	resp, err := a.send(req)
	if err != nil {
		return nil, err
	}

	if isFailure(resp.StatusCode) && !a.ignoreErrors && !ro.ignore {
		return resp, newResponseError(req.Method, req.URL.String(), resp)
	}

	return resp, nil
}

// newRequest composes the outgoing request: URL from base + path, the verb
// shim, and the header set. It performs no I/O.
func (a *RawAdapter) newRequest(ctx context.Context, method, path string, ro *requestOptions) (*http.Request, error) {
	verb, query := method, ro.query

	if a.strictHTTP && verb == MethodList {
		verb = http.MethodGet
		query.Set("list", "true")
	}

	rawURL := joinURL(a.address, collapseSlashes(path))
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	var body io.Reader

	if ro.hasBody {
		b, err := json.Marshal(ro.body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}

		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, verb, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("compose %s %s: %w", verb, rawURL, err)
	}

	for name, values := range ro.headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	if ro.hasBody {
		req.Header.Set("Content-Type", "application/json")
	}

	if !a.noMarker {
		req.Header.Set(requestHeader, "true")
	}

	// the token is read exactly once here; a login landing after this point
	// does not retroactively appear on the composed request
	a.mu.RLock()
	token, namespace := a.token, a.namespace
	a.mu.RUnlock()

	if token != "" {
		req.Header.Set(tokenHeader, token)
	}

	if namespace != "" {
		req.Header.Set(namespaceHeader, namespace)
	}

	if ro.wrapTTL != "" {
		req.Header.Set(wrapTTLHeader, ro.wrapTTL)
	}

	return req, nil
}

// send performs the round trip and drains the body so the connection always
// returns to the pool. Failures below the HTTP layer come back as
// *TransportError.
func (a *RawAdapter) send(req *http.Request) (*Response, error) {
	start := time.Now()

	httpResp, err := a.client.Do(req)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL.String(), Err: err}
	}

	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL.String(), Err: err}
	}

	if a.logger != nil {
		a.logger.WithFields(logrus.Fields{
			"method":   req.Method,
			"url":      req.URL.String(),
			"status":   httpResp.StatusCode,
			"duration": time.Since(start),
		}).Debug("round trip")
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

func (a *RawAdapter) LoginToken(resp *Response) (string, error) {
	secret, err := ParseSecret(bytes.NewReader(resp.Body))
	if err != nil {
		return "", fmt.Errorf("parse login response: %w", err)
	}

	return tokenFromSecret(secret)
}

func (a *RawAdapter) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.token
}

// SetToken installs token for requests composed from now on. Requests
// already composed keep whatever token they were composed with.
func (a *RawAdapter) SetToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

func (a *RawAdapter) ClearToken() { a.SetToken("") }

func (a *RawAdapter) Namespace() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.namespace
}

func (a *RawAdapter) SetNamespace(namespace string) {
	a.mu.Lock()
	a.namespace = namespace
	a.mu.Unlock()
}

func (a *RawAdapter) Close() {
	a.closeOnce.Do(func() {
		a.client.CloseIdleConnections()
	})
}

// JSONAdapter is the Adapter that decodes JSON bodies. A 200 response with a
// JSON object body yields a Response whose Data is the authoritative view; a
// 200 body that does not parse is handed back raw, without error, since some
// success responses are legitimately empty or non-JSON. Every other status
// follows the RawAdapter path unchanged.
type JSONAdapter struct {
	*RawAdapter
}

// NewJSONAdapter builds a JSONAdapter from cfg. A nil cfg means
// DefaultConfig().
func NewJSONAdapter(cfg *Config) (*JSONAdapter, error) {
	raw, err := NewRawAdapter(cfg)
	if err != nil {
		return nil, err
	}

	return &JSONAdapter{RawAdapter: raw}, nil
}

func (a *JSONAdapter) Request(ctx context.Context, method, path string, opts ...Option) (*Response, error) {
	resp, err := a.RawAdapter.Request(ctx, method, path, opts...)
	if err != nil || resp == nil {
		return resp, err
	}

	if resp.StatusCode == http.StatusOK {
		var data map[string]any
		if jsonErr := json.Unmarshal(resp.Body, &data); jsonErr == nil {
			resp.Data = data
			resp.Decoded = true
		}
	}

	return resp, nil
}

func (a *JSONAdapter) LoginToken(resp *Response) (string, error) {
	if !resp.Decoded {
		return a.RawAdapter.LoginToken(resp)
	}

	secret, err := secretFromMap(resp.Data)
	if err != nil {
		return "", fmt.Errorf("parse login response: %w", err)
	}

	return tokenFromSecret(secret)
}

func tokenFromSecret(secret *Secret) (string, error) {
	if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
		return "", &MissingTokenError{}
	}

	return secret.Auth.ClientToken, nil
}

// isFailure mirrors the upstream notion of a failed response: anything at or
// above 400. Redirects are the transport's business.
func isFailure(status int) bool { return status >= 400 }
