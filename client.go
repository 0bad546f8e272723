package vaultik

import (
	"context"
	"net/http"
)

// Client is the front door: verb helpers, login, and token management over
// one Adapter. API-family packages (userpass, ssh, sys, ...) are built
// around a Client.
type Client struct {
	adapter Adapter
}

// New builds a Client around a JSONAdapter, the variant most callers want. A
// nil cfg means DefaultConfig().
func New(cfg *Config) (*Client, error) {
	adapter, err := NewJSONAdapter(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{adapter: adapter}, nil
}

// NewWithAdapter builds a Client around a caller-supplied adapter, for
// choosing the raw variant or wrapping an adapter with instrumentation.
func NewWithAdapter(adapter Adapter) *Client {
	return &Client{adapter: adapter}
}

// Adapter returns the adapter the Client fronts.
func (c *Client) Adapter() Adapter { return c.adapter }

// Request sends an arbitrary verb. Most callers want one of the verb
// helpers instead.
func (c *Client) Request(ctx context.Context, method, path string, opts ...Option) (*Response, error) {
	return c.adapter.Request(ctx, method, path, opts...)
}

func (c *Client) Get(ctx context.Context, path string, opts ...Option) (*Response, error) {
	return c.adapter.Request(ctx, http.MethodGet, path, opts...)
}

func (c *Client) Post(ctx context.Context, path string, opts ...Option) (*Response, error) {
	return c.adapter.Request(ctx, http.MethodPost, path, opts...)
}

func (c *Client) Put(ctx context.Context, path string, opts ...Option) (*Response, error) {
	return c.adapter.Request(ctx, http.MethodPut, path, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, opts ...Option) (*Response, error) {
	return c.adapter.Request(ctx, http.MethodDelete, path, opts...)
}

func (c *Client) Head(ctx context.Context, path string, opts ...Option) (*Response, error) {
	return c.adapter.Request(ctx, http.MethodHead, path, opts...)
}

// List sends the service's non-standard LIST verb. With StrictHTTP set the
// adapter turns it into GET plus list=true.
func (c *Client) List(ctx context.Context, path string, opts ...Option) (*Response, error) {
	return c.adapter.Request(ctx, MethodList, path, opts...)
}

// Login posts credentials to path. When useToken is true, the client token
// in the response is installed for subsequent requests; a response without
// one fails with *MissingTokenError and leaves the stored token unchanged.
func (c *Client) Login(ctx context.Context, path string, useToken bool, opts ...Option) (*Response, error) {
	resp, err := c.adapter.Request(ctx, http.MethodPost, path, opts...)
	if err != nil {
		return resp, err
	}

	if useToken {
		token, err := c.adapter.LoginToken(resp)
		if err != nil {
			return resp, err
		}

		c.adapter.SetToken(token)
	}

	return resp, nil
}

func (c *Client) Token() string { return c.adapter.Token() }

func (c *Client) SetToken(token string) { c.adapter.SetToken(token) }

func (c *Client) ClearToken() { c.adapter.ClearToken() }

func (c *Client) Namespace() string { return c.adapter.Namespace() }

func (c *Client) SetNamespace(ns string) { c.adapter.SetNamespace(ns) }

// Close releases the adapter's idle connections.
func (c *Client) Close() { c.adapter.Close() }
