package vaultik

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hashicorp/go-secure-stdlib/parseutil"
)

// Option adjusts a single request.
type Option interface {
	apply(*requestOptions)
}

type optionFunc func(*requestOptions)

func (o optionFunc) apply(ro *requestOptions) { o(ro) }

// requestOptions accumulates the per-call options. wrapTTL is consumed by
// the request composer: it becomes the wrap header and is never sent as a
// body or query field.
type requestOptions struct {
	body    any
	err     error
	headers http.Header
	query   url.Values
	wrapTTL string
	hasBody bool
	ignore  bool
}

func buildRequestOptions(opts ...Option) (*requestOptions, error) {
	ro := &requestOptions{
		headers: http.Header{},
		query:   url.Values{},
	}

	for _, o := range opts {
		o.apply(ro)
	}

	if ro.err != nil {
		return nil, ro.err
	}

	return ro, nil
}

// WithJSONBody sets the request body, marshaled as JSON.
func WithJSONBody(v any) Option {
	return optionFunc(func(ro *requestOptions) {
		ro.body = v
		ro.hasBody = true
	})
}

// WithHeader adds one extra request header.
func WithHeader(name, value string) Option {
	return optionFunc(func(ro *requestOptions) {
		ro.headers.Add(name, value)
	})
}

// WithHeaders adds every header in h.
func WithHeaders(h http.Header) Option {
	return optionFunc(func(ro *requestOptions) {
		for name, values := range h {
			for _, v := range values {
				ro.headers.Add(name, v)
			}
		}
	})
}

// WithQueryParam adds one query parameter.
func WithQueryParam(name, value string) Option {
	return optionFunc(func(ro *requestOptions) {
		ro.query.Add(name, value)
	})
}

// WithWrapTTL asks the server to return a wrapped reference to the response
// instead of the response itself. ttl may be a time.Duration, an integer
// number of seconds, or a duration string such as "300" or "15m".
func WithWrapTTL(ttl any) Option {
	return optionFunc(func(ro *requestOptions) {
		d, err := parseutil.ParseDurationSecond(ttl)
		if err != nil {
			ro.err = fmt.Errorf("parse wrap TTL: %w", err)

			return
		}

		ro.wrapTTL = strconv.Itoa(int(d.Seconds()))
	})
}

// IgnoreErrorStatus returns failing responses as-is for this request instead
// of classifying them into errors.
func IgnoreErrorStatus() Option {
	return optionFunc(func(ro *requestOptions) {
		ro.ignore = true
	})
}
