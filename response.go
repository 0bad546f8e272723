package vaultik

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// Response is the outcome of a single request. Body always holds the raw
// bytes the server sent. When the decoded interpreter parsed a 200 response,
// Data holds the parsed body and Decoded is true, making Data the
// authoritative view; otherwise Body is authoritative and Data is nil.
type Response struct {
	Header     http.Header
	Data       map[string]any
	Body       []byte
	StatusCode int
	Decoded    bool
}

// JSON unmarshals the raw response body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("unmarshal response body: %w", err)
	}

	return nil
}

// Secret interprets the response payload as a Secret, preferring the decoded
// view when one is authoritative.
func (r *Response) Secret() (*Secret, error) {
	if r.Decoded {
		return secretFromMap(r.Data)
	}

	return ParseSecret(bytes.NewReader(r.Body))
}

// Decode unmarshals the response payload into out, preferring the decoded
// view when one is authoritative. Fields of out should carry both json and
// mapstructure tags so both views decode identically.
func (r *Response) Decode(out any) error {
	if r.Decoded {
		return decodeMap(r.Data, out)
	}

	return r.JSON(out)
}
