package vaultik

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Secret is the envelope the service wraps most payloads in.
type Secret struct {
	Data     map[string]any  `json:"data" mapstructure:"data"`
	Auth     *SecretAuth     `json:"auth" mapstructure:"auth"`
	WrapInfo *SecretWrapInfo `json:"wrap_info" mapstructure:"wrap_info"`

	RequestID     string   `json:"request_id" mapstructure:"request_id"`
	LeaseID       string   `json:"lease_id" mapstructure:"lease_id"`
	Warnings      []string `json:"warnings" mapstructure:"warnings"`
	LeaseDuration int      `json:"lease_duration" mapstructure:"lease_duration"`
	Renewable     bool     `json:"renewable" mapstructure:"renewable"`
}

// SecretAuth carries the authentication portion of a Secret, returned by
// login endpoints.
type SecretAuth struct {
	Metadata map[string]string `json:"metadata" mapstructure:"metadata"`

	ClientToken   string   `json:"client_token" mapstructure:"client_token"`
	Accessor      string   `json:"accessor" mapstructure:"accessor"`
	EntityID      string   `json:"entity_id" mapstructure:"entity_id"`
	Policies      []string `json:"policies" mapstructure:"policies"`
	TokenPolicies []string `json:"token_policies" mapstructure:"token_policies"`
	LeaseDuration int      `json:"lease_duration" mapstructure:"lease_duration"`
	Renewable     bool     `json:"renewable" mapstructure:"renewable"`
	Orphan        bool     `json:"orphan" mapstructure:"orphan"`
}

// SecretWrapInfo carries the response-wrapping details returned when a
// request asked for a wrapped response.
type SecretWrapInfo struct {
	CreationTime    time.Time `json:"creation_time" mapstructure:"creation_time"`
	Token           string    `json:"token" mapstructure:"token"`
	Accessor        string    `json:"accessor" mapstructure:"accessor"`
	CreationPath    string    `json:"creation_path" mapstructure:"creation_path"`
	WrappedAccessor string    `json:"wrapped_accessor" mapstructure:"wrapped_accessor"`
	TTL             int       `json:"ttl" mapstructure:"ttl"`
}

// ListKeys extracts the key names from a list response. The service reports
// children of a path as a "keys" array in the secret data.
func (s *Secret) ListKeys() ([]string, error) {
	if s == nil || s.Data == nil {
		return nil, errors.New("keys missing from list response")
	}

	raw, ok := s.Data["keys"].([]any)
	if !ok {
		return nil, errors.New("keys missing from list response")
	}

	keys := make([]string, len(raw))

	for i, k := range raw {
		key, ok := k.(string)
		if !ok {
			return nil, fmt.Errorf("key %d is %T, not a string", i, k)
		}

		keys[i] = key
	}

	return keys, nil
}

// ParseSecret decodes a Secret from r. An empty body yields a nil Secret
// with no error.
func ParseSecret(r io.Reader) (*Secret, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read secret: %w", err)
	}

	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}

	secret := &Secret{}
	if err := json.Unmarshal(b, secret); err != nil {
		return nil, fmt.Errorf("unmarshal secret: %w", err)
	}

	return secret, nil
}

// secretFromMap converts an already-decoded JSON map into a Secret.
func secretFromMap(m map[string]any) (*Secret, error) {
	if m == nil {
		return nil, nil
	}

	secret := &Secret{}
	if err := decodeMap(m, secret); err != nil {
		return nil, err
	}

	return secret, nil
}

// decodeMap converts an already-decoded JSON map into out, tolerating the
// loose typing JSON numbers and RFC 3339 timestamps arrive with.
func decodeMap(m map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}

	if err := dec.Decode(m); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
