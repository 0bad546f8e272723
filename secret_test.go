package vaultik

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginPayload = `{
	"request_id": "4c0e9deb",
	"lease_id": "",
	"renewable": false,
	"lease_duration": 0,
	"warnings": ["TTL of \"768h\" exceeded the effective max_ttl"],
	"auth": {
		"client_token": "hvs.CAES",
		"accessor": "acc123",
		"policies": ["default", "dev"],
		"token_policies": ["default"],
		"metadata": {"username": "alice"},
		"lease_duration": 2764800,
		"renewable": true,
		"orphan": true,
		"entity_id": "ent-1"
	}
}`

func TestParseSecret(t *testing.T) {
	secret, err := ParseSecret(strings.NewReader(loginPayload))
	require.NoError(t, err)
	require.NotNil(t, secret)

	assert.Equal(t, "4c0e9deb", secret.RequestID)
	assert.Len(t, secret.Warnings, 1)

	require.NotNil(t, secret.Auth)
	assert.Equal(t, "hvs.CAES", secret.Auth.ClientToken)
	assert.Equal(t, []string{"default", "dev"}, secret.Auth.Policies)
	assert.Equal(t, "alice", secret.Auth.Metadata["username"])
	assert.Equal(t, 2764800, secret.Auth.LeaseDuration)
	assert.True(t, secret.Auth.Orphan)
}

func TestParseSecretEmptyBody(t *testing.T) {
	secret, err := ParseSecret(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Nil(t, secret)
}

func TestParseSecretBadJSON(t *testing.T) {
	_, err := ParseSecret(strings.NewReader(`{"data":`))
	require.Error(t, err)
	assert.ErrorContains(t, err, "unmarshal secret")
}

func TestSecretListKeys(t *testing.T) {
	secret := &Secret{Data: map[string]any{
		"keys": []any{"alice", "bob", "sub/"},
	}}

	keys, err := secret.ListKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "sub/"}, keys)

	_, err = (&Secret{}).ListKeys()
	assert.ErrorContains(t, err, "keys missing")

	_, err = (*Secret)(nil).ListKeys()
	assert.ErrorContains(t, err, "keys missing")

	_, err = (&Secret{Data: map[string]any{"keys": "alice"}}).ListKeys()
	assert.ErrorContains(t, err, "keys missing")

	_, err = (&Secret{Data: map[string]any{"keys": []any{"alice", 42}}}).ListKeys()
	assert.ErrorContains(t, err, "not a string")
}

func TestSecretFromMap(t *testing.T) {
	m := map[string]any{
		"request_id":     "r1",
		"lease_duration": float64(300),
		"renewable":      true,
		"data":           map[string]any{"value": "hello"},
		"wrap_info": map[string]any{
			"token":         "wrapped-token",
			"ttl":           float64(120),
			"creation_time": "2024-06-01T12:00:00Z",
			"creation_path": "sys/wrapping/wrap",
		},
	}

	secret, err := secretFromMap(m)
	require.NoError(t, err)
	require.NotNil(t, secret)

	assert.Equal(t, "r1", secret.RequestID)
	assert.Equal(t, 300, secret.LeaseDuration)
	assert.Equal(t, "hello", secret.Data["value"])

	require.NotNil(t, secret.WrapInfo)
	assert.Equal(t, "wrapped-token", secret.WrapInfo.Token)
	assert.Equal(t, 120, secret.WrapInfo.TTL)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), secret.WrapInfo.CreationTime)
}

func TestSecretFromMapNil(t *testing.T) {
	secret, err := secretFromMap(nil)
	require.NoError(t, err)
	assert.Nil(t, secret)
}

func TestResponseSecretBothViews(t *testing.T) {
	raw := &Response{Body: []byte(loginPayload)}

	fromRaw, err := raw.Secret()
	require.NoError(t, err)

	decoded := &Response{Decoded: true, Data: map[string]any{
		"auth": map[string]any{"client_token": "hvs.CAES", "orphan": true},
	}}

	fromDecoded, err := decoded.Secret()
	require.NoError(t, err)

	assert.Equal(t, fromRaw.Auth.ClientToken, fromDecoded.Auth.ClientToken)
	assert.True(t, fromDecoded.Auth.Orphan)
}

func TestResponseDecode(t *testing.T) {
	type status struct {
		Initialized bool   `json:"initialized" mapstructure:"initialized"`
		Version     string `json:"version" mapstructure:"version"`
		ServerTime  int64  `json:"server_time_utc" mapstructure:"server_time_utc"`
	}

	raw := &Response{Body: []byte(`{"initialized":true,"version":"1.15.2","server_time_utc":1700000000}`)}

	var fromRaw status

	require.NoError(t, raw.Decode(&fromRaw))

	decoded := &Response{Decoded: true, Data: map[string]any{
		"initialized":     true,
		"version":         "1.15.2",
		"server_time_utc": float64(1700000000),
	}}

	var fromDecoded status

	require.NoError(t, decoded.Decode(&fromDecoded))
	assert.Equal(t, fromRaw, fromDecoded)
	assert.True(t, fromDecoded.Initialized)
	assert.Equal(t, int64(1700000000), fromDecoded.ServerTime)
}

func TestResponseJSON(t *testing.T) {
	resp := &Response{Body: []byte(`{"initialized":true,"sealed":false}`)}

	var status struct {
		Initialized bool `json:"initialized"`
		Sealed      bool `json:"sealed"`
	}

	require.NoError(t, resp.JSON(&status))
	assert.True(t, status.Initialized)
	assert.False(t, status.Sealed)

	bad := &Response{Body: []byte(`{`)}
	assert.Error(t, bad.JSON(&status))
}
