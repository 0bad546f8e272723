package sys

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultik/vaultik"
	"github.com/vaultik/vaultik/internal/fakevault"
)

func TestHealth(t *testing.T) {
	testdata := []struct {
		name    string
		status  int
		sealed  bool
		standby bool
	}{
		{"active", http.StatusOK, false, false},
		{"standby", http.StatusTooManyRequests, false, true},
		{"sealed", http.StatusServiceUnavailable, true, false},
	}

	for _, d := range testdata {
		t.Run(d.name, func(t *testing.T) {
			client := fakevault.Client(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/v1/sys/health", r.URL.Path)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(d.status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"initialized":     true,
					"sealed":          d.sealed,
					"standby":         d.standby,
					"version":         "1.15.2",
					"server_time_utc": 1700000000,
					"cluster_name":    "vault-cluster-1",
				})
			}))

			health, err := New(client).Health(context.Background())
			require.NoError(t, err)
			require.NotNil(t, health)

			assert.True(t, health.Initialized)
			assert.Equal(t, d.sealed, health.Sealed)
			assert.Equal(t, d.standby, health.Standby)
			assert.Equal(t, "1.15.2", health.Version)
			assert.Equal(t, int64(1700000000), health.ServerTimeUTC)
		})
	}
}

func TestSealStatus(t *testing.T) {
	client := fakevault.Client(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/sys/seal-status", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":         "shamir",
			"initialized":  true,
			"sealed":       true,
			"t":            3,
			"n":            5,
			"progress":     1,
			"nonce":        "5b30f3b4",
			"version":      "1.15.2",
			"storage_type": "raft",
		})
	}))

	status, err := New(client).SealStatus(context.Background())
	require.NoError(t, err)
	require.NotNil(t, status)

	assert.Equal(t, "shamir", status.Type)
	assert.True(t, status.Sealed)
	assert.Equal(t, 3, status.T)
	assert.Equal(t, 5, status.N)
	assert.Equal(t, 1, status.Progress)
	assert.Equal(t, "raft", status.StorageType)
}

//nolint:funlen
func TestSealUnsealCeremony(t *testing.T) {
	sealed := true
	progress := 0
	unsealCalls := []string{}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/sys/seal", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)

		sealed, progress = true, 0

		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/v1/sys/unseal", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)

		body := map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&body)

		switch {
		case body["reset"] == true:
			progress = 0
		default:
			key, ok := body["key"].(string)
			assert.True(t, ok, "unseal request without key or reset")

			unsealCalls = append(unsealCalls, key)

			progress++
			if progress >= 3 {
				sealed, progress = false, 0
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sealed": sealed, "t": 3, "n": 5, "progress": progress,
		})
	})

	client := fakevault.Client(t, mux)
	c := New(client)
	ctx := context.Background()

	require.NoError(t, c.Seal(ctx))

	// the duplicate share is skipped, so exactly three reach the server
	status, err := c.SubmitUnsealKeys(ctx, []string{"share-1", "share-1", "share-2", "share-3"})
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.False(t, status.Sealed)
	assert.Equal(t, []string{"share-1", "share-2", "share-3"}, unsealCalls)

	// with no fresh shares there is nothing to report
	status, err = c.SubmitUnsealKeys(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, status)

	// a reset discards accumulated progress
	require.NoError(t, c.Seal(ctx))

	status, err = c.SubmitUnsealKey(ctx, "share-1")
	require.NoError(t, err)
	assert.True(t, status.Sealed)
	assert.Equal(t, 1, status.Progress)

	status, err = c.ResetUnseal(ctx)
	require.NoError(t, err)
	assert.True(t, status.Sealed)
	assert.Equal(t, 0, status.Progress)
}

func TestInitialize(t *testing.T) {
	initialized := false

	client := fakevault.Client(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/sys/init", r.URL.Path)

		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"initialized": initialized})
		case http.MethodPut:
			body := map[string]any{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, float64(5), body["secret_shares"])
			assert.Equal(t, float64(3), body["secret_threshold"])

			// zero-valued fields must not be sent at all
			assert.Len(t, body, 2)

			initialized = true

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"keys":        []string{"k1", "k2", "k3", "k4", "k5"},
				"keys_base64": []string{"azE=", "azI=", "azM=", "azQ=", "azU="},
				"root_token":  "hvs.root",
			})
		default:
			assert.Fail(t, "unexpected method", r.Method)
		}
	}))

	ctx := context.Background()
	c := New(client)

	ready, err := c.InitStatus(ctx)
	require.NoError(t, err)
	assert.False(t, ready)

	out, err := c.Initialize(ctx, InitRequest{SecretShares: 5, SecretThreshold: 3})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Len(t, out.Keys, 5)
	assert.Len(t, out.KeysBase64, 5)
	assert.Equal(t, "hvs.root", out.RootToken)

	ready, err = c.InitStatus(ctx)
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestLeader(t *testing.T) {
	client := fakevault.Client(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/sys/leader", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ha_enabled":     true,
			"is_self":        false,
			"leader_address": "https://vault-0.internal:8200",
		})
	}))

	leader, err := New(client).Leader(context.Background())
	require.NoError(t, err)
	require.NotNil(t, leader)

	assert.True(t, leader.HAEnabled)
	assert.False(t, leader.IsSelf)
	assert.Equal(t, "https://vault-0.internal:8200", leader.LeaderAddress)
}

func TestUnwrap(t *testing.T) {
	client := fakevault.Client(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/sys/wrapping/unwrap", r.URL.Path)

		body := map[string]string{}
		_ = json.NewDecoder(r.Body).Decode(&body)

		if tok, ok := body["token"]; ok {
			assert.Equal(t, "wrap-token", tok)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"request_id": "7d6e2c1a",
			"data":       map[string]any{"value": "hello"},
		})
	}))

	ctx := context.Background()
	c := New(client)

	// explicit wrapping token in the body
	secret, err := c.Unwrap(ctx, "wrap-token")
	require.NoError(t, err)
	require.NotNil(t, secret)
	assert.Equal(t, "hello", secret.Data["value"])

	// empty token means the authenticating token is the wrapping token
	secret, err = c.Unwrap(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, secret)
	assert.Equal(t, "hello", secret.Data["value"])
}

func TestUnwrapInvalidToken(t *testing.T) {
	client := fakevault.Client(t, fakevault.ErrorHandler(http.StatusBadRequest, "wrapping token is not valid or does not exist"))

	_, err := New(client).Unwrap(context.Background(), "stale")
	require.Error(t, err)
	assert.Equal(t, vaultik.KindInvalidRequest, vaultik.KindOf(err))
}
