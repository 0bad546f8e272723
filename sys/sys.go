// Package sys calls the system backend: health and seal state, the unseal
// ceremony, initialization, leader discovery, and unwrapping of wrapped
// responses. All calls go through a vaultik.Client and the paths are fixed
// under /v1/sys.
package sys

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-secure-stdlib/strutil"

	"github.com/vaultik/vaultik"
)

// Client calls the system backend endpoints.
type Client struct {
	vault *vaultik.Client
}

// New returns a Client for the system backend reached through vault.
func New(vault *vaultik.Client) *Client {
	return &Client{vault: vault}
}

// HealthResponse is the payload of the health endpoint.
type HealthResponse struct {
	Initialized                bool   `json:"initialized" mapstructure:"initialized"`
	Sealed                     bool   `json:"sealed" mapstructure:"sealed"`
	Standby                    bool   `json:"standby" mapstructure:"standby"`
	PerformanceStandby         bool   `json:"performance_standby" mapstructure:"performance_standby"`
	ReplicationPerformanceMode string `json:"replication_performance_mode" mapstructure:"replication_performance_mode"`
	ReplicationDRMode          string `json:"replication_dr_mode" mapstructure:"replication_dr_mode"`
	ServerTimeUTC              int64  `json:"server_time_utc" mapstructure:"server_time_utc"`
	Version                    string `json:"version" mapstructure:"version"`
	ClusterName                string `json:"cluster_name" mapstructure:"cluster_name"`
	ClusterID                  string `json:"cluster_id" mapstructure:"cluster_id"`
}

// SealStatusResponse is the payload of the seal-status and unseal endpoints.
type SealStatusResponse struct {
	Type         string `json:"type" mapstructure:"type"`
	Initialized  bool   `json:"initialized" mapstructure:"initialized"`
	Sealed       bool   `json:"sealed" mapstructure:"sealed"`
	T            int    `json:"t" mapstructure:"t"`
	N            int    `json:"n" mapstructure:"n"`
	Progress     int    `json:"progress" mapstructure:"progress"`
	Nonce        string `json:"nonce" mapstructure:"nonce"`
	Version      string `json:"version" mapstructure:"version"`
	Migration    bool   `json:"migration" mapstructure:"migration"`
	ClusterName  string `json:"cluster_name" mapstructure:"cluster_name"`
	ClusterID    string `json:"cluster_id" mapstructure:"cluster_id"`
	RecoverySeal bool   `json:"recovery_seal" mapstructure:"recovery_seal"`
	StorageType  string `json:"storage_type" mapstructure:"storage_type"`
}

// InitRequest configures initialization: how many key shares to produce and
// how many are needed to unseal.
type InitRequest struct {
	SecretShares    int `json:"secret_shares"`
	SecretThreshold int `json:"secret_threshold"`

	PGPKeys         []string `json:"pgp_keys,omitempty"`
	RootTokenPGPKey string   `json:"root_token_pgp_key,omitempty"`
	StoredShares    int      `json:"stored_shares,omitempty"`

	RecoveryShares    int      `json:"recovery_shares,omitempty"`
	RecoveryThreshold int      `json:"recovery_threshold,omitempty"`
	RecoveryPGPKeys   []string `json:"recovery_pgp_keys,omitempty"`
}

// InitResponse carries the key shares and root token produced by
// initialization. This is the only time the server reveals them.
type InitResponse struct {
	Keys               []string `json:"keys" mapstructure:"keys"`
	KeysBase64         []string `json:"keys_base64" mapstructure:"keys_base64"`
	RecoveryKeys       []string `json:"recovery_keys" mapstructure:"recovery_keys"`
	RecoveryKeysBase64 []string `json:"recovery_keys_base64" mapstructure:"recovery_keys_base64"`
	RootToken          string   `json:"root_token" mapstructure:"root_token"`
}

// LeaderResponse is the payload of the leader endpoint.
type LeaderResponse struct {
	HAEnabled            bool   `json:"ha_enabled" mapstructure:"ha_enabled"`
	IsSelf               bool   `json:"is_self" mapstructure:"is_self"`
	LeaderAddress        string `json:"leader_address" mapstructure:"leader_address"`
	LeaderClusterAddress string `json:"leader_cluster_address" mapstructure:"leader_cluster_address"`
}

// Health reports the node's health. The endpoint encodes health in the
// status code itself (200 active, 429 standby, 501 uninitialized, 503
// sealed) so error classification is suppressed and the body is decoded
// whatever the status.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.vault.Get(ctx, "/v1/sys/health", vaultik.IgnoreErrorStatus())
	if err != nil {
		return nil, err
	}

	health := &HealthResponse{}
	if err := resp.Decode(health); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}

	return health, nil
}

// SealStatus reports the current seal state.
func (c *Client) SealStatus(ctx context.Context) (*SealStatusResponse, error) {
	resp, err := c.vault.Get(ctx, "/v1/sys/seal-status")
	if err != nil {
		return nil, err
	}

	return sealStatusFrom(resp)
}

// Seal seals the server. Requires a token with the appropriate policy.
func (c *Client) Seal(ctx context.Context) error {
	_, err := c.vault.Put(ctx, "/v1/sys/seal")

	return err
}

// SubmitUnsealKey feeds one key share to the unseal ceremony and returns the
// resulting seal state.
func (c *Client) SubmitUnsealKey(ctx context.Context, key string) (*SealStatusResponse, error) {
	return c.unseal(ctx, map[string]any{"key": key})
}

// SubmitUnsealKeys feeds key shares one at a time until the server reports
// itself unsealed or the shares run out, and returns the last seal state
// seen. Duplicate shares are skipped since the server counts them as no
// progress. Callers check Sealed on the result; with no fresh shares the
// result is nil.
func (c *Client) SubmitUnsealKeys(ctx context.Context, keys []string) (*SealStatusResponse, error) {
	var (
		status *SealStatusResponse
		used   []string
	)

	for _, key := range keys {
		if strutil.StrListContains(used, key) {
			continue
		}

		used = append(used, key)

		var err error

		status, err = c.SubmitUnsealKey(ctx, key)
		if err != nil {
			return nil, err
		}

		if !status.Sealed {
			break
		}
	}

	return status, nil
}

// ResetUnseal discards the key shares accumulated so far, restarting the
// ceremony.
func (c *Client) ResetUnseal(ctx context.Context) (*SealStatusResponse, error) {
	return c.unseal(ctx, map[string]any{"reset": true})
}

func (c *Client) unseal(ctx context.Context, body map[string]any) (*SealStatusResponse, error) {
	resp, err := c.vault.Put(ctx, "/v1/sys/unseal", vaultik.WithJSONBody(body))
	if err != nil {
		return nil, err
	}

	return sealStatusFrom(resp)
}

func sealStatusFrom(resp *vaultik.Response) (*SealStatusResponse, error) {
	status := &SealStatusResponse{}
	if err := resp.Decode(status); err != nil {
		return nil, fmt.Errorf("decode seal status: %w", err)
	}

	return status, nil
}

// InitStatus reports whether the server has been initialized.
func (c *Client) InitStatus(ctx context.Context) (bool, error) {
	resp, err := c.vault.Get(ctx, "/v1/sys/init")
	if err != nil {
		return false, err
	}

	var status struct {
		Initialized bool `json:"initialized" mapstructure:"initialized"`
	}

	if err := resp.Decode(&status); err != nil {
		return false, fmt.Errorf("decode init status: %w", err)
	}

	return status.Initialized, nil
}

// Initialize initializes a new server, producing its key shares and root
// token. Fails on a server that is already initialized.
func (c *Client) Initialize(ctx context.Context, req InitRequest) (*InitResponse, error) {
	resp, err := c.vault.Put(ctx, "/v1/sys/init", vaultik.WithJSONBody(req))
	if err != nil {
		return nil, err
	}

	out := &InitResponse{}
	if err := resp.Decode(out); err != nil {
		return nil, fmt.Errorf("decode init response: %w", err)
	}

	return out, nil
}

// Leader reports the high-availability status of the node and the address of
// the current leader.
func (c *Client) Leader(ctx context.Context) (*LeaderResponse, error) {
	resp, err := c.vault.Get(ctx, "/v1/sys/leader")
	if err != nil {
		return nil, err
	}

	leader := &LeaderResponse{}
	if err := resp.Decode(leader); err != nil {
		return nil, fmt.Errorf("decode leader response: %w", err)
	}

	return leader, nil
}

// Unwrap exchanges a wrapping token for the response it wraps. With an empty
// token the server unwraps the token that authenticated the request itself.
func (c *Client) Unwrap(ctx context.Context, token string) (*vaultik.Secret, error) {
	var opts []vaultik.Option

	if token != "" {
		opts = append(opts, vaultik.WithJSONBody(map[string]string{"token": token}))
	}

	resp, err := c.vault.Post(ctx, "/v1/sys/wrapping/unwrap", opts...)
	if err != nil {
		return nil, err
	}

	return resp.Secret()
}
