package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ispadmin-io/ispadmin/pkg/httpclient"
	"go.uber.org/zap"
)

// Client is the narrow view of the router agent the provisioning saga
// consumes. All calls block for the duration of the remote operation.
type Client interface {
	CreateUser(ctx context.Context, router RouterRef, creds Credentials) (*RemoteAuthProfile, error)
	DeleteUser(ctx context.Context, router RouterRef, remoteID string) error
	GetUserConfig(ctx context.Context, router RouterRef, username string) (*UserConfig, error)
	UpdateProfile(ctx context.Context, router RouterRef, patch ProfilePatch) error
	GetProfile(ctx context.Context, router RouterRef, username string) (*ProfileSnapshot, error)
	RestoreProfile(ctx context.Context, snapshot ProfileSnapshot) (*RemoteAuthProfile, error)
}

type routerAgentClient struct {
	baseURL string
	logger  *zap.Logger
}

// NewClient talks to the router management agent, which proxies PPP secret
// operations to the concentrator named in each RouterRef.
func NewClient(baseURL string, logger *zap.Logger) Client {
	return &routerAgentClient{
		baseURL: baseURL,
		logger:  logger.Named("gateway"),
	}
}

func (c *routerAgentClient) secretsURL(router RouterRef) string {
	return fmt.Sprintf("%s/api/v1/nas/%s/ppp-secrets", c.baseURL, url.PathEscape(router.Address))
}

func (c *routerAgentClient) CreateUser(ctx context.Context, router RouterRef, creds Credentials) (*RemoteAuthProfile, error) {
	payload, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("marshal credentials: %w", err)
	}

	var profile RemoteAuthProfile
	if err := httpclient.DoRequest(ctx, http.MethodPost, c.secretsURL(router), nil, payload, &profile); err != nil {
		return nil, &Error{Op: "create user", Router: router.Address, Err: err}
	}

	c.logger.Info("created ppp secret",
		zap.String("router", router.Address),
		zap.String("username", creds.Username),
		zap.String("remoteID", profile.RemoteID))
	return &profile, nil
}

func (c *routerAgentClient) DeleteUser(ctx context.Context, router RouterRef, remoteID string) error {
	u := fmt.Sprintf("%s/%s", c.secretsURL(router), url.PathEscape(remoteID))
	if err := httpclient.DoRequest(ctx, http.MethodDelete, u, nil, nil, nil); err != nil {
		return &Error{Op: "delete user", Router: router.Address, Err: err}
	}

	c.logger.Info("deleted ppp secret",
		zap.String("router", router.Address),
		zap.String("remoteID", remoteID))
	return nil
}

func (c *routerAgentClient) GetUserConfig(ctx context.Context, router RouterRef, username string) (*UserConfig, error) {
	u := fmt.Sprintf("%s/%s/config", c.secretsURL(router), url.PathEscape(username))

	var cfg UserConfig
	if err := httpclient.DoRequest(ctx, http.MethodGet, u, nil, nil, &cfg); err != nil {
		return nil, &Error{Op: "get user config", Router: router.Address, Err: err}
	}
	return &cfg, nil
}

func (c *routerAgentClient) UpdateProfile(ctx context.Context, router RouterRef, patch ProfilePatch) error {
	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal patch: %w", err)
	}

	u := fmt.Sprintf("%s/%s", c.secretsURL(router), url.PathEscape(patch.Username))
	if err := httpclient.DoRequest(ctx, http.MethodPut, u, nil, payload, nil); err != nil {
		return &Error{Op: "update profile", Router: router.Address, Err: err}
	}

	c.logger.Info("updated ppp secret",
		zap.String("router", router.Address),
		zap.String("username", patch.Username))
	return nil
}

func (c *routerAgentClient) GetProfile(ctx context.Context, router RouterRef, username string) (*ProfileSnapshot, error) {
	u := fmt.Sprintf("%s/%s", c.secretsURL(router), url.PathEscape(username))

	var snapshot ProfileSnapshot
	if err := httpclient.DoRequest(ctx, http.MethodGet, u, nil, nil, &snapshot); err != nil {
		return nil, &Error{Op: "get profile", Router: router.Address, Err: err}
	}
	snapshot.Router = router
	return &snapshot, nil
}

func (c *routerAgentClient) RestoreProfile(ctx context.Context, snapshot ProfileSnapshot) (*RemoteAuthProfile, error) {
	creds := Credentials{
		Username:    snapshot.Username,
		Password:    snapshot.Password,
		ProfileName: snapshot.ProfileName,
		RateLimit:   snapshot.RateLimit,
	}
	profile, err := c.CreateUser(ctx, snapshot.Router, creds)
	if err != nil {
		return nil, &Error{Op: "restore profile", Router: snapshot.Router.Address, Err: err}
	}
	return profile, nil
}
