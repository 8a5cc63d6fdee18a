package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"StoreFront/internal/session"
)

// AuthClient covers the unauthenticated session-lifecycle endpoints. It is
// separate from Client so that the refresh call itself can never recurse
// into the 401-refresh-retry path.
type AuthClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewAuthClient(baseURL string, timeout time.Duration) *AuthClient {
	return &AuthClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type grantBody struct {
	CustomerID  string `json:"customerId"`
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn,omitempty"` // seconds, 0 = not sent
}

func (b grantBody) grant() session.Grant {
	return session.Grant{
		CustomerID:  b.CustomerID,
		AccessToken: b.AccessToken,
		ExpiresIn:   time.Duration(b.ExpiresIn) * time.Second,
	}
}

func (a *AuthClient) Login(ctx context.Context, email, password string) (session.Grant, error) {
	var out grantBody
	err := a.post(ctx, "/customer/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return session.Grant{}, err
	}
	return out.grant(), nil
}

// RefreshGrant implements session.Refresher.
func (a *AuthClient) RefreshGrant(ctx context.Context, accessToken string) (session.Grant, error) {
	var out grantBody
	err := a.post(ctx, "/token/refresh_token", map[string]string{
		"accessToken": accessToken,
	}, &out)
	if err != nil {
		return session.Grant{}, err
	}
	return out.grant(), nil
}

func (a *AuthClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("backend POST %s: %w", path, err)
	}
	return decode(resp, out)
}
