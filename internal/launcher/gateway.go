package launcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Gateway launches sessions through a remote HTTP API with a bearer
// credential. With a signing secret configured it mints a short-lived HS256
// token per request; otherwise the static token is sent as-is.
type Gateway struct {
	BaseURL       string
	Token         string
	SigningSecret string
	client        *http.Client
}

// NewGateway creates the remote transport with its own timeout.
func NewGateway(baseURL, token, signingSecret string, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gateway{
		BaseURL:       baseURL,
		Token:         token,
		SigningSecret: signingSecret,
		client:        &http.Client{Timeout: timeout},
	}
}

func (g *Gateway) Name() string { return "gateway" }

// Launch POSTs the session request to the gateway.
func (g *Gateway) Launch(ctx context.Context, req *Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	token, err := g.bearerToken(req.Drive)
	if err != nil {
		return nil, err
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gateway error %d: %s", resp.StatusCode, string(body))
	}

	var spawn spawnResponse
	if err := json.NewDecoder(resp.Body).Decode(&spawn); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if spawn.Error != "" {
		return nil, fmt.Errorf("gateway rejected launch: %s", spawn.Error)
	}
	if !spawn.accepted() {
		return nil, fmt.Errorf("gateway response did not indicate acceptance")
	}

	return &Result{SessionID: spawn.SessionID, Transport: g.Name()}, nil
}

// bearerToken returns the credential for one request. Minted tokens expire
// quickly; the gateway only needs them to survive a single call.
func (g *Gateway) bearerToken(driveName string) (string, error) {
	if g.SigningSecret == "" {
		return g.Token, nil
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   "volition",
		"drive": driveName,
		"iat":   now.Unix(),
		"exp":   now.Add(2 * time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(g.SigningSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign gateway token: %w", err)
	}
	return token, nil
}
