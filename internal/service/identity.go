package service

import (
	"bytes"
	"certo/internal/model"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	ProviderWorldID = "worldid"
	ProviderQuarkID = "quarkid"

	worldIDLevelClaim = "https://id.worldcoin.org/v1.verification_level"
)

var (
	ErrUnknownProvider = errors.New("unknown identity provider")
	ErrNotVerified     = errors.New("credential not verified")
)

var verificationRank = map[string]int{"device": 1, "orb": 2}

// IdentityProvider verifies a proof-of-personhood token with its issuer.
type IdentityProvider interface {
	Name() string
	Verify(ctx context.Context, token string) (*model.Credential, error)
}

// WorldIDProvider validates a World ID access token against the OIDC userinfo
// endpoint and checks the verification level.
type WorldIDProvider struct {
	userInfoURL string
	minLevel    string
	httpClient  *http.Client
}

// NewWorldIDProvider creates a World ID provider
func NewWorldIDProvider(userInfoURL, minLevel string, timeout time.Duration) *WorldIDProvider {
	return &WorldIDProvider{
		userInfoURL: userInfoURL,
		minLevel:    minLevel,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (p *WorldIDProvider) Name() string { return ProviderWorldID }

func (p *WorldIDProvider) Verify(ctx context.Context, token string) (*model.Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var info map[string]any
	if err := doJSON(p.httpClient, req, &info); err != nil {
		return nil, fmt.Errorf("world id userinfo: %w", err)
	}

	sub, _ := info["sub"].(string)
	level, _ := info[worldIDLevelClaim].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: userinfo has no subject", ErrNotVerified)
	}
	if verificationRank[level] < verificationRank[p.minLevel] || verificationRank[level] == 0 {
		return nil, fmt.Errorf("%w: verification level %q below %q", ErrNotVerified, level, p.minLevel)
	}
	return &model.Credential{
		Provider:          ProviderWorldID,
		Subject:           sub,
		VerificationLevel: level,
		Verified:          true,
	}, nil
}

// QuarkIDProvider posts a Quark ID presentation to a verifier service
type QuarkIDProvider struct {
	verifyURL  string
	httpClient *http.Client
}

// NewQuarkIDProvider creates a Quark ID provider
func NewQuarkIDProvider(verifyURL string, timeout time.Duration) *QuarkIDProvider {
	return &QuarkIDProvider{
		verifyURL:  verifyURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *QuarkIDProvider) Name() string { return ProviderQuarkID }

func (p *QuarkIDProvider) Verify(ctx context.Context, token string) (*model.Credential, error) {
	body, err := json.Marshal(map[string]string{"presentation": token})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.verifyURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result struct {
		Subject  string `json:"subject"`
		Verified bool   `json:"verified"`
	}
	if err := doJSON(p.httpClient, req, &result); err != nil {
		return nil, fmt.Errorf("quark id verify: %w", err)
	}
	if !result.Verified || result.Subject == "" {
		return nil, ErrNotVerified
	}
	return &model.Credential{
		Provider: ProviderQuarkID,
		Subject:  result.Subject,
		Verified: true,
	}, nil
}

func doJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrNotVerified, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return json.Unmarshal(data, out)
}
