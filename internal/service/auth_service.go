package service

import (
	"certo/internal/cache"
	"certo/internal/config"
	"certo/internal/log"
	"certo/internal/model"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrSessionExpired     = errors.New("participant session expired")
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// AuthService handles researcher login and participant sessions
type AuthService struct {
	username     string
	passwordHash []byte
	jwtSecret    []byte
	sessionTTL   time.Duration
	sessions     cache.SessionCache
	providers    map[string]IdentityProvider
	now          func() time.Time
}

// NewAuthService creates a new auth service. A plain password from config is
// hashed once at startup; a configured hash takes precedence.
func NewAuthService(cfg config.AuthConfig, sessions cache.SessionCache, providers ...IdentityProvider) (*AuthService, error) {
	hash := []byte(cfg.ResearcherHash)
	if len(hash) == 0 {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(cfg.ResearcherPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash researcher password: %w", err)
		}
	}

	s := &AuthService{
		username:     cfg.ResearcherUsername,
		passwordHash: hash,
		jwtSecret:    []byte(cfg.JWTSecret),
		sessionTTL:   cfg.SessionTTL,
		sessions:     sessions,
		providers:    map[string]IdentityProvider{},
		now:          time.Now,
	}
	for _, p := range providers {
		s.providers[p.Name()] = p
	}
	return s, nil
}

// Login validates researcher credentials and returns a token. The researcher
// id, and therefore the owner of published surveys, is the wallet address when
// one is given and the username otherwise.
func (s *AuthService) Login(req model.LoginRequest) (*model.LoginResponse, error) {
	if req.Username != s.username {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	researcherID := req.Username
	if req.Address != "" {
		if !addressPattern.MatchString(req.Address) {
			return nil, invalid("address", "not a valid wallet address")
		}
		researcherID = strings.ToLower(req.Address)
	}

	now := s.now()
	claims := &model.ResearcherClaims{
		ResearcherID: researcherID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	}
	tokenString, err := s.sign(claims)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{
		Token:        tokenString,
		ResearcherID: researcherID,
	}, nil
}

// ValidateResearcherToken validates a researcher JWT and returns claims
func (s *AuthService) ValidateResearcherToken(tokenString string) (*model.ResearcherClaims, error) {
	claims := &model.ResearcherClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.ResearcherID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// StartParticipantSession creates an anonymous participant without credentials.
func (s *AuthService) StartParticipantSession(ctx context.Context) (*model.ParticipantSessionResponse, error) {
	now := s.now()
	p := &model.Participant{
		ID:        "participant_" + uuid.New().String()[:8],
		SessionID: uuid.New().String(),
		CreatedAt: now.UTC(),
	}
	if err := s.sessions.Set(ctx, p); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	claims := &model.ParticipantClaims{
		ParticipantID: p.ID,
		SessionID:     p.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	}
	tokenString, err := s.sign(claims)
	if err != nil {
		return nil, err
	}
	return &model.ParticipantSessionResponse{Token: tokenString, Participant: p}, nil
}

// ValidateParticipantToken validates a participant JWT and loads its session.
func (s *AuthService) ValidateParticipantToken(ctx context.Context, tokenString string) (*model.Participant, error) {
	claims := &model.ParticipantClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.SessionID == "" {
		return nil, ErrInvalidToken
	}

	p, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if p == nil {
		return nil, ErrSessionExpired
	}
	if p.ID != claims.ParticipantID {
		return nil, ErrInvalidToken
	}
	return p, nil
}

// AttachCredential verifies a provider token and records the credential on the
// participant's session.
func (s *AuthService) AttachCredential(ctx context.Context, p *model.Participant, provider, token string) (*model.Participant, error) {
	idp, ok := s.providers[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	if strings.TrimSpace(token) == "" {
		return nil, invalid("token", "credential token is required")
	}

	cred, err := idp.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if !cred.Verified {
		return nil, ErrNotVerified
	}

	updated := *p
	switch cred.Provider {
	case ProviderWorldID:
		updated.WorldIDVerified = true
		updated.WorldIDSubject = cred.Subject
		updated.VerificationLevel = cred.VerificationLevel
	case ProviderQuarkID:
		updated.QuarkIDVerified = true
		updated.QuarkIDSubject = cred.Subject
	default:
		return nil, ErrUnknownProvider
	}

	if err := s.sessions.Set(ctx, &updated); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	log.Infof("participant %s verified with %s", updated.ID, cred.Provider)
	return &updated, nil
}

func (s *AuthService) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *AuthService) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
