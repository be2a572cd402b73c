package services

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// TokenSigner issues a bearer token for subject valid for ttl.
type TokenSigner func(subject string, ttl time.Duration) (string, error)

// GateService protects results behind a shared password. A successful
// login yields a token scoped to one session.
type GateService struct {
	hash      []byte
	signToken TokenSigner
	tokenTTL  time.Duration
}

type GateResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewGateService accepts either a bcrypt hash or a plain password; the plain
// password is hashed once at startup.
func NewGateService(password string, hash string, signer TokenSigner, ttl time.Duration) (*GateService, error) {
	var h []byte
	switch {
	case strings.TrimSpace(hash) != "":
		h = []byte(strings.TrimSpace(hash))
		if _, err := bcrypt.Cost(h); err != nil {
			return nil, err
		}
	case password != "":
		var err error
		h, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
	default:
		return nil, NewInvalidError("results password not configured")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &GateService{hash: h, signToken: signer, tokenTTL: ttl}, nil
}

func (s *GateService) Login(sessionID, password string) (*GateResult, error) {
	if strings.TrimSpace(sessionID) == "" || password == "" {
		return nil, NewInvalidError("session_id/password required")
	}
	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(password)); err != nil {
		return nil, NewUnauthorizedError("invalid password")
	}
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken(sessionID, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &GateResult{Token: token, ExpiresAt: time.Now().UTC().Add(s.tokenTTL)}, nil
}

func (s *GateService) TokenTTL() time.Duration {
	return s.tokenTTL
}
