package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/ports"
)

// SignerSelector picks the signer backend for a login attempt. Selection
// happens exactly once per attempt; the orchestrator never inspects
// backend internals afterwards.
type SignerSelector interface {
	Select(loginType core.LoginType, username, secret string) (ports.Signer, error)
}

// LoginRequest describes one login attempt.
type LoginRequest struct {
	// SessionID scopes the one-attempt-in-flight guard; falls back to the
	// username when empty.
	SessionID string

	LoginType core.LoginType
	Username  string

	// Secret is backend-specific: a WIF for the key backend, the unlock
	// credential for the custody backend, unused otherwise.
	Secret string

	// Challenge is the server-issued login challenge token.
	Challenge string

	// Levels lists the authority levels to prove. Defaults to posting.
	// Each level gets an independently produced signature; a lower level
	// is never substituted for a higher requirement.
	Levels []core.AuthorityLevel
}

// LoginResult is the proof bundle submitted to session issuance.
type LoginResult struct {
	Signatures      core.SignatureSet
	HivesignerToken string
}

// LoginService drives a signer backend to produce the signature set for a
// login challenge.
type LoginService struct {
	selector SignerSelector
	log      *logrus.Entry

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewLoginService creates the login orchestrator.
func NewLoginService(selector SignerSelector, log *logrus.Entry) *LoginService {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LoginService{
		selector: selector,
		log:      log.WithField("component", "login"),
		inFlight: make(map[string]struct{}),
	}
}

// Login produces one signature per requested level over the canonical
// login message. Exactly one attempt may be in flight per session; a
// concurrent second attempt is rejected rather than merged.
func (s *LoginService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if req.Username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if req.Challenge == "" {
		return nil, fmt.Errorf("login challenge is required")
	}

	levels := req.Levels
	if len(levels) == 0 {
		levels = []core.AuthorityLevel{core.LevelPosting}
	}
	for _, level := range levels {
		if !level.Valid() {
			return nil, fmt.Errorf("invalid authority level %q", level)
		}
	}

	key := req.SessionID
	if key == "" {
		key = req.Username
	}
	if !s.acquire(key) {
		return nil, core.ErrLoginInFlight
	}
	defer s.release(key)

	backend, err := s.selector.Select(req.LoginType, req.Username, req.Secret)
	if err != nil {
		return nil, s.translate(req, err)
	}

	message := core.LoginMessage(req.Challenge)
	signatures := make(core.SignatureSet, len(levels))
	for _, level := range levels {
		if _, done := signatures[level]; done {
			continue
		}
		sig, err := backend.Sign(ctx, message, level)
		if err != nil {
			return nil, s.translate(req, err)
		}
		signatures[level] = sig
	}

	result := &LoginResult{Signatures: signatures}
	if tokener, ok := backend.(interface{ Token() string }); ok {
		result.HivesignerToken = tokener.Token()
	}

	s.log.WithFields(logrus.Fields{
		"username":   req.Username,
		"login_type": req.LoginType,
		"levels":     levels,
	}).Info("login proof assembled")
	return result, nil
}

func (s *LoginService) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *LoginService) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
}

// translate collapses backend failures into one user-facing error per
// category. The raw backend error is logged, never returned.
func (s *LoginService) translate(req LoginRequest, err error) error {
	s.log.WithError(err).WithFields(logrus.Fields{
		"username":   req.Username,
		"login_type": req.LoginType,
	}).Warn("signer backend failed")

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return core.ErrExpired
	case errors.Is(err, core.ErrUserRejected):
		return core.ErrUserRejected
	case errors.Is(err, core.ErrExpired):
		return core.ErrExpired
	case errors.Is(err, core.ErrInvalidCredentials):
		return core.ErrInvalidCredentials
	case errors.Is(err, core.ErrAttachFailed):
		return core.ErrAttachFailed
	case errors.Is(err, core.ErrVerificationFailed):
		return core.ErrVerificationFailed
	default:
		return core.ErrBackendUnavailable
	}
}
