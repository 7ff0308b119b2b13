package signer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/internal/chain"
)

// CustodySigner delegates to a local key-custody daemon that holds an
// already-decrypted key for the session. When the account is not yet
// unlocked there, the signer runs an authenticate-then-sign two-step.
type CustodySigner struct {
	endpoint string
	account  string
	secret   string
	httpc    *http.Client

	mu    sync.Mutex
	token string
}

// NewCustodySigner wires the custody daemon at endpoint for one account.
// secret is the unlock credential forwarded on authentication.
func NewCustodySigner(endpoint, account, secret string) *CustodySigner {
	return &CustodySigner{
		endpoint: endpoint,
		account:  account,
		secret:   secret,
		httpc:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Token returns the custody session token obtained on the last
// authentication, for callers that forward it alongside the login.
func (s *CustodySigner) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *CustodySigner) Sign(ctx context.Context, message []byte, level core.AuthorityLevel) (string, error) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token == "" {
		var err error
		if token, err = s.authenticate(ctx); err != nil {
			return "", err
		}
	}

	sig, status, err := s.sign(ctx, token, message, level)
	if status == http.StatusUnauthorized {
		// The daemon dropped the unlock; authenticate once and retry.
		if token, err = s.authenticate(ctx); err != nil {
			return "", err
		}
		sig, status, err = s.sign(ctx, token, message, level)
	}
	if err != nil {
		return "", err
	}
	if status == http.StatusUnauthorized {
		return "", fmt.Errorf("custody service refused credentials: %w", core.ErrInvalidCredentials)
	}
	return sig, nil
}

func (s *CustodySigner) authenticate(ctx context.Context) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	status, err := s.post(ctx, "/api/auth", map[string]string{
		"account":  s.account,
		"password": s.secret,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("custody auth: %v: %w", err, core.ErrBackendUnavailable)
	}
	switch status {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("custody service rejected unlock: %w", core.ErrInvalidCredentials)
	default:
		return "", fmt.Errorf("custody auth status %d: %w", status, core.ErrBackendUnavailable)
	}

	s.mu.Lock()
	s.token = resp.Token
	s.mu.Unlock()
	return resp.Token, nil
}

func (s *CustodySigner) sign(ctx context.Context, token string, message []byte, level core.AuthorityLevel) (string, int, error) {
	var resp struct {
		Signature string `json:"signature"`
	}
	status, err := s.post(ctx, "/api/sign", map[string]string{
		"token":    token,
		"account":  s.account,
		"digest":   hex.EncodeToString(chain.Digest(message)),
		"key_type": string(level),
	}, &resp)
	if err != nil {
		return "", 0, fmt.Errorf("custody sign: %v: %w", err, core.ErrBackendUnavailable)
	}
	switch status {
	case http.StatusOK:
		return resp.Signature, status, nil
	case http.StatusUnauthorized:
		return "", status, nil
	case http.StatusForbidden:
		return "", status, fmt.Errorf("custody service declined to sign: %w", core.ErrUserRejected)
	default:
		return "", status, fmt.Errorf("custody sign status %d: %w", status, core.ErrBackendUnavailable)
	}
}

func (s *CustodySigner) post(ctx context.Context, path string, body interface{}, out interface{}) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
