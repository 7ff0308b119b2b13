package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/ports"
)

type signCall struct {
	message []byte
	level   core.AuthorityLevel
}

type fakeSigner struct {
	mu    sync.Mutex
	calls []signCall
	err   error
	block chan struct{}
	token string
}

func (f *fakeSigner) Sign(ctx context.Context, message []byte, level core.AuthorityLevel) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, signCall{message: message, level: level})
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return "sig-" + string(level), nil
}

func (f *fakeSigner) Token() string { return f.token }

type fakeSelector struct {
	signer ports.Signer
	err    error
}

func (f *fakeSelector) Select(core.LoginType, string, string) (ports.Signer, error) {
	return f.signer, f.err
}

func TestLoginSignsEachLevel(t *testing.T) {
	signer := &fakeSigner{}
	svc := NewLoginService(&fakeSelector{signer: signer}, nil)

	result, err := svc.Login(context.Background(), LoginRequest{
		LoginType: core.LoginTypeKeychain,
		Username:  "alice",
		Challenge: "abc123",
		Levels:    []core.AuthorityLevel{core.LevelPosting, core.LevelActive},
	})
	require.NoError(t, err)
	assert.Equal(t, "sig-posting", result.Signatures[core.LevelPosting])
	assert.Equal(t, "sig-active", result.Signatures[core.LevelActive])

	// Each level got its own signing pass over the canonical message.
	require.Len(t, signer.calls, 2)
	for _, call := range signer.calls {
		assert.Equal(t, `{"token":"abc123"}`, string(call.message))
	}
	assert.NotEqual(t, signer.calls[0].level, signer.calls[1].level)
}

func TestLoginDefaultsToPosting(t *testing.T) {
	signer := &fakeSigner{}
	svc := NewLoginService(&fakeSelector{signer: signer}, nil)

	result, err := svc.Login(context.Background(), LoginRequest{
		LoginType: core.LoginTypeKeychain,
		Username:  "alice",
		Challenge: "abc123",
	})
	require.NoError(t, err)
	require.Len(t, signer.calls, 1)
	assert.Equal(t, core.LevelPosting, signer.calls[0].level)
	assert.Len(t, result.Signatures, 1)
}

func TestLoginRejectsConcurrentAttempt(t *testing.T) {
	signer := &fakeSigner{block: make(chan struct{})}
	svc := NewLoginService(&fakeSelector{signer: signer}, nil)

	req := LoginRequest{
		SessionID: "sess-1",
		LoginType: core.LoginTypeKeychain,
		Username:  "alice",
		Challenge: "abc123",
	}

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.Login(context.Background(), req)
		firstDone <- err
	}()

	// Wait until the first attempt holds the guard.
	require.Eventually(t, func() bool {
		signer.mu.Lock()
		defer signer.mu.Unlock()
		return len(signer.calls) > 0
	}, time.Second, time.Millisecond)

	_, err := svc.Login(context.Background(), req)
	assert.ErrorIs(t, err, core.ErrLoginInFlight)

	close(signer.block)
	require.NoError(t, <-firstDone)

	// The guard is released once the first attempt resolves.
	_, err = svc.Login(context.Background(), req)
	assert.NoError(t, err)
}

func TestLoginTranslatesBackendErrors(t *testing.T) {
	tests := []struct {
		name    string
		backend error
		want    error
	}{
		{"wrapped rejection", fmt.Errorf("relay said no: %w", core.ErrUserRejected), core.ErrUserRejected},
		{"wrapped expiry", fmt.Errorf("timer fired: %w", core.ErrExpired), core.ErrExpired},
		{"bad credentials", fmt.Errorf("wif: %w", core.ErrInvalidCredentials), core.ErrInvalidCredentials},
		{"attach exhausted", fmt.Errorf("gave up: %w", core.ErrAttachFailed), core.ErrAttachFailed},
		{"context canceled", context.Canceled, core.ErrExpired},
		{"unclassified", errors.New("socket torn"), core.ErrBackendUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer := &fakeSigner{err: tt.backend}
			svc := NewLoginService(&fakeSelector{signer: signer}, nil)

			_, err := svc.Login(context.Background(), LoginRequest{
				LoginType: core.LoginTypeKeychain,
				Username:  "alice",
				Challenge: "abc123",
			})
			// The category comes back; the raw backend detail does not.
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.want.Error(), err.Error())
		})
	}
}

func TestLoginSelectorFailure(t *testing.T) {
	svc := NewLoginService(&fakeSelector{err: fmt.Errorf("disabled: %w", core.ErrBackendUnavailable)}, nil)

	_, err := svc.Login(context.Background(), LoginRequest{
		LoginType: core.LoginTypeHiveAuth,
		Username:  "alice",
		Challenge: "abc123",
	})
	assert.ErrorIs(t, err, core.ErrBackendUnavailable)
}

func TestLoginCarriesCustodyToken(t *testing.T) {
	signer := &fakeSigner{token: "custody-token"}
	svc := NewLoginService(&fakeSelector{signer: signer}, nil)

	result, err := svc.Login(context.Background(), LoginRequest{
		LoginType: core.LoginTypeHiveSigner,
		Username:  "alice",
		Challenge: "abc123",
	})
	require.NoError(t, err)
	assert.Equal(t, "custody-token", result.HivesignerToken)
}

func TestLoginValidatesRequest(t *testing.T) {
	svc := NewLoginService(&fakeSelector{signer: &fakeSigner{}}, nil)

	_, err := svc.Login(context.Background(), LoginRequest{Challenge: "abc123"})
	assert.Error(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Username: "alice"})
	assert.Error(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{
		Username:  "alice",
		Challenge: "abc123",
		Levels:    []core.AuthorityLevel{core.AuthorityLevel("memo")},
	})
	assert.Error(t, err)
}
