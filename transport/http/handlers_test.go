package http

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivelink/warden/adapters/accounts"
	"github.com/hivelink/warden/adapters/provider"
	"github.com/hivelink/warden/adapters/store"
	"github.com/hivelink/warden/adapters/tokenizer"
	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/internal/chain"
	"github.com/hivelink/warden/oauth"
	"github.com/hivelink/warden/service"
)

type nopPublisher struct{}

func (nopPublisher) PublishLogin(context.Context, string, core.AuthorityLevel) error { return nil }
func (nopPublisher) PublishLogout(context.Context, string, string) error             { return nil }

type routerFixture struct {
	router   *gin.Engine
	provider *provider.MemoryProvider
	key      *chain.PrivateKey
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	key, err := chain.NewPrivateKey()
	require.NoError(t, err)

	source := accounts.NewMemorySource()
	source.SetAuthority("alice", core.LevelPosting, &core.Authority{
		WeightThreshold: 1,
		KeyAuths:        []core.KeyWeight{{Key: key.PublicKey().String(), Weight: 1}},
	})

	authService := service.NewAuthService(
		tokenizer.NewJWTTokenizer(signKey),
		store.NewMemoryStore(),
		service.NewAuthorityService(source, service.ModeStrict, nil),
		nopPublisher{},
		nil,
	)

	oidc := provider.NewMemoryProvider()
	oidc.AddClient(&core.OAuthClient{ID: "client-1", Name: "Example App"})
	controller := oauth.NewController(oidc, store.NewMemoryStore(), oauth.Config{}, nil)

	return &routerFixture{
		router:   SetupRouter(authService, controller),
		provider: oidc,
		key:      key,
	}
}

func (f *routerFixture) do(t *testing.T, method, path string, body interface{}, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// login walks the full challenge/sign/login flow and returns the tokens.
func (f *routerFixture) login(t *testing.T) (string, string) {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/auth/challenge", gin.H{"account": "alice"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	challenge := decodeBody(t, rec)["token"].(string)

	sig, err := f.key.SignDigest(chain.Digest(core.LoginMessage(challenge)))
	require.NoError(t, err)

	rec = f.do(t, http.MethodPost, "/auth/login", gin.H{
		"username":   "alice",
		"challenge":  challenge,
		"signatures": gin.H{"posting": sig},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	return body["access_token"].(string), body["refresh_token"].(string)
}

func TestLoginFlowOverHTTP(t *testing.T) {
	f := newRouterFixture(t)
	access, refresh := f.login(t)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	rec := f.do(t, http.MethodGet, "/api/me", nil, map[string]string{
		"Authorization": "Bearer " + access,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "alice", body["account"])
	assert.Equal(t, "posting", body["level"])
}

func TestLoginChallengeReplayOverHTTP(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/challenge", gin.H{"account": "alice"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	challenge := decodeBody(t, rec)["token"].(string)

	sig, err := f.key.SignDigest(chain.Digest(core.LoginMessage(challenge)))
	require.NoError(t, err)
	payload := gin.H{
		"username":   "alice",
		"challenge":  challenge,
		"signatures": gin.H{"posting": sig},
	}

	rec = f.do(t, http.MethodPost, "/auth/login", payload, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/login", payload, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginRejectsBadSignatureOverHTTP(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/challenge", gin.H{"account": "alice"}, nil)
	challenge := decodeBody(t, rec)["token"].(string)

	stranger, err := chain.NewPrivateKey()
	require.NoError(t, err)
	sig, err := stranger.SignDigest(chain.Digest(core.LoginMessage(challenge)))
	require.NoError(t, err)

	rec = f.do(t, http.MethodPost, "/auth/login", gin.H{
		"username":   "alice",
		"challenge":  challenge,
		"signatures": gin.H{"posting": sig},
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshAndLogoutOverHTTP(t *testing.T) {
	f := newRouterFixture(t)
	_, refresh := f.login(t)

	rec := f.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": refresh}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decodeBody(t, rec)["refresh_token"].(string)

	// The pre-rotation token is dead.
	rec = f.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": refresh}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/logout", gin.H{"refresh_token": rotated}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": rotated}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/me", nil, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOAuthLoginPromptAnonymous(t *testing.T) {
	f := newRouterFixture(t)
	f.provider.AddInteraction(&core.Interaction{
		UID:      "uid-1",
		Prompt:   core.PromptLogin,
		ClientID: "client-1",
		ReturnTo: "https://rp.example/return",
	})

	rec := f.do(t, http.MethodGet, "/oauth/interaction/uid-1/login", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "login", body["prompt"])
}

func TestOAuthLoginPromptWithSession(t *testing.T) {
	f := newRouterFixture(t)
	access, _ := f.login(t)
	f.provider.AddInteraction(&core.Interaction{
		UID:      "uid-1",
		Prompt:   core.PromptLogin,
		ClientID: "client-1",
		ReturnTo: "https://rp.example/return",
	})

	rec := f.do(t, http.MethodGet, "/oauth/interaction/uid-1/login", nil, map[string]string{
		"Authorization": "Bearer " + access,
	})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://rp.example/return", rec.Header().Get("Location"))
}

func TestOAuthConsentFlow(t *testing.T) {
	f := newRouterFixture(t)
	access, _ := f.login(t)
	auth := map[string]string{"Authorization": "Bearer " + access}

	f.provider.AddInteraction(&core.Interaction{
		UID:      "uid-1",
		Prompt:   core.PromptConsent,
		ClientID: "client-1",
		ReturnTo: "https://rp.example/return",
		Scopes:   []string{"openid"},
	})

	rec := f.do(t, http.MethodGet, "/oauth/interaction/uid-1/consent", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Example App", body["client"].(map[string]interface{})["name"])

	rec = f.do(t, http.MethodPost, "/oauth/interaction/uid-1/consent", gin.H{
		"oauthClientId": "client-1",
		"consent":       true,
	}, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://rp.example/return", decodeBody(t, rec)["redirect_to"])

	result, ok := f.provider.Finished("uid-1")
	require.True(t, ok)
	require.NotNil(t, result.Consent)
}

func TestOAuthConsentWrongPrompt(t *testing.T) {
	f := newRouterFixture(t)
	access, _ := f.login(t)
	f.provider.AddInteraction(&core.Interaction{
		UID:      "uid-1",
		Prompt:   core.PromptLogin,
		ClientID: "client-1",
		ReturnTo: "https://rp.example/return",
	})

	rec := f.do(t, http.MethodGet, "/oauth/interaction/uid-1/consent", nil, map[string]string{
		"Authorization": "Bearer " + access,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeBody(t, rec)["error"])
}
