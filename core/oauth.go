package core

import "time"

// PromptLogin and PromptConsent are the two interaction prompts the
// provider library hands to this service.
const (
	PromptLogin   = "login"
	PromptConsent = "consent"
)

// Interaction is one pending unit of work in an OAuth authorization flow.
// It is owned by the provider library; this service only reads it and
// reports completion.
type Interaction struct {
	UID      string
	Prompt   string
	ClientID string
	GrantID  string // set when the client already holds a grant
	ReturnTo string
	Scopes   []string
	Claims   []string
}

// LoginResult finalizes a login prompt with the authenticated account.
type LoginResult struct {
	AccountID string
}

// ConsentResult finalizes a consent prompt with the grant that was
// created or extended.
type ConsentResult struct {
	GrantID string
}

// InteractionResult is the completion payload passed back to the provider
// library. Exactly one of Login, Consent or Error is set.
type InteractionResult struct {
	Login            *LoginResult
	Consent          *ConsentResult
	Error            string
	ErrorDescription string
}

// Grant is the provider library's record of what a user authorized a
// client to access.
type Grant struct {
	ID        string
	AccountID string
	ClientID  string
	Scopes    []string
	Claims    []string
}

// AddScopes merges the given scopes into the grant, keeping existing ones.
func (g *Grant) AddScopes(scopes []string) {
	g.Scopes = mergeUnique(g.Scopes, scopes)
}

// AddClaims merges the given claims into the grant, keeping existing ones.
func (g *Grant) AddClaims(claims []string) {
	g.Claims = mergeUnique(g.Claims, claims)
}

func mergeUnique(have, add []string) []string {
	seen := make(map[string]struct{}, len(have))
	for _, s := range have {
		seen[s] = struct{}{}
	}
	for _, s := range add {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			have = append(have, s)
		}
	}
	return have
}

// OAuthClient is the display metadata of a registered OAuth client,
// returned to the consent UI when a decision is still pending.
type OAuthClient struct {
	ID        string
	Name      string
	LogoURI   string
	PolicyURI string
	Scopes    []string
}

// ConsentRecord is one user's sticky consent decision for one client.
type ConsentRecord struct {
	Account   string
	ClientID  string
	Granted   bool
	DecidedAt time.Time
}
