// Package oauth glues the authenticated session to the OIDC provider
// library's login and consent prompts. The provider library owns the
// interaction state; this package only reads it and reports completion.
package oauth

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/ports"
)

// Config tunes the consent behavior.
type Config struct {
	// ReaskDenialAfter re-enables the consent prompt this long after an
	// explicit denial. Zero keeps denials permanent.
	ReaskDenialAfter time.Duration
}

// ConsentPrompt is the display payload for a pending consent decision.
// Nothing is finalized until the user's explicit yes/no comes back.
type ConsentPrompt struct {
	Client *core.OAuthClient
	Scopes []string
	Claims []string
}

// ConsentOutcome is the result of entering the consent route: either the
// interaction finished (Redirect set) or the UI must render the prompt.
type ConsentOutcome struct {
	Redirect string
	Prompt   *ConsentPrompt
}

// Controller drives the login and consent interaction entry points.
type Controller struct {
	provider ports.Provider
	store    ports.Store
	cfg      Config
	log      *logrus.Entry
}

// NewController creates the interaction controller.
func NewController(provider ports.Provider, store ports.Store, cfg Config, log *logrus.Entry) *Controller {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Controller{
		provider: provider,
		store:    store,
		cfg:      cfg,
		log:      log.WithField("component", "oauth"),
	}
}

// Login finalizes a login prompt. The session account comes from the
// already-issued session; the submitted account is what the login form
// claimed. They must match before the provider learns anything.
func (c *Controller) Login(ctx context.Context, uid, sessionAccount, submittedAccount string) (string, error) {
	interaction, err := c.provider.InteractionDetails(ctx, uid)
	if err != nil {
		return "", fmt.Errorf("interaction %s: %w", uid, err)
	}
	if interaction.Prompt != core.PromptLogin {
		return "", fmt.Errorf("login route hit during %q prompt: %w", interaction.Prompt, core.ErrProtocolState)
	}
	if sessionAccount == "" || sessionAccount != submittedAccount {
		return "", fmt.Errorf("session does not match submitted account: %w", core.ErrInvalidCredentials)
	}

	return c.provider.FinishInteraction(ctx, uid, core.InteractionResult{
		Login: &core.LoginResult{AccountID: sessionAccount},
	})
}

// Consent enters the consent route. A prior grant skips the UI and
// extends the grant; a prior denial short-circuits to access_denied (no
// re-prompt inside the configured window); an undecided pair gets the
// client's display metadata back for rendering.
func (c *Controller) Consent(ctx context.Context, uid, sessionAccount string) (*ConsentOutcome, error) {
	interaction, err := c.interactionForConsent(ctx, uid)
	if err != nil {
		return nil, err
	}
	if sessionAccount == "" {
		return nil, fmt.Errorf("consent without an authenticated session: %w", core.ErrProtocolState)
	}

	record, err := c.store.FindConsent(ctx, sessionAccount, interaction.ClientID)
	if err != nil {
		return nil, fmt.Errorf("consent lookup: %w", err)
	}

	if record != nil {
		if record.Granted {
			redirect, err := c.finishGranted(ctx, interaction, sessionAccount)
			if err != nil {
				return nil, err
			}
			return &ConsentOutcome{Redirect: redirect}, nil
		}
		if c.denialSticky(record) {
			c.log.WithFields(logrus.Fields{
				"account": sessionAccount,
				"client":  interaction.ClientID,
			}).Info("consent short-circuited by prior denial")
			redirect, err := c.finishDenied(ctx, interaction.UID)
			if err != nil {
				return nil, err
			}
			return &ConsentOutcome{Redirect: redirect}, nil
		}
	}

	client, err := c.provider.Client(ctx, interaction.ClientID)
	if err != nil {
		return nil, fmt.Errorf("client %s: %w", interaction.ClientID, err)
	}
	return &ConsentOutcome{Prompt: &ConsentPrompt{
		Client: client,
		Scopes: interaction.Scopes,
		Claims: interaction.Claims,
	}}, nil
}

// Decide records the user's explicit consent decision and finalizes the
// interaction accordingly.
func (c *Controller) Decide(ctx context.Context, uid, sessionAccount, clientID string, granted bool) (string, error) {
	interaction, err := c.interactionForConsent(ctx, uid)
	if err != nil {
		return "", err
	}
	if sessionAccount == "" {
		return "", fmt.Errorf("consent without an authenticated session: %w", core.ErrProtocolState)
	}
	if clientID != interaction.ClientID {
		return "", fmt.Errorf("consent submitted for client %q during interaction with %q: %w",
			clientID, interaction.ClientID, core.ErrProtocolState)
	}

	err = c.store.SaveConsent(ctx, &core.ConsentRecord{
		Account:   sessionAccount,
		ClientID:  clientID,
		Granted:   granted,
		DecidedAt: time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("persist consent: %w", err)
	}

	if granted {
		return c.finishGranted(ctx, interaction, sessionAccount)
	}
	return c.finishDenied(ctx, uid)
}

func (c *Controller) interactionForConsent(ctx context.Context, uid string) (*core.Interaction, error) {
	interaction, err := c.provider.InteractionDetails(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("interaction %s: %w", uid, err)
	}
	if interaction.Prompt != core.PromptConsent {
		return nil, fmt.Errorf("consent route hit during %q prompt: %w", interaction.Prompt, core.ErrProtocolState)
	}
	return interaction, nil
}

// finishGranted builds or extends the grant with the requested scopes and
// claims, then completes the interaction.
func (c *Controller) finishGranted(ctx context.Context, interaction *core.Interaction, account string) (string, error) {
	var grant *core.Grant
	if interaction.GrantID != "" {
		existing, err := c.provider.Grant(ctx, interaction.GrantID)
		if err != nil {
			return "", fmt.Errorf("grant %s: %w", interaction.GrantID, err)
		}
		grant = existing
	}
	if grant == nil {
		grant = &core.Grant{AccountID: account, ClientID: interaction.ClientID}
	}
	grant.AddScopes(interaction.Scopes)
	grant.AddClaims(interaction.Claims)

	grantID, err := c.provider.SaveGrant(ctx, grant)
	if err != nil {
		return "", fmt.Errorf("save grant: %w", err)
	}

	return c.provider.FinishInteraction(ctx, interaction.UID, core.InteractionResult{
		Consent: &core.ConsentResult{GrantID: grantID},
	})
}

func (c *Controller) finishDenied(ctx context.Context, uid string) (string, error) {
	return c.provider.FinishInteraction(ctx, uid, core.InteractionResult{
		Error:            "access_denied",
		ErrorDescription: "end-user declined the authorization request",
	})
}

func (c *Controller) denialSticky(record *core.ConsentRecord) bool {
	if c.cfg.ReaskDenialAfter <= 0 {
		return true
	}
	return time.Since(record.DecidedAt) < c.cfg.ReaskDenialAfter
}
