package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/internal/chain"
	"github.com/hivelink/warden/ports"
)

// VerificationMode selects how signatures are matched against on-chain
// authority.
type VerificationMode string

const (
	// ModeStrict resolves the account's on-chain authority and requires
	// the verified weight sum to meet the threshold.
	ModeStrict VerificationMode = "strict"

	// ModeNonStrict accepts any signature that verifies against one of
	// the account's declared keys, without threshold math. Development
	// and test environments only.
	ModeNonStrict VerificationMode = "non-strict"
)

// AuthorityVerdict reports the outcome of an authority check. An
// insufficient signature set is a negative verdict, not an error.
type AuthorityVerdict struct {
	Authenticated bool
	Mode          VerificationMode
	WeightSum     uint32
	Threshold     uint32
}

// AuthorityService verifies that a signature set satisfies the weighted
// threshold authority recorded on chain for an account.
type AuthorityService struct {
	accounts ports.AccountSource
	mode     VerificationMode
	log      *logrus.Entry
}

// NewAuthorityService creates an authority checker.
func NewAuthorityService(accounts ports.AccountSource, mode VerificationMode, log *logrus.Entry) *AuthorityService {
	if mode == "" {
		mode = ModeStrict
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &AuthorityService{
		accounts: accounts,
		mode:     mode,
		log:      log.WithField("component", "authority"),
	}
}

// VerifyAuthority checks the signature set against the account's authority
// at the given level. It errors only on malformed input or lookup
// failures; a merely-insufficient set yields Authenticated=false.
//
// Account-authority indirection is resolved one hop deep. Deeper nesting
// is a documented limitation and contributes no weight.
func (s *AuthorityService) VerifyAuthority(ctx context.Context, digest []byte, account string, level core.AuthorityLevel, sigs core.SignatureSet) (*AuthorityVerdict, error) {
	if account == "" {
		return nil, fmt.Errorf("account name is required")
	}
	if len(digest) == 0 {
		return nil, fmt.Errorf("signing digest is required")
	}
	if !level.Valid() {
		return nil, fmt.Errorf("invalid authority level %q", level)
	}

	authority, err := s.accounts.Authority(ctx, account, level)
	if err != nil {
		return nil, err
	}

	verdict := &AuthorityVerdict{Mode: s.mode, Threshold: authority.WeightThreshold}

	// A zero threshold with no entries would authenticate everyone.
	if len(authority.KeyAuths) == 0 && len(authority.AccountAuths) == 0 {
		return verdict, nil
	}

	signers := s.recoverSigners(digest, sigs)
	if len(signers) == 0 {
		return verdict, nil
	}

	if s.mode == ModeNonStrict {
		for _, entry := range authority.KeyAuths {
			if _, ok := signers[entry.Key]; ok {
				verdict.Authenticated = true
				verdict.WeightSum = entry.Weight
				return verdict, nil
			}
		}
		return verdict, nil
	}

	var sum uint32
	for _, entry := range authority.KeyAuths {
		if _, ok := signers[entry.Key]; ok {
			sum += entry.Weight
		}
	}

	for _, entry := range authority.AccountAuths {
		satisfied, err := s.checkDelegated(ctx, entry.Account, level, signers)
		if err != nil {
			if errors.Is(err, core.ErrUnknownAccount) {
				s.log.WithField("account", entry.Account).Warn("authority refers to unknown account")
				continue
			}
			return nil, err
		}
		if satisfied {
			sum += entry.Weight
		}
	}

	threshold := authority.WeightThreshold
	if threshold == 0 {
		// Still require at least one verified entry; a zero threshold
		// must not authenticate an empty proof.
		threshold = 1
	}

	verdict.WeightSum = sum
	verdict.Authenticated = sum >= threshold
	return verdict, nil
}

// checkDelegated resolves one hop of account-authority indirection: the
// referenced account's own authority at the same level must be satisfied
// by the recovered signers. Nested account entries are not followed.
func (s *AuthorityService) checkDelegated(ctx context.Context, account string, level core.AuthorityLevel, signers map[string]struct{}) (bool, error) {
	delegated, err := s.accounts.Authority(ctx, account, level)
	if err != nil {
		return false, err
	}
	if len(delegated.KeyAuths) == 0 {
		return false, nil
	}

	var sum uint32
	for _, entry := range delegated.KeyAuths {
		if _, ok := signers[entry.Key]; ok {
			sum += entry.Weight
		}
	}

	threshold := delegated.WeightThreshold
	if threshold == 0 {
		threshold = 1
	}
	return sum >= threshold, nil
}

// recoverSigners maps each supplied signature back to the public key that
// produced it. Unrecoverable signatures are dropped; they can only lower
// the weight sum, never fail the check outright.
func (s *AuthorityService) recoverSigners(digest []byte, sigs core.SignatureSet) map[string]struct{} {
	signers := make(map[string]struct{}, len(sigs))
	for level, sig := range sigs {
		if sig == "" {
			continue
		}
		pub, err := chain.RecoverDigest(digest, sig)
		if err != nil {
			s.log.WithError(err).WithField("level", level).Info("unrecoverable signature dropped")
			continue
		}
		signers[pub.String()] = struct{}{}
	}
	return signers
}
