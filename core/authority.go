package core

// AuthorityLevel identifies one of the three weighted authorities an
// account carries on chain.
type AuthorityLevel string

const (
	LevelOwner   AuthorityLevel = "owner"
	LevelActive  AuthorityLevel = "active"
	LevelPosting AuthorityLevel = "posting"
)

// Valid reports whether the level is one of owner, active or posting.
func (l AuthorityLevel) Valid() bool {
	switch l {
	case LevelOwner, LevelActive, LevelPosting:
		return true
	}
	return false
}

// Covers reports whether a signature at level l satisfies a requirement
// at level required. Owner covers active, active covers posting.
func (l AuthorityLevel) Covers(required AuthorityLevel) bool {
	rank := map[AuthorityLevel]int{LevelPosting: 0, LevelActive: 1, LevelOwner: 2}
	lr, ok1 := rank[l]
	rr, ok2 := rank[required]
	return ok1 && ok2 && lr >= rr
}

// KeyWeight is one public-key entry of an authority.
type KeyWeight struct {
	Key    string // base58 public key, STM prefix
	Weight uint32
}

// AccountWeight is one account entry of an authority. It refers to the
// same-level authority of another account; resolution is bounded to a
// single hop.
type AccountWeight struct {
	Account string
	Weight  uint32
}

// Authority is the weighted-threshold rule recorded on chain for one
// account at one level.
type Authority struct {
	WeightThreshold uint32
	KeyAuths        []KeyWeight
	AccountAuths    []AccountWeight
}

// SignatureSet maps an authority level to the signature produced with a
// key of that level. Built incrementally during login, consumed once by
// the authority check.
type SignatureSet map[AuthorityLevel]string

// Empty reports whether the set carries no signatures.
func (s SignatureSet) Empty() bool {
	for _, sig := range s {
		if sig != "" {
			return false
		}
	}
	return true
}
