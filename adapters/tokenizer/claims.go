package tokenizer

import "github.com/golang-jwt/jwt/v5"

// ChallengeClaims combines standard claims with challenge-specific ones
type ChallengeClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
}

// AccessClaims combines standard claims with access-specific ones
type AccessClaims struct {
	jwt.RegisteredClaims
	RefreshID string `json:"rid"` // ID of the refresh token
	Level     string `json:"lvl"` // authority level proven at login
}

// RefreshClaims combines standard claims with the proven authority level
type RefreshClaims struct {
	jwt.RegisteredClaims
	Level string `json:"lvl"`
}
