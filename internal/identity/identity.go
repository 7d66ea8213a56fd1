package identity

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Claim names supplied by the authenticating front end for each request.
const (
	ClaimUserHash         = "faucet:userhash"
	ClaimAccountCreatedAt = "faucet:account_created_at"
)

// Identity carries the pseudonymous claims of an authenticated user. A zero
// UserHash means the request is unauthenticated.
type Identity struct {
	// Provider is the OAuth provider the user authenticated with.
	Provider string
	// Subject is the provider-scoped user identifier.
	Subject string
	// UserHash is the stable pseudonymous hash derived from provider, subject
	// and the faucet's secret salt.
	UserHash string
	// AccountCreatedAt is the provider-reported account creation timestamp as
	// an RFC 3339 string, unparsed.
	AccountCreatedAt string
}

// GenerateUserHash derives an irreversible, stable hash for a user at a
// provider. The salt keeps hashes unlinkable across deployments; changing it
// changes every user's hash.
func GenerateUserHash(salt, provider, subject string) string {
	combined := fmt.Sprintf("%s:%s:%s", provider, subject, salt)
	hash := sha256.Sum256([]byte(combined))

	return base64.StdEncoding.EncodeToString(hash[:])
}
