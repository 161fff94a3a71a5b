package security

// Scope names one grant a token may carry. Route groups require the
// matching scope when authentication is enabled.
type Scope = string

const (
	// ScopeQuery allows executing queries, counts and find-and-count.
	ScopeQuery Scope = "query:read"

	// ScopeWrite allows creating, updating and destroying records.
	ScopeWrite Scope = "records:write"

	// ScopeMeta allows reading entity definitions.
	ScopeMeta Scope = "meta:read"
)

// AllScopes returns every scope the API understands, in grant order.
// Token issuers use it for full-access tokens.
func AllScopes() []string {
	return []string{ScopeQuery, ScopeWrite, ScopeMeta}
}
