// Package authz holds the authorization decision function: a pure predicate
// over already-verified access claims. No I/O, no side effects.
package authz

import "erp-suite/backend/internal/security"

// Allowed reports whether the claims satisfy the required role set.
// A master identity is allowed unconditionally, even with an empty role set.
// Otherwise the claims' roles must intersect requiredRoles. An empty
// requiredRoles denies non-master identities.
func Allowed(claims *security.AccessClaims, requiredRoles []string) bool {
	if claims == nil {
		return false
	}
	if claims.IsMaster {
		return true
	}
	for _, have := range claims.Roles {
		for _, want := range requiredRoles {
			if have == want {
				return true
			}
		}
	}
	return false
}
