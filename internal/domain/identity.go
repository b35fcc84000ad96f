package domain

// Identity describes the requesting user for eligibility decisions.
// The zero value is an anonymous visitor.
type Identity struct {
	UserID        string
	Email         string
	Authenticated bool
	Superuser     bool
	Member        bool
	GroupIDs      []string
}

// Anonymous reports whether this identity is an unauthenticated visitor.
func (i Identity) Anonymous() bool { return !i.Authenticated }

// InGroup reports whether the identity belongs to the given group.
func (i Identity) InGroup(groupID string) bool {
	for _, g := range i.GroupIDs {
		if g == groupID {
			return true
		}
	}
	return false
}

// IdentityVerifier verifies a bearer token and resolves the identity it
// carries, including membership and group claims.
type IdentityVerifier interface {
	Verify(token string) (Identity, error)
}
