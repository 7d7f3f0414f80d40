package engine

// AuthorityGuard reports whether this process is the single writer of
// encounter state.
type AuthorityGuard interface {
	Authoritative() bool
}

// StaticAuthority is a guard fixed at construction time.
type StaticAuthority bool

// Authoritative implements AuthorityGuard.
func (a StaticAuthority) Authoritative() bool { return bool(a) }

func mustBeAuthoritative(guard AuthorityGuard) {
	if guard != nil && !guard.Authoritative() {
		panic(ErrNotAuthoritative)
	}
}
