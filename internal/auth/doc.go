// Package auth implements accounts and bearer tokens for the forum.
//
// # Tokens
//
// Tokens are opaque random strings from the credential package. Each user
// row holds at most one token and its expiry; issuing a new token replaces
// the old one, so there is no revocation list and no logout. A token is
// valid while the current time is before its expiry.
//
//	authority := auth.NewAuthority(store, 24*time.Hour)
//	token, err := authority.Authenticate(ctx, "alice", "Password1")
//	id, err := authority.ResolveToken(ctx, token)
//
// ResolveToken fails with ErrInvalidToken when no user or more than one
// user holds the token, or when it has expired.
//
// # Accounts
//
// Signup rejects a taken name with ErrUserExists before checking the
// password policy, then stores a salted SHA-512 digest. Authenticate
// distinguishes ErrUnknownUser from ErrWrongPassword.
//
// # HTTP
//
// RequireUser wraps handlers that need a caller. It reads
// "Authorization: Bearer <token>", resolves it and stores the Identity in
// the request context:
//
//	mux.Handle("GET /api/user", auth.RequireUser(authority)(handler))
//
//	id := auth.MustFromContext(r.Context())
//
// Failures produce 401 with a {"detail": ...} body and a
// WWW-Authenticate: Bearer header.
package auth
