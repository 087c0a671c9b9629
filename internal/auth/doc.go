// Package auth implements authentication and role based authorization.
//
// # Credentials
//
// A password is checked against an LDAP directory first (DirectoryVerifier)
// when directory mode is enabled and the username's domain matches the
// configured one, then against the locally stored Argon2id or bcrypt hash.
// A successful directory bind skips the local comparison.
//
// # Sessions
//
// Service is built once at startup and holds the stores, the role hierarchy
// and the registered login and logout listeners. Every request gets its own
// Session, which is either anonymous or authenticated:
//
//	s := svc.NewSession("web")
//	if err := s.Login(ctx, "a@example.com", "secret"); err != nil {
//	    // apperr.ErrInvalidCredentials or *apperr.LoginCancelledError
//	}
//	issued, err := s.IssueToken(ctx, "")
//
// A later request restores the session from the token and the checksum that
// was embedded in the signed cookie:
//
//	ok, err := svc.NewSession("web").Resume(ctx, issued.Token, issued.Checksum)
//
// # Roles
//
// Each user has a default role. A Context names an authorization scope in
// which the user may hold a different role. Roles form a hierarchy where a
// role satisfies every role it inherits from (super > admin > user).
//
// # Access decisions
//
// Policy computes the requirement of a request from the route argument
// "auth" or the process wide default. Gate.Decide turns requirement and
// session state into Allow, Unauthenticated or Forbidden, and Gate.Resolve
// maps the outcome onto a redirect or an error response.
package auth
