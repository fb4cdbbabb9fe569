package storefront

// Session supplies the credentials attached to every backend request. It
// replaces the browser's localStorage-backed auth context: callers inject it
// so the client (and everything above it) can be exercised without any
// ambient storage.
type Session interface {
	// Token returns the bearer token, or "" for an anonymous session.
	Token() string
	// User returns the authenticated account, if any.
	User() (User, bool)
}

// StaticSession is a Session with fixed credentials, typically loaded from
// configuration or a previous Login call.
type StaticSession struct {
	AccessToken string
	Account     User
	HasAccount  bool
}

func (s *StaticSession) Token() string { return s.AccessToken }

func (s *StaticSession) User() (User, bool) { return s.Account, s.HasAccount }

// AnonymousSession carries no credentials.
type AnonymousSession struct{}

func (AnonymousSession) Token() string { return "" }

func (AnonymousSession) User() (User, bool) { return User{}, false }
