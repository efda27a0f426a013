package models

// AnonymousUserID is the namespace owner before login.
const AnonymousUserID = ""

// SessionLocalsKey is the request-scoped key a Session is stored under.
const SessionLocalsKey = "session"

// Session identifies who the device is acting for.
// An empty UserID means the anonymous, pre-login namespace.
type Session struct {
	UserID string `json:"user_id"`
	Token  string `json:"-"`
}

// IsAuthenticated reports whether a user is logged in.
func (s Session) IsAuthenticated() bool {
	return s.UserID != AnonymousUserID
}

// CanReachServer reports whether the backend can be called for this session.
func (s Session) CanReachServer() bool {
	return s.IsAuthenticated() && s.Token != ""
}
