// Package messaging is the client-side view-model for direct messages:
// the conversation inbox, the open message stream, live delivery, unread
// derivation and sending. All data lives in the backend; everything here is
// in-memory session state, discarded on sign-out.
package messaging

// Session is the signed-in identity, supplied by the auth collaborator and
// passed explicitly into every operation.
type Session struct {
	UserID   string
	Username string
}

func (s Session) SignedIn() bool {
	return s.UserID != ""
}
