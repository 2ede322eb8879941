package state

import "time"

// Session stores the conversation state of one user.
type Session[S any] struct {
	State S
	// Updated is the last-activity marker used for expiry.
	Updated time.Time
}

// Store keeps one session per user identity.
//
// Lock serializes all work for one user: callers hold it around the whole
// load-transition-store sequence. Get/Put/Clear do not take the user lock.
type Store[S any] interface {
	Lock(userID int64) (unlock func())
	Get(userID int64) (Session[S], bool)
	Put(userID int64, sess Session[S])
	Clear(userID int64)
	Len() int
}
