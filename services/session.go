// File: /services/session.go
package services

import "errors"

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrFeedUnavailable  = errors.New("feed unavailable")
	ErrPostNotFound     = errors.New("post not found")
	ErrInvalidPost      = errors.New("invalid post")
	ErrMediaUpload      = errors.New("media upload failed")
)

// Session identifies the viewer on whose behalf feed and like operations
// run. The zero value is an unauthenticated viewer.
type Session struct {
	UserID string
	Email  string
}

func NewSession(userID, email string) Session {
	return Session{UserID: userID, Email: email}
}

func (s Session) IsAuthenticated() bool {
	return s.UserID != ""
}
