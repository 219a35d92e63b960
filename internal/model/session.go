package model

import "time"

// Session is a screen-share pairing keyed by a 6-digit code.
//
// ViewerUserID is the account the stream is shown to; SharerStartedAt is set
// while the sharing side has capture active. A session with a nil viewer is
// unlinked: it was created from a typed code and is waiting to be claimed.
type Session struct {
	ID              string        `db:"id" json:"id"`
	Code            string        `db:"code" json:"code"`
	Status          SessionStatus `db:"status" json:"status"`
	ViewerUserID    *string       `db:"viewer_user_id" json:"viewerUserId,omitempty"`
	SharerName      string        `db:"sharer_name" json:"sharerName"`
	SharerNote      *string       `db:"sharer_note" json:"sharerNote,omitempty"`
	SharerStartedAt *time.Time    `db:"sharer_started_at" json:"sharerStartedAt,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updatedAt"`
}

// Started reports whether the sharing side currently has capture active.
func (s *Session) Started() bool {
	return s.SharerStartedAt != nil
}

type CreateSessionParams struct {
	Code         string
	ViewerUserID *string
	SharerName   string
	SharerNote   *string
	StartNow     bool
}
