package model

import "time"

// SupportSession is the text-chat fallback, independent of video signaling.
type SupportSession struct {
	ID          string               `db:"id" json:"id"`
	Code        string               `db:"code" json:"code"`
	OwnerUserID string               `db:"owner_user_id" json:"ownerUserId"`
	Status      SupportSessionStatus `db:"status" json:"status"`
	CreatedAt   time.Time            `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time            `db:"updated_at" json:"updatedAt"`
}

// SupportMessage is one entry in the append-only transcript of a support
// session. Read back in creation order.
type SupportMessage struct {
	ID        string        `db:"id" json:"id"`
	SessionID string        `db:"session_id" json:"sessionId"`
	Sender    SupportSender `db:"sender" json:"sender"`
	Body      string        `db:"body" json:"body"`
	CreatedAt time.Time     `db:"created_at" json:"createdAt"`
}
