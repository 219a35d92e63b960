package model

import "time"

// CameraToken grants a second device join-rights to the camera signaling
// channel of a support code. The token string itself is the capability; no
// login is needed to resolve it.
type CameraToken struct {
	Token       string    `db:"token" json:"token"`
	SupportCode string    `db:"support_code" json:"supportCode"`
	OwnerUserID string    `db:"owner_user_id" json:"ownerUserId"`
	ExpiresAt   time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

func (t *CameraToken) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
