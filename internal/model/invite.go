package model

import "time"

// Invite is a durable pairing code. Accepting one creates a Relationship.
type Invite struct {
	ID         string       `db:"id" json:"id"`
	Code       string       `db:"code" json:"code"`
	IssuerID   string       `db:"issuer_id" json:"issuerId"`
	Status     InviteStatus `db:"status" json:"status"`
	ExpiresAt  time.Time    `db:"expires_at" json:"expiresAt"`
	AcceptedBy *string      `db:"accepted_by" json:"acceptedBy,omitempty"`
	AcceptedAt *time.Time   `db:"accepted_at" json:"acceptedAt,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"createdAt"`
}

type CreateInviteParams struct {
	Code      string
	IssuerID  string
	ExpiresAt time.Time
}

// Relationship links two accounts. Stored directed but queried symmetrically:
// either side may appear as "current user" in a lookup.
type Relationship struct {
	ID        string    `db:"id" json:"id"`
	ChildID   string    `db:"child_id" json:"childId"`
	HelperID  string    `db:"helper_id" json:"helperId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
