package model

// SessionStatus is the lifecycle status of a screen-share session.
type SessionStatus string

const (
	SessionStatusOpen   SessionStatus = "open"
	SessionStatusClosed SessionStatus = "closed"
)

// InviteStatus is the lifecycle status of a pairing invite.
type InviteStatus string

const (
	InviteStatusOpen     InviteStatus = "open"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusExpired  InviteStatus = "expired"
)

// SupportSessionStatus is the lifecycle status of a support chat session.
type SupportSessionStatus string

const (
	SupportSessionOpen   SupportSessionStatus = "open"
	SupportSessionClosed SupportSessionStatus = "closed"
)

// SupportSender identifies which side of a support chat wrote a message.
type SupportSender string

const (
	SupportSenderParent SupportSender = "parent"
	SupportSenderChild  SupportSender = "child"
)

func (s SupportSender) Valid() bool {
	return s == SupportSenderParent || s == SupportSenderChild
}
