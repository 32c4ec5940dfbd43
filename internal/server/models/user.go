// Package models defines server-side records persisted by serialgate.
package models

// UserRegistration marks a user who completed onboarding. Stored in the
// registered table, keyed by UserID.
type UserRegistration struct {
	UserID   int64
	UserName string
}

// UserSubscription is the external-identity proof that unlocks the service.
// Its presence for a UserID is the only source of truth for "subscribed".
type UserSubscription struct {
	UserID        int64
	UserName      string
	ChannelID     *string
	ChannelHandle *string
}

// ChannelProof is a validated YouTube identity: a canonical channel ID and,
// when the user supplied a handle, that handle.
type ChannelProof struct {
	ChannelID     string
	ChannelHandle *string
}

// Subscription builds the subscription record for user from the proof.
func (p *ChannelProof) Subscription(userID int64, userName string) *UserSubscription {
	id := p.ChannelID
	return &UserSubscription{
		UserID:        userID,
		UserName:      userName,
		ChannelID:     &id,
		ChannelHandle: p.ChannelHandle,
	}
}

// User identifies the person talking to the bot. Name is the messaging
// username, or the first name when no username is set.
type User struct {
	ID   int64
	Name string
}
