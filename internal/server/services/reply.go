package services

import "github.com/dmitrijs2005/serialgate/internal/server/models"

// ReplyKind selects the message the dispatcher renders.
type ReplyKind int

const (
	ReplyWelcomeBack ReplyKind = iota
	ReplyPromptSubscribe
	ReplyLinkFound
	ReplySerialNotFound
	ReplyRegistrationSucceeded
	ReplyRegistrationFailed
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyWelcomeBack:
		return "welcome_back"
	case ReplyPromptSubscribe:
		return "prompt_subscribe"
	case ReplyLinkFound:
		return "link_found"
	case ReplySerialNotFound:
		return "serial_not_found"
	case ReplyRegistrationSucceeded:
		return "registration_succeeded"
	case ReplyRegistrationFailed:
		return "registration_failed"
	default:
		return "unknown"
	}
}

// Reply is the outcome of handling one message. Record is set only for
// ReplyLinkFound.
type Reply struct {
	Kind   ReplyKind
	Record *models.SerialRecord
}
