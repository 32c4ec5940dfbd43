package telegram

import (
	"fmt"

	"github.com/dmitrijs2005/serialgate/internal/server/services"
)

const (
	textWelcomeBack = "✅ Welcome back! Please send a serial number to get the PDF link.\n\n" +
		"📢 *Don't know the Rdf Serial Number?* Check our Telegram channel: [TimeForEpics](https://t.me/TimeForEpics)"

	textPromptSubscribe = "📢 Welcome! To use this bot, please subscribe to our YouTube channel: " +
		"[TimeForEpics](https://www.youtube.com/@TimeForEpics_01?sub_confirmation=1)\n\n" +
		"✅ After subscribing, send your YouTube *channel ID* or *handle* here.\n\n" +
		"📌 *Example Formats:*\n\n" +
		"👉 Sample Handle: `@YourChannelHandle`\n\n" +
		"👉 Sample Channel ID: `UC123abcXYZ456`"

	textSerialNotFound         = "❌ Error: No data found for the provided serial number."
	textRegistrationSucceeded  = "✅ Registration successful! Now send /start."
	textRegistrationFailed     = "❌ Invalid YouTube handle or channel ID. Please try again."
	textTemporarilyUnavailable = "⚠️ The service is temporarily unavailable. Please try again later."
)

// render turns a reply into message text. The bool reports whether the text
// uses Markdown.
func render(r services.Reply) (string, bool) {
	switch r.Kind {
	case services.ReplyWelcomeBack:
		return textWelcomeBack, true
	case services.ReplyPromptSubscribe:
		return textPromptSubscribe, true
	case services.ReplyLinkFound:
		if r.Record == nil {
			return textSerialNotFound, false
		}
		return fmt.Sprintf("✅  *File Name:* %s\n\n🔗 *Download Link:* [Click Here](%s)\n\n📌 *Serial Number:* %d",
			r.Record.FileName, r.Record.Link, r.Record.SerialNum), true
	case services.ReplySerialNotFound:
		return textSerialNotFound, false
	case services.ReplyRegistrationSucceeded:
		return textRegistrationSucceeded, false
	case services.ReplyRegistrationFailed:
		return textRegistrationFailed, false
	default:
		return textTemporarilyUnavailable, false
	}
}
