// Package telegram connects the onboarding service to the Telegram Bot API
// over long polling.
package telegram

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dmitrijs2005/serialgate/internal/logging"
	"github.com/dmitrijs2005/serialgate/internal/server/models"
	"github.com/dmitrijs2005/serialgate/internal/server/services"
)

const pollTimeoutSeconds = 60

// newBotAPI is a seam for tests.
var newBotAPI = tgbotapi.NewBotAPI

// Service is the part of the onboarding service the dispatcher drives.
type Service interface {
	OnEntry(ctx context.Context, u models.User) (services.ReplyKind, error)
	HandleText(ctx context.Context, u models.User, text string) (services.Reply, error)
}

// Sender is satisfied by *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Dispatcher struct {
	svc    Service
	sender Sender
	logger logging.Logger
	wg     sync.WaitGroup
}

func NewDispatcher(svc Service, sender Sender, l logging.Logger) *Dispatcher {
	return &Dispatcher{svc: svc, sender: sender, logger: l.With("module", "telegram")}
}

// Bot is a connected Telegram client.
type Bot struct {
	api *tgbotapi.BotAPI
}

func Connect(token string) (*Bot, error) {
	api, err := newBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	return &Bot{api: api}, nil
}

func (b *Bot) Sender() Sender { return b.api }

func (b *Bot) UserName() string { return b.api.Self.UserName }

// Updates starts long polling. The channel is closed by StopReceivingUpdates.
func (b *Bot) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	return b.api.GetUpdatesChan(u)
}

func (b *Bot) Stop() { b.api.StopReceivingUpdates() }

// Run handles updates until ctx is cancelled or the channel is closed, then
// waits for in-flight updates.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	defer d.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.HandleUpdate(ctx, upd)
			}()
		}
	}
}

// HandleUpdate answers a single text message; everything else is ignored.
func (d *Dispatcher) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}

	u := userOf(msg.From)
	var (
		reply services.Reply
		err   error
	)

	switch {
	case msg.IsCommand() && msg.Command() == "start":
		reply.Kind, err = d.svc.OnEntry(ctx, u)
	case msg.IsCommand():
		return
	default:
		reply, err = d.svc.HandleText(ctx, u, msg.Text)
	}

	if err != nil {
		d.logger.Error(ctx, "message handling failed", "user_id", u.ID, "error", err)
		d.send(ctx, msg.Chat.ID, textTemporarilyUnavailable, false)
		return
	}

	text, markdown := render(reply)
	d.send(ctx, msg.Chat.ID, text, markdown)
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, text string, markdown bool) {
	out := tgbotapi.NewMessage(chatID, text)
	if markdown {
		out.ParseMode = tgbotapi.ModeMarkdown
		out.DisableWebPagePreview = true
	}
	if _, err := d.sender.Send(out); err != nil {
		d.logger.Warn(ctx, "send failed", "chat_id", chatID, "error", err)
	}
}

func userOf(from *tgbotapi.User) models.User {
	name := from.UserName
	if name == "" {
		name = from.FirstName
	}
	return models.User{ID: from.ID, Name: name}
}
