// Package telegram adapts the messaging platform to the escrow core.
// Two separate identities are wired on purpose: the bot (Bot API)
// messages and moderates, the principal (MTProto user session) creates
// channels. Their credentials are never mixed.
package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Liltopzj/wealthescrow-bot/registry"
	"github.com/Liltopzj/wealthescrow-bot/session"
)

type Bot struct {
	api *tgbotapi.BotAPI
	l   *zap.Logger
}

func NewBot(token string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "Failed create bot api")
	}
	return &Bot{
		api: api,
		l:   zap.L().Named("telegram_bot"),
	}, nil
}

// Username is the bot's own handle, without the leading "@".
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// Run registers the command list and consumes updates until ctx ends.
// Each command is dispatched on its own goroutine: commands from
// different requesters operate on distinct channels and invoices, so
// there is no cross-command lock.
func (b *Bot) Run(ctx context.Context, coord *session.Coordinator) error {
	if err := b.setCommands(); err != nil {
		b.l.Warn("set bot commands", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.l.Info("bot started", zap.String("username", b.Username()))
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, coord, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, coord *session.Coordinator, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, coord, update.CallbackQuery)
		return
	}
	msg := update.Message
	if msg == nil || msg.From == nil || !msg.IsCommand() {
		return
	}

	origin := msg.Chat.ID
	sender := msg.From.ID
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.sendWelcome(origin)
	case "menu":
		if _, err := b.SendMessage(ctx, origin, menuText); err != nil {
			b.l.Warn("send menu", zap.Error(err))
		}
	case "create":
		coord.HandleCreate(ctx, origin, sender)
	case "seller":
		coord.HandleRole(ctx, origin, sender, registry.SELLER, args)
	case "buyer":
		coord.HandleRole(ctx, origin, sender, registry.BUYER, args)
	case "invoice":
		coord.HandleInvoice(ctx, origin, sender, args)
	case "pay":
		coord.HandlePay(ctx, origin, sender, msg.MessageID, args)
	case "status":
		coord.HandleStatus(ctx, origin, args)
	}
}

func (b *Bot) handleCallback(ctx context.Context, coord *session.Coordinator, cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.l.Warn("answer callback", zap.Error(err))
	}
	if cb.Data == "create_group" && cb.Message != nil {
		coord.HandleCreate(ctx, cb.Message.Chat.ID, cb.From.ID)
	}
}

func (b *Bot) sendWelcome(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, welcomeText)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = welcomeKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		b.l.Warn("send welcome", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// SendMessage implements session.Messenger.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, errors.Wrap(err, "Failed send message")
	}
	return sent.MessageID, nil
}

// SendPhoto implements session.Messenger.
func (b *Bot) SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) (int, error) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "qr.png", Bytes: png})
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	sent, err := b.api.Send(photo)
	if err != nil {
		return 0, errors.Wrap(err, "Failed send photo")
	}
	return sent.MessageID, nil
}

// DeleteMessage implements session.Messenger.
func (b *Bot) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return errors.Wrap(err, "Failed delete message")
	}
	return nil
}

func (b *Bot) setCommands() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "create", Description: "Open a fresh escrow group"},
		tgbotapi.BotCommand{Command: "seller", Description: "Register as seller with wallet"},
		tgbotapi.BotCommand{Command: "buyer", Description: "Register as buyer with wallet"},
		tgbotapi.BotCommand{Command: "invoice", Description: "Create a payment invoice"},
		tgbotapi.BotCommand{Command: "pay", Description: "Show payment QR for an invoice"},
		tgbotapi.BotCommand{Command: "status", Description: "Check invoice settlement"},
		tgbotapi.BotCommand{Command: "menu", Description: "View all bot features"},
	)
	_, err := b.api.Request(cfg)
	return err
}
