// Package telegram adapts the messaging transport: it feeds inbound updates
// to the conversation state machine and renders its abstract replies as
// Telegram messages and keyboards.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	appbot "github.com/fromsofaraway/financial-tracker/internal/bot"
)

type Runner struct {
	api    *tg.Bot
	dialog *appbot.Dialog
}

func NewRunner(token string, dialog *appbot.Dialog) (*Runner, error) {
	r := &Runner{dialog: dialog}

	api, err := tg.New(token, tg.WithDefaultHandler(r.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	r.api = api
	return r, nil
}

// Run polls for updates until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Starting Telegram long polling")
	r.api.Start(ctx)
	return ctx.Err()
}

func (r *Runner) handleUpdate(ctx context.Context, b *tg.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" || update.Message.From == nil {
		return
	}

	reply := r.dialog.Handle(ctx, update.Message.From.ID, update.Message.Text)
	if reply.IsZero() {
		return
	}

	params := &tg.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   reply.Text,
	}
	if reply.Markdown {
		params.ParseMode = models.ParseModeMarkdown
	}
	if markup := toReplyMarkup(reply.Keyboard); markup != nil {
		params.ReplyMarkup = markup
	}

	if _, err := b.SendMessage(ctx, params); err != nil {
		slog.ErrorContext(ctx, "Failed to send reply",
			"user_id", update.Message.From.ID, "error", err)
	}
}

func toReplyMarkup(keyboard [][]appbot.Button) models.ReplyMarkup {
	if len(keyboard) == 0 {
		return nil
	}
	rows := make([][]models.KeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]models.KeyboardButton, 0, len(row))
		for _, btn := range row {
			kb := models.KeyboardButton{Text: btn.Label}
			if btn.WebAppURL != "" {
				kb.WebApp = &models.WebAppInfo{URL: btn.WebAppURL}
			}
			buttons = append(buttons, kb)
		}
		rows = append(rows, buttons)
	}
	return &models.ReplyKeyboardMarkup{
		Keyboard:       rows,
		ResizeKeyboard: true,
	}
}
