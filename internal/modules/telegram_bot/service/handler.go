package service

import (
	"context"
	"strconv"
	"strings"

	"options_analyzer/internal/models"
	"options_analyzer/internal/runner"
	"options_analyzer/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

const (
	btnAdd       = "➕ Add another stock"
	btnPortfolio = "💼 Portfolio value"
	btnForm      = "📋 Form"
	btnAnalyze   = "🔎 Analyze"
	btnClear     = "🧹 Clear"

	cbRemove = "rm:"
	cbClear  = "clear"

	rowHint = "Send a row as:\n`TICKER call1 call2 put1 put2 YYYY-MM-DD`\nexample: `ABC 110 112 95 97 2026-11-20`"
)

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if msg := update.Message; msg != nil {
		chatID := msg.Chat.ID

		if msg.IsCommand() {
			switch msg.Command() {
			case "start":
				if err := t.handleStart(ctx, chatID); err != nil {
					logger.Error("handleStart error: %v", err)
				}
			case "analyze":
				go t.runAnalysis(ctx, chatID)
			case "form":
				t.sendForm(ctx, chatID)
			case "help":
				_, _ = t.SendMessage(ctx, markdown(chatID, rowHint))
			}
			return
		}

		t.handleTextMessage(ctx, msg)
		return
	}

	if cb := update.CallbackQuery; cb != nil {
		if cb.Message == nil || cb.Message.Chat == nil {
			return
		}
		t.handleCallback(ctx, cb.Message.Chat.ID, cb)
	}
}

func (t *Telegram) handleStart(ctx context.Context, chatID int64) error {
	t.forms.clear(chatID)
	t.setAwait(chatID, awaitRow)

	msg := markdown(chatID, "Options breakeven analyzer.\n\n"+
		"Enter the breakevens of your option strategies, one stock per row, "+
		"then press «"+btnAnalyze+"».\n\n"+rowHint)
	msg.ReplyMarkup = mainKeyboard()

	_, err := t.SendMessage(ctx, msg)
	return err
}

func (t *Telegram) handleTextMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch text {
	case btnAdd:
		t.setAwait(chatID, awaitRow)
		_, _ = t.SendMessage(ctx, markdown(chatID, "✍️ "+rowHint+"\n\nCancel: `cancel`"))
		return
	case btnPortfolio:
		t.setAwait(chatID, awaitPortfolio)
		form := t.forms.snapshot(chatID)
		_, _ = t.SendF(ctx, chatID, "✍️ Portfolio value in $ (now %s), e.g. 10000\n\nCancel: cancel", formatMoney(form.PortfolioValue))
		return
	case btnForm:
		t.sendForm(ctx, chatID)
		return
	case btnAnalyze:
		t.clearAwait(chatID)
		go t.runAnalysis(ctx, chatID)
		return
	case btnClear:
		t.clearAwait(chatID)
		t.forms.clear(chatID)
		_, _ = t.Send(ctx, chatID, "🧹 Form cleared.")
		return
	}

	if key, ok := t.peekAwait(chatID); ok {
		t.handleAwaitValue(ctx, chatID, text, key)
		return
	}

	// a bare row is accepted without pressing "add"
	if _, err := parseRow(text); err == nil {
		t.handleAwaitValue(ctx, chatID, text, awaitRow)
		return
	}
	_, _ = t.SendMessage(ctx, markdown(chatID, rowHint))
}

func (t *Telegram) handleAwaitValue(ctx context.Context, chatID int64, text, key string) {
	if strings.EqualFold(text, "cancel") {
		t.clearAwait(chatID)
		t.sendForm(ctx, chatID)
		return
	}

	switch key {
	case awaitRow:
		row, err := parseRow(text)
		if err != nil {
			_, _ = t.SendMessage(ctx, markdown(chatID, "❗️"+tgbotapi.EscapeText(tgbotapi.ModeMarkdown, err.Error())+"\n\n"+rowHint))
			return
		}
		if _, err := t.forms.addRow(chatID, row); err != nil {
			t.clearAwait(chatID)
			_, _ = t.SendF(ctx, chatID, "❗️Form is full (%v). Remove a row first.", err)
			return
		}

	case awaitPortfolio:
		v, err := parseNumber(text)
		if err != nil {
			_, _ = t.Send(ctx, chatID, "❗️Need a number, e.g. 10000")
			return
		}
		t.forms.setPortfolio(chatID, v)

	default:
		logger.Warn("[TG] unknown await key %q", key)
	}

	t.clearAwait(chatID)
	t.sendForm(ctx, chatID)
}

func (t *Telegram) handleCallback(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	answer := ""

	switch {
	case data == cbClear:
		t.forms.clear(chatID)
		answer = "Form cleared"
	case strings.HasPrefix(data, cbRemove):
		idx, err := strconv.Atoi(strings.TrimPrefix(data, cbRemove))
		if err != nil {
			return
		}
		if row, ok := t.forms.removeRow(chatID, idx); ok {
			answer = row.Ticker + " removed"
		}
	default:
		return
	}

	if _, err := t.bot.Request(tgbotapi.NewCallback(cb.ID, answer)); err != nil {
		logger.Debug("[TG] answer callback: %v", err)
	}
	_ = t.editReplyMarkupRemove(chatID, cb.Message.MessageID)
	t.sendForm(ctx, chatID)
}

func (t *Telegram) sendForm(ctx context.Context, chatID int64) {
	form := t.forms.snapshot(chatID)

	msg := markdown(chatID, formatForm(form))
	if len(form.Rows) > 0 {
		msg.ReplyMarkup = formKeyboard(form)
	}
	if _, err := t.SendMessage(ctx, msg); err != nil {
		logger.Error("[TG] send form: %v", err)
	}
}

// runAnalysis evaluates the chat's form and replies with the results table.
func (t *Telegram) runAnalysis(ctx context.Context, chatID int64) {
	form := t.forms.snapshot(chatID)
	req := form.Request()

	n := 0
	for _, r := range req.Positions {
		if !r.Empty() {
			n++
		}
	}
	if n == 0 {
		_, _ = t.SendMessage(ctx, markdown(chatID, "📭 The form is empty.\n\n"+rowHint))
		return
	}

	if !t.tryLock(chatID) {
		_, _ = t.Send(ctx, chatID, "⏳ Analysis already running.")
		return
	}
	defer t.unlock(chatID)

	_, _ = t.SendF(ctx, chatID, "⏳ Analyzing %d stock(s)…", n)

	res, err := t.analyzer.Run(ctx, req, runner.SourceTelegram)
	if err != nil {
		logger.Error("[TG] chat %d analysis: %v", chatID, err)
		text := "❌ Analysis failed."
		if errors.Is(err, models.ErrTooManyRows) {
			text = "❌ Too many rows, remove some and retry."
		}
		_, _ = t.Send(ctx, chatID, text)
		return
	}

	if _, err := t.SendMessage(ctx, markdown(chatID, formatAnalysis(res))); err != nil {
		logger.Error("[TG] send results: %v", err)
	}
}

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAdd),
			tgbotapi.NewKeyboardButton(btnPortfolio),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnForm),
			tgbotapi.NewKeyboardButton(btnAnalyze),
			tgbotapi.NewKeyboardButton(btnClear),
		),
	)
}

func formKeyboard(form Form) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var cur []tgbotapi.InlineKeyboardButton
	for i, r := range form.Rows {
		cur = append(cur, tgbotapi.NewInlineKeyboardButtonData("❌ "+r.Ticker, cbRemove+strconv.Itoa(i)))
		if len(cur) == 3 {
			rows = append(rows, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		rows = append(rows, cur)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnClear, cbClear),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func markdown(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	return msg
}
