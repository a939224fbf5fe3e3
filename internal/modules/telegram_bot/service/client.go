package service

import (
	"context"
	"fmt"
	"sync"

	"options_analyzer/internal/models"
	"options_analyzer/internal/modules/config"
	"options_analyzer/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Analyzer runs one analysis for a form.
type Analyzer interface {
	Run(ctx context.Context, req models.AnalysisRequest, source string) (models.Analysis, error)
}

// botAPI is the part of *tgbot.BotAPI the form handlers use.
type botAPI interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
	Request(c tgbot.Chattable) (*tgbot.APIResponse, error)
}

// Telegram is the chat front end: a per-chat form and an Analyze button.
type Telegram struct {
	bot      botAPI
	api      *tgbot.BotAPI
	cfg      *config.Config
	analyzer Analyzer

	forms *formStore
	await *awaitStore

	// one run per chat at a time
	mu      sync.Mutex
	running map[int64]bool
}

func NewTelegram(cfg *config.Config, analyzer Analyzer) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	logger.Info("[TG] authorized as @%s", b.Self.UserName)

	t := newTelegram(b, cfg, analyzer)
	t.api = b
	return t, nil
}

func newTelegram(bot botAPI, cfg *config.Config, analyzer Analyzer) *Telegram {
	return &Telegram{
		bot:      bot,
		cfg:      cfg,
		analyzer: analyzer,
		forms:    newFormStore(cfg.Analysis.DefaultPortfolioValue, cfg.Analysis.MaxRows),
		await:    newAwaitStore(),
		running:  make(map[int64]bool),
	}
}

func (t *Telegram) Send(ctx context.Context, chatID int64, msg string) (tgbot.Message, error) {
	return t.bot.Send(tgbot.NewMessage(chatID, msg))
}

func (t *Telegram) SendF(ctx context.Context, chatID int64, format string, args ...any) (tgbot.Message, error) {
	return t.Send(ctx, chatID, fmt.Sprintf(format, args...))
}

func (t *Telegram) SendMessage(_ context.Context, message tgbot.MessageConfig) (tgbot.Message, error) {
	return t.bot.Send(message)
}

func (t *Telegram) editReplyMarkupRemove(chatID int64, msgID int) error {
	rm := tgbot.InlineKeyboardMarkup{InlineKeyboard: [][]tgbot.InlineKeyboardButton{}}
	_, err := t.bot.Request(tgbot.NewEditMessageReplyMarkup(chatID, msgID, rm))
	return err
}

// Start consumes updates until ctx is done or Stop is called.
func (t *Telegram) Start(ctx context.Context) {
	if t.api == nil {
		return
	}
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.api.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				t.handleUpdate(ctx, update)
			}
		}
	}()
}

func (t *Telegram) Stop() {
	if t.api != nil {
		t.api.StopReceivingUpdates()
	}
}

func (t *Telegram) tryLock(chatID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running[chatID] {
		return false
	}
	t.running[chatID] = true
	return true
}

func (t *Telegram) unlock(chatID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.running, chatID)
}
