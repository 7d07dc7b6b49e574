package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"scheduled-payments/internal/model"
	"scheduled-payments/internal/repository"
	"scheduled-payments/internal/service"
)

// Bot aggregates Telegram API with services. It is also the Notifier the due
// check delivers reminders through.
type Bot struct {
	api           *tgbotapi.BotAPI
	userRepo      *repository.UserRepository
	scheduleSvc   *service.ScheduleService
	dueSvc        *service.DueService
	limiter       *rate.Limiter
	logger        *zap.Logger
	conversations map[int64]*conversationState
	mu            sync.Mutex
}

var _ service.Notifier = (*Bot)(nil)

func New(token string, ratePerSec int, userRepo *repository.UserRepository, scheduleSvc *service.ScheduleService, dueSvc *service.DueService, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger.Info("bot authorized", zap.String("account", api.Self.UserName))

	return &Bot{
		api:           api,
		userRepo:      userRepo,
		scheduleSvc:   scheduleSvc,
		dueSvc:        dueSvc,
		limiter:       rate.NewLimiter(rate.Limit(ratePerSec), 1),
		logger:        logger,
		conversations: make(map[int64]*conversationState),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.logger.Error("handle callback", zap.Error(err))
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.logger.Error("handle message", zap.Int64("chat_id", update.Message.Chat.ID), zap.Error(err))
			}
		}
	}

	return nil
}

// Notify sends a due reminder. Sends are paced to stay under Telegram's
// broadcast limits.
func (b *Bot) Notify(ctx context.Context, n service.Notification) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.ChatID, formatNotification(n))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send reminder for schedule %d: %w", n.ScheduleID, err)
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Cancelled. Start again with /new whenever you like.")
	}

	if msg.IsCommand() {
		b.logger.Info("command", zap.Int64("from", msg.From.ID), zap.String("command", msg.Command()))
		return b.handleCommand(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	if state := b.getConversation(msg.From.ID); state != nil {
		return b.handleConversation(ctx, msg, state)
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Use /new to schedule an action or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "new":
		return b.startConversation(ctx, msg)
	case "schedules":
		return b.handleListSchedules(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "due":
		return b.handleDue(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch strings.TrimSpace(msg.Text) {
	case menuLabelNew:
		return true, b.startConversation(ctx, msg)
	case menuLabelList:
		return true, b.handleListSchedules(ctx, msg)
	case menuLabelDue:
		return true, b.handleDue(ctx, msg)
	case menuLabelHelp:
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I remind you about scheduled payments, airtime top-ups and money requests.</b>\n\n"+
			"Press «%s» or send /new to get started. /help lists every command.",
		escape(name), menuLabelNew,
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /new — schedule a payment, airtime top-up or request step by step\n" +
		"• /schedules — list schedules that can still fire\n" +
		"• /delete &lt;id&gt; — delete a schedule (for example /delete 3)\n" +
		"• /due — what is due today\n" +
		"• /cancel — cancel the current dialog\n\n" +
		"Repeating schedules fire daily, weekly, every two weeks or monthly. " +
		"A monthly schedule on the 29th to 31st fires on the last day of shorter months."
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) startConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	state, step := newConversation()
	b.setConversation(msg.From.ID, state)
	return b.sendWithReplyMarkup(msg.Chat.ID, step.prompt, step.keyboard)
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	step, input := b.stepConversation(msg.From.ID, state, msg.Text, b.scheduleSvc.Today())
	if !step.done {
		return b.sendWithReplyMarkup(msg.Chat.ID, step.prompt, step.keyboard)
	}
	return b.finishScheduleCreation(ctx, msg.From, input, msg.Chat.ID)
}

// stepConversation feeds one answer to the dialog and drops it once finished
// or reset. The returned input is a copy taken under the lock.
func (b *Bot) stepConversation(userID int64, state *conversationState, text string, today time.Time) (stepResult, service.ScheduleInput) {
	b.mu.Lock()
	defer b.mu.Unlock()

	step := state.advance(text, today)
	if step.done || state.stage == stageNone {
		delete(b.conversations, userID)
	}
	return step, state.input
}

func (b *Bot) finishScheduleCreation(ctx context.Context, from *tgbotapi.User, input service.ScheduleInput, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	record, err := b.scheduleSvc.Create(ctx, user, input)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not save the schedule: %s", escape(err.Error())))
	}
	return b.sendText(chatID, formatCreated(record))
}

func (b *Bot) handleListSchedules(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendScheduleList(ctx, msg.Chat.ID, user)
}

func (b *Bot) sendScheduleList(ctx context.Context, chatID int64, user *model.User) error {
	records, err := b.scheduleSvc.ListFuture(ctx, user)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load schedules: %s", escape(err.Error())))
	}
	if len(records) == 0 {
		return b.sendText(chatID, "You have no active schedules. Add one with /new.")
	}
	book, err := b.scheduleSvc.ContactBook(ctx, user)
	if err != nil {
		b.logger.Warn("load contacts", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	return b.sendWithReplyMarkup(chatID, formatScheduleList(records, book, b.scheduleSvc.Today()), deleteButtons(records))
}

func (b *Bot) handleDue(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	today := b.scheduleSvc.Today()
	items, err := b.dueSvc.PreviewForUser(ctx, *user, today)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not check due schedules: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, formatDueList(items, today))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, "Give the schedule ID: /delete 12")
	}
	id, err := parseID(args, "")
	if err != nil {
		return b.sendText(msg.Chat.ID, "The schedule ID must be a number.")
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.deleteSchedule(ctx, msg.Chat.ID, user, id)
}

func (b *Bot) deleteSchedule(ctx context.Context, chatID int64, user *model.User, id uint) error {
	record, err := b.scheduleSvc.Get(ctx, user, id)
	if err != nil {
		if errors.Is(err, service.ErrScheduleNotFound) {
			return b.sendText(chatID, "Schedule not found.")
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	if err := b.scheduleSvc.Delete(ctx, user, id); err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not delete the schedule: %s", escape(err.Error())))
	}
	return b.sendText(chatID, fmt.Sprintf("🗑 Schedule #%d «%s» deleted.", record.ID, escape(record.Description)))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn("callback ack", zap.Error(err))
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID
	switch {
	case strings.HasPrefix(data, cbDeletePrefix):
		id, err := parseID(data, cbDeletePrefix)
		if err != nil {
			return nil
		}
		return b.sendWithReplyMarkup(chatID, fmt.Sprintf("Delete schedule #%d?", id), confirmDeleteButtons(id))
	case strings.HasPrefix(data, cbConfirmPrefix):
		id, err := parseID(data, cbConfirmPrefix)
		if err != nil {
			return nil
		}
		user, err := b.ensureUser(ctx, cb.From)
		if err != nil {
			return err
		}
		if err := b.deleteSchedule(ctx, chatID, user, id); err != nil {
			return err
		}
		return b.sendScheduleList(ctx, chatID, user)
	case strings.HasPrefix(data, cbCancelPrefix):
		return b.sendText(chatID, "Kept it.")
	default:
		return nil
	}
}

func parseID(data, prefix string) (uint, error) {
	raw := strings.TrimPrefix(data, prefix)
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.sendWithReplyMarkup(chatID, text, mainMenuKeyboard())
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
