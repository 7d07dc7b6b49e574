package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"scheduled-payments/internal/model"
	"scheduled-payments/internal/schedule"
	"scheduled-payments/internal/service"
)

const (
	cbDeletePrefix  = "delete:"
	cbConfirmPrefix = "confirm:"
	cbCancelPrefix  = "cancel:"
)

const (
	btnAirtime      = "📱 Buy airtime"
	btnP2P          = "💸 Send money"
	btnMe2Me        = "🔄 Between my accounts"
	btnRequest      = "🙏 Request money"
	btnDaily        = "Daily"
	btnWeekly       = "Weekly"
	btnBiweekly     = "Every two weeks"
	btnMonthly      = "Monthly"
	btnSkip         = "⏭️ Skip"
	btnYes          = "Yes"
	btnNo           = "No"
	btnCancelDialog = "⏪ Cancel"
	menuLabelNew    = "➕ New schedule"
	menuLabelList   = "📋 Schedules"
	menuLabelDue    = "⏰ Due today"
	menuLabelHelp   = "ℹ️ Help"
	iconOnce        = "📌"
	iconRecurring   = "♻️"
)

func escape(s string) string {
	return html.EscapeString(s)
}

// formatSchedule renders one schedule; book resolves recipient ids and may be nil.
func formatSchedule(record model.ScheduleRecord, book map[uint]model.Contact, today time.Time) string {
	var b strings.Builder
	icon := iconRecurring
	if record.Frequency == schedule.Once.Code() {
		icon = iconOnce
	}
	fmt.Fprintf(&b, "%s <b>#%d</b> %s\n", icon, record.ID, escape(record.Description))
	if recipients := recipientNames(record, book); recipients != "" {
		fmt.Fprintf(&b, "   👤 %s\n", escape(recipients))
	}

	sched, err := service.ToSchedule(record)
	if err != nil {
		b.WriteString("   ⚠️ Invalid timing\n")
		return b.String()
	}
	fmt.Fprintf(&b, "   🔁 %s", escape(service.HumanFrequency(sched.Frequency(), sched.Start())))
	if end, ok := sched.End(); ok && sched.Frequency().Recurring() {
		fmt.Fprintf(&b, " until %s", end.Format(schedule.DateLayout))
	}
	b.WriteByte('\n')
	if next, ok := sched.Next(today); ok {
		fmt.Fprintf(&b, "   ⏭ Next: %s\n", next.Format(schedule.DateLayout))
	}
	if record.Amount != "" {
		fmt.Fprintf(&b, "   💰 %s\n", escape(record.Amount))
	}
	if record.Note != "" {
		fmt.Fprintf(&b, "   📝 %s\n", escape(record.Note))
	}
	return b.String()
}

func formatScheduleList(records []model.ScheduleRecord, book map[uint]model.Contact, today time.Time) string {
	var b strings.Builder
	b.WriteString("📋 <b>Your schedules</b>\n\n")
	for _, record := range records {
		b.WriteString(formatSchedule(record, book, today))
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

func recipientNames(record model.ScheduleRecord, book map[uint]model.Contact) string {
	var names []string
	for _, id := range record.ContactIDs() {
		c, ok := book[id]
		switch {
		case !ok:
		case c.Name == "":
			names = append(names, c.Phone)
		default:
			names = append(names, fmt.Sprintf("%s (%s)", c.Name, c.Phone))
		}
	}
	return strings.Join(names, ", ")
}

func formatDueList(items []service.DueItem, today time.Time) string {
	if len(items) == 0 {
		return fmt.Sprintf("Nothing is due on %s.", today.Format(schedule.DateLayout))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⏰ <b>Due on %s</b>\n", today.Format(schedule.DateLayout))
	for _, item := range items {
		fmt.Fprintf(&b, "• #%d %s\n", item.Record.ID, escape(item.Record.Description))
	}
	return strings.TrimSpace(b.String())
}

func formatCreated(record *model.ScheduleRecord) string {
	var b strings.Builder
	b.WriteString("✅ <b>Schedule saved</b>\n")
	fmt.Fprintf(&b, "• <b>ID:</b> %d\n", record.ID)
	fmt.Fprintf(&b, "• <b>What:</b> %s\n", escape(record.Description))
	fmt.Fprintf(&b, "• <b>Starts:</b> %s\n", record.StartDate.Format(schedule.DateLayout))
	if freq, err := schedule.FrequencyFromCode(record.Frequency); err == nil {
		fmt.Fprintf(&b, "• <b>Repeats:</b> %s\n", escape(service.HumanFrequency(freq, record.StartDate)))
		if record.EndDate != nil && freq.Recurring() {
			fmt.Fprintf(&b, "• <b>Until:</b> %s\n", record.EndDate.Format(schedule.DateLayout))
		}
	}
	if record.Amount != "" {
		fmt.Fprintf(&b, "• <b>Amount:</b> %s\n", escape(record.Amount))
	}
	return strings.TrimSpace(b.String())
}

// formatNotification renders a reminder; the title is bold when present.
func formatNotification(n service.Notification) string {
	if n.Title == "" {
		return escape(n.Text)
	}
	return fmt.Sprintf("🔔 <b>%s</b>\n%s", escape(n.Title), escape(n.Text))
}

func shortText(text string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func deleteButtons(records []model.ScheduleRecord) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(records))
	for _, record := range records {
		label := fmt.Sprintf("🗑 #%d · %s", record.ID, shortText(record.Description, 24))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbDeletePrefix, record.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func confirmDeleteButtons(id uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Delete", fmt.Sprintf("%s%d", cbConfirmPrefix, id)),
		tgbotapi.NewInlineKeyboardButtonData("↩️ Keep", fmt.Sprintf("%s%d", cbCancelPrefix, id)),
	))
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNew),
			tgbotapi.NewKeyboardButton(menuLabelList),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelDue),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func actionKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnP2P),
			tgbotapi.NewKeyboardButton(btnAirtime),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnMe2Me),
			tgbotapi.NewKeyboardButton(btnRequest),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func frequencyKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnDaily),
			tgbotapi.NewKeyboardButton(btnWeekly),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBiweekly),
			tgbotapi.NewKeyboardButton(btnMonthly),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func yesNoKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnYes),
			tgbotapi.NewKeyboardButton(btnNo),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isYesInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "yes" || value == "y"
}

func isNoInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "no" || value == "n" || value == "-"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "cancel"
}
