package bot

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"scheduled-payments/internal/model"
	"scheduled-payments/internal/schedule"
	"scheduled-payments/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageType
	stageContact
	stageAmount
	stageStart
	stageRepeat
	stageFrequency
	stageEnd
)

type conversationState struct {
	stage conversationStage
	input service.ScheduleInput
}

// stepResult is what the wizard answers after one user message. When done is
// set the input is complete and the schedule can be created.
type stepResult struct {
	prompt   string
	keyboard interface{}
	done     bool
}

func newConversation() (*conversationState, stepResult) {
	return &conversationState{stage: stageType}, stepResult{
		prompt:   "🆕 New scheduled action.\n<b>Step 1:</b> what should I remind you about?",
		keyboard: actionKeyboard(),
	}
}

// advance applies one answer to the wizard. Invalid answers repeat the
// current question with a hint and leave the state untouched.
func (s *conversationState) advance(text string, today time.Time) stepResult {
	text = strings.TrimSpace(text)
	switch s.stage {
	case stageType:
		actionType, ok := parseActionType(text)
		if !ok {
			return stepResult{prompt: "Pick one of the buttons.", keyboard: actionKeyboard()}
		}
		s.input.Type = actionType
		switch actionType {
		case model.ActionMe2Me:
			s.stage = stageAmount
			return amountPrompt()
		case model.ActionAirtime:
			s.stage = stageContact
			return stepResult{
				prompt:   "📱 Who is the airtime for? Send <code>Name, phone</code> or press «Skip» to top up your own number.",
				keyboard: skipKeyboard(),
			}
		default:
			s.stage = stageContact
			return stepResult{prompt: "👤 Who is it for? Send <code>Name, phone</code>, e.g. <code>Kofi, +233200000001</code>.", keyboard: cancelKeyboard()}
		}

	case stageContact:
		if isSkipInput(text) {
			if s.input.Type != model.ActionAirtime {
				return stepResult{prompt: "This action needs a contact. Send <code>Name, phone</code>.", keyboard: cancelKeyboard()}
			}
			s.stage = stageAmount
			return amountPrompt()
		}
		contact, err := parseContact(text)
		if err != nil {
			return stepResult{prompt: "I could not read that. Send <code>Name, phone</code> or just the phone number.", keyboard: contactRetryKeyboard(s.input.Type)}
		}
		s.input.Contacts = append(s.input.Contacts, contact)
		s.stage = stageAmount
		return amountPrompt()

	case stageAmount:
		if !isSkipInput(text) {
			amount, err := parseAmount(text)
			if err != nil {
				return stepResult{prompt: "The amount must be a positive number, e.g. <code>25.50</code>.", keyboard: skipKeyboard()}
			}
			s.input.Amount = amount
		}
		s.stage = stageStart
		return stepResult{
			prompt:   fmt.Sprintf("📅 When should it start? Send a date like <code>%s</code> or press «Skip» for today.", today.Format(schedule.DateLayout)),
			keyboard: skipKeyboard(),
		}

	case stageStart:
		if !isSkipInput(text) {
			start, err := schedule.ParseDay(text)
			if err != nil {
				return stepResult{prompt: "Use the format <code>2025-11-30</code> or press «Skip».", keyboard: skipKeyboard()}
			}
			if start.Before(today) {
				return stepResult{prompt: "The start date cannot be in the past.", keyboard: skipKeyboard()}
			}
			s.input.Start = &start
		}
		s.stage = stageRepeat
		return stepResult{prompt: "🔁 Should it repeat?", keyboard: yesNoKeyboard()}

	case stageRepeat:
		switch {
		case isYesInput(text):
			s.input.Repeat = true
			s.stage = stageFrequency
			return stepResult{prompt: "How often?", keyboard: frequencyKeyboard()}
		case isNoInput(text):
			s.input.Repeat = false
			s.stage = stageNone
			return stepResult{done: true}
		default:
			return stepResult{prompt: "Press «Yes» or «No».", keyboard: yesNoKeyboard()}
		}

	case stageFrequency:
		freq, err := parseFrequencyInput(text)
		if err != nil || !freq.Recurring() {
			return stepResult{prompt: "Pick one of the buttons.", keyboard: frequencyKeyboard()}
		}
		s.input.Frequency = freq
		s.stage = stageEnd
		return stepResult{prompt: "⏹ Until when? Send the last date or press «Skip» to repeat without end.", keyboard: skipKeyboard()}

	case stageEnd:
		if !isSkipInput(text) {
			end, err := schedule.ParseDay(text)
			if err != nil {
				return stepResult{prompt: "Use the format <code>2025-11-30</code> or press «Skip».", keyboard: skipKeyboard()}
			}
			start := today
			if s.input.Start != nil {
				start = *s.input.Start
			}
			if end.Before(start) {
				return stepResult{prompt: fmt.Sprintf("The end date must be on or after %s.", start.Format(schedule.DateLayout)), keyboard: skipKeyboard()}
			}
			s.input.End = &end
		}
		s.stage = stageNone
		return stepResult{done: true}

	default:
		s.stage = stageNone
		return stepResult{prompt: "The dialog was reset. Start again with /new.", keyboard: tgbotapi.NewRemoveKeyboard(true)}
	}
}

func amountPrompt() stepResult {
	return stepResult{prompt: "💰 How much? Press «Skip» to leave it open.", keyboard: skipKeyboard()}
}

func contactRetryKeyboard(actionType string) interface{} {
	if actionType == model.ActionAirtime {
		return skipKeyboard()
	}
	return cancelKeyboard()
}

func parseActionType(text string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case strings.ToLower(btnAirtime), model.ActionAirtime:
		return model.ActionAirtime, true
	case strings.ToLower(btnP2P), model.ActionP2P:
		return model.ActionP2P, true
	case strings.ToLower(btnMe2Me), model.ActionMe2Me:
		return model.ActionMe2Me, true
	case strings.ToLower(btnRequest), model.ActionRequest:
		return model.ActionRequest, true
	default:
		return "", false
	}
}

// parseContact accepts "Name, phone" or a bare phone number.
func parseContact(text string) (service.ContactInput, error) {
	var name, phone string
	if i := strings.LastIndex(text, ","); i >= 0 {
		name, phone = strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+1:])
	} else {
		phone = strings.TrimSpace(text)
	}
	if !isPhone(phone) {
		return service.ContactInput{}, fmt.Errorf("invalid phone %q", phone)
	}
	return service.ContactInput{Name: name, Phone: phone}, nil
}

func isPhone(s string) bool {
	s = strings.TrimPrefix(s, "+")
	if len(s) < 6 || len(s) > 15 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parseAmount(text string) (string, error) {
	text = strings.ReplaceAll(text, ",", ".")
	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return "", fmt.Errorf("invalid amount %q", text)
	}
	return text, nil
}

func parseFrequencyInput(text string) (schedule.Frequency, error) {
	if strings.EqualFold(strings.TrimSpace(text), btnBiweekly) {
		return schedule.Biweekly, nil
	}
	return schedule.ParseFrequency(text)
}
