package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"scheduled-payments/internal/model"
	"scheduled-payments/internal/schedule"
	"scheduled-payments/internal/service"
)

type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

type ScheduleLister interface {
	ListFuture(ctx context.Context, user *model.User) ([]model.ScheduleRecord, error)
	Today() time.Time
}

type DuePreviewer interface {
	Preview(ctx context.Context, today time.Time) ([]service.DueItem, error)
}

// Handler serves the read-only API.
type Handler struct {
	users     UserFinder
	schedules ScheduleLister
	due       DuePreviewer
}

func NewHandler(users UserFinder, schedules ScheduleLister, due DuePreviewer) *Handler {
	return &Handler{users: users, schedules: schedules, due: due}
}

// DueItemResponse is one entry of GET /api/due.
type DueItemResponse struct {
	ScheduleID  uint     `json:"schedule_id"`
	UserID      uint     `json:"user_id"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Frequency   string   `json:"frequency"`
	Amount      string   `json:"amount,omitempty"`
	Recipients  []string `json:"recipients,omitempty"`
}

type DueResponse struct {
	Date  string            `json:"date"`
	Items []DueItemResponse `json:"items"`
}

// Due previews the schedules due on ?date=YYYY-MM-DD, today by default.
// GET /api/due
func (h *Handler) Due(c *gin.Context) {
	day := h.schedules.Today()
	if raw := c.Query("date"); raw != "" {
		parsed, err := schedule.ParseDay(raw)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	items, err := h.due.Preview(c.Request.Context(), day)
	if err != nil {
		internalError(c, err)
		return
	}

	resp := DueResponse{Date: day.Format(schedule.DateLayout), Items: make([]DueItemResponse, 0, len(items))}
	for _, item := range items {
		entry := DueItemResponse{
			ScheduleID:  item.Record.ID,
			UserID:      item.User.ID,
			Type:        item.Record.Type,
			Description: item.Record.Description,
			Frequency:   item.Schedule.Frequency().String(),
			Amount:      item.Record.Amount,
		}
		for _, contact := range item.Contacts {
			entry.Recipients = append(entry.Recipients, contact.DisplayName())
		}
		resp.Items = append(resp.Items, entry)
	}
	ok(c, resp)
}

// UserCalendar exports the user's active schedules as iCalendar.
// GET /api/users/:id/schedules.ics
func (h *Handler) UserCalendar(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "user id must be a number")
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.FindByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "user not found")
			return
		}
		internalError(c, err)
		return
	}

	records, err := h.schedules.ListFuture(ctx, user)
	if err != nil {
		internalError(c, err)
		return
	}

	cal := BuildCalendar(records, time.Now().UTC())
	c.Header("Content-Disposition", `attachment; filename="schedules.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(cal.Serialize()))
}
