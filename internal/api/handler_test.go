package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"scheduled-payments/internal/model"
	"scheduled-payments/internal/schedule"
	"scheduled-payments/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ── mocks ──

type mockUsers struct {
	users map[uint]model.User
	err   error
}

func (m *mockUsers) FindByID(_ context.Context, id uint) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

type mockSchedules struct {
	today   time.Time
	records map[uint][]model.ScheduleRecord
}

func (m *mockSchedules) ListFuture(_ context.Context, user *model.User) ([]model.ScheduleRecord, error) {
	return m.records[user.ID], nil
}

func (m *mockSchedules) Today() time.Time { return m.today }

type mockDue struct {
	gotDay time.Time
	items  []service.DueItem
	err    error
}

func (m *mockDue) Preview(_ context.Context, today time.Time) ([]service.DueItem, error) {
	m.gotDay = today
	return m.items, m.err
}

func setupRouter(t *testing.T) (*gin.Engine, *mockDue) {
	t.Helper()
	weekly, err := schedule.New(day(2024, 4, 2), nil, schedule.Weekly)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	due := &mockDue{items: []service.DueItem{{
		User:     model.User{ID: 1},
		Record:   model.ScheduleRecord{ID: 5, Type: model.ActionP2P, Description: "Send money with MoMo to Kofi", Amount: "20"},
		Schedule: weekly,
		Contacts: []model.Contact{{Name: "Kofi"}, {Phone: "+233200000002"}},
	}}}
	end := day(2024, 12, 31)
	schedules := &mockSchedules{
		today: day(2024, 4, 30),
		records: map[uint][]model.ScheduleRecord{1: {
			{ID: 5, Type: model.ActionP2P, Description: "Send money with MoMo to Kofi", StartDate: day(2024, 1, 31), EndDate: &end, Frequency: schedule.Monthly.Code()},
			{ID: 6, Type: model.ActionAirtime, Description: "Buy airtime for myself from MoMo", StartDate: day(2024, 5, 3), Frequency: schedule.Biweekly.Code()},
			{ID: 7, Type: model.ActionAirtime, Description: "broken", StartDate: day(2024, 5, 3), Frequency: 9},
		}},
	}
	users := &mockUsers{users: map[uint]model.User{1: {ID: 1, TelegramID: 5001}}}
	return NewRouter(NewHandler(users, schedules, due), zap.NewNop()), due
}

func doGet(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r, _ := setupRouter(t)
	w := doGet(r, "/healthz")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("unexpected response %d %s", w.Code, w.Body.String())
	}
}

func TestDue(t *testing.T) {
	r, due := setupRouter(t)

	w := doGet(r, "/api/due")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !due.gotDay.Equal(day(2024, 4, 30)) {
		t.Errorf("expected default day today, got %s", due.gotDay)
	}

	var resp struct {
		Code int         `json:"code"`
		Data DueResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Date != "2024-04-30" || len(resp.Data.Items) != 1 {
		t.Fatalf("unexpected body %+v", resp)
	}
	item := resp.Data.Items[0]
	if item.ScheduleID != 5 || item.Frequency != "weekly" || item.Amount != "20" {
		t.Errorf("unexpected item %+v", item)
	}
	if len(item.Recipients) != 2 || item.Recipients[1] != "+233200000002" {
		t.Errorf("unexpected recipients %v", item.Recipients)
	}

	w = doGet(r, "/api/due?date=2024-06-03")
	if w.Code != http.StatusOK || !due.gotDay.Equal(day(2024, 6, 3)) {
		t.Errorf("expected explicit date, got %d %s", w.Code, due.gotDay)
	}
}

func TestDue_Errors(t *testing.T) {
	r, due := setupRouter(t)

	if w := doGet(r, "/api/due?date=03/06/2024"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad date, got %d", w.Code)
	}

	due.err = errors.New("db down")
	if w := doGet(r, "/api/due"); w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestUserCalendar(t *testing.T) {
	r, _ := setupRouter(t)

	w := doGet(r, "/api/users/1/schedules.ics")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("unexpected content type %q", ct)
	}

	cal, err := ics.ParseCalendar(strings.NewReader(w.Body.String()))
	if err != nil {
		t.Fatalf("parse calendar: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events (malformed record dropped), got %d", len(events))
	}
	rules := map[string]string{}
	for _, evt := range events {
		if prop := evt.GetProperty(ics.ComponentPropertyRrule); prop != nil {
			rules[evt.Id()] = prop.Value
		}
	}
	if got := rules["schedule-5@scheduled-payments"]; got != "FREQ=MONTHLY;BYMONTHDAY=28,29,30,31;BYSETPOS=-1;UNTIL=20241231" {
		t.Errorf("unexpected monthly rule %q", got)
	}
	if got := rules["schedule-6@scheduled-payments"]; got != "FREQ=WEEKLY;INTERVAL=2" {
		t.Errorf("unexpected biweekly rule %q", got)
	}
}

func TestUserCalendar_Errors(t *testing.T) {
	r, _ := setupRouter(t)

	if w := doGet(r, "/api/users/abc/schedules.ics"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if w := doGet(r, "/api/users/99/schedules.ics"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
