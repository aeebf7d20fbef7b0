package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"equilibria/internal/config"
	"equilibria/internal/database"
	"equilibria/internal/events"
	"equilibria/internal/models"
	"equilibria/internal/repository"
	"equilibria/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type firstReply struct{}

func (firstReply) Intn(int) int { return 0 }

type testEnv struct {
	ts    *httptest.Server
	db    *database.DB
	chat  *service.ChatService
	user  *models.User
	other *models.User
	prac  *models.Practitioner
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func newTestEnv(t *testing.T, cfg config.APIConfig, userLimit int) *testEnv {
	t.Helper()
	logger := testLogger()

	db, err := database.NewDB(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	user := &models.User{Username: "ana", Email: "ana@example.com", FirstName: "Ana"}
	other := &models.User{Username: "bia", Email: "bia@example.com"}
	require.NoError(t, db.CreateUser(ctx, user))
	require.NoError(t, db.CreateUser(ctx, other))

	state := repository.NewMemoryStateRepository(time.Minute)
	bus := events.NewEventBus()
	directory := service.NewDirectoryService(db, state, logger)
	prac, err := directory.CreatePractitioner(ctx, "Dra. Helena", &models.Schedule{AvailableDays: "segunda, quarta", AvailableHours: "09:00-12:00"})
	require.NoError(t, err)

	notifications := service.NewNotificationService(db, logger)
	notifications.Subscribe(bus)
	chat := service.NewChatService(db, firstReply{}, time.Second, logger)

	svc := Services{
		Store:         db,
		Booking:       service.NewBookingService(db, bus, logger),
		Directory:     directory,
		Chat:          chat,
		Ratings:       service.NewRatingService(db, bus, logger),
		Notifications: notifications,
		Users:         service.NewUserService(db, logger),
		Contact:       service.NewContactService(logger),
		Limits:        service.NewStateService(state, userLimit, time.Minute, logger),
	}

	srv := NewHTTPServer(cfg, svc, "", logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, db: db, chat: chat, user: user, other: other, prac: prac}
}

func (e *testEnv) do(t *testing.T, method, path string, userID int64, body any, headers ...string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if userID != 0 {
		req.Header.Set("X-User-ID", fmt.Sprint(userID))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (e *testEnv) book(t *testing.T, userID int64, date, clock string) *http.Response {
	t.Helper()
	return e.do(t, http.MethodPost, "/api/v1/appointments", userID, map[string]any{
		"practitioner_id": e.prac.ID,
		"date":            date,
		"time":            clock,
	})
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, 0)

	resp := env.do(t, http.MethodGet, "/healthz", 0, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	require.NoError(t, env.db.Close())
	resp = env.do(t, http.MethodGet, "/healthz", 0, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, 0)

	resp := env.do(t, http.MethodGet, "/healthz", 0, nil, requestIDHeader, "req-42")
	assert.Equal(t, "req-42", resp.Header.Get(requestIDHeader))
}

func TestPractitioners(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, 0)

	resp := env.do(t, http.MethodGet, "/api/v1/practitioners", 0, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Practitioners []models.Practitioner `json:"practitioners"`
	}
	decodeBody(t, resp, &list)
	require.Len(t, list.Practitioners, 1)
	assert.Equal(t, "Dra. Helena", list.Practitioners[0].Name)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/practitioners/%d/schedule", env.prac.ID), 0, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var schedule models.Schedule
	decodeBody(t, resp, &schedule)
	assert.Equal(t, "segunda, quarta", schedule.AvailableDays)

	resp = env.do(t, http.MethodGet, "/api/v1/practitioners/999/schedule", 0, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/practitioners/abc", 0, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/practitioners", 0, map[string]string{"name": "Dr. Paulo"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/practitioners", 0, map[string]string{"name": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBookFlow(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, 0)

	resp := env.book(t, env.user.ID, "2024-05-10", "10:00")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var appt models.Appointment
	decodeBody(t, resp, &appt)
	assert.Equal(t, models.StatusScheduled, appt.Status)
	assert.Equal(t, "Dra. Helena", appt.PractitionerName)

	resp = env.book(t, env.other.ID, "2024-05-10", "10:00")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var conflict map[string]string
	decodeBody(t, resp, &conflict)
	assert.Equal(t, "slot already booked", conflict["error"])

	resp = env.do(t, http.MethodGet, "/api/v1/appointments", env.user.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Appointments []models.Appointment `json:"appointments"`
	}
	decodeBody(t, resp, &list)
	require.Len(t, list.Appointments, 1)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/appointments/%d", appt.ID), env.other.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/appointments/%d/cancel", appt.ID), env.other.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/appointments/%d/cancel", appt.ID), env.user.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &appt)
	assert.Equal(t, models.StatusCancelled, appt.Status)

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/appointments/%d/cancel", appt.ID), env.user.ID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.book(t, env.other.ID, "2024-05-10", "10:00")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestBookValidation(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, 0)

	resp := env.do(t, http.MethodPost, "/api/v1/appointments", env.user.ID, map[string]any{
		"practitioner_id": 0,
		"date":            "10/05/2024",
		"time":            "",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body struct {
		Error  string `json:"error"`
		Fields []struct {
			Field string `json:"field"`
		} `json:"fields"`
	}
	decodeBody(t, resp, &body)
	fields := make([]string, 0, len(body.Fields))
	for _, f := range body.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"practitioner_id", "date", "time"}, fields)

	resp = env.book(t, 0, "2024-05-10", "10:00")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/appointments", env.user.ID, nil, "X-User-ID", "abc")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, env.ts.URL+"/api/v1/appointments", bytes.NewBufferString("{"))
	require.NoError(t, err)
	req.Header.Set("X-User-ID", fmt.Sprint(env.user.ID))
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/appointments", env.user.ID, map[string]any{
		"practitioner_id": 999,
		"date":            "2024-05-10",
		"time":            "10:00",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBookRateLimitedPerUser(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, 2)

	assert.Equal(t, http.StatusCreated, env.book(t, env.user.ID, "2024-05-10", "10:00").StatusCode)
	assert.Equal(t, http.StatusCreated, env.book(t, env.user.ID, "2024-05-10", "11:00").StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, env.book(t, env.user.ID, "2024-05-10", "12:00").StatusCode)

	assert.Equal(t, http.StatusCreated, env.book(t, env.other.ID, "2024-05-10", "12:00").StatusCode)
}

func TestCompleteAndRate(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, 0)

	resp := env.book(t, env.user.ID, "2024-05-10", "10:00")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var appt models.Appointment
	decodeBody(t, resp, &appt)

	ratingPath := fmt.Sprintf("/api/v1/appointments/%d/rating", appt.ID)

	resp = env.do(t, http.MethodPost, ratingPath, env.user.ID, map[string]any{"score": 5})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/appointments/%d/complete", appt.ID), 0, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, ratingPath, env.user.ID, map[string]any{"score": 9})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, ratingPath, env.user.ID, map[string]any{"score": 5, "comment": "Muito bom"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodPost, ratingPath, env.user.ID, map[string]any{"score": 4})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodGet, ratingPath, env.user.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rating models.Rating
	decodeBody(t, resp, &rating)
	assert.Equal(t, 5, rating.Score)
	assert.Equal(t, "Muito bom", rating.Comment)

	resp = env.do(t, http.MethodGet, ratingPath, env.other.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNotifications(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, 0)

	require.Equal(t, http.StatusCreated, env.book(t, env.user.ID, "2024-05-10", "10:00").StatusCode)

	resp := env.do(t, http.MethodGet, "/api/v1/notifications", env.user.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Notifications []models.Notification `json:"notifications"`
	}
	decodeBody(t, resp, &list)
	require.Len(t, list.Notifications, 1)
	n := list.Notifications[0]
	assert.False(t, n.Read)
	assert.Contains(t, n.Message, "Dra. Helena")

	readPath := fmt.Sprintf("/api/v1/notifications/%d/read", n.ID)
	resp = env.do(t, http.MethodPost, readPath, env.other.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodPost, readPath, env.user.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	got, err := env.db.GetNotification(context.Background(), n.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)
}

func TestChat(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, 0)

	resp := env.do(t, http.MethodPost, "/api/v1/chat", 0, map[string]string{"message": "Estou muito ANSIOSO hoje"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reply models.ChatReply
	decodeBody(t, resp, &reply)
	assert.Equal(t, models.TopicAnxiety, reply.Topic)
	assert.NotEmpty(t, reply.Text)

	resp = env.do(t, http.MethodPost, "/api/v1/chat", env.user.ID, map[string]string{"message": "bom dia"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &reply)
	assert.Equal(t, models.TopicGeneral, reply.Topic)
	env.chat.Wait()

	resp = env.do(t, http.MethodGet, "/api/v1/chat/history", env.user.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history struct {
		Exchanges []models.AIExchange `json:"exchanges"`
	}
	decodeBody(t, resp, &history)
	require.Len(t, history.Exchanges, 1)
	assert.Equal(t, "bom dia", history.Exchanges[0].Message)

	resp = env.do(t, http.MethodPost, "/api/v1/chat", 0, map[string]string{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/chat", 0, map[string]string{"message": "oi"}, "X-User-ID", "-3")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUsers(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, 0)

	resp := env.do(t, http.MethodPost, "/api/v1/users", 0, models.Registration{
		Username: "carla",
		Email:    "carla@example.com",
		Password: "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var user models.User
	decodeBody(t, resp, &user)
	assert.NotZero(t, user.ID)

	resp = env.do(t, http.MethodPost, "/api/v1/users", 0, models.Registration{Username: "dani", Email: "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/me", user.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"username":"carla"`)
	assert.NotContains(t, string(raw), "password")

	resp = env.do(t, http.MethodGet, "/api/v1/me", 999, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestContact(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, 0)

	resp := env.do(t, http.MethodPost, "/api/v1/contact", 0, models.ContactMessage{
		Name:        "Ana",
		Email:       "ana@example.com",
		Subject:     "Horários",
		Message:     "Vocês atendem aos sábados?",
		AcceptTerms: true,
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/contact", 0, models.ContactMessage{Name: "Ana"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, 0)

	require.Equal(t, http.StatusCreated, env.book(t, env.user.ID, "2024-05-10", "10:00").StatusCode)
	require.Equal(t, http.StatusCreated, env.book(t, env.other.ID, "2024-06-01", "10:00").StatusCode)

	resp := env.do(t, http.MethodGet, "/api/v1/appointments/export?from=2024-05-01&to=2024-05-31", 0, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "consultas_2024-05-01_a_2024-05-31.xlsx")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Consultas")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	resp = env.do(t, http.MethodGet, "/api/v1/appointments/export?from=2024-05-31&to=2024-05-01", 0, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportKeepsCopy(t *testing.T) {
	logger := testLogger()
	db, err := database.NewDB(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dir := t.TempDir()
	srv := NewHTTPServer(config.APIConfig{}, Services{
		Booking: service.NewBookingService(db, nil, logger),
	}, dir, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/v1/appointments/export?from=2024-05-01&to=2024-05-31")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = excelize.OpenFile(dir + "/consultas_2024-05-01_a_2024-05-31.xlsx")
	assert.NoError(t, err)
}
