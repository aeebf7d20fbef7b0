package worker

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"equilibria/internal/config"
	"equilibria/internal/database"
	"equilibria/internal/models"

	"github.com/rs/zerolog"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// flakyWriter fails the first failures calls.
type flakyWriter struct {
	failures int
	calls    int
	created  []*models.Notification
}

func (f *flakyWriter) CreateNotification(_ context.Context, n *models.Notification) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("database is locked")
	}
	f.created = append(f.created, n)
	return nil
}

func TestRetryPolicyNextDelay(t *testing.T) {
	p := RetryPolicy{InitialDelay: time.Second, MaxDelay: 5 * time.Second, BackoffFactor: 2}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := p.NextDelay(i + 1); got != w {
			t.Fatalf("attempt %d: expected %s, got %s", i+1, w, got)
		}
	}

	if got := (RetryPolicy{}).NextDelay(0); got != time.Second {
		t.Fatalf("expected default delay 1s, got %s", got)
	}
}

func TestRetryPolicyDo(t *testing.T) {
	p := RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success on third call, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}

	calls = 0
	err = p.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("fatal")
	})
	if err == nil || err.Error() != "fatal" {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 1 call plus 2 retries, got %d", calls)
	}
}

func TestRetryPolicyDoStopsOnContext(t *testing.T) {
	p := RetryPolicy{MaxRetries: 5, InitialDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Do(ctx, func(context.Context) error { return errors.New("boom") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewReminderWorkerRejectsBadTime(t *testing.T) {
	if _, err := NewReminderWorker(nil, nil, config.ReminderConfig{Time: "nine"}, nil); err == nil {
		t.Fatalf("expected error for malformed time")
	}
}

func TestSendTomorrowReminders(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := &models.User{Username: "ana"}
	if err := db.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	prac := &models.Practitioner{Name: "Dra. Helena"}
	if err := db.CreatePractitioner(ctx, prac); err != nil {
		t.Fatalf("create practitioner: %v", err)
	}

	now := time.Date(2024, 5, 9, 9, 0, 0, 0, time.UTC)
	for _, a := range []*models.Appointment{
		{UserID: user.ID, PractitionerID: prac.ID, Date: "2024-05-10", Time: "10:00"},
		{UserID: user.ID, PractitionerID: prac.ID, Date: "2024-05-10", Time: "11:00"},
		{UserID: user.ID, PractitionerID: prac.ID, Date: "2024-05-11", Time: "10:00"},
	} {
		if err := db.CreateAppointmentWithLock(ctx, a); err != nil {
			t.Fatalf("create appointment: %v", err)
		}
	}
	if err := db.UpdateAppointmentStatus(ctx, 2, models.StatusScheduled, models.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	w, err := NewReminderWorker(db, db, config.ReminderConfig{Time: "09:00"}, nil)
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	w.now = func() time.Time { return now }

	sent, err := w.SendTomorrowReminders(ctx)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected 1 reminder, got %d", sent)
	}

	notes, err := db.ListUserNotifications(ctx, user.ID)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notes))
	}
	if !strings.Contains(notes[0].Message, "Dra. Helena") || !strings.Contains(notes[0].Message, "10:00") {
		t.Fatalf("unexpected reminder text %q", notes[0].Message)
	}
}

func TestSendTomorrowRemindersRetriesWrites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := &models.User{Username: "ana"}
	prac := &models.Practitioner{Name: "Dr. Paulo"}
	if err := db.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := db.CreatePractitioner(ctx, prac); err != nil {
		t.Fatalf("create practitioner: %v", err)
	}
	if err := db.CreateAppointmentWithLock(ctx, &models.Appointment{UserID: user.ID, PractitionerID: prac.ID, Date: "2024-05-10", Time: "10:00"}); err != nil {
		t.Fatalf("create appointment: %v", err)
	}

	writer := &flakyWriter{failures: 2}
	w, err := NewReminderWorker(db, writer, config.ReminderConfig{Time: "09:00", MaxRetries: 2}, nil)
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	w.now = func() time.Time { return time.Date(2024, 5, 9, 9, 0, 0, 0, time.UTC) }
	w.retryPolicy.InitialDelay = time.Millisecond

	sent, err := w.SendTomorrowReminders(ctx)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent != 1 || writer.calls != 3 {
		t.Fatalf("expected 1 sent after 3 calls, got sent=%d calls=%d", sent, writer.calls)
	}

	writer = &flakyWriter{failures: 10}
	w.notifications = writer
	sent, err = w.SendTomorrowReminders(ctx)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent != 0 {
		t.Fatalf("expected reminder to be skipped, got %d", sent)
	}
}

func TestUntilNextRun(t *testing.T) {
	w, err := NewReminderWorker(nil, nil, config.ReminderConfig{Time: "09:30"}, nil)
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}

	w.now = func() time.Time { return time.Date(2024, 5, 9, 8, 0, 0, 0, time.UTC) }
	if got := w.untilNextRun(); got != 90*time.Minute {
		t.Fatalf("expected 1h30m, got %s", got)
	}

	w.now = func() time.Time { return time.Date(2024, 5, 9, 9, 30, 0, 0, time.UTC) }
	if got := w.untilNextRun(); got != 24*time.Hour {
		t.Fatalf("expected 24h, got %s", got)
	}
}
