package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"equilibria/internal/export"
	"equilibria/internal/metrics"
	"equilibria/internal/models"
)

const (
	scopeBook = "book"
	scopeChat = "chat"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.svc.Store != nil {
		if err := s.svc.Store.Health(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleListPractitioners(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Directory.ListPractitioners(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"practitioners": list})
}

func (s *HTTPServer) handleGetPractitioner(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := s.svc.Directory.GetPractitioner(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *HTTPServer) handleCreatePractitioner(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name           string `json:"name"`
		AvailableDays  string `json:"available_days"`
		AvailableHours string `json:"available_hours"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	var schedule *models.Schedule
	if body.AvailableDays != "" || body.AvailableHours != "" {
		schedule = &models.Schedule{AvailableDays: body.AvailableDays, AvailableHours: body.AvailableHours}
	}

	p, err := s.svc.Directory.CreatePractitioner(r.Context(), body.Name, schedule)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *HTTPServer) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	schedule, err := s.svc.Directory.GetSchedule(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		PractitionerID int64  `json:"practitioner_id"`
		Date           string `json:"date"`
		Time           string `json:"time"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	if err := s.allow(r, scopeBook, userID); err != nil {
		metrics.IncBooking(metrics.OutcomeRateLimited)
		s.writeServiceError(w, r, err)
		return
	}

	appt, err := s.svc.Booking.Book(r.Context(), userID, body.PractitionerID, body.Date, body.Time)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

func (s *HTTPServer) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	list, err := s.svc.Booking.ListUserAppointments(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": list})
}

func (s *HTTPServer) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	appt, err := s.svc.Booking.GetAppointment(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if appt.UserID != userID {
		writeError(w, http.StatusNotFound, fmt.Sprintf("appointment %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	appt, err := s.svc.Booking.Cancel(r.Context(), id, userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// handleComplete is called by the office, not by the patient, so it
// carries no identity check beyond the API key permission.
func (s *HTTPServer) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	appt, err := s.svc.Booking.Complete(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (s *HTTPServer) handleRate(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		Score   int    `json:"score"`
		Comment string `json:"comment"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	rating, err := s.svc.Ratings.Rate(r.Context(), userID, id, body.Score, body.Comment)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rating)
}

func (s *HTTPServer) handleGetRating(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rating, err := s.svc.Ratings.GetRating(r.Context(), userID, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

// handleExport renders every appointment in [from, to] as a workbook. When
// an export directory is configured a copy is kept there.
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))

	list, err := s.svc.Booking.ListAppointmentsByDateRange(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	fileName := export.FileName(from, to)
	if s.exportDir != "" {
		path, err := export.SaveAppointments(s.exportDir, from, to, list)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.logger.Info().Str("path", path).Int("appointments", len(list)).Msg("appointments exported")
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
		http.ServeFile(w, r, path)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteAppointments(&buf, from, to, list); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleChat answers anonymous visitors too; only identified users get
// their exchange stored and their requests counted.
func (s *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var userID *int64
	id, err := s.userID(r)
	switch {
	case err == nil:
		userID = &id
	case errors.Is(err, errInvalidIdentity):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body struct {
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	if userID != nil {
		if err := s.allow(r, scopeChat, *userID); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}

	reply, err := s.svc.Chat.Respond(r.Context(), body.Message, userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *HTTPServer) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	list, err := s.svc.Chat.History(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exchanges": list})
}

func (s *HTTPServer) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	list, err := s.svc.Notifications.ListForUser(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": list})
}

func (s *HTTPServer) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Notifications.MarkRead(r.Context(), userID, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRegister is the hook the identity provider calls after sign-up or
// a profile change.
func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body models.Registration
	if !decodeJSON(w, r, &body) {
		return
	}
	user, err := s.svc.Users.Register(r.Context(), body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	user, err := s.svc.Users.GetUser(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleContact(w http.ResponseWriter, r *http.Request) {
	var body models.ContactMessage
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.svc.Contact.Submit(r.Context(), body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "received"})
}

func (s *HTTPServer) allow(r *http.Request, scope string, userID int64) error {
	if s.svc.Limits == nil {
		return nil
	}
	return s.svc.Limits.Allow(r.Context(), scope, userID)
}
