package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"grateful/internal/cache"
	"grateful/internal/core"
	"grateful/internal/entries"
	"grateful/internal/journal"
	"grateful/internal/log"
	"grateful/internal/recap"
	"grateful/internal/reminder"
	"grateful/internal/services"
)

const (
	promptFirst   = "What are you grateful for?"
	promptAnother = "Add another"
)

type journalView struct {
	Streak int
	Today  []entryView
	Recent []dayView
	Prompt string
	Error  string
	Text   string
}

func newJournalView(snap journal.Snapshot) journalView {
	loc := snap.Location
	if loc == nil {
		loc = time.Local
	}
	prompt := promptFirst
	if len(snap.Today) > 0 {
		prompt = promptAnother
	}
	return journalView{
		Streak: snap.Streak,
		Today:  newEntryViews(snap.Today, loc),
		Recent: newDayViews(snap.Recent, loc),
		Prompt: prompt,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap, err := s.entries.Snapshot(r.Context())
	if err != nil {
		s.errors.LogError(r.Context(), "Journal snapshot failed", err, log.ComponentJournal, log.OpList, nil)
		http.Error(w, "could not load journal", http.StatusInternalServerError)
		return
	}
	s.render(w, r, http.StatusOK, "index.html", newJournalView(snap))
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.fail(w, r, status, "Invalid request")
		return
	}
	text := parser.Get("text")

	entry, err := s.entries.CreateEntry(r.Context(), text)
	switch {
	case errors.Is(err, core.ErrEmptyText):
		s.rejectEntry(w, r, text, "Write something you're grateful for first.")
		return
	case errors.Is(err, core.ErrTextTooLong):
		s.rejectEntry(w, r, text, fmt.Sprintf("Keep it under %d characters.", core.MaxTextLength))
		return
	case err != nil:
		s.errors.LogError(r.Context(), "Failed to save entry", err, log.ComponentJournal, log.OpCreate, nil)
		s.fail(w, r, http.StatusInternalServerError, "Could not save your entry")
		return
	}

	if wantsJSON(r) {
		_ = writeJSON(w, http.StatusCreated, entry)
		return
	}
	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	snap, err := s.entries.Snapshot(r.Context())
	if err != nil {
		s.errors.LogError(r.Context(), "Journal snapshot failed", err, log.ComponentJournal, log.OpList, nil)
		s.fail(w, r, http.StatusInternalServerError, "Saved, but the journal could not be reloaded")
		return
	}
	body, ok := s.renderFragment(w, r, "journal", newJournalView(snap))
	if !ok {
		return
	}
	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerEntryCreated(entry.ID, snap.Streak).
		TriggerFormReset().
		BodyBytes(body).
		Write(w)
}

// rejectEntry answers 422 in the representation the caller used.
func (s *Server) rejectEntry(w http.ResponseWriter, r *http.Request, text, message string) {
	if wantsJSON(r) || isHTMX(r) {
		s.fail(w, r, http.StatusUnprocessableEntity, message)
		return
	}

	snap, err := s.entries.Snapshot(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusUnprocessableEntity, message)
		return
	}
	view := newJournalView(snap)
	view.Error = message
	view.Text = text
	s.render(w, r, http.StatusUnprocessableEntity, "index.html", view)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.entries.DeleteEntry(r.Context(), id)
	switch {
	case errors.Is(err, entries.ErrNotFound):
		s.fail(w, r, http.StatusNotFound, "Entry not found")
		return
	case err != nil:
		s.errors.LogError(r.Context(), "Failed to delete entry", err, log.ComponentJournal, log.OpDelete,
			log.LogFields{log.FieldEntryID: id})
		s.fail(w, r, http.StatusInternalServerError, "Could not delete the entry")
		return
	}

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	snap, err := s.entries.Snapshot(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "Deleted, but the journal could not be reloaded")
		return
	}
	body, ok := s.renderFragment(w, r, "journal", newJournalView(snap))
	if !ok {
		return
	}
	NewHTMXResponse().
		TriggerEntryDeleted(id).
		BodyBytes(body).
		Write(w)
}

// journalResponse is the JSON form of a snapshot.
type journalResponse struct {
	journal.Snapshot
	Timezone string      `json:"timezone"`
	Recap    recap.Recap `json:"recap"`
}

func (s *Server) handleJournalJSON(w http.ResponseWriter, r *http.Request) {
	snap, err := s.entries.Snapshot(r.Context())
	if err != nil {
		s.errors.LogError(r.Context(), "Journal snapshot failed", err, log.ComponentJournal, log.OpList, nil)
		_ = writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not load journal"})
		return
	}
	_ = writeJSON(w, http.StatusOK, journalResponse{
		Snapshot: snap,
		Timezone: snap.Location.String(),
		Recap:    recap.FromSnapshot(snap),
	})
}

type recapView struct {
	Recap          recap.Recap
	Revision       uint64
	SharingEnabled bool
}

func (s *Server) handleRecap(w http.ResponseWriter, r *http.Request) {
	rc, err := s.entries.Recap(r.Context())
	if err != nil {
		s.errors.LogError(r.Context(), "Recap failed", err, log.ComponentRecap, log.OpRender, nil)
		http.Error(w, "could not build recap", http.StatusInternalServerError)
		return
	}
	s.render(w, r, http.StatusOK, "recap.html", recapView{
		Recap:          rc,
		Revision:       s.entries.Hub().Revision(),
		SharingEnabled: s.entries.SharingEnabled(),
	})
}

func (s *Server) handleRecapPNG(w http.ResponseWriter, r *http.Request) {
	revision := s.entries.Hub().Revision()
	rc, err := s.entries.Recap(r.Context())
	if err != nil {
		s.errors.LogError(r.Context(), "Recap failed", err, log.ComponentRecap, log.OpRender, nil)
		http.Error(w, "could not build recap", http.StatusInternalServerError)
		return
	}
	key := cache.RecapKey(rc.End, revision, rc.Total)

	img, ok := s.recapImages.Get(key)
	if !ok {
		var buf bytes.Buffer
		if err := recap.RenderPNG(&buf, rc); err != nil {
			s.errors.LogError(r.Context(), "Recap image failed", err, log.ComponentRecap, log.OpRender, nil)
			http.Error(w, "could not render recap", http.StatusInternalServerError)
			return
		}
		img = buf.Bytes()
		s.recapImages.Set(key, img)
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Disposition", `inline; filename="gratitude-recap.png"`)
	_, _ = w.Write(img)
}

func (s *Server) handleRecapText(w http.ResponseWriter, r *http.Request) {
	rc, err := s.entries.Recap(r.Context())
	if err != nil {
		s.errors.LogError(r.Context(), "Recap failed", err, log.ComponentRecap, log.OpRender, nil)
		http.Error(w, "could not build recap", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(recap.RenderText(rc)))
}

func (s *Server) handleShareRecap(w http.ResponseWriter, r *http.Request) {
	rc, ref, err := s.entries.ShareRecap(r.Context())
	switch {
	case errors.Is(err, services.ErrSharingDisabled):
		s.fail(w, r, http.StatusConflict, "Sharing is not configured")
		return
	case err != nil:
		s.errors.LogError(r.Context(), "Recap share failed", err, log.ComponentRecap, log.OpShare, nil)
		s.fail(w, r, http.StatusBadGateway, "Could not share the recap")
		return
	}

	s.logger.InfoContext(r.Context(), "Recap shared",
		log.FieldOperation, log.OpShare,
		log.FieldShareRef, ref,
		"total", rc.Total)

	if wantsJSON(r) {
		_ = writeJSON(w, http.StatusOK, map[string]any{"ref": ref, "recap": rc})
		return
	}
	NewHTMXResponse().
		TriggerSuccessNotification("Recap shared").
		BodyHTML(`<div class="success">Shared ` + template.HTMLEscapeString(rc.RangeLabel) + `</div>`).
		Write(w)
}

type settingsView struct {
	Reminder reminder.Settings
	Time     string
	Saved    bool
	Error    string
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if s.reminders == nil {
		http.Error(w, "reminders are not available", http.StatusNotFound)
		return
	}
	settings, err := s.reminders.Settings(r.Context())
	if err != nil {
		s.errors.LogError(r.Context(), "Load reminder settings failed", err, log.ComponentReminder, log.OpList, nil)
		http.Error(w, "could not load settings", http.StatusInternalServerError)
		return
	}
	s.render(w, r, http.StatusOK, "settings.html", settingsView{
		Reminder: settings,
		Time:     settings.TimeLabel(),
		Saved:    r.URL.Query().Get("saved") == "1",
	})
}

func (s *Server) handleSaveReminder(w http.ResponseWriter, r *http.Request) {
	if s.reminders == nil {
		s.fail(w, r, http.StatusNotFound, "Reminders are not available")
		return
	}
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		s.fail(w, r, http.StatusBadRequest, "Invalid request")
		return
	}

	enabled := parser.GetBool("enabled")
	err := s.saveReminder(r.Context(), enabled, parser.Get("time"))
	switch {
	case errors.Is(err, reminder.ErrInvalidTime),
		errors.Is(err, reminder.ErrInvalidHour),
		errors.Is(err, reminder.ErrInvalidMinute):
		s.fail(w, r, http.StatusUnprocessableEntity, "Pick a time as HH:MM")
		return
	case err != nil:
		s.errors.LogError(r.Context(), "Save reminder settings failed", err, log.ComponentReminder, log.OpSchedule, nil)
		s.fail(w, r, http.StatusInternalServerError, "Could not save settings")
		return
	}

	settings, err := s.reminders.Settings(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "Could not load settings")
		return
	}

	switch {
	case wantsJSON(r):
		_ = writeJSON(w, http.StatusOK, settings)
	case isHTMX(r):
		body, ok := s.renderFragment(w, r, "reminder", settingsView{Reminder: settings, Time: settings.TimeLabel(), Saved: true})
		if !ok {
			return
		}
		NewHTMXResponse().
			TriggerSettingsSaved(settings.Enabled, settings.TimeLabel()).
			BodyBytes(body).
			Write(w)
	default:
		http.Redirect(w, r, "/settings?saved=1", http.StatusSeeOther)
	}
}

// saveReminder schedules the reminder at the submitted time or turns it off.
// A disabled reminder keeps its previous time.
func (s *Server) saveReminder(ctx context.Context, enabled bool, timeOfDay string) error {
	if !enabled {
		return s.reminders.CancelReminder(ctx)
	}
	hour, minute, err := reminder.ParseTimeOfDay(timeOfDay)
	if err != nil {
		return err
	}
	return s.reminders.ScheduleDailyReminder(ctx, hour, minute)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks templates and the backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.backend == nil:
		checks["backend"] = "not_configured"
	default:
		if err := s.backend.Ping(ctx); err != nil {
			checks["backend"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}

	checks["cache"] = map[string]any{"recap_images": s.recapImages.Size()}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients()}

	_ = writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// fail writes an error as JSON or as an HTML fragment.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, message string) {
	if wantsJSON(r) {
		_ = writeJSON(w, status, map[string]string{"error": message})
		return
	}
	ErrorResponse(status, message).Write(w)
}

// renderFragment executes a named template into memory. On failure it has
// already answered the request.
func (s *Server) renderFragment(w http.ResponseWriter, r *http.Request, name string, data any) ([]byte, bool) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return nil, false
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.errors.LogError(r.Context(), "Template execution failed", err, log.ComponentHTTP, log.OpRender,
			log.LogFields{"template": name})
		http.Error(w, "render failed", http.StatusInternalServerError)
		return nil, false
	}
	return buf.Bytes(), true
}
