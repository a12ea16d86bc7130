// Package services holds the background units: the per-submission deferred
// reminder tasks and the cron catch-up sweep.
package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vaxline/internal/models"
	"vaxline/internal/sheets"
)

// ReminderStore is the slice of the record store the reminder units need.
type ReminderStore interface {
	FindBySubmission(ctx context.Context, submissionID string) (sheets.Row, error)
	All(ctx context.Context) ([]sheets.Row, error)
	MarkReminded(ctx context.Context, rowIndex int, dose models.Dose) error
}

// ReminderSender delivers a single-dose reminder.
type ReminderSender interface {
	SendReminder(ctx context.Context, userID, vaccine, due string, dose models.Dose) error
}

const fireTimeout = 30 * time.Second

// ReminderScheduler runs one deferred task per submission: after a fixed
// delay it re-reads the persisted record, sends the second-dose reminder and
// marks it, then (for 3-dose vaccines) repeats for the third dose after a
// further delay. The persisted row is authoritative for the reminder's
// content; nothing is carried over from submission time.
//
// Reminders are at-most-once: a failed lookup or send is logged and the task
// still advances. The sweep covers anything the timers missed.
type ReminderScheduler struct {
	store    ReminderStore
	notifier ReminderSender
	delay    time.Duration
	stageGap time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

func NewReminderScheduler(store ReminderStore, notifier ReminderSender, delay, stageGap time.Duration, log zerolog.Logger) *ReminderScheduler {
	return &ReminderScheduler{
		store:    store,
		notifier: notifier,
		delay:    delay,
		stageGap: stageGap,
		log:      log,
		timers:   make(map[string]*time.Timer),
	}
}

// Schedule enqueues the second-dose stage for a submission and returns the
// task ID, usable with Cancel until the task fires.
func (s *ReminderScheduler) Schedule(submissionID string) string {
	taskID := submissionID + "/second"
	s.arm(taskID, s.delay, func() { s.fire(submissionID, models.DoseSecond) })
	return taskID
}

// Cancel drops a pending task. It reports whether a timer was still armed.
func (s *ReminderScheduler) Cancel(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer, ok := s.timers[taskID]
	if !ok {
		return false
	}
	delete(s.timers, taskID)
	return timer.Stop()
}

// Shutdown stops every pending timer. Tasks already firing run to completion.
func (s *ReminderScheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// arm registers a named timer. The timers map is only held long enough to
// insert or remove entries; the wait itself happens inside time.AfterFunc.
func (s *ReminderScheduler) arm(taskID string, d time.Duration, run func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if old, ok := s.timers[taskID]; ok {
		old.Stop()
	}
	s.timers[taskID] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, taskID)
		s.mu.Unlock()
		run()
	})
	s.log.Debug().Str("task_id", taskID).Dur("delay", d).Msg("reminder task scheduled")
}

// fire runs one stage: re-query, send, mark, and chain the next stage when a
// third dose exists.
func (s *ReminderScheduler) fire(submissionID string, dose models.Dose) {
	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	log := s.log.With().Str("submission_id", submissionID).Str("dose", dose.String()).Logger()

	row, err := s.store.FindBySubmission(ctx, submissionID)
	if err != nil {
		log.Error().Err(err).Msg("reminder lookup failed, leaving catch-up to the sweep")
		return
	}

	remindAndMark(ctx, s.store, s.notifier, row, dose, log)

	if dose == models.DoseSecond && row.Record.ThirdDoseDate != "" {
		s.arm(submissionID+"/third", s.stageGap, func() { s.fire(submissionID, models.DoseThird) })
	}
}

// remindAndMark sends one dose reminder and sets its status cell. Shared
// with the sweep. Failures are logged; the caller always advances.
func remindAndMark(ctx context.Context, store ReminderStore, notifier ReminderSender, row sheets.Row, dose models.Dose, log zerolog.Logger) {
	rec := row.Record
	due := rec.DoseDate(dose)
	if due == "" {
		return
	}
	if rec.Reminded(dose) {
		log.Debug().Msg("dose already reminded, skipping")
		return
	}

	if err := notifier.SendReminder(ctx, rec.UserID, rec.VaccineName, due, dose); err != nil {
		log.Warn().Err(err).Msg("reminder send failed")
	}
	if err := store.MarkReminded(ctx, row.Index, dose); err != nil {
		log.Error().Err(err).Msg("could not set reminded flag")
		return
	}
	log.Info().Str("user_id", rec.UserID).Str("due", due).Msg("dose reminder processed")
}
