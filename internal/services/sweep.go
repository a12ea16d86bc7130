package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"vaxline/internal/models"
	"vaxline/internal/schedule"
)

// Sweeper periodically scans the whole sheet for doses that are due soon (or
// overdue) and still unmarked, and fires their reminders. It is the safety
// net for deferred tasks lost to a process restart.
type Sweeper struct {
	store     ReminderStore
	notifier  ReminderSender
	lookahead int // days
	loc       *time.Location
	log       zerolog.Logger
	cron      *cron.Cron
}

func NewSweeper(store ReminderStore, notifier ReminderSender, lookaheadDays int, loc *time.Location, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:     store,
		notifier:  notifier,
		lookahead: lookaheadDays,
		loc:       loc,
		log:       log,
	}
}

// Start registers the sweep on the given cron spec and launches the cron
// runner. One sweep also runs immediately to catch anything missed while the
// process was down.
func (s *Sweeper) Start(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, s.run); err != nil {
		return err
	}
	s.cron = c
	c.Start()
	go s.run()
	s.log.Info().Str("spec", spec).Msg("catch-up sweep scheduled")
	return nil
}

// Stop halts the cron runner. A sweep already in flight finishes.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := s.Sweep(ctx, time.Now().In(s.loc)); err != nil {
		s.log.Error().Err(err).Msg("sweep failed")
	}
}

// Sweep processes every unmarked dose whose due date falls on or before
// now + lookahead days. Marked rows make each catch-up fire once.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) error {
	rows, err := s.store.All(ctx)
	if err != nil {
		return err
	}

	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, s.lookahead)

	processed := 0
	for _, row := range rows {
		for _, dose := range []models.Dose{models.DoseSecond, models.DoseThird} {
			raw := row.Record.DoseDate(dose)
			if raw == "" || row.Record.Reminded(dose) {
				continue
			}
			due, err := schedule.ParseDate(raw)
			if err != nil {
				// Header rows and hand-edited cells land here.
				continue
			}
			if due.After(cutoff) {
				continue
			}
			log := s.log.With().Int("row", row.Index).Str("dose", dose.String()).Logger()
			remindAndMark(ctx, s.store, s.notifier, row, dose, log)
			processed++
		}
	}
	if processed > 0 {
		s.log.Info().Int("doses", processed).Msg("sweep caught up missed reminders")
	}
	return nil
}
