// Package engagement runs the scheduled batch job that re-engages users who
// have gone quiet: it marks profiles inactive after the inactivity window and
// sends them a nudge on the messaging channel.
package engagement

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/momentohub/MomentoBot/internal/models"
	"github.com/momentohub/MomentoBot/internal/store"
)

// DefaultSchedule runs the job every morning at 09:00.
const DefaultSchedule = "0 9 * * *"

const nudgeMessage = "Oi! Faz um tempinho que a gente não conversa. Que tal continuar cuidando da saúde do seu negócio? Me conte como estão as coisas por aí."

// Sender is the outbound side used by the job.
type Sender interface {
	SendMessage(ctx context.Context, to string, body string) error
}

// Job periodically sweeps idle users.
type Job struct {
	store    store.Store
	sender   Sender
	cron     *cron.Cron
	schedule string

	// now is swappable for tests.
	now func() time.Time
}

// Opts holds configuration for the engagement job.
type Opts struct {
	Schedule string
}

// Option configures the engagement job.
type Option func(*Opts)

// WithSchedule overrides the cron schedule.
func WithSchedule(schedule string) Option {
	return func(o *Opts) { o.Schedule = schedule }
}

// NewJob creates the engagement job.
func NewJob(st store.Store, sender Sender, opts ...Option) *Job {
	cfg := Opts{Schedule: DefaultSchedule}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Job{
		store:    st,
		sender:   sender,
		cron:     cron.New(),
		schedule: cfg.Schedule,
		now:      time.Now,
	}
}

// Start registers the cron entry and begins scheduling.
func (j *Job) Start(ctx context.Context) error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		j.RunOnce(ctx)
	})
	if err != nil {
		return err
	}
	j.cron.Start()
	slog.Info("engagement job scheduled", "schedule", j.schedule)
	return nil
}

// Stop stops the scheduler, waiting for a running sweep to finish.
func (j *Job) Stop() {
	stopCtx := j.cron.Stop()
	<-stopCtx.Done()
	slog.Info("engagement job stopped")
}

// RunOnce performs one sweep: users with no writes inside the inactivity
// window are marked inactive and nudged. Returns the number of users swept.
func (j *Job) RunOnce(ctx context.Context) int {
	cutoff := j.now().Add(-models.InactivityWindow)
	users, err := j.store.ListUsersIdleSince(cutoff)
	if err != nil {
		slog.Error("Job.RunOnce: failed to list idle users", "error", err)
		return 0
	}

	swept := 0
	for _, user := range users {
		user.Status = models.UserStatusInactive
		if err := j.store.SaveUserProfile(user); err != nil {
			slog.Error("Job.RunOnce: failed to mark user inactive", "error", err, "userID", user.ID)
			continue
		}
		if err := j.sender.SendMessage(ctx, user.ID, nudgeMessage); err != nil {
			slog.Warn("Job.RunOnce: nudge failed", "error", err, "userID", user.ID)
			continue
		}
		swept++
	}

	slog.Info("Job.RunOnce: sweep complete", "idleUsers", len(users), "nudged", swept)
	return swept
}
