// Package jobs runs the nightly housekeeping: expired refresh tokens and
// audit entries past their retention are deleted.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	tokenCleanupSpec = "0 3 * * *"
	auditCleanupSpec = "5 3 * * *"
	jobTimeout       = 2 * time.Minute
)

// TokenPurger is implemented by *repository.TokenRepo.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditPurger is implemented by *repository.AuditRepo.
type AuditPurger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Cleanup struct {
	Tokens        TokenPurger
	Audit         AuditPurger
	RetentionDays int // 0 keeps audit entries forever
	Log           *logrus.Logger
	now           func() time.Time
}

func NewCleanup(tokens TokenPurger, audit AuditPurger, retentionDays int, log *logrus.Logger) *Cleanup {
	return &Cleanup{Tokens: tokens, Audit: audit, RetentionDays: retentionDays, Log: log, now: time.Now}
}

// PurgeTokens removes refresh tokens that are expired or revoked.
func (j *Cleanup) PurgeTokens(ctx context.Context) error {
	n, err := j.Tokens.PurgeExpired(ctx, j.now().UTC())
	if err != nil {
		return err
	}
	j.Log.WithField("rows", n).Info("purged refresh tokens")
	return nil
}

// PurgeAudit removes audit entries older than the retention period.
func (j *Cleanup) PurgeAudit(ctx context.Context) error {
	if j.RetentionDays <= 0 {
		return nil
	}
	cutoff := j.now().UTC().AddDate(0, 0, -j.RetentionDays)
	n, err := j.Audit.PurgeBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	j.Log.WithFields(logrus.Fields{"rows": n, "cutoff": cutoff}).Info("purged audit entries")
	return nil
}

// Schedule registers both jobs on a UTC cron.  The caller starts and stops
// the returned scheduler.
func (j *Cleanup) Schedule() (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(tokenCleanupSpec, j.wrap("token cleanup", j.PurgeTokens)); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc(auditCleanupSpec, j.wrap("audit cleanup", j.PurgeAudit)); err != nil {
		return nil, err
	}
	return c, nil
}

func (j *Cleanup) wrap(name string, fn func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			j.Log.WithError(err).Errorf("scheduled %s failed", name)
		}
	}
}
