// Package reconcile re-derives cached balances from the ledger for every membership.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarkoPoloResearchLab/courtledger/pkg/booking"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSchedule runs the sweep hourly.
const DefaultSchedule = "@every 1h"

var ErrInvalidJobConfig = errors.New("reconcile: invalid job config")

// MembershipLister enumerates student-tenant pairs holding a cached balance.
type MembershipLister interface {
	ListMemberships(ctx context.Context) ([]booking.Membership, error)
}

// BalanceSyncer overwrites one cached balance with its ledger value.
type BalanceSyncer interface {
	SyncBalance(ctx context.Context, tenantID booking.TenantID, studentID booking.StudentID) (booking.BalanceSync, error)
}

// Summary counts the outcome of one sweep.
type Summary struct {
	Checked int
	Drifted int
	Failed  int
}

// Job sweeps memberships and syncs each balance.
type Job struct {
	memberships MembershipLister
	syncer      BalanceSyncer
	logger      *zap.Logger
}

// NewJob validates dependencies and builds a Job.
func NewJob(memberships MembershipLister, syncer BalanceSyncer, logger *zap.Logger) (*Job, error) {
	if memberships == nil || syncer == nil {
		return nil, ErrInvalidJobConfig
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{memberships: memberships, syncer: syncer, logger: logger}, nil
}

// Run performs one sweep. Per-membership failures are counted and logged; the
// sweep only aborts when memberships cannot be listed or ctx is done.
func (job *Job) Run(ctx context.Context) (Summary, error) {
	memberships, err := job.memberships.ListMemberships(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list memberships: %w", err)
	}
	var summary Summary
	for _, membership := range memberships {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Checked++
		result, err := job.syncer.SyncBalance(ctx, membership.TenantID, membership.StudentID)
		if err != nil {
			summary.Failed++
			job.logger.Error("balance sync failed",
				zap.String("tenant_id", membership.TenantID.String()),
				zap.String("student_id", membership.StudentID.String()),
				zap.Error(err))
			continue
		}
		if result.Drifted {
			summary.Drifted++
		}
	}
	job.logger.Info("reconcile sweep finished",
		zap.Int("checked", summary.Checked),
		zap.Int("drifted", summary.Drifted),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// Schedule registers the job on a cron scheduler and starts it. The scheduler
// stops when ctx is cancelled; the returned channel closes once running sweeps finish.
func (job *Job) Schedule(ctx context.Context, spec string) (<-chan struct{}, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = DefaultSchedule
	}
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := scheduler.AddFunc(spec, func() {
		if _, err := job.Run(ctx); err != nil {
			job.logger.Error("reconcile sweep failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("%w: cron spec %q: %v", ErrInvalidJobConfig, spec, err)
	}
	scheduler.Start()
	job.logger.Info("reconcile scheduled", zap.String("schedule", spec))

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		<-scheduler.Stop().Done()
		close(done)
	}()
	return done, nil
}
