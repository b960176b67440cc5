package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/revroute/internal/audit/domain"
	auditrepository "github.com/smallbiznis/revroute/internal/audit/repository"
	auditservice "github.com/smallbiznis/revroute/internal/audit/service"
	billingdomain "github.com/smallbiznis/revroute/internal/billing/domain"
	"github.com/smallbiznis/revroute/internal/clock"
	"github.com/smallbiznis/revroute/internal/pause/domain"
	pauserepository "github.com/smallbiznis/revroute/internal/pause/repository"
	subscriptiondomain "github.com/smallbiznis/revroute/internal/subscription/domain"
	subscriptionrepository "github.com/smallbiznis/revroute/internal/subscription/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type collectorSpy struct {
	resumed []string
}

func (c *collectorSpy) SuspendCollection(context.Context, string, time.Time) error { return nil }

func (c *collectorSpy) ResumeCollection(_ context.Context, billingRef string) error {
	c.resumed = append(c.resumed, billingRef)
	return nil
}

func (c *collectorSpy) CreateNegativeInvoiceLine(context.Context, string, int64, string, string) error {
	return nil
}

var _ billingdomain.Collector = (*collectorSpy)(nil)

type pauseFixture struct {
	db        *gorm.DB
	node      *snowflake.Node
	collector *collectorSpy
	svc       domain.Service
}

func setupPauseTest(t *testing.T) *pauseFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&subscriptiondomain.Subscription{},
		&domain.PauseWindow{},
		&domain.BatchRun{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	collector := &collectorSpy{}
	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  auditrepository.Provide(),
	})

	svc := NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clock.NewFakeClock(time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)),
		Repo:      pauserepository.Provide(),
		SubRepo:   subscriptionrepository.Provide(),
		AuditSvc:  auditSvc,
		Collector: collector,
	})
	return &pauseFixture{db: db, node: node, collector: collector, svc: svc}
}

func (f *pauseFixture) seedSubscription(t *testing.T, status subscriptiondomain.SubscriptionStatus) *subscriptiondomain.Subscription {
	t.Helper()
	sub := &subscriptiondomain.Subscription{
		ID:                f.node.Generate(),
		UserID:            f.node.Generate(),
		PlanKey:           "standard",
		MonthlyPrice:      decimal.NewFromInt(100),
		RoutedEntityID:    f.node.Generate(),
		BillingAccountRef: "acct_main",
		BillingRef:        "sub_" + f.node.Generate().String(),
		CustomerRef:       "cus_" + f.node.Generate().String(),
		Status:            status,
		StartAt:           time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.db.Create(sub).Error)
	return sub
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestScheduleCreatesWindow(t *testing.T) {
	f := setupPauseTest(t)
	sub := f.seedSubscription(t, subscriptiondomain.SubscriptionStatusActive)

	window, err := f.svc.Schedule(context.Background(), domain.ScheduleRequest{
		SubscriptionID: sub.ID,
		StartDate:      day(2024, time.July, 1),
		EndDate:        day(2024, time.July, 15),
		PerformedBy:    "admin@club",
		Reason:         "summer break",
	})
	require.NoError(t, err)
	require.Equal(t, domain.PauseWindowStatusScheduled, window.Status)

	stored, err := f.svc.Get(context.Background(), window.ID)
	require.NoError(t, err)
	require.True(t, stored.StartDate.Equal(day(2024, time.July, 1)))
	require.True(t, stored.EndDate.Equal(day(2024, time.July, 15)))

	var auditCount int64
	require.NoError(t, f.db.Model(&auditdomain.AuditLog{}).
		Where("action = ?", "pause_window.scheduled").Count(&auditCount).Error)
	require.EqualValues(t, 1, auditCount)
}

func TestScheduleValidation(t *testing.T) {
	f := setupPauseTest(t)
	sub := f.seedSubscription(t, subscriptiondomain.SubscriptionStatusActive)

	_, err := f.svc.Schedule(context.Background(), domain.ScheduleRequest{
		SubscriptionID: sub.ID,
		StartDate:      day(2024, time.July, 15),
		EndDate:        day(2024, time.July, 1),
	})
	require.ErrorIs(t, err, domain.ErrInvalidWindow)

	_, err = f.svc.Schedule(context.Background(), domain.ScheduleRequest{
		SubscriptionID: f.node.Generate(),
		StartDate:      day(2024, time.July, 1),
		EndDate:        day(2024, time.July, 15),
	})
	require.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionNotFound)
}

func TestScheduleRejectsOverlap(t *testing.T) {
	f := setupPauseTest(t)
	sub := f.seedSubscription(t, subscriptiondomain.SubscriptionStatusActive)

	_, err := f.svc.Schedule(context.Background(), domain.ScheduleRequest{
		SubscriptionID: sub.ID,
		StartDate:      day(2024, time.July, 1),
		EndDate:        day(2024, time.July, 15),
	})
	require.NoError(t, err)

	_, err = f.svc.Schedule(context.Background(), domain.ScheduleRequest{
		SubscriptionID: sub.ID,
		StartDate:      day(2024, time.July, 10),
		EndDate:        day(2024, time.July, 20),
	})
	require.ErrorIs(t, err, domain.ErrOverlappingWindow)

	// Back to back is fine: [Jul 1, Jul 15) then [Jul 15, Jul 20).
	_, err = f.svc.Schedule(context.Background(), domain.ScheduleRequest{
		SubscriptionID: sub.ID,
		StartDate:      day(2024, time.July, 15),
		EndDate:        day(2024, time.July, 20),
	})
	require.NoError(t, err)
}

func TestCancelScheduledWindow(t *testing.T) {
	f := setupPauseTest(t)
	sub := f.seedSubscription(t, subscriptiondomain.SubscriptionStatusActive)

	window, err := f.svc.Schedule(context.Background(), domain.ScheduleRequest{
		SubscriptionID: sub.ID,
		StartDate:      day(2024, time.July, 1),
		EndDate:        day(2024, time.July, 15),
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(context.Background(), window.ID, "admin@club", "member changed plans"))

	stored, err := f.svc.Get(context.Background(), window.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PauseWindowStatusCancelled, stored.Status)
	// A scheduled window never suspended collection; nothing to resume.
	require.Empty(t, f.collector.resumed)
}

func TestCancelActiveWindowResumesBilling(t *testing.T) {
	f := setupPauseTest(t)
	sub := f.seedSubscription(t, subscriptiondomain.SubscriptionStatusPaused)

	window := &domain.PauseWindow{
		ID:             f.node.Generate(),
		SubscriptionID: sub.ID,
		StartDate:      day(2024, time.May, 20),
		EndDate:        day(2024, time.June, 20),
		Status:         domain.PauseWindowStatusActive,
		CreditAmount:   decimal.Zero,
	}
	require.NoError(t, f.db.Create(window).Error)

	require.NoError(t, f.svc.Cancel(context.Background(), window.ID, "admin@club", "early return"))

	stored, err := f.svc.Get(context.Background(), window.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PauseWindowStatusCancelled, stored.Status)
	require.Equal(t, []string{sub.BillingRef}, f.collector.resumed)

	var refreshed subscriptiondomain.Subscription
	require.NoError(t, f.db.First(&refreshed, "id = ?", sub.ID).Error)
	require.Equal(t, subscriptiondomain.SubscriptionStatusActive, refreshed.Status)
}

func TestCancelTerminalWindowFails(t *testing.T) {
	f := setupPauseTest(t)
	sub := f.seedSubscription(t, subscriptiondomain.SubscriptionStatusActive)

	applied := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	window := &domain.PauseWindow{
		ID:              f.node.Generate(),
		SubscriptionID:  sub.ID,
		StartDate:       day(2024, time.April, 1),
		EndDate:         day(2024, time.April, 15),
		Status:          domain.PauseWindowStatusCreditApplied,
		CreditAmount:    decimal.NewFromInt(46),
		CreditAppliedAt: &applied,
	}
	require.NoError(t, f.db.Create(window).Error)

	err := f.svc.Cancel(context.Background(), window.ID, "admin@club", "oops")
	require.ErrorIs(t, err, domain.ErrStaleTransition)

	err = f.svc.Cancel(context.Background(), f.node.Generate(), "admin@club", "missing")
	require.ErrorIs(t, err, domain.ErrWindowNotFound)
}

func TestLastBatchRunEmpty(t *testing.T) {
	f := setupPauseTest(t)

	run, err := f.svc.LastBatchRun(context.Background())
	require.NoError(t, err)
	require.Nil(t, run)
}
