// Package coordinator runs the daily pause lifecycle batch: it starts due
// pause windows, ends elapsed ones, and applies prorated credits against the
// external billing collaborator, idempotently and with an audit trail.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/revroute/internal/audit/domain"
	billingdomain "github.com/smallbiznis/revroute/internal/billing/domain"
	"github.com/smallbiznis/revroute/internal/clock"
	obsmetrics "github.com/smallbiznis/revroute/internal/observability/metrics"
	"github.com/smallbiznis/revroute/internal/pause/domain"
	paymentdomain "github.com/smallbiznis/revroute/internal/payment/domain"
	"github.com/smallbiznis/revroute/internal/proration"
	subscriptiondomain "github.com/smallbiznis/revroute/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	phaseStart = "start"
	phaseEnd   = "end"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	SubRepo     subscriptiondomain.Repository
	PaymentRepo paymentdomain.Repository
	AuditSvc    auditdomain.Service
	Collector   billingdomain.Collector
	Redis       *redis.Client `optional:"true"`
	Config      Config        `optional:"true"`
}

type Coordinator struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         Config
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	subRepo     subscriptiondomain.Repository
	paymentRepo paymentdomain.Repository
	auditSvc    auditdomain.Service
	collector   billingdomain.Collector
	lock        *runLock
}

func New(p Params) (*Coordinator, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil ||
		p.Repo == nil || p.SubRepo == nil || p.PaymentRepo == nil ||
		p.AuditSvc == nil || p.Collector == nil {
		return nil, errors.New("coordinator: missing dependency")
	}
	return &Coordinator{
		db:          p.DB,
		log:         p.Log.Named("pause.coordinator"),
		cfg:         p.Config.withDefaults(),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		subRepo:     p.SubRepo,
		paymentRepo: p.PaymentRepo,
		auditSvc:    p.AuditSvc,
		collector:   p.Collector,
		lock:        newRunLock(p.Redis, p.Config),
	}, nil
}

// Run executes one batch for asOf (zero value means today). Re-running for
// the same or a past date is safe: eligibility predicates and the credit
// gate make every transition at-most-once.
func (c *Coordinator) Run(ctx context.Context, asOf time.Time) (domain.Summary, error) {
	if asOf.IsZero() {
		asOf = c.clock.Now()
	}
	today := dateOf(asOf)

	summary := domain.Summary{
		RunID: ulid.Make().String(),
		AsOf:  today,
	}
	batchMetrics := obsmetrics.Batch()
	startedAt := c.clock.Now()

	if c.lock != nil {
		lockStart := time.Now()
		release, acquired, err := c.lock.acquire(ctx)
		batchMetrics.ObserveLockWait(time.Since(lockStart))
		if err != nil {
			c.log.Warn("run lock unavailable, relying on structural guards", zap.Error(err))
		} else if !acquired {
			batchMetrics.IncRun("locked_out")
			return summary, domain.ErrRunInProgress
		} else {
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					c.log.Warn("run lock release failed", zap.Error(err))
				}
			}()
		}
	}

	log := c.log.With(
		zap.String("run_id", summary.RunID),
		zap.Time("as_of", today),
	)
	log.Info("pause batch started")

	c.startPhase(ctx, today, &summary, log)
	c.endPhase(ctx, today, &summary, log)

	finishedAt := c.clock.Now()
	batchMetrics.ObserveRunDuration(finishedAt.Sub(startedAt))
	if summary.Failed > 0 {
		batchMetrics.IncRun("partial_failure")
	} else {
		batchMetrics.IncRun("success")
	}

	c.persistRun(ctx, summary, startedAt, finishedAt)

	log.Info("pause batch finished",
		zap.Int("started", summary.Started),
		zap.Int("ended", summary.Ended),
		zap.Int("credits_applied", summary.CreditsApplied),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func (c *Coordinator) startPhase(ctx context.Context, today time.Time, summary *domain.Summary, log *zap.Logger) {
	windows, err := c.repo.ListDueToStart(ctx, c.db, today, c.cfg.BatchSize)
	if err != nil {
		c.recordFailure(summary, phaseStart, 0, fmt.Errorf("list due to start: %w", err))
		return
	}

	batchMetrics := obsmetrics.Batch()
	for _, window := range windows {
		if ctx.Err() != nil {
			c.recordFailure(summary, phaseStart, window.ID, ctx.Err())
			return
		}
		if err := c.startWindow(ctx, window, today); err != nil {
			c.recordFailure(summary, phaseStart, window.ID, err)
			log.Warn("pause start failed",
				zap.String("window_id", window.ID.String()),
				zap.Error(err),
			)
			continue
		}
		summary.Started++
		batchMetrics.IncWindow(phaseStart, "started")
	}
}

func (c *Coordinator) startWindow(ctx context.Context, window domain.PauseWindow, today time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.WindowTimeout)
	defer cancel()

	sub, err := c.subRepo.GetByID(ctx, c.db, window.SubscriptionID)
	if err != nil {
		return err
	}

	// Resume the day after the window closes so the final paused day is not
	// billed.
	resumeAt := window.EndDate.AddDate(0, 0, 1)
	if err := c.collector.SuspendCollection(ctx, sub.BillingRef, resumeAt); err != nil {
		return err
	}

	now := c.clock.Now()
	err = c.subRepo.TransitionStatus(ctx, c.db, sub.ID,
		[]subscriptiondomain.SubscriptionStatus{
			subscriptiondomain.SubscriptionStatusActive,
			subscriptiondomain.SubscriptionStatusPastDue,
		},
		subscriptiondomain.SubscriptionStatusPaused, now)
	if err != nil && !errors.Is(err, subscriptiondomain.ErrInvalidTransition) {
		return err
	}

	if err := c.repo.MarkActive(ctx, c.db, window.ID, now); err != nil {
		return err
	}

	c.recordAudit(ctx, window.SubscriptionID, "pause_window.started",
		fmt.Sprintf("pause_start_%s_%d", window.ID, today.Unix()),
		map[string]any{
			"window_id": window.ID.String(),
			"resume_at": resumeAt,
		})
	return nil
}

func (c *Coordinator) endPhase(ctx context.Context, today time.Time, summary *domain.Summary, log *zap.Logger) {
	windows, err := c.repo.ListDueToEnd(ctx, c.db, today, c.cfg.BatchSize)
	if err != nil {
		c.recordFailure(summary, phaseEnd, 0, fmt.Errorf("list due to end: %w", err))
		return
	}

	batchMetrics := obsmetrics.Batch()
	for _, window := range windows {
		if ctx.Err() != nil {
			c.recordFailure(summary, phaseEnd, window.ID, ctx.Err())
			return
		}

		credit, err := c.endWindow(ctx, window, today)
		var alreadyApplied *domain.AlreadyAppliedError
		switch {
		case errors.As(err, &alreadyApplied):
			// Lost a race with another runner; the gate held.
			summary.Skipped++
			batchMetrics.IncWindow(phaseEnd, "skipped")
		case err != nil:
			c.recordFailure(summary, phaseEnd, window.ID, err)
			log.Warn("pause end failed",
				zap.String("window_id", window.ID.String()),
				zap.Error(err),
			)
		default:
			summary.Ended++
			batchMetrics.IncWindow(phaseEnd, "ended")
			if credit.IsPositive() {
				summary.CreditsApplied++
				creditFloat, _ := credit.Float64()
				batchMetrics.ObserveCreditAmount(creditFloat)
			}
		}
	}
}

// endWindow resumes collection, computes the prorated credit, issues the
// external credit instruction, and closes the gate in one guarded write.
// The external call precedes the gate write; its idempotency key
// (windowID:minorUnits) makes the retry after a crash between the two safe.
func (c *Coordinator) endWindow(ctx context.Context, window domain.PauseWindow, today time.Time) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.WindowTimeout)
	defer cancel()

	sub, err := c.subRepo.GetByID(ctx, c.db, window.SubscriptionID)
	if err != nil {
		return decimal.Zero, err
	}

	if err := c.collector.ResumeCollection(ctx, sub.BillingRef); err != nil && !errors.Is(err, billingdomain.ErrAlreadyInState) {
		return decimal.Zero, err
	}

	now := c.clock.Now()
	err = c.subRepo.TransitionStatus(ctx, c.db, sub.ID,
		[]subscriptiondomain.SubscriptionStatus{subscriptiondomain.SubscriptionStatusPaused},
		subscriptiondomain.SubscriptionStatusActive, now)
	if err != nil && !errors.Is(err, subscriptiondomain.ErrInvalidTransition) {
		return decimal.Zero, err
	}

	result, err := c.computeCredit(ctx, window, sub)
	if err != nil {
		return decimal.Zero, err
	}

	var externalRef *string
	if result.TotalCredit.IsPositive() {
		idempotencyKey := fmt.Sprintf("%s:%d", window.ID, result.TotalCreditMinorUnits)
		description := fmt.Sprintf("Pause credit %s to %s (%d days)",
			window.StartDate.Format("2006-01-02"),
			window.EndDate.Format("2006-01-02"),
			result.TotalDays,
		)
		if err := c.collector.CreateNegativeInvoiceLine(ctx, sub.CustomerRef, result.TotalCreditMinorUnits, description, idempotencyKey); err != nil {
			return decimal.Zero, err
		}
		externalRef = &idempotencyKey
	}

	err = c.repo.ApplyCredit(ctx, c.db, window.ID, domain.CreditApplication{
		PausedDays:        result.TotalDays,
		CreditAmount:      result.TotalCredit,
		ExternalCreditRef: externalRef,
		AppliedAt:         now,
	})
	if err != nil {
		return decimal.Zero, err
	}

	c.recordAudit(ctx, window.SubscriptionID, "pause_window.credit_applied",
		fmt.Sprintf("pause_end_%s_%d", window.ID, today.Unix()),
		map[string]any{
			"window_id":     window.ID.String(),
			"paused_days":   result.TotalDays,
			"credit_amount": result.TotalCredit.StringFixed(2),
		})
	return result.TotalCredit, nil
}

// computeCredit recovers the prorated first-period amount from the
// subscription's first confirmed payment. No payment or no first billing
// date means the whole timeline runs at the monthly rate.
func (c *Coordinator) computeCredit(ctx context.Context, window domain.PauseWindow, sub *subscriptiondomain.Subscription) (proration.Result, error) {
	var proratedAmount *decimal.Decimal
	if sub.FirstBillingDate != nil {
		firstPayment, err := c.paymentRepo.FirstConfirmedBySubscription(ctx, c.db, sub.ID)
		switch {
		case errors.Is(err, paymentdomain.ErrPaymentNotFound):
			// fall through with no prorated period
		case err != nil:
			return proration.Result{}, err
		default:
			proratedAmount = &firstPayment.Amount
		}
	}

	return proration.Calculate(proration.Input{
		PauseStart:        window.StartDate,
		PauseEnd:          window.EndDate,
		SubscriptionStart: sub.StartAt,
		FirstBillingDate:  sub.FirstBillingDate,
		ProratedAmount:    proratedAmount,
		MonthlyPrice:      sub.MonthlyPrice,
	})
}

func (c *Coordinator) recordFailure(summary *domain.Summary, phase string, windowID snowflake.ID, err error) {
	summary.Failed++
	if windowID != 0 {
		summary.Errors = append(summary.Errors, fmt.Sprintf("%s window %s: %v", phase, windowID, err))
	} else {
		summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", phase, err))
	}
	obsmetrics.Batch().IncWindowError(phase)
}

func (c *Coordinator) recordAudit(ctx context.Context, subscriptionID snowflake.ID, action, operationID string, metadata map[string]any) {
	err := c.auditSvc.Record(ctx, auditdomain.Entry{
		SubscriptionID: &subscriptionID,
		Action:         action,
		PerformedBy:    "system:pause_batch",
		OperationID:    operationID,
		Metadata:       metadata,
	})
	if err != nil && !errors.Is(err, auditdomain.ErrDuplicateOperation) {
		c.log.Warn("audit record failed",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func (c *Coordinator) persistRun(ctx context.Context, summary domain.Summary, startedAt, finishedAt time.Time) {
	errorsJSON, err := json.Marshal(summary.Errors)
	if err != nil {
		errorsJSON = []byte("[]")
	}
	run := &domain.BatchRun{
		ID:             summary.RunID,
		AsOf:           summary.AsOf,
		Started:        summary.Started,
		Ended:          summary.Ended,
		CreditsApplied: summary.CreditsApplied,
		Failed:         summary.Failed,
		Skipped:        summary.Skipped,
		Errors:         errorsJSON,
		StartedAt:      startedAt,
		FinishedAt:     finishedAt,
	}
	if err := c.repo.InsertBatchRun(ctx, c.db, run); err != nil {
		c.log.Warn("batch run record failed", zap.Error(err))
	}
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
