package rent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/rent"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/domain/shared/valueobject"
	"github.com/rentledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// LedgerService records payments against tenancies and answers balance queries.
//
// Writes for one tenancy are serialized by a per-tenancy lock, a row lock on the
// tenancy inside the transaction, and the tenancy's optimistic version, so the
// deposit running total and the ledger append never diverge. Reads take no lock.
type LedgerService struct {
	scope       TransactionScope
	tenancyRepo rent.TenancyRepository
	paymentRepo rent.PaymentRepository
	receiptRepo rent.ReceiptRepository
	locker      shared.Locker
	clock       Clock
	logger      *zap.Logger

	directory   rent.TenantDirectory
	publisher   shared.EventPublisher
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	metrics     *telemetry.LedgerMetrics
}

// LedgerServiceOption configures optional collaborators
type LedgerServiceOption func(*LedgerService)

// WithTenantDirectory resolves tenant identity for receipts
func WithTenantDirectory(d rent.TenantDirectory) LedgerServiceOption {
	return func(s *LedgerService) { s.directory = d }
}

// WithEventPublisher publishes ledger events after commit
func WithEventPublisher(p shared.EventPublisher) LedgerServiceOption {
	return func(s *LedgerService) { s.publisher = p }
}

// WithIdempotencyStore caches idempotency keys in front of the payments table
func WithIdempotencyStore(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) LedgerServiceOption {
	return func(s *LedgerService) {
		s.idempotency = store
		s.idemConfig = cfg
	}
}

// WithLedgerMetrics records ledger counters
func WithLedgerMetrics(m *telemetry.LedgerMetrics) LedgerServiceOption {
	return func(s *LedgerService) { s.metrics = m }
}

// WithClock overrides the wall clock
func WithClock(c Clock) LedgerServiceOption {
	return func(s *LedgerService) { s.clock = c }
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	scope TransactionScope,
	tenancyRepo rent.TenancyRepository,
	paymentRepo rent.PaymentRepository,
	receiptRepo rent.ReceiptRepository,
	locker shared.Locker,
	logger *zap.Logger,
	opts ...LedgerServiceOption,
) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &LedgerService{
		scope:       scope,
		tenancyRepo: tenancyRepo,
		paymentRepo: paymentRepo,
		receiptRepo: receiptRepo,
		locker:      locker,
		clock:       SystemClock{},
		logger:      logger,
		idemConfig:  shared.DefaultIdempotencyConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordPayment validates and appends a payment, then returns it with the balance
// recomputed inside the same transaction and the receipt stored for it.
// Deposit purposes increase the tenancy's deposit credit in that transaction.
//
// With an idempotency key, a retry of an already recorded request returns the
// original payment and receipt and appends nothing.
func (s *LedgerService) RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (*RecordPaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "LedgerService", "RecordPayment")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenancyID, cmd.TenancyID.String(),
		telemetry.SpanAttrPurpose, cmd.Purpose,
		telemetry.SpanAttrMethod, cmd.Method,
		telemetry.SpanAttrAmountMinor, cmd.AmountMinor,
		telemetry.SpanAttrBillingMonths, cmd.BillingMonths,
	)

	purpose, method, months, err := validateRecord(cmd)
	if err != nil {
		s.logger.Debug("Rejected payment", zap.String("tenancy_id", cmd.TenancyID.String()), zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, err
	}

	useKey := cmd.IdempotencyKey != "" && s.idemConfig.Enabled
	if useKey {
		if result, ok := s.replayFromCache(ctx, cmd); ok {
			telemetry.SetAttributes(span, telemetry.SpanAttrIdempotent, true)
			return result, nil
		}
	}

	lock, err := s.locker.Lock(ctx, tenancyLockKey(cmd.TenancyID))
	if err != nil {
		s.metrics.WriteConflict(ctx, "record_payment")
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer s.release(ctx, lock)

	// Receipt identity is resolved before the transaction opens so no
	// directory call runs while the tenancy row is locked.
	current, err := s.loadTenancy(ctx, cmd.TenancyID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	tenant := s.tenantSnapshot(ctx, current)

	started := time.Now()
	now := s.clock.Now()
	var (
		tenancy  *rent.Tenancy
		payment  *rent.Payment
		report   rent.BalanceReport
		receipt  rent.Receipt
		replayed bool
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		t, err := repos.TenancyRepo().FindByIDForUpdate(ctx, cmd.TenancyID)
		if err != nil {
			return fmt.Errorf("failed to load tenancy: %w", err)
		}
		if t == nil {
			return shared.NewNotFoundError("tenancy %s not found", cmd.TenancyID)
		}
		tenancy = t

		if useKey {
			existing, err := repos.PaymentRepo().FindByIdempotencyKey(ctx, t.ID, cmd.IdempotencyKey)
			if err != nil {
				return fmt.Errorf("failed to check idempotency key: %w", err)
			}
			if existing != nil {
				payment, replayed = existing, true
				return nil
			}
		}

		amount, err := s.amountFor(t, cmd)
		if err != nil {
			return err
		}
		paidAt := now
		if cmd.PaidAt != nil {
			paidAt = *cmd.PaidAt
		}
		p, err := rent.NewPayment(t.ID, amount, purpose, method, months, paidAt)
		if err != nil {
			return err
		}
		p.Reference = cmd.Reference
		p.Note = cmd.Note
		p.IdempotencyKey = cmd.IdempotencyKey
		p.SetRecordedBy(cmd.RecordedBy)

		history, err := repos.PaymentRepo().FindByTenancy(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("failed to load ledger: %w", err)
		}
		ledger, err := rent.NewLedger(t.ID, history)
		if err != nil {
			return err
		}
		if err := ledger.Append(p); err != nil {
			return err
		}
		if err := t.ApplyPayment(p); err != nil {
			return err
		}
		if err := repos.PaymentRepo().Create(ctx, p); err != nil {
			return err
		}
		if err := repos.TenancyRepo().SaveWithLock(ctx, t); err != nil {
			return err
		}

		report, err = rent.CalculateBalance(t, ledger, now)
		if err != nil {
			return err
		}
		receipt = rent.ProjectReceipt(p, report, tenant)
		if err := repos.ReceiptRepo().Create(ctx, &receipt); err != nil {
			return fmt.Errorf("failed to store receipt: %w", err)
		}
		payment = p
		return nil
	})
	s.metrics.ObserveWrite(ctx, "record_payment", time.Since(started), err)
	if err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			s.metrics.WriteConflict(ctx, "record_payment")
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	if replayed {
		s.metrics.IdempotentReplay(ctx)
		telemetry.SetAttributes(span, telemetry.SpanAttrIdempotent, true)
		s.logger.Info("Idempotent payment replay",
			zap.String("tenancy_id", cmd.TenancyID.String()),
			zap.String("transaction_id", payment.TransactionID),
		)
		s.rememberKey(ctx, cmd, payment.ID)
		return s.replayResult(ctx, tenancy, payment)
	}

	s.publish(ctx, tenancy)
	s.rememberKey(ctx, cmd, payment.ID)
	s.metrics.PaymentRecorded(ctx, string(payment.Purpose), string(payment.Method), string(payment.Amount.Currency()), payment.Amount.Minor())
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, payment.ID.String(),
		telemetry.SpanAttrTransactionID, payment.TransactionID,
	)
	s.logger.Info("Payment recorded",
		zap.String("tenancy_id", tenancy.ID.String()),
		zap.String("transaction_id", payment.TransactionID),
		zap.String("purpose", string(payment.Purpose)),
		zap.String("amount", payment.Amount.String()),
		zap.Strings("billing_months", periodStrings(payment.BillingMonths)),
		zap.String("balance", report.Balance.String()),
	)

	return &RecordPaymentResult{
		Payment: ToPaymentResponse(payment),
		Balance: ToBalanceResponse(report),
		Receipt: receipt,
	}, nil
}

// RefundPayment moves a SUCCESS payment to REFUNDED. A refunded deposit reduces the
// tenancy's deposit credit in the same transaction. The stored receipt is not touched.
func (s *LedgerService) RefundPayment(ctx context.Context, cmd RefundPaymentCommand) (*RefundPaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "LedgerService", "RefundPayment")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenancyID, cmd.TenancyID.String(),
		telemetry.SpanAttrPaymentID, cmd.PaymentID.String(),
	)

	lock, err := s.locker.Lock(ctx, tenancyLockKey(cmd.TenancyID))
	if err != nil {
		s.metrics.WriteConflict(ctx, "refund_payment")
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer s.release(ctx, lock)

	started := time.Now()
	now := s.clock.Now()
	var (
		tenancy *rent.Tenancy
		payment *rent.Payment
		report  rent.BalanceReport
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		t, err := repos.TenancyRepo().FindByIDForUpdate(ctx, cmd.TenancyID)
		if err != nil {
			return fmt.Errorf("failed to load tenancy: %w", err)
		}
		if t == nil {
			return shared.NewNotFoundError("tenancy %s not found", cmd.TenancyID)
		}
		history, err := repos.PaymentRepo().FindByTenancy(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("failed to load ledger: %w", err)
		}
		ledger, err := rent.NewLedger(t.ID, history)
		if err != nil {
			return err
		}
		p := ledger.Find(cmd.PaymentID)
		if p == nil {
			return shared.NewNotFoundError("payment %s not found in tenancy %s", cmd.PaymentID, t.ID)
		}
		if err := p.Refund(cmd.Reason, now); err != nil {
			return err
		}
		if err := t.ApplyRefund(p); err != nil {
			return err
		}
		if err := repos.PaymentRepo().UpdateStatus(ctx, p); err != nil {
			return err
		}
		if err := repos.TenancyRepo().SaveWithLock(ctx, t); err != nil {
			return err
		}
		report, err = rent.CalculateBalance(t, ledger, now)
		if err != nil {
			return err
		}
		tenancy, payment = t, p
		return nil
	})
	s.metrics.ObserveWrite(ctx, "refund_payment", time.Since(started), err)
	if err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			s.metrics.WriteConflict(ctx, "refund_payment")
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, tenancy)
	s.metrics.PaymentRefunded(ctx, string(payment.Purpose))
	s.logger.Info("Payment refunded",
		zap.String("tenancy_id", tenancy.ID.String()),
		zap.String("transaction_id", payment.TransactionID),
		zap.String("reason", payment.RefundReason),
	)

	return &RefundPaymentResult{
		Payment: ToPaymentResponse(payment),
		Balance: ToBalanceResponse(report),
	}, nil
}

// ComputeBalance returns the balance report as of asOf, or now when asOf is nil
func (s *LedgerService) ComputeBalance(ctx context.Context, tenancyID uuid.UUID, asOf *time.Time) (*BalanceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "LedgerService", "ComputeBalance")
	defer span.End()

	tenancy, ledger, err := s.snapshot(ctx, tenancyID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	report, err := rent.CalculateBalance(tenancy, ledger, s.asOf(asOf))
	if err != nil {
		return nil, err
	}
	resp := ToBalanceResponse(report)
	return &resp, nil
}

// ListOverdueMonths returns the billing months up to asOf not covered by a SUCCESS rent payment
func (s *LedgerService) ListOverdueMonths(ctx context.Context, tenancyID uuid.UUID, asOf *time.Time) (*OverdueMonthsResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "LedgerService", "ListOverdueMonths")
	defer span.End()

	tenancy, ledger, err := s.snapshot(ctx, tenancyID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	at := s.asOf(asOf)
	overdue := rent.OverdueMonths(tenancy, ledger, at)
	suggested := valueobject.Zero(tenancy.Currency())
	if len(overdue) > 0 {
		if suggested, err = rent.SuggestedAmount(tenancy, len(overdue)); err != nil {
			return nil, err
		}
	}
	return &OverdueMonthsResponse{
		TenancyID:       tenancyID,
		AsOf:            at,
		Months:          periodStrings(overdue),
		SuggestedAmount: suggested,
	}, nil
}

// PaymentsFor returns every ledger entry of a tenancy in ledger order
func (s *LedgerService) PaymentsFor(ctx context.Context, tenancyID uuid.UUID) ([]PaymentResponse, error) {
	_, ledger, err := s.snapshot(ctx, tenancyID)
	if err != nil {
		return nil, err
	}
	return ToPaymentResponses(ledger.Payments()), nil
}

// PaidMonths returns the billing months covered by at least one SUCCESS rent payment
func (s *LedgerService) PaidMonths(ctx context.Context, tenancyID uuid.UUID) (*PaidMonthsResponse, error) {
	_, ledger, err := s.snapshot(ctx, tenancyID)
	if err != nil {
		return nil, err
	}
	return &PaidMonthsResponse{TenancyID: tenancyID, Months: periodStrings(ledger.PaidMonths())}, nil
}

// SuggestedAmount returns months * monthlyRent as a default for the call site
func (s *LedgerService) SuggestedAmount(ctx context.Context, tenancyID uuid.UUID, months int) (*SuggestedAmountResponse, error) {
	tenancy, err := s.loadTenancy(ctx, tenancyID)
	if err != nil {
		return nil, err
	}
	amount, err := rent.SuggestedAmount(tenancy, months)
	if err != nil {
		return nil, err
	}
	return &SuggestedAmountResponse{TenancyID: tenancyID, Months: months, Amount: amount}, nil
}

// GetReceipt returns the receipt stored when the payment was recorded
func (s *LedgerService) GetReceipt(ctx context.Context, paymentID uuid.UUID) (*rent.Receipt, error) {
	receipt, err := s.receiptRepo.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt: %w", err)
	}
	if receipt == nil {
		return nil, shared.NewNotFoundError("receipt for payment %s not found", paymentID)
	}
	return receipt, nil
}

// Statement returns the tenancy, its ledger, balance and overdue months as of asOf
func (s *LedgerService) Statement(ctx context.Context, tenancyID uuid.UUID, asOf *time.Time) (*rent.Statement, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "LedgerService", "Statement")
	defer span.End()

	tenancy, ledger, err := s.snapshot(ctx, tenancyID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	st, err := rent.BuildStatement(tenancy, ledger, s.asOf(asOf))
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func validateRecord(cmd RecordPaymentCommand) (rent.PaymentPurpose, rent.PaymentMethod, []valueobject.Period, error) {
	purpose := rent.PaymentPurpose(cmd.Purpose)
	if !purpose.IsValid() {
		return "", "", nil, shared.NewValidationError("invalid payment purpose %q", cmd.Purpose)
	}
	method := rent.PaymentMethod(cmd.Method)
	if !method.IsValid() {
		return "", "", nil, shared.NewValidationError("invalid payment method %q", cmd.Method)
	}
	if cmd.AmountMinor <= 0 {
		return "", "", nil, shared.NewValidationError("amount must be greater than zero")
	}
	months, err := valueobject.ParsePeriods(cmd.BillingMonths)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidFormat) {
			return "", "", nil, shared.NewValidationError("invalid billing month: %v", err)
		}
		return "", "", nil, err
	}
	if purpose.RequiresBillingMonths() && len(months) == 0 {
		return "", "", nil, shared.NewValidationError("%s payment must cover at least one billing month", purpose)
	}
	return purpose, method, months, nil
}

func (s *LedgerService) amountFor(t *rent.Tenancy, cmd RecordPaymentCommand) (valueobject.Money, error) {
	cur := t.Currency()
	if cmd.Currency != "" {
		parsed, err := valueobject.ParseCurrency(cmd.Currency)
		if err != nil {
			return valueobject.Money{}, shared.NewValidationError("invalid currency %q", cmd.Currency)
		}
		cur = parsed
	}
	return valueobject.NewPositiveMoney(cmd.AmountMinor, cur)
}

func (s *LedgerService) tenantSnapshot(ctx context.Context, t *rent.Tenancy) rent.TenantSnapshot {
	fallback := rent.TenantSnapshot{TenantID: t.TenantID, UnitID: t.UnitID}
	if s.directory == nil {
		return fallback
	}
	snap, err := s.directory.Lookup(ctx, t.TenantID, t.UnitID)
	if err != nil {
		s.logger.Warn("Tenant lookup failed, receipt carries identifiers only",
			zap.String("tenant_id", t.TenantID.String()),
			zap.Error(err),
		)
		return fallback
	}
	return snap
}

func (s *LedgerService) snapshot(ctx context.Context, tenancyID uuid.UUID) (*rent.Tenancy, *rent.Ledger, error) {
	tenancy, err := s.loadTenancy(ctx, tenancyID)
	if err != nil {
		return nil, nil, err
	}
	payments, err := s.paymentRepo.FindByTenancy(ctx, tenancyID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	ledger, err := rent.NewLedger(tenancyID, payments)
	if err != nil {
		return nil, nil, err
	}
	return tenancy, ledger, nil
}

func (s *LedgerService) loadTenancy(ctx context.Context, id uuid.UUID) (*rent.Tenancy, error) {
	tenancy, err := s.tenancyRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenancy: %w", err)
	}
	if tenancy == nil {
		return nil, shared.NewNotFoundError("tenancy %s not found", id)
	}
	return tenancy, nil
}

func (s *LedgerService) asOf(asOf *time.Time) time.Time {
	if asOf != nil && !asOf.IsZero() {
		return *asOf
	}
	return s.clock.Now()
}

func idempotencyCacheKey(tenancyID uuid.UUID, key string) string {
	return "idem:" + tenancyID.String() + ":" + key
}

// replayFromCache answers a retried request from the idempotency store without
// taking the tenancy lock. Any miss or store failure falls through to the locked path.
func (s *LedgerService) replayFromCache(ctx context.Context, cmd RecordPaymentCommand) (*RecordPaymentResult, bool) {
	if s.idempotency == nil {
		return nil, false
	}
	value, ok, err := s.idempotency.Lookup(ctx, idempotencyCacheKey(cmd.TenancyID, cmd.IdempotencyKey))
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	paymentID, err := uuid.Parse(value)
	if err != nil {
		return nil, false
	}
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil || payment == nil || payment.TenancyID != cmd.TenancyID {
		return nil, false
	}
	tenancy, err := s.loadTenancy(ctx, cmd.TenancyID)
	if err != nil {
		return nil, false
	}
	result, err := s.replayResult(ctx, tenancy, payment)
	if err != nil {
		return nil, false
	}
	s.metrics.IdempotentReplay(ctx)
	return result, true
}

// replayResult rebuilds the response of an earlier request: the stored receipt
// and the balance as it stands now.
func (s *LedgerService) replayResult(ctx context.Context, tenancy *rent.Tenancy, payment *rent.Payment) (*RecordPaymentResult, error) {
	receipt, err := s.GetReceipt(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	_, ledger, err := s.snapshot(ctx, tenancy.ID)
	if err != nil {
		return nil, err
	}
	report, err := rent.CalculateBalance(tenancy, ledger, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return &RecordPaymentResult{
		Payment:  ToPaymentResponse(payment),
		Balance:  ToBalanceResponse(report),
		Receipt:  *receipt,
		Replayed: true,
	}, nil
}

func (s *LedgerService) rememberKey(ctx context.Context, cmd RecordPaymentCommand, paymentID uuid.UUID) {
	if s.idempotency == nil || cmd.IdempotencyKey == "" || !s.idemConfig.Enabled {
		return
	}
	key := idempotencyCacheKey(cmd.TenancyID, cmd.IdempotencyKey)
	if _, err := s.idempotency.Remember(ctx, key, paymentID.String(), s.idemConfig.TTL); err != nil {
		s.logger.Warn("Failed to cache idempotency key", zap.Error(err))
	}
}

func (s *LedgerService) publish(ctx context.Context, tenancy *rent.Tenancy) {
	events := tenancy.GetDomainEvents()
	tenancy.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish ledger events",
			zap.String("tenancy_id", tenancy.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *LedgerService) release(ctx context.Context, lock shared.Lock) {
	if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("Failed to release tenancy lock", zap.Error(err))
	}
}
