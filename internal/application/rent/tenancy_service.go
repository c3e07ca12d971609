package rent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/rent"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/domain/shared/valueobject"
	"github.com/rentledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// TenancyService manages the tenancy lifecycle: occupancy creation and termination.
type TenancyService struct {
	scope           TransactionScope
	tenancyRepo     rent.TenancyRepository
	locker          shared.Locker
	publisher       shared.EventPublisher
	defaultCurrency valueobject.Currency
	logger          *zap.Logger
}

// NewTenancyService creates a new TenancyService
func NewTenancyService(
	scope TransactionScope,
	tenancyRepo rent.TenancyRepository,
	locker shared.Locker,
	logger *zap.Logger,
) *TenancyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TenancyService{
		scope:           scope,
		tenancyRepo:     tenancyRepo,
		locker:          locker,
		defaultCurrency: valueobject.DefaultCurrency,
		logger:          logger,
	}
}

// SetEventPublisher sets the publisher that receives tenancy events after commit
func (s *TenancyService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetDefaultCurrency sets the currency used when a command names none
func (s *TenancyService) SetDefaultCurrency(cur valueobject.Currency) {
	if cur != "" {
		s.defaultCurrency = cur
	}
}

// Create creates an ACTIVE tenancy. A unit holds at most one ACTIVE tenancy.
func (s *TenancyService) Create(ctx context.Context, cmd CreateTenancyCommand) (*TenancyResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "TenancyService", "Create")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrUnitID, cmd.UnitID.String())

	cur := s.defaultCurrency
	if cmd.Currency != "" {
		parsed, err := valueobject.ParseCurrency(cmd.Currency)
		if err != nil {
			return nil, shared.NewValidationError("invalid currency %q", cmd.Currency)
		}
		cur = parsed
	}
	rentAmount, err := valueobject.NewMoney(cmd.MonthlyRentMinor, cur)
	if err != nil {
		return nil, err
	}
	deposit, err := valueobject.NewNonNegativeMoney(cmd.DepositPaidMinor, cur)
	if err != nil {
		return nil, err
	}
	tenancy, err := rent.NewTenancy(cmd.UnitID, cmd.TenantID, cmd.StartDate, rentAmount, deposit)
	if err != nil {
		s.logger.Debug("Rejected tenancy", zap.Error(err))
		return nil, err
	}
	tenancy.Note = cmd.Note

	lock, err := s.locker.Lock(ctx, unitLockKey(cmd.UnitID))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer s.release(ctx, lock)

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.TenancyRepo().FindActiveByUnit(ctx, cmd.UnitID)
		if err != nil {
			return fmt.Errorf("failed to check unit occupancy: %w", err)
		}
		if existing != nil {
			return shared.NewConflictError("unit %s already has active tenancy %s", cmd.UnitID, existing.ID)
		}
		return repos.TenancyRepo().Create(ctx, tenancy)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, tenancy)
	s.logger.Info("Tenancy created",
		zap.String("tenancy_id", tenancy.ID.String()),
		zap.String("unit_id", tenancy.UnitID.String()),
		zap.String("monthly_rent", tenancy.MonthlyRent.String()),
	)

	resp := ToTenancyResponse(tenancy)
	return &resp, nil
}

// GetByID returns a tenancy
func (s *TenancyService) GetByID(ctx context.Context, id uuid.UUID) (*TenancyResponse, error) {
	tenancy, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToTenancyResponse(tenancy)
	return &resp, nil
}

// List returns a page of tenancies
func (s *TenancyService) List(ctx context.Context, f TenancyListFilter) (*shared.Paginated[TenancyResponse], error) {
	filter := rent.TenancyFilter{
		Filter:   shared.DefaultFilter(),
		UnitID:   f.UnitID,
		TenantID: f.TenantID,
	}
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	if f.Status != "" {
		status := rent.TenancyStatus(f.Status)
		if !status.IsValid() {
			return nil, shared.NewValidationError("invalid tenancy status %q", f.Status)
		}
		filter.Status = &status
	}

	tenancies, total, err := s.tenancyRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenancies: %w", err)
	}
	page := shared.NewPaginated(ToTenancyResponses(tenancies), total, filter.Page, filter.PageSize)
	return &page, nil
}

// Terminate ends a tenancy. It takes the same per-tenancy lock as payment recording.
func (s *TenancyService) Terminate(ctx context.Context, cmd TerminateTenancyCommand) (*TenancyResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "TenancyService", "Terminate")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrTenancyID, cmd.TenancyID.String())

	lock, err := s.locker.Lock(ctx, tenancyLockKey(cmd.TenancyID))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer s.release(ctx, lock)

	var tenancy *rent.Tenancy
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		t, err := repos.TenancyRepo().FindByIDForUpdate(ctx, cmd.TenancyID)
		if err != nil {
			return fmt.Errorf("failed to load tenancy: %w", err)
		}
		if t == nil {
			return shared.NewNotFoundError("tenancy %s not found", cmd.TenancyID)
		}
		if err := t.Terminate(cmd.EndDate); err != nil {
			return err
		}
		tenancy = t
		return repos.TenancyRepo().SaveWithLock(ctx, t)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, tenancy)
	s.logger.Info("Tenancy terminated",
		zap.String("tenancy_id", tenancy.ID.String()),
		zap.Time("end_date", *tenancy.EndDate),
	)

	resp := ToTenancyResponse(tenancy)
	return &resp, nil
}

func (s *TenancyService) load(ctx context.Context, id uuid.UUID) (*rent.Tenancy, error) {
	tenancy, err := s.tenancyRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenancy: %w", err)
	}
	if tenancy == nil {
		return nil, shared.NewNotFoundError("tenancy %s not found", id)
	}
	return tenancy, nil
}

func (s *TenancyService) publish(ctx context.Context, tenancy *rent.Tenancy) {
	events := tenancy.GetDomainEvents()
	tenancy.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish tenancy events",
			zap.String("tenancy_id", tenancy.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *TenancyService) release(ctx context.Context, lock shared.Lock) {
	if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("Failed to release lock", zap.Error(err))
	}
}
