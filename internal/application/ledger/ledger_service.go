package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const (
	defaultStoreTimeout = 10 * time.Second
	defaultLockWait     = 5 * time.Second
	defaultTxRetries    = 3
	spanService         = "ledger"
)

// LedgerService orchestrates the receivable ledger: it wraps every mutation in one transaction,
// serializes allocation work per customer and derives balances, statements and reports on read.
type LedgerService struct {
	customers   ledger.CustomerRepository
	invoices    ledger.InvoiceRepository
	payments    ledger.PaymentRepository
	allocations ledger.AllocationRepository
	txScope     TransactionScope
	locker      CustomerLocker

	engine        *ledger.AllocationEngine
	openingPolicy ledger.OpeningBalancePolicy
	numberBase    int64
	numberWindow  int
	numberRetries int
	txRetries     int
	storeTimeout  time.Duration
	lockWait      time.Duration
	clock         func() time.Time
	metrics       Metrics
	logger        *zap.Logger
}

// LedgerServiceOption is a functional option for configuring LedgerService
type LedgerServiceOption func(*LedgerService)

// WithAllocationPolicy sets the order in which outstanding invoices absorb payments
func WithAllocationPolicy(policy ledger.AllocationPolicy) LedgerServiceOption {
	return func(s *LedgerService) {
		s.engine = ledger.NewAllocationEngine(policy)
	}
}

// WithOpeningBalancePolicy sets how statements compute their opening balance
func WithOpeningBalancePolicy(policy ledger.OpeningBalancePolicy) LedgerServiceOption {
	return func(s *LedgerService) {
		s.openingPolicy = policy
	}
}

// WithInvoiceNumbering configures the identifier allocator
func WithInvoiceNumbering(base int64, window, retries int) LedgerServiceOption {
	return func(s *LedgerService) {
		if base >= 0 {
			s.numberBase = base
		}
		if window > 0 {
			s.numberWindow = window
		}
		if retries > 0 {
			s.numberRetries = retries
		}
	}
}

// WithStoreTimeout bounds every store round trip of one operation
func WithStoreTimeout(d time.Duration) LedgerServiceOption {
	return func(s *LedgerService) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithLockWait bounds how long an operation waits for the customer lock
func WithLockWait(d time.Duration) LedgerServiceOption {
	return func(s *LedgerService) {
		if d > 0 {
			s.lockWait = d
		}
	}
}

// WithTransactionRetries sets how many times a transaction aborted by a concurrency conflict is re-run
func WithTransactionRetries(n int) LedgerServiceOption {
	return func(s *LedgerService) {
		if n > 0 {
			s.txRetries = n
		}
	}
}

// WithClock sets the source of "today"
func WithClock(clock func() time.Time) LedgerServiceOption {
	return func(s *LedgerService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMetrics sets the business metrics sink
func WithMetrics(m Metrics) LedgerServiceOption {
	return func(s *LedgerService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) LedgerServiceOption {
	return func(s *LedgerService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	customers ledger.CustomerRepository,
	invoices ledger.InvoiceRepository,
	payments ledger.PaymentRepository,
	allocations ledger.AllocationRepository,
	txScope TransactionScope,
	locker CustomerLocker,
	opts ...LedgerServiceOption,
) *LedgerService {
	s := &LedgerService{
		customers:     customers,
		invoices:      invoices,
		payments:      payments,
		allocations:   allocations,
		txScope:       txScope,
		locker:        locker,
		engine:        ledger.NewAllocationEngine(ledger.OldestDueFirstPolicy{}),
		openingPolicy: ledger.OpeningBalancePriorOutstanding,
		numberBase:    ledger.DefaultInvoiceNumberBase,
		numberWindow:  50,
		numberRetries: 5,
		txRetries:     defaultTxRetries,
		storeTimeout:  defaultStoreTimeout,
		lockWait:      defaultLockWait,
		clock:         time.Now,
		metrics:       noopMetrics{},
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AllocationPolicy returns the active allocation policy type
func (s *LedgerService) AllocationPolicy() ledger.AllocationPolicyType {
	return s.engine.Policy().Type()
}

func (s *LedgerService) today() time.Time {
	return ledger.DateOf(s.clock())
}

func (s *LedgerService) log(ctx context.Context) *logger.ContextLogger {
	return logger.WithLogger(ctx, s.logger)
}

// withTimeout bounds one operation's store work
func (s *LedgerService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// storeError turns deadline and cancellation into retryable store errors.
// Domain errors pass through untouched.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", shared.ErrStoreTimeout, err)
	}
	return err
}

// lockCustomer takes the per-customer allocation lock, waiting at most lockWait
func (s *LedgerService) lockCustomer(ctx context.Context, customerID uuid.UUID) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	start := time.Now()
	release, err := s.locker.Acquire(lockCtx, customerLockKey(customerID))
	s.metrics.CustomerLockWait(time.Since(start), err == nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.log(ctx).Warn("customer lock wait exceeded",
				zap.String("customer_id", customerID.String()),
				zap.Duration("lock_wait", s.lockWait))
			return nil, shared.NewDomainErrorf(shared.CodeLockTimeout,
				"Timed out after %s waiting for another operation on customer %s", s.lockWait, customerID)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	return release, nil
}

func customerLockKey(customerID uuid.UUID) string {
	return "arledger:customer:" + customerID.String()
}

// transact runs fn in one transaction, re-running it from scratch when the store aborts it
// with a concurrency conflict (serialization failure, deadlock, lock timeout).
func (s *LedgerService) transact(ctx context.Context, op string, fn func(repos TransactionalRepositories) error) error {
	var err error
	for attempt := 1; attempt <= s.txRetries; attempt++ {
		err = storeError(s.txScope.Execute(ctx, fn))
		if err == nil || !errors.Is(err, shared.ErrConcurrencyConflict) || ctx.Err() != nil {
			return err
		}
		s.metrics.TransactionConflict(op)
		s.log(ctx).Warn("ledger transaction conflict, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return err
}

// lookupError names the missing entity when a store lookup finds nothing
func lookupError(err error, code, entity string, id uuid.UUID) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewDomainErrorf(code, "%s %s not found", entity, id)
	}
	return storeError(err)
}

// requireCustomer maps a missing customer onto CUSTOMER_NOT_FOUND
func requireCustomer(ctx context.Context, repo ledger.CustomerRepository, id uuid.UUID) error {
	ok, err := repo.ExistsByID(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if !ok {
		return shared.NewDomainErrorf(ledger.CodeCustomerNotFound, "Customer %s not found", id)
	}
	return nil
}

// loadAllocations joins invoices with their allocation rows
func loadAllocations(ctx context.Context, repo ledger.AllocationRepository, invoices []ledger.Invoice) ([]ledger.InvoiceWithAllocations, error) {
	ids := make([]uuid.UUID, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}
	byInvoice, err := repo.FindByInvoices(ctx, ids)
	if err != nil {
		return nil, storeError(err)
	}
	out := make([]ledger.InvoiceWithAllocations, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, ledger.InvoiceWithAllocations{Invoice: inv, Allocations: byInvoice[inv.ID]})
	}
	return out, nil
}
