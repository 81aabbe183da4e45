package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const metricsNamespace = "arledger"

// LockWaitBuckets covers the per-customer lock wait range up to the default 5s lock wait.
var LockWaitBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// LedgerMetrics exports ledger business counters to Prometheus.
// It satisfies the ledger application's Metrics port.
type LedgerMetrics struct {
	paymentsRecorded   *prometheus.CounterVec
	paymentAmount      *prometheus.CounterVec
	allocationsCreated *prometheus.CounterVec
	allocatedAmount    prometheus.Counter
	unallocatedCredit  prometheus.Counter
	numberConflicts    prometheus.Counter
	txConflicts        *prometheus.CounterVec
	lockWait           *prometheus.HistogramVec
}

// NewLedgerMetrics creates the ledger collectors and registers them on registerer.
// A nil registerer falls back to prometheus.DefaultRegisterer.
func NewLedgerMetrics(registerer prometheus.Registerer) (*LedgerMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &LedgerMetrics{
		paymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "payments_recorded_total",
			Help:      "Payments recorded, by payment method.",
		}, []string{"method"}),
		paymentAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "payment_amount_total",
			Help:      "Sum of recorded payment amounts, by payment method.",
		}, []string{"method"}),
		allocationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "allocations_created_total",
			Help:      "Payment allocations created, by allocation policy.",
		}, []string{"policy"}),
		allocatedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "allocated_amount_total",
			Help:      "Sum of amounts applied to invoices by allocation.",
		}),
		unallocatedCredit: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "unallocated_credit_total",
			Help:      "Payment value left unallocated after applying to open invoices.",
		}),
		numberConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "invoice_number_conflicts_total",
			Help:      "Invoice identifier collisions that triggered a retry.",
		}),
		txConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "transaction_conflicts_total",
			Help:      "Ledger transactions aborted by a concurrency conflict, by operation.",
		}, []string{"operation"}),
		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "customer_lock_wait_seconds",
			Help:      "Time spent waiting for the per-customer allocation lock.",
			Buckets:   LockWaitBuckets,
		}, []string{"acquired"}),
	}

	for _, c := range []prometheus.Collector{
		m.paymentsRecorded,
		m.paymentAmount,
		m.allocationsCreated,
		m.allocatedAmount,
		m.unallocatedCredit,
		m.numberConflicts,
		m.txConflicts,
		m.lockWait,
	} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// PaymentRecorded counts a stored payment and its amount.
func (m *LedgerMetrics) PaymentRecorded(method string, amount decimal.Decimal) {
	m.paymentsRecorded.WithLabelValues(method).Inc()
	m.paymentAmount.WithLabelValues(method).Add(nonNegative(amount))
}

// AllocationsCreated counts allocation rows written by one allocation pass.
func (m *LedgerMetrics) AllocationsCreated(policy string, count int, amount decimal.Decimal) {
	if count <= 0 {
		return
	}
	m.allocationsCreated.WithLabelValues(policy).Add(float64(count))
	m.allocatedAmount.Add(nonNegative(amount))
}

func (m *LedgerMetrics) UnallocatedCredit(amount decimal.Decimal) {
	m.unallocatedCredit.Add(nonNegative(amount))
}

func (m *LedgerMetrics) InvoiceNumberConflict() {
	m.numberConflicts.Inc()
}

func (m *LedgerMetrics) TransactionConflict(operation string) {
	m.txConflicts.WithLabelValues(operation).Inc()
}

func (m *LedgerMetrics) CustomerLockWait(wait time.Duration, acquired bool) {
	m.lockWait.WithLabelValues(strconv.FormatBool(acquired)).Observe(wait.Seconds())
}

// counters panic on negative Add
func nonNegative(d decimal.Decimal) float64 {
	if !d.IsPositive() {
		return 0
	}
	f, _ := d.Float64()
	return f
}
