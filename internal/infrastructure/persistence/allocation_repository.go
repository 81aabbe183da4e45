package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// allocationBatchSize bounds the rows of one multi-row INSERT
const allocationBatchSize = 100

// GormAllocationRepository implements AllocationRepository using GORM.
// Allocations are append-only: rows are inserted or deleted, never updated.
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// FindByInvoice returns the allocations of one invoice in creation order
func (r *GormAllocationRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]ledger.Allocation, error) {
	return r.find(ctx, "invoice_id = ?", invoiceID)
}

// FindByPayment returns the allocations of one payment in creation order
func (r *GormAllocationRepository) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]ledger.Allocation, error) {
	return r.find(ctx, "payment_id = ?", paymentID)
}

// FindByInvoices returns the allocations of many invoices, keyed by invoice ID
func (r *GormAllocationRepository) FindByInvoices(ctx context.Context, invoiceIDs []uuid.UUID) (map[uuid.UUID][]ledger.Allocation, error) {
	if len(invoiceIDs) == 0 {
		return map[uuid.UUID][]ledger.Allocation{}, nil
	}
	allocations, err := r.find(ctx, "invoice_id IN ?", invoiceIDs)
	if err != nil {
		return nil, err
	}
	return ledger.GroupByInvoice(allocations), nil
}

func (r *GormAllocationRepository) find(ctx context.Context, cond string, arg any) ([]ledger.Allocation, error) {
	var allocationModels []models.AllocationModel
	if err := r.db.WithContext(ctx).
		Where(cond, arg).
		Order("created_at ASC").
		Order("id ASC").
		Find(&allocationModels).Error; err != nil {
		return nil, classifyError(err)
	}
	allocations := make([]ledger.Allocation, len(allocationModels))
	for i := range allocationModels {
		allocations[i] = *allocationModels[i].ToDomain()
	}
	return allocations, nil
}

// CreateBatch inserts allocations
func (r *GormAllocationRepository) CreateBatch(ctx context.Context, allocations []ledger.Allocation) error {
	if len(allocations) == 0 {
		return nil
	}
	allocationModels := make([]*models.AllocationModel, len(allocations))
	for i := range allocations {
		allocationModels[i] = models.AllocationModelFromDomain(&allocations[i])
	}
	return classifyError(r.db.WithContext(ctx).CreateInBatches(allocationModels, allocationBatchSize).Error)
}

// DeleteByInvoice removes every allocation of an invoice and reports how many went
func (r *GormAllocationRepository) DeleteByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Delete(&models.AllocationModel{})
	return result.RowsAffected, classifyError(result.Error)
}

// DeleteByPayment removes every allocation of a payment and reports how many went
func (r *GormAllocationRepository) DeleteByPayment(ctx context.Context, paymentID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).Delete(&models.AllocationModel{})
	return result.RowsAffected, classifyError(result.Error)
}

// Ensure GormAllocationRepository implements AllocationRepository
var _ ledger.AllocationRepository = (*GormAllocationRepository)(nil)
