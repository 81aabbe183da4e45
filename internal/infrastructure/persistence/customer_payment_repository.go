package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCustomerPaymentRepository implements PaymentRepository using GORM
type GormCustomerPaymentRepository struct {
	db *gorm.DB
}

// NewGormCustomerPaymentRepository creates a new GormCustomerPaymentRepository
func NewGormCustomerPaymentRepository(db *gorm.DB) *GormCustomerPaymentRepository {
	return &GormCustomerPaymentRepository{db: db}
}

// FindByID finds a payment by its ID
func (r *GormCustomerPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.CustomerPayment, error) {
	var model models.CustomerPaymentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, classifyError(err)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a payment and locks its row for the rest of the transaction
func (r *GormCustomerPaymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.CustomerPayment, error) {
	var model models.CustomerPaymentModel
	if err := forUpdate(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		return nil, classifyError(err)
	}
	return model.ToDomain(), nil
}

// FindByIdempotencyKey finds the payment recorded under a client idempotency key
func (r *GormCustomerPaymentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*ledger.CustomerPayment, error) {
	if key == "" {
		return nil, shared.ErrNotFound
	}
	var model models.CustomerPaymentModel
	if err := r.db.WithContext(ctx).First(&model, "idempotency_key = ?", key).Error; err != nil {
		return nil, classifyError(err)
	}
	return model.ToDomain(), nil
}

// List returns one page of payments and the total matching count
func (r *GormCustomerPaymentRepository) List(ctx context.Context, filter ledger.PaymentFilter) ([]ledger.CustomerPayment, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, classifyError(err)
	}

	query := r.filtered(ctx, filter).
		Order(paymentSort.clause(filter.OrderBy, filter.OrderDir)).
		Order("created_at DESC")

	var paymentModels []models.CustomerPaymentModel
	if err := paginate(query, filter.Filter).Find(&paymentModels).Error; err != nil {
		return nil, 0, classifyError(err)
	}

	payments := make([]ledger.CustomerPayment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = *paymentModels[i].ToDomain()
	}
	return payments, total, nil
}

// Create inserts a payment. A reused idempotency key surfaces as shared.ErrAlreadyExists.
func (r *GormCustomerPaymentRepository) Create(ctx context.Context, payment *ledger.CustomerPayment) error {
	return classifyError(r.db.WithContext(ctx).Create(models.CustomerPaymentModelFromDomain(payment)).Error)
}

// Delete removes a payment
func (r *GormCustomerPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CustomerPaymentModel{}, "id = ?", id)
	if result.Error != nil {
		return classifyError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormCustomerPaymentRepository) filtered(ctx context.Context, filter ledger.PaymentFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.CustomerPaymentModel{})
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.From != nil {
		query = query.Where("payment_date >= ?", dateParam(*filter.From))
	}
	if filter.To != nil {
		query = query.Where("payment_date <= ?", dateParam(*filter.To))
	}
	return query
}

// Ensure GormCustomerPaymentRepository implements PaymentRepository
var _ ledger.PaymentRepository = (*GormCustomerPaymentRepository)(nil)
