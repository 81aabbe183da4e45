package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

var nonReceivableStatuses = []string{
	ledger.InvoiceStatusDraft.String(),
	ledger.InvoiceStatusCancelled.String(),
}

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice with its items
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	return r.findOne(ctx, r.db.WithContext(ctx), "id = ?", id)
}

// FindByIDForUpdate finds an invoice with its items, holding a row lock until the transaction ends
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	return r.findOne(ctx, forUpdate(r.db.WithContext(ctx)), "id = ?", id)
}

// FindByNumber finds an invoice by its identifier
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, number string) (*ledger.Invoice, error) {
	return r.findOne(ctx, r.db.WithContext(ctx), "number = ?", strings.TrimSpace(number))
}

func (r *GormInvoiceRepository) findOne(ctx context.Context, query *gorm.DB, cond string, arg any) (*ledger.Invoice, error) {
	var model models.InvoiceModel
	if err := query.Where(cond, arg).First(&model).Error; err != nil {
		return nil, classifyError(err)
	}
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", model.ID).
		Order("sort_order ASC").
		Find(&model.Items).Error; err != nil {
		return nil, classifyError(err)
	}
	return model.ToDomain(), nil
}

// List returns one page of invoices, without items, and the total matching count
func (r *GormInvoiceRepository) List(ctx context.Context, filter ledger.InvoiceFilter) ([]ledger.Invoice, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, classifyError(err)
	}

	query := r.filtered(ctx, filter).
		Order(invoiceSort.clause(filter.OrderBy, filter.OrderDir)).
		Order("number ASC")

	var invoiceModels []models.InvoiceModel
	if err := paginate(query, filter.Filter).Find(&invoiceModels).Error; err != nil {
		return nil, 0, classifyError(err)
	}
	return toInvoices(invoiceModels), total, nil
}

// FindAll returns every invoice matching the filter, without items, ordered by issue date
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter ledger.InvoiceFilter) ([]ledger.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.filtered(ctx, filter).
		Order("issue_date ASC").
		Order("number ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, classifyError(err)
	}
	return toInvoices(invoiceModels), nil
}

// FindReceivablesForUpdate locks every receivable invoice of the customer for the rest of the transaction.
// Rows are locked in due date order so concurrent lockers cannot deadlock each other.
func (r *GormInvoiceRepository) FindReceivablesForUpdate(ctx context.Context, customerID uuid.UUID) ([]ledger.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("customer_id = ? AND status NOT IN ?", customerID, nonReceivableStatuses).
		Order("due_date ASC").
		Order("issue_date ASC").
		Order("id ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, classifyError(err)
	}
	return toInvoices(invoiceModels), nil
}

// RecentNumbers returns the highest numeric identifiers, newest first
func (r *GormInvoiceRepository) RecentNumbers(ctx context.Context, limit int) ([]string, error) {
	var numbers []string
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("number_seq IS NOT NULL").
		Order("number_seq DESC").
		Order("created_at DESC").
		Limit(limit).
		Pluck("number", &numbers).Error; err != nil {
		return nil, classifyError(err)
	}
	return numbers, nil
}

// Create inserts an invoice and its items. A taken identifier surfaces as shared.ErrAlreadyExists.
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *ledger.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	items := model.Items
	model.Items = nil

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return classifyError(err)
	}
	if len(items) == 0 {
		return nil
	}
	return classifyError(r.db.WithContext(ctx).Create(&items).Error)
}

// SaveWithLock updates status and amounts if nobody changed the invoice since it was read.
// The domain has already bumped Version, so the stored row must still carry Version-1.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *ledger.Invoice) error {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
		Updates(map[string]any{
			"status":     invoice.Status.String(),
			"discount":   invoice.Discount,
			"tax":        invoice.Tax,
			"total":      invoice.Total,
			"notes":      invoice.Notes,
			"version":    invoice.Version,
			"updated_at": invoice.UpdatedAt,
		})
	if result.Error != nil {
		return classifyError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainErrorf(shared.CodeConcurrencyConflict,
			"Invoice %s was modified by another transaction", invoice.Number)
	}
	return nil
}

// Delete removes an invoice and its items
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("invoice_id = ?", id).Delete(&models.InvoiceItemModel{}).Error; err != nil {
		return classifyError(err)
	}
	result := r.db.WithContext(ctx).Delete(&models.InvoiceModel{}, "id = ?", id)
	if result.Error != nil {
		return classifyError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormInvoiceRepository) filtered(ctx context.Context, filter ledger.InvoiceFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = s.String()
		}
		query = query.Where("status IN ?", statuses)
	}
	if filter.ReceivableOnly {
		query = query.Where("status NOT IN ?", nonReceivableStatuses)
	}
	if filter.IssuedFrom != nil {
		query = query.Where("issue_date >= ?", dateParam(*filter.IssuedFrom))
	}
	if filter.IssuedTo != nil {
		query = query.Where("issue_date <= ?", dateParam(*filter.IssuedTo))
	}
	if filter.IssuedBefore != nil {
		query = query.Where("issue_date < ?", dateParam(*filter.IssuedBefore))
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(number) LIKE ? OR LOWER(notes) LIKE ?", pattern, pattern)
	}
	return query
}

// dateParam normalizes a bound to the UTC calendar date stored in date columns
func dateParam(t time.Time) time.Time {
	return ledger.DateOf(t)
}

func toInvoices(invoiceModels []models.InvoiceModel) []ledger.Invoice {
	invoices := make([]ledger.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = *invoiceModels[i].ToDomain()
	}
	return invoices
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ ledger.InvoiceRepository = (*GormInvoiceRepository)(nil)
