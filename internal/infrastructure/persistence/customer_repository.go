package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCustomerRepository implements CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByID finds a customer by its ID
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Customer, error) {
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, classifyError(err)
	}
	return model.ToDomain(), nil
}

// FindByIDs finds multiple customers by their IDs, keyed by ID
func (r *GormCustomerRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ledger.Customer, error) {
	out := make(map[uuid.UUID]ledger.Customer, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var customerModels []models.CustomerModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&customerModels).Error; err != nil {
		return nil, classifyError(err)
	}
	for i := range customerModels {
		out[customerModels[i].ID] = *customerModels[i].ToDomain()
	}
	return out, nil
}

// ExistsByID checks if a customer exists
func (r *GormCustomerRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CustomerModel{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, classifyError(err)
	}
	return count > 0, nil
}

// List returns one page of customers and the total matching count
func (r *GormCustomerRepository) List(ctx context.Context, filter shared.Filter) ([]ledger.Customer, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, classifyError(err)
	}

	query := r.filtered(ctx, filter).Order(customerSort.clause(filter.OrderBy, filter.OrderDir)).Order("id ASC")

	var customerModels []models.CustomerModel
	if err := paginate(query, filter).Find(&customerModels).Error; err != nil {
		return nil, 0, classifyError(err)
	}

	customers := make([]ledger.Customer, len(customerModels))
	for i := range customerModels {
		customers[i] = *customerModels[i].ToDomain()
	}
	return customers, total, nil
}

func (r *GormCustomerRepository) filtered(ctx context.Context, filter shared.Filter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.CustomerModel{})
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", pattern, pattern)
	}
	return query
}

// Create inserts a customer. A taken code surfaces as shared.ErrAlreadyExists.
func (r *GormCustomerRepository) Create(ctx context.Context, customer *ledger.Customer) error {
	return classifyError(r.db.WithContext(ctx).Create(models.CustomerModelFromDomain(customer)).Error)
}

// Ensure GormCustomerRepository implements CustomerRepository
var _ ledger.CustomerRepository = (*GormCustomerRepository)(nil)
