package credentials

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/vidyalane/schoolops-backend/pkg/db/models"
)

// Repository reads and writes per-school integration credential rows. Rows are
// append-only; rotation inserts and never updates.
type Repository interface {
	Create(ctx context.Context, row *models.IntegrationCredential) error
	Latest(ctx context.Context, schoolID int64, provider string) (*models.IntegrationCredential, error)
	List(ctx context.Context, schoolID int64) ([]models.IntegrationCredential, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a credentials repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Create(ctx context.Context, row *models.IntegrationCredential) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// Latest returns the most recently inserted row for (school, provider), or nil
// when none exists.
func (r *repositoryImpl) Latest(ctx context.Context, schoolID int64, provider string) (*models.IntegrationCredential, error) {
	var row models.IntegrationCredential
	err := r.db.WithContext(ctx).
		Where("school_id = ? AND provider = ?", schoolID, provider).
		Order("id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) List(ctx context.Context, schoolID int64) ([]models.IntegrationCredential, error) {
	var rows []models.IntegrationCredential
	err := r.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}
