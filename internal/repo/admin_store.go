package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"scanx/internal/models"
)

var ErrAlreadyExists = errors.New("already exists")

type AdminStore struct{ db *gorm.DB }

func NewAdminStore(db *gorm.DB) *AdminStore { return &AdminStore{db: db} }

// Create: ErrAlreadyExists, если email занят.
func (s *AdminStore) Create(ctx context.Context, a *models.Admin) error {
	existing, err := s.FindByEmail(ctx, a.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyExists
	}
	return s.db.WithContext(ctx).Create(a).Error
}

// FindByEmail: nil, nil если такого администратора нет.
func (s *AdminStore) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var a models.Admin
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AdminStore) FindByID(ctx context.Context, id uint) (*models.Admin, error) {
	var a models.Admin
	err := s.db.WithContext(ctx).First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AdminStore) List(ctx context.Context) ([]models.Admin, error) {
	var rows []models.Admin
	err := s.db.WithContext(ctx).Order("created_at desc").Find(&rows).Error
	return rows, err
}

func (s *AdminStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Admin{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
