package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"scanx/internal/models"
)

var ErrInvalidAccountType = errors.New(`account_type must be "user" or "service"`)

type UserStore struct{ db *gorm.DB }

func NewUserStore(db *gorm.DB) *UserStore { return &UserStore{db: db} }

// DirectoryRecord: запись каталога, приведённая к нашей модели.
type DirectoryRecord struct {
	Email       string
	Name        string
	CreatedAt   *time.Time
	AccountType string
}

// FindByEmail: nil, nil если пользователя нет в зеркале.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.DirectoryUser, error) {
	var u models.DirectoryUser
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) search(ctx context.Context, term string) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.DirectoryUser{})
	if term = strings.TrimSpace(term); term != "" {
		like := containsPattern(term)
		q = q.Where("LOWER(email) LIKE ? ESCAPE '!' OR LOWER(name) LIKE ? ESCAPE '!'", like, like)
	}
	return q
}

func (s *UserStore) List(ctx context.Context, term string, offset, limit int) ([]models.DirectoryUser, error) {
	rows := []models.DirectoryUser{}
	err := s.search(ctx, term).Order("email asc").Offset(offset).Limit(limit).Find(&rows).Error
	return rows, err
}

func (s *UserStore) Count(ctx context.Context, term string) (int64, error) {
	var n int64
	err := s.search(ctx, term).Count(&n).Error
	return n, err
}

func (s *UserStore) UpdateAccountType(ctx context.Context, gid uint, accountType string) error {
	if !models.ValidAccountType(accountType) {
		return ErrInvalidAccountType
	}
	res := s.db.WithContext(ctx).Model(&models.DirectoryUser{}).
		Where("gid = ?", gid).
		Updates(map[string]any{"account_type": accountType, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserStore) Delete(ctx context.Context, gid uint) error {
	res := s.db.WithContext(ctx).Delete(&models.DirectoryUser{}, gid)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertMany вставляет новые email и обновляет существующие только при
// изменении name/created_at/account_type. Возвращает число записанных строк.
func (s *UserStore) UpsertMany(ctx context.Context, recs []DirectoryRecord) (int, error) {
	written := 0
	for _, rec := range recs {
		accountType := rec.AccountType
		if accountType != models.AccountTypeService {
			accountType = models.AccountTypeUser
		}
		created := truncSecond(rec.CreatedAt)

		existing, err := s.FindByEmail(ctx, rec.Email)
		if err != nil {
			return written, err
		}
		if existing == nil {
			u := models.DirectoryUser{
				Email:       rec.Email,
				Name:        rec.Name,
				CreatedAt:   created,
				AccountType: accountType,
			}
			if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
				return written, err
			}
			written++
			continue
		}
		if existing.Name == rec.Name && sameInstant(existing.CreatedAt, created) && existing.AccountType == accountType {
			continue
		}
		err = s.db.WithContext(ctx).Model(&models.DirectoryUser{}).
			Where("gid = ?", existing.GID).
			Updates(map[string]any{
				"name":         rec.Name,
				"created_at":   created,
				"account_type": accountType,
				"updated_at":   time.Now(),
			}).Error
		if err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// в БД время хранится с точностью до секунды
func truncSecond(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Second)
	return &v
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Unix() == b.Unix()
}
