package user

import (
	"context"

	"github.com/google/uuid"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	"gorm.io/datatypes"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type UserRepo interface {
	Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, userID uuid.UUID, updates map[string]any) error
	// AppendOwnedCourse and RemoveOwnedCourse maintain the my_courses array.
	// Both are idempotent.
	AppendOwnedCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) error
	RemoveOwnedCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (r *userRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(users) == 0 {
		return []*types.User{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.User
	if err := transaction.WithContext(ctx).
		Where("id = ?", userID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *userRepo) GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.User
	if len(userIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", userIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userRepo) UpdateFields(ctx context.Context, tx *gorm.DB, userID uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Updates(updates).Error; err != nil {
		return err
	}
	return nil
}

func (r *userRepo) AppendOwnedCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	u, err := r.GetByID(ctx, transaction, userID)
	if err != nil {
		return err
	}
	for _, id := range u.MyCourses {
		if id == courseID {
			return nil
		}
	}
	next := append([]uuid.UUID(nil), u.MyCourses...)
	next = append(next, courseID)
	return r.UpdateFields(ctx, transaction, userID, map[string]any{"my_courses": datatypes.NewJSONSlice(next)})
}

func (r *userRepo) RemoveOwnedCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	u, err := r.GetByID(ctx, transaction, userID)
	if err != nil {
		return err
	}
	next := make([]uuid.UUID, 0, len(u.MyCourses))
	for _, id := range u.MyCourses {
		if id != courseID {
			next = append(next, id)
		}
	}
	if len(next) == len(u.MyCourses) {
		return nil
	}
	return r.UpdateFields(ctx, transaction, userID, map[string]any{"my_courses": datatypes.NewJSONSlice(next)})
}
