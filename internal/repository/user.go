package repository

import (
	"context"
	"time"

	"github.com/nimbuswolf/finance-api/internal/constants"
	"github.com/nimbuswolf/finance-api/internal/model"
	ctxutil "github.com/nimbuswolf/finance-api/pkg/context"
	"github.com/nimbuswolf/finance-api/pkg/logger"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts user. A duplicate email surfaces as gorm.ErrDuplicatedKey.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleRepository, "Create")

	start := time.Now()
	err := r.db.WithContext(ctx).Create(user).Error
	duration := time.Since(start)

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to create user").
			Duration(duration).
			Err(err).
			Log()
		return err
	}

	logger.DebugWithContext(ctx, "User created").
		String("new_user_id", user.ID).
		Duration(duration).
		Log()
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleRepository, "GetByID")

	if err := ctx.Err(); err != nil {
		logger.WarnWithContext(ctx, "Context cancelled before query").
			Err(err).
			Log()
		return nil, err
	}

	start := time.Now()
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		logger.DebugWithContext(ctx, "User lookup by ID failed").
			String("lookup_id", id).
			Duration(time.Since(start)).
			Err(err).
			Log()
		return nil, err
	}

	return &user, nil
}

// GetByEmail expects an already normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleRepository, "GetByEmail")

	start := time.Now()
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		logger.DebugWithContext(ctx, "User lookup by email failed").
			Duration(time.Since(start)).
			Err(err).
			Log()
		return nil, err
	}

	return &user, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleRepository, "ExistsByEmail")

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to check email").
			Err(err).
			Log()
		return false, err
	}
	return count > 0, nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	ctx = ctxutil.WithFunction(ctx, constants.ModuleRepository, "UpdateLastLogin")

	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("last_login", at)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update last login").
			String("lookup_id", id).
			Err(result.Error).
			Log()
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
