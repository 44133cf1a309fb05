package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"ai-code-mother/internal/domain/entity"
	"ai-code-mother/internal/domain/repository"
)

// UserRepository 用户仓储实现，邮箱按小写存储与查询
type UserRepository struct {
	client *Client
}

var _ repository.UserRepository = (*UserRepository)(nil)

func NewUserRepository(client *Client) *UserRepository {
	return &UserRepository{client: client}
}

// Create 邮箱冲突时返回包装了 repository.ErrDuplicate 的错误
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.Create")
	defer span.End()

	err := getDB(ctx, r.client.db).Create(user).Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("user %s: %w", user.Email, repository.ErrDuplicate)
	default:
		span.RecordError(err)
		return fmt.Errorf("failed to create user: %w", err)
	}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.GetByID")
	defer span.End()

	user, err := r.first(ctx, "id = ?", id)
	if err != nil {
		span.RecordError(err)
	}
	return user, err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.GetByEmail")
	defer span.End()

	user, err := r.first(ctx, "email = ?", email)
	if err != nil {
		span.RecordError(err)
	}
	return user, err
}

// first 未找到时返回 (nil, nil)
func (r *UserRepository) first(ctx context.Context, cond string, arg any) (*entity.User, error) {
	var user entity.User
	err := getDB(ctx, r.client.db).Where(cond, arg).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user (%s): %w", cond, err)
	}
	return &user, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, name, avatarURL string) error {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.UpdateProfile")
	defer span.End()

	updates := map[string]any{}
	if name != "" {
		updates["name"] = name
	}
	if avatarURL != "" {
		updates["avatar_url"] = avatarURL
	}
	if len(updates) == 0 {
		return nil
	}

	if err := getDB(ctx, r.client.db).Model(&entity.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.UpdateLastLogin")
	defer span.End()

	err := getDB(ctx, r.client.db).Model(&entity.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", time.Now()).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.ExistsByEmail")
	defer span.End()

	var exists bool
	err := getDB(ctx, r.client.db).
		Raw("SELECT EXISTS (SELECT 1 FROM users WHERE email = ?)", email).
		Scan(&exists).Error
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check email exists: %w", err)
	}
	return exists, nil
}
