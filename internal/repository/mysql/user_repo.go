package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/goshop/internal/datamodels/user"
)

type userRepo struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) user.Repository {
	return &userRepo{db: db}
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).
		Where("reset_password_token = ? AND reset_password_expire > ?", tokenHash, now).
		First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *userRepo) Update(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

func (r *userRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{&user.CartItem{}, &user.Bookmark{}, &user.Address{}} {
			if err := tx.Where("user_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&user.User{}, id).Error
	})
}

func (r *userRepo) ListAll(ctx context.Context) ([]*user.User, error) {
	var list []*user.User
	if err := r.db.WithContext(ctx).Order("id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ---------- 购物车 ----------

func (r *userRepo) ListCart(ctx context.Context, userID int64) ([]*user.CartItem, error) {
	var list []*user.CartItem
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.Images").
		Where("user_id = ?", userID).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *userRepo) GetCartItem(ctx context.Context, userID, productID int64) (*user.CartItem, error) {
	var item user.CartItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *userRepo) SaveCartItem(ctx context.Context, item *user.CartItem) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity"}),
		}).
		Create(item).Error
}

func (r *userRepo) DeleteCartItem(ctx context.Context, userID, productID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&user.CartItem{}).Error
}

// ---------- 收藏 ----------

func (r *userRepo) ListBookmarks(ctx context.Context, userID int64) ([]*user.Bookmark, error) {
	var list []*user.Bookmark
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.Images").
		Where("user_id = ?", userID).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *userRepo) HasBookmark(ctx context.Context, userID, productID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&user.Bookmark{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepo) CreateBookmark(ctx context.Context, bm *user.Bookmark) error {
	return r.db.WithContext(ctx).Create(bm).Error
}

func (r *userRepo) DeleteBookmark(ctx context.Context, userID, productID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&user.Bookmark{}).Error
}

// ---------- 地址 ----------

func (r *userRepo) ListAddresses(ctx context.Context, userID int64) ([]*user.Address, error) {
	var list []*user.Address
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *userRepo) GetAddress(ctx context.Context, userID, addressID int64) (*user.Address, error) {
	var addr user.Address
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&addr, addressID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return &addr, nil
}

func (r *userRepo) SaveAddress(ctx context.Context, addr *user.Address) error {
	return r.db.WithContext(ctx).Save(addr).Error
}

func (r *userRepo) ClearDefaultAddress(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Model(&user.Address{}).
		Where("user_id = ?", userID).
		Update("is_default", false).Error
}

func (r *userRepo) DeleteAddress(ctx context.Context, userID, addressID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&user.Address{}, addressID).Error
}
