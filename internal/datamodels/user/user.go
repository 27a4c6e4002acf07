package user

import (
	"context"
	"errors"
	"time"

	"github.com/example/goshop/internal/datamodels/product"
)

// ErrNotFound 用户不存在
var ErrNotFound = errors.New("user not found")

// User 用户模型
type User struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:64;not null" json:"name"`
	Email    string `gorm:"uniqueIndex;size:128;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"` // 已加密密码
	Salt     string `gorm:"size:64" json:"-"`
	Role     string `gorm:"size:16;index;default:user" json:"role"`

	AvatarPublicID string `gorm:"size:255" json:"-"`
	AvatarURL      string `gorm:"size:512" json:"avatar,omitempty"`

	// 密码重置令牌只保存哈希，明文通过邮件下发
	ResetPasswordToken  string     `gorm:"size:128;index" json:"-"`
	ResetPasswordExpire *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

// CartItem 购物车条目
type CartItem struct {
	ID        int64            `gorm:"primaryKey" json:"id"`
	UserID    int64            `gorm:"uniqueIndex:idx_cart_user_product;not null" json:"-"`
	ProductID int64            `gorm:"uniqueIndex:idx_cart_user_product;not null" json:"productId"`
	Quantity  int64            `gorm:"not null;default:1" json:"quantity"`
	Product   *product.Product `json:"product,omitempty"`
}

// Bookmark 收藏（心愿单）条目
type Bookmark struct {
	ID        int64            `gorm:"primaryKey" json:"id"`
	UserID    int64            `gorm:"uniqueIndex:idx_bm_user_product;not null" json:"-"`
	ProductID int64            `gorm:"uniqueIndex:idx_bm_user_product;not null" json:"productId"`
	Product   *product.Product `json:"product,omitempty"`
}

// Address 收货地址
type Address struct {
	ID         int64  `gorm:"primaryKey" json:"id"`
	UserID     int64  `gorm:"index;not null" json:"-"`
	Street     string `gorm:"size:255;not null" json:"street"`
	City       string `gorm:"size:64;not null" json:"city"`
	State      string `gorm:"size:64;not null" json:"state"`
	Country    string `gorm:"size:64;not null" json:"country"`
	PostalCode string `gorm:"size:16;not null" json:"postalCode"`
	IsDefault  bool   `json:"isDefault"`
}

// Repository 用户仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id int64) error
	ListAll(ctx context.Context) ([]*User, error)

	// 购物车
	ListCart(ctx context.Context, userID int64) ([]*CartItem, error)
	GetCartItem(ctx context.Context, userID, productID int64) (*CartItem, error)
	SaveCartItem(ctx context.Context, item *CartItem) error
	DeleteCartItem(ctx context.Context, userID, productID int64) error

	// 收藏
	ListBookmarks(ctx context.Context, userID int64) ([]*Bookmark, error)
	HasBookmark(ctx context.Context, userID, productID int64) (bool, error)
	CreateBookmark(ctx context.Context, bm *Bookmark) error
	DeleteBookmark(ctx context.Context, userID, productID int64) error

	// 地址
	ListAddresses(ctx context.Context, userID int64) ([]*Address, error)
	GetAddress(ctx context.Context, userID, addressID int64) (*Address, error)
	SaveAddress(ctx context.Context, addr *Address) error
	ClearDefaultAddress(ctx context.Context, userID int64) error
	DeleteAddress(ctx context.Context, userID, addressID int64) error
}
