package product

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound 商品不存在
var ErrNotFound = errors.New("product not found")

// Image 商品图片，存储在外部图床，这里只记录引用
type Image struct {
	ID        int64  `gorm:"primaryKey" json:"-"`
	ProductID int64  `gorm:"index;not null" json:"-"`
	PublicID  string `gorm:"size:255;not null" json:"public_id"`
	URL       string `gorm:"size:512;not null" json:"url"`
}

// Review 商品评价，每个用户对同一商品只保留一条
type Review struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	ProductID int64     `gorm:"uniqueIndex:idx_product_user;not null" json:"productId"`
	UserID    int64     `gorm:"uniqueIndex:idx_product_user;not null" json:"userId"`
	UserName  string    `gorm:"size:64" json:"name"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"size:512" json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// Product 商品模型。价格单位为分，折扣为百分比整数。
type Product struct {
	ID               int64      `gorm:"primaryKey" json:"id"`
	Name             string     `gorm:"size:128;not null" json:"name"`
	Description      string     `gorm:"size:1024" json:"description"`
	Brand            string     `gorm:"size:64;index" json:"brand"`
	Category         string     `gorm:"size:64;index" json:"category"`
	Price            int64      `gorm:"not null" json:"price"`
	SalePrice        int64      `json:"salePrice"`
	Discount         int        `json:"discount"`
	IsOnSale         bool       `json:"isOnSale"`
	IsPopular        bool       `gorm:"index" json:"isPopular"`
	IsBestSeller     bool       `gorm:"index" json:"isBestSeller"`
	IsFlashSale      bool       `gorm:"index" json:"isFlashSale"`
	FlashSaleEnd     *time.Time `json:"flashSaleEnd"`
	Stock            int64      `gorm:"not null" json:"stock"`
	MaxOrderQuantity int64      `gorm:"not null;default:10" json:"maxOrderQuantity"`
	IsOutOfStock     bool       `json:"isOutOfStock"`
	// Tags 逗号分隔存储，查询用 LIKE 匹配
	Tags         string    `gorm:"size:255" json:"tags"`
	Ratings      float64   `json:"ratings"`
	NumOfReviews int64     `json:"numOfReviews"`
	Images       []Image   `json:"images"`
	Reviews      []Review  `gorm:"-" json:"reviews,omitempty"`
	OwnerID      int64     `gorm:"index" json:"user"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"-"`
}

// ApplySale 按促销价重算折扣与促销标记。
// salePrice 低于原价才算促销，否则清除促销状态。
func (p *Product) ApplySale(salePrice int64) {
	if salePrice > 0 && salePrice < p.Price {
		p.SalePrice = salePrice
		p.Discount = int(float64(p.Price-salePrice)/float64(p.Price)*100 + 0.5)
		p.IsOnSale = true
		return
	}
	p.SalePrice = 0
	p.Discount = 0
	p.IsOnSale = false
}

// ListParams 商品列表查询参数
type ListParams struct {
	Keyword  string
	Category string
	Brand    string
	Tag      string
	Page     int
	PerPage  int
}

// Repository 商品仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context, params ListParams) ([]*Product, int64, error)
	ListAll(ctx context.Context) ([]*Product, error)
	ListByCategory(ctx context.Context, category string) ([]*Product, error)
	ListByBrand(ctx context.Context, brand string) ([]*Product, error)
	ListByTag(ctx context.Context, tag string) ([]*Product, error)
	ListPopular(ctx context.Context, limit int) ([]*Product, error)
	ListBestSellers(ctx context.Context, limit int) ([]*Product, error)
	ListFlashSale(ctx context.Context, now time.Time) ([]*Product, error)
	ListCategories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error

	// SaveReview 新增或更新评价，并在同一事务内重算均分与评价数
	SaveReview(ctx context.Context, r *Review) (*Product, error)
	DeleteReview(ctx context.Context, productID, reviewID int64) error
	ListReviews(ctx context.Context, productID int64) ([]*Review, error)
}
