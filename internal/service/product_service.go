package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/example/goshop/internal/apperr"
	"github.com/example/goshop/internal/datamodels/product"
	"github.com/example/goshop/internal/imagestore"
)

// ProductService 商品目录与评价
type ProductService struct {
	products product.Repository
	images   imagestore.Store
	log      *zap.Logger
}

func NewProductService(products product.Repository, images imagestore.Store, log *zap.Logger) *ProductService {
	return &ProductService{products: products, images: images, log: log}
}

// ProductPage 分页查询结果
type ProductPage struct {
	Products []*product.Product `json:"products"`
	Count    int64              `json:"productsCount"`
	PerPage  int                `json:"resultPerPage"`
}

const defaultPerPage = 8

// List 商品列表，支持关键字/分类/品牌/标签过滤与分页
func (s *ProductService) List(ctx context.Context, params product.ListParams) (*ProductPage, error) {
	if params.PerPage <= 0 {
		params.PerPage = defaultPerPage
	}
	if params.Page <= 0 {
		params.Page = 1
	}
	list, count, err := s.products.List(ctx, params)
	if err != nil {
		return nil, err
	}
	return &ProductPage{Products: list, Count: count, PerPage: params.PerPage}, nil
}

// Get 商品详情，附带全部评价
func (s *ProductService) Get(ctx context.Context, id int64) (*product.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, err
	}
	reviews, err := s.products.ListReviews(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Reviews = make([]product.Review, len(reviews))
	for i, r := range reviews {
		p.Reviews[i] = *r
	}
	return p, nil
}

func (s *ProductService) ListAll(ctx context.Context) ([]*product.Product, error) {
	return s.products.ListAll(ctx)
}

func (s *ProductService) ListByCategory(ctx context.Context, category string) ([]*product.Product, error) {
	return s.products.ListByCategory(ctx, category)
}

func (s *ProductService) ListByBrand(ctx context.Context, brand string) ([]*product.Product, error) {
	return s.products.ListByBrand(ctx, brand)
}

func (s *ProductService) ListByTag(ctx context.Context, tag string) ([]*product.Product, error) {
	return s.products.ListByTag(ctx, tag)
}

func (s *ProductService) ListPopular(ctx context.Context, limit int) ([]*product.Product, error) {
	return s.products.ListPopular(ctx, limit)
}

func (s *ProductService) ListBestSellers(ctx context.Context, limit int) ([]*product.Product, error) {
	return s.products.ListBestSellers(ctx, limit)
}

// ListFlashSale 只返回还在秒杀窗口内的商品
func (s *ProductService) ListFlashSale(ctx context.Context) ([]*product.Product, error) {
	return s.products.ListFlashSale(ctx, time.Now())
}

func (s *ProductService) ListCategories(ctx context.Context) ([]string, error) {
	return s.products.ListCategories(ctx)
}

// CreateProductInput 管理端建品请求，Images 为原始图片数据
type CreateProductInput struct {
	Name             string
	Description      string
	Brand            string
	Category         string
	Price            int64
	SalePrice        int64
	Stock            int64
	MaxOrderQuantity int64
	Tags             string
	IsPopular        bool
	IsBestSeller     bool
	IsFlashSale      bool
	FlashSaleEnd     *time.Time
	Images           [][]byte
}

func (in *CreateProductInput) validate() error {
	if in.Name == "" {
		return apperr.Validation("product name is required")
	}
	if in.Price <= 0 {
		return apperr.Validation("product price must be positive")
	}
	if in.Stock < 0 {
		return apperr.Validation("product stock must not be negative")
	}
	return nil
}

// Create 管理端创建商品，图片先传图床再落库
func (s *ProductService) Create(ctx context.Context, ownerID int64, in *CreateProductInput) (*product.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &product.Product{
		Name:             in.Name,
		Description:      in.Description,
		Brand:            in.Brand,
		Category:         in.Category,
		Price:            in.Price,
		Stock:            in.Stock,
		MaxOrderQuantity: in.MaxOrderQuantity,
		Tags:             in.Tags,
		IsPopular:        in.IsPopular,
		IsBestSeller:     in.IsBestSeller,
		IsFlashSale:      in.IsFlashSale,
		FlashSaleEnd:     in.FlashSaleEnd,
		IsOutOfStock:     in.Stock == 0,
		OwnerID:          ownerID,
	}
	if p.MaxOrderQuantity <= 0 {
		p.MaxOrderQuantity = 10
	}
	p.ApplySale(in.SalePrice)

	for _, data := range in.Images {
		img, err := s.images.Upload(ctx, data, "products")
		if err != nil {
			return nil, apperr.Upstream("image upload failed")
		}
		p.Images = append(p.Images, product.Image{PublicID: img.PublicID, URL: img.URL})
	}

	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProductInput 管理端改品请求，nil 字段表示不修改
type UpdateProductInput struct {
	Name             *string
	Description      *string
	Brand            *string
	Category         *string
	Price            *int64
	SalePrice        *int64
	Stock            *int64
	MaxOrderQuantity *int64
	Tags             *string
	IsPopular        *bool
	IsBestSeller     *bool
	IsFlashSale      *bool
	FlashSaleEnd     *time.Time
	Images           [][]byte
}

// Update 管理端更新商品。传了新图则替换整组旧图。
func (s *ProductService) Update(ctx context.Context, id int64, in *UpdateProductInput) (*product.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, err
	}

	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Brand != nil {
		p.Brand = *in.Brand
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Price != nil {
		if *in.Price <= 0 {
			return nil, apperr.Validation("product price must be positive")
		}
		p.Price = *in.Price
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return nil, apperr.Validation("product stock must not be negative")
		}
		p.Stock = *in.Stock
		p.IsOutOfStock = p.Stock == 0
	}
	if in.MaxOrderQuantity != nil && *in.MaxOrderQuantity > 0 {
		p.MaxOrderQuantity = *in.MaxOrderQuantity
	}
	if in.Tags != nil {
		p.Tags = *in.Tags
	}
	if in.IsPopular != nil {
		p.IsPopular = *in.IsPopular
	}
	if in.IsBestSeller != nil {
		p.IsBestSeller = *in.IsBestSeller
	}
	if in.IsFlashSale != nil {
		p.IsFlashSale = *in.IsFlashSale
	}
	if in.FlashSaleEnd != nil {
		p.FlashSaleEnd = in.FlashSaleEnd
	}
	if in.SalePrice != nil {
		p.ApplySale(*in.SalePrice)
	} else if in.Price != nil {
		// 原价变了要按当前促销价重算折扣
		p.ApplySale(p.SalePrice)
	}

	if len(in.Images) > 0 {
		for _, old := range p.Images {
			if err := s.images.Destroy(ctx, old.PublicID); err != nil {
				s.log.Warn("destroy old image failed",
					zap.String("public_id", old.PublicID),
					zap.Error(err))
			}
		}
		p.Images = p.Images[:0]
		for _, data := range in.Images {
			img, err := s.images.Upload(ctx, data, "products")
			if err != nil {
				return nil, apperr.Upstream("image upload failed")
			}
			p.Images = append(p.Images, product.Image{ProductID: p.ID, PublicID: img.PublicID, URL: img.URL})
		}
	}

	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete 管理端删除商品，连带清理图床图片
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return apperr.NotFound("product not found")
		}
		return err
	}
	for _, img := range p.Images {
		if err := s.images.Destroy(ctx, img.PublicID); err != nil {
			s.log.Warn("destroy image failed",
				zap.String("public_id", img.PublicID),
				zap.Error(err))
		}
	}
	return s.products.Delete(ctx, id)
}

// SaveReview 新增或覆盖当前用户对某商品的评价
func (s *ProductService) SaveReview(ctx context.Context, userID int64, userName string, productID int64, rating int, comment string) (*product.Product, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, err
	}
	return s.products.SaveReview(ctx, &product.Review{
		ProductID: productID,
		UserID:    userID,
		UserName:  userName,
		Rating:    rating,
		Comment:   comment,
	})
}

// ListReviews 某商品的全部评价
func (s *ProductService) ListReviews(ctx context.Context, productID int64) ([]*product.Review, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, err
	}
	return s.products.ListReviews(ctx, productID)
}

// DeleteReview 管理端删除评价并重算均分
func (s *ProductService) DeleteReview(ctx context.Context, productID, reviewID int64) error {
	if err := s.products.DeleteReview(ctx, productID, reviewID); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return apperr.NotFound("review not found")
		}
		return err
	}
	return nil
}
