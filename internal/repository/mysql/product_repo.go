package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/example/goshop/internal/datamodels/product"
)

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) product.Repository {
	return &productRepo{db: db}
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	var p product.Product
	if err := r.db.WithContext(ctx).Preload("Images").First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) List(ctx context.Context, params product.ListParams) ([]*product.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&product.Product{})
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", kw, kw)
	}
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.Brand != "" {
		query = query.Where("brand = ?", params.Brand)
	}
	if params.Tag != "" {
		query = query.Where("tags LIKE ?", "%"+params.Tag+"%")
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if params.PerPage > 0 {
		page := params.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * params.PerPage).Limit(params.PerPage)
	}

	var list []*product.Product
	if err := query.Preload("Images").Order("id DESC").Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, count, nil
}

func (r *productRepo) ListAll(ctx context.Context) ([]*product.Product, error) {
	var list []*product.Product
	if err := r.db.WithContext(ctx).Preload("Images").Order("id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepo) ListByCategory(ctx context.Context, category string) ([]*product.Product, error) {
	return r.listWhere(ctx, "category = ?", category)
}

func (r *productRepo) ListByBrand(ctx context.Context, brand string) ([]*product.Product, error) {
	return r.listWhere(ctx, "brand = ?", brand)
}

func (r *productRepo) ListByTag(ctx context.Context, tag string) ([]*product.Product, error) {
	return r.listWhere(ctx, "tags LIKE ?", "%"+tag+"%")
}

func (r *productRepo) ListPopular(ctx context.Context, limit int) ([]*product.Product, error) {
	return r.listFlagged(ctx, "is_popular", limit)
}

func (r *productRepo) ListBestSellers(ctx context.Context, limit int) ([]*product.Product, error) {
	return r.listFlagged(ctx, "is_best_seller", limit)
}

func (r *productRepo) ListFlashSale(ctx context.Context, now time.Time) ([]*product.Product, error) {
	var list []*product.Product
	if err := r.db.WithContext(ctx).
		Preload("Images").
		Where("is_flash_sale = ? AND flash_sale_end >= ?", true, now).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepo) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := r.db.WithContext(ctx).
		Model(&product.Product{}).
		Distinct("category").
		Where("category <> ''").
		Pluck("category", &categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *productRepo) listWhere(ctx context.Context, cond string, arg interface{}) ([]*product.Product, error) {
	var list []*product.Product
	if err := r.db.WithContext(ctx).
		Preload("Images").
		Where(cond, arg).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepo) listFlagged(ctx context.Context, column string, limit int) ([]*product.Product, error) {
	if limit <= 0 {
		limit = 10
	}
	var list []*product.Product
	if err := r.db.WithContext(ctx).
		Preload("Images").
		Where(column+" = ?", true).
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepo) Create(ctx context.Context, p *product.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) Update(ctx context.Context, p *product.Product) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(p).Error
}

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&product.Image{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&product.Review{}).Error; err != nil {
			return err
		}
		return tx.Delete(&product.Product{}, id).Error
	})
}

// SaveReview 同一事务内写入评价并重算商品的均分与评价数，
// 保证冗余存储的聚合值不会漂移。
func (r *productRepo) SaveReview(ctx context.Context, review *product.Review) (*product.Product, error) {
	var p product.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, review.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return product.ErrNotFound
			}
			return err
		}

		var existing product.Review
		err := tx.Where("product_id = ? AND user_id = ?", review.ProductID, review.UserID).
			First(&existing).Error
		switch {
		case err == nil:
			existing.Rating = review.Rating
			existing.Comment = review.Comment
			existing.UserName = review.UserName
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			*review = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(review).Error; err != nil {
				return err
			}
		default:
			return err
		}

		return recomputeRating(tx, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) DeleteReview(ctx context.Context, productID, reviewID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p product.Product
		if err := tx.First(&p, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return product.ErrNotFound
			}
			return err
		}
		if err := tx.Where("product_id = ?", productID).Delete(&product.Review{}, reviewID).Error; err != nil {
			return err
		}
		return recomputeRating(tx, &p)
	})
}

func (r *productRepo) ListReviews(ctx context.Context, productID int64) ([]*product.Review, error) {
	var list []*product.Review
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func recomputeRating(tx *gorm.DB, p *product.Product) error {
	var reviews []*product.Review
	if err := tx.Where("product_id = ?", p.ID).Find(&reviews).Error; err != nil {
		return err
	}
	p.NumOfReviews = int64(len(reviews))
	if len(reviews) == 0 {
		p.Ratings = 0
	} else {
		var sum int
		for _, rv := range reviews {
			sum += rv.Rating
		}
		p.Ratings = float64(sum) / float64(len(reviews))
	}
	return tx.Model(&product.Product{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"ratings":        p.Ratings,
			"num_of_reviews": p.NumOfReviews,
		}).Error
}
