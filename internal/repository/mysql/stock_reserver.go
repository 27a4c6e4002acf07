package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/goshop/internal/datamodels/product"
	"github.com/example/goshop/internal/stock"
)

type stockReserver struct {
	db *gorm.DB
}

// NewStockReserver 基于数据库行锁的库存预占器。
// 单个事务内 SELECT ... FOR UPDATE 锁住整批商品行，
// 校验全部通过后再统一扣减，并发下单不会超卖。
func NewStockReserver(db *gorm.DB) stock.Reserver {
	return &stockReserver{db: db}
}

func (r *stockReserver) Reserve(ctx context.Context, items []stock.Item) error {
	items = stock.Merge(items)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 第一阶段：锁行并校验全部行项目
		locked := make([]*product.Product, len(items))
		for i, it := range items {
			var p product.Product
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&p, it.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &stock.Error{Reason: stock.ReasonNotFound, ProductID: it.ProductID, Name: it.Name}
				}
				return err
			}
			if err := stock.Validate(&p, it); err != nil {
				return err
			}
			locked[i] = &p
		}

		// 第二阶段：统一扣减并重算缺货标记，任一失败整个事务回滚
		for i, it := range items {
			p := locked[i]
			p.Stock -= it.Quantity
			p.IsOutOfStock = p.Stock == 0
			if err := tx.Model(&product.Product{}).
				Where("id = ?", p.ID).
				Updates(map[string]interface{}{
					"stock":           p.Stock,
					"is_out_of_stock": p.IsOutOfStock,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
