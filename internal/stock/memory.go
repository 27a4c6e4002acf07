package stock

import (
	"context"
	"errors"
	"sync"

	"github.com/example/goshop/internal/datamodels/product"
)

// MemoryReserver 单写者串行化的库存预占器：所有预占经过同一把锁，
// 并发下不可能超卖。生产环境用数据库行锁版本（repository/mysql），
// 这个实现用于测试和无数据库的本地开发。
type MemoryReserver struct {
	mu       sync.Mutex
	products product.Repository
}

func NewMemoryReserver(products product.Repository) *MemoryReserver {
	return &MemoryReserver{products: products}
}

// Reserve 两阶段：先校验全部行项目，再统一提交扣减
func (m *MemoryReserver) Reserve(ctx context.Context, items []Item) error {
	items = Merge(items)

	m.mu.Lock()
	defer m.mu.Unlock()

	checked := make([]*product.Product, len(items))
	for i, it := range items {
		p, err := m.products.GetByID(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return &Error{Reason: ReasonNotFound, ProductID: it.ProductID, Name: it.Name}
			}
			return err
		}
		if err := Validate(p, it); err != nil {
			return err
		}
		checked[i] = p
	}

	for i, it := range items {
		p := checked[i]
		p.Stock -= it.Quantity
		p.IsOutOfStock = p.Stock == 0
		if err := m.products.Update(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
