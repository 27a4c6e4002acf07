// Package stock 实现订单库存预占：对一批行项目先全量校验、再全量扣减，
// 任何一项失败则整批不落任何变更。
package stock

import (
	"context"
	"fmt"

	"github.com/example/goshop/internal/datamodels/product"
)

// Item 待预占的行项目，Name 用于拼错误提示
type Item struct {
	ProductID int64
	Name      string
	Quantity  int64
}

// Reason 预占失败原因
type Reason int

const (
	ReasonNotFound Reason = iota
	ReasonOutOfStock
	ReasonExceedsMax
	ReasonInsufficient
)

// Error 带商品信息的预占失败错误
type Error struct {
	Reason    Reason
	ProductID int64
	Name      string
	Max       int64 // 仅 ReasonExceedsMax 时有效
}

func (e *Error) Error() string {
	switch e.Reason {
	case ReasonNotFound:
		return fmt.Sprintf("product not found: %s", e.Name)
	case ReasonOutOfStock:
		return fmt.Sprintf("product is out of stock: %s", e.Name)
	case ReasonExceedsMax:
		return fmt.Sprintf("order quantity for %s exceeds maximum allowed: %d", e.Name, e.Max)
	case ReasonInsufficient:
		return fmt.Sprintf("insufficient stock for product: %s", e.Name)
	}
	return "stock reservation failed"
}

// Reserver 库存预占器。Reserve 必须保证整批原子性：
// 要么每一项都扣减成功，要么库存完全不变。
type Reserver interface {
	Reserve(ctx context.Context, items []Item) error
}

// Validate 单项校验，校验顺序与对外错误优先级一致：
// 缺货标记 → 限购上限 → 剩余库存。
func Validate(p *product.Product, it Item) error {
	if p.IsOutOfStock {
		return &Error{Reason: ReasonOutOfStock, ProductID: p.ID, Name: p.Name}
	}
	if it.Quantity > p.MaxOrderQuantity {
		return &Error{Reason: ReasonExceedsMax, ProductID: p.ID, Name: p.Name, Max: p.MaxOrderQuantity}
	}
	if it.Quantity > p.Stock {
		return &Error{Reason: ReasonInsufficient, ProductID: p.ID, Name: p.Name}
	}
	return nil
}

// Merge 合并同一商品的多个行项目。
// 不合并的话，同单重复商品会各自按扣减前的库存校验，可能超卖。
func Merge(items []Item) []Item {
	merged := make([]Item, 0, len(items))
	index := make(map[int64]int, len(items))
	for _, it := range items {
		if i, ok := index[it.ProductID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	return merged
}
