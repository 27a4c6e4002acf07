package mysql

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/example/goshop/internal/config"
	"github.com/example/goshop/internal/datamodels/help"
	"github.com/example/goshop/internal/datamodels/notification"
	"github.com/example/goshop/internal/datamodels/order"
	"github.com/example/goshop/internal/datamodels/product"
	"github.com/example/goshop/internal/datamodels/search"
	"github.com/example/goshop/internal/datamodels/user"
)

// Open 建立 GORM 连接并自动迁移表结构。
// 连接句柄由调用方持有并传给各仓储，不做包级单例。
func Open(cfg *config.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}

	if err := db.AutoMigrate(
		&user.User{},
		&user.CartItem{},
		&user.Bookmark{},
		&user.Address{},
		&product.Product{},
		&product.Image{},
		&product.Review{},
		&order.Order{},
		&order.Item{},
		&notification.Notification{},
		&search.RecentSearch{},
		&help.Faq{},
		&help.SupportTicket{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return db, nil
}
