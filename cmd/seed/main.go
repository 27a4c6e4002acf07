package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/example/goshop/internal/auth"
	"github.com/example/goshop/internal/config"
	"github.com/example/goshop/internal/datamodels/product"
	"github.com/example/goshop/internal/datamodels/user"
	"github.com/example/goshop/internal/repository/mysql"
)

// 开发环境初始化脚本：建一个管理员账号和一批演示商品
func main() {
	configPath := flag.String("config", "", "配置文件所在目录")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := mysql.Open(&cfg.MySQL)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}

	ctx := context.Background()
	userRepo := mysql.NewUserRepository(db)
	productRepo := mysql.NewProductRepository(db)

	if _, err := userRepo.GetByEmail(ctx, "admin@example.com"); errors.Is(err, user.ErrNotFound) {
		salt := make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			log.Fatalf("failed to generate salt: %v", err)
		}
		saltHex := hex.EncodeToString(salt)
		sum := sha256.Sum256([]byte("admin123" + saltHex))
		admin := &user.User{
			Name:     "admin",
			Email:    "admin@example.com",
			Salt:     saltHex,
			Password: hex.EncodeToString(sum[:]),
			Role:     auth.RoleAdmin,
		}
		if err := userRepo.Create(ctx, admin); err != nil {
			log.Fatalf("failed to create admin: %v", err)
		}
		log.Println("created admin user admin@example.com / admin123")
	}

	flashEnd := time.Now().Add(48 * time.Hour)
	products := []*product.Product{
		{Name: "Classic White Tee", Description: "Soft cotton crew neck", Brand: "Acme", Category: "men", Price: 1990, Stock: 120, MaxOrderQuantity: 10, Tags: "tshirt,cotton,basics", IsPopular: true},
		{Name: "Slim Fit Jeans", Description: "Stretch denim, mid rise", Brand: "Acme", Category: "men", Price: 4990, Stock: 80, MaxOrderQuantity: 5, Tags: "jeans,denim", IsBestSeller: true},
		{Name: "Summer Floral Dress", Description: "Lightweight midi dress", Brand: "Bloom", Category: "women", Price: 5990, Stock: 60, MaxOrderQuantity: 5, Tags: "dress,summer", IsPopular: true},
		{Name: "Leather Belt", Description: "Full grain leather", Brand: "Craft", Category: "accessories", Price: 2490, Stock: 200, MaxOrderQuantity: 10, Tags: "belt,leather"},
		{Name: "Canvas Sneakers", Description: "Low top, rubber sole", Brand: "Stride", Category: "men", Price: 3990, Stock: 90, MaxOrderQuantity: 5, Tags: "shoes,sneakers", IsBestSeller: true},
		{Name: "Wool Scarf", Description: "Merino wool, plaid", Brand: "Craft", Category: "accessories", Price: 2990, Stock: 40, MaxOrderQuantity: 10, Tags: "scarf,winter", IsFlashSale: true, FlashSaleEnd: &flashEnd},
	}
	for _, p := range products {
		if p.MaxOrderQuantity <= 0 {
			p.MaxOrderQuantity = 10
		}
		p.ApplySale(p.SalePrice)
		if err := productRepo.Create(ctx, p); err != nil {
			log.Fatalf("failed to create product %q: %v", p.Name, err)
		}
	}
	log.Printf("seeded %d products", len(products))
}
