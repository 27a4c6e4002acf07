package server

import (
	"time"

	"github.com/kataras/iris/v12"

	"github.com/example/goshop/internal/apperr"
	"github.com/example/goshop/internal/datamodels/order"
	"github.com/example/goshop/internal/middleware"
	"github.com/example/goshop/internal/service"
)

type adminDeps struct {
	products      *service.ProductService
	orders        *service.OrderService
	users         *service.UserService
	currentUserID func(iris.Context) int64
	isAdmin       func(iris.Context) bool
}

// registerAdminRoutes 管理端接口，挂在登录态路由下并额外校验角色
func registerAdminRoutes(parent iris.Party, deps adminDeps) {
	admin := parent.Party("/admin", func(ctx iris.Context) {
		if !deps.isAdmin(ctx) {
			fail(ctx, apperr.Forbidden("admin access required"))
			return
		}
		ctx.Next()
	})

	// ---------- 商品管理 ----------

	admin.Get("/products", func(ctx iris.Context) {
		list, err := deps.products.ListAll(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"products": list})
	})

	type productReq struct {
		Name             string   `json:"name"`
		Description      string   `json:"description"`
		Brand            string   `json:"brand"`
		Category         string   `json:"category"`
		Price            *int64   `json:"price"`
		SalePrice        *int64   `json:"salePrice"`
		Stock            *int64   `json:"stock"`
		MaxOrderQuantity *int64   `json:"maxOrderQuantity"`
		Tags             *string  `json:"tags"`
		IsPopular        *bool    `json:"isPopular"`
		IsBestSeller     *bool    `json:"isBestSeller"`
		IsFlashSale      *bool    `json:"isFlashSale"`
		FlashSaleEnd     *string  `json:"flashSaleEnd"`
		Images           []string `json:"images"`
	}

	parseFlashSaleEnd := func(raw *string) (*time.Time, error) {
		if raw == nil || *raw == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339, *raw)
		if err != nil {
			return nil, apperr.Validation("flashSaleEnd must be RFC3339")
		}
		return &t, nil
	}

	admin.Post("/products", func(ctx iris.Context) {
		var req productReq
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, apperr.Validation(err.Error()))
			return
		}
		images, err := decodeImages(req.Images)
		if err != nil {
			fail(ctx, err)
			return
		}
		end, err := parseFlashSaleEnd(req.FlashSaleEnd)
		if err != nil {
			fail(ctx, err)
			return
		}

		in := &service.CreateProductInput{
			Name:         req.Name,
			Description:  req.Description,
			Brand:        req.Brand,
			Category:     req.Category,
			FlashSaleEnd: end,
			Images:       images,
		}
		if req.Price != nil {
			in.Price = *req.Price
		}
		if req.SalePrice != nil {
			in.SalePrice = *req.SalePrice
		}
		if req.Stock != nil {
			in.Stock = *req.Stock
		}
		if req.MaxOrderQuantity != nil {
			in.MaxOrderQuantity = *req.MaxOrderQuantity
		}
		if req.Tags != nil {
			in.Tags = *req.Tags
		}
		if req.IsPopular != nil {
			in.IsPopular = *req.IsPopular
		}
		if req.IsBestSeller != nil {
			in.IsBestSeller = *req.IsBestSeller
		}
		if req.IsFlashSale != nil {
			in.IsFlashSale = *req.IsFlashSale
		}

		p, err := deps.products.Create(ctx.Request().Context(), deps.currentUserID(ctx), in)
		if err != nil {
			fail(ctx, err)
			return
		}
		ctx.StatusCode(iris.StatusCreated)
		ok(ctx, iris.Map{"product": p})
	})

	admin.Put("/products/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		var req productReq
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, apperr.Validation(err.Error()))
			return
		}
		images, err := decodeImages(req.Images)
		if err != nil {
			fail(ctx, err)
			return
		}
		end, err := parseFlashSaleEnd(req.FlashSaleEnd)
		if err != nil {
			fail(ctx, err)
			return
		}

		in := &service.UpdateProductInput{
			Price:            req.Price,
			SalePrice:        req.SalePrice,
			Stock:            req.Stock,
			MaxOrderQuantity: req.MaxOrderQuantity,
			Tags:             req.Tags,
			IsPopular:        req.IsPopular,
			IsBestSeller:     req.IsBestSeller,
			IsFlashSale:      req.IsFlashSale,
			FlashSaleEnd:     end,
			Images:           images,
		}
		if req.Name != "" {
			in.Name = &req.Name
		}
		if req.Description != "" {
			in.Description = &req.Description
		}
		if req.Brand != "" {
			in.Brand = &req.Brand
		}
		if req.Category != "" {
			in.Category = &req.Category
		}

		p, err := deps.products.Update(ctx.Request().Context(), id, in)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"product": p})
	})

	admin.Delete("/products/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		if err := deps.products.Delete(ctx.Request().Context(), id); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"message": "product deleted"})
	})

	admin.Delete("/products/{productId:int64}/reviews/{id:int64}", func(ctx iris.Context) {
		pid, _ := ctx.Params().GetInt64("productId")
		id, _ := ctx.Params().GetInt64("id")
		if err := deps.products.DeleteReview(ctx.Request().Context(), pid, id); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"message": "review deleted"})
	})

	// ---------- 订单管理 ----------

	admin.Get("/orders", func(ctx iris.Context) {
		list, total, err := deps.orders.ListAll(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"orders": list, "totalAmount": total})
	})

	admin.Put("/order/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		var req struct {
			Status order.Status `json:"status"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, apperr.Validation(err.Error()))
			return
		}
		o, err := deps.orders.UpdateStatus(ctx.Request().Context(), id, req.Status)
		middleware.RecordOrderOperation("update_status", err == nil)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"order": o})
	})

	admin.Delete("/order/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		err := deps.orders.Delete(ctx.Request().Context(), id)
		middleware.RecordOrderOperation("delete", err == nil)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"message": "order deleted"})
	})

	// ---------- 用户管理 ----------

	admin.Get("/users", func(ctx iris.Context) {
		list, err := deps.users.ListAll(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"users": list})
	})

	admin.Get("/users/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		u, err := deps.users.Get(ctx.Request().Context(), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"user": u})
	})

	admin.Put("/users/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		var req struct {
			Role string `json:"role"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, apperr.Validation(err.Error()))
			return
		}
		u, err := deps.users.UpdateRole(ctx.Request().Context(), deps.currentUserID(ctx), id, req.Role)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"user": u})
	})

	admin.Delete("/users/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		if err := deps.users.DeleteUser(ctx.Request().Context(), id); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"message": "user deleted"})
	})
}
