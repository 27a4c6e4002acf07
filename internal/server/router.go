package server

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/kataras/iris/v12"
	radix "github.com/mediocregopher/radix/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/goshop/internal/apperr"
	"github.com/example/goshop/internal/auth"
	"github.com/example/goshop/internal/config"
	"github.com/example/goshop/internal/datamodels/product"
	"github.com/example/goshop/internal/datamodels/user"
	"github.com/example/goshop/internal/imagestore"
	"github.com/example/goshop/internal/infra/mq"
	"github.com/example/goshop/internal/mailer"
	"github.com/example/goshop/internal/middleware"
	"github.com/example/goshop/internal/repository/mysql"
	"github.com/example/goshop/internal/service"
)

const tokenCookie = "token"

// ok 统一成功响应：{"success": true, ...}
func ok(ctx iris.Context, payload iris.Map) {
	body := iris.Map{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	_ = ctx.JSON(body)
}

// fail 统一错误响应：{"success": false, "message": "..."}
func fail(ctx iris.Context, err error) {
	ctx.StopWithJSON(apperr.StatusOf(err), iris.Map{
		"success": false,
		"message": err.Error(),
	})
}

// decodeImages 解析请求里的 base64 图片，兼容 data URL 前缀
func decodeImages(raw []string) ([][]byte, error) {
	out := make([][]byte, 0, len(raw))
	for _, s := range raw {
		if i := strings.Index(s, ";base64,"); i >= 0 {
			s = s[i+len(";base64,"):]
		}
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, apperr.Validation("invalid image data")
		}
		out = append(out, data)
	}
	return out, nil
}

func setTokenCookie(ctx iris.Context, token string, expireHours int) {
	if expireHours <= 0 {
		expireHours = 24
	}
	ctx.SetCookie(&http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Now().Add(time.Duration(expireHours) * time.Hour),
	})
}

// RegisterRoutes 注册所有 HTTP 路由。基础设施句柄由 main 打开后传入。
func RegisterRoutes(app *iris.Application, cfg *config.Config, db *gorm.DB, redisClient radix.Client, mqConn *amqp.Connection, log *zap.Logger) {
	// 仓储
	userRepo := mysql.NewUserRepository(db)
	productRepo := mysql.NewProductRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	notificationRepo := mysql.NewNotificationRepository(db)
	searchRepo := mysql.NewSearchRepository(db)
	helpRepo := mysql.NewHelpRepository(db)

	reserver := mysql.NewStockReserver(db)

	// 外部依赖
	mail := mailer.NewLogMailer(log)
	images := imagestore.NewLogStore(log, "")
	var publisher service.EventPublisher
	if mqConn != nil {
		publisher = mq.NewPublisher(mqConn)
	}

	// 服务
	userSvc := service.NewUserService(userRepo, productRepo, &cfg.JWT, mail, images, log)
	productSvc := service.NewProductService(productRepo, images, log)
	orderSvc := service.NewOrderService(orderRepo, reserver, publisher, log)
	searchSvc := service.NewSearchService(productRepo, searchRepo, redisClient, log)
	notificationSvc := service.NewNotificationService(notificationRepo)
	helpSvc := service.NewHelpService(helpRepo)

	// JWT 解析结果缓存
	ring := auth.NewConsistentHashRing(cfg.Auth.Nodes, cfg.Auth.HashReplicas)
	tokenCache := auth.NewTokenCache(redisClient, ring, time.Duration(cfg.Auth.TokenCacheTTLSeconds)*time.Second)

	// 业务错误和 panic 统一渲染成 JSON 信封
	app.OnAnyErrorCode(func(ctx iris.Context) {
		_ = ctx.JSON(iris.Map{
			"success": false,
			"message": http.StatusText(ctx.GetStatusCode()),
		})
	})

	app.Get("/metrics", iris.FromStd(promhttp.Handler()))

	api := app.Party("/api/v1")

	api.Get("/health", func(ctx iris.Context) {
		ok(ctx, iris.Map{"status": "ok"})
	})

	// ---------- 登录态中间件 ----------
	// token 优先取 cookie，其次 Authorization: Bearer。
	// 解析结果走 Redis 缓存，未命中再做签名校验。
	requireAuth := func(ctx iris.Context) {
		token := ctx.GetCookie(tokenCookie)
		if token == "" {
			header := ctx.GetHeader("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				token = strings.TrimPrefix(header, "Bearer ")
			}
		}
		if token == "" {
			fail(ctx, apperr.Unauthorized("please login to access this resource"))
			return
		}

		claims, hit, err := tokenCache.Get(ctx.Request().Context(), token)
		if err != nil {
			log.Warn("token cache lookup failed", zap.Error(err))
		}
		if !hit {
			claims, err = auth.ParseToken(&cfg.JWT, token)
			if err != nil {
				fail(ctx, apperr.Unauthorized("invalid or expired token"))
				return
			}
			if err := tokenCache.Set(ctx.Request().Context(), token, claims); err != nil {
				log.Warn("token cache store failed", zap.Error(err))
			}
		}

		ctx.Values().Set("user_id", claims.UserID)
		ctx.Values().Set("user_name", claims.Name)
		ctx.Values().Set("user_role", claims.Role)
		ctx.Next()
	}

	currentUserID := func(ctx iris.Context) int64 {
		return ctx.Values().GetInt64Default("user_id", 0)
	}
	isAdmin := func(ctx iris.Context) bool {
		return ctx.Values().GetStringDefault("user_role", auth.RoleUser) == auth.RoleAdmin
	}

	// ---------- 注册 / 登录 ----------

	api.Post("/register", middleware.LoginRateLimit(), func(ctx iris.Context) {
		var req struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
			Avatar   string `json:"avatar"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, apperr.Validation(err.Error()))
			return
		}
		var avatar []byte
		if req.Avatar != "" {
			imgs, err := decodeImages([]string{req.Avatar})
			if err != nil {
				fail(ctx, err)
				return
			}
			avatar = imgs[0]
		}
		u, token, err := userSvc.Register(ctx.Request().Context(), req.Name, req.Email, req.Password, avatar)
		if err != nil {
			fail(ctx, err)
			return
		}
		setTokenCookie(ctx, token, cfg.JWT.ExpireHours)
		ctx.StatusCode(iris.StatusCreated)
		ok(ctx, iris.Map{"user": u, "token": token})
	})

	api.Post("/login", middleware.LoginRateLimit(), func(ctx iris.Context) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, apperr.Validation(err.Error()))
			return
		}
		u, token, err := userSvc.Login(ctx.Request().Context(), req.Email, req.Password)
		if err != nil {
			fail(ctx, err)
			return
		}
		setTokenCookie(ctx, token, cfg.JWT.ExpireHours)
		ok(ctx, iris.Map{"user": u, "token": token})
	})

	api.Get("/logout", func(ctx iris.Context) {
		ctx.RemoveCookie(tokenCookie)
		ok(ctx, iris.Map{"message": "logged out"})
	})

	api.Post("/password/forgot", func(ctx iris.Context) {
		var req struct {
			Email string `json:"email"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, apperr.Validation(err.Error()))
			return
		}
		if err := userSvc.ForgotPassword(ctx.Request().Context(), req.Email); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"message": "recovery email sent if the address is registered"})
	})

	api.Put("/password/reset/{token}", func(ctx iris.Context) {
		var req struct {
			Password        string `json:"password"`
			ConfirmPassword string `json:"confirmPassword"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, apperr.Validation(err.Error()))
			return
		}
		u, token, err := userSvc.ResetPassword(ctx.Request().Context(), ctx.Params().Get("token"), req.Password, req.ConfirmPassword)
		if err != nil {
			fail(ctx, err)
			return
		}
		setTokenCookie(ctx, token, cfg.JWT.ExpireHours)
		ok(ctx, iris.Map{"user": u, "token": token})
	})

	// ---------- 商品目录（公开） ----------

	api.Get("/products", func(ctx iris.Context) {
		params := product.ListParams{
			Keyword:  ctx.URLParam("keyword"),
			Category: ctx.URLParam("category"),
			Brand:    ctx.URLParam("brand"),
			Tag:      ctx.URLParam("tag"),
			Page:     ctx.URLParamIntDefault("page", 1),
			PerPage:  ctx.URLParamIntDefault("perPage", 0),
		}
		page, err := productSvc.List(ctx.Request().Context(), params)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{
			"products":      page.Products,
			"productsCount": page.Count,
			"resultPerPage": page.PerPage,
		})
	})

	api.Get("/products/popular", func(ctx iris.Context) {
		list, err := productSvc.ListPopular(ctx.Request().Context(), ctx.URLParamIntDefault("limit", 8))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"products": list})
	})

	api.Get("/products/bestsellers", func(ctx iris.Context) {
		list, err := productSvc.ListBestSellers(ctx.Request().Context(), ctx.URLParamIntDefault("limit", 8))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"products": list})
	})

	api.Get("/products/flashsale", func(ctx iris.Context) {
		list, err := productSvc.ListFlashSale(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"products": list})
	})

	api.Get("/products/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		p, err := productSvc.Get(ctx.Request().Context(), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"product": p})
	})

	api.Get("/products/{id:int64}/reviews", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		reviews, err := productSvc.ListReviews(ctx.Request().Context(), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"reviews": reviews})
	})

	api.Get("/categories", func(ctx iris.Context) {
		list, err := productSvc.ListCategories(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"categories": list})
	})

	// ---------- 搜索 ----------

	api.Get("/search", func(ctx iris.Context) {
		// 搜索对游客开放，登录用户才记最近搜索
		var userID int64
		if token := ctx.GetCookie(tokenCookie); token != "" {
			if claims, err := auth.ParseToken(&cfg.JWT, token); err == nil {
				userID = claims.UserID
			}
		}
		params := product.ListParams{
			Keyword: ctx.URLParam("keyword"),
			Page:    ctx.URLParamIntDefault("page", 1),
			PerPage: ctx.URLParamIntDefault("perPage", 0),
		}
		list, count, err := searchSvc.Search(ctx.Request().Context(), userID, params)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"products": list, "productsCount": count})
	})

	api.Get("/search/popular", func(ctx iris.Context) {
		list, err := searchSvc.Popular(ctx.Request().Context(), ctx.URLParamIntDefault("limit", 10))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"searches": list})
	})

	// ---------- 帮助中心（FAQ 公开） ----------

	api.Get("/faqs", func(ctx iris.Context) {
		list, err := helpSvc.ListFaqs(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"faqs": list})
	})

	// ---------- 需要登录的接口 ----------

	authAPI := api.Party("/", requireAuth)

	authAPI.Get("/me", func(ctx iris.Context) {
		u, err := userSvc.Get(ctx.Request().Context(), currentUserID(ctx))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"user": u})
	})

	authAPI.Put("/me/update", func(ctx iris.Context) {
		var req struct {
			Name   string `json:"name"`
			Email  string `json:"email"`
			Avatar string `json:"avatar"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, apperr.Validation(err.Error()))
			return
		}
		var avatar []byte
		if req.Avatar != "" {
			imgs, err := decodeImages([]string{req.Avatar})
			if err != nil {
				fail(ctx, err)
				return
			}
			avatar = imgs[0]
		}
		u, err := userSvc.UpdateProfile(ctx.Request().Context(), currentUserID(ctx), req.Name, req.Email, avatar)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"user": u})
	})

	authAPI.Put("/password/update", func(ctx iris.Context) {
		var req struct {
			OldPassword string `json:"oldPassword"`
			NewPassword string `json:"newPassword"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, apperr.Validation(err.Error()))
			return
		}
		if err := userSvc.UpdatePassword(ctx.Request().Context(), currentUserID(ctx), req.OldPassword, req.NewPassword); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"message": "password updated"})
	})

	// ---------- 订单 ----------

	authAPI.Post("/order/new", middleware.OrderRateLimit(), func(ctx iris.Context) {
		var in service.CreateOrderInput
		if err := ctx.ReadJSON(&in); err != nil {
			fail(ctx, apperr.Validation(err.Error()))
			return
		}
		o, err := orderSvc.Create(ctx.Request().Context(), currentUserID(ctx), &in)
		middleware.RecordOrderOperation("create", err == nil)
		if err != nil {
			fail(ctx, err)
			return
		}
		ctx.StatusCode(iris.StatusCreated)
		ok(ctx, iris.Map{"order": o})
	})

	authAPI.Get("/orders/me", func(ctx iris.Context) {
		list, err := orderSvc.ListMine(ctx.Request().Context(), currentUserID(ctx))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"orders": list})
	})

	authAPI.Get("/order/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		o, err := orderSvc.Get(ctx.Request().Context(), currentUserID(ctx), isAdmin(ctx), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"order": o})
	})

	// ---------- 评价 ----------

	authAPI.Put("/review", func(ctx iris.Context) {
		var req struct {
			ProductID int64  `json:"productId"`
			Rating    int    `json:"rating"`
			Comment   string `json:"comment"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, apperr.Validation(err.Error()))
			return
		}
		name := ctx.Values().GetStringDefault("user_name", "")
		p, err := productSvc.SaveReview(ctx.Request().Context(), currentUserID(ctx), name, req.ProductID, req.Rating, req.Comment)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"product": p})
	})

	// ---------- 购物车 ----------

	authAPI.Get("/cart", func(ctx iris.Context) {
		list, err := userSvc.ListCart(ctx.Request().Context(), currentUserID(ctx))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"cart": list})
	})

	authAPI.Post("/cart", func(ctx iris.Context) {
		var req struct {
			ProductID int64 `json:"productId"`
			Quantity  int64 `json:"quantity"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, apperr.Validation(err.Error()))
			return
		}
		if err := userSvc.SaveCartItem(ctx.Request().Context(), currentUserID(ctx), req.ProductID, req.Quantity); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"message": "cart updated"})
	})

	authAPI.Delete("/cart/{productId:int64}", func(ctx iris.Context) {
		pid, _ := ctx.Params().GetInt64("productId")
		if err := userSvc.DeleteCartItem(ctx.Request().Context(), currentUserID(ctx), pid); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"message": "item removed"})
	})

	// ---------- 收藏 ----------

	authAPI.Get("/bookmarks", func(ctx iris.Context) {
		list, err := userSvc.ListBookmarks(ctx.Request().Context(), currentUserID(ctx))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"bookmarks": list})
	})

	authAPI.Post("/bookmarks/{productId:int64}", func(ctx iris.Context) {
		pid, _ := ctx.Params().GetInt64("productId")
		bookmarked, err := userSvc.ToggleBookmark(ctx.Request().Context(), currentUserID(ctx), pid)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"bookmarked": bookmarked})
	})

	// ---------- 地址 ----------

	authAPI.Get("/addresses", func(ctx iris.Context) {
		list, err := userSvc.ListAddresses(ctx.Request().Context(), currentUserID(ctx))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"addresses": list})
	})

	authAPI.Post("/addresses", func(ctx iris.Context) {
		var addr user.Address
		if err := ctx.ReadJSON(&addr); err != nil {
			fail(ctx, apperr.Validation(err.Error()))
			return
		}
		saved, err := userSvc.SaveAddress(ctx.Request().Context(), currentUserID(ctx), &addr)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"address": saved})
	})

	authAPI.Delete("/addresses/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		if err := userSvc.DeleteAddress(ctx.Request().Context(), currentUserID(ctx), id); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"message": "address removed"})
	})

	// ---------- 最近搜索 ----------

	authAPI.Get("/search/recent", func(ctx iris.Context) {
		list, err := searchSvc.Recent(ctx.Request().Context(), currentUserID(ctx), ctx.URLParamIntDefault("limit", 5))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"searches": list})
	})

	// ---------- 通知 ----------

	authAPI.Get("/notifications", func(ctx iris.Context) {
		list, err := notificationSvc.ListMine(ctx.Request().Context(), currentUserID(ctx))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"notifications": list})
	})

	authAPI.Put("/notifications/{id:int64}/read", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		n, err := notificationSvc.MarkRead(ctx.Request().Context(), currentUserID(ctx), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"notification": n})
	})

	// ---------- 工单 ----------

	authAPI.Post("/tickets", func(ctx iris.Context) {
		var req struct {
			Subject string `json:"subject"`
			Message string `json:"message"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, apperr.Validation(err.Error()))
			return
		}
		t, err := helpSvc.CreateTicket(ctx.Request().Context(), currentUserID(ctx), req.Subject, req.Message)
		if err != nil {
			fail(ctx, err)
			return
		}
		ctx.StatusCode(iris.StatusCreated)
		ok(ctx, iris.Map{"ticket": t})
	})

	authAPI.Get("/tickets", func(ctx iris.Context) {
		list, err := helpSvc.ListMyTickets(ctx.Request().Context(), currentUserID(ctx))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"tickets": list})
	})

	authAPI.Put("/tickets/{id:int64}/close", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		t, err := helpSvc.CloseTicket(ctx.Request().Context(), currentUserID(ctx), isAdmin(ctx), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"ticket": t})
	})

	// 管理端
	registerAdminRoutes(authAPI, adminDeps{
		products:      productSvc,
		orders:        orderSvc,
		users:         userSvc,
		currentUserID: currentUserID,
		isAdmin:       isAdmin,
	})
}
