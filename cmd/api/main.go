package main

import (
	"flag"
	"log"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/recover"
	"go.uber.org/zap"

	"github.com/example/goshop/internal/config"
	"github.com/example/goshop/internal/infra/mq"
	"github.com/example/goshop/internal/infra/redis"
	"github.com/example/goshop/internal/logger"
	"github.com/example/goshop/internal/middleware"
	"github.com/example/goshop/internal/repository/mysql"
	"github.com/example/goshop/internal/server"
)

func main() {
	configPath := flag.String("config", "", "配置文件所在目录")
	debug := flag.Bool("debug", false, "开发模式日志")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := logger.Init(*debug); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	zlog := zap.L()

	db, err := mysql.Open(&cfg.MySQL)
	if err != nil {
		zlog.Fatal("failed to connect mysql", zap.Error(err))
	}
	redisClient, err := redis.Open(&cfg.Redis)
	if err != nil {
		zlog.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	// MQ 不可用时降级运行，订单事件只丢日志
	mqConn, err := mq.Open(&cfg.RabbitMQ)
	if err != nil {
		zlog.Warn("rabbitmq unavailable, order events disabled", zap.Error(err))
		mqConn = nil
	} else {
		defer mqConn.Close()
	}

	app := iris.New()
	app.Use(recover.New())
	app.Use(middleware.Prometheus())

	server.RegisterRoutes(app, cfg, db, redisClient, mqConn, zlog)

	addr := cfg.Server.Addr()
	zlog.Info("api server listening", zap.String("addr", addr))
	if err := app.Run(iris.Addr(addr)); err != nil {
		zlog.Fatal("failed to run api server", zap.Error(err))
	}
}
