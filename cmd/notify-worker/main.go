package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/example/goshop/internal/config"
	"github.com/example/goshop/internal/datamodels/notification"
	"github.com/example/goshop/internal/datamodels/order"
	"github.com/example/goshop/internal/datamodels/user"
	"github.com/example/goshop/internal/infra/mq"
	"github.com/example/goshop/internal/logger"
	"github.com/example/goshop/internal/mailer"
	"github.com/example/goshop/internal/repository/mysql"
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
	mqConn, err := mq.Open(&cfg.RabbitMQ)
	if err != nil {
		zlog.Fatal("failed to connect rabbitmq", zap.Error(err))
	}
	defer mqConn.Close()

	notificationRepo := mysql.NewNotificationRepository(db)
	userRepo := mysql.NewUserRepository(db)
	mail := mailer.NewLogMailer(zlog)

	ch, err := mqConn.Channel()
	if err != nil {
		zlog.Fatal("failed to open channel", zap.Error(err))
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(mq.OrderEventQueue, true, false, false, false, nil); err != nil {
		zlog.Fatal("failed to declare queue", zap.Error(err))
	}

	// 手动确认，处理失败的消息重新入队
	msgs, err := ch.Consume(mq.OrderEventQueue, "", false, false, false, false, nil)
	if err != nil {
		zlog.Fatal("failed to consume", zap.Error(err))
	}

	zlog.Info("notify worker started, waiting for order events")

	for d := range msgs {
		var ev order.Event
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			zlog.Warn("invalid message dropped", zap.Error(err))
			_ = d.Nack(false, false)
			continue
		}
		handleEvent(context.Background(), zlog, notificationRepo, userRepo, mail, &ev, d)
	}
}

// handleEvent 每条订单事件落一条站内通知，并给用户发一封邮件。
// 落库失败重新入队；发信失败只记日志，不阻塞确认。
func handleEvent(ctx context.Context, zlog *zap.Logger, notifications notification.Repository, users user.Repository, mail mailer.Mailer, ev *order.Event, d amqp.Delivery) {
	title, message := renderEvent(ev)

	n := &notification.Notification{
		UserID:  ev.UserID,
		Type:    ev.Type,
		Title:   title,
		Message: message,
	}
	if err := notifications.Create(ctx, n); err != nil {
		zlog.Error("create notification failed",
			zap.Int64("order_id", ev.OrderID),
			zap.Error(err))
		_ = d.Nack(false, true)
		return
	}

	u, err := users.GetByID(ctx, ev.UserID)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			zlog.Warn("load user for mail failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
		}
	} else {
		msg := &mailer.Message{To: u.Email, Subject: title, Body: message}
		if err := mail.Send(ctx, msg); err != nil {
			zlog.Warn("send order mail failed", zap.Int64("order_id", ev.OrderID), zap.Error(err))
		}
	}

	_ = d.Ack(false)
}

func renderEvent(ev *order.Event) (title, message string) {
	switch ev.Type {
	case order.EventCreated:
		title = "Order placed"
		message = fmt.Sprintf("Your order #%d has been placed. Total: $%.2f", ev.OrderID, float64(ev.Total)/100.0)
	case order.EventStatusUpdated:
		title = fmt.Sprintf("Order %s", ev.Status)
		message = fmt.Sprintf("Your order #%d is now %s.", ev.OrderID, ev.Status)
	default:
		title = "Order update"
		message = fmt.Sprintf("Your order #%d has been updated.", ev.OrderID)
	}
	return title, message
}
