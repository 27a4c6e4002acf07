package mq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/goshop/internal/config"
	"github.com/example/goshop/internal/datamodels/order"
)

// OrderEventQueue 订单事件队列名
const OrderEventQueue = "order_events"

// Open 创建 RabbitMQ 连接
func Open(cfg *config.RabbitMQConfig) (*amqp.Connection, error) {
	return amqp.Dial(cfg.URL)
}

// Publisher 订单事件发布器
type Publisher struct {
	conn *amqp.Connection
}

func NewPublisher(conn *amqp.Connection) *Publisher {
	return &Publisher{conn: conn}
}

// PublishOrderEvent 发布订单事件，每次发布独立开启 channel。
// 调用方决定失败是否降级。
func (p *Publisher) PublishOrderEvent(ctx context.Context, ev *order.Event) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(OrderEventQueue, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(
		ctx,
		"",
		OrderEventQueue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
