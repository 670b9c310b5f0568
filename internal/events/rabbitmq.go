package events

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQEmitter 把事件名投递到一个持久化队列。
// 每次 Emit 开独立 channel，发完即关，避免跨 goroutine 复用 channel。
type RabbitMQEmitter struct {
	conn  *amqp.Connection
	queue string
}

// NewRabbitMQEmitter 创建 MQ 事件发射器
func NewRabbitMQEmitter(conn *amqp.Connection, queue string) *RabbitMQEmitter {
	if queue == "" {
		queue = "order_events"
	}
	return &RabbitMQEmitter{conn: conn, queue: queue}
}

func (e *RabbitMQEmitter) Emit(ctx context.Context, name string) error {
	// 主操作已提交，通知单独限时，不吃掉请求剩余的超时额度
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	ch, err := e.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(e.queue, true, false, false, false, nil); err != nil {
		return err
	}

	return ch.PublishWithContext(
		ctx,
		"",
		e.queue,
		false,
		false,
		amqp.Publishing{
			ContentType: "text/plain",
			Body:        []byte(name),
		},
	)
}
