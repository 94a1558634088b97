package notification

import (
	"context"

	"github.com/sirupsen/logrus"
)

type EventType string

const (
	EventOrderPlaced    EventType = "order_placed"
	EventOrderPaid      EventType = "order_paid"
	EventOrderShipped   EventType = "order_shipped"
	EventOrderDelivered EventType = "order_delivered"
	EventOrderCancelled EventType = "order_cancelled"
	EventOrderRefunded  EventType = "order_refunded"
)

type OrderEvent struct {
	Type        EventType
	OrderID     int64
	OrderNumber string
	UserID      int64
}

// 通知はfire-and-forget。失敗しても注文処理は止めない・巻き戻さない。
type Notifier interface {
	NotifyOrderEvent(ctx context.Context, ev OrderEvent)
}

// ログに書くだけの実装（メール等の配送は別コンポーネントの仕事）
type LogNotifier struct {
	log *logrus.Logger
}

func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyOrderEvent(_ context.Context, ev OrderEvent) {
	n.log.WithFields(logrus.Fields{
		"event":        ev.Type,
		"order_id":     ev.OrderID,
		"order_number": ev.OrderNumber,
		"user_id":      ev.UserID,
	}).Info("order event")
}
