package order

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound 订单不存在
var ErrNotFound = errors.New("order not found")

// Status 订单状态机：Processing → Shipped → Delivered，
// 也允许 Processing 直接到 Delivered；Delivered 为终态。
type Status string

const (
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
)

// Valid 是否为合法状态值
func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

// ShippingInfo 收货信息，内嵌在订单行
type ShippingInfo struct {
	Address     string `gorm:"size:255" json:"address"`
	City        string `gorm:"size:64" json:"city"`
	State       string `gorm:"size:64" json:"state"`
	Country     string `gorm:"size:64" json:"country"`
	PinCode     string `gorm:"size:16" json:"pinCode"`
	PhoneNumber string `gorm:"size:32" json:"phoneNo"`
}

// PaymentInfo 支付信息，由上游支付网关返回，这里只存证
type PaymentInfo struct {
	PaymentID string `gorm:"size:128" json:"id"`
	Status    string `gorm:"size:32" json:"status"`
}

// Item 订单行项目，价格为下单时的单价快照（分）
type Item struct {
	ID        int64  `gorm:"primaryKey" json:"-"`
	OrderID   int64  `gorm:"index;not null" json:"-"`
	ProductID int64  `gorm:"index;not null" json:"product"`
	Name      string `gorm:"size:128;not null" json:"name"`
	Quantity  int64  `gorm:"not null" json:"quantity"`
	Price     int64  `gorm:"not null" json:"price"`
}

// Order 订单模型，金额字段在创建时固定，之后不再重算
type Order struct {
	ID            int64        `gorm:"primaryKey" json:"id"`
	UserID        int64        `gorm:"index;not null" json:"user"`
	Status        Status       `gorm:"size:16;index;not null" json:"orderStatus"`
	ShippingInfo  ShippingInfo `gorm:"embedded;embeddedPrefix:shipping_" json:"shippingInfo"`
	PaymentInfo   PaymentInfo  `gorm:"embedded;embeddedPrefix:payment_" json:"paymentInfo"`
	Items         []Item       `json:"orderItems"`
	ItemPrice     int64        `gorm:"not null" json:"itemPrice"`
	TaxPrice      int64        `gorm:"not null" json:"taxPrice"`
	ShippingPrice int64        `gorm:"not null" json:"shippingPrice"`
	TotalPrice    int64        `gorm:"not null" json:"totalPrice"`
	PaidAt        time.Time    `json:"paidAt"`
	DeliveredAt   *time.Time   `json:"deliveredAt,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"-"`
}

// Delivered 是否已到达终态
func (o *Order) Delivered() bool {
	return o.Status == StatusDelivered
}

// Event 订单事件，创建/状态流转后投递到 MQ，由通知 worker 消费
type Event struct {
	OrderID  int64     `json:"order_id"`
	UserID   int64     `json:"user_id"`
	Type     string    `json:"type"` // created / status_updated
	Status   Status    `json:"status"`
	Total    int64     `json:"total"`
	Occurred time.Time `json:"occurred"`
}

const (
	EventCreated       = "created"
	EventStatusUpdated = "status_updated"
)

// Repository 订单仓储接口
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*Order, error)
	ListAll(ctx context.Context) ([]*Order, error)
	SumTotal(ctx context.Context) (int64, error)
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id int64) error
}
