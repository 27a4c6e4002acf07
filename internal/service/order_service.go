package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/example/goshop/internal/apperr"
	"github.com/example/goshop/internal/datamodels/order"
	"github.com/example/goshop/internal/stock"
)

// EventPublisher 订单事件出口，失败不影响主流程
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, ev *order.Event) error
}

// OrderService 下单与履约流程
type OrderService struct {
	orders    order.Repository
	reserver  stock.Reserver
	publisher EventPublisher
	log       *zap.Logger
}

func NewOrderService(orders order.Repository, reserver stock.Reserver, publisher EventPublisher, log *zap.Logger) *OrderService {
	return &OrderService{
		orders:    orders,
		reserver:  reserver,
		publisher: publisher,
		log:       log,
	}
}

// CreateOrderInput 下单请求。金额字段由客户端结算页传入，
// 服务端校验自洽性后原样入库。
type CreateOrderInput struct {
	ShippingInfo  order.ShippingInfo `json:"shippingInfo"`
	PaymentInfo   order.PaymentInfo  `json:"paymentInfo"`
	Items         []order.Item       `json:"orderItems"`
	ItemPrice     int64              `json:"itemPrice"`
	TaxPrice      int64              `json:"taxPrice"`
	ShippingPrice int64              `json:"shippingPrice"`
	TotalPrice    int64              `json:"totalPrice"`
}

func (in *CreateOrderInput) validate() error {
	if len(in.Items) == 0 {
		return apperr.Validation("order must contain at least one item")
	}
	var sum int64
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return apperr.Validation("order item is missing a product")
		}
		if it.Quantity <= 0 {
			return apperr.Validation("order item quantity must be positive")
		}
		if it.Price < 0 {
			return apperr.Validation("order item price must not be negative")
		}
		sum += it.Quantity * it.Price
	}
	if sum != in.ItemPrice {
		return apperr.Validation("item price does not match order items")
	}
	if in.ItemPrice+in.TaxPrice+in.ShippingPrice != in.TotalPrice {
		return apperr.Validation("total price does not match price breakdown")
	}
	return nil
}

// Create 下单。先整批预占库存（行锁事务内全量校验再全量扣减），
// 成功后才落订单；库存只在这里扣一次，后续状态流转不再动库存。
func (s *OrderService) Create(ctx context.Context, userID int64, in *CreateOrderInput) (*order.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	items := make([]stock.Item, len(in.Items))
	for i, it := range in.Items {
		items[i] = stock.Item{ProductID: it.ProductID, Name: it.Name, Quantity: it.Quantity}
	}
	if err := s.reserver.Reserve(ctx, items); err != nil {
		return nil, stockToAppErr(err)
	}

	o := &order.Order{
		UserID:        userID,
		Status:        order.StatusProcessing,
		ShippingInfo:  in.ShippingInfo,
		PaymentInfo:   in.PaymentInfo,
		Items:         in.Items,
		ItemPrice:     in.ItemPrice,
		TaxPrice:      in.TaxPrice,
		ShippingPrice: in.ShippingPrice,
		TotalPrice:    in.TotalPrice,
		PaidAt:        time.Now(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}

	s.publish(ctx, o, order.EventCreated)
	return o, nil
}

// Get 查询订单，owner 本人或管理员可见
func (s *OrderService) Get(ctx context.Context, userID int64, isAdmin bool, orderID int64) (*order.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, err
	}
	if o.UserID != userID && !isAdmin {
		return nil, apperr.Forbidden("you are not allowed to view this order")
	}
	return o, nil
}

// ListMine 当前用户订单列表
func (s *OrderService) ListMine(ctx context.Context, userID int64) ([]*order.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ListAll 管理端：全部订单及成交总额
func (s *OrderService) ListAll(ctx context.Context) ([]*order.Order, int64, error) {
	list, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.orders.SumTotal(ctx)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// UpdateStatus 管理端状态流转。Delivered 为终态，到达后任何
// 再流转请求都报错；流转只改状态与时间戳，不碰库存。
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, target order.Status) (*order.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, err
	}
	if o.Delivered() {
		return nil, apperr.Conflict(http.StatusBadRequest, "this order has already been delivered")
	}
	if target != order.StatusShipped && target != order.StatusDelivered {
		return nil, apperr.Validation("invalid order status")
	}

	o.Status = target
	if target == order.StatusDelivered {
		now := time.Now()
		o.DeliveredAt = &now
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}

	s.publish(ctx, o, order.EventStatusUpdated)
	return o, nil
}

// Delete 管理端删除订单。未送达的订单仍在履约中，不允许删除。
func (s *OrderService) Delete(ctx context.Context, orderID int64) error {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return apperr.NotFound("order not found")
		}
		return err
	}
	if !o.Delivered() {
		return apperr.Conflict(http.StatusNotFound, "this order is under processing and cannot be deleted")
	}
	return s.orders.Delete(ctx, orderID)
}

func (s *OrderService) publish(ctx context.Context, o *order.Order, typ string) {
	if s.publisher == nil {
		return
	}
	ev := &order.Event{
		OrderID:  o.ID,
		UserID:   o.UserID,
		Type:     typ,
		Status:   o.Status,
		Total:    o.TotalPrice,
		Occurred: time.Now(),
	}
	if err := s.publisher.PublishOrderEvent(ctx, ev); err != nil {
		s.log.Warn("order event not published",
			zap.Int64("order_id", o.ID),
			zap.String("type", typ),
			zap.Error(err))
	}
}

// stockToAppErr 库存失败映射为对外错误：商品不存在报 404，其余按 400
func stockToAppErr(err error) error {
	var se *stock.Error
	if !errors.As(err, &se) {
		return err
	}
	if se.Reason == stock.ReasonNotFound {
		return apperr.NotFound(se.Error())
	}
	return apperr.Stock(se.Error())
}
