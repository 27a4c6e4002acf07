package service_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/goshop/internal/apperr"
	"github.com/example/goshop/internal/datamodels/order"
	"github.com/example/goshop/internal/service"
	"github.com/example/goshop/internal/stock"
)

func validOrderInput() *service.CreateOrderInput {
	return &service.CreateOrderInput{
		ShippingInfo: order.ShippingInfo{Address: "1 Main St", City: "Springfield", Country: "US"},
		PaymentInfo:  order.PaymentInfo{PaymentID: "pay_123", Status: "succeeded"},
		Items: []order.Item{
			{ProductID: 1, Name: "tee", Quantity: 2, Price: 1990},
			{ProductID: 2, Name: "jeans", Quantity: 1, Price: 4990},
		},
		ItemPrice:     2*1990 + 4990,
		TaxPrice:      500,
		ShippingPrice: 300,
		TotalPrice:    2*1990 + 4990 + 500 + 300,
	}
}

func newOrderService(reserver *fakeReserver, publisher *fakePublisher) (*service.OrderService, *memOrderRepo) {
	repo := newMemOrderRepo()
	svc := service.NewOrderService(repo, reserver, publisher, zap.NewNop())
	return svc, repo
}

func TestOrderCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		reserver := &fakeReserver{}
		publisher := &fakePublisher{}
		svc, _ := newOrderService(reserver, publisher)

		o, err := svc.Create(ctx, 7, validOrderInput())
		require.NoError(t, err)
		assert.Equal(t, order.StatusProcessing, o.Status)
		assert.Equal(t, int64(7), o.UserID)
		assert.False(t, o.PaidAt.IsZero())
		assert.Nil(t, o.DeliveredAt)

		require.Len(t, reserver.calls, 1)
		assert.Len(t, reserver.calls[0], 2)

		require.Len(t, publisher.events, 1)
		assert.Equal(t, order.EventCreated, publisher.events[0].Type)
		assert.Equal(t, o.TotalPrice, publisher.events[0].Total)
	})

	t.Run("empty items rejected", func(t *testing.T) {
		svc, _ := newOrderService(&fakeReserver{}, &fakePublisher{})
		in := validOrderInput()
		in.Items = nil
		_, err := svc.Create(ctx, 7, in)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		svc, _ := newOrderService(&fakeReserver{}, &fakePublisher{})
		in := validOrderInput()
		in.Items[0].Quantity = 0
		_, err := svc.Create(ctx, 7, in)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("item price mismatch rejected", func(t *testing.T) {
		svc, _ := newOrderService(&fakeReserver{}, &fakePublisher{})
		in := validOrderInput()
		in.ItemPrice += 1
		in.TotalPrice += 1
		_, err := svc.Create(ctx, 7, in)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("total breakdown mismatch rejected", func(t *testing.T) {
		svc, _ := newOrderService(&fakeReserver{}, &fakePublisher{})
		in := validOrderInput()
		in.TotalPrice -= 100
		_, err := svc.Create(ctx, 7, in)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("unknown product maps to 404", func(t *testing.T) {
		reserver := &fakeReserver{err: &stock.Error{Reason: stock.ReasonNotFound, ProductID: 1, Name: "tee"}}
		svc, repo := newOrderService(reserver, &fakePublisher{})

		_, err := svc.Create(ctx, 7, validOrderInput())
		assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))

		// 预占失败不能留下订单
		list, _ := repo.ListAll(ctx)
		assert.Empty(t, list)
	})

	t.Run("insufficient stock maps to 400", func(t *testing.T) {
		reserver := &fakeReserver{err: &stock.Error{Reason: stock.ReasonInsufficient, ProductID: 1, Name: "tee"}}
		svc, _ := newOrderService(reserver, &fakePublisher{})

		_, err := svc.Create(ctx, 7, validOrderInput())
		assert.Equal(t, http.StatusBadRequest, apperr.StatusOf(err))
		assert.True(t, apperr.IsKind(err, apperr.KindStock))
	})

	t.Run("publish failure does not fail the order", func(t *testing.T) {
		publisher := &fakePublisher{err: assert.AnError}
		svc, _ := newOrderService(&fakeReserver{}, publisher)

		o, err := svc.Create(ctx, 7, validOrderInput())
		require.NoError(t, err)
		assert.NotZero(t, o.ID)
	})
}

func TestOrderUpdateStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	create := func(t *testing.T, svc *service.OrderService) *order.Order {
		o, err := svc.Create(ctx, 7, validOrderInput())
		require.NoError(t, err)
		return o
	}

	t.Run("processing to shipped to delivered", func(t *testing.T) {
		reserver := &fakeReserver{}
		svc, _ := newOrderService(reserver, &fakePublisher{})
		o := create(t, svc)

		o, err := svc.UpdateStatus(ctx, o.ID, order.StatusShipped)
		require.NoError(t, err)
		assert.Equal(t, order.StatusShipped, o.Status)
		assert.Nil(t, o.DeliveredAt)

		o, err = svc.UpdateStatus(ctx, o.ID, order.StatusDelivered)
		require.NoError(t, err)
		assert.Equal(t, order.StatusDelivered, o.Status)
		require.NotNil(t, o.DeliveredAt)

		// 流转只扣下单那一次库存
		assert.Len(t, reserver.calls, 1)
	})

	t.Run("delivered is terminal", func(t *testing.T) {
		svc, _ := newOrderService(&fakeReserver{}, &fakePublisher{})
		o := create(t, svc)
		_, err := svc.UpdateStatus(ctx, o.ID, order.StatusDelivered)
		require.NoError(t, err)

		_, err = svc.UpdateStatus(ctx, o.ID, order.StatusShipped)
		assert.True(t, apperr.IsKind(err, apperr.KindStateConflict))
		assert.Equal(t, http.StatusBadRequest, apperr.StatusOf(err))
	})

	t.Run("unknown order", func(t *testing.T) {
		svc, _ := newOrderService(&fakeReserver{}, &fakePublisher{})
		_, err := svc.UpdateStatus(ctx, 999, order.StatusShipped)
		assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))
	})

	t.Run("invalid target status", func(t *testing.T) {
		svc, _ := newOrderService(&fakeReserver{}, &fakePublisher{})
		o := create(t, svc)
		_, err := svc.UpdateStatus(ctx, o.ID, order.StatusProcessing)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})
}

func TestOrderDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("undelivered order cannot be deleted", func(t *testing.T) {
		svc, repo := newOrderService(&fakeReserver{}, &fakePublisher{})
		o, err := svc.Create(ctx, 7, validOrderInput())
		require.NoError(t, err)

		err = svc.Delete(ctx, o.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindStateConflict))
		assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))

		_, err = repo.GetByID(ctx, o.ID)
		assert.NoError(t, err)
	})

	t.Run("delivered order deletes", func(t *testing.T) {
		svc, repo := newOrderService(&fakeReserver{}, &fakePublisher{})
		o, err := svc.Create(ctx, 7, validOrderInput())
		require.NoError(t, err)
		_, err = svc.UpdateStatus(ctx, o.ID, order.StatusDelivered)
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, o.ID))
		_, err = repo.GetByID(ctx, o.ID)
		assert.ErrorIs(t, err, order.ErrNotFound)
	})

	t.Run("unknown order", func(t *testing.T) {
		svc, _ := newOrderService(&fakeReserver{}, &fakePublisher{})
		err := svc.Delete(ctx, 12345)
		assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestOrderGetOwnership(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _ := newOrderService(&fakeReserver{}, &fakePublisher{})
	o, err := svc.Create(ctx, 7, validOrderInput())
	require.NoError(t, err)

	t.Run("owner can read", func(t *testing.T) {
		got, err := svc.Get(ctx, 7, false, o.ID)
		require.NoError(t, err)
		assert.Equal(t, o.ID, got.ID)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		_, err := svc.Get(ctx, 8, false, o.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("admin can read any", func(t *testing.T) {
		got, err := svc.Get(ctx, 8, true, o.ID)
		require.NoError(t, err)
		assert.Equal(t, o.ID, got.ID)
	})
}
