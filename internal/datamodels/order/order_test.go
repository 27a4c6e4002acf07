package order_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/goshop/internal/datamodels/order"
)

func TestStatusValid(t *testing.T) {
	t.Parallel()

	assert.True(t, order.StatusProcessing.Valid())
	assert.True(t, order.StatusShipped.Valid())
	assert.True(t, order.StatusDelivered.Valid())
	assert.False(t, order.Status("Cancelled").Valid())
	assert.False(t, order.Status("").Valid())
}

func TestDelivered(t *testing.T) {
	t.Parallel()

	o := &order.Order{Status: order.StatusShipped}
	assert.False(t, o.Delivered())
	o.Status = order.StatusDelivered
	assert.True(t, o.Delivered())
}
