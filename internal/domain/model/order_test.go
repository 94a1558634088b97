package model_test

import (
	"testing"

	"app/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from model.OrderStatus
		to   model.OrderStatus
		ok   bool
	}{
		{model.OrderStatusPending, model.OrderStatusPaid, true},
		{model.OrderStatusPending, model.OrderStatusCancelled, true},
		{model.OrderStatusPaid, model.OrderStatusShipped, true},
		{model.OrderStatusPaid, model.OrderStatusCancelled, true},
		{model.OrderStatusShipped, model.OrderStatusDelivered, true},
		{model.OrderStatusDelivered, model.OrderStatusReturned, true},
		{model.OrderStatusReturned, model.OrderStatusRefunded, true},

		//後戻り・飛び越しは不可
		{model.OrderStatusPaid, model.OrderStatusPending, false},
		{model.OrderStatusShipped, model.OrderStatusCancelled, false},
		{model.OrderStatusPending, model.OrderStatusShipped, false},
		{model.OrderStatusDelivered, model.OrderStatusShipped, false},
		{model.OrderStatusCancelled, model.OrderStatusPaid, false},
		{model.OrderStatusRefunded, model.OrderStatusPending, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.ok, c.from.CanTransitionTo(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.True(t, model.OrderStatusCancelled.IsTerminal())
	assert.True(t, model.OrderStatusRefunded.IsTerminal())
	assert.False(t, model.OrderStatusPending.IsTerminal())
	assert.False(t, model.OrderStatusDelivered.IsTerminal())
}

func TestOrderStatus_IsValid(t *testing.T) {
	assert.True(t, model.OrderStatusPending.IsValid())
	assert.False(t, model.OrderStatus("UNKNOWN").IsValid())
}
