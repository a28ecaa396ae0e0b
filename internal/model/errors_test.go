package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersistenceError_PassesMessageThrough(t *testing.T) {
	cause := errors.New("Error 1205: Lock wait timeout exceeded")
	err := Persistence(cause)

	assert.Equal(t, cause.Error(), err.Error())
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.Same(t, err, Persistence(err))
	assert.Nil(t, Persistence(nil))
}

func TestFieldOf(t *testing.T) {
	assert.Equal(t, "phone", FieldOf(ErrInvalidPhone))
	assert.Equal(t, "credit_amount", FieldOf(fmt.Errorf("encode: %w", ErrInvalidAmount)))
	assert.Equal(t, "", FieldOf(ErrAlreadyRedeemed))
}

func TestFieldOf_FirstMatchWins(t *testing.T) {
	err := errors.Join(ErrInvalidAmount, ErrInvalidPhone)
	for i := 0; i < 20; i++ {
		assert.Equal(t, "phone", FieldOf(err))
	}
	assert.Equal(t, "coupon_kind", FieldOf(fmt.Errorf("%w: %w", ErrMissingReason, ErrInvalidCoupon)))
}
