package kernel_test

import (
	"testing"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("accepts zero and positive amounts", func(t *testing.T) {
		zero, err := kernel.NewMoney(decimal.Zero)
		require.NoError(t, err)
		assert.True(t, zero.IsZero())

		m, err := kernel.NewMoney(decimal.RequireFromString("79.90"))
		require.NoError(t, err)
		assert.Equal(t, "79.90", m.String())
	})

	t.Run("rejects negative amounts", func(t *testing.T) {
		_, err := kernel.NewMoney(decimal.NewFromInt(-1))

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
		assert.Contains(t, err.Error(), "-1 is negative")
	})

	t.Run("rejects fractions of a cent", func(t *testing.T) {
		_, err := kernel.NewMoney(decimal.RequireFromString("0.125"))

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
		assert.Contains(t, err.Error(), "more than 2 decimal places")

		_, err = kernel.MoneyFromString("19.999")
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("accepts trailing zeros beyond cents", func(t *testing.T) {
		m, err := kernel.MoneyFromString("1.500")

		require.NoError(t, err)
		assert.Equal(t, "1.50", m.String())
	})

	t.Run("rendered unit price times quantity reconciles with the total", func(t *testing.T) {
		unit := kernel.MustMoney("0.13")
		total := unit.Times(2)

		rendered := decimal.RequireFromString(unit.String()).Mul(decimal.NewFromInt(2))
		assert.Equal(t, rendered.StringFixed(2), total.String())
	})
}

func TestMoneyFromString(t *testing.T) {
	_, err := kernel.MoneyFromString("abc")
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)

	m, err := kernel.MoneyFromString("1.5")
	require.NoError(t, err)
	assert.True(t, m.IsEqual(kernel.MustMoney("1.50")))
}

func TestMoney_Arithmetic(t *testing.T) {
	wire := kernel.MustMoney("120").Times(2)
	tape := kernel.MustMoney("80").Times(1)

	total := kernel.Zero.Add(wire).Add(tape)

	assert.True(t, total.IsEqual(kernel.MustMoney("320")))
	assert.Equal(t, "320.00", total.String())
}

func TestMustMoney_PanicsOnInvalidInput(t *testing.T) {
	assert.Panics(t, func() { kernel.MustMoney("-3") })
}
