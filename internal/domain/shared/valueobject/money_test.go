package valueobject

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	t.Run("normalizes case and whitespace", func(t *testing.T) {
		c, err := ParseCurrency(" kes ")
		require.NoError(t, err)
		assert.Equal(t, KES, c)
	})

	t.Run("rejects unknown code", func(t *testing.T) {
		_, err := ParseCurrency("ZZZ")
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInvalidFormat))
	})

	t.Run("rejects empty code", func(t *testing.T) {
		_, err := ParseCurrency("")
		assert.True(t, errors.Is(err, shared.ErrInvalidFormat))
	})
}

func TestCurrency_Scale(t *testing.T) {
	assert.Equal(t, int32(2), USD.Scale())
	assert.Equal(t, int32(2), KES.Scale())
	assert.Equal(t, int32(0), JPY.Scale())
}

func TestNewMoney(t *testing.T) {
	t.Run("creates money with minor units", func(t *testing.T) {
		m, err := NewMoney(500000, KES)
		require.NoError(t, err)
		assert.Equal(t, int64(500000), m.Minor())
		assert.Equal(t, KES, m.Currency())
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(100, "")
		assert.Error(t, err)
	})
}

func TestNewNonNegativeMoney(t *testing.T) {
	_, err := NewNonNegativeMoney(-1, KES)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidValue))

	m, err := NewNonNegativeMoney(0, KES)
	require.NoError(t, err)
	assert.True(t, m.IsZero())
}

func TestNewPositiveMoney(t *testing.T) {
	_, err := NewPositiveMoney(0, KES)
	assert.True(t, errors.Is(err, shared.ErrInvalidValue))

	m, err := NewPositiveMoney(1, KES)
	require.NoError(t, err)
	assert.True(t, m.IsPositive())
}

func TestNewMoneyFromString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		currency Currency
		want     int64
		wantErr  bool
	}{
		{"two decimals", "5000.50", KES, 500050, false},
		{"whole amount", "12", USD, 1200, false},
		{"yen has no minor unit", "1500", JPY, 1500, false},
		{"too precise", "1.005", USD, 0, true},
		{"fractional yen", "10.5", JPY, 0, true},
		{"not a number", "abc", KES, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMoneyFromString(tt.input, tt.currency)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Minor())
		})
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	a := MustNewMoney(1500, KES)
	b := MustNewMoney(500, KES)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), sum.Minor())

	diff, err := b.Subtract(a)
	require.NoError(t, err)
	assert.Equal(t, int64(-1000), diff.Minor())
	assert.True(t, diff.IsNegative())

	triple, err := b.MultiplyByInt(3)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), triple.Minor())
	assert.True(t, triple.Equals(a))

	t.Run("currency mismatch", func(t *testing.T) {
		_, err := a.Add(MustNewMoney(1, USD))
		assert.True(t, errors.Is(err, shared.ErrInvalidValue))
	})

	t.Run("overflow", func(t *testing.T) {
		_, err := MustNewMoney(math.MaxInt64, KES).Add(MustNewMoney(1, KES))
		assert.Error(t, err)
		_, err = MustNewMoney(math.MaxInt64/2+1, KES).MultiplyByInt(2)
		assert.Error(t, err)
	})
}

func TestMoney_Formatting(t *testing.T) {
	m := MustNewMoney(500050, KES)
	assert.Equal(t, "5000.50 KES", m.String())
	assert.True(t, m.Decimal().Equal(decimal.RequireFromString("5000.50")))
	assert.Equal(t, "-0.05", MustNewMoney(-5, USD).StringFixed())
}

func TestMoney_JSON(t *testing.T) {
	data, err := json.Marshal(MustNewMoney(500000, KES))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount_minor":500000,"currency":"KES","amount":"5000.00"}`, string(data))

	var m Money
	require.NoError(t, json.Unmarshal([]byte(`{"amount_minor":42,"currency":"usd"}`), &m))
	assert.Equal(t, int64(42), m.Minor())
	assert.Equal(t, USD, m.Currency())

	assert.Error(t, json.Unmarshal([]byte(`{"amount_minor":42,"currency":"???"}`), &m))
}
