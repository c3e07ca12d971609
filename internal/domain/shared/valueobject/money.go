package valueobject

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	KES Currency = "KES" // Kenyan Shilling (default)
	UGX Currency = "UGX" // Ugandan Shilling
	TZS Currency = "TZS" // Tanzanian Shilling
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	JPY Currency = "JPY" // Japanese Yen
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = KES

// ParseCurrency validates an ISO 4217 code and returns it in canonical form
func ParseCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", shared.NewFormatError("currency cannot be empty")
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", shared.NewFormatError("invalid currency code %q", code)
	}
	return Currency(unit.String()), nil
}

// Scale returns the number of minor-unit digits of the currency (2 for KES, 0 for JPY)
func (c Currency) Scale() int32 {
	unit, err := currency.ParseISO(string(c))
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// String returns the currency code
func (c Currency) String() string {
	return string(c)
}

// Money is a value object representing a monetary amount in integer minor units.
// It is immutable - all operations return new Money instances.
type Money struct {
	minor    int64
	currency Currency
}

// NewMoney creates Money from minor units. Any sign is accepted; use
// NewNonNegativeMoney for fields that must not go below zero.
func NewMoney(minor int64, cur Currency) (Money, error) {
	c, err := ParseCurrency(string(cur))
	if err != nil {
		return Money{}, err
	}
	return Money{minor: minor, currency: c}, nil
}

// NewNonNegativeMoney creates Money that must be >= 0
func NewNonNegativeMoney(minor int64, cur Currency) (Money, error) {
	if minor < 0 {
		return Money{}, shared.NewValueError("amount must not be negative, got %d", minor)
	}
	return NewMoney(minor, cur)
}

// NewPositiveMoney creates Money that must be > 0
func NewPositiveMoney(minor int64, cur Currency) (Money, error) {
	if minor <= 0 {
		return Money{}, shared.NewValueError("amount must be greater than zero, got %d", minor)
	}
	return NewMoney(minor, cur)
}

// MustNewMoney creates Money and panics on an invalid currency
func MustNewMoney(minor int64, cur Currency) Money {
	m, err := NewMoney(minor, cur)
	if err != nil {
		panic(err)
	}
	return m
}

// NewMoneyFromString parses a major-unit amount such as "5000.50".
// Amounts finer than the currency's minor unit are rejected.
func NewMoneyFromString(amount string, cur Currency) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, shared.NewFormatError("invalid amount %q", amount)
	}
	return NewMoneyFromDecimal(d, cur)
}

// NewMoneyFromDecimal converts a major-unit decimal into minor units
func NewMoneyFromDecimal(amount decimal.Decimal, cur Currency) (Money, error) {
	c, err := ParseCurrency(string(cur))
	if err != nil {
		return Money{}, err
	}
	shifted := amount.Shift(c.Scale())
	if !shifted.Equal(shifted.Truncate(0)) {
		return Money{}, shared.NewFormatError("amount %s has more than %d decimal places for %s", amount.String(), c.Scale(), c)
	}
	if shifted.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || shifted.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return Money{}, shared.NewValueError("amount %s is out of range", amount.String())
	}
	return Money{minor: shifted.IntPart(), currency: c}, nil
}

// Zero returns a zero-value Money in the specified currency
func Zero(cur Currency) Money {
	return Money{currency: cur}
}

// Minor returns the amount in minor units
func (m Money) Minor() int64 {
	return m.minor
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// Decimal returns the amount in major units
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.minor, -m.currency.Scale())
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.minor == 0
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.minor > 0
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.minor < 0
}

// Add returns a new Money with the sum of both amounts
// Returns error if currencies don't match
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, shared.NewValueError("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	sum := m.minor + other.minor
	if (other.minor > 0 && sum < m.minor) || (other.minor < 0 && sum > m.minor) {
		return Money{}, shared.NewValueError("amount overflow adding %d and %d", m.minor, other.minor)
	}
	return Money{minor: sum, currency: m.currency}, nil
}

// MustAdd adds two Money values, panics if currencies don't match
func (m Money) MustAdd(other Money) Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Subtract returns a new Money with the difference
// Returns error if currencies don't match
func (m Money) Subtract(other Money) (Money, error) {
	return m.Add(other.Negate())
}

// MultiplyByInt returns a new Money multiplied by an integer
func (m Money) MultiplyByInt(factor int64) (Money, error) {
	if factor != 0 && m.minor != 0 {
		product := m.minor * factor
		if product/factor != m.minor {
			return Money{}, shared.NewValueError("amount overflow multiplying %d by %d", m.minor, factor)
		}
		return Money{minor: product, currency: m.currency}, nil
	}
	return Money{currency: m.currency}, nil
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{minor: -m.minor, currency: m.currency}
}

// Equals returns true if both Money values are equal (same amount and currency)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.minor == other.minor
}

// String returns a string representation of the Money
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.StringFixed(), m.currency)
}

// StringFixed returns the major-unit amount with the currency's decimal places
func (m Money) StringFixed() string {
	return m.Decimal().StringFixed(m.currency.Scale())
}

type moneyJSON struct {
	AmountMinor int64    `json:"amount_minor"`
	Currency    Currency `json:"currency"`
	Amount      string   `json:"amount,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{
		AmountMinor: m.minor,
		Currency:    m.currency,
		Amount:      m.StringFixed(),
	})
}

// UnmarshalJSON implements json.Unmarshaler. The display amount is ignored;
// amount_minor is authoritative.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewMoney(v.AmountMinor, v.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
