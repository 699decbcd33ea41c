package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in minor units (cents for USD).
type Money = int64

// Item is one untrusted cart line as posted by the storefront.
type Item struct {
	ID       string `json:"id,omitempty" validate:"max=128"`
	Name     string `json:"name" validate:"max=250"`
	Price    Value  `json:"price"`
	Quantity Value  `json:"quantity"`
}

// LineItem is a provider-ready line with an explicit per-unit amount.
type LineItem struct {
	Currency   string
	Name       string
	UnitAmount Money
	Quantity   int64
}

// Subtotal returns UnitAmount x Quantity.
func (l LineItem) Subtotal() Money {
	return l.UnitAmount * l.Quantity
}

var (
	hundred     = decimal.NewFromInt(100)
	maxMoney    = decimal.NewFromInt(math.MaxInt64)
	maxQuantity = decimal.NewFromInt(math.MaxInt32)

	// Parsed numbers must stay within these bounds before any arithmetic,
	// otherwise exponent notation such as "1e20000000" expands into huge
	// big integers when rescaled.
	maxIntegerDigits int64 = 18
	minExponent      int32 = -32

	errPriceMissing    = errors.New("price is required")
	errPriceNotNumber  = errors.New("price is not a number")
	errPriceNegative   = errors.New("price must not be negative")
	errPriceOutOfRange = errors.New("price is out of range")
	errQtyMissing      = errors.New("quantity is required")
	errQtyNotInteger   = errors.New("quantity must be a whole number")
	errQtyNegative     = errors.New("quantity must not be negative")
	errQtyTooLarge     = errors.New("quantity is too large")
	errNameMissing     = errors.New("name is required")
	errUnitNotPositive = errors.New("unit price must be positive")
	errQtyNotPositive  = errors.New("quantity must be positive")
	errAmountTooLarge  = errors.New("amount is too large")
)

// Total computes the order amount in minor units. Items whose price or
// quantity cannot be parsed contribute nothing. The sum is kept in major units
// and converted to minor units with a single rounding step at the end.
func Total(items []Item) Money {
	total, _ := total(items)
	return total
}

// total also returns how many lines were priced: parsed with a quantity of
// at least one.
func total(items []Item) (Money, int) {
	sum := decimal.Zero
	priced := 0
	for _, it := range items {
		price, qty, err := parseItem(it)
		if err != nil {
			continue
		}
		if qty > 0 {
			priced++
		}
		sum = sum.Add(price.Mul(decimal.NewFromInt(qty)))
	}
	return toMinor(sum), priced
}

// UnitAmount converts a single item's price into minor units.
func UnitAmount(it Item) (Money, error) {
	price, err := parsePrice(it.Price)
	if err != nil {
		return 0, err
	}
	return toMinor(price), nil
}

func project(it Item, currency string) (LineItem, error) {
	if strings.TrimSpace(it.Name) == "" {
		return LineItem{}, fieldError("name", errNameMissing)
	}
	price, qty, err := parseItem(it)
	if err != nil {
		return LineItem{}, err
	}
	unit := toMinor(price)
	if unit <= 0 {
		return LineItem{}, fieldError("price", errUnitNotPositive)
	}
	if qty <= 0 {
		return LineItem{}, fieldError("quantity", errQtyNotPositive)
	}
	if unit > math.MaxInt64/qty {
		return LineItem{}, fieldError("price", errAmountTooLarge)
	}
	return LineItem{
		Currency:   currency,
		Name:       strings.TrimSpace(it.Name),
		UnitAmount: unit,
		Quantity:   qty,
	}, nil
}

func parseItem(it Item) (decimal.Decimal, int64, error) {
	price, err := parsePrice(it.Price)
	if err != nil {
		return decimal.Zero, 0, fieldError("price", err)
	}
	qty, err := parseQuantity(it.Quantity)
	if err != nil {
		return decimal.Zero, 0, fieldError("quantity", err)
	}
	return price, qty, nil
}

func parsePrice(v Value) (decimal.Decimal, error) {
	s, ok := v.text()
	if !ok {
		if v.Present() {
			return decimal.Zero, errPriceNotNumber
		}
		return decimal.Zero, errPriceMissing
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errPriceNotNumber
	}
	if !withinBounds(d) {
		return decimal.Zero, errPriceOutOfRange
	}
	if d.IsNegative() {
		return decimal.Zero, errPriceNegative
	}
	return d, nil
}

func parseQuantity(v Value) (int64, error) {
	s, ok := v.text()
	if !ok {
		if v.Present() {
			return 0, errQtyNotInteger
		}
		return 0, errQtyMissing
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errQtyNotInteger
	}
	if !withinBounds(d) {
		if d.Exponent() < minExponent {
			return 0, errQtyNotInteger
		}
		return 0, errQtyTooLarge
	}
	if !d.IsInteger() {
		return 0, errQtyNotInteger
	}
	if d.IsNegative() {
		return 0, errQtyNegative
	}
	if d.GreaterThan(maxQuantity) {
		return 0, errQtyTooLarge
	}
	return d.IntPart(), nil
}

// withinBounds reports whether d has at most maxIntegerDigits integer digits
// and no more than -minExponent fractional digits.
func withinBounds(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp < minExponent {
		return false
	}
	return int64(d.NumDigits())+int64(exp) <= maxIntegerDigits
}

func toMinor(major decimal.Decimal) Money {
	minor := major.Mul(hundred).Round(0)
	if minor.GreaterThanOrEqual(maxMoney) {
		return math.MaxInt64
	}
	return minor.IntPart()
}

type itemFieldError struct {
	field string
	err   error
}

func (e itemFieldError) Error() string { return e.err.Error() }

func (e itemFieldError) Unwrap() error { return e.err }

func fieldError(field string, err error) error {
	var fe itemFieldError
	if errors.As(err, &fe) {
		return err
	}
	return itemFieldError{field: field, err: err}
}

// ItemError describes why a specific cart line was rejected.
type ItemError struct {
	Index int
	Name  string
	Field string
	Err   error
}

func (e *ItemError) Error() string {
	label := fmt.Sprintf("item %d", e.Index+1)
	if name := strings.TrimSpace(e.Name); name != "" {
		label = fmt.Sprintf("%s (%q)", label, name)
	}
	return fmt.Sprintf("invalid %s for %s: %v", e.Field, label, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

func newItemError(idx int, it Item, err error) *ItemError {
	field := "item"
	var fe itemFieldError
	if errors.As(err, &fe) {
		field = fe.field
		err = fe.err
	}
	return &ItemError{Index: idx, Name: it.Name, Field: field, Err: err}
}
