package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Policy selects how malformed cart lines are treated. The same policy is
// applied to payment intents and hosted checkout sessions.
type Policy string

const (
	// PolicyStrict rejects the whole cart as soon as one line is malformed.
	PolicyStrict Policy = "strict"
	// PolicySkip drops malformed lines and prices whatever remains.
	PolicySkip Policy = "skip"
)

// DefaultMaxItems bounds the number of lines accepted in a single cart.
const DefaultMaxItems = 100

var (
	// ErrEmptyCart is returned when a cart carries no lines at all.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNoValidItems is returned when every line was dropped by PolicySkip.
	ErrNoValidItems = errors.New("cart has no valid items")
	// ErrNonPositiveTotal is returned when the computed amount is zero or negative.
	ErrNonPositiveTotal = errors.New("invalid cart data or cart is empty")
	// ErrTooManyItems is returned when the cart exceeds the configured line limit.
	ErrTooManyItems = errors.New("cart has too many items")
	// ErrAmountTooLarge is returned when the total does not fit in Money.
	ErrAmountTooLarge = errors.New("cart total is too large")
)

// ParsePolicy maps a configuration string onto a Policy.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("unknown cart validation policy %q", value)
	}
}

// Calculator applies a validation Policy on top of Total and line projection.
type Calculator struct {
	Policy   Policy
	Currency string
	MaxItems int
}

// Amount returns the trusted charge amount for items in minor units.
func (c Calculator) Amount(items []Item) (Money, error) {
	amount, _, err := c.Quote(items)
	return amount, err
}

// Quote is Amount plus the number of lines that contributed to it. Under
// PolicySkip that excludes dropped lines.
func (c Calculator) Quote(items []Item) (Money, int, error) {
	if err := c.checkSize(items); err != nil {
		return 0, 0, err
	}
	if c.policy() == PolicyStrict {
		if len(items) == 0 {
			return 0, 0, ErrEmptyCart
		}
		for i, it := range items {
			if _, _, err := parseItem(it); err != nil {
				return 0, 0, newItemError(i, it, err)
			}
		}
	}
	amount, priced := total(items)
	if amount <= 0 {
		return 0, 0, ErrNonPositiveTotal
	}
	if amount == math.MaxInt64 {
		return 0, 0, ErrAmountTooLarge
	}
	return amount, priced, nil
}

// LineItems projects items into provider line items and returns them with the
// amount the provider will charge for them.
func (c Calculator) LineItems(items []Item) ([]LineItem, Money, error) {
	if err := c.checkSize(items); err != nil {
		return nil, 0, err
	}
	if len(items) == 0 {
		return nil, 0, ErrEmptyCart
	}
	currency := c.currency()
	lines := make([]LineItem, 0, len(items))
	var total Money
	for i, it := range items {
		line, err := project(it, currency)
		if err != nil {
			if c.policy() == PolicyStrict {
				return nil, 0, newItemError(i, it, err)
			}
			continue
		}
		if total > math.MaxInt64-line.Subtotal() {
			return nil, 0, ErrAmountTooLarge
		}
		lines = append(lines, line)
		total += line.Subtotal()
	}
	if len(lines) == 0 {
		return nil, 0, ErrNoValidItems
	}
	if total <= 0 {
		return nil, 0, ErrNonPositiveTotal
	}
	return lines, total, nil
}

// Project converts items into provider line items, failing on the first line
// that cannot be charged.
func Project(items []Item, currency string) ([]LineItem, error) {
	lines, _, err := Calculator{Policy: PolicyStrict, Currency: currency, MaxItems: len(items)}.LineItems(items)
	return lines, err
}

func (c Calculator) checkSize(items []Item) error {
	limit := c.MaxItems
	if limit <= 0 {
		limit = DefaultMaxItems
	}
	if len(items) > limit {
		return fmt.Errorf("%w: %d exceeds limit of %d", ErrTooManyItems, len(items), limit)
	}
	return nil
}

func (c Calculator) policy() Policy {
	if c.Policy == PolicySkip {
		return PolicySkip
	}
	return PolicyStrict
}

// CurrencyCode returns the lowercase ISO currency used for charges.
func (c Calculator) CurrencyCode() string {
	return c.currency()
}

func (c Calculator) currency() string {
	cur := strings.ToLower(strings.TrimSpace(c.Currency))
	if cur == "" {
		return "usd"
	}
	return cur
}

// IsValidation reports whether err was produced by cart validation.
func IsValidation(err error) bool {
	var itemErr *ItemError
	return errors.As(err, &itemErr) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrNoValidItems) ||
		errors.Is(err, ErrNonPositiveTotal) ||
		errors.Is(err, ErrTooManyItems) ||
		errors.Is(err, ErrAmountTooLarge)
}

// Reason returns a short metric label for a validation error.
func Reason(err error) string {
	var itemErr *ItemError
	switch {
	case errors.As(err, &itemErr):
		return "invalid_" + itemErr.Field
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrNoValidItems):
		return "no_valid_items"
	case errors.Is(err, ErrNonPositiveTotal):
		return "non_positive_total"
	case errors.Is(err, ErrTooManyItems):
		return "too_many_items"
	case errors.Is(err, ErrAmountTooLarge):
		return "amount_too_large"
	default:
		return "other"
	}
}
