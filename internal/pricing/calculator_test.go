package pricing_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-checkout/internal/pricing"
)

func line(name, price, qty string) pricing.Item {
	return pricing.Item{Name: name, Price: pricing.NewValue(price), Quantity: pricing.NewValue(qty)}
}

func TestParsePolicy(t *testing.T) {
	p, err := pricing.ParsePolicy("")
	require.NoError(t, err)
	require.Equal(t, pricing.PolicyStrict, p)

	p, err = pricing.ParsePolicy(" SKIP ")
	require.NoError(t, err)
	require.Equal(t, pricing.PolicySkip, p)

	_, err = pricing.ParsePolicy("lenient")
	require.Error(t, err)
}

func TestAmountStrict(t *testing.T) {
	calc := pricing.Calculator{Policy: pricing.PolicyStrict}

	amount, err := calc.Amount([]pricing.Item{line("Kit", "450", "1"), line("Call", "300.00", "2")})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(105000), amount)

	_, err = calc.Amount(nil)
	require.ErrorIs(t, err, pricing.ErrEmptyCart)

	_, err = calc.Amount([]pricing.Item{line("Kit", "10", "3"), line("Broken", "bad", "1")})
	var itemErr *pricing.ItemError
	require.True(t, errors.As(err, &itemErr))
	require.Equal(t, 1, itemErr.Index)
	require.Equal(t, "price", itemErr.Field)
	require.Contains(t, err.Error(), `item 2 ("Broken")`)
	require.True(t, pricing.IsValidation(err))
	require.Equal(t, "invalid_price", pricing.Reason(err))

	_, err = calc.Amount([]pricing.Item{line("Free", "0", "4")})
	require.ErrorIs(t, err, pricing.ErrNonPositiveTotal)
}

func TestAmountSkip(t *testing.T) {
	calc := pricing.Calculator{Policy: pricing.PolicySkip}

	amount, err := calc.Amount([]pricing.Item{line("Kit", "10", "3"), line("Broken", "bad", "1")})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(3000), amount)

	_, err = calc.Amount([]pricing.Item{line("Broken", "abc", "2")})
	require.ErrorIs(t, err, pricing.ErrNonPositiveTotal)

	_, err = calc.Amount(nil)
	require.ErrorIs(t, err, pricing.ErrNonPositiveTotal)
}

func TestAmountTooManyItems(t *testing.T) {
	calc := pricing.Calculator{MaxItems: 2}
	_, err := calc.Amount([]pricing.Item{line("a", "1", "1"), line("b", "1", "1"), line("c", "1", "1")})
	require.ErrorIs(t, err, pricing.ErrTooManyItems)
	require.Equal(t, "too_many_items", pricing.Reason(err))
}

func TestLineItemsStrict(t *testing.T) {
	calc := pricing.Calculator{Policy: pricing.PolicyStrict, Currency: "USD"}

	lines, total, err := calc.LineItems([]pricing.Item{line("Brand Kit", "450", "1"), line("SEO", "19.999", "2")})
	require.NoError(t, err)
	require.Equal(t, []pricing.LineItem{
		{Currency: "usd", Name: "Brand Kit", UnitAmount: 45000, Quantity: 1},
		{Currency: "usd", Name: "SEO", UnitAmount: 2000, Quantity: 2},
	}, lines)
	require.Equal(t, pricing.Money(49000), total)

	_, _, err = calc.LineItems([]pricing.Item{line("Brand Kit", "450", "1"), line("Mystery", "N/A", "1")})
	var itemErr *pricing.ItemError
	require.True(t, errors.As(err, &itemErr))
	require.Equal(t, 1, itemErr.Index)

	_, _, err = calc.LineItems([]pricing.Item{line("", "5", "1")})
	require.True(t, errors.As(err, &itemErr))
	require.Equal(t, "name", itemErr.Field)

	_, _, err = calc.LineItems([]pricing.Item{line("Gift", "0.001", "1")})
	require.True(t, errors.As(err, &itemErr))
	require.Equal(t, "price", itemErr.Field)

	_, _, err = calc.LineItems([]pricing.Item{line("None", "5", "0")})
	require.True(t, errors.As(err, &itemErr))
	require.Equal(t, "quantity", itemErr.Field)

	_, _, err = calc.LineItems(nil)
	require.ErrorIs(t, err, pricing.ErrEmptyCart)
}

func TestLineItemsSkip(t *testing.T) {
	calc := pricing.Calculator{Policy: pricing.PolicySkip}

	lines, total, err := calc.LineItems([]pricing.Item{line("Mystery", "N/A", "1"), line("Audit", "80", "1")})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, "Audit", lines[0].Name)
	require.Equal(t, "usd", lines[0].Currency)
	require.Equal(t, pricing.Money(8000), total)

	_, _, err = calc.LineItems([]pricing.Item{line("Mystery", "N/A", "1")})
	require.ErrorIs(t, err, pricing.ErrNoValidItems)
}

func TestProjectFailsFast(t *testing.T) {
	lines, err := pricing.Project([]pricing.Item{line("Audit", "80", "1")}, "EUR")
	require.NoError(t, err)
	require.Equal(t, []pricing.LineItem{{Currency: "eur", Name: "Audit", UnitAmount: 8000, Quantity: 1}}, lines)

	lines, err = pricing.Project([]pricing.Item{line("Audit", "80", "1"), line("Mystery", "N/A", "1")}, "usd")
	require.Error(t, err)
	require.Nil(t, lines)
}

func TestAmountRejectsOutOfRangeNumbers(t *testing.T) {
	calc := pricing.Calculator{Policy: pricing.PolicyStrict}

	_, err := calc.Amount([]pricing.Item{line("Kit", "1e20000000", "1")})
	var itemErr *pricing.ItemError
	require.True(t, errors.As(err, &itemErr))
	require.Equal(t, "price", itemErr.Field)

	_, err = calc.Amount([]pricing.Item{line("Kit", "10", "1e400")})
	require.True(t, errors.As(err, &itemErr))
	require.Equal(t, "quantity", itemErr.Field)

	_, _, err = calc.LineItems([]pricing.Item{line("Kit", "Infinity", "1")})
	require.True(t, errors.As(err, &itemErr))
	require.Equal(t, "price", itemErr.Field)

	amount, err := calc.Amount([]pricing.Item{line("Kit", "1e3", "2")})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(200000), amount)
}

func TestQuoteCountsPricedLines(t *testing.T) {
	skip := pricing.Calculator{Policy: pricing.PolicySkip}
	amount, priced, err := skip.Quote([]pricing.Item{line("Kit", "10", "3"), line("Broken", "bad", "1"), line("Free", "4", "0")})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(3000), amount)
	require.Equal(t, 1, priced)

	strict := pricing.Calculator{Policy: pricing.PolicyStrict}
	_, priced, err = strict.Quote([]pricing.Item{line("Kit", "10", "3"), line("Call", "5", "1")})
	require.NoError(t, err)
	require.Equal(t, 2, priced)
}
