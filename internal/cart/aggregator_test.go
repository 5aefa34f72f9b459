package cart

import (
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(productID, size, color string, price int64, qty int) domain.LineItem {
	p := decimal.NewFromInt(price)
	return domain.LineItem{
		ProductID: productID,
		Size:      size,
		Color:     color,
		Quantity:  qty,
		UnitPrice: p,
		Product:   domain.ProductSnapshot{Name: "Suede Classic", UnitPrice: p},
	}
}

func sumOf(items []domain.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

func TestAddItem_TotalMatchesItemsAfterEveryAdd(t *testing.T) {
	a := New(10)
	adds := []domain.LineItem{
		item("p1", "M", "Black", 1000, 2),
		item("p2", "L", "White", 2499, 1),
		item("p1", "M", "Black", 1000, 3),
		item("p1", "M", "Red", 1000, 1),
		{ProductID: "p3", Size: "42", Color: "Blue", Quantity: 4, UnitPrice: decimal.RequireFromString("0.10")},
	}

	for i, it := range adds {
		require.NoError(t, a.AddItem(it))
		assert.True(t, sumOf(a.Items()).Equal(a.TotalPrice()), "total drifted after add %d", i)
	}
	assert.Equal(t, "8499.4", a.TotalPrice().String())
}

func TestAddItem_SameKeyMerges(t *testing.T) {
	a := New(10)
	require.NoError(t, a.AddItem(item("p1", "M", "Black", 1000, 2)))
	require.NoError(t, a.AddItem(item("p1", "M", "Black", 1000, 3)))

	items := a.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(5000).Equal(a.TotalPrice()))
}

func TestAddItem_DifferentColorIsSeparateLine(t *testing.T) {
	a := New(10)
	require.NoError(t, a.AddItem(item("p1", "M", "Black", 1000, 1)))
	require.NoError(t, a.AddItem(item("p1", "M", "White", 1000, 1)))

	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 2, a.ItemCount())
}

func TestAddItem_DifferentSizeIsSeparateLine(t *testing.T) {
	a := New(10)
	require.NoError(t, a.AddItem(item("p1", "M", "Black", 1000, 1)))
	require.NoError(t, a.AddItem(item("p1", "L", "Black", 1000, 1)))

	assert.Equal(t, 2, a.Len())
}

func TestAddItem_MergeKeepsOriginalUnitPrice(t *testing.T) {
	a := New(10)
	require.NoError(t, a.AddItem(item("p1", "M", "Black", 1000, 1)))
	// catalog price changed between the two adds
	require.NoError(t, a.AddItem(item("p1", "M", "Black", 1500, 1)))

	items := a.Items()
	require.Len(t, items, 1)
	assert.True(t, decimal.NewFromInt(1000).Equal(items[0].UnitPrice))
	assert.True(t, decimal.NewFromInt(2000).Equal(a.TotalPrice()))
}

func TestAddItem_MergeClampsToMax(t *testing.T) {
	a := New(10)
	require.NoError(t, a.AddItem(item("p1", "M", "Black", 100, 7)))
	require.NoError(t, a.AddItem(item("p1", "M", "Black", 100, 7)))

	assert.Equal(t, 10, a.Items()[0].Quantity)
	assert.True(t, decimal.NewFromInt(1000).Equal(a.TotalPrice()))
}

func TestAddItem_NewLineClampsToMax(t *testing.T) {
	a := New(3)
	require.NoError(t, a.AddItem(item("p1", "M", "Black", 100, 5)))

	assert.Equal(t, 3, a.Items()[0].Quantity)
}

func TestAddItem_Validation(t *testing.T) {
	cases := map[string]domain.LineItem{
		"missing product":   item("", "M", "Black", 100, 1),
		"missing size":      item("p1", "", "Black", 100, 1),
		"missing color":     item("p1", "M", " ", 100, 1),
		"zero quantity":     item("p1", "M", "Black", 100, 0),
		"negative quantity": item("p1", "M", "Black", 100, -2),
		"negative price":    item("p1", "M", "Black", -1, 1),
	}

	for name, it := range cases {
		t.Run(name, func(t *testing.T) {
			a := New(10)
			err := a.AddItem(it)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, 0, a.Len())
			assert.True(t, a.TotalPrice().IsZero())
		})
	}
}

func TestRemoveItem(t *testing.T) {
	a := New(10)
	require.NoError(t, a.AddItem(item("p1", "M", "Black", 1000, 2)))
	require.NoError(t, a.AddItem(item("p2", "S", "Green", 500, 1)))

	a.RemoveItem(domain.LineKey{ProductID: "p1", Size: "M", Color: "Black"})

	items := a.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p2", items[0].ProductID)
	assert.True(t, decimal.NewFromInt(500).Equal(a.TotalPrice()))
}

func TestRemoveItem_MissingKeyIsNoop(t *testing.T) {
	a := New(10)
	require.NoError(t, a.AddItem(item("p1", "M", "Black", 1000, 2)))
	before := a.Items()

	assert.NotPanics(t, func() {
		a.RemoveItem(domain.LineKey{ProductID: "p1", Size: "M", Color: "White"})
	})

	assert.Equal(t, before, a.Items())
	assert.True(t, decimal.NewFromInt(2000).Equal(a.TotalPrice()))
}

func TestUpdateQuantity(t *testing.T) {
	key := domain.LineKey{ProductID: "p1", Size: "M", Color: "Black"}

	t.Run("sets quantity", func(t *testing.T) {
		a := New(10)
		require.NoError(t, a.AddItem(item("p1", "M", "Black", 1000, 2)))
		a.UpdateQuantity(key, 4)
		assert.Equal(t, 4, a.Items()[0].Quantity)
		assert.True(t, decimal.NewFromInt(4000).Equal(a.TotalPrice()))
	})

	t.Run("clamps above max", func(t *testing.T) {
		a := New(10)
		require.NoError(t, a.AddItem(item("p1", "M", "Black", 1000, 2)))
		a.UpdateQuantity(key, 99)
		assert.Equal(t, 10, a.Items()[0].Quantity)
		assert.True(t, decimal.NewFromInt(10000).Equal(a.TotalPrice()))
	})

	t.Run("clamps below one", func(t *testing.T) {
		a := New(10)
		require.NoError(t, a.AddItem(item("p1", "M", "Black", 1000, 2)))
		a.UpdateQuantity(key, 0)
		assert.Equal(t, 1, a.Items()[0].Quantity)
		assert.True(t, decimal.NewFromInt(1000).Equal(a.TotalPrice()))
	})

	t.Run("missing key is noop", func(t *testing.T) {
		a := New(10)
		require.NoError(t, a.AddItem(item("p1", "M", "Black", 1000, 2)))
		a.UpdateQuantity(domain.LineKey{ProductID: "nope", Size: "M", Color: "Black"}, 5)
		assert.Equal(t, 2, a.Items()[0].Quantity)
	})
}

func TestClear(t *testing.T) {
	a := New(10)
	require.NoError(t, a.AddItem(item("p1", "M", "Black", 1000, 2)))
	a.Clear()

	assert.Equal(t, 0, a.Len())
	assert.True(t, a.TotalPrice().IsZero())
}

func TestItems_ReturnsCopy(t *testing.T) {
	a := New(10)
	require.NoError(t, a.AddItem(item("p1", "M", "Black", 1000, 2)))

	items := a.Items()
	items[0].Quantity = 9

	assert.Equal(t, 2, a.Items()[0].Quantity)
}

func TestLoad_RecomputesTotalAndMergesDuplicates(t *testing.T) {
	stored := domain.Cart{
		UserID: "u1",
		Items: []domain.LineItem{
			item("p1", "M", "Black", 1000, 2),
			item("p1", "M", "Black", 1000, 1),
		},
		TotalPrice: decimal.NewFromInt(123456), // stale value must not survive
	}

	a, err := Load(stored, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Len())
	assert.True(t, decimal.NewFromInt(3000).Equal(a.TotalPrice()))

	var out domain.Cart
	a.Store(&out)
	assert.Len(t, out.Items, 1)
	assert.True(t, decimal.NewFromInt(3000).Equal(out.TotalPrice))
}

func TestLoad_RejectsInvalidItems(t *testing.T) {
	_, err := Load(domain.Cart{Items: []domain.LineItem{item("p1", "", "Black", 1, 1)}}, 10)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestNew_DefaultMax(t *testing.T) {
	assert.Equal(t, DefaultMaxQuantity, New(0).MaxQuantity())
}

func TestRestore_ReplacesExistingLines(t *testing.T) {
	a := New(10)
	require.NoError(t, a.AddItem(item("p9", "S", "Pink", 10, 1)))

	err := a.Restore([]domain.LineItem{
		item("p1", "M", "Black", 1000, 12),
		item("p2", "L", "White", 50, 2),
	})
	require.NoError(t, err)

	items := a.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "p1", items[0].ProductID)
	assert.Equal(t, 10, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(10100).Equal(a.TotalPrice()))
}

func TestRestore_InvalidLeavesAggregatorEmpty(t *testing.T) {
	a := New(10)
	require.NoError(t, a.AddItem(item("p1", "M", "Black", 1000, 1)))

	err := a.Restore([]domain.LineItem{item("p2", "M", "Black", 10, 1), item("p3", "M", "", 10, 1)})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, a.Len())
	assert.True(t, a.TotalPrice().IsZero())
}
