package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/judyrop/shop-backend/auth"
	"github.com/judyrop/shop-backend/internal/testdb"
	"github.com/judyrop/shop-backend/models"
)

type fixture struct {
	db         *gorm.DB
	svc        *Service
	notebook   *models.Notebook
	smartphone *models.Smartphone
	customer   *models.Customer
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testdb.Open(t)
	notebooks := testdb.Category(t, db, "Ноутбуки", "notebook")
	phones := testdb.Category(t, db, "Смартфоны", "smartphones")
	return fixture{
		db:         db,
		svc:        NewService(db),
		notebook:   testdb.Notebook(t, db, notebooks, "Test Notebook", "test-slug", "50000.00"),
		smartphone: testdb.Smartphone(t, db, phones, "Test Phone", "phone-slug", "20000.50"),
		customer:   testdb.Customer(t, db, "testuser"),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func lines(t *testing.T, db *gorm.DB, c *models.Cart) []*models.CartProduct {
	t.Helper()
	var items []*models.CartProduct
	require.NoError(t, db.Model(c).Association("Products").Find(&items))
	return items
}

func TestRecalcSingleLine(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c := &models.Cart{OwnerID: &f.customer.ID}
	require.NoError(t, f.db.Create(c).Error)
	item := &models.CartProduct{
		UserID:      &f.customer.ID,
		CartID:      c.ID,
		ProductKind: models.KindNotebook,
		ProductID:   f.notebook.ID,
	}
	require.NoError(t, f.db.Create(item).Error)
	require.NoError(t, f.db.Model(c).Association("Products").Append(item))

	require.NoError(t, Recalc(ctx, f.db, c))

	assert.Len(t, lines(t, f.db, c), 1)
	assert.Equal(t, 1, c.TotalProducts)
	assert.True(t, c.FinalPrice.Equal(dec("50000.00")), c.FinalPrice.String())

	var stored models.Cart
	require.NoError(t, f.db.First(&stored, c.ID).Error)
	assert.Equal(t, 1, stored.TotalProducts)
	assert.True(t, stored.FinalPrice.Equal(dec("50000.00")), stored.FinalPrice.String())
}

func TestRecalcSumsLinesAndCountsThem(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c := &models.Cart{}
	require.NoError(t, f.db.Create(c).Error)
	for _, item := range []*models.CartProduct{
		{CartID: c.ID, ProductKind: models.KindNotebook, ProductID: f.notebook.ID, Qty: 2},
		{CartID: c.ID, ProductKind: models.KindSmartphone, ProductID: f.smartphone.ID, Qty: 3},
	} {
		require.NoError(t, f.db.Create(item).Error)
		require.NoError(t, f.db.Model(c).Association("Products").Append(item))
	}

	require.NoError(t, Recalc(ctx, f.db, c))

	// 2 * 50000.00 + 3 * 20000.50
	assert.True(t, c.FinalPrice.Equal(dec("160001.50")), c.FinalPrice.String())
	// Distinct lines, not units.
	assert.Equal(t, 2, c.TotalProducts)

	sum := decimal.Zero
	for _, item := range lines(t, f.db, c) {
		sum = sum.Add(item.FinalPrice)
	}
	assert.True(t, c.FinalPrice.Equal(sum))
}

func TestRecalcEmptyCart(t *testing.T) {
	f := setup(t)
	c := &models.Cart{FinalPrice: dec("10")}
	require.NoError(t, f.db.Create(c).Error)

	require.NoError(t, Recalc(context.Background(), f.db, c))
	assert.True(t, c.FinalPrice.IsZero())
	assert.Zero(t, c.TotalProducts)
}

func TestRecalcStaleCart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := &models.Cart{}
	require.NoError(t, f.db.Create(c).Error)

	var other models.Cart
	require.NoError(t, f.db.First(&other, c.ID).Error)

	require.NoError(t, Recalc(ctx, f.db, c))
	err := Recalc(ctx, f.db, &other)
	assert.ErrorIs(t, err, models.ErrStaleCart)

	// The fresh copy still works.
	assert.NoError(t, Recalc(ctx, f.db, c))
}

func TestAddToCartAuthenticated(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	actor := auth.Authenticated(f.customer.UserID)

	c, err := f.svc.AddToCart(ctx, actor, models.KindNotebook, "test-slug")
	require.NoError(t, err)

	require.NotNil(t, c.OwnerID)
	assert.Equal(t, f.customer.ID, *c.OwnerID)
	assert.False(t, c.ForAnonymousUser)
	assert.False(t, c.InOrder)
	assert.Equal(t, 1, c.TotalProducts)
	assert.True(t, c.FinalPrice.Equal(dec("50000.00")), c.FinalPrice.String())

	items := lines(t, f.db, c)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].UserID)
	assert.Equal(t, f.customer.ID, *items[0].UserID)
	assert.Equal(t, models.KindNotebook, items[0].ProductKind)
	assert.Equal(t, f.notebook.ID, items[0].ProductID)
}

func TestAddToCartTwiceIncrementsQuantity(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	actor := auth.Authenticated(f.customer.UserID)

	_, err := f.svc.AddToCart(ctx, actor, models.KindNotebook, "test-slug")
	require.NoError(t, err)
	c, err := f.svc.AddToCart(ctx, actor, models.KindNotebook, "test-slug")
	require.NoError(t, err)

	items := lines(t, f.db, c)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Qty)
	assert.True(t, items[0].FinalPrice.Equal(dec("100000.00")))
	assert.Equal(t, 1, c.TotalProducts)
	assert.True(t, c.FinalPrice.Equal(dec("100000.00")), c.FinalPrice.String())

	var n int64
	require.NoError(t, f.db.Model(&models.CartProduct{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
	require.NoError(t, f.db.Model(&models.Cart{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestAddToCartCreatesCustomerProfile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := &models.User{Subject: "newcomer"}
	require.NoError(t, f.db.Create(user).Error)

	c, err := f.svc.AddToCart(ctx, auth.Authenticated(user.ID), models.KindSmartphone, "phone-slug")
	require.NoError(t, err)

	var customer models.Customer
	require.NoError(t, f.db.Where("user_id = ?", user.ID).First(&customer).Error)
	require.NotNil(t, c.OwnerID)
	assert.Equal(t, customer.ID, *c.OwnerID)
}

func TestAddToCartAnonymous(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c, err := f.svc.AddToCart(ctx, auth.Anonymous("session-a"), models.KindNotebook, "test-slug")
	require.NoError(t, err)
	assert.True(t, c.ForAnonymousUser)
	assert.Nil(t, c.OwnerID)
	assert.Equal(t, 1, c.TotalProducts)

	other, err := f.svc.AddToCart(ctx, auth.Anonymous("session-b"), models.KindSmartphone, "phone-slug")
	require.NoError(t, err)
	assert.NotEqual(t, c.ID, other.ID)

	again, err := f.svc.AddToCart(ctx, auth.Anonymous("session-a"), models.KindSmartphone, "phone-slug")
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)
	assert.Equal(t, 2, again.TotalProducts)
	assert.True(t, again.FinalPrice.Equal(dec("70000.50")), again.FinalPrice.String())
}

func TestAddToCartNoSession(t *testing.T) {
	f := setup(t)
	_, err := f.svc.AddToCart(context.Background(), auth.Actor{}, models.KindNotebook, "test-slug")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestAddToCartUnknownProduct(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	actor := auth.Anonymous("s")

	_, err := f.svc.AddToCart(ctx, actor, models.KindNotebook, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.AddToCart(ctx, actor, "tablet", "test-slug")
	assert.ErrorIs(t, err, models.ErrUnknownKind)

	// Nothing is left behind by the failed calls.
	var n int64
	require.NoError(t, f.db.Model(&models.Cart{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestAddToCartSkipsCheckedOutCart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ordered := &models.Cart{OwnerID: &f.customer.ID, InOrder: true}
	require.NoError(t, f.db.Create(ordered).Error)

	c, err := f.svc.AddToCart(ctx, auth.Authenticated(f.customer.UserID), models.KindNotebook, "test-slug")
	require.NoError(t, err)
	assert.NotEqual(t, ordered.ID, c.ID)
	assert.False(t, c.InOrder)
}

func TestRemoveFromCart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	actor := auth.Anonymous("s")

	_, err := f.svc.AddToCart(ctx, actor, models.KindNotebook, "test-slug")
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, actor, models.KindSmartphone, "phone-slug")
	require.NoError(t, err)

	c, err := f.svc.RemoveFromCart(ctx, actor, models.KindNotebook, "test-slug")
	require.NoError(t, err)
	assert.Equal(t, 1, c.TotalProducts)
	assert.True(t, c.FinalPrice.Equal(dec("20000.50")), c.FinalPrice.String())
	assert.Len(t, lines(t, f.db, c), 1)

	_, err = f.svc.RemoveFromCart(ctx, actor, models.KindNotebook, "test-slug")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestChangeQuantity(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	actor := auth.Anonymous("s")

	_, err := f.svc.AddToCart(ctx, actor, models.KindNotebook, "test-slug")
	require.NoError(t, err)

	c, err := f.svc.ChangeQuantity(ctx, actor, models.KindNotebook, "test-slug", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, c.TotalProducts)
	assert.True(t, c.FinalPrice.Equal(dec("150000.00")), c.FinalPrice.String())

	_, err = f.svc.ChangeQuantity(ctx, actor, models.KindNotebook, "test-slug", 0)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.svc.ChangeQuantity(ctx, actor, models.KindSmartphone, "phone-slug", 2)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCartView(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	actor := auth.Authenticated(f.customer.UserID)

	view, err := f.svc.CartView(ctx, actor)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.True(t, view.Cart.FinalPrice.IsZero())

	_, err = f.svc.AddToCart(ctx, actor, models.KindNotebook, "test-slug")
	require.NoError(t, err)

	view, err = f.svc.CartView(ctx, actor)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "Test Notebook", view.Lines[0].Title)
	assert.Equal(t, "/products/notebook/test-slug/", view.Lines[0].URL)
	assert.True(t, view.Lines[0].Price.Equal(dec("50000.00")))
	assert.True(t, view.Cart.FinalPrice.Equal(dec("50000.00")))
}

func TestCartViewDropsDeletedProduct(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	actor := auth.Anonymous("s")

	_, err := f.svc.AddToCart(ctx, actor, models.KindNotebook, "test-slug")
	require.NoError(t, err)
	c, err := f.svc.AddToCart(ctx, actor, models.KindSmartphone, "phone-slug")
	require.NoError(t, err)
	require.NoError(t, f.db.Delete(f.notebook).Error)

	view, err := f.svc.CartView(ctx, actor)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "Test Phone", view.Lines[0].Title)
	assert.Equal(t, 1, view.Cart.TotalProducts)
	assert.True(t, view.Cart.FinalPrice.Equal(dec("20000.50")), view.Cart.FinalPrice.String())

	var stored models.Cart
	require.NoError(t, f.db.First(&stored, c.ID).Error)
	assert.Equal(t, 1, stored.TotalProducts)
	assert.True(t, stored.FinalPrice.Equal(dec("20000.50")), stored.FinalPrice.String())

	var n int64
	require.NoError(t, f.db.Model(&models.CartProduct{}).Where("cart_id = ?", c.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	view, err = f.svc.CartView(ctx, actor)
	require.NoError(t, err)
	assert.Len(t, view.Lines, 1)
}

func TestAddToCartAfterProductDeleted(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	actor := auth.Anonymous("s")

	_, err := f.svc.AddToCart(ctx, actor, models.KindNotebook, "test-slug")
	require.NoError(t, err)
	require.NoError(t, f.db.Delete(f.notebook).Error)

	_, err = f.svc.RemoveFromCart(ctx, actor, models.KindNotebook, "test-slug")
	assert.ErrorIs(t, err, models.ErrNotFound)

	c, err := f.svc.AddToCart(ctx, actor, models.KindSmartphone, "phone-slug")
	require.NoError(t, err)
	assert.Equal(t, 1, c.TotalProducts)
	assert.True(t, c.FinalPrice.Equal(dec("20000.50")), c.FinalPrice.String())
	assert.Len(t, lines(t, f.db, c), 1)

	view, err := f.svc.CartView(ctx, actor)
	require.NoError(t, err)
	assert.Len(t, view.Lines, 1)
}

func TestCartViewAfterCategoryDeleted(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	actor := auth.Authenticated(f.customer.UserID)

	_, err := f.svc.AddToCart(ctx, actor, models.KindNotebook, "test-slug")
	require.NoError(t, err)
	require.NoError(t, f.db.Delete(&models.Category{}, f.notebook.CategoryID).Error)

	view, err := f.svc.CartView(ctx, actor)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.Zero(t, view.Cart.TotalProducts)
	assert.True(t, view.Cart.FinalPrice.IsZero(), view.Cart.FinalPrice.String())
}
