package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/judyrop/shop-backend/models"
)

// Recalc recomputes the cart's FinalPrice and TotalProducts from its line
// items and persists them. Nothing calls it implicitly: every change to a
// cart's lines must be followed by Recalc.
//
// Lines whose product no longer exists are dropped first.
//
// The write is conditional on the cart's Version, so a cart changed by
// someone else since it was loaded yields models.ErrStaleCart.
func Recalc(ctx context.Context, db *gorm.DB, c *models.Cart) error {
	db = db.WithContext(ctx)
	var items []*models.CartProduct
	if err := db.Model(c).Association("Products").Find(&items); err != nil {
		return fmt.Errorf("load cart %d lines: %w", c.ID, models.Translate(err))
	}
	items, err := dropDeadLines(db, c, items)
	if err != nil {
		return err
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.FinalPrice)
	}

	res := db.Model(&models.Cart{}).
		Where("id = ? AND version = ?", c.ID, c.Version).
		Updates(map[string]any{
			"final_price":    total,
			"total_products": len(items),
			"version":        c.Version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("save cart %d: %w", c.ID, models.Translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart %d: %w", c.ID, models.ErrStaleCart)
	}

	c.Products = items
	c.FinalPrice = total
	c.TotalProducts = len(items)
	c.Version++
	return nil
}

// dropDeadLines deletes the lines pointing at products that are gone, e.g.
// after their category was deleted, and returns the remaining ones.
func dropDeadLines(tx *gorm.DB, c *models.Cart, items []*models.CartProduct) ([]*models.CartProduct, error) {
	live := make([]*models.CartProduct, 0, len(items))
	for _, item := range items {
		_, err := models.Resolve(tx, item.Ref())
		switch {
		case err == nil:
			live = append(live, item)
		case models.IsNotFound(err):
			if err := tx.Model(c).Association("Products").Delete(item); err != nil {
				return nil, fmt.Errorf("detach dead line %d: %w", item.ID, models.Translate(err))
			}
			if err := tx.Delete(item).Error; err != nil {
				return nil, fmt.Errorf("delete dead line %d: %w", item.ID, models.Translate(err))
			}
		default:
			return nil, err
		}
	}
	return live, nil
}
