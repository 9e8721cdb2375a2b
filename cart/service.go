package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/judyrop/shop-backend/auth"
	"github.com/judyrop/shop-backend/catalog"
	"github.com/judyrop/shop-backend/models"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Line is a cart line together with the product it points at.
type Line struct {
	*models.CartProduct
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	URL   string          `json:"url"`
}

type View struct {
	Cart  *models.Cart `json:"cart"`
	Lines []Line       `json:"lines"`
}

// CurrentCart returns the actor's active cart, creating it (and, for a
// signed-in user, the customer profile) when missing.
func (s *Service) CurrentCart(ctx context.Context, a auth.Actor) (*models.Cart, error) {
	var c *models.Cart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		c, _, err = currentCart(tx, a)
		return err
	})
	return c, err
}

// AddToCart puts one more unit of the product into the actor's cart. A product
// already in the cart gets its quantity bumped instead of a second line.
func (s *Service) AddToCart(ctx context.Context, a auth.Actor, kind, slug string) (*models.Cart, error) {
	var c *models.Cart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := models.ResolveSlug(tx, kind, slug)
		if err != nil {
			return err
		}
		var owner *uint
		c, owner, err = currentCart(tx, a)
		if err != nil {
			return err
		}

		item, err := findLine(tx, c, models.RefOf(p))
		switch {
		case err == nil:
			item.Qty++
			if err := tx.Save(item).Error; err != nil {
				return fmt.Errorf("update line %d: %w", item.ID, models.Translate(err))
			}
		case errors.Is(err, models.ErrNotFound):
			item = &models.CartProduct{
				UserID:      owner,
				CartID:      c.ID,
				ProductKind: p.Kind(),
				ProductID:   p.GetID(),
				Qty:         1,
			}
			if err := tx.Create(item).Error; err != nil {
				return fmt.Errorf("create line: %w", models.Translate(err))
			}
			if err := tx.Model(c).Association("Products").Append(item); err != nil {
				return fmt.Errorf("attach line %d: %w", item.ID, models.Translate(err))
			}
		default:
			return err
		}
		return Recalc(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveFromCart drops the product's line from the actor's cart.
func (s *Service) RemoveFromCart(ctx context.Context, a auth.Actor, kind, slug string) (*models.Cart, error) {
	var c *models.Cart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := models.ResolveSlug(tx, kind, slug)
		if err != nil {
			return err
		}
		c, _, err = currentCart(tx, a)
		if err != nil {
			return err
		}
		item, err := findLine(tx, c, models.RefOf(p))
		if err != nil {
			return err
		}
		if err := tx.Model(c).Association("Products").Delete(item); err != nil {
			return fmt.Errorf("detach line %d: %w", item.ID, models.Translate(err))
		}
		if err := tx.Delete(item).Error; err != nil {
			return fmt.Errorf("delete line %d: %w", item.ID, models.Translate(err))
		}
		return Recalc(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ChangeQuantity sets the quantity of the product's line in the actor's cart.
func (s *Service) ChangeQuantity(ctx context.Context, a auth.Actor, kind, slug string, qty int) (*models.Cart, error) {
	if qty < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1, got %d", models.ErrValidation, qty)
	}
	var c *models.Cart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := models.ResolveSlug(tx, kind, slug)
		if err != nil {
			return err
		}
		c, _, err = currentCart(tx, a)
		if err != nil {
			return err
		}
		item, err := findLine(tx, c, models.RefOf(p))
		if err != nil {
			return err
		}
		item.Qty = qty
		if err := tx.Save(item).Error; err != nil {
			return fmt.Errorf("update line %d: %w", item.ID, models.Translate(err))
		}
		return Recalc(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CartView loads the actor's cart with each line's product resolved. Lines
// whose product was deleted are removed and the totals recalculated.
func (s *Service) CartView(ctx context.Context, a auth.Actor) (*View, error) {
	var view *View
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, _, err := currentCart(tx, a)
		if err != nil {
			return err
		}
		var items []*models.CartProduct
		if err := tx.Model(c).Association("Products").Find(&items); err != nil {
			return fmt.Errorf("load cart %d lines: %w", c.ID, models.Translate(err))
		}
		live, err := dropDeadLines(tx, c, items)
		if err != nil {
			return err
		}
		if len(live) != len(items) {
			if err := Recalc(ctx, tx, c); err != nil {
				return err
			}
		}
		c.Products = live

		lines := make([]Line, 0, len(live))
		for _, item := range live {
			p, err := models.Resolve(tx, item.Ref())
			if err != nil {
				return err
			}
			lines = append(lines, Line{
				CartProduct: item,
				Title:       p.GetTitle(),
				Price:       p.GetPrice(),
				URL:         catalog.ProductURL(p),
			})
		}
		view = &View{Cart: c, Lines: lines}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// currentCart also returns the customer id line items should be owned by;
// it is nil for anonymous carts.
func currentCart(tx *gorm.DB, a auth.Actor) (*models.Cart, *uint, error) {
	var c models.Cart
	if a.Authenticated() {
		var customer models.Customer
		if err := tx.Where(models.Customer{UserID: a.UserID}).FirstOrCreate(&customer).Error; err != nil {
			return nil, nil, fmt.Errorf("customer for user %d: %w", a.UserID, models.Translate(err))
		}
		err := tx.Where("owner_id = ? AND in_order = ?", customer.ID, false).
			Attrs(models.Cart{OwnerID: &customer.ID}).
			FirstOrCreate(&c).Error
		if err != nil {
			return nil, nil, fmt.Errorf("cart for customer %d: %w", customer.ID, models.Translate(err))
		}
		return &c, &customer.ID, nil
	}

	if a.SessionToken == "" {
		return nil, nil, fmt.Errorf("%w: no session for anonymous cart", models.ErrValidation)
	}
	err := tx.Where("session_token = ? AND for_anonymous_user = ? AND in_order = ?", a.SessionToken, true, false).
		Attrs(models.Cart{ForAnonymousUser: true, SessionToken: a.SessionToken}).
		FirstOrCreate(&c).Error
	if err != nil {
		return nil, nil, fmt.Errorf("anonymous cart: %w", models.Translate(err))
	}
	return &c, nil, nil
}

func findLine(tx *gorm.DB, c *models.Cart, ref models.ProductRef) (*models.CartProduct, error) {
	var item models.CartProduct
	err := tx.Where("cart_id = ? AND product_kind = ? AND product_id = ?", c.ID, ref.Kind, ref.ID).
		First(&item).Error
	if err != nil {
		return nil, fmt.Errorf("%s %d in cart %d: %w", ref.Kind, ref.ID, c.ID, models.Translate(err))
	}
	return &item, nil
}
