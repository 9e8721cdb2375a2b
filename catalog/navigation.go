package catalog

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/judyrop/shop-backend/models"
)

// navigationKinds says which product kind is counted for each category,
// keyed by category display name. A category missing here cannot be rendered
// in the navigation; ValidateNavigation reports that at startup.
var navigationKinds = map[string]string{
	"Ноутбуки":    models.KindNotebook,
	"Notebooks":   models.KindNotebook,
	"Смартфоны":   models.KindSmartphone,
	"Smartphones": models.KindSmartphone,
}

type NavItem struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	ProductCount int64  `json:"product_count"`
}

func navigationKind(c models.Category) (models.Kind, error) {
	tag, ok := navigationKinds[c.Name]
	if !ok {
		return models.Kind{}, fmt.Errorf("%w: %q", models.ErrUnmappedCategory, c.Name)
	}
	return models.LookupKind(tag)
}

// Navigation builds the category menu with product counts.
func Navigation(ctx context.Context, db *gorm.DB) ([]NavItem, error) {
	db = db.WithContext(ctx)
	var categories []models.Category
	if err := db.Order("id").Find(&categories).Error; err != nil {
		return nil, models.Translate(err)
	}
	items := make([]NavItem, 0, len(categories))
	for _, c := range categories {
		k, err := navigationKind(c)
		if err != nil {
			return nil, err
		}
		n, err := k.CountInCategory(db, c.ID)
		if err != nil {
			return nil, fmt.Errorf("count %s in %q: %w", k.Tag, c.Slug, err)
		}
		items = append(items, NavItem{Name: c.Name, URL: CategoryURL(c), ProductCount: n})
	}
	return items, nil
}

// ValidateNavigation fails if any stored category is absent from the
// navigation mapping.
func ValidateNavigation(ctx context.Context, db *gorm.DB) error {
	var categories []models.Category
	if err := db.WithContext(ctx).Find(&categories).Error; err != nil {
		return models.Translate(err)
	}
	var unmapped []string
	for _, c := range categories {
		if _, err := navigationKind(c); err != nil {
			unmapped = append(unmapped, c.Name)
		}
	}
	if len(unmapped) > 0 {
		return fmt.Errorf("%w: %s", models.ErrUnmappedCategory, strings.Join(unmapped, ", "))
	}
	return nil
}

// IsNavigationName reports whether a category with this name can be shown
// in the navigation.
func IsNavigationName(name string) bool {
	_, ok := navigationKinds[name]
	return ok
}
