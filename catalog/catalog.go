package catalog

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/judyrop/shop-backend/models"
	"github.com/judyrop/shop-backend/routes"
)

// LatestPerKind is how many products of each kind the homepage shows.
const LatestPerKind = 5

func ProductURL(p models.Product) string {
	return routes.MustReverse(routes.ProductDetail, p.Kind(), p.GetSlug())
}

func CategoryURL(c models.Category) string {
	return routes.MustReverse(routes.CategoryDetail, c.Slug)
}

// LatestProducts returns up to LatestPerKind of the newest products of every
// requested kind, concatenated in request order. Repeated tags count once.
// When preferred is one of the requested kinds its products are moved to the
// front; the relative order is otherwise kept.
func LatestProducts(ctx context.Context, db *gorm.DB, tags []string, preferred string) ([]models.Product, error) {
	db = db.WithContext(ctx)
	var out []models.Product
	requested := false
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		k, err := models.LookupKind(tag)
		if err != nil {
			return nil, err
		}
		latest, err := k.Latest(db, LatestPerKind)
		if err != nil {
			return nil, fmt.Errorf("latest %s: %w", tag, err)
		}
		out = append(out, latest...)
		if tag == preferred {
			requested = true
		}
	}
	if requested {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Kind() == preferred && out[j].Kind() != preferred
		})
	}
	return out, nil
}

// CategoryProducts lists every product filed under the category, kind by kind.
func CategoryProducts(ctx context.Context, db *gorm.DB, slug string) (*models.Category, []models.Product, error) {
	db = db.WithContext(ctx)
	var category models.Category
	if err := db.Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, nil, fmt.Errorf("category %q: %w", slug, models.Translate(err))
	}
	var products []models.Product
	for _, tag := range models.KindTags() {
		k, _ := models.LookupKind(tag)
		rows, err := k.InCategory(db, category.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("%s in category %q: %w", tag, slug, err)
		}
		products = append(products, rows...)
	}
	return &category, products, nil
}
