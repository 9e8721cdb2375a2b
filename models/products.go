package models

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	KindNotebook   = "notebook"
	KindSmartphone = "smartphone"
)

// Product is implemented by every concrete product kind. The set of kinds is
// closed: Notebook and Smartphone, registered in kinds below.
type Product interface {
	Kind() string
	GetID() uint
	GetTitle() string
	GetSlug() string
	GetPrice() decimal.Decimal
	GetCategoryID() uint
}

// ProductRef points at one product row of a given kind.
type ProductRef struct {
	Kind string `json:"kind"`
	ID   uint   `json:"id"`
}

func RefOf(p Product) ProductRef {
	return ProductRef{Kind: p.Kind(), ID: p.GetID()}
}

// Kind knows how to load rows of one product table.
type Kind struct {
	Tag string
	// New returns an empty instance, used for creates and counts.
	New func() Product

	find   func(db *gorm.DB, query string, args ...any) (Product, error)
	latest func(db *gorm.DB, limit int) ([]Product, error)
	list   func(db *gorm.DB, categoryID uint) ([]Product, error)
}

var kinds = map[string]Kind{
	KindNotebook:   kindOf[Notebook](KindNotebook),
	KindSmartphone: kindOf[Smartphone](KindSmartphone),
}

// productRow constrains the generic helpers to pointer receivers of the
// concrete product structs.
type productRow[T any] interface {
	*T
	Product
}

func kindOf[T any, PT productRow[T]](tag string) Kind {
	return Kind{
		Tag: tag,
		New: func() Product { return PT(new(T)) },
		find: func(db *gorm.DB, query string, args ...any) (Product, error) {
			row := new(T)
			if err := db.Where(query, args...).First(row).Error; err != nil {
				return nil, Translate(err)
			}
			return PT(row), nil
		},
		latest: func(db *gorm.DB, limit int) ([]Product, error) {
			var rows []T
			if err := db.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
				return nil, Translate(err)
			}
			return toProducts[T, PT](rows), nil
		},
		list: func(db *gorm.DB, categoryID uint) ([]Product, error) {
			var rows []T
			if err := db.Where("category_id = ?", categoryID).Order("id DESC").Find(&rows).Error; err != nil {
				return nil, Translate(err)
			}
			return toProducts[T, PT](rows), nil
		},
	}
}

func toProducts[T any, PT productRow[T]](rows []T) []Product {
	out := make([]Product, len(rows))
	for i := range rows {
		out[i] = PT(&rows[i])
	}
	return out
}

// LookupKind returns the registered kind for tag, or ErrUnknownKind.
func LookupKind(tag string) (Kind, error) {
	k, ok := kinds[tag]
	if !ok {
		return Kind{}, fmt.Errorf("%w: %q", ErrUnknownKind, tag)
	}
	return k, nil
}

// KindTags returns every registered tag in sorted order.
func KindTags() []string {
	tags := make([]string, 0, len(kinds))
	for tag := range kinds {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func (k Kind) ByID(db *gorm.DB, id uint) (Product, error) {
	p, err := k.find(db, "id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("%s %d: %w", k.Tag, id, err)
	}
	return p, nil
}

func (k Kind) BySlug(db *gorm.DB, slug string) (Product, error) {
	p, err := k.find(db, "slug = ?", slug)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", k.Tag, slug, err)
	}
	return p, nil
}

// Latest returns up to limit rows, newest first.
func (k Kind) Latest(db *gorm.DB, limit int) ([]Product, error) {
	return k.latest(db, limit)
}

func (k Kind) InCategory(db *gorm.DB, categoryID uint) ([]Product, error) {
	return k.list(db, categoryID)
}

func (k Kind) CountInCategory(db *gorm.DB, categoryID uint) (int64, error) {
	var n int64
	if err := db.Model(k.New()).Where("category_id = ?", categoryID).Count(&n).Error; err != nil {
		return 0, Translate(err)
	}
	return n, nil
}

// Resolve loads the concrete product a reference points at.
func Resolve(db *gorm.DB, ref ProductRef) (Product, error) {
	k, err := LookupKind(ref.Kind)
	if err != nil {
		return nil, err
	}
	return k.ByID(db, ref.ID)
}

func ResolveSlug(db *gorm.DB, tag, slug string) (Product, error) {
	k, err := LookupKind(tag)
	if err != nil {
		return nil, err
	}
	return k.BySlug(db, slug)
}

// IsNotFound reports whether err is any flavour of missing row or kind.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
