package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:255;not null" json:"name"`
	Slug string `gorm:"size:255;not null;uniqueIndex" json:"slug"`

	Notebooks   []Notebook   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Smartphones []Smartphone `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (c *Category) BeforeSave(tx *gorm.DB) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: category name is required", ErrValidation)
	}
	if !slugPattern.MatchString(c.Slug) {
		return fmt.Errorf("%w: invalid category slug %q", ErrValidation, c.Slug)
	}
	return nil
}

// ProductBase holds the columns every product kind shares. Each kind is still
// stored in its own table.
type ProductBase struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CategoryID  uint            `gorm:"not null;index" json:"category_id"`
	Title       string          `gorm:"size:255;not null" json:"title"`
	Slug        string          `gorm:"size:255;not null;uniqueIndex" json:"slug"`
	Image       string          `gorm:"size:255" json:"image"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Price       decimal.Decimal `gorm:"type:decimal(9,2);not null" json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (p *ProductBase) validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: product title is required", ErrValidation)
	}
	if !slugPattern.MatchString(p.Slug) {
		return fmt.Errorf("%w: invalid product slug %q", ErrValidation, p.Slug)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	return nil
}

func (p *ProductBase) GetID() uint { return p.ID }

func (p *ProductBase) GetTitle() string { return p.Title }

func (p *ProductBase) GetSlug() string { return p.Slug }

func (p *ProductBase) GetPrice() decimal.Decimal { return p.Price }

func (p *ProductBase) GetCategoryID() uint { return p.CategoryID }

type Notebook struct {
	ProductBase
	Diagonal          string `json:"diagonal"`
	DisplayType       string `json:"display_type"`
	ProcessorFreq     string `json:"processor_freq"`
	RAM               string `gorm:"column:ram" json:"ram"`
	Video             string `json:"video"`
	TimeWithoutCharge string `json:"time_without_charge"`
}

func (*Notebook) Kind() string { return KindNotebook }

func (n *Notebook) BeforeSave(tx *gorm.DB) error { return n.validate() }

type Smartphone struct {
	ProductBase
	Diagonal     string `json:"diagonal"`
	DisplayType  string `json:"display_type"`
	Resolution   string `json:"resolution"`
	AccumVolume  string `json:"accum_volume"`
	RAM          string `gorm:"column:ram" json:"ram"`
	SD           bool   `gorm:"column:sd" json:"sd"`
	SDVolumeMax  string `gorm:"column:sd_volume_max" json:"sd_volume_max,omitempty"`
	MainCamMP    string `gorm:"column:main_cam_mp" json:"main_cam_mp"`
	FrontalCamMP string `gorm:"column:frontal_cam_mp" json:"frontal_cam_mp"`
}

func (*Smartphone) Kind() string { return KindSmartphone }

func (s *Smartphone) BeforeSave(tx *gorm.DB) error { return s.validate() }

// User is the identity record an authenticated request maps to.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Subject  string `gorm:"size:255;not null;uniqueIndex" json:"subject"`
	Username string `gorm:"size:150" json:"username"`
	Email    string `gorm:"size:255" json:"email"`
}

type Customer struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	UserID  uint   `gorm:"not null;uniqueIndex" json:"user_id"`
	User    *User  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Phone   string `gorm:"size:20" json:"phone"`
	Address string `gorm:"size:255" json:"address"`
}

type Cart struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	OwnerID          *uint           `gorm:"index" json:"owner_id"`
	Owner            *Customer       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Products         []*CartProduct  `gorm:"many2many:cart_cart_products;constraint:OnDelete:CASCADE" json:"products"`
	TotalProducts    int             `gorm:"not null;default:0" json:"total_products"`
	FinalPrice       decimal.Decimal `gorm:"type:decimal(9,2);not null;default:0" json:"final_price"`
	InOrder          bool            `gorm:"not null;default:false" json:"in_order"`
	ForAnonymousUser bool            `gorm:"not null;default:false" json:"for_anonymous_user"`
	SessionToken     string          `gorm:"size:64;index" json:"-"`
	Version          int             `gorm:"not null;default:0" json:"-"`
}

// CartProduct is one line of a cart: a quantity of a single product reference.
type CartProduct struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      *uint           `gorm:"index" json:"user_id"`
	User        *Customer       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CartID      uint            `gorm:"not null;uniqueIndex:idx_cart_product_ref" json:"cart_id"`
	Cart        *Cart           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ProductKind string          `gorm:"size:32;not null;uniqueIndex:idx_cart_product_ref" json:"product_kind"`
	ProductID   uint            `gorm:"not null;uniqueIndex:idx_cart_product_ref" json:"product_id"`
	Qty         int             `gorm:"not null;default:1" json:"qty"`
	FinalPrice  decimal.Decimal `gorm:"type:decimal(9,2);not null" json:"final_price"`
}

func (cp *CartProduct) Ref() ProductRef {
	return ProductRef{Kind: cp.ProductKind, ID: cp.ProductID}
}

// BeforeSave keeps FinalPrice equal to Qty times the referenced product's price.
func (cp *CartProduct) BeforeSave(tx *gorm.DB) error {
	if cp.Qty == 0 {
		cp.Qty = 1
	}
	if cp.Qty < 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	p, err := Resolve(tx.Session(&gorm.Session{NewDB: true}), cp.Ref())
	if err != nil {
		return err
	}
	cp.FinalPrice = LineTotal(p.GetPrice(), cp.Qty)
	return nil
}

func LineTotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}

// All lists every model for AutoMigrate, parents first.
func All() []any {
	return []any{
		&Category{},
		&Notebook{},
		&Smartphone{},
		&User{},
		&Customer{},
		&Cart{},
		&CartProduct{},
	}
}
