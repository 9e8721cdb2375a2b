// Package testdb opens throwaway SQLite databases with the shop schema and
// seeds the catalog fixtures tests share.
package testdb

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/judyrop/shop-backend/models"
)

// Open returns a migrated in-memory database private to t.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database alive and serializes access.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func Category(t testing.TB, db *gorm.DB, name, slug string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, Slug: slug}
	require.NoError(t, db.Create(c).Error)
	return c
}

func Notebook(t testing.TB, db *gorm.DB, category *models.Category, title, slug, price string) *models.Notebook {
	t.Helper()
	n := &models.Notebook{
		ProductBase: models.ProductBase{
			CategoryID: category.ID,
			Title:      title,
			Slug:       slug,
			Image:      "notebook_image.jpg",
			Price:      decimal.RequireFromString(price),
		},
		Diagonal:          "17.3",
		DisplayType:       "IPS",
		ProcessorFreq:     "3.4 GHz",
		RAM:               "6 GB",
		Video:             "GeForce GTX",
		TimeWithoutCharge: "10 hours",
	}
	require.NoError(t, db.Create(n).Error)
	return n
}

func Smartphone(t testing.TB, db *gorm.DB, category *models.Category, title, slug, price string) *models.Smartphone {
	t.Helper()
	s := &models.Smartphone{
		ProductBase: models.ProductBase{
			CategoryID: category.ID,
			Title:      title,
			Slug:       slug,
			Image:      "smartphone_image.jpg",
			Price:      decimal.RequireFromString(price),
		},
		Diagonal:     "6.1",
		DisplayType:  "OLED",
		Resolution:   "2532x1170",
		AccumVolume:  "3000 mAh",
		RAM:          "4 GB",
		SD:           true,
		SDVolumeMax:  "128 GB",
		MainCamMP:    "12 MP",
		FrontalCamMP: "12 MP",
	}
	require.NoError(t, db.Create(s).Error)
	return s
}

// Customer creates an identity record and its customer profile.
func Customer(t testing.TB, db *gorm.DB, subject string) *models.Customer {
	t.Helper()
	u := &models.User{Subject: subject, Username: subject}
	require.NoError(t, db.Create(u).Error)
	c := &models.Customer{UserID: u.ID, Phone: "111111111", Address: "Address"}
	require.NoError(t, db.Create(c).Error)
	return c
}
