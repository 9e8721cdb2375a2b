package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/judyrop/shop-backend/auth"
	"github.com/judyrop/shop-backend/cart"
	"github.com/judyrop/shop-backend/catalog"
	"github.com/judyrop/shop-backend/config"
	"github.com/judyrop/shop-backend/models"
	"github.com/judyrop/shop-backend/routes"
)

// Deps is everything the router needs.
type Deps struct {
	DB          *gorm.DB
	Verifier    auth.IDVerifier
	Guests      *auth.GuestTokens
	CORSOrigins []string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}
	if !cfg.SkipNavCheck {
		if err := catalog.ValidateNavigation(context.Background(), db); err != nil {
			log.Fatal("Navigation check failed:", err)
		}
	}

	r := SetupRouter(Deps{
		DB:          db,
		Verifier:    initOIDC(cfg),
		Guests:      auth.NewGuestTokens(cfg.GuestTokenSecret, cfg.GuestTokenTTL),
		CORSOrigins: cfg.CORSOrigins,
	})
	log.Printf("Shop backend listening on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Server stopped:", err)
	}
}

// initOIDC returns nil when no client id is configured; only anonymous
// carts are available then.
func initOIDC(cfg *config.Config) auth.IDVerifier {
	if cfg.OIDCClientID == "" {
		log.Println("OIDC_CLIENT_ID not set, sign-in disabled")
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	verifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
	if err != nil {
		log.Fatal(err)
	}
	return verifier
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	if len(d.CORSOrigins) == 0 || (len(d.CORSOrigins) == 1 && d.CORSOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = d.CORSOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", auth.HeaderName)
	corsCfg.ExposeHeaders = []string{auth.HeaderName}
	r.Use(cors.New(corsCfg))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/auth/guest", auth.IssueGuest(d.Guests))

	h := &handlers{db: d.DB, carts: cart.NewService(d.DB)}
	s := r.Group("/", auth.Session(d.DB, d.Verifier, d.Guests))

	// Catalog
	s.GET(routes.Patterns[routes.Home], h.home)
	s.GET("/categories", h.listCategories)
	s.POST("/categories", h.createCategory)
	s.GET(routes.Patterns[routes.CategoryDetail], h.categoryDetail)
	s.POST("/products/:kind", h.createProduct)
	s.GET(routes.Patterns[routes.ProductDetail], h.productDetail)

	// Cart
	s.GET(routes.Patterns[routes.Cart], h.viewCart)
	s.GET(routes.Patterns[routes.AddToCart], h.addToCart)
	s.POST(routes.Patterns[routes.AddToCart], h.addToCart)
	s.POST(routes.Patterns[routes.RemoveFromCart], h.removeFromCart)
	s.POST(routes.Patterns[routes.ChangeQty], h.changeQty)

	// Customers
	s.POST("/customers", auth.RequireUser(), h.createCustomer)

	return r
}
