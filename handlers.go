package main

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/judyrop/shop-backend/auth"
	"github.com/judyrop/shop-backend/cart"
	"github.com/judyrop/shop-backend/catalog"
	"github.com/judyrop/shop-backend/models"
	"github.com/judyrop/shop-backend/routes"
)

type handlers struct {
	db    *gorm.DB
	carts *cart.Service
}

type productResponse struct {
	Kind    string         `json:"kind"`
	URL     string         `json:"url"`
	Product models.Product `json:"product"`
}

func productResponses(products []models.Product) []productResponse {
	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = productResponse{Kind: p.Kind(), URL: catalog.ProductURL(p), Product: p}
	}
	return out
}

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrIntegrity), errors.Is(err, models.ErrStaleCart):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func actor(c *gin.Context) auth.Actor {
	a, _ := auth.ActorFrom(c)
	return a
}

func (h *handlers) home(c *gin.Context) {
	nav, err := catalog.Navigation(c.Request.Context(), h.db)
	if err != nil {
		respondError(c, err)
		return
	}
	products, err := catalog.LatestProducts(c.Request.Context(), h.db, models.KindTags(), c.Query("prefer"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"categories": nav,
		"products":   productResponses(products),
	})
}

func (h *handlers) listCategories(c *gin.Context) {
	nav, err := catalog.Navigation(c.Request.Context(), h.db)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nav)
}

func (h *handlers) createCategory(c *gin.Context) {
	var category models.Category
	if err := c.ShouldBindJSON(&category); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	category.ID = 0
	if !catalog.IsNavigationName(category.Name) {
		respondError(c, models.ErrUnmappedCategory)
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&category).Error; err != nil {
		respondError(c, models.Translate(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": category, "url": catalog.CategoryURL(category)})
}

func (h *handlers) categoryDetail(c *gin.Context) {
	category, products, err := catalog.CategoryProducts(c.Request.Context(), h.db, c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"category": category,
		"products": productResponses(products),
	})
}

func (h *handlers) createProduct(c *gin.Context) {
	k, err := models.LookupKind(c.Param("kind"))
	if err != nil {
		respondError(c, err)
		return
	}
	p := k.New()
	if err := c.ShouldBindJSON(p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if p.GetID() != 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is assigned by the server"})
		return
	}
	db := h.db.WithContext(c.Request.Context())
	var category models.Category
	if err := db.First(&category, p.GetCategoryID()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Category does not exist"})
			return
		}
		respondError(c, err)
		return
	}
	if err := db.Create(p).Error; err != nil {
		respondError(c, models.Translate(err))
		return
	}
	c.JSON(http.StatusCreated, productResponse{Kind: p.Kind(), URL: catalog.ProductURL(p), Product: p})
}

func (h *handlers) productDetail(c *gin.Context) {
	p, err := models.ResolveSlug(h.db.WithContext(c.Request.Context()), c.Param("kind"), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, productResponse{Kind: p.Kind(), URL: catalog.ProductURL(p), Product: p})
}

func (h *handlers) viewCart(c *gin.Context) {
	view, err := h.carts.CartView(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) addToCart(c *gin.Context) {
	if _, err := h.carts.AddToCart(c.Request.Context(), actor(c), c.Param("kind"), c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, routes.MustReverse(routes.Cart))
}

func (h *handlers) removeFromCart(c *gin.Context) {
	if _, err := h.carts.RemoveFromCart(c.Request.Context(), actor(c), c.Param("kind"), c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, routes.MustReverse(routes.Cart))
}

func (h *handlers) changeQty(c *gin.Context) {
	var req struct {
		Qty int `json:"qty" form:"qty" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.carts.ChangeQuantity(c.Request.Context(), actor(c), c.Param("kind"), c.Param("slug"), req.Qty); err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, routes.MustReverse(routes.Cart))
}

// createCustomer stores the contact profile of the signed-in user.
func (h *handlers) createCustomer(c *gin.Context) {
	var req struct {
		Phone   string `json:"phone"`
		Address string `json:"address"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a := actor(c)
	var customer models.Customer
	err := h.db.WithContext(c.Request.Context()).
		Where(models.Customer{UserID: a.UserID}).
		Assign(models.Customer{Phone: req.Phone, Address: req.Address}).
		FirstOrCreate(&customer).Error
	if err != nil {
		respondError(c, models.Translate(err))
		return
	}
	c.JSON(http.StatusCreated, customer)
}
