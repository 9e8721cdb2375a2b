// Package routes holds the named URL patterns shared by the router and by
// code that needs to build links to catalog pages.
package routes

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	Home           = "home"
	ProductDetail  = "product_detail"
	CategoryDetail = "category_detail"
	Cart           = "cart"
	AddToCart      = "add_to_cart"
	RemoveFromCart = "remove_from_cart"
	ChangeQty      = "change_qty"
)

// Patterns maps route names to gin path patterns.
var Patterns = map[string]string{
	Home:           "/",
	ProductDetail:  "/products/:kind/:slug/",
	CategoryDetail: "/category/:slug/",
	Cart:           "/cart/",
	AddToCart:      "/add-to-cart/:kind/:slug/",
	RemoveFromCart: "/remove-from-cart/:kind/:slug/",
	ChangeQty:      "/change-qty/:kind/:slug/",
}

// Reverse fills the named pattern's parameters in order.
func Reverse(name string, args ...string) (string, error) {
	pattern, ok := Patterns[name]
	if !ok {
		return "", fmt.Errorf("no route named %q", name)
	}
	parts := strings.Split(pattern, "/")
	used := 0
	for i, part := range parts {
		if !strings.HasPrefix(part, ":") {
			continue
		}
		if used >= len(args) {
			return "", fmt.Errorf("route %q: missing value for %s", name, part)
		}
		parts[i] = url.PathEscape(args[used])
		used++
	}
	if used != len(args) {
		return "", fmt.Errorf("route %q takes %d arguments, got %d", name, used, len(args))
	}
	return strings.Join(parts, "/"), nil
}

// MustReverse is Reverse for names and arities fixed at compile time.
func MustReverse(name string, args ...string) string {
	u, err := Reverse(name, args...)
	if err != nil {
		panic(err)
	}
	return u
}
