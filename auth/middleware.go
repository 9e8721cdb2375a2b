package auth

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/judyrop/shop-backend/models"
)

const (
	CookieName   = "cart_token"
	HeaderName   = "X-Cart-Token"
	bearerPrefix = "Bearer "
)

// Identity is what a verified ID token tells us about the user.
type Identity struct {
	Subject  string
	Username string
	Email    string
}

type IDVerifier interface {
	Verify(ctx context.Context, rawToken string) (Identity, error)
}

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer and verifies ID tokens minted for clientID.
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (IDVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, err
	}
	return &oidcVerifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

func (v *oidcVerifier) Verify(ctx context.Context, rawToken string) (Identity, error) {
	tok, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return Identity{}, err
	}
	var claims struct {
		Email             string `json:"email"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := tok.Claims(&claims); err != nil {
		return Identity{}, err
	}
	return Identity{Subject: tok.Subject, Username: claims.PreferredUsername, Email: claims.Email}, nil
}

// Session resolves the actor for every request. A bearer ID token makes the
// request authenticated; otherwise the guest token from the header or cookie
// is used, and a fresh one is issued when neither is present or valid.
func Session(db *gorm.DB, verifier IDVerifier, guests *GuestTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			if !strings.HasPrefix(authHeader, bearerPrefix) || verifier == nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
				return
			}
			id, err := verifier.Verify(c.Request.Context(), strings.TrimPrefix(authHeader, bearerPrefix))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				return
			}
			user, err := userFor(db.WithContext(c.Request.Context()), id)
			if err != nil {
				log.Printf("resolve user %q: %v", id.Subject, err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve user"})
				return
			}
			SetActor(c, Authenticated(user.ID))
			c.Next()
			return
		}

		if sessionID, ok := guestSession(c, guests); ok {
			SetActor(c, Anonymous(sessionID))
			c.Next()
			return
		}

		sessionID, token, expires, err := guests.Issue()
		if err != nil {
			log.Printf("issue guest token: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to start session"})
			return
		}
		setGuestCookie(c, token, expires)
		SetActor(c, Anonymous(sessionID))
		c.Next()
	}
}

// RequireUser rejects requests that did not present a valid ID token.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a, ok := ActorFrom(c); !ok || !a.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}

// IssueGuest hands out a new anonymous session token.
func IssueGuest(guests *GuestTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, token, expires, err := guests.Issue()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Token generation failed"})
			return
		}
		setGuestCookie(c, token, expires)
		c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": expires})
	}
}

func guestSession(c *gin.Context, guests *GuestTokens) (string, bool) {
	token := c.GetHeader(HeaderName)
	if token == "" {
		token, _ = c.Cookie(CookieName)
	}
	if token == "" {
		return "", false
	}
	sessionID, err := guests.Parse(token)
	if err != nil {
		return "", false
	}
	return sessionID, true
}

func setGuestCookie(c *gin.Context, token string, expires time.Time) {
	c.Header(HeaderName, token)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(time.Until(expires).Seconds()), "/", "", false, true)
}

func userFor(db *gorm.DB, id Identity) (*models.User, error) {
	var user models.User
	err := db.Where(models.User{Subject: id.Subject}).
		Attrs(models.User{Username: id.Username, Email: id.Email}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, models.Translate(err)
	}
	return &user, nil
}
