package auth

import (
	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// Actor is who a cart operation acts for. Exactly one of UserID and
// SessionToken identifies the actor; UserID wins when both are set.
type Actor struct {
	UserID       uint
	SessionToken string
}

func (a Actor) Authenticated() bool { return a.UserID != 0 }

func Anonymous(token string) Actor { return Actor{SessionToken: token} }

func Authenticated(userID uint) Actor { return Actor{UserID: userID} }

func SetActor(c *gin.Context, a Actor) { c.Set(actorKey, a) }

// ActorFrom returns the actor the Session middleware stored on c.
func ActorFrom(c *gin.Context) (Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return Actor{}, false
	}
	a, ok := v.(Actor)
	return a, ok
}
