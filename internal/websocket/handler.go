package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/mautops/expense-approval/internal/httpapi/identity"
)

var upgrader = gorillaWS.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Origin is enforced by the CORS middleware in front of this
		// handler, not here.
		return true
	},
}

// Handler upgrades an authenticated request to a WebSocket connection and
// registers it on hub under the resolved actor's id, so ExpenseLifecycle's
// notification listener can push state-change events to it.
func Handler(hub *Hub, resolver *identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		actor, err := resolver.ResolveToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
			return
		}

		client := NewClient(uuid.New().String(), actor.ID, hub, conn)

		hub.Register <- client

		go client.ReadPump()
		go client.WritePump()
	}
}
