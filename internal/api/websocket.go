package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/titanbreach/engine/internal/apperr"
	"github.com/titanbreach/engine/internal/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebsocketUpgrade is GET /ws?geohash=<g>&token=<token> (spec §4.6):
// the token is verified the same way a bearer header would be, then the
// connection is handed to the geohash-partitioned broadcast hub.
func (d *Deps) handleWebsocketUpgrade(c *gin.Context) {
	token := c.Query("token")
	geohash := c.Query("geohash")
	if token == "" || geohash == "" {
		respondError(c, apperr.New(apperr.CodeBadRequest, "geohash and token query parameters are required"))
		return
	}

	if _, err := auth.Verify(c.Request.Context(), d.Sessions, token, time.Now()); err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		d.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	d.Hub.Subscribe(conn, geohash)
}
