package api

import (
	"net/http"

	"github.com/akarpov87/storysync/internal/settings"
	"github.com/gin-gonic/gin"
)

// RequireAdmin gates allow-list mutations. The caller identity comes from
// the X-Actor-Email header; it is checked against the cached allow-list.
// While the allow-list is still empty (fresh deployment) any caller may
// perform the bootstrap mutation.
func RequireAdmin(s *settings.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetHeader(ActorHeader)
		if actor == "" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Status:  "error",
				Code:    "UNAUTHORIZED",
				Message: "missing " + ActorHeader + " header",
			})
			c.Abort()
			return
		}

		current, err := s.Get(c.Request.Context(), false)
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}

		// bootstrap: an uninitialized allow-list accepts its first admin
		if current != nil && len(current.AdminEmails) == 0 {
			c.Next()
			return
		}

		if !s.IsAdmin(actor) {
			c.JSON(http.StatusForbidden, ErrorResponse{
				Status:  "error",
				Code:    "FORBIDDEN",
				Message: "actor is not an admin",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
