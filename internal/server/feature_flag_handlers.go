package server

import (
	"kinship/internal/featureflags"

	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags handles GET /api/features
// @Summary Feature flags for the caller
// @Description realtime is true only when the push flag is on and the hub is running; otherwise clients poll
// @Tags features
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{raw=map[string]string,evaluated=map[string]bool,realtime=bool}
// @Router /features [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID := currentUserID(c)
	raw := map[string]string{}
	evaluated := map[string]bool{}
	if s.featureFlags != nil {
		raw = s.featureFlags.Raw()
		evaluated = s.featureFlags.Snapshot(userID)
	}
	return c.JSON(fiber.Map{
		"raw":       raw,
		"evaluated": evaluated,
		"realtime":  s.hub != nil && evaluated[featureflags.RealtimePush],
	})
}
