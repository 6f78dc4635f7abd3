package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/fadedpez/quantumtheater/pkg/services/party"
)

// Identity headers set by the fronting proxy
const (
	HeaderUserLogin  = "X-User-Login"
	HeaderUserName   = "X-User-Name"
	HeaderUserAvatar = "X-User-Avatar"
)

const localUser = "user_login"

// Identity attaches the caller's login to the request. Anonymous requests
// pass through; operations that need a user reject them. The login is
// copied out of the request buffer because watchers keep it after the
// request returns.
func Identity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(localUser, header(c, HeaderUserLogin))
		return c.Next()
	}
}

func header(c *fiber.Ctx, name string) string {
	return utils.CopyString(strings.TrimSpace(c.Get(name)))
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUser).(string)
	return id
}

func viewer(c *fiber.Ctx) party.Viewer {
	return party.Viewer{
		UserID:    userID(c),
		Username:  header(c, HeaderUserName),
		AvatarURL: header(c, HeaderUserAvatar),
	}
}
