package web

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huepanel/internal/ledger"
)

const localEmail = "email"

// requestLogger logs every request through zerolog.
func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		// the error handler has not run yet
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else {
			status = fiber.StatusInternalServerError
		}
	}

	log.Debug().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", status).
		Dur("duration", time.Since(start)).
		Msg("HTTP request")

	return err
}

// requireAuth validates the session cookie and redirects to the login page
// when it is missing or no longer valid.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	email, ok := s.authenticate(c)
	if !ok {
		return c.Redirect("/login")
	}
	c.Locals(localEmail, email)
	c.SetUserContext(ledger.WithActor(c.UserContext(), email))
	return c.Next()
}

// requireAPIAuth is requireAuth for JSON routes.
func (s *Server) requireAPIAuth(c *fiber.Ctx) error {
	email, ok := s.authenticate(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	c.Locals(localEmail, email)
	return c.Next()
}

func (s *Server) authenticate(c *fiber.Ctx) (string, bool) {
	token := c.Cookies(sessionCookie)
	if token == "" {
		return "", false
	}
	rec, err := s.opts.Sessions.Validate(token)
	if err != nil {
		log.Debug().Err(err).Str("path", c.Path()).Msg("Session rejected")
		return "", false
	}
	return rec.Email, true
}

func currentEmail(c *fiber.Ctx) string {
	email, _ := c.Locals(localEmail).(string)
	return email
}

func isAPI(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api/")
}

func (s *Server) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Expires:  time.Now().Add(s.opts.Sessions.TTL()),
		HTTPOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: "Strict",
	})
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: "Strict",
	})
}
