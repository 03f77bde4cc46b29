package web

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huepanel/internal/account"
)

func (s *Server) handleIndex(c *fiber.Ctx) error {
	if _, ok := s.authenticate(c); ok {
		return c.Redirect("/bridges")
	}
	return c.Redirect("/login")
}

func (s *Server) handleLoginPage(c *fiber.Ctx) error {
	return c.Render("templates/login", s.page(c, "Log in", nil))
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.FormValue("email"))
	password := c.FormValue("password")

	acct, err := s.opts.Accounts.Authenticate(email, password)
	if errors.Is(err, account.ErrInvalidCredentials) {
		log.Info().Str("email", email).Msg("Login failed")
		c.Status(fiber.StatusUnauthorized)
		return c.Render("templates/login", s.page(c, "Log in", fiber.Map{
			"Err":   "Invalid email or password",
			"Email": email,
		}))
	}
	if err != nil {
		return err
	}

	token, err := s.opts.Sessions.Issue(acct.Email)
	if err != nil {
		return err
	}
	s.setSessionCookie(c, token)

	log.Info().Str("email", acct.Email).Msg("Logged in")
	return c.Redirect("/bridges")
}

func (s *Server) handleRegisterPage(c *fiber.Ctx) error {
	return c.Render("templates/register", s.page(c, "Create account", nil))
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	first := strings.TrimSpace(c.FormValue("first_name"))
	last := strings.TrimSpace(c.FormValue("last_name"))
	email := strings.TrimSpace(c.FormValue("email"))
	password := c.FormValue("password")
	confirm := c.FormValue("confirm")

	fail := func(msg string) error {
		c.Status(fiber.StatusBadRequest)
		return c.Render("templates/register", s.page(c, "Create account", fiber.Map{
			"Err":       msg,
			"FirstName": first,
			"LastName":  last,
			"Email":     email,
		}))
	}

	if password != confirm {
		return fail("Passwords do not match")
	}

	acct, err := s.opts.Accounts.Create(first, last, email, password)
	var verr *account.ValidationError
	switch {
	case errors.As(err, &verr):
		return fail(verr.Error())
	case errors.Is(err, account.ErrExists):
		return fail("An account with this email already exists")
	case err != nil:
		return err
	}

	token, err := s.opts.Sessions.Issue(acct.Email)
	if err != nil {
		return err
	}
	s.setSessionCookie(c, token)
	return c.Redirect("/bridges")
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	if token := c.Cookies(sessionCookie); token != "" {
		if err := s.opts.Sessions.Revoke(token); err != nil {
			log.Warn().Err(err).Msg("Failed to revoke session")
		}
	}
	s.clearSessionCookie(c)
	return c.Redirect("/login")
}

func (s *Server) handleProfile(c *fiber.Ctx) error {
	acct, err := s.loadAccount(c)
	if err != nil {
		return err
	}
	return c.Render("templates/profile", s.page(c, "Profile", fiber.Map{
		"Account": acct,
	}))
}

func (s *Server) handleUpdateProfile(c *fiber.Ctx) error {
	_, err := s.opts.Accounts.UpdateProfile(currentEmail(c),
		strings.TrimSpace(c.FormValue("first_name")),
		strings.TrimSpace(c.FormValue("last_name")))

	var verr *account.ValidationError
	if errors.As(err, &verr) {
		return redirectErr(c, "/profile", verr.Error())
	}
	if err != nil {
		return err
	}
	return redirectMsg(c, "/profile", "Profile updated")
}

// handleChangePassword also revokes every session of the account, then
// issues a fresh one for the current browser.
func (s *Server) handleChangePassword(c *fiber.Ctx) error {
	email := currentEmail(c)
	next := c.FormValue("new_password")
	if next != c.FormValue("confirm") {
		return redirectErr(c, "/profile", "Passwords do not match")
	}

	err := s.opts.Accounts.ChangePassword(email, c.FormValue("current_password"), next)
	var verr *account.ValidationError
	switch {
	case errors.As(err, &verr):
		return redirectErr(c, "/profile", verr.Error())
	case errors.Is(err, account.ErrInvalidCredentials):
		return redirectErr(c, "/profile", "Current password is incorrect")
	case err != nil:
		return err
	}

	if err := s.opts.Sessions.RevokeAll(email); err != nil {
		log.Warn().Err(err).Str("email", email).Msg("Failed to revoke sessions")
	}
	token, err := s.opts.Sessions.Issue(email)
	if err != nil {
		return err
	}
	s.setSessionCookie(c, token)

	log.Info().Str("email", email).Msg("Password changed")
	return redirectMsg(c, "/profile", "Password changed")
}

// loadAccount loads the logged-in account. A session whose account file has
// gone is treated as logged out.
func (s *Server) loadAccount(c *fiber.Ctx) (*account.Account, error) {
	acct, err := s.opts.Accounts.Load(currentEmail(c))
	if errors.Is(err, account.ErrNotFound) {
		s.clearSessionCookie(c)
		return nil, fiber.NewError(fiber.StatusUnauthorized, "account no longer exists")
	}
	return acct, err
}

// page builds template data with the flash messages and login state.
func (s *Server) page(c *fiber.Ctx, title string, data fiber.Map) fiber.Map {
	m := fiber.Map{
		"Title": title,
		"User":  currentEmail(c),
	}
	if msg := c.Query("msg"); msg != "" {
		m["Msg"] = msg
	}
	if e := c.Query("err"); e != "" {
		m["Err"] = e
	}
	for k, v := range data {
		m[k] = v
	}
	return m
}

func redirectMsg(c *fiber.Ctx, path, msg string) error {
	return c.Redirect(path + "?msg=" + url.QueryEscape(msg))
}

func redirectErr(c *fiber.Ctx, path, msg string) error {
	return c.Redirect(path + "?err=" + url.QueryEscape(msg))
}
