package web

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huepanel/internal/account"
	"github.com/dokzlo13/huepanel/internal/color"
	"github.com/dokzlo13/huepanel/internal/hue"
)

const historyLimit = 100

// bridgeRef is a registered bridge resolved from the :idx route parameter.
type bridgeRef struct {
	Account *account.Account
	Index   int
	Bridge  account.Bridge
	Client  Bridge
}

func (r bridgeRef) path(suffix string) string {
	return fmt.Sprintf("/bridges/%d%s", r.Index, suffix)
}

func (s *Server) resolveBridge(c *fiber.Ctx) (*bridgeRef, error) {
	acct, err := s.loadAccount(c)
	if err != nil {
		return nil, err
	}
	idx, err := c.ParamsInt("idx")
	if err != nil {
		return nil, fiber.ErrNotFound
	}
	b, err := acct.BridgeAt(idx)
	if errors.Is(err, account.ErrNoBridge) {
		return nil, fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		return nil, err
	}
	return &bridgeRef{Account: acct, Index: idx, Bridge: b, Client: s.opts.Dial(b)}, nil
}

type bridgeView struct {
	Index    int
	Name     string
	Location string
	Address  string
}

func (s *Server) handleBridges(c *fiber.Ctx) error {
	acct, err := s.loadAccount(c)
	if err != nil {
		return err
	}

	views := make([]bridgeView, 0, len(acct.Bridges))
	for i, b := range acct.Bridges {
		views = append(views, bridgeView{Index: i, Name: b.Name, Location: b.Location, Address: b.Address()})
	}

	return c.Render("templates/bridges", s.page(c, "Bridges", fiber.Map{
		"Account": acct,
		"Bridges": views,
	}))
}

// parseBridgeForm reads the address fields shared by add and link.
func parseBridgeForm(c *fiber.Ctx) (account.Bridge, error) {
	b := account.Bridge{
		Name:     strings.TrimSpace(c.FormValue("name")),
		Location: strings.TrimSpace(c.FormValue("location")),
		IP:       strings.TrimSpace(c.FormValue("ip")),
		Port:     80,
		Username: strings.TrimSpace(c.FormValue("username")),
	}
	if b.IP == "" {
		return b, errors.New("IP address is required")
	}
	if raw := strings.TrimSpace(c.FormValue("port")); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port < 1 || port > 65535 {
			return b, errors.New("port must be between 1 and 65535")
		}
		b.Port = port
	}
	if b.Name == "" {
		b.Name = b.IP
	}
	return b, nil
}

// handleAddBridge registers a bridge with an existing API username. The
// username is checked by listing lights before the bridge is saved.
func (s *Server) handleAddBridge(c *fiber.Ctx) error {
	b, err := parseBridgeForm(c)
	if err != nil {
		return redirectErr(c, "/bridges", err.Error())
	}
	if b.Username == "" {
		return redirectErr(c, "/bridges", "username is required; use link to register a new one")
	}

	if _, err := s.opts.Dial(b).Lights(c.UserContext()); err != nil {
		log.Info().Err(err).Str("bridge", b.Address()).Msg("Bridge verification failed")
		return redirectErr(c, "/bridges", "Could not reach bridge with these credentials: "+err.Error())
	}

	return s.saveBridge(c, b)
}

// handleLinkBridge registers a new API user on the bridge; the link button
// must have been pressed.
func (s *Server) handleLinkBridge(c *fiber.Ctx) error {
	b, err := parseBridgeForm(c)
	if err != nil {
		return redirectErr(c, "/bridges", err.Error())
	}

	user, err := s.opts.Register(c.UserContext(), b.Address(), s.opts.DeviceType)
	if err != nil {
		return redirectErr(c, "/bridges", "Registration failed, press the link button and retry: "+err.Error())
	}
	b.Username = user

	return s.saveBridge(c, b)
}

func (s *Server) saveBridge(c *fiber.Ctx, b account.Bridge) error {
	_, err := s.opts.Accounts.Update(currentEmail(c), func(a *account.Account) error {
		return a.AddBridge(b)
	})
	if errors.Is(err, account.ErrExists) {
		return redirectErr(c, "/bridges", "This bridge is already registered")
	}
	if err != nil {
		return err
	}

	log.Info().Str("email", currentEmail(c)).Str("bridge", b.Address()).Msg("Bridge added")
	return redirectMsg(c, "/bridges", "Bridge "+b.Name+" added")
}

func (s *Server) handleDiscover(c *fiber.Ctx) error {
	found, err := s.opts.Discover(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{"bridges": found})
}

// handleEditBridge saves the bridge details. A new address or username is
// checked by listing lights before it replaces the stored one.
func (s *Server) handleEditBridge(c *fiber.Ctx) error {
	ref, err := s.resolveBridge(c)
	if err != nil {
		return err
	}
	back := ref.path("")

	b := ref.Bridge
	b.Name = strings.TrimSpace(c.FormValue("name"))
	if b.Name == "" {
		return redirectErr(c, back, "name is required")
	}
	b.Location = strings.TrimSpace(c.FormValue("location"))
	if ip := strings.TrimSpace(c.FormValue("ip")); ip != "" {
		b.IP = ip
	}
	if raw := strings.TrimSpace(c.FormValue("port")); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port < 1 || port > 65535 {
			return redirectErr(c, back, "port must be between 1 and 65535")
		}
		b.Port = port
	}
	if user := strings.TrimSpace(c.FormValue("username")); user != "" {
		b.Username = user
	}

	moved := b.Address() != ref.Bridge.Address() || b.Username != ref.Bridge.Username
	if moved {
		if _, err := s.opts.Dial(b).Lights(c.UserContext()); err != nil {
			log.Info().Err(err).Str("bridge", b.Address()).Msg("Bridge verification failed")
			return redirectErr(c, back, "Could not reach bridge with these credentials: "+err.Error())
		}
	}

	_, err = s.opts.Accounts.Update(currentEmail(c), func(a *account.Account) error {
		return a.ReplaceBridgeAt(ref.Index, b)
	})
	if errors.Is(err, account.ErrExists) {
		return redirectErr(c, back, "Another registered bridge has this address")
	}
	if err != nil {
		return err
	}

	if moved {
		log.Info().Str("email", currentEmail(c)).Str("from", ref.Bridge.Address()).Str("to", b.Address()).Msg("Bridge moved")
	}
	return redirectMsg(c, back, "Bridge updated")
}

func (s *Server) handleDeleteBridge(c *fiber.Ctx) error {
	ref, err := s.resolveBridge(c)
	if err != nil {
		return err
	}

	_, err = s.opts.Accounts.Update(currentEmail(c), func(a *account.Account) error {
		return a.RemoveBridgeAt(ref.Index)
	})
	if err != nil {
		return err
	}

	log.Info().Str("email", currentEmail(c)).Str("bridge", ref.Bridge.Address()).Msg("Bridge removed")
	return redirectMsg(c, "/bridges", "Bridge removed")
}

func (s *Server) handleShareBridge(c *fiber.Ctx) error {
	ref, err := s.resolveBridge(c)
	if err != nil {
		return err
	}

	to := strings.TrimSpace(c.FormValue("email"))
	err = s.opts.Accounts.ShareBridge(currentEmail(c), ref.Index, to)

	var verr *account.ValidationError
	switch {
	case errors.As(err, &verr):
		return redirectErr(c, "/bridges", verr.Error())
	case errors.Is(err, account.ErrNotFound):
		return redirectErr(c, "/bridges", "No account with email "+to)
	case errors.Is(err, account.ErrExists):
		return redirectErr(c, "/bridges", to+" already has this bridge")
	case err != nil:
		return err
	}
	return redirectMsg(c, "/bridges", "Bridge shared with "+to)
}

type lightView struct {
	hue.Light
	Swatch string
}

type groupView struct {
	hue.Group
	Swatch string
}

func swatch(s color.State) string {
	rgb, err := s.RGBForDisplay()
	if err != nil {
		rgb = color.DefaultDisplay
	}
	return rgb.Hex()
}

func (s *Server) handleBridge(c *fiber.Ctx) error {
	ref, err := s.resolveBridge(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	data := fiber.Map{
		"Ref":        ref,
		"Bridge":     ref.Bridge,
		"Color":      newColorForm(color.State{}),
		"Transition": s.opts.DefaultTransition,
	}

	lights, err := ref.Client.Lights(ctx)
	if err != nil {
		log.Warn().Err(err).Str("bridge", ref.Bridge.Address()).Msg("Failed to load lights")
		data["BridgeErr"] = err.Error()
		return c.Render("templates/bridge", s.page(c, ref.Bridge.Name, data))
	}
	lv := make([]lightView, 0, len(lights))
	for _, l := range lights {
		lv = append(lv, lightView{Light: l, Swatch: swatch(l.Color())})
	}
	data["Lights"] = lv

	groups, err := ref.Client.Groups(ctx)
	if err != nil {
		return err
	}
	gv := make([]groupView, 0, len(groups))
	for _, g := range groups {
		gv = append(gv, groupView{Group: g, Swatch: swatch(g.Color())})
	}
	data["Groups"] = gv

	schedules, err := ref.Client.Schedules(ctx)
	if err != nil {
		return err
	}
	data["Schedules"] = schedules

	if info, err := ref.Client.Info(ctx); err == nil {
		data["Info"] = info
	}

	return c.Render("templates/bridge", s.page(c, ref.Bridge.Name, data))
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	ref, err := s.resolveBridge(c)
	if err != nil {
		return err
	}

	entries, err := s.opts.History.Recent(ref.Bridge.Address(), historyLimit)
	if err != nil {
		return err
	}

	return c.Render("templates/history", s.page(c, ref.Bridge.Name+" history", fiber.Map{
		"Ref":     ref,
		"Bridge":  ref.Bridge,
		"Entries": entries,
	}))
}
