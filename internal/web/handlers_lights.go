package web

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dokzlo13/huepanel/internal/color"
	"github.com/dokzlo13/huepanel/internal/hue"
)

// colorForm pre-fills the color dialog from the current authoritative
// representation. Only the fields of that mode are set.
type colorForm struct {
	Mode    string
	Swatch  string
	R, G, B uint8
	X, Y    float64
	Hue     uint16
	Sat     uint8
	Bri     uint8
}

func newColorForm(s color.State) colorForm {
	f := colorForm{Mode: s.Mode().String(), Swatch: swatch(s)}
	if rgb, err := s.RGBForDisplay(); err == nil {
		f.R, f.G, f.B = rgb.Bytes()
	}
	if xy, ok := s.XY(); ok {
		f.X, f.Y, f.Bri = xy.X, xy.Y, xy.Bri()
	}
	if hsb, ok := s.HSB(); ok {
		f.Hue, f.Sat, f.Bri = hsb.DeviceHue(), hsb.DeviceSat(), hsb.Bri()
	}
	return f
}

// bridgeWriteErr turns a failed bridge write into a flash message on the
// page the form came from.
func bridgeWriteErr(c *fiber.Ctx, back string, err error) error {
	var apiErr *hue.APIError
	if errors.As(err, &apiErr) {
		return redirectErr(c, back, apiErrorMessage(apiErr))
	}
	if errors.Is(err, hue.ErrEmptyCommand) {
		return redirectErr(c, back, "nothing to change")
	}
	return redirectErr(c, back, "Bridge request failed: "+err.Error())
}

func apiErrorMessage(e *hue.APIError) string {
	switch e.Type {
	case hue.ErrTypeUnauthorized:
		return "The bridge no longer accepts this username, link it again"
	case hue.ErrTypeResourceNotFound:
		return "Not found on the bridge: " + e.Address
	case hue.ErrTypeInvalidValue:
		return "Invalid value: " + e.Description
	case hue.ErrTypeLinkButtonNotSet:
		return "Press the link button on the bridge and retry"
	case hue.ErrTypeDeviceOff:
		return "Turn the light on first: " + e.Description
	case hue.ErrTypeGroupTableFull:
		return "The bridge cannot hold more groups"
	case hue.ErrTypeScheduleTableFull:
		return "The bridge cannot hold more schedules"
	default:
		return e.Description
	}
}

func (s *Server) handleLight(c *fiber.Ctx) error {
	ref, err := s.resolveBridge(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.ErrNotFound
	}

	light, err := ref.Client.Light(c.UserContext(), id)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	return c.Render("templates/light", s.page(c, light.Name, fiber.Map{
		"Ref":        ref,
		"Light":      light,
		"Color":      newColorForm(light.Color()),
		"Transition": s.opts.DefaultTransition,
	}))
}

func (s *Server) handleLightState(c *fiber.Ctx) error {
	ref, err := s.resolveBridge(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.ErrNotFound
	}
	back := ref.path(fmt.Sprintf("/lights/%d", id))

	cmd, err := s.parseCommand(c)
	if err != nil {
		return redirectErr(c, back, fiberMessage(err))
	}

	if err := ref.Client.SetLightState(c.UserContext(), id, cmd); err != nil {
		return bridgeWriteErr(c, back, err)
	}
	return redirectMsg(c, back, "Light updated")
}

func (s *Server) handleRenameLight(c *fiber.Ctx) error {
	ref, err := s.resolveBridge(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.ErrNotFound
	}
	back := ref.path(fmt.Sprintf("/lights/%d", id))

	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" || len(name) > 32 {
		return redirectErr(c, back, "name must be 1 to 32 characters")
	}

	if err := ref.Client.RenameLight(c.UserContext(), id, name); err != nil {
		return bridgeWriteErr(c, back, err)
	}
	return redirectMsg(c, back, "Light renamed")
}

func (s *Server) handleDeleteLight(c *fiber.Ctx) error {
	ref, err := s.resolveBridge(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.ErrNotFound
	}

	if err := ref.Client.DeleteLight(c.UserContext(), id); err != nil {
		return bridgeWriteErr(c, ref.path(fmt.Sprintf("/lights/%d", id)), err)
	}
	return redirectMsg(c, ref.path(""), "Light removed")
}

func (s *Server) handleGroup(c *fiber.Ctx) error {
	ref, err := s.resolveBridge(c)
	if err != nil {
		return err
	}
	gid, err := c.ParamsInt("gid")
	if err != nil {
		return fiber.ErrNotFound
	}
	ctx := c.UserContext()

	group, err := ref.Client.Group(ctx, gid)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	lights, err := ref.Client.Lights(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	type member struct {
		hue.Light
		Member bool
	}
	members := make([]member, 0, len(lights))
	for _, l := range lights {
		members = append(members, member{Light: l, Member: group.HasLight(fmt.Sprint(l.ID))})
	}

	return c.Render("templates/group", s.page(c, group.Name, fiber.Map{
		"Ref":        ref,
		"Group":      group,
		"Members":    members,
		"Color":      newColorForm(group.Color()),
		"Transition": s.opts.DefaultTransition,
	}))
}

func (s *Server) handleCreateGroup(c *fiber.Ctx) error {
	ref, err := s.resolveBridge(c)
	if err != nil {
		return err
	}
	back := ref.path("")

	lights, err := parseLightIDs(c)
	if err != nil {
		return redirectErr(c, back, fiberMessage(err))
	}
	if len(lights) == 0 {
		return redirectErr(c, back, "select at least one light")
	}

	id, err := ref.Client.CreateGroup(c.UserContext(), strings.TrimSpace(c.FormValue("name")), lights)
	if err != nil {
		return bridgeWriteErr(c, back, err)
	}
	return redirectMsg(c, ref.path(fmt.Sprintf("/groups/%d", id)), "Group created")
}

func (s *Server) handleEditGroup(c *fiber.Ctx) error {
	ref, err := s.resolveBridge(c)
	if err != nil {
		return err
	}
	gid, err := c.ParamsInt("gid")
	if err != nil {
		return fiber.ErrNotFound
	}
	back := ref.path(fmt.Sprintf("/groups/%d", gid))

	lights, err := parseLightIDs(c)
	if err != nil {
		return redirectErr(c, back, fiberMessage(err))
	}
	if len(lights) == 0 {
		lights = nil
	}

	if err := ref.Client.UpdateGroup(c.UserContext(), gid, strings.TrimSpace(c.FormValue("name")), lights); err != nil {
		return bridgeWriteErr(c, back, err)
	}
	return redirectMsg(c, back, "Group updated")
}

func (s *Server) handleGroupAction(c *fiber.Ctx) error {
	ref, err := s.resolveBridge(c)
	if err != nil {
		return err
	}
	gid, err := c.ParamsInt("gid")
	if err != nil {
		return fiber.ErrNotFound
	}
	back := ref.path(fmt.Sprintf("/groups/%d", gid))

	cmd, err := s.parseCommand(c)
	if err != nil {
		return redirectErr(c, back, fiberMessage(err))
	}

	if err := ref.Client.SetGroupAction(c.UserContext(), gid, cmd); err != nil {
		return bridgeWriteErr(c, back, err)
	}
	return redirectMsg(c, back, "Group updated")
}

func (s *Server) handleDeleteGroup(c *fiber.Ctx) error {
	ref, err := s.resolveBridge(c)
	if err != nil {
		return err
	}
	gid, err := c.ParamsInt("gid")
	if err != nil {
		return fiber.ErrNotFound
	}

	if err := ref.Client.DeleteGroup(c.UserContext(), gid); err != nil {
		return bridgeWriteErr(c, ref.path(""), err)
	}
	return redirectMsg(c, ref.path(""), "Group deleted")
}

func (s *Server) handleCreateSchedule(c *fiber.Ctx) error {
	ref, err := s.resolveBridge(c)
	if err != nil {
		return err
	}
	back := ref.path("")

	at, err := parseScheduleTime(c, time.Now())
	if err != nil {
		return redirectErr(c, back, fiberMessage(err))
	}

	target, err := optInt(c, "target_id", 0, 1<<16)
	if err != nil {
		return redirectErr(c, back, fiberMessage(err))
	}
	if target == nil {
		return redirectErr(c, back, "target is required")
	}

	cmd, err := s.parseCommand(c)
	if err != nil {
		return redirectErr(c, back, fiberMessage(err))
	}

	req := hue.ScheduleRequest{
		Name:        strings.TrimSpace(c.FormValue("name")),
		Description: strings.TrimSpace(c.FormValue("description")),
		At:          at,
		Group:       c.FormValue("target") == "group",
		TargetID:    *target,
		Command:     cmd,
	}
	if _, err := ref.Client.CreateSchedule(c.UserContext(), req); err != nil {
		return bridgeWriteErr(c, back, err)
	}
	return redirectMsg(c, back, "Schedule created")
}

// handleEditSchedule updates a schedule's name and description, and its
// time or command when those fields are filled in.
func (s *Server) handleEditSchedule(c *fiber.Ctx) error {
	ref, err := s.resolveBridge(c)
	if err != nil {
		return err
	}
	sid, err := c.ParamsInt("sid")
	if err != nil {
		return fiber.ErrNotFound
	}
	back := ref.path("")

	req := hue.ScheduleRequest{
		Name:        strings.TrimSpace(c.FormValue("name")),
		Description: strings.TrimSpace(c.FormValue("description")),
	}

	if c.FormValue("date") != "" || c.FormValue("time") != "" {
		if req.At, err = parseScheduleTime(c, time.Now()); err != nil {
			return redirectErr(c, back, fiberMessage(err))
		}
	}

	target, err := optInt(c, "target_id", 0, 1<<16)
	if err != nil {
		return redirectErr(c, back, fiberMessage(err))
	}
	if target != nil {
		if req.Command, err = s.parseCommand(c); err != nil {
			return redirectErr(c, back, fiberMessage(err))
		}
		req.Group = c.FormValue("target") == "group"
		req.TargetID = *target
	}

	if err := ref.Client.UpdateSchedule(c.UserContext(), sid, req); err != nil {
		return bridgeWriteErr(c, back, err)
	}
	return redirectMsg(c, back, "Schedule updated")
}

func (s *Server) handleDeleteSchedule(c *fiber.Ctx) error {
	ref, err := s.resolveBridge(c)
	if err != nil {
		return err
	}
	sid, err := c.ParamsInt("sid")
	if err != nil {
		return fiber.ErrNotFound
	}

	if err := ref.Client.DeleteSchedule(c.UserContext(), sid); err != nil {
		return bridgeWriteErr(c, ref.path(""), err)
	}
	return redirectMsg(c, ref.path(""), "Schedule deleted")
}

// fiberMessage strips the status code from a *fiber.Error.
func fiberMessage(err error) string {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	return err.Error()
}
