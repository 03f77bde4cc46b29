// Package web serves the browser UI.
package web

import (
	"context"
	"embed"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huepanel/internal/account"
	"github.com/dokzlo13/huepanel/internal/hue"
	"github.com/dokzlo13/huepanel/internal/ledger"
	"github.com/dokzlo13/huepanel/internal/session"
)

//go:embed templates/*
var templates embed.FS

const sessionCookie = "huepanel_session"

// Bridge is the subset of hue.Client the handlers use
type Bridge interface {
	Info(ctx context.Context) (*hue.BridgeInfo, error)
	Lights(ctx context.Context) ([]hue.Light, error)
	Light(ctx context.Context, id int) (*hue.Light, error)
	Groups(ctx context.Context) ([]hue.Group, error)
	Group(ctx context.Context, id int) (*hue.Group, error)
	Schedules(ctx context.Context) ([]hue.Schedule, error)
	SetLightState(ctx context.Context, id int, cmd hue.Command) error
	SetGroupAction(ctx context.Context, id int, cmd hue.Command) error
	RenameLight(ctx context.Context, id int, name string) error
	DeleteLight(ctx context.Context, id int) error
	CreateGroup(ctx context.Context, name string, lights []string) (int, error)
	UpdateGroup(ctx context.Context, id int, name string, lights []string) error
	DeleteGroup(ctx context.Context, id int) error
	CreateSchedule(ctx context.Context, req hue.ScheduleRequest) (int, error)
	UpdateSchedule(ctx context.Context, id int, req hue.ScheduleRequest) error
	DeleteSchedule(ctx context.Context, id int) error
}

// Sessions issues and checks login sessions
type Sessions interface {
	Issue(email string) (string, error)
	Validate(token string) (*session.Record, error)
	Revoke(token string) error
	RevokeAll(email string) error
	TTL() time.Duration
}

// History lists recent bridge commands
type History interface {
	Recent(bridge string, limit int) ([]*ledger.Entry, error)
}

// Options wires the server to its collaborators.
type Options struct {
	Addr         string
	CookieSecure bool

	Accounts *account.Store
	Sessions Sessions
	History  History

	// Dial returns a client for a registered bridge.
	Dial func(b account.Bridge) Bridge
	// Register performs link-button registration.
	Register func(ctx context.Context, address, deviceType string) (string, error)
	// Discover lists bridges on the local network.
	Discover func(ctx context.Context) ([]hue.DiscoveredBridge, error)

	DeviceType        string
	DefaultTransition int // deciseconds
}

// Server is the web UI server.
type Server struct {
	opts Options
	app  *fiber.App
}

// NewServer creates the fiber app and registers all routes.
func NewServer(opts Options) *Server {
	if opts.DefaultTransition == 0 {
		opts.DefaultTransition = hue.DefaultTransitionTime
	}

	engine := html.NewFileSystem(http.FS(templates), ".html")

	s := &Server{opts: opts}
	s.app = fiber.New(fiber.Config{
		Views:                 engine,
		ViewsLayout:           "templates/layout",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(requestLogger)

	s.routes()
	return s
}

// App exposes the fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) routes() {
	app := s.app

	// Public routes
	app.Get("/", s.handleIndex)
	app.Get("/login", s.handleLoginPage)
	app.Post("/login", s.handleLogin)
	app.Get("/register", s.handleRegisterPage)
	app.Post("/register", s.handleRegister)
	app.Post("/logout", s.handleLogout)

	// Protected routes
	bridges := app.Group("/bridges", s.requireAuth)
	bridges.Get("", s.handleBridges)
	bridges.Post("", s.handleAddBridge)
	bridges.Post("/link", s.handleLinkBridge)
	bridges.Get("/discover", s.handleDiscover)
	bridges.Get("/:idx", s.handleBridge)
	bridges.Post("/:idx", s.handleEditBridge)
	bridges.Post("/:idx/delete", s.handleDeleteBridge)
	bridges.Post("/:idx/share", s.handleShareBridge)
	bridges.Get("/:idx/history", s.handleHistory)

	bridges.Get("/:idx/lights/:id", s.handleLight)
	bridges.Post("/:idx/lights/:id/state", s.handleLightState)
	bridges.Post("/:idx/lights/:id/rename", s.handleRenameLight)
	bridges.Post("/:idx/lights/:id/delete", s.handleDeleteLight)

	bridges.Post("/:idx/groups", s.handleCreateGroup)
	bridges.Get("/:idx/groups/:gid", s.handleGroup)
	bridges.Post("/:idx/groups/:gid", s.handleEditGroup)
	bridges.Post("/:idx/groups/:gid/action", s.handleGroupAction)
	bridges.Post("/:idx/groups/:gid/delete", s.handleDeleteGroup)

	bridges.Post("/:idx/schedules", s.handleCreateSchedule)
	bridges.Post("/:idx/schedules/:sid", s.handleEditSchedule)
	bridges.Post("/:idx/schedules/:sid/delete", s.handleDeleteSchedule)

	profile := app.Group("/profile", s.requireAuth)
	profile.Get("", s.handleProfile)
	profile.Post("", s.handleUpdateProfile)
	profile.Post("/password", s.handleChangePassword)

	// JSON routes for the color sliders
	api := app.Group("/api", s.requireAPIAuth)
	api.Get("/color/preview", s.handleColorPreview)
}

// Run serves until ctx is cancelled, then shuts down and waits for
// in-flight requests, up to shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	log.Info().Str("addr", s.opts.Addr).Msg("Starting web server")

	shutdown := make(chan struct{})
	go func() {
		defer close(shutdown)
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Error().Err(err).Msg("Web server shutdown error")
		}
	}()

	if err := s.app.Listen(s.opts.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-shutdown
	log.Info().Msg("Web server stopped")
	return nil
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	if code >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
	}

	c.Status(code)
	if isAPI(c) {
		return c.JSON(fiber.Map{"error": err.Error()})
	}
	return c.Render("templates/error", fiber.Map{
		"Title":   "Error",
		"Code":    code,
		"Message": err.Error(),
	})
}
