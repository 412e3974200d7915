package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/datavines/warn-console/internal/config"
	"github.com/datavines/warn-console/internal/logging"
	"github.com/datavines/warn-console/internal/model"
	"github.com/datavines/warn-console/internal/service"
	"github.com/datavines/warn-console/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

const localUsername = "username"

// Server wires HTTP handlers.
type Server struct {
	app      *fiber.App
	tableSvc *service.TableService
	authSvc  *service.AuthService
	store    storage.Store
	cfg      *config.Config
	logger   *zap.Logger
	tables   []table
}

// table binds one console table to its URL prefix.
type table struct {
	path string
	kind model.TableKind
	list func(ctx context.Context, q model.TableQuery) (any, error)
}

// New builds a server instance.
func New(cfg *config.Config, store storage.Store, tableSvc *service.TableService, authSvc *service.AuthService, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		IdleTimeout:           cfg.HTTP.ReadTimeout,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		AppName:               "warn-console",
		DisableStartupMessage: true,
	})
	s := &Server{
		app:      app,
		tableSvc: tableSvc,
		authSvc:  authSvc,
		store:    store,
		cfg:      cfg,
		logger:   logging.OrNop(logger),
	}
	s.tables = []table{
		{path: "/warning", kind: model.KindWarning, list: func(ctx context.Context, q model.TableQuery) (any, error) {
			return tableSvc.Warnings(ctx, q)
		}},
		{path: "/warning/metric", kind: model.KindWarnMetric, list: func(ctx context.Context, q model.TableQuery) (any, error) {
			return tableSvc.WarnMetrics(ctx, q)
		}},
		{path: "/notice", kind: model.KindNotice, list: func(ctx context.Context, q model.TableQuery) (any, error) {
			return tableSvc.Notices(ctx, q)
		}},
	}
	s.registerRoutes()
	return s
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens and serves HTTP traffic.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.cfg.HTTP.Addr))
	return s.app.Listen(s.cfg.HTTP.Addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Use(s.logRequests)
	s.app.Use(recover.New())

	s.app.Get("/healthz", s.handleHealth)

	s.app.Post("/auth/login", s.handleLogin)
	s.app.Post("/auth/refresh", s.handleRefresh)
	s.app.Get("/auth/profile", s.handleProfile)

	api := s.app.Group("/api", s.requireAuth)
	for _, t := range s.tables {
		// The list route is registered before /:id so "list" never parses as an id.
		api.Get(t.path+"/list", s.handleList(t))
		api.Post(t.path, s.handleCreate(t))
		api.Get(t.path+"/:id", s.handleGet(t))
		api.Put(t.path+"/:id", s.handleRename(t))
		api.Delete(t.path+"/:id", s.handleDelete(t))
	}
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else {
			status = http.StatusInternalServerError
		}
	}
	fields := []zap.Field{
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("latency", time.Since(start)),
	}
	if username, ok := c.Locals(localUsername).(string); ok && username != "" {
		fields = append(fields, zap.String("username", username))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Info("request completed", fields...)
	}
	return err
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	resp := fiber.Map{"status": "ok"}
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		resp["storage"] = fiber.Map{"status": "degraded", "error": err.Error()}
	} else {
		resp["storage"] = fiber.Map{"status": "up"}
	}
	return c.Status(http.StatusOK).JSON(resp)
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !s.authSvc.Enabled() {
		return c.JSON(model.Success("login not required", fiber.Map{
			"token":    "",
			"enabled":  false,
			"username": "guest",
		}))
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("malformed request body"))
	}
	token, err := s.authSvc.Authenticate(req.Username, req.Password)
	if err != nil {
		s.logger.Warn("login rejected", zap.String("username", req.Username))
		return c.Status(http.StatusUnauthorized).JSON(model.Error(err.Error()))
	}
	return c.JSON(model.Success("login succeeded", fiber.Map{
		"token":    token,
		"enabled":  true,
		"username": s.authSvc.Username(),
	}))
}

func (s *Server) handleRefresh(c *fiber.Ctx) error {
	if !s.authSvc.Enabled() {
		return c.JSON(model.Success("login not required", fiber.Map{"token": "", "enabled": false}))
	}
	token := extractBearerToken(c.Get("Authorization"))
	if token == "" {
		return c.Status(http.StatusUnauthorized).JSON(model.Error("not logged in"))
	}
	refreshed, err := s.authSvc.Refresh(token)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(model.Error("session expired"))
	}
	return c.JSON(model.Success("token refreshed", fiber.Map{
		"token":   refreshed,
		"enabled": true,
	}))
}

func (s *Server) handleProfile(c *fiber.Ctx) error {
	if !s.authSvc.Enabled() {
		return c.JSON(model.Success("ok", fiber.Map{
			"enabled":  false,
			"username": "guest",
		}))
	}
	token := extractBearerToken(c.Get("Authorization"))
	if token == "" {
		return c.Status(http.StatusUnauthorized).JSON(model.Error("not logged in"))
	}
	claims, err := s.authSvc.Validate(token)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(model.Error("session expired"))
	}
	data := fiber.Map{
		"enabled":  true,
		"username": claims.UserName,
	}
	if claims.ExpiresAt != nil {
		data["expiresAt"] = claims.ExpiresAt.Time.UTC().Format(time.RFC3339)
	}
	return c.JSON(model.Success("ok", data))
}

func (s *Server) handleList(t table) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := t.list(c.UserContext(), parseTableQuery(c))
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(model.Success("ok", page))
	}
}

func (s *Server) handleCreate(t table) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req service.ItemRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(model.Error("malformed request body"))
		}
		item, err := s.tableSvc.Create(c.UserContext(), t.kind, req)
		if err != nil {
			return s.fail(c, err)
		}
		return c.Status(http.StatusCreated).JSON(model.Success("created", item))
	}
}

func (s *Server) handleGet(t table) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return s.fail(c, err)
		}
		item, err := s.tableSvc.Get(c.UserContext(), t.kind, id)
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(model.Success("ok", item))
	}
}

func (s *Server) handleRename(t table) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return s.fail(c, err)
		}
		var req service.ItemRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(model.Error("malformed request body"))
		}
		item, err := s.tableSvc.Rename(c.UserContext(), t.kind, id, req)
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(model.Success("updated", item))
	}
}

func (s *Server) handleDelete(t table) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return s.fail(c, err)
		}
		if err := s.tableSvc.Delete(c.UserContext(), t.kind, id); err != nil {
			return s.fail(c, err)
		}
		return c.JSON(model.Success("deleted", nil))
	}
}

// fail maps service errors onto HTTP status codes.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return c.Status(http.StatusNotFound).JSON(model.Error("record not found"))
	case errors.Is(err, service.ErrInvalidID), errors.Is(err, storage.ErrUnknownKind):
		return c.Status(http.StatusBadRequest).JSON(model.Error(err.Error()))
	case errors.As(err, &verrs):
		return c.Status(http.StatusBadRequest).JSON(model.Error(validationMessage(verrs)))
	default:
		s.logger.Error("request error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(model.Error("internal error"))
	}
}

func validationMessage(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, strings.ToLower(fe.Field())+" is required")
		case "max":
			msgs = append(msgs, strings.ToLower(fe.Field())+" must be at most "+fe.Param()+" characters")
		default:
			msgs = append(msgs, strings.ToLower(fe.Field())+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

func parseID(c *fiber.Ctx) (model.ItemID, error) {
	raw := strings.TrimSpace(c.Params("id"))
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return model.ItemID{}, service.ErrInvalidID
	}
	return model.IntID(n), nil
}

func parseTableQuery(c *fiber.Ctx) model.TableQuery {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	return model.TableQuery{
		Name:     c.Query("name"),
		Page:     page,
		PageSize: pageSize,
	}
}

func (s *Server) requireAuth(c *fiber.Ctx) error {
	if !s.authSvc.Enabled() {
		return c.Next()
	}
	token := extractBearerToken(c.Get("Authorization"))
	if token == "" {
		return c.Status(http.StatusUnauthorized).JSON(model.Error("not logged in"))
	}
	claims, err := s.authSvc.Validate(token)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(model.Error("session expired"))
	}
	c.Locals(localUsername, claims.UserName)
	return c.Next()
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
