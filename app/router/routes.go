// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/app/handlers"
	"github.com/amirphl/ring-crm/app/middleware"
	"github.com/amirphl/ring-crm/config"
	_ "github.com/amirphl/ring-crm/docs"
	"github.com/amirphl/ring-crm/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"
)

const (
	apiPrefix  = "/api/v1"
	healthPath = apiPrefix + "/health"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	Shutdown(timeout time.Duration) error
	GetApp() *fiber.App
}

// Handlers bundles every HTTP handler the router mounts
type Handlers struct {
	Auth          handlers.AuthHandlerInterface
	Profile       handlers.ProfileHandlerInterface
	Lead          handlers.LeadHandlerInterface
	Contact       handlers.ContactHandlerInterface
	ScheduledCall handlers.ScheduledCallHandlerInterface
	CallHistory   handlers.CallHistoryHandlerInterface
	Payment       handlers.PaymentHandlerInterface
	AdminAuth     handlers.AdminAuthHandlerInterface
	AdminUser     handlers.AdminUserHandlerInterface
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	cfg      *config.ProductionConfig
	handlers Handlers
	auth     *middleware.AuthMiddleware
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(cfg *config.ProductionConfig, h Handlers, auth *middleware.AuthMiddleware) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Ring CRM API",
		ServerHeader: "ring-crm",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ProxyHeader:  cfg.Server.ProxyHeader,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:      app,
		cfg:      cfg,
		handlers: h,
		auth:     auth,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group(apiPrefix)

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	if r.cfg.IsDevelopment() {
		api.Get("/swagger.json", r.serveSwaggerJSON)
		log.Println("API documentation enabled for development")
	}

	api.Use(rateLimiter(r.cfg.Security.GlobalRateLimit, r.cfg.Security.RateLimitWindow, func(c fiber.Ctx) bool {
		return c.Path() == healthPath
	}))

	h := r.handlers
	authenticate := r.auth.Authenticate()

	// Auth routes with stricter rate limiting
	auth := api.Group("/auth")
	auth.Use(rateLimiter(r.cfg.Security.AuthRateLimit, r.cfg.Security.RateLimitWindow, nil))
	auth.Post("/signup", h.Auth.Signup)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)
	auth.Post("/request-reset-password", h.Auth.RequestPasswordReset)
	auth.Post("/reset-password/:token", h.Auth.ResetPassword)
	auth.Post("/logout", authenticate, h.Auth.Logout)
	auth.Get("/profile", authenticate, h.Profile.GetProfile)

	// Static segments are registered before /:id so they are not captured as IDs
	leads := api.Group("/leads", authenticate)
	leads.Get("/", h.Lead.ListLeads)
	leads.Post("/", h.Lead.CreateLead)
	leads.Get("/next", h.Lead.NextLead)
	leads.Get("/export-csv", h.Lead.ExportCSV)
	leads.Get("/export-xlsx", h.Lead.ExportXLSX)
	leads.Post("/import-csv", h.Lead.ImportCSV)
	leads.Post("/import-csv-text", h.Lead.ImportCSVText)
	leads.Delete("/bulk/delete", h.Lead.BulkDeleteLeads)
	leads.Get("/:id", h.Lead.GetLead)
	leads.Put("/:id", h.Lead.UpdateLead)
	leads.Delete("/:id", h.Lead.DeleteLead)

	contacts := api.Group("/contacts", authenticate)
	contacts.Get("/", h.Contact.ListContacts)
	contacts.Post("/", h.Contact.CreateContact)
	contacts.Get("/export-csv", h.Contact.ExportCSV)
	contacts.Post("/import-csv", h.Contact.ImportCSV)
	contacts.Post("/import-csv-text", h.Contact.ImportCSVText)
	contacts.Put("/:id", h.Contact.UpdateContact)
	contacts.Delete("/:id", h.Contact.DeleteContact)

	calls := api.Group("/scheduled-calls", authenticate)
	calls.Get("/", h.ScheduledCall.ListScheduledCalls)
	calls.Post("/", h.ScheduledCall.CreateScheduledCall)
	calls.Get("/check-reminders", h.ScheduledCall.CheckReminders)
	calls.Get("/:id", h.ScheduledCall.GetScheduledCall)
	calls.Put("/:id", h.ScheduledCall.UpdateScheduledCall)
	calls.Delete("/:id", h.ScheduledCall.DeleteScheduledCall)

	history := api.Group("/call-history", authenticate)
	history.Get("/", h.CallHistory.ListCallHistory)
	history.Post("/", h.CallHistory.CreateCallHistory)
	history.Post("/initiate", h.CallHistory.InitiateCall)
	history.Put("/:id/status", h.CallHistory.UpdateCallStatus)

	payments := api.Group("/payments")
	payments.Post("/create-order", h.Payment.CreateOrder)
	payments.Post("/verify", h.Payment.VerifyPayment)
	payments.Get("/status", h.Payment.SubscriptionStatus)

	admin := api.Group("/admin")
	admin.Get("/captcha/init", h.AdminAuth.InitCaptcha)
	admin.Post("/auth/login", rateLimiter(r.cfg.Security.AuthRateLimit, r.cfg.Security.RateLimitWindow, nil), h.AdminAuth.Login)

	adminUsers := admin.Group("/users", authenticate, r.auth.RequireAdmin())
	adminUsers.Get("/", h.AdminUser.ListUsers)
	adminUsers.Post("/", h.AdminUser.CreateUser)
	adminUsers.Put("/:id", h.AdminUser.UpdateUser)
	adminUsers.Delete("/:id", h.AdminUser.DeleteUser)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

func rateLimiter(max int, window time.Duration, next func(c fiber.Ctx) bool) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: next,
	})
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: generateRequestID,
	}))

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				requestid.FromContext(c),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000,
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none';",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	sec := r.cfg.Security
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     sec.AllowedOrigins,
		AllowMethods:     sec.AllowedMethods,
		AllowHeaders:     append(slices.Clone(sec.AllowedHeaders), fiber.HeaderXRequestID),
		ExposeHeaders:    []string{fiber.HeaderXRequestID, fiber.HeaderContentDisposition, "X-Response-Time"},
		AllowCredentials: sec.AllowCredentials && !slices.Contains(sec.AllowedOrigins, "*"),
		MaxAge:           sec.CORSMaxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
		}))
	}

	if r.cfg.Logging.EnableAccessLog {
		r.app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","request_id":"${respHeader:X-Request-ID}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Next: func(c fiber.Ctx) bool {
				return c.Path() == healthPath
			},
		}))
	}

	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics(r.cfg.Metrics.Path, healthPath))
	}

	r.app.Use(r.responseTimeMiddleware)
}

// responseTimeMiddleware reports the handler latency in a response header
func (r *FiberRouter) responseTimeMiddleware(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	c.Set("X-Response-Time", time.Since(start).String())
	return err
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops accepting connections and waits for in-flight requests
func (r *FiberRouter) Shutdown(timeout time.Duration) error {
	return r.app.ShutdownWithTimeout(timeout)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   r.cfg.Deployment.Version,
			"service":   "ring-crm-api",
		},
	})
}

// serveSwaggerJSON serves the registered OpenAPI document
func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	doc, err := swag.ReadDoc()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to load Swagger documentation",
			Error: dto.ErrorDetail{
				Code: "SWAGGER_LOAD_ERROR",
			},
		})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(doc)
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

// errorHandler answers errors that escaped the handlers
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		log.Printf("Error %d on %s %s: %v", code, c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_")),
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
