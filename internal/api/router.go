package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	jsoniter "github.com/json-iterator/go"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/ponto/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/ponto/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/ponto/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/ponto/internal/ws"
)

// multipart framing on top of the video itself
const bodySlack = 1 << 20

type Dependencies struct {
	Employees   handler.EmployeeService
	Enrollment  handler.EnrollmentService
	Recognition handler.RecognitionService
	Attendance  handler.AttendanceExporter
	// Live serves the attendance feed; nil disables the route.
	Live *ws.Hub
	// DB backs the readiness probe; nil skips the check.
	DB handler.Pinger
}

type Config struct {
	MaxUploadBytes int64
	// RateLimitMax caps video uploads per client IP and minute.
	RateLimitMax int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
}

func NewRouter(logger *slog.Logger, config Config, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Ponto API",
		BodyLimit:    int(config.MaxUploadBytes) + bodySlack,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		JSONEncoder:  jsoniter.Marshal,
		JSONDecoder:  jsoniter.Unmarshal,
	})

	rateConfig := middleware.DefaultRateLimiterConfig()
	if config.RateLimitMax > 0 {
		rateConfig.Max = config.RateLimitMax
	}

	return &Router{
		app:         app,
		logger:      logger,
		deps:        deps,
		rateLimiter: middleware.NewRateLimiter(rateConfig),
	}
}

func (r *Router) Setup() {
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var db handler.Pinger
	if r.deps != nil {
		db = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(db, r.logger)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil {
		return
	}

	v1 := r.app.Group("/v1")
	limited := r.rateLimiter.Handler()

	employees := handler.NewEmployeeHandler(r.deps.Employees, r.deps.Enrollment, r.logger)
	v1.Post("/employees", employees.Create)
	v1.Get("/employees", employees.List)
	v1.Get("/employees/:id", employees.Get)
	v1.Put("/employees/:id", employees.Update)
	v1.Delete("/employees/:id", employees.Delete)
	v1.Post("/employees/:id/capture", limited, employees.Capture)

	attendance := handler.NewAttendanceHandler(r.deps.Recognition, r.deps.Attendance, r.logger)
	v1.Post("/attendance/mark", limited, attendance.Mark)
	v1.Get("/attendance", attendance.List)
	v1.Get("/attendance/export.csv", attendance.Export)

	if r.deps.Live != nil {
		v1.Get("/attendance/live", ws.UpgradeMiddleware(), ws.Handler(r.deps.Live))
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	r.rateLimiter.Stop()
	return r.app.Shutdown()
}
