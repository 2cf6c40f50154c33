package routes

import (
	"net/http"

	"restaurant-menu/handlers"
	"restaurant-menu/middleware"
	"restaurant-menu/session"
	"restaurant-menu/templates"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Options are the pieces NewRouter wires together.
type Options struct {
	Handler        *handlers.Handler
	Sessions       *session.Manager
	CookieName     string
	SecureCookie   bool
	Limiter        *middleware.RateLimiter
	Metrics        *middleware.Metrics
	MetricsHandler http.Handler
	Log            *zap.Logger
	AllowedOrigins []string
}

// NewRouter builds the engine with its middleware stack, templates and
// routes.
func NewRouter(o Options) (*gin.Engine, error) {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(o.Log))
	if cors := middleware.CORS(o.AllowedOrigins); cors != nil {
		r.Use(cors)
	}
	if o.Metrics != nil {
		r.Use(o.Metrics.Handler())
	}
	r.Use(middleware.LoadSession(o.Sessions, o.CookieName), middleware.CSRF(o.SecureCookie))

	tmpl, err := templates.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse templates")
	}
	r.SetHTMLTemplate(tmpl)

	SetupRoutes(r, o)
	return r, nil
}

func SetupRoutes(r *gin.Engine, o Options) {
	h := o.Handler

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/dashboard/")
	})
	r.GET("/health", h.Health)
	r.GET("/state-machine", h.SessionStates)
	if o.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(o.MetricsHandler))
	}

	// ── Public pages ───────────────────────────────────────────────
	r.GET("/signup/", h.Signup)
	r.POST("/signup/", h.Signup)
	r.GET("/login/", h.Login)
	if o.Limiter != nil {
		r.POST("/login/", o.Limiter.Handler(h.LoginThrottled), h.Login)
	} else {
		r.POST("/login/", h.Login)
	}
	r.GET("/logout/", h.Logout)
	r.POST("/logout/", h.Logout)

	// ── Restaurant owner pages ─────────────────────────────────────
	owner := r.Group("/")
	owner.Use(middleware.LoginRequired())
	{
		owner.GET("/dashboard/", h.Dashboard)
		owner.POST("/dashboard/", h.Dashboard)
		owner.GET("/profile/", h.Profile)
		owner.POST("/profile/", h.Profile)

		owner.GET("/add-food/", h.AddFood)
		owner.POST("/add-food/", h.AddFood)
		owner.GET("/food/edit/:id/", h.EditFood)
		owner.POST("/food/edit/:id/", h.EditFood)
		owner.POST("/food/delete/:id/", h.DeleteFood)
	}

	// ── Admin pages ────────────────────────────────────────────────
	admin := r.Group("/admin")
	admin.Use(middleware.LoginRequired(), middleware.SuperuserRequired(h.Store()))
	{
		admin.GET("/", h.AdminOverview)
		admin.GET("/users.json", h.AdminSummaries)
	}
}
