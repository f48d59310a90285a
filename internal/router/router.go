package router

import (
	"net/http"
	"path"
	"strings"

	"github.com/GooseOb/pai2024/internal/config"
	"github.com/GooseOb/pai2024/internal/handler"
	"github.com/GooseOb/pai2024/internal/middleware"
	"github.com/GooseOb/pai2024/internal/models"
	"github.com/GooseOb/pai2024/internal/notify"
	"github.com/GooseOb/pai2024/internal/service"
	"github.com/GooseOb/pai2024/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Version is reported by /healthz.
const Version = "1.0.0"

// Deps are the collaborators the routes are wired to.
type Deps struct {
	Store    handler.Pinger
	Auth     *service.AuthService
	Persons  *service.PersonService
	Projects *service.ProjectService
	Tasks    *service.TaskService
	Hub      *notify.Hub
}

var (
	readers = []models.Role{models.RoleAdmin, models.RoleUser}
	writers = []models.Role{models.RoleAdmin}
)

// SetupRouter configures the gin engine: API, WebSocket and static frontend.
func SetupRouter(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.CORS.AllowedOrigins)))
	r.Use(middleware.Authenticate(d.Auth, cfg.Session.CookieName))

	r.GET("/healthz", handler.Health(d.Store, Version))

	api := r.Group("/api")
	api.Use(middleware.AuditMiddleware())

	authHandler := handler.NewAuthHandler(d.Auth, cfg.Session.CookieName, cfg.Session.SecureCookie)
	login := []gin.HandlerFunc{authHandler.Login}
	if cfg.Limiter.Enabled {
		login = append([]gin.HandlerFunc{middleware.RateLimit(cfg.Limiter.RPS, cfg.Limiter.Burst)}, login...)
	}
	api.GET("/auth", authHandler.WhoAmI)
	api.POST("/auth", login...)
	api.DELETE("/auth", authHandler.Logout)
	api.PUT("/auth", middleware.RequireRole(readers...), authHandler.Sessions)

	persons := handler.NewPersonHandler(d.Persons)
	crud(api, "/person", persons.List, persons.Create, persons.Update, persons.Delete)

	projects := handler.NewProjectHandler(d.Projects)
	crud(api, "/project", projects.List, projects.Create, projects.Update, projects.Delete)

	tasks := handler.NewTaskHandler(d.Tasks)
	crud(api, "/task", tasks.List, tasks.Create, tasks.Update, tasks.Delete)

	ws := handler.NewWSHandler(d.Hub, cfg.Realtime.RequireSession, cfg.CORS.AllowedOrigins)
	r.GET("/ws", ws.Serve)

	r.NoRoute(frontend(cfg.Frontend.Path))
	return r
}

// crud registers the four verbs of one entity behind the role guard.
func crud(g *gin.RouterGroup, route string, list, create, update, del gin.HandlerFunc) {
	g.GET(route, middleware.RequireRole(readers...), list)
	g.POST(route, middleware.RequireRole(writers...), create)
	g.PUT(route, middleware.RequireRole(writers...), update)
	g.DELETE(route, middleware.RequireRole(writers...), del)
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		// credentials cannot be combined with a literal "*"
		c.AllowOriginFunc = func(string) bool { return true }
	} else {
		c.AllowOrigins = origins
	}
	c.AllowCredentials = true
	return c
}

// frontend serves the built single page app from dir. Unknown paths under
// /api and /ws stay JSON 404s; other unknown paths fall back to index.html.
func frontend(dir string) gin.HandlerFunc {
	files := gin.Dir(dir, false)
	exists := func(name string) bool {
		f, err := files.Open(name)
		if err != nil {
			return false
		}
		_ = f.Close()
		return true
	}
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if strings.HasPrefix(p, "/api/") || p == "/ws" || dir == "" {
			util.Error(c, http.StatusNotFound, "not found")
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			util.Error(c, http.StatusNotFound, "not found")
			return
		}
		name := path.Clean("/" + p)
		if !exists(name) {
			if !exists("/index.html") {
				util.Error(c, http.StatusNotFound, "not found")
				return
			}
			name = "/"
		}
		c.FileFromFS(name, files)
	}
}
