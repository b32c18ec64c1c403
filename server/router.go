package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	rateLimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/memorybox/errors"
	"github.com/techagentng/memorybox/server/response"
)

func (s *Server) setupRouter() *gin.Engine {
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "test" {
		r := gin.New()
		s.defineRoutes(r)
		return r
	}

	r := gin.New()

	// LoggerWithFormatter middleware will write the logs to gin.DefaultWriter
	// By default gin.DefaultWriter = os.Stdout
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	r.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if s.Config.AccessControlAllowOrigin != "" {
		corsConfig.AllowOrigins = []string{s.Config.AccessControlAllowOrigin}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))
	r.MaxMultipartMemory = 32 << 20
	s.defineRoutes(r)
	s.servePages(r)

	return r
}

// limitSubmissions guards the processing-heavy endpoints against duplicate
// in-flight submissions from the same client.
func limitSubmissions() gin.HandlerFunc {
	store := rateLimit.InMemoryStore(&rateLimit.InMemoryOptions{
		Rate:  time.Second,
		Limit: 2,
	})
	return rateLimit.RateLimiter(store, &rateLimit.Options{
		ErrorHandler: func(c *gin.Context, info rateLimit.Info) {
			response.JSON(c, "", http.StatusTooManyRequests, nil,
				errs.New("a submission is already being processed, please wait", http.StatusTooManyRequests))
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
}

func (s *Server) defineRoutes(router *gin.Engine) {
	limitRate := limitSubmissions()

	apirouter := router.Group("/api")
	apirouter.GET("/conversations", s.handleListConversations())
	apirouter.GET("/conversations/:id", s.handleGetConversation())
	apirouter.PUT("/conversations/:id", s.handleUpdateConversation())
	apirouter.DELETE("/conversations/:id", s.handleDeleteConversation())
	apirouter.GET("/categories", s.handleGetCategories())
	apirouter.POST("/upload", limitRate, s.handleUpload())
	apirouter.POST("/ocr", limitRate, s.handleOCR())
}

// servePages mounts the static page build when one is present. The page
// routes themselves (/, /upload, /conversation/:id) are client-side; anything
// that is not an API path falls through to the page index.
func (s *Server) servePages(router *gin.Engine) {
	index := filepath.Join(s.Config.WebDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		return
	}
	router.Static("/static", filepath.Join(s.Config.WebDir, "static"))
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			response.JSON(c, "", http.StatusNotFound, nil, errs.ErrNotFound)
			return
		}
		c.File(index)
	})
}
