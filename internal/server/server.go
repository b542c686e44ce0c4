package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Shinokawa/Web-annotation-tool/internal/config"
	"github.com/Shinokawa/Web-annotation-tool/internal/handler"
	"github.com/Shinokawa/Web-annotation-tool/internal/middleware"
	"github.com/Shinokawa/Web-annotation-tool/internal/repository"
	"github.com/Shinokawa/Web-annotation-tool/internal/service"
)

type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	log        *zap.Logger
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Server, error) {
	files := repository.NewLocalRepository(&cfg.App, log)

	var mirror repository.S3Repository
	if cfg.S3.Enabled {
		s3Repo, err := repository.NewS3Repository(ctx, &cfg.S3, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 repository: %w", err)
		}
		mirror = s3Repo
	}

	annotationService := service.NewAnnotationService(files, mirror, cfg, log)
	h := handler.NewHandler(annotationService, log)

	server := &Server{
		httpServer: &http.Server{
			Addr:           cfg.Server.Addr(),
			Handler:        NewRouter(cfg, h, log),
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxHeaderBytes: 1 << 20, // 1 MB
		},
		cfg: cfg,
		log: log,
	}

	log.Info("Server created successfully",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.Bool("s3_mirror", cfg.S3.Enabled))

	return server, nil
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(cfg *config.Config, h *handler.Handler, log *zap.Logger) *gin.Engine {
	if cfg.Server.Mode == gin.ReleaseMode || cfg.Server.Mode == gin.DebugMode || cfg.Server.Mode == gin.TestMode {
		gin.SetMode(cfg.Server.Mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.CORS())

	if hasTemplates(cfg.App.TemplateDir) {
		router.LoadHTMLGlob(filepath.Join(cfg.App.TemplateDir, "*.html"))
		router.GET("/", h.GetUI)
		router.GET("/test", h.GetTestPage)
	} else {
		log.Warn("No page templates found", zap.String("dir", cfg.App.TemplateDir))
		router.GET("/", h.PageUnavailable)
		router.GET("/test", h.PageUnavailable)
	}

	router.GET("/health", h.HealthCheck)
	router.POST("/upload", h.UploadImages)

	api := router.Group("/api")
	{
		api.GET("/images", h.ListImages)
		api.GET("/image/:filename", middleware.NoCache(), h.GetImage)
		api.GET("/mask/:filename", h.GetMask)
		api.POST("/save_mask", h.SaveMask)
	}

	if cfg.App.StaticDir != "" {
		router.Static("/static", cfg.App.StaticDir)
	}

	return router
}

func hasTemplates(dir string) bool {
	if dir == "" {
		return false
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.html"))
	return err == nil && len(matches) > 0
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Run() error {
	s.log.Info("Server is running",
		zap.String("host", s.cfg.Server.Host),
		zap.String("port", s.cfg.Server.Port),
		zap.String("address", s.httpServer.Addr))

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// URLs returns the loopback URL and a LAN URL for the configured port.
func (s *Server) URLs() (local, network string) {
	port := s.cfg.Server.Port
	return "http://" + net.JoinHostPort("localhost", port),
		"http://" + net.JoinHostPort(LocalIP(), port)
}

// LocalIP returns the first non-loopback IPv4 address of this host, or
// 127.0.0.1 when there is none.
func LocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "127.0.0.1"
}
