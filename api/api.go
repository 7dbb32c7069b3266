package api

import (
	"bytes"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hoshinonyaruko/snake-web/render"
	"github.com/hoshinonyaruko/snake-web/structs"
	"go.uber.org/zap"
)

// Game 页面可以驱动的游戏操作，由 game.Controller 实现
type Game interface {
	Start() structs.Snapshot
	Stop()
	SetNextDirection(d structs.Direction) bool
	Snapshot() structs.Snapshot
	Running() bool
}

type Server struct {
	Game      Game
	Hub       *Hub
	Live      *render.Live
	Renderer  *render.Renderer
	StaticDir string
	Logger    *zap.Logger
}

// NewRouter 注册所有路由
func NewRouter(s *Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(s.Logger))

	// 页面和静态资源
	router.GET("/", func(c *gin.Context) {
		c.File(filepath.Join(s.StaticDir, "index.html"))
	})
	router.Static("/static", s.StaticDir)
	// 开始/重新开始
	router.POST("/start", s.StartHandler)
	router.POST("/stop", s.StopHandler)
	// 方向键和按钮
	router.POST("/direction", s.DirectionHandler)
	router.GET("/state", s.StateHandler)
	// 渲染当前帧
	router.GET("/frame.png", s.FrameHandler)
	router.GET("/ws", s.Hub.Serve)
	return router
}

func (s *Server) StartHandler(c *gin.Context) {
	snap := s.Game.Start()
	c.JSON(http.StatusOK, gin.H{"running": true, "state": snap})
}

func (s *Server) StopHandler(c *gin.Context) {
	s.Game.Stop()
	c.JSON(http.StatusOK, gin.H{"running": false, "state": s.Game.Snapshot()})
}

func (s *Server) DirectionHandler(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		key = c.PostForm("key")
	}
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameter: key"})
		return
	}
	// 无法识别的按键只忽略，不报错
	d := ParseKey(key)
	accepted := d.Valid() && s.Game.SetNextDirection(d)
	c.JSON(http.StatusOK, gin.H{"accepted": accepted, "direction": d})
}

func (s *Server) StateHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"running": s.Game.Running(), "state": s.Game.Snapshot()})
}

func (s *Server) FrameHandler(c *gin.Context) {
	scale, _ := strconv.Atoi(c.DefaultQuery("scale", "1"))

	img, ok := s.Live.Frame()
	if !ok {
		img = s.Renderer.Frame(s.Game.Snapshot())
	}
	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, img, scale); err != nil {
		s.Logger.Error("render frame", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to render frame"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// RequestLogger 用 zap 记录每个请求
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
