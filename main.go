package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hoshinonyaruko/snake-web/api"
	"github.com/hoshinonyaruko/snake-web/config"
	"github.com/hoshinonyaruko/snake-web/game"
	"github.com/hoshinonyaruko/snake-web/memimg"
	"github.com/hoshinonyaruko/snake-web/render"
	"github.com/hoshinonyaruko/snake-web/snake"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfgPath := flag.String("config", "./config.json", "path to config (.json, .yml)")
	flag.Parse()
	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	EnsureFoldersExist(logger, cfg.SkinDir, cfg.StaticDir)

	// 贴图载入内存，目录变化时热更新
	sprites := memimg.NewCache(cfg.Blocksize - cfg.CellGap)
	if err := sprites.LoadDir(cfg.SkinDir); err != nil {
		logger.Warn("load skins", zap.Error(err))
	}

	ctrl := game.NewController(game.Settings{
		Engine: snake.Config{
			TileCount:            cfg.TileCount,
			FoodCount:            cfg.FoodCount,
			Reward:               cfg.Reward,
			MaxPlacementAttempts: cfg.MaxPlacementAttempts,
		},
		Delay:           cfg.TickDelay(),
		ResetOnGameOver: cfg.ResetOnGameOver,
	}, logger)
	renderer := render.New(cfg.Blocksize, cfg.CellGap, sprites)
	live := render.NewLive(renderer)
	hub := api.NewHub(ctrl, logger)
	ctrl.Subscribe(live)
	ctrl.Subscribe(hub)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(&api.Server{
			Game:      ctrl,
			Hub:       hub,
			Live:      live,
			Renderer:  renderer,
			StaticDir: cfg.StaticDir,
			Logger:    logger,
		}),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	errGroup, ctx := errgroup.WithContext(ctx)
	errGroup.Go(func() error {
		// 热更新失败不影响游戏
		if err := sprites.Watch(ctx, cfg.SkinDir, logger); err != nil {
			logger.Warn("skin watcher stopped", zap.Error(err))
		}
		return nil
	})
	errGroup.Go(func() error {
		logger.Info("starting listening address: " + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.WithMessage(err, "listen and serve")
		}
		return nil
	})
	errGroup.Go(func() error {
		<-ctx.Done()
		ctrl.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := errGroup.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return
	}
	logger.Info("gracefully shut down")
}

// EnsureFoldersExist 检查并创建必需的文件夹
func EnsureFoldersExist(logger *zap.Logger, folders ...string) {
	for _, folder := range folders {
		if _, err := os.Stat(folder); os.IsNotExist(err) {
			if err := os.MkdirAll(folder, 0755); err != nil {
				logger.Fatal("failed to create directory", zap.String("dir", folder), zap.Error(err))
			}
			logger.Info("created directory", zap.String("dir", folder))
		}
	}
}
