package game

import (
	"sync"
	"time"

	"github.com/hoshinonyaruko/snake-web/snake"
	"github.com/hoshinonyaruko/snake-web/structs"
	"go.uber.org/zap"
)

const DefaultDelay = 100 * time.Millisecond

// GameOver is published once per run when the snake hits a wall or itself.
type GameOver struct {
	Session string `json:"session"`
	Score   int    `json:"score"`
	Reason  string `json:"reason"`
	Tick    uint64 `json:"tick"`
}

// Observer receives state changes. Calls come from the tick goroutine, or from
// the caller of Start, never concurrently with each other for the same run.
type Observer interface {
	OnFrame(snap structs.Snapshot)
	OnScore(score int)
	OnGameOver(ev GameOver)
}

type Settings struct {
	Engine snake.Config
	Delay  time.Duration
	// ResetOnGameOver moves the engine back to Ready right after game over.
	// The loop stays stopped either way until the next Start.
	ResetOnGameOver bool
}

// Controller owns the engine and the scheduler. All engine access goes through mu.
type Controller struct {
	settings Settings
	logger   *zap.Logger
	sched    *Scheduler

	lifecycle sync.Mutex

	mu    sync.Mutex
	state *snake.GameState

	obsMu     sync.RWMutex
	observers []Observer
}

func NewController(settings Settings, logger *zap.Logger, opts ...snake.Option) *Controller {
	if settings.Delay <= 0 {
		settings.Delay = DefaultDelay
	}
	opts = append([]snake.Option{snake.WithLogger(logger)}, opts...)
	return &Controller{
		settings: settings,
		logger:   logger,
		sched:    NewScheduler(logger),
		state:    snake.New(settings.Engine, opts...),
	}
}

func (c *Controller) Subscribe(o Observer) {
	c.obsMu.Lock()
	c.observers = append(c.observers, o)
	c.obsMu.Unlock()
}

// Start resets the game and (re)starts the loop. A running loop is stopped first.
func (c *Controller) Start() structs.Snapshot {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	// 重新开始前取消上一个循环
	c.sched.Stop()

	c.mu.Lock()
	c.state.Reset(c.settings.Engine)
	c.state.Start()
	snap := c.state.Snapshot()
	c.mu.Unlock()

	c.logger.Info("game started",
		zap.String("session", snap.Session),
		zap.Int("tile_count", snap.TileCount),
		zap.Duration("delay", c.settings.Delay))
	c.publishFrame(snap)
	c.publishScore(snap.Score)

	c.sched.Start(c.settings.Delay, c.step)
	return snap
}

// Stop halts the loop. The board is kept as it is.
func (c *Controller) Stop() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.sched.Stop()
	c.logger.Info("game stopped", zap.String("session", c.Snapshot().Session))
}

// SetNextDirection writes the pending direction slot, consumed by the next tick.
func (c *Controller) SetNextDirection(d structs.Direction) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.SetNextDirection(d)
}

func (c *Controller) Snapshot() structs.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Snapshot()
}

func (c *Controller) Running() bool {
	return c.sched.Running()
}

// step runs one tick and reports whether the loop should continue.
func (c *Controller) step() bool {
	c.mu.Lock()
	prevScore := c.state.Score()
	snap, outcome := c.state.Tick()
	var fresh structs.Snapshot
	// 游戏结束后显式重置回 Ready，不自动开始下一局
	reset := outcome.Terminal() && c.settings.ResetOnGameOver
	if reset {
		c.state.Reset(c.settings.Engine)
		fresh = c.state.Snapshot()
	}
	c.mu.Unlock()

	if outcome == snake.Idle {
		return false
	}

	// 通知观察者时不持有锁
	c.publishFrame(snap)
	if snap.Score != prevScore {
		c.publishScore(snap.Score)
	}
	if !outcome.Terminal() {
		return true
	}

	ev := GameOver{
		Session: snap.Session,
		Score:   snap.Score,
		Reason:  outcome.String(),
		Tick:    snap.Tick,
	}
	c.logger.Info("game over",
		zap.String("session", ev.Session),
		zap.Int("score", ev.Score),
		zap.String("reason", ev.Reason),
		zap.Uint64("tick", ev.Tick))
	c.publishGameOver(ev)

	if reset {
		c.publishFrame(fresh)
		c.publishScore(fresh.Score)
	}
	return false
}

func (c *Controller) snapshotObservers() []Observer {
	c.obsMu.RLock()
	defer c.obsMu.RUnlock()
	return append([]Observer(nil), c.observers...)
}

func (c *Controller) publishFrame(snap structs.Snapshot) {
	for _, o := range c.snapshotObservers() {
		o.OnFrame(snap)
	}
}

func (c *Controller) publishScore(score int) {
	for _, o := range c.snapshotObservers() {
		o.OnScore(score)
	}
}

func (c *Controller) publishGameOver(ev GameOver) {
	for _, o := range c.snapshotObservers() {
		o.OnGameOver(ev)
	}
}
