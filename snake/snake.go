// 单人贪食蛇的状态推进
package snake

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/hoshinonyaruko/snake-web/structs"
	"go.uber.org/zap"
)

const (
	DefaultTileCount = 20
	DefaultFoodCount = 1
	DefaultReward    = 10

	// 起始蛇身需要 x=5 的空间，再留出掉头余地
	MinTileCount = 8
	// 与配置文件的上限一致，保证尝试次数不会溢出
	MaxTileCount = 200
)

// Config 一局游戏的参数
type Config struct {
	TileCount            int // 每行/列格子数
	FoodCount            int // 场上食物目标数量
	Reward               int // 每个食物的得分
	MaxPlacementAttempts int // 单个食物随机放置的最大尝试次数，<=0 时取 4*TileCount²
}

// DefaultConfig 20×20 网格，1个食物，每个食物10分
func DefaultConfig() Config {
	return Config{
		TileCount: DefaultTileCount,
		FoodCount: DefaultFoodCount,
		Reward:    DefaultReward,
	}
}

// withDefaults 越界的参数直接忽略，使用默认值
func (c Config) withDefaults() Config {
	if c.TileCount < MinTileCount || c.TileCount > MaxTileCount {
		c.TileCount = DefaultTileCount
	}
	if c.FoodCount < 1 {
		c.FoodCount = DefaultFoodCount
	}
	if c.Reward < 0 {
		c.Reward = DefaultReward
	}
	if c.MaxPlacementAttempts <= 0 {
		c.MaxPlacementAttempts = 4 * c.TileCount * c.TileCount
	}
	return c
}

// Outcome 一次 Tick 的结果
type Outcome int

const (
	Idle    Outcome = iota // 不在 Running 状态，没有推进
	Moved                  // 正常移动
	Ate                    // 吃到食物
	HitWall                // 撞墙
	HitSelf                // 撞到自己
)

func (o Outcome) String() string {
	switch o {
	case Moved:
		return "moved"
	case Ate:
		return "ate"
	case HitWall:
		return "hit_wall"
	case HitSelf:
		return "hit_self"
	}
	return "idle"
}

// Terminal 是否导致游戏结束
func (o Outcome) Terminal() bool {
	return o == HitWall || o == HitSelf
}

// GameState 蛇、食物、方向和得分。本身不加锁，由调用方保证同一时间只有一个 Tick。
type GameState struct {
	cfg    Config
	rnd    *rand.Rand
	logger *zap.Logger

	session   string
	phase     structs.Phase
	snake     []structs.Position
	food      []structs.Position
	direction structs.Direction
	// pending 单槽缓冲，后写覆盖前写，下次 Tick 开始时生效
	pending structs.Direction
	score   int
	tick    uint64
}

type Option func(*GameState)

// WithRand 指定随机源，测试里用固定种子
func WithRand(rnd *rand.Rand) Option {
	return func(g *GameState) {
		g.rnd = rnd
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(g *GameState) {
		g.logger = logger
	}
}

// New 创建并初始化一局游戏，初始状态为 Ready
func New(cfg Config, opts ...Option) *GameState {
	g := &GameState{
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.Reset(cfg)
	return g
}

// Reset 重置蛇身、方向、得分并重新放置食物，回到 Ready
func (g *GameState) Reset(cfg Config) {
	g.cfg = cfg.withDefaults()
	g.session = uuid.NewString()
	g.phase = structs.Ready
	g.snake = []structs.Position{
		{X: 5, Y: 5},
		{X: 4, Y: 5},
		{X: 3, Y: 5},
	}
	g.direction = structs.Right
	g.pending = structs.Right
	g.score = 0
	g.tick = 0
	g.food = make([]structs.Position, 0, g.cfg.FoodCount)
	g.fillFood()
}

// Start Ready -> Running，其他状态下无效果
func (g *GameState) Start() bool {
	if g.phase != structs.Ready {
		return false
	}
	g.phase = structs.Running
	return true
}

// SetNextDirection 记录下一步方向。无效方向或与当前方向相反时忽略。
func (g *GameState) SetNextDirection(d structs.Direction) bool {
	if !d.Valid() || d == g.direction.Opposite() {
		return false
	}
	g.pending = d
	return true
}

// Tick 推进一步并返回新的状态
func (g *GameState) Tick() (structs.Snapshot, Outcome) {
	if g.phase != structs.Running {
		return g.Snapshot(), Idle
	}
	g.tick++
	g.direction = g.pending

	head := g.snake[0].Add(g.direction)
	if !head.InBounds(g.cfg.TileCount) {
		g.phase = structs.GameOver
		return g.Snapshot(), HitWall
	}
	// 尾巴这一步还没移走，也算碰撞
	if contains(g.snake, head) {
		g.phase = structs.GameOver
		return g.Snapshot(), HitSelf
	}

	g.snake = append([]structs.Position{head}, g.snake...)

	if i := indexOf(g.food, head); i >= 0 {
		g.food = append(g.food[:i], g.food[i+1:]...)
		g.score += g.cfg.Reward
		g.fillFood()
		return g.Snapshot(), Ate
	}

	g.snake = g.snake[:len(g.snake)-1]
	return g.Snapshot(), Moved
}

// fillFood 把食物补到目标数量，某个位置放不下时本轮放弃
func (g *GameState) fillFood() {
	for len(g.food) < g.cfg.FoodCount {
		pos, ok := g.randomFreePosition()
		if !ok {
			g.logger.Warn("food placement skipped",
				zap.String("session", g.session),
				zap.Int("attempts", g.cfg.MaxPlacementAttempts),
				zap.Int("food", len(g.food)),
				zap.Int("target", g.cfg.FoodCount))
			return
		}
		g.food = append(g.food, pos)
	}
}

// randomFreePosition 随机取一个不与蛇或食物重叠的格子，超过尝试次数返回 false
func (g *GameState) randomFreePosition() (structs.Position, bool) {
	for attempt := 0; attempt < g.cfg.MaxPlacementAttempts; attempt++ {
		pos := structs.Position{
			X: g.rnd.Intn(g.cfg.TileCount),
			Y: g.rnd.Intn(g.cfg.TileCount),
		}
		if !contains(g.snake, pos) && !contains(g.food, pos) {
			return pos, true
		}
	}
	return structs.Position{}, false
}

// Snapshot 当前状态的拷贝
func (g *GameState) Snapshot() structs.Snapshot {
	return structs.Snapshot{
		Session:   g.session,
		Tick:      g.tick,
		Phase:     g.phase,
		Snake:     append([]structs.Position(nil), g.snake...),
		Food:      append([]structs.Position(nil), g.food...),
		Direction: g.direction,
		Score:     g.score,
		TileCount: g.cfg.TileCount,
	}
}

func (g *GameState) Phase() structs.Phase {
	return g.phase
}

func (g *GameState) Score() int {
	return g.score
}

func (g *GameState) Direction() structs.Direction {
	return g.direction
}

func (g *GameState) Session() string {
	return g.session
}

func (g *GameState) Config() Config {
	return g.cfg
}

func contains(cells []structs.Position, pos structs.Position) bool {
	return indexOf(cells, pos) >= 0
}

func indexOf(cells []structs.Position, pos structs.Position) int {
	for i, c := range cells {
		if c == pos {
			return i
		}
	}
	return -1
}
