package structs

import "strings"

// Position 描述游戏地图上的一个格子坐标。
type Position struct {
	X int `json:"x"` // X坐标
	Y int `json:"y"` // Y坐标
}

// Add 返回按方向移动一格后的位置
func (p Position) Add(d Direction) Position {
	dx, dy := d.Vector()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// InBounds 判断位置是否在 [0, tileCount) 范围内
func (p Position) InBounds(tileCount int) bool {
	return p.X >= 0 && p.X < tileCount && p.Y >= 0 && p.Y < tileCount
}

// Direction 移动方向，零值 None 表示无效方向
type Direction int

const (
	None Direction = iota
	Up
	Down
	Left
	Right
)

var directionNames = map[Direction]string{
	Up:    "up",
	Down:  "down",
	Left:  "left",
	Right: "right",
}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return "none"
}

// Valid 是否为四个方向之一
func (d Direction) Valid() bool {
	return d >= Up && d <= Right
}

// Opposite 返回相反方向
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return None
}

// Vector 返回方向对应的单位向量，y轴向下
func (d Direction) Vector() (int, int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	*d = ParseDirection(string(text))
	return nil
}

// ParseDirection 解析 "up" "down" "left" "right"，其他输入返回 None
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up
	case "down":
		return Down
	case "left":
		return Left
	case "right":
		return Right
	}
	return None
}

// Phase 游戏状态机的状态
type Phase string

const (
	Ready    Phase = "ready"
	Running  Phase = "running"
	GameOver Phase = "game_over"
)

// Snapshot 每一帧对外暴露的状态，供渲染和计分使用。
// 所有切片都是拷贝，观察者可以放心持有。
type Snapshot struct {
	Session   string     `json:"session"`    // 本局游戏标识
	Tick      uint64     `json:"tick"`       // 本局已推进的步数
	Phase     Phase      `json:"phase"`      // 当前状态
	Snake     []Position `json:"snake"`      // 蛇身，蛇头在前
	Food      []Position `json:"food"`       // 食物位置
	Direction Direction  `json:"direction"`  // 当前方向
	Score     int        `json:"score"`      // 当前得分
	TileCount int        `json:"tile_count"` // 每行/列的格子数
}

// Head 返回蛇头
func (s Snapshot) Head() Position {
	if len(s.Snake) == 0 {
		return Position{}
	}
	return s.Snake[0]
}
