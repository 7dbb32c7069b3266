// 把一帧游戏状态画成图片，效果与网页 canvas 一致
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/hoshinonyaruko/snake-web/game"
	"github.com/hoshinonyaruko/snake-web/structs"
	"github.com/pkg/errors"
)

const (
	DefaultCellSize = 20
	DefaultGap      = 2
	MaxScale        = 4
)

var (
	BackgroundColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	SnakeColor      = color.RGBA{R: 0x4c, G: 0xaf, B: 0x50, A: 0xff} // #4CAF50
	FoodColor       = color.RGBA{R: 0xff, G: 0x00, B: 0x00, A: 0xff}
)

// SpriteSource 可选的格子贴图，按名称取 "head" "snake" "food"
type SpriteSource interface {
	Get(name string) (image.Image, bool)
}

type Renderer struct {
	cellSize int
	gap      int
	sprites  SpriteSource

	// 背景按画布尺寸缓存
	backgrounds sync.Map
}

// New cellSize 为每格像素，gap 为格子之间留白
func New(cellSize, gap int, sprites SpriteSource) *Renderer {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	if gap < 0 || gap >= cellSize {
		gap = DefaultGap
	}
	return &Renderer{
		cellSize: cellSize,
		gap:      gap,
		sprites:  sprites,
	}
}

func (r *Renderer) CellSize() int {
	return r.cellSize
}

func (r *Renderer) Gap() int {
	return r.gap
}

// Frame 清空背景，先画蛇再画食物
func (r *Renderer) Frame(snap structs.Snapshot) image.Image {
	size := snap.TileCount * r.cellSize
	dc := gg.NewContext(size, size)
	dc.DrawImage(r.background(size), 0, 0)

	for i, pos := range snap.Snake {
		name := "snake"
		if i == 0 {
			name = "head"
		}
		r.drawCell(dc, pos, SnakeColor, name, "snake")
	}
	for _, pos := range snap.Food {
		r.drawCell(dc, pos, FoodColor, "food")
	}
	return dc.Image()
}

// GameOverFrame 模糊最后一帧并写上最终得分
func (r *Renderer) GameOverFrame(snap structs.Snapshot, score int) image.Image {
	blurred := imaging.Blur(r.Frame(snap), 3)
	dc := gg.NewContextForImage(blurred)
	w, h := float64(dc.Width()), float64(dc.Height())

	dc.SetRGBA(1, 1, 1, 0.6)
	dc.DrawRectangle(0, h/2-20, w, 40)
	dc.Fill()
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawStringAnchored(fmt.Sprintf("GAME OVER  score: %d", score), w/2, h/2, 0.5, 0.5)
	return dc.Image()
}

func (r *Renderer) drawCell(dc *gg.Context, pos structs.Position, fill color.Color, sprites ...string) {
	x := pos.X * r.cellSize
	y := pos.Y * r.cellSize
	if r.sprites != nil {
		for _, name := range sprites {
			if img, ok := r.sprites.Get(name); ok {
				dc.DrawImage(img, x, y)
				return
			}
		}
	}
	side := float64(r.cellSize - r.gap)
	dc.SetColor(fill)
	dc.DrawRectangle(float64(x), float64(y), side, side)
	dc.Fill()
}

func (r *Renderer) background(size int) image.Image {
	if cached, ok := r.backgrounds.Load(size); ok {
		return cached.(image.Image)
	}
	dc := gg.NewContext(size, size)
	dc.SetColor(BackgroundColor)
	dc.Clear()
	img := dc.Image()
	r.backgrounds.Store(size, img)
	return img
}

// EncodePNG 按整数倍放大后输出 PNG，scale 超出 [1, MaxScale] 时按 1 处理
func EncodePNG(w io.Writer, img image.Image, scale int) error {
	if scale > 1 && scale <= MaxScale {
		b := img.Bounds()
		img = imaging.Resize(img, b.Dx()*scale, b.Dy()*scale, imaging.NearestNeighbor)
	}
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return errors.Wrap(err, "encode png")
	}
	return nil
}

// Live 订阅游戏状态，保存最新的一帧。游戏结束时换成带得分的结束画面。
type Live struct {
	renderer *Renderer

	mu    sync.RWMutex
	last  structs.Snapshot
	frame image.Image
	// 结束画面一直保留到下一局开始跑
	holdGameOver bool
}

var _ game.Observer = (*Live)(nil)

func NewLive(renderer *Renderer) *Live {
	return &Live{renderer: renderer}
}

func (l *Live) OnFrame(snap structs.Snapshot) {
	img := l.renderer.Frame(snap)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = snap
	if l.holdGameOver && snap.Phase != structs.Running {
		return
	}
	l.holdGameOver = false
	l.frame = img
}

func (l *Live) OnScore(int) {}

func (l *Live) OnGameOver(ev game.GameOver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last.Session != ev.Session {
		return
	}
	l.frame = l.renderer.GameOverFrame(l.last, ev.Score)
	l.holdGameOver = true
}

// Frame 最新一帧，还没有收到状态时返回 false
func (l *Live) Frame() (image.Image, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.frame, l.frame != nil
}
