package render

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/hoshinonyaruko/snake-web/game"
	"github.com/hoshinonyaruko/snake-web/structs"
)

type staticSprites map[string]image.Image

func (s staticSprites) Get(name string) (image.Image, bool) {
	img, ok := s[name]
	return img, ok
}

func solid(size int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func testSnapshot() structs.Snapshot {
	return structs.Snapshot{
		Session:   "s",
		Phase:     structs.Running,
		Snake:     []structs.Position{{X: 5, Y: 5}, {X: 4, Y: 5}, {X: 3, Y: 5}},
		Food:      []structs.Position{{X: 10, Y: 2}},
		TileCount: 20,
	}
}

func TestFrame(t *testing.T) {
	r := New(DefaultCellSize, DefaultGap, nil)
	img := r.Frame(testSnapshot())

	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 400 {
		t.Fatalf("canvas = %dx%d, want 400x400", b.Dx(), b.Dy())
	}
	tests := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{"snake head", 5*20 + 9, 5*20 + 9, SnakeColor},
		{"snake tail", 3*20 + 1, 5*20 + 1, SnakeColor},
		{"gap after head", 5*20 + 19, 5*20 + 9, BackgroundColor},
		{"food", 10*20 + 9, 2*20 + 9, FoodColor},
		{"empty cell", 0, 0, BackgroundColor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rgbaAt(img, tt.x, tt.y); got != tt.want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestFrame_Sprites(t *testing.T) {
	blue := color.RGBA{B: 0xff, A: 0xff}
	r := New(DefaultCellSize, DefaultGap, staticSprites{"food": solid(18, blue)})
	img := r.Frame(testSnapshot())

	if got := rgbaAt(img, 10*20+9, 2*20+9); got != blue {
		t.Fatalf("food sprite pixel = %v, want %v", got, blue)
	}
	if got := rgbaAt(img, 5*20+9, 5*20+9); got != SnakeColor {
		t.Fatalf("snake without sprite = %v, want %v", got, SnakeColor)
	}
}

func TestNew_InvalidSizes(t *testing.T) {
	r := New(0, 50, nil)
	if r.CellSize() != DefaultCellSize || r.Gap() != DefaultGap {
		t.Fatalf("cell/gap = %d/%d, want defaults", r.CellSize(), r.Gap())
	}
}

func TestEncodePNG_Scale(t *testing.T) {
	r := New(DefaultCellSize, DefaultGap, nil)
	img := r.Frame(testSnapshot())

	tests := []struct {
		scale int
		want  int
	}{
		{1, 400},
		{2, 800},
		{MaxScale + 1, 400},
		{-3, 400},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := EncodePNG(&buf, img, tt.scale); err != nil {
			t.Fatalf("scale %d: %v", tt.scale, err)
		}
		decoded, err := imaging.Decode(&buf)
		if err != nil {
			t.Fatalf("scale %d: decode: %v", tt.scale, err)
		}
		if got := decoded.Bounds().Dx(); got != tt.want {
			t.Fatalf("scale %d: width = %d, want %d", tt.scale, got, tt.want)
		}
	}
}

func TestLive(t *testing.T) {
	live := NewLive(New(DefaultCellSize, DefaultGap, nil))
	if _, ok := live.Frame(); ok {
		t.Fatal("frame before any state")
	}

	snap := testSnapshot()
	live.OnFrame(snap)
	first, ok := live.Frame()
	if !ok {
		t.Fatal("no frame after OnFrame")
	}

	live.OnGameOver(game.GameOver{Session: "other", Score: 10})
	if img, _ := live.Frame(); img != first {
		t.Fatal("game over of another session must be ignored")
	}

	live.OnGameOver(game.GameOver{Session: snap.Session, Score: 10})
	over, _ := live.Frame()
	if over == first {
		t.Fatal("game over frame not rendered")
	}
	if b := over.Bounds(); b.Dx() != 400 {
		t.Fatalf("game over frame width = %d", b.Dx())
	}
}

func TestLive_KeepsGameOverUntilNextRun(t *testing.T) {
	live := NewLive(New(DefaultCellSize, DefaultGap, nil))
	snap := testSnapshot()
	live.OnFrame(snap)
	live.OnGameOver(game.GameOver{Session: snap.Session, Score: 20})
	over, _ := live.Frame()

	// 结束后立刻重置出来的新棋盘不应该盖掉结束画面
	fresh := testSnapshot()
	fresh.Session = "fresh"
	fresh.Phase = structs.Ready
	live.OnFrame(fresh)
	if img, _ := live.Frame(); img != over {
		t.Fatal("ready board replaced the game over frame")
	}

	fresh.Phase = structs.Running
	live.OnFrame(fresh)
	if img, _ := live.Frame(); img == over {
		t.Fatal("running frame must replace the game over frame")
	}

	// 新一局里 Ready 帧照常显示
	fresh.Phase = structs.Ready
	live.OnFrame(fresh)
	running, _ := live.Frame()
	fresh.Tick = 1
	live.OnFrame(fresh)
	if img, _ := live.Frame(); img == running {
		t.Fatal("frames must update when no game over is pending")
	}
}
