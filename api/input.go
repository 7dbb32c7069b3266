package api

import "github.com/hoshinonyaruko/snake-web/structs"

// 方向键和页面上四个按钮的映射
var keyDirections = map[string]structs.Direction{
	"ArrowUp":    structs.Up,
	"ArrowDown":  structs.Down,
	"ArrowLeft":  structs.Left,
	"ArrowRight": structs.Right,
	"upBtn":      structs.Up,
	"downBtn":    structs.Down,
	"leftBtn":    structs.Left,
	"rightBtn":   structs.Right,
}

// ParseKey 把键名、按钮 id 或方向名转换为方向，无法识别时返回 structs.None
func ParseKey(key string) structs.Direction {
	if d, ok := keyDirections[key]; ok {
		return d
	}
	return structs.ParseDirection(key)
}
