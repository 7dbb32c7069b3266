package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hoshinonyaruko/snake-web/game"
	"github.com/hoshinonyaruko/snake-web/structs"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

const (
	FrameMessage     = "frame"
	ScoreMessage     = "score"
	GameOverMessage  = "game_over"
	DirectionMessage = "direction"
	StartMessage     = "start"
	StopMessage      = "stop"

	sendBuffer = 32
	writeWait  = time.Second
)

// Message 服务端推送的消息
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Command 页面发来的消息
type Command struct {
	Type string `json:"type"`
	Key  string `json:"key,omitempty"`
}

type ScorePayload struct {
	Score int `json:"score"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub 把每一帧、得分和游戏结束推给所有 websocket 连接，并把页面输入转给游戏
type Hub struct {
	game     Game
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

var _ game.Observer = (*Hub)(nil)

func NewHub(g Game, logger *zap.Logger) *Hub {
	return &Hub{
		game:   g,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) OnFrame(snap structs.Snapshot) {
	h.broadcast(Message{Type: FrameMessage, Payload: snap})
}

func (h *Hub) OnScore(score int) {
	h.broadcast(Message{Type: ScoreMessage, Payload: ScorePayload{Score: score}})
}

func (h *Hub) OnGameOver(ev game.GameOver) {
	h.broadcast(Message{Type: GameOverMessage, Payload: ev})
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast 不阻塞游戏循环，发送队列满的连接直接断开
func (h *Hub) broadcast(msg Message) {
	data, err := jsoniter.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("websocket client too slow, dropping")
			h.removeLocked(c)
		}
	}
}

// register 在持有 h.mu 时取当前状态并加入连接，广播只能排在初始状态之后，不会漏帧
func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	snap := h.game.Snapshot()
	if data, err := jsoniter.Marshal(Message{Type: FrameMessage, Payload: snap}); err == nil {
		c.send <- data
	}
	if data, err := jsoniter.Marshal(Message{Type: ScoreMessage, Payload: ScorePayload{Score: snap.Score}}); err == nil {
		c.send <- data
	}
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Serve 升级为 websocket，先推送当前状态，然后处理页面输入直到连接断开
func (h *Hub) Serve(ctx *gin.Context) {
	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.logger.Info("websocket connected", zap.String("remote", conn.RemoteAddr().String()))

	h.register(c)

	go c.writePump()
	h.readPump(c)

	h.remove(c)
	h.logger.Info("websocket disconnected", zap.String("remote", conn.RemoteAddr().String()))
}

func (h *Hub) readPump(c *client) {
	defer c.conn.Close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd Command
		if err := jsoniter.Unmarshal(data, &cmd); err != nil {
			h.logger.Debug("ignore malformed command", zap.Error(err))
			continue
		}
		h.handle(cmd)
	}
}

// handle 无法识别的命令和按键一律忽略
func (h *Hub) handle(cmd Command) {
	switch cmd.Type {
	case DirectionMessage:
		if d := ParseKey(cmd.Key); d.Valid() {
			h.game.SetNextDirection(d)
		}
	case StartMessage:
		h.game.Start()
	case StopMessage:
		h.game.Stop()
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
