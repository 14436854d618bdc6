package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/techjoejoe/Engagesuite-sub001/internal/handler/dto"
	"github.com/techjoejoe/Engagesuite-sub001/internal/service"
)

// Тайминги WebSocket-соединения
const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// WSHandler стримит проекции состояния игры по WebSocket.
// Каждое соединение получает собственный проектор-наблюдатель: полный
// снимок состояния каждый тик, без дельт. Клиент, пропустивший кадры,
// сходится к актуальному состоянию на следующем кадре.
type WSHandler struct {
	gameService *service.GameService
	upgrader    websocket.Upgrader
}

// NewWSHandler создает новый WebSocket-обработчик
func NewWSHandler(gameService *service.GameService, allowedOrigins []string) *WSHandler {
	originSet := make(map[string]bool, len(allowedOrigins))
	allowAll := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		originSet[origin] = true
	}

	return &WSHandler{
		gameService: gameService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				return originSet[r.Header.Get("Origin")]
			},
		},
	}
}

// StreamGame апгрейдит соединение и стримит проекции до закрытия
func (h *WSHandler) StreamGame(c *gin.Context) {
	gameID := c.MustGet("gameID").(string)

	projector, err := h.gameService.WatchGame(c.Request.Context(), gameID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		projector.Stop()
		log.Printf("[WSHandler] Ошибка апгрейда соединения для игры %s: %v", gameID, err)
		return
	}

	log.Printf("[WSHandler] Открыт стрим игры %s для %s", gameID, conn.RemoteAddr())
	done := make(chan struct{})

	// Читатель: только pong и обнаружение закрытия, входящие команды
	// идут через REST
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(wsPongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		projector.Stop()
		conn.Close()
		log.Printf("[WSHandler] Закрыт стрим игры %s для %s", gameID, conn.RemoteAddr())
	}()

	for {
		select {
		case <-done:
			return
		case state, ok := <-projector.States():
			if !ok {
				// Игра завершена, проектор остановился
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game finished"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(dto.NewSessionStateEnvelope(state)); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
