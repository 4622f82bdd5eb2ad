package sse

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Hub は変更イベントを接続中のクライアントへ配るfan-out。
// クライアントごとにバッファ付きチャンネルを持ち、
// 受け取れないクライアントはイベントを取りこぼす（詰まらせない）。
type Hub struct {
	mu      sync.RWMutex
	clients map[string]chan []byte
	logger  *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[string]chan []byte),
		logger:  logger,
	}
}

// Run はイベント元のチャンネルを読み続けて全クライアントへ配る。
// ctxが終わるかeventsが閉じるまでブロックするのでgoroutineで動かす。
func (h *Hub) Run(ctx context.Context, events <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			h.broadcast(msg)
		}
	}
}

// Subscribe はクライアント用のチャンネルを登録して返す。
// 切断時に必ずUnsubscribeを呼ぶこと（呼ばないとチャンネルが漏れる）。
func (h *Hub) Subscribe(clientID string) <-chan []byte {
	ch := make(chan []byte, 64)

	h.mu.Lock()
	h.clients[clientID] = ch
	h.mu.Unlock()

	return ch
}

// Unsubscribe はクライアントを外してチャンネルを閉じる。
func (h *Hub) Unsubscribe(clientID string) {
	h.mu.Lock()
	if ch, ok := h.clients[clientID]; ok {
		delete(h.clients, clientID)
		close(ch)
	}
	h.mu.Unlock()
}

// 接続中のクライアント数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			//バッファが埋まっているクライアントはスキップ
			h.logger.WithField("client_id", id).Debug("sse client buffer full, dropping event")
		}
	}
}

// ハートビート間隔。接続が生きていることをクライアントへ知らせる。
const HeartbeatInterval = 15 * time.Second
