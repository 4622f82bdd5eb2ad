package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"app/internal/usecase"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// 変更イベントを流すチャンネル名
const changeChannel = "inventory.changes"

// RedisBus は変更イベントのpub/sub。複数インスタンスでも全購読者に届く。
type RedisBus struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisBus(addr string, password string, logger *logrus.Logger) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	//接続確認
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisBus{client: client, logger: logger}, nil
}

// 変更イベントを配信する
func (b *RedisBus) PublishChange(ctx context.Context, ev usecase.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}

	if err := b.client.Publish(ctx, changeChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

// Subscribe はイベントのチャンネルと購読解除の関数を返す。
// 購読側はteardown時に必ず解除する。
func (b *RedisBus) Subscribe(ctx context.Context) (<-chan []byte, func()) {
	sub := b.client.Subscribe(ctx, changeChannel)
	out := make(chan []byte, 256)

	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		if err := sub.Close(); err != nil {
			b.logger.WithError(err).Warn("failed to close redis subscription")
		}
	}

	return out, cancel
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}
