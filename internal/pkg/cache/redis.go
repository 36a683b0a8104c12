package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-demo/matchmaker/internal/config"
	"github.com/go-demo/matchmaker/internal/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func NewRedis(cfg *config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", cfg.GetAddr()),
		zap.Int("db", cfg.DB),
	)

	return client, nil
}

// Close closes the Redis connection
func Close(client *redis.Client, logger *zap.Logger) {
	if err := client.Close(); err != nil {
		logger.Error("Error closing Redis connection", zap.Error(err))
	} else {
		logger.Info("Redis connection closed")
	}
}

// Keys for the room mirror
const (
	KeyRoom              = "room:%s"     // room:{roomID}
	KeyGamePlatformRooms = "rooms:%s:%s" // rooms:{game}:{platform}
)

const mirrorQueueSize = 1024

// RoomMirror copies the room directory into Redis so other services can read
// live rooms without calling the matchmaker. Writes happen on a background
// goroutine; events are dropped when the queue is full.
type RoomMirror struct {
	client *redis.Client
	ttl    time.Duration
	events chan repository.RoomEvent
	logger *zap.Logger
}

func NewRoomMirror(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RoomMirror {
	return &RoomMirror{
		client: client,
		ttl:    ttl,
		events: make(chan repository.RoomEvent, mirrorQueueSize),
		logger: logger,
	}
}

// OnRoomEvent queues the event without blocking the caller
func (m *RoomMirror) OnRoomEvent(event repository.RoomEvent) {
	select {
	case m.events <- event:
	default:
		m.logger.Warn("Room mirror queue full, dropping event",
			zap.String("type", string(event.Type)),
			zap.String("room_id", event.Room.ID),
		)
	}
}

// Run writes queued events to Redis until the context is cancelled
func (m *RoomMirror) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-m.events:
			if err := m.Apply(ctx, event); err != nil {
				m.logger.Error("Failed to mirror room event",
					zap.String("type", string(event.Type)),
					zap.String("room_id", event.Room.ID),
					zap.Error(err),
				)
			}
		}
	}
}

// Apply writes a single event to Redis
func (m *RoomMirror) Apply(ctx context.Context, event repository.RoomEvent) error {
	room := event.Room
	roomKey := fmt.Sprintf(KeyRoom, room.ID)
	setKey := fmt.Sprintf(KeyGamePlatformRooms, room.Game, room.Platform)

	pipe := m.client.TxPipeline()
	switch event.Type {
	case repository.RoomEventRemoved:
		pipe.Del(ctx, roomKey)
		pipe.SRem(ctx, setKey, room.ID)
	default:
		data, err := json.Marshal(room)
		if err != nil {
			return fmt.Errorf("failed to encode room: %w", err)
		}
		pipe.Set(ctx, roomKey, data, m.ttl)
		pipe.SAdd(ctx, setKey, room.ID)
		pipe.Expire(ctx, setKey, m.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write room: %w", err)
	}
	return nil
}
