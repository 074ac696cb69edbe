package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const keepaliveInterval = 30 * time.Second

// Hub fans board changes out to the streams of the same user on this
// instance.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[chan struct{}]struct{}{}}
}

// Subscribe returns a channel that receives a signal after each change. Signals
// coalesce while the subscriber is busy.
func (h *Hub) Subscribe(userID string) chan struct{} {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = map[chan struct{}]struct{}{}
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(userID string, ch chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subs[userID]; ok {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(h.subs, userID)
		}
	}
}

func (h *Hub) Broadcast(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[userID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// BoardChanged lets a Hub serve as the notifier of a single instance.
func (h *Hub) BoardChanged(_ context.Context, userID string) error {
	h.Broadcast(userID)
	return nil
}

// RedisNotifier publishes board changes on a Redis channel so every instance
// learns about them.
type RedisNotifier struct {
	client   *redis.Client
	channel  string
	instance string
}

type changeMessage struct {
	Instance string `json:"instance"`
	UserID   string `json:"userId"`
}

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel, instance: uuid.NewString()}
}

func (n *RedisNotifier) BoardChanged(ctx context.Context, userID string) error {
	payload, err := sonic.Marshal(changeMessage{Instance: n.instance, UserID: userID})
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, payload).Err()
}

// Listen calls onChange for every published change until ctx is cancelled.
// remote is true for changes made by another instance. The subscription is
// re-established when the channel closes.
func (n *RedisNotifier) Listen(ctx context.Context, onChange func(userID string, remote bool)) {
	for {
		sub := n.client.Subscribe(ctx, n.channel)
		n.drain(ctx, sub.Channel(), onChange)
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		log.Error("board change subscription closed, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (n *RedisNotifier) drain(ctx context.Context, ch <-chan *redis.Message, onChange func(string, bool)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev changeMessage
			if err := sonic.UnmarshalString(msg.Payload, &ev); err != nil || ev.UserID == "" {
				log.WithField("payload", msg.Payload).Warn("unable to parse board change")
				continue
			}
			onChange(ev.UserID, ev.Instance != n.instance)
		}
	}
}

// streamBoard sends the board snapshot as a server-sent event on connect and
// after every change.
func (h *handlers) streamBoard(c echo.Context) error {
	userID := userFrom(c)
	if _, err := h.board(c); err != nil {
		return fail(c, "bootstrap", err)
	}
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	flusher, ok := res.Writer.(http.Flusher)
	if !ok {
		return c.String(http.StatusInternalServerError, "stream unsupported")
	}
	res.WriteHeader(http.StatusOK)

	ch := h.Hub.Subscribe(userID)
	defer h.Hub.Unsubscribe(userID, ch)
	ctx := c.Request().Context()
	send := func() error {
		b, err := h.board(c)
		if err != nil {
			return err
		}
		data, err := sonic.Marshal(b.Snapshot())
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(res, "event: board\ndata: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}
	if err := send(); err != nil {
		return nil
	}

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ch:
			if err := send(); err != nil {
				log.WithError(err).WithField("user", userID).Debug("stream closed")
				return nil
			}
		case <-ticker.C:
			if _, err := res.Write([]byte(":keepalive\n\n")); err != nil {
				return nil
			}
			flusher.Flush()
		case <-ctx.Done():
			return nil
		}
	}
}
