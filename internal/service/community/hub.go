package community

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	mqcontracts "tandem/contracts/mq"
)

// Notice tells connected clients that a feed changed and should be re-fetched.
type Notice struct {
	CommunityID int64  `json:"community_id"`
	PostID      int64  `json:"post_id"`
	Action      string `json:"action"`
}

const subscriberBuffer = 10

// Hub fans feed change notices out to the subscribers of each community.
type Hub struct {
	mu     sync.Mutex
	subs   map[int64]map[chan Notice]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[int64]map[chan Notice]struct{}),
		logger: logger,
	}
}

// Subscribe registers a listener for communityID. The returned func
// unsubscribes and closes the channel.
func (h *Hub) Subscribe(communityID int64) (<-chan Notice, func()) {
	ch := make(chan Notice, subscriberBuffer)

	h.mu.Lock()
	if h.subs[communityID] == nil {
		h.subs[communityID] = make(map[chan Notice]struct{})
	}
	h.subs[communityID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[communityID], ch)
			if len(h.subs[communityID]) == 0 {
				delete(h.subs, communityID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish never blocks. A subscriber whose buffer is full misses the notice
// and catches up on the next one.
func (h *Hub) Publish(n Notice) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for ch := range h.subs[n.CommunityID] {
		select {
		case ch <- n:
			delivered++
		default:
		}
	}
	return delivered
}

func (h *Hub) Subscribers(communityID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[communityID])
}

// HandlePostChanged feeds community.post_changed messages into the hub.
func (h *Hub) HandlePostChanged(_ context.Context, raw json.RawMessage) error {
	var p mqcontracts.PostChangedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal PostChangedPayload", zap.Error(err))
		return nil
	}
	n := h.Publish(Notice{CommunityID: p.CommunityID, PostID: p.PostID, Action: p.Action})
	h.logger.Debug("Feed notice published",
		zap.Int64("community_id", p.CommunityID),
		zap.String("action", p.Action),
		zap.Int("subscribers", n),
	)
	return nil
}
