package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xiebiao/library/internal/domain/payment"
)

// Gateway 内存版支付网关
// Unavailable为true时所有调用返回payment.ErrUnavailable
type Gateway struct {
	mu          sync.Mutex
	Unavailable bool
	seq         int
	sessions    map[string]payment.SessionRequest
	paid        map[string]bool
	expired     map[string]bool
}

// NewGateway 创建内存网关
func NewGateway() *Gateway {
	return &Gateway{
		sessions: make(map[string]payment.SessionRequest),
		paid:     make(map[string]bool),
		expired:  make(map[string]bool),
	}
}

func (g *Gateway) OpenSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Unavailable {
		return nil, payment.ErrUnavailable
	}
	g.seq++
	id := fmt.Sprintf("cs_test_%d", g.seq)
	g.sessions[id] = req
	return &payment.Session{
		ID:        id,
		URL:       "https://checkout.example.com/" + id,
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}, nil
}

func (g *Gateway) IsPaid(_ context.Context, sessionID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Unavailable {
		return false, payment.ErrUnavailable
	}
	if _, ok := g.sessions[sessionID]; !ok {
		return false, fmt.Errorf("no such checkout session: %s", sessionID)
	}
	return g.paid[sessionID], nil
}

func (g *Gateway) ExpireSession(_ context.Context, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Unavailable {
		return payment.ErrUnavailable
	}
	g.expired[sessionID] = true
	return nil
}

// Pay 模拟用户在收银台完成付款
func (g *Gateway) Pay(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paid[sessionID] = true
}

// Request 返回开启会话时的参数
func (g *Gateway) Request(sessionID string) (payment.SessionRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	req, ok := g.sessions[sessionID]
	return req, ok
}

// Expired 会话是否已被置为失效
func (g *Gateway) Expired(sessionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.expired[sessionID]
}

// Opened 已开启的会话数
func (g *Gateway) Opened() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}
