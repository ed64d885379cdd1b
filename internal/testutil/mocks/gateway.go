// Package mocks testify/mock 实现的测试替身
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xiebiao/library/internal/domain/payment"
)

// Gateway 支付网关mock
type Gateway struct {
	mock.Mock
}

func (m *Gateway) OpenSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	args := m.Called(ctx, req)
	if s, ok := args.Get(0).(*payment.Session); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Gateway) IsPaid(ctx context.Context, sessionID string) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}

func (m *Gateway) ExpireSession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}
