// Package saga 顺序执行一组步骤，任一步失败时逆序补偿已完成的步骤。
//
// 本地数据库事务提交之后，与外部系统（支付网关等）的交互无法回滚，
// 只能通过补偿动作撤销副作用，这正是 Saga 适用的场景。
//
// 要求：
// - Action 与 Compensate 都应该幂等
// - 补偿只依赖本步骤自己的结果（通过闭包捕获）
package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Step Saga中的一个步骤
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error // 可为nil
}

// Saga 一次Saga执行
// 非并发安全，每次业务调用新建一个
type Saga struct {
	name     string
	steps    []Step
	executed []Step
	timeout  time.Duration
	logger   *slog.Logger
}

// Option Saga选项
type Option func(*Saga)

// WithLogger 指定补偿失败时使用的日志
func WithLogger(l *slog.Logger) Option {
	return func(s *Saga) { s.logger = l }
}

// WithName 指定Saga名称（出现在日志与错误中）
func WithName(name string) Option {
	return func(s *Saga) { s.name = name }
}

// NewSaga 创建Saga
//
//	s := saga.NewSaga(10*time.Second, saga.WithName("rental-session"))
//	s.AddStep("open-session", openSession, expireSession)
//	s.AddStep("attach-session", attachSession, nil)
//	err := s.Execute(ctx)
func NewSaga(timeout time.Duration, opts ...Option) *Saga {
	s := &Saga{
		name:    "saga",
		timeout: timeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddStep 追加步骤，按添加顺序执行、逆序补偿
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, Step{
		Name:       name,
		Action:     action,
		Compensate: compensate,
	})
}

// StepError 某一步执行失败
type StepError struct {
	Saga  string
	Index int
	Step  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: 步骤[%d:%s]执行失败: %v", e.Saga, e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// ErrTimeout 整体超时
var ErrTimeout = errors.New("saga timeout")

// Execute 依次执行所有步骤
// 失败或超时都会触发补偿；补偿使用独立的context，不受原context取消影响
func (s *Saga) Execute(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			s.compensate(context.WithoutCancel(ctx))
			return fmt.Errorf("%s: %w: %w", s.name, ErrTimeout, err)
		}

		if step.Action != nil {
			if err := step.Action(ctx); err != nil {
				s.compensate(context.WithoutCancel(ctx))
				return &StepError{Saga: s.name, Index: i, Step: step.Name, Err: err}
			}
		}
		s.executed = append(s.executed, step)
	}

	return nil
}

// compensate 逆序补偿；单步补偿失败只记录日志，继续补偿其余步骤
func (s *Saga) compensate(ctx context.Context) {
	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			s.logger.WarnContext(ctx, "saga compensation failed",
				"saga", s.name,
				"step", step.Name,
				"error", err,
			)
		}
	}
	s.executed = nil
}
