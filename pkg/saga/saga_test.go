package saga

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

// TestSaga_Execute_Success 所有步骤成功时不触发补偿
func TestSaga_Execute_Success(t *testing.T) {
	var trace []string
	s := NewSaga(time.Second)
	s.AddStep("open", func(ctx context.Context) error {
		trace = append(trace, "open")
		return nil
	}, func(ctx context.Context) error {
		trace = append(trace, "undo-open")
		return nil
	})
	s.AddStep("attach", func(ctx context.Context) error {
		trace = append(trace, "attach")
		return nil
	}, nil)

	if err := s.Execute(context.Background()); err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if want := []string{"open", "attach"}; !reflect.DeepEqual(trace, want) {
		t.Errorf("执行顺序错误: got=%v want=%v", trace, want)
	}
}

// TestSaga_Execute_FailureAndCompensate 第三步失败，前两步逆序补偿
func TestSaga_Execute_FailureAndCompensate(t *testing.T) {
	var trace []string
	step := func(name string) (func(context.Context) error, func(context.Context) error) {
		return func(ctx context.Context) error {
				trace = append(trace, name)
				return nil
			}, func(ctx context.Context) error {
				trace = append(trace, "undo-"+name)
				return nil
			}
	}

	s := NewSaga(time.Second, WithName("test"))
	a, ca := step("a")
	b, cb := step("b")
	s.AddStep("a", a, ca)
	s.AddStep("b", b, cb)
	boom := errors.New("boom")
	s.AddStep("c", func(ctx context.Context) error { return boom }, nil)

	err := s.Execute(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("期望包装原始错误，实际: %v", err)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != "c" || stepErr.Index != 2 {
		t.Errorf("StepError信息错误: %+v", stepErr)
	}
	if want := []string{"a", "b", "undo-b", "undo-a"}; !reflect.DeepEqual(trace, want) {
		t.Errorf("补偿顺序错误: got=%v want=%v", trace, want)
	}
}

// TestSaga_Execute_Timeout 超时后不再执行后续步骤，已执行步骤被补偿
func TestSaga_Execute_Timeout(t *testing.T) {
	compensated := false
	second := false

	s := NewSaga(20 * time.Millisecond)
	s.AddStep("slow", func(ctx context.Context) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	}, func(ctx context.Context) error {
		if ctx.Err() != nil {
			t.Error("补偿不应收到已取消的context")
		}
		compensated = true
		return nil
	})
	s.AddStep("never", func(ctx context.Context) error {
		second = true
		return nil
	}, nil)

	err := s.Execute(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("期望超时错误，实际: %v", err)
	}
	if !compensated {
		t.Error("超时后应补偿已执行步骤")
	}
	if second {
		t.Error("超时后不应继续执行")
	}
}

// TestSaga_CompensateContinuesOnError 单步补偿失败不影响其余补偿
func TestSaga_CompensateContinuesOnError(t *testing.T) {
	firstUndone := false

	s := NewSaga(0)
	s.AddStep("first", func(ctx context.Context) error { return nil }, func(ctx context.Context) error {
		firstUndone = true
		return nil
	})
	s.AddStep("second", func(ctx context.Context) error { return nil }, func(ctx context.Context) error {
		return errors.New("undo failed")
	})
	s.AddStep("third", func(ctx context.Context) error { return errors.New("fail") }, nil)

	if err := s.Execute(context.Background()); err == nil {
		t.Fatal("期望失败")
	}
	if !firstUndone {
		t.Error("第二步补偿失败后仍应补偿第一步")
	}
}

func BenchmarkSaga_Execute(b *testing.B) {
	noop := func(ctx context.Context) error { return nil }
	for i := 0; i < b.N; i++ {
		s := NewSaga(time.Second)
		s.AddStep("a", noop, noop)
		s.AddStep("b", noop, noop)
		_ = s.Execute(context.Background())
	}
}
