package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_Basic(t *testing.T) {
	limiter := NewRateLimiter(2, 0)

	if qps := limiter.GetQPS(); qps != 2 {
		t.Errorf("expected QPS 2, got %d", qps)
	}

	if !limiter.Allow(0) {
		t.Error("first request should be allowed")
	}
}

func TestRateLimiter_NoLimit(t *testing.T) {
	limiter := NewRateLimiter(0, 0)

	if qps := limiter.GetQPS(); qps != 0 {
		t.Errorf("expected QPS 0 (unlimited), got %d", qps)
	}

	for i := 0; i < 100; i++ {
		if !limiter.Allow(int64(i % 3)) {
			t.Error("unlimited limiter should allow all requests")
		}
	}
}

func TestRateLimiter_SetQPS(t *testing.T) {
	limiter := NewRateLimiter(10, 1)

	limiter.SetQPS(20)
	if qps := limiter.GetQPS(); qps != 20 {
		t.Errorf("expected QPS 20 after SetQPS, got %d", qps)
	}

	limiter.SetQPS(0)
	if qps := limiter.GetQPS(); qps != 0 {
		t.Errorf("expected QPS 0 after SetQPS(0), got %d", qps)
	}
}

func TestRateLimiter_PerChat(t *testing.T) {
	// 全局不限制，每个聊天每秒1次
	limiter := NewRateLimiter(0, 1)

	if !limiter.Allow(100) {
		t.Fatal("first request for chat 100 should be allowed")
	}
	if limiter.Allow(100) {
		t.Error("second immediate request for chat 100 should be throttled")
	}
	// 其他聊天不受影响
	if !limiter.Allow(200) {
		t.Error("chat 200 should have its own bucket")
	}
	if got := limiter.TrackedChats(); got != 2 {
		t.Errorf("expected 2 tracked chats, got %d", got)
	}
}

func TestRateLimiter_Wait(t *testing.T) {
	limiter := NewRateLimiter(1, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// 第一个请求应该立即通过
	start := time.Now()
	if err := limiter.Wait(ctx, 1); err != nil {
		t.Errorf("first wait should not error: %v", err)
	}

	// 第二个请求需要等待约1秒
	if err := limiter.Wait(ctx, 1); err != nil {
		t.Errorf("second wait should not error: %v", err)
	}
	duration := time.Since(start)

	if duration < 900*time.Millisecond || duration > 1300*time.Millisecond {
		t.Errorf("expected wait duration around 1s, got %v", duration)
	}
}

func TestRateLimiter_WaitCanceled(t *testing.T) {
	limiter := NewRateLimiter(0, 0.1)

	if err := limiter.Wait(context.Background(), 5); err != nil {
		t.Fatalf("first wait should not error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, 5); err == nil {
		t.Error("expected error when deadline is shorter than the wait")
	}
}
