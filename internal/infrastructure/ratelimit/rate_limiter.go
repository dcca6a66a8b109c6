package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// chatLimiterTTL 聊天级限制器闲置多久后回收
const chatLimiterTTL = 10 * time.Minute

// RateLimiter Bot API 调用限速
// 全局令牌桶限制总 QPS，每个聊天另有独立令牌桶
type RateLimiter struct {
	global *rate.Limiter

	mu      sync.Mutex
	chatQPS float64
	chats   *cache.Cache
}

// NewRateLimiter 创建限速器
// qps: 全局每秒请求数，0 或负数不限制
// chatQPS: 单个聊天每秒请求数，0 或负数不限制
func NewRateLimiter(qps int, chatQPS float64) *RateLimiter {
	return &RateLimiter{
		global:  newLimiter(float64(qps), qps),
		chatQPS: chatQPS,
		chats:   cache.New(chatLimiterTTL, 2*chatLimiterTTL),
	}
}

func newLimiter(qps float64, burst int) *rate.Limiter {
	if qps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if burst < 1 {
		burst = 1
	}
	// 桶大小为 QPS，允许短时间突发
	return rate.NewLimiter(rate.Limit(qps), burst)
}

func (r *RateLimiter) chat(chatID int64) *rate.Limiter {
	key := strconv.FormatInt(chatID, 10)

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.chats.Get(key); ok {
		// 访问即续期
		r.chats.SetDefault(key, v)
		return v.(*rate.Limiter)
	}
	l := newLimiter(r.chatQPS, int(r.chatQPS))
	r.chats.SetDefault(key, l)
	return l
}

// Wait 等待全局令牌，chatID 为 0 时不做聊天级限制
func (r *RateLimiter) Wait(ctx context.Context, chatID int64) error {
	if chatID != 0 {
		if err := r.chat(chatID).Wait(ctx); err != nil {
			return err
		}
	}
	return r.global.Wait(ctx)
}

// Allow 不阻塞地检查是否可以立即发起请求
// 用于进度更新这类可以丢弃的调用
func (r *RateLimiter) Allow(chatID int64) bool {
	now := time.Now()
	if chatID != 0 && !r.chat(chatID).AllowN(now, 1) {
		return false
	}
	return r.global.AllowN(now, 1)
}

// SetQPS 动态设置全局 QPS
func (r *RateLimiter) SetQPS(qps int) {
	if qps <= 0 {
		r.global.SetLimit(rate.Inf)
		r.global.SetBurst(1)
	} else {
		r.global.SetLimit(rate.Limit(qps))
		r.global.SetBurst(qps)
	}
}

// GetQPS 获取当前全局 QPS，0 表示不限制
func (r *RateLimiter) GetQPS() int {
	limit := r.global.Limit()
	if limit == rate.Inf {
		return 0
	}
	return int(limit)
}

// TrackedChats 当前持有限制器的聊天数量
func (r *RateLimiter) TrackedChats() int {
	return r.chats.ItemCount()
}
