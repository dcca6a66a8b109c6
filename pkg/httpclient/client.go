package httpclient

import (
	"net"
	"net/http"
	"time"
)

// Options HTTP客户端选项
type Options struct {
	// 整个请求的超时时间，0 表示不限制（大文件传输）
	Timeout time.Duration
	// 等待响应头的超时时间，长轮询时需大于轮询超时
	ResponseHeaderTimeout time.Duration
	// 建立连接的超时时间，默认10秒
	DialTimeout time.Duration
	// 每个主机保持的空闲连接数
	MaxIdleConnsPerHost int
}

// DefaultOptions 返回默认选项
func DefaultOptions() Options {
	return Options{
		ResponseHeaderTimeout: 90 * time.Second,
		DialTimeout:           10 * time.Second,
		MaxIdleConnsPerHost:   8,
	}
}

// WithTimeout 设置超时时间
func (o Options) WithTimeout(timeout time.Duration) Options {
	o.Timeout = timeout
	return o
}

// WithResponseHeaderTimeout 设置响应头超时
func (o Options) WithResponseHeaderTimeout(timeout time.Duration) Options {
	o.ResponseHeaderTimeout = timeout
	return o
}

// New 按选项创建 HTTP 客户端，代理沿用环境变量
func New(opts Options) *http.Client {
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		ExpectContinueTimeout: time.Second,
	}

	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	}
}
