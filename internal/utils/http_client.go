package utils

import (
	"crypto/tls"
	"net/http"
	"time"
)

// NewTransport 补全请求使用的连接池配置
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// NewHTTPClient timeout 是远端调用唯一的超时来源，超时按传输失败处理
func NewHTTPClient(timeout time.Duration, transport http.RoundTripper) *http.Client {
	if transport == nil {
		transport = NewTransport()
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
