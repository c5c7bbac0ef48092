package util

import (
	"context"
	"net"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/livegateway/livegateway/internal/config"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// SetWebSocketProxy configures the provided WebSocket dialer with proxy
// settings from the configuration. It supports SOCKS5, HTTP, and HTTPS
// proxies. An empty or unparsable proxy URL leaves the dialer untouched.
func SetWebSocketProxy(cfg *config.Config, dialer *websocket.Dialer) *websocket.Dialer {
	if cfg.ProxyURL == "" {
		return dialer
	}

	proxyURL, errParse := url.Parse(cfg.ProxyURL)
	if errParse != nil {
		log.Errorf("invalid proxy url %q: %v", cfg.ProxyURL, errParse)
		return dialer
	}

	if proxyURL.Scheme == "socks5" {
		username := proxyURL.User.Username()
		password, _ := proxyURL.User.Password()
		proxyAuth := &proxy.Auth{User: username, Password: password}
		socksDialer, errSOCKS5 := proxy.SOCKS5("tcp", proxyURL.Host, proxyAuth, proxy.Direct)
		if errSOCKS5 != nil {
			log.Errorf("create SOCKS5 dialer failed: %v", errSOCKS5)
			return dialer
		}
		dialer.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return socksDialer.Dial(network, addr)
		}
	} else if proxyURL.Scheme == "http" || proxyURL.Scheme == "https" {
		dialer.Proxy = http.ProxyURL(proxyURL)
	}

	return dialer
}
