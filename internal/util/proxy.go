package util

import (
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpproxy"
)

// ProxyConfig holds explicit proxy settings; empty fields fall back to the environment
type ProxyConfig struct {
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// NewProxyFunc creates a proxy function based on configuration.
// If no proxy URLs are provided, falls back to HTTP_PROXY, HTTPS_PROXY and NO_PROXY.
// NO_PROXY is honored in both cases.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	env := httpproxy.FromEnvironment()
	if httpProxy == "" && httpsProxy == "" {
		if noProxy != "" {
			env.NoProxy = noProxy
		}
		return proxyFor(env)
	}
	if noProxy == "" {
		noProxy = env.NoProxy
	}
	return proxyFor(&httpproxy.Config{HTTPProxy: httpProxy, HTTPSProxy: httpsProxy, NoProxy: noProxy})
}

func proxyFor(cfg *httpproxy.Config) func(*http.Request) (*url.URL, error) {
	fn := cfg.ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return fn(req.URL)
	}
}

// NewHTTPClient returns a client with the given timeout and proxy settings
func NewHTTPClient(timeout time.Duration, proxy ProxyConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = NewProxyFunc(proxy.HTTPProxy, proxy.HTTPSProxy, proxy.NoProxy)
	return &http.Client{Timeout: timeout, Transport: transport}
}
