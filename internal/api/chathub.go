package api

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	nethttp "net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/net/proxy"
	"golang.org/x/net/websocket"

	apierrors "github.com/diogo/sydney/internal/errors"
	"github.com/diogo/sydney/internal/models"
)

// handshakeFrame selects the JSON hub protocol
const handshakeFrame = `{"protocol":"json","version":1}` + models.RecordSeparator

func init() {
	proxy.RegisterDialerType("http", newConnectDialer)
	proxy.RegisterDialerType("https", newConnectDialer)
}

// dialChatHub opens the ChatHub WebSocket for conv and completes the hub
// handshake
func (c *Client) dialChatHub(ctx context.Context, conv models.Conversation) (*websocket.Conn, error) {
	endpoint := c.chatHubURL
	target := endpoint
	if conv.EncryptedSignature != "" {
		target += "?sec_access_token=" + url.QueryEscape(conv.EncryptedSignature)
	}

	cfg, err := websocket.NewConfig(target, models.EndpointOrigin)
	if err != nil {
		return nil, apierrors.NewNetworkError("connect chathub", endpoint, err)
	}
	for key, value := range models.ChatHubHeaders() {
		cfg.Header.Set(key, value)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dialTransport(ctx, cfg.Location)
	if err != nil {
		return nil, apierrors.NewNetworkError("connect chathub", endpoint, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	ws, err := websocket.NewClient(cfg, conn)
	if err != nil {
		_ = conn.Close()
		return nil, apierrors.NewNetworkError("connect chathub", endpoint, err)
	}

	if err := hubHandshake(ws, endpoint); err != nil {
		_ = ws.Close()
		return nil, err
	}

	_ = conn.SetDeadline(time.Time{})
	return ws, nil
}

func hubHandshake(ws *websocket.Conn, endpoint string) error {
	if err := websocket.Message.Send(ws, handshakeFrame); err != nil {
		return apierrors.NewNetworkError("chathub handshake", endpoint, err)
	}

	var ack string
	if err := websocket.Message.Receive(ws, &ack); err != nil {
		return apierrors.NewNetworkError("chathub handshake", endpoint, err)
	}
	for _, record := range splitRecords(ack) {
		if msg := gjson.Get(record, PathCloseError).String(); msg != "" {
			return apierrors.NewSessionError("chathub handshake", endpoint, msg)
		}
	}
	return nil
}

// dialTransport connects to the WebSocket host, through the proxy when one
// is configured, and wraps the connection in TLS for wss
func (c *Client) dialTransport(ctx context.Context, u *url.URL) (net.Conn, error) {
	secure := u.Scheme == "wss" || u.Scheme == "https"
	port := u.Port()
	if port == "" {
		port = "80"
		if secure {
			port = "443"
		}
	}
	addr := net.JoinHostPort(u.Hostname(), port)

	dialer, err := c.contextDialer()
	if err != nil {
		return nil, err
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if !secure {
		return conn, nil
	}

	tlsConn := tls.Client(conn, &tls.Config{
		ServerName: u.Hostname(),
		MinVersion: tls.VersionTLS12,
	})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

func (c *Client) contextDialer() (proxy.ContextDialer, error) {
	direct := &net.Dialer{Timeout: c.timeout, KeepAlive: 30 * time.Second}
	if c.proxy == "" {
		return direct, nil
	}

	proxyURL, err := url.Parse(c.proxy)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy %q: %w", c.proxy, err)
	}
	d, err := proxy.FromURL(proxyURL, direct)
	if err != nil {
		return nil, fmt.Errorf("unsupported proxy %q: %w", c.proxy, err)
	}
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd, nil
	}
	return contextDialerFunc(func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}), nil
}

type contextDialerFunc func(ctx context.Context, network, addr string) (net.Conn, error)

func (f contextDialerFunc) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return f(ctx, network, addr)
}

// connectDialer tunnels through an HTTP proxy with CONNECT
type connectDialer struct {
	proxyURL *url.URL
	forward  proxy.Dialer
}

func newConnectDialer(u *url.URL, forward proxy.Dialer) (proxy.Dialer, error) {
	return &connectDialer{proxyURL: u, forward: forward}, nil
}

func (d *connectDialer) Dial(network, addr string) (net.Conn, error) {
	return d.DialContext(context.Background(), network, addr)
}

func (d *connectDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	proxyAddr := d.proxyURL.Host
	if d.proxyURL.Port() == "" {
		port := "80"
		if d.proxyURL.Scheme == "https" {
			port = "443"
		}
		proxyAddr = net.JoinHostPort(d.proxyURL.Hostname(), port)
	}

	var (
		conn net.Conn
		err  error
	)
	if cd, ok := d.forward.(proxy.ContextDialer); ok {
		conn, err = cd.DialContext(ctx, network, proxyAddr)
	} else {
		conn, err = d.forward.Dial(network, proxyAddr)
	}
	if err != nil {
		return nil, err
	}

	if d.proxyURL.Scheme == "https" {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: d.proxyURL.Hostname(), MinVersion: tls.VersionTLS12})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, err
		}
		conn = tlsConn
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
		defer func() { _ = conn.SetDeadline(time.Time{}) }()
	}

	req := &nethttp.Request{
		Method: nethttp.MethodConnect,
		URL:    &url.URL{Opaque: addr},
		Host:   addr,
		Header: make(nethttp.Header),
	}
	if user := d.proxyURL.User; user != nil {
		password, _ := user.Password()
		creds := base64.StdEncoding.EncodeToString([]byte(user.Username() + ":" + password))
		req.Header.Set("Proxy-Authorization", "Basic "+creds)
	}
	if err := req.Write(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	resp, err := nethttp.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != nethttp.StatusOK {
		_ = conn.Close()
		return nil, fmt.Errorf("proxy CONNECT %s: %s", addr, resp.Status)
	}
	return conn, nil
}
