package fingerprint

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// Profile represents a recognized TLS fingerprint profile.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // standard go TLS
	ProfileRandom  Profile = "random" // randomized uTLS profile
)

// Profiles lists every supported profile.
func Profiles() []Profile {
	return []Profile{ProfileChrome, ProfileFirefox, ProfileSafari, ProfileGo, ProfileRandom}
}

// ParseProfile maps a config string to a Profile. Empty means chrome.
func ParseProfile(s string) (Profile, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ProfileChrome, nil
	}
	for _, p := range Profiles() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("fingerprint: unknown profile %q", s)
}

// Options tunes the transport returned by Transport.
type Options struct {
	// Proxy configures the underlying transport's Proxy. Optional.
	Proxy func(*http.Request) (*url.URL, error)
	// InsecureSkipVerify disables certificate checks. Only for tests
	// against self-signed servers.
	InsecureSkipVerify bool
}

func helloID(p Profile) (utls.ClientHelloID, error) {
	switch p {
	case ProfileChrome:
		return utls.HelloChrome_Auto, nil
	case ProfileFirefox:
		return utls.HelloFirefox_Auto, nil
	case ProfileSafari:
		return utls.HelloIOS_Auto, nil
	case ProfileRandom:
		return utls.HelloRandomizedALPN, nil
	}
	return utls.ClientHelloID{}, fmt.Errorf("fingerprint: unknown profile %q", p)
}

// Transport returns an http.RoundTripper configured with the specified
// TLS fingerprint profile. If the profile is "go", it returns a standard
// http.Transport. Otherwise the TLS handshake is performed by utls.UClient
// so the ClientHello matches the named browser, and connections where the
// server picks h2 over ALPN are served by an HTTP/2 client connection.
func Transport(p Profile, opts Options) (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != nil {
		transport.Proxy = opts.Proxy
	}

	if p == ProfileGo {
		if opts.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		return transport, nil
	}

	id, err := helloID(p)
	if err != nil {
		return nil, err
	}

	rt := &uTransport{
		h1:      transport,
		h2:      &http2.Transport{},
		id:      id,
		dial:    transport.DialContext,
		proxy:   opts.Proxy,
		skip:    opts.InsecureSkipVerify,
		h2conns: make(map[string]*http2.ClientConn),
		h1addrs: make(map[string]bool),
		pending: make(map[string][]net.Conn),
	}
	// Proxied https requests tunnel through CONNECT and use the standard
	// TLS stack, which negotiates h2 on its own.
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	transport.DialTLSContext = rt.dialH1
	return rt, nil
}

// uTransport routes each https request to an HTTP/2 client connection or
// to the wrapped HTTP/1.1 transport depending on the protocol the server
// selected during the utls handshake.
type uTransport struct {
	h1    *http.Transport
	h2    *http2.Transport
	id    utls.ClientHelloID
	dial  func(ctx context.Context, network, addr string) (net.Conn, error)
	proxy func(*http.Request) (*url.URL, error)
	skip  bool

	mu      sync.Mutex
	h2conns map[string]*http2.ClientConn
	h1addrs map[string]bool
	pending map[string][]net.Conn
}

var _ http.RoundTripper = (*uTransport)(nil)

func (t *uTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" || t.proxied(req) {
		return t.h1.RoundTrip(req)
	}

	addr := hostPort(req.URL)

	t.mu.Lock()
	if t.h1addrs[addr] {
		t.mu.Unlock()
		return t.h1.RoundTrip(req)
	}
	if cc := t.h2conns[addr]; cc != nil && cc.CanTakeNewRequest() {
		t.mu.Unlock()
		return cc.RoundTrip(req)
	}
	delete(t.h2conns, addr)

	conn, err := t.handshake(req.Context(), "tcp", addr)
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}
	if conn.ConnectionState().NegotiatedProtocol != http2.NextProtoTLS {
		t.h1addrs[addr] = true
		t.pending[addr] = append(t.pending[addr], conn)
		t.mu.Unlock()
		return t.h1.RoundTrip(req)
	}

	cc, err := t.h2.NewClientConn(conn)
	if err != nil {
		t.mu.Unlock()
		_ = conn.Close()
		return nil, fmt.Errorf("fingerprint: http2 client conn: %w", err)
	}
	t.h2conns[addr] = cc
	t.mu.Unlock()
	return cc.RoundTrip(req)
}

// CloseIdleConnections closes idle HTTP/1.1 connections and every cached
// HTTP/2 connection.
func (t *uTransport) CloseIdleConnections() {
	t.h1.CloseIdleConnections()

	t.mu.Lock()
	defer t.mu.Unlock()
	for addr, cc := range t.h2conns {
		_ = cc.Close()
		delete(t.h2conns, addr)
	}
	for addr, conns := range t.pending {
		for _, c := range conns {
			_ = c.Close()
		}
		delete(t.pending, addr)
	}
}

func (t *uTransport) proxied(req *http.Request) bool {
	if t.proxy == nil {
		return false
	}
	u, err := t.proxy(req)
	return err == nil && u != nil
}

// dialH1 hands the HTTP/1.1 transport a connection already negotiated by
// RoundTrip, or performs a fresh handshake.
func (t *uTransport) dialH1(ctx context.Context, network, addr string) (net.Conn, error) {
	t.mu.Lock()
	if conns := t.pending[addr]; len(conns) > 0 {
		conn := conns[len(conns)-1]
		t.pending[addr] = conns[:len(conns)-1]
		t.mu.Unlock()
		return conn, nil
	}
	t.mu.Unlock()

	conn, err := t.handshake(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	if conn.ConnectionState().NegotiatedProtocol == http2.NextProtoTLS {
		_ = conn.Close()
		t.mu.Lock()
		delete(t.h1addrs, addr)
		t.mu.Unlock()
		return nil, fmt.Errorf("fingerprint: %s switched to h2, retry the request", addr)
	}
	return conn, nil
}

func (t *uTransport) handshake(ctx context.Context, network, addr string) (*utls.UConn, error) {
	tcpConn, err := t.dial(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	uConn := utls.UClient(tcpConn, &utls.Config{
		ServerName:         host,
		InsecureSkipVerify: t.skip,
	}, t.id)
	if err := uConn.HandshakeContext(ctx); err != nil {
		_ = tcpConn.Close()
		return nil, fmt.Errorf("fingerprint: utls handshake failed: %w", err)
	}
	return uConn, nil
}

func hostPort(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port)
}
