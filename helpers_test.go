package contactkit_test

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// mockResolver implements contactkit.Resolver. Domains missing from mx
// resolve as NXDOMAIN.
type mockResolver struct {
	mx    map[string][]*net.MX
	delay time.Duration

	calls    atomic.Int64
	inFlight atomic.Int64
	mu       sync.Mutex
	peak     int64
}

func (m *mockResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	m.calls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	m.mu.Lock()
	m.peak = max(m.peak, n)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if recs, ok := m.mx[strings.TrimSuffix(name, ".")]; ok {
		return recs, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

func (m *mockResolver) maxInFlight() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}

// smtpDialer returns a dialer whose every connection talks to a fake SMTP
// server answering RCPT TO with rcpt.
func smtpDialer(rcpt string) func(ctx context.Context, network, address string) (net.Conn, error) {
	return func(context.Context, string, string) (net.Conn, error) {
		client, server := net.Pipe()
		go serveSMTP(server, rcpt)
		return client, nil
	}
}

func serveSMTP(server net.Conn, rcpt string) {
	defer func() { _ = server.Close() }()
	_, _ = fmt.Fprintf(server, "220 mock.smtp ESMTP\r\n")

	buf := make([]byte, 4096)
	for {
		n, err := server.Read(buf)
		if err != nil {
			return
		}
		cmd := string(buf[:n])
		switch {
		case strings.HasPrefix(cmd, "QUIT"):
			_, _ = fmt.Fprintf(server, "221 Bye\r\n")
			return
		case strings.HasPrefix(cmd, "EHLO"):
			_, _ = fmt.Fprintf(server, "250-mock.smtp\r\n250 SIZE 1000\r\n")
		case strings.HasPrefix(cmd, "RCPT TO"):
			_, _ = fmt.Fprintf(server, "%s\r\n", rcpt)
		default:
			_, _ = fmt.Fprintf(server, "250 OK\r\n")
		}
	}
}

type panicTransport struct{}

func (panicTransport) RoundTrip(*http.Request) (*http.Response, error) {
	panic("transport exploded")
}
