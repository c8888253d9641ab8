package check_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimode/contactkit/check"
	"github.com/optimode/contactkit/internal/parse"
	"github.com/optimode/contactkit/internal/retry"
	"github.com/optimode/contactkit/internal/smtppool"
	"github.com/optimode/contactkit/types"
)

// testSMTPServer simulates an SMTP server on one end of a net.Pipe.
// Responses are matched by command prefix.
func testSMTPServer(server net.Conn, banner string, responses map[string]string) {
	defer func() { _ = server.Close() }()

	_, _ = fmt.Fprintf(server, "%s\r\n", banner)

	buf := make([]byte, 4096)
	for {
		n, err := server.Read(buf)
		if err != nil {
			return
		}
		cmd := string(buf[:n])

		if strings.HasPrefix(cmd, "QUIT") {
			_, _ = fmt.Fprintf(server, "221 Bye\r\n")
			return
		}
		for prefix, resp := range responses {
			if strings.HasPrefix(cmd, prefix) {
				_, _ = fmt.Fprintf(server, "%s\r\n", resp)
				break
			}
		}
	}
}

func responses(rcpt string) map[string]string {
	return map[string]string{
		"EHLO":      "250-mock.smtp\r\n250 SIZE 1000",
		"RSET":      "250 OK",
		"MAIL FROM": "250 OK",
		"RCPT TO":   rcpt,
	}
}

// hostBehaviour configures one fake MX host. A nil responses map makes
// the dial fail.
type hostBehaviour struct {
	banner    string
	responses map[string]string
	silent    bool
}

type fakeMX struct {
	mu    sync.Mutex
	hosts map[string]hostBehaviour
	dials map[string]int
}

func (f *fakeMX) dial(_ context.Context, _, address string) (net.Conn, error) {
	host, _, _ := net.SplitHostPort(address)
	f.mu.Lock()
	f.dials[host]++
	b, ok := f.hosts[host]
	f.mu.Unlock()

	if !ok || (b.responses == nil && !b.silent) {
		return nil, errors.New("connection refused")
	}
	client, server := net.Pipe()
	if b.silent {
		// Never greets; the client must give up on its own.
		go func() {
			buf := make([]byte, 64)
			for {
				if _, err := server.Read(buf); err != nil {
					return
				}
			}
		}()
		return client, nil
	}
	banner := b.banner
	if banner == "" {
		banner = "220 mock.smtp ESMTP"
	}
	go testSMTPServer(server, banner, b.responses)
	return client, nil
}

func (f *fakeMX) dialCount(host string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials[host]
}

func newTestSMTPChecker(t *testing.T, mx []*net.MX, hosts map[string]hostBehaviour) (*check.SMTPChecker, *fakeMX) {
	t.Helper()
	f := &fakeMX{hosts: hosts, dials: make(map[string]int)}

	pool := smtppool.New(smtppool.Config{
		HeloDomain:      "test.com",
		MailFrom:        "verify@test.com",
		ConnectTimeout:  time.Second,
		CommandTimeout:  2 * time.Second,
		MaxConnsPerHost: 2,
		DialContext:     f.dial,
	})
	t.Cleanup(func() { _ = pool.Close() })

	c := check.NewSMTPChecker(check.SMTPConfig{
		MaxMXHosts: 3,
		Retry:      retry.Policy{MaxAttempts: 3},
	}, newDNSCache(&mockMXResolver{records: mx}), pool)
	return c, f
}

var twoHosts = []*net.MX{
	{Host: "mx1.example.com.", Pref: 10},
	{Host: "mx2.example.com.", Pref: 20},
}

func TestSMTPChecker(t *testing.T) {
	tests := []struct {
		name     string
		hosts    map[string]hostBehaviour
		want     types.Status
		wantCode int
		wantHost string
	}{
		{
			name:     "accepted",
			hosts:    map[string]hostBehaviour{"mx1.example.com": {responses: responses("250 OK")}},
			want:     types.StatusValid,
			wantCode: 250,
			wantHost: "mx1.example.com",
		},
		{
			name:     "forwarded is accepted",
			hosts:    map[string]hostBehaviour{"mx1.example.com": {responses: responses("251 User not local; will forward")}},
			want:     types.StatusValid,
			wantCode: 251,
			wantHost: "mx1.example.com",
		},
		{
			name:     "unknown user",
			hosts:    map[string]hostBehaviour{"mx1.example.com": {responses: responses("550 No such user")}},
			want:     types.StatusInvalid,
			wantCode: 550,
			wantHost: "mx1.example.com",
		},
		{
			name:     "mailbox name not allowed",
			hosts:    map[string]hostBehaviour{"mx1.example.com": {responses: responses("553 Mailbox name invalid")}},
			want:     types.StatusInvalid,
			wantCode: 553,
			wantHost: "mx1.example.com",
		},
		{
			name:     "unlisted code is inconclusive",
			hosts:    map[string]hostBehaviour{"mx1.example.com": {responses: responses("554 Transaction failed")}},
			want:     types.StatusUnknown,
			wantCode: 554,
			wantHost: "mx1.example.com",
		},
		{
			name: "temporary failure falls through to next host",
			hosts: map[string]hostBehaviour{
				"mx1.example.com": {responses: responses("451 Try again later")},
				"mx2.example.com": {responses: responses("250 OK")},
			},
			want:     types.StatusValid,
			wantCode: 250,
			wantHost: "mx2.example.com",
		},
		{
			name: "sender rejected moves to next host",
			hosts: map[string]hostBehaviour{
				"mx1.example.com": {responses: map[string]string{
					"EHLO":      "250 mock.smtp",
					"MAIL FROM": "550 Sender rejected",
				}},
				"mx2.example.com": {responses: responses("550 No such user")},
			},
			want:     types.StatusInvalid,
			wantCode: 550,
			wantHost: "mx2.example.com",
		},
		{
			name: "connection failure moves to next host",
			hosts: map[string]hostBehaviour{
				"mx2.example.com": {responses: responses("250 OK")},
			},
			want:     types.StatusValid,
			wantCode: 250,
			wantHost: "mx2.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestSMTPChecker(t, twoHosts, tt.hosts)
			out := c.Check(context.Background(), parse.NewEmail("user@example.com"))

			assert.Equal(t, tt.want, out.Status, "message: %s", out.Message)
			assert.Equal(t, tt.wantCode, out.Details[types.DetailSMTPCode])
			assert.Equal(t, tt.wantHost, out.Details[types.DetailMXHost])
		})
	}
}

func TestSMTPChecker_RetriesPerHost(t *testing.T) {
	c, f := newTestSMTPChecker(t, twoHosts, nil)
	out := c.Check(context.Background(), parse.NewEmail("user@example.com"))

	assert.Equal(t, types.StatusUnknown, out.Status)
	assert.Contains(t, out.Details[types.DetailLastError], "connection refused")
	assert.Equal(t, string(types.KindTransport), out.Details[types.DetailErrorKind])
	// MaxAttempts per host, both hosts tried.
	assert.Equal(t, 3, f.dialCount("mx1.example.com"))
	assert.Equal(t, 3, f.dialCount("mx2.example.com"))
}

func TestSMTPChecker_PermanentGreetingSkipsRetries(t *testing.T) {
	hosts := map[string]hostBehaviour{
		"mx1.example.com": {banner: "554 No service", responses: responses("250 OK")},
		"mx2.example.com": {responses: responses("250 OK")},
	}
	c, f := newTestSMTPChecker(t, twoHosts, hosts)
	out := c.Check(context.Background(), parse.NewEmail("user@example.com"))

	assert.Equal(t, types.StatusValid, out.Status)
	assert.Equal(t, 1, f.dialCount("mx1.example.com"))
}

func TestSMTPChecker_MaxMXHosts(t *testing.T) {
	mx := []*net.MX{
		{Host: "mx1.example.com.", Pref: 10},
		{Host: "mx2.example.com.", Pref: 20},
		{Host: "mx3.example.com.", Pref: 30},
		{Host: "mx4.example.com.", Pref: 40},
	}
	hosts := map[string]hostBehaviour{"mx4.example.com": {responses: responses("250 OK")}}
	c, f := newTestSMTPChecker(t, mx, hosts)
	out := c.Check(context.Background(), parse.NewEmail("user@example.com"))

	assert.Equal(t, types.StatusUnknown, out.Status)
	assert.Equal(t, 0, f.dialCount("mx4.example.com"))
}

func TestSMTPChecker_Timeout(t *testing.T) {
	hosts := map[string]hostBehaviour{"mx1.example.com": {silent: true}}
	c, _ := newTestSMTPChecker(t, twoHosts[:1], hosts)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	out := c.Check(ctx, parse.NewEmail("user@example.com"))

	assert.Equal(t, types.StatusUnknown, out.Status)
	assert.Equal(t, string(types.KindTimeout), out.Details[types.DetailErrorKind])
	assert.Less(t, time.Since(start), time.Second)
}

func TestSMTPChecker_NoMX(t *testing.T) {
	c, _ := newTestSMTPChecker(t, []*net.MX{}, nil)
	out := c.Check(context.Background(), parse.NewEmail("user@example.com"))
	assert.Equal(t, types.StatusInvalid, out.Status)
}

func TestSMTPChecker_Unavailable(t *testing.T) {
	c := check.NewSMTPChecker(check.SMTPConfig{}, nil, nil)
	out := c.Check(context.Background(), parse.NewEmail("user@example.com"))
	require.Equal(t, types.StatusUnknown, out.Status)
	assert.Equal(t, string(types.KindUnavailable), out.Details[types.DetailErrorKind])
}
