package smtppool_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimode/contactkit/internal/smtppool"
)

// mockSMTPServer simulates an SMTP server on a net.Pipe connection.
// Responses are matched by command prefix.
func mockSMTPServer(server net.Conn, banner string, responses map[string]string) {
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

func pipeDialer(count *atomic.Int64, banner string, responses map[string]string) func(context.Context, string, string) (net.Conn, error) {
	return func(_ context.Context, _, _ string) (net.Conn, error) {
		count.Add(1)
		client, server := net.Pipe()
		go mockSMTPServer(server, banner, responses)
		return client, nil
	}
}

func newPool(dial func(context.Context, string, string) (net.Conn, error)) *smtppool.Pool {
	return smtppool.New(smtppool.Config{
		HeloDomain:      "test.com",
		MailFrom:        "verify@test.com",
		ConnectTimeout:  5 * time.Second,
		CommandTimeout:  5 * time.Second,
		Port:            "25",
		MaxConnsPerHost: 2,
		MaxUsesPerConn:  10,
		MaxConnAge:      time.Minute,
		DialContext:     dial,
	})
}

var okResponses = map[string]string{
	"EHLO":      "250-mock.smtp\r\n250 SIZE 1000",
	"RSET":      "250 OK",
	"MAIL FROM": "250 OK",
	"RCPT TO":   "250 OK",
}

func TestPool_NewConnectionAndReuse(t *testing.T) {
	var dials atomic.Int64
	pool := newPool(pipeDialer(&dials, "220 mock.smtp ESMTP", okResponses))
	defer func() { _ = pool.Close() }()
	ctx := context.Background()

	// First check: creates new connection
	reply, err := pool.CheckRCPT(ctx, "mx.example.com", "user1@example.com")
	require.NoError(t, err)
	assert.Equal(t, 250, reply.Code)
	assert.Equal(t, int64(1), dials.Load())
	assert.Equal(t, 1, pool.Idle("mx.example.com"))

	// Second check: should reuse the connection (RSET)
	reply, err = pool.CheckRCPT(ctx, "mx.example.com", "user2@example.com")
	require.NoError(t, err)
	assert.Equal(t, 250, reply.Code)
	assert.Equal(t, int64(1), dials.Load())
}

func TestPool_RecipientRejected(t *testing.T) {
	var dials atomic.Int64
	responses := map[string]string{
		"EHLO": "250 OK", "MAIL FROM": "250 OK",
		"RCPT TO": "550 5.1.1 User unknown",
	}
	pool := newPool(pipeDialer(&dials, "220 mock.smtp ESMTP", responses))
	defer func() { _ = pool.Close() }()

	reply, err := pool.CheckRCPT(context.Background(), "mx.example.com", "nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, 550, reply.Code)
	assert.Contains(t, reply.Message, "User unknown")
}

func TestPool_SenderRejected(t *testing.T) {
	var dials atomic.Int64
	responses := map[string]string{
		"EHLO": "250 OK", "MAIL FROM": "553 sender not allowed",
	}
	pool := newPool(pipeDialer(&dials, "220 mock.smtp ESMTP", responses))
	defer func() { _ = pool.Close() }()

	_, err := pool.CheckRCPT(context.Background(), "mx.example.com", "user@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, smtppool.ErrSenderRejected)

	var replyErr *smtppool.ReplyError
	require.ErrorAs(t, err, &replyErr)
	assert.Equal(t, smtppool.StageMailFrom, replyErr.Stage)
	assert.Equal(t, 553, replyErr.Code)
	assert.Equal(t, 0, pool.Idle("mx.example.com"), "broken connection is discarded")
}

func TestPool_TemporarySenderFailure(t *testing.T) {
	var dials atomic.Int64
	responses := map[string]string{
		"EHLO": "250 OK", "MAIL FROM": "451 try later",
	}
	pool := newPool(pipeDialer(&dials, "220 mock.smtp ESMTP", responses))
	defer func() { _ = pool.Close() }()

	_, err := pool.CheckRCPT(context.Background(), "mx.example.com", "user@example.com")
	var replyErr *smtppool.ReplyError
	require.ErrorAs(t, err, &replyErr)
	assert.True(t, replyErr.Temporary())
	assert.False(t, errors.Is(err, smtppool.ErrSenderRejected))
}

func TestPool_BannerRejected(t *testing.T) {
	var dials atomic.Int64
	pool := newPool(pipeDialer(&dials, "554 no service", okResponses))
	defer func() { _ = pool.Close() }()

	_, err := pool.CheckRCPT(context.Background(), "mx.example.com", "user@example.com")
	var replyErr *smtppool.ReplyError
	require.ErrorAs(t, err, &replyErr)
	assert.Equal(t, smtppool.StageBanner, replyErr.Stage)
}

func TestPool_HeloFallback(t *testing.T) {
	var dials atomic.Int64
	responses := map[string]string{
		"EHLO": "502 command not implemented", "HELO": "250 hello",
		"MAIL FROM": "250 OK", "RCPT TO": "250 OK",
	}
	pool := newPool(pipeDialer(&dials, "220 old.smtp", responses))
	defer func() { _ = pool.Close() }()

	reply, err := pool.CheckRCPT(context.Background(), "mx.example.com", "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 250, reply.Code)
}

func TestPool_DialError(t *testing.T) {
	pool := newPool(func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	})
	defer func() { _ = pool.Close() }()

	_, err := pool.CheckRCPT(context.Background(), "mx.example.com", "user@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPool_ContextCancelReleasesConnection(t *testing.T) {
	// Server that sends the banner and then never answers.
	pool := newPool(func(context.Context, string, string) (net.Conn, error) {
		client, server := net.Pipe()
		go func() {
			_, _ = fmt.Fprintf(server, "220 slow.smtp\r\n")
			buf := make([]byte, 1024)
			for {
				if _, err := server.Read(buf); err != nil {
					_ = server.Close()
					return
				}
			}
		}()
		return client, nil
	})
	defer func() { _ = pool.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := pool.CheckRCPT(ctx, "mx.example.com", "user@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 0, pool.Idle("mx.example.com"))
}

func TestPool_ClosedPool(t *testing.T) {
	var dials atomic.Int64
	pool := newPool(pipeDialer(&dials, "220 mock.smtp ESMTP", okResponses))
	require.NoError(t, pool.Close())

	_, err := pool.CheckRCPT(context.Background(), "mx.example.com", "user@example.com")
	assert.ErrorIs(t, err, smtppool.ErrPoolClosed)
	assert.Equal(t, int64(0), dials.Load())
}

func TestPool_MaxUsesPerConn(t *testing.T) {
	var dials atomic.Int64
	pool := smtppool.New(smtppool.Config{
		HeloDomain:     "test.com",
		MailFrom:       "verify@test.com",
		CommandTimeout: 5 * time.Second,
		MaxUsesPerConn: 1,
		DialContext:    pipeDialer(&dials, "220 mock.smtp ESMTP", okResponses),
	})
	defer func() { _ = pool.Close() }()

	for i := 0; i < 3; i++ {
		_, err := pool.CheckRCPT(context.Background(), "mx.example.com", "user@example.com")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), dials.Load())
}
