package filter

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/utils"
)

const spamMessage = "From: promo@spam.example\r\n" +
	"To: user@example.org\r\n" +
	"Subject: WIN a free prize\r\n" +
	"\r\n" +
	"Claim your free cash today! Free money, click now.\r\n"

const hamMessage = "From: boss@corp.example\r\n" +
	"To: user@example.org\r\n" +
	"Subject: Meeting moved\r\n" +
	"\r\n" +
	"Meeting moved to 3pm, see agenda. Can you review the project report?\r\n"

func testOptions() PostfixOptions {
	return PostfixOptions{
		ListenAddr:     "127.0.0.1:0",
		SpamHeader:     "X-Spam-Status",
		ScoreHeader:    "X-Spam-Score",
		ReasonHeader:   "X-Spam-Reason",
		PostfixAddr:    "127.0.0.1",
		PostfixEnabled: true,
		SubjectPrefix:  "[SPAM] ",
	}
}

func TestPostfixFilter_FilterMessage(t *testing.T) {
	opts := testOptions()
	opts.ModifySubject = true
	f := NewPostfixFilter(newTestService(t), zap.NewNop(), utils.NewTextProcessor(nil, 0), opts)

	out, result, rejected, err := f.filterMessage(context.Background(), []byte(spamMessage), "promo@spam.example", []string{"user@example.org"})
	require.NoError(t, err)
	assert.False(t, rejected)
	assert.True(t, result.IsSpam)

	text := string(out)
	assert.True(t, strings.HasPrefix(text, "X-Spam-Status: true\r\n"))
	assert.Contains(t, text, "X-Spam-Model: nb-")
	assert.Contains(t, text, "Subject: [SPAM] WIN a free prize\r\n")
	assert.NotContains(t, text, "Subject: WIN a free prize\r\n")
	assert.True(t, strings.HasSuffix(text, "\r\n\r\nClaim your free cash today! Free money, click now.\r\n"))

	out, result, _, err = f.filterMessage(context.Background(), []byte(hamMessage), "boss@corp.example", nil)
	require.NoError(t, err)
	assert.False(t, result.IsSpam)
	assert.Contains(t, string(out), "X-Spam-Status: false\r\n")
	assert.Contains(t, string(out), "Subject: Meeting moved\r\n")
}

func TestPostfixFilter_BlockSpam(t *testing.T) {
	opts := testOptions()
	opts.BlockSpam = true
	f := NewPostfixFilter(newTestService(t), zap.NewNop(), nil, opts)

	_, result, rejected, err := f.filterMessage(context.Background(), []byte(spamMessage), "promo@spam.example", nil)
	require.NoError(t, err)
	assert.True(t, rejected)
	assert.True(t, result.IsSpam)
}

func TestPostfixFilter_AnalysisErrorStillRelays(t *testing.T) {
	f := NewPostfixFilter(newTestService(t), zap.NewNop(), nil, testOptions())

	// no subject and an empty body leave nothing to classify
	out, result, rejected, err := f.filterMessage(context.Background(), []byte("From: a@b.c\r\n\r\n"), "a@b.c", nil)
	require.NoError(t, err)
	assert.False(t, rejected)
	assert.False(t, result.IsSpam)
	assert.Contains(t, string(out), "X-Spam-Analysis-Error: empty input\r\n")
}

func TestPostfixFilter_Whitelisted(t *testing.T) {
	f := NewPostfixFilter(newTestService(t, "spam.example"), zap.NewNop(), nil, testOptions())

	_, result, _, err := f.filterMessage(context.Background(), []byte(spamMessage), "promo@spam.example", nil)
	require.NoError(t, err)
	assert.False(t, result.IsSpam)
	assert.Equal(t, "whitelist", result.ModelUsed)
}

type captureBackend struct {
	mu       sync.Mutex
	messages []string
}

func (b *captureBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &captureSession{backend: b}, nil
}

func (b *captureBackend) received() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.messages...)
}

type captureSession struct {
	backend *captureBackend
}

func (s *captureSession) Reset() {}

func (s *captureSession) Logout() error { return nil }

func (s *captureSession) Mail(_ string, _ *smtp.MailOptions) error { return nil }

func (s *captureSession) Rcpt(_ string, _ *smtp.RcptOptions) error { return nil }

func (s *captureSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.backend.mu.Lock()
	s.backend.messages = append(s.backend.messages, string(data))
	s.backend.mu.Unlock()
	return nil
}

// startCapture runs an SMTP server standing in for the Postfix re-injection port
func startCapture(t *testing.T) (*captureBackend, int) {
	t.Helper()

	backend := &captureBackend{}
	server := smtp.NewServer(backend)
	server.Domain = "localhost"
	server.AllowInsecureAuth = true

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go server.Serve(ln)
	t.Cleanup(func() { server.Close() })

	return backend, ln.Addr().(*net.TCPAddr).Port
}

func sendMail(addr, from, to, message string) error {
	c, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Hello("localhost"); err != nil {
		return err
	}
	if err := c.Mail(from, nil); err != nil {
		return err
	}
	if err := c.Rcpt(to, nil); err != nil {
		return err
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write([]byte(message)); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func TestPostfixFilter_SMTPRelay(t *testing.T) {
	capture, port := startCapture(t)

	opts := testOptions()
	opts.PostfixPort = port
	f := NewPostfixFilter(newTestService(t), zap.NewNop(), nil, opts)
	require.NoError(t, f.Start())
	defer f.Stop()

	require.NoError(t, sendMail(f.Addr().String(), "boss@corp.example", "user@example.org", hamMessage))
	require.NoError(t, sendMail(f.Addr().String(), "promo@spam.example", "user@example.org", spamMessage))

	received := capture.received()
	require.Len(t, received, 2)
	assert.Contains(t, received[0], "X-Spam-Status: false")
	assert.Contains(t, received[1], "X-Spam-Status: true")
	assert.Contains(t, received[1], "Free money, click now.")
}

func TestPostfixFilter_SMTPReject(t *testing.T) {
	capture, port := startCapture(t)

	opts := testOptions()
	opts.PostfixPort = port
	opts.BlockSpam = true
	f := NewPostfixFilter(newTestService(t), zap.NewNop(), nil, opts)
	require.NoError(t, f.Start())
	defer f.Stop()

	err := sendMail(f.Addr().String(), "promo@spam.example", "user@example.org", spamMessage)
	var smtpErr *smtp.SMTPError
	require.True(t, errors.As(err, &smtpErr), "got %v", err)
	assert.Equal(t, 550, smtpErr.Code)
	assert.Empty(t, capture.received())
}
