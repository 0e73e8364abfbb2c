package filter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/core"
	"github.com/mikey/nb-spam-filter/internal/utils"
)

// PostfixOptions configures the content filter and where accepted mail goes next
type PostfixOptions struct {
	ListenAddr     string
	BlockSpam      bool
	SpamHeader     string
	ScoreHeader    string
	ReasonHeader   string
	PostfixAddr    string
	PostfixPort    int
	PostfixEnabled bool
	SubjectPrefix  string
	ModifySubject  bool
}

// PostfixFilter implements a Postfix content filter
type PostfixFilter struct {
	service   *core.SpamFilterService
	logger    *zap.Logger
	processor *utils.TextProcessor
	opts      PostfixOptions
	server    *smtp.Server
	listener  net.Listener
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(
	service *core.SpamFilterService,
	logger *zap.Logger,
	processor *utils.TextProcessor,
	opts PostfixOptions,
) *PostfixFilter {
	if opts.SubjectPrefix == "" && opts.ModifySubject {
		opts.SubjectPrefix = "[**SPAM**] "
	}

	return &PostfixFilter{
		service:   service,
		logger:    logger,
		processor: processor,
		opts:      opts,
	}
}

// Start binds the listen address and serves SMTP in the background
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	ln, err := net.Listen("tcp", f.opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.opts.ListenAddr, err)
	}
	f.listener = ln

	f.logger.Info("Postfix filter starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := f.server.Serve(ln); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address once started
func (f *PostfixFilter) Addr() net.Addr {
	if f.listener == nil {
		return nil
	}
	return f.listener.Addr()
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail scores an already parsed email
func (f *PostfixFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.SpamAnalysisResult, error) {
	return f.service.AnalyzeEmail(ctx, email)
}

// filterMessage scores a raw message and returns it with the verdict headers
// added. rejected is true when the message must be refused instead of relayed.
func (f *PostfixFilter) filterMessage(ctx context.Context, raw []byte, sender string, recipients []string) (out []byte, result *core.SpamAnalysisResult, rejected bool, err error) {
	email, _, err := ParseEmail(raw, sender, recipients)
	if err != nil {
		return nil, nil, false, err
	}
	if f.processor != nil {
		email.Body = f.processor.ProcessText(email.Body)
	}

	result, analysisErr := f.service.AnalyzeEmail(ctx, email)
	if analysisErr != nil {
		f.logger.Error("Failed to analyze email",
			zap.Error(analysisErr),
			zap.String("sender", email.From),
			zap.String("sender_domain", senderDomain(email.From)))

		// accept the message unmarked rather than lose it
		result = &core.SpamAnalysisResult{
			Explanation: fmt.Sprintf("Error during analysis: %v", analysisErr),
			ModelUsed:   "error",
			AnalyzedAt:  time.Now(),
		}
	}

	if result.IsSpam && f.opts.BlockSpam && analysisErr == nil {
		return nil, result, true, nil
	}

	fields := []headerField{
		{Name: f.opts.SpamHeader, Value: fmt.Sprintf("%t", result.IsSpam)},
		{Name: f.opts.ScoreHeader, Value: fmt.Sprintf("%.4f", result.Score)},
		{Name: f.opts.ReasonHeader, Value: result.Explanation},
		{Name: "X-Spam-Model", Value: result.ModelUsed},
	}
	if analysisErr != nil {
		fields = append(fields, headerField{Name: "X-Spam-Analysis-Error", Value: analysisErr.Error()})
	}

	var subject string
	if result.IsSpam && f.opts.ModifySubject && !strings.HasPrefix(email.Subject, f.opts.SubjectPrefix) {
		subject = f.opts.SubjectPrefix + email.Subject
	}

	return rewriteMessage(raw, fields, subject), result, false, nil
}

// sendToPostfix re-injects the processed message on the configured port
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, emailData []byte) error {
	postfixAddr := net.JoinHostPort(f.opts.PostfixAddr, fmt.Sprintf("%d", f.opts.PostfixPort))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", postfixAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		recipientOK = true
	}
	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// the message was already accepted
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

func senderDomain(from string) string {
	if _, domain, ok := strings.Cut(from, "@"); ok {
		return strings.TrimSuffix(domain, ">")
	}
	return "unknown"
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data filters the message and relays it to Postfix
func (s *smtpSession) Data(r io.Reader) error {
	logger := s.filter.logger

	raw, err := io.ReadAll(r)
	if err != nil {
		logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, result, rejected, err := s.filter.filterMessage(ctx, raw, s.sender, s.recipients)
	if err != nil {
		logger.Error("Failed to process email", zap.Error(err), zap.String("sender", s.sender))
		return err
	}

	if rejected {
		logger.Info("Rejecting spam email",
			zap.String("from", s.sender),
			zap.String("sender_domain", senderDomain(s.sender)),
			zap.Float64("score", result.Score),
			zap.String("model", result.ModelUsed))
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      fmt.Sprintf("Rejected as spam (score: %.2f)", result.Score),
		}
	}

	if s.filter.opts.PostfixEnabled {
		if err := s.filter.sendToPostfix(s.sender, s.recipients, out); err != nil {
			logger.Error("Failed to send email back to Postfix",
				zap.Error(err),
				zap.String("sender", s.sender))
			return err
		}
	} else {
		logger.Warn("Postfix forwarding disabled, this is likely a misconfiguration")
	}

	logger.Info("Processed email",
		zap.String("from", s.sender),
		zap.String("sender_domain", senderDomain(s.sender)),
		zap.Bool("is_spam", result.IsSpam),
		zap.Float64("score", result.Score),
		zap.String("model", result.ModelUsed))

	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
