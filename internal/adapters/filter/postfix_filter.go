package filter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/url-verdict/internal/config"
	"github.com/mikey/url-verdict/internal/core"
	"github.com/mikey/url-verdict/internal/ports"
	"github.com/mikey/url-verdict/internal/utils"
	"go.uber.org/zap"
)

// messageTimeout bounds the classification of all links in one message
const messageTimeout = 15 * time.Second

// PostfixFilter implements a Postfix content filter that scores the links
// in each message
type PostfixFilter struct {
	classifier ports.URLClassifier
	texts      *utils.TextProcessor
	logger     *zap.Logger
	server     *smtp.Server

	listenAddr       string
	postfixAddr      string
	blockMalicious   bool
	maxURLs          int
	verdictHeader    string
	confidenceHeader string
	reasonHeader     string
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(
	classifier ports.URLClassifier,
	texts *utils.TextProcessor,
	cfg config.ServerConfig,
	logger *zap.Logger,
) *PostfixFilter {
	return &PostfixFilter{
		classifier:       classifier,
		texts:            texts,
		logger:           logger,
		listenAddr:       cfg.ListenAddress,
		postfixAddr:      cfg.PostfixAddress,
		blockMalicious:   cfg.BlockMalicious,
		maxURLs:          cfg.MaxURLs,
		verdictHeader:    cfg.VerdictHeader,
		confidenceHeader: cfg.ConfidenceHeader,
		reasonHeader:     cfg.ReasonHeader,
	}
}

// Start starts the Postfix filter service
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.listenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("Postfix filter starting", zap.String("address", f.listenAddr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				f.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessText classifies every link found in text
func (f *PostfixFilter) ProcessText(ctx context.Context, text string) ([]*core.VerdictRecord, error) {
	urls := f.texts.ExtractURLs(text, f.maxURLs)
	if len(urls) == 0 {
		return nil, nil
	}
	return classifyLinks(ctx, f.classifier, urls, f.logger)
}

// verdictHeaders renders the headers prepended to a processed message
func (f *PostfixFilter) verdictHeaders(v messageVerdict, analysisErr error) []byte {
	var buf bytes.Buffer
	if analysisErr != nil {
		fmt.Fprintf(&buf, "%s: error\r\n", f.verdictHeader)
		fmt.Fprintf(&buf, "X-URL-Analysis-Error: %s\r\n", headerValue(analysisErr.Error()))
		return buf.Bytes()
	}
	fmt.Fprintf(&buf, "%s: %s\r\n", f.verdictHeader, v.Verdict)
	fmt.Fprintf(&buf, "%s: %.4f\r\n", f.confidenceHeader, v.Confidence)
	fmt.Fprintf(&buf, "%s: %s\r\n", f.reasonHeader, headerValue(v.Reason))
	return buf.Bytes()
}

// headerValue keeps a value on a single header line
func headerValue(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// sendToPostfix reinjects the processed message into Postfix
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, data []byte) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", f.postfixAddr, 10*time.Second)
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

	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send message data: %w", err)
	}

	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// Already delivered
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
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

// Data classifies the links in the message, adds verdict headers and
// hands the message back to Postfix
func (s *smtpSession) Data(r io.Reader) error {
	f := s.filter

	raw, err := io.ReadAll(r)
	if err != nil {
		f.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		f.logger.Error("Failed to parse email message", zap.Error(err))
		return err
	}

	text, err := extractTextFromMessage(msg)
	if err != nil {
		f.logger.Error("Failed to extract text content", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), messageTimeout)
	defer cancel()

	// Classification errors never bounce mail; the message is passed
	// through with an error header instead
	records, analysisErr := f.ProcessText(ctx, text)
	if analysisErr != nil {
		f.logger.Error("Failed to classify message links",
			zap.Error(analysisErr),
			zap.String("sender", s.sender))
	}
	verdict := summarizeVerdicts(records)

	if analysisErr == nil && verdict.Verdict == core.VerdictMalicious && f.blockMalicious {
		f.logger.Info("Rejecting message with malicious link",
			zap.String("from", s.sender),
			zap.Float64("confidence", verdict.Confidence),
			zap.String("reason", verdict.Reason))
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      "Rejected: message contains a malicious link",
		}
	}

	processed := append(f.verdictHeaders(verdict, analysisErr), raw...)
	if err := f.sendToPostfix(s.sender, s.recipients, processed); err != nil {
		f.logger.Error("Failed to send message back to Postfix",
			zap.Error(err),
			zap.String("sender", s.sender))
		return err
	}

	f.logger.Info("Processed message",
		zap.String("from", s.sender),
		zap.Int("links", verdict.LinkCount),
		zap.String("verdict", string(verdict.Verdict)),
		zap.Float64("confidence", verdict.Confidence))

	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
