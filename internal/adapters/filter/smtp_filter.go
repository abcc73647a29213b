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
	"github.com/google/uuid"
	"github.com/mikey/email-priority/internal/core"
	"go.uber.org/zap"
)

// SMTPFilter implements a Postfix-style content filter that scores each
// message passing through it and stamps priority headers before relaying
// the message downstream.
type SMTPFilter struct {
	service            *core.PriorityService
	history            core.SenderHistoryStore
	logger             *zap.Logger
	listenAddr         string
	server             *smtp.Server
	scoreHeader        string
	labelHeader        string
	confidenceHeader   string
	reasonHeader       string
	relayAddr          string
	relayPort          int
	relayEnabled       bool
	subjectPrefix      string
	tagCriticalSubject bool
}

// NewSMTPFilter creates a new SMTP content filter
func NewSMTPFilter(
	service *core.PriorityService,
	history core.SenderHistoryStore,
	logger *zap.Logger,
	listenAddr string,
	scoreHeader string,
	labelHeader string,
	confidenceHeader string,
	reasonHeader string,
	relayAddr string,
	relayPort int,
	relayEnabled bool,
	subjectPrefix string,
	tagCriticalSubject bool,
) *SMTPFilter {
	// If subject tagging is enabled without a prefix, use the badge default
	if subjectPrefix == "" && tagCriticalSubject {
		subjectPrefix = "[CRITICAL] "
	}

	return &SMTPFilter{
		service:            service,
		history:            history,
		logger:             logger,
		listenAddr:         listenAddr,
		scoreHeader:        scoreHeader,
		labelHeader:        labelHeader,
		confidenceHeader:   confidenceHeader,
		reasonHeader:       reasonHeader,
		relayAddr:          relayAddr,
		relayPort:          relayPort,
		relayEnabled:       relayEnabled,
		subjectPrefix:      subjectPrefix,
		tagCriticalSubject: tagCriticalSubject,
	}
}

// Start starts the SMTP filter service
func (f *SMTPFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.listenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("SMTP filter starting", zap.String("address", f.listenAddr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				f.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the SMTP filter service
func (f *SMTPFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail scores an email directly, bypassing the SMTP transport.
// This is mainly used for testing or direct API calls
func (f *SMTPFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.ScoreResult, error) {
	return f.service.ScoreEmail(ctx, email)
}

// relay sends the processed email to the downstream hop using go-smtp
func (f *SMTPFilter) relay(sender string, recipients []string, emailData []byte) error {
	relayAddr := fmt.Sprintf("%s:%d", f.relayAddr, f.relayPort)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", relayAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
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
			// Continue with other recipients even if one fails
		} else {
			recipientOK = true
		}
	}

	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}

	if _, err = wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}

	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
		// Not returning an error here as the email has already been sent
	}

	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *SMTPFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{
		filter:     b.filter,
		recipients: make([]string, 0),
	}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *SMTPFilter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
}

// AuthPlain handles PLAIN authentication (not needed for our filter)
func (s *smtpSession) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
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

// Data handles the email data
func (s *smtpSession) Data(r io.Reader) error {
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		s.filter.logger.Error("Failed to parse email message", zap.Error(err))
		return err
	}

	email, err := s.buildEmail(msg)
	if err != nil {
		s.filter.logger.Error("Failed to extract email content", zap.Error(err))
		return err
	}

	senderDomain := "unknown"
	if parts := strings.Split(email.From, "@"); len(parts) == 2 {
		senderDomain = parts[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// History updates happen at ingestion so scoring stays read-only
	if err := s.filter.history.RecordEmailReceived(ctx, email.From, email.ReceivedAt); err != nil {
		s.filter.logger.Warn("Failed to record sender sighting",
			zap.Error(err),
			zap.String("sender", email.From))
	}

	result, scoreErr := s.filter.service.ScoreEmail(ctx, email)
	if scoreErr != nil {
		s.filter.logger.Error("Failed to score email",
			zap.Error(scoreErr),
			zap.String("sender", email.From),
			zap.String("sender_domain", senderDomain))
	}

	modified := s.stampHeaders(msg, rawData, result, scoreErr)

	if s.filter.relayEnabled {
		if err := s.filter.relay(s.sender, s.recipients, modified); err != nil {
			s.filter.logger.Error("Failed to relay email downstream",
				zap.Error(err),
				zap.String("sender", email.From))
			return err
		}
	} else {
		s.filter.logger.Warn("Relay disabled, message accepted without forwarding")
	}

	if result != nil {
		s.filter.logger.Info("Processed email",
			zap.String("from", email.From),
			zap.String("sender_domain", senderDomain),
			zap.Int("score", result.TotalScore),
			zap.String("label", string(result.Label)),
			zap.Float64("confidence", result.Confidence))
	}

	return nil
}

// buildEmail converts a parsed message into the scoring model
func (s *smtpSession) buildEmail(msg *mail.Message) (*core.Email, error) {
	textContent, err := extractTextFromMessage(msg)
	if err != nil {
		return nil, err
	}

	email := &core.Email{
		Headers:    make(map[string][]string),
		Body:       textContent,
		From:       s.sender,
		To:         s.recipients,
		ReceivedAt: time.Now(),
	}

	for key, values := range msg.Header {
		email.Headers[key] = values
	}

	if subject := msg.Header.Get("Subject"); subject != "" {
		if decoded, err := decodeEncodedHeader(subject); err == nil {
			email.Subject = decoded
		} else {
			email.Subject = subject
		}
	}

	if from := msg.Header.Get("From"); from != "" {
		if addr, err := mail.ParseAddress(from); err == nil {
			email.FromName = addr.Name
			if email.From == "" {
				email.From = addr.Address
			}
		}
	}

	if id := strings.Trim(msg.Header.Get("Message-Id"), "<> "); id != "" {
		email.ID = id
	} else {
		email.ID = uuid.New().String()
	}

	if date, err := msg.Header.Date(); err == nil {
		email.ReceivedAt = date
	}

	return email, nil
}

// stampHeaders prepends the priority headers and rewrites the subject for
// critical messages when configured, preserving the original body bytes
func (s *smtpSession) stampHeaders(msg *mail.Message, rawData []byte, result *core.ScoreResult, scoreErr error) []byte {
	var modified bytes.Buffer

	if result != nil {
		fmt.Fprintf(&modified, "%s: %d\r\n", s.filter.scoreHeader, result.TotalScore)
		fmt.Fprintf(&modified, "%s: %s\r\n", s.filter.labelHeader, result.Label)
		fmt.Fprintf(&modified, "%s: %.2f\r\n", s.filter.confidenceHeader, result.Confidence)
		fmt.Fprintf(&modified, "%s: %s\r\n", s.filter.reasonHeader, headerReason(result))
	}
	if scoreErr != nil {
		fmt.Fprintf(&modified, "X-Priority-Error: %s\r\n", scoreErr.Error())
	}

	tagSubject := result != nil &&
		s.filter.tagCriticalSubject &&
		result.Label == core.LabelCritical &&
		s.filter.subjectPrefix != ""

	if tagSubject {
		originalSubject := msg.Header.Get("Subject")
		decodedSubject, err := decodeEncodedHeader(originalSubject)
		if err != nil {
			decodedSubject = originalSubject
		}
		if !strings.HasPrefix(decodedSubject, s.filter.subjectPrefix) {
			fmt.Fprintf(&modified, "Subject: %s%s\r\n", s.filter.subjectPrefix, decodedSubject)
			for key, values := range msg.Header {
				if strings.EqualFold(key, "Subject") {
					continue
				}
				for _, value := range values {
					fmt.Fprintf(&modified, "%s: %s\r\n", key, value)
				}
			}
		} else {
			tagSubject = false
		}
	}

	if !tagSubject {
		for key, values := range msg.Header {
			for _, value := range values {
				fmt.Fprintf(&modified, "%s: %s\r\n", key, value)
			}
		}
	}

	fmt.Fprintf(&modified, "\r\n")

	// Preserve the original body bytes, MIME parts and attachments included
	bodyStartIndex := bytes.Index(rawData, []byte("\r\n\r\n"))
	if bodyStartIndex != -1 {
		modified.Write(rawData[bodyStartIndex+4:])
	} else if bodyStartIndex = bytes.Index(rawData, []byte("\n\n")); bodyStartIndex != -1 {
		modified.Write(rawData[bodyStartIndex+2:])
	}

	return modified.Bytes()
}

// headerReason collapses the breakdown into a single-line header value
func headerReason(result *core.ScoreResult) string {
	if len(result.Breakdown) == 0 {
		return "no breakdown available"
	}
	parts := make([]string, 0, len(result.Breakdown))
	for _, c := range result.Breakdown {
		parts = append(parts, fmt.Sprintf("%s %d/%d: %s", c.Name, c.Score, c.Max, c.Reason))
	}
	return strings.Join(parts, "; ")
}

// Logout handles SMTP logout (not needed for our filter)
func (s *smtpSession) Logout() error {
	return nil
}
