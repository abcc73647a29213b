package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mikey/email-priority/internal/adapters/store"
	"github.com/mikey/email-priority/internal/contacts"
	"github.com/mikey/email-priority/internal/core"
	"github.com/mikey/email-priority/internal/di"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	service *core.PriorityService,
	st *store.MemoryStore,
	sentiment core.SentimentAnalyzer,
) error {
	defer logger.Sync()

	ctx := context.Background()

	if err := seedFromFlags(ctx, flags, st, logger); err != nil {
		logger.Fatal("Failed to apply scoring flags", zap.Error(err))
	}

	// Read email from file or stdin
	var emailReader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", flags.InputFile))
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	msg, err := mail.ReadMessage(bufio.NewReader(emailReader))
	if err != nil {
		logger.Fatal("Failed to parse email", zap.Error(err))
	}

	email, err := buildEmail(msg)
	if err != nil {
		logger.Fatal("Failed to extract email content", zap.Error(err))
	}

	// Print email summary
	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", email.From)
	fmt.Printf("To: %s\n", strings.Join(email.To, ", "))
	fmt.Printf("Subject: %s\n", email.Subject)
	fmt.Printf("Body length: %d bytes\n", len(email.Body))
	fmt.Printf("\n")

	fmt.Printf("=== Scoring ===\n")
	fmt.Printf("Sentiment provider: %s\n", providerName(sentiment))

	startTime := time.Now()
	result, err := service.ExplainScore(ctx, email)
	if err != nil {
		logger.Fatal("Failed to score email", zap.Error(err))
	}
	duration := time.Since(startTime)

	fmt.Printf("\n=== Results ===\n")
	fmt.Println(result.Explanation())
	fmt.Printf("\nProcessing time: %v\n", duration)

	// Close any resources that need closing
	if closer, ok := sentiment.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close sentiment client", zap.Error(err))
		}
	}
	return nil
}

// seedFromFlags loads the -contacts and -sender-history flags into the
// one-shot store so the authority and history scorers have data to work with
func seedFromFlags(ctx context.Context, flags *di.CLIFlags, st *store.MemoryStore, logger *zap.Logger) error {
	if flags.Contacts != "" {
		seeder := contacts.NewSeeder(st, logger)
		if err := seeder.Seed(ctx, strings.Split(flags.Contacts, ",")); err != nil {
			return err
		}
	}

	if flags.SenderHistory != "" {
		received, replied, err := parseHistoryFlag(flags.SenderHistory)
		if err != nil {
			return err
		}
		// The sender is not known until the message is parsed, so attach
		// the history to every sender by seeding at lookup time instead.
		// The store is per-invocation, so a wildcard entry is safe.
		st.SetDefaultHistory(&core.SenderHistory{
			EmailsReceived: received,
			EmailsReplied:  replied,
		})
	}

	return nil
}

// parseHistoryFlag parses "received:replied", e.g. "20:15"
func parseHistoryFlag(value string) (int64, int64, error) {
	recStr, repStr, found := strings.Cut(value, ":")
	if !found {
		return 0, 0, fmt.Errorf("invalid -sender-history %q: expected received:replied", value)
	}
	received, err := strconv.ParseInt(strings.TrimSpace(recStr), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid -sender-history received count: %w", err)
	}
	replied, err := strconv.ParseInt(strings.TrimSpace(repStr), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid -sender-history replied count: %w", err)
	}
	if received < 0 || replied < 0 || replied > received {
		return 0, 0, fmt.Errorf("invalid -sender-history %q: need 0 <= replied <= received", value)
	}
	return received, replied, nil
}

// buildEmail converts a parsed message into the scoring model
func buildEmail(msg *mail.Message) (*core.Email, error) {
	bodyBytes, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, err
	}

	from := msg.Header.Get("From")
	fromAddr := from
	fromName := ""
	if addr, err := mail.ParseAddress(from); err == nil {
		fromAddr = addr.Address
		fromName = addr.Name
	}

	email := &core.Email{
		ID:         strings.Trim(msg.Header.Get("Message-Id"), "<> "),
		From:       fromAddr,
		FromName:   fromName,
		To:         strings.Split(msg.Header.Get("To"), ","),
		Subject:    msg.Header.Get("Subject"),
		Body:       string(bodyBytes),
		Headers:    make(map[string][]string),
		ReceivedAt: time.Now(),
	}
	if email.ID == "" {
		email.ID = "cli"
	}
	if date, err := msg.Header.Date(); err == nil {
		email.ReceivedAt = date
	}

	for k, v := range msg.Header {
		email.Headers[k] = v
	}
	return email, nil
}

func providerName(sentiment core.SentimentAnalyzer) string {
	if sentiment == nil {
		return "rule-based"
	}
	return sentiment.Name()
}
