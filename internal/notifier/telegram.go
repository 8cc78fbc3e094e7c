package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	// maxMessageLen is Telegram's limit for one message.
	maxMessageLen = 4096
)

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	Client   *http.Client
	APIBase  string
	backoff  time.Duration
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		APIBase: defaultAPIBase,
		backoff: time.Second,
	}
}

func (t *TelegramNotifier) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(t.APIBase, "/"), t.BotToken, method)
}

var tagPattern = regexp.MustCompile(`<(/?)([a-zA-Z]+)[^>]*>`)

// truncateHTML cuts text to at most limit runes without leaving a partial
// tag or entity behind, and closes the tags still open at the cut.
func truncateHTML(text string, limit int) string {
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	// room for the ellipsis and closing tags
	const reserve = 64
	cut := string(r[:limit-reserve])
	if lt := strings.LastIndex(cut, "<"); lt > strings.LastIndex(cut, ">") {
		cut = cut[:lt]
	}
	if amp := strings.LastIndex(cut, "&"); amp > strings.LastIndex(cut, ";") {
		cut = cut[:amp]
	}

	var open []string
	for _, m := range tagPattern.FindAllStringSubmatch(cut, -1) {
		name := strings.ToLower(m[2])
		if m[1] == "" {
			open = append(open, name)
			continue
		}
		if n := len(open); n > 0 && open[n-1] == name {
			open = open[:n-1]
		}
	}

	var b strings.Builder
	b.WriteString(cut)
	b.WriteString("…")
	for i := len(open) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "</%s>", open[i])
	}
	return b.String()
}

// Send sends an HTML message to the configured chat. Over-long messages are
// cut below Telegram's limit with their markup kept balanced.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	text = truncateHTML(text, maxMessageLen)
	payload := map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.methodURL("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.Send(ctx, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		wait := t.backoff * time.Duration(1<<uint(i))
		log.Warn().Err(err).Int("attempt", i+1).Int("attempts", maxRetries+1).Dur("retry_in", wait).Msg("telegram send failed")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("all %d attempts exhausted: %w", maxRetries+1, lastErr)
}
