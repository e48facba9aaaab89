package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrNotConfigured means the token or chat ID is missing; callers skip delivery.
var ErrNotConfigured = errors.New("telegram credentials not configured")

const defaultBaseURL = "https://api.telegram.org"

// Telegram delivers files through the Bot API.
type Telegram struct {
	Token   string
	ChatID  string // numeric ID or @channel
	BaseURL string // overridable for tests
	HTTP    *http.Client
}

// Caption is the message attached to a result bundle.
func Caption(at time.Time) string {
	return "Bridge scan results " + at.UTC().Format("2006-01-02 15:04 UTC")
}

// ctxClient binds every bot API request to ctx.
type ctxClient struct {
	ctx context.Context
	c   *http.Client
}

func (c ctxClient) Do(req *http.Request) (*http.Response, error) {
	return c.c.Do(req.WithContext(c.ctx))
}

// SendDocument uploads the file at path with a caption.
func (t *Telegram) SendDocument(ctx context.Context, path, caption string) error {
	if t.Token == "" || t.ChatID == "" {
		return ErrNotConfigured
	}

	base := t.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	client := t.HTTP
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(t.Token, strings.TrimRight(base, "/")+"/bot%s/%s", ctxClient{ctx: ctx, c: client})
	if err != nil {
		return fmt.Errorf("telegram: connect bot: %w", redact(err))
	}

	doc := tgbotapi.NewDocument(0, tgbotapi.FilePath(path))
	if id, err := strconv.ParseInt(t.ChatID, 10, 64); err == nil {
		doc.ChatID = id
	} else {
		doc.ChannelUsername = t.ChatID
	}
	doc.Caption = caption

	if _, err := bot.Request(doc); err != nil {
		return fmt.Errorf("telegram: send document: %w", redact(err))
	}
	return nil
}

// redact drops the request URL, which carries the bot token.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
