// Package telegram connects the conversation core to the Telegram Bot API.
//
// It converts inbound updates into flow events, renders flow replies as HTML
// messages with inline keyboards, and queues replies that could not be
// delivered into the reply queue for retry.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/BTreeMap/DietCoach/internal/flow"
	"github.com/BTreeMap/DietCoach/internal/store"
)

// MaxMessageLength is Telegram's limit on the text of one message, in characters.
const MaxMessageLength = 4096

// API is the part of *tgbotapi.BotAPI the client uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

var _ API = (*tgbotapi.BotAPI)(nil)

// Dispatcher queues events for the conversation core; *flow.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, userID int64, ev flow.Event, done func()) bool
}

var _ Dispatcher = (*flow.Dispatcher)(nil)

// Opts holds configuration options for the Telegram client.
type Opts struct {
	Replies     store.ReplyQueue    // retry queue for replies that failed to send
	Journal     store.UpdateJournal // drops redelivered updates
	PollTimeout int                 // long polling timeout in seconds
	Debug       bool                // log Bot API traffic
}

// Option defines a configuration option for the Telegram client.
type Option func(*Opts)

// WithReplyQueue queues replies that fail to send into q.
func WithReplyQueue(q store.ReplyQueue) Option {
	return func(o *Opts) {
		o.Replies = q
	}
}

// WithUpdateJournal skips updates already recorded in j.
func WithUpdateJournal(j store.UpdateJournal) Option {
	return func(o *Opts) {
		o.Journal = j
	}
}

// WithPollTimeout sets the long polling timeout in seconds.
func WithPollTimeout(seconds int) Option {
	return func(o *Opts) {
		o.PollTimeout = seconds
	}
}

// WithDebug enables Bot API request logging.
func WithDebug(debug bool) Option {
	return func(o *Opts) {
		o.Debug = debug
	}
}

// Client is the Telegram transport of the bot.
type Client struct {
	api        API
	cfg        Opts
	dispatcher Dispatcher
}

// NewClient authorizes token against the Bot API and returns a Client.
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	c := NewClientWithAPI(nil, opts...)
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		slog.Error("Telegram NewClient authorization failed", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = c.cfg.Debug
	c.api = bot
	slog.Info("Telegram client authorized", "username", bot.Self.UserName)
	return c, nil
}

// NewClientWithAPI returns a Client over an existing API implementation.
func NewClientWithAPI(api API, opts ...Option) *Client {
	cfg := Opts{PollTimeout: 60}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Telegram client options set", "replies_set", cfg.Replies != nil, "journal_set", cfg.Journal != nil, "pollTimeout", cfg.PollTimeout)
	return &Client{api: api, cfg: cfg}
}

// SetDispatcher sets where inbound events go. The dispatcher usually sends
// its replies through this same client, hence the setter.
func (c *Client) SetDispatcher(d Dispatcher) {
	c.dispatcher = d
}

// Send delivers r to the private chat of userID. When the Bot API call fails
// and a reply queue is configured, the reply is queued for retry and Send
// returns nil.
func (c *Client) Send(ctx context.Context, userID int64, r flow.Reply) error {
	err := c.deliver(userID, r)
	if err == nil {
		return nil
	}
	if c.cfg.Replies == nil {
		return err
	}

	payload, merr := json.Marshal(r)
	if merr != nil {
		return fmt.Errorf("failed to encode reply: %w", merr)
	}
	id, qerr := c.cfg.Replies.QueueReply(userID, string(payload), "")
	if qerr != nil {
		slog.Error("Client.Send: reply lost, queue unavailable", "userID", userID, "sendError", err, "error", qerr)
		return fmt.Errorf("send failed: %v; queueing failed: %w", err, qerr)
	}
	slog.Warn("Client.Send: delivery failed, reply queued", "userID", userID, "replyID", id, "error", err)
	return nil
}

// Deliver sends a queued reply. It is the reply sender's DeliverFunc.
func (c *Client) Deliver(ctx context.Context, q store.QueuedReply) error {
	var r flow.Reply
	if err := json.Unmarshal([]byte(q.Payload), &r); err != nil {
		return fmt.Errorf("failed to decode queued reply %s: %w", q.ID, err)
	}
	return c.deliver(q.ChatID, r)
}

func (c *Client) deliver(chatID int64, r flow.Reply) error {
	for _, msg := range buildMessages(chatID, r) {
		if _, err := c.api.Send(msg); err != nil {
			slog.Error("Client.deliver: Bot API send failed", "chatID", chatID, "error", err)
			return fmt.Errorf("failed to send telegram message: %w", err)
		}
	}
	slog.Debug("Client.deliver: reply sent", "chatID", chatID)
	return nil
}

// buildMessages renders r as one or more HTML messages; long texts are split
// at line breaks and the keyboard is attached to the last part.
func buildMessages(chatID int64, r flow.Reply) []tgbotapi.MessageConfig {
	parts := splitText(r.Text, MaxMessageLength)
	msgs := make([]tgbotapi.MessageConfig, 0, len(parts))
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		if i == len(parts)-1 && len(r.Buttons) > 0 {
			msg.ReplyMarkup = keyboard(r.Buttons)
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func keyboard(rows [][]flow.Button) tgbotapi.InlineKeyboardMarkup {
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Token))
		}
		kb = append(kb, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kb...)
}

// splitText cuts text into chunks of at most limit characters, preferring
// line boundaries. A line longer than limit is cut outside HTML markup.
func splitText(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var parts []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			parts = append(parts, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
			curLen = 0
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if curLen+n > limit {
			flush()
		}
		for n > limit {
			runes := []rune(line)
			cut := markupSafeCut(runes, limit)
			parts = append(parts, string(runes[:cut]))
			line = string(runes[cut:])
			n -= cut
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()
	return parts
}

// maxEntityLen bounds how far back an unterminated entity is looked for.
const maxEntityLen = 10

// markupSafeCut returns where to cut runes at or before limit so that no
// HTML tag or entity is split. It backs off to an unclosed '<' or to an '&'
// whose ';' falls past the cut.
func markupSafeCut(runes []rune, limit int) int {
	cut := limit
	lt, gt := lastRune(runes[:cut], '<'), lastRune(runes[:cut], '>')
	if lt > gt && lt > 0 {
		cut = lt
	}
	if amp := lastRune(runes[:cut], '&'); amp > 0 && cut-amp <= maxEntityLen && lastRune(runes[amp:cut], ';') < 0 {
		cut = amp
	}
	return cut
}

func lastRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
