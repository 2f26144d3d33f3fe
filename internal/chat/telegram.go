package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	telegramMaxMessageLen = 4096
	telegramPollTimeout   = 30 // seconds, server side long-poll wait
	telegramRetryDelay    = 5 * time.Second

	// Callback data is capped at 64 bytes by the Bot API.
	telegramMaxCallbackData = 64
	telegramButtonsPerRow   = 4
)

// Command is a bot command advertised in the Telegram command menu.
type Command struct {
	Name        string `json:"command"`
	Description string `json:"description"`
}

// TelegramChannel implements Channel over the Telegram Bot API using long
// polling. Answer choices are sent as an inline keyboard and button taps
// come back as ordinary inbound messages.
type TelegramChannel struct {
	token    string
	baseURL  string
	client   *http.Client
	commands []Command
	offset   int
	stop     chan struct{}
	stopOnce sync.Once
}

// NewTelegramChannel creates a Telegram channel adapter. commands are
// published to the Telegram command menu on Start.
func NewTelegramChannel(token string, commands ...Command) (*TelegramChannel, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required (LEARN_TELEGRAM_BOT_TOKEN)")
	}
	return &TelegramChannel{
		token:   token,
		baseURL: "https://api.telegram.org/bot" + token,
		client: &http.Client{
			Timeout: (telegramPollTimeout + 30) * time.Second,
		},
		commands: commands,
		stop:     make(chan struct{}),
	}, nil
}

func (t *TelegramChannel) SendTyping(ctx context.Context, userID string) error {
	params := url.Values{
		"chat_id": {userID},
		"action":  {"typing"},
	}
	if err := t.call(ctx, "/sendChatAction", params); err != nil {
		return fmt.Errorf("sending typing indicator: %w", err)
	}
	return nil
}

// call posts a form to a Bot API method and fails on a non-200 reply.
func (t *TelegramChannel) call(ctx context.Context, method string, params url.Values) error {
	resp, err := t.postForm(ctx, method, params)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &telegramError{method: method, status: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}
	return nil
}

type telegramError struct {
	method string
	status int
	body   string
}

func (e *telegramError) Error() string {
	return fmt.Sprintf("telegram %s error %d: %s", strings.TrimPrefix(e.method, "/"), e.status, e.body)
}

func (t *TelegramChannel) postForm(ctx context.Context, method string, params url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+method, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return t.client.Do(req)
}

// syncCommands publishes the command menu via setMyCommands.
func (t *TelegramChannel) syncCommands(ctx context.Context) error {
	if len(t.commands) == 0 {
		return nil
	}
	payload, err := json.Marshal(t.commands)
	if err != nil {
		return fmt.Errorf("marshal commands: %w", err)
	}

	if err := t.call(ctx, "/setMyCommands", url.Values{"commands": {string(payload)}}); err != nil {
		return fmt.Errorf("setting Telegram commands: %w", err)
	}
	return nil
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

// keyboardFor lays choices out in rows. Choices whose reply does not fit in
// callback data are dropped.
func keyboardFor(choices []Choice) (string, bool) {
	var rows [][]inlineButton
	var row []inlineButton
	for _, c := range choices {
		if c.Send == "" || len(c.Send) > telegramMaxCallbackData {
			continue
		}
		row = append(row, inlineButton{Text: c.Label, CallbackData: c.Send})
		if len(row) == telegramButtonsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return "", false
	}
	data, err := json.Marshal(inlineKeyboard{InlineKeyboard: rows})
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (t *TelegramChannel) SendMessage(ctx context.Context, userID string, msg OutboundMessage) error {
	parts := SplitMessage(msg.Text, telegramMaxMessageLen)
	keyboard, hasKeyboard := keyboardFor(msg.Choices)

	for i, part := range parts {
		params := url.Values{
			"chat_id": {userID},
			"text":    {part},
		}
		if msg.ParseMode != "" {
			params.Set("parse_mode", msg.ParseMode)
		}
		// Buttons go under the last part so they sit beneath the options.
		if hasKeyboard && i == len(parts)-1 {
			params.Set("reply_markup", keyboard)
		}

		err := t.call(ctx, "/sendMessage", params)
		if err == nil {
			continue
		}
		var te *telegramError
		if errors.As(err, &te) && msg.ParseMode != "" && te.status == http.StatusBadRequest {
			slog.Warn("Telegram markup parse failed, retrying plain", "error", err)
			params.Del("parse_mode")
			if err := t.call(ctx, "/sendMessage", params); err != nil {
				return fmt.Errorf("sending Telegram message (retry): %w", err)
			}
			continue
		}
		return fmt.Errorf("sending Telegram message: %w", err)
	}

	return nil
}

func (t *TelegramChannel) Start(ctx context.Context, handler func(InboundMessage)) error {
	if err := t.syncCommands(ctx); err != nil {
		slog.Warn("failed to sync Telegram commands", "error", err)
	}
	go t.pollLoop(ctx, handler)
	return nil
}

func (t *TelegramChannel) Stop() error {
	t.stopOnce.Do(func() { close(t.stop) })
	return nil
}

func (t *TelegramChannel) pollLoop(ctx context.Context, handler func(InboundMessage)) {
	slog.Info("Telegram long-polling started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		default:
		}

		updates, err := t.getUpdates(ctx)
		if err != nil {
			slog.Error("Telegram getUpdates error", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-t.stop:
				return
			case <-time.After(telegramRetryDelay):
			}
			continue
		}

		for _, u := range updates {
			t.offset = u.UpdateID + 1
			if cb := u.CallbackQuery; cb != nil {
				go t.ackCallback(ctx, cb.ID)
			}
			msg, ok := mapTelegramInbound(u)
			if !ok {
				continue
			}
			go handler(msg)
		}
	}
}

// ackCallback stops the client's loading spinner on a tapped button.
func (t *TelegramChannel) ackCallback(ctx context.Context, id string) {
	if err := t.call(ctx, "/answerCallbackQuery", url.Values{"callback_query_id": {id}}); err != nil {
		slog.Debug("Telegram answerCallbackQuery failed", "error", err)
	}
}

func (t *TelegramChannel) getUpdates(ctx context.Context) ([]tgUpdate, error) {
	params := url.Values{
		"offset":          {strconv.Itoa(t.offset)},
		"timeout":         {strconv.Itoa(telegramPollTimeout)},
		"allowed_updates": {`["message","callback_query"]`},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/getUpdates?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var result struct {
		OK          bool       `json:"ok"`
		Description string     `json:"description"`
		Result      []tgUpdate `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding getUpdates: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("telegram getUpdates returned ok=false: %s", result.Description)
	}

	return result.Result, nil
}

// Telegram API types (minimal)
type tgUpdate struct {
	UpdateID      int              `json:"update_id"`
	Message       *tgMessage       `json:"message"`
	CallbackQuery *tgCallbackQuery `json:"callback_query"`
}

type tgMessage struct {
	Text           string     `json:"text"`
	Caption        string     `json:"caption"`
	Chat           tgChat     `json:"chat"`
	From           tgUser     `json:"from"`
	ReplyToMessage *tgMessage `json:"reply_to_message,omitempty"`
}

type tgCallbackQuery struct {
	ID      string     `json:"id"`
	From    tgUser     `json:"from"`
	Message *tgMessage `json:"message"`
	Data    string     `json:"data"`
}

type tgChat struct {
	ID int64 `json:"id"`
}

type tgUser struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	LanguageCode string `json:"language_code"`
}

// SplitMessage splits text into chunks that fit Telegram's max message length.
func SplitMessage(text string, maxLen int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		// Prefer breaking between paragraphs, then lines, then words.
		cutAt := maxLen
		window := text[:maxLen]
		if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
			cutAt = idx + 2
		} else if idx := strings.LastIndex(window, "\n"); idx > 0 {
			cutAt = idx + 1
		} else if idx := strings.LastIndex(window, " "); idx > 0 {
			cutAt = idx + 1
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}

func mapTelegramInbound(u tgUpdate) (InboundMessage, bool) {
	if cb := u.CallbackQuery; cb != nil {
		return mapTelegramCallback(cb)
	}
	if u.Message == nil {
		return InboundMessage{}, false
	}

	text := strings.TrimSpace(u.Message.Text)
	if text == "" {
		text = strings.TrimSpace(u.Message.Caption)
	}
	if text == "" {
		return InboundMessage{}, false
	}

	msg := telegramSender(u.Message.Chat.ID, u.Message.From)
	msg.Text = text
	if r := u.Message.ReplyToMessage; r != nil {
		msg.ReplyToText = r.Text
		if msg.ReplyToText == "" {
			msg.ReplyToText = r.Caption
		}
	}
	return msg, true
}

// mapTelegramCallback turns a tapped inline button into the message the
// button stands for.
func mapTelegramCallback(cb *tgCallbackQuery) (InboundMessage, bool) {
	data := strings.TrimSpace(cb.Data)
	if data == "" {
		return InboundMessage{}, false
	}

	// Buttons on old messages may have lost their chat; reply privately.
	chatID := cb.From.ID
	if cb.Message != nil && cb.Message.Chat.ID != 0 {
		chatID = cb.Message.Chat.ID
	}
	msg := telegramSender(chatID, cb.From)
	msg.Text = data
	if cb.Message != nil {
		msg.ReplyToText = cb.Message.Text
	}
	return msg, true
}

func telegramSender(chatID int64, from tgUser) InboundMessage {
	return InboundMessage{
		Channel:    "telegram",
		UserID:     strconv.FormatInt(chatID, 10),
		ExternalID: strconv.FormatInt(from.ID, 10),
		Username:   from.Username,
		FirstName:  from.FirstName,
		LastName:   from.LastName,
		Language:   from.LanguageCode,
	}
}
