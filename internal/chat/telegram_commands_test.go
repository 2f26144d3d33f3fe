package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTelegramChannelSyncCommands(t *testing.T) {
	var gotPath string
	var gotCommands string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		gotCommands = r.Form.Get("commands")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer server.Close()

	ch := &TelegramChannel{
		token:   "test-token",
		baseURL: server.URL,
		client:  server.Client(),
		commands: []Command{
			{Name: "start", Description: "Welcome"},
			{Name: "practice", Description: "Get a question"},
		},
		stop: make(chan struct{}),
	}

	if err := ch.syncCommands(context.Background()); err != nil {
		t.Fatalf("syncCommands() error = %v", err)
	}
	if gotPath != "/setMyCommands" {
		t.Fatalf("path = %q, want /setMyCommands", gotPath)
	}
	if !strings.Contains(gotCommands, `"command":"start"`) || !strings.Contains(gotCommands, `"command":"practice"`) {
		t.Fatalf("commands payload = %q, expected start and practice", gotCommands)
	}
}

func TestTelegramChannelSyncCommands_NoCommands(t *testing.T) {
	ch := &TelegramChannel{baseURL: "http://127.0.0.1:1", client: http.DefaultClient, stop: make(chan struct{})}
	if err := ch.syncCommands(context.Background()); err != nil {
		t.Fatalf("syncCommands() with no commands error = %v", err)
	}
}

func TestTelegramChannelSyncCommands_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	ch := &TelegramChannel{
		baseURL:  server.URL,
		client:   server.Client(),
		commands: []Command{{Name: "start", Description: "Welcome"}},
		stop:     make(chan struct{}),
	}
	if err := ch.syncCommands(context.Background()); err == nil {
		t.Fatal("syncCommands() error = nil, want error")
	}
}

func TestTelegramChannelSendMessage(t *testing.T) {
	var texts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sendMessage" {
			t.Errorf("path = %q, want /sendMessage", r.URL.Path)
		}
		_ = r.ParseForm()
		texts = append(texts, r.Form.Get("text"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	ch := &TelegramChannel{baseURL: server.URL, client: server.Client(), stop: make(chan struct{})}
	long := strings.Repeat("word ", telegramMaxMessageLen/5+10)
	if err := ch.SendMessage(context.Background(), "42", OutboundMessage{Text: long}); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if len(texts) != 2 {
		t.Fatalf("sent %d parts, want 2", len(texts))
	}
}

func TestTelegramChannelSendMessage_ChoicesOnLastPart(t *testing.T) {
	var markups []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		markups = append(markups, r.Form.Get("reply_markup"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	ch := &TelegramChannel{baseURL: server.URL, client: server.Client(), stop: make(chan struct{})}
	long := strings.Repeat("line of a long solution\n", telegramMaxMessageLen/20)
	err := ch.SendMessage(context.Background(), "42", OutboundMessage{
		Text:    long,
		Choices: []Choice{{Label: "A", Send: "/answer A"}, {Label: "B", Send: "/answer B"}},
	})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if len(markups) < 2 {
		t.Fatalf("sent %d parts, want at least 2", len(markups))
	}
	for i, m := range markups[:len(markups)-1] {
		if m != "" {
			t.Errorf("part %d carries reply_markup %q", i, m)
		}
	}
	if last := markups[len(markups)-1]; !strings.Contains(last, `"callback_data":"/answer B"`) {
		t.Errorf("last reply_markup = %q", last)
	}
}

func TestTelegramChannelSendMessage_RetriesWithoutParseMode(t *testing.T) {
	var modes []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		mode := r.Form.Get("parse_mode")
		modes = append(modes, mode)
		if mode != "" {
			http.Error(w, `{"ok":false,"description":"can't parse entities"}`, http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	ch := &TelegramChannel{baseURL: server.URL, client: server.Client(), stop: make(chan struct{})}
	if err := ch.SendMessage(context.Background(), "42", OutboundMessage{Text: "x_1 * y_2", ParseMode: "Markdown"}); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if len(modes) != 2 || modes[0] != "Markdown" || modes[1] != "" {
		t.Errorf("parse modes sent = %q, want [Markdown \"\"]", modes)
	}
}

func TestTelegramChannelSendMessage_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	ch := &TelegramChannel{baseURL: server.URL, client: server.Client(), stop: make(chan struct{})}
	err := ch.SendMessage(context.Background(), "42", OutboundMessage{Text: "hello"})
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("SendMessage() error = %v, want API description", err)
	}
}

func TestTelegramChannelGetUpdates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getUpdates" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("offset"); got != "10" {
			t.Errorf("offset = %q, want 10", got)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":10,"message":{"text":"/practice","chat":{"id":5},"from":{"id":5}}},
			{"update_id":11,"callback_query":{"id":"q","from":{"id":5},"message":{"chat":{"id":5}},"data":"/answer C"}}
		]}`))
	}))
	defer server.Close()

	ch := &TelegramChannel{baseURL: server.URL, client: server.Client(), offset: 10, stop: make(chan struct{})}
	updates, err := ch.getUpdates(context.Background())
	if err != nil {
		t.Fatalf("getUpdates() error = %v", err)
	}
	if len(updates) != 2 || updates[1].CallbackQuery == nil || updates[1].CallbackQuery.Data != "/answer C" {
		t.Fatalf("updates = %+v", updates)
	}
}

func TestTelegramChannelStopTwice(t *testing.T) {
	ch, err := NewTelegramChannel("token")
	if err != nil {
		t.Fatal(err)
	}
	if err := ch.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := ch.Stop(); err != nil {
		t.Fatal(err)
	}
}
