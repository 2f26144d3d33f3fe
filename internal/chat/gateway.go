// Package chat carries practice conversations over Telegram and WebSocket
// behind one Channel interface.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// InboundMessage is a message received from any channel.
type InboundMessage struct {
	Channel     string
	UserID      string
	ExternalID  string
	Text        string
	ReplyToText string // text of the message being replied to (if any)
	Username    string
	FirstName   string
	LastName    string
	Language    string
}

// OutboundMessage is a message to send via any channel.
type OutboundMessage struct {
	Channel   string
	UserID    string
	Text      string
	ParseMode string // "Markdown", "HTML", or ""
	Choices   []Choice
}

// Choice is a suggested reply rendered as a button where the channel
// supports it. Picking it sends Send back as the user's message.
type Choice struct {
	Label string `json:"label"`
	Send  string `json:"send"`
}

// Channel is the interface each messaging platform must implement.
type Channel interface {
	SendMessage(ctx context.Context, userID string, msg OutboundMessage) error
	SendTyping(ctx context.Context, userID string) error
	Start(ctx context.Context, handler func(InboundMessage)) error
	Stop() error
}

// ErrUnknownChannel is returned when a message names an unregistered channel.
var ErrUnknownChannel = errors.New("unknown channel")

// Gateway fans replies out to the registered channels by name.
type Gateway struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

func NewGateway() *Gateway {
	return &Gateway{channels: make(map[string]Channel)}
}

// Register adds ch under name, replacing any channel already there.
func (g *Gateway) Register(name string, ch Channel) {
	g.mu.Lock()
	g.channels[name] = ch
	g.mu.Unlock()
	slog.Info("chat channel registered", "channel", name)
}

func (g *Gateway) HasChannel(name string) bool {
	_, err := g.lookup(name)
	return err == nil
}

// Names lists the registered channels in sorted order.
func (g *Gateway) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.channels))
	for name := range g.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *Gateway) lookup(name string) (Channel, error) {
	g.mu.RLock()
	ch, ok := g.channels[name]
	g.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, name)
	}
	return ch, nil
}

// Send delivers msg on msg.Channel.
func (g *Gateway) Send(ctx context.Context, msg OutboundMessage) error {
	ch, err := g.lookup(msg.Channel)
	if err != nil {
		return err
	}
	return ch.SendMessage(ctx, msg.UserID, msg)
}

func (g *Gateway) SendTyping(ctx context.Context, channel, userID string) error {
	ch, err := g.lookup(channel)
	if err != nil {
		return err
	}
	return ch.SendTyping(ctx, userID)
}

// StartAll starts the channels in name order and stops at the first failure.
func (g *Gateway) StartAll(ctx context.Context, handler func(InboundMessage)) error {
	for _, name := range g.Names() {
		ch, err := g.lookup(name)
		if err != nil {
			continue
		}
		slog.Info("starting channel", "channel", name)
		if err := ch.Start(ctx, handler); err != nil {
			return fmt.Errorf("starting channel %s: %w", name, err)
		}
	}
	return nil
}

// StopAll stops every registered channel and joins the failures.
func (g *Gateway) StopAll() error {
	var errs []error
	for _, name := range g.Names() {
		ch, err := g.lookup(name)
		if err != nil {
			continue
		}
		if err := ch.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping channel %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// MockChannel is a test double for Channel.
type MockChannel struct {
	mu           sync.Mutex
	SentMessages []OutboundMessage
	Stopped      bool
}

func (m *MockChannel) SendMessage(_ context.Context, _ string, msg OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = append(m.SentMessages, msg)
	return nil
}

func (m *MockChannel) SendTyping(_ context.Context, _ string) error {
	return nil
}

func (m *MockChannel) Start(_ context.Context, _ func(InboundMessage)) error {
	return nil
}

func (m *MockChannel) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stopped = true
	return nil
}

// Sent returns a copy of the messages sent so far.
func (m *MockChannel) Sent() []OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]OutboundMessage(nil), m.SentMessages...)
}
