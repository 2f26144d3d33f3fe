package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-practice/internal/app"
	"github.com/p-n-ai/pai-practice/internal/bot"
	"github.com/p-n-ai/pai-practice/internal/chat"
	"github.com/p-n-ai/pai-practice/internal/platform/config"
)

const readyTimeout = 3 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	gateway := chat.NewGateway()
	var wsHandler http.Handler
	if cfg.WebSocket.Enabled {
		ws := chat.NewWebSocketChannel(cfg.WebSocket.OriginPatterns...)
		gateway.Register("websocket", ws)
		wsHandler = ws
	}
	if cfg.Telegram.BotToken != "" {
		tg, err := chat.NewTelegramChannel(cfg.Telegram.BotToken, bot.Commands()...)
		if err != nil {
			return err
		}
		gateway.Register("telegram", tg)
	}

	if err := gateway.StartAll(ctx, newMessageHandler(ctx, gateway, a.Bot)); err != nil {
		return err
	}
	defer func() {
		if err := gateway.StopAll(); err != nil {
			slog.Warn("stopping channels", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.Metrics.Middleware(newMux(a, wsHandler)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// newMessageHandler answers each inbound chat message through the bot and
// replies on the channel it arrived from.
func newMessageHandler(ctx context.Context, gateway *chat.Gateway, b *bot.Bot) func(chat.InboundMessage) {
	return func(msg chat.InboundMessage) {
		if err := gateway.SendTyping(ctx, msg.Channel, msg.UserID); err != nil {
			slog.Debug("typing indicator failed", "channel", msg.Channel, "error", err)
		}

		reply, err := b.ProcessMessage(ctx, msg)
		if err != nil {
			slog.Error("failed to process message", "channel", msg.Channel, "user_id", msg.UserID, "error", err)
			return
		}
		if reply.Text == "" {
			return
		}

		if err := gateway.Send(ctx, chat.OutboundMessage{
			Channel: msg.Channel,
			UserID:  msg.UserID,
			Text:    reply.Text,
			Choices: reply.Choices,
		}); err != nil {
			slog.Error("failed to send reply", "channel", msg.Channel, "user_id", msg.UserID, "error", err)
		}
	}
}

// newMux creates the HTTP router. ws may be nil when the channel is disabled.
func newMux(a *app.App, ws http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", handleReadyz(a.Checks()))
	mux.Handle("GET /metrics", a.Metrics.Handler())
	if ws != nil {
		mux.Handle("GET /ws", ws)
	}
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleReadyz(checks []app.Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		results := map[string]string{}
		status := http.StatusOK
		for _, c := range checks {
			if err := c.HealthCheck(ctx); err != nil {
				results[c.Name()] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[c.Name()] = "ok"
		}

		body := map[string]any{"status": "ready"}
		if status != http.StatusOK {
			body["status"] = "not ready"
		}
		if len(results) > 0 {
			body["checks"] = results
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
