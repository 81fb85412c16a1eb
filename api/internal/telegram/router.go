package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"complexity-analyzer/api/internal/analysis"
)

// Bot is the part of *tgbotapi.BotAPI the router needs.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, code string) (analysis.Result, error)
}

type Router struct {
	Bot      Bot
	Analyzer Analyzer
	Log      *zap.Logger
	Model    string
	// Timeout bounds one analysis; zero means no limit.
	Timeout time.Duration
	// Workers caps updates handled at once; zero means defaultWorkers.
	Workers int

	chats chatState
}

const (
	textStart = "Send me a code snippet (plain or in a ``` block) and I will estimate its time and space complexity.\nCommands: /health"
	textBusy  = "Still analyzing your previous snippet, please wait."
	textEmpty = "That message has no code in it."
)

const defaultWorkers = 16

func (r *Router) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return defaultWorkers
}

func (r *Router) log() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	if upd.Message.IsCommand() {
		r.HandleCommand(upd)
		return
	}
	if strings.TrimSpace(upd.Message.Text) != "" {
		r.handleCode(ctx, upd.Message.Chat.ID, upd.Message.Text)
	}
}

func (r *Router) HandleCommand(upd tgbotapi.Update) {
	cid := upd.Message.Chat.ID
	switch upd.Message.Command() {
	case "start", "help":
		r.send(cid, textStart)
	case "health":
		msg := "✅ OK"
		if r.Model != "" {
			msg += " (" + r.Model + ")"
		}
		r.send(cid, msg)
	default:
		r.send(cid, "Unknown command")
	}
}

func (r *Router) handleCode(ctx context.Context, chatID int64, text string) {
	code := codeFromMessage(text)
	if code == "" {
		r.send(chatID, textEmpty)
		return
	}
	if !r.chats.begin(chatID) {
		r.send(chatID, textBusy)
		return
	}
	defer r.chats.end(chatID)

	_, _ = r.Bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	res, err := r.Analyzer.Analyze(ctx, code)
	if err != nil {
		r.log().Warn("telegram analyze failed", zap.Int64("chat_id", chatID), zap.Error(err))
		r.send(chatID, errorText(err))
		return
	}
	r.sendResult(chatID, res)
}

// errorText mirrors the HTTP contract: model output is never echoed back.
func errorText(err error) string {
	var (
		ve *analysis.ValidationError
		fe *analysis.ResponseFormatError
		se *analysis.SchemaValidationError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Msg
	case errors.As(err, &fe), errors.As(err, &se):
		return analysis.MsgParseFailed
	default:
		return "⚠️ Analysis failed: " + err.Error()
	}
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		r.log().Warn("telegram send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// sendResult falls back to plain text when Telegram rejects the Markdown version,
// so the user always gets an answer.
func (r *Router) sendResult(chatID int64, res analysis.Result) {
	msg := tgbotapi.NewMessage(chatID, formatResult(res))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := r.Bot.Send(msg); err != nil {
		r.log().Warn("telegram markdown send failed, retrying as plain text", zap.Int64("chat_id", chatID), zap.Error(err))
		r.send(chatID, formatPlain(res))
	}
}
