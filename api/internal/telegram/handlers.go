package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Updater is the polling side of *tgbotapi.BotAPI.
type Updater interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 от Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

// newGroup returns the group updates are dispatched on. Each update runs on its own
// goroutine so a slow analysis in one chat does not hold up the others.
func (r *Router) newGroup() *errgroup.Group {
	g := &errgroup.Group{}
	g.SetLimit(r.workers())
	return g
}

func (r *Router) dispatch(ctx context.Context, g *errgroup.Group, upd tgbotapi.Update) {
	g.Go(func() error {
		r.HandleUpdate(ctx, upd)
		return nil
	})
}

// RunPolling long-polls Telegram until ctx is done. Errors from getUpdates are logged and
// retried after a delay derived from the error. In-flight updates finish before it returns.
func (r *Router) RunPolling(ctx context.Context, bot Updater) error {
	offset := 0
	const (
		baseDelay = 1 * time.Second
		maxDelay  = 15 * time.Second
	)

	g := r.newGroup()
	defer func() { _ = g.Wait() }()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			r.log().Warn("polling error", zap.Error(err), zap.Duration("retry_in", d))
			if !sleep(ctx, d) {
				return nil
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			r.dispatch(ctx, g, upd)
		}
	}
}

// WebhookPath derives a stable secret path from the bot token (FNV-1a, not a MAC),
// so the public URL does not expose the token itself.
func WebhookPath(token string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	return fmt.Sprintf("/webhook/%016x", h.Sum64())
}

// WebhookHandler decodes updates and queues them; the model call runs outside the
// request so Telegram gets its 200 right away.
func (r *Router) WebhookHandler(queue chan<- tgbotapi.Update) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var upd tgbotapi.Update
		if err := json.NewDecoder(req.Body).Decode(&upd); err != nil {
			r.log().Info("bad webhook update", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		select {
		case queue <- upd:
			w.WriteHeader(http.StatusOK)
		default:
			r.log().Warn("webhook queue full, dropping update", zap.Int("update_id", upd.UpdateID))
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})
}

// Consume handles queued webhook updates until ctx is done or the queue is closed,
// then waits for the updates already dispatched.
func (r *Router) Consume(ctx context.Context, queue <-chan tgbotapi.Update) error {
	g := r.newGroup()
	defer func() { _ = g.Wait() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-queue:
			if !ok {
				return nil
			}
			r.dispatch(ctx, g, upd)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
