package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complexity-analyzer/api/internal/analysis"
)

type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	requests int
	// rejectMarkdown fails every Markdown send, like Telegram does on bad entities.
	rejectMarkdown bool
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, nil
	}
	if f.rejectMarkdown && m.ParseMode == tgbotapi.ModeMarkdown {
		return tgbotapi.Message{}, errors.New("Bad Request: can't parse entities")
	}
	f.sent = append(f.sent, m)
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) texts(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeBot) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

type fakeAnalyzer struct {
	res  analysis.Result
	err  error
	code string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, code string) (analysis.Result, error) {
	f.code = code
	return f.res, f.err
}

func textUpdate(text string) tgbotapi.Update {
	return chatUpdate(42, text)
}

func chatUpdate(chatID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: text}
	if strings.HasPrefix(text, "/") {
		n := len(strings.Fields(text)[0])
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: msg}
}

func TestHandleCodeMessage(t *testing.T) {
	bot := &fakeBot{}
	an := &fakeAnalyzer{res: analysis.Result{
		TimeComplexity:  "O(n_log_n)",
		SpaceComplexity: "O(n)",
		Explanation:     "merge *sort*",
	}}
	r := &Router{Bot: bot, Analyzer: an}

	r.HandleUpdate(context.Background(), textUpdate("check this:\n```python\ndef f(x):\n    return sorted(x)\n```"))

	assert.Equal(t, "def f(x):\n    return sorted(x)", an.code)
	assert.Equal(t, 1, bot.requests)
	msg := bot.last(t)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)
	assert.Contains(t, msg.Text, `O(n\_log\_n)`)
	assert.Contains(t, msg.Text, `merge \*sort\*`)
}

func TestHandleCodeErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"format", &analysis.ResponseFormatError{Raw: "model prose", Err: errors.New("bad")}, analysis.MsgParseFailed},
		{"schema", &analysis.SchemaValidationError{Missing: []string{"explanation"}}, analysis.MsgParseFailed},
		{"transport", &analysis.TransportError{Provider: "gemini", Err: errors.New("quota exceeded")}, "⚠️ Analysis failed: quota exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := &fakeBot{}
			r := &Router{Bot: bot, Analyzer: &fakeAnalyzer{err: tt.err}}
			r.HandleUpdate(context.Background(), textUpdate("x = 1"))

			msg := bot.last(t)
			assert.Equal(t, tt.want, msg.Text)
			assert.NotContains(t, msg.Text, "model prose")
		})
	}
}

func TestHandleCommands(t *testing.T) {
	bot := &fakeBot{}
	an := &fakeAnalyzer{}
	r := &Router{Bot: bot, Analyzer: an, Model: "gemini-2.5-flash"}

	r.HandleUpdate(context.Background(), textUpdate("/start"))
	assert.Equal(t, textStart, bot.last(t).Text)

	r.HandleUpdate(context.Background(), textUpdate("/health"))
	assert.Equal(t, "✅ OK (gemini-2.5-flash)", bot.last(t).Text)

	r.HandleUpdate(context.Background(), textUpdate("/nope"))
	assert.Equal(t, "Unknown command", bot.last(t).Text)
	assert.Empty(t, an.code)
}

func TestBusyChatIsRejected(t *testing.T) {
	bot := &fakeBot{}
	r := &Router{Bot: bot, Analyzer: &fakeAnalyzer{}}
	require.True(t, r.chats.begin(42))

	r.HandleUpdate(context.Background(), textUpdate("x = 1"))
	assert.Equal(t, textBusy, bot.last(t).Text)

	r.chats.end(42)
	assert.True(t, r.chats.begin(42))
}

func TestCodeFromMessage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  x = 1  ", "x = 1"},
		{"```\nfor i in x: pass\n```", "for i in x: pass"},
		{"```go\nfor {}\n``` and ```\nsecond\n```", "for {}"},
		{"```c++\nint main() {}\n```", "int main() {}"},
		{"``````", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, codeFromMessage(tt.in), tt.in)
	}
}

// gateAnalyzer holds every analysis until release is closed.
type gateAnalyzer struct {
	started chan string
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func newGateAnalyzer() *gateAnalyzer {
	return &gateAnalyzer{started: make(chan string, 8), release: make(chan struct{})}
}

func (g *gateAnalyzer) Analyze(ctx context.Context, code string) (analysis.Result, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	g.started <- code
	select {
	case <-g.release:
		return analysis.Result{TimeComplexity: "O(1)", SpaceComplexity: "O(1)", Explanation: code}, nil
	case <-ctx.Done():
		return analysis.Result{}, ctx.Err()
	}
}

func (g *gateAnalyzer) waitStarted(t *testing.T) string {
	t.Helper()
	select {
	case code := <-g.started:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("analysis did not start")
		return ""
	}
}

func TestConsumeRunsChatsConcurrently(t *testing.T) {
	bot := &fakeBot{}
	an := newGateAnalyzer()
	r := &Router{Bot: bot, Analyzer: an}

	queue := make(chan tgbotapi.Update, 3)
	done := make(chan error, 1)
	go func() { done <- r.Consume(context.Background(), queue) }()

	queue <- chatUpdate(42, "a = 1")
	assert.Equal(t, "a = 1", an.waitStarted(t))

	// same chat while the first snippet is still running
	queue <- chatUpdate(42, "b = 2")
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{textBusy}, bot.texts(42))
	}, 2*time.Second, 5*time.Millisecond)

	// another chat is not held up by chat 42
	queue <- chatUpdate(7, "c = 3")
	assert.Equal(t, "c = 3", an.waitStarted(t))

	close(an.release)
	close(queue)
	require.NoError(t, <-done)

	an.mu.Lock()
	assert.Equal(t, 2, an.calls)
	an.mu.Unlock()

	got42 := bot.texts(42)
	require.Len(t, got42, 2)
	assert.Equal(t, textBusy, got42[0])
	assert.Contains(t, got42[1], "a = 1")

	got7 := bot.texts(7)
	require.Len(t, got7, 1)
	assert.Contains(t, got7[0], "c = 3")

	assert.True(t, r.chats.begin(42), "chat released after the analysis")
}

func TestFormatResultTruncates(t *testing.T) {
	tests := []struct {
		name string
		res  analysis.Result
	}{
		{"long explanation", analysis.Result{
			TimeComplexity:  "O(1)",
			SpaceComplexity: "O(1)",
			Explanation:     strings.Repeat("a", maxExplanation+10),
		}},
		{"every field long and escaped", analysis.Result{
			TimeComplexity:  strings.Repeat("_", 5000),
			SpaceComplexity: strings.Repeat("*", 5000),
			Explanation:     strings.Repeat("[", 5000),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := formatResult(tt.res)
			assert.True(t, strings.HasSuffix(out, "…"))
			assert.LessOrEqual(t, len([]rune(out)), maxMessage)
			assert.LessOrEqual(t, len([]rune(formatPlain(tt.res))), maxMessage)
		})
	}
}

func TestSendResultFallsBackToPlainText(t *testing.T) {
	bot := &fakeBot{rejectMarkdown: true}
	an := &fakeAnalyzer{res: analysis.Result{
		TimeComplexity:  "O(n_log_n)",
		SpaceComplexity: "O(n)",
		Explanation:     "merge *sort*",
	}}
	r := &Router{Bot: bot, Analyzer: an}

	r.HandleUpdate(context.Background(), textUpdate("x = sorted(y)"))

	msg := bot.last(t)
	assert.Empty(t, msg.ParseMode)
	assert.Equal(t, "Time complexity: O(n_log_n)\nSpace complexity: O(n)\n\nExplanation:\nmerge *sort*", msg.Text)
}

func TestWebhookPath(t *testing.T) {
	p := WebhookPath("123:abc")
	assert.Equal(t, p, WebhookPath("123:abc"))
	assert.NotEqual(t, p, WebhookPath("123:abd"))
	assert.Regexp(t, `^/webhook/[0-9a-f]{16}$`, p)

	// FNV-1a 64 offset basis, fixed so a redeploy keeps the registered URL
	assert.Equal(t, "/webhook/cbf29ce484222325", WebhookPath(""))
	assert.Equal(t, "/webhook/af63dc4c8601ec8c", WebhookPath("a"))
}

func TestRetryDelayFromError(t *testing.T) {
	assert.Zero(t, retryDelayFromError(nil))
	assert.Equal(t, 7*time.Second, retryDelayFromError(errors.New("Too Many Requests: retry after 7")))
	assert.Equal(t, 3*time.Second, retryDelayFromError(errors.New("too many requests")))
	assert.Equal(t, time.Second, retryDelayFromError(errors.New("bad gateway")))
}

type fakeUpdater struct {
	calls int
	stop  context.CancelFunc
}

func (f *fakeUpdater) GetUpdates(cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	f.calls++
	if f.calls > 1 {
		f.stop()
		return nil, nil
	}
	upd := textUpdate("/start")
	upd.UpdateID = 10
	return []tgbotapi.Update{upd}, nil
}

func TestRunPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bot := &fakeBot{}
	r := &Router{Bot: bot, Analyzer: &fakeAnalyzer{}}

	err := r.RunPolling(ctx, &fakeUpdater{stop: cancel})
	require.NoError(t, err)
	assert.Equal(t, textStart, bot.last(t).Text)
}

func TestWebhookHandlerQueues(t *testing.T) {
	queue := make(chan tgbotapi.Update, 1)
	r := &Router{Bot: &fakeBot{}, Analyzer: &fakeAnalyzer{}}
	h := r.WebhookHandler(queue)

	body := `{"update_id":5,"message":{"message_id":1,"chat":{"id":42},"text":"x = 1"}}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/abc", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	upd := <-queue
	assert.Equal(t, 5, upd.UpdateID)
	assert.Equal(t, "x = 1", upd.Message.Text)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/abc", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
