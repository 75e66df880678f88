package poller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"homework-bot/internal/config"
	"homework-bot/internal/homework"
	"homework-bot/internal/notify"
	"homework-bot/internal/practicum"

	"github.com/rs/zerolog"
)

type fetchResult struct {
	body string
	err  error
}

type fakeFetcher struct {
	results []fetchResult
	since   []int64
}

func (f *fakeFetcher) Fetch(ctx context.Context, since int64) (any, error) {
	f.since = append(f.since, since)
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	return practicum.Decode([]byte(r.body))
}

type fakeNotifier struct {
	sent []string
	fail bool
}

func (f *fakeNotifier) Notify(ctx context.Context, text string) error {
	if f.fail {
		return &notify.SendError{Text: text, Err: errors.New("bot blocked")}
	}
	f.sent = append(f.sent, text)
	return nil
}

type sleepRecorder struct {
	calls []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) {
	s.calls = append(s.calls, d)
}

const start = 1690000000

func newTestPoller(f Fetcher, n Notifier, logs *bytes.Buffer) (*Poller, *sleepRecorder) {
	rec := &sleepRecorder{}
	log := zerolog.Nop()
	if logs != nil {
		log = zerolog.New(logs).Level(zerolog.DebugLevel)
	}
	p := New(f, n, homework.NewChecker(log), Options{
		Start: time.Unix(start, 0),
		Sleep: rec.sleep,
		Log:   log,
	})
	return p, rec
}

func approved(name string, date int) string {
	return fmt.Sprintf(`{"homeworks": [{"homework_name": %q, "status": "approved"}], "current_date": %d}`, name, date)
}

func TestCycleApprovedHomework(t *testing.T) {
	fetcher := &fakeFetcher{results: []fetchResult{{body: approved("proj1", 1700000000)}}}
	notifier := &fakeNotifier{}
	p, rec := newTestPoller(fetcher, notifier, nil)

	p.Cycle(context.Background())

	want := homework.StatusChanged("proj1", homework.Verdicts["approved"])
	if len(notifier.sent) != 1 || notifier.sent[0] != want {
		t.Fatalf("sent = %q, want [%q]", notifier.sent, want)
	}
	if got := p.State().Timestamp; got != 1700000000 {
		t.Errorf("watermark = %d, want 1700000000", got)
	}
	if fetcher.since[0] != start {
		t.Errorf("first fetch since = %d, want %d", fetcher.since[0], start)
	}
	if len(rec.calls) != 1 || rec.calls[0] != DefaultInterval {
		t.Errorf("sleep calls = %v, want one of %v", rec.calls, DefaultInterval)
	}
}

func TestCycleSameStatusNotifiedOnce(t *testing.T) {
	fetcher := &fakeFetcher{results: []fetchResult{
		{body: approved("proj1", 1700000000)},
		{body: approved("proj1", 1700000600)},
	}}
	notifier := &fakeNotifier{}
	p, _ := newTestPoller(fetcher, notifier, nil)

	p.Cycle(context.Background())
	p.Cycle(context.Background())

	if len(notifier.sent) != 1 {
		t.Fatalf("sent %d notifications, want 1: %q", len(notifier.sent), notifier.sent)
	}
	if fetcher.since[1] != 1700000000 {
		t.Errorf("second fetch since = %d, want 1700000000", fetcher.since[1])
	}
	if got := p.State().Timestamp; got != 1700000600 {
		t.Errorf("watermark = %d, want 1700000600", got)
	}
}

func TestCycleStatusChangeNotified(t *testing.T) {
	fetcher := &fakeFetcher{results: []fetchResult{
		{body: `{"homeworks": [{"homework_name": "proj1", "status": "reviewing"}], "current_date": 1}`},
		{body: approved("proj1", 2)},
	}}
	notifier := &fakeNotifier{}
	p, _ := newTestPoller(fetcher, notifier, nil)

	p.Cycle(context.Background())
	p.Cycle(context.Background())

	if len(notifier.sent) != 2 {
		t.Fatalf("sent = %q, want 2 notifications", notifier.sent)
	}
	if !strings.Contains(notifier.sent[1], homework.Verdicts["approved"]) {
		t.Errorf("second notification = %q, want approved verdict", notifier.sent[1])
	}
}

func TestCycleEmptyHomeworks(t *testing.T) {
	fetcher := &fakeFetcher{results: []fetchResult{{body: `{"homeworks": [], "current_date": 1700000000}`}}}
	notifier := &fakeNotifier{}
	var logs bytes.Buffer
	p, rec := newTestPoller(fetcher, notifier, &logs)

	p.Cycle(context.Background())

	if len(notifier.sent) != 0 {
		t.Errorf("sent = %q, want nothing", notifier.sent)
	}
	for _, level := range []string{`"level":"info"`, `"level":"warn"`, `"level":"error"`, `"level":"fatal"`} {
		if strings.Contains(logs.String(), level) {
			t.Errorf("unexpected %s record: %s", level, logs.String())
		}
	}
	if got := p.State().Timestamp; got != 1700000000 {
		t.Errorf("watermark = %d, want 1700000000", got)
	}
	if len(rec.calls) != 1 {
		t.Errorf("sleep calls = %d, want 1", len(rec.calls))
	}
}

func TestCycleBadCurrentDateKeepsWatermark(t *testing.T) {
	for _, body := range []string{
		`{"homeworks": []}`,
		`{"homeworks": [], "current_date": "soon"}`,
	} {
		t.Run(body, func(t *testing.T) {
			fetcher := &fakeFetcher{results: []fetchResult{{body: body}, {body: body}}}
			notifier := &fakeNotifier{}
			p, _ := newTestPoller(fetcher, notifier, nil)

			p.Cycle(context.Background())
			p.Cycle(context.Background())

			if fetcher.since[1] != start {
				t.Errorf("second fetch since = %d, want unchanged %d", fetcher.since[1], start)
			}
			if len(notifier.sent) != 1 || !strings.Contains(notifier.sent[0], "current_date") {
				t.Errorf("sent = %q, want one format error", notifier.sent)
			}
		})
	}
}

func TestCycleRepeatedEndpointErrorNotifiedOnce(t *testing.T) {
	accessErr := &practicum.EndpointAccessError{Endpoint: "https://example.test/api/", StatusCode: 503}
	fetcher := &fakeFetcher{results: []fetchResult{{err: accessErr}, {err: accessErr}}}
	notifier := &fakeNotifier{}
	var logs bytes.Buffer
	p, rec := newTestPoller(fetcher, notifier, &logs)

	p.Cycle(context.Background())
	p.Cycle(context.Background())

	if len(notifier.sent) != 1 || notifier.sent[0] != accessErr.Error() {
		t.Fatalf("sent = %q, want exactly [%q]", notifier.sent, accessErr.Error())
	}
	if n := strings.Count(logs.String(), `"kind":"endpoint_access"`); n != 2 {
		t.Errorf("logged %d endpoint errors, want 2: %s", n, logs.String())
	}
	if len(rec.calls) != 2 {
		t.Errorf("sleep calls = %d, want 2", len(rec.calls))
	}
	if p.State().LastErrorMessage != accessErr.Error() {
		t.Errorf("LastErrorMessage = %q", p.State().LastErrorMessage)
	}
}

func TestCycleUnknownStatus(t *testing.T) {
	body := `{"homeworks": [{"homework_name": "proj1", "status": "unknown_value"}], "current_date": 1700000000}`
	fetcher := &fakeFetcher{results: []fetchResult{{body: body}, {body: body}}}
	notifier := &fakeNotifier{}
	var logs bytes.Buffer
	p, _ := newTestPoller(fetcher, notifier, &logs)

	p.Cycle(context.Background())
	p.Cycle(context.Background())

	want := `Неизвестный статус "unknown_value" выполнения домашней работы.`
	if len(notifier.sent) != 1 || notifier.sent[0] != want {
		t.Fatalf("sent = %q, want [%q]", notifier.sent, want)
	}
	if !strings.Contains(logs.String(), `"kind":"response_format"`) {
		t.Errorf("format error not logged: %s", logs.String())
	}
	// validation passed, so the watermark still advances
	if got := p.State().Timestamp; got != 1700000000 {
		t.Errorf("watermark = %d, want 1700000000", got)
	}
}

func TestCycleErrorThenRecovery(t *testing.T) {
	accessErr := &practicum.EndpointAccessError{Endpoint: "e", StatusCode: 500}
	fetcher := &fakeFetcher{results: []fetchResult{
		{err: accessErr},
		{body: approved("proj1", 5)},
		{err: accessErr},
	}}
	notifier := &fakeNotifier{}
	p, _ := newTestPoller(fetcher, notifier, nil)

	for i := 0; i < 3; i++ {
		p.Cycle(context.Background())
	}

	// the error watermark survives a successful cycle in between
	if len(notifier.sent) != 2 {
		t.Fatalf("sent = %q, want error + status", notifier.sent)
	}
}

func TestCycleSendFailureSwallowed(t *testing.T) {
	fetcher := &fakeFetcher{results: []fetchResult{{body: approved("proj1", 1700000000)}}}
	notifier := &fakeNotifier{fail: true}
	p, rec := newTestPoller(fetcher, notifier, nil)

	p.Cycle(context.Background())

	st := p.State()
	if st.LastHomeworkMessage != "" {
		t.Errorf("LastHomeworkMessage = %q, want empty after failed send", st.LastHomeworkMessage)
	}
	if st.LastErrorMessage != "" {
		t.Errorf("LastErrorMessage = %q, send failures must not be re-notified", st.LastErrorMessage)
	}
	if len(rec.calls) != 1 {
		t.Errorf("sleep calls = %d, want 1", len(rec.calls))
	}

	// next cycle retries the same status
	notifier.fail = false
	p.Cycle(context.Background())
	if len(notifier.sent) != 1 {
		t.Errorf("sent = %q, want retry of the status message", notifier.sent)
	}
}

func TestCycleErrorNotifyFailureNotRemembered(t *testing.T) {
	accessErr := &practicum.EndpointAccessError{Endpoint: "e", StatusCode: 502}
	fetcher := &fakeFetcher{results: []fetchResult{{err: accessErr}}}
	notifier := &fakeNotifier{fail: true}
	p, _ := newTestPoller(fetcher, notifier, nil)

	p.Cycle(context.Background())
	if p.State().LastErrorMessage != "" {
		t.Fatalf("LastErrorMessage = %q, want empty", p.State().LastErrorMessage)
	}

	notifier.fail = false
	p.Cycle(context.Background())
	if len(notifier.sent) != 1 {
		t.Errorf("sent = %q, want the error delivered on retry", notifier.sent)
	}
}

func TestCycleUnexpectedErrorNotNotified(t *testing.T) {
	fetcher := &fakeFetcher{results: []fetchResult{{err: errors.New("something odd")}}}
	notifier := &fakeNotifier{}
	var logs bytes.Buffer
	p, rec := newTestPoller(fetcher, notifier, &logs)

	p.Cycle(context.Background())

	if len(notifier.sent) != 0 {
		t.Errorf("sent = %q, want nothing", notifier.sent)
	}
	if !strings.Contains(logs.String(), "Сбой в работе программы: something odd") {
		t.Errorf("unexpected error not logged: %s", logs.String())
	}
	if len(rec.calls) != 1 {
		t.Errorf("sleep calls = %d, want 1", len(rec.calls))
	}
}

type panicFetcher struct{}

func (panicFetcher) Fetch(ctx context.Context, since int64) (any, error) {
	panic("nil map")
}

func TestCyclePanicRecovered(t *testing.T) {
	notifier := &fakeNotifier{}
	var logs bytes.Buffer
	p, rec := newTestPoller(panicFetcher{}, notifier, &logs)

	p.Cycle(context.Background())

	if len(notifier.sent) != 0 {
		t.Errorf("sent = %q, want nothing", notifier.sent)
	}
	if !strings.Contains(logs.String(), "panic: nil map") {
		t.Errorf("panic not logged: %s", logs.String())
	}
	if len(rec.calls) != 1 {
		t.Errorf("sleep must still run after a panic, calls = %d", len(rec.calls))
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	fetcher := &fakeFetcher{results: []fetchResult{{body: `{"homeworks": [], "current_date": 1}`}}}
	ctx, cancel := context.WithCancel(context.Background())

	var cycles int
	p := New(fetcher, &fakeNotifier{}, nil, Options{
		Log: zerolog.Nop(),
		Sleep: func(ctx context.Context, d time.Duration) {
			cycles++
			if cycles == 3 {
				cancel()
			}
		},
	})

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if cycles != 3 {
		t.Errorf("cycles = %d, want 3", cycles)
	}
}

func TestSleepReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	begin := time.Now()
	Sleep(ctx, time.Hour)
	if time.Since(begin) > time.Second {
		t.Error("Sleep ignored cancellation")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"Missing tokens", &config.MissingTokensError{Names: []string{"TELEGRAM_TOKEN"}}, KindMissingTokens},
		{"Endpoint access", &practicum.EndpointAccessError{Endpoint: "e", StatusCode: 404}, KindEndpointAccess},
		{"Response format", &homework.ResponseFormatError{Key: "status"}, KindResponseFormat},
		{"Send failure", &notify.SendError{Text: "t", Err: errors.New("x")}, KindSendFailure},
		{"Wrapped format", fmt.Errorf("cycle: %w", &homework.ResponseFormatError{}), KindResponseFormat},
		{"Other", errors.New("boom"), KindOther},
		{"Nil", nil, KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}
