// Package poller runs the fetch, check and notify cycle.
package poller

import (
	"context"
	"fmt"
	"time"

	"homework-bot/internal/homework"
	"homework-bot/internal/logging"
	"homework-bot/internal/models"

	"github.com/rs/zerolog"
)

const DefaultInterval = 600 * time.Second

type Fetcher interface {
	Fetch(ctx context.Context, since int64) (any, error)
}

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration)

type Options struct {
	Interval time.Duration
	// Start seeds the watermark. Zero means the current time.
	Start time.Time
	Sleep SleepFunc
	Log   zerolog.Logger
}

type Poller struct {
	fetcher  Fetcher
	notifier Notifier
	checker  *homework.Checker
	interval time.Duration
	sleep    SleepFunc
	log      zerolog.Logger

	state models.PollState
}

func New(fetcher Fetcher, notifier Notifier, checker *homework.Checker, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now()
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	if checker == nil {
		checker = homework.NewChecker(opts.Log)
	}
	return &Poller{
		fetcher:  fetcher,
		notifier: notifier,
		checker:  checker,
		interval: opts.Interval,
		sleep:    opts.Sleep,
		log:      opts.Log,
		state:    models.PollState{Timestamp: opts.Start.Unix()},
	}
}

// State returns a copy of what the poller currently remembers.
func (p *Poller) State() models.PollState { return p.state }

// Run repeats Cycle until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info().Dur("interval", p.interval).Msg("Программа бота запущена.")
	for ctx.Err() == nil {
		p.Cycle(ctx)
	}
	p.log.Info().Msg("poller stopped")
}

// Cycle performs one poll and then sleeps for the retry interval, whatever
// the outcome.
func (p *Poller) Cycle(ctx context.Context) {
	defer p.sleep(ctx, p.interval)
	p.Once(ctx)
}

// Once performs one poll without the trailing sleep.
func (p *Poller) Once(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.handle(ctx, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := p.poll(ctx); err != nil {
		if ctx.Err() != nil {
			p.log.Debug().Err(err).Msg("poll interrupted by shutdown")
			return
		}
		p.handle(ctx, err)
	}
}

func (p *Poller) poll(ctx context.Context) error {
	raw, err := p.fetcher.Fetch(ctx, p.state.Timestamp)
	if err != nil {
		return err
	}

	resp, record, err := p.checker.Validate(raw)
	if err != nil {
		return err
	}
	if resp.CurrentDate != 0 {
		p.state.Timestamp = resp.CurrentDate
	}

	message, err := p.checker.Translate(record)
	if err != nil {
		return err
	}
	if message == "" || message == p.state.LastHomeworkMessage {
		return nil
	}

	if err := p.notifier.Notify(ctx, message); err != nil {
		return err
	}
	p.state.LastHomeworkMessage = message
	return nil
}

func (p *Poller) handle(ctx context.Context, err error) {
	switch kind := Classify(err); kind {
	case KindSendFailure:
		// already logged by the notifier
	case KindEndpointAccess, KindResponseFormat:
		text := err.Error()
		p.log.Error().Err(err).Str("kind", kind.String()).Str("stack", logging.Stack(1, 16)).Msg(text)
		if text == p.state.LastErrorMessage {
			return
		}
		if p.notifier.Notify(ctx, text) == nil {
			p.state.LastErrorMessage = text
		}
	case KindMissingTokens, KindOther:
		p.log.Error().Err(err).Str("kind", kind.String()).Str("stack", logging.Stack(1, 16)).
			Msgf("Сбой в работе программы: %v", err)
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
