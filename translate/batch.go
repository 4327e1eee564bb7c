package translate

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"clokit/charsetcheck"
	"clokit/memory"
	"clokit/project"
)

// Options controls a batch translation run.
type Options struct {
	// Engine performs the actual translation calls.
	Engine Engine
	// SourceLang is the source language code ("auto" when empty).
	SourceLang string
	// TargetLang is the target language code. Required.
	TargetLang string

	// Concurrency is a hard ceiling on in-flight engine calls, not a
	// throughput target. Default: 3.
	Concurrency int
	// MaxRetries is how many times a failed call is retried with
	// exponential backoff before the entry is marked failed. Default: 3.
	MaxRetries int
	// RetryDelay is the first backoff step; each retry doubles it.
	// Default: 1s.
	RetryDelay time.Duration
	// RequestsPerSecond rate-limits dispatch of engine calls.
	// 0 means unlimited.
	RequestsPerSecond float64

	// Memory is the persistent translation memory; nil disables it.
	Memory *memory.Store

	// OnProgress is called after every settled entry.
	OnProgress func(done, total int)
	OnLog      func(format string, args ...any)
	OnError    func(format string, args ...any)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return 3
}

func (o *Options) maxRetries() int {
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return 3
}

func (o *Options) retryDelay() time.Duration {
	if o.RetryDelay > 0 {
		return o.RetryDelay
	}
	return time.Second
}

// Result summarizes a batch run.
type Result struct {
	// Total is the number of entries eligible for dispatch.
	Total int
	// Done counts entries that received a translation this run.
	Done int
	// Failed counts entries that exhausted their retries.
	Failed int
	// FromMemory counts translations served by the translation memory or
	// the in-run duplicate cache instead of an engine call.
	FromMemory int
	// Undispatched counts entries left pending by cancellation.
	Undispatched int
}

// Batch dispatches every translatable, pending entry of the project to the
// engine under bounded concurrency.
//
// Entries keep independent identity: one entry's failure never affects its
// siblings, and the project's entry ordering is untouched regardless of
// completion order. Cancellation is cooperative and coarse — it stops new
// dispatch, lets in-flight calls finish naturally, and never rolls back
// entries already done.
func Batch(ctx context.Context, p *project.Project, opts Options) (*Result, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("no translation engine configured")
	}
	if opts.TargetLang == "" {
		return nil, fmt.Errorf("no target language configured")
	}
	src := opts.SourceLang
	if src == "" {
		src = "auto"
	}

	var validator *charsetcheck.Validator
	if p.TargetCharset != "" {
		v, err := charsetcheck.New(p.TargetCharset)
		if err != nil {
			return nil, err
		}
		validator = v
	}

	entries := p.Translatable()
	res := &Result{Total: len(entries)}
	if res.Total == 0 {
		return res, nil
	}
	opts.log("translating %d entries via %s (concurrency %d)", res.Total, opts.Engine.Name(), opts.concurrency())

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	// Identical literals recur across class files (the same "OK" hundreds
	// of times); the in-run cache collapses them to one engine call.
	dedup := gocache.New(gocache.NoExpiration, 0)

	sem := make(chan struct{}, opts.concurrency())
	var wg sync.WaitGroup
	var mu sync.Mutex // guards res counters and progress
	settled := 0

	progress := func(outcome func(*Result)) {
		mu.Lock()
		outcome(res)
		settled++
		done := settled
		mu.Unlock()
		if opts.OnProgress != nil {
			opts.OnProgress(done, res.Total)
		}
	}

	undispatched := 0
	for i, e := range entries {
		// Cooperative cancellation: nothing new is dispatched once the
		// context is done; remaining entries stay pending.
		if ctx.Err() != nil {
			undispatched = len(entries) - i
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			undispatched = len(entries) - i
			break
		}

		wg.Add(1)
		go func(e *project.StringEntry) {
			defer wg.Done()
			defer func() { <-sem }()
			translateEntry(ctx, e, src, dedup, validator, &opts, limiter, progress)
		}(e)
	}

	wg.Wait()
	res.Undispatched += undispatched
	opts.log("batch finished: %d done (%d from memory), %d failed, %d not dispatched",
		res.Done, res.FromMemory, res.Failed, res.Undispatched)
	return res, nil
}

// translateEntry settles one entry: memory hit, engine call with retries,
// or failure. Only this goroutine touches the entry.
func translateEntry(ctx context.Context, e *project.StringEntry, src string,
	dedup *gocache.Cache, validator *charsetcheck.Validator,
	opts *Options, limiter *rate.Limiter, progress func(func(*Result))) {

	e.Status = project.StatusInFlight

	finishDone := func(translated string, fromMemory bool) {
		e.Translated = translated
		e.Status = project.StatusDone
		if validator != nil {
			ok, bad := validator.Validate(translated)
			e.CharsetValid = ok
			e.Unmappable = string(bad)
		}
		progress(func(r *Result) {
			r.Done++
			if fromMemory {
				r.FromMemory++
			}
		})
	}

	// Translation memory, then the in-run duplicate cache.
	if hit, ok := opts.Memory.Get(e.Original, src, opts.TargetLang); ok {
		finishDone(hit, true)
		return
	}
	if hit, ok := dedup.Get(e.Original); ok {
		finishDone(hit.(string), true)
		return
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			// Cancelled before the call started: back to pending.
			e.Status = project.StatusPending
			progress(func(r *Result) { r.Undispatched++ })
			return
		}
	}

	// In-flight calls run to completion even if the batch is cancelled;
	// cancellation only stops retries and new dispatch.
	callCtx := context.WithoutCancel(ctx)

	var lastErr error
	for attempt := 0; attempt <= opts.maxRetries(); attempt++ {
		if attempt > 0 {
			if ctx.Err() != nil {
				e.Status = project.StatusPending
				progress(func(r *Result) { r.Undispatched++ })
				return
			}
			wait := opts.retryDelay() * (1 << (attempt - 1))
			opts.log("retry %d/%d for %s in %v", attempt, opts.maxRetries(), e.Key(), wait)
			time.Sleep(wait)
		}

		translated, err := opts.Engine.Translate(callCtx, e.Original, src, opts.TargetLang)
		if err == nil {
			dedup.SetDefault(e.Original, translated)
			if err := opts.Memory.Put(e.Original, translated, src, opts.TargetLang); err != nil {
				opts.logError("translation memory write failed: %v", err)
			}
			finishDone(translated, false)
			return
		}
		lastErr = err
	}

	// Exhausted retries: the entry fails alone, original text kept,
	// translation left unset.
	e.Status = project.StatusFailed
	e.Translated = ""
	opts.logError("translation failed for %s: %v", e.Key(), lastErr)
	progress(func(r *Result) { r.Failed++ })
}
