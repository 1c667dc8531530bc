// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

// Package analysis runs the stack engine over many methods at once.
package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/pkg/errors"

	"github.com/jvmstack/jvmstack/common/gopool"
	"github.com/jvmstack/jvmstack/core/types"
	"github.com/jvmstack/jvmstack/core/vm"
)

var methodTimer = metrics.NewRegisteredTimer("jvmstack/analysis/method", nil)

// Source replays one method as visitor events. *asm.Method implements it.
type Source interface {
	String() string
	Accept(v vm.MethodVisitor) error
}

// Config configures an Analyzer.
type Config struct {
	Workers int       // Maximum concurrent methods, 0 picks one from the batch size
	Engine  vm.Config // Engine configuration used for every method
}

// Result is the outcome of analysing one method. Depths are counted in
// words, so long and double values count twice.
type Result struct {
	Method       string
	Instructions int
	MaxDepth     int
	FinalDepth   int          // depth at the end of the code, or at the failing instruction
	Return       *types.Value // value consumed by the last xreturn, if any
	Err          error
}

// Failed reports whether the method could not be simulated.
func (r *Result) Failed() bool { return r.Err != nil }

// Analyzer simulates methods independently of each other. Every method gets
// its own engine. Hooks in Config.Engine.Tracer are shared and may be called
// from several goroutines at once.
type Analyzer struct {
	cfg Config
}

// New creates an analyzer.
func New(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze simulates a single method on the calling goroutine.
func (a *Analyzer) Analyze(src Source) Result {
	start := time.Now()
	defer methodTimer.UpdateSince(start)

	res := Result{Method: src.String()}
	cfg := a.cfg.Engine
	cfg.Tracer = a.observe(&res)

	engine := vm.NewEngine(cfg, nil)
	if err := src.Accept(engine); err != nil {
		res.Err = errors.Wrapf(err, "%s", res.Method)
	}
	res.Instructions = engine.Instructions()
	return res
}

// observe chains the result bookkeeping in front of the configured hooks.
func (a *Analyzer) observe(res *Result) *vm.Hooks {
	hooks := new(vm.Hooks)
	if a.cfg.Engine.Tracer != nil {
		*hooks = *a.cfg.Engine.Tracer
	}
	onOpcode, onFault, onCodeEnd := hooks.OnOpcode, hooks.OnFault, hooks.OnCodeEnd
	faulted := false

	hooks.OnOpcode = func(index int, ins vm.Instruction, stack vm.StackView) {
		if d := words(stack); d > res.MaxDepth {
			res.MaxDepth = d
		}
		if onOpcode != nil {
			onOpcode(index, ins, stack)
		}
	}
	hooks.OnFault = func(index int, ins vm.Instruction, stack vm.StackView, err error) {
		faulted = true
		res.FinalDepth = words(stack)
		if onFault != nil {
			onFault(index, ins, stack, err)
		}
	}
	hooks.OnCodeEnd = func(m vm.MethodInfo, stack vm.StackView, ret *types.Value) {
		if !faulted {
			res.FinalDepth = words(stack)
		}
		res.Return = ret
		if onCodeEnd != nil {
			onCodeEnd(m, stack, ret)
		}
	}
	return hooks
}

func words(stack vm.StackView) int {
	n := 0
	for _, v := range stack.Data() {
		n += v.Category()
	}
	return n
}

// Run analyses methods concurrently and returns one result per method, in
// input order. Once ctx is cancelled no further methods are started; their
// results carry the context error. The returned error is non-nil only if the
// worker pool could not be created or ctx was cancelled.
func (a *Analyzer) Run(ctx context.Context, methods []Source) ([]Result, error) {
	results := make([]Result, len(methods))
	if len(methods) == 0 {
		return results, nil
	}
	workers := a.cfg.Workers
	if workers <= 0 {
		workers = gopool.Threads(len(methods))
	}
	pool, err := gopool.New(workers)
	if err != nil {
		return nil, errors.Wrap(err, "analysis: worker pool")
	}
	defer pool.Release()

	var (
		start   = time.Now()
		wg      sync.WaitGroup
		stopped = len(methods)
	)
	for i, src := range methods {
		if ctx.Err() != nil {
			stopped = i
			break
		}
		i, src := i, src
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i] = a.Analyze(src)
		}); err != nil {
			wg.Done()
			results[i] = Result{Method: src.String(), Err: errors.Wrapf(err, "%s: submit", src)}
		}
	}
	wg.Wait()

	for i := stopped; i < len(methods); i++ {
		results[i] = Result{Method: methods[i].String(), Err: errors.Wrapf(ctx.Err(), "%s", methods[i])}
	}
	failed := 0
	for i := range results {
		if results[i].Failed() {
			failed++
		}
	}
	log.Debug("Analysed methods", "count", len(methods), "failed", failed, "workers", workers, "elapsed", common.PrettyDuration(time.Since(start)))
	return results, ctx.Err()
}
