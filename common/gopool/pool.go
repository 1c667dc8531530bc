// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

// Package gopool runs analysis tasks on a shared goroutine pool.
package gopool

import (
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
)

// minMethodsPerWorker is the number of methods each extra worker must have.
const minMethodsPerWorker = 4

// Pool is a bounded pool owned by one caller.
type Pool struct {
	p *ants.Pool
}

// New creates a pool with the given capacity. A non-positive size falls
// back to GOMAXPROCS.
func New(size int) (*Pool, error) {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	p, err := ants.NewPool(size, ants.WithExpiryDuration(10*time.Second))
	if err != nil {
		return nil, err
	}
	return &Pool{p: p}, nil
}

// Submit blocks until a worker is free, then runs task on it.
func (p *Pool) Submit(task func()) error { return p.p.Submit(task) }

// Cap returns the capacity of the pool.
func (p *Pool) Cap() int { return p.p.Cap() }

// Release closes the pool. Running tasks are not interrupted.
func (p *Pool) Release() { p.p.Release() }

// Threads returns how many workers to use for the given number of methods.
func Threads(tasks int) int {
	threads := tasks / minMethodsPerWorker
	if threads > runtime.GOMAXPROCS(0) {
		threads = runtime.GOMAXPROCS(0)
	} else if threads == 0 {
		threads = 1
	}
	return threads
}
