// Package pipeline runs conversions on a bounded worker pool: fetch
// metadata, extract the full MP3, optionally trim it, register the artifact.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"yt2mp3/internal/artifact"
	"yt2mp3/internal/config"
	"yt2mp3/internal/media"
	"yt2mp3/internal/timefmt"
)

var (
	// ErrBusy means the job queue is full.
	ErrBusy = errors.New("conversion queue is full")
	// ErrClosed means the pool is shutting down.
	ErrClosed = errors.New("conversion pool is closed")
)

// Request is one conversion. Nil trim bounds mean "not requested".
type Request struct {
	URL       string
	TrimStart *int
	TrimEnd   *int
}

func (r Request) WantsTrim() bool {
	return r.TrimStart != nil || r.TrimEnd != nil
}

// TrimInfo is the effective window of a requested trim, in seconds. OpenEnd
// means the trim runs to the natural end of a video of unknown length; End
// then equals Start.
type TrimInfo struct {
	Start   int
	End     int
	OpenEnd bool
}

type Result struct {
	Artifact *artifact.Artifact
	// TrimInfo is set whenever a trim was requested, even if it failed,
	// unless the requested end is before the start.
	TrimInfo *TrimInfo
	// TrimWarning explains why a requested trim produced no file.
	TrimWarning string
}

type job struct {
	ctx  context.Context
	req  Request
	done chan outcome
}

type outcome struct {
	result *Result
	err    error
}

// Stats is a snapshot of the pool counters.
type Stats struct {
	Workers           int
	QueueCapacity     int
	Active            int64
	Queued            int64
	Completed         int64
	Failed            int64
	AvgProcessingTime time.Duration
}

type Pool struct {
	config    config.Config
	fetcher   media.Fetcher
	converter media.Converter
	trimmer   media.AudioTrimmer
	store     *artifact.Store

	mu     sync.RWMutex
	closed bool
	jobs   chan *job
	wg     sync.WaitGroup

	active          int64
	queued          int64
	completed       int64
	failed          int64
	processingNanos int64
}

// New starts cfg.WorkerPoolSize workers fed by a queue of
// cfg.JobQueueCapacity jobs.
func New(cfg config.Config, fetcher media.Fetcher, converter media.Converter, trimmer media.AudioTrimmer, store *artifact.Store) *Pool {
	workers := max(cfg.WorkerPoolSize, 1)
	p := &Pool{
		config:    cfg,
		fetcher:   fetcher,
		converter: converter,
		trimmer:   trimmer,
		store:     store,
		jobs:      make(chan *job, max(cfg.JobQueueCapacity, 0)),
	}
	for i := 1; i <= workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	log.Printf("🚀 Started %d conversion workers (queue %d)", workers, cap(p.jobs))
	return p
}

// Submit queues req and waits for its result. A full queue fails fast with
// ErrBusy. Cancelling ctx abandons the wait and kills the job's subprocesses.
func (p *Pool) Submit(ctx context.Context, req Request) (*Result, error) {
	j := &job{ctx: ctx, req: req, done: make(chan outcome, 1)}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, ErrClosed
	}
	atomic.AddInt64(&p.queued, 1)
	select {
	case p.jobs <- j:
	default:
		atomic.AddInt64(&p.queued, -1)
		p.mu.RUnlock()
		return nil, ErrBusy
	}
	p.mu.RUnlock()

	select {
	case out := <-j.done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) Stats() Stats {
	completed := atomic.LoadInt64(&p.completed)
	var avg time.Duration
	if completed > 0 {
		avg = time.Duration(atomic.LoadInt64(&p.processingNanos) / completed)
	}
	return Stats{
		Workers:           max(p.config.WorkerPoolSize, 1),
		QueueCapacity:     cap(p.jobs),
		Active:            atomic.LoadInt64(&p.active),
		Queued:            atomic.LoadInt64(&p.queued),
		Completed:         completed,
		Failed:            atomic.LoadInt64(&p.failed),
		AvgProcessingTime: avg,
	}
}

func (p *Pool) worker(workerID int) {
	defer p.wg.Done()
	for j := range p.jobs {
		p.process(workerID, j)
	}
}

func (p *Pool) process(workerID int, j *job) {
	atomic.AddInt64(&p.active, 1)
	atomic.AddInt64(&p.queued, -1)
	defer atomic.AddInt64(&p.active, -1)

	if err := j.ctx.Err(); err != nil {
		log.Printf("Worker %d: skipping abandoned job for %s", workerID, j.req.URL)
		atomic.AddInt64(&p.failed, 1)
		j.done <- outcome{err: err}
		return
	}

	start := time.Now()
	result, err := p.convert(j.ctx, j.req)
	if err != nil {
		atomic.AddInt64(&p.failed, 1)
		log.Printf("❌ Worker %d: conversion failed for %s: %v", workerID, j.req.URL, err)
	} else {
		elapsed := time.Since(start)
		atomic.AddInt64(&p.completed, 1)
		atomic.AddInt64(&p.processingNanos, int64(elapsed))
		log.Printf("✅ Worker %d: %s ready in %v", workerID, result.Artifact.FileID, elapsed.Round(time.Millisecond))
	}
	j.done <- outcome{result: result, err: err}
}

func (p *Pool) convert(ctx context.Context, req Request) (*Result, error) {
	fileID := artifact.NewID()
	log.Printf("[CONVERT] Starting conversion: %s", req.URL)
	if req.WantsTrim() {
		log.Printf("[CONVERT] Trim: %s to %s", boundString(req.TrimStart, "0"), boundString(req.TrimEnd, "end"))
	}

	info, err := p.fetcher.GetInfo(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch info: %w", err)
	}

	log.Println("[CONVERT] Converting full version...")
	fullPath := filepath.Join(p.config.ConvertedDir, fileID+"_full.mp3")
	if _, err := p.converter.ConvertToMP3(ctx, req.URL, fullPath); err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}
	fullStat, err := os.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}

	a := &artifact.Artifact{
		FileID:       fileID,
		Timestamp:    time.Now(),
		Info:         info,
		FullPath:     fullPath,
		FullSize:     fullStat.Size(),
		FullDuration: info.Duration,
		TrimStart:    req.TrimStart,
		TrimEnd:      req.TrimEnd,
	}
	result := &Result{Artifact: a}

	if req.WantsTrim() {
		window := Window(req.TrimStart, req.TrimEnd, info.Duration)
		if window.End >= window.Start {
			result.TrimInfo = &window
		}
		result.TrimWarning = p.trim(ctx, a, req, window)
	}

	if err := ctx.Err(); err != nil {
		log.Printf("[CONVERT] %s abandoned by the client, discarding output", fileID)
		removeQuiet(a.FullPath)
		removeQuiet(a.TrimmedPath)
		return nil, fmt.Errorf("convert: %w", err)
	}
	if err := p.store.Put(ctx, a); err != nil {
		removeQuiet(a.FullPath)
		removeQuiet(a.TrimmedPath)
		return nil, fmt.Errorf("register artifact: %w", err)
	}
	return result, nil
}

// trim fills in the trimmed fields of a, or returns a warning for the caller.
func (p *Pool) trim(ctx context.Context, a *artifact.Artifact, req Request, window TrimInfo) string {
	log.Println("[CONVERT] Creating trimmed version...")
	trimmedPath := filepath.Join(p.config.ConvertedDir, a.FileID+"_trimmed.mp3")

	if _, err := p.trimmer.TrimAudio(ctx, a.FullPath, trimmedPath, req.TrimStart, req.TrimEnd, a.FullDuration); err != nil {
		log.Printf("⚠️  [CONVERT] Trim failed: %v", err)
		if errors.Is(err, media.ErrInvalidTrim) {
			return fmt.Sprintf("Trim range %s-%s is not valid for this video; only the full version is available.",
				timefmt.Format(window.Start), timefmt.Format(window.End))
		}
		return "Trimming failed; only the full version is available."
	}
	st, err := os.Stat(trimmedPath)
	if err != nil {
		return "Trimming failed; only the full version is available."
	}

	size := st.Size()
	a.TrimmedPath = trimmedPath
	a.TrimmedSize = &size
	if duration := window.End - window.Start; !window.OpenEnd && duration > 0 {
		a.TrimmedDuration = &duration
		log.Printf("[CONVERT] Trimmed: %s to %s (%s)",
			timefmt.Format(window.Start), timefmt.Format(window.End), timefmt.Format(duration))
	} else {
		log.Printf("[CONVERT] Trimmed: %s to end (length unknown)", timefmt.Format(window.Start))
	}
	return ""
}

// Window resolves requested bounds against the video length: a missing start
// is 0, a missing end is the natural end, and an end past a known total is
// clamped to it. Without a usable end or a known total the window is open.
func Window(start, end *int, total int) TrimInfo {
	w := TrimInfo{End: total}
	if start != nil {
		w.Start = *start
	}
	switch {
	case end != nil && *end > 0 && (total <= 0 || *end < total):
		w.End = *end
	case total <= 0:
		w.End = w.Start
		w.OpenEnd = true
	}
	return w
}

func boundString(v *int, fallback string) string {
	if v == nil {
		return fallback
	}
	return fmt.Sprintf("%ds", *v)
}

func removeQuiet(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("⚠️  Failed to remove %s: %v", path, err)
	}
}
