package worker

import (
	"context"
	"os"
	"syscall"
	"time"

	"feedcrawler/internal/domain/entity"
)

// leaseStore is the subset of the Store the lease needs.
type leaseStore interface {
	GetCrawlerStatus(ctx context.Context) (*entity.CrawlerStatus, error)
	UpdateCrawlerStatus(ctx context.Context, u entity.CrawlerStatusUpdate) error
}

// acquireLease implements the singleton worker lease: if another process
// already holds a live lease, it returns acquired=false without touching
// the row. Otherwise it atomically claims the lease for the current
// process and returns acquired=true.
func acquireLease(ctx context.Context, s leaseStore) (acquired bool, err error) {
	status, err := s.GetCrawlerStatus(ctx)
	if err != nil {
		return false, err
	}

	self := os.Getpid()
	parent := os.Getppid()
	if status.IsCrawling && status.WorkerPID != nil && *status.WorkerPID != self && *status.WorkerPID != parent && pidAlive(*status.WorkerPID) {
		return false, nil
	}

	now := time.Now()
	isCrawling := true
	task := entity.TaskInitializing
	pid := self
	if err := s.UpdateCrawlerStatus(ctx, entity.CrawlerStatusUpdate{
		IsCrawling:  &isCrawling,
		LastRun:     &now,
		CurrentTask: &task,
		WorkerPID:   &pid,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// releaseLease resets the CrawlerStatus singleton to its idle terminal
// state. Called unconditionally from the cycle's teardown block, whether
// the cycle succeeded, failed, or panicked.
func releaseLease(ctx context.Context, s leaseStore, lastError string) error {
	isCrawling := false
	task := entity.TaskIdle
	u := entity.CrawlerStatusUpdate{
		IsCrawling:     &isCrawling,
		CurrentTask:    &task,
		ClearWorkerPID: true,
	}
	if lastError != "" {
		u.LastError = &lastError
	}
	return s.UpdateCrawlerStatus(ctx, u)
}

// pidAlive reports whether pid names a running process, using signal 0 to
// probe without actually signaling it. A permission-denied result still
// means the process exists (just owned by another user), so it counts as
// alive.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil || err == syscall.EPERM {
		return true
	}
	return false
}
