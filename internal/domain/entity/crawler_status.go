package entity

import "time"

// Worker current_task values, in the order a cycle passes through them.
// States may be skipped when there is no work; the terminal state on every
// path is Idle.
const (
	TaskInitializing = "Initializing"
	TaskPhase1       = "Phase 1"
	TaskPhase2       = "Phase 2"
	TaskPhase2Point5 = "Phase 2.5"
	TaskPhase3       = "Phase 3"
	TaskIdle         = "Idle"
)

// CrawlerStatus is the singleton row tracking the ingestion worker's
// progress and lease ownership. Invariant: WorkerPID is non-nil iff
// IsCrawling is true.
type CrawlerStatus struct {
	IsCrawling        bool
	LastRun           *time.Time
	CurrentTask       string
	ArticlesProcessed int
	LastError         string
	WorkerPID         *int
}

// CrawlerStatusUpdate carries a partial update: only fields set (non-nil)
// are written by the Store's atomic update. WorkerPID/ClearWorkerPID let a
// caller distinguish "leave unchanged" from "set to null": set ClearWorkerPID
// to write NULL regardless of WorkerPID's value.
type CrawlerStatusUpdate struct {
	IsCrawling        *bool
	LastRun           *time.Time
	CurrentTask       *string
	ArticlesProcessed *int
	LastError         *string
	WorkerPID         *int
	ClearWorkerPID    bool
}
