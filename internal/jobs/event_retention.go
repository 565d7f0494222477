package jobs

import (
	"context"
	"log"
	"sync"
	"time"
)

// EventPruner deletes voice events older than a cutoff.
type EventPruner interface {
	DeleteVoiceEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventRetentionJob periodically removes voice turn events older than the
// retention period.
type EventRetentionJob struct {
	pruner    EventPruner
	logger    *log.Logger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewEventRetentionJob creates the job. A zero interval runs hourly; a zero
// retention keeps 30 days.
func NewEventRetentionJob(pruner EventPruner, logger *log.Logger, retention, interval time.Duration) *EventRetentionJob {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &EventRetentionJob{
		pruner:    pruner,
		logger:    logger,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background job.
func (j *EventRetentionJob) Start() {
	j.wg.Add(1)
	go j.run()
	j.logger.Printf("EventRetentionJob: started (retention=%v, interval=%v)", j.retention, j.interval)
}

// Stop stops the job and waits for a running prune to finish. Safe to call
// more than once.
func (j *EventRetentionJob) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
	j.wg.Wait()
}

func (j *EventRetentionJob) run() {
	defer j.wg.Done()

	// Run immediately on start
	j.prune()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.prune()
		case <-j.stopCh:
			return
		}
	}
}

func (j *EventRetentionJob) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := j.now().Add(-j.retention)
	n, err := j.pruner.DeleteVoiceEventsBefore(ctx, cutoff)
	if err != nil {
		j.logger.Printf("EventRetentionJob: prune failed: %v", err)
		return
	}
	if n > 0 {
		j.logger.Printf("EventRetentionJob: deleted %d events before %s", n, cutoff.Format(time.RFC3339))
	}
}
