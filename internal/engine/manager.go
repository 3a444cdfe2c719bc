package engine

import (
	"context"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/videoteka/videoteka/internal/app"
	"github.com/videoteka/videoteka/internal/domain"
)

// QueueManager owns the job table and the pending queue. Every mutation,
// whether a user command or a worker callback, goes through its mutex, so
// aggregate reads (active count, queue order) are always consistent.
type QueueManager struct {
	mu  sync.Mutex
	app *app.Context

	jobs    map[string]*domain.Job
	pending []string // queued job ids, FIFO dispatch order
	active  int
	limit   int
	nextPos int

	maxAttempts int
	keepPartial bool
	backoffBase time.Duration

	runCtx context.Context
	wg     sync.WaitGroup

	bus *bus
}

// NewQueueManager initializes the manager. With loadExisting set, persisted
// non-terminal jobs are restored; jobs that were downloading or paused when
// the daemon last stopped re-enter the queue (partial files on disk let the
// tool continue where it left off).
func NewQueueManager(appCtx *app.Context, loadExisting bool) *QueueManager {
	m := &QueueManager{
		app:         appCtx,
		jobs:        make(map[string]*domain.Job),
		limit:       appCtx.Config.Download.MaxConcurrent,
		maxAttempts: appCtx.Config.Download.MaxAttempts,
		keepPartial: appCtx.Config.Download.KeepPartial,
		backoffBase: time.Second,
		bus:         newBus(),
	}

	if loadExisting && appCtx.Store != nil {
		saved, err := appCtx.Store.ActiveJobs()
		if err != nil {
			appCtx.Logger.Error("could not restore queue: %v", err)
			saved = nil
		}
		for _, job := range saved {
			if job.Status == domain.StatusDownloading || job.Status == domain.StatusPaused {
				job.Status = domain.StatusQueued
				_ = appCtx.Store.SaveJob(job)
			}
			m.jobs[job.ID] = job
			m.pending = append(m.pending, job.ID)
			if job.Position >= m.nextPos {
				m.nextPos = job.Position + 1
			}
		}
	}

	return m
}

// Run dispatches queued jobs until ctx is cancelled, then gracefully stops
// every live worker so partial output survives, and waits for them to
// finish. It blocks for the daemon's lifetime.
func (m *QueueManager) Run(ctx context.Context) {
	m.mu.Lock()
	m.runCtx = ctx
	m.dispatchLocked()
	m.mu.Unlock()

	<-ctx.Done()

	m.mu.Lock()
	for _, job := range m.jobs {
		if job.Status == domain.StatusDownloading && job.PendingStop == "" {
			job.PendingStop = domain.StatusPaused
			if job.CancelFunc != nil {
				job.CancelFunc()
			}
		}
	}
	m.mu.Unlock()

	m.wg.Wait()
}

// AddJobs creates one queued job per URL, sharing a single options snapshot,
// and returns the assigned ids. URLs are validated up front; nothing is
// created if any of them is rejected.
func (m *QueueManager) AddJobs(urls []string, opts domain.Options) ([]string, error) {
	if len(urls) == 0 {
		return nil, &domain.ValidationError{Field: "urls", Reason: "at least one URL is required"}
	}
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, &domain.ValidationError{Field: "url", Reason: "not an absolute http(s) URL: " + raw}
		}
	}
	if opts.DestDir == "" {
		opts.DestDir = m.app.Config.Download.Dir
	}

	m.mu.Lock()
	ids := make([]string, 0, len(urls))
	for _, u := range urls {
		job := &domain.Job{
			ID:       ksuid.New().String(),
			URL:      u,
			Options:  opts,
			Status:   domain.StatusQueued,
			Position: m.nextPos,
			AddedAt:  time.Now(),
		}
		m.nextPos++
		m.jobs[job.ID] = job
		m.pending = append(m.pending, job.ID)
		m.saveLocked(job)
		m.publishLocked(domain.Event{Type: domain.EventJobAdded, JobID: job.ID, NewState: job.Status})
		ids = append(ids, job.ID)
	}
	m.dispatchLocked()

	// Title probes join the WaitGroup so shutdown never leaves one
	// writing to a closed store; their context dies with the run loop.
	shuttingDown := m.runCtx != nil && m.runCtx.Err() != nil
	if m.app.Fetcher != nil && !shuttingDown {
		for i, id := range ids {
			m.wg.Add(1)
			go m.probeTitle(m.runCtx, id, urls[i])
		}
	}
	m.mu.Unlock()

	return ids, nil
}

// RemoveJob cancels and removes a job. Removing an id that is already gone
// is a no-op, not an error; a live download is terminated first and the
// worker completes the removal.
func (m *QueueManager) RemoveJob(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil
	}

	if job.Status == domain.StatusDownloading {
		if job.PendingStop == domain.StatusCancelled {
			return nil
		}
		job.PendingStop = domain.StatusCancelled
		if job.CancelFunc != nil {
			job.CancelFunc()
		}
		return nil
	}

	m.removeFromPendingLocked(id)
	if !job.Status.Terminal() {
		m.setStatusLocked(job, domain.StatusCancelled)
	}
	m.dropJobLocked(job)
	return nil
}

// PauseJob suspends a job. A downloading job's process is asked to stop
// gracefully; the state flips to Paused only after the worker has fully
// released the process handle. Pausing an already-paused job is a no-op.
func (m *QueueManager) PauseJob(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	m.pauseLocked(job)
	return nil
}

func (m *QueueManager) pauseLocked(job *domain.Job) {
	switch job.Status {
	case domain.StatusDownloading:
		if job.PendingStop != "" {
			return
		}
		job.PendingStop = domain.StatusPaused
		if job.CancelFunc != nil {
			job.CancelFunc()
		}
	case domain.StatusQueued:
		m.removeFromPendingLocked(job.ID)
		m.setStatusLocked(job, domain.StatusPaused)
	}
}

// ResumeJob puts a paused job back at the tail of the dispatch queue. It
// does not jump straight to downloading; it waits for a free slot like
// everything else.
func (m *QueueManager) ResumeJob(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status != domain.StatusPaused {
		return nil
	}

	// Tail of the queue means a fresh position too, or the displayed
	// order would disagree with dispatch order.
	job.Position = m.nextPos
	m.nextPos++
	m.setStatusLocked(job, domain.StatusQueued)
	m.pending = append(m.pending, id)
	m.dispatchLocked()
	return nil
}

// RetryJob re-queues a failed job as a fresh attempt with the same options.
func (m *QueueManager) RetryJob(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status != domain.StatusFailed {
		return nil
	}

	job.Error = ""
	job.Progress = nil
	job.Position = m.nextPos
	m.nextPos++
	m.setStatusLocked(job, domain.StatusQueued)
	m.pending = append(m.pending, id)
	m.dispatchLocked()
	return nil
}

// PauseAll suspends every queued and downloading job.
func (m *QueueManager) PauseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.jobs {
		m.pauseLocked(job)
	}
}

// ClearCompleted drops completed jobs from the live table. History keeps
// its own record of them.
func (m *QueueManager) ClearCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.jobs {
		if job.Status == domain.StatusCompleted {
			delete(m.jobs, job.ID)
			if m.app.Store != nil {
				if err := m.app.Store.DeleteJob(job.ID); err != nil {
					m.app.Logger.Error("delete job %s: %v", job.ID, err)
				}
			}
		}
	}
}

// SetConcurrencyLimit changes the worker cap. Raising it dispatches the new
// slack immediately; lowering it never preempts in-flight downloads, it only
// stops new ones from starting.
func (m *QueueManager) SetConcurrencyLimit(n int) error {
	if n < 1 || n > 10 {
		return &domain.ValidationError{Field: "concurrency", Reason: "must be between 1 and 10"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.limit = n
	m.dispatchLocked()
	return nil
}

// ReorderJob moves a queued job to newPos within the pending queue. Jobs
// that are no longer queued are unaffected; the call is then a silent no-op.
func (m *QueueManager) ReorderJob(id string, newPos int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, pid := range m.pending {
		if pid == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}

	m.pending = append(m.pending[:idx], m.pending[idx+1:]...)
	if newPos < 0 {
		newPos = 0
	}
	if newPos > len(m.pending) {
		newPos = len(m.pending)
	}
	m.pending = append(m.pending[:newPos], append([]string{id}, m.pending[newPos:]...)...)

	// Redistribute the pending jobs' own position values in the new queue
	// order. Positions of dispatched jobs stay untouched, so the overall
	// sort order keeps matching dispatch order.
	positions := make([]int, 0, len(m.pending))
	for _, pid := range m.pending {
		if job, ok := m.jobs[pid]; ok {
			positions = append(positions, job.Position)
		}
	}
	sort.Ints(positions)
	next := 0
	for _, pid := range m.pending {
		job, ok := m.jobs[pid]
		if !ok {
			continue
		}
		if job.Position != positions[next] {
			job.Position = positions[next]
			m.saveLocked(job)
		}
		next++
	}
}

// Jobs returns observer-safe clones of every job, queue order first.
func (m *QueueManager) Jobs() []*domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	jobs := make([]*domain.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job.Clone())
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].Position != jobs[j].Position {
			return jobs[i].Position < jobs[j].Position
		}
		return jobs[i].ID < jobs[j].ID
	})
	return jobs
}

// Job returns a clone of one job.
func (m *QueueManager) Job(id string) (*domain.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// Limit returns the configured concurrency cap.
func (m *QueueManager) Limit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limit
}

// ActiveCount returns the number of jobs currently downloading.
func (m *QueueManager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Subscribe registers an observer. Events are dropped rather than letting a
// slow observer stall a worker, so size buf for the expected burst.
func (m *QueueManager) Subscribe(buf int) (<-chan domain.Event, func()) {
	return m.bus.subscribe(buf)
}

// dispatchLocked assigns queued jobs to free worker slots. Callers hold the
// mutex.
func (m *QueueManager) dispatchLocked() {
	if m.runCtx == nil || m.runCtx.Err() != nil {
		return
	}

	for m.active < m.limit && len(m.pending) > 0 {
		id := m.pending[0]
		m.pending = m.pending[1:]

		job, ok := m.jobs[id]
		if !ok || job.Status != domain.StatusQueued {
			continue
		}

		jobCtx, cancel := context.WithCancel(m.runCtx)
		job.CancelFunc = cancel
		m.active++
		m.setStatusLocked(job, domain.StatusDownloading)

		m.wg.Add(1)
		go m.runJob(jobCtx, job)
	}
}

// setStatusLocked changes the state, persists it and notifies observers.
func (m *QueueManager) setStatusLocked(job *domain.Job, status domain.JobStatus) {
	old := job.Status
	if old == status {
		return
	}
	job.Status = status
	m.saveLocked(job)
	m.publishLocked(domain.Event{
		Type:     domain.EventStateChanged,
		JobID:    job.ID,
		OldState: old,
		NewState: status,
	})
}

func (m *QueueManager) saveLocked(job *domain.Job) {
	if m.app.Store == nil {
		return
	}
	if err := m.app.Store.SaveJob(job); err != nil {
		m.app.Logger.Error("persist job %s: %v", job.ID, err)
	}
}

func (m *QueueManager) publishLocked(ev domain.Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	m.bus.publish(ev)
}

func (m *QueueManager) removeFromPendingLocked(id string) {
	for i, pid := range m.pending {
		if pid == id {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

// dropJobLocked removes the job from the table and the store, and deletes
// partial artifacts unless configured to keep them.
func (m *QueueManager) dropJobLocked(job *domain.Job) {
	delete(m.jobs, job.ID)
	if m.app.Store != nil {
		if err := m.app.Store.DeleteJob(job.ID); err != nil {
			m.app.Logger.Error("delete job %s: %v", job.ID, err)
		}
	}
	if !m.keepPartial && job.Status == domain.StatusCancelled {
		m.cleanupPartial(job)
	}
}

func (m *QueueManager) probeTitle(ctx context.Context, id, url string) {
	defer m.wg.Done()

	if ctx == nil {
		// Manager not running yet; probe standalone.
		ctx = context.Background()
	}
	info, err := m.app.Fetcher.Probe(ctx, url)
	if err != nil || info.Title == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Title != "" {
		return
	}
	job.Title = info.Title
	m.saveLocked(job)
	m.publishLocked(domain.Event{Type: domain.EventJobUpdated, JobID: id})
}
