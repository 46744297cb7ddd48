package eventlog

import (
	"sync"
	"time"

	"tankarena/pkg/logger"
)

// Event kinds
const (
	KindConnect    = "connect"
	KindDisconnect = "disconnect"
	KindKill       = "kill"   // Player lost a tank to Other
	KindOrphan     = "orphan" // Player's tank removed after they left
)

const (
	flushEvery = time.Second
	flushBatch = 50
)

// Event is a single row. Player and Other are player slots, -1 when unused.
type Event struct {
	Kind   string
	Tick   uint64
	Player int64
	Other  int64
	Conn   string
	At     time.Time
}

// Recorder queues events and writes them in batches
type Recorder struct {
	db     *DB
	events chan Event
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	mu      sync.Mutex
	dropped int
}

// NewRecorder starts the background writer. A nil db makes Track a no-op.
func NewRecorder(db *DB) *Recorder {
	r := &Recorder{
		db:     db,
		events: make(chan Event, 1024),
		stop:   make(chan struct{}),
	}
	r.wg.Add(1)
	go r.writer()
	return r
}

// Track enqueues an event without blocking. When the queue is full the
// event is dropped and counted.
func (r *Recorder) Track(e Event) {
	if r == nil || r.db == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	select {
	case r.events <- e:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
	}
}

// Dropped returns how many events Track discarded
func (r *Recorder) Dropped() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// DB returns the database the recorder writes to, possibly nil
func (r *Recorder) DB() *DB {
	if r == nil {
		return nil
	}
	return r.db
}

// Stop flushes queued events and waits for the writer to exit. Track must
// not be called afterwards.
func (r *Recorder) Stop() {
	r.once.Do(func() {
		close(r.stop)
		r.wg.Wait()
	})
}

// writer is the background goroutine that batches events
func (r *Recorder) writer() {
	defer r.wg.Done()

	batch := make([]Event, 0, flushBatch)
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()

	for {
		select {
		case e := <-r.events:
			batch = append(batch, e)
			if len(batch) >= flushBatch {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-r.stop:
			for {
				select {
				case e := <-r.events:
					batch = append(batch, e)
				default:
					r.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes a batch in one transaction
func (r *Recorder) flush(events []Event) {
	if r.db == nil || len(events) == 0 {
		return
	}
	log := logger.Log.WithField("events", len(events))

	tx, err := r.db.conn.Begin()
	if err != nil {
		log.WithError(err).Warn("eventlog: begin tx")
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO events (kind, tick, player, other, conn_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		log.WithError(err).Warn("eventlog: prepare")
		return
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.Exec(e.Kind, int64(e.Tick), e.Player, e.Other, e.Conn, e.At.Format(time.RFC3339)); err != nil {
			log.WithError(err).WithField("kind", e.Kind).Warn("eventlog: insert")
		}
	}
	if err := tx.Commit(); err != nil {
		log.WithError(err).Warn("eventlog: commit")
	}
}
