// Package background corre trabajo diferido (escrituras al snapshot store) fuera del
// camino del lookup: una cola acotada y un único worker, así las escrituras salen en
// el orden en que se encolaron.
package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dropDatabas3/hellopos/internal/metrics"
	"github.com/dropDatabas3/hellopos/internal/observability/logger"
)

// Func trabajo encolado. El ctx se cancela al vencer Config.Timeout.
type Func func(ctx context.Context) error

// Failure una tarea que terminó con error (o panic).
type Failure struct {
	Name string    `json:"name"`
	Err  string    `json:"error"`
	At   time.Time `json:"at"`
}

// Config de la cola.
type Config struct {
	Size        int           // capacidad; default 16
	Timeout     time.Duration // por tarea; default 30s
	MaxFailures int           // cuántas fallas recordar; default 20
}

type task struct {
	name string
	fn   Func
}

// Queue cola con un worker. Crear con New.
type Queue struct {
	cfg   Config
	tasks chan task
	done  chan struct{}

	mu       sync.Mutex
	closed   bool
	pending  int
	idle     chan struct{}
	failures []Failure
}

// New arranca el worker.
func New(cfg Config) *Queue {
	if cfg.Size <= 0 {
		cfg.Size = 16
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 20
	}
	q := &Queue{
		cfg:   cfg,
		tasks: make(chan task, cfg.Size),
		done:  make(chan struct{}),
		idle:  closedChan(),
	}
	go q.run()
	return q
}

func closedChan() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

// Submit encola sin bloquear. Devuelve false si la cola está llena o cerrada;
// el caller decide si hace el trabajo inline.
func (q *Queue) Submit(name string, fn Func) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	select {
	case q.tasks <- task{name: name, fn: fn}:
	default:
		metrics.BackgroundTasks.WithLabelValues("rejected").Inc()
		return false
	}
	if q.pending == 0 {
		q.idle = make(chan struct{})
	}
	q.pending++
	return true
}

// Drain espera a que terminen todas las tareas encoladas hasta ahora.
func (q *Queue) Drain(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close deja de aceptar tareas, espera las pendientes y para el worker.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending tareas encoladas o corriendo.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Failures copia de las últimas fallas, la más vieja primero.
func (q *Queue) Failures() []Failure {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Failure(nil), q.failures...)
}

func (q *Queue) run() {
	defer close(q.done)
	log := logger.Named("background")
	for t := range q.tasks {
		start := time.Now()
		err := q.exec(t)
		if err != nil {
			metrics.BackgroundTasks.WithLabelValues("failed").Inc()
			log.Warn("background task failed", logger.Op(t.name), logger.Err(err), logger.Duration(time.Since(start)))
		} else {
			metrics.BackgroundTasks.WithLabelValues("ok").Inc()
			log.Debug("background task done", logger.Op(t.name), logger.Duration(time.Since(start)))
		}

		q.mu.Lock()
		if err != nil {
			q.failures = append(q.failures, Failure{Name: t.name, Err: err.Error(), At: time.Now()})
			if over := len(q.failures) - q.cfg.MaxFailures; over > 0 {
				q.failures = q.failures[over:]
			}
		}
		q.pending--
		if q.pending == 0 {
			close(q.idle)
		}
		q.mu.Unlock()
	}
}

func (q *Queue) exec(t task) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), q.cfg.Timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.fn(ctx)
}
