package transport

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskQueueSize = 100

// handshakeWork is run by a pool worker for each accepted connection.
type handshakeWork func(t *tomb.Tomb, conn any) error

// workerPool runs a fixed number of goroutines, each pulling connections off
// a shared queue and handshaking them. Unlike a pool that grows workers in a
// busy-spin loop, size workers are started once and block on the channel.
type workerPool struct {
	size  int
	tasks chan any
	work  handshakeWork
}

func newWorkerPool(size int, work handshakeWork) *workerPool {
	return &workerPool{
		size:  size,
		tasks: make(chan any, taskQueueSize),
		work:  work,
	}
}

// run starts the pool's workers under t and blocks until t is dying.
func (p *workerPool) run(t *tomb.Tomb) {
	for id := 0; id < p.size; id++ {
		id := id
		t.Go(func() error {
			return p.worker(t, id)
		})
	}
	<-t.Dying()
}

func (p *workerPool) worker(t *tomb.Tomb, id int) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-p.tasks:
			if err := p.work(t, task); err != nil {
				log.Error().Err(err).Int("worker", id).Msg("handshake worker error")
			}
		}
	}
}

// submit enqueues a connection for handshaking. Never blocks indefinitely
// longer than it takes t to start dying.
func (p *workerPool) submit(t *tomb.Tomb, conn any) {
	select {
	case p.tasks <- conn:
	case <-t.Dying():
	}
}
