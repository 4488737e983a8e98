package jobs

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"bx-rounds/internal/logger"
)

type Job interface {
	Start(ctx context.Context)
}

// Func adapts a blocking function to a Job. A returned error is logged.
type Func struct {
	Name string
	Run  func(ctx context.Context) error
}

func (f Func) Start(ctx context.Context) {
	if err := f.Run(ctx); err != nil {
		logger.Log.Error("job failed", zap.String("job", f.Name), zap.Error(err))
	}
}

type Manager struct {
	jobs []Job
}

func New() *Manager {
	return &Manager{}
}

func (m *Manager) Register(job Job) {
	m.jobs = append(m.jobs, job)
}

// Start runs every job and returns once ctx is done and all jobs returned.
func (m *Manager) Start(ctx context.Context) {

	var wg sync.WaitGroup

	for _, job := range m.jobs {
		wg.Add(1)

		go func(j Job) {
			defer wg.Done()
			j.Start(ctx)
		}(job)
	}

	<-ctx.Done()
	wg.Wait()
}
