package mailbox

import (
	"context"
	"sync"
	"time"
)

// autosaver periodically saves every resident mailbox on its own goroutine.
type autosaver struct {
	stopCh chan struct{}
	done   chan struct{}
	once   sync.Once
}

func startAutosave(s *service, interval time.Duration) *autosaver {
	a := &autosaver{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go a.run(s, interval)
	return a
}

func (a *autosaver) run(s *service, interval time.Duration) {
	defer close(a.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.tick(s)
		}
	}
}

func (a *autosaver) tick(s *service) {
	ctx := context.Background()
	release, err := s.begin(ctx)
	if err != nil {
		return
	}
	defer release()

	start := time.Now()
	res, err := s.saveAll(ctx, saveTriggerAutosave)
	if err != nil {
		s.logger.Warn("autosave incomplete", "saved", res.Saved, "failed", len(res.Failed), "error", err)
		return
	}
	s.logger.Debug("autosave complete", "saved", res.Saved, "duration", time.Since(start))
}

// stop ends the worker and waits for a running save to finish.
func (a *autosaver) stop() {
	a.once.Do(func() { close(a.stopCh) })
	<-a.done
}
