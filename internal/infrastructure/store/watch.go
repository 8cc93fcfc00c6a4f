package store

import (
	"context"

	"github.com/doeshing/gadget-go/internal/domain"
)

// SubscribeAll streams the full command list, newest first. A snapshot is
// sent immediately and again after every insert or status change. A slow
// reader only ever sees the latest snapshot. The channel closes when ctx ends
// or the store is closed.
func (s *SQLiteStore) SubscribeAll(ctx context.Context) (<-chan []domain.Command, error) {
	initial, err := s.List(ctx, 0)
	if err != nil {
		return nil, err
	}

	ch := make(chan []domain.Command, 1)
	ch <- initial

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subMu.Lock()
		if sub, ok := s.subs[id]; ok {
			close(sub)
			delete(s.subs, id)
		}
		s.subMu.Unlock()
	}()

	return ch, nil
}

func (s *SQLiteStore) publish(ctx context.Context) {
	s.subMu.Lock()
	empty := len(s.subs) == 0
	s.subMu.Unlock()
	if empty {
		return
	}

	// pubMu keeps snapshots from being delivered out of order.
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	snapshot, err := s.List(context.WithoutCancel(ctx), 0)
	if err != nil {
		return
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}
