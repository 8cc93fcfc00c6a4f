package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/doeshing/gadget-go/internal/domain"
	"github.com/doeshing/gadget-go/internal/ports"
)

// Service turns user text into a persisted command and routes it to the
// best available transport: cached answer, remote relay, then local link.
type Service struct {
	Store        ports.CommandStore
	Cache        ports.ResponseCache
	Cooldown     ports.CooldownGate
	Remote       ports.RemoteTransport
	Link         ports.LinkTransport
	Connectivity ports.ConnectivityProbe
	Logger       ports.Logger
	Clock        ports.Clock

	inflight sync.WaitGroup
}

// Ticket tracks one accepted submission.
type Ticket struct {
	Command domain.Command

	done   chan struct{}
	result domain.SubmitResult
}

func newTicket(cmd domain.Command) *Ticket {
	return &Ticket{Command: cmd, done: make(chan struct{})}
}

func (t *Ticket) complete(result domain.SubmitResult) {
	t.result = result
	close(t.done)
}

// Done is closed once the command has reached a terminal status.
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the submission resolves or ctx ends. Cancelling ctx
// abandons the wait only; the transport keeps running and still records its
// outcome.
func (t *Ticket) Wait(ctx context.Context) (domain.SubmitResult, error) {
	select {
	case <-t.done:
		return t.result, t.result.Err
	case <-ctx.Done():
		return domain.SubmitResult{Command: t.Command}, ctx.Err()
	}
}

// Dispatch submits raw and waits for the outcome.
func (s *Service) Dispatch(ctx context.Context, raw string) (domain.SubmitResult, error) {
	ticket, err := s.Submit(ctx, raw)
	if err != nil {
		return domain.SubmitResult{Err: err}, err
	}
	return ticket.Wait(ctx)
}

// Submit validates raw, applies the cooldown, and either answers from the
// cache or starts the transport in the background. Rejected submissions leave
// no trace in the store.
func (s *Service) Submit(ctx context.Context, raw string) (*Ticket, error) {
	if s.Store == nil || s.Cooldown == nil || s.Connectivity == nil || s.Logger == nil {
		return nil, errors.New("dispatch.Service dependencies not satisfied")
	}

	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, domain.ErrEmptyCommand
	}
	if !s.Cooldown.Admit(s.now()) {
		return nil, domain.ErrThrottled
	}

	key := domain.CacheKey(text)
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(key); ok {
			return s.answerFromCache(ctx, text, cached)
		}
	}

	state := s.Connectivity.State(ctx)
	var (
		transport domain.Transport
		send      func(context.Context) (string, error)
	)
	switch {
	case state.InternetReachable && s.Remote != nil:
		transport = domain.TransportRemote
		send = func(ctx context.Context) (string, error) {
			return s.Remote.Send(ctx, text)
		}
	case state.LinkConnected && s.Link != nil:
		transport = domain.TransportLink
		send = func(ctx context.Context) (string, error) {
			// The link has no reply channel; a clean write is the whole success.
			return "", s.Link.Write(ctx, []byte(text))
		}
	default:
		s.Logger.Debug("no transport available", map[string]interface{}{
			"internet": state.InternetReachable,
			"link":     state.LinkConnected,
		})
		return nil, domain.ErrNoTransportAvailable
	}

	cmd, err := s.Store.Enqueue(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("enqueue command: %w", err)
	}
	s.Logger.Info("command dispatched", map[string]interface{}{
		"id":        cmd.ID,
		"transport": string(transport),
	})

	ticket := newTicket(cmd)
	bg := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		response, sendErr := runTransport(bg, send)
		ticket.complete(s.finish(bg, cmd, key, transport, response, sendErr))
	}()
	return ticket, nil
}

// Wait blocks until every background transport has recorded its outcome.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// answerFromCache records the hit as an already resolved command. Once the
// row exists it must leave pending, so the caller's cancellation is ignored.
func (s *Service) answerFromCache(ctx context.Context, text, cached string) (*Ticket, error) {
	bg := context.WithoutCancel(ctx)
	cmd, err := s.Store.Enqueue(bg, text)
	if err != nil {
		return nil, fmt.Errorf("enqueue command: %w", err)
	}
	done, err := s.Store.UpdateStatus(bg, cmd.ID, domain.StatusSuccess, cached, domain.TransportCache)
	if err != nil {
		return nil, fmt.Errorf("record cached response: %w", err)
	}
	s.Logger.Debug("answered from cache", map[string]interface{}{"id": cmd.ID})

	ticket := newTicket(done)
	ticket.complete(domain.SubmitResult{
		Command:   done,
		Response:  cached,
		FromCache: true,
		Transport: domain.TransportCache,
	})
	return ticket, nil
}

func (s *Service) finish(ctx context.Context, cmd domain.Command, key string, transport domain.Transport, response string, sendErr error) domain.SubmitResult {
	status, stored := domain.StatusSuccess, response
	if sendErr != nil {
		status, stored = domain.StatusFailed, sendErr.Error()
		s.Logger.Warn("transport failed", map[string]interface{}{
			"id":        cmd.ID,
			"transport": string(transport),
			"error":     sendErr.Error(),
		})
	}

	updated, err := s.Store.UpdateStatus(ctx, cmd.ID, status, stored, transport)
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		// A push message already resolved this command; report what was stored.
		s.Logger.Warn("command already resolved", map[string]interface{}{
			"id":        cmd.ID,
			"transport": string(transport),
		})
		current, getErr := s.Store.Get(ctx, cmd.ID)
		if getErr != nil {
			s.Logger.Error("load resolved command", getErr, map[string]interface{}{"id": cmd.ID})
			return domain.SubmitResult{Command: cmd, Transport: transport, Err: fmt.Errorf("load resolved command %d: %w", cmd.ID, getErr)}
		}
		return resultFor(current, nil)
	case err != nil:
		s.Logger.Error("persist command status", err, map[string]interface{}{"id": cmd.ID})
		cmd.Status = status
		return domain.SubmitResult{Command: cmd, Transport: transport, Err: fmt.Errorf("persist status: %w", err)}
	}
	if sendErr != nil {
		return resultFor(updated, fmt.Errorf("%w: %w", domain.ErrDispatchFailed, sendErr))
	}
	// Cache only what the store accepted, so both agree on the reply.
	if transport == domain.TransportRemote && s.Cache != nil {
		s.Cache.Put(key, response)
	}
	return resultFor(updated, nil)
}

func resultFor(cmd domain.Command, err error) domain.SubmitResult {
	result := domain.SubmitResult{
		Command:   cmd,
		Transport: cmd.Transport,
		FromCache: cmd.Transport == domain.TransportCache,
		Err:       err,
	}
	if cmd.Status == domain.StatusSuccess {
		result.Response = cmd.Response
	}
	return result
}

// runTransport shields the dispatcher from a misbehaving transport.
func runTransport(ctx context.Context, send func(context.Context) (string, error)) (response string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport panic: %v", r)
		}
	}()
	return send(ctx)
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}
