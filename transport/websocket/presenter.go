package websocket

import (
	"context"
	"strings"
	"time"

	"github.com/wricardo/parkingjam/game/engine"
)

// SessionPresenter streams engine animations to the browser tabs watching a
// session. Each call returns once the animation would have finished
// client-side, or immediately when nobody is watching.
type SessionPresenter struct {
	hub       *Hub
	sessionID string
}

var _ engine.Presenter = (*SessionPresenter)(nil)

// Presenter returns the presenter for a session.
func (h *Hub) Presenter(sessionID string) *SessionPresenter {
	return &SessionPresenter{hub: h, sessionID: strings.ToLower(sessionID)}
}

func (p *SessionPresenter) AnimateMove(ctx context.Context, ref engine.ObjectRef, from, to engine.Location, d time.Duration) error {
	return p.play(ctx, EventAnimateMove, &Animation{
		Object:     ref,
		From:       &from,
		To:         &to,
		DurationMS: d.Milliseconds(),
	}, d)
}

func (p *SessionPresenter) AnimateFadeOut(ctx context.Context, ref engine.ObjectRef, d time.Duration) error {
	return p.play(ctx, EventAnimateFadeOut, &Animation{
		Object:     ref,
		DurationMS: d.Milliseconds(),
	}, d)
}

func (p *SessionPresenter) play(ctx context.Context, event string, anim *Animation, d time.Duration) error {
	if p.hub.ClientCount(p.sessionID) == 0 {
		return nil
	}
	p.hub.enqueue(&Message{
		SessionID: p.sessionID,
		Event:     event,
		Animation: anim,
	})
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
