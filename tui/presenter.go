package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/wricardo/parkingjam/game/engine"
)

// Sender delivers messages to a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// AnimationMsg tells the model an animation started or, with Done set,
// finished. Key is unique per object and animation kind.
type AnimationMsg struct {
	Key      string
	Ref      engine.ObjectRef
	From     *engine.Location
	To       *engine.Location
	Fade     bool
	Duration time.Duration
	Start    time.Time
	Done     bool
}

// Presenter plays engine transitions as terminal frames. Every call blocks
// for the animation duration so the engine waits for the frames to finish.
type Presenter struct {
	sender Sender
}

var _ engine.Presenter = (*Presenter)(nil)

// NewPresenter returns a presenter that reports animations to s.
func NewPresenter(s Sender) *Presenter {
	return &Presenter{sender: s}
}

func (p *Presenter) AnimateMove(ctx context.Context, ref engine.ObjectRef, from, to engine.Location, d time.Duration) error {
	return p.play(ctx, AnimationMsg{
		Key:      fmt.Sprintf("%s/move", ref.ID),
		Ref:      ref,
		From:     &from,
		To:       &to,
		Duration: d,
	})
}

func (p *Presenter) AnimateFadeOut(ctx context.Context, ref engine.ObjectRef, d time.Duration) error {
	return p.play(ctx, AnimationMsg{
		Key:      fmt.Sprintf("%s/fade", ref.ID),
		Ref:      ref,
		Fade:     true,
		Duration: d,
	})
}

func (p *Presenter) play(ctx context.Context, msg AnimationMsg) error {
	msg.Start = time.Now()
	p.sender.Send(msg)
	defer func() {
		done := msg
		done.Done = true
		p.sender.Send(done)
	}()

	if msg.Duration <= 0 {
		return nil
	}
	timer := time.NewTimer(msg.Duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
