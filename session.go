package sregame

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/sregame/trace"
)

// Session is the root of every span recorded during one play session.
type Session struct {
	inst      *Instrumentation
	ctx       context.Context
	startedAt time.Time

	endOnce sync.Once
}

// Context returns the context carrying the session span.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Elapsed returns the time since the session started.
func (s *Session) Elapsed() time.Duration {
	return s.inst.now().Sub(s.startedAt)
}

// End ends the session span. Only the first call has an effect.
func (s *Session) End(err error) {
	s.endOnce.Do(func() {
		s.inst.handler.EndSession(s.ctx, err)
		s.inst.logger.Debug("session ended", "elapsed", s.Elapsed())
	})
}

// Interaction is one player interaction with an NPC. It is meant to be
// ended in the handler that started it.
type Interaction struct {
	inst      *Instrumentation
	ctx       context.Context
	npc       string
	startedAt time.Time

	endOnce sync.Once
}

// StartInteraction opens an interaction span under the session and counts it.
func (s *Session) StartInteraction(npc string, pos trace.Position, distance float64) *Interaction {
	now := s.inst.now()
	ctx := s.inst.handler.StartInteraction(s.ctx, &trace.InteractionData{
		Type:     "npc",
		NPCName:  npc,
		Position: pos,
		Distance: distance,
		Elapsed:  now.Sub(s.startedAt),
	})

	if s.inst.metrics != nil {
		s.inst.metrics.Interaction(ctx, npc)
	}

	return &Interaction{
		inst:      s.inst,
		ctx:       ctx,
		npc:       npc,
		startedAt: now,
	}
}

// Context returns the context carrying the interaction span. Pass it to
// StartDialogue to parent the dialogue to this interaction.
func (it *Interaction) Context() context.Context {
	return it.ctx
}

// End ends the interaction span and records its duration. Only the first
// call has an effect.
func (it *Interaction) End() {
	it.endOnce.Do(func() {
		it.inst.handler.EndInteraction(it.ctx, nil)
		if it.inst.metrics != nil {
			it.inst.metrics.InteractionDuration(it.ctx, it.npc, it.inst.now().Sub(it.startedAt))
		}
	})
}

// MapTransition is one change of the loaded map.
type MapTransition struct {
	inst    *Instrumentation
	ctx     context.Context
	endOnce sync.Once
}

// StartMapTransition opens a map transition span and counts it.
func (s *Session) StartMapTransition(from, to string, pos trace.Position) *MapTransition {
	now := s.inst.now()
	ctx := s.inst.handler.StartMapTransition(s.ctx, &trace.MapTransitionData{
		From:     from,
		To:       to,
		Position: pos,
		Elapsed:  now.Sub(s.startedAt),
	})

	if s.inst.metrics != nil {
		s.inst.metrics.MapTransition(ctx, from, to)
	}
	return &MapTransition{inst: s.inst, ctx: ctx}
}

// End ends the transition span; err marks a failed load. Only the first
// call has an effect.
func (m *MapTransition) End(err error) {
	m.endOnce.Do(func() {
		m.inst.handler.EndMapTransition(m.ctx, err)
	})
}
