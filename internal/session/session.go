package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/keepsake/internal/engine"
)

// saveTimeout bounds one store round trip from the event loop.
const saveTimeout = 10 * time.Second

// Sender delivers outbound messages. Client implements it.
type Sender interface {
	Send(msg *Message)
}

// Session is one live editing session of a design. A single goroutine owns
// the engine; inbound messages are processed one at a time, in order, each
// to completion.
type Session struct {
	ID       string
	DesignID string
	UserID   string

	hub     *Hub
	engine  *engine.Engine
	version int
	out     Sender

	inbox     chan *Message
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(hub *Hub, id, designID, userID string, eng *engine.Engine, version int, out Sender) *Session {
	return &Session{
		ID:       id,
		DesignID: designID,
		UserID:   userID,
		hub:      hub,
		engine:   eng,
		version:  version,
		out:      out,
		inbox:    make(chan *Message, 64),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Deliver queues an inbound message. It drops the message once the session
// has closed.
func (s *Session) Deliver(msg *Message) {
	select {
	case s.inbox <- msg:
	case <-s.done:
	}
}

// Close stops the event loop, saving the design if it changed, and waits for
// it to exit. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.done
	s.hub.release(s)
}

// Done is closed once the event loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) run(autosave time.Duration) {
	defer close(s.done)

	var tick <-chan time.Time
	if autosave > 0 {
		ticker := time.NewTicker(autosave)
		defer ticker.Stop()
		tick = ticker.C
	}

	s.send(TypeWelcome, WelcomePayload{SessionID: s.ID, Version: s.version})
	s.sendFrame()

	for {
		select {
		case msg := <-s.inbox:
			s.handle(msg)
		case <-tick:
			if err := s.save(); err != nil {
				slog.Error("autosave failed", "design", s.DesignID, "error", err)
			}
		case <-s.quit:
			s.drain()
			s.engine.Scene().Teardown()
			if err := s.save(); err != nil {
				slog.Error("save on close failed", "design", s.DesignID, "error", err)
			}
			return
		}
	}
}

// drain applies messages queued before the session was closed.
func (s *Session) drain() {
	for {
		select {
		case msg := <-s.inbox:
			s.handle(msg)
		default:
			return
		}
	}
}

func (s *Session) handle(msg *Message) {
	if err := s.apply(msg); err != nil {
		slog.Warn("session message failed", "design", s.DesignID, "type", msg.Type, "error", err)
		s.send(TypeError, ErrorPayload{Message: err.Error(), Seq: msg.Seq})
		return
	}
	if msg.Type != TypeDocSave {
		s.sendFrame()
	}
}

func (s *Session) apply(msg *Message) error {
	e := s.engine
	switch msg.Type {
	case TypePointer:
		return e.HandlePointer(string(msg.Payload))

	case TypeKey:
		var p KeyPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		e.HandleKey(p.Key)

	case TypeEditText:
		var p EditTextPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		e.EditText(p.Text)

	case TypeEditBlur:
		e.Blur()

	case TypeBackground:
		e.Scene().Background()

	case TypeModes:
		return e.SetModes(string(msg.Payload))

	case TypeEntityAdd:
		var p EntityAddPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		id, err := e.AddEntity(string(p.Kind), string(p.Patch))
		if err != nil {
			return err
		}
		s.send(TypeEntityAdded, EntityAddedPayload{ID: id, Kind: p.Kind})

	case TypeEntityUpdate:
		var p EntityUpdatePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return e.UpdateEntity(p.ID, string(p.Patch))

	case TypeEntityRemove:
		var p EntityRemovePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return e.RemoveEntity(p.ID)

	case TypeLayerVisibility:
		var p LayerVisibilityPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return e.SetLayerVisible(p.LayerID, p.Visible)

	case TypeLayerMove:
		var p LayerMovePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return e.MoveLayer(p.LayerID, p.Index)

	case TypeLayerRaise, TypeLayerLower:
		var p LayerPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		if msg.Type == TypeLayerRaise {
			return e.RaiseLayer(p.LayerID)
		}
		return e.LowerLayer(p.LayerID)

	case TypeBaseSet:
		var p BaseSetPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		b, err := s.hub.catalog.Lookup(p.ID)
		if err != nil {
			return err
		}
		e.SetBase(b.Object())

	case TypeDocSave:
		if err := s.save(); err != nil {
			return err
		}
		s.send(TypeSaved, SavedPayload{Version: s.version})

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

// save persists the design when it changed since the last save. It refuses
// with store.ErrVersionConflict when the stored design was replaced behind
// the session's back, for example by a REST PUT that raced Hub.Open.
func (s *Session) save() error {
	if !s.engine.Dirty() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	snap, err := s.engine.Snapshot().Clone()
	if err != nil {
		return fmt.Errorf("copy design: %w", err)
	}
	v, err := s.hub.store.Update(ctx, s.DesignID, s.version, snap)
	if err != nil {
		return fmt.Errorf("save design: %w", err)
	}
	s.engine.MarkSaved()
	s.version = v
	slog.Debug("design saved", "design", s.DesignID, "version", v)
	return nil
}

func (s *Session) sendFrame() {
	s.out.Send(&Message{
		Type:     TypeFrame,
		DesignID: s.DesignID,
		Payload:  json.RawMessage(s.engine.Render()),
	})
}

func (s *Session) send(typ string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal payload", "type", typ, "error", err)
		return
	}
	s.out.Send(&Message{Type: typ, DesignID: s.DesignID, Payload: data})
}

func decode(msg *Message, v any) error {
	if len(msg.Payload) == 0 {
		return errors.New("missing payload")
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
	}
	return nil
}
