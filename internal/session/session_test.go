package session

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/keepsake/internal/catalog"
	"github.com/inamate/keepsake/internal/document"
	"github.com/inamate/keepsake/internal/engine"
	"github.com/inamate/keepsake/internal/store"
	"github.com/inamate/keepsake/internal/typeid"
)

const testUser = "user_1"

type memStore struct {
	mu      sync.Mutex
	records map[string]*store.Record
	saves   int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*store.Record)}
}

func (m *memStore) Load(_ context.Context, id string) (*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memStore) Save(_ context.Context, id string, snap *document.Snapshot) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone, err := snap.Clone()
	if err != nil {
		return 0, err
	}
	v := 1
	if rec, ok := m.records[id]; ok {
		v = rec.Version + 1
	}
	m.records[id] = &store.Record{ID: id, Version: v, UpdatedAt: time.Now(), Snapshot: clone}
	m.saves++
	return v, nil
}

func (m *memStore) Update(ctx context.Context, id string, version int, snap *document.Snapshot) (int, error) {
	m.mu.Lock()
	cur := 0
	if rec, ok := m.records[id]; ok {
		cur = rec.Version
	}
	m.mu.Unlock()
	if cur != version {
		return 0, store.ErrVersionConflict
	}
	return m.Save(ctx, id, snap)
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *memStore) List(context.Context) ([]store.Summary, error) { return nil, nil }
func (m *memStore) Close() error                                  { return nil }

func (m *memStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *memStore) record(id string) *store.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id]
}

type recorder struct {
	msgs chan *Message
}

func newRecorder() *recorder {
	return &recorder{msgs: make(chan *Message, 256)}
}

func (r *recorder) Send(msg *Message) { r.msgs <- msg }

// next returns the next message of type typ, discarding others.
func (r *recorder) next(t *testing.T, typ string) *Message {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg := <-r.msgs:
			if msg.Type == typ {
				return msg
			}
		case <-timeout:
			t.Fatalf("no %s message", typ)
			return nil
		}
	}
}

func (r *recorder) frame(t *testing.T) engine.Frame {
	t.Helper()
	var f engine.Frame
	require.NoError(t, json.Unmarshal(r.next(t, TypeFrame).Payload, &f))
	return f
}

func newTestHub(t *testing.T, autosave time.Duration) (*Hub, *memStore) {
	t.Helper()
	cat, err := catalog.Load("")
	require.NoError(t, err)
	st := newMemStore()
	return NewHub(st, cat, nil, autosave), st
}

func msg(typ string, seq int64, payload any) *Message {
	m := &Message{Type: typ, Seq: seq}
	if payload != nil {
		m.Payload, _ = json.Marshal(payload)
	}
	return m
}

func TestOpenNewDesign(t *testing.T) {
	hub, _ := newTestHub(t, 0)
	out := newRecorder()
	id := typeid.NewDesignID()

	s, err := hub.Open(context.Background(), id, testUser, out)
	require.NoError(t, err)
	defer s.Close()

	var welcome WelcomePayload
	require.NoError(t, json.Unmarshal(out.next(t, TypeWelcome).Payload, &welcome))
	assert.Equal(t, s.ID, welcome.SessionID)
	assert.Zero(t, welcome.Version)

	f := out.frame(t)
	assert.Empty(t, f.Drawables)
	assert.Equal(t, "gravestone-upright", f.Base.ID)
	assert.Equal(t, "idle", f.Interaction.State)

	assert.True(t, hub.Active(id))
	_, err = hub.Open(context.Background(), id, testUser, newRecorder())
	assert.ErrorIs(t, err, ErrSessionBusy)
}

func TestOpenExistingDesign(t *testing.T) {
	hub, st := newTestHub(t, 0)
	id := typeid.NewDesignID()
	_, err := st.Save(context.Background(), id, document.NewSampleSnapshot())
	require.NoError(t, err)

	out := newRecorder()
	s, err := hub.Open(context.Background(), id, testUser, out)
	require.NoError(t, err)
	defer s.Close()

	var welcome WelcomePayload
	require.NoError(t, json.Unmarshal(out.next(t, TypeWelcome).Payload, &welcome))
	assert.Equal(t, 1, welcome.Version)

	f := out.frame(t)
	assert.Len(t, f.Drawables, 4)
	assert.Equal(t, "Upright gravestone", f.Base.Name, "base details come from the catalog")
}

func TestEntityCommandsAndSave(t *testing.T) {
	hub, st := newTestHub(t, 0)
	out := newRecorder()
	id := typeid.NewDesignID()
	s, err := hub.Open(context.Background(), id, testUser, out)
	require.NoError(t, err)
	defer s.Close()
	out.frame(t)

	s.Deliver(msg(TypeEntityAdd, 1, map[string]any{
		"kind":  "text",
		"patch": map[string]any{"text": "In loving memory"},
	}))
	var added EntityAddedPayload
	require.NoError(t, json.Unmarshal(out.next(t, TypeEntityAdded).Payload, &added))
	assert.Equal(t, engine.KindText, added.Kind)
	f := out.frame(t)
	require.Len(t, f.Drawables, 1)
	assert.Equal(t, "In loving memory", f.Drawables[0].Text.Text)

	s.Deliver(msg(TypeEntityUpdate, 2, EntityUpdatePayload{ID: added.ID, Patch: json.RawMessage(`{"color":"#333333"}`)}))
	f = out.frame(t)
	assert.Equal(t, "#333333", f.Drawables[0].Text.Color)

	s.Deliver(msg(TypeDocSave, 3, nil))
	var saved SavedPayload
	require.NoError(t, json.Unmarshal(out.next(t, TypeSaved).Payload, &saved))
	assert.Equal(t, 1, saved.Version)

	rec := st.record(id)
	require.NotNil(t, rec)
	require.Len(t, rec.Snapshot.Texts, 1)
	assert.Equal(t, "#333333", rec.Snapshot.Texts[0].Color)

	// Nothing changed since, so a second save is a no-op.
	s.Deliver(msg(TypeDocSave, 4, nil))
	require.NoError(t, json.Unmarshal(out.next(t, TypeSaved).Payload, &saved))
	assert.Equal(t, 1, saved.Version)
	assert.Equal(t, 1, st.saveCount())

	s.Deliver(msg(TypeEntityRemove, 5, EntityRemovePayload{ID: added.ID}))
	assert.Empty(t, out.frame(t).Drawables)
}

func TestPointerAndKeyMessages(t *testing.T) {
	hub, st := newTestHub(t, 0)
	id := typeid.NewDesignID()
	snap := document.NewSampleSnapshot()
	textID := snap.Texts[0].ID
	_, err := st.Save(context.Background(), id, snap)
	require.NoError(t, err)

	out := newRecorder()
	s, err := hub.Open(context.Background(), id, testUser, out)
	require.NoError(t, err)
	defer s.Close()
	out.frame(t)

	s.Deliver(msg(TypePointer, 1, engine.PointerEvent{
		Type:   engine.PointerDown,
		Target: engine.Target{Type: engine.TargetEntity, Kind: engine.KindText, ID: textID},
		World:  &engine.Vec3{X: 0, Y: -0.1},
	}))
	f := out.frame(t)
	assert.Equal(t, "selected", f.Interaction.State)
	assert.Equal(t, textID, f.Interaction.Selected)

	s.Deliver(msg(TypePointer, 2, engine.PointerEvent{Type: engine.PointerUp}))
	out.frame(t)

	s.Deliver(msg(TypeKey, 3, KeyPayload{Key: "Escape"}))
	f = out.frame(t)
	assert.Equal(t, "idle", f.Interaction.State)
	assert.True(t, f.Interaction.CameraEnabled)

	s.Deliver(msg(TypeModes, 4, engine.Modes{Locked: true}))
	f = out.frame(t)
	assert.False(t, f.Interaction.CameraEnabled)
}

func TestMessageErrors(t *testing.T) {
	hub, _ := newTestHub(t, 0)
	out := newRecorder()
	s, err := hub.Open(context.Background(), typeid.NewDesignID(), testUser, out)
	require.NoError(t, err)
	defer s.Close()
	out.frame(t)

	tests := []struct {
		name string
		msg  *Message
	}{
		{"unknown type", msg("presence.update", 1, nil)},
		{"missing payload", msg(TypeKey, 2, nil)},
		{"bad payload", &Message{Type: TypeEntityRemove, Seq: 3, Payload: json.RawMessage(`[1]`)}},
		{"unknown entity", msg(TypeEntityUpdate, 4, EntityUpdatePayload{ID: "text_missing", Patch: json.RawMessage(`{}`)})},
		{"unknown kind", msg(TypeEntityAdd, 5, map[string]any{"kind": "sticker"})},
		{"unknown base", msg(TypeBaseSet, 6, BaseSetPayload{ID: "obelisk"})},
		{"unknown layer", msg(TypeLayerMove, 7, LayerMovePayload{LayerID: "text-nope", Index: 0})},
		{"raise unknown layer", msg(TypeLayerRaise, 8, LayerPayload{LayerID: "text-nope"})},
		{"lower without payload", msg(TypeLayerLower, 9, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.Deliver(tt.msg)
			var p ErrorPayload
			require.NoError(t, json.Unmarshal(out.next(t, TypeError).Payload, &p))
			assert.Equal(t, tt.msg.Seq, p.Seq)
			assert.NotEmpty(t, p.Message)
		})
	}
}

func TestLayerRaiseAndLower(t *testing.T) {
	hub, st := newTestHub(t, 0)
	id := typeid.NewDesignID()
	snap := document.NewSampleSnapshot()
	_, err := st.Save(context.Background(), id, snap)
	require.NoError(t, err)

	out := newRecorder()
	s, err := hub.Open(context.Background(), id, testUser, out)
	require.NoError(t, err)
	defer s.Close()
	before := out.frame(t).Drawables
	require.Len(t, before, 4)
	bottom := before[0]

	tests := []struct {
		name string
		typ  string
		want int
	}{
		{"raise", TypeLayerRaise, 1},
		{"raise again", TypeLayerRaise, 2},
		{"lower", TypeLayerLower, 1},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.Deliver(msg(tt.typ, int64(i+1), LayerPayload{LayerID: bottom.LayerID}))
			f := out.frame(t)
			for _, d := range f.Drawables {
				if d.ID == bottom.ID {
					assert.Equal(t, tt.want, d.Order)
					return
				}
			}
			t.Fatalf("%s missing from frame", bottom.ID)
		})
	}
}

func TestSaveRefusesReplacedDesign(t *testing.T) {
	hub, st := newTestHub(t, 0)
	id := typeid.NewDesignID()
	out := newRecorder()
	s, err := hub.Open(context.Background(), id, testUser, out)
	require.NoError(t, err)
	out.frame(t)

	// A write that slipped in after the session loaded the design.
	replaced := document.NewSampleSnapshot()
	_, err = st.Save(context.Background(), id, replaced)
	require.NoError(t, err)

	s.Deliver(msg(TypeEntityAdd, 1, map[string]any{"kind": "frame"}))
	out.next(t, TypeEntityAdded)
	s.Deliver(msg(TypeDocSave, 2, nil))
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(out.next(t, TypeError).Payload, &p))
	assert.Equal(t, int64(2), p.Seq)
	assert.Contains(t, p.Message, store.ErrVersionConflict.Error())

	s.Close()
	rec := st.record(id)
	assert.Equal(t, 1, rec.Version)
	assert.Equal(t, replaced.LayerOrder, rec.Snapshot.LayerOrder)
	assert.Len(t, rec.Snapshot.Frames, len(replaced.Frames), "the session frame was not written")
}

func TestSavedSnapshotIsDetached(t *testing.T) {
	hub, st := newTestHub(t, 0)
	id := typeid.NewDesignID()
	out := newRecorder()
	s, err := hub.Open(context.Background(), id, testUser, out)
	require.NoError(t, err)
	defer s.Close()
	out.frame(t)

	s.Deliver(msg(TypeEntityAdd, 1, map[string]any{"kind": "text", "patch": map[string]any{"text": "Dad"}}))
	var added EntityAddedPayload
	require.NoError(t, json.Unmarshal(out.next(t, TypeEntityAdded).Payload, &added))
	s.Deliver(msg(TypeDocSave, 2, nil))
	out.next(t, TypeSaved)

	s.Deliver(msg(TypeEntityUpdate, 3, EntityUpdatePayload{ID: added.ID, Patch: json.RawMessage(`{"text":"Grandad"}`)}))
	out.frame(t)
	assert.Equal(t, "Dad", st.record(id).Snapshot.Texts[0].Text)
}

func TestBaseSet(t *testing.T) {
	hub, _ := newTestHub(t, 0)
	out := newRecorder()
	s, err := hub.Open(context.Background(), typeid.NewDesignID(), testUser, out)
	require.NoError(t, err)
	defer s.Close()
	out.frame(t)

	s.Deliver(msg(TypeBaseSet, 1, BaseSetPayload{ID: "urn-classic"}))
	f := out.frame(t)
	assert.Equal(t, "urn-classic", f.Base.ID)
	assert.True(t, f.Base.Cylindrical)
}

func TestCloseSavesDirtyDesign(t *testing.T) {
	hub, st := newTestHub(t, 0)
	out := newRecorder()
	id := typeid.NewDesignID()
	s, err := hub.Open(context.Background(), id, testUser, out)
	require.NoError(t, err)

	s.Deliver(msg(TypeEntityAdd, 1, map[string]any{"kind": "frame"}))
	out.next(t, TypeEntityAdded)

	s.Close()
	s.Close()
	assert.False(t, hub.Active(id))
	assert.Equal(t, 1, st.saveCount())
	require.NotNil(t, st.record(id))
	assert.Len(t, st.record(id).Snapshot.Frames, 1)

	// Delivering after close does not block.
	s.Deliver(msg(TypeDocSave, 2, nil))

	s2, err := hub.Open(context.Background(), id, testUser, newRecorder())
	require.NoError(t, err)
	s2.Close()
	assert.Equal(t, 1, st.saveCount(), "clean session does not save")
}

func TestAutosave(t *testing.T) {
	hub, st := newTestHub(t, 20*time.Millisecond)
	out := newRecorder()
	s, err := hub.Open(context.Background(), typeid.NewDesignID(), testUser, out)
	require.NoError(t, err)
	defer s.Close()

	s.Deliver(msg(TypeEntityAdd, 1, map[string]any{"kind": "text"}))
	assert.Eventually(t, func() bool { return st.saveCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubStop(t *testing.T) {
	hub, st := newTestHub(t, 0)
	a, err := hub.Open(context.Background(), typeid.NewDesignID(), testUser, newRecorder())
	require.NoError(t, err)
	b, err := hub.Open(context.Background(), typeid.NewDesignID(), testUser, newRecorder())
	require.NoError(t, err)

	a.Deliver(msg(TypeEntityAdd, 1, map[string]any{"kind": "image", "patch": map[string]any{"src": "/assets/a.png"}}))
	a.Deliver(msg(TypeKey, 2, KeyPayload{Key: "Enter"}))

	hub.Stop()
	<-a.Done()
	<-b.Done()
	assert.Equal(t, 1, st.saveCount())

	_, err = hub.Open(context.Background(), typeid.NewDesignID(), testUser, newRecorder())
	assert.ErrorIs(t, err, ErrHubStopped)
}

func TestWebsocketSession(t *testing.T) {
	hub, st := newTestHub(t, 0)
	r := mux.NewRouter()
	r.Handle("/ws/designs/{designId}", NewHandler(hub, nil, nil))
	srv := httptest.NewServer(r)
	defer srv.Close()

	id := typeid.NewDesignID()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/designs/" + id

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)

	read := func(typ string) *Message {
		for {
			_, data, err := conn.Read(ctx)
			require.NoError(t, err)
			var m Message
			require.NoError(t, json.Unmarshal(data, &m))
			if m.Type == typ {
				return &m
			}
		}
	}

	welcome := read(TypeWelcome)
	assert.Equal(t, id, welcome.DesignID)

	_, _, err = websocket.Dial(ctx, url, nil)
	assert.Error(t, err, "a design has one live session")

	data, _ := json.Marshal(msg(TypeEntityAdd, 1, map[string]any{"kind": "text", "patch": map[string]any{"text": "Mum"}}))
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
	read(TypeEntityAdded)
	read(TypeFrame)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	assert.Eventually(t, func() bool { return !hub.Active(id) }, 2*time.Second, 10*time.Millisecond)
	require.NotNil(t, st.record(id))
	assert.Equal(t, "Mum", st.record(id).Snapshot.Texts[0].Text)
}

func TestWebsocketRejectsBadRequests(t *testing.T) {
	hub, _ := newTestHub(t, 0)
	r := mux.NewRouter()
	r.Handle("/ws/designs/{designId}", NewHandler(hub, rejectAll{}, nil))
	srv := httptest.NewServer(r)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/designs/"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, base+"not-a-design", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)

	_, resp, err = websocket.Dial(ctx, base+typeid.NewDesignID(), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)

	_, resp, err = websocket.Dial(ctx, base+typeid.NewDesignID()+"?token=forged", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestSessionLogsUser(t *testing.T) {
	var buf lockedBuffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	hub, _ := newTestHub(t, 0)
	r := mux.NewRouter()
	r.Handle("/ws/designs/{designId}", NewHandler(hub, acceptAs("user_42"), nil))
	srv := httptest.NewServer(r)
	defer srv.Close()

	id := typeid.NewDesignID()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/designs/"+id+"?token=ok", nil)
	require.NoError(t, err)
	_, _, err = conn.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	assert.Eventually(t, func() bool { return !hub.Active(id) }, 2*time.Second, 10*time.Millisecond)

	logs := buf.String()
	assert.Contains(t, logs, `msg="session opened"`)
	assert.Contains(t, logs, `msg="session closed"`)
	assert.Equal(t, 2, strings.Count(logs, "user=user_42"))
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type acceptAs string

func (a acceptAs) ValidateToken(string) (string, error) { return string(a), nil }

type rejectAll struct{}

func (rejectAll) ValidateToken(string) (string, error) { return "", assert.AnError }
