package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqIDs returns deterministic ids: text_1, image_2, ...
func seqIDs() func(Kind) string {
	n := 0
	return func(k Kind) string {
		n++
		return fmt.Sprintf("%s_%d", k, n)
	}
}

func ptr[T any](v T) *T { return &v }

func TestModelCreateAppliesInitAndClamps(t *testing.T) {
	m := NewModel(0.15, seqIDs())

	id, err := m.Create(KindImage, Patch{
		Position: &Vec2{X: 0.1, Y: 0.2},
		Size:     &Size{W: -1, H: 0.5},
		Src:      ptr("/a.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "image_1", id)

	e, err := m.Get(id)
	require.NoError(t, err)
	img := e.(*ImageEntity)
	assert.Equal(t, Size{W: MinImageSize, H: 0.5}, img.Size())
	assert.Equal(t, "/a.png", img.Src)
	assert.InDelta(t, 0.1, img.Pos.X, 1e-12)
	assert.InDelta(t, ZOffset(KindImage, 0.15, 0), img.Pos.Z, 1e-12)
}

func TestModelCreateUnknownKind(t *testing.T) {
	m := NewModel(0.15, seqIDs())
	_, err := m.Create("sticker", Patch{})
	assert.True(t, errors.Is(err, ErrUnknownKind))
	assert.Zero(t, m.Len())
}

func TestModelUpdateClampsEveryTime(t *testing.T) {
	m := NewModel(0.15, seqIDs())
	id, err := m.Create(KindText, Patch{})
	require.NoError(t, err)

	require.NoError(t, m.Update(id, Patch{Size: &Size{W: 0.01, H: -3}}))
	e, _ := m.Get(id)
	assert.Equal(t, Size{W: MinTextWidth, H: MinFontSize}, e.Size())

	fid, err := m.Create(KindFrame, Patch{FrameWidth: ptr(-1.0), BorderThickness: ptr(-1.0)})
	require.NoError(t, err)
	f, _ := m.Get(fid)
	assert.Equal(t, MinFrameWidth, f.(*FrameEntity).FrameWidth)
	assert.Zero(t, f.(*FrameEntity).BorderThickness)
}

func TestModelIgnoresPatchedZ(t *testing.T) {
	m := NewModel(0.15, seqIDs())
	id, err := m.Create(KindText, Patch{})
	require.NoError(t, err)

	e, _ := m.Get(id)
	z := e.Position().Z
	e.SetPosition(Vec3{X: 1, Y: 1, Z: 42})
	require.NoError(t, m.Update(id, Patch{Position: &Vec2{X: 0.5, Y: 0.5}}))
	assert.InDelta(t, z, e.Position().Z, 1e-12)
}

func TestModelRestacksSiblings(t *testing.T) {
	m := NewModel(0.1, seqIDs())
	a, _ := m.Create(KindText, Patch{})
	b, _ := m.Create(KindText, Patch{})
	c, _ := m.Create(KindText, Patch{})

	eb, _ := m.Get(b)
	ec, _ := m.Get(c)
	assert.InDelta(t, ZOffset(KindText, 0.1, 1), eb.Position().Z, 1e-12)
	assert.InDelta(t, ZOffset(KindText, 0.1, 2), ec.Position().Z, 1e-12)

	require.NoError(t, m.Remove(a))
	assert.InDelta(t, ZOffset(KindText, 0.1, 0), eb.Position().Z, 1e-12)
	assert.InDelta(t, ZOffset(KindText, 0.1, 1), ec.Position().Z, 1e-12)
}

func TestModelRestackFollowsGivenOrder(t *testing.T) {
	m := NewModel(0.1, seqIDs())
	a, _ := m.Create(KindImage, Patch{})
	b, _ := m.Create(KindImage, Patch{})
	c, _ := m.Create(KindImage, Patch{})

	// c is unlisted and keeps its place after the listed ids; unknown and
	// wrong-kind ids are ignored.
	m.Restack(KindImage, []string{b, "img_missing", a})

	var got []string
	for _, e := range m.ByKind(KindImage) {
		got = append(got, e.ID())
	}
	assert.Equal(t, []string{b, a, c}, got)
	for i, id := range got {
		e, _ := m.Get(id)
		assert.InDelta(t, ZOffset(KindImage, 0.1, i), e.Position().Z, 1e-12)
	}
}

func TestModelSetBaseThickness(t *testing.T) {
	m := NewModel(0.1, seqIDs())
	id, _ := m.Create(KindFrame, Patch{})
	m.SetBaseThickness(0.3)

	e, _ := m.Get(id)
	assert.InDelta(t, ZOffset(KindFrame, 0.3, 0), e.Position().Z, 1e-12)
	assert.Equal(t, 0.3, m.BaseThickness())
}

func TestModelNotFound(t *testing.T) {
	m := NewModel(0.1, seqIDs())
	_, err := m.Get("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(m.Update("missing", Patch{}), ErrNotFound))
	assert.True(t, errors.Is(m.Remove("missing"), ErrNotFound))
}

func TestModelInsertRejectsDuplicates(t *testing.T) {
	m := NewModel(0.1, seqIDs())
	require.NoError(t, m.Insert(NewTextEntity("t")))
	assert.Error(t, m.Insert(NewTextEntity("t")))
	assert.Equal(t, 1, m.Len())
}

func TestImageRotateNormalizes(t *testing.T) {
	img := NewImageEntity("i")
	img.Rotate(-90)
	assert.Equal(t, 270.0, img.Rotation)
	img.Rotate(180)
	assert.Equal(t, 90.0, img.Rotation)

	img.apply(Patch{Rotation: ptr(720.0)})
	assert.Equal(t, 0.0, img.Rotation)
}
