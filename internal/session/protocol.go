package session

import (
	"encoding/json"

	"github.com/inamate/keepsake/internal/engine"
)

// Message is the envelope for every frame on the socket.
type Message struct {
	Type     string          `json:"type"`
	DesignID string          `json:"designId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

const (
	// Renderer → engine
	TypePointer         = "pointer"
	TypeKey             = "key"
	TypeEditText        = "edit.text"
	TypeEditBlur        = "edit.blur"
	TypeBackground      = "background"
	TypeModes           = "modes"
	TypeEntityAdd       = "entity.add"
	TypeEntityUpdate    = "entity.update"
	TypeEntityRemove    = "entity.remove"
	TypeLayerVisibility = "layer.visibility"
	TypeLayerMove       = "layer.move"
	TypeLayerRaise      = "layer.raise"
	TypeLayerLower      = "layer.lower"
	TypeBaseSet         = "base.set"
	TypeDocSave         = "doc.save"

	// Engine → renderer
	TypeWelcome     = "welcome"
	TypeFrame       = "frame"
	TypeEntityAdded = "entity.added"
	TypeSaved       = "saved"
	TypeError       = "error"
)

type KeyPayload struct {
	Key string `json:"key"`
}

type EditTextPayload struct {
	Text string `json:"text"`
}

type EntityAddPayload struct {
	Kind  engine.Kind     `json:"kind"`
	Patch json.RawMessage `json:"patch,omitempty"`
}

type EntityUpdatePayload struct {
	ID    string          `json:"id"`
	Patch json.RawMessage `json:"patch"`
}

type EntityRemovePayload struct {
	ID string `json:"id"`
}

type EntityAddedPayload struct {
	ID   string      `json:"id"`
	Kind engine.Kind `json:"kind"`
}

type LayerVisibilityPayload struct {
	LayerID string `json:"layerId"`
	Visible bool   `json:"visible"`
}

type LayerMovePayload struct {
	LayerID string `json:"layerId"`
	Index   int    `json:"index"`
}

// LayerPayload names the layer for layer.raise and layer.lower.
type LayerPayload struct {
	LayerID string `json:"layerId"`
}

type BaseSetPayload struct {
	ID string `json:"id"`
}

type WelcomePayload struct {
	SessionID string `json:"sessionId"`
	Version   int    `json:"version"`
}

type SavedPayload struct {
	Version int `json:"version"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	// Seq echoes the request that failed.
	Seq int64 `json:"seq,omitempty"`
}
