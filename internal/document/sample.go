package document

import "github.com/inamate/keepsake/internal/typeid"

// NewSampleSnapshot returns a small upright-gravestone design: an oval frame
// with a portrait inside it and a name and dates below.
func NewSampleSnapshot() *Snapshot {
	frameID := typeid.NewFrameID()
	imageID := typeid.NewImageID()
	nameID := typeid.NewTextID()
	datesID := typeid.NewTextID()

	layers := []Layer{
		{LayerID: "frame-" + frameID, EntityKind: "frame", EntityID: frameID},
		{LayerID: "image-" + imageID, EntityKind: "image", EntityID: imageID},
		{LayerID: "text-" + nameID, EntityKind: "text", EntityID: nameID},
		{LayerID: "text-" + datesID, EntityKind: "text", EntityID: datesID},
	}
	visible := make([]string, len(layers))
	for i, l := range layers {
		visible[i] = l.LayerID
	}

	return &Snapshot{
		Version: CurrentVersion,
		Base:    Base{ID: "gravestone-upright", Thickness: 0.15},
		Frames: []Frame{
			{
				ID:              frameID,
				Shape:           ShapeOval,
				Position:        [3]float64{0, 0.18, 0},
				Size:            [2]float64{0.3, 0.38},
				FrameWidth:      0.02,
				BorderThickness: 0.01,
				Color:           "#c9a227",
			},
		},
		Images: []Image{
			{
				ID:       imageID,
				Src:      "/assets/portrait-placeholder.png",
				Position: [3]float64{0, 0.18, 0},
				Size:     [2]float64{0.24, 0.32},
			},
		},
		Texts: []Text{
			{
				ID:       nameID,
				Text:     "In Loving Memory",
				Font:     "Cinzel",
				Color:    "#f5f5f5",
				Position: [3]float64{0, -0.12, 0},
				Width:    0.5,
				FontSize: 0.06,
			},
			{
				ID:       datesID,
				Text:     "1932 - 2024",
				Font:     "Cinzel",
				Color:    "#f5f5f5",
				Position: [3]float64{0, -0.22, 0},
				Width:    0.4,
				FontSize: 0.045,
			},
		},
		LayerOrder:    layers,
		VisibleLayers: visible,
	}
}
