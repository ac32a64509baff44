package mapview

import "github.com/UnknownOlympus/waymark/internal/models"

// ActionKind is a popup affordance.
type ActionKind string

const (
	ActionEdit   ActionKind = "edit"
	ActionDelete ActionKind = "delete"
)

// PopupAction is an affordance keyed by the id of the point it acts on.
type PopupAction struct {
	Kind ActionKind `json:"action"`
	Key  string     `json:"key"`
}

// Popup is the content shown when a marker is selected.
type Popup struct {
	Label   string        `json:"label"`
	Actions []PopupAction `json:"actions"`
}

// Marker is the rendered form of one point.
type Marker struct {
	PointID  string             `json:"point_id"`
	Name     string             `json:"name"`
	Position models.Coordinates `json:"position"`
	Popup    Popup              `json:"popup"`
}

// Surface is the map the controller draws on.
type Surface interface {
	AddMarker(marker Marker)
	RemoveMarker(pointID string)
}

// Flusher is implemented by surfaces that batch changes until Flush.
type Flusher interface {
	Flush()
}

// View is an initial map viewport.
type View struct {
	Center models.Coordinates
	Zoom   int
}

// DefaultView is where a fresh map and a fresh point form start.
var DefaultView = View{
	Center: models.Coordinates{Latitude: -7.7956, Longitude: 110.3695},
	Zoom:   13,
}

func newMarker(point models.Point, position models.Coordinates) Marker {
	return Marker{
		PointID:  point.ID,
		Name:     point.Name,
		Position: position,
		Popup: Popup{
			Label: point.Name,
			Actions: []PopupAction{
				{Kind: ActionEdit, Key: point.ID},
				{Kind: ActionDelete, Key: point.ID},
			},
		},
	}
}
