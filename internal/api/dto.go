package api

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/forcegraph/internal/graph"
	"github.com/starford/forcegraph/internal/interaction"
	"github.com/starford/forcegraph/internal/sceneservice"
)

var sceneIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

var coordinate = []validation.Rule{
	graph.Finite,
	validation.Min(-sceneservice.MaxCoordinate),
	validation.Max(sceneservice.MaxCoordinate),
}

// SceneSummary is the scene response type (aliased from the domain layer).
type SceneSummary = sceneservice.Summary

// SceneListResponse wraps scene listings.
type SceneListResponse struct {
	Scenes []SceneSummary `json:"scenes" validate:"required"`
	Total  int            `json:"total" example:"3" validate:"required"`
}

// CatalogEntry is a catalogued scene file (aliased from the domain layer).
type CatalogEntry = sceneservice.CatalogEntry

// CatalogResponse wraps catalog listings.
type CatalogResponse struct {
	Files []CatalogEntry `json:"files" validate:"required"`
	Total int            `json:"total" example:"4" validate:"required"`
}

// DragRequest is one phase of a pointer drag. X and Y are screen coordinates.
type DragRequest struct {
	Phase string  `json:"phase" example:"move" validate:"required"`
	Node  string  `json:"node" example:"apple" validate:"required"`
	X     float64 `json:"x" example:"120"`
	Y     float64 `json:"y" example:"80"`
}

// Validate validates the drag request.
func (r DragRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Phase, validation.Required, validation.In(sceneservice.DragStart, sceneservice.DragMove, sceneservice.DragEnd)),
		validation.Field(&r.Node, validation.Required),
		validation.Field(&r.X, coordinate...),
		validation.Field(&r.Y, coordinate...),
	)
}

// NodeRequest names a node, as sent by a double click or a release.
type NodeRequest struct {
	Node string `json:"node" example:"apple" validate:"required"`
}

// Validate validates the node request.
func (r NodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Node, validation.Required),
	)
}

// PinRequest fixes a node at world coordinates.
type PinRequest struct {
	Node string  `json:"node" example:"apple" validate:"required"`
	X    float64 `json:"x" example:"400"`
	Y    float64 `json:"y" example:"300"`
}

// Validate validates the pin request.
func (r PinRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Node, validation.Required),
		validation.Field(&r.X, coordinate...),
		validation.Field(&r.Y, coordinate...),
	)
}

// ZoomRequest scales the viewport about a screen point.
type ZoomRequest struct {
	Factor float64 `json:"factor" example:"1.2" validate:"required"`
	X      float64 `json:"x" example:"400"`
	Y      float64 `json:"y" example:"300"`
}

// Validate validates the zoom request.
func (r ZoomRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Factor, validation.Required, validation.Min(0.0).Exclusive(), validation.Max(100.0)),
		validation.Field(&r.X, coordinate...),
		validation.Field(&r.Y, coordinate...),
	)
}

// PanRequest translates the viewport by screen pixels.
type PanRequest struct {
	DX float64 `json:"dx" example:"15"`
	DY float64 `json:"dy" example:"-4"`
}

// Validate validates the pan request.
func (r PanRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DX, coordinate...),
		validation.Field(&r.DY, coordinate...),
	)
}

// ViewResponse is the viewport after a zoom or pan.
type ViewResponse = interaction.Viewport

// validateSceneID checks an id supplied by a client. Empty means generate.
func validateSceneID(id string) error {
	return validation.Validate(id, validation.Match(sceneIDPattern).Error("must be letters, digits, '.', '_' or '-'"))
}
