package graph

import (
	"errors"
	"math"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config is the per-run configuration bundle of a scene. It is immutable
// once a simulation has been built from it.
type Config struct {
	Width          float64 `yaml:"width" json:"width"`
	Height         float64 `yaml:"height" json:"height"`
	NodeRadius     float64 `yaml:"node_radius" json:"node_radius"`
	LinkDistance   float64 `yaml:"link_distance" json:"link_distance"`
	CollisionScale float64 `yaml:"collision_scale" json:"collision_scale"`
	LinkWidthScale float64 `yaml:"link_width_scale" json:"link_width_scale"`
	Charge         float64 `yaml:"charge" json:"charge"`
	Gravity        float64 `yaml:"gravity" json:"gravity"`
	ShowLabels     bool    `yaml:"show_labels" json:"show_labels"`
	SceneID        string  `yaml:"scene_id" json:"scene_id"`
}

// DefaultConfig returns the configuration of a readable default
// visualization.
func DefaultConfig() Config {
	return Config{
		Width:          800,
		Height:         600,
		NodeRadius:     15,
		LinkDistance:   20,
		CollisionScale: 1.5,
		LinkWidthScale: 4,
		Charge:         -20,
		Gravity:        0.05,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Width, validation.Required, validation.Min(1.0), Finite),
		validation.Field(&c.Height, validation.Required, validation.Min(1.0), Finite),
		validation.Field(&c.NodeRadius, validation.Min(0.0), Finite),
		validation.Field(&c.LinkDistance, validation.Min(0.0), Finite),
		validation.Field(&c.CollisionScale, validation.Min(0.0), Finite),
		validation.Field(&c.LinkWidthScale, validation.Min(0.0), Finite),
		validation.Field(&c.Charge, Finite),
		validation.Field(&c.Gravity, validation.Min(0.0), Finite),
	)
}

// Finite is a validation rule rejecting NaN and infinite float64 values.
var Finite = validation.By(func(value interface{}) error {
	f, ok := value.(float64)
	if ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return errors.New("must be a finite number")
	}
	return nil
})

// Center returns the canvas midpoint.
func (c Config) Center() (float64, float64) {
	return c.Width / 2, c.Height / 2
}
