// Package ingest turns scene files into graph models. A scene file is YAML
// (JSON is accepted as the YAML subset it is) holding literal node and link
// records plus optional configuration overrides.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"path"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/starford/forcegraph/internal/apperr"
	"github.com/starford/forcegraph/internal/graph"
	"github.com/starford/forcegraph/internal/models"
)

// Parse decodes a scene file.
func Parse(data []byte) (*models.SceneSpec, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("ingest: empty document: %w", apperr.ErrInvalidScene)
	}
	var spec models.SceneSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("ingest: decode scene: %v: %w", err, apperr.ErrInvalidScene)
	}
	return &spec, nil
}

// Scene is a built scene: the graph with derived attributes applied and the
// resolved configuration.
type Scene struct {
	ID     string
	Name   string
	Graph  *graph.Graph
	Config graph.Config
}

// Build constructs the graph described by spec. defaults supplies every
// configuration value spec does not override. A spec without id gets a
// generated one. Weights are normalized and hover text computed before
// returning.
func Build(spec *models.SceneSpec, defaults graph.Config) (*Scene, error) {
	if spec == nil {
		return nil, fmt.Errorf("ingest: nil scene: %w", apperr.ErrInvalidScene)
	}
	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}

	cfg, err := resolveConfig(spec.Config, defaults)
	if err != nil {
		return nil, fmt.Errorf("ingest: scene %q: %w", id, err)
	}
	cfg.SceneID = id

	if len(spec.Nodes) == 0 && len(spec.Links) == 0 {
		return nil, fmt.Errorf("ingest: scene %q: %w: %w", id, apperr.ErrInvalidScene, apperr.ErrEmptyGraph)
	}

	g := graph.New()
	for i, rec := range spec.Nodes {
		ns, err := nodeSpec(rec)
		if err != nil {
			return nil, fmt.Errorf("ingest: scene %q: node %d: %w", id, i, err)
		}
		if _, err := g.AddNode(ns); err != nil {
			return nil, fmt.Errorf("ingest: scene %q: node %d: %w", id, i, err)
		}
	}
	for i, rec := range spec.Links {
		es, err := edgeSpec(rec)
		if err != nil {
			return nil, fmt.Errorf("ingest: scene %q: link %d: %w", id, i, err)
		}
		if _, err := g.AddEdge(es); err != nil {
			return nil, fmt.Errorf("ingest: scene %q: link %d: %w", id, i, err)
		}
	}

	g.NormalizeWeights()
	if spec.ColorNodesBy != "" {
		g.ColorNodesBy(spec.ColorNodesBy)
	}
	if spec.ColorLinksBy != "" {
		g.ColorLinksBy(spec.ColorLinksBy)
	}
	if spec.RadiusBy != "" {
		g.RadiusBy(spec.RadiusBy, cfg.NodeRadius)
	}
	g.ComputeHoverText()

	name := spec.Name
	if name == "" {
		name = id
	}
	return &Scene{ID: id, Name: name, Graph: g, Config: cfg}, nil
}

// Load parses and builds a scene file in one step.
func Load(data []byte, defaults graph.Config) (*Scene, error) {
	spec, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Build(spec, defaults)
}

// LoadFile is Load for a scene file at rel (slash separated, relative to the
// scenes directory). A file without an id is named after its base name, so the
// same file always maps to the same scene.
func LoadFile(rel string, data []byte, defaults graph.Config) (*Scene, error) {
	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}
	if spec.ID == "" {
		spec.ID = IDFromPath(rel)
	}
	s, err := Build(spec, defaults)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}
	return s, nil
}

// IDFromPath returns the scene id implied by a file name.
func IDFromPath(rel string) string {
	base := path.Base(strings.ReplaceAll(rel, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// resolveConfig overlays the override map on defaults by round-tripping it
// through YAML, so overrides use the same keys as the config file.
func resolveConfig(overrides map[string]any, defaults graph.Config) (graph.Config, error) {
	cfg := defaults
	if len(overrides) > 0 {
		raw, err := yaml.Marshal(overrides)
		if err != nil {
			return cfg, fmt.Errorf("config: %v: %w", err, apperr.ErrInvalidScene)
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("config: %v: %w", err, apperr.ErrInvalidScene)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %v: %w", err, apperr.ErrInvalidScene)
	}
	return cfg, nil
}

var (
	errNotNumber = errors.New("not a number")
	errNotFinite = errors.New("not a finite number")
)

func nodeSpec(rec models.Record) (graph.NodeSpec, error) {
	ns := graph.NodeSpec{Attrs: graph.Attrs{}}
	for k, v := range rec {
		switch k {
		case "id":
			ns.ID = scalar(v)
		case "label":
			ns.Label = scalar(v)
		case "color":
			ns.Color = scalar(v)
		case "image":
			ns.Image = scalar(v)
		case "radius":
			f, err := number(v)
			if err != nil {
				return ns, fmt.Errorf("radius: %v: %w", err, apperr.ErrInvalidScene)
			}
			ns.Radius = f
		case "hover":
			// derived
		default:
			ns.Attrs[k] = v
		}
	}
	return ns, nil
}

func edgeSpec(rec models.Record) (graph.EdgeSpec, error) {
	es := graph.EdgeSpec{Attrs: graph.Attrs{}}
	for k, v := range rec {
		switch k {
		case "source":
			es.Source = scalar(v)
		case "target":
			es.Target = scalar(v)
		case "color":
			es.Color = scalar(v)
		case "weight":
			if v == nil {
				continue
			}
			f, err := number(v)
			if err != nil {
				return es, fmt.Errorf("weight: %v: %w", err, apperr.ErrInvalidScene)
			}
			es.Weight = &f
		case "hover":
		default:
			es.Attrs[k] = v
		}
	}
	return es, nil
}

// scalar renders an id-like value as a string. Missing values stay empty.
func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	return fmt.Sprint(v)
}

func number(v any) (float64, error) {
	switch t := v.(type) {
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, fmt.Errorf("%v: %w", t, errNotFinite)
		}
		return t, nil
	case nil:
		return 0, nil
	}
	return 0, fmt.Errorf("%v: %w", v, errNotNumber)
}
