// Package models defines the records exchanged with the ingestion layer.
package models

import "time"

// Record is a free-form node or edge record as handed over by an ingestion
// source. Reserved keys (id, label, source, target, weight, ...) are lifted
// into the typed graph model; everything else stays an open attribute.
type Record map[string]any

// SceneSpec is the normalized description of one scene: the graph, the
// simulation configuration overrides and the derived-attribute requests.
type SceneSpec struct {
	ID           string         `yaml:"id" json:"id"`
	Name         string         `yaml:"name" json:"name"`
	Config       map[string]any `yaml:"config" json:"config,omitempty"`
	Nodes        []Record       `yaml:"nodes" json:"nodes"`
	Links        []Record       `yaml:"links" json:"links"`
	ColorNodesBy string         `yaml:"color_nodes_by" json:"color_nodes_by,omitempty"`
	ColorLinksBy string         `yaml:"color_links_by" json:"color_links_by,omitempty"`
	RadiusBy     string         `yaml:"radius_by" json:"radius_by,omitempty"`
}

// SceneMetadata is a lightweight representation returned by list operations.
type SceneMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
