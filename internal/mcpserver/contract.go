package mcpserver

// SceneFormatURI is the resource URI of the scene format contract.
const SceneFormatURI = "forcegraph://scene-format"

// SceneFormatContract describes the scene file format that LLM consumers
// should follow when creating scenes.
const SceneFormatContract = `# forcegraph Scene Format

A scene is a YAML (or JSON) document describing one graph and how to lay it out.

## Structure

` + "```" + `yaml
id: fruit                  # OPTIONAL – letters, digits, '.', '_' or '-'; defaults to the file name
name: Fruit salad          # OPTIONAL – display name, defaults to the id
config:                    # OPTIONAL – overrides of the simulation defaults
  width: 800
  height: 600
  node_radius: 15
  link_distance: 20
  collision_scale: 1.5
  link_width_scale: 4
  charge: -20
  gravity: 0.05
  show_labels: false
color_nodes_by: group      # OPTIONAL – node attribute used to colour nodes
color_links_by: kind       # OPTIONAL – link attribute used to colour links
radius_by: size            # OPTIONAL – numeric node attribute scaling radii
nodes:
  - {id: apple, label: Apple, group: 1, size: 3, image: "https://example.com/apple.png"}
  - {id: pear, group: 1, size: 1}
links:
  - {source: apple, target: pear, weight: 2, kind: tree}
  - {source: pear, target: kiwi}
` + "```" + `

## Rules

1. **A scene needs at least one node or one link.**
2. **Node ids are unique.** Reserved node keys are ` + "`" + `id` + "`" + `, ` + "`" + `label` + "`" + `, ` + "`" + `color` + "`" + `, ` + "`" + `radius` + "`" + `, ` + "`" + `image` + "`" + `;
   any other key is an attribute shown in the tooltip.
3. **Links need source and target.** A link naming an unknown node creates it.
4. **Weights** are numbers; a missing weight counts as 1. Weights are divided by the
   largest weight, and a heavier link is drawn thicker and pulled shorter.
5. **Config keys** are snake_case and unknown keys are rejected.

## Tools

- ` + "`" + `create_scene` + "`" + ` starts a scene from a document in this format.
- ` + "`" + `list_scenes` + "`" + ` lists live scenes.
- ` + "`" + `get_layout` + "`" + ` returns current node positions.
- ` + "`" + `pin_node` + "`" + ` / ` + "`" + `release_node` + "`" + ` fix or free a node (world coordinates).
- ` + "`" + `render_svg` + "`" + ` returns an SVG snapshot.
`
