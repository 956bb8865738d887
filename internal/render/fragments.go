package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/starford/forcegraph/internal/graph"
	"github.com/starford/forcegraph/internal/interaction"
)

// ContainerPrefix prefixes the id of the element a scene is drawn into.
const ContainerPrefix = "d3-container-"

// ContainerID returns the DOM id of the container for a scene.
func ContainerID(sceneID string) string {
	return ContainerPrefix + sceneID
}

// ScriptData is what the client script needs besides the configuration:
// the first frame to draw, the viewport and where to send gestures.
type ScriptData struct {
	Title    string
	Endpoint string
	Token    string // bearer token for gesture posts and the event stream
	Frame    Frame
	View     interaction.Viewport
}

type scriptContext struct {
	ContainerID string
	Endpoint    string
	Token       string
	Width       float64
	Height      float64
	Frame       template.JS
	View        template.JS
}

type documentContext struct {
	Title  string
	Markup template.HTML
	Script template.HTML
}

// Fragments renders the markup and script fragments of a scene. Each value
// owns its own parsed templates, so scenes never share template state.
type Fragments struct {
	tmpl *template.Template
}

// NewFragments parses the fragment templates.
func NewFragments() (*Fragments, error) {
	t, err := template.New("markup").Parse(markupTemplate)
	if err != nil {
		return nil, fmt.Errorf("render: parse markup: %w", err)
	}
	if _, err := t.New("script").Parse(scriptTemplate); err != nil {
		return nil, fmt.Errorf("render: parse script: %w", err)
	}
	if _, err := t.New("document").Parse(documentTemplate); err != nil {
		return nil, fmt.Errorf("render: parse document: %w", err)
	}
	return &Fragments{tmpl: t}, nil
}

// Markup returns the container element for the scene.
func (f *Fragments) Markup(cfg graph.Config) (template.HTML, error) {
	var buf bytes.Buffer
	if err := f.tmpl.ExecuteTemplate(&buf, "markup", struct{ ContainerID string }{ContainerID(cfg.SceneID)}); err != nil {
		return "", fmt.Errorf("render: markup: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// Script returns the script element that draws the scene into its container
// and keeps it in sync with the server.
func (f *Fragments) Script(cfg graph.Config, data ScriptData) (template.HTML, error) {
	frame, err := json.Marshal(data.Frame)
	if err != nil {
		return "", fmt.Errorf("render: encode frame: %w", err)
	}
	view, err := json.Marshal(data.View)
	if err != nil {
		return "", fmt.Errorf("render: encode view: %w", err)
	}
	ctx := scriptContext{
		ContainerID: ContainerID(cfg.SceneID),
		Endpoint:    data.Endpoint,
		Token:       data.Token,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Frame:       template.JS(frame),
		View:        template.JS(view),
	}
	var buf bytes.Buffer
	if err := f.tmpl.ExecuteTemplate(&buf, "script", ctx); err != nil {
		return "", fmt.Errorf("render: script: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// WriteDocument writes a standalone HTML page made of the markup followed by
// the script.
func (f *Fragments) WriteDocument(w io.Writer, cfg graph.Config, data ScriptData) error {
	markup, err := f.Markup(cfg)
	if err != nil {
		return err
	}
	script, err := f.Script(cfg, data)
	if err != nil {
		return err
	}
	title := data.Title
	if title == "" {
		title = cfg.SceneID
	}
	if err := f.tmpl.ExecuteTemplate(w, "document", documentContext{Title: title, Markup: markup, Script: script}); err != nil {
		return fmt.Errorf("render: document: %w", err)
	}
	return nil
}

const markupTemplate = `<div id="{{.ContainerID}}" class="forcegraph"></div>`

const documentTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
  <style>
    body { margin: 0; font-family: sans-serif; }
    .forcegraph text { font-size: 12px; pointer-events: none; }
    .forcegraph circle { cursor: grab; }
  </style>
</head>
<body>
{{.Markup}}
{{.Script}}
</body>
</html>
`

const scriptTemplate = `<script>
(function () {
  const NS = "http://www.w3.org/2000/svg";
  const container = document.getElementById({{.ContainerID}});
  const endpoint = {{.Endpoint}};
  const token = {{.Token}};
  const width = {{.Width}};
  const height = {{.Height}};
  let frame = {{.Frame}};
  let view = {{.View}};

  function el(name, attrs, parent) {
    const e = document.createElementNS(NS, name);
    for (const k in attrs) e.setAttribute(k, attrs[k]);
    if (parent) parent.appendChild(e);
    return e;
  }

  const svg = el("svg", {width: width, height: height, "pointer-events": "all"}, container);
  const viewport = el("g", {}, svg);
  const linkLayer = el("g", {"class": "links"}, viewport);
  const nodeLayer = el("g", {"class": "nodes"}, viewport);

  const lines = new Map();
  const glyphs = new Map();

  function build(f) {
    linkLayer.replaceChildren();
    nodeLayer.replaceChildren();
    lines.clear();
    glyphs.clear();
    f.lines.forEach((l, i) => {
      const line = el("line", {"stroke-linecap": "round"}, linkLayer);
      line.style.stroke = l.color || "#999";
      line.style.strokeWidth = l.stroke_width;
      el("title", {}, line).textContent = l.title || "";
      lines.set(i, line);
    });
    f.nodes.forEach(n => {
      const g = el("g", {}, nodeLayer);
      const circle = el("circle", {r: n.r}, g);
      circle.style.stroke = n.color || "#555";
      circle.style.fill = n.color || "#555";
      circle.style.strokeOpacity = 1;
      circle.style.fillOpacity = 0.2;
      circle.addEventListener("mousedown", e => startDrag(e, n.id));
      circle.addEventListener("dblclick", e => { e.stopPropagation(); post("dblclick", {node: n.id}); });
      let image = null;
      if (n.image) {
        image = el("image", {width: 24, height: 24}, g);
        image.setAttributeNS("http://www.w3.org/1999/xlink", "href", n.image);
        image.addEventListener("mousedown", e => startDrag(e, n.id));
      }
      const label = el("text", {}, g);
      label.textContent = n.label;
      el("title", {}, g).textContent = n.title || "";
      glyphs.set(n.id, {circle: circle, image: image, label: label});
    });
    apply(f);
  }

  function apply(f) {
    if (f.lines.length !== lines.size || f.nodes.length !== glyphs.size) {
      frame = f;
      build(f);
      return;
    }
    f.lines.forEach((l, i) => {
      const line = lines.get(i);
      line.setAttribute("x1", l.x1);
      line.setAttribute("y1", l.y1);
      line.setAttribute("x2", l.x2);
      line.setAttribute("y2", l.y2);
    });
    f.nodes.forEach(n => {
      const g = glyphs.get(n.id);
      if (!g) return;
      g.circle.setAttribute("cx", n.cx);
      g.circle.setAttribute("cy", n.cy);
      if (g.image) {
        g.image.setAttribute("x", n.image_x);
        g.image.setAttribute("y", n.image_y);
      }
      g.label.setAttribute("x", n.label_x);
      g.label.setAttribute("y", n.label_y);
    });
    frame = f;
  }

  function applyView(v) {
    view = v;
    viewport.setAttribute("transform", "translate(" + v.x + "," + v.y + ") scale(" + v.k + ")");
  }

  // Gestures are sent one at a time in order. A coalescing post replaces a
  // pending post of the same action, so fast pointer moves collapse into one.
  let inflight = false;
  let pending = [];
  function post(action, body, coalesce) {
    if (!endpoint) return;
    const last = pending[pending.length - 1];
    if (coalesce && last && last.coalesce && last.action === action) {
      last.body = body;
    } else {
      pending.push({action: action, body: body, coalesce: coalesce});
    }
    send();
  }

  function send() {
    if (inflight || pending.length === 0) return;
    const req = pending.shift();
    const headers = {"Content-Type": "application/json"};
    if (token) headers["Authorization"] = "Bearer " + token;
    inflight = true;
    fetch(endpoint + "/" + req.action, {
      method: "POST",
      headers: headers,
      body: JSON.stringify(req.body)
    }).catch(() => {}).finally(() => {
      inflight = false;
      send();
    });
  }

  function pointer(e) {
    const r = svg.getBoundingClientRect();
    return [e.clientX - r.left, e.clientY - r.top];
  }

  let dragging = null;
  let panning = null;

  function startDrag(e, id) {
    e.stopPropagation();
    e.preventDefault();
    dragging = id;
    const p = pointer(e);
    post("drag", {phase: "start", node: id, x: p[0], y: p[1]});
  }

  svg.addEventListener("mousedown", e => {
    panning = pointer(e);
  });

  window.addEventListener("mousemove", e => {
    const p = pointer(e);
    if (dragging !== null) {
      post("drag", {phase: "move", node: dragging, x: p[0], y: p[1]}, true);
    } else if (panning !== null) {
      const dx = p[0] - panning[0];
      const dy = p[1] - panning[1];
      panning = p;
      applyView({k: view.k, x: view.x + dx, y: view.y + dy});
      post("pan", {dx: dx, dy: dy});
    }
  });

  window.addEventListener("mouseup", e => {
    if (dragging !== null) {
      const p = pointer(e);
      const id = dragging;
      pending = pending.filter(r => !(r.action === "drag" && r.body.node === id && r.body.phase === "move"));
      post("drag", {phase: "end", node: id, x: p[0], y: p[1]});
      dragging = null;
    }
    panning = null;
  });

  svg.addEventListener("wheel", e => {
    e.preventDefault();
    const p = pointer(e);
    post("zoom", {factor: Math.pow(2, -e.deltaY * 0.002), x: p[0], y: p[1]}, true);
  }, {passive: false});

  build(frame);
  applyView(view);

  if (endpoint && window.EventSource) {
    const events = new EventSource(endpoint + "/events" + (token ? "?access_token=" + encodeURIComponent(token) : ""));
    events.addEventListener("tick", e => apply(JSON.parse(e.data)));
    events.addEventListener("settled", e => apply(JSON.parse(e.data)));
    events.addEventListener("view", e => applyView(JSON.parse(e.data)));
  }
})();
</script>`
