// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes forcegraph scenes to LLM clients via stdio transport.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/forcegraph/internal/ingest"
	"github.com/starford/forcegraph/internal/sceneservice"
)

// Server wraps the MCP server with forcegraph tools.
type Server struct {
	mcp *server.MCPServer
	svc *sceneservice.Service
}

// layoutNode is one node of a get_layout answer.
type layoutNode struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Pinned bool    `json:"pinned,omitempty"`
}

type layoutResult struct {
	ID    string       `json:"id"`
	Tick  int          `json:"tick"`
	Alpha float64      `json:"alpha"`
	Nodes []layoutNode `json:"nodes"`
}

// New creates a new MCP server with all forcegraph tools registered.
func New(svc *sceneservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"forcegraph",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_scenes",
		mcp.WithDescription("List live scenes with their size and layout state."),
	), s.listScenes)

	s.mcp.AddTool(mcp.NewTool("create_scene",
		mcp.WithDescription("Create and start a scene. Content MUST follow the scene format; "+
			"read it first via the get_scene_format tool or the "+SceneFormatURI+" resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Scene document in YAML or JSON")),
	), s.createScene)

	s.mcp.AddTool(mcp.NewTool("get_layout",
		mcp.WithDescription("Return the current position of every node of a scene."),
		mcp.WithString("scene", mcp.Required(), mcp.Description("Scene id")),
	), s.getLayout)

	s.mcp.AddTool(mcp.NewTool("pin_node",
		mcp.WithDescription("Fix a node at world coordinates until it is released. The layout re-heats around it."),
		mcp.WithString("scene", mcp.Required(), mcp.Description("Scene id")),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node id")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("World x coordinate")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("World y coordinate")),
	), s.pinNode)

	s.mcp.AddTool(mcp.NewTool("release_node",
		mcp.WithDescription("Release a pinned node."),
		mcp.WithString("scene", mcp.Required(), mcp.Description("Scene id")),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node id")),
	), s.releaseNode)

	s.mcp.AddTool(mcp.NewTool("render_svg",
		mcp.WithDescription("Render the current layout of a scene as SVG."),
		mcp.WithString("scene", mcp.Required(), mcp.Description("Scene id")),
	), s.renderSVG)

	s.mcp.AddTool(mcp.NewTool("get_scene_format",
		mcp.WithDescription("Returns the scene file format. Call this before creating scenes."),
	), s.getSceneFormat)

	s.mcp.AddResource(
		mcp.NewResource(SceneFormatURI, "Scene Format",
			mcp.WithResourceDescription("YAML/JSON format of forcegraph scene files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSceneFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listScenes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no scenes"), nil
	}
	return jsonResult(items)
}

func (s *Server) createScene(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	spec, err := ingest.Parse([]byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sum, err := s.svc.Create(ctx, spec)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%d nodes, %d links)", sum.ID, sum.Nodes, sum.Links)), nil
}

func (s *Server) getLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("scene")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := s.svc.Frame(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := layoutResult{ID: id, Tick: f.Tick, Alpha: f.Alpha, Nodes: make([]layoutNode, 0, len(f.Nodes))}
	for _, g := range f.Nodes {
		out.Nodes = append(out.Nodes, layoutNode{ID: g.ID, X: g.CX, Y: g.CY, Pinned: g.Pinned})
	}
	return jsonResult(out)
}

func (s *Server) pinNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("scene")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	node, err := req.RequireString("node")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, err := req.RequireFloat("x")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	y, err := req.RequireFloat("y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Pin(ctx, id, node, x, y); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("pinned: %s at (%g, %g)", node, x, y)), nil
}

func (s *Server) releaseNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("scene")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	node, err := req.RequireString("node")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Release(ctx, id, node); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("released: %s", node)), nil
}

func (s *Server) renderSVG(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("scene")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var buf bytes.Buffer
	if err := s.svc.WriteSVG(ctx, &buf, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strings.TrimSpace(buf.String())), nil
}

func (s *Server) getSceneFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SceneFormatContract), nil
}

func (s *Server) readSceneFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SceneFormatURI,
			MIMEType: "text/markdown",
			Text:     SceneFormatContract,
		},
	}, nil
}
