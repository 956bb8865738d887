package sceneservice

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/starford/forcegraph/internal/apperr"
	"github.com/starford/forcegraph/internal/catalog"
	"github.com/starford/forcegraph/internal/graph"
	"github.com/starford/forcegraph/internal/interaction"
	"github.com/starford/forcegraph/internal/models"
	"github.com/starford/forcegraph/internal/render"
	"github.com/starford/forcegraph/internal/storage"
	"github.com/starford/forcegraph/internal/testutil"
)

func newTestService(t *testing.T, store storage.Provider, db *catalog.DB) *Service {
	t.Helper()
	s := NewService(context.Background(), store, db, Options{
		TickRate:      1000,
		FrameThrottle: 10 * time.Millisecond,
		Logger:        testutil.QuietLogger(),
	})
	t.Cleanup(s.Close)
	return s
}

func fruitSpec(id string) *models.SceneSpec {
	return &models.SceneSpec{
		ID:   id,
		Name: "Fruit",
		Nodes: []models.Record{
			{"id": "apple", "group": 1},
			{"id": "pear", "group": 2},
		},
		Links: []models.Record{
			{"source": "apple", "target": "pear", "weight": 2},
			{"source": "pear", "target": "kiwi"},
		},
		ColorNodesBy: "group",
	}
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func glyph(f render.Frame, id string) (render.Glyph, bool) {
	for _, g := range f.Nodes {
		if g.ID == id {
			return g, true
		}
	}
	return render.Glyph{}, false
}

func TestCreateAndGet(t *testing.T) {
	s := newTestService(t, nil, nil)
	ctx := context.Background()

	sum, err := s.Create(ctx, fruitSpec("fruit"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sum.ID != "fruit" || sum.Nodes != 3 || sum.Links != 2 {
		t.Errorf("summary = %+v", sum)
	}
	if len(sum.AutoCreated) != 1 || sum.AutoCreated[0] != "kiwi" {
		t.Errorf("auto created = %v", sum.AutoCreated)
	}

	if _, err := s.Create(ctx, fruitSpec("fruit")); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != "fruit" {
		t.Errorf("list = %+v", list)
	}
}

func TestCreateRejectsBadScenes(t *testing.T) {
	s := newTestService(t, nil, nil)
	ctx := context.Background()

	if _, err := s.Create(ctx, &models.SceneSpec{ID: "empty"}); !errors.Is(err, apperr.ErrEmptyGraph) {
		t.Errorf("expected ErrEmptyGraph, got %v", err)
	}
	if _, err := s.Create(ctx, fruitSpec("../escape")); !errors.Is(err, apperr.ErrInvalidScene) {
		t.Errorf("expected ErrInvalidScene, got %v", err)
	}
	dup := &models.SceneSpec{ID: "dup", Nodes: []models.Record{{"id": "a"}, {"id": "a"}}}
	if _, err := s.Create(ctx, dup); !errors.Is(err, apperr.ErrDuplicateNode) {
		t.Errorf("expected ErrDuplicateNode, got %v", err)
	}
}

func TestSceneSettlesAndResumesOnDrag(t *testing.T) {
	s := newTestService(t, nil, nil)
	ctx := context.Background()
	if _, err := s.Create(ctx, fruitSpec("fruit")); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		sum, _ := s.Get(ctx, "fruit")
		return sum != nil && sum.State == "settled"
	}, "scene never settled")

	if err := s.Drag(ctx, "fruit", DragStart, "apple", 0, 0); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	sum, err := s.Get(ctx, "fruit")
	if err != nil {
		t.Fatal(err)
	}
	if sum.State != "running" {
		t.Errorf("state after drag start = %s, want running", sum.State)
	}
	if err := s.Drag(ctx, "fruit", DragEnd, "apple", 0, 0); err != nil {
		t.Fatalf("drag end: %v", err)
	}
}

func TestDragUsesViewport(t *testing.T) {
	s := newTestService(t, nil, nil)
	ctx := context.Background()
	if _, err := s.Create(ctx, fruitSpec("fruit")); err != nil {
		t.Fatal(err)
	}

	v, err := s.Zoom("fruit", 2, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v.K != 2 {
		t.Fatalf("zoom k = %v", v.K)
	}
	if _, err := s.Pan("fruit", 10, 20); err != nil {
		t.Fatal(err)
	}

	if err := s.Drag(ctx, "fruit", DragStart, "apple", 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.Drag(ctx, "fruit", DragMove, "apple", 210, 120); err != nil {
		t.Fatal(err)
	}

	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		f, err := s.Frame(ctx, "fruit")
		if err != nil {
			return false
		}
		g, ok := glyph(f, "apple")
		return ok && g.Pinned && math.Abs(g.CX-100) < 1e-9 && math.Abs(g.CY-50) < 1e-9
	}, "dragged node not at inverted pointer position")
}

func TestGestureErrors(t *testing.T) {
	s := newTestService(t, nil, nil)
	ctx := context.Background()
	if _, err := s.Create(ctx, fruitSpec("fruit")); err != nil {
		t.Fatal(err)
	}

	cases := map[string]struct {
		err  error
		want error
	}{
		"unknown scene": {s.Drag(ctx, "nope", DragStart, "apple", 0, 0), apperr.ErrNotFound},
		"unknown node":  {s.DoubleClick(ctx, "fruit", "banana"), apperr.ErrNotFound},
		"bad phase":     {s.Drag(ctx, "fruit", "hover", "apple", 0, 0), apperr.ErrInvalidInput},
		"release":       {s.Release(ctx, "fruit", "banana"), apperr.ErrNotFound},
	}
	for name, tc := range cases {
		if !errors.Is(tc.err, tc.want) {
			t.Errorf("%s: error = %v, want %v", name, tc.err, tc.want)
		}
	}
	if _, err := s.Zoom("fruit", 0, 0, 0); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("zoom 0: error = %v", err)
	}
}

func TestGestureCoordinateBounds(t *testing.T) {
	s := newTestService(t, nil, nil)
	ctx := context.Background()
	if _, err := s.Create(ctx, fruitSpec("fruit")); err != nil {
		t.Fatal(err)
	}

	if err := s.Drag(ctx, "fruit", DragMove, "apple", math.NaN(), 0); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("nan drag: error = %v", err)
	}
	if err := s.Pin(ctx, "fruit", "apple", 0, math.Inf(1)); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("inf pin: error = %v", err)
	}
	if _, err := s.Pan("fruit", math.MaxFloat64, 0); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("huge pan: error = %v", err)
	}

	// A screen point in range can still map far outside once zoomed out.
	if _, err := s.Zoom("fruit", interaction.MinScale, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.Drag(ctx, "fruit", DragStart, "apple", 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.Drag(ctx, "fruit", DragMove, "apple", 9e5, 0); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("out of range world point: error = %v", err)
	}
	if err := s.Drag(ctx, "fruit", DragMove, "apple", 50, 50); err != nil {
		t.Errorf("in range move: %v", err)
	}
}

func TestPinAndRelease(t *testing.T) {
	s := newTestService(t, nil, nil)
	ctx := context.Background()
	if _, err := s.Create(ctx, fruitSpec("fruit")); err != nil {
		t.Fatal(err)
	}
	if err := s.Pin(ctx, "fruit", "pear", 42, 24); err != nil {
		t.Fatal(err)
	}
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		f, _ := s.Frame(ctx, "fruit")
		g, ok := glyph(f, "pear")
		return ok && g.CX == 42 && g.CY == 24
	}, "pinned node not at pin")

	if err := s.Release(ctx, "fruit", "pear"); err != nil {
		t.Fatal(err)
	}
	f, _ := s.Frame(ctx, "fruit")
	if g, _ := glyph(f, "pear"); g.Pinned {
		t.Error("node still pinned after release")
	}
}

func TestViews(t *testing.T) {
	s := newTestService(t, nil, nil)
	ctx := context.Background()
	if _, err := s.Create(ctx, fruitSpec("fruit")); err != nil {
		t.Fatal(err)
	}

	markup, err := s.Markup("fruit")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(markup), "d3-container-fruit") {
		t.Errorf("markup = %s", markup)
	}

	script, err := s.Script(ctx, "fruit")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(script), "/api/scenes/fruit") {
		t.Error("script missing scene endpoint")
	}

	var buf bytes.Buffer
	if err := s.WriteDocument(ctx, &buf, "fruit"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "<title>Fruit</title>") {
		t.Errorf("document missing title")
	}

	buf.Reset()
	if err := s.WriteSVG(ctx, &buf, "fruit"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "<circle") {
		t.Error("svg has no circles")
	}

	buf.Reset()
	if err := s.WritePNG(ctx, &buf, "fruit"); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("png signature missing")
	}
}

func TestEventsStream(t *testing.T) {
	s := newTestService(t, nil, nil)
	if _, err := s.Create(context.Background(), fruitSpec("fruit")); err != nil {
		t.Fatal(err)
	}
	h, err := s.Events("fruit")
	if err != nil || h == nil {
		t.Fatalf("Events: %v", err)
	}
	if _, err := s.Events("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileBackedScenes(t *testing.T) {
	_, store := testutil.TestScenes(t)
	db := testutil.TestDB(t)

	_ = store.Write("tree.yaml", []byte("name: Tree\nnodes: [{id: root}, {id: leaf}]\nlinks: [{source: root, target: leaf}]\n"))
	_ = store.Write("broken.yaml", []byte("nodes: ["))

	s := newTestService(t, store, db)
	ctx := context.Background()
	if err := s.LoadAll(); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	sum, err := s.Get(ctx, "tree")
	if err != nil {
		t.Fatalf("Get tree: %v", err)
	}
	if sum.Path != "tree.yaml" || sum.Nodes != 2 {
		t.Errorf("summary = %+v", sum)
	}

	// Unchanged file is a no-op, changed file reloads.
	s.HandleFileEvent(catalog.EventUpdated, "tree.yaml")
	again, _ := s.Get(ctx, "tree")
	if !again.LoadedAt.Equal(sum.LoadedAt) {
		t.Error("unchanged file reloaded")
	}
	_ = store.Write("tree.yaml", []byte("name: Tree\nnodes: [{id: root}, {id: leaf}, {id: bud}]\n"))
	s.HandleFileEvent(catalog.EventUpdated, "tree.yaml")
	again, _ = s.Get(ctx, "tree")
	if again.Nodes != 3 {
		t.Errorf("reloaded nodes = %d, want 3", again.Nodes)
	}

	// Created scenes are persisted and catalogued.
	if _, err := s.Create(ctx, fruitSpec("fruit")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Read("fruit.yaml"); err != nil {
		t.Errorf("created scene not written: %v", err)
	}
	if row, err := db.Get("fruit"); err != nil || row.Path != "fruit.yaml" {
		t.Errorf("catalog row = %+v, %v", row, err)
	}

	if err := s.Delete(ctx, "fruit"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Read("fruit.yaml"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("scene file still present: %v", err)
	}
	if err := s.Delete(ctx, "fruit"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}

	_ = store.Delete("tree.yaml")
	_ = db.Delete("tree.yaml")
	s.HandleFileEvent(catalog.EventDeleted, "tree.yaml")
	if _, err := s.Get(ctx, "tree"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("scene still live after file deletion: %v", err)
	}
}

func TestCatalogTracksIdleFiles(t *testing.T) {
	_, store := testutil.TestScenes(t)
	db := testutil.TestDB(t)

	doc := []byte("id: dup\nnodes: [{id: a}, {id: b}]\n")
	_ = store.Write("a.yaml", doc)
	_ = store.Write("b.yaml", doc)
	if err := catalog.Sync(db, store, graph.DefaultConfig(), testutil.QuietLogger()); err != nil {
		t.Fatal(err)
	}

	s := newTestService(t, store, db)
	ctx := context.Background()
	if err := s.LoadAll(); err != nil {
		t.Fatal(err)
	}

	entries, err := s.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("catalog = %+v, want 2 entries", entries)
	}
	if !entries[0].Live || entries[1].Live {
		t.Errorf("live flags = %v, %v; want a.yaml live only", entries[0].Live, entries[1].Live)
	}

	// Deleting the live scene frees the id; the idle file starts on demand.
	if err := s.Delete(ctx, "dup"); err != nil {
		t.Fatal(err)
	}
	sum, err := s.Get(ctx, "dup")
	if err != nil {
		t.Fatalf("Get after delete: %v", err)
	}
	if sum.Path != "b.yaml" {
		t.Errorf("path = %q, want b.yaml", sum.Path)
	}
	entries, _ = s.Catalog()
	if len(entries) != 1 || !entries[0].Live {
		t.Errorf("catalog after restart = %+v", entries)
	}

	if _, err := s.Get(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown id: %v", err)
	}
	empty, err := newTestService(t, nil, nil).Catalog()
	if err != nil || len(empty) != 0 {
		t.Errorf("catalog without db = %v, %v", empty, err)
	}
}
