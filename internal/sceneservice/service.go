// Package sceneservice owns the live scenes: for each scene id it keeps the
// graph, the simulation runner, the interaction controller, the viewport
// and the event stream, and it keeps them in step with the scene files.
package sceneservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/forcegraph/internal/apperr"
	"github.com/starford/forcegraph/internal/catalog"
	"github.com/starford/forcegraph/internal/checksum"
	"github.com/starford/forcegraph/internal/graph"
	"github.com/starford/forcegraph/internal/ingest"
	"github.com/starford/forcegraph/internal/interaction"
	"github.com/starford/forcegraph/internal/layout"
	"github.com/starford/forcegraph/internal/models"
	"github.com/starford/forcegraph/internal/render"
	"github.com/starford/forcegraph/internal/sse"
	"github.com/starford/forcegraph/internal/storage"
)

// Summary describes a live scene.
type Summary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Path        string    `json:"path,omitempty"`
	Nodes       int       `json:"nodes"`
	Links       int       `json:"links"`
	AutoCreated []string  `json:"auto_created"`
	State       string    `json:"state"`
	Alpha       float64   `json:"alpha"`
	Ticks       int       `json:"ticks"`
	Clients     int       `json:"clients"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// CatalogEntry is a catalogued scene file. Live reports whether the file
// currently backs a running scene; a file that lost an id clash or failed
// to start stays catalogued but not live.
type CatalogEntry struct {
	catalog.SceneRow
	Live bool `json:"live"`
}

// Options tunes the scenes started by a Service.
type Options struct {
	// Defaults is the simulation configuration every scene starts from.
	Defaults graph.Config
	// TickRate is the number of ticks per second of each runner.
	TickRate int
	// FrameThrottle is the minimum spacing of streamed tick frames.
	FrameThrottle time.Duration
	// BasePath is the URL prefix under which scene endpoints are served.
	BasePath string
	// AccessToken is embedded in rendered pages so their gesture posts and
	// event stream pass bearer auth. Empty when auth is disabled.
	AccessToken string
	Logger      *slog.Logger
}

// Service coordinates storage, the catalog and the live scenes.
type Service struct {
	store storage.Provider   // nil for in-memory only
	db    catalog.SceneIndex // nil when no catalog is kept
	opts  Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	scenes map[string]*scene
	paths  map[string]string // file path -> scene id
}

// NewService creates a scene service. Runners live until ctx is cancelled or
// Close is called. store and db may be nil.
func NewService(ctx context.Context, store storage.Provider, db *catalog.DB, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TickRate <= 0 {
		opts.TickRate = layout.DefaultTickRate
	}
	if opts.BasePath == "" {
		opts.BasePath = "/api/scenes"
	}
	if opts.Defaults.Width == 0 {
		opts.Defaults = graph.DefaultConfig()
	}
	var idx catalog.SceneIndex
	if db != nil {
		idx = db
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Service{
		store:  store,
		db:     idx,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		scenes: make(map[string]*scene),
		paths:  make(map[string]string),
	}
}

// LoadAll starts a scene for every scene file in the store. Files that fail
// to load, or that reuse an id already taken, are logged and skipped.
func (s *Service) LoadAll() error {
	if s.store == nil {
		return nil
	}
	metas, err := s.store.List("")
	if err != nil {
		return err
	}
	for _, m := range metas {
		if err := s.loadFile(m.Path); err != nil {
			s.opts.Logger.Warn("scene: load failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		}
	}
	return nil
}

// Create builds a scene from spec and starts it. With a store the scene is
// also written to <id>.yaml and catalogued.
func (s *Service) Create(ctx context.Context, spec *models.SceneSpec) (*Summary, error) {
	if spec == nil {
		return nil, fmt.Errorf("scene: nil spec: %w", apperr.ErrInvalidScene)
	}
	if strings.ContainsAny(spec.ID, `/\`) || strings.HasPrefix(spec.ID, ".") {
		return nil, fmt.Errorf("scene: id %q: %w", spec.ID, apperr.ErrInvalidScene)
	}
	built, err := ingest.Build(spec, s.opts.Defaults)
	if err != nil {
		return nil, err
	}
	if _, ok := s.lookup(built.ID); ok {
		return nil, fmt.Errorf("scene %q: %w", built.ID, apperr.ErrAlreadyExists)
	}

	var path, sum string
	if s.store != nil {
		path = built.ID + ".yaml"
		if _, err := s.store.Read(path); err == nil {
			return nil, fmt.Errorf("scene file %q: %w", path, apperr.ErrAlreadyExists)
		}
		persisted := *spec
		persisted.ID = built.ID
		data, err := yaml.Marshal(&persisted)
		if err != nil {
			return nil, fmt.Errorf("scene: encode: %w", err)
		}
		if err := s.store.Write(path, data); err != nil {
			return nil, err
		}
		if s.db != nil {
			if err := catalog.IndexFile(s.db, path, data, s.opts.Defaults); err != nil {
				return nil, err
			}
		}
		sum = checksum.Sum(data)
	}

	sc, err := s.start(built, path, sum)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, sc)
}

// Get returns the summary of scene id. A scene that is catalogued but not
// running is started from its file first.
func (s *Service) Get(ctx context.Context, id string) (*Summary, error) {
	sc, err := s.scene(id)
	if errors.Is(err, apperr.ErrNotFound) && s.db != nil && s.store != nil {
		row, cerr := s.db.Get(id)
		if cerr != nil {
			return nil, err
		}
		if lerr := s.loadFile(row.Path); lerr != nil {
			return nil, fmt.Errorf("scene %q: start from %q: %w", id, row.Path, lerr)
		}
		sc, err = s.scene(id)
	}
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, sc)
}

// Catalog returns every catalogued scene file ordered by path. Without a
// catalog it returns an empty list.
func (s *Service) Catalog() ([]CatalogEntry, error) {
	if s.db == nil {
		return []CatalogEntry{}, nil
	}
	rows, err := s.db.List()
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CatalogEntry, 0, len(rows))
	for _, r := range rows {
		_, live := s.paths[r.Path]
		out = append(out, CatalogEntry{SceneRow: r, Live: live})
	}
	return out, nil
}

// List returns every live scene ordered by id.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	s.mu.RLock()
	all := make([]*scene, 0, len(s.scenes))
	for _, sc := range s.scenes {
		all = append(all, sc)
	}
	s.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool { return all[i].id < all[j].id })

	out := make([]Summary, 0, len(all))
	for _, sc := range all {
		sum, err := s.summarize(ctx, sc)
		if errors.Is(err, layout.ErrStopped) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *sum)
	}
	return out, nil
}

// Delete stops scene id and removes its file and catalog row.
func (s *Service) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	sc, ok := s.scenes[id]
	if ok {
		delete(s.scenes, id)
		if sc.path != "" {
			delete(s.paths, sc.path)
		}
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scene %q: %w", id, apperr.ErrNotFound)
	}
	sc.stop()
	sc.broker.Publish(sse.Event{Type: sse.TypeDeleted, Data: map[string]string{"id": id}})
	sc.broker.Close()

	if sc.path != "" && s.store != nil {
		if err := s.store.Delete(sc.path); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		if s.db != nil {
			return s.db.Delete(sc.path)
		}
	}
	return nil
}

// HandleFileEvent applies a scene directory change reported by the catalog
// watcher. Its signature matches catalog.EventCallback.
func (s *Service) HandleFileEvent(kind, path string) {
	switch kind {
	case catalog.EventCreated, catalog.EventUpdated:
		if err := s.loadFile(path); err != nil {
			s.opts.Logger.Warn("scene: reload failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	case catalog.EventDeleted:
		s.unloadPath(path)
	}
}

// Events returns the SSE handler of scene id.
func (s *Service) Events(id string) (http.Handler, error) {
	sc, err := s.scene(id)
	if err != nil {
		return nil, err
	}
	return sc.broker, nil
}

// Close stops every runner and event stream and waits for the runners to
// exit.
func (s *Service) Close() {
	s.cancel()
	s.mu.Lock()
	all := make([]*scene, 0, len(s.scenes))
	for _, sc := range s.scenes {
		all = append(all, sc)
	}
	s.scenes = make(map[string]*scene)
	s.paths = make(map[string]string)
	s.mu.Unlock()

	for _, sc := range all {
		sc.stop()
		sc.broker.Close()
	}
	s.wg.Wait()
}

// loadFile (re)loads the scene stored at path. An unchanged file is a no-op.
// A file that changed replaces the running scene but keeps its viewport and
// connected clients.
func (s *Service) loadFile(path string) error {
	data, err := s.store.Read(path)
	if err != nil {
		return err
	}
	sum := checksum.Sum(data)

	s.mu.RLock()
	prevID, known := s.paths[path]
	var prev *scene
	if known {
		prev = s.scenes[prevID]
	}
	s.mu.RUnlock()
	if prev != nil && prev.checksum == sum {
		return nil
	}

	built, err := ingest.LoadFile(path, data, s.opts.Defaults)
	if err != nil {
		return err
	}
	if other, ok := s.lookup(built.ID); ok && other.path != path {
		return fmt.Errorf("scene %q already loaded from %q: %w", built.ID, other.path, apperr.ErrAlreadyExists)
	}
	if prev != nil && prev.id != built.ID {
		s.unloadPath(path)
	}
	_, err = s.start(built, path, sum)
	return err
}

func (s *Service) unloadPath(path string) {
	s.mu.Lock()
	id, ok := s.paths[path]
	var sc *scene
	if ok {
		sc = s.scenes[id]
		delete(s.paths, path)
		delete(s.scenes, id)
	}
	s.mu.Unlock()
	if sc == nil {
		return
	}
	sc.stop()
	sc.broker.Publish(sse.Event{Type: sse.TypeDeleted, Data: map[string]string{"id": id}})
	sc.broker.Close()
	s.opts.Logger.Info("scene: unloaded", slog.String("id", id), slog.String("path", path))
}

// start launches a runner for built. When a scene with the same id is
// already live it is replaced; its broker and viewport carry over.
func (s *Service) start(built *ingest.Scene, path, sum string) (*scene, error) {
	frags, err := render.NewFragments()
	if err != nil {
		return nil, err
	}
	sim := layout.New(built.Graph, built.Config)
	sc := &scene{
		id:       built.ID,
		name:     built.Name,
		path:     path,
		checksum: sum,
		cfg:      built.Config,
		graph:    built.Graph,
		runner:   layout.NewRunner(sim, layout.WithTickRate(s.opts.TickRate), layout.WithRunnerLogger(s.opts.Logger.With(slog.String("scene", built.ID)))),
		ctrl:     interaction.NewController(sim),
		frags:    frags,
		view:     interaction.Identity(),
		loadedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	prev := s.scenes[sc.id]
	if prev != nil {
		sc.broker = prev.broker
		sc.view = prev.currentView()
	} else {
		sc.broker = sse.NewBroker(s.opts.FrameThrottle)
	}
	s.scenes[sc.id] = sc
	if path != "" {
		s.paths[path] = sc.id
	}
	s.mu.Unlock()

	if prev != nil {
		prev.stop()
	}

	sc.unsubscribe = sc.runner.Subscribe(sc.stream)
	ctx, cancel := context.WithCancel(s.ctx)
	sc.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sc.runner.Run(ctx)
	}()

	if prev != nil {
		sc.broker.Publish(sse.Event{Type: sse.TypeReload, Data: map[string]string{"id": sc.id}})
		s.opts.Logger.Info("scene: reloaded", slog.String("id", sc.id), slog.String("path", path))
	} else {
		s.opts.Logger.Info("scene: started",
			slog.String("id", sc.id),
			slog.String("path", path),
			slog.Int("nodes", len(sc.graph.Nodes())),
			slog.Int("links", len(sc.graph.Links())))
	}
	if auto := sc.graph.AutoCreated(); len(auto) > 0 {
		s.opts.Logger.Debug("scene: nodes created by reference", slog.String("id", sc.id), slog.Any("ids", auto))
	}
	return sc, nil
}

func (s *Service) lookup(id string) (*scene, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scenes[id]
	return sc, ok
}

func (s *Service) scene(id string) (*scene, error) {
	sc, ok := s.lookup(id)
	if !ok {
		return nil, fmt.Errorf("scene %q: %w", id, apperr.ErrNotFound)
	}
	return sc, nil
}

func (s *Service) summarize(ctx context.Context, sc *scene) (*Summary, error) {
	sum := &Summary{
		ID:          sc.id,
		Name:        sc.name,
		Path:        sc.path,
		AutoCreated: append([]string{}, sc.graph.AutoCreated()...),
		LoadedAt:    sc.loadedAt,
	}
	err := sc.runner.Do(ctx, func(sim *layout.Simulation) {
		sum.Nodes = len(sim.Nodes())
		sum.Links = len(sim.Links())
		sum.State = sim.State().String()
		sum.Alpha = sim.Alpha()
		sum.Ticks = sim.Ticks()
	})
	if err != nil {
		return nil, s.runnerErr(sc, err)
	}
	sum.Clients = sc.broker.ClientCount()
	return sum, nil
}

// runnerErr maps a stopped runner to not found: the scene went away while
// the request was in flight.
func (s *Service) runnerErr(sc *scene, err error) error {
	if errors.Is(err, layout.ErrStopped) {
		return fmt.Errorf("scene %q: %w: %w", sc.id, apperr.ErrNotFound, err)
	}
	return err
}
