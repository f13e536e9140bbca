package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"studyhub-be/internal/dto"
	"studyhub-be/internal/pkg/logger"
	"studyhub-be/internal/repository/memory"
	"studyhub-be/pkg/canvas"
	"studyhub-be/pkg/events"
	"studyhub-be/pkg/export"
	pktNats "studyhub-be/pkg/nats"
	"studyhub-be/pkg/slide"
	"studyhub-be/pkg/store"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("canvas session not found")
	ErrNotPersistent   = errors.New("session has no user; nothing is saved")
	ErrSaveInProgress  = errors.New("a save is already running")
	ErrLoadInProgress  = errors.New("saved notes are still loading")
	ErrNoFiles         = errors.New("no files to import")
)

const (
	canvasSessionModule = "CanvasSession"
	loadTimeout         = 30 * time.Second
)

type ICanvasSessionService interface {
	Open(ctx context.Context, userId string) (*dto.OpenSessionResponse, error)
	Identify(ctx context.Context, sessionId, userId string) error
	State(sessionId string) (*store.State, error)
	// Owner returns the user the session is bound to, "" when anonymous.
	Owner(sessionId string) (string, error)
	Close(sessionId string) error

	CreatePage(sessionId string) (*dto.MutationResponse, error)
	DeletePage(sessionId string) (*dto.MutationResponse, error)
	SetCurrentPage(sessionId string, req *dto.NavigatePageRequest) (*dto.MutationResponse, error)

	BeginStroke(sessionId string, req *dto.BeginStrokeRequest) (*dto.MutationResponse, error)
	ExtendStroke(sessionId string, req *dto.ExtendStrokeRequest) (*dto.MutationResponse, error)
	EndStroke(sessionId string, req *dto.PageRef) error
	Erase(sessionId string, req *dto.EraseRequest) (*dto.EraseResponse, error)

	AddTextBox(sessionId string, req *dto.AddTextBoxRequest) (*dto.MutationResponse, error)
	UpdateTextBox(sessionId string, boxId int64, req *dto.UpdateTextBoxRequest) (*dto.MutationResponse, error)
	MoveSlide(sessionId string, slideId int64, req *dto.MoveSlideRequest) (*dto.MutationResponse, error)
	DeleteItem(sessionId string, itemId int64, req *dto.PageRef) (*dto.MutationResponse, error)
	Zoom(sessionId string, req *dto.ZoomRequest) (float64, error)

	// ApplyPointer applies one websocket input event. Events of a session
	// are applied in the order they arrive.
	ApplyPointer(sessionId string, ev *dto.PointerEvent) error

	Import(ctx context.Context, sessionId string, files []slide.File) (*dto.ImportResponse, error)
	Save(ctx context.Context, sessionId string) (*store.State, error)
	Export(sessionId string) (*dto.ExportResult, error)

	Report(idleAfter time.Duration) dto.SessionReport
	// OnChange registers fn to be told which session changed.
	OnChange(fn func(sessionId string))
}

type canvasSessionService struct {
	sessions       *memory.SessionRepository
	noteCanvas     INoteCanvasService
	importer       *slide.Importer
	exportOpts     export.Options
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger

	mu        sync.Mutex
	loads     map[string]context.CancelFunc
	listeners []func(string)
}

func NewCanvasSessionService(
	sessions *memory.SessionRepository,
	noteCanvas INoteCanvasService,
	importer *slide.Importer,
	exportOpts export.Options,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) ICanvasSessionService {
	svc := &canvasSessionService{
		sessions:       sessions,
		noteCanvas:     noteCanvas,
		importer:       importer,
		exportOpts:     exportOpts,
		eventPublisher: eventPublisher,
		logger:         log,
		loads:          make(map[string]context.CancelFunc),
	}
	sessions.OnEvicted(func(s *store.Session) {
		svc.stopLoad(s.ID)
		s.CancelLoad()
	})
	return svc
}

func (c *canvasSessionService) OnChange(fn func(sessionId string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *canvasSessionService) changed(sessionId string) {
	c.mu.Lock()
	listeners := append([]func(string){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(sessionId)
	}
}

func (c *canvasSessionService) get(sessionId string) (*store.Session, error) {
	s, ok := c.sessions.Get(sessionId)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (c *canvasSessionService) Open(ctx context.Context, userId string) (*dto.OpenSessionResponse, error) {
	s := store.NewSession(uuid.NewString(), "")
	c.sessions.Save(s)

	if userId != "" {
		c.startLoad(s, userId)
	}

	c.logger.Info(canvasSessionModule, "Session opened", map[string]interface{}{
		"session_id": s.ID,
		"user_id":    userId,
	})
	return &dto.OpenSessionResponse{SessionId: s.ID, Persisted: userId != ""}, nil
}

// Identify switches the session to another user. Any load still running for
// the previous user is discarded when it completes.
func (c *canvasSessionService) Identify(ctx context.Context, sessionId, userId string) error {
	s, err := c.get(sessionId)
	if err != nil {
		return err
	}
	if userId == "" {
		c.stopLoad(sessionId)
		s.Forget()
		c.changed(sessionId)
		return nil
	}
	if s.UserID() == userId {
		return nil
	}
	c.startLoad(s, userId)
	return nil
}

func (c *canvasSessionService) startLoad(s *store.Session, userId string) {
	ticket := s.BeginLoad(userId)

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	c.mu.Lock()
	if prev, ok := c.loads[s.ID]; ok {
		prev()
	}
	c.loads[s.ID] = cancel
	c.mu.Unlock()

	go func() {
		defer cancel()
		doc, updatedAt, err := c.noteCanvas.LoadDocument(ctx, userId)
		if err != nil {
			c.logger.Error(canvasSessionModule, "Failed to load saved notes", map[string]interface{}{
				"session_id": s.ID,
				"user_id":    userId,
				"error":      err,
			})
		}
		if s.FinishLoad(ticket, doc, updatedAt, err) {
			c.changed(s.ID)
		}
	}()
}

func (c *canvasSessionService) stopLoad(sessionId string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cancel, ok := c.loads[sessionId]; ok {
		cancel()
		delete(c.loads, sessionId)
	}
}

func (c *canvasSessionService) State(sessionId string) (*store.State, error) {
	s, err := c.get(sessionId)
	if err != nil {
		return nil, err
	}
	st := s.View()
	return &st, nil
}

func (c *canvasSessionService) Owner(sessionId string) (string, error) {
	s, err := c.get(sessionId)
	if err != nil {
		return "", err
	}
	return s.UserID(), nil
}

func (c *canvasSessionService) Close(sessionId string) error {
	if _, err := c.get(sessionId); err != nil {
		return err
	}
	c.sessions.Delete(sessionId)
	c.logger.Info(canvasSessionModule, "Session closed", map[string]interface{}{"session_id": sessionId})
	return nil
}

// mutate runs fn under the session lock and notifies listeners.
func (c *canvasSessionService) mutate(sessionId string, fn func(doc *canvas.Document, vp *canvas.Viewport)) error {
	s, err := c.get(sessionId)
	if err != nil {
		return err
	}
	s.Do(fn)
	c.changed(sessionId)
	return nil
}

func pageIndex(doc *canvas.Document, ref *dto.PageRef) int {
	if ref == nil || ref.PageIndex == nil {
		return doc.CurrentPageIndex()
	}
	return *ref.PageIndex
}

func (c *canvasSessionService) CreatePage(sessionId string) (*dto.MutationResponse, error) {
	res := &dto.MutationResponse{}
	err := c.mutate(sessionId, func(doc *canvas.Document, _ *canvas.Viewport) {
		res.Id = doc.CreatePage()
		res.Applied = true
	})
	return res, err
}

func (c *canvasSessionService) DeletePage(sessionId string) (*dto.MutationResponse, error) {
	res := &dto.MutationResponse{}
	err := c.mutate(sessionId, func(doc *canvas.Document, _ *canvas.Viewport) {
		res.Applied = doc.DeletePage()
	})
	return res, err
}

func (c *canvasSessionService) SetCurrentPage(sessionId string, req *dto.NavigatePageRequest) (*dto.MutationResponse, error) {
	res := &dto.MutationResponse{}
	err := c.mutate(sessionId, func(doc *canvas.Document, _ *canvas.Viewport) {
		res.Applied = doc.SetCurrentPage(req.Index)
	})
	return res, err
}

func (c *canvasSessionService) BeginStroke(sessionId string, req *dto.BeginStrokeRequest) (*dto.MutationResponse, error) {
	return c.beginStroke(sessionId, req, false)
}

// stagePoint maps p into document space when it was taken on the zoomed
// stage.
func stagePoint(vp *canvas.Viewport, p canvas.Point, onStage bool) canvas.Point {
	if !onStage {
		return p
	}
	return vp.ToDocument(p)
}

func (c *canvasSessionService) beginStroke(sessionId string, req *dto.BeginStrokeRequest, onStage bool) (*dto.MutationResponse, error) {
	color := req.Color
	if color == "" {
		color = dto.DefaultStrokeColor
	}
	width := req.Width
	if width == 0 {
		width = dto.DefaultStrokeWidth
	}

	res := &dto.MutationResponse{}
	var beginErr error
	err := c.mutate(sessionId, func(doc *canvas.Document, vp *canvas.Viewport) {
		at := stagePoint(vp, canvas.Point{X: req.X, Y: req.Y}, onStage)
		id, err := doc.BeginStroke(pageIndex(doc, &req.PageRef), at, canvas.Tool(req.Tool), color, width)
		switch {
		case errors.Is(err, canvas.ErrPageOutOfRange):
		case err != nil:
			beginErr = err
		default:
			res.Id, res.Applied = id, true
		}
	})
	if err != nil {
		return nil, err
	}
	if beginErr != nil {
		return nil, beginErr
	}
	return res, nil
}

func (c *canvasSessionService) ExtendStroke(sessionId string, req *dto.ExtendStrokeRequest) (*dto.MutationResponse, error) {
	return c.extendStroke(sessionId, req, false)
}

func (c *canvasSessionService) extendStroke(sessionId string, req *dto.ExtendStrokeRequest, onStage bool) (*dto.MutationResponse, error) {
	res := &dto.MutationResponse{}
	err := c.mutate(sessionId, func(doc *canvas.Document, vp *canvas.Viewport) {
		idx := pageIndex(doc, &req.PageRef)
		for _, p := range req.Points {
			if !doc.ExtendStroke(idx, stagePoint(vp, p, onStage)) {
				return
			}
			res.Applied = true
		}
		res.Id, _ = doc.ActiveStroke(idx)
	})
	return res, err
}

func (c *canvasSessionService) EndStroke(sessionId string, req *dto.PageRef) error {
	return c.mutate(sessionId, func(doc *canvas.Document, _ *canvas.Viewport) {
		doc.EndStroke(pageIndex(doc, req))
	})
}

func (c *canvasSessionService) Erase(sessionId string, req *dto.EraseRequest) (*dto.EraseResponse, error) {
	return c.erase(sessionId, req, false)
}

// erase on the stage keeps the eraser the same size on screen, so its
// radius shrinks in document space as the zoom grows.
func (c *canvasSessionService) erase(sessionId string, req *dto.EraseRequest, onStage bool) (*dto.EraseResponse, error) {
	radius := req.Radius
	if radius == 0 {
		radius = dto.DefaultStrokeWidth
	}
	res := &dto.EraseResponse{}
	err := c.mutate(sessionId, func(doc *canvas.Document, vp *canvas.Viewport) {
		at := stagePoint(vp, canvas.Point{X: req.X, Y: req.Y}, onStage)
		r := radius
		if onStage {
			r = stagePoint(vp, canvas.Point{X: radius}, true).X
		}
		res.Removed = doc.Erase(pageIndex(doc, &req.PageRef), at, r)
	})
	return res, err
}

func (c *canvasSessionService) AddTextBox(sessionId string, req *dto.AddTextBoxRequest) (*dto.MutationResponse, error) {
	fontSize := req.FontSize
	if fontSize == 0 {
		fontSize = dto.DefaultFontSize
	}
	color := req.Color
	if color == "" {
		color = dto.DefaultStrokeColor
	}
	res := &dto.MutationResponse{}
	err := c.mutate(sessionId, func(doc *canvas.Document, _ *canvas.Viewport) {
		res.Id, res.Applied = doc.AddTextBox(pageIndex(doc, &req.PageRef), canvas.Point{X: req.X, Y: req.Y}, req.Text, fontSize, color)
	})
	return res, err
}

func (c *canvasSessionService) UpdateTextBox(sessionId string, boxId int64, req *dto.UpdateTextBoxRequest) (*dto.MutationResponse, error) {
	res := &dto.MutationResponse{Id: boxId}
	err := c.mutate(sessionId, func(doc *canvas.Document, _ *canvas.Viewport) {
		idx := pageIndex(doc, &req.PageRef)
		applied := false
		if req.Editing != nil && *req.Editing {
			applied = doc.BeginTextEdit(idx, boxId)
		}
		if req.Text != nil {
			if req.Editing != nil && !*req.Editing {
				applied = doc.CommitTextEdit(idx, boxId, *req.Text) || applied
			} else {
				applied = doc.UpdateTextBox(idx, boxId, *req.Text) || applied
			}
		}
		if req.X != nil || req.Y != nil {
			page, ok := doc.Page(idx)
			if ok {
				for _, tb := range page.TextBoxes {
					if tb.ID != boxId {
						continue
					}
					p := canvas.Point{X: tb.X, Y: tb.Y}
					if req.X != nil {
						p.X = *req.X
					}
					if req.Y != nil {
						p.Y = *req.Y
					}
					applied = doc.MoveTextBox(idx, boxId, p) || applied
				}
			}
		}
		res.Applied = applied
	})
	return res, err
}

func (c *canvasSessionService) MoveSlide(sessionId string, slideId int64, req *dto.MoveSlideRequest) (*dto.MutationResponse, error) {
	res := &dto.MutationResponse{Id: slideId}
	err := c.mutate(sessionId, func(doc *canvas.Document, _ *canvas.Viewport) {
		res.Applied = doc.MoveSlide(pageIndex(doc, &req.PageRef), slideId, canvas.Point{X: req.X, Y: req.Y})
	})
	return res, err
}

func (c *canvasSessionService) DeleteItem(sessionId string, itemId int64, req *dto.PageRef) (*dto.MutationResponse, error) {
	res := &dto.MutationResponse{Id: itemId}
	err := c.mutate(sessionId, func(doc *canvas.Document, _ *canvas.Viewport) {
		res.Applied = doc.DeleteSelected(pageIndex(doc, req), itemId)
	})
	return res, err
}

func (c *canvasSessionService) Zoom(sessionId string, req *dto.ZoomRequest) (float64, error) {
	var zoom float64
	err := c.mutate(sessionId, func(_ *canvas.Document, vp *canvas.Viewport) {
		switch {
		case req.Zoom != nil:
			vp.SetZoom(*req.Zoom)
		case req.Action == "in":
			vp.ZoomIn()
		case req.Action == "out":
			vp.ZoomOut()
		case req.Action == "reset":
			*vp = canvas.NewViewport()
		}
		zoom = vp.Zoom
	})
	return zoom, err
}

// ApplyPointer takes stage coordinates and stores them in document space
// using the session zoom.
func (c *canvasSessionService) ApplyPointer(sessionId string, ev *dto.PointerEvent) error {
	ref := dto.PageRef{PageIndex: ev.PageIndex}
	switch ev.Type {
	case "down":
		tool := ev.Tool
		if tool == "" {
			tool = string(canvas.ToolDraw)
		}
		_, err := c.beginStroke(sessionId, &dto.BeginStrokeRequest{
			PageRef: ref, X: ev.X, Y: ev.Y, Tool: tool, Color: ev.Color, Width: ev.Width,
		}, true)
		return err
	case "move":
		_, err := c.extendStroke(sessionId, &dto.ExtendStrokeRequest{
			PageRef: ref, Points: []canvas.Point{{X: ev.X, Y: ev.Y}},
		}, true)
		return err
	case "up":
		return c.EndStroke(sessionId, &ref)
	case "erase":
		_, err := c.erase(sessionId, &dto.EraseRequest{PageRef: ref, X: ev.X, Y: ev.Y, Radius: ev.Radius}, true)
		return err
	case "zoom":
		z := ev.Zoom
		_, err := c.Zoom(sessionId, &dto.ZoomRequest{Zoom: &z})
		return err
	}
	return fmt.Errorf("unknown pointer event %q", ev.Type)
}

// Import rasterizes the files without holding the session and then appends
// one page per usable file in a single edit.
func (c *canvasSessionService) Import(ctx context.Context, sessionId string, files []slide.File) (*dto.ImportResponse, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if _, err := c.get(sessionId); err != nil {
		return nil, err
	}

	prepared, failures, err := c.importer.PrepareAll(ctx, files)
	if err != nil {
		return nil, err
	}

	res := &dto.ImportResponse{PageIds: []int64{}, Failures: []dto.ImportFailure{}}
	err = c.mutate(sessionId, func(doc *canvas.Document, _ *canvas.Viewport) {
		for _, specs := range prepared {
			if specs != nil {
				res.PageIds = append(res.PageIds, doc.AddSlidePage(specs))
			}
		}
	})
	if err != nil {
		return nil, err
	}

	for _, f := range failures {
		c.logger.Warn(canvasSessionModule, "Skipped import file", map[string]interface{}{
			"session_id": sessionId,
			"file":       f.Name,
			"error":      f.Err.Error(),
		})
		res.Failures = append(res.Failures, dto.ImportFailure{Name: f.Name, Error: f.Err.Error()})
	}

	if c.eventPublisher != nil {
		if err := c.eventPublisher.Publish(ctx, events.NewCanvasImported(sessionId, res.PageIds, len(res.Failures))); err != nil {
			c.logger.Warn(canvasSessionModule, "Failed to publish CANVAS_IMPORTED event", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return res, nil
}

// Save persists the current snapshot. A storage failure is reported through
// the session status, not as an error, and is not retried. Saving is refused
// while the stored notes are still loading.
func (c *canvasSessionService) Save(ctx context.Context, sessionId string) (*store.State, error) {
	s, err := c.get(sessionId)
	if err != nil {
		return nil, err
	}
	if s.UserID() == "" {
		return nil, ErrNotPersistent
	}
	snap, userId, err := s.BeginSave()
	switch {
	case errors.Is(err, store.ErrLoading):
		return nil, ErrLoadInProgress
	case err != nil:
		return nil, ErrSaveInProgress
	}
	if userId == "" {
		s.FinishSave(nil, ErrNotPersistent)
		return nil, ErrNotPersistent
	}
	c.changed(sessionId)

	updatedAt, err := c.noteCanvas.SaveSnapshot(ctx, userId, snap)
	if err != nil {
		c.logger.Error(canvasSessionModule, "Save failed", map[string]interface{}{
			"session_id": sessionId,
			"user_id":    userId,
			"error":      err,
		})
	}
	s.FinishSave(updatedAt, err)
	c.changed(sessionId)

	st := s.View()
	return &st, nil
}

func (c *canvasSessionService) Export(sessionId string) (*dto.ExportResult, error) {
	s, err := c.get(sessionId)
	if err != nil {
		return nil, err
	}
	var (
		page  canvas.Page
		index int
	)
	s.Do(func(doc *canvas.Document, _ *canvas.Viewport) {
		page = doc.CurrentPage()
		index = doc.CurrentPageIndex()
	})

	content, err := export.Page(page, c.exportOpts)
	if err != nil {
		return nil, fmt.Errorf("export page %d: %w", index+1, err)
	}
	return &dto.ExportResult{FileName: export.FileName(index), Content: content}, nil
}

func (c *canvasSessionService) Report(idleAfter time.Duration) dto.SessionReport {
	var r dto.SessionReport
	now := time.Now()
	for _, s := range c.sessions.All() {
		st := s.View()
		r.Open++
		if st.Loading {
			r.Loading++
		}
		if st.Saving {
			r.Saving++
		}
		if st.UserID == "" {
			r.Anonymous++
		}
		if idleAfter > 0 && now.Sub(s.LastTouched()) > idleAfter {
			r.Idle++
		}
	}
	return r
}

// MarshalState renders the session state for websocket broadcast.
func MarshalState(st *store.State) ([]byte, error) {
	return json.Marshal(struct {
		Type  string       `json:"type"`
		State *store.State `json:"state"`
	}{Type: "state", State: st})
}
