package tui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Zacy-Sokach/cadgen/internal/api"
	"github.com/Zacy-Sokach/cadgen/internal/state"
	"github.com/Zacy-Sokach/cadgen/internal/utils"
	"github.com/Zacy-Sokach/cadgen/internal/viewer"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeBackend struct {
	mu        sync.Mutex
	requests  []api.GenerateRequest
	result    api.Result
	err       error
	panics    bool
	asset     []byte
	assetErr  error
	statusErr error
}

func (f *fakeBackend) Generate(_ context.Context, req api.GenerateRequest) (api.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.panics {
		panic("boom")
	}
	return f.result, f.err
}

func (f *fakeBackend) FetchAsset(context.Context, string) ([]byte, error) {
	return f.asset, f.assetErr
}

func (f *fakeBackend) DownloadURL(id api.SessionID, format api.Format) string {
	return "http://localhost:8000/api/download/" + id.String() + "?format=" + string(format)
}

func (f *fakeBackend) Status(context.Context) (*api.StatusResponse, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &api.StatusResponse{Status: "ok", Message: "API is running"}, nil
}

func (f *fakeBackend) lastRequest(t *testing.T) api.GenerateRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

type recordingOpener struct {
	mu   sync.Mutex
	urls []string
}

func (o *recordingOpener) OpenURL(url string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.urls = append(o.urls, url)
	return nil
}

func (o *recordingOpener) opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.urls...)
}

var _ utils.URLOpener = (*recordingOpener)(nil)

// triangleGLB 只有一个三角形的最小 GLB
func triangleGLB(t *testing.T) []byte {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {10, 0, 0}, {0, 10, 0}})
	doc.Meshes = []*gltf.Mesh{{Primitives: []*gltf.Primitive{{
		Attributes: map[string]int{gltf.POSITION: pos},
	}}}}
	doc.Nodes = []*gltf.Node{{Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	require.NoError(t, enc.Encode(doc))
	return buf.Bytes()
}

type harness struct {
	m       *Model
	backend *fakeBackend
	opener  *recordingOpener
	copied  []string
}

func newHarness(t *testing.T, skipLanding bool) *harness {
	t.Helper()
	h := &harness{
		backend: &fakeBackend{asset: triangleGLB(t)},
		opener:  &recordingOpener{},
	}
	h.m = NewModel(Options{
		Backend:     h.backend,
		Viewer:      viewer.New(viewer.Options{SnapshotWidth: 64, SnapshotHeight: 48, Quality: 80}),
		Opener:      h.opener,
		Clipboard:   func(s string) error { h.copied = append(h.copied, s); return nil },
		DocsURL:     "https://cadquery.readthedocs.io/",
		SkipLanding: skipLanding,
	})
	h.m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return h
}

// collect 执行命令并收集立即返回的消息，定时类命令被忽略
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	select {
	case msg := <-done:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, collect(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(300 * time.Millisecond):
		return nil
	}
}

// drive 把后台命令产生的业务消息送回 Update，直到没有新消息
func (h *harness) drive(cmd tea.Cmd) []tea.Msg {
	var seen []tea.Msg
	queue := collect(cmd)
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]
		switch msg.(type) {
		case GenerateDoneMsg, AssetLoadedMsg, ClipboardMsg, StatusMsg:
			seen = append(seen, msg)
			_, next := h.m.Update(msg)
			queue = append(queue, collect(next)...)
		}
	}
	return seen
}

func (h *harness) send(text string) tea.Cmd {
	h.m.ui.textarea.SetValue(text)
	_, cmd := h.m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSubmitSuccessLoadsModel(t *testing.T) {
	h := newHarness(t, true)
	h.backend.result = api.Generated{SessionID: "7", GlbURL: "/static/a.glb", Code: "result = cq.Workplane().box(10, 10, 10)"}

	cmd := h.send("a 10mm cube")
	require.NotNil(t, cmd)
	assert.True(t, h.m.state.InFlight())
	assert.False(t, h.m.ui.textarea.Focused())
	assert.Equal(t, "", h.m.ui.textarea.Value())
	assert.Contains(t, h.m.View(), "Generating Model...")

	h.drive(cmd)

	req := h.backend.lastRequest(t)
	assert.Equal(t, "a 10mm cube", req.Prompt)
	assert.Nil(t, req.SessionID)
	assert.Nil(t, req.Image)

	assert.False(t, h.m.state.InFlight())
	assert.True(t, h.m.ui.textarea.Focused())
	assert.Equal(t, "/static/a.glb", h.m.state.AssetURL())
	assert.Equal(t, viewer.StatusReady, h.m.viewer.Status())

	msgs := h.m.state.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, state.GeneratedLabel, msgs[1].Content)

	view := h.m.View()
	assert.Contains(t, view, "⤓ STL ^S")
	assert.Contains(t, view, "⤓ GLTF ^G")
	assert.Contains(t, view, "session 7")
}

func TestRefinementSendsSnapshot(t *testing.T) {
	h := newHarness(t, true)
	h.backend.result = api.Generated{SessionID: "7", GlbURL: "/static/a.glb", Code: "c"}
	h.drive(h.send("a 10mm cube"))

	h.backend.result = api.Generated{SessionID: "7", GlbURL: "/static/b.glb", Code: "c2"}
	h.drive(h.send("add a 2mm hole"))

	req := h.backend.lastRequest(t)
	require.NotNil(t, req.SessionID)
	assert.Equal(t, api.SessionID("7"), *req.SessionID)
	require.NotNil(t, req.Image)
	assert.True(t, strings.HasPrefix(*req.Image, "data:image/jpeg;base64,"))
	assert.Equal(t, "/static/b.glb", h.m.viewer.URL())
}

func TestLogicalErrorKeepsModelAndShowsToast(t *testing.T) {
	h := newHarness(t, true)
	h.backend.result = api.Generated{SessionID: "7", GlbURL: "/static/a.glb", Code: "c"}
	h.drive(h.send("a 10mm cube"))

	h.backend.result = api.Failed{Message: "bad input"}
	h.drive(h.send("???"))

	assert.Equal(t, "/static/a.glb", h.m.state.AssetURL())
	assert.Equal(t, viewer.StatusReady, h.m.viewer.Status())
	toast, ok := h.m.state.Toast()
	require.True(t, ok)
	assert.Equal(t, "bad input", toast.Message)

	view := h.m.View()
	assert.Contains(t, view, "bad input")
	assert.Contains(t, view, "Error: bad input")
}

func TestTransportErrorClearsInFlight(t *testing.T) {
	h := newHarness(t, true)
	h.backend.err = &api.APIError{StatusCode: 502}

	h.drive(h.send("a cube"))

	assert.False(t, h.m.state.InFlight())
	msgs := h.m.state.Messages()
	assert.Equal(t, "Error: Request failed with status code 502", msgs[len(msgs)-1].Content)
}

func TestPanicInRequestStillCompletes(t *testing.T) {
	h := newHarness(t, true)
	h.backend.panics = true

	seen := h.drive(h.send("a cube"))

	require.Len(t, seen, 1)
	done := seen[0].(GenerateDoneMsg)
	require.Error(t, done.Err)
	assert.Contains(t, done.Err.Error(), "boom")
	assert.False(t, h.m.state.InFlight())
}

func TestSubmitWhileInFlightIgnored(t *testing.T) {
	h := newHarness(t, true)
	h.backend.result = api.Generated{SessionID: "1", GlbURL: "/static/a.glb", Code: "c"}

	first := h.send("first")
	require.NotNil(t, first)
	assert.Nil(t, h.send("second"))
	assert.Equal(t, 1, h.m.state.Len())

	h.drive(first)
	assert.Equal(t, 2, h.m.state.Len())
}

func TestBlankSubmitIgnored(t *testing.T) {
	h := newHarness(t, true)
	assert.Nil(t, h.send("   "))
	assert.Equal(t, 0, h.m.state.Len())
}

func TestSubmitLeavesRequestLoggingToClient(t *testing.T) {
	h := newHarness(t, true)
	core, logs := observer.New(zap.DebugLevel)
	h.m.logger = zap.New(core)
	h.backend.result = api.Generated{SessionID: "1", GlbURL: "/static/a.glb", Code: "c"}

	h.drive(h.send("a cube"))

	for _, entry := range logs.All() {
		assert.NotContains(t, entry.ContextMap(), "prompt_len", entry.Message)
	}
}

func TestSendEnabledFollowsInput(t *testing.T) {
	h := newHarness(t, true)
	h.backend.result = api.Generated{SessionID: "1", GlbURL: "/static/a.glb", Code: "c"}

	assert.False(t, h.m.canSend(), "blank prompt")
	h.m.ui.textarea.SetValue("a cube")
	assert.True(t, h.m.canSend())
	assert.Contains(t, h.m.View(), sendLabel)

	cmd := h.send("a cube")
	h.m.ui.textarea.SetValue("another")
	assert.False(t, h.m.canSend(), "request in flight")

	h.drive(cmd)
	h.m.ui.textarea.SetValue("another")
	assert.True(t, h.m.canSend())
}

func TestStaleAssetIgnored(t *testing.T) {
	h := newHarness(t, true)
	h.m.viewer.BeginLoad("/static/new.glb")

	h.m.Update(AssetLoadedMsg{URL: "/static/old.glb", Err: errors.New("late")})
	assert.Equal(t, viewer.StatusLoading, h.m.viewer.Status())

	h.m.Update(AssetLoadedMsg{URL: "/static/new.glb", Err: errors.New("404")})
	assert.Equal(t, viewer.StatusFailed, h.m.viewer.Status())
	_, ok := h.m.state.Toast()
	assert.False(t, ok, "asset failures stay in the viewer pane")
}

func TestToastExpiry(t *testing.T) {
	h := newHarness(t, true)

	h.m.Update(StatusMsg{Err: errors.New("connection refused")})
	first, ok := h.m.state.Toast()
	require.True(t, ok)
	assert.Equal(t, "Backend unavailable: connection refused", first.Message)

	h.m.Update(ClipboardMsg{})
	second, ok := h.m.state.Toast()
	require.True(t, ok)

	h.m.Update(ToastExpiredMsg{ID: first.ID})
	current, ok := h.m.state.Toast()
	require.True(t, ok)
	assert.Equal(t, second.ID, current.ID)

	h.m.Update(ToastExpiredMsg{ID: second.ID})
	_, ok = h.m.state.Toast()
	assert.False(t, ok)
}

func TestEscDismissesToast(t *testing.T) {
	h := newHarness(t, true)
	h.m.Update(StatusMsg{Err: errors.New("down")})

	h.m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	_, ok := h.m.state.Toast()
	assert.False(t, ok)
}

func TestDownloads(t *testing.T) {
	h := newHarness(t, true)

	_, cmd := h.m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Nil(t, cmd, "no session, no download")

	h.backend.result = api.Generated{SessionID: "7", GlbURL: "/static/a.glb", Code: "c"}
	h.drive(h.send("a cube"))

	_, cmd = h.m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	collect(cmd)
	_, cmd = h.m.Update(tea.KeyMsg{Type: tea.KeyCtrlG})
	collect(cmd)
	collect(h.send("/glb"))

	assert.Equal(t, []string{
		"http://localhost:8000/api/download/7?format=stl",
		"http://localhost:8000/api/download/7?format=gltf",
		"http://localhost:8000/api/download/7?format=glb",
	}, h.opener.opened())
}

func TestSlashCommands(t *testing.T) {
	h := newHarness(t, true)
	h.backend.result = api.Generated{SessionID: "7", GlbURL: "/static/a.glb", Code: "c"}
	h.drive(h.send("a cube"))

	h.send("/sidebar")
	assert.False(t, h.m.sidebarOpen)
	assert.Equal(t, 0, h.m.ui.Layout().SidebarWidth)

	h.send("/help")
	toast, ok := h.m.state.Toast()
	require.True(t, ok)
	assert.Equal(t, helpText, toast.Message)

	h.send("/new")
	assert.Equal(t, 0, h.m.state.Len())
	_, ok = h.m.state.Session()
	assert.False(t, ok)
	assert.Equal(t, viewer.StatusEmpty, h.m.viewer.Status())

	// 未知的斜杠开头文本作为提示词发送
	h.drive(h.send("/fillet all edges"))
	assert.Equal(t, "/fillet all edges", h.backend.lastRequest(t).Prompt)
}

func TestCopyCode(t *testing.T) {
	h := newHarness(t, true)

	h.m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	toast, ok := h.m.state.Toast()
	require.True(t, ok)
	assert.Equal(t, "No generated code to copy yet", toast.Message)

	h.backend.result = api.Generated{SessionID: "7", GlbURL: "/static/a.glb", Code: "result = box"}
	h.drive(h.send("a cube"))

	_, cmd := h.m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	h.drive(cmd)
	assert.Equal(t, []string{"result = box"}, h.copied)
	toast, _ = h.m.state.Toast()
	assert.Equal(t, "Code copied to clipboard", toast.Message)
}

func TestNewProjectKey(t *testing.T) {
	h := newHarness(t, true)
	h.backend.result = api.Generated{SessionID: "7", GlbURL: "/static/a.glb", Code: "c"}
	h.drive(h.send("a cube"))

	h.m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, "", h.m.state.AssetURL())
	assert.Contains(t, h.m.View(), viewer.Placeholder)
}

func TestViewerFocusOrbit(t *testing.T) {
	h := newHarness(t, true)
	before := h.m.viewer.Camera()

	h.m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusViewer, h.m.focus)
	assert.False(t, h.m.ui.textarea.Focused())

	h.m.Update(key("l"))
	h.m.Update(key("k"))
	h.m.Update(key("+"))
	after := h.m.viewer.Camera()
	assert.NotEqual(t, before.Yaw, after.Yaw)
	assert.NotEqual(t, before.Pitch, after.Pitch)
	assert.Less(t, after.Distance, before.Distance)
	assert.Equal(t, "", h.m.ui.textarea.Value(), "viewer keys must not reach the prompt")

	h.m.Update(key("r"))
	assert.Equal(t, viewer.DefaultCamera(), h.m.viewer.Camera())

	h.m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, focusPrompt, h.m.focus)
	assert.True(t, h.m.ui.textarea.Focused())
}

func TestLandingPage(t *testing.T) {
	h := newHarness(t, false)

	view := h.m.View()
	assert.Contains(t, view, "CadQuery GenAI")
	assert.Contains(t, view, "Start Modeling")
	assert.Nil(t, h.m.surface(), "viewer is not mounted on the landing page")

	_, cmd := h.m.Update(key("d"))
	collect(cmd)
	assert.Equal(t, []string{"https://cadquery.readthedocs.io/"}, h.opener.opened())

	h.m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, screenApp, h.m.screen)
	assert.NotNil(t, h.m.surface())
}

func TestAppViewEmptyState(t *testing.T) {
	h := newHarness(t, true)
	view := h.m.View()

	assert.Contains(t, view, viewer.Placeholder)
	assert.Contains(t, view, emptyHistoryText)
	assert.Contains(t, view, "Start by describing a shape...")
	assert.Contains(t, view, footnoteText)
	assert.NotContains(t, view, "⤓ STL", "download buttons need a session")
}

func TestCodePreview(t *testing.T) {
	assert.Equal(t, "short...", codePreview("short"))
	long := strings.Repeat("x", 150)
	assert.Equal(t, strings.Repeat("x", 100)+"...", codePreview(long))
}

func TestSidebarLabel(t *testing.T) {
	assert.Equal(t, "Generated Model", sidebarLabel(state.Message{Role: state.RoleModel}))
	assert.Equal(t, "a cube", sidebarLabel(state.Message{Role: state.RoleUser, Content: "a cube"}))
}
