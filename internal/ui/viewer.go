package ui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atotto/clipboard"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"tapr/internal/diag"
	"tapr/internal/execution"
	"tapr/internal/nav"
	"tapr/internal/tap"
)

// RefreshInterval is how often the viewer takes one update from the controller
const RefreshInterval = 100 * time.Millisecond

// Viewer displays the result tree of the latest run in an interactive TUI
// and relaunches the run on demand.
type Viewer struct {
	ctx        context.Context
	controller *execution.Controller
	browser    *nav.Browser
	previewer  *diag.Previewer
	query      *diag.Query
	logger     *slog.Logger
	clip       func(string) error

	app     *tview.Application
	layout  tview.Primitive
	tree    *tview.TreeView
	details *tview.TextView
	status  *tview.TextView
	nodes   map[string]*tview.TreeNode

	last       execution.Update
	message    string
	previewSeq int
}

// NewViewer creates a new Viewer. previewer may be nil.
func NewViewer(controller *execution.Controller, browser *nav.Browser, previewer *diag.Previewer, query *diag.Query) *Viewer {
	v := &Viewer{
		ctx:        context.Background(),
		controller: controller,
		browser:    browser,
		previewer:  previewer,
		query:      query,
		logger:     slog.Default(),
		clip:       clipboard.WriteAll,
		nodes:      map[string]*tview.TreeNode{},
	}
	v.build()
	return v
}

// SetLogger sets the logger used for viewer events
func (v *Viewer) SetLogger(logger *slog.Logger) {
	v.logger = logger
}

// SetClipboard replaces the function used to copy locations
func (v *Viewer) SetClipboard(clip func(string) error) {
	v.clip = clip
}

func (v *Viewer) build() {
	v.app = tview.NewApplication()

	header := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true).
		SetText(" tapr | " + KeyHelp + " ")

	v.tree = tview.NewTreeView().
		SetGraphics(true).
		SetRoot(tview.NewTreeNode("results").SetColor(tcell.ColorWhite))
	v.tree.SetBorder(true).SetTitle(" Results ")

	v.details = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true)
	v.details.SetBorder(true).SetTitle(" Details ")

	v.status = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)

	// Tree on the left (1/3), details on the right (2/3)
	body := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(v.tree, 0, 1, true).
		AddItem(v.details, 0, 2, false)

	v.layout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 1, 0, false).
		AddItem(body, 0, 1, true).
		AddItem(v.status, 1, 0, false)

	v.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		cmd := KeyCommand(event)
		if cmd == CommandNone {
			return event
		}
		v.handle(cmd)
		return nil
	})

	v.refresh()
}

// Run launches the first cycle and blocks until the user quits
func (v *Viewer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	v.ctx = ctx

	v.controller.Launch(ctx)
	go v.pump(ctx)

	if err := v.app.SetRoot(v.layout, true).SetFocus(v.tree).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// pump hands at most one controller update per tick to the UI goroutine
func (v *Viewer) pump(ctx context.Context) {
	ticker := time.NewTicker(RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case u := <-v.controller.Updates():
				v.app.QueueUpdateDraw(func() { v.apply(u) })
			default:
			}
		}
	}
}

// apply runs on the UI goroutine
func (v *Viewer) apply(u execution.Update) {
	v.logger.Debug("update", "state", u.State, "stale", u.Stale, "error", u.Err)
	v.last = u
	v.message = ""
	if u.Results != nil && u.Results != v.browser.Results() {
		v.browser.Apply(u.Results)
		v.rebuildTree()
	}
	v.refresh()
}

func (v *Viewer) handle(cmd Command) {
	v.message = ""
	switch cmd {
	case CommandQuit:
		v.app.Stop()
		return
	case CommandRelaunch:
		if !v.controller.Launch(v.ctx) {
			v.message = "a run is already in progress"
		}
	case CommandNext:
		v.browser.Next()
	case CommandPrevious:
		v.browser.Previous()
	case CommandUnselect:
		v.browser.Unselect()
	case CommandYank:
		v.yank()
	}
	v.refresh()
}

func (v *Viewer) yank() {
	loc, ok := v.browser.Location()
	if !ok {
		v.message = "no location to copy"
		return
	}
	if err := v.clip(loc.String()); err != nil {
		v.logger.Warn("copy to clipboard failed", "error", err)
		v.message = "copy failed: " + err.Error()
		return
	}
	v.message = "copied " + loc.String()
}

func (v *Viewer) rebuildTree() {
	res := v.browser.Results()
	v.nodes = map[string]*tview.TreeNode{}

	root := tview.NewTreeNode(tview.Escape(res.Command)).SetColor(tcell.ColorWhite)
	v.addChildren(root, res.Tree.Root, nil)
	v.tree.SetRoot(root).SetCurrentNode(root)
}

func (v *Viewer) addChildren(parent *tview.TreeNode, s *tap.Subtest, path []int) {
	for i, child := range s.Children {
		childPath := append(append([]int(nil), path...), i)
		node := tview.NewTreeNode(nodeText(child)).
			SetColor(nodeColor(child)).
			SetReference(child)
		v.nodes[pathKey(childPath)] = node
		parent.AddChild(node)

		if child.Subtest != nil {
			v.addChildren(node, child.Subtest, childPath)
			// Passing subtests start collapsed
			node.SetExpanded(child.Subtest.Failed() || child.Subtest.Unterminated)
		}
	}
}

// refresh redraws the status bar and the selection
func (v *Viewer) refresh() {
	v.previewSeq++

	f, selected := v.browser.Current()
	position := ""
	if i, n, ok := v.browser.Position(); ok {
		position = fmt.Sprintf("%d/%d", i+1, n)
	}
	status := statusText(v.last, position)
	if v.message != "" {
		status += " | " + tview.Escape(v.message)
	}
	v.status.SetText(status)

	if !selected {
		text := overviewText(v.browser.Results())
		if v.last.Err != nil {
			text = "[red]" + tview.Escape(v.last.Err.Error()) + "[white]\n\n" + text
		}
		v.details.SetText(text).ScrollToBeginning()
		if root := v.tree.GetRoot(); root != nil {
			v.tree.SetCurrentNode(root)
		}
		return
	}

	if node, ok := v.nodes[pathKey(f.Path)]; ok {
		v.expandTo(f.Path)
		v.tree.SetCurrentNode(node)
	}

	text := failureDetails(f, diag.Locations(f.Point.Diagnostics, v.query))
	v.details.SetText(text).ScrollToBeginning()
	v.preview(text)
}

func (v *Viewer) expandTo(path []int) {
	for i := 1; i < len(path); i++ {
		if node, ok := v.nodes[pathKey(path[:i])]; ok {
			node.SetExpanded(true)
		}
	}
}

// preview renders the selected location in the background and appends it
// to the details pane unless the selection moved in the meantime.
func (v *Viewer) preview(text string) {
	if !v.previewer.Enabled() {
		return
	}
	loc, ok := v.browser.Location()
	if !ok {
		return
	}

	seq := v.previewSeq
	ctx := v.ctx
	go func() {
		out, err := v.previewer.Render(ctx, loc)
		v.app.QueueUpdateDraw(func() {
			if seq != v.previewSeq {
				return
			}
			if err != nil {
				v.logger.Warn("preview failed", "location", loc.String(), "error", err)
				v.details.SetText(text + "[red]" + tview.Escape(err.Error()) + "[white]\n")
				return
			}
			v.details.SetText(text + "[yellow]Preview:[white]\n" + tview.TranslateANSI(out))
		})
	}()
}
