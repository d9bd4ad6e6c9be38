package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/panekit/panekit/internal/engine"
	"github.com/panekit/panekit/pkg/models"
)

// Terminal cells approximate this many pixels; the breakpoint table is
// pixel-based, so resizing the terminal crosses real thresholds.
const (
	cellPixelWidth  = 8
	cellPixelHeight = 16
)

// maxEventLines caps the in-memory event log.
const maxEventLines = 200

// demoOverlayID is the overlay toggled by the o key.
const demoOverlayID = "command_palette"

// EngineEventMsg wraps an engine event for the shell.
type EngineEventMsg struct {
	Event engine.Event
}

// transitionResultMsg carries the result of a transition request.
type transitionResultMsg struct {
	outcome engine.Outcome
	err     error
}

// saveResultMsg carries the result of an explicit save.
type saveResultMsg struct {
	err error
}

// tickMsg drives the periodic redraw.
type tickMsg time.Time

// App is the main bubbletea model for the panekit shell.
type App struct {
	// facade is the engine entry point every gesture goes through.
	facade *engine.Facade
	// host is the live pane population the shell owns.
	host *engine.StaticPaneHost
	// refresh is the redraw interval.
	refresh time.Duration

	// layout tracks terminal geometry.
	layout *LayoutManager
	// paneInput is the add-pane text field.
	paneInput *PaneInput
	// adding is true while the add-pane field is open.
	adding bool

	// events holds formatted event-log lines, newest last.
	events []string
	// notice is the last action result shown in the footer.
	notice string
	// quitting indicates the shell is shutting down.
	quitting bool
}

// New creates a new App around a facade and its pane host.
func New(facade *engine.Facade, host *engine.StaticPaneHost, refresh time.Duration) *App {
	if refresh <= 0 {
		refresh = 100 * time.Millisecond
	}
	return &App{
		facade:    facade,
		host:      host,
		refresh:   refresh,
		layout:    NewLayoutManager(80, 24),
		paneInput: NewPaneInput(),
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.tick()
}

// tick schedules the next periodic redraw.
func (a *App) tick() tea.Cmd {
	return tea.Tick(a.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.quitting = true
			return a, tea.Quit
		}
		if a.adding {
			var cmd tea.Cmd
			a.paneInput, cmd = a.paneInput.Update(msg)
			return a, cmd
		}
		return a.handleKey(msg.String())

	case tea.WindowSizeMsg:
		a.layout.SetSize(msg.Width, msg.Height)
		a.paneInput.SetWidth(msg.Width)
		a.facade.HandleResize(context.Background(), msg.Width*cellPixelWidth, msg.Height*cellPixelHeight)

	case EngineEventMsg:
		a.events = append(a.events, formatEvent(msg.Event))
		if len(a.events) > maxEventLines {
			a.events = a.events[len(a.events)-maxEventLines:]
		}

	case PaneSubmittedMsg:
		a.adding = false
		a.host.AddPane(msg.PaneID)
		a.notice = fmt.Sprintf("added pane %s", msg.PaneID)
		return a, a.requestMode(a.facade.CurrentMode())

	case PaneInputCancelledMsg:
		a.adding = false

	case transitionResultMsg:
		a.noteOutcome(msg.outcome, msg.err)

	case saveResultMsg:
		if msg.err != nil {
			a.notice = fmt.Sprintf("save failed: %v", msg.err)
		} else {
			a.notice = "preferences saved"
		}

	case tickMsg:
		return a, a.tick()
	}

	return a, nil
}

// handleKey dispatches a shell key binding.
func (a *App) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		a.quitting = true
		return a, tea.Quit

	case "1", "2", "3", "4", "5":
		mode, _ := modeForKey(key)
		if mode == models.Custom {
			return a, a.requestCustom()
		}
		return a, a.requestMode(mode)

	case "tab":
		a.focusNext()
		// Collapsing modes show the focused pane, so moving focus
		// re-derives the configuration.
		switch a.facade.CurrentMode() {
		case models.SinglePane, models.Tabbed:
			return a, a.requestMode(a.facade.CurrentMode())
		}

	case "l":
		if a.facade.Locked() {
			a.facade.Unlock()
			a.notice = "layout unlocked"
		} else {
			a.facade.Lock()
			a.notice = "layout locked"
		}

	case "o":
		if hasOverlay(a.facade.GetState().Current.Overlays, demoOverlayID) {
			a.facade.DismissOverlay(demoOverlayID)
			a.notice = "overlay dismissed"
		} else {
			a.facade.RegisterOverlay(demoOverlayID)
			a.notice = "overlay shown"
		}

	case "a":
		a.adding = true
		return a, a.paneInput.Focus()

	case "x":
		ids := a.host.ActivePaneIDs()
		if len(ids) <= 1 {
			a.notice = "cannot remove the last pane"
			return a, nil
		}
		removed := a.host.FocusedPaneID()
		a.host.RemovePane(removed)
		a.notice = fmt.Sprintf("removed pane %s", removed)
		return a, a.requestMode(a.facade.CurrentMode())

	case "[":
		a.nudgeSplit(-0.05)
	case "]":
		a.nudgeSplit(0.05)

	case "s":
		return a, func() tea.Msg {
			return saveResultMsg{err: a.facade.SavePreferences(context.Background())}
		}
	}

	return a, nil
}

// requestMode asks the facade for a transition off the UI goroutine.
func (a *App) requestMode(mode models.LayoutMode) tea.Cmd {
	return func() tea.Msg {
		outcome, err := a.facade.RequestTransition(context.Background(), mode)
		return transitionResultMsg{outcome: outcome, err: err}
	}
}

// requestCustom asks for a showcase custom arrangement: the focused
// pane spans the left two thirds, the rest stack on the right.
func (a *App) requestCustom() tea.Cmd {
	cfg := customShowcase(a.host.ActivePaneIDs(), a.host.FocusedPaneID())
	return func() tea.Msg {
		outcome, err := a.facade.RequestCustomTransition(context.Background(), cfg)
		return transitionResultMsg{outcome: outcome, err: err}
	}
}

// noteOutcome converts a transition result into a footer notice.
func (a *App) noteOutcome(outcome engine.Outcome, err error) {
	switch {
	case err != nil:
		a.notice = err.Error()
	case outcome.Reason != "":
		a.notice = fmt.Sprintf("rejected: %s", outcome.Reason)
	case outcome.Failure != "":
		a.notice = fmt.Sprintf("failed: %s", outcome.Failure)
	default:
		a.notice = ""
	}
}

// focusNext moves focus to the next pane in host order.
func (a *App) focusNext() {
	ids := a.host.ActivePaneIDs()
	if len(ids) < 2 {
		return
	}
	focused := a.host.FocusedPaneID()
	for i, id := range ids {
		if id == focused {
			a.host.SetFocus(ids[(i+1)%len(ids)])
			return
		}
	}
	a.host.SetFocus(ids[0])
}

// nudgeSplit drags the first split divider by delta.
func (a *App) nudgeSplit(delta float64) {
	state := a.facade.GetState()
	if state.Current.Mode != models.SplitScreen || len(state.Current.SplitSizes) < 2 {
		a.notice = "split adjustment needs split-screen mode"
		return
	}
	sizes := append([]float64(nil), state.Current.SplitSizes...)
	sizes[0] += delta
	sizes[1] -= delta
	if sizes[0] < 0.1 || sizes[1] < 0.1 {
		return
	}
	if err := a.facade.SetSplitSizes(sizes); err != nil {
		a.notice = err.Error()
		return
	}
	a.notice = fmt.Sprintf("split %.0f/%.0f", sizes[0]*100, sizes[1]*100)
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	state := a.facade.GetState()
	vw, vh := a.facade.ViewportSize()
	status := statusLine(state, a.facade.Breakpoint(), vw, vh, a.facade.Locked(), a.facade.DroppedEvents())

	contentWidth, contentHeight := a.layout.ContentSize()
	panes := renderPaneArea(state.Current, a.host.FocusedPaneID(), contentWidth, contentHeight)

	bottom := footerStyle.Render(a.footerText())
	if a.adding {
		bottom = a.paneInput.View()
	}

	sections := []string{status, panes}
	if logLines := a.layout.LogLines(); logLines > 0 {
		sections = append(sections, renderEventLog(a.events, logLines))
	}
	sections = append(sections, bottom)

	out := sections[0]
	for _, s := range sections[1:] {
		out += "\n" + s
	}
	return out
}

// footerText builds the help line, prefixed by the latest notice.
func (a *App) footerText() string {
	help := "1-5 mode  tab focus  l lock  o overlay  a add  x remove  [ ] split  s save  q quit"
	if a.notice != "" {
		return a.notice + "  |  " + help
	}
	return help
}

// modeForKey maps a number key to a layout mode.
func modeForKey(key string) (models.LayoutMode, bool) {
	switch key {
	case "1":
		return models.SinglePane, true
	case "2":
		return models.SplitScreen, true
	case "3":
		return models.Tabbed, true
	case "4":
		return models.Grid, true
	case "5":
		return models.Custom, true
	default:
		return "", false
	}
}

// hasOverlay reports whether the overlay stack contains an ID.
func hasOverlay(overlays []string, id string) bool {
	for _, o := range overlays {
		if o == id {
			return true
		}
	}
	return false
}

// customShowcase builds a custom arrangement: the focused pane spans
// two thirds on the left, remaining panes stack in a right column.
func customShowcase(paneIDs []string, focused string) models.LayoutConfiguration {
	cfg := models.LayoutConfiguration{Mode: models.Custom}
	if len(paneIDs) == 0 {
		return cfg
	}

	known := false
	for _, id := range paneIDs {
		if id == focused {
			known = true
			break
		}
	}
	if !known {
		focused = paneIDs[0]
	}

	rest := len(paneIDs) - 1
	if rest == 0 {
		cfg.Panes = []models.PaneSlot{{
			PaneID:   focused,
			Position: &models.Rect{X: 0, Y: 0, W: 1, H: 1},
			Visible:  true,
		}}
		return cfg
	}

	cfg.Panes = append(cfg.Panes, models.PaneSlot{
		PaneID:   focused,
		Position: &models.Rect{X: 0, Y: 0, W: 2, H: rest},
		Visible:  true,
	})
	row := 0
	for _, id := range paneIDs {
		if id == focused {
			continue
		}
		cfg.Panes = append(cfg.Panes, models.PaneSlot{
			PaneID:   id,
			Position: &models.Rect{X: 2, Y: row, W: 1, H: 1},
			Visible:  true,
		})
		row++
	}
	return cfg
}

// Run starts the shell and forwards engine events into it until the
// user quits.
func Run(facade *engine.Facade, host *engine.StaticPaneHost, refresh time.Duration) error {
	program, _ := NewProgram(facade, host, refresh)

	unsubscribe := facade.Subscribe(func(ev engine.Event) {
		program.Send(EngineEventMsg{Event: ev})
	})
	defer unsubscribe()

	_, err := program.Run()
	return err
}

// NewProgram creates a bubbletea program for the shell. The returned
// program can receive messages via Send().
func NewProgram(facade *engine.Facade, host *engine.StaticPaneHost, refresh time.Duration) (*tea.Program, *App) {
	app := New(facade, host, refresh)
	p := tea.NewProgram(app, tea.WithAltScreen())
	return p, app
}
