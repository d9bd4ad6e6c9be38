// Package tui provides the reference hosting shell for the panekit
// layout engine.
//
// The shell is a bubbletea application that owns the live pane
// population and forwards every user gesture to the orchestration
// facade: mode keys request transitions, resizes feed the responsive
// adapter, and the rendered view is always the facade's authoritative
// configuration. The shell never arranges panes on its own; a rejected
// request simply leaves the view unchanged and surfaces the reason in
// the status line.
//
// Usage:
//
//	program, app := tui.NewProgram(facade, host, refreshRate)
//
//	// Forward engine events into the shell
//	unsubscribe := facade.Subscribe(func(ev engine.Event) {
//	    program.Send(tui.EngineEventMsg{Event: ev})
//	})
//	defer unsubscribe()
//
//	_, err := program.Run()
//
// Key bindings: 1-5 request layout modes, tab cycles focus, l toggles
// the lock, o toggles a demo overlay, a adds a pane, x removes the
// focused pane, [ and ] drag the first split divider, s saves
// preferences, q quits.
package tui
