// Package engine owns the authoritative layout state and the transition
// protocol around it.
//
// The engine package provides functionality for:
//   - Validation: deciding whether a requested layout mode is allowed for
//     the active panes, the caller's permissions, and the workspace
//   - Transitions: serialized movement of the layout state from one
//     configuration to the next, with timeout and error recovery
//   - Derivation: pure computation of the pane arrangement for each
//     layout mode
//   - Events: a typed stream of transition and preference outcomes for
//     the hosting shell and other subscribers
//
// The StateMachine is the sole writer of the LayoutState; everything else
// reads snapshots. The Facade combines the machine with the capability
// registry, the responsive adapter, the performance sampler, and
// preference sync behind one public surface.
//
// Example usage:
//
//	registry := capability.NewRegistry(rules, perms)
//	facade, err := engine.NewFacade(engine.RequiredConfig{
//		Registry: registry,
//		PaneHost: host,
//	})
//	outcome, err := facade.RequestTransition(ctx, models.SplitScreen)
package engine
