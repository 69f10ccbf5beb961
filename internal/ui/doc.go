// Package ui implements the batch monitor, a terminal interface using bubbletea's Elm architecture.
//
// The monitor has two views:
//  1. [RunView] : progress bar, running counters and a scrollable log of engine events
//  2. [ResultView] : the batch summary and a filterable list of failed items
//
// The [Model] runs the batch through a [Controller] (normally a tasks.Session) inside a command and reads events
// from a tasks.ChannelSink, one message per event, so the engine never blocks on rendering.
//
// Keys: c cancels the running batch; q cancels and quits once the workers have stopped, or quits immediately
// from the result view. Scrolling uses vim-style bindings with contextual help from charmbracelet/bubbles/help.
package ui
