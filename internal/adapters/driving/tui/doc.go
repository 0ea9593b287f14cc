// Package tui provides the interactive chat terminal interface built on
// Bubbletea. It streams answer tokens into a scrollable transcript and
// shows the cited sources under each answer.
package tui
