package driving

// Watcher observes the documents directory and keeps the index in sync.
// Start and Stop are idempotent lifecycle controls.
type Watcher interface {
	// Start begins recursive observation of the documents root.
	// Starting an already-running watcher warns and no-ops.
	Start() error

	// Stop ceases observation and joins background execution with a
	// bounded timeout. Stopping a stopped watcher no-ops.
	Stop() error
}
