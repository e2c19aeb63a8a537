package repository

// Workspace provides scratch directories for in-flight documents.
type Workspace interface {
	NewScope(jobID string) (Scope, error)
}

// Scope is one job attempt's scratch area. Cleanup removes everything in it.
type Scope interface {
	Path(name string) string
	WriteDescriptor(name string, v any) (string, error)
	Cleanup() error
}
