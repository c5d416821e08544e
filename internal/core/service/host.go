package service

// Window identifies a host window editors can be opened in.
type Window struct {
	ID string
}

// EditorDescriptor describes an editor able to open a path.
type EditorDescriptor struct {
	ID   string
	Name string
}

// EditorHandle is an opened editor returned by the host.
type EditorHandle interface {
	// Path returns the workspace-relative path shown in the editor.
	Path() string
}

// Host is the editor capability the Dispatcher drives. Implementations are
// not safe for concurrent use and are only called from the UI executor.
type Host interface {
	// ResolveEditors returns candidate editors for a file name or relative
	// path, best candidate first.
	ResolveEditors(name string) []EditorDescriptor

	// OpenEditor opens the file at path in window w with the given editor.
	OpenEditor(w Window, path string, editorID string) (EditorHandle, error)

	// SelectLine moves the caret of e to the start of the 1-based line.
	SelectLine(e EditorHandle, line int) error

	// ActiveWindow returns the focused window, if any.
	ActiveWindow() (Window, bool)

	// Windows lists all open windows.
	Windows() []Window
}
