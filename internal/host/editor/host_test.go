package editor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/yndnr/linkport/internal/core/domain"
	"github.com/yndnr/linkport/internal/core/service"
	"github.com/yndnr/linkport/internal/server/config"
)

// recordingRunner records commands instead of running them.
type recordingRunner struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *recordingRunner) Run(ctx context.Context, argv []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, argv)
	return r.err
}

func newTestHost(t *testing.T) (*Host, *recordingRunner, string) {
	t.Helper()

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "pkg"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "pkg", "File.java"), []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("only line"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := NewRegistry(testRules())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	ws, err := NewWorkspace(root)
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}
	runner := &recordingRunner{}
	return New(reg, ws, runner, nil), runner, ws.Root()
}

func TestHost_Windows(t *testing.T) {
	h, _, _ := newTestHost(t)

	w, ok := h.ActiveWindow()
	if !ok || w.ID != WindowID {
		t.Errorf("ActiveWindow() = %v, %v", w, ok)
	}
	if ws := h.Windows(); len(ws) != 1 || ws[0].ID != WindowID {
		t.Errorf("Windows() = %v", ws)
	}
}

func TestHost_OpenAndSelect(t *testing.T) {
	h, runner, root := newTestHost(t)
	abs := filepath.Join(root, "pkg", "File.java")

	ed, err := h.OpenEditor(service.Window{ID: WindowID}, "pkg/File.java", "java")
	if err != nil {
		t.Fatalf("OpenEditor() error = %v", err)
	}
	if ed.Path() != "pkg/File.java" {
		t.Errorf("Path() = %q", ed.Path())
	}

	if err := h.SelectLine(ed, 3); err != nil {
		t.Fatalf("SelectLine() error = %v", err)
	}

	if len(runner.calls) != 2 {
		t.Fatalf("runner calls = %v, want 2", runner.calls)
	}
	if got := strings.Join(runner.calls[0], " "); got != "code "+abs {
		t.Errorf("open command = %q", got)
	}
	if got := strings.Join(runner.calls[1], " "); got != "code --goto "+abs+":3" {
		t.Errorf("goto command = %q", got)
	}
}

func TestHost_SelectLine_OutOfRange(t *testing.T) {
	h, runner, _ := newTestHost(t)

	ed, err := h.OpenEditor(service.Window{ID: WindowID}, "pkg/File.java", "java")
	if err != nil {
		t.Fatalf("OpenEditor() error = %v", err)
	}
	if err := h.SelectLine(ed, 4); !errors.Is(err, domain.ErrBadLine) {
		t.Errorf("SelectLine(4) error = %v, want ErrBadLine", err)
	}
	if len(runner.calls) != 1 {
		t.Errorf("runner calls = %d, want only the open", len(runner.calls))
	}
}

func TestHost_SelectLine_NoGotoCommand(t *testing.T) {
	h, runner, _ := newTestHost(t)

	ed, err := h.OpenEditor(service.Window{ID: WindowID}, "notes.txt", "text")
	if err != nil {
		t.Fatalf("OpenEditor() error = %v", err)
	}
	if err := h.SelectLine(ed, 1); err != nil {
		t.Errorf("SelectLine() error = %v", err)
	}
	if len(runner.calls) != 1 {
		t.Errorf("runner calls = %d, want 1", len(runner.calls))
	}
}

func TestHost_OpenEditor_Errors(t *testing.T) {
	h, runner, _ := newTestHost(t)
	w := service.Window{ID: WindowID}

	tests := []struct {
		name     string
		path     string
		editorID string
		wantErr  error
	}{
		{"unknown editor", "pkg/File.java", "vim", domain.ErrNoEditor},
		{"missing file", "pkg/Missing.java", "java", domain.ErrFileNotFound},
		{"directory", "pkg", "text", domain.ErrFileNotFound},
		{"escapes root", "../etc/passwd", "text", domain.ErrFileNotFound},
		{"absolute path", "/etc/passwd", "text", domain.ErrFileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.OpenEditor(w, tt.path, tt.editorID); !errors.Is(err, tt.wantErr) {
				t.Errorf("OpenEditor(%q) error = %v, want %v", tt.path, err, tt.wantErr)
			}
		})
	}
	if len(runner.calls) != 0 {
		t.Errorf("runner should not be called, got %v", runner.calls)
	}
}

func TestHost_OpenEditor_RunnerFailure(t *testing.T) {
	h, runner, _ := newTestHost(t)
	runner.err = errors.New("exec: not found")

	_, err := h.OpenEditor(service.Window{ID: WindowID}, "pkg/File.java", "java")
	if !errors.Is(err, domain.ErrNavigation) {
		t.Errorf("OpenEditor() error = %v, want ErrNavigation", err)
	}
}

func TestHost_WithDispatcher(t *testing.T) {
	h, runner, root := newTestHost(t)
	d := service.NewDispatcher(h, syncExecutor{}, &service.DispatcherConfig{}, nil, nil)

	if err := d.Navigate(domain.NavigationCommand{RelativePath: "pkg/File.java", Line: 2}); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("runner calls = %v", runner.calls)
	}
	if last := runner.calls[1]; last[len(last)-1] != filepath.Join(root, "pkg", "File.java")+":2" {
		t.Errorf("goto command = %v", last)
	}
}

// rulesFrom converts configured editor rules the way linkport-server does.
func rulesFrom(section config.EditorSection) []Rule {
	var rules []Rule
	for _, r := range section.EffectiveRules() {
		rules = append(rules, Rule{ID: r.ID, Pattern: r.Pattern, Command: r.Command, GotoCommand: r.GotoCommand})
	}
	return rules
}

func TestHost_DefaultRuleNeverLaunchesFiles(t *testing.T) {
	for _, editorVar := range []string{"vim", "code --wait", `C:\Tools\notepad++.exe`} {
		t.Run(editorVar, func(t *testing.T) {
			root := t.TempDir()
			if err := os.WriteFile(filepath.Join(root, "payload.bat"), []byte("calc.exe\r\n"), 0o644); err != nil {
				t.Fatal(err)
			}

			section := config.Default().Editor
			section.FillFromEnv(func(k string) string {
				if k == "EDITOR" {
					return editorVar
				}
				return ""
			})

			reg, err := NewRegistry(rulesFrom(section))
			if err != nil {
				t.Fatalf("NewRegistry() error = %v", err)
			}
			ws, err := NewWorkspace(root)
			if err != nil {
				t.Fatal(err)
			}
			runner := &recordingRunner{}
			d := service.NewDispatcher(New(reg, ws, runner, nil), syncExecutor{}, &service.DispatcherConfig{}, nil, nil)

			cmd, err := domain.ParseRequestLine("GET /payload.bat?1 HTTP/1.1")
			if err != nil {
				t.Fatalf("ParseRequestLine() error = %v", err)
			}
			if err := d.Navigate(cmd); err != nil {
				t.Fatalf("Navigate() error = %v", err)
			}

			if len(runner.calls) == 0 {
				t.Fatal("no editor command ran")
			}
			for _, argv := range runner.calls {
				if IsLauncher(argv) {
					t.Errorf("request reached launcher %q", argv)
				}
				if argv[0] != strings.Fields(editorVar)[0] {
					t.Errorf("argv[0] = %q, want the configured editor", argv[0])
				}
			}
		})
	}
}

func TestHost_LauncherDefaultsRejected(t *testing.T) {
	for _, argv := range [][]string{
		{"xdg-open", "{file}"},
		{"open", "{file}"},
		{"cmd", "/c", "start", "", "{file}"},
	} {
		section := config.EditorSection{Workspace: ".", DefaultCommand: argv}
		if _, err := NewRegistry(rulesFrom(section)); err == nil {
			t.Errorf("NewRegistry() accepted default command %q", argv)
		}
	}
}

type syncExecutor struct{}

func (syncExecutor) Submit(task func()) error {
	task()
	return nil
}
