package editor

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/yndnr/linkport/internal/core/service"
)

// Rule maps a file pattern to the commands that open it.
type Rule struct {
	// ID identifies the editor.
	ID string
	// Pattern is a path.Match pattern tested against the file name and
	// against the full workspace-relative path.
	Pattern string
	// Command opens the file.
	Command []string
	// GotoCommand moves an open editor to a line. Empty disables line selection.
	GotoCommand []string
}

// launchers hand a file to whatever handles its type, or treat their
// arguments as commands. Requested paths must never reach them.
var launchers = map[string]bool{
	"open": true, "xdg-open": true, "gio": true, "gnome-open": true,
	"kde-open": true, "kde-open5": true, "exo-open": true, "mimeopen": true,
	"see": true, "run-mailcap": true, "start": true, "explorer": true,
	"rundll32": true, "mshta": true, "wscript": true, "cscript": true,
	"cmd": true, "powershell": true, "pwsh": true, "env": true, "xargs": true,
	"sh": true, "bash": true, "dash": true, "zsh": true, "ksh": true,
	"fish": true, "csh": true, "tcsh": true,
}

// IsLauncher reports whether argv runs an OS file launcher or a shell.
func IsLauncher(argv []string) bool {
	if len(argv) == 0 {
		return false
	}
	name := path.Base(strings.ReplaceAll(argv[0], "\\", "/"))
	name = strings.TrimSuffix(strings.ToLower(name), ".exe")
	return launchers[name]
}

// Registry resolves editors for paths. Rules keep their configured order,
// which is the preference order of the resolved candidates.
type Registry struct {
	rules []Rule
	byID  map[string]Rule
}

// NewRegistry validates rules and builds a registry.
func NewRegistry(rules []Rule) (*Registry, error) {
	r := &Registry{
		rules: make([]Rule, 0, len(rules)),
		byID:  make(map[string]Rule, len(rules)),
	}

	for i, rule := range rules {
		if rule.ID == "" {
			return nil, fmt.Errorf("rule %d: id is required", i)
		}
		if _, dup := r.byID[rule.ID]; dup {
			return nil, fmt.Errorf("rule %d: duplicate id %q", i, rule.ID)
		}
		if _, err := path.Match(rule.Pattern, ""); err != nil {
			return nil, fmt.Errorf("rule %q: invalid pattern %q: %w", rule.ID, rule.Pattern, err)
		}
		if len(rule.Command) == 0 {
			return nil, fmt.Errorf("rule %q: command is required", rule.ID)
		}
		if IsLauncher(rule.Command) || IsLauncher(rule.GotoCommand) {
			return nil, fmt.Errorf("rule %q: %q is a shell or file launcher, configure an editor", rule.ID, rule.Command[0])
		}
		r.rules = append(r.rules, rule)
		r.byID[rule.ID] = rule
	}

	if len(r.rules) == 0 {
		return nil, errors.New("no editor rules configured")
	}
	return r, nil
}

// Resolve returns the editors whose pattern matches name, in rule order.
func (r *Registry) Resolve(name string) []service.EditorDescriptor {
	var out []service.EditorDescriptor
	for _, rule := range r.rules {
		if ok, _ := path.Match(rule.Pattern, name); ok {
			out = append(out, service.EditorDescriptor{ID: rule.ID, Name: rule.Pattern})
		}
	}
	return out
}

// Rule returns the rule with the given id.
func (r *Registry) Rule(id string) (Rule, bool) {
	rule, ok := r.byID[id]
	return rule, ok
}

// Len returns the number of rules.
func (r *Registry) Len() int {
	return len(r.rules)
}
