// Package config defines the server configuration structure.
package config

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultAcceptTimeout  = 5 * time.Second
	DefaultRetryInterval  = time.Second
	DefaultReadTimeout    = 10 * time.Second
	DefaultResolveTimeout = 2 * time.Second
	DefaultDispatchRate   = 10
	DefaultDispatchBurst  = 5
	DefaultQueueSize      = 64

	DefaultWorkspace = "."

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// DefaultRuleID is the id of the catch-all editor built from DefaultCommand.
const DefaultRuleID = "default"

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Link: LinkSection{
			AcceptTimeout:  DefaultAcceptTimeout,
			RetryInterval:  DefaultRetryInterval,
			ReadTimeout:    DefaultReadTimeout,
			ResolveTimeout: DefaultResolveTimeout,
			DispatchRate:   DefaultDispatchRate,
			DispatchBurst:  DefaultDispatchBurst,
			QueueSize:      DefaultQueueSize,
		},
		Editor: EditorSection{
			Workspace: DefaultWorkspace,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// editorEnvVars are consulted in order by FillFromEnv.
var editorEnvVars = []string{"VISUAL", "EDITOR"}

// FillFromEnv derives the default commands from $VISUAL or $EDITOR when
// neither rules nor a default command are configured.
func (e *EditorSection) FillFromEnv(getenv func(string) string) {
	if len(e.Rules) > 0 || len(e.DefaultCommand) > 0 {
		return
	}
	for _, name := range editorEnvVars {
		if argv := strings.Fields(getenv(name)); len(argv) > 0 {
			e.DefaultCommand, e.DefaultGotoCommand = editorCommands(argv)
			return
		}
	}
}

// editorCommands builds the open and goto commands for an editor invocation.
func editorCommands(argv []string) (open, goTo []string) {
	open = append(slices.Clone(argv), "{file}")

	name := strings.TrimSuffix(strings.ToLower(filepath.Base(argv[0])), ".exe")
	switch name {
	case "code", "code-insiders", "codium", "cursor":
		goTo = append(slices.Clone(argv), "--goto", "{file}:{line}")
	case "subl", "zed":
		goTo = append(slices.Clone(argv), "{file}:{line}")
	default:
		goTo = append(slices.Clone(argv), "+{line}", "{file}")
	}
	return open, goTo
}

// EffectiveRules returns the configured rules followed by the catch-all
// default rule, when a default command is set.
func (e *EditorSection) EffectiveRules() []EditorRule {
	rules := make([]EditorRule, 0, len(e.Rules)+1)
	rules = append(rules, e.Rules...)
	if len(e.DefaultCommand) > 0 {
		rules = append(rules, EditorRule{
			ID:          DefaultRuleID,
			Pattern:     "*",
			Command:     e.DefaultCommand,
			GotoCommand: e.DefaultGotoCommand,
		})
	}
	return rules
}
