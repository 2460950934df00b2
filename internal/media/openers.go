package media

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/pders01/ranobe/internal/debuglog"
)

//go:embed openers.toml
var openersTOML []byte

// OpenerDefinition describes how an external program is invoked.
type OpenerDefinition struct {
	Description string      `toml:"description"`
	Platforms   []string    `toml:"platforms"`
	Command     string      `toml:"command,omitempty"`
	Web         *ArgsConfig `toml:"web,omitempty"`
	Image       *ArgsConfig `toml:"image,omitempty"`
}

// ArgsConfig holds the arguments placed before the target URL.
type ArgsConfig struct {
	Args        []string `toml:"args,omitempty"`
	ArgsDarwin  []string `toml:"args_darwin,omitempty"`
	ArgsLinux   []string `toml:"args_linux,omitempty"`
	ArgsWindows []string `toml:"args_windows,omitempty"`
}

type OpenersConfig struct {
	Openers map[string]OpenerDefinition `toml:"openers"`
}

var ErrUnsupported = errors.New("opener does not support target")

type OpenerRegistry struct {
	openers map[string]OpenerDefinition
}

// NewOpenerRegistry loads the built-in definitions, then merges any user
// files found among overrides. Missing override files are ignored.
func NewOpenerRegistry(overrides ...string) (*OpenerRegistry, error) {
	var config OpenersConfig
	if err := toml.Unmarshal(openersTOML, &config); err != nil {
		return nil, fmt.Errorf("parsing openers.toml: %w", err)
	}
	r := &OpenerRegistry{openers: config.Openers}
	if r.openers == nil {
		r.openers = make(map[string]OpenerDefinition)
	}
	for _, path := range overrides {
		r.merge(path)
	}
	return r, nil
}

func (r *OpenerRegistry) merge(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var user OpenersConfig
	if err := toml.Unmarshal(data, &user); err != nil {
		debuglog.Warnf("ignoring %s: %v", path, err)
		return
	}
	for name, def := range user.Openers {
		r.openers[name] = def
	}
}

// Executable returns the program that runs for name.
func (r *OpenerRegistry) Executable(name string) string {
	if def, ok := r.openers[name]; ok && def.Command != "" {
		return def.Command
	}
	return name
}

// GetCommand builds the invocation of opener name for target.
func (r *OpenerRegistry) GetCommand(name string, kind Type, target string) (*exec.Cmd, error) {
	def, ok := r.openers[name]
	if !ok {
		return exec.Command(name, target), nil
	}
	if !slices.Contains(def.Platforms, runtime.GOOS) {
		return nil, fmt.Errorf("%s not supported on %s", name, runtime.GOOS)
	}

	var cfg *ArgsConfig
	switch kind {
	case TypeImage:
		cfg = def.Image
	case TypeWeb:
		cfg = def.Web
	default:
		// Unknown targets go through whatever the opener does for web pages.
		cfg = def.Web
	}
	if cfg == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupported)
	}

	args := append(slices.Clone(r.getArgs(cfg)), target)
	return exec.Command(r.Executable(name), args...), nil
}

func (r *OpenerRegistry) getArgs(cfg *ArgsConfig) []string {
	if cfg == nil {
		return nil
	}
	switch runtime.GOOS {
	case "darwin":
		if len(cfg.ArgsDarwin) > 0 {
			return cfg.ArgsDarwin
		}
	case "linux":
		if len(cfg.ArgsLinux) > 0 {
			return cfg.ArgsLinux
		}
	case "windows":
		if len(cfg.ArgsWindows) > 0 {
			return cfg.ArgsWindows
		}
	}
	return cfg.Args
}

// Available reports whether the program behind name is on PATH.
func (r *OpenerRegistry) Available(name string) bool {
	_, err := exec.LookPath(r.Executable(name))
	return err == nil
}

// FindAvailable returns the first available candidate that can open kind.
func (r *OpenerRegistry) FindAvailable(kind Type, candidates []string) string {
	for _, name := range candidates {
		if !r.Available(name) {
			continue
		}
		if def, ok := r.openers[name]; ok {
			if kind == TypeImage && def.Image == nil {
				continue
			}
			if kind == TypeWeb && def.Web == nil {
				continue
			}
		}
		return name
	}
	return ""
}
