package media

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/pders01/ranobe/internal/config"
	"github.com/pders01/ranobe/internal/debuglog"
)

type Type int

const (
	TypeWeb Type = iota
	TypeImage
	TypeUnknown
)

func (t Type) String() string {
	switch t {
	case TypeWeb:
		return "web"
	case TypeImage:
		return "image"
	default:
		return "unknown"
	}
}

// Launcher hands chapter pages and cover images to external programs.
type Launcher struct {
	webOpener     string
	imageViewer   string
	defaultOpener string
	registry      *OpenerRegistry
	detector      *TypeDetector

	// start runs the command; replaced in tests.
	start func(*exec.Cmd) error
}

// NewLauncher picks the first installed opener per target from cfg.Media,
// falling back to the platform default. overrides are optional user opener
// definition files.
func NewLauncher(cfg *config.Config, overrides ...string) *Launcher {
	registry, err := NewOpenerRegistry(overrides...)
	if err != nil {
		debuglog.Warnf("opener definitions unavailable: %v", err)
		registry = &OpenerRegistry{openers: make(map[string]OpenerDefinition)}
	}

	detector, err := NewTypeDetector()
	if err != nil {
		debuglog.Warnf("media types unavailable: %v", err)
		detector = &TypeDetector{config: &TypesConfig{}}
	}

	defaultOpener := cfg.Media.DefaultOpener
	if defaultOpener == "" {
		defaultOpener = detector.GetDefaultOpener()
	}

	l := &Launcher{
		defaultOpener: defaultOpener,
		registry:      registry,
		detector:      detector,
		start:         startDetached,
	}

	var openers config.MediaOpeners
	switch runtime.GOOS {
	case "darwin":
		openers = cfg.Media.Darwin
	case "linux":
		openers = cfg.Media.Linux
	case "windows":
		openers = cfg.Media.Windows
	default:
		openers = cfg.Media.Linux
	}

	l.webOpener = registry.FindAvailable(TypeWeb, openers.Web)
	l.imageViewer = registry.FindAvailable(TypeImage, openers.Image)
	if l.webOpener == "" {
		l.webOpener = l.defaultOpener
	}
	if l.imageViewer == "" {
		l.imageViewer = l.defaultOpener
	}

	return l
}

// Command resolves the invocation for target without running it.
func (l *Launcher) Command(target string) (*exec.Cmd, error) {
	kind := l.detector.DetectType(target)

	var opener string
	switch kind {
	case TypeWeb:
		opener = l.webOpener
	case TypeImage:
		opener = l.imageViewer
	default:
		opener = l.defaultOpener
	}
	if opener == "" {
		opener = l.detector.GetDefaultOpener()
	}
	if opener == "" {
		return nil, fmt.Errorf("no application found to open %s", target)
	}

	cmd, err := l.registry.GetCommand(opener, kind, target)
	if err != nil {
		debuglog.Debugf("opener %s: %v, running it without arguments", opener, err)
		cmd = exec.Command(l.registry.Executable(opener), target)
	}
	return cmd, nil
}

// Open starts the opener for target and returns without waiting for it.
func (l *Launcher) Open(target string) error {
	cmd, err := l.Command(target)
	if err != nil {
		return err
	}
	if err := l.start(cmd); err != nil {
		return fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}
	debuglog.WithFields(map[string]any{"cmd": cmd.Args[0], "target": target}).Debugf("opened")
	return nil
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
