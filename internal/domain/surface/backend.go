package surface

import (
	"bufio"
	"fmt"
	"os/exec"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/types"
)

// WindowConfig describes a window to construct. BlockRequest, when set, is
// installed on the window's partition before the first navigation so early
// requests are already filtered.
type WindowConfig struct {
	Title        string
	Partition    string
	Bounds       types.Bounds
	UserAgent    string
	BlockRequest func(url string) bool
	OnClosed     func()
}

// ViewConfig describes an embedded content view inside a window.
type ViewConfig struct {
	ID           string
	URL          string
	Partition    string
	UserAgent    string
	BlockRequest func(url string) bool
}

// Window is a live shell window.
type Window interface {
	Focus() error
	Minimize() error
	Maximize() error
	Close() error
	Bounds() types.Bounds
	Send(event string, payload any) error
	CreateView(cfg ViewConfig) (View, error)
}

// View is an embedded content view. Switching subspaces hides the previous
// view rather than destroying it, so its document survives.
type View interface {
	Show() error
	Hide() error
	Destroy() error
}

// Backend constructs windows. The production backend drives the shell
// process; tests substitute a counting fake.
type Backend interface {
	CreateWindow(cfg WindowConfig) (Window, error)
}

// ShellBackend drives a shell renderer process, one per window, speaking
// newline-delimited JSON commands over its stdin.
type ShellBackend struct {
	// Command is the shell binary invoked per window.
	Command string
	Args    []string
}

type shellWindow struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  *bufio.Writer
	bounds types.Bounds
	closed bool
	onExit func()
}

type shellView struct {
	win *shellWindow
	id  string
}

type shellCommand struct {
	Op      string `json:"op"`
	Event   string `json:"event,omitempty"`
	Payload any    `json:"payload,omitempty"`
	View    any    `json:"view,omitempty"`
	ViewID  string `json:"view_id,omitempty"`
}

// CreateWindow spawns one shell process for the window and hands it the
// window configuration as argv. Request filtering runs in-process in the
// shell, keyed by the partition it is told to use.
func (b *ShellBackend) CreateWindow(cfg WindowConfig) (Window, error) {
	args := append([]string{}, b.Args...)
	args = append(args,
		"--title", cfg.Title,
		"--partition", cfg.Partition,
		fmt.Sprintf("--width=%d", cfg.Bounds.Width),
		fmt.Sprintf("--height=%d", cfg.Bounds.Height),
	)
	if cfg.UserAgent != "" {
		args = append(args, "--user-agent", cfg.UserAgent)
	}

	cmd := exec.Command(b.Command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open shell pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start shell window: %w", err)
	}

	w := &shellWindow{
		cmd:    cmd,
		stdin:  bufio.NewWriter(stdin),
		bounds: cfg.Bounds,
		onExit: cfg.OnClosed,
	}
	go func() {
		cmd.Wait()
		w.mu.Lock()
		alreadyClosed := w.closed
		w.closed = true
		w.mu.Unlock()
		if !alreadyClosed && w.onExit != nil {
			w.onExit()
		}
	}()
	return w, nil
}

func (w *shellWindow) write(c shellCommand) error {
	raw, err := sonic.Marshal(c)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("window closed")
	}
	if _, err := w.stdin.Write(append(raw, '\n')); err != nil {
		return err
	}
	return w.stdin.Flush()
}

func (w *shellWindow) Focus() error    { return w.write(shellCommand{Op: "focus"}) }
func (w *shellWindow) Minimize() error { return w.write(shellCommand{Op: "minimize"}) }
func (w *shellWindow) Maximize() error { return w.write(shellCommand{Op: "maximize"}) }

func (w *shellWindow) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	return w.cmd.Process.Kill()
}

func (w *shellWindow) Bounds() types.Bounds {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bounds
}

func (w *shellWindow) Send(event string, payload any) error {
	return w.write(shellCommand{Op: "event", Event: event, Payload: payload})
}

func (w *shellWindow) CreateView(cfg ViewConfig) (View, error) {
	if err := w.write(shellCommand{Op: "create-view", View: map[string]string{
		"id":         cfg.ID,
		"url":        cfg.URL,
		"partition":  cfg.Partition,
		"user_agent": cfg.UserAgent,
	}}); err != nil {
		return nil, err
	}
	return &shellView{win: w, id: cfg.ID}, nil
}

func (v *shellView) Show() error {
	return v.win.write(shellCommand{Op: "show-view", ViewID: v.id})
}

func (v *shellView) Hide() error {
	return v.win.write(shellCommand{Op: "hide-view", ViewID: v.id})
}

func (v *shellView) Destroy() error {
	return v.win.write(shellCommand{Op: "destroy-view", ViewID: v.id})
}
