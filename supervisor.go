package chromectl

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromectl/chromectl/internal/procutil"
)

const (
	debugPortRangeLow  = 8000
	debugPortRangeHigh = 9000
	portOpenTimeout    = 30 * time.Second
	maxPortRetries     = 10

	// defaultIdleTimeout is the browser event loop's receive-with-timeout
	// bound when WithIdleTimeout isn't given (spec.md §4.5 "Heartbeat"),
	// mirroring original_source's LaunchOptions::idle_browser_timeout.
	defaultIdleTimeout = 300 * time.Second
)

// Supervisor launches and tears down a single Chromium process, grounded on
// the teacher's ExecAllocator (allocate.go): default flag set, stderr
// scraping for the debug websocket URL, and process-tree teardown on
// shutdown via github.com/chromedp/sysutil.
type Supervisor struct {
	binPath        string
	headless       bool
	sandbox        bool
	width, height  int
	port           int
	pinnedPort     bool
	includeDefault bool
	extraArgs      []string
	extensions     []string
	appURL         string
	env            []string
	idleTimeout    time.Duration

	logf, errf func(string, ...interface{})
}

// SupervisorOption configures a Supervisor (spec.md §4.4 "enumerated
// options").
type SupervisorOption func(*Supervisor)

func WithBinaryPath(path string) SupervisorOption {
	return func(s *Supervisor) { s.binPath = path }
}

func WithHeadless(v bool) SupervisorOption { return func(s *Supervisor) { s.headless = v } }

func WithSandbox(v bool) SupervisorOption { return func(s *Supervisor) { s.sandbox = v } }

func WithWindowSize(w, h int) SupervisorOption {
	return func(s *Supervisor) { s.width, s.height = w, h }
}

func WithDebugPort(port int) SupervisorOption {
	return func(s *Supervisor) { s.port, s.pinnedPort = port, true }
}

func WithDefaultArgs(v bool) SupervisorOption { return func(s *Supervisor) { s.includeDefault = v } }

func WithExtraArgs(args ...string) SupervisorOption {
	return func(s *Supervisor) { s.extraArgs = append(s.extraArgs, args...) }
}

func WithExtensions(paths ...string) SupervisorOption {
	return func(s *Supervisor) { s.extensions = append(s.extensions, paths...) }
}

func WithAppURL(url string) SupervisorOption { return func(s *Supervisor) { s.appURL = url } }

func WithEnv(vars ...string) SupervisorOption {
	return func(s *Supervisor) { s.env = append(s.env, vars...) }
}

func WithIdleTimeout(d time.Duration) SupervisorOption {
	return func(s *Supervisor) { s.idleTimeout = d }
}

func WithSupervisorLogf(f func(string, ...interface{})) SupervisorOption {
	return func(s *Supervisor) { s.logf = f }
}

func WithSupervisorErrorf(f func(string, ...interface{})) SupervisorOption {
	return func(s *Supervisor) { s.errf = f }
}

// defaultChromeArgs mirrors Puppeteer/chromedp's opinionated default flag
// list (teacher's DefaultExecAllocatorOptions), mechanically forwarded.
var defaultChromeArgs = []string{
	"--disable-background-networking",
	"--enable-features=NetworkService,NetworkServiceInProcess",
	"--disable-background-timer-throttling",
	"--disable-backgrounding-occluded-windows",
	"--disable-breakpad",
	"--disable-client-side-phishing-detection",
	"--disable-default-apps",
	"--disable-dev-shm-usage",
	"--disable-extensions-except",
	"--disable-features=site-per-process,TranslateUI,BlinkGenPropertyTrees",
	"--disable-hang-monitor",
	"--disable-ipc-flooding-protection",
	"--disable-popup-blocking",
	"--disable-prompt-on-repost",
	"--disable-renderer-backgrounding",
	"--disable-sync",
	"--force-color-profile=srgb",
	"--metrics-recording-only",
	"--safebrowsing-disable-auto-update",
	"--password-store=basic",
	"--use-mock-keychain",
	"--no-first-run",
	"--no-default-browser-check",
}

// NewSupervisor builds a Supervisor from opts. If no binary path is given,
// it is auto-discovered on PATH.
func NewSupervisor(opts ...SupervisorOption) (*Supervisor, error) {
	s := &Supervisor{
		sandbox:        true,
		includeDefault: true,
		idleTimeout:    defaultIdleTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	if s.binPath == "" {
		s.binPath = findChromeBinary()
	}
	if s.binPath == "" {
		return nil, ErrBinaryNotFound
	}
	return s, nil
}

// Process is a live, supervised Chromium process: its debug websocket URL
// and the means to tear it down.
type Process struct {
	DebugURL    string
	IdleTimeout time.Duration

	cmd *exec.Cmd
	dir string

	logf, errf func(string, ...interface{})
}

// Start launches Chromium and blocks until its debug websocket URL is known
// or a launch error occurs (spec.md §4.4 "start()").
func (s *Supervisor) Start(ctx context.Context) (*Process, error) {
	if s == nil {
		return nil, ErrNoLaunchOptions
	}
	attempts := 1
	if !s.pinnedPort {
		attempts = maxPortRetries
	}

	for i := 0; i < attempts; i++ {
		port := s.port
		if !s.pinnedPort {
			p, err := choosePort()
			if err != nil {
				return nil, err
			}
			port = p
		}

		proc, err := s.launch(ctx, port)
		if err == nil {
			return proc, nil
		}
		if err != ErrDebugPortInUse || s.pinnedPort {
			return nil, err
		}
	}
	return nil, ErrNoAvailablePorts
}

func (s *Supervisor) launch(ctx context.Context, port int) (*Process, error) {
	dir, err := os.MkdirTemp("", "chromectl-")
	if err != nil {
		return nil, err
	}

	args := []string{fmt.Sprintf("--remote-debugging-port=%d", port), "--user-data-dir=" + dir}
	if s.headless {
		args = append(args, "--headless", "--hide-scrollbars", "--mute-audio")
	}
	if !s.sandbox {
		args = append(args, "--no-sandbox", "--disable-setuid-sandbox")
	}
	if s.width > 0 && s.height > 0 {
		args = append(args, fmt.Sprintf("--window-size=%d,%d", s.width, s.height))
	}
	if s.appURL != "" {
		args = append(args, "--app="+s.appURL)
	}
	for _, ext := range s.extensions {
		args = append(args, "--load-extension="+ext)
	}
	if s.includeDefault {
		args = append(args, defaultChromeArgs...)
	}
	args = append(args, s.extraArgs...)
	args = append(args, "about:blank")

	cmd := exec.CommandContext(ctx, s.binPath, args...)
	if len(s.env) > 0 {
		cmd.Env = append(os.Environ(), s.env...)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	type scrapeResult struct {
		url string
		err error
	}
	resultCh := make(chan scrapeResult, 1)
	go func() {
		defer stderr.Close()
		url, err := scrapeDebugURL(stderr)
		resultCh <- scrapeResult{url, err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			procutil.KillTree(cmd.Process.Pid, time.Second)
			os.RemoveAll(dir)
			return nil, res.err
		}
		return &Process{
			DebugURL:    res.url,
			IdleTimeout: s.idleTimeout,
			cmd:         cmd,
			dir:         dir,
			logf:        s.logf,
			errf:        s.errf,
		}, nil
	case <-time.After(portOpenTimeout):
		procutil.KillTree(cmd.Process.Pid, time.Second)
		os.RemoveAll(dir)
		return nil, ErrPortOpenTimeout
	}
}

// scrapeDebugURL reads stderr line by line until it finds the "listening
// on" line with the debug websocket URL (spec.md §4.4/§6), or a bind-error
// line signalling a port conflict.
func scrapeDebugURL(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	var accumulated bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		accumulated.WriteString(line)
		accumulated.WriteByte('\n')

		if strings.Contains(line, "bind() returned an error") || strings.Contains(line, "Address already in use") {
			return "", ErrDebugPortInUse
		}
		if idx := strings.Index(line, "listening on"); idx != -1 {
			rest := strings.TrimSpace(line[idx+len("listening on"):])
			rest = strings.TrimPrefix(rest, "(")
			rest = strings.TrimSuffix(rest, ")")
			if rest != "" {
				return rest, nil
			}
		}
	}
	return "", fmt.Errorf("chrome exited before printing its debug url:\n%s", accumulated.String())
}

// Shutdown terminates the Chromium process tree and removes its temporary
// user-data-dir.
func (p *Process) Shutdown() {
	if p.cmd != nil && p.cmd.Process != nil {
		procutil.KillTree(p.cmd.Process.Pid, 3*time.Second)
	}
	if p.dir != "" {
		os.RemoveAll(p.dir)
	}
}

// choosePort picks an unused TCP port within [debugPortRangeLow,
// debugPortRangeHigh).
func choosePort() (int, error) {
	for port := debugPortRangeLow; port < debugPortRangeHigh; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}
		ln.Close()
		return port, nil
	}
	return 0, ErrNoAvailablePorts
}

// findChromeBinary probes common install locations, matching the teacher's
// findExecPath (allocate.go).
func findChromeBinary() string {
	for _, name := range []string{
		"headless_shell",
		"headless-shell",
		"chromium",
		"chromium-browser",
		"google-chrome",
		"google-chrome-stable",
		"google-chrome-beta",
		"google-chrome-unstable",
		"/usr/bin/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	} {
		if found, err := exec.LookPath(name); err == nil {
			return found
		}
	}
	return ""
}

