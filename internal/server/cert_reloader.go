package server

import (
	"crypto/tls"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"rezscan/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounceDelay collapses the burst of events a certificate rotation produces
const defaultDebounceDelay = time.Second

// certReloader keeps the TLS configuration built from the certificate files
// current, rebuilding it whenever one of the files changes on disk
type certReloader struct {
	mu      sync.RWMutex
	current *tls.Config
	build   func() (*tls.Config, error)

	files    []string
	debounce time.Duration
	logger   *errors.Logger

	watcher  *fsnotify.Watcher
	timer    *time.Timer
	reloadCh chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	reloads     int
	failures    int
	lastReload  time.Time
	lastFailure string
}

// newCertReloader builds the initial configuration. A failure here is fatal
// to startup; later failures keep serving the previous certificates.
func newCertReloader(build func() (*tls.Config, error), files []string, debounce time.Duration, logger *errors.Logger) (*certReloader, error) {
	if debounce <= 0 {
		debounce = defaultDebounceDelay
	}
	initial, err := build()
	if err != nil {
		return nil, err
	}

	watched := make([]string, 0, len(files))
	for _, f := range files {
		if f != "" {
			watched = append(watched, filepath.Clean(f))
		}
	}

	return &certReloader{
		current:    initial,
		build:      build,
		files:      watched,
		debounce:   debounce,
		logger:     logger,
		reloadCh:   make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
		lastReload: time.Now(),
	}, nil
}

// TLSConfig returns the configuration handed to the HTTP server. Every
// handshake picks up the most recently loaded certificates.
func (r *certReloader) TLSConfig() *tls.Config {
	base := r.config()
	return &tls.Config{
		MinVersion: base.MinVersion,
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			cfg := r.config()
			if len(cfg.Certificates) == 0 {
				return nil, fmt.Errorf("no server certificate loaded")
			}
			return &cfg.Certificates[0], nil
		},
		GetConfigForClient: func(*tls.ClientHelloInfo) (*tls.Config, error) {
			return r.config(), nil
		},
	}
}

func (r *certReloader) config() *tls.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Reload rebuilds the configuration from disk
func (r *certReloader) Reload() error {
	next, err := r.build()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failures++
		r.lastFailure = err.Error()
		return err
	}
	r.current = next
	r.reloads++
	r.lastReload = time.Now()
	r.lastFailure = ""
	return nil
}

// Start watches the directories holding the certificate files. Directories
// are watched rather than files so atomic rename rotations are seen.
func (r *certReloader) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create certificate watcher: %w", err)
	}

	dirs := make(map[string]bool)
	for _, f := range r.files {
		dir := filepath.Dir(f)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	r.watcher = watcher

	r.wg.Add(1)
	go r.watchLoop()

	r.logger.Info("Certificate watcher started",
		"files", r.files,
		"debounce_delay", r.debounce.String())
	return nil
}

func (r *certReloader) watchLoop() {
	defer r.wg.Done()
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if r.isRelevant(event) {
				r.scheduleReload()
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.LogError(err, "Certificate watcher error")
		case <-r.reloadCh:
			if err := r.Reload(); err != nil {
				r.logger.LogError(err, "Certificate reload failed, keeping previous certificates")
				continue
			}
			r.logger.Info("Certificates reloaded", "files", r.files)
		case <-r.stopCh:
			return
		}
	}
}

func (r *certReloader) isRelevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	for _, f := range r.files {
		if name == f {
			return true
		}
	}
	return false
}

// scheduleReload restarts the debounce timer
func (r *certReloader) scheduleReload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, func() {
		select {
		case r.reloadCh <- struct{}{}:
		default:
		}
	})
}

// Stop ends watching. It is safe to call more than once.
func (r *certReloader) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		r.mu.Lock()
		if r.timer != nil {
			r.timer.Stop()
		}
		r.mu.Unlock()
		if r.watcher != nil {
			if err := r.watcher.Close(); err != nil {
				r.logger.LogError(err, "Failed to close certificate watcher")
			}
		}
		r.wg.Wait()
	})
}

// Stats reports reload activity for the stats endpoint
func (r *certReloader) Stats() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := map[string]any{
		"auto_reload": true,
		"files":       r.files,
		"reloads":     r.reloads,
		"failures":    r.failures,
		"last_reload": r.lastReload.UTC().Format(time.RFC3339),
	}
	if r.lastFailure != "" {
		stats["last_failure"] = r.lastFailure
	}
	return stats
}
