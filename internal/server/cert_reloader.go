package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"atsmatch/internal/config"
	"atsmatch/internal/errors"
	"atsmatch/internal/observability"

	"github.com/fsnotify/fsnotify"
)

// CertReloaderStats counts reload attempts
type CertReloaderStats struct {
	ReloadCount        int64
	ReloadFailureCount int64
	LastReloadTime     time.Time
	LastReloadError    string
}

// CertReloader serves the current key pair and swaps it when the files change.
// Certificates given as content are loaded once and never watched.
type CertReloader struct {
	mu sync.RWMutex

	certFile    string
	keyFile     string
	certContent string
	keyContent  string

	cert     *tls.Certificate
	notAfter time.Time
	stats    CertReloaderStats

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer
	stopChan      chan struct{}
	running       bool

	metrics *observability.Metrics
	logger  *errors.Logger
}

// NewCertReloader loads the initial certificate; a broken pair fails startup.
func NewCertReloader(cfg config.TLSConfig, metrics *observability.Metrics, logger *errors.Logger) (*CertReloader, error) {
	debounce := cfg.DebounceDelay
	if debounce <= 0 {
		debounce = time.Second
	}

	cr := &CertReloader{
		certFile:      cfg.CertFile,
		keyFile:       cfg.KeyFile,
		certContent:   cfg.CertContent,
		keyContent:    cfg.KeyContent,
		debounceDelay: debounce,
		stopChan:      make(chan struct{}),
		metrics:       metrics,
		logger:        logger,
	}

	if err := cr.load(); err != nil {
		return nil, err
	}
	return cr, nil
}

// load reads the key pair and publishes it
func (cr *CertReloader) load() error {
	var (
		cert tls.Certificate
		err  error
	)
	if cr.certContent != "" && cr.keyContent != "" {
		cert, err = tls.X509KeyPair([]byte(cr.certContent), []byte(cr.keyContent))
	} else if cr.certFile != "" && cr.keyFile != "" {
		cert, err = tls.LoadX509KeyPair(cr.certFile, cr.keyFile)
	} else {
		return fmt.Errorf("TLS certificate and key are required (provide either files or content)")
	}
	if err != nil {
		return fmt.Errorf("failed to load server cert/key: %w", err)
	}

	leaf := cert.Leaf
	if leaf == nil && len(cert.Certificate) > 0 {
		if leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return fmt.Errorf("failed to parse server certificate: %w", err)
		}
	}

	cr.mu.Lock()
	cr.cert = &cert
	if leaf != nil {
		cr.notAfter = leaf.NotAfter
	}
	notAfter := cr.notAfter
	cr.mu.Unlock()

	cr.metrics.RecordCertExpiry(context.Background(), notAfter)
	return nil
}

// Reload re-reads the certificate files, keeping the old pair on failure
func (cr *CertReloader) Reload() error {
	err := cr.load()

	cr.mu.Lock()
	cr.stats.ReloadCount++
	cr.stats.LastReloadTime = time.Now()
	if err != nil {
		cr.stats.ReloadFailureCount++
		cr.stats.LastReloadError = err.Error()
	} else {
		cr.stats.LastReloadError = ""
	}
	cr.mu.Unlock()

	cr.metrics.RecordCertReload(context.Background(), err == nil)
	if err != nil {
		cr.logger.LogError(err, "Failed to reload TLS certificates")
		return err
	}
	cr.logger.Info("TLS certificates reloaded successfully", "not_after", cr.NotAfter())
	return nil
}

// GetCertificate implements tls.Config.GetCertificate
func (cr *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	if cr.cert == nil {
		return nil, fmt.Errorf("no server certificate loaded")
	}
	return cr.cert, nil
}

// Start watches the certificate files. Content-based certificates have nothing to watch.
func (cr *CertReloader) Start() error {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.running {
		return fmt.Errorf("certificate watcher is already running")
	}
	files := cr.watchedFilesLocked()
	if len(files) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Directories catch atomic replace-by-rename as used by secret mounts.
	dirs := map[string]bool{}
	for _, file := range files {
		dirs[filepath.Dir(file)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	cr.fsWatcher = watcher
	cr.running = true
	go cr.watchLoop(watcher)

	cr.logger.Info("Certificate file watcher started",
		"files", files,
		"debounce_delay", cr.debounceDelay)
	return nil
}

// Stop stops watching
func (cr *CertReloader) Stop() error {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if !cr.running {
		return nil
	}
	close(cr.stopChan)
	if cr.debounceTimer != nil {
		cr.debounceTimer.Stop()
	}
	cr.running = false

	if err := cr.fsWatcher.Close(); err != nil {
		cr.logger.LogError(err, "Failed to close file system watcher")
		return err
	}
	cr.logger.Info("Certificate file watcher stopped")
	return nil
}

func (cr *CertReloader) watchLoop(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if cr.isRelevant(event) {
				cr.scheduleReload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			cr.logger.LogError(err, "File watcher error")
		case <-cr.stopChan:
			return
		}
	}
}

// isRelevant matches write, create and rename events on the cert or key file
func (cr *CertReloader) isRelevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	for _, file := range []string{cr.certFile, cr.keyFile} {
		if file != "" && (name == filepath.Clean(file) || filepath.Base(name) == filepath.Base(file)) {
			return true
		}
	}
	return false
}

// scheduleReload coalesces bursts of events; cert and key usually change together
func (cr *CertReloader) scheduleReload() {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if !cr.running {
		return
	}
	if cr.debounceTimer != nil {
		cr.debounceTimer.Stop()
	}
	cr.debounceTimer = time.AfterFunc(cr.debounceDelay, func() {
		_ = cr.Reload()
	})
}

// Watching reports whether the file watcher is running
func (cr *CertReloader) Watching() bool {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.running
}

// WatchedFiles returns the certificate files, empty for content-based certificates
func (cr *CertReloader) WatchedFiles() []string {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.watchedFilesLocked()
}

func (cr *CertReloader) watchedFilesLocked() []string {
	if cr.certContent != "" {
		return []string{}
	}
	files := []string{}
	if cr.certFile != "" {
		files = append(files, cr.certFile)
	}
	if cr.keyFile != "" {
		files = append(files, cr.keyFile)
	}
	return files
}

// NotAfter is the expiry of the served certificate
func (cr *CertReloader) NotAfter() time.Time {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.notAfter
}

// TimeToExpiry is the time left on the served certificate
func (cr *CertReloader) TimeToExpiry() time.Duration {
	return time.Until(cr.NotAfter())
}

// Stats returns a copy of the reload counters
func (cr *CertReloader) Stats() CertReloaderStats {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.stats
}
