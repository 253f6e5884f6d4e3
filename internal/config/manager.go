package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ChangeEvent describes one observed configuration change.
type ChangeEvent struct {
	File      string
	Config    map[string]interface{}
	Timestamp time.Time
}

// ChangeHandler is invoked for each reloaded config file.
type ChangeHandler func(event ChangeEvent) error

// Manager watches the config directory and hot-reloads yaml files, notifying
// registered handlers. Workflow code never reads it; only operational knobs
// (rate limits, search bounds) are safe to change at runtime.
type Manager struct {
	configDir string
	watcher   *fsnotify.Watcher
	handlers  map[string][]ChangeHandler
	configs   map[string]map[string]interface{}
	logger    *zap.Logger
	stopCh    chan struct{}
	mu        sync.RWMutex
	started   bool
}

// NewManager creates a hot-reload manager for the given directory.
func NewManager(configDir string, logger *zap.Logger) (*Manager, error) {
	if configDir == "" {
		return nil, fmt.Errorf("config directory cannot be empty")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &Manager{
		configDir: configDir,
		watcher:   watcher,
		handlers:  make(map[string][]ChangeHandler),
		configs:   make(map[string]map[string]interface{}),
		logger:    logger,
		stopCh:    make(chan struct{}),
	}, nil
}

// OnChange registers a handler for a config file name (e.g. "research.yaml").
func (m *Manager) OnChange(file string, handler ChangeHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[file] = append(m.handlers[file], handler)
}

// Get returns the last loaded contents for a config file.
func (m *Manager) Get(file string) (map[string]interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.configs[file]
	return cfg, ok
}

// Start loads all yaml files in the directory and begins watching for changes.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	if err := m.watcher.Add(m.configDir); err != nil {
		return fmt.Errorf("watch config directory: %w", err)
	}

	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return fmt.Errorf("read config directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isYAML(e.Name()) {
			continue
		}
		if err := m.loadFile(filepath.Join(m.configDir, e.Name())); err != nil {
			m.logger.Warn("Failed to load config file",
				zap.String("file", e.Name()), zap.Error(err))
		}
	}

	go m.watch()
	return nil
}

// Stop ends watching.
func (m *Manager) Stop() error {
	close(m.stopCh)
	return m.watcher.Close()
}

func (m *Manager) watch() {
	for {
		select {
		case <-m.stopCh:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if !isYAML(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := m.loadFile(event.Name); err != nil {
				m.logger.Warn("Config reload failed",
					zap.String("file", event.Name), zap.Error(err))
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("Config watcher error", zap.Error(err))
		}
	}
}

func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var cfg map[string]interface{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	name := filepath.Base(path)
	m.mu.Lock()
	m.configs[name] = cfg
	handlers := append([]ChangeHandler(nil), m.handlers[name]...)
	m.mu.Unlock()

	event := ChangeEvent{File: name, Config: cfg, Timestamp: time.Now()}
	for _, h := range handlers {
		if err := h(event); err != nil {
			m.logger.Warn("Config change handler failed",
				zap.String("file", name), zap.Error(err))
		}
	}
	m.logger.Info("Loaded config file", zap.String("file", name))
	return nil
}

func isYAML(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}
