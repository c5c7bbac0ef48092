// Package watcher provides file system monitoring for the gateway's
// configuration file. Log verbosity and request logging are applied live on
// change; settings that shape the middleware chain require a restart and are
// only reported.
package watcher

import (
	"context"
	"path/filepath"
	"reflect"

	"github.com/fsnotify/fsnotify"
	"github.com/livegateway/livegateway/internal/config"
	"github.com/livegateway/livegateway/internal/logging"
	"github.com/livegateway/livegateway/internal/util"
	log "github.com/sirupsen/logrus"
)

// Watcher monitors the configuration file for changes.
type Watcher struct {
	configPath    string
	current       *config.Config
	requestLogger *logging.FileRequestLogger
}

// NewWatcher creates a watcher for the given config file. The current config
// is the baseline against which changes are diffed.
func NewWatcher(configPath string, current *config.Config, requestLogger *logging.FileRequestLogger) *Watcher {
	return &Watcher{
		configPath:    configPath,
		current:       current,
		requestLogger: requestLogger,
	}
}

// Start begins watching the config file until the context is cancelled.
// Watching the parent directory keeps the watch alive across the
// rename-and-replace writes editors and orchestrators tend to do.
func (w *Watcher) Start(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(w.configPath)
	if err = fsWatcher.Add(dir); err != nil {
		_ = fsWatcher.Close()
		return err
	}

	go func() {
		defer func() { _ = fsWatcher.Close() }()
		log.Debugf("watching config file: %s", w.configPath)

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fsWatcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				w.reload()
			case err, ok := <-fsWatcher.Errors:
				if !ok {
					return
				}
				log.Warnf("config watcher error: %v", err)
			}
		}
	}()

	return nil
}

// reload re-reads the config file and applies the hot-reloadable settings.
func (w *Watcher) reload() {
	newCfg, err := config.LoadConfig(w.configPath)
	if err != nil {
		log.Warnf("failed to reload config, keeping current settings: %v", err)
		return
	}

	if newCfg.Debug != w.current.Debug {
		log.Infof("debug logging changed to %v", newCfg.Debug)
		w.current.Debug = newCfg.Debug
		util.SetLogLevel(w.current)
	}

	if newCfg.RequestLog != w.current.RequestLog {
		log.Infof("request logging changed to %v", newCfg.RequestLog)
		w.current.RequestLog = newCfg.RequestLog
		if w.requestLogger != nil {
			w.requestLogger.SetEnabled(newCfg.RequestLog)
		}
	}

	if w.restartRequired(newCfg) {
		log.Warn("access control or proxy settings changed on disk; restart required to apply")
	}
}

// restartRequired reports whether the on-disk config differs from the
// running config in a way hot reload cannot apply.
func (w *Watcher) restartRequired(newCfg *config.Config) bool {
	return newCfg.Port != w.current.Port ||
		newCfg.ReverseProxyMode != w.current.ReverseProxyMode ||
		newCfg.ProxyURL != w.current.ProxyURL ||
		newCfg.ResponseTimeout != w.current.ResponseTimeout ||
		!reflect.DeepEqual(newCfg.AllowedIPs, w.current.AllowedIPs) ||
		!reflect.DeepEqual(newCfg.TrustedProxyIPs, w.current.TrustedProxyIPs)
}
