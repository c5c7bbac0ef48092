package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/livegateway/livegateway/internal/access"
	"github.com/livegateway/livegateway/internal/api"
	"github.com/livegateway/livegateway/internal/bridge"
	"github.com/livegateway/livegateway/internal/config"
	"github.com/livegateway/livegateway/internal/logging"
	"github.com/livegateway/livegateway/internal/util"
	"github.com/livegateway/livegateway/internal/watcher"
	log "github.com/sirupsen/logrus"
)

type LogFormatter struct {
}

func (m *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05")
	var newLog string
	newLog = fmt.Sprintf("[%s] [%s] [%s:%d] %s\n", timestamp, entry.Level, path.Base(entry.Caller.File), entry.Caller.Line, entry.Message)

	b.WriteString(newLog)
	return b.Bytes(), nil
}

func init() {
	log.SetOutput(os.Stdout)
	log.SetReportCaller(true)
	log.SetFormatter(&LogFormatter{})
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Configure File Path")
	flag.Parse()

	if configPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Fatalf("failed to get working directory: %v", err)
		}
		configPath = path.Join(wd, "config.yaml")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.SetLogLevel(cfg)

	allowList := access.NewList(cfg.AllowedIPs)
	if !allowList.Empty() {
		log.Infof("IP access control enabled with %d rules", len(cfg.AllowedIPs))
	}
	trustedProxies := access.NewTrustedProxySet(cfg.TrustedProxyIPs)

	requestLogger := logging.NewFileRequestLogger(cfg.RequestLog, path.Join(path.Dir(configPath), "logs"))

	b := bridge.New(cfg, bridge.NewOpener(cfg))
	server := api.NewServer(cfg, b, allowList, trustedProxies, requestLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := watcher.NewWatcher(configPath, cfg, requestLogger)
	if err = w.Start(ctx); err != nil {
		log.Warnf("config watcher unavailable: %v", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err = <-errChan:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Infof("received signal %s, shutting down", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err = server.Stop(shutdownCtx); err != nil {
			log.Errorf("graceful shutdown failed: %v", err)
		}
	}
}
