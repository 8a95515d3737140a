package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/ademakov/MainMemory-sub000"
	"github.com/ademakov/MainMemory-sub000/internal/config"
	"github.com/ademakov/MainMemory-sub000/internal/fabric"
	"github.com/ademakov/MainMemory-sub000/internal/interfaces"
	"github.com/ademakov/MainMemory-sub000/internal/logging"
)

func main() {
	cfg := config.DefaultRuntimeConfig()
	fs := flag.NewFlagSet("mainmemory-server", flag.ExitOnError)
	cfg.RegisterFlags(fs)
	verbose := fs.Bool("v", false, "enable debug logging")
	dumpPath := fs.String("dump-path", "mainmemory-stacks.pprof", "file SIGUSR1 writes a goroutine profile dump to")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "mainmemory-server: %v\n", err)
		os.Exit(1)
	}

	level := logging.LevelInfo
	if *verbose {
		level = logging.LevelDebug
	}
	logger := logging.NewLogger(&logging.Config{Level: level, Output: os.Stderr})

	rt, err := mainmemory.NewRuntime(cfg, logger, mainmemory.NewMetrics())
	if err != nil {
		fmt.Fprintf(os.Stderr, "mainmemory-server: failed to start: %v\n", err)
		os.Exit(1)
	}
	demoRuntime = rt

	logger.Infof("runtime started: %d domain(s), %d thread(s) each, %d table partition(s)",
		cfg.NumDomains, cfg.ThreadsPerDomain, cfg.TablePartitions)

	driverQueue := rt.Domains()[0].Thread(0).Queue()
	driverNotify := rt.Domains()[0].Thread(0)
	runDemo(logger, driverQueue, driverNotify)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)
	for sig := range sigs {
		if sig == syscall.SIGUSR1 {
			dumpStacks(*dumpPath, logger)
			continue
		}
		logger.Infof("received %s, shutting down", sig)
		break
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rt.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "mainmemory-server: shutdown error: %v\n", err)
		os.Exit(1)
	}
}

// runDemo exercises SET/GET/DELETE through the request fabric once at
// startup, so the CLI proves the table and fabric are wired correctly
// without needing a protocol parser or network acceptor.
func runDemo(logger interfaces.Logger, queue *fabric.Queue, notify fabric.Notifier) {
	key := []byte("demo-key")
	value := []byte("demo-value")

	postDemo(queue, notify, demoSet, key, value)
	logger.Infof("demo: SET %s = %s", key, value)

	got := postDemo(queue, notify, demoGet, key, nil)
	logger.Infof("demo: GET %s -> found=%v value=%s", key, got.found, got.value)

	deleted := postDemo(queue, notify, demoDelete, key, nil)
	logger.Infof("demo: DELETE %s -> found=%v", key, deleted.found)
}

func dumpStacks(path string, logger interfaces.Logger) {
	f, err := os.Create(path)
	if err != nil {
		logger.Infof("could not open stack dump file %s: %v", path, err)
		return
	}
	defer f.Close()
	if err := pprof.Lookup("goroutine").WriteTo(f, 1); err != nil {
		logger.Infof("could not write stack dump: %v", err)
		return
	}
	logger.Infof("wrote goroutine stack dump to %s", path)
}
