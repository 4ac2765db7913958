package main

import "runtime/pprof"
import "os"
import "os/signal"
import "syscall"

// startProfile collects cpu profile data into name until stop is called or
// the process is interrupted.
func startProfile(name string) (stop func(), err error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}

	// Create a channel to receive OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case <-sigChan:
			pprof.StopCPUProfile()
			f.Close()
			os.Exit(130)
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}
