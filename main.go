/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/renderqueue/engine"
	"github.com/spaghettifunk/renderqueue/engine/config"
	"github.com/spaghettifunk/renderqueue/engine/core"
	"github.com/spaghettifunk/renderqueue/engine/renderer/debug"
	"github.com/spaghettifunk/renderqueue/testbed"
)

func main() {
	configPath := flag.String("config", "", "path of the TOML configuration file, watched for changes")
	verbose := flag.Bool("verbose", false, "log every backend call")
	flag.Parse()

	c := config.Default()
	if *configPath != "" {
		var err error
		if c, err = config.Load(*configPath); err != nil {
			core.LogFatal(err.Error())
		}
	}

	backend := debug.NewRecorder()
	backend.Verbose = *verbose
	backend.Discard = true

	tb := testbed.NewTestGame(&engine.ApplicationConfig{
		Name:       "Renderqueue Testbed",
		ConfigPath: *configPath,
		Config:     c,
	}, c.Testbed)

	engine, err := engine.New(tb.Game, backend)
	if err != nil {
		panic(err)
	}

	if err := engine.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		<-sigCh
		_ = engine.Shutdown()
	}()

	// run engine
	if err := engine.Run(); err != nil {
		panic(err)
	}
	_ = engine.Shutdown()
}
