package main

import (
	"sync"
	"time"

	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/viper"

	"whistlevault/database"
	"whistlevault/gateways/ledger"
	"whistlevault/gateways/pinning"
	"whistlevault/intake/reports"
	"whistlevault/messaging/httpapi"
	"whistlevault/whistlevault"
)

func main() {
	deadlock.Opts.DisableLockOrderDetection = true
	deadlock.Opts.DeadlockTimeout = time.Millisecond * 30000

	// Various aspects of this application require global and local settings.
	// To keep things clean and tidy we put these settings in a Viper configuration.
	conf := viper.New()
	initConfig(conf)
	// make the config accessible globally
	whistlevault.SetConfig(conf)

	// the terminator channel blocks until shutdown, anything requiring a clean
	// shutdown should wait on this channel and clean up when it stops blocking.
	terminator := make(chan struct{})

	// anything requiring a clean shutdown (the report store) adds to this
	// waitgroup and removes itself once it has flushed to disk. Failure to do
	// this would lose whatever was appended but not yet persisted.
	wg := &sync.WaitGroup{}

	// interrupt: see cliListener
	interrupt := make(chan struct{})
	whistlevault.RegisterShutdownChan(interrupt)

	if conf.GetBool("backupOnStart") {
		database.Backup()
	}

	reports.StartDb(terminator, wg)

	led, err := ledger.NewGateway()
	if err != nil {
		whistlevault.LogCLI(err.Error(), 0)
	}
	reports.SetGateways(pinning.NewGateway(), led)

	go httpapi.Start()
	go cliListener(interrupt)

	whistlevault.LogCLI("Waiting for terminate signal, press q to quit", 4)
	<-interrupt

	conf.Set("firstRun", false)
	err = conf.WriteConfig()
	if err != nil {
		whistlevault.LogCLI(err.Error(), 3)
	}
	close(terminator)
	wg.Wait()
}
