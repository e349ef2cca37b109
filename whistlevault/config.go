package whistlevault

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

var conf *viper.Viper

func MakeOrGetConfig() *viper.Viper {
	return conf
}

func SetConfig(config *viper.Viper) {
	conf = config
}

var shutdown chan struct{}

func RegisterShutdownChan(interrupt chan struct{}) {
	shutdown = interrupt
}

// Shutdown closes the interrupt channel so that everything waiting on it can
// clean up. If the databases fail to close within the grace period we kill the
// process anyway.
func Shutdown() {
	LogCLI("Calling Shutdown", 2)
	select {
	case <-shutdown:
		return
	default:
		close(shutdown)
	}
	go func() {
		time.Sleep(time.Second * 120)
		println("Something didn't shutdown cleanly, terminating anyway.")
		os.Exit(0)
	}()
}
