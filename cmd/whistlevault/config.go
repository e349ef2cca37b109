package main

import (
	"os"

	"github.com/spf13/viper"

	"whistlevault/whistlevault"
)

// initConfig sets up our Viper config object
func initConfig(config *viper.Viper) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		whistlevault.LogCLI(err.Error(), 0)
	}
	config.SetDefault("rootDir", homeDir+"/whistlevault/")
	config.SetConfigType("yaml")
	config.SetConfigFile(config.GetString("rootDir") + "config.yaml")
	err = config.ReadInConfig()
	if err != nil {
		whistlevault.LogCLI(err.Error(), 4)
	}
	config.SetDefault("firstRun", true)
	config.SetDefault("flatFileDir", "data/")
	config.SetDefault("logLevel", 4)
	config.SetDefault("listenAddr", "0.0.0.0:5000")
	config.SetDefault("backupOnStart", false)

	// pinning gateway
	config.SetDefault("pinningURL", "https://api.pinata.cloud")
	config.SetDefault("pinningGateway", "https://gateway.pinata.cloud/ipfs")
	config.SetDefault("pinningAPIKey", "")
	config.SetDefault("pinningSecret", "")

	// ledger gateway
	config.SetDefault("rpcURL", "https://rpc.linea.build")
	config.SetDefault("contractAddress", "")
	config.SetDefault("gasLimit", int64(2000000))

	config.SetDefault("maxUploadBytes", int64(10<<20))

	// Create our working directory and config file if not exist
	initRootDir(config)
	whistlevault.Touch(config.GetString("rootDir") + "config.yaml")
	err = config.WriteConfig()
	if err != nil {
		whistlevault.LogCLI(err.Error(), 0)
	}
}

func initRootDir(conf *viper.Viper) {
	_, err := os.Stat(conf.GetString("rootDir"))
	if os.IsNotExist(err) {
		err = os.Mkdir(conf.GetString("rootDir"), 0755)
		if err != nil {
			whistlevault.LogCLI(err, 0)
		}
	}
}
