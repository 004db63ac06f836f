package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	cfgKeyServer  = "server"
	cfgKeyTimeout = "timeout"

	defaultServer  = "http://localhost:2222"
	defaultTimeout = 10 * time.Second
	envPrefix      = "ANALYTICSCTL"
)

// newRootCmd builds the command tree. Settings resolve flag > env
// (ANALYTICSCTL_SERVER, ANALYTICSCTL_TIMEOUT) > config file > default.
func newRootCmd(v *viper.Viper) *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "analyticsctl",
		Short:         "Send and inspect analytics envelopes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(v, configFile)
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().String(cfgKeyServer, defaultServer, "analyticsbase base URL")
	root.PersistentFlags().Duration(cfgKeyTimeout, defaultTimeout, "request timeout")
	_ = v.BindPFlag(cfgKeyServer, root.PersistentFlags().Lookup(cfgKeyServer))
	_ = v.BindPFlag(cfgKeyTimeout, root.PersistentFlags().Lookup(cfgKeyTimeout))

	root.AddCommand(
		newSendCmd(v),
		newHeartbeatCmd(v),
		newDecodeCmd(),
	)
	return root
}

func loadConfig(v *viper.Viper, configFile string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		return nil
	}
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", configFile, err)
	}
	return nil
}

func clientFromConfig(v *viper.Viper) *client {
	return newClient(v.GetString(cfgKeyServer), v.GetDuration(cfgKeyTimeout))
}
