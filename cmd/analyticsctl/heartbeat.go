package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newHeartbeatCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "heartbeat",
		Short: "Check that the server is alive",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := clientFromConfig(v)
			if err := c.heartbeat(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is alive\n", c.baseURL)
			return nil
		},
	}
}
