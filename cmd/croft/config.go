package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/croftlabs/croft/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configPrintDefaultCmd = &cobra.Command{
	Use:   "print-default",
	Short: "Print the built-in default configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := config.Default().Dump()
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Load a configuration file and report any errors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.Load(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s is valid\n", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configPrintDefaultCmd)
	configCmd.AddCommand(configValidateCmd)
}
