package main

import (
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after every layer (files, .env, environment,
flags) has been applied, as YAML. The files that were read are listed on
stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.cfg.Marshal()
			if err != nil {
				return err
			}
			for _, path := range a.loaded {
				cmd.PrintErrln("# loaded " + path)
			}
			_, err = a.out.Write(out)
			return err
		},
	}
}
