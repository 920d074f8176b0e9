package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"pkt.systems/screenplay"
)

func newImportCmd() *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Generate scenarios from other formats (openapi)",
	}

	openapi := &cobra.Command{
		Use:   "openapi",
		Short: "Generate a scenario from an OpenAPI 3 or Swagger 2 document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromCmd(cmd)
			src, _ := cmd.Flags().GetString("source")
			outFile, _ := cmd.Flags().GetString("output")
			name, _ := cmd.Flags().GetString("name")
			actor, _ := cmd.Flags().GetString("actor")
			insecure, _ := cmd.Flags().GetBool("insecure")
			allowRemoteRefs, _ := cmd.Flags().GetBool("allow-remote-refs")
			allowFileRefs, _ := cmd.Flags().GetBool("allow-file-refs")
			includePaths, _ := cmd.Flags().GetStringSlice("include-path")
			if src == "" {
				return fmt.Errorf("--source is required")
			}
			if outFile == "" {
				// stdout carries the scenario
				l, err := loggerFromFlags(cmd, os.Stderr)
				if err != nil {
					return err
				}
				logger = l
			}
			rendered, err := screenplay.ImportOpenAPI(cmd.Context(), screenplay.ImportOptions{
				Source:          src,
				OutputFile:      outFile,
				ScenarioName:    name,
				ActorName:       actor,
				Insecure:        insecure,
				AllowRemoteRefs: allowRemoteRefs,
				AllowFileRefs:   allowFileRefs,
				IncludePaths:    includePaths,
				Logger:          logger,
			})
			if err != nil {
				return err
			}
			if outFile == "" {
				_, err = os.Stdout.Write(rendered)
			}
			return err
		},
	}

	addLoggingFlags(importCmd.Flags())
	addLoggingFlags(openapi.Flags())

	openapi.Flags().StringP("source", "s", "", "Path or URL to the OpenAPI/Swagger document")
	openapi.Flags().StringP("output", "o", "", "Write the scenario TOML here instead of stdout")
	openapi.Flags().StringP("name", "n", "", "Scenario name (defaults to the document title)")
	openapi.Flags().String("actor", "client", "Name of the actor performing every step")
	openapi.Flags().Bool("insecure", false, "Skip TLS verification when fetching URL")
	openapi.Flags().Bool("allow-remote-refs", false, "Allow following remote $refs inside the OpenAPI document")
	openapi.Flags().Bool("allow-file-refs", false, "Allow absolute/local file $refs (blocked by default for security)")
	openapi.Flags().StringSliceP("include-path", "i", nil, "Only import operations whose path starts with one of these prefixes (repeatable)")

	importCmd.AddCommand(openapi)
	return importCmd
}
