package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/curly/internal/config"
	"github.com/wesleyorama2/curly/internal/http"
)

func newRunCmd() *cobra.Command {
	var (
		configFile  string
		environment string
		request     string
		outputs     outputOptions
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a named request from a request file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := config.LoadConfig(configFile)
			if err != nil {
				return err
			}
			if errs := config.ValidateConfig(file); len(errs) > 0 {
				lines := make([]string, len(errs))
				for i, e := range errs {
					lines[i] = "  - " + e.Error()
				}
				return fmt.Errorf("configuration validation errors:\n%s", strings.Join(lines, "\n"))
			}
			if environment != "" {
				if err := config.ValidateEnvironment(file, environment); err != nil {
					return err
				}
			}
			if request == "" {
				return fmt.Errorf("--request is required, available: %s", strings.Join(file.RequestNames(), ", "))
			}
			if err := config.ValidateRequest(file, request); err != nil {
				return err
			}

			logger := loggerFor(cmd)
			defer func() { _ = logger.Sync() }()

			extract, err := parsePairs(outputs.extract, "=")
			if err != nil {
				return fmt.Errorf("invalid --extract: %w", err)
			}
			def := file.Requests[request]
			schema := outputs.schema
			if schema == "" {
				schema = file.ResolvePath(def.Schema)
			}
			return runPlan(cmd, plan{
				build: func() (*http.Request, error) {
					return file.Build(request, environment, http.WithLogger(logger))
				},
				extract: config.MergeEnvironments(def.Extract, extract),
				schema:  schema,
				outputs: outputs,
			}, logger)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Request file (YAML or JSON)")
	cmd.Flags().StringVarP(&environment, "environment", "e", "", "Environment to apply")
	cmd.Flags().StringVarP(&request, "request", "r", "", "Name of the request to run")
	_ = cmd.MarkFlagRequired("config")
	addOutputFlags(cmd, &outputs)

	return cmd
}
