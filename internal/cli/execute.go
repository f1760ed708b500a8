package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesleyorama2/curly/internal/http"
	"github.com/wesleyorama2/curly/internal/inspect"
	"github.com/wesleyorama2/curly/internal/output"
	"github.com/wesleyorama2/curly/internal/stats"
)

// plan is one command invocation: how to build a transfer and what to do
// with its result.
type plan struct {
	build   func() (*http.Request, error)
	extract map[string]string
	schema  string
	outputs outputOptions
}

// runPlan executes the transfer, repeat times in sequence with a fresh
// builder each time, then prints, saves and inspects the last result.
func runPlan(cmd *cobra.Command, p plan, logger *zap.Logger) error {
	formatter, noColor, err := formatterFor(cmd, p.outputs)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	repeat := max(p.outputs.repeat, 1)
	var recorder *stats.Recorder
	if repeat > 1 {
		recorder = stats.NewRecorder()
	}

	var last *http.Request
	for i := 0; i < repeat; i++ {
		req, err := p.build()
		if err != nil {
			return err
		}
		if i == 0 && p.outputs.verbose {
			fmt.Fprint(out, formatter.FormatRequest(req))
		}

		start := time.Now()
		ok, err := req.Execute(cmd.Context())
		if err != nil {
			return err
		}
		if recorder != nil {
			var size int64
			if resp := req.Response(); resp != nil {
				size = int64(len(resp.Body))
			}
			recorder.Record(time.Since(start), ok, size)
			logger.Debug("repeat finished", zap.Int("run", i+1), zap.Bool("succeeded", ok))
		}
		last = req
	}

	fmt.Fprint(out, formatter.FormatResponse(last))
	if recorder != nil {
		fmt.Fprint(out, formatter.FormatSummary(recorder.Summary()))
	}

	if !last.Succeeded() {
		return fmt.Errorf("transfer failed: %s", last.ErrorMessage())
	}

	if p.outputs.save != "" {
		n, err := last.SaveBody(p.outputs.save)
		switch {
		case errors.Is(err, http.ErrEmptyBody):
			logger.Warn("response body is empty, nothing saved", zap.String("path", p.outputs.save))
		case err != nil:
			return err
		default:
			fmt.Fprintf(cmd.ErrOrStderr(), "%s saved %d bytes to %s\n", output.SuccessIcon(noColor), n, p.outputs.save)
		}
	}

	body := last.Response().Body
	if len(p.extract) > 0 {
		values, err := inspect.ExtractAll(body, p.extract)
		fmt.Fprint(out, formatter.FormatExtracted(values))
		if err != nil {
			return err
		}
	}

	if p.schema != "" {
		schema, err := os.ReadFile(p.schema)
		if err != nil {
			return fmt.Errorf("reading schema: %w", err)
		}
		if err := inspect.ValidateSchema(body, schema); err != nil {
			var violations inspect.SchemaErrors
			if errors.As(err, &violations) {
				for _, v := range violations {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", output.ErrorIcon(noColor), v)
				}
			}
			return fmt.Errorf("schema validation failed: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s response matches schema\n", output.SuccessIcon(noColor))
	}

	return nil
}
