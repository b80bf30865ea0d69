package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/competitor-cli/internal/model"
)

var (
	discoverVariant  string
	discoverNoRecord bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover <url>",
	Short: "Discover direct competitors of the business at url",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if discoverVariant != "" {
			cfg.Pipeline.Variant = discoverVariant
		}

		env, err := initPipeline(ctx, "discover", !discoverNoRecord)
		if err != nil {
			return err
		}
		defer env.Close()

		return runDiscover(ctx, env, args[0], os.Stdout)
	},
}

// runDiscover runs the pipeline once and writes the response body to out.
func runDiscover(ctx context.Context, env *pipelineEnv, rawURL string, out io.Writer) error {
	runID := uuid.New().String()
	started := time.Now()

	res, runErr := env.Pipeline.Run(ctx, runID, rawURL)
	if env.Recorder != nil {
		env.Recorder.Record(ctx, runID, rawURL, env.Pipeline.Variant(), res, runErr, started)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if runErr != nil {
		_, body := errorResponse(runErr)
		if err := enc.Encode(body); err != nil {
			return eris.Wrap(err, "discover: encode error")
		}
		return eris.Wrapf(runErr, "discover %s", rawURL)
	}
	return eris.Wrap(enc.Encode(res), "discover: encode result")
}

func init() {
	discoverCmd.Flags().StringVar(&discoverVariant, "variant", "", "pipeline variant: basic, structured or validated (default from config)")
	discoverCmd.Flags().BoolVar(&discoverNoRecord, "no-record", false, "do not write the run to the run log")
	rootCmd.AddCommand(discoverCmd)
}

// errorBody is the response payload for a failed discovery.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// errorResponse maps a pipeline error to an HTTP status and payload.
func errorResponse(err error) (int, errorBody) {
	switch runStatus(err) {
	case model.RunStatusInvalidURL:
		return http.StatusBadRequest, errorBody{Error: "invalid URL provided"}
	case model.RunStatusFetchError:
		return http.StatusBadGateway, errorBody{Error: "could not reach the provided URL"}
	default:
		return http.StatusInternalServerError, errorBody{Error: "competitor discovery failed"}
	}
}
