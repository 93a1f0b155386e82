// Package cli provides the cobra command tree for the answering engine.
// Services are injected from main before Execute runs; commands fail
// with a clear error when invoked without their dependencies.
package cli

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-answers/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// version is overridden at build time via ldflags.
var version = "dev"

// Injected services used by the commands.
var (
	queryService  driving.QueryService
	ingestService driving.IngestService
)

// ServeConfig holds what the serve command needs to run the HTTP API.
type ServeConfig struct {
	Handler http.Handler
}

// serveConfig holds the current serve configuration.
var serveConfig *ServeConfig

var rootCmd = &cobra.Command{
	Use:   "answersd",
	Short: "Retrieval-augmented answering over indexed documents",
	Long: `Answersd answers natural-language questions against an indexed
document corpus. Retrieval combines semantic (vector) and keyword search,
routes by confidence between document evidence and web augmentation, and
streams cited answers.`,
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// SetVersion sets the version string reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetServices injects the core services the commands call.
func SetServices(query driving.QueryService, ingest driving.IngestService) {
	queryService = query
	ingestService = ingest
}

// SetServeConfig sets the configuration for the serve command.
func SetServeConfig(config *ServeConfig) {
	serveConfig = config
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
