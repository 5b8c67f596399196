package main

import (
	"github.com/spf13/cobra"

	"debatearena/pkg/version"
)

// newRootCmd assembles the command tree around a.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:     "debatearena",
		Short:   "Run structured debates between language models and rank them",
		Version: version.Version,
		Long: `debatearena pits two language models against each other in a formatted debate,
has one judge or a panel of three judges pick a winner, and keeps ELO
ratings for every model across debates.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.loadConfig()
		},
	}

	root.PersistentFlags().StringVar(&a.projectDir, "project-dir", ".", "Project directory holding .debatearena/ and data/")
	root.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the command runs (e.g. :9464)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newInitCmd(a),
		newModelsCmd(a),
		newFormatsCmd(a),
		newTopicsCmd(a),
		newDebateCmd(a),
		newListCmd(a),
		newViewCmd(a),
		newJudgeCmd(a),
		newPredictCmd(a),
		newRankingsCmd(a),
		newExportCmd(a),
		newSecretsCmd(a),
		newVersionCmd(),
	)
	return root
}
