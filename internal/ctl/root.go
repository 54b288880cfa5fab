// Package ctl implements the psychectl command line client.
package ctl

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Run executes the command tree and reports errors on stderr.
func Run(args []string) error {
	root := buildRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "psychectl:", err)
		return err
	}
	return nil
}

// buildRootCmd constructs the Cobra command tree wired to the HTTP client.
func buildRootCmd() *cobra.Command {
	cli := &client{}
	root := &cobra.Command{
		Use:           "psychectl",
		Short:         "Client for the psyched generation daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cli.server, "server", envOr("PSYCHED_SERVER", "http://localhost:8000"), "Base URL of the psyched daemon")

	statusCmd := &cobra.Command{Use: "status", Short: "Print the queue health snapshot", RunE: func(cmd *cobra.Command, args []string) error {
		return cli.status(cmd.OutOrStdout())
	}}

	canvasesCmd := &cobra.Command{Use: "canvases", Short: "List canvases and viewer counts", RunE: func(cmd *cobra.Command, args []string) error {
		return cli.canvases(cmd.OutOrStdout())
	}}

	var genOpts generateOpts
	generateCmd := &cobra.Command{
		Use:     "generate <source-image>",
		Short:   "Run one generation against the queue",
		Example: "  psychectl generate seed.jpg --prompt \"trade\" --count 5 --out out/",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.generate(cmd.OutOrStdout(), args[0], genOpts)
		},
	}
	generateCmd.Flags().StringVar(&genOpts.prompt, "prompt", "", "Text prompt (required)")
	generateCmd.Flags().IntVar(&genOpts.steps, "steps", 0, "Inference steps (0 = server default)")
	generateCmd.Flags().Float64Var(&genOpts.strength, "strength", 0, "Img2img strength (0 = server default)")
	generateCmd.Flags().Float64Var(&genOpts.guidance, "guidance", 0, "Guidance scale")
	generateCmd.Flags().Int64Var(&genOpts.seed, "seed", 0, "Random seed")
	generateCmd.Flags().IntVar(&genOpts.count, "count", 0, "Number of images (>1 uses the batch endpoint)")
	generateCmd.Flags().StringVar(&genOpts.outDir, "out", "", "Directory to write generated images into")
	_ = generateCmd.MarkFlagRequired("prompt")

	var watchSave string
	watchCmd := &cobra.Command{
		Use:     "watch <canvas>",
		Short:   "Attach to a canvas and print received frames",
		Example: "  psychectl watch right-canva --save frames/",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.watch(cmd.OutOrStdout(), args[0], watchSave)
		},
	}
	watchCmd.Flags().StringVar(&watchSave, "save", "", "Directory to save received JPEG frames into")

	var streamN int
	var streamFPS float64
	streamCmd := &cobra.Command{
		Use:   "stream <canvas>",
		Short: "Trigger the server-side test stream to a canvas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.stream(cmd.OutOrStdout(), args[0], streamN, streamFPS)
		},
	}
	streamCmd.Flags().IntVar(&streamN, "n", 10, "Number of frames")
	streamCmd.Flags().Float64Var(&streamFPS, "fps", 1.0, "Frames per second")

	root.AddCommand(statusCmd, canvasesCmd, generateCmd, watchCmd, streamCmd)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
