package cli

import (
	"atsmatch/internal/common"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze --resume FILE [--job FILE | --job-text TEXT]",
	Short: "Score a resume against a job description",
	Long: `Extract the text of a resume and an optional job description, ask the
configured language model for an ATS assessment and print the result.

The job description can be given as a file (--job) or as text (--job-text);
pasted text wins when both are set. Without a job description the resume is
assessed on its own and a warning is printed.

The evaluation is saved to the configured store unless --no-save is given.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if analyzeConfig.OutputFormat == "" {
			analyzeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(analyzeConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runAnalyze,
}

var (
	analyzeConfig common.CommandConfig
	analyzeInputs common.MatchInputs
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeInputs.ResumeFile, "resume", "r", "", "Resume file (.pdf, .docx or .txt)")
	analyzeCmd.Flags().StringVarP(&analyzeInputs.JobFile, "job", "j", "", "Job description file (.pdf, .docx or .txt)")
	analyzeCmd.Flags().StringVar(&analyzeInputs.JobText, "job-text", "", "Job description text (overrides --job)")
	analyzeCmd.Flags().BoolVar(&analyzeInputs.SkipSave, "no-save", false, "Do not persist the evaluation")
	analyzeCmd.Flags().StringVarP(&analyzeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	_ = analyzeCmd.MarkFlagRequired("resume")

	_ = analyzeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
	_ = analyzeCmd.RegisterFlagCompletionFunc("resume", documentCompletion)
	_ = analyzeCmd.RegisterFlagCompletionFunc("job", documentCompletion)
}

func documentCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"pdf", "docx", "txt"}, cobra.ShellCompDirectiveFilterFileExt
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	pipeline, aiService, err := buildPipeline(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := aiService.Close(); err != nil {
			logger.Warn("Failed to close AI service", "error", err)
		}
	}()

	analyzeConfig.MaxFileSize = cfg.App.MaxFileSize

	if err := common.RunMatchCommand(ctx, logger, pipeline, analyzeConfig, analyzeInputs,
		common.NewOutputHandlerWithWriter(cmd.OutOrStdout(), logger)); err != nil {
		return err
	}

	logger.Info("Resume match completed successfully")
	return nil
}
