package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danieljhkim/appmigrate/internal/config"
	"github.com/danieljhkim/appmigrate/internal/planner"
)

var (
	// Global flags
	toolConfigPath string
	benchPath      string
	logLevel       string
	debug          bool

	// Resolved per invocation by setup.
	cfg    = defaultConfig()
	logger = zap.NewNop()

	// Colors for help output sections
	groupTitleColor   = color.New(color.FgCyan, color.Bold)
	sectionTitleColor = color.New(color.FgBlue, color.Bold)
)

// rootCmd is the root command for appmigrate.
var rootCmd = &cobra.Command{
	Use:     "appmigrate",
	Version: "dev",
	Short:   "Consolidate DocTypes from several Frappe apps into one",
	Long: `appmigrate consolidates DocTypes spread over several Frappe apps into a single target app.

The pipeline scans a site, detects conflicts between the source apps, writes a
checksummed migration plan, and executes it as a dry run or in one transaction.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func defaultConfig() *config.Config {
	return &config.Config{
		BenchPath:           ".",
		LogLevel:            "warn",
		BatchSize:           planner.DefaultBatchSize,
		SimilarityThreshold: planner.DefaultSimilarityThreshold,
		ResolutionPolicy:    string(planner.PolicyFirstMatch),
	}
}

// setup loads the tool config, applies global flag overrides and builds the
// logger for the command about to run.
func setup(cmd *cobra.Command, args []string) error {
	out = cmd.OutOrStdout()
	errOut = cmd.ErrOrStderr()

	loaded, err := config.Load(toolConfigPath)
	if err != nil {
		return err
	}
	if benchPath != "" {
		loaded.BenchPath = benchPath
	}
	if logLevel != "" {
		loaded.LogLevel = logLevel
	}

	l, err := newLogger(loaded.LogLevel, debug)
	if err != nil {
		return err
	}

	cfg = loaded
	logger = l
	return nil
}

func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// customHelpFunc returns a custom help function that colors group titles
func customHelpFunc(cmd *cobra.Command, args []string) {
	var help strings.Builder

	if cmd.Long != "" {
		help.WriteString(cmd.Long)
		help.WriteString("\n\n")
	}

	help.WriteString(sectionTitleColor.Sprint("Usage:"))
	help.WriteString("\n")
	fmt.Fprintf(&help, "  %s\n\n", cmd.UseLine())

	for _, group := range cmd.Groups() {
		help.WriteString(groupTitleColor.Sprint(group.Title))
		help.WriteString("\n")

		for _, c := range cmd.Commands() {
			if c.GroupID == group.ID && !c.Hidden {
				fmt.Fprintf(&help, "  %-17s %s\n", c.Name(), c.Short)
			}
		}
		help.WriteString("\n")
	}

	hasUngrouped := false
	for _, c := range cmd.Commands() {
		if c.GroupID == "" && !c.Hidden {
			if !hasUngrouped {
				help.WriteString(sectionTitleColor.Sprint("Additional Commands:"))
				help.WriteString("\n")
				hasUngrouped = true
			}
			fmt.Fprintf(&help, "  %-17s %s\n", c.Name(), c.Short)
		}
	}
	if hasUngrouped {
		help.WriteString("\n")
	}

	if cmd.HasAvailableLocalFlags() || cmd.HasAvailablePersistentFlags() {
		help.WriteString(sectionTitleColor.Sprint("Flags:"))
		help.WriteString("\n")
		help.WriteString(cmd.LocalFlags().FlagUsages())
		help.WriteString(cmd.InheritedFlags().FlagUsages())
		help.WriteString("\n")
	}

	fmt.Fprintf(&help, "Use \"%s [command] --help\" for more information about a command.\n", cmd.CommandPath())

	fmt.Fprint(cmd.OutOrStdout(), help.String())
}

func init() {
	rootCmd.SetHelpFunc(customHelpFunc)

	rootCmd.PersistentFlags().StringVar(&toolConfigPath, "tool-config", "", "Tool config file (default ~/.appmigrate/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&benchPath, "bench", "", "Frappe bench directory holding sites/ (default from config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Diagnostics level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug logging with stack traces on failure")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "pipeline",
		Title: "Migration Pipeline:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "inspection",
		Title: "Plan Inspection:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "cli-tooling",
		Title: "CLI & Tooling:",
	})

	versionCmd := &cobra.Command{
		Use:     "version",
		Short:   "Print the appmigrate CLI version",
		Args:    cobra.NoArgs,
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rootCmd.Version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	helpCmd := &cobra.Command{
		Use:     "help [command]",
		Short:   "Help about any command",
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			target, _, err := cmd.Root().Find(args)
			if err != nil || target == nil {
				target = cmd.Root()
			}
			_ = target.Help()
		},
	}
	rootCmd.SetHelpCommand(helpCmd)

	completionCmd := &cobra.Command{
		Use:     "completion",
		Short:   "Generate the autocompletion script for the specified shell",
		GroupID: "cli-tooling",
		Long: `Generate the autocompletion script for appmigrate for the specified shell.
See each sub-command's help for details on how to use the generated script.`,
	}
	completionCmd.AddCommand(&cobra.Command{
		Use:                   "bash",
		Short:                 "Generate the autocompletion script for bash",
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:                   "zsh",
		Short:                 "Generate the autocompletion script for zsh",
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:                   "fish",
		Short:                 "Generate the autocompletion script for fish",
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:                   "powershell",
		Short:                 "Generate the autocompletion script for powershell",
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		},
	})
	rootCmd.AddCommand(completionCmd)

	// Migration Pipeline commands
	scanSiteCmd.GroupID = "pipeline"
	detectConflictsCmd.GroupID = "pipeline"
	generatePlanCmd.GroupID = "pipeline"
	executePlanCmd.GroupID = "pipeline"
	rootCmd.AddCommand(scanSiteCmd)
	rootCmd.AddCommand(detectConflictsCmd)
	rootCmd.AddCommand(generatePlanCmd)
	rootCmd.AddCommand(executePlanCmd)

	// Plan Inspection commands
	showPlanCmd.GroupID = "inspection"
	rootCmd.AddCommand(showPlanCmd)
}

// Execute executes the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && debug {
		logger.Error("command failed", zap.Error(err))
	}
	_ = logger.Sync()
	return err
}
