package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TFMV/trawl/internal/find"
	"github.com/TFMV/trawl/internal/fts"
)

var (
	cfgFile string
	version = "0.1.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trawl [starting-point...] [flags]",
	Short: "Walk directory hierarchies and find files",
	Long: `trawl walks one or more directory hierarchies exactly once per entry,
defending against symbolic-link cycles, hard-link loops and descriptor
leaks, and prints (or batches a command over) each matching entry.

A bare "-" among the starting points switches to reading additional
starting points from standard input, one per line. With no starting
point at all, the current directory is walked.`,
	Version: version,
	Args:    cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrawl(args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Traversal flags
	rootCmd.Flags().Int("mindepth", 0, "Do not act on entries shallower than this depth")
	rootCmd.Flags().Int("maxdepth", -1, "Descend at most this many levels (-1 = unbounded)")
	rootCmd.Flags().Bool("depth", false, "Process directory contents before the directory itself")
	rootCmd.Flags().BoolP("follow", "L", false, "Dereference all symbolic links")
	rootCmd.Flags().BoolP("follow-args", "H", false, "Dereference symbolic links given as starting points only")
	rootCmd.Flags().Bool("one-filesystem", false, "Do not descend into directories on other filesystems")
	rootCmd.Flags().Bool("no-stat", true, "Skip stat calls where the entry type is already known")
	rootCmd.Flags().Bool("dir-fds", true, "Resolve paths relative to open directory descriptors")

	// Match and action flags
	rootCmd.Flags().String("name", "", "Only act on entries whose base name matches this glob")
	rootCmd.Flags().String("type", "", "Only act on entries of this type (f|d|l|b|c|p|s)")
	rootCmd.Flags().StringSlice("exec-batch", nil, "Run this command per directory batch of matches instead of printing")
	rootCmd.Flags().Int("batch-size", 0, "Maximum matches per batched command invocation")

	// Logging flags
	rootCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.Flags().Bool("silent", false, "Disable all output except errors")

	// Bind flags to viper
	viper.BindPFlag("mindepth", rootCmd.Flags().Lookup("mindepth"))
	viper.BindPFlag("maxdepth", rootCmd.Flags().Lookup("maxdepth"))
	viper.BindPFlag("depth", rootCmd.Flags().Lookup("depth"))
	viper.BindPFlag("follow", rootCmd.Flags().Lookup("follow"))
	viper.BindPFlag("follow-args", rootCmd.Flags().Lookup("follow-args"))
	viper.BindPFlag("one-filesystem", rootCmd.Flags().Lookup("one-filesystem"))
	viper.BindPFlag("no-stat", rootCmd.Flags().Lookup("no-stat"))
	viper.BindPFlag("dir-fds", rootCmd.Flags().Lookup("dir-fds"))
	viper.BindPFlag("name", rootCmd.Flags().Lookup("name"))
	viper.BindPFlag("type", rootCmd.Flags().Lookup("type"))
	viper.BindPFlag("exec-batch", rootCmd.Flags().Lookup("exec-batch"))
	viper.BindPFlag("batch-size", rootCmd.Flags().Lookup("batch-size"))
	viper.BindPFlag("verbose", rootCmd.Flags().Lookup("verbose"))
	viper.BindPFlag("silent", rootCmd.Flags().Lookup("silent"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".trawl" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".trawl")
	}

	viper.AutomaticEnv() // read in environment variables that match

	viper.ReadInConfig()
}

func runTrawl(args []string) error {
	opts := find.DefaultOptions()
	opts.MinDepth = viper.GetInt("mindepth")
	opts.MaxDepth = viper.GetInt("maxdepth")
	opts.PreOrder = !viper.GetBool("depth")
	opts.OneFilesystem = viper.GetBool("one-filesystem")
	opts.NoStat = viper.GetBool("no-stat")
	opts.DirFDs = viper.GetBool("dir-fds")

	// Symlink policy: -L wins over -H, matching the usual CLI contract.
	switch {
	case viper.GetBool("follow"):
		opts.Symlinks = fts.FollowAll
	case viper.GetBool("follow-args"):
		opts.Symlinks = fts.FollowRoots
	default:
		opts.Symlinks = fts.NeverFollow
	}

	// Set log level and logger
	level := find.LogLevelInfo
	if viper.GetBool("verbose") {
		level = find.LogLevelDebug
	} else if viper.GetBool("silent") {
		level = find.LogLevelError
	}
	logger := find.NewLogger(level)
	defer logger.Sync()
	opts.Logger = logger

	eval := &find.PrintEvaluator{
		Name: viper.GetString("name"),
	}
	if typeStr := viper.GetString("type"); typeStr != "" {
		if len(typeStr) != 1 {
			return fmt.Errorf("invalid type value: %s (expected a single letter, e.g. f)", typeStr)
		}
		eval.Type = typeStr[0]
	}
	if argv := viper.GetStringSlice("exec-batch"); len(argv) > 0 {
		batch := &find.ExecBatcher{
			Argv:  argv,
			Limit: viper.GetInt("batch-size"),
		}
		eval.Batch = batch
		opts.Batcher = batch
	}
	opts.Evaluator = eval

	runner := find.NewRunner(opts)
	if status := runner.Run(args); status != 0 {
		logger.Sync()
		os.Exit(status)
	}
	return nil
}
