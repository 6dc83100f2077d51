package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/logger"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/memory"
)

func executeCLI() error {
	return buildRootCommand(true).Execute()
}

func buildRootCommand(includeDocsCommand bool) *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   appName,
		Short: "AI-coached system design interview practice",
		Long: strings.TrimSpace(`interviewcoach runs mock system design interviews.

Practice locally in the terminal, or run the Discord gateway so a whole
server can interview. Answers are scored on clarity, technical depth,
scalability and trade-offs, and the coach adapts difficulty as you go.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion(cmd.OutOrStdout())
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")

	root.AddCommand(newOnboardCommand())
	root.AddCommand(newInterviewCommand())
	root.AddCommand(newGatewayCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newSessionsCommand())
	root.AddCommand(newTopicsCommand())
	root.AddCommand(newVersionCommand())

	if includeDocsCommand {
		root.AddCommand(newDocsCommand(func() *cobra.Command { return buildRootCommand(false) }))
	}
	return root
}

func enableDebug(debug bool) {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("Debug mode enabled")
	}
}

func newOnboardCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "onboard",
		Short:   "Write the default config to ~/.interviewcoach",
		Long:    "Create the default configuration file and workspace for a new installation.",
		Example: "  interviewcoach onboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return onboard(cmd.OutOrStdout(), cmd.InOrStdin(), force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config without asking")
	return cmd
}

func newInterviewCommand() *cobra.Command {
	var (
		topic      string
		difficulty string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "interview",
		Short: "Practice an interview in the terminal",
		Long:  "Run an interactive interview session locally without Discord.",
		Example: strings.Join([]string{
			"  interviewcoach interview",
			"  interviewcoach interview --topic chat_system --difficulty advanced",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if difficulty != "" {
				if _, err := interview.ParseDifficulty(difficulty); err != nil {
					return err
				}
			}
			enableDebug(debug)
			return interviewCmd(strings.TrimSpace(topic), difficulty)
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Start straight away on this topic")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "beginner, intermediate or advanced")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func newGatewayCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:     "gateway",
		Short:   "Run the Discord gateway + health server",
		Long:    "Start channel adapters, the interview router, the expiry sweeper and the health/metrics server.",
		Example: "  interviewcoach gateway --debug",
		RunE: func(cmd *cobra.Command, args []string) error {
			enableDebug(debug)
			return gatewayCmd()
		},
	}
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show configuration, provider, and runtime readiness",
		Example: "  interviewcoach status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			statusReport(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show build/version metadata",
		Example: "  interviewcoach version",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion(cmd.OutOrStdout())
			return nil
		},
	}
}

func newTopicsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "topics",
		Short:   "List the built-in interview topics",
		Example: "  interviewcoach topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeTopics(cmd.OutOrStdout(), interview.DefaultCatalog())
		},
	}
}

func writeTopics(w io.Writer, catalog *interview.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOPIC\tNAME\tKEY AREAS")
	for _, key := range catalog.TopicKeys() {
		t, _ := catalog.Topic(key)
		fmt.Fprintf(tw, "%s\t%s\t%s\n", key, t.Name, strings.Join(t.KeyAreas, ", "))
	}
	return tw.Flush()
}

func newSessionsCommand() *cobra.Command {
	sessionsRoot := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect archived interview sessions",
		Long:  "Read sessions the gateway archived when they ended or expired. Requires memory.archive_enabled.",
	}

	var limit int
	list := &cobra.Command{
		Use:     "list",
		Short:   "List archived sessions, newest first",
		Example: "  interviewcoach sessions list --limit 5",
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			rows, err := archive.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return writeSessionList(cmd.OutOrStdout(), rows)
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum sessions to list")

	var asJSON bool
	show := &cobra.Command{
		Use:     "show <session-id>",
		Short:   "Show one archived session",
		Args:    cobra.ExactArgs(1),
		Example: "  interviewcoach sessions show 3f2a... --json",
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			snap, err := archive.LoadSnapshot(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, interview.ErrNotFound) {
					return fmt.Errorf("no archived session %s", args[0])
				}
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			writeSnapshot(cmd.OutOrStdout(), snap)
			return nil
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "Print the full snapshot as JSON")

	sessionsRoot.AddCommand(list, show)
	return sessionsRoot
}

func openArchive() (*memory.SQLiteArchive, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !cfg.Memory.ArchiveEnabled {
		return nil, fmt.Errorf("the session archive is disabled (memory.archive_enabled)")
	}
	return memory.NewSQLiteArchive(cfg.ArchivePath())
}

func writeSessionList(w io.Writer, rows []memory.ArchivedSession) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No archived sessions.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tTOPIC\tDIFFICULTY\tSTARTED\tEXCHANGES\tAVG\tREASON")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.1f\t%s\n",
			r.SessionID, r.Topic, r.Difficulty, r.StartTime.Local().Format("2006-01-02 15:04"),
			r.InteractionCount, r.AverageScore, r.Reason)
	}
	return tw.Flush()
}

func writeSnapshot(w io.Writer, snap memory.Snapshot) {
	fmt.Fprintf(w, "Session %s\n", snap.SessionID)
	fmt.Fprintf(w, "Topic: %s (%s)\n", snap.Topic, snap.Difficulty)
	fmt.Fprintf(w, "Started: %s\n", snap.StartTime.Local().Format("2006-01-02 15:04"))
	if len(snap.CoveredTopics) > 0 {
		fmt.Fprintf(w, "Covered: %s\n", strings.Join(snap.CoveredTopics, ", "))
	}
	if snap.Summary != nil {
		fmt.Fprintf(w, "Earlier: %d exchanges summarized\n", snap.Summary.SummarizedInteractions)
	}
	for _, l := range snap.Interactions {
		if l.Question != "" {
			fmt.Fprintf(w, "\nQ: %s\n", l.Question)
		}
		if l.Answer != "" {
			fmt.Fprintf(w, "A: %s\n", l.Answer)
		}
		if l.Evaluation != nil {
			fmt.Fprintf(w, "Score: %.1f/10\n", l.Evaluation.Scores.Average())
		}
	}
}
