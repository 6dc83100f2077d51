package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/agent"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/bus"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/channels"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/coach"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/config"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/health"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/logger"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/memory"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/providers"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

const appName = "interviewcoach"

func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

func formatBuildInfo() (build string, goVer string) {
	build = buildTime
	goVer = goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", appName, formatVersion())
	build, goVer := formatBuildInfo()
	if build != "" {
		fmt.Fprintf(w, "  Build: %s\n", build)
	}
	if goVer != "" {
		fmt.Fprintf(w, "  Go: %s\n", goVer)
	}
}

func main() {
	// A missing .env is normal; real environment variables still apply.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not read .env: %v\n", err)
	}
	if err := executeCLI(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func getConfigPath() string {
	if p := strings.TrimSpace(os.Getenv("INTERVIEWCOACH_CONFIG")); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".interviewcoach", "config.json")
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(getConfigPath())
}

// runtimeDeps is everything an interview needs, built from config.
type runtimeDeps struct {
	cfg     *config.Config
	store   *memory.Store
	orch    *agent.Orchestrator
	archive *memory.SQLiteArchive
	offline bool
}

func (d *runtimeDeps) Close() {
	if d.archive != nil {
		if err := d.archive.Close(); err != nil {
			logger.WarnCF("archive", "Failed to close archive", map[string]interface{}{"error": err.Error()})
		}
	}
}

// buildRuntime wires provider, store and orchestrator. Without provider
// credentials it falls back to the offline port so every turn is templated.
func buildRuntime(cfg *config.Config) (*runtimeDeps, error) {
	deps := &runtimeDeps{cfg: cfg}

	var port coach.Port
	if st, err := providers.CheckCredentials(cfg); err != nil || !st.Configured {
		logger.WarnCF("coach", "Provider not usable; running with offline fallbacks", map[string]interface{}{
			"provider": st.Backend,
			"reason":   st.Problem,
		})
		port = coach.Offline{}
		deps.offline = true
	} else {
		provider, err := providers.CreateProvider(cfg)
		if err != nil {
			return nil, fmt.Errorf("create provider: %w", err)
		}
		port = coach.NewLLMPort(provider, coach.ConfigFrom(cfg))
	}

	var storeOpts []memory.Option
	if cfg.Memory.ArchiveEnabled {
		archive, err := memory.NewSQLiteArchive(cfg.ArchivePath())
		if err != nil {
			return nil, err
		}
		deps.archive = archive
		storeOpts = append(storeOpts, memory.WithArchiver(archive))
	}

	deps.store = memory.NewStore(memory.Config{
		MaxMemoryHours:            cfg.Memory.MaxMemoryHours,
		MaxInteractionsPerSession: cfg.Memory.MaxInteractionsPerSession,
		TrendSnapshotLimit:        cfg.Memory.TrendSnapshotLimit,
	}, storeOpts...)
	deps.orch = agent.NewOrchestrator(deps.store, port, agent.ConfigFrom(cfg))
	return deps, nil
}

func onboard(w io.Writer, in io.Reader, force bool) error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil && !force {
		fmt.Fprintf(w, "Config already exists at %s\n", configPath)
		fmt.Fprint(w, "Overwrite? (y/n): ")
		response, readErr := bufio.NewReader(in).ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("read answer: %w", readErr)
		}
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(w, "Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if err := config.SaveConfig(configPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if err := os.MkdirAll(cfg.WorkspacePath(), 0o755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}

	fmt.Fprintf(w, "%s is ready!\n", appName)
	fmt.Fprintln(w, "\nNext steps:")
	fmt.Fprintln(w, "  1. Add an API key to", configPath)
	fmt.Fprintln(w, "     (providers.openrouter.api_key or providers.openai.api_key)")
	fmt.Fprintln(w, "  2. Practice locally: interviewcoach interview --topic url_shortener")
	fmt.Fprintln(w, "  3. (Gateway mode) Add a Discord bot token to channels.discord.token")
	fmt.Fprintln(w, "  4. Run gateway: interviewcoach gateway")
	fmt.Fprintln(w, "  5. Check readiness: interviewcoach status")
	return nil
}

func statusReport(w io.Writer, cfg *config.Config) {
	configPath := getConfigPath()
	mark := func(ok bool, missing string) string {
		if ok {
			return "✓"
		}
		return missing
	}

	fmt.Fprintf(w, "%s Status\n", appName)
	fmt.Fprintf(w, "Version: %s\n\n", formatVersion())

	_, statErr := os.Stat(configPath)
	fmt.Fprintln(w, "Config:", configPath, mark(statErr == nil, "✗"))
	_, statErr = os.Stat(cfg.WorkspacePath())
	fmt.Fprintln(w, "Workspace:", cfg.WorkspacePath(), mark(statErr == nil, "✗"))
	if cfg.Memory.ArchiveEnabled {
		_, statErr = os.Stat(cfg.ArchivePath())
		fmt.Fprintln(w, "Archive:", cfg.ArchivePath(), mark(statErr == nil, "not initialized"))
	} else {
		fmt.Fprintln(w, "Archive: disabled")
	}

	st, err := providers.CheckCredentials(cfg)
	if err != nil {
		fmt.Fprintln(w, "Provider:", err)
	} else {
		label := st.Backend
		if st.AuthMode != "" {
			label += " (" + st.AuthMode + ")"
		}
		fmt.Fprintln(w, "Provider:", label, mark(st.Configured, "not set"))
	}
	configured := st.Configured
	fmt.Fprintf(w, "Model: %s\n", cfg.Agents.Defaults.Model)
	discordReady := strings.TrimSpace(cfg.Channels.Discord.Token) != ""
	fmt.Fprintln(w, "Discord token:", mark(discordReady, "not set"))
	fmt.Fprintln(w, "Coach ready:", mark(configured, "offline fallbacks only"))
	fmt.Fprintln(w, "Gateway ready:", mark(discordReady, "not set"))
}

func interviewCmd(topic, difficulty string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	deps, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	router := agent.NewRouter(bus.NewMessageBus(), deps.orch, agent.RouterConfig{})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	say := func(content string) {
		if reply := router.Handle(ctx, cliMessage(content)); reply != "" {
			fmt.Printf("\n%s\n\n", reply)
		}
	}

	fmt.Printf("%s interview mode (Ctrl+C or \"exit\" to leave, !help for commands)\n", appName)
	if deps.offline {
		fmt.Println("No provider credentials found: questions and feedback come from built-in templates.")
	}
	if topic != "" {
		start := "!start " + topic
		if difficulty != "" {
			start += " " + difficulty
		}
		say(start)
	} else {
		fmt.Printf("Start with !start <topic>. Known topics: %s\n\n", strings.Join(interview.DefaultCatalog().TopicKeys(), ", "))
	}

	interactiveMode(ctx, say)
	// Ending the session archives it when the archive is enabled.
	if len(deps.orch.ActiveSessions()) > 0 {
		say("!end")
	}
	return nil
}

func cliMessage(content string) bus.InboundMessage {
	return bus.InboundMessage{Channel: "cli", SenderID: "local", ChatID: "direct", Content: content}
}

func interactiveMode(ctx context.Context, say func(string)) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "You: ",
		HistoryFile:     filepath.Join(os.TempDir(), ".interviewcoach_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		fmt.Println("Falling back to simple input mode...")
		simpleInteractiveMode(ctx, os.Stdin, say)
		return
	}
	defer rl.Close()

	for ctx.Err() == nil {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}
		if !dispatchLine(line, say) {
			return
		}
	}
}

func simpleInteractiveMode(ctx context.Context, in io.Reader, say func(string)) {
	scanner := bufio.NewScanner(in)
	for ctx.Err() == nil {
		fmt.Print("You: ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			return
		}
		if !dispatchLine(scanner.Text(), say) {
			return
		}
	}
}

// dispatchLine reports false when the user asked to leave.
func dispatchLine(line string, say func(string)) bool {
	input := strings.TrimSpace(line)
	switch input {
	case "":
		return true
	case "exit", "quit":
		fmt.Println("Goodbye!")
		return false
	}
	say(input)
	return true
}

func gatewayCmd() error {
	logger.SetJSON(true)
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	deps, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	msgBus := bus.NewMessageBus()
	defer msgBus.Close()

	channelManager, err := channels.NewManagerFromConfig(cfg, msgBus)
	if err != nil {
		return fmt.Errorf("create channels: %w", err)
	}
	router := agent.NewRouter(msgBus, deps.orch, agent.RouterConfig{
		RateLimitPerMinute: cfg.Channels.Discord.RateLimitPerMinute,
		RateLimitBurst:     cfg.Channels.Discord.RateLimitBurst,
	})

	var sweeper *memory.Sweeper
	if expr := strings.TrimSpace(cfg.Memory.CleanupSchedule); expr != "" {
		sweeper, err = memory.NewSweeper(expr, deps.orch.CleanupExpired)
		if err != nil {
			return err
		}
	}

	healthServer := health.NewServer(cfg.Gateway.Host, cfg.Gateway.Port)
	healthServer.RegisterCheck("channels", func() (bool, string) {
		var down []string
		for name, running := range channelManager.Status() {
			if !running {
				down = append(down, name)
			}
		}
		if len(down) > 0 {
			return false, "not running: " + strings.Join(down, ", ")
		}
		return true, ""
	})
	healthServer.RegisterCheck("sessions", func() (bool, string) {
		return true, fmt.Sprintf("%d active", len(deps.orch.ActiveSessions()))
	})

	fmt.Printf("✓ Channels enabled: %s\n", strings.Join(channelManager.Names(), ", "))
	if deps.offline {
		fmt.Println("! No provider credentials: interviews use built-in templates")
	}
	fmt.Printf("✓ Health endpoints at http://%s:%d/health, /ready and /metrics\n", cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Println("Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return healthServer.Run(gctx) })
	g.Go(func() error { return channelManager.Run(gctx) })
	g.Go(func() error { return router.Run(gctx) })
	if sweeper != nil {
		g.Go(func() error { return sweeper.Run(gctx) })
	}
	healthServer.SetReady(true)

	err = g.Wait()
	healthServer.SetReady(false)
	fmt.Println("\n✓ Gateway stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
