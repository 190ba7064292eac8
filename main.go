package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"cadforge/pkg/agent"
	"cadforge/pkg/cadexec"
	"cadforge/pkg/config"
	"cadforge/pkg/conversation"
	"cadforge/pkg/eventlog"
	"cadforge/pkg/logx"
	"cadforge/pkg/metrics"
	"cadforge/pkg/params"
	"cadforge/pkg/persistence"
)

func main() {
	var configPath string
	var provider string
	var model string
	var prompt string
	var metricsAddr string
	var showUsage bool
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&provider, "provider", "", "LLM provider (anthropic, openai, google, ollama)")
	flag.StringVar(&model, "model", "", "Model override for the design stage")
	flag.StringVar(&prompt, "prompt", "", "Initial design prompt")
	flag.StringVar(&metricsAddr, "metrics-addr", "http://localhost:9090", "Prometheus base URL for usage queries")
	flag.BoolVar(&showUsage, "token-usage", false, "Print per-session token usage from Prometheus and exit")
	flag.Parse()

	if showUsage {
		if err := printTokenUsage(metricsAddr); err != nil {
			log.Fatalf("Failed to query token usage: %v", err)
		}
		return
	}

	if configPath == "" {
		configPath = os.Getenv("CADFORGE_CONFIG")
	}
	if configPath == "" {
		configPath = "config/cadforge.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if provider == "" {
		provider = cfg.DefaultProvider
	}

	ensureAPIKey(cfg, provider)

	gateway, err := agent.NewGateway(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize LLM gateway: %v", err)
	}
	if !gateway.Has(provider) {
		log.Fatalf("Provider %q is not configured", provider)
	}

	executor := cadexec.NewPythonExecutor(cfg.PythonBin, cfg.TempDir, cfg.ExecDeadline())
	pipeline := agent.NewPipeline(cfg, gateway, executor)
	store := conversation.NewStore(cfg.SessionTTL())
	defer store.Close()

	var journal *eventlog.Writer
	if cfg.JournalDir != "" {
		journal, err = eventlog.NewWriter(cfg.JournalDir)
		if err != nil {
			log.Fatalf("Failed to open session journal: %v", err)
		}
		defer journal.Close()
	}

	var persist *persistence.Store
	if cfg.DatabasePath != "" {
		persist, err = persistence.Open(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer persist.Close()
	}

	engine := conversation.NewEngine(cfg, gateway, pipeline, store, journal, persist)
	logger := logx.NewLogger("main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received %v, shutting down", sig)
		cancel()
	}()

	if err := runConversation(ctx, engine, store, provider, model, prompt); err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nInterrupted.")
			return
		}
		log.Fatalf("Conversation failed: %v", err)
	}
}

// printTokenUsage reports per-session LLM token consumption over the
// last 24 hours, as scraped by Prometheus.
func printTokenUsage(metricsAddr string) error {
	querier, err := metrics.NewQuerier(metricsAddr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	usage, err := querier.SessionTokenUsage(ctx, 24*time.Hour)
	if err != nil {
		return err
	}
	if len(usage) == 0 {
		fmt.Println("No token usage recorded in the last 24h.")
		return nil
	}
	for session, tokens := range usage {
		fmt.Printf("%s\t%.0f tokens\n", session, tokens)
	}
	return nil
}

// ensureAPIKey prompts for a missing API key when running interactively.
func ensureAPIKey(cfg *config.Config, provider string) {
	p, ok := cfg.Providers[provider]
	if !ok || provider == config.ProviderOllama || p.APIKey != "" {
		return
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return
	}

	fmt.Printf("Enter API key for %s: ", provider)
	key, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil || len(key) == 0 {
		return
	}
	p.APIKey = strings.TrimSpace(string(key))
	cfg.Providers[provider] = p
}

func runConversation(ctx context.Context, engine *conversation.Engine, store *conversation.Store, provider, model, prompt string) error {
	session := store.Create(conversation.CreateOptions{InitialPrompt: prompt})
	fmt.Printf("Session %s (provider: %s)\n\n", session.ID, provider)

	printed := session.MessageCount()
	reply, err := engine.Start(ctx, session.ID, provider)
	if err != nil {
		return err
	}
	printed = printNewMessages(session, printed)

	reader := bufio.NewReader(os.Stdin)
	for !reply.Complete {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}
		if line == "/params" {
			printParameters(engine, session.ID)
			continue
		}
		if rest, ok := strings.CutPrefix(line, "/set "); ok {
			applyParameter(ctx, engine, session.ID, rest)
			continue
		}

		printed = session.MessageCount() + 1 // skip echoing the user's own line
		reply, err = engine.ProcessMessage(ctx, session.ID, line, provider, model)
		if err != nil {
			return err
		}
		printed = printNewMessages(session, printed)
	}

	if code := session.Code(); code != "" {
		fmt.Println("\nFinal script:")
		fmt.Println(code)
	}
	return nil
}

func printParameters(engine *conversation.Engine, sessionID string) {
	parameters, err := engine.Parameters(sessionID)
	if err != nil {
		fmt.Printf("Cannot list parameters: %v\n", err)
		return
	}
	if len(parameters) == 0 {
		fmt.Println("No editable parameters found in the generated script.")
		return
	}
	for _, p := range parameters {
		fmt.Printf("  %s = %s %s\n", p.Name, params.FormatValue(p.Value), p.Unit)
	}
}

// applyParameter handles "/set <name> <value>".
func applyParameter(ctx context.Context, engine *conversation.Engine, sessionID, input string) {
	fields := strings.FieldsFunc(input, func(r rune) bool { return r == ' ' || r == '=' })
	if len(fields) != 2 {
		fmt.Println("Usage: /set <name> <value>")
		return
	}
	value, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		fmt.Printf("Invalid value %q: %v\n", fields[1], err)
		return
	}

	if _, err := engine.UpdateParameters(ctx, sessionID, map[string]float64{fields[0]: value}); err != nil {
		fmt.Printf("Parameter update failed: %v\n", err)
		return
	}
	fmt.Printf("Updated %s to %s.\n", fields[0], params.FormatValue(value))
}

// printNewMessages renders transcript entries appended since the given
// index and returns the new high-water mark.
func printNewMessages(session *conversation.Session, from int) int {
	messages := session.Transcript()
	for _, m := range messages[min(from, len(messages)):] {
		label := string(m.Kind)
		if m.Role != "" {
			label = string(m.Role)
		}
		fmt.Printf("[%s] %s\n", label, m.Content)

		if options, ok := m.Data["options"].([]string); ok && len(options) > 0 {
			fmt.Printf("  options: %s\n", strings.Join(options, " / "))
		}
	}
	return len(messages)
}
