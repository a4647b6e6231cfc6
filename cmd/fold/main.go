package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/vanderheijden86/foldtree/internal/datasource"
	"github.com/vanderheijden86/foldtree/pkg/config"
	"github.com/vanderheijden86/foldtree/pkg/export"
	"github.com/vanderheijden86/foldtree/pkg/folder"
	"github.com/vanderheijden86/foldtree/pkg/model"
	"github.com/vanderheijden86/foldtree/pkg/ui"
	"github.com/vanderheijden86/foldtree/pkg/version"
	"github.com/vanderheijden86/foldtree/pkg/watcher"
)

func main() {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	configPath := flag.String("config", "", "Config file (default: $XDG_CONFIG_HOME/fold/config.yaml)")
	initConfig := flag.Bool("init", false, "Run the interactive setup wizard and write the config file")
	noFold := flag.Bool("no-fold", false, "Disable folding (every branch shows its rows)")
	rootID := flag.String("root-id", "", "Parent id that marks top-level nodes (default: empty)")
	robotSectionsFlag := flag.Bool("robot-sections", false, "Output the flattened sections as JSON")
	robotToggleFlag := flag.String("robot-toggle", "", "Toggle sections in order (e.g. 0,2) and output each edit as JSON")
	robotLintFlag := flag.Bool("robot-lint", false, "Output the hierarchy lint report as JSON (exit 1 on errors)")
	robotDiffFlag := flag.String("robot-diff", "", "Compare the hierarchy with another source and output JSON")
	robotMetricsFlag := flag.Bool("robot-metrics", false, "Output build/flatten/toggle timings as JSON")
	describe := flag.Bool("describe", false, "Print the left-child/right-sibling tree as text")
	describeWidth := flag.Int("describe-width", 6, "Cell width for --describe")
	exportSnapshot := flag.String("export-snapshot", "", "Render the tree to an SVG or PNG file")
	exportOutline := flag.String("export-outline", "", "Write the visible sections as a Markdown outline")
	exportSQLite := flag.String("export-sqlite", "", "Write the loaded nodes to a SQLite database")
	flag.Parse()

	if *help {
		fmt.Println("Usage: fold [options] [data-path]")
		fmt.Println("\nA collapsible hierarchy viewer for parent-linked node lists.")
		fmt.Println("\nOptions:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("fold %s\n", version.Version)
		os.Exit(0)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	cfgFile := *configPath
	if cfgFile == "" {
		cfgFile = config.ConfigPath()
	}

	if *initConfig {
		if err := runInit(cfgFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.LoadFrom(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyEnv()
	if *noFold {
		cfg.UI.FoldingEnabled = config.BoolPtr(false)
	}
	if *rootID != "" {
		cfg.Data.RootID = *rootID
	}
	dataPath := resolveDataPath(flag.Args(), cfg)

	robotMode := *robotSectionsFlag || *robotToggleFlag != "" || *robotLintFlag ||
		*robotDiffFlag != "" || *robotMetricsFlag || *describe
	if robotMode {
		// Keeps loader warnings off stdout-consuming pipelines.
		_ = os.Setenv("FOLD_ROBOT", "1")
	}

	nodes, src, err := datasource.Load(dataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading nodes: %v\n", err)
		fmt.Fprintln(os.Stderr, "Pass a data file or directory, or set FOLD_DATA.")
		os.Exit(1)
	}
	opts := folderOptions(cfg)

	switch {
	case *robotSectionsFlag:
		exitOn(robotSections(os.Stdout, folder.New(nodes, opts...), src.Path))
		os.Exit(0)
	case *robotToggleFlag != "":
		indices, err := parseIndices(*robotToggleFlag)
		exitOn(err)
		exitOn(robotToggle(os.Stdout, folder.New(nodes, opts...), indices))
		os.Exit(0)
	case *robotLintFlag:
		hasErrors, err := robotLint(os.Stdout, nodes, cfg.Data.RootID)
		exitOn(err)
		if hasErrors {
			os.Exit(1)
		}
		os.Exit(0)
	case *robotDiffFlag != "":
		exitOn(robotDiff(os.Stdout, nodes, src.Path, *robotDiffFlag))
		os.Exit(0)
	case *robotMetricsFlag:
		exitOn(robotMetrics(os.Stdout, nodes, opts...))
		os.Exit(0)
	case *describe:
		exitOn(describeTree(os.Stdout, folder.New(nodes, opts...), *describeWidth))
		os.Exit(0)
	}

	if *exportSnapshot != "" || *exportOutline != "" || *exportSQLite != "" {
		m := folder.New(nodes, opts...)
		title := filepath.Base(src.Path)
		if *exportSnapshot != "" {
			exitOn(export.SaveTreeSnapshot(m.Tree(), export.SnapshotOptions{Path: *exportSnapshot, Title: title}))
			fmt.Printf("Snapshot written to %s\n", *exportSnapshot)
		}
		if *exportOutline != "" {
			exitOn(export.SaveOutlineToFile(m, title, *exportOutline))
			fmt.Printf("Outline written to %s\n", *exportOutline)
		}
		if *exportSQLite != "" {
			exitOn(datasource.WriteNodes(*exportSQLite, nodes))
			fmt.Printf("Wrote %d nodes to %s\n", len(nodes), *exportSQLite)
		}
		os.Exit(0)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: the interactive view needs a terminal; use --robot-sections for scripted output.")
		os.Exit(1)
	}

	if len(nodes) == 0 {
		fmt.Printf("No nodes found in %s.\n", src.Path)
		os.Exit(0)
	}

	if err := runTUI(nodes, src, cfg); err != nil {
		fmt.Printf("Error running fold: %v\n", err)
		os.Exit(1)
	}
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveDataPath picks the positional argument over the configured path
// (file or FOLD_DATA), falling back to the working directory.
func resolveDataPath(args []string, cfg config.Config) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	if cfg.Data.Path != "" {
		return cfg.Data.Path
	}
	return "."
}

func folderOptions(cfg config.Config) []folder.Option {
	return []folder.Option{
		folder.WithFolding(cfg.FoldingEnabled()),
		folder.WithRootID(cfg.Data.RootID),
	}
}

func runInit(path string) error {
	cfg, err := config.LoadFrom(path)
	if err != nil {
		cfg = config.DefaultConfig()
	}
	cfg, err = config.NewWizard(cfg, os.Stdout).Run()
	if err != nil {
		return err
	}
	if err := config.SaveTo(cfg, path); err != nil {
		return err
	}
	fmt.Printf("Config written to %s\n", path)
	return nil
}

func runTUI(nodes []model.Node, src datasource.DataSource, cfg config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reload := func() ([]model.Node, error) {
		n, _, err := datasource.Load(src.Path)
		return n, err
	}

	theme := ui.DefaultTheme(lipgloss.DefaultRenderer())
	opts := ui.Options{
		Theme:       &theme,
		Folding:     cfg.FoldingEnabled(),
		RootID:      cfg.Data.RootID,
		ShowNotes:   cfg.UI.ShowNotes,
		DetailWidth: cfg.UI.DetailWidth,
		SourceName:  filepath.Base(src.Path),
		Reload:      reload,
		Clipboard:   clipboard.WriteAll,
	}

	if cfg.WatchEnabled() {
		w, err := watcher.NewWatcher([]string{src.Path},
			watcher.WithDebounceDuration(cfg.Debounce()),
			watcher.WithForcePoll(cfg.Watch.ForcePoll),
		)
		if err == nil {
			if err := w.Start(ctx); err == nil {
				defer w.Stop()
				opts.Watcher = w
			} else {
				fmt.Fprintf(os.Stderr, "Warning: live reload disabled: %v\n", err)
			}
		}
	}

	return runTUIProgram(ui.NewFolderView(nodes, opts))
}

func runTUIProgram(m tea.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set FOLD_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("FOLD_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}
				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
