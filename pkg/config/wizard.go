package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// Wizard walks the user through writing config.yaml (fold --init).
type Wizard struct {
	cfg Config
	out io.Writer
}

// NewWizard starts from an existing config so re-running edits it in place.
func NewWizard(cfg Config, out io.Writer) *Wizard {
	if out == nil {
		out = os.Stdout
	}
	return &Wizard{cfg: cfg, out: out}
}

// wizardAnswers mirrors the form fields. Inputs are strings, huh binds them.
type wizardAnswers struct {
	DataPath   string
	RootID     string
	Folding    bool
	ShowNotes  bool
	Watch      bool
	ForcePoll  bool
	DebounceMS string
}

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// Run asks the questions and returns the resulting config. The caller saves it.
func (w *Wizard) Run() (Config, error) {
	w.printBanner()

	a := answersFrom(w.cfg)
	form := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Hierarchy file or directory").
				Description("JSON, JSONL, YAML or SQLite; empty searches the working directory").
				Value(&a.DataPath).
				Validate(validateDataPath),
			huh.NewInput().
				Title("Root id").
				Description("Parent id of top-level nodes; usually empty").
				Value(&a.RootID),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable folding?").
				Description("Branches can be collapsed to hide their descendants").
				Value(&a.Folding),
			huh.NewConfirm().
				Title("Show notes pane on start?").
				Value(&a.ShowNotes),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Reload when the data file changes?").
				Value(&a.Watch),
			huh.NewConfirm().
				Title("Force polling?").
				Description("Use on network or container filesystems where change events are unreliable").
				Value(&a.ForcePoll),
			huh.NewInput().
				Title("Debounce (ms)").
				Value(&a.DebounceMS).
				Validate(validateDebounce),
		),
	)

	if err := form.Run(); err != nil {
		return w.cfg, err
	}

	cfg, err := a.apply(w.cfg)
	if err != nil {
		return w.cfg, err
	}
	w.cfg = cfg
	return cfg, nil
}

func (w *Wizard) printBanner() {
	fmt.Fprintln(w.out, "")
	fmt.Fprintln(w.out, "fold setup")
	fmt.Fprintln(w.out, "──────────")
	fmt.Fprintf(w.out, "Settings are written to %s\n", ConfigPath())
	fmt.Fprintln(w.out, "Press Ctrl+C anytime to cancel")
	fmt.Fprintln(w.out, "")
}

func answersFrom(cfg Config) wizardAnswers {
	return wizardAnswers{
		DataPath:   cfg.Data.Path,
		RootID:     cfg.Data.RootID,
		Folding:    cfg.FoldingEnabled(),
		ShowNotes:  cfg.UI.ShowNotes,
		Watch:      cfg.WatchEnabled(),
		ForcePoll:  cfg.Watch.ForcePoll,
		DebounceMS: strconv.Itoa(int(cfg.Debounce().Milliseconds())),
	}
}

func (a wizardAnswers) apply(cfg Config) (Config, error) {
	if err := validateDebounce(a.DebounceMS); err != nil {
		return cfg, err
	}
	ms, _ := strconv.Atoi(strings.TrimSpace(a.DebounceMS))

	cfg.Data.Path = expandHome(strings.TrimSpace(a.DataPath))
	cfg.Data.RootID = strings.TrimSpace(a.RootID)
	cfg.UI.FoldingEnabled = BoolPtr(a.Folding)
	cfg.UI.ShowNotes = a.ShowNotes
	cfg.Watch.Enabled = BoolPtr(a.Watch)
	cfg.Watch.ForcePoll = a.ForcePoll
	cfg.Watch.DebounceMS = ms
	return cfg, cfg.Validate()
}

func validateDataPath(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := os.Stat(expandHome(s)); err != nil {
		return fmt.Errorf("cannot open %s", s)
	}
	return nil
}

func validateDebounce(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("debounce is required")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("debounce must be a number of milliseconds")
	}
	if n < 0 {
		return fmt.Errorf("debounce must not be negative")
	}
	return nil
}
