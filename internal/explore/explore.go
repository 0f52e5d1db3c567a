// Package explore is the interactive shell for probing a taxonomy:
// type a label, see where it would land under the current threshold.
package explore

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/rangefold/lasso/internal/taxonomy"
)

// Session is one interactive exploration of a loaded taxonomy.
type Session struct {
	doc         *taxonomy.Document
	threshold   int
	scorer      taxonomy.Scorer
	historyFile string
	rl          *readline.Instance
	commands    map[string]commandHandler
}

type commandHandler func(args []string) error

// Config holds session configuration.
type Config struct {
	// Document is the taxonomy to explore. Required.
	Document *taxonomy.Document
	// Threshold is the merge threshold to start with.
	Threshold int
	// Scorer scores candidate labels; nil means the default scorer.
	Scorer taxonomy.Scorer
	// HistoryFile persists readline history; empty keeps it in memory.
	HistoryFile string
}

// Match is one canonical label scored against an input.
type Match struct {
	Canonical string
	Norm      string
	Score     int
}

// Rank scores the input against every canonical label and returns all
// matches, best first. Ties keep document order, which already ranks
// by frequency.
func Rank(doc *taxonomy.Document, scorer taxonomy.Scorer, input string) []Match {
	norm := taxonomy.Normalize(input)
	matches := make([]Match, 0, len(doc.Items))
	for _, item := range doc.Items {
		matches = append(matches, Match{
			Canonical: item.Canonical,
			Norm:      item.CanonicalNorm,
			Score:     scorer.Score(norm, item.CanonicalNorm),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches
}

// New creates a session over doc.
func New(cfg *Config) (*Session, error) {
	if cfg.Document == nil {
		return nil, fmt.Errorf("a taxonomy document is required")
	}
	scorer := cfg.Scorer
	if scorer == nil {
		var err error
		scorer, err = taxonomy.NewScorer("")
		if err != nil {
			return nil, err
		}
	}
	s := &Session{
		doc:         cfg.Document,
		threshold:   cfg.Threshold,
		scorer:      scorer,
		historyFile: cfg.HistoryFile,
		commands:    make(map[string]commandHandler),
	}
	s.registerCommands()
	return s, nil
}

// Run starts the interactive loop and blocks until the user exits.
func (s *Session) Run() error {
	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("lasso> "),
		HistoryFile:       s.historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	s.rl = rl

	s.printWelcome()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			} else if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := s.processInput(line); err != nil {
			if err == io.EOF {
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("Error:"), err)
		}
	}
}

// processInput dispatches one line: colon-prefixed words are commands,
// everything else is a candidate label to score.
func (s *Session) processInput(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	if handler, ok := s.commands[parts[0]]; ok {
		return handler(parts[1:])
	}
	if strings.HasPrefix(parts[0], ":") {
		return fmt.Errorf("unknown command %q, try :help", parts[0])
	}
	return s.scoreInput(line)
}

func (s *Session) registerCommands() {
	s.commands[":help"] = s.cmdHelp
	s.commands["?"] = s.cmdHelp
	s.commands[":list"] = s.cmdList
	s.commands[":threshold"] = s.cmdThreshold
	s.commands[":scorer"] = s.cmdScorer
	s.commands[":exit"] = s.cmdExit
	s.commands[":quit"] = s.cmdExit
	s.commands["exit"] = s.cmdExit
	s.commands["quit"] = s.cmdExit
}

func (s *Session) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("\n%s\n", cyan("Lasso taxonomy explorer"))
	fmt.Printf("%d canonical labels loaded, threshold %d, scorer %s\n",
		len(s.doc.Items), s.threshold, s.scorer.Name())
	fmt.Println()
	fmt.Println("Type a label to see where it would land, ':help' for commands")
	fmt.Println()
}

// scoreInput scores a free-text label against the loaded taxonomy and
// prints the closest canonicals plus the merge verdict.
func (s *Session) scoreInput(line string) error {
	norm := taxonomy.Normalize(line)
	if norm == "" {
		return fmt.Errorf("label is empty after normalization")
	}
	if len(s.doc.Items) == 0 {
		fmt.Println("The taxonomy has no items yet; every label would be new.")
		return nil
	}

	matches := Rank(s.doc, s.scorer, line)
	top := matches
	if len(top) > 5 {
		top = top[:5]
	}

	fmt.Printf("normalized: %q\n", norm)
	for i, m := range top {
		score := fmt.Sprintf("%3d", m.Score)
		switch {
		case m.Score >= s.threshold:
			score = color.New(color.FgGreen).Sprint(score)
		case m.Score >= s.threshold-10:
			score = color.New(color.FgYellow).Sprint(score)
		default:
			score = color.New(color.FgRed).Sprint(score)
		}
		fmt.Printf("  %d. %s  %s\n", i+1, score, m.Canonical)
	}

	best := matches[0]
	if best.Score >= s.threshold {
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s would merge into %q (score %d >= threshold %d)\n",
			green("→"), best.Canonical, best.Score, s.threshold)
	} else {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("%s would become a new canonical label (best score %d < threshold %d)\n",
			yellow("→"), best.Score, s.threshold)
	}
	return nil
}

func (s *Session) cmdThreshold(args []string) error {
	if len(args) == 0 {
		fmt.Printf("threshold is %d\n", s.threshold)
		return nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("threshold must be an integer, got %q", args[0])
	}
	if n < 0 || n > 100 {
		return fmt.Errorf("threshold must be between 0 and 100, got %d", n)
	}
	s.threshold = n
	fmt.Printf("threshold set to %d\n", n)
	return nil
}

func (s *Session) cmdScorer(args []string) error {
	if len(args) == 0 {
		fmt.Printf("scorer is %s (available: %s, %s)\n",
			s.scorer.Name(), taxonomy.ScorerJaroWinkler, taxonomy.ScorerTokenSort)
		return nil
	}
	scorer, err := taxonomy.NewScorer(args[0])
	if err != nil {
		return err
	}
	s.scorer = scorer
	fmt.Printf("scorer set to %s\n", scorer.Name())
	return nil
}

func (s *Session) cmdList(args []string) error {
	if len(s.doc.Items) == 0 {
		fmt.Println("The taxonomy has no items.")
		return nil
	}
	green := color.New(color.FgGreen).SprintFunc()
	for _, item := range s.doc.Items {
		fmt.Printf("%s (count %d, %d aliases)\n", green(item.Canonical), item.Metrics.Count, len(item.Aliases))
		for _, alias := range item.Aliases {
			fmt.Printf("    %s\n", alias)
		}
	}
	return nil
}

func (s *Session) cmdHelp(args []string) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("\n%s\n", cyan("Commands:"))
	fmt.Println()
	commands := []struct {
		name string
		desc string
	}{
		{":list", "Show every canonical label with its aliases"},
		{":threshold [n]", "Show or set the merge threshold"},
		{":scorer [name]", "Show or switch the similarity scorer"},
		{":help, ?", "Show this help message"},
		{":quit, :exit", "Leave the explorer"},
	}
	for _, cmd := range commands {
		fmt.Printf("  %-16s %s\n", cmd.name, cmd.desc)
	}
	fmt.Println()
	fmt.Println("Anything else is scored as a candidate label:")
	fmt.Println("  wrong error code")
	fmt.Println("  payment was declined")
	fmt.Println()
	return nil
}

func (s *Session) cmdExit(args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("\n%s Goodbye!\n", green("✓"))
	if s.rl != nil {
		s.rl.Close()
	}
	return io.EOF
}
