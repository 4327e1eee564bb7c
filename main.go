// clokit — Class Localization Kit: extracts, translates, and writes back
// string constants in Java class files and jars without touching bytecode.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"clokit/charsetcheck"
	"clokit/classify"
	"clokit/config"
	"clokit/i18n"
	"clokit/memory"
	"clokit/project"
	"clokit/settings"
	"clokit/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir     string
	projectFlag string
)

// loadConfig reads clokit.yaml from the root directory, honoring the
// --project override.
func loadConfig() (*config.File, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}
	if projectFlag != "" {
		cfg.ProjectFile = projectFlag
	}
	return cfg, nil
}

func projectPath(cfg *config.File) string {
	if filepath.IsAbs(cfg.ProjectFile) {
		return cfg.ProjectFile
	}
	return filepath.Join(rootDir, cfg.ProjectFile)
}

// loadProject reads the project file, translating the most common failure
// into an actionable message.
func loadProject(cfg *config.File) (*project.Project, string, error) {
	path := projectPath(cfg)
	proj, err := project.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, path, errors.New(i18n.T("No project file found. Run 'clokit extract' first."))
		}
		return nil, path, err
	}
	return proj, path, nil
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clokit",
		Short: "Class Localization Kit: translate string constants in Java class files",
		Long: `clokit — Class Localization Kit.

Extracts string constants from Java class files and jar archives, classifies
them as translatable UI text or structural bytecode names, translates the UI
text with an AI or machine-translation engine, and writes the translations
back while keeping every other byte of the files identical.

Typical workflow:
  clokit extract lib/app.jar        # build the project file
  clokit review                     # resolve ambiguous entries (optional)
  clokit translate --lang ko        # machine-translate pending entries
  clokit status                     # inspect progress
  clokit apply                      # rewrite the class files (keeps .bak)

Engines:
  google-light   Direct Google Translate endpoint — API key
  openai         OpenAI-compatible chat completions — API key, --base-url`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flags — inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().StringVarP(&projectFlag, "project", "f", "", "Project file path (default from clokit.yaml)")

	root.AddCommand(
		newExtractCmd(),
		newStatusCmd(),
		newReviewCmd(),
		newTranslateCmd(),
		newApplyCmd(),
		newValidateCmd(),
		newDiffCmd(),
		newAuthCmd(),
		newEnginesCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("clokit version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// extract (build the project file from class files and jars)
// ---------------------------------------------------------------------------

func newExtractCmd() *cobra.Command {
	var (
		include []string
		lang    string
		charset string
		output  string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "extract [paths...]",
		Short: "Extract string constants into a project file",
		Long: `Extract string constants from class files and jar archives.

Paths may be individual .class/.jar files or directories (scanned
recursively, filtered by --include globs). The result is a project file
recording every candidate string with its classification, plus a content
hash of each source file so that later edits are detected before apply.

Examples:
  clokit extract build/classes
  clokit extract lib/app.jar --lang ko --charset EUC-KR
  clokit extract . --include "com/example/**/*.class"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{rootDir}
			}
			if len(include) == 0 {
				include = cfg.Include
			}
			if lang == "" {
				lang = cfg.TargetLang
			}
			if charset == "" {
				charset = cfg.TargetCharset
			}
			path := projectPath(cfg)
			if output != "" {
				path = output
			}
			if !force && fileExists(path) {
				return fmt.Errorf("%s already exists (use --force to rebuild and lose existing translations)", path)
			}
			return runExtract(args, include, lang, charset, path)
		},
	}

	cmd.Flags().StringSliceVar(&include, "include", nil, "Glob patterns for files under directory arguments")
	cmd.Flags().StringVar(&lang, "lang", "", "Target language code (stored in the project)")
	cmd.Flags().StringVar(&charset, "charset", "", "Target runtime charset for validation (e.g. GBK, EUC-KR)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Project file to write")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing project file")

	return cmd
}

func runExtract(paths, include []string, lang, charset, out string) error {
	logInfo("%s", i18n.T("Extracting strings from class files..."))
	proj, err := project.Extract(paths, project.ExtractOptions{
		Include:       include,
		TargetLang:    lang,
		TargetCharset: charset,
		OnLog:         logInfo,
		OnError:       logWarning,
	})
	if err != nil {
		return err
	}
	if err := proj.Save(out); err != nil {
		return err
	}

	s := proj.Stats()
	logSuccess(i18n.N("Found %d entry", "Found %d entries", s.Entries)+" in %d files", s.Entries, s.Files)
	logInfo("translatable: %d, structural: %d, ambiguous: %d", s.Translatable, s.Structural, s.Ambiguous)
	if s.CharsetRisk > 0 {
		logWarning("%d entries contain characters outside %s", s.CharsetRisk, charset)
	}
	if s.Ambiguous > 0 {
		logInfo("run 'clokit review' to resolve ambiguous entries")
	}
	logSuccess("project written to %s", out)
	return nil
}

// ---------------------------------------------------------------------------
// status (read-only: project stats)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	var (
		verbose bool
		filter  string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show project statistics",
		Long: `Show per-classification and per-status counts for the project.

Does not modify any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			proj, path, err := loadProject(cfg)
			if err != nil {
				return err
			}
			runStatus(proj, path, verbose, filter)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List pending and failed entries")
	cmd.Flags().StringVar(&filter, "filter", "", "With -v, only list entries whose key contains this substring")
	return cmd
}

func runStatus(proj *project.Project, path string, verbose bool, filter string) {
	s := proj.Stats()

	fmt.Printf("Project:  %s\n", path)
	if proj.TargetLang != "" {
		fmt.Printf("Target:   %s", proj.TargetLang)
		if proj.TargetCharset != "" {
			fmt.Printf(" (%s)", proj.TargetCharset)
		}
		fmt.Println()
	}
	fmt.Println()
	fmt.Printf("  Files:         %d\n", s.Files)
	fmt.Printf("  Entries:       %d\n", s.Entries)
	fmt.Printf("  Translatable:  %d\n", s.Translatable)
	fmt.Printf("  Structural:    %d\n", s.Structural)
	fmt.Printf("  Ambiguous:     %d\n", s.Ambiguous)
	fmt.Println()
	fmt.Printf("  Done:          %s\n", progressCell(s.Done, s.Translatable))
	fmt.Printf("  Failed:        %d\n", s.Failed)
	if s.CharsetRisk > 0 {
		fmt.Printf("  Charset risk:  %d\n", s.CharsetRisk)
	}

	if verbose {
		for _, e := range matchKeys(proj.Entries, filter) {
			if e.Classification != classify.Translatable || e.Status == project.StatusDone {
				continue
			}
			fmt.Printf("  %-9s %s: %q\n", e.Status, e.Key(), e.Original)
		}
	}

	// Suggested next step.
	switch {
	case s.Ambiguous > 0:
		fmt.Println("\nNext: clokit review")
	case s.Done < s.Translatable:
		fmt.Println("\nNext: clokit translate")
	case s.Done > 0:
		fmt.Println("\nNext: clokit apply")
	}
}

// progressCell renders "done/total (percent%)" with a color cue.
func progressCell(done, total int) string {
	p := percent(done, total)
	color := colorRed
	switch {
	case p >= 100:
		color = colorGreen
	case p >= 50:
		color = colorYellow
	}
	return fmt.Sprintf("%s%d/%d (%d%%)%s", color, done, total, p, colorReset)
}

// percent clamps to 0..100; an empty total counts as complete.
func percent(n, total int) int {
	if total <= 0 {
		return 100
	}
	p := n * 100 / total
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// ---------------------------------------------------------------------------
// review (interactive classification of ambiguous entries)
// ---------------------------------------------------------------------------

func newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Resolve ambiguous entries interactively",
		Long: `Step through entries the classifier could not decide on and mark each
as translatable or structural. Progress is saved when the review ends.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			proj, path, err := loadProject(cfg)
			if err != nil {
				return err
			}
			return runReview(proj, path)
		},
	}
	return cmd
}

func runReview(proj *project.Project, path string) error {
	pending := proj.Ambiguous()
	if len(pending) == 0 {
		logSuccess("no ambiguous entries")
		return nil
	}
	logInfo("%d ambiguous entries to review", len(pending))

	const (
		optTranslatable = "translatable (UI text)"
		optStructural   = "structural (bytecode name)"
		optSkip         = "skip"
		optQuit         = "quit and save"
	)

	reviewed := 0
	for i, e := range pending {
		var choice string
		prompt := &survey.Select{
			Message: fmt.Sprintf("[%d/%d] %s\n  %q", i+1, len(pending), e.Key(), e.Original),
			Options: []string{optTranslatable, optStructural, optSkip, optQuit},
		}
		if err := survey.AskOne(prompt, &choice); err != nil {
			// Ctrl-C inside survey: save what we have.
			break
		}

		switch choice {
		case optTranslatable:
			e.Classification = classify.Translatable
			e.Status = project.StatusPending
			reviewed++
		case optStructural:
			e.Classification = classify.Structural
			reviewed++
		case optSkip:
			continue
		case optQuit:
			goto done
		}
	}
done:
	if err := proj.Save(path); err != nil {
		return err
	}
	logSuccess("reviewed %d entries, %d still ambiguous", reviewed, len(proj.Ambiguous()))
	return nil
}

// ---------------------------------------------------------------------------
// translate (batch-translate pending entries)
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		engineName string
		apiKey     string
		model      string
		baseURL    string
		srcLang    string
		dstLang    string

		concurrency int
		maxRetries  int
		rps         float64
		proxy       string
		timeout     time.Duration
		noMemory    bool
		retryFailed bool
	)

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate pending entries using a translation engine",
		Long: `Translate every pending translatable entry in the project.

Entries are dispatched concurrently under a hard ceiling, retried with
backoff on errors, and looked up in the persistent translation memory
before any network call. Interrupting with Ctrl-C stops new dispatch,
lets in-flight requests finish, and saves all completed work.

Examples:
  clokit translate --lang ko
  clokit translate --engine openai --model gpt-4o --lang zh-CN
  clokit translate --lang ko -j 8 --rps 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if engineName == "" {
				engineName = cfg.Engine
			}
			if model == "" {
				model = cfg.Model
			}
			if proxy == "" {
				proxy = cfg.Proxy
			}
			if srcLang == "" {
				srcLang = cfg.SourceLang
			}
			if !cmd.Flags().Changed("concurrency") && cfg.Concurrency > 0 {
				concurrency = cfg.Concurrency
			}
			if !cmd.Flags().Changed("max-retries") && cfg.MaxRetries > 0 {
				maxRetries = cfg.MaxRetries
			}
			if !cmd.Flags().Changed("rps") && cfg.RequestsPerSecond > 0 {
				rps = cfg.RequestsPerSecond
			}
			return runTranslate(cfg, translateArgs{
				engine: engineName, apiKey: apiKey, model: model,
				baseURL: baseURL, srcLang: srcLang, dstLang: dstLang,
				concurrency: concurrency, maxRetries: maxRetries,
				rps: rps, proxy: proxy, timeout: timeout, noMemory: noMemory,
				retryFailed: retryFailed,
			})
		},
	}

	cmd.Flags().StringVar(&engineName, "engine", "", "Translation engine: google-light, openai")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (or "+settings.EnvAPIKey+" env var)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (openai engine)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Custom API base URL (openai engine)")
	cmd.Flags().StringVar(&srcLang, "source-lang", "", "Source language code (default auto)")
	cmd.Flags().StringVar(&dstLang, "lang", "", "Target language code (default from project)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 3, "Maximum concurrent engine calls")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 3, "Retries per entry before marking it failed")
	cmd.Flags().Float64Var(&rps, "rps", 0, "Requests per second limit (0 = unlimited)")
	cmd.Flags().StringVar(&proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-request timeout (0 = engine default)")
	cmd.Flags().BoolVar(&noMemory, "no-memory", false, "Skip the persistent translation memory")
	cmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "Reset failed entries to pending before translating")

	_ = cmd.RegisterFlagCompletionFunc("engine", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"google-light\tDirect Google Translate endpoint",
			"openai\tOpenAI-compatible chat completions",
		}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

type translateArgs struct {
	engine, apiKey, model, baseURL string
	srcLang, dstLang               string
	concurrency, maxRetries        int
	rps                            float64
	proxy                          string
	timeout                        time.Duration
	noMemory                       bool
	retryFailed                    bool
}

func runTranslate(cfg *config.File, a translateArgs) error {
	proj, path, err := loadProject(cfg)
	if err != nil {
		return err
	}

	dstLang := a.dstLang
	if dstLang == "" {
		dstLang = proj.TargetLang
	}
	if dstLang == "" {
		return errors.New("no target language: pass --lang or set it at extract time")
	}

	eng, err := buildEngine(a)
	if err != nil {
		return err
	}

	if a.retryFailed {
		if n := resetFailed(proj); n > 0 {
			logInfo("%d failed entries reset to pending", n)
		}
	}

	var tm *memory.Store
	if !a.noMemory {
		tmPath, err := settings.MemoryPath()
		if err != nil {
			return err
		}
		tm, err = memory.Open(tmPath)
		if err != nil {
			logWarning("translation memory unavailable: %v", err)
			tm = nil
		} else {
			defer tm.Close()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logWarning("Interrupted, saving progress...")
		cancel()
	}()

	total := len(proj.Translatable())
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(i18n.T("Translating entries...")),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	res, err := translate.Batch(ctx, proj, translate.Options{
		Engine:            eng,
		SourceLang:        a.srcLang,
		TargetLang:        dstLang,
		Concurrency:       a.concurrency,
		MaxRetries:        a.maxRetries,
		RequestsPerSecond: a.rps,
		Memory:            tm,
		OnProgress:        func(done, total int) { _ = bar.Set(done) },
		OnError:           logWarning,
	})
	_ = bar.Finish()
	if err != nil {
		return err
	}

	// Completed work survives failures and interrupts.
	if err := proj.Save(path); err != nil {
		return err
	}

	logSuccess("%d translated (%d from memory), %d failed, %d pending", res.Done, res.FromMemory, res.Failed, res.Undispatched)
	if res.Failed > 0 {
		logInfo("re-run 'clokit translate --retry-failed' to retry failed entries")
	}
	return nil
}

// resetFailed flips failed entries back to pending so the next batch
// picks them up again. Returns the number of entries reset.
func resetFailed(p *project.Project) int {
	n := 0
	for _, e := range p.Entries {
		if e.Status == project.StatusFailed {
			e.Status = project.StatusPending
			n++
		}
	}
	return n
}

// buildEngine constructs the selected engine with resolved credentials and
// registers it for lookup.
func buildEngine(a translateArgs) (translate.Engine, error) {
	key := settings.ResolveAPIKey(a.apiKey, a.engine)

	var eng translate.Engine
	switch a.engine {
	case "google-light", "":
		g := translate.NewGoogleLight(key)
		g.Proxy = a.proxy
		if a.timeout > 0 {
			g.Timeout = a.timeout
		}
		eng = g
	case "openai":
		if key == "" {
			return nil, fmt.Errorf("openai engine requires an API key (flag, %s, or 'clokit auth login')", settings.EnvAPIKey)
		}
		baseURL := a.baseURL
		model := a.model
		if cred := settings.Get("openai"); cred != nil {
			if baseURL == "" {
				baseURL = cred.BaseURL
			}
			if model == "" {
				model = cred.Model
			}
		}
		eng = translate.NewOpenAI(key, baseURL, model)
	default:
		return nil, fmt.Errorf("unknown engine %q (available: google-light, openai)", a.engine)
	}

	// Idempotent across invocations within one process (tests).
	_ = translate.Register(eng)
	return eng, nil
}

// ---------------------------------------------------------------------------
// apply (rewrite source files with translations)
// ---------------------------------------------------------------------------

func newApplyCmd() *cobra.Command {
	var (
		noBackup bool
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Write translations back into the class files",
		Long: `Rewrite every recorded source file, substituting translated text for
done entries. All other bytes are preserved exactly. The first apply to a
file leaves a .bak of the pristine original next to it.

A file whose content changed since extraction is refused and left
untouched; re-run 'clokit extract' to rebuild the project for it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			proj, _, err := loadProject(cfg)
			if err != nil {
				return err
			}
			return runApply(proj, noBackup, dryRun)
		},
	}

	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip .bak files")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Check and rebuild everything but write nothing")
	return cmd
}

func runApply(proj *project.Project, noBackup, dryRun bool) error {
	logInfo("%s", i18n.T("Applying translations..."))
	res := project.Apply(proj, project.ApplyOptions{
		NoBackup: noBackup,
		DryRun:   dryRun,
		OnLog:    logInfo,
	})

	for _, f := range res.Files {
		switch {
		case f.Err != nil:
			var stale *project.StaleSourceError
			if errors.As(f.Err, &stale) {
				logError("%s changed since extraction; re-run 'clokit extract' (file left untouched)", f.Path)
			} else {
				logError("%s: %v", f.Path, f.Err)
			}
		case f.Updated > 0:
			msg := fmt.Sprintf("%s: %d entries", f.Path, f.Updated)
			if f.BackupPath != "" {
				msg += " (backup: " + f.BackupPath + ")"
			}
			logSuccess("%s", msg)
		}
	}

	failed := res.Failed()
	if dryRun {
		logInfo("dry run: %d entries would be written, %d files would fail", res.Updated(), len(failed))
		return nil
	}
	logSuccess("%s: %d entries in %d files", i18n.T("Done"), res.Updated(), len(res.Files)-len(failed))
	if len(failed) > 0 {
		return fmt.Errorf("%d files failed", len(failed))
	}
	return nil
}

// ---------------------------------------------------------------------------
// validate (charset representability check)
// ---------------------------------------------------------------------------

func newValidateCmd() *cobra.Command {
	var charset string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check texts against the target runtime charset",
		Long: `Re-validate every entry against the target charset and report strings
the device would mangle at display time. Checks the translation when one
exists, the original text otherwise. Advisory: nothing is blocked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			proj, path, err := loadProject(cfg)
			if err != nil {
				return err
			}
			if charset == "" {
				charset = proj.TargetCharset
			}
			if charset == "" {
				return errors.New("no charset: pass --charset or set it at extract time")
			}
			return runValidate(proj, path, charset)
		},
	}

	cmd.Flags().StringVar(&charset, "charset", "", "IANA charset name (e.g. GBK, EUC-KR, Shift_JIS)")
	return cmd
}

func runValidate(proj *project.Project, path, charset string) error {
	v, err := charsetcheck.New(charset)
	if err != nil {
		return err
	}

	risky := 0
	for _, e := range proj.Entries {
		text := e.Original
		if e.Translated != "" {
			text = e.Translated
		}
		ok, bad := v.Validate(text)
		e.CharsetValid = ok
		e.Unmappable = string(bad)
		if !ok {
			risky++
			fmt.Printf("  %s: %q — unmappable: %q\n", e.Key(), text, string(bad))
		}
	}

	proj.TargetCharset = charset
	if err := proj.Save(path); err != nil {
		return err
	}
	if risky == 0 {
		logSuccess("all %d entries representable in %s", len(proj.Entries), charset)
	} else {
		logWarning("%d entries contain characters outside %s", risky, charset)
	}
	return nil
}

// ---------------------------------------------------------------------------
// diff (compare two project files)
// ---------------------------------------------------------------------------

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <old-project> <new-project>",
		Short: "Show a unified diff between two project files",
		Long: `Compare two project files (for example a backup against the current
state, or two translation passes) as a unified diff.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(args[0], args[1])
		},
	}
}

func runDiff(oldPath, newPath string) error {
	oldData, err := os.ReadFile(oldPath)
	if err != nil {
		return err
	}
	newData, err := os.ReadFile(newPath)
	if err != nil {
		return err
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(oldData)),
		B:        difflib.SplitLines(string(newData)),
		FromFile: oldPath,
		ToFile:   newPath,
		Context:  3,
	})
	if err != nil {
		return err
	}
	if text == "" {
		logSuccess("projects are identical")
		return nil
	}
	fmt.Print(text)
	return nil
}

// ---------------------------------------------------------------------------
// auth (engine credential management)
// ---------------------------------------------------------------------------

var allEngines = []struct {
	name string
	desc string
}{
	{"google-light", "Direct Google Translate endpoint — API key"},
	{"openai", "OpenAI-compatible chat completions — API key, optional base URL and model"},
}

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage engine credentials",
		Long:  `Store, list, and remove API keys for translation engines.`,
	}
	cmd.AddCommand(newAuthLoginCmd(), newAuthLogoutCmd(), newAuthListCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [engine]",
		Short: "Store an API key for an engine",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runAuthLogin(name)
		},
	}
}

func runAuthLogin(name string) error {
	if name == "" {
		options := make([]string, len(allEngines))
		for i, e := range allEngines {
			options[i] = e.name
		}
		if err := survey.AskOne(&survey.Select{
			Message: "Engine:",
			Options: options,
		}, &name); err != nil {
			return err
		}
	}

	known := false
	for _, e := range allEngines {
		if e.name == name {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown engine %q", name)
	}

	var key string
	if err := survey.AskOne(&survey.Password{Message: "API key:"}, &key, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	cred := &settings.Credential{Key: key}
	if name == "openai" {
		if err := survey.AskOne(&survey.Input{
			Message: "Base URL (empty for api.openai.com):",
		}, &cred.BaseURL); err != nil {
			return err
		}
		if err := survey.AskOne(&survey.Input{
			Message: "Model (empty for default):",
		}, &cred.Model); err != nil {
			return err
		}
	}

	if err := settings.Set(name, cred); err != nil {
		return err
	}
	logSuccess("credentials for %s saved to %s", name, settings.FilePath())
	return nil
}

func newAuthLogoutCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "logout [engine]",
		Short: "Remove stored credentials",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if err := settings.RemoveAll(); err != nil {
					return err
				}
				logSuccess("all credentials removed")
				return nil
			}
			if len(args) != 1 {
				return errors.New("pass an engine name or --all")
			}
			if err := settings.Remove(args[0]); err != nil {
				return err
			}
			logSuccess("credentials for %s removed", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove credentials for all engines")
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored credentials (masked)",
		Run: func(cmd *cobra.Command, args []string) {
			store := settings.Load()
			if len(store) == 0 {
				logInfo("no stored credentials (%s)", settings.FilePath())
				return
			}
			names := make([]string, 0, len(store))
			for n := range store {
				names = append(names, n)
			}
			sort.Strings(names)
			for _, n := range names {
				cred := store[n]
				line := fmt.Sprintf("  %-14s %s", n, settings.MaskKey(cred.Key))
				if cred.BaseURL != "" {
					line += "  " + cred.BaseURL
				}
				if cred.Model != "" {
					line += "  (" + cred.Model + ")"
				}
				fmt.Println(line)
			}
		},
	}
}

// ---------------------------------------------------------------------------
// engines (list available translation engines)
// ---------------------------------------------------------------------------

func newEnginesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List available translation engines",
		Run: func(cmd *cobra.Command, args []string) {
			for _, e := range allEngines {
				marker := " "
				if settings.Get(e.name) != nil {
					marker = "*"
				}
				fmt.Printf("%s %-14s %s\n", marker, e.name, e.desc)
			}
			fmt.Println("\n* = stored credentials")
		},
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// matchKeys filters entries to those whose key contains the needle; used
// by status -v on large projects.
func matchKeys(entries []*project.StringEntry, needle string) []*project.StringEntry {
	if needle == "" {
		return entries
	}
	var out []*project.StringEntry
	for _, e := range entries {
		if strings.Contains(e.Key(), needle) {
			out = append(out, e)
		}
	}
	return out
}
