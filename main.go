// strsync keeps the localized strings.xml files of an Android project in
// step with the default values/strings.xml.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/minios-linux/strsync/config"
	"github.com/minios-linux/strsync/i18n"
	"github.com/minios-linux/strsync/journal"
	"github.com/minios-linux/strsync/resource"
	"github.com/minios-linux/strsync/workspace"
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

type globalFlags struct {
	rootDir string
	verbose bool
	dryRun  bool
}

var flags globalFlags

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&g.rootDir, "root", ".", i18n.T("Project root directory"))
	fs.BoolVarP(&g.verbose, "verbose", "v", false, i18n.T("Print diagnostic output"))
	fs.BoolVar(&g.dryRun, "dry-run", false, i18n.T("Print the resulting XML instead of writing files"))
}

// newLogger builds the diagnostic logger: debug level with --verbose,
// warnings only otherwise.
func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	flags = globalFlags{}

	root := &cobra.Command{
		Use:   "strsync",
		Short: i18n.T("Synchronize Android strings.xml translations"),
		Long: i18n.T(`strsync keeps localized Android resources in step with the default ones.

For every res/values-XX/strings.xml it copies the entries missing from
res/values/strings.xml, marking each copy as {tag}:[{value}] so translators
can find it, and reorders the file to follow the default document.

Commands:
  add-missing  Copy missing entries into one strings file
  sort         Reorder one localized strings file
  sync         Add missing entries and sort every localized file
  status       Show missing and untranslated entries per language
  undo         Revert the last run`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags.register(root.PersistentFlags())

	root.AddCommand(
		newAddMissingCmd(),
		newSortCmd(),
		newSyncCmd(),
		newStatusCmd(),
		newUndoCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logError("%v", err)
		stop()
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Long:  i18n.T(`Display version, commit hash, and build date.`),
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "strsync version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// Project
// ---------------------------------------------------------------------------

// project is the resolved state every command works on.
type project struct {
	root    string
	cfg     *config.Config
	journal *journal.Journal
	log     zerolog.Logger
}

func openProject() (*project, error) {
	root, err := filepath.Abs(flags.rootDir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	p := &project{
		root: root,
		cfg:  cfg,
		log:  newLogger(os.Stderr, flags.verbose),
	}
	if !flags.dryRun {
		if p.journal, err = journal.Load(cfg.JournalPath(root)); err != nil {
			return nil, err
		}
	}
	p.log.Debug().Str("root", root).Strs("res_dirs", cfg.ResDirs).Msg("project loaded")
	return p, nil
}

func (p *project) bind(f *workspace.Family) *workspace.Family {
	f.Journal = p.journal
	f.Log = p.log
	return f
}

// family loads the family of a single strings file.
func (p *project) family(ctx context.Context, path string) (*workspace.Family, error) {
	f, err := workspace.Load(ctx, path, p.cfg)
	if err != nil {
		return nil, err
	}
	return p.bind(f), nil
}

// families loads every family of the project.
func (p *project) families(ctx context.Context) ([]*workspace.Family, error) {
	located, err := p.cfg.Families(p.root)
	if err != nil {
		return nil, err
	}
	out := make([]*workspace.Family, 0, len(located))
	for _, fam := range located {
		f, err := workspace.LoadFamily(ctx, fam, p.cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, p.bind(f))
	}
	return out, nil
}

// report prints the outcome of one operation.
func (p *project) report(out io.Writer, f *workspace.Family, written []string) {
	if flags.dryRun {
		for _, d := range f.Changed() {
			fmt.Fprintf(out, "==> %s <==\n", p.rel(d.Path()))
			out.Write(d.Marshal())
		}
		return
	}
	for _, path := range written {
		logSuccess(i18n.T("Updated %s"), p.rel(path))
	}
}

func (p *project) rel(path string) string {
	if r, err := filepath.Rel(p.root, path); err == nil && !strings.HasPrefix(r, "..") {
		return r
	}
	return path
}

// ---------------------------------------------------------------------------
// add-missing / sort (single document)
// ---------------------------------------------------------------------------

func newAddMissingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-missing <strings.xml>",
		Short: i18n.T("Copy missing entries into a strings file"),
		Long: i18n.T(`Copy the entries a strings file lacks.

For a localized file (values-XX/strings.xml) the entries come from the
default values/strings.xml and are marked with the file's tag. For the
default file they come from every localized sibling and are marked with
the default tag.`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocument(cmd, args[0], (*workspace.Family).AddMissing)
		},
	}
}

func newSortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sort <strings.xml>",
		Short: i18n.T("Reorder a localized strings file like the default one"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocument(cmd, args[0], (*workspace.Family).Sort)
		},
	}
}

func runDocument(cmd *cobra.Command, path string, op func(*workspace.Family, string) ([]string, error)) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	if path, err = filepath.Abs(path); err != nil {
		return err
	}
	f, err := p.family(cmd.Context(), path)
	if err != nil {
		return describeLocateError(path, err)
	}
	written, err := op(f, path)
	if err != nil {
		return err
	}
	if !flags.dryRun && len(written) == 0 {
		logInfo(i18n.T("%s is already up to date"), p.rel(path))
	}
	p.report(cmd.OutOrStdout(), f, written)
	return nil
}

func describeLocateError(path string, err error) error {
	switch {
	case errors.Is(err, config.ErrNotStrings):
		return fmt.Errorf(i18n.T("%s is not a strings file inside a values directory"), path)
	case errors.Is(err, config.ErrNoDefault):
		return fmt.Errorf(i18n.T("%s has no default values/ counterpart"), path)
	}
	return err
}

// ---------------------------------------------------------------------------
// sync (every family)
// ---------------------------------------------------------------------------

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: i18n.T("Add missing entries and sort every localized file"),
		Long: i18n.T(`Add missing entries to every localized strings file of the project and
reorder it to follow the default file. Each res/ directory is committed as
one undoable run.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd)
		},
	}
}

func runSync(cmd *cobra.Command) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	fams, err := p.families(cmd.Context())
	if err != nil {
		return err
	}
	if len(fams) == 0 {
		logWarning(i18n.T("No res/values/%s found under %s"), p.cfg.FileName, p.root)
		return nil
	}

	total := 0
	for _, f := range fams {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		written, err := f.SyncAll()
		if err != nil {
			return err
		}
		total += len(written)
		p.report(cmd.OutOrStdout(), f, written)
	}
	if !flags.dryRun {
		if total == 0 {
			logInfo("%s", i18n.T("All strings files are up to date"))
		} else {
			logSuccess(i18n.N("%d file updated", "%d files updated", total), total)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// status (read-only)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: i18n.T("Show missing and untranslated entries per language"),
		Long: i18n.T(`Show, for every localized strings file, how many default entries it lacks
and how many copied entries still carry their {tag}:[ marker. Does not
modify any files.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}
}

func runStatus(cmd *cobra.Command) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	fams, err := p.families(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(fams) == 0 {
		logWarning(i18n.T("No res/values/%s found under %s"), p.cfg.FileName, p.root)
		return nil
	}

	for _, f := range fams {
		total := len(resource.Keys(f.Default))
		fmt.Fprintf(out, "\n%s%s%s  %s\n", colorBlue, p.rel(f.Default.Path()), colorReset,
			fmt.Sprintf(i18n.N("%d entry", "%d entries", total), total))
		fmt.Fprintln(out, strings.Repeat("─", 60))
		if len(f.Localized) == 0 {
			fmt.Fprintf(out, "  %s\n", i18n.T("no localized files"))
			continue
		}
		fmt.Fprintf(out, "%-10s %-16s %-9s %-9s %s\n", i18n.T("Tag"), i18n.T("Language"), i18n.T("Missing"), i18n.T("Untrans."), i18n.T("Done"))
		for _, s := range f.Status() {
			done := 100
			if total > 0 {
				done = (total - s.Missing - s.Untranslated) * 100 / total
			}
			fmt.Fprintf(out, "%-10s %-16s %-9d %-9d %s\n", s.Tag, truncate(config.DisplayName(s.Tag), 16),
				s.Missing, s.Untranslated, progressBar(done, 20))
		}
	}
	fmt.Fprintln(out)
	return nil
}

// progressBar renders a colored bar followed by the percentage.
func progressBar(percent, width int) string {
	percent = max(0, min(percent, 100))
	filled := percent * width / 100

	color := colorRed
	switch {
	case percent >= 90:
		color = colorGreen
	case percent >= 50:
		color = colorYellow
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s%s%s %3d%%", color, bar, colorReset, percent)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// ---------------------------------------------------------------------------
// undo
// ---------------------------------------------------------------------------

func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: i18n.T("Revert the last run"),
		Long: i18n.T(`Restore the files written by the last recorded run. Refuses when any of
them was modified afterwards.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUndo()
		},
	}
}

func runUndo() error {
	if flags.dryRun {
		return errors.New(i18n.T("undo does not support --dry-run"))
	}
	p, err := openProject()
	if err != nil {
		return err
	}
	rec, err := p.journal.Undo()
	switch {
	case errors.Is(err, journal.ErrEmpty):
		logInfo("%s", i18n.T("Nothing to undo"))
		return nil
	case errors.Is(err, journal.ErrModified):
		return fmt.Errorf(i18n.T("cannot undo: %w"), err)
	case err != nil:
		return err
	}
	for _, f := range rec.Files {
		logSuccess(i18n.T("Restored %s"), p.rel(f.Path))
	}
	logInfo(i18n.T("Reverted %s from %s"), rec.Action, rec.Time.Local().Format(time.DateTime))
	return nil
}
