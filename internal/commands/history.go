package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/diogo/sydney/internal/history"
	"github.com/diogo/sydney/internal/transcript"
)

var (
	historyFavoritesFlag bool
	historyRawFlag       bool
	historyForceFlag     bool
	historyContentFlag   bool
	exportFormatFlag     string
	exportOutputFlag     string
	exportSystemFlag     bool
	exportNoSearchesFlag bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage saved chats",
	Long: `View and manage the transcripts saved in the history directory.

` + history.ListAliases(),
}

var historyListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List saved chats",
	Args:    cobra.NoArgs,
	RunE:    runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <ref>",
	Short: "Show a saved chat",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:     "delete <ref>",
	Aliases: []string{"rm"},
	Short:   "Delete a saved chat",
	Args:    cobra.ExactArgs(1),
	RunE:    runHistoryDelete,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all saved chats",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

var historyRenameCmd = &cobra.Command{
	Use:   "rename <ref> <title>",
	Short: "Rename a saved chat",
	Args:  cobra.ExactArgs(2),
	RunE:  runHistoryRename,
}

var historyFavoriteCmd = &cobra.Command{
	Use:     "favorite <ref>",
	Aliases: []string{"fav"},
	Short:   "Toggle the favorite mark of a saved chat",
	Args:    cobra.ExactArgs(1),
	RunE:    runHistoryFavorite,
}

var historyExportCmd = &cobra.Command{
	Use:   "export <ref>",
	Short: "Export a saved chat as markdown, JSON or text",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryExport,
}

var historySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search saved chats by title, or content with --content",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistorySearch,
}

func init() {
	historyListCmd.Flags().BoolVar(&historyFavoritesFlag, "favorites", false, "Only list favorites")
	historyShowCmd.Flags().BoolVar(&historyRawFlag, "raw", false, "Print the transcript file verbatim")
	historyClearCmd.Flags().BoolVarP(&historyForceFlag, "force", "y", false, "Do not ask for confirmation")
	historySearchCmd.Flags().BoolVar(&historyContentFlag, "content", false, "Search turn bodies as well as titles")
	historyExportCmd.Flags().StringVarP(&exportFormatFlag, "format", "F", "markdown", "Output format (markdown, json, text)")
	historyExportCmd.Flags().StringVarP(&exportOutputFlag, "output", "o", "", "Write to a file instead of stdout")
	historyExportCmd.Flags().BoolVar(&exportSystemFlag, "include-system", false, "Keep the system instructions")
	historyExportCmd.Flags().BoolVar(&exportNoSearchesFlag, "no-searches", false, "Drop search queries and results")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyRenameCmd)
	historyCmd.AddCommand(historyFavoriteCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historySearchCmd)
}

// historyStore opens the configured history directory
func historyStore() (*history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openHistory(cfg)
}

// resolveRef opens the store and resolves ref to an ID
func resolveRef(ref string) (*history.Store, string, error) {
	store, err := historyStore()
	if err != nil {
		return nil, "", err
	}
	id, err := history.NewResolver(store).Resolve(ref)
	if err != nil {
		return nil, "", err
	}
	return store, id, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := historyStore()
	if err != nil {
		return err
	}

	entries, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list chats: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(out, "No saved chats.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tID\tTITLE\tTURNS\tUPDATED")
	_, _ = fmt.Fprintln(w, "-\t--\t-----\t-----\t-------")

	for i, e := range entries {
		if historyFavoritesFlag && !e.IsFavorite {
			continue
		}
		title := truncate(e.Title, 40)
		if e.IsFavorite {
			title = "★ " + title
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
			i+1, e.ID, title, e.Turns, history.FormatRelativeTime(e.UpdatedAt))
	}

	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, id, err := resolveRef(args[0])
	if err != nil {
		return err
	}

	text, err := store.Load(id)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if historyRawFlag {
		_, err := io.WriteString(out, text)
		return err
	}

	entry, err := store.Get(id)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "ID: %s\n", entry.ID)
	_, _ = fmt.Fprintf(out, "Title: %s\n", entry.Title)
	_, _ = fmt.Fprintf(out, "File: %s\n", entry.Path)
	_, _ = fmt.Fprintf(out, "Updated: %s\n", entry.UpdatedAt.Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(out, "Turns: %d\n", entry.Turns)
	_, _ = fmt.Fprintln(out)

	for _, t := range transcript.ParseTurns(text) {
		if t.Kind == transcript.KindAdditionalInstructions {
			continue
		}
		_, _ = fmt.Fprintf(out, "%s:\n", turnLabel(t))
		_, _ = fmt.Fprintf(out, "  %s\n\n", truncate(t.Body, 500))
	}

	return nil
}

// turnLabel names a turn for show output
func turnLabel(t transcript.Turn) string {
	switch {
	case t.Role == transcript.RoleUser:
		return "You"
	case t.Kind == transcript.KindMessage:
		return "Sydney"
	case t.Kind == transcript.KindSearchQuery:
		return "Searching"
	case t.Kind == transcript.KindSearchResults:
		return "Search results"
	case t.Kind == transcript.KindSuggestions:
		return "Suggestions"
	case t.Role == "":
		return "Text"
	}
	return transcript.Tag(t.Role, t.Kind)
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	store, id, err := resolveRef(args[0])
	if err != nil {
		return err
	}

	if err := store.Delete(id); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted chat: %s\n", id)
	return nil
}

// promptConfirm is a test hook for replacing the confirmation prompt in tests.
var promptConfirm = defaultPromptConfirm

func defaultPromptConfirm(in io.Reader, out io.Writer, question string) bool {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false
	}

	var confirmed bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	).WithInput(in).WithOutput(out).Run()

	if err != nil {
		return false
	}
	return confirmed
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	store, err := historyStore()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !historyForceFlag && !promptConfirm(cmd.InOrStdin(), out, "Delete all saved chats?") {
		_, _ = fmt.Fprintln(out, "Nothing deleted. Use --force to skip the confirmation.")
		return nil
	}

	if err := store.ClearAll(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	_, _ = fmt.Fprintln(out, "All saved chats deleted.")
	return nil
}

func runHistoryRename(cmd *cobra.Command, args []string) error {
	store, id, err := resolveRef(args[0])
	if err != nil {
		return err
	}

	if err := store.Rename(id, args[1]); err != nil {
		return fmt.Errorf("failed to rename: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to '%s'\n", id, args[1])
	return nil
}

func runHistoryFavorite(cmd *cobra.Command, args []string) error {
	store, id, err := resolveRef(args[0])
	if err != nil {
		return err
	}

	fav, err := store.ToggleFavorite(id)
	if err != nil {
		return fmt.Errorf("failed to toggle favorite: %w", err)
	}

	if fav {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "★ %s marked as favorite\n", id)
	} else {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s is no longer a favorite\n", id)
	}
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, err := history.ParseExportFormat(exportFormatFlag)
	if err != nil {
		return err
	}

	store, id, err := resolveRef(args[0])
	if err != nil {
		return err
	}

	opts := history.DefaultExportOptions()
	opts.Format = format
	opts.IncludeSystem = exportSystemFlag
	opts.IncludeSearches = !exportNoSearchesFlag

	data, err := store.Export(id, opts)
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}

	if exportOutputFlag == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(exportOutputFlag, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOutputFlag, err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", id, exportOutputFlag)
	return nil
}

func runHistorySearch(cmd *cobra.Command, args []string) error {
	store, err := historyStore()
	if err != nil {
		return err
	}

	results, err := store.Search(args[0], historyContentFlag)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		_, _ = fmt.Fprintf(out, "No chats matching '%s'.\n", args[0])
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tMATCH")
	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s: %s\n", r.Entry.ID, truncate(r.Entry.Title, 40), r.MatchField, r.MatchSnippet)
	}
	return w.Flush()
}

// truncate shortens s to maxLen runes, adding an ellipsis
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
