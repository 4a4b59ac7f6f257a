package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/diogo/sydney/internal/config"
)

var (
	personaDescFlag         string
	personaInstructionsFlag string
	personaInstrFileFlag    string
	personaStyleFlag        string
)

var personaCmd = &cobra.Command{
	Use:   "persona",
	Short: "Manage chat personas",
	Long: `View and manage personas, the system instructions a new chat starts with.

The "bing" persona has no instructions and leaves the service's own
personality in place.`,
}

var personaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available personas",
	Args:  cobra.NoArgs,
	RunE:  runPersonaList,
}

var personaShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show persona details",
	Args:  cobra.ExactArgs(1),
	RunE:  runPersonaShow,
}

var personaAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a new persona",
	Long: `Add a new persona.

Without --instructions or --instructions-file an interactive form asks for
the fields.`,
	Args: cobra.ExactArgs(1),
	RunE: runPersonaAdd,
}

var personaEditCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Change the fields of a persona",
	Args:  cobra.ExactArgs(1),
	RunE:  runPersonaEdit,
}

var personaDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a persona",
	Args:    cobra.ExactArgs(1),
	RunE:    runPersonaDelete,
}

var personaSetDefaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Set default persona",
	Args:  cobra.ExactArgs(1),
	RunE:  runPersonaSetDefault,
}

func addPersonaFieldFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&personaDescFlag, "description", "d", "", "Short description")
	cmd.Flags().StringVarP(&personaInstructionsFlag, "instructions", "i", "", "System instructions")
	cmd.Flags().StringVarP(&personaInstrFileFlag, "instructions-file", "I", "", "Read the system instructions from a file")
	cmd.Flags().StringVar(&personaStyleFlag, "style", "", "Preferred conversation style ("+strings.Join(config.AvailableStyles(), ", ")+")")
}

func init() {
	addPersonaFieldFlags(personaAddCmd)
	addPersonaFieldFlags(personaEditCmd)

	personaCmd.AddCommand(personaListCmd)
	personaCmd.AddCommand(personaShowCmd)
	personaCmd.AddCommand(personaAddCmd)
	personaCmd.AddCommand(personaEditCmd)
	personaCmd.AddCommand(personaDeleteCmd)
	personaCmd.AddCommand(personaSetDefaultCmd)
}

func runPersonaList(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadPersonas()
	if err != nil {
		return fmt.Errorf("failed to load personas: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSTYLE\tDESCRIPTION\tDEFAULT")
	_, _ = fmt.Fprintln(w, "----\t-----\t-----------\t-------")

	for _, p := range cfg.Personas {
		isDefault := ""
		if p.Name == cfg.DefaultPersona {
			isDefault = "✓"
		}
		style := p.Style
		if style == "" {
			style = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, style, p.Description, isDefault)
	}

	return w.Flush()
}

func runPersonaShow(cmd *cobra.Command, args []string) error {
	persona, err := config.GetPersona(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Name: %s\n", persona.Name)
	_, _ = fmt.Fprintf(out, "Description: %s\n", persona.Description)
	if persona.Style != "" {
		_, _ = fmt.Fprintf(out, "Preferred Style: %s\n", persona.Style)
	}
	if persona.Instructions == "" {
		_, _ = fmt.Fprintln(out, "\nInstructions: (none)")
		return nil
	}
	_, _ = fmt.Fprintf(out, "\nInstructions:\n%s\n", persona.Instructions)

	return nil
}

// personaFromFlags overlays the field flags that were set onto p
func personaFromFlags(cmd *cobra.Command, p config.Persona) (config.Persona, error) {
	flags := cmd.Flags()
	if flags.Changed("description") {
		p.Description = strings.TrimSpace(personaDescFlag)
	}
	if flags.Changed("style") {
		p.Style = strings.ToLower(strings.TrimSpace(personaStyleFlag))
	}
	switch {
	case flags.Changed("instructions-file"):
		data, err := os.ReadFile(personaInstrFileFlag)
		if err != nil {
			return p, fmt.Errorf("failed to read instructions: %w", err)
		}
		p.Instructions = strings.TrimSpace(string(data))
	case flags.Changed("instructions"):
		p.Instructions = strings.TrimSpace(personaInstructionsFlag)
	}
	return p, nil
}

// runPersonaForm is a test hook for replacing the interactive persona form
var runPersonaForm = defaultRunPersonaForm

func defaultRunPersonaForm(in io.Reader, out io.Writer, p *config.Persona) error {
	styles := append([]string{""}, config.AvailableStyles()...)
	styleOpts := make([]huh.Option[string], len(styles))
	for i, s := range styles {
		label := s
		if s == "" {
			label = "(configured style)"
		}
		styleOpts[i] = huh.NewOption(label, s)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Description").
				CharLimit(config.MaxDescriptionLength).
				Value(&p.Description),
			huh.NewSelect[string]().
				Title("Preferred style").
				Options(styleOpts...).
				Value(&p.Style),
			huh.NewText().
				Title("Instructions").
				Description("Sent before the first message of every new chat").
				CharLimit(config.MaxInstructionLength).
				Value(&p.Instructions),
		),
	).
		WithInput(in).
		WithOutput(out)

	if file, ok := in.(*os.File); !ok || !term.IsTerminal(int(file.Fd())) {
		form = form.WithAccessible(true)
	}

	return form.Run()
}

func runPersonaAdd(cmd *cobra.Command, args []string) error {
	name := args[0]

	if _, err := config.GetPersona(name); err == nil {
		return fmt.Errorf("persona '%s' already exists", name)
	}

	persona, err := personaFromFlags(cmd, config.Persona{Name: name})
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if !flags.Changed("instructions") && !flags.Changed("instructions-file") {
		if err := runPersonaForm(cmd.InOrStdin(), cmd.OutOrStdout(), &persona); err != nil {
			return fmt.Errorf("persona form failed: %w", err)
		}
		persona.Description = strings.TrimSpace(persona.Description)
		persona.Instructions = strings.TrimSpace(persona.Instructions)
	}

	if err := config.ValidatePersona(persona); err != nil {
		return err
	}
	if err := config.AddPersona(persona); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Persona '%s' created.\n", name)
	return nil
}

func runPersonaEdit(cmd *cobra.Command, args []string) error {
	current, err := config.GetPersona(args[0])
	if err != nil {
		return err
	}

	persona, err := personaFromFlags(cmd, *current)
	if err != nil {
		return err
	}
	if persona == *current {
		if err := runPersonaForm(cmd.InOrStdin(), cmd.OutOrStdout(), &persona); err != nil {
			return fmt.Errorf("persona form failed: %w", err)
		}
	}

	if err := config.ValidatePersona(persona); err != nil {
		return err
	}
	if err := config.UpdatePersona(persona); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Persona '%s' updated.\n", persona.Name)
	return nil
}

func runPersonaDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	if err := config.DeletePersona(name); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Persona '%s' deleted.\n", name)
	return nil
}

func runPersonaSetDefault(cmd *cobra.Command, args []string) error {
	name := args[0]

	if err := config.SetDefaultPersona(name); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Default persona set to '%s'.\n", name)
	return nil
}
