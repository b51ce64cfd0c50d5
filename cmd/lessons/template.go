package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/lessons/internal/template"
)

var (
	templateKind     string
	templateOutput   string
	templateForce    bool
	templateTitle    string
	templateDate     string
	templateProject  string
	templatePhase    string
	templatePriority string
	templateTags     []string
)

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateNewCmd)
	templateCmd.AddCommand(templateCheckCmd)
	templateCmd.AddCommand(templateListCmd)

	f := templateNewCmd.Flags()
	f.StringVarP(&templateKind, "type", "t", template.DefinitionLesson, "template definition to use")
	f.StringVarP(&templateOutput, "output", "o", "", "write to file instead of stdout")
	f.BoolVarP(&templateForce, "force", "f", false, "overwrite an existing output file")
	f.StringVar(&templateTitle, "title", "", "lesson title")
	f.StringVar(&templateDate, "date", "", "lesson date (default today, YYYY-MM-DD)")
	f.StringVar(&templateProject, "project", "", "project name")
	f.StringVar(&templatePhase, "phase", "", "lifecycle phase")
	f.StringVar(&templatePriority, "priority", "", "priority")
	f.StringSliceVar(&templateTags, "tags", nil, "comma-separated tags")
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Generate and check lesson templates",
}

var templateNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a lesson skeleton",
	Long: `Generate a lesson skeleton from a template definition. Values given
by flag replace their placeholders; the rest stay as {{KEY}} tokens.

Examples:
  # Print a lesson skeleton
  lessons template new --title "Cache stampede" --priority high

  # Write an incident template to a file
  lessons template new -t incident -o docs/lessons/outage.md`,
	Args: cobra.NoArgs,
	RunE: runTemplateNew,
}

var templateCheckCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "Check files for the structure a lesson needs",
	Long: `Check that files carry a title heading, a label for every required
metadata field and a heading for every required section, using the same
schema and section synonyms as the analysis.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTemplateCheck,
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List template definitions",
	Args:  cobra.NoArgs,
	RunE:  runTemplateList,
}

func loadDefinitions(e *env) (template.Definitions, error) {
	return template.LoadDefinitions(e.cfg.TemplatesPath())
}

func runTemplateNew(cmd *cobra.Command, args []string) error {
	e, cleanup, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	defs, err := loadDefinitions(e)
	if err != nil {
		return err
	}
	def, err := defs.Get(templateKind)
	if err != nil {
		return err
	}

	date := templateDate
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	data := map[string]string{template.KeyDate: date}
	for key, value := range map[string]string{
		template.KeyTitle:    templateTitle,
		template.KeyProject:  templateProject,
		template.KeyPhase:    templatePhase,
		template.KeyPriority: templatePriority,
		template.KeyTags:     strings.Join(templateTags, ", "),
	} {
		if value != "" {
			data[key] = value
		}
	}
	content := template.CreateFromTemplate(template.Generate(def), data)

	if templateOutput == "" {
		fmt.Fprint(cmd.OutOrStdout(), content)
		return nil
	}
	if _, err := os.Stat(templateOutput); err == nil && !templateForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", templateOutput)
	}
	if err := os.MkdirAll(filepath.Dir(templateOutput), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(templateOutput, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	cmd.Printf("Wrote %s template to %s\n", def.Name, templateOutput)
	return nil
}

var errTemplateCheckFailed = errors.New("template check failed")

func runTemplateCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	extractor, err := e.extractor()
	if err != nil {
		return err
	}
	v := template.NewValidator(extractor, loadSchema(ctx, e))

	failed := 0
	for _, path := range args {
		result, err := v.ValidateFile(path)
		if err != nil {
			return err
		}
		if !result.Valid {
			failed++
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderValidation(path, result))
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errTemplateCheckFailed, failed, len(args))
	}
	return nil
}

func runTemplateList(cmd *cobra.Command, args []string) error {
	e, cleanup, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	defs, err := loadDefinitions(e)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, name := range defs.Names() {
		def := defs[name]
		fmt.Fprintf(out, "%s  %s\n", valueStyle.Render(fmt.Sprintf("%-16s", name)), dimStyle.Render(def.Description))
	}
	return nil
}
