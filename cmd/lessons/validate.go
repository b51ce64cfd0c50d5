package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/lessons/internal/analysis"
	"github.com/fyrsmithlabs/lessons/internal/schema"
)

var schemaForce bool

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.AddCommand(schemaInitCmd)
	schemaCmd.AddCommand(schemaShowCmd)
	schemaInitCmd.Flags().BoolVarP(&schemaForce, "force", "f", false, "overwrite an existing schema file")
}

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate lesson documents against the schema",
	Long: `Validate lesson documents against the validation schema without
recording history. With no arguments every lesson in lessons.dir is checked.

Exits non-zero when any document is invalid.`,
	RunE: runValidate,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the validation schema",
}

var schemaInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default validation schema",
	Long: `Write the default validation schema to data.dir/data.schema_file.
Phase and priority enums follow the active rule tables.`,
	Args: cobra.NoArgs,
	RunE: runSchemaInit,
}

var schemaShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the validation schema in effect",
	Args:  cobra.NoArgs,
	RunE:  runSchemaShow,
}

var errInvalidLessons = errors.New("invalid lessons found")

// loadSchema returns the schema on disk, creating the default when absent.
func loadSchema(ctx context.Context, e *env) *schema.Schema {
	fallback := schema.ForRules(e.tables)
	s, _ := schema.LoadOrCreate(ctx, e.cfg.SchemaPath(), fallback, e.logger)
	if s == nil {
		return fallback
	}
	return s
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sc := e.newScanner()
	paths := args
	if len(paths) == 0 {
		paths, err = sc.Discover(e.cfg.Lessons.Dir)
		if err != nil {
			return err
		}
	}

	extractor, err := e.extractor()
	if err != nil {
		return err
	}
	analyzer := analysis.NewAnalyzer(extractor, loadSchema(ctx, e))

	invalid := 0
	for _, path := range paths {
		doc, err := sc.Read(path)
		if err != nil {
			return err
		}
		v := analyzer.Analyze(doc).Validation
		if !v.Valid {
			invalid++
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderValidation(path, v))
	}

	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d", errInvalidLessons, invalid, len(paths))
	}
	return nil
}

func runSchemaInit(cmd *cobra.Command, args []string) error {
	e, cleanup, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	path := e.cfg.SchemaPath()
	if _, err := os.Stat(path); err == nil && !schemaForce {
		return fmt.Errorf("schema %s already exists (use --force to overwrite)", path)
	}
	if err := schema.Save(path, schema.ForRules(e.tables)); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}
	cmd.Printf("Wrote validation schema to %s\n", path)
	return nil
}

func runSchemaShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	data, err := json.MarshalIndent(loadSchema(ctx, e), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
