package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/voundbrand/vc83-com-sub014/internal/engine"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// Exit codes for run.
const (
	exitValidation   = 1
	exitRunFailed    = 2
	exitFileNotFound = 3
	exitInputParse   = 4
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <workflow-file>",
		Short: "Dry-run a workflow file against test data",
		Long:  "Dry-run a workflow definition (JSON or YAML) against test data and print the run report. Reads hit the configured database; nothing is written.",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}
	cmd.Flags().StringP("input", "i", "", "Test data as inline JSON")
	cmd.Flags().StringP("input-file", "f", "", "Test data from a JSON or YAML file")
	cmd.Flags().String("tenant", "local", "Tenant whose data the dry run reads")
	cmd.Flags().String("format", "summary", "Output format: summary | json")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	def, err := loadDefinition(args[0])
	if err != nil {
		return err
	}
	input, err := loadInput(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	tenantID, _ := cmd.Flags().GetString("tenant")

	cfg, err := configFromCmd(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	result := a.engine.Validate(def)
	printIssues(cmd.ErrOrStderr(), result)
	if !result.Valid() {
		return exitf(exitValidation, "workflow %s is invalid", args[0])
	}
	if err := a.engine.ValidateInput(def, input); err != nil {
		return exitf(exitInputParse, "%v", err)
	}

	report, err := a.engine.Run(cmd.Context(), engine.Request{
		RunID:      uuid.NewString(),
		TenantID:   tenantID,
		WorkflowID: filepath.Base(args[0]),
		Definition: def,
		Input:      input,
		DryRun:     true,
	})
	if err != nil {
		return err
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printSummary(cmd.OutOrStdout(), report)
	}

	if !report.Success {
		return exitf(exitRunFailed, "%d behavior(s) failed", len(report.Failed()))
	}
	return nil
}

func loadDefinition(path string) (*schema.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, exitf(exitFileNotFound, "file not found: %s", path)
		}
		return nil, err
	}
	data, err = yamlToJSONIfNeeded(data, path)
	if err != nil {
		return nil, exitf(exitValidation, "parse %s: %v", path, err)
	}
	var def schema.WorkflowDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, exitf(exitValidation, "parse %s: %v", path, err)
	}
	return &def, nil
}

func loadInput(cmd *cobra.Command) (map[string]any, error) {
	inline, _ := cmd.Flags().GetString("input")
	file, _ := cmd.Flags().GetString("input-file")
	if inline != "" && file != "" {
		return nil, exitf(exitInputParse, "--input and --input-file are mutually exclusive")
	}

	var data []byte
	switch {
	case inline != "":
		data = []byte(inline)
	case file != "":
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, exitf(exitFileNotFound, "input file: %v", err)
		}
		if data, err = yamlToJSONIfNeeded(raw, file); err != nil {
			return nil, exitf(exitInputParse, "input file: %v", err)
		}
	default:
		return map[string]any{}, nil
	}

	input := map[string]any{}
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, exitf(exitInputParse, "input must be a JSON object: %v", err)
	}
	return input, nil
}

// yamlToJSONIfNeeded converts YAML data to JSON if the file path indicates a
// YAML file. JSON files are returned as-is.
func yamlToJSONIfNeeded(data []byte, path string) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return json.Marshal(raw)
	}
	return data, nil
}

func printIssues(w io.Writer, result *schema.ValidationResult) {
	for _, e := range result.Errors {
		fmt.Fprintf(w, "error   %s [%s]\n", e, e.Code)
	}
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "warning %s [%s]\n", warn, warn.Code)
	}
}

func printSummary(w io.Writer, report *schema.RunReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BEHAVIOR\tTYPE\tSTATUS\tMS\tMESSAGE")
	for _, e := range report.Results {
		msg := e.Message
		if e.Error != "" {
			msg = e.ErrorCode + ": " + e.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", e.BehaviorID, e.BehaviorType, e.Status, e.DurationMs, msg)
	}
	_ = tw.Flush()

	status := "succeeded"
	if !report.Success {
		status = "failed"
	}
	if report.TimedOut {
		status += " (run deadline exceeded)"
	}
	fmt.Fprintf(w, "\ndry run %s %s; output keys: %s\n", report.RunID, status, strings.Join(report.OutputKeys(), ", "))
}
