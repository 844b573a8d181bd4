package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voundbrand/vc83-com-sub014/internal/store"
)

const capacityWorkflowYAML = `
trigger: event_registration
inputs: [eventId, customerData, maxCapacity, currentRegistrations]
behaviors:
  - id: capacity
    type: check_event_capacity
    enabled: true
    priority: 100
  - id: email
    type: send_confirmation_email
    enabled: true
    priority: 10
    config:
      subject: "Welcome ${{ context.customerData.firstName }}"
`

const capacityInput = `{"eventId":"ev-1","maxCapacity":10,"currentRegistrations":3,"customerData":{"email":"lea@example.com","firstName":"Lea"}}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefinition_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "wf.yaml", capacityWorkflowYAML)

	def, err := loadDefinition(path)
	require.NoError(t, err)
	assert.Equal(t, "event_registration", def.Trigger)
	require.Len(t, def.Behaviors, 2)
	assert.Equal(t, "check_event_capacity", def.Behaviors[0].Type)
	assert.True(t, def.Behaviors[0].Enabled)
	assert.Equal(t, 100, def.Behaviors[0].Priority)
	assert.Equal(t, "Welcome ${{ context.customerData.firstName }}", def.Behaviors[1].Config["subject"])
}

func TestLoadDefinition_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "wf.json",
		`{"trigger":"t","behaviors":[{"type":"create_ticket","enabled":true,"priority":1}]}`)

	def, err := loadDefinition(path)
	require.NoError(t, err)
	assert.Equal(t, "t", def.Trigger)
	assert.Equal(t, "create_ticket", def.Behaviors[0].Type)
}

func TestLoadDefinition_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := loadDefinition(filepath.Join(dir, "missing.yaml"))
	var ee *exitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, exitFileNotFound, ee.code)

	_, err = loadDefinition(writeFile(t, dir, "bad.yaml", "trigger: [unclosed"))
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, exitValidation, ee.code)
}

func TestYAMLToJSONIfNeeded(t *testing.T) {
	out, err := yamlToJSONIfNeeded([]byte("a: 1\nb: [x]\n"), "in.YML")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"b":["x"]}`, string(out))

	raw := []byte(`{"keep":"as-is"}`)
	out, err = yamlToJSONIfNeeded(raw, "in.json")
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestLoadInput(t *testing.T) {
	dir := t.TempDir()
	yamlInput := writeFile(t, dir, "input.yaml", "eventId: ev-9\n")

	tests := []struct {
		name     string
		args     []string
		want     map[string]any
		wantCode int
	}{
		{"none", nil, map[string]any{}, 0},
		{"inline", []string{"-i", `{"eventId":"ev-1"}`}, map[string]any{"eventId": "ev-1"}, 0},
		{"yaml file", []string{"-f", yamlInput}, map[string]any{"eventId": "ev-9"}, 0},
		{"not an object", []string{"-i", `[1,2]`}, nil, exitInputParse},
		{"both", []string{"-i", `{}`, "-f", yamlInput}, nil, exitInputParse},
		{"missing file", []string{"-f", filepath.Join(dir, "nope.json")}, nil, exitFileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRunCmd()
			require.NoError(t, cmd.ParseFlags(tt.args))

			got, err := loadInput(cmd)
			if tt.wantCode != 0 {
				var ee *exitError
				require.True(t, errors.As(err, &ee))
				assert.Equal(t, tt.wantCode, ee.code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// testConfig writes a config pointing at a throwaway database.
func testConfig(t *testing.T) string {
	t.Helper()
	dir := isolate(t)
	return writeFile(t, dir, "config.yaml",
		"db:\n  path: \"file:"+filepath.ToSlash(filepath.Join(dir, "wf.db"))+"\"\nlog:\n  level: error\n")
}

func execCLI(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()
	return out.String(), err
}

// runCLI executes the root command against a throwaway database.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return execCLI(t, testConfig(t), args...)
}

// seedEvent stores an event the dry run can read.
func seedEvent(t *testing.T, cfgPath string, ev *store.Event) {
	t.Helper()
	cfg, err := loadConfig(cfgPath)
	require.NoError(t, err)
	s, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.CreateEvent(context.Background(), ev))
}

func TestRunCommand_DryRun(t *testing.T) {
	wf := writeFile(t, t.TempDir(), "wf.yaml", capacityWorkflowYAML)

	out, err := runCLI(t, "run", wf, "-i", capacityInput, "--format", "json")
	require.NoError(t, err)

	var report struct {
		DryRun      bool           `json:"dryRun"`
		Success     bool           `json:"success"`
		FinalOutput map[string]any `json:"finalOutput"`
		Results     []struct {
			BehaviorID string `json:"behaviorId"`
			Status     string `json:"status"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.DryRun)
	assert.True(t, report.Success)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "capacity", report.Results[0].BehaviorID)
	assert.Equal(t, "email", report.Results[1].BehaviorID)
	assert.Equal(t, float64(7), report.FinalOutput["availableSlots"])
	assert.Equal(t, true, report.FinalOutput["emailSent"])
}

func TestRunCommand_Summary(t *testing.T) {
	wf := writeFile(t, t.TempDir(), "wf.yaml", capacityWorkflowYAML)

	out, err := runCLI(t, "run", wf, "-i", capacityInput)
	require.NoError(t, err)
	assert.Contains(t, out, "BEHAVIOR")
	assert.Contains(t, out, "check_event_capacity")
	assert.Contains(t, out, "succeeded")
}

func TestRunCommand_FailedRunExitCode(t *testing.T) {
	wf := writeFile(t, t.TempDir(), "wf.yaml", capacityWorkflowYAML)
	full := `{"eventId":"ev-1","maxCapacity":3,"currentRegistrations":3,"customerData":{"email":"lea@example.com"}}`

	out, err := runCLI(t, "run", wf, "-i", full)
	var ee *exitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, exitRunFailed, ee.code)
	assert.Contains(t, out, "full capacity")
}

func TestRunCommand_InvalidWorkflow(t *testing.T) {
	wf := writeFile(t, t.TempDir(), "wf.yaml", `
trigger: x
behaviors:
  - type: no_such_behavior
    enabled: true
`)
	_, err := runCLI(t, "run", wf)
	var ee *exitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, exitValidation, ee.code)
}

func exampleFiles(t *testing.T) (string, string) {
	t.Helper()
	wf, err := filepath.Abs("../../examples/event-registration/workflow.yaml")
	require.NoError(t, err)
	input, err := filepath.Abs("../../examples/event-registration/input.json")
	require.NoError(t, err)
	return wf, input
}

func TestRunCommand_Example(t *testing.T) {
	wf, input := exampleFiles(t)
	cfgPath := testConfig(t)
	seedEvent(t, cfgPath, &store.Event{ID: "ev-summit-2026", TenantID: "local", Name: "Summit 2026", MaxCapacity: 120, Registrations: 87})

	out, err := execCLI(t, cfgPath, "run", wf, "-f", input, "--format", "json")
	require.NoError(t, err)

	var report struct {
		Success     bool           `json:"success"`
		FinalOutput map[string]any `json:"finalOutput"`
		Results     []struct {
			BehaviorID string `json:"behaviorId"`
			Skipped    bool   `json:"skipped"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Success)
	assert.Equal(t, float64(380), report.FinalOutput["amount"])
	assert.Equal(t, "customer_payment", report.FinalOutput["billingMethod"])

	skipped := map[string]bool{}
	for _, r := range report.Results {
		skipped[r.BehaviorID] = r.Skipped
	}
	assert.Len(t, skipped, 7)
	assert.True(t, skipped["invoice"], "card payments get no employer invoice")
	assert.False(t, skipped["ticket"])
}

func TestRunCommand_ExampleEventNotStored(t *testing.T) {
	wf, input := exampleFiles(t)

	// The payload carries capacity figures, but a ticket needs the stored event.
	out, err := runCLI(t, "run", wf, "-f", input)
	var ee *exitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, exitRunFailed, ee.code)
	assert.Contains(t, out, "NOT_FOUND: Event ev-summit-2026 not found")
}
