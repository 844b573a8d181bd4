package trigger

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voundbrand/vc83-com-sub014/internal/behaviors"
	"github.com/voundbrand/vc83-com-sub014/internal/engine"
	"github.com/voundbrand/vc83-com-sub014/internal/store"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

type fixture struct {
	store   *store.LibSQLStore
	service *Service
	pro     *store.Tenant
	free    *store.Tenant
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	s, err := store.NewLibSQLStore("file:" + filepath.Join(t.TempDir(), "trigger.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { _ = s.Close() })

	reg := behaviors.NewRegistry()
	require.NoError(t, behaviors.RegisterBuiltins(reg, behaviors.NewEnv(s, s)))
	eng, err := engine.New(engine.Config{Registry: reg})
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	f := &fixture{
		store:   s,
		service: NewService(Config{Engine: eng, Store: s}),
		pro:     &store.Tenant{ID: "tenant-pro", Name: "Pro Org", Plan: store.PlanPro},
		free:    &store.Tenant{ID: "tenant-free", Name: "Free Org", Plan: store.PlanFree},
	}
	for _, tn := range []*store.Tenant{f.pro, f.free} {
		require.NoError(t, s.CreateTenant(ctx, tn))
		require.NoError(t, s.CreateEvent(ctx, &store.Event{ID: "ev-1", TenantID: tn.ID, Name: "Summit", MaxCapacity: 50}))
		require.NoError(t, s.CreateOrganization(ctx, &store.Organization{ID: "org-" + tn.ID, TenantID: tn.ID, Name: "Acme GmbH"}))
		require.NoError(t, s.UpsertWorkflow(ctx, &store.Workflow{
			ID:         "wf-" + tn.ID,
			TenantID:   tn.ID,
			Name:       "Registration",
			Definition: *registrationDefinition(),
			Enabled:    true,
		}))
	}
	return f
}

func registrationDefinition() *schema.WorkflowDefinition {
	return &schema.WorkflowDefinition{
		Trigger: "event_registration",
		Behaviors: []schema.BehaviorConfig{
			{ID: "capacity", Type: behaviors.TypeCheckEventCapacity, Enabled: true, Priority: 100},
			{ID: "billing", Type: behaviors.TypeDetectEmployerBilling, Enabled: true, Priority: 90},
			{ID: "contact", Type: behaviors.TypeFindOrCreateContact, Enabled: true, Priority: 80},
			{ID: "transaction", Type: behaviors.TypeCreateTransaction, Enabled: true, Priority: 70,
				Config: map[string]any{"amount": 250}},
			{ID: "ticket", Type: behaviors.TypeCreateTicket, Enabled: true, Priority: 60},
			{ID: "invoice", Type: behaviors.TypeGenerateInvoice, Enabled: true, Priority: 50},
			{ID: "email", Type: behaviors.TypeSendConfirmationEmail, Enabled: true, Priority: 40},
		},
	}
}

func registrationInput() map[string]any {
	return map[string]any{
		"eventId":   "ev-1",
		"productId": "prod-1",
		"customerData": map[string]any{
			"email":     "lea@example.com",
			"firstName": "Lea",
		},
		"formResponses": map[string]any{
			"billing_method": "employer",
			"employer_name":  "Acme GmbH",
		},
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestTrigger_ProductionRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.Trigger(ctx, f.pro, Request{Trigger: "event_registration", InputData: registrationInput()})
	require.NoError(t, err)
	assert.True(t, resp.Success, resp.Message)
	assert.Equal(t, "Workflow completed", resp.Message)
	assert.NotEmpty(t, resp.TransactionID)
	assert.NotEmpty(t, resp.TicketID)
	assert.NotEmpty(t, resp.InvoiceID)
	assert.False(t, behaviors.IsDryRunID(resp.TicketID))

	ticket, err := f.store.GetTicket(ctx, f.pro.ID, resp.TicketID)
	require.NoError(t, err)
	assert.Equal(t, resp.TransactionID, ticket.TransactionID)

	ev, err := f.store.GetEvent(ctx, f.pro.ID, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, 1, ev.Registrations)

	run, err := f.store.GetRun(ctx, f.pro.ID, resp.RunID)
	require.NoError(t, err)
	assert.True(t, run.Success)
	assert.Equal(t, "wf-"+f.pro.ID, run.WorkflowID)

	var report schema.RunReport
	require.NoError(t, json.Unmarshal(run.Report, &report))
	assert.Len(t, report.Results, 7)
	assert.False(t, report.DryRun)
}

func TestTrigger_UnknownTrigger(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Trigger(context.Background(), f.pro, Request{Trigger: "nope"})
	assert.True(t, schema.IsNotFound(err))

	_, err = f.service.Trigger(context.Background(), f.pro, Request{Trigger: "  "})
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err, ""))
}

func TestTrigger_TenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.Trigger(ctx, f.free, Request{Trigger: "event_registration", InputData: registrationInput()})
	require.NoError(t, err)

	_, err = f.store.GetRun(ctx, f.pro.ID, resp.RunID)
	assert.True(t, schema.IsNotFound(err))
	_, err = f.store.GetTicket(ctx, f.pro.ID, resp.TicketID)
	assert.True(t, schema.IsNotFound(err))
}

func TestTrigger_FailureKeepsRunning(t *testing.T) {
	f := newFixture(t)
	input := registrationInput()
	input["eventId"] = "missing-event"

	resp, err := f.service.Trigger(context.Background(), f.pro, Request{Trigger: "event_registration", InputData: input})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "failed")

	var report schema.RunReport
	run, err := f.store.GetRun(context.Background(), f.pro.ID, resp.RunID)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(run.Report, &report))
	assert.Len(t, report.Results, 7, "every behavior must produce an entry")
}

func TestTrigger_InvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	def := registrationDefinition()
	def.Trigger = "strict_registration"
	def.InputSchema = json.RawMessage(`{"type":"object","required":["eventId"]}`)
	require.NoError(t, f.store.UpsertWorkflow(ctx, &store.Workflow{
		ID: "wf-strict", TenantID: f.pro.ID, Name: "Strict", Definition: *def, Enabled: true,
	}))

	_, err := f.service.Trigger(ctx, f.pro, Request{Trigger: "strict_registration", InputData: map[string]any{}})
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err, ""))

	runs, err := f.store.ListRuns(ctx, store.RunFilter{TenantID: f.pro.ID})
	require.NoError(t, err)
	assert.Empty(t, runs, "nothing runs when input is rejected")
}

func TestTrigger_Webhook(t *testing.T) {
	f := newFixture(t)

	var hits atomic.Int32
	var got Response
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := f.service.Trigger(context.Background(), f.pro, Request{
		Trigger:    "event_registration",
		InputData:  registrationInput(),
		WebhookURL: srv.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, resp.RunID, got.RunID)
	assert.Equal(t, resp.TicketID, got.TicketID)
}

func TestTrigger_WebhookFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	resp, err := f.service.Trigger(context.Background(), f.pro, Request{
		Trigger:    "event_registration",
		InputData:  registrationInput(),
		WebhookURL: srv.URL,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestTrigger_WebhookRequiresPlan(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Trigger(context.Background(), f.free, Request{
		Trigger:    "event_registration",
		InputData:  registrationInput(),
		WebhookURL: "https://hooks.example.com/x",
	})
	assert.Equal(t, schema.ErrCodeFeatureDenied, schema.CodeOf(err, ""))

	_, err = f.service.Trigger(context.Background(), f.pro, Request{
		Trigger:    "event_registration",
		WebhookURL: "ftp://hooks.example.com/x",
	})
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err, ""))
}

func TestTest_DryRunHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.Test(ctx, f.pro, TestRequest{WorkflowID: "wf-" + f.pro.ID, TestData: registrationInput()})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 7)

	ticketID, _ := resp.FinalOutput[KeyTicketID].(string)
	assert.True(t, behaviors.IsDryRunID(ticketID), ticketID)
	assert.True(t, strings.HasPrefix(resp.FinalOutput["ticketNumber"].(string), "TKT-DRYRUN-"))
	assert.True(t, strings.HasPrefix(resp.FinalOutput["invoiceNumber"].(string), "INV-DRYRUN-"))

	ev, err := f.store.GetEvent(ctx, f.pro.ID, "ev-1")
	require.NoError(t, err)
	assert.Zero(t, ev.Registrations)

	contact, err := f.store.FindContactByEmail(ctx, f.pro.ID, "lea@example.com")
	assert.Nil(t, contact)
	assert.True(t, schema.IsNotFound(err))

	outbox, err := f.store.ListOutbox(ctx, f.pro.ID)
	require.NoError(t, err)
	assert.Empty(t, outbox)

	runs, err := f.store.ListRuns(ctx, store.RunFilter{TenantID: f.pro.ID})
	require.NoError(t, err)
	assert.Empty(t, runs, "dry-run reports are not persisted")
}

func TestTest_ParityWithTrigger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tested, err := f.service.Test(ctx, f.pro, TestRequest{WorkflowID: "wf-" + f.pro.ID, TestData: registrationInput()})
	require.NoError(t, err)
	_, triggered, err := f.service.trigger(ctx, f.pro, Request{Trigger: "event_registration", InputData: registrationInput()}, true)
	require.NoError(t, err)

	assert.Equal(t, sortedKeys(triggered.FinalOutput), sortedKeys(tested.FinalOutput))
	require.Len(t, tested.Results, len(triggered.Results))
	for i := range tested.Results {
		assert.Equal(t, triggered.Results[i].BehaviorID, tested.Results[i].BehaviorID)
		assert.Equal(t, triggered.Results[i].Status, tested.Results[i].Status)
	}

	runs, err := f.store.ListRuns(ctx, store.RunFilter{TenantID: f.pro.ID})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

// statuses maps behavior id to its reported status.
func statuses(entries []schema.ReportEntry) map[string]schema.EntryStatus {
	out := make(map[string]schema.EntryStatus, len(entries))
	for _, e := range entries {
		out[e.BehaviorID] = e.Status
	}
	return out
}

func TestTest_StatusesMatchProduction(t *testing.T) {
	unknownEvent := registrationInput()
	unknownEvent["eventId"] = "E-unknown"
	unknownEvent["maxCapacity"] = 10
	unknownEvent["currentRegistrations"] = 4

	tests := []struct {
		name       string
		input      map[string]any
		wantTicket schema.EntryStatus
	}{
		{"stored event", registrationInput(), schema.EntryStatusSuccess},
		{"capacity from payload, event not stored", unknownEvent, schema.EntryStatusError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			tested, err := f.service.Test(ctx, f.pro, TestRequest{WorkflowID: "wf-" + f.pro.ID, TestData: tt.input})
			require.NoError(t, err)

			resp, err := f.service.Trigger(ctx, f.pro, Request{Trigger: "event_registration", InputData: tt.input})
			require.NoError(t, err)
			run, err := f.store.GetRun(ctx, f.pro.ID, resp.RunID)
			require.NoError(t, err)
			var produced schema.RunReport
			require.NoError(t, json.Unmarshal(run.Report, &produced))
			require.False(t, produced.DryRun)

			live, dry := statuses(produced.Results), statuses(tested.Results)
			assert.Equal(t, live, dry)
			assert.Equal(t, tt.wantTicket, live["ticket"])
			assert.Equal(t, tt.wantTicket, dry["ticket"])
			assert.Equal(t, produced.Success, tested.Success)
		})
	}
}

func TestTest_PlanAndLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Test(ctx, f.free, TestRequest{WorkflowID: "wf-" + f.free.ID})
	assert.Equal(t, schema.ErrCodeFeatureDenied, schema.CodeOf(err, ""))

	_, err = f.service.Test(ctx, f.pro, TestRequest{WorkflowID: "wf-" + f.free.ID})
	assert.True(t, schema.IsNotFound(err), "other tenants' workflows are invisible")

	_, err = f.service.Test(ctx, f.pro, TestRequest{})
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err, ""))

	_, err = f.service.Test(ctx, nil, TestRequest{WorkflowID: "x"})
	assert.Equal(t, schema.ErrCodeUnauthorized, schema.CodeOf(err, ""))
}

func TestTest_DisabledWorkflowStillTestable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	wf, err := f.store.GetWorkflow(ctx, f.pro.ID, "wf-"+f.pro.ID)
	require.NoError(t, err)
	wf.Enabled = false
	require.NoError(t, f.store.UpsertWorkflow(ctx, wf))

	_, err = f.service.Trigger(ctx, f.pro, Request{Trigger: "event_registration", InputData: registrationInput()})
	assert.True(t, schema.IsNotFound(err))

	resp, err := f.service.Test(ctx, f.pro, TestRequest{WorkflowID: wf.ID, TestData: registrationInput()})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}
