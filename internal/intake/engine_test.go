package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/m3rciful/intakebot/core/telegram/state"
)

const chat int64 = 100

func newTestEngine() (*Engine, *state.MemoryStore) {
	store := state.NewMemoryStore()
	return NewEngine(store, nil), store
}

func mustAct(t *testing.T) func(Action, error) Action {
	return func(act Action, err error) Action {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return act
	}
}

func conversation(t *testing.T, e *Engine) Conversation {
	t.Helper()
	conv, err := e.Conversation(context.Background(), chat)
	if err != nil {
		t.Fatalf("load conversation: %v", err)
	}
	if conv.Active() {
		for _, s := range conv.History.Steps() {
			if s == conv.Step {
				t.Fatalf("history %v contains current step %q", conv.History.Steps(), conv.Step)
			}
		}
	}
	return conv
}

func TestStartFlow(t *testing.T) {
	e, _ := newTestEngine()
	act := mustAct(t)(e.StartFlow(context.Background(), chat, FlowBuilding))
	if act.Kind != ActionReprompt || act.Step != StepBuildingDetails || act.Prompt == "" {
		t.Fatalf("unexpected action %+v", act)
	}
	conv := conversation(t, e)
	if conv.Step != StepBuildingDetails || conv.History.Len() != 0 || conv.Answers.Flow != FlowBuilding {
		t.Fatalf("unexpected conversation %+v", conv)
	}

	if _, err := e.StartFlow(context.Background(), chat, "unknown"); !errors.Is(err, ErrUnknownFlow) {
		t.Fatalf("expected ErrUnknownFlow, got %v", err)
	}
}

func TestStartFlowDiscardsProgress(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()
	mustAct(t)(e.StartFlow(ctx, chat, FlowBuilding))
	mustAct(t)(e.HandleText(ctx, chat, "a\nb\nc\nd"))
	mustAct(t)(e.StartFlow(ctx, chat, FlowParking))

	conv := conversation(t, e)
	if conv.Step != StepParkingUserInfo || conv.History.Len() != 0 || conv.Answers.Building != nil {
		t.Fatalf("stale progress kept: %+v", conv)
	}
}

func TestNoActiveFlow(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine()
	calls := []func() (Action, error){
		func() (Action, error) { return e.HandleText(ctx, chat, "hello") },
		func() (Action, error) { return e.HandleChoice(ctx, chat, "plumbing") },
		func() (Action, error) { return e.HandleMedia(ctx, chat, nil) },
		func() (Action, error) { return e.HandleMedia(ctx, chat, &Attachment{Video: "v"}) },
		func() (Action, error) { return e.HandleBack(ctx, chat) },
	}
	for i, call := range calls {
		act := mustAct(t)(call())
		if !IsNoActiveFlow(act) {
			t.Fatalf("call %d: expected unhandled, got %+v", i, act)
		}
	}
	if store.Len() != 0 {
		t.Fatalf("idle events created sessions")
	}
}

// Malformed details keep the step and history.
func TestMalformedDetails(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()
	mustAct(t)(e.StartFlow(ctx, chat, FlowBuilding))

	act := mustAct(t)(e.HandleText(ctx, chat, "Ivan Petrenko\n+380501234567"))
	if act.Kind != ActionReprompt || act.Step != StepBuildingDetails || !errors.Is(act.Err, ErrMalformedAnswer) {
		t.Fatalf("unexpected action %+v", act)
	}
	if act.Notice == "" {
		t.Fatalf("expected corrective notice")
	}
	conv := conversation(t, e)
	if conv.Step != StepBuildingDetails || conv.History.Len() != 0 {
		t.Fatalf("state mutated: %+v", conv)
	}
}

func TestLinesStepsRejectShortInput(t *testing.T) {
	ctx := context.Background()
	reg := DefaultRegistry()
	for _, id := range reg.Steps() {
		def, _ := reg.Lookup(id)
		if def.Input != InputLines {
			continue
		}
		t.Run(string(id), func(t *testing.T) {
			e, store := newTestEngine()
			err := store.Update(ctx, chat, func(s *state.Session) error {
				s.State = state.State(id)
				s.History = []state.State{"x.prev"}
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
			for n := 0; n < def.Lines; n++ {
				input := ""
				for i := 0; i < n; i++ {
					input += "line\n  \n"
				}
				act := mustAct(t)(e.HandleText(ctx, chat, input))
				if !errors.Is(act.Err, ErrMalformedAnswer) || act.Step != id {
					t.Fatalf("%d lines accepted: %+v", n, act)
				}
				conv := conversation(t, e)
				if conv.Step != id || conv.History.Len() != 1 {
					t.Fatalf("state changed after %d lines: %+v", n, conv)
				}
			}
		})
	}
}

func TestDetailsIgnoreExtraAndBlankLines(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()
	mustAct(t)(e.StartFlow(ctx, chat, FlowBuilding))

	act := mustAct(t)(e.HandleText(ctx, chat, "  Ivan \r\n\r\n+380\nAcme\n101\nextra line"))
	if act.Kind != ActionReprompt || act.Step != StepBuildingProblemType {
		t.Fatalf("unexpected action %+v", act)
	}
	b := conversation(t, e).Answers.Building
	if b.Name != "Ivan" || b.Phone != "+380" || b.Company != "Acme" || b.Room != "101" {
		t.Fatalf("unexpected answers %+v", b)
	}
}

func TestParkingUserInfoKeepsWholeText(t *testing.T) {
	ctx := context.Background()
	for _, input := range []string{
		"Ivan Petrenko, +380501234567, Acme",
		"Ivan Petrenko\n+380501234567\nAcme",
	} {
		e, _ := newTestEngine()
		mustAct(t)(e.StartFlow(ctx, chat, FlowParking))
		act := mustAct(t)(e.HandleText(ctx, chat, "  "+input+"\n"))
		if act.Kind != ActionReprompt || act.Step != StepParkingAction || act.Err != nil {
			t.Fatalf("%q: unexpected action %+v", input, act)
		}
		if got := conversation(t, e).Answers.Parking.UserInfo; got != input {
			t.Fatalf("user_info=%q want %q", got, input)
		}
	}
}

func TestTextAtChoiceAndMediaSteps(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()
	mustAct(t)(e.StartFlow(ctx, chat, FlowBuilding))
	mustAct(t)(e.HandleText(ctx, chat, "a\nb\nc\nd"))

	act := mustAct(t)(e.HandleText(ctx, chat, "plumbing"))
	if act.Kind != ActionReprompt || act.Notice != TextUseButtons || !errors.Is(act.Err, ErrUnexpectedInput) {
		t.Fatalf("unexpected action %+v", act)
	}

	mustAct(t)(e.HandleChoice(ctx, chat, "walls"))
	mustAct(t)(e.HandleText(ctx, chat, "crack"))
	act = mustAct(t)(e.HandleText(ctx, chat, "here is a photo"))
	if act.Step != StepBuildingMedia || act.Notice != TextAttachOrSkip {
		t.Fatalf("unexpected action %+v", act)
	}
	if conv := conversation(t, e); conv.Step != StepBuildingMedia || conv.History.Len() != 3 {
		t.Fatalf("state changed: %+v", conv)
	}
}

func TestInvalidChoice(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()
	mustAct(t)(e.StartFlow(ctx, chat, FlowBuilding))
	mustAct(t)(e.HandleText(ctx, chat, "a\nb\nc\nd"))

	act := mustAct(t)(e.HandleChoice(ctx, chat, "add"))
	if act.Kind != ActionInvalidChoice || !errors.Is(act.Err, ErrUnknownChoice) || act.Step != StepBuildingProblemType {
		t.Fatalf("unexpected action %+v", act)
	}

	mustAct(t)(e.StartFlow(ctx, chat, FlowBuilding))
	act = mustAct(t)(e.HandleChoice(ctx, chat, "plumbing"))
	if act.Kind != ActionInvalidChoice || !errors.Is(act.Err, ErrUnexpectedInput) {
		t.Fatalf("choice at a text step: %+v", act)
	}
	act = mustAct(t)(e.HandleMedia(ctx, chat, nil))
	if act.Kind != ActionInvalidChoice {
		t.Fatalf("skip at a text step: %+v", act)
	}
	act = mustAct(t)(e.HandleMedia(ctx, chat, &Attachment{Video: "v"}))
	if act.Kind != ActionReprompt || act.Notice != TextExpectText {
		t.Fatalf("media at a text step: %+v", act)
	}
	if conv := conversation(t, e); conv.Step != StepBuildingDetails || conv.History.Len() != 0 {
		t.Fatalf("state changed: %+v", conv)
	}
}

// Back from the description step returns to the problem type.
func TestBackNavigation(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()
	mustAct(t)(e.StartFlow(ctx, chat, FlowBuilding))
	mustAct(t)(e.HandleText(ctx, chat, "a\nb\nc\nd"))
	mustAct(t)(e.HandleChoice(ctx, chat, "plumbing"))

	act := mustAct(t)(e.HandleBack(ctx, chat))
	if act.Kind != ActionReprompt || act.Step != StepBuildingProblemType {
		t.Fatalf("unexpected action %+v", act)
	}
	conv := conversation(t, e)
	if conv.Step != StepBuildingProblemType || conv.History.Len() != 1 {
		t.Fatalf("unexpected conversation %+v", conv)
	}
	if steps := conv.History.Steps(); steps[len(steps)-1] != StepBuildingDetails {
		t.Fatalf("unexpected history %v", conv.History.Steps())
	}
	if conv.Answers.Building.Problem != "plumbing" {
		t.Fatalf("answers dropped on back: %+v", conv.Answers.Building)
	}
}

func TestBackDrainsHistory(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()
	mustAct(t)(e.StartFlow(ctx, chat, FlowParking))
	mustAct(t)(e.HandleText(ctx, chat, "Olena\n+380\nAcme"))
	mustAct(t)(e.HandleChoice(ctx, chat, "add"))
	mustAct(t)(e.HandleText(ctx, chat, "AA1234BB"))

	prev := conversation(t, e).History.Len()
	if prev != 3 {
		t.Fatalf("history_len=%d want 3", prev)
	}
	for prev > 0 {
		act := mustAct(t)(e.HandleBack(ctx, chat))
		if act.Kind != ActionReprompt {
			t.Fatalf("unexpected action %+v", act)
		}
		n := conversation(t, e).History.Len()
		if n != prev-1 {
			t.Fatalf("history shrank from %d to %d", prev, n)
		}
		prev = n
	}
	act := mustAct(t)(e.HandleBack(ctx, chat))
	if act.Kind != ActionNoOp || !errors.Is(act.Err, ErrHistoryEmpty) || act.Notice != TextFirstStep {
		t.Fatalf("unexpected action %+v", act)
	}
	if conv := conversation(t, e); conv.Step != StepParkingUserInfo {
		t.Fatalf("back at first step moved to %q", conv.Step)
	}
}

func TestRejectedMedia(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()
	mustAct(t)(e.StartFlow(ctx, chat, FlowParking))
	mustAct(t)(e.HandleText(ctx, chat, "Olena\n+380\nAcme"))
	mustAct(t)(e.HandleChoice(ctx, chat, "remove"))
	mustAct(t)(e.HandleText(ctx, chat, "AA1234BB"))
	before := conversation(t, e)

	act := mustAct(t)(e.HandleMedia(ctx, chat, &Attachment{Other: "audio"}))
	if act.Kind != ActionReprompt || act.Step != StepParkingMedia || !errors.Is(act.Err, ErrUnsupportedFormat) {
		t.Fatalf("unexpected action %+v", act)
	}
	if act.Notice != TextUnsupportedFormat {
		t.Fatalf("unexpected notice %q", act.Notice)
	}

	act = mustAct(t)(e.HandleMedia(ctx, chat, &Attachment{Document: &Document{Handle: "d", Filename: "cars.txt"}}))
	if !errors.Is(act.Err, ErrUnsupportedDocumentType) || act.Notice != TextUnsupportedDocument {
		t.Fatalf("unexpected action %+v", act)
	}

	after := conversation(t, e)
	if after.Step != before.Step || after.History.Len() != before.History.Len() || after.Answers.Media != nil {
		t.Fatalf("state changed: before=%+v after=%+v", before, after)
	}
}

func TestSubmitResetsConversation(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine()
	mustAct(t)(e.StartFlow(ctx, chat, FlowParking))
	mustAct(t)(e.HandleText(ctx, chat, "Olena\n+380\nAcme"))
	mustAct(t)(e.HandleChoice(ctx, chat, "add"))
	mustAct(t)(e.HandleText(ctx, chat, "card 1\nAA1234BB\nOlena K\n01.01.2026"))

	act := mustAct(t)(e.HandleMedia(ctx, chat, &Attachment{Document: &Document{Handle: "doc-1", Filename: "report.pdf"}}))
	if act.Kind != ActionSubmit || act.Flow != FlowParking || act.Answers == nil {
		t.Fatalf("unexpected action %+v", act)
	}
	p := act.Answers.Parking
	if p.UserInfo != "Olena\n+380\nAcme" || p.Action != "add" || p.Cars != "card 1\nAA1234BB\nOlena K\n01.01.2026" {
		t.Fatalf("unexpected answers %+v", p)
	}
	if m := act.Answers.Media; m == nil || m.Kind != MediaDocument || m.Filename != "report.pdf" {
		t.Fatalf("unexpected media %+v", act.Answers.Media)
	}

	if conv := conversation(t, e); conv.Active() || conv.History.Len() != 0 || !conv.Answers.IsZero() {
		t.Fatalf("conversation not reset: %+v", conv)
	}
	if store.Len() != 0 {
		t.Fatalf("submitted session still stored")
	}

	act = mustAct(t)(e.HandleMedia(ctx, chat, nil))
	if act.Kind != ActionUnhandled {
		t.Fatalf("second skip after submit: %+v", act)
	}
}

func TestResetIdempotent(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()
	mustAct(t)(e.StartFlow(ctx, chat, FlowBuilding))
	mustAct(t)(e.HandleText(ctx, chat, "a\nb\nc\nd"))

	if err := e.Reset(ctx, chat); err != nil {
		t.Fatal(err)
	}
	once := conversation(t, e)
	if err := e.Reset(ctx, chat); err != nil {
		t.Fatal(err)
	}
	twice := conversation(t, e)
	if once.Active() || twice.Active() || once.History.Len() != 0 || twice.History.Len() != 0 {
		t.Fatalf("reset left state: %+v %+v", once, twice)
	}
	if !once.Answers.IsZero() || !twice.Answers.IsZero() {
		t.Fatalf("reset left answers")
	}
}

func TestStaleStepEndsConversation(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine()
	_ = store.Update(ctx, chat, func(s *state.Session) error {
		s.State = "building.removed_step"
		return nil
	})
	act := mustAct(t)(e.HandleText(ctx, chat, "hello"))
	if !IsNoActiveFlow(act) {
		t.Fatalf("unexpected action %+v", act)
	}
	if store.Len() != 0 {
		t.Fatalf("stale session kept")
	}
}

func TestStoreFailure(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(brokenStore{}, nil)
	if _, err := e.StartFlow(ctx, chat, FlowBuilding); !errors.Is(err, ErrStore) || !errors.Is(err, errStoreDown) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if _, err := e.HandleText(ctx, chat, "x"); !errors.Is(err, ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if err := e.Reset(ctx, chat); !errors.Is(err, ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if _, err := e.Conversation(ctx, chat); !errors.Is(err, ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestParseLines(t *testing.T) {
	cases := []struct {
		in    string
		n     int
		whole bool
		want  []string
	}{
		{in: "a\nb\nc", n: 3, want: []string{"a", "b", "c"}},
		{in: "a\n\n b \nc\nd", n: 3, want: []string{"a", "b", "c"}},
		{in: "a\nb", n: 3},
		{in: "   ", n: 1, whole: true},
		{in: "  line one\nline two  ", n: 1, whole: true, want: []string{"line one\nline two"}},
	}
	for _, tc := range cases {
		got, ok := parseLines(tc.in, tc.n, tc.whole)
		if ok != (tc.want != nil) {
			t.Fatalf("%q: ok=%v", tc.in, ok)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("%q: got %v want %v", tc.in, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%q: got %v want %v", tc.in, got, tc.want)
			}
		}
	}
}

func TestTransitionClassification(t *testing.T) {
	tests := []struct {
		name   string
		act    Action
		status string
		level  slog.Level
	}{
		{"advance", Action{Kind: ActionReprompt}, "ok", slog.LevelDebug},
		{"malformed", Action{Kind: ActionReprompt, Err: ErrMalformedAnswer}, "rejected", slog.LevelInfo},
		{"wrapped choice", Action{Kind: ActionInvalidChoice, Err: fmt.Errorf("x: %w", ErrUnknownChoice)}, "rejected", slog.LevelInfo},
		{"unsupported document", Action{Kind: ActionReprompt, Err: ErrUnsupportedDocumentType}, "rejected", slog.LevelInfo},
		{"first step", Action{Kind: ActionNoOp, Err: ErrHistoryEmpty}, "skip", slog.LevelDebug},
		{"no flow", Action{Kind: ActionUnhandled, Err: ErrNoActiveFlow}, "skip", slog.LevelDebug},
		{"other error", Action{Kind: ActionReprompt, Err: ErrIncompleteAnswers}, "fail", slog.LevelWarn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidation(tt.act.Err); got != (tt.status == "rejected") {
				t.Fatalf("IsValidation=%v", got)
			}
			if got := transitionStatus(tt.act); got != tt.status {
				t.Fatalf("status=%q want %q", got, tt.status)
			}
			if got := transitionLevel(tt.act); got != tt.level {
				t.Fatalf("level=%v want %v", got, tt.level)
			}
		})
	}
}
