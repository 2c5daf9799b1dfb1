// Copyright 2026 © The Selfimprove Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"bytes"
	"context"
	stderrors "errors"
	"math/big"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jllopis/selfimprove/pkg/errors"
	"github.com/jllopis/selfimprove/pkg/service"
	"github.com/jllopis/selfimprove/pkg/transform"
)

type sleepRecorder struct {
	calls []time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) { s.calls = append(s.calls, d) }

func newTestAgent(t *testing.T, opts ...Option) (*Agent, *bytes.Buffer, *sleepRecorder) {
	t.Helper()
	var out bytes.Buffer
	rec := &sleepRecorder{}
	a, err := New(append([]Option{WithOutput(&out), WithSleeper(rec.sleep)}, opts...)...)
	if err != nil {
		t.Fatalf("agent creation failed: %v", err)
	}
	return a, &out, rec
}

func TestNewDefaults(t *testing.T) {
	a, _, _ := newTestAgent(t)

	if a.Version() != 1 {
		t.Errorf("expected version 1, got %d", a.Version())
	}
	if a.Description() != "Basic power function: squaring input." {
		t.Errorf("unexpected description %q", a.Description())
	}
	if a.Exponent() != 2 {
		t.Errorf("expected exponent 2, got %d", a.Exponent())
	}
	if _, err := uuid.Parse(a.ID()); err != nil {
		t.Errorf("expected a UUID id, got %q: %v", a.ID(), err)
	}
	if a.Service().Name() != "none" {
		t.Errorf("expected noop service placeholder, got %s", a.Service().Name())
	}
}

func TestNewOptionErrors(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{name: "empty id", opt: WithID("")},
		{name: "nil output", opt: WithOutput(nil)},
		{name: "nil generator", opt: WithGenerator(nil)},
		{name: "nil sleeper", opt: WithSleeper(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opt); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestWithServiceKeepsPlaceholderForNil(t *testing.T) {
	a, _, _ := newTestAgent(t, WithService(nil), WithID("agent-1"))
	if _, ok := a.Service().(service.Noop); !ok {
		t.Errorf("expected Noop service, got %T", a.Service())
	}
	if a.ID() != "agent-1" {
		t.Errorf("expected id agent-1, got %s", a.ID())
	}
}

func TestRunSquaresInitially(t *testing.T) {
	a, out, _ := newTestAgent(t)

	if err := a.Run(context.Background(), 2); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := "[Version 1] Basic power function: squaring input.\n" +
		"Input: 2 --> Output: 4\n"
	if out.String() != want {
		t.Errorf("unexpected output:\n%q\nwant:\n%q", out.String(), want)
	}
	if a.Version() != 1 {
		t.Errorf("Run must not mutate version, got %d", a.Version())
	}
}

func TestRunSquaresAnyNumericInput(t *testing.T) {
	inputs := []struct {
		in   any
		want string
	}{
		{0, "0"},
		{-7, "49"},
		{int64(3_000_000_000), "9000000000000000000"},
		{uint8(255), "65025"},
		{1.5, "2.25"},
		{big.NewInt(-11), "121"},
	}
	for _, tt := range inputs {
		a, out, _ := newTestAgent(t)
		if err := a.Run(context.Background(), tt.in); err != nil {
			t.Fatalf("Run(%v) failed: %v", tt.in, err)
		}
		if !strings.Contains(out.String(), "--> Output: "+tt.want+"\n") {
			t.Errorf("Run(%v): expected output %s, got %q", tt.in, tt.want, out.String())
		}
	}
}

func TestRunInvalidInput(t *testing.T) {
	a, out, _ := newTestAgent(t)

	err := a.Run(context.Background(), "2")
	if !errors.IsCode(err, errors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output on failure, got %q", out.String())
	}
}

func TestConcreteScenario(t *testing.T) {
	a, out, _ := newTestAgent(t)
	ctx := context.Background()

	steps := []struct {
		improve     bool
		wantVersion int
		wantOutput  string
	}{
		{improve: false, wantVersion: 1, wantOutput: "Output: 4"},
		{improve: true, wantVersion: 2, wantOutput: "Output: 8"},
		{improve: true, wantVersion: 3, wantOutput: "Output: 16"},
	}
	for _, step := range steps {
		if step.improve {
			if err := a.SelfImprove(ctx); err != nil {
				t.Fatalf("SelfImprove failed: %v", err)
			}
		}
		if a.Version() != step.wantVersion {
			t.Fatalf("expected version %d, got %d", step.wantVersion, a.Version())
		}
		out.Reset()
		if err := a.Run(ctx, 2); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		got := out.String()
		if !strings.Contains(got, "Version "+strconv.Itoa(step.wantVersion)) || !strings.Contains(got, step.wantOutput) {
			t.Errorf("version %d: unexpected output %q", step.wantVersion, got)
		}
	}
}

func TestSelfImproveOutputAndDescription(t *testing.T) {
	a, out, _ := newTestAgent(t)

	if err := a.SelfImprove(context.Background()); err != nil {
		t.Fatalf("SelfImprove failed: %v", err)
	}
	if out.String() != "Agent self-improvement complete. Upgraded to version 2.\n" {
		t.Errorf("unexpected output %q", out.String())
	}
	if a.Exponent() != 3 {
		t.Errorf("expected exponent 3, got %d", a.Exponent())
	}
	if a.Description() != "Enhanced power function: raising input to the power of 3." {
		t.Errorf("unexpected description %q", a.Description())
	}

	if err := a.SelfImprove(context.Background()); err != nil {
		t.Fatalf("SelfImprove failed: %v", err)
	}
	if a.Exponent() != 4 {
		t.Errorf("expected exponent 4, got %d", a.Exponent())
	}
	if a.Description() != "Enhanced power function: raising input to the power of 4." {
		t.Errorf("unexpected description %q", a.Description())
	}
}

func TestSelfImproveTransformIsPowerKPlus2(t *testing.T) {
	a, _, _ := newTestAgent(t)
	for k := 0; k <= 12; k++ {
		if k > 0 {
			prev := a.Version()
			if err := a.SelfImprove(context.Background()); err != nil {
				t.Fatalf("SelfImprove failed: %v", err)
			}
			if a.Version() != prev+1 {
				t.Fatalf("expected version to grow by exactly 1, %d -> %d", prev, a.Version())
			}
		}
		for _, x := range []int64{-3, 2, 5} {
			got, err := a.Apply(x)
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			want := new(big.Int).Exp(big.NewInt(x), big.NewInt(int64(k+2)), nil)
			if got.Int().Cmp(want) != 0 {
				t.Errorf("after %d improvements: %d -> %s, want %s", k, x, got, want)
			}
		}
	}
}

func TestSelfImproveCodegenFailureLeavesStateUnchanged(t *testing.T) {
	cause := stderrors.New("compiler unavailable")
	calls := 0
	gen := GeneratorFunc(func(ctx context.Context, exponent int) (transform.Transform, error) {
		calls++
		if calls == 2 {
			return transform.Transform{}, cause
		}
		return transform.Power(exponent)
	})
	a, out, _ := newTestAgent(t, WithGenerator(gen))
	ctx := context.Background()

	if err := a.SelfImprove(ctx); err != nil {
		t.Fatalf("first SelfImprove failed: %v", err)
	}
	version, description, exponent := a.Version(), a.Description(), a.Exponent()
	out.Reset()

	err := a.SelfImprove(ctx)
	if !errors.IsCode(err, errors.CodeCodegen) {
		t.Fatalf("expected CODEGEN_FAILURE, got %v", err)
	}
	if !stderrors.Is(err, cause) {
		t.Errorf("expected the generator error to be wrapped, got %v", err)
	}
	if a.Version() != version || a.Description() != description || a.Exponent() != exponent {
		t.Errorf("state changed on failure: version %d->%d, exponent %d->%d, description %q->%q",
			version, a.Version(), exponent, a.Exponent(), description, a.Description())
	}
	if out.Len() != 0 {
		t.Errorf("expected no output on failure, got %q", out.String())
	}

	if err := a.SelfImprove(ctx); err != nil {
		t.Fatalf("SelfImprove after failure failed: %v", err)
	}
	if a.Version() != version+1 {
		t.Errorf("expected version %d after recovery, got %d", version+1, a.Version())
	}
}

func TestSelfImproveKeepsTypedGeneratorError(t *testing.T) {
	typed := errors.New(errors.CodeCodegen, "sandbox refused", nil)
	a, _, _ := newTestAgent(t, WithGenerator(GeneratorFunc(
		func(context.Context, int) (transform.Transform, error) {
			return transform.Transform{}, typed
		})))

	if err := a.SelfImprove(context.Background()); err != typed {
		t.Errorf("expected typed error to pass through, got %v", err)
	}
}

func TestSelfImproveRejectsWrongExponent(t *testing.T) {
	a, _, _ := newTestAgent(t, WithGenerator(GeneratorFunc(
		func(context.Context, int) (transform.Transform, error) {
			return transform.Power(10)
		})))

	err := a.SelfImprove(context.Background())
	if !errors.IsCode(err, errors.CodeCodegen) {
		t.Fatalf("expected CODEGEN_FAILURE, got %v", err)
	}
	if a.Version() != 1 || a.Exponent() != 2 {
		t.Errorf("state changed on failure: version %d exponent %d", a.Version(), a.Exponent())
	}
}

func TestIterativeImprovementOutput(t *testing.T) {
	a, out, rec := newTestAgent(t)

	if err := a.IterativeImprovement(context.Background(), 2, 3, 2*time.Second); err != nil {
		t.Fatalf("IterativeImprovement failed: %v", err)
	}

	want := strings.Join([]string{
		"",
		"--- Running Agent ---",
		"[Version 1] Basic power function: squaring input.",
		"Input: 2 --> Output: 4",
		"--- Initiating Self-Improvement ---",
		"Agent self-improvement complete. Upgraded to version 2.",
		"",
		"--- Running Agent ---",
		"[Version 2] Enhanced power function: raising input to the power of 3.",
		"Input: 2 --> Output: 8",
		"--- Initiating Self-Improvement ---",
		"Agent self-improvement complete. Upgraded to version 3.",
		"",
		"--- Running Agent ---",
		"[Version 3] Enhanced power function: raising input to the power of 4.",
		"Input: 2 --> Output: 16",
		"--- Initiating Self-Improvement ---",
		"Agent self-improvement complete. Upgraded to version 4.",
		"",
	}, "\n")
	if out.String() != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", out.String(), want)
	}
	if a.Version() != 4 {
		t.Errorf("expected version 4, got %d", a.Version())
	}
	if len(rec.calls) != 3 {
		t.Fatalf("expected a sleep after each of 3 cycles, got %d", len(rec.calls))
	}
	for _, d := range rec.calls {
		if d != 2*time.Second {
			t.Errorf("expected 2s delay, got %s", d)
		}
	}
}

func TestIterativeImprovementVersionIsOnePlusN(t *testing.T) {
	for n := 0; n <= 6; n++ {
		a, _, rec := newTestAgent(t)
		if err := a.IterativeImprovement(context.Background(), 2, n, 0); err != nil {
			t.Fatalf("n=%d: IterativeImprovement failed: %v", n, err)
		}
		if a.Version() != 1+n {
			t.Errorf("n=%d: expected version %d, got %d", n, 1+n, a.Version())
		}
		if len(rec.calls) != n {
			t.Errorf("n=%d: expected %d sleeps, got %d", n, n, len(rec.calls))
		}
	}
}

func TestIterativeImprovementZeroIterations(t *testing.T) {
	a, out, rec := newTestAgent(t)

	if err := a.IterativeImprovement(context.Background(), 2, 0, time.Hour); err != nil {
		t.Fatalf("IterativeImprovement failed: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
	if a.Version() != 1 {
		t.Errorf("expected version 1, got %d", a.Version())
	}
	if len(rec.calls) != 0 {
		t.Errorf("expected no sleep, got %v", rec.calls)
	}
}

func TestIterativeImprovementRejectsNegativeArguments(t *testing.T) {
	a, out, _ := newTestAgent(t)

	if err := a.IterativeImprovement(context.Background(), 2, -1, 0); !errors.IsCode(err, errors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for negative iterations, got %v", err)
	}
	if err := a.IterativeImprovement(context.Background(), 2, 1, -time.Second); !errors.IsCode(err, errors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for negative delay, got %v", err)
	}
	if out.Len() != 0 || a.Version() != 1 {
		t.Errorf("expected no effect, got version %d output %q", a.Version(), out.String())
	}
}

func TestIterativeImprovementFailsFastOnInvalidInput(t *testing.T) {
	a, out, rec := newTestAgent(t)

	err := a.IterativeImprovement(context.Background(), "two", 3, time.Second)
	if !errors.IsCode(err, errors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
	if out.String() != "\n--- Running Agent ---\n" {
		t.Errorf("expected output to stop after the first header, got %q", out.String())
	}
	if a.Version() != 1 || len(rec.calls) != 0 {
		t.Errorf("expected no improvement or sleep, got version %d sleeps %d", a.Version(), len(rec.calls))
	}
}

func TestIterativeImprovementFailsFastOnCodegenFailure(t *testing.T) {
	gen := GeneratorFunc(func(ctx context.Context, exponent int) (transform.Transform, error) {
		if exponent == 4 {
			return transform.Transform{}, stderrors.New("boom")
		}
		return transform.Power(exponent)
	})
	a, out, rec := newTestAgent(t, WithGenerator(gen))

	err := a.IterativeImprovement(context.Background(), 2, 5, time.Second)
	if !errors.IsCode(err, errors.CodeCodegen) {
		t.Fatalf("expected CODEGEN_FAILURE, got %v", err)
	}
	if a.Version() != 2 {
		t.Errorf("expected version 2 after one good cycle, got %d", a.Version())
	}
	if len(rec.calls) != 1 {
		t.Errorf("expected one sleep, got %d", len(rec.calls))
	}
	if strings.Count(out.String(), "--- Running Agent ---") != 2 {
		t.Errorf("expected the loop to stop in the second cycle, got %q", out.String())
	}
	if !strings.HasSuffix(out.String(), "--- Initiating Self-Improvement ---\n") {
		t.Errorf("expected output to stop before the confirmation line, got %q", out.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, stderrors.New("closed pipe") }

func TestRunOutputFailure(t *testing.T) {
	a, err := New(WithOutput(failingWriter{}))
	if err != nil {
		t.Fatalf("agent creation failed: %v", err)
	}
	if err := a.Run(context.Background(), 2); !errors.IsCode(err, errors.CodeInternal) {
		t.Errorf("expected INTERNAL_ERROR on write failure, got %v", err)
	}
}
