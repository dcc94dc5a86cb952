package job

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/miragelabs/mirage/internal/log"
	"github.com/miragelabs/mirage/internal/tools"
)

func TestClampSeconds(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, 1},
		{-5, 1},
		{1, 1},
		{60, 60},
		{120, 120},
		{121, 120},
		{500, 120},
	}
	for _, tc := range cases {
		if got := clampSeconds(tc.in); got != tc.want {
			t.Errorf("clampSeconds(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestWaitTicksOncePerInterval(t *testing.T) {
	tool := newWaitTool(log.NewNop(), time.Millisecond)

	var ticks []string
	tc := &tools.Context{Progress: func(p, total float64, msg string) {
		ticks = append(ticks, msg)
	}}

	res, err := tool.Handler(context.Background(), tc, map[string]any{"seconds": 5})
	if err != nil {
		t.Fatalf("wait: %v", err)
	}

	if len(ticks) != 5 {
		t.Errorf("ticks = %d, want 5", len(ticks))
	}
	if len(ticks) > 0 && ticks[0] != "waited 1 of 5 seconds" {
		t.Errorf("first tick = %q", ticks[0])
	}
	if !strings.Contains(res.Content[0].Text, "waited 5 seconds") {
		t.Errorf("result = %q, want waited 5 seconds", res.Content[0].Text)
	}
}

func TestWaitClampsHighRequest(t *testing.T) {
	tool := newWaitTool(log.NewNop(), time.Millisecond)

	var count int
	var lastTotal float64
	tc := &tools.Context{Progress: func(p, total float64, msg string) {
		count++
		lastTotal = total
	}}

	res, err := tool.Handler(context.Background(), tc, map[string]any{"seconds": 500})
	if err != nil {
		t.Fatalf("wait: %v", err)
	}

	if count != maxWaitSeconds {
		t.Errorf("ticks = %d, want %d", count, maxWaitSeconds)
	}
	if lastTotal != float64(maxWaitSeconds) {
		t.Errorf("total = %v, want %d", lastTotal, maxWaitSeconds)
	}
	if !strings.Contains(res.Content[0].Text, "waited 120 seconds") {
		t.Errorf("result = %q, want clamped duration reported", res.Content[0].Text)
	}
}

func TestWaitClampsZeroToMinimum(t *testing.T) {
	tool := newWaitTool(log.NewNop(), time.Millisecond)

	var count int
	tc := &tools.Context{Progress: func(p, total float64, msg string) { count++ }}

	if _, err := tool.Handler(context.Background(), tc, map[string]any{"seconds": 0}); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if count != 1 {
		t.Errorf("ticks = %d, want at least the minimum 1", count)
	}
}

func TestWaitDefaultsSeconds(t *testing.T) {
	tool := newWaitTool(log.NewNop(), time.Millisecond)

	var count int
	tc := &tools.Context{Progress: func(p, total float64, msg string) { count++ }}

	if _, err := tool.Handler(context.Background(), tc, map[string]any{}); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if count != defaultWaitSeconds {
		t.Errorf("ticks = %d, want default %d", count, defaultWaitSeconds)
	}
}

func TestWaitAbortsOnCancellation(t *testing.T) {
	tool := newWaitTool(log.NewNop(), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	var count int
	tc := &tools.Context{Progress: func(p, total float64, msg string) {
		count++
		if count == 2 {
			cancel()
		}
	}}

	_, err := tool.Handler(ctx, tc, map[string]any{"seconds": 100})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !strings.Contains(err.Error(), "operation was aborted") {
		t.Errorf("err = %v, want abort message", err)
	}
	if count >= 100 {
		t.Errorf("ticks = %d, want early stop", count)
	}
}

func TestWaitSchemaBounds(t *testing.T) {
	tool := NewWaitTool(log.NewNop())

	prop, ok := tool.InputSchema.Properties["seconds"]
	if !ok {
		t.Fatal("schema missing seconds property")
	}
	if prop.Minimum == nil || *prop.Minimum != 1 {
		t.Errorf("minimum = %v, want 1", prop.Minimum)
	}
	if prop.Maximum == nil || *prop.Maximum != 120 {
		t.Errorf("maximum = %v, want 120", prop.Maximum)
	}
}
