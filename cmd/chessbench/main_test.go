package main

import (
	"errors"
	"fmt"
	"testing"

	"chessbench/internal/config"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"config error", config.Errorf("no such file"), 1},
		{"wrapped config error", fmt.Errorf("loading: %w", config.Errorf("bad yaml")), 1},
		{"validation error", config.Validationf("protocol.mode", "unknown mode"), 1},
		{"wrapped validation error", fmt.Errorf("resolve: %w", config.Validationf("budget.max_total_usd", "must be positive")), 1},
		{"runtime error", errors.New("provider unreachable"), 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
