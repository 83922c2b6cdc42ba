package service

import (
	"testing"
	"time"
)

func ts(hour, min int) time.Time {
	return time.Date(2025, 6, 1, hour, min, 0, 0, time.UTC)
}

func TestFeeCents(t *testing.T) {
	tests := []struct {
		name  string
		entry time.Time
		exit  time.Time
		rate  uint32
		want  uint32
	}{
		{"two hours one minute bills three hours", ts(10, 0), ts(12, 1), 20, 60},
		{"seventy minutes bills two hours", ts(10, 0), ts(11, 10), 20, 40},
		{"exactly one hour bills one hour", ts(10, 0), ts(11, 0), 20, 20},
		{"one minute bills one hour", ts(10, 0), ts(10, 1), 150, 150},
		{"zero duration is free", ts(10, 0), ts(10, 0), 20, 0},
		{"exit before entry clamps to zero", ts(12, 0), ts(10, 0), 20, 0},
		{"zero rate is free", ts(10, 0), ts(14, 30), 0, 0},
		{"exactly two hours bills two hours", ts(10, 0), ts(12, 0), 250, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FeeCents(tt.entry, tt.exit, tt.rate)
			if got != tt.want {
				t.Errorf("FeeCents(%v, %v, %d) = %d; want %d",
					tt.entry.Format("15:04"), tt.exit.Format("15:04"), tt.rate, got, tt.want)
			}
		})
	}
}

func TestFeeCentsSubMinuteOverrun(t *testing.T) {
	entry := ts(10, 0)
	exit := entry.Add(time.Hour + time.Second)
	if got := FeeCents(entry, exit, 20); got != 40 {
		t.Errorf("FeeCents(1h1s, 20) = %d; want 40", got)
	}
}
