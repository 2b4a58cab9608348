package period

import (
	"testing"
	"time"
)

func TestMonthStartUTC_TableTests(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "middle of month",
			in:   time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
			want: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "first day keeps month",
			in:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "last instant of month",
			in:   time.Date(2026, 3, 31, 23, 59, 59, 999999999, time.UTC),
			want: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "non UTC zone converts before truncation",
			in:   time.Date(2026, 4, 1, 1, 0, 0, 0, time.FixedZone("UTC+5", 5*3600)),
			want: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "december stays in year",
			in:   time.Date(2025, 12, 31, 12, 0, 0, 0, time.UTC),
			want: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthStartUTC(tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("MonthStartUTC(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAddMonths(t *testing.T) {
	base := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	got := AddMonths(base, 1)
	want := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("AddMonths(%v, 1) = %v, want %v (Go normalizes day overflow)", base, got, want)
	}

	got = AddMonths(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), -2)
	want = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("AddMonths backward = %v, want %v", got, want)
	}
}

func TestRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 8, 23, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name            string
		retentionMonths int
		want            time.Time
	}{
		{
			name:            "keep one month keeps only current",
			retentionMonths: 1,
			want:            time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:            "keep twelve months",
			retentionMonths: 12,
			want:            time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:            "cutoff crosses year boundary",
			retentionMonths: 10,
			want:            time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RetentionCutoff(now, tt.retentionMonths)
			if !got.Equal(tt.want) {
				t.Errorf("RetentionCutoff(now, %d) = %v, want %v", tt.retentionMonths, got, tt.want)
			}
		})
	}
}
