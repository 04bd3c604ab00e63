package scheduler

import "testing"

func TestClassifyHour(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		hour  int
		start int
		end   int
		want  State
	}{
		{"midnight stays active", 0, 8, 1, Active},
		{"quiet window opens at end hour", 1, 8, 1, Quiet},
		{"deep night is quiet", 4, 8, 1, Quiet},
		{"last quiet hour", 7, 8, 1, Quiet},
		{"start hour wakes up", 8, 8, 1, Active},
		{"midday active", 13, 8, 1, Active},
		{"late evening active", 23, 8, 1, Active},
		{"custom window before end", 2, 9, 3, Active},
		{"custom window at end", 3, 9, 3, Quiet},
		{"custom window last quiet hour", 8, 9, 3, Quiet},
		{"zero window never quiet at night", 3, 0, 0, Active},
		{"zero window never quiet at midnight", 0, 0, 0, Active},
		{"custom window after start", 9, 9, 3, Active},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyHour(tt.hour, tt.start, tt.end); got != tt.want {
				t.Fatalf("ClassifyHour(%d, %d, %d) = %v, want %v", tt.hour, tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	if Active.String() != "active" || Quiet.String() != "quiet" {
		t.Fatalf("unexpected state names: %v %v", Active, Quiet)
	}
}
