package classifier

import "testing"

func TestParseVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		reply      string
		wantScore  int
		scoreless  bool
		assessment string
	}{
		{
			name:       "trailing token",
			reply:      "Great place close to the park.\nMatching: 87%",
			wantScore:  87,
			assessment: "Great place close to the park.",
		},
		{
			name:       "token on same line",
			reply:      "Solid option. Matching: 64%",
			wantScore:  64,
			assessment: "Solid option.",
		},
		{
			name:       "token only",
			reply:      "Matching: 100%",
			wantScore:  100,
			assessment: "",
		},
		{
			name:       "zero score",
			reply:      "Not a fit at all. Matching: 0%",
			wantScore:  0,
			assessment: "Not a fit at all.",
		},
		{
			name:       "trailing whitespace after token",
			reply:      "Decent.\nMatching: 42%  \n",
			wantScore:  42,
			assessment: "Decent.",
		},
		{
			name:       "no token",
			reply:      "This listing looks promising but lacks details.",
			scoreless:  true,
			assessment: "This listing looks promising but lacks details.",
		},
		{
			name:       "token not at end",
			reply:      "Matching: 50% but honestly I am unsure.",
			scoreless:  true,
			assessment: "Matching: 50% but honestly I am unsure.",
		},
		{
			name:       "empty reply",
			reply:      "",
			scoreless:  true,
			assessment: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := ParseVerdict(tt.reply)
			if tt.scoreless {
				if v.Score != nil {
					t.Fatalf("expected scoreless verdict, got %d", *v.Score)
				}
			} else {
				if v.Score == nil {
					t.Fatal("expected a score, got none")
				}
				if *v.Score != tt.wantScore {
					t.Fatalf("score = %d, want %d", *v.Score, tt.wantScore)
				}
			}
			if v.Assessment != tt.assessment {
				t.Fatalf("assessment = %q, want %q", v.Assessment, tt.assessment)
			}
		})
	}
}
