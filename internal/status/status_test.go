package status

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		raw  string
		want Category
	}{
		{"SUCCESS", Success},
		{"success", Success},
		{"Successful", Success},
		{"completed", Success},
		{"paid", Success},

		{"FAILED", Failed},
		{"failure", Failed},
		{"failed_payment", Failed},
		{"error", Failed},

		{"CANCELLED", Cancelled},
		{"canceled", Cancelled},
		{"cancelled_by_user", Cancelled},
		{"user_cancelled", Cancelled},
		{"payment_cancelled", Cancelled},
		{"user_dropped", Cancelled},
		{"dropped", Cancelled},
		{"abandoned", Cancelled},
		{"timeout", Cancelled},

		{"PENDING", Pending},
		{"processing", Pending},
		{"initiated", Pending},
		{"in_progress", Pending},
		{"awaiting_payment", Pending},
		{"retry_created", Pending},
	}

	for _, tc := range cases {
		if got := Classify(tc.raw); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestClassifyUnknownDefaultsToPending(t *testing.T) {
	for _, raw := range []string{"", "banana", "SUCCESSFULLY", "completed payment", "fail ed"} {
		if got := Classify(raw); got != Pending {
			t.Errorf("Classify(%q) = %q, want %q", raw, got, Pending)
		}
	}
}

func TestClassifyTrimsWhitespace(t *testing.T) {
	if got := Classify("  Success  "); got != Success {
		t.Errorf("Classify with padding = %q, want %q", got, Success)
	}
}
