package score

import "testing"

func TestIsBoilerplate_ClinicalMarkersWin(t *testing.T) {
	for _, marker := range clinicalMarkers {
		for _, bp := range boilerplateMarkers {
			text := "© NICE 2025. " + bp + ". Some text about " + marker + " here."
			if IsBoilerplate(text) {
				t.Errorf("expected clinical marker %q to override boilerplate marker %q", marker, bp)
			}
		}
	}
}

func TestIsBoilerplate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", true},
		{"whitespace only", "  \n\t ", true},
		{"rights notice", "All rights reserved. Subject to Notice of rights.", true},
		{"navigation", "Contents\n\nIntroduction", true},
		{"mixed case and spacing", "WWW.NICE.ORG.UK   /terms-and-conditions", true},
		{"referral text", "Refer people using a suspected cancer pathway referral for lung cancer if they are aged 40 and over", false},
		{"neutral prose", "The committee discussed the evidence base.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBoilerplate(tt.text); got != tt.want {
				t.Errorf("IsBoilerplate(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
