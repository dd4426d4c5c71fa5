package score

import "strings"

// clinicalMarkers indicate substantive guideline content
var clinicalMarkers = []string{
	"refer",
	"consider",
	"offer",
	"should be referred",
	"suspected cancer pathway",
	"symptom and specific features",
	"possible cancer",
	"recommendation",
	"aged",
	"and over",
	"within",
	"weeks",
	"haematuria",
	"hematuria",
	"dysphagia",
	"hoarseness",
	"haemoptysis",
	"hemoptysis",
	"x-ray",
}

// boilerplateMarkers indicate copyright, legal or navigation text
var boilerplateMarkers = []string{
	"all rights reserved",
	"notice of rights",
	"terms-and-conditions",
	"www.nice.org.uk",
	"suspected cancer: recognition and referral",
	"recommendations organised by site of cancer",
	"use this guideline to guide referrals",
	"this guideline covers",
	"contents",
	"introduction",
}

// IsBoilerplate classifies a passage as non-substantive.
// Clinical markers take precedence: a passage with both kinds of marker is kept.
// Empty text is boilerplate.
func IsBoilerplate(text string) bool {
	t := Normalize(text)
	if t == "" {
		return true
	}
	for _, m := range clinicalMarkers {
		if strings.Contains(t, m) {
			return false
		}
	}
	for _, m := range boilerplateMarkers {
		if strings.Contains(t, m) {
			return true
		}
	}
	return false
}
