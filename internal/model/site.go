package model

import "strings"

// Site is a coarse anatomical bucket used to bias relevance scoring
type Site string

const (
	SiteLung       Site = "lung"
	SiteUpperGI    Site = "upper_gi"
	SiteColorectal Site = "colorectal"
	SiteBreast     Site = "breast"
	SiteUrology    Site = "urology"
	SiteHeadNeck   Site = "head_neck"
	SiteGeneral    Site = "general"
)

// Sites lists the closed site vocabulary in prompt order
var Sites = []Site{SiteLung, SiteUpperGI, SiteColorectal, SiteBreast, SiteUrology, SiteHeadNeck, SiteGeneral}

// siteSynonyms are the lowercase phrases that indicate a passage concerns a site
var siteSynonyms = map[Site][]string{
	SiteLung:       {"lung", "respiratory", "chest x-ray"},
	SiteUpperGI:    {"upper gi", "upper gastrointestinal", "oesophageal", "oesophagus", "stomach"},
	SiteColorectal: {"colorectal", "bowel", "rectal bleeding", "rectal mass", "anal cancer", "anal mass"},
	SiteBreast:     {"breast"},
	SiteUrology:    {"urology", "urological", "bladder", "prostate", "renal", "kidney"},
	SiteHeadNeck:   {"head and neck", "laryngeal", "oral cavity", "thyroid"},
}

// ParseSite coerces free text into the site vocabulary; anything unrecognised is general
func ParseSite(s string) Site {
	token := strings.ToLower(strings.TrimSpace(s))
	token = strings.Trim(token, ".,;:'\"`")
	for _, site := range Sites {
		if token == string(site) {
			return site
		}
	}
	return SiteGeneral
}

// Synonyms returns the phrases that mark a passage as relevant to the site.
// The general bucket has none.
func (s Site) Synonyms() []string {
	if s == SiteGeneral || s == "" {
		return nil
	}
	syn, ok := siteSynonyms[s]
	if !ok {
		return []string{strings.ReplaceAll(string(s), "_", " ")}
	}
	return syn
}
