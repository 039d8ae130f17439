// Package moderation implements the content moderation gate applied to every
// review submission and edit before anything is persisted.
package moderation

import (
	"fmt"
	"regexp"
)

// Violation flags attached to reviews that fail moderation.
const (
	FlagOffensiveLanguage = "offensive_language"
	FlagPersonalData      = "personal_data"
)

// generalBlacklist matches offensive language. Patterns cover German and
// English terms; matching is case-insensitive.
var generalBlacklist = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(idiot|dummkopf|arschloch|scheisse|scheiße|fick|hurensohn|wichser)\b`),
	regexp.MustCompile(`(?i)\b(fuck|shit|asshole|bastard|bitch|damn)\b`),
	regexp.MustCompile(`(?i)\b(nazi|rassist|nigger|kanake)\b`),
}

type personalDataPattern struct {
	re       *regexp.Regexp
	dataType string
}

// personalDataPatterns match data that must never appear in a public review.
var personalDataPatterns = []personalDataPattern{
	{regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`), "email address"},
	{regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`), "credit card number"},
	{regexp.MustCompile(`(?i)\bIBAN\s*[A-Z]{2}\d{2}[\s\d]+\b`), "IBAN"},
	{regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`), "phone number"},
}

type industryPattern struct {
	re            *regexp.Regexp
	violationType string
}

// industryFilters hold additional rule sets applied when the merchant's
// industry is regulated. Terms are largely German because the rule sets
// originate from German advertising law.
var industryFilters = map[string][]industryPattern{
	"insurance": {
		{regexp.MustCompile(`(?i)\bVersicherungsnummer\b`), "insurance data"},
		{regexp.MustCompile(`(?i)\bPolice\s*Nr\b`), "insurance data"},
		{regexp.MustCompile(`(?i)\bKontonummer\b`), "bank data"},
	},
	"ecig": {
		{regexp.MustCompile(`(?i)\b(e-liquid|liquid|nikotin|dampf|vape)\b`), "product mention"},
		{regexp.MustCompile(`(?i)\b(rauchen|dampfen)\b`), "consumption reference"},
	},
	"medicine": {
		{regexp.MustCompile(`(?i)\b(wirksam|wirkung|heilung|heilt|therapie)\b`), "efficacy claim"},
		{regexp.MustCompile(`(?i)\b(vorher|nachher|before|after)\b`), "before-after comparison"},
	},
	"supplements": {
		{regexp.MustCompile(`(?i)\b(wirksam|wirkung|abnehmen|muskelaufbau)\b`), "efficacy claim"},
		{regexp.MustCompile(`(?i)\b(vorher|nachher|before|after)\b`), "before-after comparison"},
	},
	"alcohol": {
		{regexp.MustCompile(`(?i)\b(alkohol|bier|wein|schnaps|wodka|whisky)\b`), "alcohol promotion"},
		{regexp.MustCompile(`(?i)\b(betrunken|besaufen|saufen)\b`), "alcohol consumption"},
	},
}

// Result is the outcome of a moderation check.
type Result struct {
	IsClean bool
	Flags   []string
	Reasons []string
}

// Filter evaluates review text against the blacklists. It is stateless and
// safe for concurrent use.
type Filter struct{}

// NewFilter returns a Filter with the built-in rule sets.
func NewFilter() *Filter {
	return &Filter{}
}

// Check scans text for offensive language, personal data, and industry
// violations. Industry may be empty; unknown industries skip the industry
// rules. Empty text is clean.
func (f *Filter) Check(text, industry string) Result {
	if text == "" {
		return Result{IsClean: true}
	}

	var flags, reasons []string

	for _, re := range generalBlacklist {
		if re.MatchString(text) {
			flags = append(flags, FlagOffensiveLanguage)
			reasons = append(reasons, "contains inappropriate language")
			break
		}
	}

	for _, p := range personalDataPatterns {
		if p.re.MatchString(text) {
			flags = append(flags, FlagPersonalData)
			reasons = append(reasons, fmt.Sprintf("contains %s", p.dataType))
		}
	}

	if rules, ok := industryFilters[industry]; ok {
		for _, p := range rules {
			if p.re.MatchString(text) {
				flags = append(flags, "industry_"+industry)
				reasons = append(reasons, fmt.Sprintf("%s not permitted", p.violationType))
			}
		}
	}

	return Result{
		IsClean: len(flags) == 0,
		Flags:   flags,
		Reasons: reasons,
	}
}
