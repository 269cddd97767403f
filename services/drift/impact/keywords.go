// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package impact

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// MaxKeywordTerms bounds how many terms a keyword file may define.
const MaxKeywordTerms = 100

// defaultKeywordsYAML is the significance keyword list baked into the
// binary, so the assessor needs no runtime configuration to work.
//
//go:embed significance_keywords.yaml
var defaultKeywordsYAML []byte

type keywordCategoryYAML struct {
	Name  string   `yaml:"name"`
	Terms []string `yaml:"terms"`
}

type keywordFileYAML struct {
	Categories []keywordCategoryYAML `yaml:"categories"`
}

// KeywordSet is a compiled significance-keyword list.
//
// Thread Safety: read-only after construction, safe for concurrent use.
type KeywordSet struct {
	terms    []string
	patterns []*regexp.Regexp
}

// ParseKeywords compiles a keyword YAML document into a KeywordSet.
//
// Terms are lowercased, deduplicated, and sorted. Each term matches on
// word boundaries, case-insensitively, so "if" does not count the "if" in
// "diff".
func ParseKeywords(data []byte) (*KeywordSet, error) {
	var file keywordFileYAML
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing keyword yaml: %w", err)
	}

	seen := make(map[string]bool)
	var terms []string
	for _, cat := range file.Categories {
		for _, term := range cat.Terms {
			term = strings.ToLower(strings.TrimSpace(term))
			if term == "" || seen[term] {
				continue
			}
			seen[term] = true
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("keyword yaml defines no terms")
	}
	if len(terms) > MaxKeywordTerms {
		return nil, fmt.Errorf("keyword yaml defines %d terms, maximum is %d", len(terms), MaxKeywordTerms)
	}
	sort.Strings(terms)

	ks := &KeywordSet{
		terms:    terms,
		patterns: make([]*regexp.Regexp, len(terms)),
	}
	for i, term := range terms {
		pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("compiling keyword %q: %w", term, err)
		}
		ks.patterns[i] = pattern
	}
	return ks, nil
}

var (
	keywordsOnce sync.Once
	keywordsSet  *KeywordSet
	keywordsErr  error
)

// DefaultKeywords returns the embedded keyword set, compiled once.
func DefaultKeywords() (*KeywordSet, error) {
	keywordsOnce.Do(func() {
		keywordsSet, keywordsErr = ParseKeywords(defaultKeywordsYAML)
	})
	return keywordsSet, keywordsErr
}

// Terms returns a copy of the compiled term list.
func (k *KeywordSet) Terms() []string {
	out := make([]string, len(k.terms))
	copy(out, k.terms)
	return out
}

// Len returns the number of compiled terms.
func (k *KeywordSet) Len() int {
	return len(k.terms)
}

// CountDeltas returns how many terms have a different occurrence count in
// the two sources.
func (k *KeywordSet) CountDeltas(oldSource, newSource string) int {
	deltas := 0
	for _, p := range k.patterns {
		if len(p.FindAllStringIndex(oldSource, -1)) != len(p.FindAllStringIndex(newSource, -1)) {
			deltas++
		}
	}
	return deltas
}
