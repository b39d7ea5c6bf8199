// Package normalize maps free-text institution names to canonical codes: a
// curated alias table first, a confidence-gated capability fallback second,
// and a manual review queue for everything uncertain.
package normalize

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// AliasTable maps institution-name aliases to canonical codes. Containment
// lookups prefer the longest alias so a value embedding several aliases
// resolves deterministically instead of by declaration order.
type AliasTable struct {
	codes   map[string]string
	ordered []string // aliases sorted longest first, then lexicographic
}

// NewAliasTable builds a table from alias → code pairs.
func NewAliasTable(codes map[string]string) *AliasTable {
	t := &AliasTable{codes: make(map[string]string, len(codes))}
	for alias, code := range codes {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}
		t.codes[alias] = strings.TrimSpace(code)
		t.ordered = append(t.ordered, alias)
	}
	sort.Slice(t.ordered, func(i, j int) bool {
		a, b := t.ordered[i], t.ordered[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return t
}

// DefaultAliasTable returns the built-in curated table.
func DefaultAliasTable() *AliasTable {
	return NewAliasTable(map[string]string{
		"北大":           "PKU",
		"北京大学":         "PKU",
		"北京大学物理学院":     "PKU",
		"北京大学物理系":      "PKU",
		"中国科学院":        "CAS",
		"中科院":          "CAS",
		"中科院物理所":       "CAS",
		"中国科学院物理研究所":   "CAS",
		"清华大学":         "THU",
		"复旦大学":         "FDU",
		"上海交通大学":       "SJTU",
		"浙江大学":         "ZJU",
		"南京大学":         "NJU",
		"中国科学技术大学":     "USTC",
		"武汉大学":         "WHU",
		"吉林大学":         "JLU",
	})
}

// LoadAliasFile reads an alias → code YAML mapping from disk.
func LoadAliasFile(path string) (*AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: read alias file %s", path)
	}
	var codes map[string]string
	if err := yaml.Unmarshal(data, &codes); err != nil {
		return nil, eris.Wrapf(err, "normalize: parse alias file %s", path)
	}
	return NewAliasTable(codes), nil
}

// Resolve attempts deterministic resolution: exact alias match first, then
// longest-alias substring containment. ok is false when neither applies.
func (t *AliasTable) Resolve(value string) (code string, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", true
	}
	if code, found := t.codes[value]; found {
		return code, true
	}
	for _, alias := range t.ordered {
		if strings.Contains(value, alias) {
			return t.codes[alias], true
		}
	}
	return "", false
}
