package model

import "strings"

// RecordKey identifies one professor record across every pipeline stage.
// It is a natural key built from semantic fields only; stores never assign
// surrogate ids. The struct is comparable and used directly as a map key.
type RecordKey struct {
	Department  string `json:"department_name_zh"`
	Institution string `json:"school_name_zh"`
	NameZH      string `json:"name_zh"`
	NameEN      string `json:"name_en"`
}

// String renders the key for logs and review-queue references.
func (k RecordKey) String() string {
	return strings.Join([]string{k.Department, k.Institution, k.NameZH, k.NameEN}, "|")
}

// IsZero reports whether no identifying field is set.
func (k RecordKey) IsZero() bool {
	return k == RecordKey{}
}
