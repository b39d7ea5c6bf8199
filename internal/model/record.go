package model

import "strings"

// ListingPage is one captured page of a paginated faculty listing. Immutable
// once written; ContentRef doubles as its merge key and as the lookup key
// into the page cache.
type ListingPage struct {
	Department  string `json:"department_name_zh"`
	Institution string `json:"school_name_zh"`
	SeedURL     string `json:"seed_faculty_list_url"`
	PageURL     string `json:"listing_page_url"`
	PageIndex   int    `json:"page_index"`
	SeedIndex   int    `json:"seed_row_index"`
	ContentRef  string `json:"content_ref"`
	CrawlDate   string `json:"crawl_date"`
}

// Key returns the merge key for a listing page.
func (p ListingPage) Key() string {
	if p.ContentRef != "" {
		return p.ContentRef
	}
	return strings.Join([]string{p.PageURL, p.SeedURL}, "|")
}

// NameCandidate is a token extracted from a listing page that might be a
// person's name, with the profile link it was anchored to, if any.
type NameCandidate struct {
	Department  string `json:"department_name_zh"`
	Institution string `json:"school_name_zh"`
	Name        string `json:"name_candidate"`
	ProfileURL  string `json:"profile_url"`
	ContentRef  string `json:"content_ref"`
	PageURL     string `json:"listing_page_url"`
	SeedIndex   int    `json:"seed_row_index"`
	CrawlDate   string `json:"crawl_date"`
}

// Key returns the merge key for a candidate row.
func (c NameCandidate) Key() string {
	return strings.Join([]string{c.Department, c.Institution, c.Name, c.ProfileURL, c.PageURL}, "|")
}

// ProfessorName is a classified faculty name. Exactly one of NameZH/NameEN
// is set. Rows are never mutated after creation; later runs only add keys.
type ProfessorName struct {
	Department  string `json:"department_name_zh"`
	Institution string `json:"school_name_zh"`
	NameZH      string `json:"name_zh"`
	NameEN      string `json:"name_en"`
	ProfileURL  string `json:"profile_url"`
	Source      string `json:"source"`
	CrawlDate   string `json:"crawl_date"`
}

// Key returns the record's natural key.
func (p ProfessorName) Key() RecordKey {
	return RecordKey{Department: p.Department, Institution: p.Institution, NameZH: p.NameZH, NameEN: p.NameEN}
}

// Status values for EnrichedRecord. The status is derived, never authored.
const (
	StatusComplete   = "complete"
	StatusIncomplete = "incomplete"
)

// EnrichedRecord extends a ProfessorName with academic history fields
// produced by the enrichment capability.
type EnrichedRecord struct {
	Department  string `json:"department_name_zh"`
	Institution string `json:"school_name_zh"`
	NameZH      string `json:"name_zh"`
	NameEN      string `json:"name_en"`
	Title       string `json:"title"`
	ProfileURL  string `json:"profile_url"`
	BSSchool    string `json:"bs_school"`
	MSSchool    string `json:"ms_school"`
	PhDSchool   string `json:"phd_school"`
	JoinYear    string `json:"join_year"`
	Status      string `json:"status"`
	Notes       string `json:"notes"`
	CrawlDate   string `json:"crawl_date"`
}

// Key returns the record's natural key.
func (r EnrichedRecord) Key() RecordKey {
	return RecordKey{Department: r.Department, Institution: r.Institution, NameZH: r.NameZH, NameEN: r.NameEN}
}

// CompletionStatus derives the record status: complete iff the bachelor
// institution, the doctoral institution, and the join year are all present.
// Callers re-derive on every read and write so the field cannot go stale.
func (r EnrichedRecord) CompletionStatus() string {
	if strings.TrimSpace(r.BSSchool) != "" &&
		strings.TrimSpace(r.PhDSchool) != "" &&
		strings.TrimSpace(r.JoinYear) != "" {
		return StatusComplete
	}
	return StatusIncomplete
}

// ReviewItem is one entry of the manual normalization review queue.
type ReviewItem struct {
	RowKey     string  `json:"row_key"`
	Field      string  `json:"field"`
	Original   string  `json:"original_value"`
	Proposed   string  `json:"model_abbr"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	CreatedAt  string  `json:"created_at"`
}

// Key dedups review entries per (record key, field, original value) so an
// unresolved value is queued exactly once across reruns.
func (r ReviewItem) Key() string {
	return strings.Join([]string{r.RowKey, r.Field, r.Original}, "|")
}
