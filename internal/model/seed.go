package model

import "strings"

// Seed is one row of the listing-seed input: a faculty-list start URL plus
// the department and institution labels it belongs to.
type Seed struct {
	Department  string `json:"department_name_zh"`
	Institution string `json:"school_name_zh"`
	ListURL     string `json:"faculty_list_url"`
}

// SeedIssue records a seed row that failed validation. Issues are diverted
// to the issues log and the row is never crawled.
type SeedIssue struct {
	RowIndex int      `json:"seed_row_index"`
	Issue    string   `json:"issue"`
	Missing  []string `json:"missing_fields,omitempty"`
	Seed     Seed     `json:"row"`
}

const (
	IssueMissingFields = "missing_required_fields"
	IssueInvalidURL    = "invalid_url"
)

// ValidateSeeds splits rows into crawlable seeds and validation issues.
// A seed must carry all three fields and an absolute http(s) URL.
func ValidateSeeds(rows []Seed) ([]Seed, []SeedIssue) {
	var valid []Seed
	var issues []SeedIssue

	for i, row := range rows {
		row.Department = strings.TrimSpace(row.Department)
		row.Institution = strings.TrimSpace(row.Institution)
		row.ListURL = strings.TrimSpace(row.ListURL)

		var missing []string
		if row.Department == "" {
			missing = append(missing, "department_name_zh")
		}
		if row.Institution == "" {
			missing = append(missing, "school_name_zh")
		}
		if row.ListURL == "" {
			missing = append(missing, "faculty_list_url")
		}
		if len(missing) > 0 {
			issues = append(issues, SeedIssue{RowIndex: i, Issue: IssueMissingFields, Missing: missing, Seed: row})
			continue
		}

		if !strings.HasPrefix(row.ListURL, "http://") && !strings.HasPrefix(row.ListURL, "https://") {
			issues = append(issues, SeedIssue{RowIndex: i, Issue: IssueInvalidURL, Seed: row})
			continue
		}

		valid = append(valid, row)
	}

	return valid, issues
}
