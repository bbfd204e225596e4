package discogs

import (
	"strconv"
	"strings"
)

// SearchResult is one entry of a /database/search response.
type SearchResult struct {
	ID          int64    `json:"id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Year        string   `json:"year"`
	Country     string   `json:"country"`
	Label       []string `json:"label"`
	CatNo       string   `json:"catno"`
	Barcode     []string `json:"barcode"`
	Format      []string `json:"format"`
	Thumb       string   `json:"thumb"`
	URI         string   `json:"uri"`
	ResourceURL string   `json:"resource_url"`
}

// YearValue parses the year string Discogs returns in search results.
func (r SearchResult) YearValue() int {
	year, err := strconv.Atoi(strings.TrimSpace(r.Year))
	if err != nil {
		return 0
	}
	return year
}

// PrimaryLabel returns the first listed label.
func (r SearchResult) PrimaryLabel() string {
	for _, label := range r.Label {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// Pagination describes the paging envelope of search responses.
type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Items   int `json:"items"`
}

// SearchResponse models the paginated search response.
type SearchResponse struct {
	Pagination Pagination     `json:"pagination"`
	Results    []SearchResult `json:"results"`
}

// Artist is a credited artist on a release.
type Artist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Join string `json:"join"`
}

// LabelCredit is a label and catalog number pair on a release.
type LabelCredit struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	CatNo string `json:"catno"`
}

// Identifier is a printed code listed on a release (barcode, matrix, ...).
type Identifier struct {
	Type        string `json:"type"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// Release is the subset of /releases/{id} used for display backfill.
type Release struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Artists     []Artist      `json:"artists"`
	Labels      []LabelCredit `json:"labels"`
	Year        int           `json:"year"`
	Country     string        `json:"country"`
	Released    string        `json:"released"`
	Identifiers []Identifier  `json:"identifiers"`
	URI         string        `json:"uri"`
}

// ArtistName joins the credited artists the way Discogs displays them,
// dropping the numeric disambiguation suffix ("Prince (2)").
func (r Release) ArtistName() string {
	names := make([]Artist, 0, len(r.Artists))
	for _, artist := range r.Artists {
		if name := stripDisambiguation(artist.Name); name != "" {
			names = append(names, Artist{Name: name, Join: strings.TrimSpace(artist.Join)})
		}
	}
	var builder strings.Builder
	for i, artist := range names {
		builder.WriteString(artist.Name)
		if i == len(names)-1 {
			break
		}
		switch artist.Join {
		case "", ",":
			builder.WriteString(", ")
		default:
			builder.WriteString(" " + artist.Join + " ")
		}
	}
	return builder.String()
}

func stripDisambiguation(name string) string {
	name = strings.TrimSpace(name)
	if !strings.HasSuffix(name, ")") {
		return name
	}
	open := strings.LastIndex(name, " (")
	if open < 0 {
		return name
	}
	if _, err := strconv.Atoi(name[open+2 : len(name)-1]); err != nil {
		return name
	}
	return strings.TrimSpace(name[:open])
}

// PrimaryLabel returns the first label credit.
func (r Release) PrimaryLabel() (LabelCredit, bool) {
	for _, label := range r.Labels {
		if strings.TrimSpace(label.Name) != "" {
			return label, true
		}
	}
	return LabelCredit{}, false
}
