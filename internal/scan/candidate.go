package scan

// Candidate is a catalog release found by a lookup strategy.
type Candidate struct {
	ReleaseID int64    `json:"releaseId"`
	Score     float64  `json:"score"`
	Reasons   []string `json:"reasons"`
	Title     string   `json:"title"`
	Year      int      `json:"year,omitempty"`
	Country   string   `json:"country,omitempty"`
	Label     string   `json:"label,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	CatNo     string   `json:"catno,omitempty"`
	Barcodes  []string `json:"barcodes,omitempty"`
	Thumb     string   `json:"thumb,omitempty"`
	URI       string   `json:"uri,omitempty"`
}

// AddReason appends a reason tag once.
func (c *Candidate) AddReason(reason string) {
	for _, existing := range c.Reasons {
		if existing == reason {
			return
		}
	}
	c.Reasons = append(c.Reasons, reason)
}
