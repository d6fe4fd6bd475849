package posting

// RawRecord is an unvalidated listing as extracted by a source adapter.
// Every field is optional except Source.
type RawRecord struct {
	Title            string   `mapstructure:"title" json:"title,omitempty"`
	Company          string   `mapstructure:"company" json:"company,omitempty"`
	Location         string   `mapstructure:"location" json:"location,omitempty"`
	Description      string   `mapstructure:"description" json:"description,omitempty"`
	Stipend          string   `mapstructure:"stipend" json:"stipend,omitempty"`
	Duration         string   `mapstructure:"duration" json:"duration,omitempty"`
	Link             string   `mapstructure:"link" json:"link,omitempty"`
	Deadline         string   `mapstructure:"deadline" json:"deadline,omitempty"`
	Experience       string   `mapstructure:"experience" json:"experience,omitempty"`
	Skills           []string `mapstructure:"skills" json:"skills,omitempty"`
	Responsibilities []string `mapstructure:"responsibilities" json:"responsibilities,omitempty"`
	Qualifications   []string `mapstructure:"qualifications" json:"qualifications,omitempty"`
	Source           string   `mapstructure:"source" json:"source"`
}

// Records is a batch of raw records flowing through the filter pipeline.
type Records struct {
	Items []*RawRecord
}

func (r *Records) Len() int {
	return len(r.Items)
}

// Keep retains the records for which keep returns true and returns the dropped ones.
// Order of the kept records is preserved.
func (r *Records) Keep(keep func(*RawRecord) bool) []*RawRecord {
	var dropped []*RawRecord
	kept := r.Items[:0]
	for _, record := range r.Items {
		if keep(record) {
			kept = append(kept, record)
			continue
		}
		dropped = append(dropped, record)
	}
	r.Items = kept
	return dropped
}

// Titles returns the titles of the records, handy for log fields.
func Titles(records []*RawRecord) []string {
	titles := make([]string, 0, len(records))
	for _, record := range records {
		titles = append(titles, record.Title)
	}
	return titles
}
