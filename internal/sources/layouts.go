package sources

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	InternshalaName = "internshala"
	LinkedInName    = "linkedin"
	NaukriName      = "naukri"
)

func Internshala() Layout {
	return Layout{
		Name:    InternshalaName,
		BaseURL: "https://internshala.com",
		PageURL: func(keyword, location string, page int) string {
			kw, loc := slug(keyword), slug(location)
			var path string
			switch {
			case kw != "" && loc != "":
				path = fmt.Sprintf("https://internshala.com/internships/%s-internship-in-%s", kw, loc)
			case kw != "":
				path = "https://internshala.com/internships/keywords-" + kw
			case loc != "":
				path = "https://internshala.com/internships/internship-in-" + loc
			default:
				path = "https://internshala.com/internships"
			}
			if page > 1 {
				path += "/page-" + strconv.Itoa(page)
			}
			return path + "/"
		},
		Marker: "#internship_list_container_1, .individual_internship",
		Card:   ".individual_internship",
		Fields: []Field{
			{Role: "title", Selectors: []string{".job-internship-name a", "h3.job-internship-name", ".profile a"}},
			{Role: "company", Selectors: []string{".company-name", ".company_name a", ".company_name"}},
			{Role: "location", Selectors: []string{".locations a", ".locations span", "#location_names a"}},
			{Role: "stipend", Selectors: []string{".stipend", ".stipend_container .desktop"}},
			{Role: "duration", Selectors: []string{".row-1-item .ic-16-calendar + span", ".other_detail_item_row .item_body"}},
			{Role: "deadline", Selectors: []string{".apply_by .item_body", ".status-info .apply_by"}},
			{Role: "description", Selectors: []string{".about_job .text", ".internship_other_details_container"}},
			{Role: "skills", Selectors: []string{".job_skills .job_skill", ".round_tabs"}, List: true},
			{Role: "link", Selectors: []string{".job-internship-name a", "a.job-title-href", ".profile a"}, Attr: "href"},
			{Role: "link", Selectors: []string{""}, Attr: "data-href"},
		},
	}
}

func LinkedIn() Layout {
	return Layout{
		Name:    LinkedInName,
		BaseURL: "https://www.linkedin.com",
		PageURL: func(keyword, location string, page int) string {
			query := url.Values{}
			query.Set("keywords", strings.TrimSpace(keyword+" intern"))
			if location != "" {
				query.Set("location", location)
			}
			// f_E=1 restricts to internship experience level.
			query.Set("f_E", "1")
			if page > 1 {
				query.Set("start", strconv.Itoa((page-1)*25))
			}
			return "https://www.linkedin.com/jobs/search?" + query.Encode()
		},
		Marker: "ul.jobs-search__results-list",
		Card:   "ul.jobs-search__results-list > li",
		Fields: []Field{
			{Role: "title", Selectors: []string{"h3.base-search-card__title", ".base-search-card__title"}},
			{Role: "company", Selectors: []string{"h4.base-search-card__subtitle a", "h4.base-search-card__subtitle"}},
			{Role: "location", Selectors: []string{".job-search-card__location"}},
			{Role: "description", Selectors: []string{".job-search-card__snippet", ".base-search-card__metadata"}},
			{Role: "experience", Selectors: []string{".job-search-card__experience-level"}},
			{Role: "link", Selectors: []string{"a.base-card__full-link", "a.base-card"}, Attr: "href"},
		},
	}
}

func Naukri() Layout {
	return Layout{
		Name:    NaukriName,
		BaseURL: "https://www.naukri.com",
		PageURL: func(keyword, location string, page int) string {
			path := "https://www.naukri.com/internship-jobs"
			if kw := slug(keyword); kw != "" {
				path = "https://www.naukri.com/" + kw + "-internship-jobs"
			}
			if loc := slug(location); loc != "" {
				path += "-in-" + loc
			}
			if page > 1 {
				path += "-" + strconv.Itoa(page)
			}
			return path
		},
		Marker: ".srp-jobtuple-wrapper, .cust-job-tuple",
		Card:   ".srp-jobtuple-wrapper",
		Fields: []Field{
			{Role: "title", Selectors: []string{"a.title", ".row1 a"}},
			{Role: "company", Selectors: []string{"a.comp-name", ".comp-name"}},
			{Role: "location", Selectors: []string{".locWdth", ".loc-wrap span"}},
			{Role: "experience", Selectors: []string{".expwdth", ".exp-wrap span"}},
			{Role: "stipend", Selectors: []string{".sal-wrap span", ".sal"}},
			{Role: "description", Selectors: []string{".job-desc", ".job-description"}},
			{Role: "skills", Selectors: []string{"ul.tags-gt li", ".tags li"}, List: true},
			{Role: "link", Selectors: []string{"a.title"}, Attr: "href"},
		},
	}
}
