package letter

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/appeal-cli/internal/model"
	"github.com/sells-group/appeal-cli/internal/valuation"
)

//go:embed counties.yaml
var embeddedCounties []byte

var pilotFIPS = map[string]string{
	"39049": "franklin_oh",
	"17031": "cook_il",
	"48453": "travis_tx",
}

// addressKeywords maps a county key to words that must all appear in a
// lower-cased property address.
var addressKeywords = []struct {
	key   string
	words []string
}{
	{"franklin_oh", []string{"franklin", "oh"}},
	{"cook_il", []string{"cook", "il"}},
	{"travis_tx", []string{"travis", "tx"}},
}

// Channel is one way to submit an appeal.
type Channel struct {
	Type                string `json:"type"`
	Label               string `json:"label,omitempty"`
	URL                 string `json:"url,omitempty"`
	Value               string `json:"value,omitempty"`
	Address             string `json:"address,omitempty"`
	Note                string `json:"note,omitempty"`
	PostmarkRequirement string `json:"postmarkRequirement,omitempty"`
}

// Form is a downloadable appeal form.
type Form struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// FilingWindow is the main appeal filing period.
type FilingWindow struct {
	Start    *string `json:"start"`
	End      *string `json:"end"`
	Notes    *string `json:"notes"`
	Timezone *string `json:"timezone"`
}

// AlternateWindow is a secondary filing period, such as a second appeal board.
type AlternateWindow struct {
	Notes       *string `json:"notes"`
	CalendarURL *string `json:"calendarUrl"`
}

// CountyMetadata is the filing guidance for one county.
type CountyMetadata struct {
	Jurisdiction       string                     `json:"jurisdiction"`
	TaxYear            *string                    `json:"taxYear"`
	PrimaryAuthority   *string                    `json:"primaryAuthority"`
	Notes              *string                    `json:"notes,omitempty"`
	FilingWindow       *FilingWindow              `json:"filingWindow,omitempty"`
	AlternateWindows   map[string]AlternateWindow `json:"alternateWindows,omitempty"`
	SubmissionChannels []Channel                  `json:"submissionChannels"`
	Forms              []Form                     `json:"forms"`
}

// Counties holds raw county guidance keyed by county key.
type Counties struct {
	raw map[string]map[string]any
}

// LoadCounties reads guidance from path, or the embedded pilot file when
// path is empty.
func LoadCounties(path string) (*Counties, error) {
	data := embeddedCounties
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "letter: read counties file %s", path)
		}
		data = b
	}
	return ParseCounties(data)
}

// ParseCounties decodes county guidance YAML.
func ParseCounties(data []byte) (*Counties, error) {
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "letter: decode counties")
	}
	return &Counties{raw: raw}, nil
}

// Resolve picks the county for an assessment: the analytics FIPS code
// when it is a pilot county, else keywords in the property address. It
// returns nil when no county matches.
func (c *Counties) Resolve(analytics *valuation.Analytics, assessment model.AssessmentExtraction) *CountyMetadata {
	var key string
	if analytics != nil && analytics.CountyFIPS != nil {
		key = pilotFIPS[*analytics.CountyFIPS]
	}
	if key == "" && assessment.PropertyAddress != nil {
		addr := strings.ToLower(*assessment.PropertyAddress)
		for _, k := range addressKeywords {
			if containsAll(addr, k.words) {
				key = k.key
				break
			}
		}
	}
	if key == "" {
		return nil
	}
	meta, ok := c.raw[key]
	if !ok || meta == nil {
		return nil
	}
	return mapCounty(key, meta)
}

func containsAll(s string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(s, w) {
			return false
		}
	}
	return true
}

func mapCounty(key string, meta map[string]any) *CountyMetadata {
	out := &CountyMetadata{
		Jurisdiction:       key,
		TaxYear:            scalar(meta["tax_year"]),
		PrimaryAuthority:   primaryAuthority(meta),
		Notes:              text(meta["notes"]),
		FilingWindow:       filingWindow(meta),
		AlternateWindows:   alternateWindows(meta),
		SubmissionChannels: channels(meta),
		Forms:              forms(meta),
	}
	if j := text(meta["jurisdiction"]); j != nil {
		out.Jurisdiction = *j
	}
	return out
}

func text(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func scalar(v any) *string {
	switch t := v.(type) {
	case string:
		return &t
	case int:
		s := fmt.Sprintf("%d", t)
		return &s
	case float64:
		s := fmt.Sprintf("%g", t)
		return &s
	}
	return nil
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func firstOf(meta map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := meta[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// sortedKeys gives grouped sections a stable order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// listOrGroups flattens either a list or a map of lists.
func listOrGroups(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		var out []any
		for _, k := range sortedKeys(t) {
			if items, ok := t[k].([]any); ok {
				out = append(out, items...)
			}
		}
		return out
	}
	return nil
}

func primaryAuthority(meta map[string]any) *string {
	if a, ok := meta["appeal_authority"].(map[string]any); ok {
		if name := strings.TrimSpace(str(a, "name")); name != "" {
			return &name
		}
	}
	if all, ok := meta["appeal_authorities"].(map[string]any); ok {
		for _, k := range sortedKeys(all) {
			if a, ok := all[k].(map[string]any); ok {
				if name := str(a, "name"); name != "" {
					return &name
				}
			}
		}
	}
	return nil
}

func channels(meta map[string]any) []Channel {
	out := []Channel{}
	for _, item := range listOrGroups(firstOf(meta, "submission_channels", "submissionChannels")) {
		c, ok := item.(map[string]any)
		if !ok {
			continue
		}
		typ := "unknown"
		if v, ok := c["type"]; ok && v != nil {
			typ = fmt.Sprint(v)
		}
		out = append(out, Channel{
			Type:                typ,
			Label:               str(c, "label"),
			URL:                 str(c, "url"),
			Value:               str(c, "value"),
			Address:             str(c, "address"),
			Note:                str(c, "note"),
			PostmarkRequirement: str(c, "postmark_requirement"),
		})
	}
	return out
}

func forms(meta map[string]any) []Form {
	out := []Form{}
	for _, item := range listOrGroups(meta["forms"]) {
		f, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, nameOK := f["name"].(string)
		url, urlOK := f["url"].(string)
		if nameOK && urlOK {
			out = append(out, Form{Name: name, URL: url})
		}
	}
	return out
}

func filingWindow(meta map[string]any) *FilingWindow {
	w, ok := firstOf(meta, "filing_window", "filingWindow", "filing_deadline").(map[string]any)
	if !ok {
		return nil
	}
	start := text(w["start_date"])
	if start == nil {
		start = text(w["start"])
	}
	end := text(w["end_date"])
	if end == nil {
		end = text(w["end"])
	}
	return &FilingWindow{
		Start:    start,
		End:      end,
		Notes:    text(w["notes"]),
		Timezone: text(w["timezone"]),
	}
}

func alternateWindows(meta map[string]any) map[string]AlternateWindow {
	raw, ok := firstOf(meta, "filing_windows", "filingWindows").(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]AlternateWindow, len(raw))
	for k, v := range raw {
		w, ok := v.(map[string]any)
		if !ok {
			continue
		}
		out[k] = AlternateWindow{Notes: text(w["notes"]), CalendarURL: text(w["calendar_url"])}
	}
	return out
}
