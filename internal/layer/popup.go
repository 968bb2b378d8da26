package layer

import (
	"sort"

	"github.com/santinoo1919/medtrixmap/internal/types"
)

// Popup layouts selectable per source.
const (
	PopupProtectedArea = "protected-area"
	PopupPOI           = "poi"
	PopupProperties    = ""
)

// Field is one labelled popup value.
type Field struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Popup describes the content shown when a drawable is clicked.
type Popup struct {
	Layout string `json:"layout"`
	// Header lines, most prominent first.
	Header      []string  `json:"header,omitempty"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Columns     [][]Field `json:"columns,omitempty"`
}

// protectedAreaFields are shown in this order, country above sub-location.
var protectedAreaFields = []Field{
	{Key: "country_iso3namefr", Label: "Country (FR)"},
	{Key: "subloc_name", Label: "Sub-location"},
	{Key: "des_desigtype", Label: "Designation Type"},
	{Key: "mpa_status", Label: "Status"},
	{Key: "mpa_datebegin", Label: "Designation Date"},
	{Key: "mpa_calcarea", Label: "Area (ha)"},
	{Key: "iucn_idiucn", Label: "IUCN Category"},
	{Key: "mpa_url", Label: "Official URL"},
}

// BuildPopup renders props with the named layout. Unknown layouts list every
// property.
func BuildPopup(layout string, props types.Properties) *Popup {
	switch layout {
	case PopupProtectedArea:
		return protectedAreaPopup(props)
	case PopupPOI:
		return poiPopup(props)
	default:
		return propertiesPopup(props)
	}
}

func protectedAreaPopup(props types.Properties) *Popup {
	p := &Popup{Layout: PopupProtectedArea}
	for _, key := range []string{"mpa_name", "mpa_oriname", "des_desigfr"} {
		if t := props.Get(key).Text(); t != "" {
			p.Header = append(p.Header, t)
		}
	}

	var fields []Field
	for _, f := range protectedAreaFields {
		v := props.Get(f.Key)
		if v.IsAbsent() {
			continue
		}
		fields = append(fields, Field{Key: f.Key, Label: f.Label, Value: v.Text()})
	}
	p.Columns = splitColumns(fields)
	return p
}

func poiPopup(props types.Properties) *Popup {
	p := &Popup{
		Layout:      PopupPOI,
		Description: props.Get("description").Text(),
		ImageURL:    props.Get("url").Text(),
	}
	for _, key := range []string{"title", "header_text"} {
		if t := props.Get(key).Text(); t != "" {
			p.Header = append(p.Header, t)
		}
	}
	return p
}

func propertiesPopup(props types.Properties) *Popup {
	keys := make([]string, 0, len(props))
	for k, v := range props {
		if !v.IsAbsent() {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, Field{Key: k, Label: k, Value: props[k].Text()})
	}
	p := &Popup{Layout: "properties"}
	if name := props.Get("name").Text(); name != "" {
		p.Header = []string{name}
	}
	if len(fields) > 0 {
		p.Columns = [][]Field{fields}
	}
	return p
}

// splitColumns puts the first half (rounded up) in the first column.
func splitColumns(fields []Field) [][]Field {
	if len(fields) == 0 {
		return nil
	}
	mid := (len(fields) + 1) / 2
	return [][]Field{fields[:mid], fields[mid:]}
}
