package royalty

import "strings"

// Field is a canonical spreadsheet column. Source files label these columns
// inconsistently; Lookup resolves the mess through accepted spellings.
type Field string

const (
	FieldTitle        Field = "Song Title"
	FieldComposer     Field = "Composer Name"
	FieldCode         Field = "ISRC"
	FieldArtist       Field = "Artist"
	FieldSplit        Field = "Split"
	FieldDate         Field = "Date"
	FieldTerritory    Field = "Territory"
	FieldSource       Field = "Source"
	FieldUsageCount   Field = "Usage Count"
	FieldGross        Field = "Gross"
	FieldAdminPercent Field = "Admin %"
	FieldNet          Field = "Net"
)

// headerSpellings lists the accepted header spellings per canonical field,
// in priority order. The primary name comes first.
var headerSpellings = map[Field][]string{
	FieldTitle:        {"Song Title", "song title", "Title", "title", "Track Title", "Track", "Song"},
	FieldComposer:     {"Composer Name", "Composer", "composer", "Writer", "writer"},
	FieldCode:         {"ISRC", "isrc", "ISWC", "iswc", "ISWC Code", "Code"},
	FieldArtist:       {"Artist", "artist", "Artist Name", "Contributor"},
	FieldSplit:        {"Split", "split", "Split %", "Royalty Split", "Share"},
	FieldDate:         {"Date", "date", "Broadcast Date", "broadcast date", "Air Date"},
	FieldTerritory:    {"Territory", "territory", "Country", "country", "Region"},
	FieldSource:       {"Source", "source", "Platform", "platform", "Exploitation Source", "Service"},
	FieldUsageCount:   {"Usage Count", "usage", "Usage", "Units", "Plays", "Streams"},
	FieldGross:        {"Gross", "Gross Amount", "gross", "Gross Royalty"},
	FieldAdminPercent: {"Admin %", "Admin Percent", "admin %", "Admin Fee %"},
	FieldNet:          {"Net", "Net Amount", "net", "Net Royalty"},
}

// Record is one data row of a parsed spreadsheet: the file's header order
// plus the raw cell value under each header.
type Record struct {
	Headers []string
	Values  map[string]string
}

// Lookup resolves a canonical field against the record's headers: accepted
// spellings are tried in order, case-sensitively first, then
// case-insensitively. The first header that yields a non-empty value wins.
// No match means empty string.
func (r Record) Lookup(f Field) string {
	spellings := headerSpellings[f]

	for _, s := range spellings {
		if v, ok := r.Values[s]; ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}

	for _, s := range spellings {
		for _, h := range r.Headers {
			if strings.EqualFold(h, s) {
				if v := strings.TrimSpace(r.Values[h]); v != "" {
					return v
				}
			}
		}
	}

	return ""
}

// CatalogFields and RoyaltyFields enumerate the canonical columns of the two
// import kinds, in export order.
var (
	CatalogFields = []Field{FieldTitle, FieldComposer, FieldCode, FieldArtist, FieldSplit}
	RoyaltyFields = []Field{FieldTitle, FieldCode, FieldComposer, FieldDate, FieldTerritory, FieldSource, FieldUsageCount, FieldGross, FieldAdminPercent, FieldNet}
)
