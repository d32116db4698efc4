package models

// Channel maps a requested sensor name to its storage column and export label.
type Channel struct {
	Name   string
	Column string
	Label  string
}

type Source int

const (
	SourcePrimary Source = iota
	SourceArchive
)

func (s Source) String() string {
	if s == SourceArchive {
		return "secondary"
	}
	return "primary"
}

var PrimaryChannels = []Channel{
	{Name: "temp", Column: "temp", Label: "Temperature [°C]"},
	{Name: "wind", Column: "wind", Label: "Wind Speed [m/s]"},
	{Name: "spn1_radTot", Column: "spn1_rad_tot", Label: "Total Radiation (SPN1) [W/m²]"},
	{Name: "spn1_radDiff", Column: "spn1_rad_diff", Label: "Diffuse Radiation (SPN1) [W/m²]"},
	{Name: "spn1_sun", Column: "spn1_sun", Label: "Sunshine Presence (SPN1) [1/0]"},
	{Name: "rad_cmp1", Column: "rad_cmp1", Label: "CMP3 Radiation 1 (56°) [W/m²]"},
	{Name: "rad_cmp2", Column: "rad_cmp2", Label: "CMP3 Radiation 2 (43°) [W/m²]"},
	{Name: "rad_cmp3", Column: "rad_cmp3", Label: "CMP3 Radiation 3 (64°) [W/m²]"},
}

// ArchiveChannels follow the archive's own column names.
var ArchiveChannels = []Channel{
	{Name: "outTemp", Column: "outTemp", Label: "Temperature [°C]"},
	{Name: "windSpeed", Column: "windSpeed", Label: "Wind Speed [m/s]"},
	{Name: "radiation", Column: "radiation", Label: "Total Radiation (SPN1) [W/m²]"},
	{Name: "radiationDiff", Column: "radiationDiff", Label: "Diffuse Radiation (SPN1) [W/m²]"},
	{Name: "sun", Column: "sun", Label: "Sunshine Presence (SPN1) [1/0]"},
	{Name: "radiation1", Column: "radiation1", Label: "CMP3 Radiation 1 (56°) [W/m²]"},
	{Name: "radiation2", Column: "radiation2", Label: "CMP3 Radiation 2 (43°) [W/m²]"},
	{Name: "radiation3", Column: "radiation3", Label: "CMP3 Radiation 3 (64°) [W/m²]"},
}

// LookupChannels resolves names against the registry of a source, preserving order.
// The second return value is the first unknown name, if any.
func LookupChannels(source Source, names []string) ([]Channel, string) {
	registry := PrimaryChannels
	if source == SourceArchive {
		registry = ArchiveChannels
	}
	out := make([]Channel, 0, len(names))
	for _, name := range names {
		found := false
		for _, ch := range registry {
			if ch.Name == name {
				out = append(out, ch)
				found = true
				break
			}
		}
		if !found {
			return nil, name
		}
	}
	return out, ""
}
