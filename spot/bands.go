package spot

import (
	"strconv"
	"strings"
)

// UnknownBand is the sentinel returned when a frequency falls outside every
// known band range.
const UnknownBand = "?"

// BandInfo describes an amateur radio band by name and frequency range in kHz.
type BandInfo struct {
	Name string  // canonical band name (e.g., "20m")
	Min  float64 // minimum frequency in kHz
	Max  float64 // maximum frequency in kHz
}

// bandTable is the ARRL band plan used by the cluster feed, HF through 6m.
var bandTable = []BandInfo{
	{Name: "160m", Min: 1800, Max: 2000},
	{Name: "80m", Min: 3500, Max: 4000},
	{Name: "60m", Min: 5000, Max: 5450},
	{Name: "40m", Min: 7000, Max: 7300},
	{Name: "30m", Min: 10100, Max: 10150},
	{Name: "20m", Min: 14000, Max: 14350},
	{Name: "17m", Min: 18068, Max: 18168},
	{Name: "15m", Min: 21000, Max: 21450},
	{Name: "12m", Min: 24890, Max: 24990},
	{Name: "10m", Min: 28000, Max: 29700},
	{Name: "6m", Min: 50000, Max: 54000},
}

// FreqToBand converts a frequency in kHz to a band string. Frequencies
// outside every range map to UnknownBand rather than an error; garbled
// cluster lines routinely carry junk frequencies.
func FreqToBand(freq float64) string {
	for _, band := range bandTable {
		if freq >= band.Min && freq <= band.Max {
			return band.Name
		}
	}
	return UnknownBand
}

// BandFromText parses a textual kHz value and maps it to a band label.
// Unparsable text maps to UnknownBand.
func BandFromText(freq string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(freq), 64)
	if err != nil {
		return UnknownBand
	}
	return FreqToBand(f)
}

// SupportedBandNames returns the canonical names of all tracked bands.
func SupportedBandNames() []string {
	names := make([]string, len(bandTable))
	for i, entry := range bandTable {
		names[i] = entry.Name
	}
	return names
}

// IsValidBand returns true if the provided label corresponds to a known band.
func IsValidBand(label string) bool {
	cleaned := strings.ToLower(strings.TrimSpace(label))
	for _, entry := range bandTable {
		if entry.Name == cleaned {
			return true
		}
	}
	return false
}
