package peakfinder

import (
	"fmt"
	"slices"
	"strings"
)

// A Preset is a named pair of thresholds. Dominance is in metres and must be
// converted to pixels for the raster being searched, see
// [Georeference.DominancePixels].
type Preset struct {
	Name            string
	Prominence      float64
	DominanceMetres float64
	Description     string
}

var (
	// PresetJurgalski selects the significant summits of a range, after Eberhard
	// Jurgalski's classification.
	PresetJurgalski = Preset{
		Name:            "jurgalski",
		Prominence:      500,
		DominanceMetres: 2000,
		Description:     "main summits of a mountain range",
	}

	// PresetUIAA selects summits that the UIAA would list as independent.
	PresetUIAA = Preset{
		Name:            "uiaa",
		Prominence:      300,
		DominanceMetres: 1000,
		Description:     "independent alpine summits",
	}

	// PresetCartographic selects the summits worth labeling on a topographic
	// map.
	PresetCartographic = Preset{
		Name:            "cartographic",
		Prominence:      100,
		DominanceMetres: 500,
		Description:     "summits worth labeling on a map",
	}
)

// Presets returns all presets, ordered from the most to the least selective.
func Presets() []Preset {
	return []Preset{
		PresetJurgalski,
		PresetUIAA,
		PresetCartographic,
	}
}

// LookupPreset returns the preset with the given name, ignoring case.
func LookupPreset(name string) (Preset, error) {
	presets := Presets()
	if i := slices.IndexFunc(presets, func(p Preset) bool {
		return strings.EqualFold(p.Name, name)
	}); i >= 0 {
		return presets[i], nil
	}
	return Preset{}, &ConfigurationError{
		Option: "preset",
		Value:  name,
		Reason: fmt.Sprintf("unknown preset, expected one of %s", strings.Join(presetNames(presets), ", ")),
	}
}

func presetNames(presets []Preset) []string {
	names := make([]string, len(presets))
	for i, preset := range presets {
		names[i] = preset.Name
	}
	return names
}
