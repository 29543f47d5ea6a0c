package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/twpayne/go-peakfinder"
)

// A peakRecord is an output record. Nil longitudes and latitudes are unknown
// and nil dominances are unbounded.
type peakRecord struct {
	Rank            int       `json:"rank"`
	X               int       `json:"x"`
	Y               int       `json:"y"`
	World           orb.Point `json:"-"`
	Longitude       *float64  `json:"longitude,omitempty"`
	Latitude        *float64  `json:"latitude,omitempty"`
	Height          float64   `json:"height"`
	Prominence      float64   `json:"prominence"`
	DominancePixels *float64  `json:"dominancePixels"`
	DominanceMetres *float64  `json:"dominanceMetres"`
}

var recordHeader = []string{
	"rank",
	"x",
	"y",
	"longitude",
	"latitude",
	"height",
	"prominence",
	"dominance_px",
	"dominance_m",
}

// newPeakRecords returns the output records for peaks. transformer may be
// nil if georeference has no CRS.
func newPeakRecords(peaks []peakfinder.Peak, georeference *peakfinder.Georeference, transformer *peakfinder.WGS84Transformer) ([]peakRecord, error) {
	records := make([]peakRecord, 0, len(peaks))
	for i, peak := range peaks {
		record := peakRecord{
			Rank:       i + 1,
			X:          peak.X,
			Y:          peak.Y,
			World:      georeference.PixelToWorld(peak.Coord),
			Height:     peak.Height,
			Prominence: peak.Prominence,
		}
		if transformer != nil {
			lonLat, err := transformer.Transform(record.World)
			if err != nil {
				return nil, fmt.Errorf("(%d, %d): %w", peak.X, peak.Y, err)
			}
			record.Longitude = &lonLat[0]
			record.Latitude = &lonLat[1]
		}
		if !peak.UnboundedDominance() {
			dominancePixels := peak.Dominance
			dominanceMetres := georeference.DominanceMetres(peak.Dominance)
			record.DominancePixels = &dominancePixels
			record.DominanceMetres = &dominanceMetres
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *peakRecord) fields() []string {
	return []string{
		strconv.Itoa(r.Rank),
		strconv.Itoa(r.X),
		strconv.Itoa(r.Y),
		formatOptionalFloat(r.Longitude, ""),
		formatOptionalFloat(r.Latitude, ""),
		formatFloat(r.Height),
		formatFloat(r.Prominence),
		formatOptionalFloat(r.DominancePixels, "inf"),
		formatOptionalFloat(r.DominanceMetres, "inf"),
	}
}

func writeRecords(w io.Writer, format string, records []peakRecord) error {
	switch format {
	case "", "table":
		return writeTable(w, records)
	case "csv":
		return writeCSV(w, records)
	case "json":
		return writeJSON(w, records)
	case "geojson":
		return writeGeoJSON(w, records)
	default:
		return fmt.Errorf("%s: unknown format", format)
	}
}

func writeTable(w io.Writer, records []peakRecord) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	writeRow := func(fields []string) {
		for _, field := range fields {
			fmt.Fprint(tw, field, "\t")
		}
		fmt.Fprintln(tw)
	}
	writeRow(recordHeader)
	for _, record := range records {
		writeRow(record.fields())
	}
	return tw.Flush()
}

func writeCSV(w io.Writer, records []peakRecord) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(recordHeader); err != nil {
		return err
	}
	for _, record := range records {
		if err := csvWriter.Write(record.fields()); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

func writeJSON(w io.Writer, records []peakRecord) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}

// writeGeoJSON writes records as a FeatureCollection of points. Points are in
// longitude and latitude if known, otherwise in world coordinates.
func writeGeoJSON(w io.Writer, records []peakRecord) error {
	featureCollection := geojson.NewFeatureCollection()
	for _, record := range records {
		point := record.World
		if record.Longitude != nil && record.Latitude != nil {
			point = orb.Point{*record.Longitude, *record.Latitude}
		}
		feature := geojson.NewFeature(point)
		feature.Properties["rank"] = record.Rank
		feature.Properties["x"] = record.X
		feature.Properties["y"] = record.Y
		feature.Properties["height"] = record.Height
		feature.Properties["prominence"] = record.Prominence
		feature.Properties["dominancePixels"] = record.DominancePixels
		feature.Properties["dominanceMetres"] = record.DominanceMetres
		featureCollection.Append(feature)
	}
	data, err := featureCollection.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatOptionalFloat(value *float64, missing string) string {
	if value == nil || math.IsInf(*value, 0) {
		return missing
	}
	return formatFloat(*value)
}
