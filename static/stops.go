// Package static loads the process-lifetime reference data: the GTFS
// stops table and the line classification sets. Everything here is
// read once at startup and never mutated.
package static

import (
	"io"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spkg/bom"

	"github.com/lodzlive/transit/model"
)

type stopCSV struct {
	ID   string  `csv:"stop_id"`
	Name string  `csv:"stop_name"`
	Lat  float64 `csv:"stop_lat"`
	Lon  float64 `csv:"stop_lon"`
}

// LoadStops reads a GTFS stops.txt file into a lookup table keyed by
// stop_id as text. Extra columns are ignored.
func LoadStops(path string) (map[string]model.Stop, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening stops file")
	}
	defer f.Close()

	return ReadStops(f)
}

// ReadStops parses stops CSV data from r.
func ReadStops(r io.Reader) (map[string]model.Stop, error) {
	// LazyCSVReader survives sloppy use of quotes. The BOM reader
	// strips unicode BOMs if present.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})

	rows := []*stopCSV{}
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, errors.Wrap(err, "unmarshaling stops csv")
	}

	stops := make(map[string]model.Stop, len(rows))
	for _, row := range rows {
		if row.ID == "" {
			return nil, errors.New("empty stop_id")
		}
		if _, dup := stops[row.ID]; dup {
			return nil, errors.Errorf("repeated stop_id '%s'", row.ID)
		}
		stops[row.ID] = model.Stop{
			ID:   row.ID,
			Name: row.Name,
			Lat:  row.Lat,
			Lon:  row.Lon,
		}
	}

	return stops, nil
}
