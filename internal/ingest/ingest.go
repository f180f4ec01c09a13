// Package ingest turns a raw store feed (CSV with uncertain encoding and varying
// header names) into normalized catalog records.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"itinerary/internal/model"
)

var (
	ErrNoHeader      = errors.New("feed has no header row")
	ErrMalformedFeed = errors.New("feed is not valid tabular data")
)

// Header aliases per field, in lookup order.
var (
	nameColumns     = []string{"상호명", "점포명", "상호"}
	categoryColumns = []string{"업종명", "업종", "카테고리"}
	latColumns      = []string{"위도", "LAT", "lat"}
	lngColumns      = []string{"경도", "LON", "lng"}
	hoursColumns    = []string{"영업시간", "운영시간"}
)

const hoursSeparator = "~"

// Report summarizes one ingestion run.
type Report struct {
	Rows     int    `json:"rows"`
	Kept     int    `json:"kept"`
	Dropped  int    `json:"dropped"`
	Encoding string `json:"encoding"`
}

// Load parses a raw feed. Bad rows are dropped and counted; only a feed that cannot be
// read as a table at all returns an error.
func Load(raw []byte) ([]model.Store, Report, error) {
	text, enc, err := decodeFeed(raw)
	if err != nil {
		return nil, Report{}, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}
	rep := Report{Encoding: enc}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, rep, ErrNoHeader
	}
	if err != nil {
		return nil, rep, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}
	cols := indexHeader(header)
	if len(cols) == 0 {
		return nil, rep, ErrNoHeader
	}

	stores := []model.Store{}
	nextID := 1
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, rep, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
		}
		rep.Rows++
		row := feedRow{cols: cols, rec: rec}
		st, ok := row.store()
		if !ok {
			rep.Dropped++
			continue
		}
		st.ID = nextID
		nextID++
		stores = append(stores, st)
	}
	rep.Kept = len(stores)
	return stores, rep, nil
}

// LoadFile reads and parses the feed at path.
func LoadFile(path string) ([]model.Store, Report, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, Report{}, err
	}
	return Load(raw)
}

// indexHeader maps trimmed column names to their first position.
func indexHeader(header []string) map[string]int {
	cols := map[string]int{}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	return cols
}

type feedRow struct {
	cols map[string]int
	rec  []string
}

// first returns the first non-empty trimmed value among the alias columns.
func (fr feedRow) first(aliases []string) string {
	for _, a := range aliases {
		i, ok := fr.cols[a]
		if !ok || i >= len(fr.rec) {
			continue
		}
		if v := strings.TrimSpace(fr.rec[i]); v != "" {
			return v
		}
	}
	return ""
}

func (fr feedRow) store() (model.Store, bool) {
	name := fr.first(nameColumns)
	category := fr.first(categoryColumns)
	if name == "" || category == "" {
		return model.Store{}, false
	}
	lat, ok := parseCoord(fr.first(latColumns))
	if !ok {
		return model.Store{}, false
	}
	lng, ok := parseCoord(fr.first(lngColumns))
	if !ok {
		return model.Store{}, false
	}
	return model.Store{
		Name:     name,
		Category: NormalizeCategory(category),
		Lat:      lat,
		Lng:      lng,
		Hours:    ParseHours(fr.first(hoursColumns)),
	}, true
}

func parseCoord(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseHours splits "09:00~21:00" into open/close. Empty input yields nil.
func ParseHours(s string) *model.Hours {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, hoursSeparator)
	h := &model.Hours{Open: strings.TrimSpace(parts[0])}
	if len(parts) > 1 {
		h.Close = strings.TrimSpace(parts[1])
	}
	return h
}
