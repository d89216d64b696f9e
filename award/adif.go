package award

import (
	"io"
	"regexp"
	"strings"
	"time"
)

// adifFieldRE matches <FIELD:LENGTH>VALUE and <FIELD:LENGTH:TYPE>VALUE tags.
var adifFieldRE = regexp.MustCompile(`<([^:>]+):(\d+)(?::([^>]+))?>([^<]*)`)

// ADIFOptions narrows which QSOs a log parse credits.
type ADIFOptions struct {
	// Band restricts credits to one band (e.g., "6M"); empty means any.
	Band string
	// HomeGrid, when set, credits only QSOs whose MY_GRIDSQUARE matches
	// this 4-char grid. Award rules require all contacts from one location.
	HomeGrid string
	// Eligible, when non-nil, drops grids outside the catalog.
	Eligible map[string]struct{}
}

// ParseADIF extracts confirmed grid credits from an ADIF award log. A QSO
// with VUCC_GRIDS counts every listed grid (multi-grid activations);
// otherwise GRIDSQUARE counts alone. The earliest QSO for a grid wins and
// later duplicates are discarded.
func ParseADIF(r io.Reader, opts ADIFOptions) (map[string]WorkedGrid, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := strings.ToUpper(string(raw))

	wantBand := NormalizeBand(opts.Band)
	homeGrid := NormalizeGrid(opts.HomeGrid)

	worked := make(map[string]WorkedGrid)
	for _, record := range strings.Split(text, "<EOR>") {
		if strings.TrimSpace(record) == "" {
			continue
		}
		fields := make(map[string]string)
		for _, m := range adifFieldRE.FindAllStringSubmatch(record, -1) {
			fields[strings.TrimSpace(m[1])] = strings.TrimSpace(m[4])
		}

		if wantBand != "" && NormalizeBand(fields["BAND"]) != wantBand {
			continue
		}
		if homeGrid != "" {
			if my := NormalizeGrid(fields["MY_GRIDSQUARE"]); my != "" && my != homeGrid {
				continue
			}
		}

		var grids []string
		if vucc := fields["VUCC_GRIDS"]; vucc != "" {
			grids = strings.Split(vucc, ",")
		} else if g := fields["GRIDSQUARE"]; g != "" {
			grids = []string{g}
		}

		call := fields["CALL"]
		date := formatQSODate(fields["QSO_DATE"])

		for _, g := range grids {
			norm := NormalizeGrid(g)
			if norm == "" {
				continue
			}
			if opts.Eligible != nil {
				if _, ok := opts.Eligible[norm]; !ok {
					continue
				}
			}
			if prev, ok := worked[norm]; ok && prev.Date <= date {
				continue
			}
			worked[norm] = WorkedGrid{Grid: norm, Call: call, Date: date}
		}
	}
	return worked, nil
}

// formatQSODate converts an ADIF YYYYMMDD date to "2006-01-02". Unparsable
// dates pass through unchanged so the record is kept rather than dropped.
func formatQSODate(qsoDate string) string {
	if len(qsoDate) != 8 {
		return qsoDate
	}
	t, err := time.Parse("20060102", qsoDate)
	if err != nil {
		return qsoDate
	}
	return t.Format("2006-01-02")
}
