package refdata

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

// ParseCSV reads rate observations from CSV data with a header row. The
// whole read fails on the first invalid row so a reload never sees a
// partial set.
func ParseCSV(r io.Reader) ([]model.RateObservation, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read csv header")
	}
	cols := mapColumns(header)

	var observations []model.RateObservation
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			return nil, eris.Wrapf(ErrDataFormat, "row %d: %s", rowNum, err.Error())
		}

		obs, err := observationFromRecord(record, cols, rowNum)
		if err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}

	return observations, nil
}
