package refdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

// Querier is the subset of pgxpool.Pool the Postgres source needs;
// satisfied by pgxmock in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type postgresSource struct {
	q     Querier
	table string
}

// NewPostgresSource reads observations from a rate table, optionally
// schema-qualified ("market.rate_observations").
func NewPostgresSource(q Querier, table string) Source {
	return &postgresSource{q: q, table: table}
}

func (s *postgresSource) Name() string { return "postgres:" + s.table }

func (s *postgresSource) Load(ctx context.Context) ([]model.RateObservation, error) {
	query := fmt.Sprintf(
		"SELECT region, equipment_type, capacity_tons, mode, monthly_rate, operated_bare_ratio, source, observed_at FROM %s ORDER BY region, equipment_type, capacity_tons",
		sanitizeTable(s.table),
	)

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "query %s", s.table)
	}
	defer rows.Close()

	var observations []model.RateObservation
	rowNum := 0
	for rows.Next() {
		rowNum++

		var (
			region, equipType, modeStr, source *string
			capacity, rateVal, ratio           *float64
			observedAt                         *time.Time
		)
		if err := rows.Scan(&region, &equipType, &capacity, &modeStr, &rateVal, &ratio, &source, &observedAt); err != nil {
			return nil, eris.Wrapf(err, "scan row %d", rowNum)
		}

		if region == nil || *region == "" {
			return nil, eris.Wrapf(ErrDataFormat, "row %d: missing region", rowNum)
		}
		if equipType == nil || *equipType == "" {
			return nil, eris.Wrapf(ErrDataFormat, "row %d: missing equipment type", rowNum)
		}
		if capacity == nil {
			return nil, eris.Wrapf(ErrDataFormat, "row %d: missing capacity", rowNum)
		}
		if *capacity <= 0 {
			return nil, eris.Wrapf(ErrDataRange, "row %d: capacity %v is not positive", rowNum, *capacity)
		}
		if rateVal == nil {
			return nil, eris.Wrapf(ErrDataFormat, "row %d: missing rate", rowNum)
		}
		if *rateVal <= 0 {
			return nil, eris.Wrapf(ErrDataRange, "row %d: rate %v is not positive", rowNum, *rateVal)
		}

		mode := model.ModeBare
		if modeStr != nil {
			parsed, err := model.ParseRentalMode(*modeStr)
			if err != nil {
				return nil, eris.Wrapf(ErrDataFormat, "row %d: %s", rowNum, err.Error())
			}
			mode = parsed
		}

		obs := model.RateObservation{
			Region:        NormalizeRegion(*region),
			EquipmentType: NormalizeEquipmentType(*equipType),
			Capacity:      *capacity,
			Mode:          mode,
			Rate:          *rateVal,
		}
		if ratio != nil {
			if *ratio <= 0 {
				return nil, eris.Wrapf(ErrDataRange, "row %d: ratio %v is not positive", rowNum, *ratio)
			}
			obs.OperatedBareRatio = *ratio
		}
		if source != nil {
			obs.Source = *source
		}
		if observedAt != nil {
			obs.ObservedAt = *observedAt
		}

		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "iterate %s", s.table)
	}

	return observations, nil
}

// sanitizeTable quotes a possibly schema-qualified table name.
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}
