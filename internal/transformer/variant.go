package transformer

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"batchetl/internal/schema"
	"batchetl/internal/transformer/builtin"
	"batchetl/pkg/records"
)

// Variant selects the normalization chain and the table contract.
type Variant string

const (
	// Crypto is the row-level variant: one output row per surviving record.
	Crypto Variant = "crypto"
	// Sales groups order lines by country and product line.
	Sales Variant = "sales"
)

// DefaultDateLayouts are tried in order when parsing sales order dates.
var DefaultDateLayouts = []string{
	"1/2/2006 15:04",
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// DefaultPriceFactor scales current_price into adjusted_price.
const DefaultPriceFactor = 1.2

func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case Crypto, Sales:
		return v, nil
	case "":
		return Crypto, nil
	default:
		return "", fmt.Errorf("transformer: unknown variant %q (want crypto or sales)", s)
	}
}

// Contract returns the table contract of v.
func (v Variant) Contract(processedAt bool) schema.Contract {
	if v == Sales {
		return schema.Sales(processedAt)
	}
	return schema.Crypto(processedAt)
}

// Options tunes the chain built by NewJob.
type Options struct {
	// PriceFactor defaults to DefaultPriceFactor when zero.
	PriceFactor float64
	// DateLayouts defaults to DefaultDateLayouts when empty.
	DateLayouts []string
	// ProcessedAt, if non-zero, stamps every output row with its RFC3339
	// UTC form and adds the processed_at column.
	ProcessedAt time.Time
	// Encoding of CSV raw input.
	Encoding string
	Job      string
	Logger   *slog.Logger
}

// NewJob builds the Job for variant v.
func NewJob(v Variant, opt Options) *Job {
	stamp := !opt.ProcessedAt.IsZero()
	j := &Job{
		Contract: v.Contract(stamp),
		Encoding: opt.Encoding,
		Name:     opt.Job,
		Logger:   opt.Logger,
	}
	log := j.logger()

	dropRequired := func(rec records.Record, field string) {
		j.counts.dropped++
		log.Debug("transform: dropped record", "reason", "missing "+field)
	}
	reject := func(r builtin.RejectedRow) {
		j.counts.dropped++
		log.Warn("transform: rejected record", "stage", r.Stage, "reason", r.Reason)
	}

	c := j.Contract
	var chain Chain
	switch v {
	case Sales:
		layouts := opt.DateLayouts
		if len(layouts) == 0 {
			layouts = DefaultDateLayouts
		}
		chain = Chain{
			builtin.LowerKeys{},
			builtin.Normalize{},
			builtin.ParseDate{
				Field:   "orderdate",
				Layouts: layouts,
				OnDrop: func(_ records.Record, raw any) {
					j.counts.dropped++
					log.Debug("transform: dropped record", "reason", "unparseable orderdate", "value", raw)
				},
			},
			builtin.Require{Fields: c.Required(), OnDrop: dropRequired},
			builtin.Coerce{Types: c.Types()},
			builtin.FillNull{Defaults: c.Defaults()},
			builtin.Aggregate{
				GroupBy: c.Key,
				Sum:     []string{"sales", "quantityordered"},
			},
		}
	default:
		factor := opt.PriceFactor
		if factor == 0 {
			factor = DefaultPriceFactor
		}
		chain = Chain{
			builtin.LowerKeys{},
			builtin.Normalize{},
			builtin.Require{Fields: c.Required(), OnDrop: dropRequired},
			builtin.Coerce{Types: c.Types()},
			builtin.FillNull{Defaults: c.Defaults()},
			builtin.Derive{
				Target:  "adjusted_price",
				Source:  "current_price",
				Factor:  factor,
				Default: c.Defaults()["adjusted_price"],
				OnOverflow: func(_ records.Record, src float64) {
					j.counts.defaulted++
					log.Warn("transform: derived value overflowed, using default",
						"field", "adjusted_price", "current_price", src)
				},
			},
			builtin.DeDup{
				Keys: c.Key,
				OnDuplicate: func(_ records.Record, key string) {
					j.counts.duplicates++
					log.Debug("transform: duplicate natural key", "key", key)
				},
			},
		}
	}

	if stamp {
		chain = append(chain, builtin.Stamp{
			Field: schema.ProcessedAt,
			Value: opt.ProcessedAt.UTC().Format(time.RFC3339),
		})
	}
	j.Chain = append(chain, &builtin.Validate{Contract: c, Reject: reject})
	return j
}
