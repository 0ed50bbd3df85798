package audit

import (
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/invhealth/internal/domain"
)

// zScores maps standard service levels to their one-sided normal quantile.
var zScores = []struct {
	level float64
	z     float64
}{
	{0.80, 0.842},
	{0.85, 1.036},
	{0.90, 1.282},
	{0.95, 1.645},
	{0.97, 1.881},
	{0.98, 2.054},
	{0.99, 2.326},
}

const defaultZScore = 1.645

// ZScore looks up the multiplier for a service level; unknown levels use the 0.95 entry.
func ZScore(serviceLevel float64) float64 {
	for _, e := range zScores {
		if math.Abs(e.level-serviceLevel) < 1e-9 {
			return e.z
		}
	}
	return defaultZScore
}

// ItemMetrics holds the replenishment figures computed for one item.
type ItemMetrics struct {
	AvgDailyDemand float64
	Sigma          float64
	LeadTimeDays   int
	SafetyStock    int64
	ReorderPoint   int64
	OnHand         float64
	ForecastQty    float64
	ProjectedStock float64
}

// StockoutCalculator computes safety stock and projected availability per item.
type StockoutCalculator struct {
	cfg      Config
	auditDay time.Time

	demandBySKU   map[string][]float64
	onHandBySKU   map[string]float64
	forecastBySKU map[string]float64
}

// NewStockoutCalculator indexes demand, layers and forecast by SKU for the audit day.
func NewStockoutCalculator(cfg Config, auditDay time.Time, layers []domain.CostLayer, demand []domain.DemandRecord, forecast []domain.ForecastRecord) *StockoutCalculator {
	c := &StockoutCalculator{
		cfg:           cfg,
		auditDay:      auditDay,
		demandBySKU:   make(map[string][]float64),
		onHandBySKU:   make(map[string]float64),
		forecastBySKU: make(map[string]float64),
	}

	// Demand is summed per calendar day before computing the series
	since := daysBefore(auditDay, cfg.DemandLookbackDays)
	daily := make(map[string]map[time.Time]float64)
	for _, d := range demand {
		day := dayOf(d.Date)
		if day.Before(since) || day.After(auditDay) {
			continue
		}
		if daily[d.SKU] == nil {
			daily[d.SKU] = make(map[time.Time]float64)
		}
		daily[d.SKU][day] += d.QuantityOut
	}
	for sku, byDay := range daily {
		series := make([]float64, 0, len(byDay))
		for _, q := range byDay {
			series = append(series, q)
		}
		// fixed order keeps float sums identical across runs
		sort.Float64s(series)
		c.demandBySKU[sku] = series
	}

	for _, l := range layers {
		if l.Quantity > 0 {
			c.onHandBySKU[l.SKU] += l.Quantity
		}
	}

	horizonEnd := auditDay.AddDate(0, 0, cfg.ForecastHorizonDays)
	for _, f := range forecast {
		day := dayOf(f.Date)
		if day.Before(auditDay) || !day.Before(horizonEnd) {
			continue
		}
		c.forecastBySKU[f.SKU] += f.ForecastedQuantity
	}

	return c
}

// Calculate computes the replenishment metrics for one item.
func (c *StockoutCalculator) Calculate(item domain.Item) ItemMetrics {
	m := ItemMetrics{}
	series := c.demandBySKU[item.SKU]

	// 1. Demand level and robust variability
	m.AvgDailyDemand = Mean(series)
	m.Sigma = MADToSigma(MedianAbsoluteDeviation(series))

	// 2. Safety stock = z × sigma × sqrt(lead time)
	m.LeadTimeDays = item.LeadTimeDays
	if m.LeadTimeDays <= 0 {
		m.LeadTimeDays = c.cfg.DefaultLeadTimeDays
	}
	lt := float64(m.LeadTimeDays)
	m.SafetyStock = int64(math.Round(ZScore(c.cfg.TargetServiceLevel) * m.Sigma * math.Sqrt(lt)))

	// 3. Reorder point = lead-time demand + safety stock
	m.ReorderPoint = int64(math.Round(m.AvgDailyDemand*lt + float64(m.SafetyStock)))

	// 4. On hand and forecast over the horizon
	m.OnHand = c.onHandBySKU[item.SKU]
	m.ForecastQty = c.forecastBySKU[item.SKU]

	// 5. Projected stock at the end of the horizon
	m.ProjectedStock = m.OnHand - m.ForecastQty

	return m
}

// AssessStockoutRisk returns every item whose projected stock falls below its safety stock.
func AssessStockoutRisk(items []domain.Item, calc *StockoutCalculator) []domain.StockoutRisk {
	risks := make([]domain.StockoutRisk, 0)
	for _, item := range items {
		m := calc.Calculate(item)
		if m.ProjectedStock < float64(m.SafetyStock) {
			risks = append(risks, domain.StockoutRisk{
				SKU:            item.SKU,
				Name:           item.Name,
				OnHand:         m.OnHand,
				SafetyStock:    m.SafetyStock,
				ReorderPoint:   m.ReorderPoint,
				ForecastQty:    m.ForecastQty,
				ProjectedStock: m.ProjectedStock,
			})
		}
	}
	return risks
}
