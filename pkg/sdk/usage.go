package matchdex

import (
	"context"
	"net/http"
	"time"
)

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
	PeriodTotal UsagePeriod = "total"
)

// UsageReport contains embedding usage statistics for a time period.
// PeriodStart and PeriodEnd are zero for the total period.
type UsageReport struct {
	Period      UsagePeriod
	Provider    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Metrics     UsageMetrics
	Budget      BudgetStatus
}

// UsageMetrics tracks embedding resource consumption.
type UsageMetrics struct {
	EmbeddingRequests int
	Tokens            int
	CostMillidollars  int
}

// BudgetStatus tracks token quota state. ResetsAt is zero when no budget
// is configured.
type BudgetStatus struct {
	TokensLimit     int
	TokensRemaining int
	IsExhausted     bool
	ResetsAt        time.Time
}

// Usage returns an embedding usage report for the given period.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) (report UsageReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, err) }()

	var payload struct {
		Period        string `json:"period"`
		Provider      string `json:"provider"`
		PeriodStartAt *int64 `json:"period_start_at"`
		PeriodEndAt   *int64 `json:"period_end_at"`
		Usage         struct {
			EmbeddingRequests int  `json:"embedding_requests"`
			Tokens            int  `json:"tokens"`
			CostMillidollars  *int `json:"cost_millidollars"`
		} `json:"usage"`
		Budget struct {
			TokensLimit     int    `json:"tokens_limit"`
			TokensRemaining int    `json:"tokens_remaining"`
			IsExhausted     bool   `json:"is_exhausted"`
			ResetsAt        *int64 `json:"resets_at"`
		} `json:"budget"`
	}

	_, err = c.do(ctx, http.MethodGet, "/usage?period="+string(period), nil, &payload)
	if err != nil {
		return UsageReport{}, err
	}

	report = UsageReport{
		Period:   UsagePeriod(payload.Period),
		Provider: payload.Provider,
		Metrics: UsageMetrics{
			EmbeddingRequests: payload.Usage.EmbeddingRequests,
			Tokens:            payload.Usage.Tokens,
		},
		Budget: BudgetStatus{
			TokensLimit:     payload.Budget.TokensLimit,
			TokensRemaining: payload.Budget.TokensRemaining,
			IsExhausted:     payload.Budget.IsExhausted,
		},
	}
	if payload.Usage.CostMillidollars != nil {
		report.Metrics.CostMillidollars = *payload.Usage.CostMillidollars
	}
	if payload.PeriodStartAt != nil {
		report.PeriodStart = time.UnixMilli(*payload.PeriodStartAt).UTC()
	}
	if payload.PeriodEndAt != nil {
		report.PeriodEnd = time.UnixMilli(*payload.PeriodEndAt).UTC()
	}
	if payload.Budget.ResetsAt != nil {
		report.Budget.ResetsAt = time.UnixMilli(*payload.Budget.ResetsAt).UTC()
	}
	return report, nil
}
