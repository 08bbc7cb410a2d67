package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/cashflow"
	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/models"
	"github.com/sjperalta/fintera-cashflow/internal/repository"
	"github.com/sjperalta/fintera-cashflow/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Labels used when an entry has no reference to group by
const (
	NoCostCenterLabel      = "Sem centro de custo"
	NoCommitmentGroupLabel = "Sem grupo"
)

// Aggregate groupings
const (
	GroupByMonth           = "month"
	GroupByCostCenter      = "cost_center"
	GroupByCommitmentGroup = "commitment_group"
)

// splitFetchLimit bounds concurrent split table queries per snapshot
const splitFetchLimit = 4

// Snapshot is everything one report needs, read once per request
type Snapshot struct {
	OrganizationID uint
	Today          date.Date
	Entries        []models.LedgerEntry
	CostCenters    map[uint]models.CostCenter
	Splits         cashflow.SplitTable
	StartBalance   decimal.Decimal
}

// CostCenterLabels maps cost center ids to their descriptions
func (s *Snapshot) CostCenterLabels() map[uint]string {
	labels := make(map[uint]string, len(s.CostCenters))
	for id, c := range s.CostCenters {
		labels[id] = c.Description
	}
	return labels
}

// CashflowService builds the read side reports
type CashflowService struct {
	store repository.LedgerStore
	loc   *time.Location
	now   func() time.Time
}

func NewCashflowService(store repository.LedgerStore, loc *time.Location) *CashflowService {
	if loc == nil {
		loc = time.UTC
	}
	return &CashflowService{store: store, loc: loc, now: time.Now}
}

// Today is the current calendar day in the configured timezone
func (s *CashflowService) Today() date.Date {
	return date.Of(s.now().In(s.loc))
}

// Snapshot fetches entries, cost centers and the start balance concurrently, then the
// split tables of every schedule booked on a shared center. It fails as a whole when
// any fetch fails.
func (s *CashflowService) Snapshot(ctx context.Context, orgID uint, filter repository.EntryFilter) (*Snapshot, error) {
	filter.OrganizationID = orgID
	snap := &Snapshot{
		OrganizationID: orgID,
		Today:          s.Today(),
		CostCenters:    make(map[uint]models.CostCenter),
		Splits:         make(cashflow.SplitTable),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := s.store.ListEntries(gctx, filter)
		if err != nil {
			return fmt.Errorf("list entries: %w", err)
		}
		snap.Entries = entries
		return nil
	})
	g.Go(func() error {
		centers, err := s.store.ListCostCenters(gctx, orgID)
		if err != nil {
			return fmt.Errorf("list cost centers: %w", err)
		}
		for _, c := range centers {
			snap.CostCenters[c.ID] = c
		}
		return nil
	})
	g.Go(func() error {
		balance, err := s.store.CurrentBalance(gctx, orgID)
		if err != nil {
			return fmt.Errorf("current balance: %w", err)
		}
		snap.StartBalance = balance
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	schedules := sharedSchedules(snap.Entries, snap.CostCenters)
	if len(schedules) == 0 {
		return snap, nil
	}

	var mu sync.Mutex
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(splitFetchLimit)
	for _, scheduleID := range schedules {
		g.Go(func() error {
			rows, err := s.store.ListCostCenterSplits(gctx, scheduleID)
			if err != nil {
				return fmt.Errorf("list splits of schedule %d: %w", scheduleID, err)
			}
			mu.Lock()
			snap.Splits[scheduleID] = rows
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func sharedSchedules(entries []models.LedgerEntry, centers map[uint]models.CostCenter) []uint {
	seen := make(map[uint]bool)
	var ids []uint
	for _, e := range entries {
		if e.CostCenterID == nil || e.ScheduleID == nil {
			continue
		}
		if c, ok := centers[*e.CostCenterID]; ok && c.Shared && !seen[*e.ScheduleID] {
			seen[*e.ScheduleID] = true
			ids = append(ids, *e.ScheduleID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// EntryView is an entry with its classification against today
type EntryView struct {
	models.LedgerEntryResponse
	Classification *cashflow.Classification `json:"classification"`
}

func viewOf(e models.LedgerEntry, today date.Date) EntryView {
	v := EntryView{LedgerEntryResponse: e.ToResponse()}
	if c, err := cashflow.Classify(today, e.DueDate); err == nil {
		v.Classification = &c
	}
	return v
}

// ListEntries returns the filtered entries of the organization with their classification
func (s *CashflowService) ListEntries(ctx context.Context, orgID uint, filter repository.EntryFilter) ([]EntryView, error) {
	filter.OrganizationID = orgID
	entries, err := s.store.ListEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	today := s.Today()
	views := make([]EntryView, len(entries))
	for i, e := range entries {
		views[i] = viewOf(e, today)
	}
	return views, nil
}

// GetEntry returns one entry with its classification
func (s *CashflowService) GetEntry(ctx context.Context, orgID, id uint) (*EntryView, error) {
	entry, err := s.store.FindEntry(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	v := viewOf(*entry, s.Today())
	return &v, nil
}

// BucketSummary is one window of the bucket report
type BucketSummary struct {
	Window  cashflow.Window `json:"window"`
	Count   int             `json:"count"`
	Inflow  decimal.Decimal `json:"inflow"`
	Outflow decimal.Decimal `json:"outflow"`
	Net     decimal.Decimal `json:"net"`
	Entries []EntryView     `json:"entries"`
}

// BucketReport groups the pending entries into every window
type BucketReport struct {
	Today    date.Date       `json:"today"`
	Buckets  []BucketSummary `json:"buckets"`
	Excluded int             `json:"excluded"`
}

// Buckets classifies the organization's pending entries into every window, or into the
// single named window when window is set. Entries without a usable due date are counted
// in Excluded and appear in no window.
func (s *CashflowService) Buckets(ctx context.Context, orgID uint, window string) (*BucketReport, error) {
	windows := cashflow.Windows
	if window != "" {
		w, err := cashflow.ParseWindow(window)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		windows = []cashflow.Window{w}
	}

	snap, err := s.Snapshot(ctx, orgID, repository.EntryFilter{Statuses: []string{models.EntryStatusPending}})
	if err != nil {
		return nil, err
	}

	report := &BucketReport{Today: snap.Today, Buckets: make([]BucketSummary, 0, len(windows))}
	for _, e := range snap.Entries {
		if e.DueDate.IsZero() {
			report.Excluded++
		}
	}

	var buckets map[cashflow.Window][]models.LedgerEntry
	if window != "" {
		buckets = map[cashflow.Window][]models.LedgerEntry{windows[0]: cashflow.Filter(snap.Entries, snap.Today, windows[0])}
	} else {
		buckets = cashflow.Buckets(snap.Entries, snap.Today)
	}
	for _, w := range windows {
		summary := BucketSummary{Window: w, Entries: make([]EntryView, 0)}
		for _, e := range buckets[w] {
			summary.Count++
			if e.Operation.IsInflow() {
				summary.Inflow = summary.Inflow.Add(e.Amount)
			} else {
				summary.Outflow = summary.Outflow.Add(e.Amount)
			}
			summary.Entries = append(summary.Entries, viewOf(e, snap.Today))
		}
		summary.Net = summary.Inflow.Sub(summary.Outflow)
		report.Buckets = append(report.Buckets, summary)
	}
	return report, nil
}

// AggregateRow is an aggregate with its net
type AggregateRow struct {
	cashflow.MonthlyAggregate
	Net decimal.Decimal `json:"net"`
}

// AggregateReport is the result of Aggregates
type AggregateReport struct {
	GroupBy  string         `json:"group_by"`
	Rows     []AggregateRow `json:"rows"`
	Totals   AggregateRow   `json:"totals"`
	Excluded int            `json:"excluded"`
}

// Aggregates sums pending and realized flows per month, cost center or commitment
// group. Shared cost center amounts are split before grouping by cost center. Cost
// center rows carry descriptions; commitment group rows carry "#<id>" keys.
func (s *CashflowService) Aggregates(ctx context.Context, orgID uint, groupBy string) (*AggregateReport, error) {
	snap, err := s.Snapshot(ctx, orgID, repository.EntryFilter{
		Statuses: []string{models.EntryStatusPending, models.EntryStatusConfirmed},
	})
	if err != nil {
		return nil, err
	}

	entries := snap.Entries
	var key cashflow.GroupKey
	switch groupBy {
	case "", GroupByMonth:
		groupBy = GroupByMonth
		key = cashflow.ByMonth
	case GroupByCostCenter:
		entries, _ = resolveSplits(snap)
		key = cashflow.ByCostCenter(snap.CostCenterLabels(), NoCostCenterLabel)
	case GroupByCommitmentGroup:
		// Commitment groups are owned upstream and the ledger only stores their ids,
		// so rows are keyed "#<id>".
		key = cashflow.ByCommitmentGroup(nil, NoCommitmentGroupLabel)
	default:
		return nil, fmt.Errorf("%w: agrupamento desconhecido %q", ErrInvalidInput, groupBy)
	}

	aggs := cashflow.Aggregate(entries, key)
	report := &AggregateReport{GroupBy: groupBy, Rows: make([]AggregateRow, len(aggs))}
	for i, a := range aggs {
		report.Rows[i] = AggregateRow{MonthlyAggregate: a, Net: a.Net()}
	}
	totals := cashflow.Totals(aggs)
	report.Totals = AggregateRow{MonthlyAggregate: totals, Net: totals.Net()}
	if groupBy == GroupByMonth {
		report.Excluded = countUnplaced(entries)
	}
	return report, nil
}

// ForecastReport is the projected balance per month, newest first
type ForecastReport struct {
	Today        date.Date              `json:"today"`
	StartBalance decimal.Decimal        `json:"start_balance"`
	EndBalance   decimal.Decimal        `json:"end_balance"`
	Rows         []cashflow.ForecastRow `json:"rows"`
	Excluded     int                    `json:"excluded"`
}

// Forecast projects the balance month by month from the current balance. The whole
// pending ledger is accumulated so overdue months still move the balance; from and to
// only choose which rows are returned.
func (s *CashflowService) Forecast(ctx context.Context, orgID uint, from, to date.YearMonth) (*ForecastReport, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, cashflow.ErrInvalidRange)
	}
	snap, err := s.Snapshot(ctx, orgID, repository.EntryFilter{
		Statuses: []string{models.EntryStatusPending, models.EntryStatusConfirmed},
	})
	if err != nil {
		return nil, err
	}

	rows := cashflow.ProjectForecast(snap.StartBalance, cashflow.Aggregate(snap.Entries, cashflow.ByMonth))
	report := &ForecastReport{
		Today:        snap.Today,
		StartBalance: snap.StartBalance,
		EndBalance:   snap.StartBalance,
		Excluded:     countUnplaced(snap.Entries),
	}
	if len(rows) > 0 {
		report.EndBalance = rows[len(rows)-1].RunningBalance
	}

	visible := make([]cashflow.ForecastRow, 0, len(rows))
	for _, r := range rows {
		if !from.IsZero() && r.Period.Before(from) {
			continue
		}
		if !to.IsZero() && r.Period.After(to) {
			continue
		}
		visible = append(visible, r)
	}
	report.Rows = cashflow.Descending(visible)
	return report, nil
}

// PivotReport is the cost center by month pivot
type PivotReport struct {
	*cashflow.Pivot
	MissingReferences int `json:"missing_references"`
}

// Pivot builds the cost center by month matrix over [from, to] after splitting shared
// cost center entries. An empty range defaults to the current month and the next 11.
func (s *CashflowService) Pivot(ctx context.Context, orgID uint, from, to date.YearMonth) (*PivotReport, error) {
	today := s.Today()
	if from.IsZero() {
		from = today.YearMonth()
	}
	if to.IsZero() {
		to = from.AddMonths(11)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, cashflow.ErrInvalidRange)
	}

	snap, err := s.Snapshot(ctx, orgID, repository.EntryFilter{
		Statuses: []string{models.EntryStatusPending, models.EntryStatusConfirmed},
	})
	if err != nil {
		return nil, err
	}

	entries, missing := resolveSplits(snap)
	labels := snap.CostCenterLabels()
	pivot, err := cashflow.BuildPivot(entries, func(e models.LedgerEntry) string {
		if e.CostCenterID == nil {
			return NoCostCenterLabel
		}
		if l, ok := labels[*e.CostCenterID]; ok {
			return l
		}
		return fmt.Sprintf("#%d", *e.CostCenterID)
	}, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return &PivotReport{Pivot: pivot, MissingReferences: missing}, nil
}

// resolveSplits fans out shared cost center entries. Entries pointing at unknown cost
// centers are kept as they are and counted.
func resolveSplits(snap *Snapshot) ([]models.LedgerEntry, int) {
	entries, err := cashflow.ResolveSplits(snap.Entries, snap.CostCenters, snap.Splits)
	n := countMissing(err)
	if n > 0 {
		logger.Warn("[Cashflow] entries reference unknown cost centers",
			slog.Uint64("organization_id", uint64(snap.OrganizationID)),
			slog.Int("count", n),
		)
	}
	return entries, n
}

func countMissing(err error) int {
	if err == nil {
		return 0
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		return len(joined.Unwrap())
	}
	return 1
}

// countUnplaced counts entries that would count toward totals but have no month
func countUnplaced(entries []models.LedgerEntry) int {
	n := 0
	for _, e := range entries {
		if !e.CountsTowardTotals() {
			continue
		}
		if _, ok := cashflow.EntryMonth(e); !ok {
			n++
		}
	}
	return n
}
