package unifac

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"unifac/internal/activity"
	"unifac/internal/logging"
	"unifac/internal/metrics"
	"unifac/internal/model"
	"unifac/internal/paramtable"
	"unifac/internal/storage"
	"unifac/internal/tableid"
)

const defaultDBPath = "unifac.db"

var (
	ErrTableNotFound      = errors.New("parameter table not found")
	ErrEvaluationNotFound = errors.New("evaluation not found")
)

type (
	State                = activity.State
	Table                = model.ParameterTable
	Subgroup             = model.Subgroup
	Component            = model.Component
	MainGroupInteraction = model.MainGroupInteraction
)

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *zap.Logger
}

type Client struct {
	store  storage.Store
	logger *zap.Logger

	mu          sync.Mutex
	initialized bool
}

// EvaluateRequest names a stored table or carries one inline. Table takes
// precedence over TableName.
type EvaluateRequest struct {
	TableName string
	Table     *Table
	States    []State
}

type EvaluateSummary struct {
	RunID         string
	TableName     string
	CreatedAtUTC  string
	Components    []string
	States        []State
	Combinatorial [][]float64
	Residual      [][]float64
	Gamma         [][]float64
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:  store,
		logger: logging.OrNop(opts.Logger),
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.ensureInit(ctx)
}

// ImportTable validates table, checks that it builds a model and stores it under
// its normalized name, which is returned.
func (c *Client) ImportTable(ctx context.Context, table Table) (string, error) {
	if err := c.ensureInit(ctx); err != nil {
		return "", err
	}

	table.Name = tableid.Normalize(table.Name)
	table.VersionedRecord = storage.Versioned()
	if _, err := paramtable.Build(table); err != nil {
		return "", err
	}
	if err := c.store.SaveTable(ctx, table); err != nil {
		return "", fmt.Errorf("save table %s: %w", table.Name, err)
	}

	c.logger.Info("imported parameter table",
		zap.String("table", table.Name),
		zap.Int("subgroups", len(table.Subgroups)),
		zap.Int("components", len(table.Components)),
	)
	return table.Name, nil
}

func (c *Client) LoadTableFile(ctx context.Context, path string) (string, error) {
	table, err := paramtable.LoadFile(path)
	if err != nil {
		return "", err
	}
	return c.ImportTable(ctx, table)
}

func (c *Client) Tables(ctx context.Context) ([]string, error) {
	if err := c.ensureInit(ctx); err != nil {
		return nil, err
	}
	return c.store.ListTables(ctx)
}

func (c *Client) Table(ctx context.Context, name string) (Table, error) {
	if err := c.ensureInit(ctx); err != nil {
		return Table{}, err
	}

	key := tableid.Normalize(name)
	table, ok, err := c.store.GetTable(ctx, key)
	if err != nil {
		return Table{}, err
	}
	if !ok {
		return Table{}, fmt.Errorf("%s: %w", key, ErrTableNotFound)
	}
	return table, nil
}

func (c *Client) DeleteTable(ctx context.Context, name string) error {
	if err := c.ensureInit(ctx); err != nil {
		return err
	}
	return c.store.DeleteTable(ctx, tableid.Normalize(name))
}

func (c *Client) ExportTable(ctx context.Context, name string, w io.Writer) error {
	table, err := c.Table(ctx, name)
	if err != nil {
		return err
	}
	return paramtable.Encode(w, table)
}

// Evaluate computes γC, γR and γ for req and records the run.
func (c *Client) Evaluate(ctx context.Context, req EvaluateRequest) (EvaluateSummary, error) {
	if err := ctx.Err(); err != nil {
		return EvaluateSummary{}, err
	}
	if err := c.ensureInit(ctx); err != nil {
		return EvaluateSummary{}, err
	}

	table, err := c.resolveTable(ctx, req)
	if err != nil {
		return EvaluateSummary{}, err
	}

	start := time.Now()
	res, err := evaluate(table, req.States)
	metrics.ObserveEvaluation(len(req.States), time.Since(start), err)
	if err != nil {
		c.logger.Warn("evaluation failed",
			zap.String("table", table.Name),
			zap.Int("rows", len(req.States)),
			zap.String("kind", metrics.ErrorKind(err)),
			zap.Error(err),
		)
		return EvaluateSummary{}, fmt.Errorf("evaluate %s: %w", table.Name, err)
	}

	record := model.EvaluationRecord{
		VersionedRecord: storage.Versioned(),
		ID:              uuid.NewString(),
		TableName:       table.Name,
		CreatedAtUTC:    time.Now().UTC().Format(time.RFC3339Nano),
		Components:      paramtable.ComponentNames(table),
		States:          toStateRecords(req.States),
		Combinatorial:   activity.Rows(res.Combinatorial),
		Residual:        activity.Rows(res.Residual),
		Gamma:           activity.Rows(res.Activity),
	}
	if err := c.store.SaveEvaluation(ctx, record); err != nil {
		return EvaluateSummary{}, fmt.Errorf("save evaluation %s: %w", record.ID, err)
	}

	c.logger.Info("evaluated activity coefficients",
		zap.String("run_id", record.ID),
		zap.String("table", table.Name),
		zap.Int("rows", len(req.States)),
		zap.Duration("duration", time.Since(start)),
	)
	return summaryFromRecord(record), nil
}

// EvaluateAll evaluates independent requests concurrently. Results keep request
// order; the first failure cancels requests not yet started.
func (c *Client) EvaluateAll(ctx context.Context, reqs []EvaluateRequest) ([]EvaluateSummary, error) {
	if err := c.ensureInit(ctx); err != nil {
		return nil, err
	}

	out := make([]EvaluateSummary, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, req := range reqs {
		g.Go(func() error {
			summary, err := c.Evaluate(gctx, req)
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			out[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Evaluations lists recorded runs, newest first. limit <= 0 lists all.
func (c *Client) Evaluations(ctx context.Context, limit int) ([]EvaluateSummary, error) {
	if err := c.ensureInit(ctx); err != nil {
		return nil, err
	}

	records, err := c.store.ListEvaluations(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]EvaluateSummary, 0, len(records))
	for _, record := range records {
		out = append(out, summaryFromRecord(record))
	}
	return out, nil
}

func (c *Client) Evaluation(ctx context.Context, runID string) (EvaluateSummary, error) {
	if err := c.ensureInit(ctx); err != nil {
		return EvaluateSummary{}, err
	}

	record, ok, err := c.store.GetEvaluation(ctx, runID)
	if err != nil {
		return EvaluateSummary{}, err
	}
	if !ok {
		return EvaluateSummary{}, fmt.Errorf("%s: %w", runID, ErrEvaluationNotFound)
	}
	return summaryFromRecord(record), nil
}

func (c *Client) ensureInit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

func (c *Client) resolveTable(ctx context.Context, req EvaluateRequest) (Table, error) {
	if req.Table != nil {
		table := *req.Table
		table.Name = tableid.Normalize(table.Name)
		return table, nil
	}
	if req.TableName == "" {
		return Table{}, errors.New("evaluate request needs a table or table name")
	}
	return c.Table(ctx, req.TableName)
}

func evaluate(table Table, states []State) (activity.Result, error) {
	m, err := paramtable.Build(table)
	if err != nil {
		return activity.Result{}, err
	}
	return m.Evaluate(states...)
}

func toStateRecords(states []State) []model.StateRecord {
	out := make([]model.StateRecord, len(states))
	for i, st := range states {
		out[i] = model.StateRecord{X: append([]float64(nil), st.X...), T: st.T}
	}
	return out
}

func summaryFromRecord(record model.EvaluationRecord) EvaluateSummary {
	states := make([]State, len(record.States))
	for i, st := range record.States {
		states[i] = State{X: st.X, T: st.T}
	}
	return EvaluateSummary{
		RunID:         record.ID,
		TableName:     record.TableName,
		CreatedAtUTC:  record.CreatedAtUTC,
		Components:    record.Components,
		States:        states,
		Combinatorial: record.Combinatorial,
		Residual:      record.Residual,
		Gamma:         record.Gamma,
	}
}
