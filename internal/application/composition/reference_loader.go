package composition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erp/tradedesk/internal/domain/catalog"
	"github.com/erp/tradedesk/internal/domain/inventory"
	"github.com/erp/tradedesk/internal/domain/shared"
	"github.com/erp/tradedesk/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// poolQueryTimeout bounds a shared pool query, which no single caller can
// cancel
const poolQueryTimeout = 10 * time.Second

// Repositories groups the ports the loader reads from
type Repositories struct {
	Products catalog.ProductRepository
	Formulas catalog.DeductionFormulaRepository
	Batches  inventory.StockBatchRepository
	Stock    inventory.WarehouseStockRepository
	Parties  trade.PartyRepository
	Orders   trade.OrderRepository
}

// ReferenceLoader fetches the reference data one composition needs.
// Independent lookups run concurrently; identical pool lookups from
// concurrent recomputes share one query.
type ReferenceLoader struct {
	repos Repositories
	pools singleflight.Group
}

// NewReferenceLoader creates a new ReferenceLoader
func NewReferenceLoader(repos Repositories) *ReferenceLoader {
	return &ReferenceLoader{repos: repos}
}

// Load builds the reference snapshot for draft
func (r *ReferenceLoader) Load(ctx context.Context, draft *trade.BusinessOrder) (trade.ReferenceData, error) {
	ref := trade.ReferenceData{
		Products:   make(map[uuid.UUID]*catalog.Product),
		Formulas:   make(map[uuid.UUID]*catalog.DeductionFormula),
		Batches:    make(map[uuid.UUID]inventory.StockBatch),
		Candidates: make(map[int][]inventory.StockBatch),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		parties, err := r.repos.Parties.FindByIDs(gctx, nonNil(draft.SourceID, draft.TargetID))
		if err != nil {
			return fmt.Errorf("load parties: %w", err)
		}
		for i := range parties {
			p := parties[i]
			if p.ID == draft.SourceID {
				ref.Source = &p
			}
			if p.ID == draft.TargetID {
				ref.Target = &p
			}
		}
		return nil
	})

	g.Go(func() error {
		products, err := r.repos.Products.FindByIDs(gctx, productIDs(draft))
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		for i := range products {
			p := products[i]
			ref.Products[p.ID] = &p
		}
		return nil
	})

	var formulaMu sync.Mutex
	for _, id := range formulaIDs(draft) {
		g.Go(func() error {
			f, err := r.repos.Formulas.FindByID(gctx, id)
			if errors.Is(err, shared.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("load formula %s: %w", id, err)
			}
			formulaMu.Lock()
			ref.Formulas[id] = f
			formulaMu.Unlock()
			return nil
		})
	}

	g.Go(func() error {
		ids := batchIDs(draft)
		if len(ids) == 0 {
			return nil
		}
		batches, err := r.repos.Batches.FindByIDs(gctx, ids)
		if err != nil {
			return fmt.Errorf("load batches: %w", err)
		}
		for _, b := range batches {
			ref.Batches[b.ID] = b
		}
		return nil
	})

	if draft.Type.IsReturn() && draft.RelatedOrderID != nil {
		g.Go(func() error {
			original, err := r.repos.Orders.FindByID(gctx, *draft.RelatedOrderID)
			if errors.Is(err, shared.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("load original order: %w", err)
			}
			returns, err := r.repos.Orders.FindReturnsOf(gctx, original.ID)
			if err != nil {
				return fmt.Errorf("load returns: %w", err)
			}
			ref.Original = original
			ref.Returned = returnedExcluding(returns, draft.ID)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return trade.ReferenceData{}, err
	}

	if !ref.Source.IsWarehouse() {
		return ref, nil
	}
	if err := r.loadSourceStock(ctx, draft, &ref); err != nil {
		return trade.ReferenceData{}, err
	}
	return ref, nil
}

// loadSourceStock reads what the source warehouse holds: the stocked
// product set and the candidate pool of every line still without a batch
func (r *ReferenceLoader) loadSourceStock(ctx context.Context, draft *trade.BusinessOrder, ref *trade.ReferenceData) error {
	warehouseID := ref.Source.ID
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stocks, err := r.repos.Stock.FindByWarehouse(gctx, warehouseID)
		if err != nil {
			return fmt.Errorf("load warehouse stock: %w", err)
		}
		ref.Stocked = make(map[uuid.UUID]bool)
		for _, id := range inventory.SelectableProducts(stocks) {
			ref.Stocked[id] = true
		}
		return nil
	})

	var mu sync.Mutex
	for _, l := range draft.Lines {
		if l.BatchID != nil || len(l.Allocations) > 0 {
			continue
		}
		product := ref.Products[l.ProductID]
		if product == nil {
			continue
		}
		query := inventory.BatchQuery{
			Pool:        inventory.NewPoolKey(product.ID, product.BatchBySpec, l.SpecID),
			WarehouseID: warehouseID,
		}
		slot := l.Slot
		g.Go(func() error {
			batches, err := r.Pool(gctx, query)
			if err != nil {
				return err
			}
			mu.Lock()
			ref.Candidates[slot] = batches
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// Pool returns the available batches of one pool, sharing the query with
// concurrent callers asking for the same pool. A caller that gives up
// returns its own context error and leaves the query to the others.
func (r *ReferenceLoader) Pool(ctx context.Context, query inventory.BatchQuery) ([]inventory.StockBatch, error) {
	ch := r.pools.DoChan(poolKey(query), func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), poolQueryTimeout)
		defer cancel()
		return r.repos.Batches.FindAvailable(qctx, query)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("load batch pool: %w", res.Err)
		}
		return res.Val.([]inventory.StockBatch), nil
	}
}

func poolKey(q inventory.BatchQuery) string {
	spec := "*"
	if q.Pool.BySpec && q.Pool.SpecID != nil {
		spec = q.Pool.SpecID.String()
	} else if q.Pool.BySpec {
		spec = "none"
	}
	return q.WarehouseID.String() + "/" + q.Pool.ProductID.String() + "/" + spec
}

// returnedExcluding sums returns of the original, leaving out the order
// being edited
func returnedExcluding(returns []trade.BusinessOrder, self uuid.UUID) map[uuid.UUID]decimal.Decimal {
	if self == uuid.Nil {
		return trade.ReturnedQuantities(returns)
	}
	others := make([]trade.BusinessOrder, 0, len(returns))
	for _, o := range returns {
		if o.ID != self {
			others = append(others, o)
		}
	}
	return trade.ReturnedQuantities(others)
}

func nonNil(ids ...uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil {
			out = append(out, id)
		}
	}
	return out
}

func productIDs(o *trade.BusinessOrder) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0, len(o.Lines))
	for _, l := range o.Lines {
		if l.ProductID == uuid.Nil || seen[l.ProductID] {
			continue
		}
		seen[l.ProductID] = true
		ids = append(ids, l.ProductID)
	}
	return ids
}

func formulaIDs(o *trade.BusinessOrder) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0)
	for _, l := range o.Lines {
		if l.FormulaID == nil || seen[*l.FormulaID] {
			continue
		}
		seen[*l.FormulaID] = true
		ids = append(ids, *l.FormulaID)
	}
	return ids
}

func batchIDs(o *trade.BusinessOrder) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0)
	for i := range o.Lines {
		for _, id := range o.Lines[i].BatchIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
