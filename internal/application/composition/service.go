package composition

import (
	"context"
	"errors"
	"time"

	"github.com/erp/tradedesk/internal/domain/catalog"
	"github.com/erp/tradedesk/internal/domain/inventory"
	"github.com/erp/tradedesk/internal/domain/shared"
	"github.com/erp/tradedesk/internal/domain/trade"
	applog "github.com/erp/tradedesk/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxRemoteCalls bounds concurrent remote formula evaluations per recompute
const maxRemoteCalls = 4

// Service composes orders inside sessions and stores submitted ones
type Service struct {
	store    *SessionStore
	loader   *ReferenceLoader
	composer *trade.Composer
	repos    Repositories
	local    catalog.NetWeightCalculator
	remote   catalog.NetWeightCalculator
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new composition Service
func NewService(
	store *SessionStore,
	repos Repositories,
	composer *trade.Composer,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		loader:   NewReferenceLoader(repos),
		composer: composer,
		repos:    repos,
		local:    catalog.NewLocalNetWeightCalculator(repos.Formulas),
		logger:   logger,
		now:      time.Now,
	}
}

// SetRemoteCalculator routes net weight evaluation to a remote service.
// Formulas must still exist locally for a line to be sent.
func (s *Service) SetRemoteCalculator(c catalog.NetWeightCalculator) {
	s.remote = c
}

// Location returns the business time zone
func (s *Service) Location() *time.Location {
	return s.composer.Fees().Schedule().Location
}

// log returns the service logger carrying the correlation IDs of ctx
func (s *Service) log(ctx context.Context) *applog.ContextLogger {
	return applog.WithLogger(ctx, s.logger)
}

// Open starts a composition session
func (s *Service) Open(ctx context.Context) SessionResponse {
	sess := s.store.Open()
	s.log(ctx).Debug("composition session opened", zap.String("session_id", sess.ID.String()))
	return SessionResponse{SessionID: sess.ID, ExpiresAt: sess.CreatedAt.Add(s.store.IdleTTL())}
}

// Close ends a composition session
func (s *Service) Close(ctx context.Context, sessionID uuid.UUID) error {
	if _, err := s.store.Get(sessionID); err != nil {
		return err
	}
	s.store.Close(sessionID)
	return nil
}

// Recompute derives every computed value of the draft. The draft's lines
// are numbered in place.
func (s *Service) Recompute(ctx context.Context, sessionID uuid.UUID, draft *trade.BusinessOrder) (*CompositionResponse, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	res, rev, stale, err := s.recompute(ctx, sess, draft)
	if err != nil {
		return nil, err
	}
	resp := ToCompositionResponse(sess.ID, rev, stale, res)
	return &resp, nil
}

func (s *Service) recompute(ctx context.Context, sess *Session, draft *trade.BusinessOrder) (trade.Result, uint64, bool, error) {
	ctx = applog.WithSessionID(ctx, sess.ID.String())
	sess.AssignSlots(draft)
	rev := sess.Begin()

	ref, err := s.loader.Load(ctx, draft)
	if err != nil {
		return trade.Result{}, 0, false, err
	}
	ref.Deductions = s.evaluateRemote(ctx, sess, draft, ref)

	res := s.composer.Compose(draft, ref)
	stale := !sess.Commit(rev, res)
	if stale {
		s.log(ctx).Debug("stale recompute discarded", zap.Uint64("revision", rev))
	}
	for _, l := range res.Lines {
		if l.NeedsReview {
			s.log(ctx).Warn("net weight fell back to gross weight",
				zap.Int("slot", l.Slot),
				zap.String("reason", l.Deduction.Reason),
			)
		}
	}
	return res, rev, stale, nil
}

// evaluateRemote asks the remote calculator for lines whose deduction inputs
// changed since the last answer. Answers for superseded inputs are dropped;
// failures fail open for this recompute only, so the next one retries.
func (s *Service) evaluateRemote(ctx context.Context, sess *Session, draft *trade.BusinessOrder, ref trade.ReferenceData) map[int]catalog.DeductionOutcome {
	if s.remote == nil {
		return nil
	}

	type call struct {
		line     trade.OrderLine
		revision uint64
	}
	calls := make([]call, 0)
	for i := range draft.Lines {
		l := draft.Lines[i]
		rev, needed := sess.Observe(&l)
		if !needed || ref.Formulas[*l.FormulaID] == nil {
			continue
		}
		calls = append(calls, call{line: l, revision: rev})
	}

	failed := make(map[int]catalog.DeductionOutcome)
	if len(calls) > 0 {
		results := make([]*catalog.DeductionOutcome, len(calls))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxRemoteCalls)
		for i, c := range calls {
			g.Go(func() error {
				out := s.callRemote(gctx, c.line)
				results[i] = &out
				return nil
			})
		}
		_ = g.Wait()

		for i, c := range calls {
			out := *results[i]
			if out.NeedsReview {
				failed[c.line.Slot] = out
				continue
			}
			if !sess.Record(c.line.Slot, c.revision, out) {
				s.log(ctx).Debug("stale net weight result discarded", zap.Int("slot", c.line.Slot))
			}
		}
	}

	deductions := sess.Deductions(draft.Lines)
	for slot, out := range failed {
		deductions[slot] = out
	}
	return deductions
}

func (s *Service) callRemote(ctx context.Context, l trade.OrderLine) catalog.DeductionOutcome {
	gross := *l.GrossWeight
	res, err := s.remote.Calculate(ctx, catalog.CalculateNetWeightRequest{
		FormulaID:   *l.FormulaID,
		GrossWeight: gross,
		UnitCount:   l.UnitCount,
	})
	if err != nil {
		s.log(ctx).Warn("remote net weight calculation failed",
			zap.String("formula_id", l.FormulaID.String()),
			zap.Error(err),
		)
		return catalog.FailOpen(gross, err)
	}
	return catalog.DeductionOutcome{Gross: gross, Net: res.NetWeight, Tare: res.TareWeight}
}

// Submit recomputes the draft and stores it as a completed order when
// nothing blocks, taking its batch draws from stock. A draft carrying the id
// of a stored order may only complete that order while it is still a
// draft. The session is closed on success.
func (s *Service) Submit(ctx context.Context, sessionID uuid.UUID, draft *trade.BusinessOrder) (*SubmitResponse, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.adoptStored(ctx, draft); err != nil {
		return nil, err
	}
	res, rev, _, err := s.recompute(ctx, sess, draft)
	if err != nil {
		return nil, err
	}
	if err := res.Issues.Err(); err != nil {
		return nil, err
	}

	order := res.Order
	order.AssignIdentity(s.now())
	if err := order.Complete(); err != nil {
		return nil, err
	}
	if err := s.repos.Orders.Save(ctx, order, res.Draws...); err != nil {
		return nil, err
	}
	s.store.Close(sessionID)

	s.log(ctx).Info("order submitted",
		zap.String("order_id", order.ID.String()),
		zap.String("order_no", order.OrderNo),
		zap.String("type", string(order.Type)),
		zap.String("final_amount", order.FinalAmount.String()),
	)
	return &SubmitResponse{
		OrderID:     order.ID,
		OrderNo:     order.OrderNo,
		Status:      string(order.Status),
		FinalAmount: order.FinalAmount,
		Composition: ToCompositionResponse(sessionID, rev, false, res),
	}, nil
}

// adoptStored ties a draft that names an existing order to the stored
// copy. Only stored drafts can be completed again; line ids the stored
// order does not own are cleared so they are saved as new lines.
func (s *Service) adoptStored(ctx context.Context, draft *trade.BusinessOrder) error {
	if draft.ID == uuid.Nil {
		return nil
	}
	stored, err := s.repos.Orders.FindByID(ctx, draft.ID)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewDomainErrorf("ORDER_NOT_FOUND", "Order %s not found", draft.ID)
	}
	if err != nil {
		return err
	}
	if stored.Status != trade.OrderStatusDraft {
		return shared.NewDomainErrorf(shared.ErrInvalidState.Code,
			"Order %s is %s and cannot be submitted again", stored.OrderNo, stored.Status)
	}
	if stored.Type != draft.Type {
		return shared.NewDomainErrorf(shared.ErrInvalidState.Code,
			"Order %s is a %s order and cannot become %s", stored.OrderNo, stored.Type, draft.Type)
	}

	draft.CreatedAt = stored.CreatedAt
	if draft.OrderNo == "" {
		draft.OrderNo = stored.OrderNo
	}
	for i := range draft.Lines {
		if draft.Lines[i].ID != uuid.Nil && stored.LineByID(draft.Lines[i].ID) == nil {
			draft.Lines[i].ID = uuid.Nil
		}
	}
	return nil
}

// AvailableBatches lists the pool a line may draw from in FIFO order, with
// a FIFO split when a quantity is given
func (s *Service) AvailableBatches(ctx context.Context, q AvailableBatchesQuery) (*AvailableBatchesResponse, error) {
	product, err := s.repos.Products.FindByID(ctx, q.ProductID)
	if err != nil {
		return nil, err
	}
	key := inventory.NewPoolKey(product.ID, product.BatchBySpec, q.SpecID)
	pool, err := s.loader.Pool(ctx, inventory.BatchQuery{Pool: key, WarehouseID: q.WarehouseID})
	if err != nil {
		return nil, err
	}

	allocator := s.composer.Allocator()
	available := allocator.AvailableBatches(key, q.WarehouseID, pool)
	resp := &AvailableBatchesResponse{Batches: make([]BatchResponse, 0, len(available))}
	for _, b := range available {
		resp.Batches = append(resp.Batches, toBatchResponse(b))
	}
	if len(available) > 0 {
		id := available[0].ID
		resp.SuggestedID = &id
	}
	if q.Quantity != nil && q.Quantity.IsPositive() {
		plan, err := allocator.PlanFIFO(*q.Quantity, available)
		if err != nil {
			return nil, err
		}
		resp.Plan = toBatchPlanResponse(plan)
	}
	return resp, nil
}

// ListFormulas returns the active deduction formulas in display order
func (s *Service) ListFormulas(ctx context.Context) ([]FormulaResponse, error) {
	formulas, err := s.repos.Formulas.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]FormulaResponse, 0, len(formulas))
	for _, f := range formulas {
		resp = append(resp, toFormulaResponse(f))
	}
	return resp, nil
}

// CalculateNetWeight evaluates one formula, remotely when configured. A
// remote transport failure falls back to the local formula.
func (s *Service) CalculateNetWeight(ctx context.Context, in CalculateNetWeightInput) (*NetWeightResponse, error) {
	req := catalog.CalculateNetWeightRequest{
		FormulaID:   in.FormulaID,
		GrossWeight: in.GrossWeight,
		UnitCount:   in.UnitCount,
	}
	if req.UnitCount == 0 {
		req.UnitCount = 1
	}
	var (
		res catalog.CalculateNetWeightResult
		err error
	)
	if s.remote != nil {
		res, err = s.remote.Calculate(ctx, req)
		var domainErr *shared.DomainError
		if err != nil && !errors.As(err, &domainErr) {
			s.log(ctx).Warn("remote formula service failed, evaluating locally",
				zap.String("formula_id", in.FormulaID.String()),
				zap.Error(err),
			)
			res, err = s.local.Calculate(ctx, req)
		}
	} else {
		res, err = s.local.Calculate(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return &NetWeightResponse{
		FormulaID:   res.FormulaID,
		GrossWeight: res.GrossWeight,
		NetWeight:   res.NetWeight,
		TareWeight:  res.TareWeight,
		Display:     res.Display,
	}, nil
}

// Returnable lists the quantities of a completed order that can still be
// returned
func (s *Service) Returnable(ctx context.Context, orderID uuid.UUID) (*ReturnableResponse, error) {
	original, tracker, err := s.tracker(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &ReturnableResponse{
		OrderID: original.ID,
		OrderNo: original.OrderNo,
		Lines:   tracker.Returnable(),
	}, nil
}

// FullReturnDraft builds a return draft for everything still returnable
// on the order
func (s *Service) FullReturnDraft(ctx context.Context, orderID uuid.UUID) (*trade.BusinessOrder, error) {
	original, tracker, err := s.tracker(ctx, orderID)
	if err != nil {
		return nil, err
	}
	requests, err := tracker.FullReturnRequest()
	if err != nil {
		return nil, err
	}

	returnType := trade.OrderTypeReturnIn
	if original.Type == trade.OrderTypePurchase {
		returnType = trade.OrderTypeReturnOut
	}
	today := s.now().In(s.Location())
	draft := &trade.BusinessOrder{
		Type:                returnType,
		Status:              trade.OrderStatusDraft,
		SourceID:            original.TargetID,
		TargetID:            original.SourceID,
		OrderDate:           time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location()),
		CalculateStorageFee: original.CalculateStorageFee,
		ShippingFee:         decimal.Zero,
		StorageFee:          decimal.Zero,
		OtherFee:            decimal.Zero,
		RelatedOrderID:      &original.ID,
		Lines:               trade.BuildReturnLines(original, requests),
	}
	return draft, nil
}

func (s *Service) tracker(ctx context.Context, orderID uuid.UUID) (*trade.BusinessOrder, *trade.ReturnQuantityTracker, error) {
	original, err := s.repos.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if original.Status != trade.OrderStatusCompleted {
		return nil, nil, trade.ErrOriginalNotComplete
	}
	returns, err := s.repos.Orders.FindReturnsOf(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return original, trade.NewReturnQuantityTracker(original, trade.ReturnedQuantities(returns)), nil
}

// PreviewStorageFee estimates the fee of moving weight without an order
func (s *Service) PreviewStorageFee(in StorageFeePreviewInput) StorageFeeResponse {
	fee := s.composer.Fees().Preview(in.Weight, in.Days, in.SourceIsWarehouse, in.TargetIsWarehouse)
	return ToStorageFeeResponse(fee)
}

// IsNotFound reports lookups that found nothing
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound) || errors.Is(err, ErrSessionNotFound)
}
