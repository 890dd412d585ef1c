package receiving

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/erp/receiving/internal/domain/shared"
	"github.com/erp/receiving/internal/infrastructure/logger"
	"github.com/erp/receiving/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	opCommit     = "commit"
	opForceClose = "force_close"
)

// Service reconciles deliveries against purchase orders: it opens receiving
// sessions, validates batches and commits them to the receipt ledger.
type Service struct {
	orders PurchaseOrderReader
	ledger receiving.LedgerReader
	scope  TransactionScope
	locker *OrderLocker
	logger *zap.Logger

	eventPublisher shared.EventPublisher
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	metrics        *telemetry.ReceivingMetrics
	now            func() time.Time
}

// PurchaseOrderReader is the read side of the order repository used outside transactions
type PurchaseOrderReader interface {
	FindOutstanding(ctx context.Context) ([]receiving.OrderSummary, error)
	FindVisibleOpen(ctx context.Context, id uuid.UUID) (*receiving.PurchaseOrder, error)
	FindByID(ctx context.Context, id uuid.UUID) (*receiving.PurchaseOrder, error)
}

// NewService creates a new receiving Service
func NewService(
	orders PurchaseOrderReader,
	ledger receiving.LedgerReader,
	scope TransactionScope,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		orders:         orders,
		ledger:         ledger,
		scope:          scope,
		locker:         NewOrderLocker(),
		logger:         logger,
		idempotencyTTL: shared.DefaultIdempotencyTTL,
		now:            time.Now,
	}
}

// SetEventPublisher sets the publisher used for events raised by commits
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetIdempotencyStore enables duplicate detection for commit requests
func (s *Service) SetIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) {
	s.idempotency = store
	if ttl > 0 {
		s.idempotencyTTL = ttl
	}
}

// SetMetrics sets the receiving metrics collector
func (s *Service) SetMetrics(m *telemetry.ReceivingMetrics) {
	s.metrics = m
}

// SetClock overrides the time source used for receipt timestamps
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ListOutstandingOrders returns visible open orders
func (s *Service) ListOutstandingOrders(ctx context.Context) ([]OrderSummaryResponse, error) {
	summaries, err := s.orders.FindOutstanding(ctx)
	if err != nil {
		return nil, err
	}
	return ToOrderSummaryResponses(summaries), nil
}

// GetOrderHeader returns the header of a visible open order
func (s *Service) GetOrderHeader(ctx context.Context, orderID uuid.UUID) (*OrderHeaderResponse, error) {
	order, err := s.orders.FindVisibleOpen(ctx, orderID)
	if err != nil {
		return nil, err
	}
	header := ToOrderHeaderResponse(order.Header())
	return &header, nil
}

// GetOrderLines returns the ledger lines of an order, possibly from cache
func (s *Service) GetOrderLines(ctx context.Context, orderID uuid.UUID) ([]OrderLineResponse, error) {
	lines, err := s.ledger.OrderLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToOrderLineResponses(lines), nil
}

// GetOrderLinesFresh returns the ledger lines read straight from the store
func (s *Service) GetOrderLinesFresh(ctx context.Context, orderID uuid.UUID) ([]OrderLineResponse, error) {
	lines, err := s.ledger.OrderLinesFresh(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToOrderLineResponses(lines), nil
}

// OpenSession starts a receiving session: header plus lines with OutstandingBase
// captured and all editable fields cleared.
func (s *Service) OpenSession(ctx context.Context, orderID uuid.UUID) (*SessionResponse, error) {
	order, err := s.orders.FindVisibleOpen(ctx, orderID)
	if err != nil {
		return nil, err
	}
	lines, err := s.ledger.OrderLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	batch := receiving.NewBatch(orderID, lines)
	return &SessionResponse{
		Header: ToOrderHeaderResponse(order.Header()),
		Lines:  ToOrderLineResponses(batch.Lines),
	}, nil
}

// BuildBatch rebuilds a client-held session over the current ledger. Edits for
// lines that no longer belong to the order are kept, marked Unresolved, so the
// commit can skip them with a warning instead of rejecting the batch.
func (s *Service) BuildBatch(ctx context.Context, orderID uuid.UUID, in BatchInput) (receiving.Batch, error) {
	if _, err := s.orders.FindByID(ctx, orderID); err != nil {
		return receiving.Batch{}, err
	}
	lines, err := s.ledger.OrderLinesFresh(ctx, orderID)
	if err != nil {
		return receiving.Batch{}, err
	}

	b := receiving.NewBatch(orderID, lines)
	for _, e := range in.Lines {
		idx := b.LineIndex(e.LineID)
		if idx < 0 {
			stale := receiving.OrderLine{
				LineID:     e.LineID,
				OrderID:    orderID,
				PartID:     e.PartID,
				Received:   e.Received,
				Returned:   e.Returned,
				Reason:     e.Reason,
				Unresolved: true,
			}
			if e.OrderQty != nil {
				stale.OrderQty = *e.OrderQty
			}
			if e.OutstandingBase != nil {
				stale.OutstandingBase = *e.OutstandingBase
			}
			b.Lines = append(b.Lines, stale)
			continue
		}

		line := b.Lines[idx]
		if e.OutstandingBase != nil && *e.OutstandingBase < line.OutstandingBase {
			line.OutstandingBase = max(*e.OutstandingBase, 0)
		}
		line.Received = e.Received
		line.Returned = e.Returned
		line.Reason = e.Reason
		b.Lines[idx] = line
	}

	for _, u := range in.Unordered {
		b.Unordered = append(b.Unordered, u.toDomain())
	}
	if in.Draft != nil {
		// An untouched draft row is not an item being entered.
		if draft := in.Draft.toDomain(); !draft.IsBlank() {
			b.Draft = &draft
		}
	}
	b.ForceCloseReason = in.ForceCloseReason
	return b, nil
}

// ValidateBatch validates a session, applying edit first when one is given.
// It never writes anything.
func (s *Service) ValidateBatch(ctx context.Context, orderID uuid.UUID, in BatchInput, edit *EditInput) (*ValidateResponse, error) {
	b, err := s.BuildBatch(ctx, orderID, in)
	if err != nil {
		return nil, err
	}

	var editErrs []receiving.FieldError
	if edit != nil {
		b, editErrs = receiving.ApplyEdit(b, edit.toDomain())
	}

	res := receiving.Validate(b)
	resp := &ValidateResponse{
		OK:               res.OK(),
		HasChanges:       b.HasChanges(),
		Errors:           ToFieldErrorResponses(res.Errors),
		Lines:            ToOrderLineResponses(b.Lines),
		Unordered:        toUnorderedInputs(b.Unordered),
		ForceCloseReason: b.ForceCloseReason,
		Changes:          b.ChangeSummary(),
	}
	if edit != nil {
		resp.EditErrors = ToFieldErrorResponses(editErrs)
	}
	if b.Draft != nil {
		draft := toUnorderedInputs([]receiving.UnorderedItem{*b.Draft})[0]
		resp.Draft = &draft
	}
	return resp, nil
}

// CommitReceiptBatch records a batch atomically: receipt header, receipt and
// return details, part counters, unordered captures, and auto-close when nothing
// is left outstanding. On any store failure nothing is written.
//
// A batch whose only content is a force-close reason has nothing to post and
// returns *NoChangesError even though ValidateBatch reports HasChanges for it;
// closing goes through ForceClose.
func (s *Service) CommitReceiptBatch(ctx context.Context, cmd CommitCommand) (*CommitResult, error) {
	ctx, op := telemetry.StartOperation(ctx, opCommit,
		telemetry.AttrOrderID.String(cmd.OrderID.String()),
		telemetry.AttrEmployeeID.String(cmd.EmployeeID),
		telemetry.AttrLines.Int(len(cmd.Batch.Lines)),
		telemetry.AttrUnordered.Int(len(cmd.Batch.Unordered)),
	)
	defer op.End()
	start := s.now()

	batch := cmd.Batch
	batch.OrderID = cmd.OrderID
	if err := receiving.CheckAdmissible(batch); err != nil {
		return nil, s.reject(ctx, op, opCommit, start, err)
	}
	if !batch.HasLedgerChanges() {
		return nil, s.reject(ctx, op, opCommit, start, &receiving.NoChangesError{})
	}
	if strings.TrimSpace(cmd.EmployeeID) == "" {
		return nil, s.reject(ctx, op, opCommit, start, receiving.ErrEmployeeRequired)
	}

	release, err := s.claimRequest(ctx, opCommit, cmd.IdempotencyKey)
	if err != nil {
		return nil, s.reject(ctx, op, opCommit, start, err)
	}

	unlock := s.locker.Lock(cmd.OrderID)
	defer unlock()

	var (
		result *CommitResult
		events []shared.DomainEvent
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		order, err := repos.OrderRepo().FindByID(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if err := order.EnsureReceivable(); err != nil {
			return err
		}

		r, evt, err := s.postBatch(ctx, repos, order, batch, cmd.EmployeeID, true)
		if err != nil {
			return err
		}
		result = r
		events = append(events, evt)
		events = append(events, order.PullEvents()...)
		return nil
	})
	if err != nil {
		release()
		err = classify("commit receipt batch", err)
		op.Finish(outcomeOf(err), err)
		s.recordDuration(ctx, opCommit, outcomeOf(err), start)
		s.log(ctx).Warn("receipt batch not committed",
			zap.String("order_id", cmd.OrderID.String()),
			zap.String("employee_id", cmd.EmployeeID),
			zap.Error(err),
		)
		return nil, err
	}

	op.Annotate(
		telemetry.AttrWarnings.Int(len(result.Warnings)),
		telemetry.AttrAutoClosed.Bool(result.AutoClosed),
	)
	op.Finish(telemetry.OutcomeCommitted, nil)
	s.recordDuration(ctx, opCommit, telemetry.OutcomeCommitted, start)
	s.recordCommit(ctx, result)

	s.log(ctx).Info("receipt batch committed",
		zap.String("order_id", cmd.OrderID.String()),
		zap.String("receipt_event_id", result.ReceiptEventID.String()),
		zap.String("employee_id", cmd.EmployeeID),
		zap.Strings("changes", result.Changes),
		zap.Int("warnings", len(result.Warnings)),
		zap.Bool("auto_closed", result.AutoClosed),
	)
	s.publish(ctx, events)
	return result, nil
}

// ForceClose commits any staged batch and closes the order in one transaction,
// giving back outstanding quantities to on-order counters. A failure anywhere
// leaves the order open and nothing written.
func (s *Service) ForceClose(ctx context.Context, cmd ForceCloseCommand) (*ForceCloseResult, error) {
	ctx, op := telemetry.StartOperation(ctx, opForceClose,
		telemetry.AttrOrderID.String(cmd.OrderID.String()),
	)
	defer op.End()
	start := s.now()

	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		return nil, s.reject(ctx, op, opForceClose, start, receiving.ErrForceCloseReasonRequired)
	}

	var staged *receiving.Batch
	if cmd.Batch != nil {
		if res := receiving.Validate(*cmd.Batch); !res.OK() {
			return nil, s.reject(ctx, op, opForceClose, start, &receiving.ValidationError{Errors: res.Errors})
		}
		if cmd.Batch.HasLedgerChanges() {
			b := *cmd.Batch
			b.OrderID = cmd.OrderID
			staged = &b
		}
	}
	if staged != nil && strings.TrimSpace(cmd.EmployeeID) == "" {
		return nil, s.reject(ctx, op, opForceClose, start, receiving.ErrEmployeeRequired)
	}

	release, err := s.claimRequest(ctx, opForceClose, cmd.IdempotencyKey)
	if err != nil {
		return nil, s.reject(ctx, op, opForceClose, start, err)
	}

	unlock := s.locker.Lock(cmd.OrderID)
	defer unlock()

	result := &ForceCloseResult{OrderID: cmd.OrderID}
	var events []shared.DomainEvent
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		order, err := repos.OrderRepo().FindByID(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if err := order.EnsureReceivable(); err != nil {
			return err
		}

		if staged != nil {
			receipt, evt, err := s.postBatch(ctx, repos, order, *staged, cmd.EmployeeID, false)
			if err != nil {
				return err
			}
			result.Receipt = receipt
			events = append(events, evt)
		}

		lines, err := repos.LedgerReader().OrderLinesFresh(ctx, cmd.OrderID)
		if err != nil {
			return receiving.NewPersistenceError("read order lines", err)
		}

		total := 0
		for _, line := range lines {
			outstanding := line.Outstanding()
			if outstanding == 0 {
				continue
			}
			part, err := repos.PartRepo().FindByID(ctx, line.PartID)
			if errors.Is(err, shared.ErrNotFound) {
				result.Warnings = append(result.Warnings, receiving.NewMissingPartWarning(line))
				continue
			}
			if err != nil {
				return receiving.NewPersistenceError("load part", err)
			}
			released := part.ReleaseOnOrder(outstanding)
			if err := repos.PartRepo().Save(ctx, part); err != nil {
				return receiving.NewPersistenceError("update part counters", err)
			}
			total += released
			result.Released = append(result.Released, ReleasedLine{
				LineID:      line.LineID,
				PartID:      line.PartID,
				Outstanding: outstanding,
				Released:    released,
			})
		}

		if err := order.ForceClose(reason, total); err != nil {
			return err
		}
		if err := repos.OrderRepo().Save(ctx, order); err != nil {
			return receiving.NewPersistenceError("close purchase order", err)
		}
		result.Notes = order.Notes
		events = append(events, order.PullEvents()...)
		return nil
	})
	if err != nil {
		release()
		err = classify("force close purchase order", err)
		op.Finish(outcomeOf(err), err)
		s.recordDuration(ctx, opForceClose, outcomeOf(err), start)
		s.log(ctx).Warn("purchase order not force closed",
			zap.String("order_id", cmd.OrderID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	op.Annotate(telemetry.AttrReleasedUnits.Int(result.ReleasedUnits()))
	op.Finish(telemetry.OutcomeCommitted, nil)
	s.recordDuration(ctx, opForceClose, telemetry.OutcomeCommitted, start)
	if result.Receipt != nil {
		s.recordCommit(ctx, result.Receipt)
	}
	if s.metrics != nil {
		s.metrics.RecordOrderClosed(ctx, telemetry.CloseModeForced)
	}

	s.log(ctx).Info("purchase order force closed",
		zap.String("order_id", cmd.OrderID.String()),
		zap.String("reason", reason),
		zap.Int("lines_released", len(result.Released)),
		zap.Bool("staged_batch_committed", result.Receipt != nil),
	)
	s.publish(ctx, events)
	return result, nil
}

// postBatch writes the ledger records for a batch inside an open transaction.
func (s *Service) postBatch(
	ctx context.Context,
	repos TransactionalRepositories,
	order *receiving.PurchaseOrder,
	batch receiving.Batch,
	employeeID string,
	autoClose bool,
) (*CommitResult, shared.DomainEvent, error) {
	current, err := repos.LedgerReader().OrderLinesFresh(ctx, order.ID)
	if err != nil {
		return nil, nil, receiving.NewPersistenceError("read order lines", err)
	}
	byLine := make(map[uuid.UUID]receiving.OrderLine, len(current))
	for _, l := range current {
		byLine[l.LineID] = l
	}

	event, err := receiving.NewReceiptEvent(order.ID, employeeID, s.now())
	if err != nil {
		return nil, nil, err
	}

	result := &CommitResult{OrderID: order.ID, ReceivedValue: decimal.Zero}
	var (
		recheck  []receiving.FieldError
		posted   []receiving.OrderLine
		partQty  = make(map[uuid.UUID]int)
		partSeen []uuid.UUID
		partLine = make(map[uuid.UUID]receiving.OrderLine)
	)
	for _, staged := range batch.Lines {
		if !staged.HasChanges() {
			continue
		}
		line, ok := byLine[staged.LineID]
		if !ok {
			w := receiving.NewIntegrityWarning(staged)
			result.Warnings = append(result.Warnings, w)
			s.log(ctx).Warn("skipping unresolved order line",
				zap.String("order_id", order.ID.String()),
				zap.String("line_id", staged.LineID.String()),
				zap.String("part_id", staged.PartID.String()),
			)
			continue
		}

		// Another session may have received since this one opened.
		line.OutstandingBase = min(staged.OutstandingBase, line.Outstanding())
		line.Received = staged.Received
		line.Returned = staged.Returned
		line.Reason = staged.Reason
		if errs := receiving.ValidateLine(line); len(errs) > 0 {
			recheck = append(recheck, errs...)
			continue
		}
		posted = append(posted, line)

		if line.Received > 0 {
			event.PostReceipt(line.LineID, line.Received)
			if _, seen := partQty[line.PartID]; !seen {
				partSeen = append(partSeen, line.PartID)
				partLine[line.PartID] = line
			}
			partQty[line.PartID] += line.Received
			result.ReceivedValue = result.ReceivedValue.Add(line.ReceivedValue())
		}
		if line.Returned > 0 {
			event.PostReturn(line.LineID, line.Description, line.Returned, line.Reason)
		}
	}
	if len(recheck) > 0 {
		return nil, nil, &receiving.ValidationError{Errors: recheck}
	}

	for _, item := range batch.Unordered {
		event.CaptureUnordered(item)
	}

	if err := repos.ReceiptRepo().Create(ctx, event); err != nil {
		return nil, nil, receiving.NewPersistenceError("create receipt event", err)
	}

	for _, partID := range partSeen {
		part, err := repos.PartRepo().FindByID(ctx, partID)
		if errors.Is(err, shared.ErrNotFound) {
			result.Warnings = append(result.Warnings, receiving.NewMissingPartWarning(partLine[partID]))
			continue
		}
		if err != nil {
			return nil, nil, receiving.NewPersistenceError("load part", err)
		}
		part.Receive(partQty[partID])
		if err := repos.PartRepo().Save(ctx, part); err != nil {
			return nil, nil, receiving.NewPersistenceError("update part counters", err)
		}
	}

	if autoClose {
		after, err := repos.LedgerReader().OrderLinesFresh(ctx, order.ID)
		if err != nil {
			return nil, nil, receiving.NewPersistenceError("read order lines", err)
		}
		if receiving.AllReceived(after) {
			if err := order.AutoClose(); err != nil {
				return nil, nil, err
			}
			if err := repos.OrderRepo().Save(ctx, order); err != nil {
				return nil, nil, receiving.NewPersistenceError("close purchase order", err)
			}
			result.AutoClosed = true
		}
	}

	summary := receiving.Batch{Lines: posted, Unordered: batch.Unordered}
	result.ReceiptEventID = event.ID
	result.Changes = summary.ChangeSummary()
	result.QuantityReceived = event.QuantityReceived()
	result.QuantityReturned = event.QuantityReturned()
	result.UnorderedItems = len(event.Unordered)

	committed := receiving.NewReceiptCommittedEvent(event, result.ReceivedValue, len(result.Warnings), result.AutoClosed)
	return result, committed, nil
}

// claimRequest marks an idempotency key. The returned release forgets the key
// again and must be called when the guarded operation fails.
func (s *Service) claimRequest(ctx context.Context, op, key string) (release func(), err error) {
	noop := func() {}
	key = strings.TrimSpace(key)
	if s.idempotency == nil || key == "" {
		return noop, nil
	}

	fullKey := "receiving:" + op + ":" + key
	fresh, err := s.idempotency.MarkProcessed(ctx, fullKey, s.idempotencyTTL)
	if err != nil {
		s.log(ctx).Warn("idempotency store unavailable, continuing without duplicate check",
			zap.String("key", fullKey),
			zap.Error(err),
		)
		return noop, nil
	}
	if !fresh {
		return nil, shared.ErrDuplicateRequest
	}

	return func() {
		if err := s.idempotency.Forget(context.WithoutCancel(ctx), fullKey); err != nil {
			s.log(ctx).Warn("failed to release idempotency key", zap.String("key", fullKey), zap.Error(err))
		}
	}, nil
}

// log returns the service logger with the correlation fields of ctx
func (s *Service) log(ctx context.Context) *logger.ContextLogger {
	return logger.WithLogger(ctx, s.logger)
}

func (s *Service) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.log(ctx).Error("failed to publish receiving events", zap.Error(err))
	}
}

func (s *Service) recordCommit(ctx context.Context, r *CommitResult) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCommit(ctx, r.QuantityReceived, r.QuantityReturned, r.UnorderedItems, len(r.Warnings), r.ReceivedValue)
	if r.AutoClosed {
		s.metrics.RecordOrderClosed(ctx, telemetry.CloseModeAuto)
	}
}

// reject closes the operation span and duration for a request refused before
// any write and hands err back.
func (s *Service) reject(ctx context.Context, op *telemetry.Operation, name string, start time.Time, err error) error {
	op.Finish(telemetry.OutcomeRejected, err)
	s.recordDuration(ctx, name, telemetry.OutcomeRejected, start)
	return err
}

func (s *Service) recordDuration(ctx context.Context, op, outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCommitDuration(ctx, op, outcome, s.now().Sub(start))
}

// classify leaves domain errors as they are and wraps anything else as a
// persistence failure.
func classify(op string, err error) error {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return receiving.NewPersistenceError(op, err)
}

func outcomeOf(err error) string {
	if errors.Is(err, receiving.ErrPersistence) {
		return telemetry.OutcomeFailed
	}
	return telemetry.OutcomeRejected
}
