// internal/application/usecase/purchase_workflow.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	mintrequest "musicvault/internal/domain/mintRequest"
	"musicvault/internal/domain/payment"
	"musicvault/internal/domain/purchase"
)

// ============================================================
// Ports used by the workflow
// ============================================================

type Quoter interface {
	Quote(ctx context.Context, usd decimal.Decimal, rail purchase.PayRail) purchase.Quote
}

type PaymentRecorder interface {
	Log(ctx context.Context, receipt payment.Receipt, intent purchase.PurchaseIntent) (payment.LedgerEntry, error)
}

type MintRequester interface {
	Mint(ctx context.Context, receipt payment.Receipt, intent purchase.PurchaseIntent) (mintrequest.MintAck, error)
}

// ReadinessReporter is optionally implemented by MintRequester.
type ReadinessReporter interface {
	Ready() bool
}

var (
	ErrPurchaseInProgress = errors.New("purchase: payment is in progress")
	ErrPurchaseClosed     = errors.New("purchase: intent is closed")
	ErrPurchaseNotIdle    = errors.New("purchase: proceed is only allowed from idle")
	ErrPurchaseNotFailed  = errors.New("purchase: reset is only allowed from failed")
	ErrSupportRequired    = errors.New("purchase: minting failed after payment, contact support")
)

const (
	msgUserCancelled = "Payment was cancelled."
	msgStillPending  = "Payment is still pending confirmation. Check your wallet activity before trying again."
	msgMintSupport   = "Your payment was received but minting failed. Please contact support with reference %s."
	msgLogFailed     = "Payment was captured but could not be recorded (reference %s). Please contact support before trying again."
)

// ============================================================
// PurchaseSnapshot (UI state)
// ============================================================

type FailureView struct {
	Stage  purchase.Stage       `json:"stage"`
	Reason purchase.FailureKind `json:"reason"`
}

// PurchaseSnapshot is what the front end renders.
type PurchaseSnapshot struct {
	ID             string               `json:"id"`
	AlbumID        string               `json:"albumId"`
	SaleOption     purchase.SaleOption  `json:"saleOption"`
	PayRail        purchase.PayRail     `json:"payRail"`
	State          purchase.StateKind   `json:"state"`
	Slots          purchase.Slots       `json:"slots"`
	Quote          purchase.Quote       `json:"quote"`
	ProceedEnabled bool                 `json:"proceedEnabled"`
	CanCancel      bool                 `json:"canCancel"`
	Terminal       bool                 `json:"terminal"`
	Action         *purchase.Action     `json:"action,omitempty"`
	Message        string               `json:"message,omitempty"`
	Failure        *FailureView         `json:"failure,omitempty"`
	Receipt        *payment.Receipt     `json:"receipt,omitempty"`
	MintAck        *mintrequest.MintAck `json:"mintAck,omitempty"`
	Closed         bool                 `json:"closed"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// ============================================================
// PurchaseWorkflow
// ============================================================

type workflowDeps struct {
	quoter   Quoter
	executor PaymentExecutor
	recorder PaymentRecorder
	minter   MintRequester
	creds    PreAccessProvider
	now      func() time.Time
}

// PurchaseWorkflow は 1 つの PurchaseIntent の状態機械。
//
// 状態は mu の下でのみ変更する。Proceed は「idle であることの確認」と
// 「PaymentProcessing への遷移」を同じロック区間で行い、その後に I/O を始める。
type PurchaseWorkflow struct {
	mu           sync.Mutex
	intent       purchase.PurchaseIntent
	quote        purchase.Quote
	state        purchase.State
	preflightErr error
	message      string
	receipt      *payment.Receipt // 捕捉済みの支払い（ログ失敗後も保持）
	closed       bool
	running      chan struct{}
	updatedAt    time.Time

	deps workflowDeps
}

func newPurchaseWorkflow(intent purchase.PurchaseIntent, deps workflowDeps) *PurchaseWorkflow {
	if deps.now == nil {
		deps.now = time.Now
	}
	return &PurchaseWorkflow{
		intent:    intent,
		state:     purchase.Idle{},
		updatedAt: deps.now(),
		deps:      deps,
	}
}

func (w *PurchaseWorkflow) Intent() purchase.PurchaseIntent {
	return w.intent
}

// refreshQuote re-quotes and re-runs the pre-flight checks. Only applied while idle.
func (w *PurchaseWorkflow) refreshQuote(ctx context.Context) {
	q := w.deps.quoter.Quote(ctx, w.intent.PriceUSD, w.intent.PayRail)

	var perr error
	switch {
	case !q.Resolved:
		perr = ErrQuoteUnresolved
	case w.deps.executor == nil:
		perr = ErrExecutorNotConfigured
	default:
		perr = w.deps.executor.Preflight(ctx, w.intent, q)
		if perr == nil {
			_, perr = w.checkDownstream(ctx)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.state.(purchase.Idle); !ok {
		return
	}
	w.quote = q
	w.preflightErr = perr
	w.message = preflightMessage(q, perr)
	w.updatedAt = w.deps.now()
}

// Proceed は確認クリック。eligible なら PaymentProcessing に遷移し、
// 支払い → 記録 → (mint) をリクエストから切り離したゴルーチンで実行する。
func (w *PurchaseWorkflow) Proceed(ctx context.Context) error {
	w.mu.Lock()
	if err := w.proceedableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	q := w.quote
	w.mu.Unlock()

	// pre-flight（残高照会など I/O あり）はロック外
	if err := w.deps.executor.Preflight(ctx, w.intent, q); err != nil {
		w.mu.Lock()
		if _, idle := w.state.(purchase.Idle); idle {
			w.preflightErr = err
			w.message = preflightMessage(q, err)
			w.updatedAt = w.deps.now()
		}
		w.mu.Unlock()
		return err
	}

	// check-and-set。ledger / mint が支払い後に必ず失敗する状態ならここで止める
	w.mu.Lock()
	if err := w.proceedableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	cred, err := w.checkDownstream(ctx)
	if err != nil {
		w.preflightErr = err
		w.message = preflightMessage(q, err)
		w.updatedAt = w.deps.now()
		w.mu.Unlock()
		return err
	}
	if err := w.setLocked(purchase.PaymentProcessing{}); err != nil {
		w.mu.Unlock()
		return err
	}
	w.preflightErr = nil
	w.message = ""
	done := make(chan struct{})
	w.running = done
	w.mu.Unlock()

	slog.InfoContext(ctx, "[purchase_wf] proceed",
		"intentId", w.intent.ID,
		"rail", w.intent.PayRail,
		"saleOption", w.intent.SaleOption,
	)

	// 処理開始後はキャンセルしない。credential は実行中に TTL が切れても使えるよう固定する
	runCtx := context.WithoutCancel(ctx)
	if cred.Valid() {
		runCtx = WithPreAccess(runCtx, cred)
	}
	go w.run(runCtx, q, done)
	return nil
}

// checkDownstream は支払い前に判定できる後段 (ledger / mint) の前提を検査し、
// 必要な場合は wallet proof を解決して返す。w.mu を取らない。
func (w *PurchaseWorkflow) checkDownstream(ctx context.Context) (PreAccess, error) {
	mints := w.intent.SaleOption.RequiresMint()
	if mints {
		if w.deps.minter == nil {
			return PreAccess{}, ErrMintNotConfigured
		}
		if r, ok := w.deps.minter.(ReadinessReporter); ok && !r.Ready() {
			return PreAccess{}, ErrMintNotConfigured
		}
	}

	need := requiresPreAccess(w.deps.recorder) || (mints && requiresPreAccess(w.deps.minter))
	if !need {
		return PreAccess{}, nil
	}
	if w.deps.creds == nil {
		return PreAccess{}, ErrPreAccessMissing
	}
	cred, err := w.deps.creds.Get(ctx, w.intent.PayerAddress)
	if err != nil {
		return PreAccess{}, err
	}
	if !cred.Valid() {
		return PreAccess{}, ErrPreAccessMissing
	}
	return cred, nil
}

func (w *PurchaseWorkflow) proceedableLocked() error {
	if w.closed {
		return ErrPurchaseClosed
	}
	switch w.state.(type) {
	case purchase.Idle:
	case purchase.PaymentProcessing, purchase.MintProcessing:
		return ErrPurchaseInProgress
	default:
		return ErrPurchaseNotIdle
	}
	if !w.quote.Resolved {
		return ErrQuoteUnresolved
	}
	if w.deps.executor == nil {
		return ErrExecutorNotConfigured
	}
	return nil
}

func (w *PurchaseWorkflow) run(ctx context.Context, q purchase.Quote, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "[purchase_wf] panic in workflow", "intentId", w.intent.ID, "panic", r)
			w.abort(ctx, fmt.Errorf("panic: %v", r))
		}
	}()

	// 1) payment
	sink := func(a purchase.Action) {
		action := a
		_ = w.transition(purchase.PaymentProcessing{Action: &action})
	}
	receipt, err := w.deps.executor.Execute(ctx, w.intent, q, sink)
	if err != nil {
		w.failPayment(ctx, err)
		return
	}

	w.mu.Lock()
	r := receipt
	w.receipt = &r
	w.mu.Unlock()

	// 2) ledger（Execute 成功 1 回につき 1 回だけ）
	if w.deps.recorder != nil {
		if _, err := w.deps.recorder.Log(ctx, receipt, w.intent); err != nil {
			w.fail(purchase.Failed{
				Stage:   purchase.StagePayment,
				Reason:  purchase.FailureLogging,
				Message: fmt.Sprintf(msgLogFailed, receipt.TransactionRef),
				Receipt: &r,
			})
			return
		}
	}

	if err := w.transition(purchase.PaymentConfirmed{Receipt: receipt}); err != nil {
		w.abort(ctx, err)
		return
	}

	// digitalOnly はここで終端
	if !w.intent.SaleOption.RequiresMint() {
		return
	}

	// 3) mint（receipt がある場合のみ到達する）
	if err := w.transition(purchase.MintProcessing{Receipt: receipt}); err != nil {
		w.abort(ctx, err)
		return
	}

	if w.deps.minter == nil {
		w.fail(purchase.Failed{
			Stage:   purchase.StageMint,
			Reason:  purchase.FailureMinting,
			Message: fmt.Sprintf(msgMintSupport, receipt.TransactionRef),
			Receipt: &r,
		})
		return
	}
	ack, err := w.deps.minter.Mint(ctx, receipt, w.intent)
	if err != nil {
		w.fail(purchase.Failed{
			Stage:   purchase.StageMint,
			Reason:  purchase.FailureMinting,
			Message: fmt.Sprintf(msgMintSupport, receipt.TransactionRef),
			Receipt: &r,
		})
		return
	}

	if err := w.transition(purchase.MintConfirmed{Receipt: receipt, Ack: ack}); err != nil {
		w.abort(ctx, err)
	}
}

// abort は遷移が拒否されたときに処理中のまま残さないための後始末。
func (w *PurchaseWorkflow) abort(ctx context.Context, cause error) {
	stage := w.currentStage()
	slog.ErrorContext(ctx, "[purchase_wf] aborting run", "intentId", w.intent.ID, "stage", stage, "err", cause)
	w.fail(purchase.Failed{
		Stage:   stage,
		Reason:  failureReasonForStage(stage),
		Message: "Unexpected error.",
		Receipt: w.capturedReceipt(),
	})
}

func (w *PurchaseWorkflow) failPayment(ctx context.Context, err error) {
	switch {
	case errors.Is(err, ErrUserRejected):
		slog.InfoContext(ctx, "[purchase_wf] payment rejected by user", "intentId", w.intent.ID)
		w.mu.Lock()
		ok := w.setLocked(purchase.Idle{}) == nil
		w.mu.Unlock()
		if ok {
			// 次の試行に備えて価格を取り直す
			w.refreshQuote(ctx)
			w.mu.Lock()
			if w.message == "" {
				w.message = msgUserCancelled
			}
			w.mu.Unlock()
		}

	case errors.Is(err, ErrConfirmationTimeout):
		slog.WarnContext(ctx, "[purchase_wf] payment confirmation timed out", "intentId", w.intent.ID, "err", err)
		w.fail(purchase.Failed{
			Stage:   purchase.StagePayment,
			Reason:  purchase.FailureConfirmationTimeout,
			Message: msgStillPending,
		})

	default:
		slog.WarnContext(ctx, "[purchase_wf] payment failed", "intentId", w.intent.ID, "err", err)
		w.fail(purchase.Failed{
			Stage:   purchase.StagePayment,
			Reason:  purchase.FailureExecution,
			Message: "Payment failed: " + err.Error(),
		})
	}
}

func (w *PurchaseWorkflow) fail(f purchase.Failed) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.setLocked(f) == nil {
		w.message = f.Message
	}
}

func (w *PurchaseWorkflow) transition(to purchase.State) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.setLocked(to)
}

func (w *PurchaseWorkflow) setLocked(to purchase.State) error {
	if err := purchase.ValidateTransition(w.state, to); err != nil {
		slog.Error("[purchase_wf] rejected transition", "intentId", w.intent.ID, "err", err)
		return err
	}
	w.state = to
	w.updatedAt = w.deps.now()
	return nil
}

func (w *PurchaseWorkflow) currentStage() purchase.Stage {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state.(type) {
	case purchase.MintProcessing:
		return purchase.StageMint
	case purchase.PaymentConfirmed:
		// 支払い確定後に止まった場合は mint 段の失敗として扱う（receipt 付き）
		if w.intent.SaleOption.RequiresMint() && w.receipt != nil {
			return purchase.StageMint
		}
	}
	return purchase.StagePayment
}

func (w *PurchaseWorkflow) capturedReceipt() *payment.Receipt {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.receipt
}

func failureReasonForStage(s purchase.Stage) purchase.FailureKind {
	if s == purchase.StageMint {
		return purchase.FailureMinting
	}
	return purchase.FailureExecution
}

// Cancel closes the intent. Not allowed while a stage is processing.
func (w *PurchaseWorkflow) Cancel() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if purchase.IsProcessing(w.state, w.intent.SaleOption) {
		return ErrPurchaseInProgress
	}
	w.closed = true
	w.updatedAt = w.deps.now()
	return nil
}

// Reset は failed → idle。mint 失敗はサポート対応のため不可。
func (w *PurchaseWorkflow) Reset(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrPurchaseClosed
	}
	f, ok := w.state.(purchase.Failed)
	if !ok {
		w.mu.Unlock()
		return ErrPurchaseNotFailed
	}
	if f.Reason == purchase.FailureMinting {
		w.mu.Unlock()
		return ErrSupportRequired
	}
	if err := w.setLocked(purchase.Idle{}); err != nil {
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()

	w.refreshQuote(ctx)
	return nil
}

// Wait blocks until the in-flight run (if any) has finished.
func (w *PurchaseWorkflow) Wait(ctx context.Context) error {
	w.mu.Lock()
	ch := w.running
	w.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *PurchaseWorkflow) Snapshot() PurchaseSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := PurchaseSnapshot{
		ID:         w.intent.ID,
		AlbumID:    w.intent.AlbumID,
		SaleOption: w.intent.SaleOption,
		PayRail:    w.intent.PayRail,
		State:      w.state.Kind(),
		Slots:      purchase.SlotsOf(w.state),
		Quote:      w.quote,
		CanCancel:  !purchase.IsProcessing(w.state, w.intent.SaleOption),
		Terminal:   purchase.IsTerminal(w.state, w.intent.SaleOption),
		Message:    w.message,
		Receipt:    w.receipt,
		Closed:     w.closed,
		UpdatedAt:  w.updatedAt,
	}

	switch v := w.state.(type) {
	case purchase.Idle:
		s.ProceedEnabled = !w.closed && w.quote.Resolved && w.preflightErr == nil && w.deps.executor != nil
	case purchase.PaymentProcessing:
		s.Action = v.Action
	case purchase.MintConfirmed:
		ack := v.Ack
		s.MintAck = &ack
	case purchase.Failed:
		s.Failure = &FailureView{Stage: v.Stage, Reason: v.Reason}
	}
	return s
}

func (w *PurchaseWorkflow) processing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return purchase.IsProcessing(w.state, w.intent.SaleOption)
}

func (w *PurchaseWorkflow) lastUpdate() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.updatedAt
}

func preflightMessage(q purchase.Quote, err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientXP):
		return "Not enough XP to buy this album."
	case errors.Is(err, ErrPreAccessMissing):
		return "Wallet verification expired. Sign the access message again to continue."
	case errors.Is(err, ErrMintNotConfigured):
		return "Minting is unavailable right now, so this edition cannot be bought."
	case errors.Is(err, ErrQuoteUnresolved):
		if q.Err != "" {
			return "Price unavailable: " + q.Err
		}
		return "Price unavailable."
	default:
		return err.Error()
	}
}
