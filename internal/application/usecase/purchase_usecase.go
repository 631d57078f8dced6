// internal/application/usecase/purchase_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"musicvault/internal/domain/purchase"
	"musicvault/internal/infra/logging"
)

var (
	ErrPurchaseNotFound    = errors.New("purchase: not found")
	ErrPurchaseDuplicate   = errors.New("purchase: another purchase of this album is in progress")
	ErrUnsupportedRail     = errors.New("purchase: pay rail is not available")
	ErrNoPendingSignature  = errors.New("purchase: no signature is pending")
	ErrInvalidSignedTxBody = errors.New("purchase: signed transaction is empty")
)

const defaultPurchaseRetention = time.Hour

// OpenPurchaseInput is the app-level input of Open.
type OpenPurchaseInput struct {
	AlbumID       string
	ArtistID      string
	ArtistSlug    string
	CreatorWallet string
	SaleOption    string
	PriceUSD      decimal.Decimal
	PayerAddress  string
	PayRail       string
	PreAccess     PreAccess
}

// PurchaseUsecaseDeps wires PurchaseUsecase.
type PurchaseUsecaseDeps struct {
	Quoter     Quoter
	Executors  []PaymentExecutor
	Recorder   PaymentRecorder
	Minter     MintRequester
	Signatures *Rendezvous[SignatureResult]
	Cards      *Rendezvous[CardOutcome]
	PreAccess  *PreAccessCache
	Validate   purchase.AddressValidator
	NewID      func() string
	Now        func() time.Time
}

// PurchaseUsecase はオープン中の購入ワークフローのレジストリ。
// 同じ (payer, album) で処理中のワークフローは同時に 1 つだけ。
type PurchaseUsecase struct {
	mu    sync.Mutex
	flows map[string]*PurchaseWorkflow

	quoter     Quoter
	executors  map[purchase.PayRail]PaymentExecutor
	recorder   PaymentRecorder
	minter     MintRequester
	signatures *Rendezvous[SignatureResult]
	cards      *Rendezvous[CardOutcome]
	preAccess  *PreAccessCache
	validate   purchase.AddressValidator
	newID      func() string
	now        func() time.Time
	retention  time.Duration
}

func NewPurchaseUsecase(d PurchaseUsecaseDeps) *PurchaseUsecase {
	execs := make(map[purchase.PayRail]PaymentExecutor, len(d.Executors))
	for _, e := range d.Executors {
		if e != nil {
			execs[e.Rail()] = e
		}
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &PurchaseUsecase{
		flows:      make(map[string]*PurchaseWorkflow),
		quoter:     d.Quoter,
		executors:  execs,
		recorder:   d.Recorder,
		minter:     d.Minter,
		signatures: d.Signatures,
		cards:      d.Cards,
		preAccess:  d.PreAccess,
		validate:   d.Validate,
		newID:      d.NewID,
		now:        now,
		retention:  defaultPurchaseRetention,
	}
}

// Open creates a PurchaseIntent and quotes it.
func (u *PurchaseUsecase) Open(ctx context.Context, in OpenPurchaseInput) (PurchaseSnapshot, error) {
	if u == nil || u.quoter == nil {
		return PurchaseSnapshot{}, ErrExecutorNotConfigured
	}

	payer := strings.TrimSpace(in.PayerAddress)
	if payer == "" {
		payer = PayerAddressFromContext(ctx)
	}
	opt, err := purchase.ParseSaleOption(in.SaleOption)
	if err != nil {
		return PurchaseSnapshot{}, err
	}
	rail, err := purchase.ParsePayRail(in.PayRail)
	if err != nil {
		return PurchaseSnapshot{}, err
	}
	exec, ok := u.executors[rail]
	if !ok {
		return PurchaseSnapshot{}, fmt.Errorf("%w: %s", ErrUnsupportedRail, rail)
	}

	intent, err := purchase.NewIntent(purchase.NewIntentInput{
		ID:            u.newID(),
		AlbumID:       in.AlbumID,
		ArtistID:      in.ArtistID,
		ArtistSlug:    in.ArtistSlug,
		CreatorWallet: in.CreatorWallet,
		SaleOption:    opt,
		PriceUSD:      in.PriceUSD,
		PayerAddress:  payer,
		PayRail:       rail,
	}, u.now(), u.validate)
	if err != nil {
		return PurchaseSnapshot{}, err
	}

	if in.PreAccess.Valid() && u.preAccess != nil {
		u.preAccess.Put(payer, in.PreAccess)
	}

	flow := newPurchaseWorkflow(intent, workflowDeps{
		quoter:   u.quoter,
		executor: exec,
		recorder: u.recorder,
		minter:   u.minter,
		creds:    u.credentials(),
		now:      u.now,
	})

	u.mu.Lock()
	u.sweepLocked()
	for id, f := range u.flows {
		fi := f.Intent()
		if fi.PayerAddress != payer || fi.AlbumID != intent.AlbumID {
			continue
		}
		// 前のモーダルは破棄。Cancel が処理中判定と close を同じロックで行う
		if err := f.Cancel(); err != nil {
			u.mu.Unlock()
			return PurchaseSnapshot{}, ErrPurchaseDuplicate
		}
		delete(u.flows, id)
	}
	u.flows[intent.ID] = flow
	u.mu.Unlock()

	flow.refreshQuote(ctx)

	slog.InfoContext(ctx, "[purchase_uc] opened",
		"intentId", intent.ID,
		"albumId", intent.AlbumID,
		"rail", rail,
		"saleOption", opt,
		"payer", logging.Mask(payer),
	)
	return flow.Snapshot(), nil
}

func (u *PurchaseUsecase) Get(ctx context.Context, id string) (PurchaseSnapshot, error) {
	f, err := u.lookup(ctx, id)
	if err != nil {
		return PurchaseSnapshot{}, err
	}
	return f.Snapshot(), nil
}

func (u *PurchaseUsecase) Proceed(ctx context.Context, id string) (PurchaseSnapshot, error) {
	f, err := u.lookup(ctx, id)
	if err != nil {
		return PurchaseSnapshot{}, err
	}
	if cred, ok := PreAccessFromContext(ctx); ok && u.preAccess != nil {
		u.preAccess.Put(f.Intent().PayerAddress, cred)
	}
	if err := f.Proceed(ctx); err != nil {
		return f.Snapshot(), err
	}
	return f.Snapshot(), nil
}

// SubmitSignature delivers the wallet prompt result of a SOL payment.
func (u *PurchaseUsecase) SubmitSignature(ctx context.Context, id string, res SignatureResult) error {
	f, err := u.lookup(ctx, id)
	if err != nil {
		return err
	}
	if !res.Rejected && len(res.SignedTx) == 0 {
		return ErrInvalidSignedTxBody
	}
	if u.signatures == nil || !u.signatures.Resolve(f.Intent().ID, res) {
		return ErrNoPendingSignature
	}
	return nil
}

// ConfirmCard is called from the processor webhook. false if no workflow waits for piID.
func (u *PurchaseUsecase) ConfirmCard(ctx context.Context, paymentIntentID string, out CardOutcome) bool {
	if u == nil || u.cards == nil {
		return false
	}
	ok := u.cards.Resolve(paymentIntentID, out)
	slog.InfoContext(ctx, "[purchase_uc] card outcome",
		"paymentIntentId", logging.Mask(paymentIntentID),
		"succeeded", out.Succeeded,
		"canceled", out.Canceled,
		"matched", ok,
	)
	return ok
}

// Cancel closes the intent (idle / failed / finished only).
func (u *PurchaseUsecase) Cancel(ctx context.Context, id string) error {
	f, err := u.lookup(ctx, id)
	if err != nil {
		return err
	}
	if err := f.Cancel(); err != nil {
		return err
	}
	u.mu.Lock()
	delete(u.flows, f.Intent().ID)
	u.mu.Unlock()
	return nil
}

func (u *PurchaseUsecase) Reset(ctx context.Context, id string) (PurchaseSnapshot, error) {
	f, err := u.lookup(ctx, id)
	if err != nil {
		return PurchaseSnapshot{}, err
	}
	if err := f.Reset(ctx); err != nil {
		return f.Snapshot(), err
	}
	return f.Snapshot(), nil
}

// Workflow exposes a workflow for tests and diagnostics.
func (u *PurchaseUsecase) Workflow(ctx context.Context, id string) (*PurchaseWorkflow, error) {
	return u.lookup(ctx, id)
}

func (u *PurchaseUsecase) lookup(ctx context.Context, id string) (*PurchaseWorkflow, error) {
	if u == nil {
		return nil, ErrPurchaseNotFound
	}
	u.mu.Lock()
	f, ok := u.flows[strings.TrimSpace(id)]
	u.mu.Unlock()
	if !ok {
		return nil, ErrPurchaseNotFound
	}
	// 他人の購入は見せない
	if owner := PayerAddressFromContext(ctx); owner != "" && owner != f.Intent().PayerAddress {
		return nil, ErrPurchaseNotFound
	}
	return f, nil
}

func (u *PurchaseUsecase) credentials() PreAccessProvider {
	if u.preAccess == nil {
		return nil
	}
	return u.preAccess
}

// sweepLocked drops workflows idle for longer than retention.
func (u *PurchaseUsecase) sweepLocked() {
	cutoff := u.now().Add(-u.retention)
	for id, f := range u.flows {
		if !f.processing() && f.lastUpdate().Before(cutoff) {
			delete(u.flows, id)
		}
	}
}
