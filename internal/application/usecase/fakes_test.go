package usecase_test

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"musicvault/internal/application/usecase"
	mintrequest "musicvault/internal/domain/mintRequest"
	"musicvault/internal/domain/payment"
	"musicvault/internal/domain/purchase"
)

type fakeExecutor struct {
	rail          purchase.PayRail
	PreflightFunc func(ctx context.Context, intent purchase.PurchaseIntent, q purchase.Quote) error
	ExecuteFunc   func(ctx context.Context, intent purchase.PurchaseIntent, q purchase.Quote, sink usecase.ActionSink) (payment.Receipt, error)
	executeCalls  atomic.Int32
}

func (f *fakeExecutor) Rail() purchase.PayRail { return f.rail }

func (f *fakeExecutor) Preflight(ctx context.Context, intent purchase.PurchaseIntent, q purchase.Quote) error {
	if f.PreflightFunc == nil {
		return nil
	}
	return f.PreflightFunc(ctx, intent, q)
}

func (f *fakeExecutor) Execute(ctx context.Context, intent purchase.PurchaseIntent, q purchase.Quote, sink usecase.ActionSink) (payment.Receipt, error) {
	f.executeCalls.Add(1)
	if f.ExecuteFunc == nil {
		return receiptFor(intent, q, "ref-"+intent.ID), nil
	}
	return f.ExecuteFunc(ctx, intent, q, sink)
}

func receiptFor(intent purchase.PurchaseIntent, q purchase.Quote, ref string) payment.Receipt {
	currency := q.Currency
	if currency == "" {
		currency = payment.CurrencyUSD
	}
	amount := q.Amount
	if !amount.IsPositive() {
		amount = intent.PriceUSD
	}
	r, err := payment.NewReceipt(ref, amount, currency, intent.PayerAddress, intent.CreatorWallet, string(intent.PayRail), time.Now())
	if err != nil {
		panic(err)
	}
	return r
}

type fakeRecorder struct {
	LogFunc   func(ctx context.Context, r payment.Receipt, intent purchase.PurchaseIntent) (payment.LedgerEntry, error)
	calls     atomic.Int32
	needsCred bool
}

func (f *fakeRecorder) RequiresPreAccess() bool { return f.needsCred }

func (f *fakeRecorder) Log(ctx context.Context, r payment.Receipt, intent purchase.PurchaseIntent) (payment.LedgerEntry, error) {
	f.calls.Add(1)
	if f.LogFunc == nil {
		return payment.LedgerEntry{Receipt: r, AlbumID: intent.AlbumID}, nil
	}
	return f.LogFunc(ctx, r, intent)
}

type fakeMintRequester struct {
	MintFunc func(ctx context.Context, r payment.Receipt, intent purchase.PurchaseIntent) (mintrequest.MintAck, error)
	calls    atomic.Int32
	disabled bool
}

func (f *fakeMintRequester) Ready() bool { return !f.disabled }

func (f *fakeMintRequester) Mint(ctx context.Context, r payment.Receipt, intent purchase.PurchaseIntent) (mintrequest.MintAck, error) {
	f.calls.Add(1)
	if f.MintFunc == nil {
		return mintrequest.MintAck{RequestID: r.TransactionRef}, nil
	}
	return f.MintFunc(ctx, r, intent)
}

// fakeXPLedger debits balances on GiveXP.
type fakeXPLedger struct {
	mu         sync.Mutex
	balances   map[string]int64
	GiveXPFunc func(ctx context.Context, in usecase.GiveXPInput) (usecase.XPTransferResult, error)
	giveCalls  atomic.Int32
	lastGive   usecase.GiveXPInput
}

func newFakeXPLedger(balances map[string]int64) *fakeXPLedger {
	return &fakeXPLedger{balances: balances}
}

func (f *fakeXPLedger) Balance(_ context.Context, address string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[address], nil
}

func (f *fakeXPLedger) GiveXP(ctx context.Context, in usecase.GiveXPInput) (usecase.XPTransferResult, error) {
	n := f.giveCalls.Add(1)
	f.mu.Lock()
	f.lastGive = in
	f.mu.Unlock()
	if f.GiveXPFunc != nil {
		return f.GiveXPFunc(ctx, in)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[in.Payer] < in.Amount {
		return usecase.XPTransferResult{StatusCode: http.StatusPaymentRequired}, nil
	}
	f.balances[in.Payer] -= in.Amount
	f.balances[in.Recipient] += in.Amount
	return usecase.XPTransferResult{StatusCode: http.StatusOK, Receipt: fmt.Sprintf("xp-receipt-%d", n)}, nil
}

type fakeSolBuilder struct {
	lamports atomic.Uint64
}

func (f *fakeSolBuilder) BuildTransfer(_ context.Context, from, to string, lamports uint64) (usecase.UnsignedTransfer, error) {
	f.lamports.Store(lamports)
	return usecase.UnsignedTransfer{
		Message:   []byte("message:" + from + ">" + to),
		Tx:        []byte("unsigned-tx"),
		Blockhash: "blockhash-1",
	}, nil
}

type fakeSolSubmitter struct {
	SubmitFunc func(ctx context.Context, signedTx, expected []byte) (string, error)
	WaitFunc   func(ctx context.Context, sig string) error
	submits    atomic.Int32
}

func (f *fakeSolSubmitter) Submit(ctx context.Context, signedTx, expected []byte) (string, error) {
	f.submits.Add(1)
	if f.SubmitFunc != nil {
		return f.SubmitFunc(ctx, signedTx, expected)
	}
	return "sol-signature-1", nil
}

func (f *fakeSolSubmitter) WaitFinalized(ctx context.Context, sig string) error {
	if f.WaitFunc != nil {
		return f.WaitFunc(ctx, sig)
	}
	return nil
}

type fakeCardCreator struct {
	CreateFunc func(ctx context.Context, intent purchase.PurchaseIntent, amount decimal.Decimal) (usecase.CardIntent, error)
}

func (f *fakeCardCreator) CreateCardIntent(ctx context.Context, intent purchase.PurchaseIntent, amount decimal.Decimal) (usecase.CardIntent, error) {
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, intent, amount)
	}
	return usecase.CardIntent{
		PaymentIntentID: "pi_" + intent.ID,
		ClientSecret:    "pi_" + intent.ID + "_secret_abc",
	}, nil
}

func sequentialIDs(prefix string) func() string {
	var n atomic.Int32
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}
