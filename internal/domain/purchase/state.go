// internal/domain/purchase/state.go
package purchase

import (
	"errors"
	"fmt"
	"time"

	mintrequest "musicvault/internal/domain/mintRequest"
	"musicvault/internal/domain/payment"
)

// StateKind is the discriminator of State.
type StateKind string

const (
	KindIdle              StateKind = "idle"
	KindPaymentProcessing StateKind = "paymentProcessing"
	KindPaymentConfirmed  StateKind = "paymentConfirmed"
	KindMintProcessing    StateKind = "mintProcessing"
	KindMintConfirmed     StateKind = "mintConfirmed"
	KindFailed            StateKind = "failed"
)

// State はワークフローの状態（閉じた直和型）。
// 実装はこのパッケージ内の型だけ。
type State interface {
	Kind() StateKind
	sealed()
}

// ActionType is what the client must do to unblock a processing payment.
type ActionType string

const (
	ActionSignTransaction ActionType = "sign_transaction"
	ActionConfirmCard     ActionType = "confirm_card"
)

// Action is the pending external step (wallet prompt / hosted card element).
type Action struct {
	Type ActionType `json:"type"`
	// sign_transaction: base64 の未署名トランザクション
	// confirm_card    : Stripe client secret
	Payload string `json:"payload"`
	// sign_transaction: recent blockhash / confirm_card: PaymentIntent ID
	Ref       string    `json:"ref,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Stage string

const (
	StagePayment Stage = "payment"
	StageMint    Stage = "mint"
)

type FailureKind string

const (
	FailureExecution           FailureKind = "execution"
	FailureConfirmationTimeout FailureKind = "confirmationTimeout"
	FailureLogging             FailureKind = "logging"
	FailureMinting             FailureKind = "minting"
)

type Idle struct{}

type PaymentProcessing struct {
	Action *Action
}

type PaymentConfirmed struct {
	Receipt payment.Receipt
}

type MintProcessing struct {
	Receipt payment.Receipt
}

type MintConfirmed struct {
	Receipt payment.Receipt
	Ack     mintrequest.MintAck
}

// Failed は payment / mint どちらの段階からも到達しうる。
// Receipt は支払いが確定済みの場合のみ非 nil。
type Failed struct {
	Stage   Stage
	Reason  FailureKind
	Message string
	Receipt *payment.Receipt
}

func (Idle) Kind() StateKind              { return KindIdle }
func (PaymentProcessing) Kind() StateKind { return KindPaymentProcessing }
func (PaymentConfirmed) Kind() StateKind  { return KindPaymentConfirmed }
func (MintProcessing) Kind() StateKind    { return KindMintProcessing }
func (MintConfirmed) Kind() StateKind     { return KindMintConfirmed }
func (Failed) Kind() StateKind            { return KindFailed }

func (Idle) sealed()              {}
func (PaymentProcessing) sealed() {}
func (PaymentConfirmed) sealed()  {}
func (MintProcessing) sealed()    {}
func (MintConfirmed) sealed()     {}
func (Failed) sealed()            {}

var ErrInvalidTransition = errors.New("purchase: invalid state transition")

// transitions: from -> allowed to
var transitions = map[StateKind]map[StateKind]bool{
	KindIdle: {
		KindPaymentProcessing: true,
	},
	KindPaymentProcessing: {
		KindPaymentProcessing: true, // action の差し替え
		KindPaymentConfirmed:  true,
		KindFailed:            true,
		KindIdle:              true, // ユーザー中断
	},
	KindPaymentConfirmed: {
		KindMintProcessing: true,
		KindFailed:         true, // mint 前に中断した場合
	},
	KindMintProcessing: {
		KindMintConfirmed: true,
		KindFailed:        true,
	},
	KindFailed: {
		KindIdle: true,
	},
	KindMintConfirmed: {},
}

// ValidateTransition returns ErrInvalidTransition when from -> to is not allowed.
func ValidateTransition(from, to State) error {
	if from == nil || to == nil {
		return fmt.Errorf("%w: nil state", ErrInvalidTransition)
	}
	if !transitions[from.Kind()][to.Kind()] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from.Kind(), to.Kind())
	}
	// mint 段の失敗は receipt 無しでは表現できない
	if f, ok := to.(Failed); ok && f.Stage == StageMint && f.Receipt == nil {
		return fmt.Errorf("%w: mint failure without receipt", ErrInvalidTransition)
	}
	return nil
}

// SlotStatus is the per-stage UI flag.
type SlotStatus string

const (
	SlotIdle       SlotStatus = "idle"
	SlotProcessing SlotStatus = "processing"
	SlotConfirmed  SlotStatus = "confirmed"
	SlotFailed     SlotStatus = "failed"
)

type Slots struct {
	Payment SlotStatus `json:"payment"`
	Minting SlotStatus `json:"minting"`
}

// SlotsOf projects a state onto the two UI slots.
func SlotsOf(s State) Slots {
	switch v := s.(type) {
	case PaymentProcessing:
		return Slots{Payment: SlotProcessing, Minting: SlotIdle}
	case PaymentConfirmed:
		return Slots{Payment: SlotConfirmed, Minting: SlotIdle}
	case MintProcessing:
		return Slots{Payment: SlotConfirmed, Minting: SlotProcessing}
	case MintConfirmed:
		return Slots{Payment: SlotConfirmed, Minting: SlotConfirmed}
	case Failed:
		if v.Stage == StageMint {
			return Slots{Payment: SlotConfirmed, Minting: SlotFailed}
		}
		return Slots{Payment: SlotFailed, Minting: SlotIdle}
	default:
		return Slots{Payment: SlotIdle, Minting: SlotIdle}
	}
}

// IsProcessing は payment / mint いずれかが処理中かどうか。
// 処理中は cancel / close 不可。
func IsProcessing(s State, opt SaleOption) bool {
	switch s.(type) {
	case PaymentProcessing, MintProcessing:
		return true
	case PaymentConfirmed:
		// mint が続く場合は自動遷移の途中
		return opt.RequiresMint()
	default:
		return false
	}
}

// IsTerminal reports whether s is a final state for the given sale option.
func IsTerminal(s State, opt SaleOption) bool {
	switch s.(type) {
	case MintConfirmed, Failed:
		return true
	case PaymentConfirmed:
		return !opt.RequiresMint()
	default:
		return false
	}
}
