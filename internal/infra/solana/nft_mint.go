// internal/infra/solana/nft_mint.go
package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/types"

	"musicvault/internal/application/usecase"
	mintrequest "musicvault/internal/domain/mintRequest"
	"musicvault/internal/infra/logging"
)

var ErrMinterNotConfigured = errors.New("onchain_minter: not configured")

const (
	nftSymbol            = "MVLT"
	sellerFeeBasisPoints = 500 // 5%
	maxNameLen           = 32
)

// OnchainMinter は mint 権限ウォレットで Metaplex NFT を直接発行する。
// MINT_MODE=onchain のときに usecase.Minter として使う。
type OnchainMinter struct {
	RPC       RPC
	Authority types.Account

	// MetadataBaseURL + "/<albumId>/<nftType>.json"
	MetadataBaseURL string

	newMint func() types.Account
	now     func() time.Time
}

func NewOnchainMinter(r RPC, authority types.Account, metadataBaseURL string) *OnchainMinter {
	return &OnchainMinter{
		RPC:             r,
		Authority:       authority,
		MetadataBaseURL: strings.TrimRight(strings.TrimSpace(metadataBaseURL), "/"),
		newMint:         types.NewAccount,
		now:             time.Now,
	}
}

var _ usecase.Minter = (*OnchainMinter)(nil)

// Mint issues one NFT (MaxSupply=1) to req.MintForAddress.
// ライセンスのみの依頼はチェーンに触れず ack だけ返す。
func (m *OnchainMinter) Mint(ctx context.Context, req mintrequest.MintRequest) (mintrequest.MintAck, error) {
	if m == nil || m.RPC == nil || len(m.Authority.PrivateKey) == 0 {
		return mintrequest.MintAck{}, ErrMinterNotConfigured
	}

	if req.LicenseFlags.OnlyNeedLicenseNoNftMint {
		slog.Info("[onchain_minter] license only, no nft minted",
			"requestId", logging.Mask(req.ID),
			"albumId", req.AlbumID,
		)
		return mintrequest.MintAck{RequestID: req.ID, At: m.now().UTC()}, nil
	}

	if err := ValidateAddress(req.MintForAddress); err != nil {
		return mintrequest.MintAck{}, err
	}

	feePayer := m.Authority
	owner := common.PublicKeyFromString(req.MintForAddress)
	mint := m.newMint()

	ata, _, err := common.FindAssociatedTokenAddress(owner, mint.PublicKey)
	if err != nil {
		return mintrequest.MintAck{}, fmt.Errorf("FindAssociatedTokenAddress: %w", err)
	}
	metadataPubkey, err := token_metadata.GetTokenMetaPubkey(mint.PublicKey)
	if err != nil {
		return mintrequest.MintAck{}, fmt.Errorf("GetTokenMetaPubkey: %w", err)
	}
	masterEditionPubkey, err := token_metadata.GetMasterEdition(mint.PublicKey)
	if err != nil {
		return mintrequest.MintAck{}, fmt.Errorf("GetMasterEdition: %w", err)
	}

	mintRent, err := m.RPC.GetMinimumBalanceForRentExemption(ctx, token.MintAccountSize)
	if err != nil {
		return mintrequest.MintAck{}, fmt.Errorf("GetMinimumBalanceForRentExemption: %w", err)
	}
	recent, err := m.RPC.GetLatestBlockhash(ctx)
	if err != nil {
		return mintrequest.MintAck{}, fmt.Errorf("GetLatestBlockhash: %w", err)
	}

	maxSupply := uint64(1)

	tx, err := types.NewTransaction(types.NewTransactionParam{
		Signers: []types.Account{mint, feePayer},
		Message: types.NewMessage(types.NewMessageParam{
			FeePayer:        feePayer.PublicKey,
			RecentBlockhash: recent.Blockhash,
			Instructions: []types.Instruction{
				system.CreateAccount(system.CreateAccountParam{
					From:     feePayer.PublicKey,
					New:      mint.PublicKey,
					Owner:    common.TokenProgramID,
					Lamports: mintRent,
					Space:    token.MintAccountSize,
				}),
				token.InitializeMint(token.InitializeMintParam{
					Decimals:   0,
					Mint:       mint.PublicKey,
					MintAuth:   feePayer.PublicKey,
					FreezeAuth: &feePayer.PublicKey,
				}),
				token_metadata.CreateMetadataAccountV3(token_metadata.CreateMetadataAccountV3Param{
					Metadata:                metadataPubkey,
					Mint:                    mint.PublicKey,
					MintAuthority:           feePayer.PublicKey,
					UpdateAuthority:         feePayer.PublicKey,
					Payer:                   feePayer.PublicKey,
					UpdateAuthorityIsSigner: true,
					IsMutable:               true,
					Data: token_metadata.DataV2{
						Name:                 nftName(req),
						Symbol:               nftSymbol,
						Uri:                  m.metadataURI(req),
						SellerFeeBasisPoints: sellerFeeBasisPoints,
						Creators: &[]token_metadata.Creator{
							{Address: feePayer.PublicKey, Verified: true, Share: 100},
						},
					},
				}),
				associated_token_account.CreateAssociatedTokenAccount(associated_token_account.CreateAssociatedTokenAccountParam{
					Funder:                 feePayer.PublicKey,
					Owner:                  owner,
					Mint:                   mint.PublicKey,
					AssociatedTokenAccount: ata,
				}),
				token.MintTo(token.MintToParam{
					Mint:   mint.PublicKey,
					To:     ata,
					Auth:   feePayer.PublicKey,
					Amount: 1,
				}),
				token_metadata.CreateMasterEditionV3(token_metadata.CreateMasterEditionParam{
					Edition:         masterEditionPubkey,
					Mint:            mint.PublicKey,
					UpdateAuthority: feePayer.PublicKey,
					MintAuthority:   feePayer.PublicKey,
					Metadata:        metadataPubkey,
					Payer:           feePayer.PublicKey,
					MaxSupply:       &maxSupply,
				}),
			},
		}),
	})
	if err != nil {
		return mintrequest.MintAck{}, fmt.Errorf("NewTransaction: %w", err)
	}

	sig, err := m.RPC.SendTransaction(ctx, tx)
	if err != nil {
		return mintrequest.MintAck{}, fmt.Errorf("SendTransaction: %w", err)
	}

	slog.Info("[onchain_minter] minted",
		"requestId", logging.Mask(req.ID),
		"mint", mint.PublicKey.ToBase58(),
		"owner", logging.Mask(req.MintForAddress),
		"signature", logging.Mask(sig),
	)

	return mintrequest.MintAck{
		RequestID: req.ID,
		Signature: sig,
		MintAddr:  mint.PublicKey.ToBase58(),
		At:        m.now().UTC(),
	}, nil
}

func (m *OnchainMinter) metadataURI(req mintrequest.MintRequest) string {
	return fmt.Sprintf("%s/%s/%s.json", m.MetadataBaseURL, req.AlbumID, req.NFTType)
}

// nftName: Metaplex の name は 32 バイトまで
func nftName(req mintrequest.MintRequest) string {
	name := string(req.NFTType) + " " + req.AlbumID
	if req.LicenseFlags.UseCommercialLicenseT2 {
		name = "T2 " + name
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	return name
}
