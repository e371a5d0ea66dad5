package solana

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// ErrMissingSignature is returned when a required signer has not signed.
var ErrMissingSignature = errors.New("transaction is missing a required signature")

// NewTransferTransaction builds an unsigned System Program transfer of
// lamports. The sender pays the fee.
func NewTransferTransaction(from, to PublicKey, lamports uint64, recentBlockhash Hash) (*Transaction, error) {
	tx, err := solanago.NewTransaction(
		[]solanago.Instruction{system.NewTransferInstruction(lamports, from, to).Build()},
		recentBlockhash,
		solanago.TransactionPayer(from),
	)
	if err != nil {
		return nil, fmt.Errorf("build transfer: %w", err)
	}
	return tx, nil
}

// Transfer is a decoded System Program transfer.
type Transfer struct {
	From     PublicKey
	To       PublicKey
	Lamports uint64
}

// Transfers decodes the System Program transfers in the message. Other
// instructions are skipped.
func Transfers(tx *Transaction) []Transfer {
	keys := tx.Message.AccountKeys
	var out []Transfer
	for _, ix := range tx.Message.Instructions {
		if int(ix.ProgramIDIndex) >= len(keys) || !keys[ix.ProgramIDIndex].Equals(SystemProgramID) || len(ix.Accounts) != 2 {
			continue
		}
		accounts := make([]*solanago.AccountMeta, 0, len(ix.Accounts))
		for _, idx := range ix.Accounts {
			if int(idx) < len(keys) {
				accounts = append(accounts, solanago.Meta(keys[idx]))
			}
		}
		if len(accounts) != 2 {
			continue
		}

		decoded, err := system.DecodeInstruction(accounts, ix.Data)
		if err != nil {
			continue
		}
		transfer, ok := decoded.Impl.(*system.Transfer)
		if !ok || transfer.Lamports == nil {
			continue
		}
		out = append(out, Transfer{
			From:     transfer.GetFundingAccount().PublicKey,
			To:       transfer.GetRecipientAccount().PublicKey,
			Lamports: *transfer.Lamports,
		})
	}
	return out
}

// CloneTransaction returns a copy that shares no mutable state with tx.
func CloneTransaction(tx *Transaction) (*Transaction, error) {
	raw, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	var msg solanago.Message
	if err := msg.UnmarshalWithDecoder(bin.NewBinDecoder(raw)); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return &Transaction{
		Signatures: append([]Signature(nil), tx.Signatures...),
		Message:    msg,
	}, nil
}

// SignCopy returns a copy of tx signed by key, which must be its only
// required signer. tx is not modified.
func SignCopy(tx *Transaction, key PrivateKey) (*Transaction, error) {
	signed, err := CloneTransaction(tx)
	if err != nil {
		return nil, err
	}
	signed.Signatures = nil
	address := key.PublicKey()
	if _, err := signed.Sign(func(pub PublicKey) *PrivateKey {
		if pub.Equals(address) {
			return &key
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}

// Signers returns the keys whose signatures the message requires, fee payer first.
func Signers(tx *Transaction) []PublicKey {
	n := int(tx.Message.Header.NumRequiredSignatures)
	if n > len(tx.Message.AccountKeys) {
		n = len(tx.Message.AccountKeys)
	}
	return tx.Message.AccountKeys[:n]
}

// TransactionID returns the fee payer's signature, which identifies the
// transaction. It is zero until the transaction is signed.
func TransactionID(tx *Transaction) Signature {
	if len(tx.Signatures) == 0 {
		return Signature{}
	}
	return tx.Signatures[0]
}

// CheckSigned fails unless every required signer has a non-zero signature.
func CheckSigned(tx *Transaction) error {
	signers := Signers(tx)
	if len(tx.Signatures) != len(signers) {
		return fmt.Errorf("%w: have %d, want %d", ErrMissingSignature, len(tx.Signatures), len(signers))
	}
	for i, sig := range tx.Signatures {
		if sig == (Signature{}) {
			return fmt.Errorf("%w: %s", ErrMissingSignature, signers[i])
		}
	}
	return nil
}
