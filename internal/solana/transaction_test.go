package solana

import (
	"bytes"
	"errors"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

func TestNewTransferTransaction(t *testing.T) {
	from, priv := testKey(1)
	to, _ := testKey(2)
	blockhash := Hash{0xAA}

	tx, err := NewTransferTransaction(from, to, 500_000_000, blockhash)
	if err != nil {
		t.Fatalf("NewTransferTransaction: %v", err)
	}

	h := tx.Message.Header
	if h.NumRequiredSignatures != 1 || h.NumReadonlySignedAccounts != 0 || h.NumReadonlyUnsignedAccounts != 1 {
		t.Errorf("unexpected header %+v", h)
	}
	keys := tx.Message.AccountKeys
	if len(keys) != 3 || keys[0] != from || keys[1] != to || keys[2] != SystemProgramID {
		t.Fatalf("unexpected account order: %v", keys)
	}
	if tx.Message.RecentBlockhash != blockhash {
		t.Errorf("expected blockhash %s, got %s", blockhash, tx.Message.RecentBlockhash)
	}
	if signers := Signers(tx); len(signers) != 1 || signers[0] != from {
		t.Errorf("expected sender as only signer, got %v", signers)
	}

	if err := CheckSigned(tx); !errors.Is(err, ErrMissingSignature) {
		t.Errorf("expected ErrMissingSignature, got %v", err)
	}
	if TransactionID(tx) != (Signature{}) {
		t.Error("unsigned transaction has no id")
	}

	signTx(t, tx, priv)
	if err := CheckSigned(tx); err != nil {
		t.Fatalf("CheckSigned: %v", err)
	}
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if !TransactionID(tx).Verify(from, msg) {
		t.Error("fee payer signature does not verify")
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if raw[0] != 1 || !bytes.Equal(raw[65:], msg) {
		t.Error("wire format is not signature count, signature, message")
	}
}

func TestCheckSigned_ZeroSignature(t *testing.T) {
	from, _ := testKey(1)
	to, _ := testKey(2)
	tx, err := NewTransferTransaction(from, to, 1, Hash{})
	if err != nil {
		t.Fatalf("NewTransferTransaction: %v", err)
	}
	tx.Signatures = []Signature{{}}
	if err := CheckSigned(tx); !errors.Is(err, ErrMissingSignature) {
		t.Errorf("expected ErrMissingSignature, got %v", err)
	}
}

func TestTransfers(t *testing.T) {
	from, _ := testKey(1)
	to, _ := testKey(2)
	tx, err := NewTransferTransaction(from, to, 77, Hash{1})
	if err != nil {
		t.Fatalf("NewTransferTransaction: %v", err)
	}

	transfers := Transfers(tx)
	if len(transfers) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(transfers))
	}
	if transfers[0] != (Transfer{From: from, To: to, Lamports: 77}) {
		t.Errorf("unexpected transfer %+v", transfers[0])
	}
}

func TestTransfers_SkipsOtherInstructions(t *testing.T) {
	from, _ := testKey(1)
	to, _ := testKey(2)
	tx, err := solanago.NewTransaction(
		[]solanago.Instruction{
			system.NewAssignInstruction(to, from).Build(),
			system.NewTransferInstruction(5, from, to).Build(),
		},
		Hash{},
		solanago.TransactionPayer(from),
	)
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}

	transfers := Transfers(tx)
	if len(transfers) != 1 || transfers[0].Lamports != 5 {
		t.Errorf("expected only the transfer, got %+v", transfers)
	}
}

func TestCloneTransaction(t *testing.T) {
	from, priv := testKey(1)
	to, _ := testKey(2)
	tx, err := NewTransferTransaction(from, to, 77, Hash{1})
	if err != nil {
		t.Fatalf("NewTransferTransaction: %v", err)
	}

	c, err := CloneTransaction(tx)
	if err != nil {
		t.Fatalf("CloneTransaction: %v", err)
	}
	signTx(t, c, priv)
	c.Message.Instructions[0].Data[4] = 0xff

	if len(tx.Signatures) != 0 {
		t.Error("clone shares signatures with original")
	}
	if Transfers(tx)[0].Lamports != 77 {
		t.Error("clone shares instruction data with original")
	}
}
