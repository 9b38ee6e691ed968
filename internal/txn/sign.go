package txn

import (
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"Stackstarter/internal/wallet"
)

// presignHash covers the transaction with a cleared spending condition,
// followed by the auth type, fee and nonce.
func (t *Transaction) presignHash() ([32]byte, error) {
	cleared := *t
	cleared.Auth.Nonce = 0
	cleared.Auth.Fee = 0
	cleared.Auth.Signature = [65]byte{}
	b, err := cleared.Serialize()
	if err != nil {
		return [32]byte{}, err
	}
	initial := sha512.Sum512_256(b)

	msg := make([]byte, 0, 32+1+8+8)
	msg = append(msg, initial[:]...)
	msg = append(msg, AuthStandard)
	msg = binary.BigEndian.AppendUint64(msg, t.Auth.Fee)
	msg = binary.BigEndian.AppendUint64(msg, t.Auth.Nonce)
	return sha512.Sum512_256(msg), nil
}

// Sign fills in the signature. Nonce and fee must be final.
func (t *Transaction) Sign(acct *wallet.Account) error {
	if t.Auth.Signer != acct.Hash160() {
		return fmt.Errorf("sign: account %s is not the transaction signer", acct.Address)
	}
	hash, err := t.presignHash()
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	compact := ecdsa.SignCompact(acct.PrivateKey, hash[:], acct.Compressed())
	recID := compact[0] - 27
	if acct.Compressed() {
		recID -= 4
	}
	t.Auth.Signature[0] = recID
	copy(t.Auth.Signature[1:], compact[1:])
	return nil
}

// RecoverSigner returns the hash160 of the key that produced the signature.
func (t *Transaction) RecoverSigner() ([20]byte, error) {
	hash, err := t.presignHash()
	if err != nil {
		return [20]byte{}, err
	}
	compact := make([]byte, 65)
	compact[0] = 27 + t.Auth.Signature[0]
	if t.Auth.KeyEncoding == KeyCompressed {
		compact[0] += 4
	}
	copy(compact[1:], t.Auth.Signature[1:])

	pub, compressed, err := ecdsa.RecoverCompact(compact, hash[:])
	if err != nil {
		return [20]byte{}, fmt.Errorf("recover signer: %w", err)
	}
	if compressed {
		return wallet.Hash160(pub.SerializeCompressed()), nil
	}
	return wallet.Hash160(pub.SerializeUncompressed()), nil
}

// Verify checks that the signature was made by Auth.Signer.
func (t *Transaction) Verify() error {
	signer, err := t.RecoverSigner()
	if err != nil {
		return err
	}
	if signer != t.Auth.Signer {
		return fmt.Errorf("signature does not match signer")
	}
	return nil
}
