package chain

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Instruction is one program call within a Transaction: the index into
// AccountKeys naming the target program, the indices of the accounts it
// touches, and its discriminator-prefixed payload.
type Instruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

// Transaction is this broker's own canonical wire format: a length-prefixed
// account key table, a blockhash, an instruction list, and a signature slot
// per account that must sign. The external chain's real client library is
// explicitly not something the server binds to (account/program bytecode
// compatibility is the deployed program's concern, not this broker's) — this
// type only needs to round-trip through build → client sign → submit.
type Transaction struct {
	AccountKeys     []string
	RecentBlockhash string
	Instructions    []Instruction
	Signatures      [][64]byte // parallel to the first len(Signatures) AccountKeys
}

// message serializes account keys, blockhash, and instructions only — the
// portion the client signs (spec §6.3 step 3).
func (t Transaction) message() []byte {
	buf := new(bytes.Buffer)
	writeUvarint(buf, uint64(len(t.AccountKeys)))
	for _, k := range t.AccountKeys {
		writeBytes(buf, []byte(k))
	}
	writeBytes(buf, []byte(t.RecentBlockhash))
	writeUvarint(buf, uint64(len(t.Instructions)))
	for _, ix := range t.Instructions {
		buf.WriteByte(ix.ProgramIDIndex)
		writeUvarint(buf, uint64(len(ix.Accounts)))
		buf.Write(ix.Accounts)
		writeBytes(buf, ix.Data)
	}
	return buf.Bytes()
}

// serialize encodes the full transaction including its (possibly zeroed)
// signature slots (spec §6.3 step 2).
func (t Transaction) serialize() []byte {
	buf := new(bytes.Buffer)
	writeUvarint(buf, uint64(len(t.Signatures)))
	for _, sig := range t.Signatures {
		buf.Write(sig[:])
	}
	buf.Write(t.message())
	return buf.Bytes()
}

func (t Transaction) serializeBase64() string {
	return base64.StdEncoding.EncodeToString(t.serialize())
}

func (t Transaction) messageBase64() string {
	return base64.StdEncoding.EncodeToString(t.message())
}

// messageHash is the digest signers actually sign over.
func (t Transaction) messageHash() [32]byte {
	return sha256.Sum256(t.message())
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	tmp := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(tmp, v)
	buf.Write(tmp[:n])
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUvarint(buf, uint64(len(b)))
	buf.Write(b)
}

// deserializeTransaction parses bytes previously produced by serialize, used
// by the broker to recover the transaction a client echoes back in Stage C
// so the server can fill in signature slots. The account keys and
// instructions are taken from the client's bytes as given; callers check
// only that the fee payer matches the submitting wallet.
func deserializeTransaction(data []byte) (*Transaction, error) {
	r := bytes.NewReader(data)
	sigCount, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, errors.Wrap(err, "read signature count")
	}
	sigs := make([][64]byte, sigCount)
	for i := range sigs {
		if _, err := r.Read(sigs[i][:]); err != nil {
			return nil, errors.Wrap(err, "read signature")
		}
	}

	keyCount, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, errors.Wrap(err, "read account key count")
	}
	keys := make([]string, keyCount)
	for i := range keys {
		k, err := readBytes(r)
		if err != nil {
			return nil, errors.Wrap(err, "read account key")
		}
		keys[i] = string(k)
	}

	blockhash, err := readBytes(r)
	if err != nil {
		return nil, errors.Wrap(err, "read blockhash")
	}

	ixCount, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, errors.Wrap(err, "read instruction count")
	}
	ixs := make([]Instruction, ixCount)
	for i := range ixs {
		progIdx, err := r.ReadByte()
		if err != nil {
			return nil, errors.Wrap(err, "read program id index")
		}
		accCount, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, errors.Wrap(err, "read account count")
		}
		accounts := make([]byte, accCount)
		if _, err := r.Read(accounts); err != nil {
			return nil, errors.Wrap(err, "read accounts")
		}
		data, err := readBytes(r)
		if err != nil {
			return nil, errors.Wrap(err, "read instruction data")
		}
		ixs[i] = Instruction{ProgramIDIndex: progIdx, Accounts: accounts, Data: data}
	}

	return &Transaction{
		AccountKeys:     keys,
		RecentBlockhash: string(blockhash),
		Instructions:    ixs,
		Signatures:      sigs,
	}, nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if n == 0 {
		return b, nil
	}
	if _, err := r.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
