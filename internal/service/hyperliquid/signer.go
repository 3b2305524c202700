package hyperliquid

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vmihailenco/msgpack/v5"
)

// Signature is the r/s/v triple attached to every exchange action.
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V byte   `json:"v"`
}

// Signer produces L1 action signatures for an API wallet.
type Signer struct {
	key     *ecdsa.PrivateKey
	mainnet bool
}

func NewSigner(privateKey string, mainnet bool) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse api wallet key: %w", err)
	}
	return &Signer{key: key, mainnet: mainnet}, nil
}

// Address is the API wallet address derived from the key.
func (s *Signer) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// SignAction signs action as a phantom agent, the scheme used for orders
// and leverage updates.
func (s *Signer) SignAction(action any, nonce uint64, vault string) (Signature, error) {
	hash, err := actionHash(action, nonce, vault)
	if err != nil {
		return Signature{}, err
	}
	digest, err := s.agentDigest(hash)
	if err != nil {
		return Signature{}, err
	}

	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return Signature{}, fmt.Errorf("sign action: %w", err)
	}

	return Signature{
		R: hexutil.EncodeBig(new(big.Int).SetBytes(sig[:32])),
		S: hexutil.EncodeBig(new(big.Int).SetBytes(sig[32:64])),
		V: sig[64] + 27,
	}, nil
}

// agentDigest is the EIP-712 hash of Agent{source, connectionId}.
func (s *Signer) agentDigest(connectionID []byte) ([]byte, error) {
	source := "a"
	if !s.mainnet {
		source = "b"
	}

	typed := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Agent": {
				{Name: "source", Type: "string"},
				{Name: "connectionId", Type: "bytes32"},
			},
		},
		PrimaryType: "Agent",
		Domain: apitypes.TypedDataDomain{
			Name:              "Exchange",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(1337),
			VerifyingContract: "0x0000000000000000000000000000000000000000",
		},
		Message: apitypes.TypedDataMessage{
			"source":       source,
			"connectionId": connectionID,
		},
	}

	digest, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return nil, fmt.Errorf("hash typed data: %w", err)
	}
	return digest, nil
}

// actionHash is keccak256(msgpack(action) || nonce || vault flag [|| vault]).
func actionHash(action any, nonce uint64, vault string) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(action); err != nil {
		return nil, fmt.Errorf("msgpack action: %w", err)
	}

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	buf.Write(n[:])

	if vault == "" {
		buf.WriteByte(0x00)
	} else {
		buf.WriteByte(0x01)
		buf.Write(common.HexToAddress(vault).Bytes())
	}
	return crypto.Keccak256(buf.Bytes()), nil
}
