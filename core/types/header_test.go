package types

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func sampleHeader() *Header {
	return &Header{
		ParentHash:  common.HexToHash("0x83cafc574e1f51ba9dc0568fc617a08ea2429fb384059c972f13b19fa1c8dd55"),
		UncleHash:   EmptyUncleHash,
		Coinbase:    common.HexToAddress("0x8888f1f195afa192cfee860698584c030f4c9db1"),
		Root:        common.HexToHash("0xef1552a40b7165c3cd773806b9e0c165b75356e0314bf0706f279c729f51e017"),
		TxHash:      EmptyRootHash,
		ReceiptHash: EmptyRootHash,
		Difficulty:  big.NewInt(131_072),
		Number:      big.NewInt(100),
		GasLimit:    3_141_592,
		GasUsed:     21_000,
		Time:        1_426_516_743,
		Extra:       []byte("test header"),
		MixDigest:   common.HexToHash("0xbd4472abb6659ebe3ee06ee4d7b72a00a9f4d001caca51342001075469aff498"),
		Nonce:       EncodeNonce(0xa13a5a8c8f2bb1c4),
	}
}

func TestHeaderEncodingRoundTrip(t *testing.T) {
	header := sampleHeader()

	raw, err := EncodeHeader(header)
	require.NoError(t, err)

	decoded, err := DecodeHeader(raw)
	require.NoError(t, err)
	require.Equal(t, header.ParentHash, decoded.ParentHash)
	require.Equal(t, header.Difficulty, decoded.Difficulty)
	require.Equal(t, header.Number, decoded.Number)
	require.Equal(t, header.Extra, decoded.Extra)
	require.Equal(t, header.Nonce, decoded.Nonce)
	require.Equal(t, header.Hash(), decoded.Hash())

	reencoded, err := EncodeHeader(decoded)
	require.NoError(t, err)
	require.Equal(t, raw, reencoded)
}

func TestHeaderHash(t *testing.T) {
	header := sampleHeader()

	// The content hash is the keccak of the canonical encoding.
	raw, err := EncodeHeader(header)
	require.NoError(t, err)
	require.Equal(t, common.BytesToHash(crypto.Keccak256(raw)), header.Hash())

	// Cached across calls and stable across deep copies.
	require.Equal(t, header.Hash(), header.Hash())
	require.Equal(t, header.Hash(), CopyHeader(header).Hash())

	// The seal hash excludes mix digest and nonce, so it differs from the
	// content hash but survives reseals.
	require.NotEqual(t, header.Hash(), header.SealHash())
	resealed := CopyHeader(header)
	resealed.MixDigest = common.Hash{}
	resealed.Nonce = BlockNonce{}
	require.Equal(t, header.SealHash(), resealed.SealHash())
	require.NotEqual(t, header.Hash(), resealed.Hash())
}

func TestDecodeHeaderRejectsGarbage(t *testing.T) {
	raw, err := EncodeHeader(sampleHeader())
	require.NoError(t, err)

	_, err = DecodeHeader(append(raw, 0x00))
	require.Error(t, err, "trailing bytes must be rejected")

	_, err = DecodeHeader(raw[:len(raw)-1])
	require.Error(t, err, "truncated input must be rejected")

	_, err = DecodeHeader([]byte{0xc0})
	require.Error(t, err, "empty list must be rejected")

	_, err = DecodeHeader(nil)
	require.Error(t, err)
}

func TestHeaderSanityCheck(t *testing.T) {
	require.NoError(t, sampleHeader().SanityCheck())

	header := sampleHeader()
	header.Number = nil
	require.Error(t, header.SanityCheck())

	header = sampleHeader()
	header.Number = new(big.Int).Lsh(common.Big1, 64)
	require.Error(t, header.SanityCheck())

	header = sampleHeader()
	header.Difficulty = nil
	require.Error(t, header.SanityCheck())

	header = sampleHeader()
	header.Difficulty = big.NewInt(0)
	require.Error(t, header.SanityCheck())

	header = sampleHeader()
	header.Difficulty = new(big.Int).Lsh(common.Big1, 81)
	require.Error(t, header.SanityCheck())

	header = sampleHeader()
	header.Extra = make([]byte, MaximumHeaderExtra+1)
	require.Error(t, header.SanityCheck())
}

func TestHeaderJSON(t *testing.T) {
	header := sampleHeader()

	data, err := json.Marshal(header)
	require.NoError(t, err)
	require.Contains(t, string(data), header.Hash().Hex())

	decoded := new(Header)
	require.NoError(t, json.Unmarshal(data, decoded))
	require.Equal(t, header.Hash(), decoded.Hash())

	err = json.Unmarshal([]byte(`{"parentHash":"0x00"}`), new(Header))
	require.Error(t, err)
}

func TestCheckpointFileRoundTrip(t *testing.T) {
	cp := &Checkpoint{Header: sampleHeader(), TotalDifficulty: big.NewInt(10_000_000)}

	data, err := EncodeCheckpoint(cp)
	require.NoError(t, err)

	parsed, err := ParseCheckpoint(data)
	require.NoError(t, err)
	require.Equal(t, cp.Hash(), parsed.Hash())
	require.Equal(t, cp.Number(), parsed.Number())
	require.Equal(t, cp.TotalDifficulty, parsed.TotalDifficulty)

	_, err = ParseCheckpoint([]byte(`{`))
	require.Error(t, err)

	_, err = ParseCheckpoint([]byte(`{"headerRlp":"0xc0","totalDifficulty":"0x1"}`))
	require.Error(t, err)
}

func TestCheckpointSanity(t *testing.T) {
	require.Error(t, (&Checkpoint{}).Sanity())

	cp := &Checkpoint{Header: sampleHeader()}
	require.Error(t, cp.Sanity(), "missing total difficulty")

	cp.TotalDifficulty = big.NewInt(1)
	require.Error(t, cp.Sanity(), "total difficulty below own difficulty")

	cp.TotalDifficulty = big.NewInt(10_000_000)
	require.NoError(t, cp.Sanity())
}
