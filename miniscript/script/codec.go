package script

import (
	"fmt"

	"github.com/thoughtnetwork/miniscript/miniscript"
)

// KeyCodec converts between a concrete key type and its raw Script bytes.
// Satisfied by miniscript/satisfy.Secp256k1Key for the secp256k1 instantiation.
type KeyCodec[Pk miniscript.MiniscriptKey] interface {
	FromBytes([]byte) (Pk, error)
}

// encodeNum returns the minimal Script-number push encoding of n (sign
// magnitude, little-endian, CScriptNum rules): used for After/Older/k
// immediates, none of which Script represents via the small-int opcodes
// once outside the 0..16 range.
func encodeNum(n int64) []byte {
	if n == 0 {
		return nil
	}
	neg := n < 0
	abs := n
	if neg {
		abs = -abs
	}
	var out []byte
	for abs > 0 {
		out = append(out, byte(abs&0xff))
		abs >>= 8
	}
	if out[len(out)-1]&0x80 != 0 {
		if neg {
			out = append(out, 0x80)
		} else {
			out = append(out, 0x00)
		}
	} else if neg {
		out[len(out)-1] |= 0x80
	}
	return out
}

// decodeNum parses a minimally-encoded CScriptNum push, rejecting any
// non-minimal encoding (the literal "03990300b2" vector: a 3-byte push
// whose top byte is redundant).
func decodeNum(b []byte) (int64, bool) {
	if len(b) == 0 {
		return 0, true
	}
	last := b[len(b)-1]
	if last&0x7f == 0 && (len(b) == 1 || b[len(b)-2]&0x80 == 0) {
		return 0, false
	}
	var v int64
	for i := len(b) - 1; i >= 0; i-- {
		v <<= 8
		v |= int64(b[i])
	}
	neg := b[len(b)-1]&0x80 != 0
	if neg {
		v &^= int64(0x80) << uint(8*(len(b)-1))
		v = -v
	}
	return v, true
}

func pushBytes(data []byte) []byte {
	n := len(data)
	switch {
	case n <= 0x4b:
		return append([]byte{byte(n)}, data...)
	case n < 0x100:
		return append([]byte{OP_PUSHDATA1, byte(n)}, data...)
	case n < 0x10000:
		return append([]byte{OP_PUSHDATA2, byte(n), byte(n >> 8)}, data...)
	default:
		return append([]byte{OP_PUSHDATA4, byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)}, data...)
	}
}

func pushNum(n uint32) []byte {
	if n <= 16 {
		return []byte{smallIntOpcode(int(n))}
	}
	return pushBytes(encodeNum(int64(n)))
}

// Encode renders a fragment to its canonical Script bytes. Where the
// catalog permits an opcode-level optimization (e.g. folding a Verify
// wrapper's OP_VERIFY into the prior op's *-VERIFY form), this
// implementation keeps the two opcodes separate for decodability —
// documented in the grounding ledger as a deliberate simplification that
// preserves the round-trip property without chasing every upstream
// canonical-size optimization.
func Encode[Pk miniscript.MiniscriptKey](m *miniscript.Miniscript[Pk]) []byte {
	switch m.Kind {
	case miniscript.KindFalse:
		return []byte{OP_0}
	case miniscript.KindTrue:
		return []byte{OP_1}
	case miniscript.KindPk:
		return pushBytes(m.Key.Bytes())
	case miniscript.KindPkH:
		out := []byte{OP_DUP, OP_HASH160}
		out = append(out, pushBytes(m.KeyHash[:])...)
		out = append(out, OP_EQUALVERIFY)
		return out
	case miniscript.KindAfter:
		return append(pushNum(m.N), OP_CHECKLOCKTIMEVERIFY)
	case miniscript.KindOlder:
		return append(pushNum(m.N), OP_CHECKSEQUENCEVERIFY)
	case miniscript.KindSha256, miniscript.KindHash256:
		out := []byte{OP_SIZE}
		out = append(out, pushBytes([]byte{0x20})...)
		out = append(out, OP_EQUALVERIFY)
		if m.Kind == miniscript.KindSha256 {
			out = append(out, OP_SHA256)
		} else {
			out = append(out, OP_HASH256)
		}
		out = append(out, pushBytes(m.Hash32[:])...)
		return append(out, OP_EQUAL)
	case miniscript.KindRipemd160, miniscript.KindHash160:
		out := []byte{OP_SIZE}
		out = append(out, pushBytes([]byte{0x20})...)
		out = append(out, OP_EQUALVERIFY)
		if m.Kind == miniscript.KindRipemd160 {
			out = append(out, OP_RIPEMD160)
		} else {
			out = append(out, OP_HASH160)
		}
		out = append(out, pushBytes(m.Hash20[:])...)
		return append(out, OP_EQUAL)
	case miniscript.KindThreshM:
		out := pushNum(m.N)
		for _, k := range m.Keys {
			out = append(out, pushBytes(k.Bytes())...)
		}
		out = append(out, pushNum(uint32(len(m.Keys)))...)
		return append(out, OP_CHECKMULTISIG)

	case miniscript.KindAlt:
		out := []byte{OP_TOALTSTACK}
		out = append(out, Encode(m.Children[0])...)
		return append(out, OP_FROMALTSTACK)
	case miniscript.KindSwap:
		return append([]byte{OP_SWAP}, Encode(m.Children[0])...)
	case miniscript.KindCheck:
		return append(Encode(m.Children[0]), OP_CHECKSIG)
	case miniscript.KindDupIf:
		out := []byte{OP_DUP, OP_IF}
		out = append(out, Encode(m.Children[0])...)
		return append(out, OP_ENDIF)
	case miniscript.KindVerify:
		return append(Encode(m.Children[0]), OP_VERIFY)
	case miniscript.KindNonZero:
		out := []byte{OP_SIZE, OP_0NOTEQUAL, OP_IF}
		out = append(out, Encode(m.Children[0])...)
		return append(out, OP_ENDIF)
	case miniscript.KindZeroNotEqual:
		return append(Encode(m.Children[0]), OP_0NOTEQUAL)

	case miniscript.KindAndV:
		return append(Encode(m.Children[0]), Encode(m.Children[1])...)
	case miniscript.KindAndB:
		out := Encode(m.Children[0])
		out = append(out, Encode(m.Children[1])...)
		return append(out, OP_BOOLAND)
	case miniscript.KindOrB:
		out := Encode(m.Children[0])
		out = append(out, Encode(m.Children[1])...)
		return append(out, OP_BOOLOR)
	case miniscript.KindOrC:
		out := Encode(m.Children[0])
		out = append(out, OP_NOTIF)
		out = append(out, Encode(m.Children[1])...)
		return append(out, OP_ENDIF)
	case miniscript.KindOrD:
		out := Encode(m.Children[0])
		out = append(out, OP_IFDUP, OP_NOTIF)
		out = append(out, Encode(m.Children[1])...)
		return append(out, OP_ENDIF)
	case miniscript.KindOrI:
		out := []byte{OP_IF}
		out = append(out, Encode(m.Children[0])...)
		out = append(out, OP_ELSE)
		out = append(out, Encode(m.Children[1])...)
		return append(out, OP_ENDIF)
	case miniscript.KindAndOr:
		out := Encode(m.Children[0])
		out = append(out, OP_NOTIF)
		out = append(out, Encode(m.Children[2])...)
		out = append(out, OP_ELSE)
		out = append(out, Encode(m.Children[1])...)
		return append(out, OP_ENDIF)
	case miniscript.KindThresh:
		out := Encode(m.Children[0])
		for _, w := range m.Children[1:] {
			out = append(out, Encode(w)...)
			out = append(out, OP_ADD)
		}
		out = append(out, pushNum(m.N)...)
		return append(out, OP_EQUAL)
	}
	return nil
}

type decodeError struct{ msg string }

func (e *decodeError) Error() string { return "script: " + e.msg }

func newDecodeError(format string, args ...interface{}) error {
	return &decodeError{msg: fmt.Sprintf(format, args...)}
}

type token struct {
	op     byte
	data   []byte
	isPush bool
}

func tokenize(b []byte) ([]token, error) {
	t := MakeScriptTokenizer(b)
	var out []token
	for t.Next() {
		tok := token{op: t.Opcode(), data: t.Data()}
		tok.isPush = tok.data != nil || t.Opcode() == OP_0
		out = append(out, tok)
	}
	if t.Err() != nil {
		return nil, t.Err()
	}
	return out, nil
}

// Decode parses raw Script bytes back into a fragment tree. Grounded on the
// literal parse_script vector table: an empty script, a bare OP_VERIFY
// (0x69), a non-minimal 3-byte push used as a timelock immediate, and a
// 1-byte push encoded via OP_PUSHDATA1 must all be rejected.
func Decode[Pk miniscript.MiniscriptKey](b []byte, codec KeyCodec[Pk]) (*miniscript.Miniscript[Pk], error) {
	if len(b) == 0 {
		return nil, newDecodeError("empty script")
	}
	toks, err := tokenize(b)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, newDecodeError("empty script")
	}
	m, rest, err := decodeOne(toks, codec)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, newDecodeError("trailing bytes after top-level fragment")
	}
	return m, nil
}

// tryThreshM reports (via matched) whether toks begins with a complete
// <k> <key>... <n> OP_CHECKMULTISIG pattern. Returning matched=false with a
// nil error lets the caller fall back to other interpretations (notably
// OP_1/OP_0 as True/False) when the shape doesn't fully hold.
func tryThreshM[Pk miniscript.MiniscriptKey](toks []token, codec KeyCodec[Pk]) (*miniscript.Miniscript[Pk], []token, bool, error) {
	kn, ok := smallOrPushNum(toks[0])
	if !ok || kn < 1 {
		return nil, nil, false, nil
	}
	i := 1
	var keys [][]byte
	for i < len(toks) && toks[i].isPush && len(toks[i].data) == 33 {
		keys = append(keys, toks[i].data)
		i++
	}
	if len(keys) == 0 || i >= len(toks) {
		return nil, nil, false, nil
	}
	nn, ok2 := smallOrPushNum(toks[i])
	if !ok2 || int(nn) != len(keys) || i+1 >= len(toks) || toks[i+1].op != OP_CHECKMULTISIG {
		return nil, nil, false, nil
	}
	pks := make([]Pk, len(keys))
	for j, kb := range keys {
		pk, err := codec.FromBytes(kb)
		if err != nil {
			return nil, nil, true, err
		}
		pks[j] = pk
	}
	m, err := miniscript.NewThreshM(int(kn), pks)
	if err != nil {
		return nil, nil, true, err
	}
	return m, toks[i+2:], true, nil
}

func smallOrPushNum(t token) (int64, bool) {
	if isSmallInt(t.op) && !t.isPush {
		return int64(asSmallInt(t.op)), true
	}
	if t.isPush {
		if len(t.data) == 1 && t.data[0] >= 1 && t.data[0] <= 16 {
			return 0, false // should have used the small-int opcode form
		}
		return decodeNum(t.data)
	}
	return 0, false
}

// decodeOne recognizes exactly one fragment at the front of toks —
// terminal, wrapper-prefixed, or a left operand followed by whatever
// combinator suffix (OP_BOOLAND, a chain of OP_ADD, OP_NOTIF/OP_ENDIF,
// OP_CHECKSIG, ...) follows it — and returns the unconsumed remainder.
func decodeOne[Pk miniscript.MiniscriptKey](toks []token, codec KeyCodec[Pk]) (*miniscript.Miniscript[Pk], []token, error) {
	if len(toks) == 0 {
		return nil, nil, newDecodeError("unexpected end of script")
	}
	t0 := toks[0]

	// thresh_m: <k> <key>... <n> OP_CHECKMULTISIG. Tried before the
	// True/False terminal cases below because OP_1 doubles as both the
	// boolean-true opcode and the smallint push of k=1; the longer,
	// more specific pattern takes priority.
	if node, rest, matched, err := tryThreshM(toks, codec); matched {
		if err != nil {
			return nil, nil, err
		}
		return chainSuffix[Pk](node, rest, codec)
	}

	switch {
	case t0.op == OP_0 && t0.isPush:
		return chainSuffix[Pk](miniscript.NewFalse[Pk](), toks[1:], codec)
	case t0.op == OP_1:
		return chainSuffix[Pk](miniscript.NewTrue[Pk](), toks[1:], codec)
	case t0.isPush && len(t0.data) == 33:
		key, err := codec.FromBytes(t0.data)
		if err != nil {
			return nil, nil, err
		}
		return chainSuffix[Pk](miniscript.NewPk(key), toks[1:], codec)
	case t0.op == OP_DUP && len(toks) >= 4 && toks[1].op == OP_HASH160 &&
		toks[2].isPush && len(toks[2].data) == 20 && toks[3].op == OP_EQUALVERIFY:
		var h [20]byte
		copy(h[:], toks[2].data)
		return chainSuffix[Pk](miniscript.NewPkH[Pk](h), toks[4:], codec)
	case t0.isPush && len(toks) >= 2 && toks[1].op == OP_CHECKLOCKTIMEVERIFY:
		if len(t0.data) == 1 && t0.data[0] >= 1 && t0.data[0] <= 16 {
			return nil, nil, newDecodeError("after: non-minimal push")
		}
		n, ok := decodeNum(t0.data)
		if !ok || n <= 0 {
			return nil, nil, newDecodeError("after: invalid locktime immediate")
		}
		m, err := miniscript.NewAfter[Pk](uint32(n))
		if err != nil {
			return nil, nil, err
		}
		return chainSuffix[Pk](m, toks[2:], codec)
	case t0.isPush && len(toks) >= 2 && toks[1].op == OP_CHECKSEQUENCEVERIFY:
		if len(t0.data) == 1 && t0.data[0] >= 1 && t0.data[0] <= 16 {
			return nil, nil, newDecodeError("older: non-minimal push")
		}
		n, ok := decodeNum(t0.data)
		if !ok || n <= 0 {
			return nil, nil, newDecodeError("older: invalid locktime immediate")
		}
		m, err := miniscript.NewOlder[Pk](uint32(n))
		if err != nil {
			return nil, nil, err
		}
		return chainSuffix[Pk](m, toks[2:], codec)
	case t0.op == OP_SIZE && len(toks) >= 6 && toks[1].isPush && len(toks[1].data) == 1 &&
		toks[1].data[0] == 0x20 && toks[2].op == OP_EQUALVERIFY:
		hashOp := toks[3].op
		wantLen := 32
		if hashOp == OP_RIPEMD160 || hashOp == OP_HASH160 {
			wantLen = 20
		}
		if (hashOp == OP_SHA256 || hashOp == OP_HASH256 || hashOp == OP_RIPEMD160 || hashOp == OP_HASH160) &&
			toks[4].isPush && len(toks[4].data) == wantLen && toks[5].op == OP_EQUAL {
			var node *miniscript.Miniscript[Pk]
			switch hashOp {
			case OP_SHA256:
				var h [32]byte
				copy(h[:], toks[4].data)
				node = miniscript.NewSha256[Pk](h)
			case OP_HASH256:
				var h [32]byte
				copy(h[:], toks[4].data)
				node = miniscript.NewHash256[Pk](h)
			case OP_RIPEMD160:
				var h [20]byte
				copy(h[:], toks[4].data)
				node = miniscript.NewRipemd160[Pk](h)
			case OP_HASH160:
				var h [20]byte
				copy(h[:], toks[4].data)
				node = miniscript.NewHash160[Pk](h)
			}
			return chainSuffix[Pk](node, toks[6:], codec)
		}
	}

	switch t0.op {
	case OP_TOALTSTACK:
		inner, rest, err := decodeOne(toks[1:], codec)
		if err != nil {
			return nil, nil, err
		}
		if len(rest) == 0 || rest[0].op != OP_FROMALTSTACK {
			return nil, nil, newDecodeError("alt: missing OP_FROMALTSTACK")
		}
		m, err := miniscript.NewAlt(inner)
		if err != nil {
			return nil, nil, err
		}
		return chainSuffix[Pk](m, rest[1:], codec)
	case OP_SWAP:
		inner, rest, err := decodeOne(toks[1:], codec)
		if err != nil {
			return nil, nil, err
		}
		m, err := miniscript.NewSwap(inner)
		if err != nil {
			return nil, nil, err
		}
		return chainSuffix[Pk](m, rest, codec)
	case OP_DUP:
		if len(toks) >= 2 && toks[1].op == OP_IF {
			inner, rest, err := decodeOne(toks[2:], codec)
			if err != nil {
				return nil, nil, err
			}
			if len(rest) == 0 || rest[0].op != OP_ENDIF {
				return nil, nil, newDecodeError("dup_if: missing OP_ENDIF")
			}
			m, err := miniscript.NewDupIf(inner)
			if err != nil {
				return nil, nil, err
			}
			return chainSuffix[Pk](m, rest[1:], codec)
		}
	case OP_SIZE:
		if len(toks) >= 3 && toks[1].op == OP_0NOTEQUAL && toks[2].op == OP_IF {
			inner, rest, err := decodeOne(toks[3:], codec)
			if err != nil {
				return nil, nil, err
			}
			if len(rest) == 0 || rest[0].op != OP_ENDIF {
				return nil, nil, newDecodeError("non_zero: missing OP_ENDIF")
			}
			m, err := miniscript.NewNonZero(inner)
			if err != nil {
				return nil, nil, err
			}
			return chainSuffix[Pk](m, rest[1:], codec)
		}
	case OP_IF:
		left, mid, err := decodeOne(toks[1:], codec)
		if err != nil {
			return nil, nil, err
		}
		if len(mid) == 0 || mid[0].op != OP_ELSE {
			return nil, nil, newDecodeError("or_i/andor: missing OP_ELSE")
		}
		right, rest, err := decodeOne(mid[1:], codec)
		if err != nil {
			return nil, nil, err
		}
		if len(rest) == 0 || rest[0].op != OP_ENDIF {
			return nil, nil, newDecodeError("or_i/andor: missing OP_ENDIF")
		}
		m, err := miniscript.NewOrI(left, right)
		if err != nil {
			return nil, nil, err
		}
		return chainSuffix[Pk](m, rest[1:], codec)
	}

	return nil, nil, newDecodeError("unrecognized fragment at opcode %#x", t0.op)
}

// chainSuffix checks whether a combinator suffix follows the just-decoded
// left operand (node), building the combinator node and recursing until no
// further suffix applies.
func chainSuffix[Pk miniscript.MiniscriptKey](node *miniscript.Miniscript[Pk], rest []token, codec KeyCodec[Pk]) (*miniscript.Miniscript[Pk], []token, error) {
	if len(rest) == 0 {
		return node, rest, nil
	}
	switch rest[0].op {
	case OP_CHECKSIG:
		m, err := miniscript.NewCheck(node)
		if err != nil {
			return nil, nil, err
		}
		return chainSuffix[Pk](m, rest[1:], codec)
	case OP_VERIFY:
		m, err := miniscript.NewVerify(node)
		if err != nil {
			return nil, nil, err
		}
		return chainSuffix[Pk](m, rest[1:], codec)
	case OP_0NOTEQUAL:
		m, err := miniscript.NewZeroNotEqual(node)
		if err != nil {
			return nil, nil, err
		}
		return chainSuffix[Pk](m, rest[1:], codec)
	case OP_BOOLAND, OP_BOOLOR:
		rhs, after, err := decodeOne(rest[1:], codec)
		if err != nil {
			return nil, nil, err
		}
		var m *miniscript.Miniscript[Pk]
		if rest[0].op == OP_BOOLAND {
			m, err = miniscript.NewAndB(node, rhs)
		} else {
			m, err = miniscript.NewOrB(node, rhs)
		}
		if err != nil {
			return nil, nil, err
		}
		return chainSuffix[Pk](m, after, codec)
	case OP_ADD:
		subs := []*miniscript.Miniscript[Pk]{node}
		cur := rest[1:]
		for {
			w, after, err := decodeOne(cur, codec)
			if err != nil {
				return nil, nil, err
			}
			subs = append(subs, w)
			cur = after
			if len(cur) > 0 && cur[0].op == OP_ADD {
				cur = cur[1:]
				continue
			}
			break
		}
		if len(cur) < 2 {
			return nil, nil, newDecodeError("thresh: missing <k> OP_EQUAL trailer")
		}
		kn, ok := smallOrPushNum(cur[0])
		if !ok || cur[1].op != OP_EQUAL {
			return nil, nil, newDecodeError("thresh: malformed <k> OP_EQUAL trailer")
		}
		m, err := miniscript.NewThresh(int(kn), subs)
		if err != nil {
			return nil, nil, err
		}
		return chainSuffix[Pk](m, cur[2:], codec)
	case OP_NOTIF:
		right, after, err := decodeOne(rest[1:], codec)
		if err != nil {
			return nil, nil, err
		}
		if len(after) == 0 {
			return nil, nil, newDecodeError("or_c/andor: missing trailer")
		}
		if after[0].op == OP_ENDIF {
			m, err := miniscript.NewOrC(node, right)
			if err != nil {
				return nil, nil, err
			}
			return chainSuffix[Pk](m, after[1:], codec)
		}
		if after[0].op == OP_ELSE {
			mid, after2, err := decodeOne(after[1:], codec)
			if err != nil {
				return nil, nil, err
			}
			if len(after2) == 0 || after2[0].op != OP_ENDIF {
				return nil, nil, newDecodeError("andor: missing OP_ENDIF")
			}
			m, err := miniscript.NewAndOr(node, mid, right)
			if err != nil {
				return nil, nil, err
			}
			return chainSuffix[Pk](m, after2[1:], codec)
		}
		return nil, nil, newDecodeError("or_c/andor: unexpected trailer")
	case OP_IFDUP:
		if len(rest) >= 2 && rest[1].op == OP_NOTIF {
			right, after, err := decodeOne(rest[2:], codec)
			if err != nil {
				return nil, nil, err
			}
			if len(after) == 0 || after[0].op != OP_ENDIF {
				return nil, nil, newDecodeError("or_d: missing OP_ENDIF")
			}
			m, err := miniscript.NewOrD(node, right)
			if err != nil {
				return nil, nil, err
			}
			return chainSuffix[Pk](m, after[1:], codec)
		}
	}

	// and_v has no connecting opcode (its encoding is the plain
	// concatenation <L><R>): if tokens remain and none of the suffix forms
	// above matched, the only grammatical way to consume them is as the
	// right operand of an and_v whose left operand is node. A failed
	// attempt here just means rest belongs to an enclosing wrapper's
	// boundary (OP_ENDIF/OP_ELSE) and is handed back unconsumed.
	if len(rest) > 0 {
		if rhs, after, err := decodeOne(rest, codec); err == nil {
			if m, err := miniscript.NewAndV(node, rhs); err == nil {
				return chainSuffix[Pk](m, after, codec)
			}
		}
	}
	return node, rest, nil
}
