package miniscript

import (
	"encoding/hex"
	"strconv"
	"strings"
)

// ParseString parses the textual Miniscript surface syntax (spec §6):
// lower-case fragment names, colon-prefixed wrapper chains (possibly
// chained, e.g. "lltvln:after(...)"), printable ASCII only. keyFromString
// converts a raw key token into the caller's concrete key type.
func ParseString[Pk MiniscriptKey](s string, keyFromString func(string) (Pk, error)) (*Miniscript[Pk], error) {
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			return nil, newScriptError("parse: non-printable-ASCII input")
		}
	}
	p := &textParser[Pk]{s: s, keyFromString: keyFromString}
	m, rest, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if rest != len(s) {
		return nil, newScriptError("parse: trailing input %q", s[rest:])
	}
	return m, nil
}

type textParser[Pk MiniscriptKey] struct {
	s             string
	keyFromString func(string) (Pk, error)
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func (p *textParser[Pk]) readIdent(pos int) (string, int) {
	start := pos
	for pos < len(p.s) && isIdentByte(p.s[pos]) {
		pos++
	}
	return p.s[start:pos], pos
}

func (p *textParser[Pk]) expect(pos int, c byte) (int, error) {
	if pos >= len(p.s) || p.s[pos] != c {
		return pos, newScriptError("parse: expected %q at offset %d", string(c), pos)
	}
	return pos + 1, nil
}

// parseExpr parses one fragment (with any wrapper prefix) starting at pos,
// returning the built node and the position just past it.
func (p *textParser[Pk]) parseExpr(pos int) (*Miniscript[Pk], int, error) {
	tok, next := p.readIdent(pos)
	if tok == "" {
		return nil, pos, newScriptError("parse: expected identifier at offset %d", pos)
	}
	if next < len(p.s) && p.s[next] == ':' {
		// tok is a wrapper-letter chain; the colon is followed by the
		// fragment it wraps.
		base, after, err := p.parseExpr(next + 1)
		if err != nil {
			return nil, pos, err
		}
		wrapped := base
		for i := len(tok) - 1; i >= 0; i-- {
			wrapped, err = applyWrap(tok[i], wrapped)
			if err != nil {
				return nil, pos, err
			}
		}
		return wrapped, after, nil
	}

	switch tok {
	case "0":
		return NewFalse[Pk](), next, nil
	case "1":
		return NewTrue[Pk](), next, nil
	}

	next, err := p.expect(next, '(')
	if err != nil {
		return nil, pos, err
	}

	switch tok {
	case "pk":
		arg, after, err := p.readArgToken(next)
		if err != nil {
			return nil, pos, err
		}
		key, err := p.keyFromString(arg)
		if err != nil {
			return nil, pos, err
		}
		after, err = p.expect(after, ')')
		if err != nil {
			return nil, pos, err
		}
		return NewPk(key), after, nil

	case "pk_h":
		arg, after, err := p.readArgToken(next)
		if err != nil {
			return nil, pos, err
		}
		h, err := decodeFixed(arg, 20)
		if err != nil {
			return nil, pos, err
		}
		after, err = p.expect(after, ')')
		if err != nil {
			return nil, pos, err
		}
		var arr [20]byte
		copy(arr[:], h)
		return NewPkH[Pk](arr), after, nil

	case "after", "older":
		arg, after, err := p.readArgToken(next)
		if err != nil {
			return nil, pos, err
		}
		n, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return nil, pos, newScriptError("parse: %s: bad integer %q", tok, arg)
		}
		after, err = p.expect(after, ')')
		if err != nil {
			return nil, pos, err
		}
		if tok == "after" {
			m, err := NewAfter[Pk](uint32(n))
			return m, after, err
		}
		m, err := NewOlder[Pk](uint32(n))
		return m, after, err

	case "sha256", "hash256":
		arg, after, err := p.readArgToken(next)
		if err != nil {
			return nil, pos, err
		}
		h, err := decodeFixed(arg, 32)
		if err != nil {
			return nil, pos, err
		}
		after, err = p.expect(after, ')')
		if err != nil {
			return nil, pos, err
		}
		var arr [32]byte
		copy(arr[:], h)
		if tok == "sha256" {
			return NewSha256[Pk](arr), after, nil
		}
		return NewHash256[Pk](arr), after, nil

	case "ripemd160", "hash160":
		arg, after, err := p.readArgToken(next)
		if err != nil {
			return nil, pos, err
		}
		h, err := decodeFixed(arg, 20)
		if err != nil {
			return nil, pos, err
		}
		after, err = p.expect(after, ')')
		if err != nil {
			return nil, pos, err
		}
		var arr [20]byte
		copy(arr[:], h)
		if tok == "ripemd160" {
			return NewRipemd160[Pk](arr), after, nil
		}
		return NewHash160[Pk](arr), after, nil

	case "thresh_m":
		kStr, after, err := p.readArgToken(next)
		if err != nil {
			return nil, pos, err
		}
		k, err := strconv.Atoi(kStr)
		if err != nil {
			return nil, pos, newScriptError("parse: thresh_m: bad k %q", kStr)
		}
		var keys []Pk
		for after < len(p.s) && p.s[after] == ',' {
			var arg string
			arg, after, err = p.readArgToken(after + 1)
			if err != nil {
				return nil, pos, err
			}
			key, err := p.keyFromString(arg)
			if err != nil {
				return nil, pos, err
			}
			keys = append(keys, key)
		}
		after, err = p.expect(after, ')')
		if err != nil {
			return nil, pos, err
		}
		m, err := NewThreshM(k, keys)
		return m, after, err

	case "and_v", "and_b", "or_b", "or_c", "or_d", "or_i", "and_n":
		l, after, err := p.parseExpr(next)
		if err != nil {
			return nil, pos, err
		}
		after, err = p.expect(after, ',')
		if err != nil {
			return nil, pos, err
		}
		r, after2, err := p.parseExpr(after)
		if err != nil {
			return nil, pos, err
		}
		after2, err = p.expect(after2, ')')
		if err != nil {
			return nil, pos, err
		}
		var m *Miniscript[Pk]
		switch tok {
		case "and_v":
			m, err = NewAndV(l, r)
		case "and_b":
			m, err = NewAndB(l, r)
		case "or_b":
			m, err = NewOrB(l, r)
		case "or_c":
			m, err = NewOrC(l, r)
		case "or_d":
			m, err = NewOrD(l, r)
		case "or_i":
			m, err = NewOrI(l, r)
		case "and_n":
			m, err = NewAndOr(l, r, NewFalse[Pk]())
		}
		return m, after2, err

	case "andor":
		a, after, err := p.parseExpr(next)
		if err != nil {
			return nil, pos, err
		}
		after, err = p.expect(after, ',')
		if err != nil {
			return nil, pos, err
		}
		b, after, err := p.parseExpr(after)
		if err != nil {
			return nil, pos, err
		}
		after, err = p.expect(after, ',')
		if err != nil {
			return nil, pos, err
		}
		c, after, err := p.parseExpr(after)
		if err != nil {
			return nil, pos, err
		}
		after, err = p.expect(after, ')')
		if err != nil {
			return nil, pos, err
		}
		m, err := NewAndOr(a, b, c)
		return m, after, err

	case "thresh":
		kStr, after, err := p.readIntToken(next)
		if err != nil {
			return nil, pos, err
		}
		k, err := strconv.Atoi(kStr)
		if err != nil {
			return nil, pos, newScriptError("parse: thresh: bad k %q", kStr)
		}
		var subs []*Miniscript[Pk]
		for after < len(p.s) && p.s[after] == ',' {
			var sub *Miniscript[Pk]
			sub, after, err = p.parseExpr(after + 1)
			if err != nil {
				return nil, pos, err
			}
			subs = append(subs, sub)
		}
		after, err = p.expect(after, ')')
		if err != nil {
			return nil, pos, err
		}
		m, err := NewThresh(k, subs)
		return m, after, err
	}

	return nil, pos, newScriptError("parse: unknown fragment %q", tok)
}

// readArgToken reads a terminal argument: everything up to the next ',' or
// ')' at this nesting depth (terminal args never contain parens).
func (p *textParser[Pk]) readArgToken(pos int) (string, int, error) {
	start := pos
	for pos < len(p.s) && p.s[pos] != ',' && p.s[pos] != ')' {
		pos++
	}
	if pos >= len(p.s) {
		return "", pos, newScriptError("parse: unterminated argument")
	}
	return p.s[start:pos], pos, nil
}

func (p *textParser[Pk]) readIntToken(pos int) (string, int, error) {
	return p.readArgToken(pos)
}

func decodeFixed(s string, n int) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, newScriptError("parse: bad hex %q", s)
	}
	if len(b) != n {
		return nil, newScriptError("parse: expected %d-byte hash, got %d", n, len(b))
	}
	return b, nil
}

func applyWrap[Pk MiniscriptKey](letter byte, x *Miniscript[Pk]) (*Miniscript[Pk], error) {
	switch letter {
	case 'a':
		return NewAlt(x)
	case 's':
		return NewSwap(x)
	case 'c':
		return NewCheck(x)
	case 'd':
		return NewDupIf(x)
	case 'v':
		return NewVerify(x)
	case 'j':
		return NewNonZero(x)
	case 'n':
		return NewZeroNotEqual(x)
	case 't':
		return NewAndV(x, NewTrue[Pk]())
	case 'l':
		return NewOrI(NewFalse[Pk](), x)
	case 'u':
		return NewOrI(x, NewFalse[Pk]())
	default:
		return nil, newScriptError("parse: unknown wrapper %q", string(letter))
	}
}

// String renders the fragment back to the textual surface syntax.
func (m *Miniscript[Pk]) String() string {
	switch m.Kind {
	case KindFalse:
		return "0"
	case KindTrue:
		return "1"
	case KindPk:
		return "pk(" + m.Key.String() + ")"
	case KindPkH:
		return "pk_h(" + hex.EncodeToString(m.KeyHash[:]) + ")"
	case KindAfter:
		return "after(" + strconv.FormatUint(uint64(m.N), 10) + ")"
	case KindOlder:
		return "older(" + strconv.FormatUint(uint64(m.N), 10) + ")"
	case KindSha256:
		return "sha256(" + hex.EncodeToString(m.Hash32[:]) + ")"
	case KindHash256:
		return "hash256(" + hex.EncodeToString(m.Hash32[:]) + ")"
	case KindRipemd160:
		return "ripemd160(" + hex.EncodeToString(m.Hash20[:]) + ")"
	case KindHash160:
		return "hash160(" + hex.EncodeToString(m.Hash20[:]) + ")"
	case KindThreshM:
		parts := make([]string, 0, len(m.Keys)+1)
		parts = append(parts, strconv.FormatUint(uint64(m.N), 10))
		for _, k := range m.Keys {
			parts = append(parts, k.String())
		}
		return "thresh_m(" + strings.Join(parts, ",") + ")"
	case KindAlt, KindSwap, KindCheck, KindDupIf, KindVerify, KindNonZero, KindZeroNotEqual:
		return m.Kind.String() + ":" + m.Children[0].String()
	case KindAndV, KindAndB, KindOrB, KindOrC, KindOrD, KindOrI:
		return m.Kind.String() + "(" + m.Children[0].String() + "," + m.Children[1].String() + ")"
	case KindAndOr:
		return "andor(" + m.Children[0].String() + "," + m.Children[1].String() + "," + m.Children[2].String() + ")"
	case KindThresh:
		parts := make([]string, 0, len(m.Children)+1)
		parts = append(parts, strconv.FormatUint(uint64(m.N), 10))
		for _, c := range m.Children {
			parts = append(parts, c.String())
		}
		return "thresh(" + strings.Join(parts, ",") + ")"
	default:
		return "?"
	}
}
