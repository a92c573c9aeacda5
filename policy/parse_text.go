package policy

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/thoughtnetwork/miniscript/miniscript"
)

// ParseString parses the textual policy surface syntax mirrored on
// miniscript.ParseString's fragment grammar: pk/after/older/hash leaves,
// and(X,Y), or(X,Y) or or(W1@X,W2@Y) with explicit relative branch
// weights, and thresh(K,X,Y,...). keyFromString converts a raw key token
// into the caller's concrete key type.
func ParseString[Pk miniscript.MiniscriptKey](s string, keyFromString func(string) (Pk, error)) (*Concrete[Pk], error) {
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			return nil, newCompilerErrorf("parse: non-printable-ASCII input")
		}
	}
	p := &textParser[Pk]{s: s, keyFromString: keyFromString}
	c, rest, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if rest != len(s) {
		return nil, newCompilerErrorf("parse: trailing input %q", s[rest:])
	}
	return c, nil
}

type textParser[Pk miniscript.MiniscriptKey] struct {
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

func (p *textParser[Pk]) expect(pos int, ch byte) (int, error) {
	if pos >= len(p.s) || p.s[pos] != ch {
		return pos, newCompilerErrorf("parse: expected %q at offset %d", string(ch), pos)
	}
	return pos + 1, nil
}

func (p *textParser[Pk]) readArgToken(pos int) (string, int, error) {
	start := pos
	depth := 0
	for pos < len(p.s) {
		switch p.s[pos] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				return p.s[start:pos], pos, nil
			}
			depth--
		case ',':
			if depth == 0 {
				return p.s[start:pos], pos, nil
			}
		}
		pos++
	}
	return "", pos, newCompilerErrorf("parse: unterminated argument")
}

func decodeFixed(s string, n int) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, newCompilerErrorf("parse: bad hex %q", s)
	}
	if len(b) != n {
		return nil, newCompilerErrorf("parse: expected %d-byte hash, got %d", n, len(b))
	}
	return b, nil
}

// parseOrArm parses one `or(...)` argument, which is either a bare
// sub-policy (implicit weight 1) or a "W@POLICY" weighted arm.
func (p *textParser[Pk]) parseOrArm(pos int) (OrBranch[Pk], int, error) {
	save := pos
	weight := uint32(1)
	numStart := pos
	for pos < len(p.s) && p.s[pos] >= '0' && p.s[pos] <= '9' {
		pos++
	}
	if pos > numStart && pos < len(p.s) && p.s[pos] == '@' {
		n, err := strconv.ParseUint(p.s[numStart:pos], 10, 32)
		if err != nil {
			return OrBranch[Pk]{}, save, newCompilerErrorf("parse: or: bad weight %q", p.s[numStart:pos])
		}
		weight = uint32(n)
		pos++
	} else {
		pos = save
	}
	sub, after, err := p.parseExpr(pos)
	if err != nil {
		return OrBranch[Pk]{}, save, err
	}
	return OrBranch[Pk]{Weight: weight, Sub: sub}, after, nil
}

func (p *textParser[Pk]) parseExpr(pos int) (*Concrete[Pk], int, error) {
	tok, next := p.readIdent(pos)
	if tok == "" {
		return nil, pos, newCompilerErrorf("parse: expected identifier at offset %d", pos)
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
		return Key(key), after, nil

	case "after", "older":
		arg, after, err := p.readArgToken(next)
		if err != nil {
			return nil, pos, err
		}
		n, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return nil, pos, newCompilerErrorf("parse: %s: bad integer %q", tok, arg)
		}
		after, err = p.expect(after, ')')
		if err != nil {
			return nil, pos, err
		}
		if tok == "after" {
			return After[Pk](uint32(n)), after, nil
		}
		return Older[Pk](uint32(n)), after, nil

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
			return Sha256[Pk](arr), after, nil
		}
		return Hash256[Pk](arr), after, nil

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
			return Ripemd160[Pk](arr), after, nil
		}
		return Hash160[Pk](arr), after, nil

	case "and":
		l, after, err := p.parseExpr(next)
		if err != nil {
			return nil, pos, err
		}
		after, err = p.expect(after, ',')
		if err != nil {
			return nil, pos, err
		}
		r, after, err := p.parseExpr(after)
		if err != nil {
			return nil, pos, err
		}
		after, err = p.expect(after, ')')
		if err != nil {
			return nil, pos, err
		}
		return And(l, r), after, nil

	case "or":
		l, after, err := p.parseOrArm(next)
		if err != nil {
			return nil, pos, err
		}
		after, err = p.expect(after, ',')
		if err != nil {
			return nil, pos, err
		}
		r, after, err := p.parseOrArm(after)
		if err != nil {
			return nil, pos, err
		}
		after, err = p.expect(after, ')')
		if err != nil {
			return nil, pos, err
		}
		return Or(l, r), after, nil

	case "thresh":
		kStr, after, err := p.readArgToken(next)
		if err != nil {
			return nil, pos, err
		}
		k, err := strconv.Atoi(kStr)
		if err != nil {
			return nil, pos, newCompilerErrorf("parse: thresh: bad k %q", kStr)
		}
		var subs []*Concrete[Pk]
		for after < len(p.s) && p.s[after] == ',' {
			var sub *Concrete[Pk]
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
		return Threshold(k, subs), after, nil
	}

	return nil, pos, newCompilerErrorf("parse: unknown policy fragment %q", tok)
}

// String renders the policy back to its textual surface syntax.
func (c *Concrete[Pk]) String() string {
	switch c.Kind {
	case KindKey:
		return "pk(" + c.Key.String() + ")"
	case KindAfter:
		return "after(" + strconv.FormatUint(uint64(c.N), 10) + ")"
	case KindOlder:
		return "older(" + strconv.FormatUint(uint64(c.N), 10) + ")"
	case KindSha256:
		return "sha256(" + hex.EncodeToString(c.Hash32[:]) + ")"
	case KindHash256:
		return "hash256(" + hex.EncodeToString(c.Hash32[:]) + ")"
	case KindRipemd160:
		return "ripemd160(" + hex.EncodeToString(c.Hash20[:]) + ")"
	case KindHash160:
		return "hash160(" + hex.EncodeToString(c.Hash20[:]) + ")"
	case KindAnd:
		return "and(" + c.And[0].String() + "," + c.And[1].String() + ")"
	case KindOr:
		return "or(" + strconv.FormatUint(uint64(c.Or[0].Weight), 10) + "@" + c.Or[0].Sub.String() +
			"," + strconv.FormatUint(uint64(c.Or[1].Weight), 10) + "@" + c.Or[1].Sub.String() + ")"
	case KindThreshold:
		parts := make([]string, 0, len(c.Subs)+1)
		parts = append(parts, strconv.FormatUint(uint64(c.N), 10))
		for _, s := range c.Subs {
			parts = append(parts, s.String())
		}
		return "thresh(" + strings.Join(parts, ",") + ")"
	default:
		return "?"
	}
}
