package satisfy

import (
	"fmt"

	"github.com/thoughtnetwork/miniscript/miniscript"
)

// result holds the best-known satisfying and dissatisfying witness stacks
// for one node, in script-execution (bottom-to-top push) order. hasSat and
// hasDissat record whether each branch is available; an available witness
// may be empty.
type result struct {
	sat   [][]byte
	hasSat bool
	dissat [][]byte
	hasDissat bool
}

func cat(a, b [][]byte) [][]byte {
	out := make([][]byte, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

// Satisfy searches for a witness stack that makes m's Script evaluate to
// true under s, preferring the fragment's canonical satisfaction path over
// malleable alternatives. Grounded in the original's satisfy() test usage:
// bottom-up per-kind construction, recursing into children first.
func Satisfy(m *miniscript.Miniscript[Secp256k1Key], s Satisfier) ([][]byte, error) {
	r, err := satisfyNode(m, s)
	if err != nil {
		return nil, err
	}
	if !r.hasSat {
		return nil, newSatisfyError("no satisfying witness found for %s", m.Kind)
	}
	return r.sat, nil
}

type satisfyError struct{ msg string }

func (e *satisfyError) Error() string { return "satisfy: " + e.msg }
func newSatisfyError(format string, args ...interface{}) error {
	return &satisfyError{msg: fmt.Sprintf(format, args...)}
}

func satisfyNode(m *miniscript.Miniscript[Secp256k1Key], s Satisfier) (result, error) {
	switch m.Kind {
	case miniscript.KindFalse:
		return result{hasDissat: true, dissat: [][]byte{}}, nil
	case miniscript.KindTrue:
		return result{hasSat: true, sat: [][]byte{}}, nil
	case miniscript.KindPk:
		r := result{hasDissat: true, dissat: [][]byte{{}}}
		if sig, ok := s.LookupSig(m.Key); ok {
			r.hasSat, r.sat = true, [][]byte{sig}
		}
		return r, nil
	case miniscript.KindPkH:
		pub, sig, ok := s.LookupPkhSig(m.KeyHash)
		if !ok {
			return result{}, nil
		}
		return result{
			hasSat: true, sat: [][]byte{sig, pub},
			hasDissat: true, dissat: [][]byte{{}, pub},
		}, nil
	case miniscript.KindAfter:
		if s.CheckAfter(m.N) {
			return result{hasSat: true, sat: [][]byte{}}, nil
		}
		return result{}, nil
	case miniscript.KindOlder:
		if s.CheckOlder(m.N) {
			return result{hasSat: true, sat: [][]byte{}}, nil
		}
		return result{}, nil
	case miniscript.KindSha256:
		if pre, ok := s.LookupPreimage(m.Hash32); ok {
			return result{hasSat: true, sat: [][]byte{pre}}, nil
		}
		return result{hasDissat: true, dissat: [][]byte{make([]byte, 32)}}, nil
	case miniscript.KindHash256:
		if pre, ok := s.LookupPreimage(m.Hash32); ok {
			return result{hasSat: true, sat: [][]byte{pre}}, nil
		}
		return result{hasDissat: true, dissat: [][]byte{make([]byte, 32)}}, nil
	case miniscript.KindRipemd160, miniscript.KindHash160:
		// No 20-byte preimage lookup in the collaborator contract (spec §6
		// only names lookup_preimage for the 32-byte hash case): these
		// terminals can only be dissatisfied here.
		return result{hasDissat: true, dissat: [][]byte{make([]byte, 32)}}, nil
	case miniscript.KindThreshM:
		var sigs [][]byte
		for _, k := range m.Keys {
			if len(sigs) == int(m.N) {
				break
			}
			if sig, ok := s.LookupSig(k); ok {
				sigs = append(sigs, sig)
			}
		}
		dissat := make([][]byte, int(m.N)+1)
		for i := range dissat {
			dissat[i] = []byte{}
		}
		r := result{hasDissat: true, dissat: dissat}
		if len(sigs) == int(m.N) {
			sat := append([][]byte{{}}, sigs...)
			r.hasSat, r.sat = true, sat
		}
		return r, nil
	}

	if len(m.Children) == 1 {
		c, err := satisfyNode(m.Children[0], s)
		if err != nil {
			return result{}, err
		}
		switch m.Kind {
		case miniscript.KindAlt, miniscript.KindSwap, miniscript.KindCheck, miniscript.KindZeroNotEqual:
			return c, nil
		case miniscript.KindVerify:
			return result{hasSat: c.hasSat, sat: c.sat}, nil
		case miniscript.KindDupIf, miniscript.KindNonZero:
			r := result{hasDissat: true, dissat: [][]byte{{}}}
			if c.hasSat {
				r.hasSat, r.sat = true, c.sat
			}
			return r, nil
		}
	}

	if len(m.Children) == 2 {
		l, err := satisfyNode(m.Children[0], s)
		if err != nil {
			return result{}, err
		}
		r, err := satisfyNode(m.Children[1], s)
		if err != nil {
			return result{}, err
		}
		switch m.Kind {
		case miniscript.KindAndV, miniscript.KindAndB:
			out := result{}
			if l.hasSat && r.hasSat {
				out.hasSat, out.sat = true, cat(l.sat, r.sat)
			}
			if l.hasDissat && r.hasDissat {
				out.hasDissat, out.dissat = true, cat(l.dissat, r.dissat)
			}
			return out, nil
		case miniscript.KindOrB:
			out := result{}
			if l.hasSat && r.hasDissat {
				out.hasSat, out.sat = true, cat(l.sat, r.dissat)
			} else if l.hasDissat && r.hasSat {
				out.hasSat, out.sat = true, cat(l.dissat, r.sat)
			}
			if l.hasDissat && r.hasDissat {
				out.hasDissat, out.dissat = true, cat(l.dissat, r.dissat)
			}
			return out, nil
		case miniscript.KindOrC:
			out := result{}
			if l.hasSat {
				out.hasSat, out.sat = true, l.sat
			} else if l.hasDissat && r.hasSat {
				out.hasSat, out.sat = true, cat(l.dissat, r.sat)
			}
			return out, nil
		case miniscript.KindOrD:
			out := result{}
			if l.hasSat {
				out.hasSat, out.sat = true, l.sat
			} else if l.hasDissat && r.hasSat {
				out.hasSat, out.sat = true, cat(l.dissat, r.sat)
			}
			if l.hasDissat && r.hasDissat {
				out.hasDissat, out.dissat = true, cat(l.dissat, r.dissat)
			}
			return out, nil
		case miniscript.KindOrI:
			out := result{}
			if l.hasSat {
				out.hasSat, out.sat = true, cat([][]byte{{1}}, l.sat)
			} else if r.hasSat {
				out.hasSat, out.sat = true, cat([][]byte{{}}, r.sat)
			}
			if l.hasDissat {
				out.hasDissat, out.dissat = true, cat([][]byte{{1}}, l.dissat)
			} else if r.hasDissat {
				out.hasDissat, out.dissat = true, cat([][]byte{{}}, r.dissat)
			}
			return out, nil
		}
	}

	if m.Kind == miniscript.KindAndOr && len(m.Children) == 3 {
		a, err := satisfyNode(m.Children[0], s)
		if err != nil {
			return result{}, err
		}
		b, err := satisfyNode(m.Children[1], s)
		if err != nil {
			return result{}, err
		}
		c, err := satisfyNode(m.Children[2], s)
		if err != nil {
			return result{}, err
		}
		out := result{}
		if a.hasSat && b.hasSat {
			out.hasSat, out.sat = true, cat(a.sat, b.sat)
		} else if a.hasDissat && c.hasSat {
			out.hasSat, out.sat = true, cat(a.dissat, c.sat)
		}
		if a.hasDissat && c.hasDissat {
			out.hasDissat, out.dissat = true, cat(a.dissat, c.dissat)
		}
		return out, nil
	}

	if m.Kind == miniscript.KindThresh {
		subs := make([]result, len(m.Children))
		for i, c := range m.Children {
			r, err := satisfyNode(c, s)
			if err != nil {
				return result{}, err
			}
			subs[i] = r
		}
		k := int(m.N)
		satisfied := 0
		var witness [][]byte
		allDissat := true
		var dissatWitness [][]byte
		for _, r := range subs {
			if !r.hasDissat {
				allDissat = false
			} else {
				dissatWitness = cat(dissatWitness, r.dissat)
			}
		}
		for _, r := range subs {
			if satisfied < k && r.hasSat {
				witness = cat(witness, r.sat)
				satisfied++
			} else if r.hasDissat {
				witness = cat(witness, r.dissat)
			} else {
				witness = nil
				break
			}
		}
		out := result{}
		if witness != nil && satisfied == k {
			out.hasSat, out.sat = true, witness
		}
		if allDissat {
			out.hasDissat, out.dissat = true, dissatWitness
		}
		return out, nil
	}

	return result{}, newSatisfyError("unhandled kind %s", m.Kind)
}
