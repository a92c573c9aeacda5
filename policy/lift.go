package policy

import "github.com/thoughtnetwork/miniscript/miniscript"

// Lift projects a Concrete policy to its semantic abstract form, discarding
// Or branch weights and Threshold sub ordering — the same projection
// miniscript.Miniscript.Lift performs on a compiled fragment, used to
// verify that compiling and lifting a policy round-trips to the policy's
// own meaning.
func (c *Concrete[Pk]) Lift() *miniscript.AbstractPolicy[Pk] {
	switch c.Kind {
	case KindKey:
		return &miniscript.AbstractPolicy[Pk]{Kind: miniscript.AbstractKey, Key: c.Key}
	case KindAfter:
		return &miniscript.AbstractPolicy[Pk]{Kind: miniscript.AbstractAfter, N: c.N}
	case KindOlder:
		return &miniscript.AbstractPolicy[Pk]{Kind: miniscript.AbstractOlder, N: c.N}
	case KindSha256:
		return &miniscript.AbstractPolicy[Pk]{Kind: miniscript.AbstractSha256, Hash32: c.Hash32}
	case KindHash256:
		return &miniscript.AbstractPolicy[Pk]{Kind: miniscript.AbstractHash256, Hash32: c.Hash32}
	case KindRipemd160:
		return &miniscript.AbstractPolicy[Pk]{Kind: miniscript.AbstractRipemd160, Hash20: c.Hash20}
	case KindHash160:
		return &miniscript.AbstractPolicy[Pk]{Kind: miniscript.AbstractHash160, Hash20: c.Hash20}
	case KindAnd:
		return &miniscript.AbstractPolicy[Pk]{Kind: miniscript.AbstractAnd, Children: []*miniscript.AbstractPolicy[Pk]{
			c.And[0].Lift(), c.And[1].Lift(),
		}}
	case KindOr:
		return &miniscript.AbstractPolicy[Pk]{Kind: miniscript.AbstractOr, Children: []*miniscript.AbstractPolicy[Pk]{
			c.Or[0].Sub.Lift(), c.Or[1].Sub.Lift(),
		}}
	case KindThreshold:
		subs := make([]*miniscript.AbstractPolicy[Pk], len(c.Subs))
		for i, s := range c.Subs {
			subs[i] = s.Lift()
		}
		return &miniscript.AbstractPolicy[Pk]{Kind: miniscript.AbstractThreshold, N: c.N, Children: subs}
	default:
		return &miniscript.AbstractPolicy[Pk]{Kind: miniscript.AbstractFalse}
	}
}
