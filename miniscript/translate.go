package miniscript

// ScriptSize returns ExtData.PkCost, the length in bytes of this fragment's
// Script encoding, except that each v: over a child with HasFreeVerify
// encodes one byte longer than counted (script.Encode emits its OP_VERIFY)
// — the public accessor the original exposes for use by descriptor-layer
// callers (spec §9 supplement).
func (m *Miniscript[Pk]) ScriptSize() int {
	return m.Ext.PkCost
}

// MaxSatisfactionWitnessElements returns the maximum number of stack
// elements any satisfying witness for this fragment pushes, or -1 if the
// fragment is never satisfiable.
func (m *Miniscript[Pk]) MaxSatisfactionWitnessElements() int {
	if m.Ext.MaxSatSize == nil {
		return -1
	}
	return m.Ext.MaxSatSize.Elements
}

// MaxSatisfactionSize returns the maximum total byte size of any
// satisfying witness for this fragment, or -1 if never satisfiable.
func (m *Miniscript[Pk]) MaxSatisfactionSize() int {
	if m.Ext.MaxSatSize == nil {
		return -1
	}
	return m.Ext.MaxSatSize.Bytes
}

// TranslatePk rebuilds this fragment with every key replaced by the result
// of fn, re-deriving sizing along the way; pk_h key hashes are copied
// unchanged, not re-derived from the new keys. Used to
// instantiate a Miniscript compiled over placeholder keys with concrete
// signing keys (mirrors the original's generic Pk -> Q translation).
func TranslatePk[Pk, Q MiniscriptKey](m *Miniscript[Pk], fn func(Pk) (Q, error)) (*Miniscript[Q], error) {
	switch m.Kind {
	case KindFalse:
		return NewFalse[Q](), nil
	case KindTrue:
		return NewTrue[Q](), nil
	case KindPk:
		q, err := fn(m.Key)
		if err != nil {
			return nil, err
		}
		return NewPk(q), nil
	case KindPkH:
		return NewPkH[Q](m.KeyHash), nil
	case KindAfter:
		return NewAfter[Q](m.N)
	case KindOlder:
		return NewOlder[Q](m.N)
	case KindSha256:
		return NewSha256[Q](m.Hash32), nil
	case KindHash256:
		return NewHash256[Q](m.Hash32), nil
	case KindRipemd160:
		return NewRipemd160[Q](m.Hash20), nil
	case KindHash160:
		return NewHash160[Q](m.Hash20), nil
	case KindThreshM:
		qs := make([]Q, len(m.Keys))
		for i, k := range m.Keys {
			q, err := fn(k)
			if err != nil {
				return nil, err
			}
			qs[i] = q
		}
		return NewThreshM(int(m.N), qs)
	}

	children := make([]*Miniscript[Q], len(m.Children))
	for i, c := range m.Children {
		t, err := TranslatePk(c, fn)
		if err != nil {
			return nil, err
		}
		children[i] = t
	}
	switch m.Kind {
	case KindAlt:
		return NewAlt(children[0])
	case KindSwap:
		return NewSwap(children[0])
	case KindCheck:
		return NewCheck(children[0])
	case KindDupIf:
		return NewDupIf(children[0])
	case KindVerify:
		return NewVerify(children[0])
	case KindNonZero:
		return NewNonZero(children[0])
	case KindZeroNotEqual:
		return NewZeroNotEqual(children[0])
	case KindAndV:
		return NewAndV(children[0], children[1])
	case KindAndB:
		return NewAndB(children[0], children[1])
	case KindOrB:
		return NewOrB(children[0], children[1])
	case KindOrC:
		return NewOrC(children[0], children[1])
	case KindOrD:
		return NewOrD(children[0], children[1])
	case KindOrI:
		return NewOrI(children[0], children[1])
	case KindAndOr:
		return NewAndOr(children[0], children[1], children[2])
	case KindThresh:
		return NewThresh(int(m.N), children)
	}
	return nil, newScriptError("translate_pk: unhandled kind %s", m.Kind)
}
