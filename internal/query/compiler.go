package query

// Priority is a factory's verdict on how (or whether) it can contribute to
// compiling a given QueryPart.
type Priority int

const (
	PriorityNone Priority = iota
	PriorityShould
	PriorityMust
	PriorityOnly
)

// Factory is the compiler-facing half of an indexer factory: the ability
// to judge and compile a single query term. The indexer framework's full
// factory interface embeds this.
type Factory interface {
	QueryPriority(part QueryPart) Priority
	CompileQuery(part QueryPart) (IndexQuery, bool)
}

// Compile walks a parsed LogicalQuery and produces a single IndexQuery
// tree, polling every registered factory for each leaf term. A nil
// LogicalQuery (the empty query string) compiles to AllQuery.
//
// Per-term resolution:
//   - If any factory reports PriorityOnly, that factory alone compiles the
//     term; every other factory is skipped for it.
//   - Otherwise all factories reporting PriorityMust or PriorityShould
//     contribute. Multiple PriorityShould results combine with Or; a mix
//     of PriorityMust and PriorityShould combines with And.
//   - PriorityNone factories are skipped.
//   - If no factory compiles a term, Compile returns *UnmatchableTerm.
func Compile(lq LogicalQuery, factories []Factory) (IndexQuery, error) {
	if lq == nil {
		return AllQuery{}, nil
	}
	return compileNode(lq, factories)
}

func compileNode(lq LogicalQuery, factories []Factory) (IndexQuery, error) {
	switch n := lq.(type) {
	case TermQuery:
		return compileTerm(n.Part, factories)

	case AndQuery:
		terms, err := compileChildren(n.Terms, factories)
		if err != nil {
			return nil, err
		}
		return AndIndexQuery{Terms: terms}, nil

	case OrQuery:
		terms, err := compileChildren(n.Terms, factories)
		if err != nil {
			return nil, err
		}
		return OrIndexQuery{Terms: terms}, nil

	case NotQuery:
		inner, err := compileNode(n.Term, factories)
		if err != nil {
			return nil, err
		}
		return NotIndexQuery{Term: inner}, nil

	default:
		return nil, &UnmatchableTerm{}
	}
}

func compileChildren(children []LogicalQuery, factories []Factory) ([]IndexQuery, error) {
	out := make([]IndexQuery, 0, len(children))
	for _, c := range children {
		compiled, err := compileNode(c, factories)
		if err != nil {
			return nil, err
		}
		out = append(out, compiled)
	}
	return out, nil
}

func compileTerm(part QueryPart, factories []Factory) (IndexQuery, error) {
	var (
		onlyQuery       IndexQuery
		haveOnly        bool
		mustQueries     []IndexQuery
		shouldQueries   []IndexQuery
	)

	// An ONLY factory that compiles the part is its sole producer: return
	// before any other factory's CompileQuery runs.
	for _, f := range factories {
		if f.QueryPriority(part) != PriorityOnly {
			continue
		}
		if q, ok := f.CompileQuery(part); ok {
			return q, nil
		}
	}

	for _, f := range factories {
		priority := f.QueryPriority(part)
		if priority == PriorityNone {
			continue
		}
		if priority == PriorityOnly {
			q, ok := f.CompileQuery(part)
			if !ok {
				continue
			}
			onlyQuery = q
			haveOnly = true
			break
		}
		q, ok := f.CompileQuery(part)
		if !ok {
			continue
		}
		if priority == PriorityMust {
			mustQueries = append(mustQueries, q)
		} else {
			shouldQueries = append(shouldQueries, q)
		}
	}

	if haveOnly {
		return onlyQuery, nil
	}

	var shouldCombined IndexQuery
	switch len(shouldQueries) {
	case 0:
	case 1:
		shouldCombined = shouldQueries[0]
	default:
		shouldCombined = OrIndexQuery{Terms: shouldQueries}
	}

	switch {
	case len(mustQueries) == 0 && shouldCombined == nil:
		return nil, &UnmatchableTerm{Term: part}
	case len(mustQueries) == 0:
		return shouldCombined, nil
	case shouldCombined == nil && len(mustQueries) == 1:
		return mustQueries[0], nil
	case shouldCombined == nil:
		return AndIndexQuery{Terms: mustQueries}, nil
	default:
		return AndIndexQuery{Terms: append(append([]IndexQuery{}, mustQueries...), shouldCombined)}, nil
	}
}
