package failuremodel

// factor is a table over a set of named binary random variables. vals has
// length 2^len(vars); the value for an assignment is found by treating vars
// as a mixed-radix index with vars[0] most significant and vars[len-1] least
// significant (row-major, last variable fastest).
type factor struct {
	vars []string
	vals []float64
}

func newFactor(vars []string, vals []float64) factor {
	return factor{vars: vars, vals: vals}
}

func encode(vars []string, assign map[string]int) int {
	idx := 0
	for _, v := range vars {
		idx = idx*2 + assign[v]
	}
	return idx
}

func decode(vars []string, i int) map[string]int {
	assign := make(map[string]int, len(vars))
	for k := len(vars) - 1; k >= 0; k-- {
		assign[vars[k]] = i & 1
		i >>= 1
	}
	return assign
}

func (f factor) valueAt(assign map[string]int) float64 {
	if len(f.vars) == 0 {
		return f.vals[0]
	}
	return f.vals[encode(f.vars, assign)]
}

// restrict fixes var v to val, dropping it from the factor's dimensions. A
// no-op if v does not appear in f.
func restrict(f factor, v string, val int) factor {
	found := false
	for _, fv := range f.vars {
		if fv == v {
			found = true
			break
		}
	}
	if !found {
		return f
	}
	newVars := make([]string, 0, len(f.vars)-1)
	for _, fv := range f.vars {
		if fv != v {
			newVars = append(newVars, fv)
		}
	}
	vals := make([]float64, 1<<len(newVars))
	for i := range vals {
		assign := decode(newVars, i)
		assign[v] = val
		vals[i] = f.vals[encode(f.vars, assign)]
	}
	return factor{vars: newVars, vals: vals}
}

// mult returns the product of a and b over the union of their variables.
func mult(a, b factor) factor {
	seen := make(map[string]bool, len(a.vars)+len(b.vars))
	vars := make([]string, 0, len(a.vars)+len(b.vars))
	for _, v := range a.vars {
		seen[v] = true
		vars = append(vars, v)
	}
	for _, v := range b.vars {
		if !seen[v] {
			seen[v] = true
			vars = append(vars, v)
		}
	}
	vals := make([]float64, 1<<len(vars))
	for i := range vals {
		assign := decode(vars, i)
		vals[i] = a.valueAt(assign) * b.valueAt(assign)
	}
	return factor{vars: vars, vals: vals}
}

// sumOutVar marginalizes v out of f, summing its two values.
func sumOutVar(f factor, v string) factor {
	newVars := make([]string, 0, len(f.vars)-1)
	for _, fv := range f.vars {
		if fv != v {
			newVars = append(newVars, fv)
		}
	}
	vals := make([]float64, 1<<len(newVars))
	for i, val := range f.vals {
		assign := decode(f.vars, i)
		vals[encode(newVars, assign)] += val
	}
	return factor{vars: newVars, vals: vals}
}

// bnNode is one node of a Bayesian network: a binary random variable
// conditioned on a (possibly empty) set of binary parent variables, with an
// explicit CPT in [parents..., self]-order (self varies fastest).
type bnNode struct {
	name    string
	parents []string
	cpt     []float64
}

func (n *bnNode) factor() factor {
	vars := make([]string, 0, len(n.parents)+1)
	vars = append(vars, n.parents...)
	vars = append(vars, n.name)
	return newFactor(vars, n.cpt)
}

// computeEventProb runs variable elimination (min-degree ordering, as in the
// reference Bayesian-network engine this ports) to compute the joint
// probability of the fixed assignment in evidence, given the network
// restricted to nodes (which must include every ancestor of an evidenced
// node). Returns 1 if evidence is empty.
func computeEventProb(nodes map[string]*bnNode, evidence map[string]int) float64 {
	if len(evidence) == 0 {
		return 1.0
	}

	factors := make([]factor, 0, len(nodes))
	eliminate := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		f := n.factor()
		for v, val := range evidence {
			f = restrict(f, v, val)
		}
		factors = append(factors, f)
		if _, isEvidence := evidence[n.name]; !isEvidence {
			eliminate[n.name] = true
		}
	}

	for len(eliminate) > 0 {
		varUnion := make(map[string]map[string]bool)
		varFactorIdx := make(map[string][]int)
		for idx, f := range factors {
			for _, v := range f.vars {
				if !eliminate[v] {
					continue
				}
				set, ok := varUnion[v]
				if !ok {
					set = make(map[string]bool)
					varUnion[v] = set
				}
				for _, v2 := range f.vars {
					set[v2] = true
				}
				varFactorIdx[v] = append(varFactorIdx[v], idx)
			}
		}

		bestVar := ""
		bestSize := -1
		for v, set := range varUnion {
			if bestVar == "" || len(set) < bestSize {
				bestVar = v
				bestSize = len(set)
			}
		}
		if bestVar == "" {
			break
		}

		idxs := varFactorIdx[bestVar]
		idxSet := make(map[int]bool, len(idxs))
		var prod factor
		for i, idx := range idxs {
			idxSet[idx] = true
			if i == 0 {
				prod = factors[idx]
			} else {
				prod = mult(prod, factors[idx])
			}
		}
		newFac := sumOutVar(prod, bestVar)

		kept := make([]factor, 0, len(factors)-len(idxs)+1)
		for i, f := range factors {
			if !idxSet[i] {
				kept = append(kept, f)
			}
		}
		kept = append(kept, newFac)
		factors = kept
		delete(eliminate, bestVar)
	}

	result := 1.0
	for _, f := range factors {
		result *= f.valueAt(nil)
	}
	return result
}
