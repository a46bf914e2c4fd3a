package lookahead

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Problem is a mixed-integer linear program under construction:
// minimize c·x subject to A·x = b, G·x ≤ h, lb ≤ x ≤ ub, with an optional
// integrality mark per variable. All variables are nonnegative, as required
// by the standard-form simplex underneath.
type Problem struct {
	variables    []*Variable
	equalities   []constraintRow
	inequalities []constraintRow
}

// Variable is a single decision variable. References returned by AddVariable
// are used to build constraint expressions.
type Variable struct {
	name    string
	index   int
	cost    float64
	integer bool
	lower   float64
	upper   float64
}

// Name returns the label the variable was declared with.
func (v *Variable) Name() string { return v.name }

// Index returns the column of the variable in the solver's vectors.
func (v *Variable) Index() int { return v.index }

// SetInteger marks the variable as integrality-constrained.
func (v *Variable) SetInteger() *Variable {
	v.integer = true
	return v
}

// SetBounds replaces the variable's bounds. Lower bounds below zero are not
// representable and panic.
func (v *Variable) SetBounds(lower, upper float64) *Variable {
	if lower < 0 {
		panic("variable lower bounds must be nonnegative")
	}
	if upper < lower {
		panic("variable upper bound below its lower bound")
	}
	v.lower = lower
	v.upper = upper
	return v
}

// Term is an expression of a variable and a coefficient for use in defining
// constraints, e.g. "-1 * x1".
type Term struct {
	coef     float64
	variable *Variable
}

// Expr builds a single term of a constraint.
func Expr(coef float64, v *Variable) Term {
	return Term{coef: coef, variable: v}
}

type constraintRow struct {
	terms []Term
	rhs   float64
}

// NewProblem returns an empty problem.
func NewProblem() *Problem {
	return &Problem{}
}

// AddVariable declares a variable with the given objective coefficient. The
// default domain is [0, +inf); use SetBounds and SetInteger to restrict it.
func (p *Problem) AddVariable(name string, cost float64) *Variable {
	v := &Variable{
		name:  name,
		index: len(p.variables),
		cost:  cost,
		upper: math.Inf(1),
	}
	p.variables = append(p.variables, v)
	return v
}

// AddBinary declares an integer variable with domain {0, 1}.
func (p *Problem) AddBinary(name string, cost float64) *Variable {
	return p.AddVariable(name, cost).SetInteger().SetBounds(0, 1)
}

// AddEquality adds the constraint sum(terms) = equalTo.
func (p *Problem) AddEquality(terms []Term, equalTo float64) {
	p.checkTerms(terms)
	p.equalities = append(p.equalities, constraintRow{terms: terms, rhs: equalTo})
}

// AddInequality adds the constraint sum(terms) ≤ smallerThan.
func (p *Problem) AddInequality(terms []Term, smallerThan float64) {
	p.checkTerms(terms)
	p.inequalities = append(p.inequalities, constraintRow{terms: terms, rhs: smallerThan})
}

func (p *Problem) checkTerms(terms []Term) {
	if len(terms) == 0 {
		panic("must add terms")
	}
	for _, t := range terms {
		if t.variable == nil || t.variable.index >= len(p.variables) || p.variables[t.variable.index] != t.variable {
			panic("term contains a variable not declared on this problem")
		}
	}
}

// milpProblem is the matrix form the solver works on. The matrices are
// immutable after construction; mutable state (working bounds, probing trail)
// lives in the relaxation.
type milpProblem struct {
	c []float64
	A *mat.Dense
	b []float64
	G *mat.Dense
	h []float64

	// which variables carry the integrality constraint, same order as c
	integer []bool

	// declared variable domains
	lower []float64
	upper []float64

	names []string
}

func (m *milpProblem) nvars() int { return len(m.c) }

// integer variable with domain inside [0,1]
func (m *milpProblem) binary(i int) bool {
	return m.integer[i] && m.lower[i] >= 0 && m.upper[i] <= 1
}

// milp materializes the builder state into matrix form.
func (p *Problem) milp() (*milpProblem, error) {
	n := len(p.variables)
	if n == 0 {
		return nil, errors.New("problem has no variables")
	}

	m := &milpProblem{
		c:       make([]float64, n),
		integer: make([]bool, n),
		lower:   make([]float64, n),
		upper:   make([]float64, n),
		names:   make([]string, n),
	}
	for i, v := range p.variables {
		m.c[i] = v.cost
		m.integer[i] = v.integer
		m.lower[i] = v.lower
		m.upper[i] = v.upper
		m.names[i] = v.name
	}

	fill := func(rows []constraintRow) (*mat.Dense, []float64) {
		if len(rows) == 0 {
			return nil, nil
		}
		data := make([]float64, len(rows)*n)
		rhs := make([]float64, len(rows))
		for r, row := range rows {
			for _, t := range row.terms {
				data[r*n+t.variable.index] += t.coef
			}
			rhs[r] = row.rhs
		}
		return mat.NewDense(len(rows), n, data), rhs
	}

	m.A, m.b = fill(p.equalities)
	m.G, m.h = fill(p.inequalities)

	if err := sanityCheckDimensions(m.c, m.A, m.b, m.G, m.h); err != nil {
		return nil, err
	}
	return m, nil
}

// Sanity check for the problem's dimensions. Bound rows are generated at solve
// time, so a problem with only bounds is legal here.
func sanityCheckDimensions(c []float64, A *mat.Dense, b []float64, G *mat.Dense, h []float64) error {
	if G != nil {
		if h == nil {
			return errors.New("h vector is nil while G matrix is provided")
		}
		rG, cG := G.Dims()
		if rG != len(h) {
			return errors.New("number of rows in G matrix is not equal to length of h")
		}
		if cG != len(c) {
			return errors.New("number of columns in G matrix is not equal to number of variables")
		}
	}
	if h != nil && G == nil {
		return errors.New("G matrix is nil while h vector is provided")
	}
	if A != nil {
		rA, cA := A.Dims()
		if rA != len(b) {
			return errors.New("number of rows in A matrix is not equal to length of b")
		}
		if cA != len(c) {
			return errors.New("number of columns in A matrix is not equal to number of variables")
		}
	}
	if b != nil && A == nil {
		return errors.New("A matrix is nil while b vector is provided")
	}
	return nil
}

// Convert a problem with inequalities (G and h) to a problem with only
// equalities on nonnegative variables, using slack variables.
func convertToEqualities(c []float64, A *mat.Dense, b []float64, G *mat.Dense, h []float64) (cNew []float64, aNew *mat.Dense, bNew []float64) {
	if G == nil {
		panic("provided pointer to G matrix is nil")
	}
	if insane := sanityCheckDimensions(c, A, b, G, h); insane != nil {
		panic(insane)
	}

	nVar := len(c)
	nCons := len(b)
	nIneq := len(h)
	nNewVar := nVar + nIneq
	nNewCons := nCons + nIneq

	// slack variables enter the objective with coefficient zero
	cNew = make([]float64, nNewVar)
	copy(cNew, c)

	// concatenate the b and h vectors
	bNew = make([]float64, nNewCons)
	copy(bNew, b)
	copy(bNew[nCons:], h)

	aNew = mat.NewDense(nNewCons, nNewVar, nil)

	// embed the original A matrix in the top left, if present
	if A != nil {
		aNew.Slice(0, nCons, 0, nVar).(*mat.Dense).Copy(A)
	}

	// embed G below it
	aNew.Slice(nCons, nNewCons, 0, nVar).(*mat.Dense).Copy(G)

	// diagonal of slack indicators next to G
	bottomRight := aNew.Slice(nCons, nNewCons, nVar, nNewVar).(*mat.Dense)
	for i := 0; i < nIneq; i++ {
		bottomRight.Set(i, i, 1)
	}

	return cNew, aNew, bNew
}
