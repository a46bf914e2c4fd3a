// Package lookahead implements a lookahead branching rule for mixed-integer
// linear programs, together with the serial branch-and-bound driver needed to
// exercise it.
//
// The rule evaluates each fractional candidate variable by probing its down
// and up branches, recursively re-solving the LP relaxation up to a configured
// depth. Besides picking the candidate with the best combined dual-bound gain,
// the probing pass harvests side products that are valid for the current node
// regardless of the final branching choice:
//
//   - cutoff proofs, when both branches of some candidate are infeasible
//   - domain reductions, when exactly one branch is infeasible, or when both
//     subtrees of a deeper probe bound the same variable
//   - logic-or constraints forbidding fully binary infeasible probing paths
//
// Probing is strictly reversible: every probing node pushed during one
// invocation is backtracked before the rule returns, on every exit path.
//
// Problems are modelled with the builder in problem.go and solved through the
// dense simplex of gonum's optimize/convex/lp package. See cmd/lookahead for a
// runnable example.
package lookahead
