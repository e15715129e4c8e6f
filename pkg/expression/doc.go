// Package expression implements the expression trees used by conditions,
// forbidden clauses and objectives.
//
// A tree is made of operator nodes over literals, variables (references to
// parameters) and lists. Trees are immutable. Eval computes the value of a
// tree against one or more bindings: the first binding whose context holds a
// variable's parameter supplies its value.
//
// Operators follow a fixed table of arity, precedence and associativity,
// shared by String, which prints with the minimal parentheses, and Parse,
// which reads the same syntax back:
//
//	||                 or
//	&&                 and
//	== !=              equality
//	< > <= >=          comparison
//	+ -                additive
//	* / %              multiplicative
//	+ - !              unary, right associative
//	#                  membership in a list, e.g. x # [1, 2, 3]
//
// Inactive operands make every operator evaluate to Inactive.
package expression
