// Package solver holds the narrow nonlinear-programming contract used by the
// trajectory optimizer and its backends.
//
// A Problem carries the start point and the variable and constraint ranges;
// an Evaluator supplies the objective, the constraint residuals and their
// first derivatives, and a HessianEvaluator the second derivatives of the
// Lagrangian as well. Bounds with magnitude of 1e19 or more are treated as
// infinite.
//
// Two backends are available:
//
//	alm    augmented Lagrangian with projected Newton subproblems (default)
//	slsqp  nlopt SLSQP, only when built with -tags nlopt
package solver
