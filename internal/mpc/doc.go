// Package mpc formulates and solves the receding-horizon trajectory
// optimization that turns a vehicle state and a fitted reference curve into
// one steering and throttle command.
//
// The decision vector holds six state trajectories of Steps entries followed
// by two actuator trajectories of Steps-1 entries:
//
//	x y psi v cte epsi | delta a
//
// Cost and constraints are written once, generic over ad.Arith, and
// evaluated with plain floats for values and with sparse forward-mode
// numbers for the gradient and Jacobian.
package mpc
