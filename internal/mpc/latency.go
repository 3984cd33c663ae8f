package mpc

// ActuationIndex returns the actuator step that acts on the transition into
// step t when commands take delay steps to reach the wheels. Step 0 is the
// pinned initial state and has no incoming actuation.
//
// With delay 1 the transition into step 1 uses actuator 0 and every later
// transition into t uses actuator t-2.
func ActuationIndex(t, delay int) (int, bool) {
	if t < 1 {
		return 0, false
	}
	k := t - 1 - delay
	if k < 0 {
		k = 0
	}
	return k, true
}
