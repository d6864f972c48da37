// Package testutil provides small reference circuits for tests.
//
// The circuits are struct models (see sim.NewStructDesign) with well-known
// behavior, so tests in the signal, driver, harness and cli packages can
// exercise the testbench core without a netlist file. CountingDesign
// instruments instance lifecycles and StepClock supplies deterministic
// run start times.
package testutil
