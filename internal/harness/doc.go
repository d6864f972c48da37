// Package harness runs test scenarios against a simulated design.
//
// The runner owns every model instance it creates. For each scenario it:
//
//  1. checks for cancellation (the only point where a run may stop early)
//  2. creates a fresh model instance from the design
//  3. binds a fresh signal table to that instance
//  4. drives the scenario's steps through the driver
//  5. releases the table, then closes the instance
//
// Instances and tables are never reused across scenarios, so scenario order
// has no effect on any scenario's outcome.
//
// # Failure policy
//
// Value mismatches are data: they are counted and the run continues.
// A signal resolution error or a failing Evaluate ends only the current
// scenario, which is marked failed with one extra failure on top of its
// mismatches. A design whose ports are invalid, or an instance that cannot be
// created, ends the whole run with an error.
//
// # Example
//
//	h, err := harness.New(design, harness.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	summary, err := h.Run(ctx, scenarios)
//	if err != nil {
//	    return err
//	}
//	if !summary.Passed() {
//	    os.Exit(1)
//	}
package harness
