// Package scenario defines test scenarios and loads them from files.
//
// A scenario is an ordered list of steps. Each step assigns input values,
// and lists the outputs expected after one evaluation of the model.
// Scenarios are plain data: the driver interprets them and this package
// never touches a model.
//
// Three file formats are supported, selected by extension:
//
//	.yaml, .yml   scenario list with strict field checking
//	.json, .jsonl testbench records ("scenario", "input variable", "output variable")
//	.hcl          scenario blocks with nested step blocks
//
// Values are unsigned integers written in decimal or with a 0x, 0b or 0o
// prefix. A value made only of x or z characters is a don't-care: the key is
// dropped from the step.
package scenario
