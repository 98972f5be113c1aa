// Package robot contains the core domain types for robot control.
//
// It defines the canonical State of one robot, the two command shapes that
// mutate it (DiscreteCommand and StreamCommand), the mutation algorithms, and
// the fixed-capacity History of recent stream commands.
package robot
