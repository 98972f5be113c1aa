// Package client implements the robot-ctl operations.
//
// Each operation connects to the robot server, performs one call and prints
// the response as YAML. The stream operation turns lines of "x y z rotation"
// read from its input into a stream session.
package client
