// Package gateway is the boundary between transports and the robot actors.
//
// It checks the shape of incoming requests, normalizes them into domain
// commands, assigns command ids, records accepted commands in the command log
// and wraps every submission in a trace span. Domain decisions such as
// arbitration stay with the actors.
package gateway
