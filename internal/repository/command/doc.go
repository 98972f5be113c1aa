// Package command stores the log of admitted discrete commands.
//
// FileRepository appends one JSON document per line; lookups scan the file,
// which is fine for the command volumes a human operator produces.
package command
