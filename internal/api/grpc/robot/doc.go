// Package robot exposes the robot control API over gRPC.
//
// The service descriptor and message types are written by hand and carried
// with a JSON codec registered under the "json" content subtype, so clients
// must call with grpc.CallContentSubtype(CodecName); the stubs in this package
// do that for every call.
package robot
