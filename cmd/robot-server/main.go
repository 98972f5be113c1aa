package main

import "github.com/oshokin/telerobot/cmd/robot-server/cmd"

func main() {
	cmd.Execute()
}
