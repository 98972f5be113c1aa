package main

import "github.com/oshokin/telerobot/cmd/robot-ctl/cmd"

func main() {
	cmd.Execute()
}
