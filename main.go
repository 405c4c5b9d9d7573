package main

import "github.com/pitwall-live/telemetry-bridge-go/cmd"

func main() {
	cmd.Execute()
}
