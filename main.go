package main

import "ipc-alarm-relay/cmd"

func main() {
	cmd.Execute()
}
