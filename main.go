package main

import "reviewmonitor/cmd"

func main() {
	cmd.Execute()
}
