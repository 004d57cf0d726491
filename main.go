package main

import "github.com/minhvu/faceclock/cmd"

func main() {
	cmd.Execute()
}
