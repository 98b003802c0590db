package main

import "github.com/OpenTraceLab/OpenTraceSch/cmd/ots/cmd"

func main() {
	cmd.Execute()
}
