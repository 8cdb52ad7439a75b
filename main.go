package main

import "speech-clipper/cmd"

func main() {
	cmd.Execute()
}
