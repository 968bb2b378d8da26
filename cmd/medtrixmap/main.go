package main

import "github.com/santinoo1919/medtrixmap/internal/cmd"

func main() {
	cmd.Execute()
}
