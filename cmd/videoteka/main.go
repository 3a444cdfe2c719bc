package main

import "github.com/videoteka/videoteka/cmd/videoteka/cmd"

func main() {
	cmd.Execute()
}
