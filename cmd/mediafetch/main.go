package main

import "github.com/vietddude/mediafetch/internal/cli"

func main() {
	cli.Execute()
}
