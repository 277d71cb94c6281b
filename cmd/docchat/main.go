package main

import "github.com/entrepeneur4lyf/docchat/cmd/docchat/cmd"

func main() {
	cmd.Execute()
}
