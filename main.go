package main

import "github.com/mpapenbr/fantasy-league-service/cmd"

func main() {
	cmd.Execute()
}
