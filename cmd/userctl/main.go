package main

import "user-service/cmd/userctl/cmd"

func main() {
	cmd.Execute()
}
