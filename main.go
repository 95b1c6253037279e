package main

import "github.com/user/amplify-runner/cmd"

func main() {
	cmd.Execute()
}
