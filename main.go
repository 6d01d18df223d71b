package main

import "ldapbench/cmd"

func main() {
	cmd.Execute()
}
