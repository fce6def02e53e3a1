package main

import "github.com/KaramelBytes/findash/cmd"

func main() {
	cmd.Execute()
}
