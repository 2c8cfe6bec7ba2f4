package main

import "github.com/KaramelBytes/estatefit-cli/cmd"

func main() {
	cmd.Execute()
}
