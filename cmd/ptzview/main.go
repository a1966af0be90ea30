package main

import "github.com/bryanchriswhite/PTZView/cmd/ptzview/commands"

func main() {
	commands.Execute()
}
