package main

import "github.com/qrave1/RoomWatch/cmd"

func main() {
	cmd.Execute()
}
