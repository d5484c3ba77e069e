package main

import "github.com/shanmukhchodagam/workhub/cmd"

func main() {
	cmd.Execute()
}
