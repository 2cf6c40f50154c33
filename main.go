package main

import "restaurant-menu/cmd"

func main() {
	cmd.Execute()
}
